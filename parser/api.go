package parser

import (
	"github.com/deicod/nunjucks/nodes"
)

// ParseTemplate is a simple one-line API for parsing templates.
// It uses the default delimiters and returns the AST or an error with
// position information.
func ParseTemplate(template string) (*nodes.Root, error) {
	return ParseTemplateWithEnv(nil, template, "template")
}

// ParseTemplateWithEnv parses a template using the given environment
func ParseTemplateWithEnv(env *Environment, template, name string) (*nodes.Root, error) {
	parser, err := NewParser(env, template, name)
	if err != nil {
		return nil, err
	}

	return parser.Parse()
}
