// Package nunjucks compiles Jinja-style templates into closure trees and
// renders them.
package nunjucks

import (
	"path/filepath"

	"github.com/deicod/nunjucks/compiler"
	"github.com/deicod/nunjucks/nodes"
	"github.com/deicod/nunjucks/parser"
	"github.com/deicod/nunjucks/runtime"
)

// Version of the nunjucks library
const Version = "0.1.0"

// Template represents a parsed template
type Template = runtime.Template

// Environment represents the template environment
type Environment = runtime.Environment

// Unit is a compiled template: a root entry plus one entry per block
type Unit = compiler.Unit

// Markup is output that is never escaped
type Markup = compiler.Markup

// NewEnvironment creates a new environment
func NewEnvironment() *Environment {
	return runtime.NewEnvironment()
}

// ParseString parses a template from a string
func ParseString(source string) (*Template, error) {
	return runtime.NewEnvironment().FromString("template", source)
}

// ParseFile parses a template from a file. Templates it extends, includes
// or imports are resolved next to it.
func ParseFile(filename string) (*Template, error) {
	if filename == "" {
		return nil, compiler.NewError(compiler.ErrorTypeTemplate, "filename must not be empty", nil)
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}

	env := runtime.NewEnvironment()
	env.SetLoader(runtime.NewFileSystemLoader(filepath.Dir(absPath)))
	return env.LoadTemplate(filepath.Base(absPath))
}

// Compile parses source and compiles it with the default options
func Compile(source string) (*Unit, error) {
	root, err := parser.ParseTemplate(source)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(root, compiler.Options{})
}

// Node access for AST manipulation

// Node represents an AST node
type Node = nodes.Node

// DumpAST returns a string representation of the AST for debugging
func DumpAST(node Node) string {
	return nodes.Dump(node)
}

// Walk traverses the AST using the visitor pattern
func Walk(visitor nodes.Visitor, node Node) {
	nodes.Walk(visitor, node)
}

// Error types

// Error represents a compile or render error
type Error = compiler.Error

// ErrorType represents the type of error
type ErrorType = compiler.ErrorType
