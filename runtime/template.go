package runtime

import (
	"io"
	"sync"

	"github.com/deicod/nunjucks/compiler"
	"github.com/deicod/nunjucks/nodes"
)

// maxIncludeDepth bounds how deeply includes nest
const maxIncludeDepth = 128

// Template is a parsed template bound to an environment. It is compiled
// on first use.
type Template struct {
	name   string
	source string
	env    *Environment
	root   *nodes.Root

	once sync.Once
	unit *compiler.Unit
	err  error
}

var _ compiler.Template = (*Template)(nil)

// Name returns the template name
func (t *Template) Name() string {
	return t.name
}

// Source returns the template source
func (t *Template) Source() string {
	return t.source
}

// AST returns the parsed template
func (t *Template) AST() *nodes.Root {
	return t.root
}

// Unit compiles the template once and returns its entry points
func (t *Template) Unit() (*compiler.Unit, error) {
	t.once.Do(func() {
		t.unit, t.err = compiler.New(t.env.compilerOptions()).Compile(t.root, nil)
		if t.err != nil {
			t.env.logger().Warn("template compile failed", "template", t.name, "error", t.err)
		}
	})
	return t.unit, t.err
}

// Execute renders the template with vars
func (t *Template) Execute(vars map[string]interface{}) (string, error) {
	return t.Render(vars, nil)
}

// ExecuteTo renders the template with vars into w
func (t *Template) ExecuteTo(w io.Writer, vars map[string]interface{}) error {
	out, err := t.Render(vars, nil)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// Render renders the root entry in a fresh context. A non-nil frame is
// the caller's scope, as passed by include.
func (t *Template) Render(vars map[string]interface{}, frame compiler.RuntimeFrame) (string, error) {
	unit, err := t.Unit()
	if err != nil {
		return "", err
	}

	switch parent := frame.(type) {
	case nil:
		frame = NewFrame()
	case *Frame:
		child := parent.include()
		if child.Includes() > maxIncludeDepth {
			return "", compiler.NewError(compiler.ErrorTypeTemplate, "maximum include depth exceeded in "+t.name, nil)
		}
		frame = child
	default:
		frame = frame.Push()
	}

	ctx := NewContextWithEnvironment(t.env, vars)
	ctx.AddUnit(unit)
	return unit.Root.Render(t.env, ctx, frame, t.env.helpers())
}

// Module renders the root entry with no variables and returns the
// exported names with their values
func (t *Template) Module() (map[string]interface{}, error) {
	unit, err := t.Unit()
	if err != nil {
		return nil, err
	}

	ctx := NewContextWithEnvironment(t.env, nil)
	ctx.AddUnit(unit)
	if _, err := unit.Root.Render(t.env, ctx, NewFrame(), t.env.helpers()); err != nil {
		return nil, err
	}
	return ctx.Exported(), nil
}
