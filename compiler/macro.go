package compiler

import (
	"fmt"
	"strings"

	"github.com/deicod/nunjucks/nodes"
)

// maxMacroDepth bounds nested macro calls
const maxMacroDepth = 256

// Markup is text that is already safe for output and is never escaped
type Markup string

func (m Markup) String() string { return string(m) }

// MacroParam is a declared macro parameter. Default is nil when the
// parameter has no default value.
type MacroParam struct {
	Name    string
	Default nodes.Node

	id  string
	def evalFunc
}

// Macro is a compiled macro bound to the activation that defined it
type Macro struct {
	Name   string
	Params []MacroParam

	// Reserved for variadic, keyword and caller support.
	Variadic bool
	Kwargs   bool
	Caller   bool

	node    *nodes.Macro
	body    execFunc
	defined *state
}

// IsMacro marks m for the macro calling convention
func (m *Macro) IsMacro() bool { return true }

// CallMacro binds args positionally, then kwargs by name, then defaults,
// and renders the body. Unbound parameters without a default are empty.
func (m *Macro) CallMacro(args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	outer := m.defined
	if outer.inv.depth >= maxMacroDepth {
		return nil, NewMacroError(m.Name, "maximum recursion depth exceeded", m.node)
	}
	if len(args) > len(m.Params) {
		return nil, NewMacroError(m.Name, fmt.Sprintf("takes %d arguments, got %d", len(m.Params), len(args)), m.node)
	}
	for name := range kwargs {
		if !m.hasParam(name) {
			return nil, NewMacroError(m.Name, fmt.Sprintf("unexpected keyword argument %q", name), m.node)
		}
	}

	s := &state{
		env:    outer.env,
		ctx:    outer.ctx,
		frame:  outer.frame.Push(),
		rt:     outer.rt,
		locals: newLocals(outer.locals),
		inv:    outer.inv,
	}
	s.inv.depth++
	defer func() { s.inv.depth-- }()

	for i, param := range m.Params {
		switch {
		case i < len(args):
			s.locals.set(param.id, args[i])
		case hasKey(kwargs, param.Name):
			s.locals.set(param.id, kwargs[param.Name])
		case param.def != nil:
			value, err := param.def(s)
			if err != nil {
				return nil, err
			}
			s.locals.set(param.id, value)
		default:
			s.locals.set(param.id, "")
		}
	}

	var out strings.Builder
	if err := m.body(s, &out); err != nil {
		return nil, err
	}
	return Markup(out.String()), nil
}

func (m *Macro) hasParam(name string) bool {
	for _, param := range m.Params {
		if param.Name == name {
			return true
		}
	}
	return false
}

func (m *Macro) String() string {
	names := make([]string, len(m.Params))
	for i, param := range m.Params {
		names[i] = param.Name
	}
	return fmt.Sprintf("<macro %s(%s)>", m.Name, strings.Join(names, ", "))
}

func hasKey(m map[string]interface{}, key string) bool {
	_, ok := m[key]
	return ok
}

// superBlock is bound to "super" inside a block entry and renders the
// next override in the chain
type superBlock struct {
	name  string
	entry *Entry
	s     *state
}

func (b *superBlock) Call(args []interface{}) (interface{}, error) {
	if b.entry == nil {
		return nil, fmt.Errorf("no super block available for %q", b.name)
	}
	out, err := b.entry.Render(b.s.env, b.s.ctx, b.s.frame, b.s.rt)
	if err != nil {
		return nil, err
	}
	return Markup(out), nil
}
