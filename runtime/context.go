package runtime

import (
	"fmt"

	"github.com/deicod/nunjucks/compiler"
)

// Context is the variable and block table of one render. A child's
// blocks are registered first, so the head of each chain is the most
// derived override.
type Context struct {
	vars    map[string]interface{}
	blocks  map[string][]*compiler.Entry
	exports []string
	env     *Environment
}

var _ compiler.Context = (*Context)(nil)

// NewContext creates a context over a copy of vars
func NewContext(vars map[string]interface{}) *Context {
	ctx := &Context{
		vars:   make(map[string]interface{}, len(vars)),
		blocks: map[string][]*compiler.Entry{},
	}
	for name, value := range vars {
		ctx.vars[name] = value
	}
	return ctx
}

// NewContextWithEnvironment creates a context that resolves the
// environment's globals after its own variables
func NewContextWithEnvironment(env *Environment, vars map[string]interface{}) *Context {
	ctx := NewContext(vars)
	ctx.env = env
	return ctx
}

// Lookup resolves a context variable, then an environment global
func (ctx *Context) Lookup(name string) (interface{}, bool) {
	if v, ok := ctx.vars[name]; ok {
		return v, true
	}
	if ctx.env != nil {
		return ctx.env.Global(name)
	}
	return nil, false
}

// SetVariable binds a context variable
func (ctx *Context) SetVariable(name string, value interface{}) {
	ctx.vars[name] = value
}

// AddExport marks name as exported. Repeated names are kept once.
func (ctx *Context) AddExport(name string) {
	for _, existing := range ctx.exports {
		if existing == name {
			return
		}
	}
	ctx.exports = append(ctx.exports, name)
}

// Exports returns the exported names in the order they were added
func (ctx *Context) Exports() []string {
	return append([]string(nil), ctx.exports...)
}

// Exported returns the exported names with their current values
func (ctx *Context) Exported() map[string]interface{} {
	exported := make(map[string]interface{}, len(ctx.exports))
	for _, name := range ctx.exports {
		exported[name] = ctx.vars[name]
	}
	return exported
}

// GetVariables returns the live variable map
func (ctx *Context) GetVariables() map[string]interface{} {
	return ctx.vars
}

// AddBlock appends entry to the override chain of name
func (ctx *Context) AddBlock(name string, entry *compiler.Entry) {
	ctx.blocks[name] = append(ctx.blocks[name], entry)
}

// AddUnit registers every block of unit
func (ctx *Context) AddUnit(unit *compiler.Unit) {
	for _, name := range unit.BlockNames() {
		ctx.AddBlock(name, unit.Blocks[name])
	}
}

// GetBlock returns the most derived override of name
func (ctx *Context) GetBlock(name string) (*compiler.Entry, error) {
	chain := ctx.blocks[name]
	if len(chain) == 0 {
		return nil, fmt.Errorf("unknown block %q", name)
	}
	return chain[0], nil
}

// GetSuper returns the override after current, or nil when current is
// the base definition
func (ctx *Context) GetSuper(_ compiler.Environment, name string, current *compiler.Entry, _ compiler.Runtime) (*compiler.Entry, error) {
	chain := ctx.blocks[name]
	for i, entry := range chain {
		if entry != current {
			continue
		}
		if i+1 < len(chain) {
			return chain[i+1], nil
		}
		return nil, nil
	}
	return nil, fmt.Errorf("no super block available for %q", name)
}
