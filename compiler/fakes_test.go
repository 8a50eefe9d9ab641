package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/deicod/nunjucks/parser"
)

// fakeEnv compiles templates from in-memory sources
type fakeEnv struct {
	sources   map[string]string
	templates map[string]*fakeTemplate
	filters   map[string]FilterFunc
	options   Options
	eager     []string
}

func newFakeEnv(sources map[string]string) *fakeEnv {
	return &fakeEnv{
		sources:   sources,
		templates: map[string]*fakeTemplate{},
		filters: map[string]FilterFunc{
			"upper": func(_ Context, value interface{}, _ ...interface{}) (interface{}, error) {
				return strings.ToUpper(ToString(value)), nil
			},
			"join": func(_ Context, value interface{}, args ...interface{}) (interface{}, error) {
				items, err := ToSlice(value)
				if err != nil {
					return nil, err
				}
				sep := ""
				if len(args) > 0 {
					sep = ToString(args[0])
				}
				parts := make([]string, len(items))
				for i, item := range items {
					parts[i] = ToString(item)
				}
				return strings.Join(parts, sep), nil
			},
		},
	}
}

func (e *fakeEnv) GetTemplate(name string, eager bool) (Template, error) {
	if eager {
		e.eager = append(e.eager, name)
	}
	if t, ok := e.templates[name]; ok {
		return t, nil
	}
	source, ok := e.sources[name]
	if !ok {
		return nil, fmt.Errorf("template %s not found", name)
	}
	root, err := parser.ParseTemplateWithEnv(nil, source, name)
	if err != nil {
		return nil, err
	}
	unit, err := New(e.options).Compile(root, nil)
	if err != nil {
		return nil, err
	}
	t := &fakeTemplate{env: e, unit: unit}
	e.templates[name] = t
	return t, nil
}

func (e *fakeEnv) GetFilter(name string) (FilterFunc, error) {
	if f, ok := e.filters[name]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("filter not found: %s", name)
}

// render renders the named template with vars
func (e *fakeEnv) render(name string, vars map[string]interface{}) (string, error) {
	t, err := e.GetTemplate(name, false)
	if err != nil {
		return "", err
	}
	return t.Render(vars, newFakeFrame(nil))
}

type fakeTemplate struct {
	env  *fakeEnv
	unit *Unit
}

func (t *fakeTemplate) Unit() (*Unit, error) { return t.unit, nil }

func (t *fakeTemplate) Render(vars map[string]interface{}, frame RuntimeFrame) (string, error) {
	ctx := newFakeContext(vars, t.unit)
	return t.unit.Root.Render(t.env, ctx, frame, fakeRuntime{})
}

func (t *fakeTemplate) Module() (map[string]interface{}, error) {
	ctx := newFakeContext(nil, t.unit)
	if _, err := t.unit.Root.Render(t.env, ctx, newFakeFrame(nil), fakeRuntime{}); err != nil {
		return nil, err
	}
	module := map[string]interface{}{}
	for _, name := range ctx.exports {
		module[name] = ctx.vars[name]
	}
	return module, nil
}

type fakeContext struct {
	vars    map[string]interface{}
	blocks  map[string][]*Entry
	exports []string
}

func newFakeContext(vars map[string]interface{}, unit *Unit) *fakeContext {
	ctx := &fakeContext{vars: map[string]interface{}{}, blocks: map[string][]*Entry{}}
	for k, v := range vars {
		ctx.vars[k] = v
	}
	for name, entry := range unit.Blocks {
		ctx.AddBlock(name, entry)
	}
	return ctx
}

func (c *fakeContext) Lookup(name string) (interface{}, bool) {
	v, ok := c.vars[name]
	return v, ok
}

func (c *fakeContext) SetVariable(name string, value interface{}) { c.vars[name] = value }

func (c *fakeContext) AddExport(name string) { c.exports = append(c.exports, name) }

func (c *fakeContext) GetVariables() map[string]interface{} { return c.vars }

func (c *fakeContext) GetBlock(name string) (*Entry, error) {
	chain := c.blocks[name]
	if len(chain) == 0 {
		return nil, fmt.Errorf("unknown block %q", name)
	}
	return chain[0], nil
}

func (c *fakeContext) AddBlock(name string, entry *Entry) {
	c.blocks[name] = append(c.blocks[name], entry)
}

func (c *fakeContext) GetSuper(_ Environment, name string, current *Entry, _ Runtime) (*Entry, error) {
	chain := c.blocks[name]
	for i, entry := range chain {
		if entry == current {
			if i+1 < len(chain) {
				return chain[i+1], nil
			}
			return nil, nil
		}
	}
	return nil, fmt.Errorf("no block %q in chain", name)
}

type fakeFrame struct {
	vars   map[string]interface{}
	parent *fakeFrame
}

func newFakeFrame(parent *fakeFrame) *fakeFrame {
	return &fakeFrame{vars: map[string]interface{}{}, parent: parent}
}

func (f *fakeFrame) Lookup(name string) (interface{}, bool) {
	for cur := f; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (f *fakeFrame) Push() RuntimeFrame { return newFakeFrame(f) }

func (f *fakeFrame) Pop() RuntimeFrame {
	if f.parent == nil {
		return f
	}
	return f.parent
}

func (f *fakeFrame) Set(name string, value interface{}) { f.vars[name] = value }

type fakeRuntime struct{}

func (fakeRuntime) MemberLookup(obj, key interface{}) (interface{}, error) {
	switch o := obj.(type) {
	case map[string]interface{}:
		return o[ToString(key)], nil
	case []interface{}:
		if i, ok := key.(int); ok && i >= 0 && i < len(o) {
			return o[i], nil
		}
	}
	return nil, nil
}

func (fakeRuntime) Call(fn interface{}, args []interface{}) (interface{}, error) {
	if f, ok := fn.(func(args ...interface{}) interface{}); ok {
		return f(args...), nil
	}
	return nil, fmt.Errorf("%T is not callable", fn)
}

func (fakeRuntime) Stringify(value interface{}) string { return ToString(value) }

func (fakeRuntime) Truthy(value interface{}) bool { return Truthy(value) }

func sortedEntryNames(unit *Unit) []string {
	names := make([]string, 0)
	for name := range unit.Entries() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
