package compiler

import (
	"fmt"
	"strings"

	"github.com/deicod/nunjucks/nodes"
)

func (c *Compiler) compileOutput(node *nodes.Output, frame *Frame, buf *buffer) error {
	for _, child := range node.Children {
		if data, ok := child.(*nodes.TemplateData); ok {
			text := data.Value
			buf.emit(func(_ *state, out *strings.Builder) error {
				out.WriteString(text)
				return nil
			})
			continue
		}

		value, err := c.expr(child, frame)
		if err != nil {
			return err
		}
		buf.emit(func(s *state, out *strings.Builder) error {
			v, err := value(s)
			if err != nil {
				return err
			}
			out.WriteString(s.rt.Stringify(v))
			return nil
		})
	}
	return nil
}

// compileSet evaluates the value once and assigns it in the context under
// every target. Names not starting with "_" are exported.
func (c *Compiler) compileSet(node *nodes.Set, frame *Frame, buf *buffer) error {
	value, err := c.compileExpression(node.Value, frame)
	if err != nil {
		return err
	}

	targets := make([]string, len(node.Targets))
	for i, target := range node.Targets {
		targets[i] = target.Value
	}

	buf.emit(func(s *state, _ *strings.Builder) error {
		v, err := value(s)
		if err != nil {
			return err
		}
		for _, name := range targets {
			s.ctx.SetVariable(name, v)
			if !strings.HasPrefix(name, "_") {
				s.ctx.AddExport(name)
			}
		}
		return nil
	})
	return nil
}

func (c *Compiler) compileIf(node *nodes.If, frame *Frame, buf *buffer) error {
	test, err := c.compileExpression(node.Test, frame)
	if err != nil {
		return err
	}
	body, err := c.compileBody(node.Body, frame)
	if err != nil {
		return err
	}
	var elseBody execFunc
	if node.Else != nil {
		if elseBody, err = c.compileBody(node.Else, frame); err != nil {
			return err
		}
	}

	buf.emit(func(s *state, out *strings.Builder) error {
		v, err := test(s)
		if err != nil {
			return err
		}
		if s.rt.Truthy(v) {
			return body(s, out)
		}
		if elseBody != nil {
			return elseBody(s, out)
		}
		return nil
	})
	return nil
}

// compileFor binds the loop target and a "loop" mapping in a pushed scope.
// The same names are set on a pushed runtime frame so templates rendered
// from the body see them.
func (c *Compiler) compileFor(node *nodes.For, frame *Frame, buf *buffer) error {
	iter, err := c.compileExpression(node.Iter, frame)
	if err != nil {
		return err
	}

	frame = frame.Push()
	loopID := c.tmpid()
	frame.Set("loop", loopID)

	switch target := node.Target.(type) {
	case *nodes.Array:
		if len(target.Children) != 2 {
			return compileError(target, "for loop target must have two names, got %d", len(target.Children))
		}
		key, ok := target.Children[0].(*nodes.Symbol)
		if !ok {
			return compileError(target.Children[0], "invalid type: %s", target.Children[0].Type())
		}
		val, ok := target.Children[1].(*nodes.Symbol)
		if !ok {
			return compileError(target.Children[1], "invalid type: %s", target.Children[1].Type())
		}
		keyID, valID := c.tmpid(), c.tmpid()
		frame.Set(key.Value, keyID)
		frame.Set(val.Value, valID)

		body, err := c.compileBody(node.Body, frame)
		if err != nil {
			return err
		}
		buf.emit(func(s *state, out *strings.Builder) error {
			collection, err := iter(s)
			if err != nil {
				return err
			}
			pairs, err := toPairs(collection)
			if err != nil {
				return NewErrorWithCause(ErrorTypeTemplate, err.Error(), node, err)
			}

			s.frame = s.frame.Push()
			defer func() { s.frame = s.frame.Pop() }()
			for i, pair := range pairs {
				loop := map[string]interface{}{
					"index":  i + 1,
					"index0": i,
					"first":  i == 0,
				}
				s.locals.set(keyID, pair.key)
				s.locals.set(valID, pair.value)
				s.locals.set(loopID, loop)
				s.frame.Set(key.Value, pair.key)
				s.frame.Set(val.Value, pair.value)
				s.frame.Set("loop", loop)
				if err := body(s, out); err != nil {
					return err
				}
			}
			return nil
		})

	case *nodes.Symbol:
		valID := c.tmpid()
		frame.Set(target.Value, valID)

		body, err := c.compileBody(node.Body, frame)
		if err != nil {
			return err
		}
		name := target.Value
		buf.emit(func(s *state, out *strings.Builder) error {
			collection, err := iter(s)
			if err != nil {
				return err
			}
			items, err := ToSlice(collection)
			if err != nil {
				return NewErrorWithCause(ErrorTypeTemplate, err.Error(), node, err)
			}

			s.frame = s.frame.Push()
			defer func() { s.frame = s.frame.Pop() }()
			length := len(items)
			for i, item := range items {
				loop := map[string]interface{}{
					"index":     i + 1,
					"index0":    i,
					"revindex":  length - i,
					"revindex0": length - i - 1,
					"first":     i == 0,
					"last":      i == length-1,
					"length":    length,
				}
				s.locals.set(valID, item)
				s.locals.set(loopID, loop)
				s.frame.Set(name, item)
				s.frame.Set("loop", loop)
				if err := body(s, out); err != nil {
					return err
				}
			}
			return nil
		})

	default:
		return compileError(node.Target, "invalid type: %s", node.Target.Type())
	}

	frame.Pop()
	return nil
}

// compileMacro builds the macro closure. Parameters are bound in a pushed
// scope and the body writes to its own accumulator.
func (c *Compiler) compileMacro(node *nodes.Macro, frame *Frame, buf *buffer) error {
	macroFrame := frame.Push()

	params := make([]MacroParam, len(node.Args))
	for i, arg := range node.Args {
		var (
			name *nodes.Symbol
			def  nodes.Node
		)
		switch a := arg.(type) {
		case *nodes.Symbol:
			name = a
		case *nodes.Pair:
			sym, ok := a.Key.(*nodes.Symbol)
			if !ok {
				return compileError(a, "macro parameter must be a name")
			}
			name, def = sym, a.Value
		default:
			return compileError(arg, "invalid type: %s", arg.Type())
		}

		id := c.tmpid()
		macroFrame.Set(name.Value, id)
		params[i] = MacroParam{Name: name.Value, Default: def, id: id}
	}

	// defaults see the parameters bound before them
	for i := range params {
		if params[i].Default == nil {
			continue
		}
		def, err := c.expr(params[i].Default, macroFrame)
		if err != nil {
			return err
		}
		params[i].def = def
	}

	body, err := c.compileBody(node.Body, macroFrame)
	if err != nil {
		return err
	}

	name := node.Name.Value
	id := c.tmpid()
	frame.Set(name, id)
	topLevel := frame.Depth() == 0
	publish := topLevel && !c.isChild

	buf.emit(func(s *state, _ *strings.Builder) error {
		macro := &Macro{
			Name:    name,
			Params:  params,
			node:    node,
			body:    body,
			defined: s,
		}
		s.locals.set(id, macro)
		if publish {
			if !strings.HasPrefix(name, "_") {
				s.ctx.AddExport(name)
			}
			s.ctx.SetVariable(name, macro)
		}
		return nil
	})
	return nil
}

// templateName evaluates a template reference to its name
func templateName(s *state, fn evalFunc) (string, error) {
	value, err := fn(s)
	if err != nil {
		return "", err
	}
	if name, ok := value.(string); ok {
		return name, nil
	}
	return ToString(value), nil
}

func (c *Compiler) compileImport(node *nodes.Import, frame *Frame, buf *buffer) error {
	tmpl, err := c.expr(node.Template, frame)
	if err != nil {
		return err
	}

	alias := node.Target.Value
	id := c.tmpid()
	frame.Set(alias, id)
	publish := !c.isChild

	buf.emit(func(s *state, _ *strings.Builder) error {
		name, err := templateName(s, tmpl)
		if err != nil {
			return err
		}
		module, err := loadModule(s, name, node)
		if err != nil {
			return err
		}
		s.locals.set(id, module)
		if publish {
			s.ctx.SetVariable(alias, module)
		}
		return nil
	})
	return nil
}

func loadModule(s *state, name string, node nodes.Node) (map[string]interface{}, error) {
	t, err := s.env.GetTemplate(name, false)
	if err != nil {
		return nil, WrapError(err, node)
	}
	module, err := t.Module()
	if err != nil {
		return nil, WrapError(err, node)
	}
	return module, nil
}

func (c *Compiler) compileFromImport(node *nodes.FromImport, frame *Frame, buf *buffer) error {
	tmpl, err := c.expr(node.Template, frame)
	if err != nil {
		return err
	}

	type binding struct {
		name  string
		alias string
		id    string
	}
	bindings := make([]binding, 0, len(node.Names))
	for _, pair := range node.Names {
		key, ok := pair.Key.(*nodes.Symbol)
		if !ok {
			return compileError(pair, "invalid type: %s", pair.Key.Type())
		}
		alias := key.Value
		if pair.Value != nil {
			sym, ok := pair.Value.(*nodes.Symbol)
			if !ok {
				return compileError(pair, "invalid type: %s", pair.Value.Type())
			}
			alias = sym.Value
		}
		id := c.tmpid()
		frame.Set(alias, id)
		bindings = append(bindings, binding{name: key.Value, alias: alias, id: id})
	}

	publish := !c.isChild
	policy := c.options.MissingImport

	buf.emit(func(s *state, _ *strings.Builder) error {
		name, err := templateName(s, tmpl)
		if err != nil {
			return err
		}
		module, err := loadModule(s, name, node)
		if err != nil {
			return err
		}

		for _, b := range bindings {
			value, ok := module[b.name]
			if !ok {
				if policy == MissingImportError {
					return NewImportError(name, fmt.Sprintf("cannot import '%s'", b.name), node)
				}
				value = ""
			}
			s.locals.set(b.id, value)
			if publish {
				s.ctx.SetVariable(b.alias, value)
			}
		}
		return nil
	})
	return nil
}

// compileBlock renders the context's current override of the block. Once
// a parent is resolved the output belongs to the parent, so the block is
// skipped.
func (c *Compiler) compileBlock(node *nodes.Block, frame *Frame, buf *buffer) error {
	name := node.Name.Value
	buf.emit(func(s *state, out *strings.Builder) error {
		if s.inv.parent != nil {
			return nil
		}
		entry, err := s.ctx.GetBlock(name)
		if err != nil {
			return WrapError(err, node)
		}
		text, err := entry.Render(s.env, s.ctx, s.frame, s.rt)
		if err != nil {
			return err
		}
		out.WriteString(text)
		return nil
	})
	return nil
}

// compileExtends resolves the parent and registers its blocks behind the
// ones already in the context. The root entry then delegates to the
// parent's root.
func (c *Compiler) compileExtends(node *nodes.Extends, frame *Frame, buf *buffer) error {
	if c.isChild {
		return compileError(node, "cannot extend multiple times")
	}

	tmpl, err := c.compileExpression(node.Template, frame)
	if err != nil {
		return err
	}

	buf.emit(func(s *state, _ *strings.Builder) error {
		if s.inv.chain >= maxInheritanceDepth {
			return NewError(ErrorTypeTemplate, "maximum inheritance depth exceeded", node)
		}
		name, err := templateName(s, tmpl)
		if err != nil {
			return err
		}
		parent, err := s.env.GetTemplate(name, true)
		if err != nil {
			return WrapError(err, node)
		}
		unit, err := parent.Unit()
		if err != nil {
			return WrapError(err, node)
		}
		for _, block := range unit.BlockNames() {
			s.ctx.AddBlock(block, unit.Blocks[block])
		}
		s.inv.parent = parent
		return nil
	})

	c.isChild = true
	return nil
}

// compileInclude renders another template with the live context
// variables and the current runtime frame
func (c *Compiler) compileInclude(node *nodes.Include, frame *Frame, buf *buffer) error {
	tmpl, err := c.compileExpression(node.Template, frame)
	if err != nil {
		return err
	}

	buf.emit(func(s *state, out *strings.Builder) error {
		name, err := templateName(s, tmpl)
		if err != nil {
			return err
		}
		t, err := s.env.GetTemplate(name, false)
		if err != nil {
			return WrapError(err, node)
		}
		text, err := t.Render(s.ctx.GetVariables(), s.frame)
		if err != nil {
			return WrapError(err, node)
		}
		out.WriteString(text)
		return nil
	})
	return nil
}
