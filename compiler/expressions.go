package compiler

import (
	"fmt"

	"github.com/deicod/nunjucks/nodes"
)

// expr compiles an expression-class node
func (c *Compiler) expr(node nodes.Node, frame *Frame) (evalFunc, error) {
	switch n := node.(type) {
	case *nodes.Literal:
		value := n.Value
		return func(*state) (interface{}, error) { return value, nil }, nil
	case *nodes.TemplateData:
		value := n.Value
		return func(*state) (interface{}, error) { return value, nil }, nil
	case *nodes.Symbol:
		return c.compileSymbol(n, frame), nil
	case *nodes.Group:
		return c.compileGroup(n, frame)
	case *nodes.Array:
		return c.compileArray(n, frame)
	case *nodes.Dict:
		return c.compileDict(n, frame)
	case *nodes.Or:
		return c.compileLogical(n.Left, n.Right, frame, true)
	case *nodes.And:
		return c.compileLogical(n.Left, n.Right, frame, false)
	case *nodes.Add:
		return c.compileBinary(n, &n.BinExpr, frame, add)
	case *nodes.Sub:
		return c.compileBinary(n, &n.BinExpr, frame, subtract)
	case *nodes.Mul:
		return c.compileBinary(n, &n.BinExpr, frame, multiply)
	case *nodes.Div:
		return c.compileBinary(n, &n.BinExpr, frame, divide)
	case *nodes.FloorDiv:
		return c.compileBinary(n, &n.BinExpr, frame, floorDivide)
	case *nodes.Mod:
		return c.compileBinary(n, &n.BinExpr, frame, modulo)
	case *nodes.Pow:
		return c.compileBinary(n, &n.BinExpr, frame, power)
	case *nodes.Not:
		target, err := c.expr(n.Target, frame)
		if err != nil {
			return nil, err
		}
		return func(s *state) (interface{}, error) {
			value, err := target(s)
			if err != nil {
				return nil, err
			}
			return !s.rt.Truthy(value), nil
		}, nil
	case *nodes.Neg:
		return c.compileUnary(n, n.Target, frame, negate)
	case *nodes.Pos:
		return c.compileUnary(n, n.Target, frame, unaryPlus)
	case *nodes.Compare:
		return c.compileCompare(n, frame)
	case *nodes.LookupVal:
		return c.compileLookupVal(n, frame)
	case *nodes.FunCall:
		return c.compileFunCall(n, frame)
	case *nodes.Filter:
		return c.compileFilter(n, frame)
	case nil:
		return nil, fmt.Errorf("compiler: cannot compile node: nil")
	}
	return nil, compileError(node, "cannot compile node: %s", node.Type())
}

// compileSymbol reads a generated local when the frame binds name, and
// otherwise falls back to the context, then the runtime frame, then "".
func (c *Compiler) compileSymbol(node *nodes.Symbol, frame *Frame) evalFunc {
	if id, ok := frame.Lookup(node.Value); ok {
		return func(s *state) (interface{}, error) {
			return s.locals.get(id), nil
		}
	}

	name := node.Value
	return func(s *state) (interface{}, error) {
		if value, ok := s.ctx.Lookup(name); ok {
			return value, nil
		}
		if value, ok := s.frame.Lookup(name); ok {
			return value, nil
		}
		return "", nil
	}
}

func (c *Compiler) compileList(children []nodes.Node, frame *Frame) ([]evalFunc, error) {
	fns := make([]evalFunc, len(children))
	for i, child := range children {
		fn, err := c.expr(child, frame)
		if err != nil {
			return nil, err
		}
		fns[i] = fn
	}
	return fns, nil
}

func evalList(s *state, fns []evalFunc) ([]interface{}, error) {
	values := make([]interface{}, len(fns))
	for i, fn := range fns {
		value, err := fn(s)
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}

// compileGroup evaluates every child and yields the last value
func (c *Compiler) compileGroup(node *nodes.Group, frame *Frame) (evalFunc, error) {
	fns, err := c.compileList(node.Children, frame)
	if err != nil {
		return nil, err
	}
	return func(s *state) (interface{}, error) {
		var last interface{}
		for _, fn := range fns {
			value, err := fn(s)
			if err != nil {
				return nil, err
			}
			last = value
		}
		return last, nil
	}, nil
}

func (c *Compiler) compileArray(node *nodes.Array, frame *Frame) (evalFunc, error) {
	fns, err := c.compileList(node.Children, frame)
	if err != nil {
		return nil, err
	}
	return func(s *state) (interface{}, error) {
		return evalList(s, fns)
	}, nil
}

func (c *Compiler) compileDict(node *nodes.Dict, frame *Frame) (evalFunc, error) {
	type entry struct {
		key   string
		value evalFunc
	}

	entries := make([]entry, 0, len(node.Children))
	for _, pair := range node.Children {
		var key string
		switch k := pair.Key.(type) {
		case *nodes.Literal:
			key = ToString(k.Value)
		case *nodes.Symbol:
			key = k.Value
		default:
			return nil, compileError(pair, "dict keys must be strings or names")
		}

		value, err := c.compileExpression(pair.Value, frame)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{key: key, value: value})
	}

	return func(s *state) (interface{}, error) {
		dict := make(map[string]interface{}, len(entries))
		for _, e := range entries {
			value, err := e.value(s)
			if err != nil {
				return nil, err
			}
			dict[e.key] = value
		}
		return dict, nil
	}, nil
}

// compileLogical short-circuits and yields the deciding operand
func (c *Compiler) compileLogical(leftNode, rightNode nodes.Node, frame *Frame, or bool) (evalFunc, error) {
	left, err := c.expr(leftNode, frame)
	if err != nil {
		return nil, err
	}
	right, err := c.expr(rightNode, frame)
	if err != nil {
		return nil, err
	}
	return func(s *state) (interface{}, error) {
		value, err := left(s)
		if err != nil {
			return nil, err
		}
		if s.rt.Truthy(value) == or {
			return value, nil
		}
		return right(s)
	}, nil
}

func (c *Compiler) compileBinary(node nodes.Node, bin *nodes.BinExpr, frame *Frame, op func(l, r interface{}) (interface{}, error)) (evalFunc, error) {
	left, err := c.expr(bin.Left, frame)
	if err != nil {
		return nil, err
	}
	right, err := c.expr(bin.Right, frame)
	if err != nil {
		return nil, err
	}
	return func(s *state) (interface{}, error) {
		l, err := left(s)
		if err != nil {
			return nil, err
		}
		r, err := right(s)
		if err != nil {
			return nil, err
		}
		result, err := op(l, r)
		if err != nil {
			return nil, NewErrorWithCause(ErrorTypeTemplate, err.Error(), node, err)
		}
		return result, nil
	}, nil
}

func (c *Compiler) compileUnary(node, targetNode nodes.Node, frame *Frame, op func(v interface{}) (interface{}, error)) (evalFunc, error) {
	target, err := c.expr(targetNode, frame)
	if err != nil {
		return nil, err
	}
	return func(s *state) (interface{}, error) {
		value, err := target(s)
		if err != nil {
			return nil, err
		}
		result, err := op(value)
		if err != nil {
			return nil, NewErrorWithCause(ErrorTypeTemplate, err.Error(), node, err)
		}
		return result, nil
	}, nil
}

// compileCompare chains comparisons: a < b < c holds when every link
// holds, and each operand is evaluated once
func (c *Compiler) compileCompare(node *nodes.Compare, frame *Frame) (evalFunc, error) {
	first, err := c.expr(node.Expr, frame)
	if err != nil {
		return nil, err
	}

	type link struct {
		op    string
		right evalFunc
	}
	links := make([]link, len(node.Ops))
	for i, operand := range node.Ops {
		switch operand.Op {
		case "==", "!=", "<", ">", "<=", ">=":
		default:
			return nil, compileError(operand, "invalid compare operator: %s", operand.Op)
		}
		right, err := c.expr(operand.Expr, frame)
		if err != nil {
			return nil, err
		}
		links[i] = link{op: operand.Op, right: right}
	}

	return func(s *state) (interface{}, error) {
		left, err := first(s)
		if err != nil {
			return nil, err
		}
		for _, l := range links {
			right, err := l.right(s)
			if err != nil {
				return nil, err
			}
			ok, err := compare(l.op, left, right)
			if err != nil {
				return nil, NewErrorWithCause(ErrorTypeTemplate, err.Error(), node, err)
			}
			if !ok {
				return false, nil
			}
			left = right
		}
		return true, nil
	}, nil
}

func (c *Compiler) compileLookupVal(node *nodes.LookupVal, frame *Frame) (evalFunc, error) {
	target, err := c.compileExpression(node.Target, frame)
	if err != nil {
		return nil, err
	}
	key, err := c.compileExpression(node.Val, frame)
	if err != nil {
		return nil, err
	}
	return func(s *state) (interface{}, error) {
		obj, err := target(s)
		if err != nil {
			return nil, err
		}
		k, err := key(s)
		if err != nil {
			return nil, err
		}
		value, err := s.rt.MemberLookup(obj, k)
		if err != nil {
			return nil, WrapError(err, node)
		}
		return value, nil
	}, nil
}

// compileArgs splits call arguments into positional values and keyword
// pairs
func (c *Compiler) compileArgs(args []nodes.Node, frame *Frame) ([]evalFunc, map[string]evalFunc, error) {
	var positional []evalFunc
	keywords := map[string]evalFunc{}
	for _, arg := range args {
		if pair, ok := arg.(*nodes.Pair); ok {
			name, ok := pair.Key.(*nodes.Symbol)
			if !ok {
				return nil, nil, compileError(pair, "keyword argument name must be a symbol")
			}
			value, err := c.expr(pair.Value, frame)
			if err != nil {
				return nil, nil, err
			}
			keywords[name.Value] = value
			continue
		}

		value, err := c.expr(arg, frame)
		if err != nil {
			return nil, nil, err
		}
		positional = append(positional, value)
	}
	return positional, keywords, nil
}

// compileFunCall invokes macros with (args, kwargs) and every other
// callable with the positional arguments only
func (c *Compiler) compileFunCall(node *nodes.FunCall, frame *Frame) (evalFunc, error) {
	callee, err := c.compileExpression(node.Name, frame)
	if err != nil {
		return nil, err
	}
	positional, keywords, err := c.compileArgs(node.Args, frame)
	if err != nil {
		return nil, err
	}

	return func(s *state) (interface{}, error) {
		fn, err := callee(s)
		if err != nil {
			return nil, err
		}
		args, err := evalList(s, positional)
		if err != nil {
			return nil, err
		}

		var result interface{}
		switch f := fn.(type) {
		case MacroCaller:
			if !f.IsMacro() {
				result, err = s.rt.Call(fn, args)
				break
			}
			kwargs := make(map[string]interface{}, len(keywords))
			for name, kw := range keywords {
				if kwargs[name], err = kw(s); err != nil {
					return nil, err
				}
			}
			result, err = f.CallMacro(args, kwargs)
		case Caller:
			result, err = f.Call(args)
		default:
			result, err = s.rt.Call(fn, args)
		}
		if err != nil {
			return nil, WrapError(err, node)
		}
		return result, nil
	}, nil
}

// compileFilter resolves the filter by name when the expression runs.
// The first argument is the filtered value.
func (c *Compiler) compileFilter(node *nodes.Filter, frame *Frame) (evalFunc, error) {
	sym, ok := node.Name.(*nodes.Symbol)
	if !ok {
		return nil, compileError(node, "filter name must be a symbol, got %s", node.Name.Type())
	}
	if len(node.Args) == 0 {
		return nil, compileError(node, "filter %s has no value", sym.Value)
	}

	positional, keywords, err := c.compileArgs(node.Args, frame)
	if err != nil {
		return nil, err
	}
	if len(keywords) > 0 {
		return nil, compileError(node, "filter %s: filters take positional arguments only", sym.Value)
	}

	name := sym.Value
	return func(s *state) (interface{}, error) {
		filter, err := s.env.GetFilter(name)
		if err != nil {
			return nil, NewFilterError(name, err.Error(), node, err)
		}
		args, err := evalList(s, positional)
		if err != nil {
			return nil, err
		}
		result, err := filter(s.ctx, args[0], args[1:]...)
		if err != nil {
			return nil, NewFilterError(name, err.Error(), node, err)
		}
		return result, nil
	}, nil
}
