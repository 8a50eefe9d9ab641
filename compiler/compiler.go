// Package compiler turns a parsed template into a tree of Go closures.
//
// A compiled Unit exposes a root entry and one entry per block. Entries
// take the render collaborators (environment, context, runtime frame and
// runtime helpers) and return the rendered text. Names bound by for
// loops, macros and imports resolve to generated locals chosen at compile
// time; every other name is looked up in the context, then the runtime
// frame, and renders empty when missing.
package compiler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/deicod/nunjucks/nodes"
)

type (
	evalFunc func(s *state) (interface{}, error)
	execFunc func(s *state, out *strings.Builder) error
)

// MissingImportPolicy selects what a from-import does with a name the
// imported template does not export
type MissingImportPolicy int

const (
	// MissingImportError fails the render with an ImportError
	MissingImportError MissingImportPolicy = iota
	// MissingImportEmpty binds the name to the empty string
	MissingImportEmpty
)

// ParseMissingImportPolicy parses "error" or "empty"
func ParseMissingImportPolicy(value string) (MissingImportPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "error":
		return MissingImportError, nil
	case "empty":
		return MissingImportEmpty, nil
	}
	return MissingImportError, errors.New("unknown missing import policy: " + value)
}

// Options configures a compile
type Options struct {
	MissingImport MissingImportPolicy
}

// Compiler compiles one template. It is single use: the id counter and
// the child flag belong to one compile call.
type Compiler struct {
	options Options
	lastID  int
	isChild bool
	used    bool
}

// New creates a compiler
func New(options Options) *Compiler {
	return &Compiler{options: options}
}

// Compile compiles root with a fresh compiler
func Compile(root *nodes.Root, options Options) (*Unit, error) {
	return New(options).Compile(root, nil)
}

// Compile compiles a template root. frame must be nil: a root opens the
// outermost scope itself.
func (c *Compiler) Compile(root *nodes.Root, frame *Frame) (*Unit, error) {
	if c.used {
		return nil, errors.New("compiler: instance already used")
	}
	c.used = true
	if root == nil {
		return nil, errors.New("compiler: nil root")
	}
	return c.compileRoot(root, frame)
}

// tmpid allocates a binding id that is unique within this compiler
func (c *Compiler) tmpid() string {
	c.lastID++
	return "t_" + strconv.Itoa(c.lastID)
}

// buffer collects the emitted fragments of one body
type buffer struct {
	frags []execFunc
}

func (b *buffer) emit(fn execFunc) {
	b.frags = append(b.frags, fn)
}

func (b *buffer) flatten() execFunc {
	frags := b.frags
	switch len(frags) {
	case 0:
		return func(*state, *strings.Builder) error { return nil }
	case 1:
		return frags[0]
	}
	return func(s *state, out *strings.Builder) error {
		for _, frag := range frags {
			if err := frag(s, out); err != nil {
				return err
			}
		}
		return nil
	}
}

// compile emits a statement-level node into buf
func (c *Compiler) compile(node nodes.Node, frame *Frame, buf *buffer) error {
	switch n := node.(type) {
	case *nodes.NodeList:
		return c.compileNodeList(n, frame, buf)
	case *nodes.Output:
		return c.compileOutput(n, frame, buf)
	case *nodes.TemplateData:
		return c.compileOutput(&nodes.Output{BaseNode: n.BaseNode, Children: []nodes.Node{n}}, frame, buf)
	case *nodes.Set:
		return c.compileSet(n, frame, buf)
	case *nodes.If:
		return c.compileIf(n, frame, buf)
	case *nodes.For:
		return c.compileFor(n, frame, buf)
	case *nodes.Macro:
		return c.compileMacro(n, frame, buf)
	case *nodes.Import:
		return c.compileImport(n, frame, buf)
	case *nodes.FromImport:
		return c.compileFromImport(n, frame, buf)
	case *nodes.Block:
		return c.compileBlock(n, frame, buf)
	case *nodes.Extends:
		return c.compileExtends(n, frame, buf)
	case *nodes.Include:
		return c.compileInclude(n, frame, buf)
	case *nodes.Root:
		return compileError(n, "root node can't have frame")
	case *nodes.Literal, *nodes.Symbol, *nodes.Group, *nodes.Array, *nodes.Dict,
		*nodes.Pair, *nodes.Or, *nodes.And, *nodes.Add, *nodes.Sub, *nodes.Mul,
		*nodes.Div, *nodes.FloorDiv, *nodes.Mod, *nodes.Pow, *nodes.Not,
		*nodes.Neg, *nodes.Pos, *nodes.Compare, *nodes.CompareOperand,
		*nodes.LookupVal, *nodes.FunCall, *nodes.Filter:
		return compileError(n, "cannot compile node: %s", n.Type())
	case nil:
		return errors.New("compiler: cannot compile node: nil")
	}
	return compileError(node, "cannot compile node: %s", node.Type())
}

func (c *Compiler) compileNodeList(node *nodes.NodeList, frame *Frame, buf *buffer) error {
	if node == nil {
		return nil
	}
	for _, child := range node.Children {
		if err := c.compile(child, frame, buf); err != nil {
			return err
		}
	}
	return nil
}

// compileBody compiles a list into a standalone body
func (c *Compiler) compileBody(node *nodes.NodeList, frame *Frame) (execFunc, error) {
	var buf buffer
	if err := c.compileNodeList(node, frame, &buf); err != nil {
		return nil, err
	}
	return buf.flatten(), nil
}

// assertExpression rejects nodes outside the expression set allowed in
// statement operands, lookups and callees
func assertExpression(node nodes.Node) error {
	switch node.(type) {
	case *nodes.Literal, *nodes.TemplateData, *nodes.Symbol, *nodes.Group,
		*nodes.Array, *nodes.Dict, *nodes.FunCall, *nodes.Filter,
		*nodes.LookupVal, *nodes.Compare, *nodes.And, *nodes.Or, *nodes.Not:
		return nil
	case nil:
		return errors.New("compiler: invalid type: nil")
	}
	return compileError(node, "invalid type: %s", node.Type())
}

// compileExpression asserts node and compiles it
func (c *Compiler) compileExpression(node nodes.Node, frame *Frame) (evalFunc, error) {
	if err := assertExpression(node); err != nil {
		return nil, err
	}
	return c.expr(node, frame)
}
