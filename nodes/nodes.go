package nodes

import (
	"fmt"
	"strings"
)

// Position represents source code position information
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// NewPosition creates a new Position
func NewPosition(line, column int) Position {
	return Position{
		Line:   line,
		Column: column,
	}
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Node represents the base interface for all AST nodes.
//
// The set of implementations is closed: only the types in this package
// satisfy it, so a type switch over the variants below is exhaustive.
type Node interface {
	// GetPosition returns the position information for this node
	GetPosition() Position

	// GetChildren returns all child nodes in source order
	GetChildren() []Node

	// String returns a string representation of the node
	String() string

	// Type returns the node kind, e.g. "Symbol" or "For"
	Type() string

	sealed()
}

// BaseNode provides common functionality for all nodes
type BaseNode struct {
	Pos Position `json:"pos"`
}

// GetPosition returns the position information
func (n *BaseNode) GetPosition() Position {
	return n.Pos
}

// SetPosition sets the position information
func (n *BaseNode) SetPosition(pos Position) {
	n.Pos = pos
}

func (n *BaseNode) sealed() {}

// Literal is a constant string, number, boolean or none value
type Literal struct {
	BaseNode
	Value interface{} `json:"value"`
}

func (l *Literal) GetChildren() []Node { return nil }
func (l *Literal) Type() string        { return "Literal" }
func (l *Literal) String() string      { return fmt.Sprintf("Literal(%#v)", l.Value) }

// TemplateData is raw template text between tags
type TemplateData struct {
	BaseNode
	Value string `json:"value"`
}

func (t *TemplateData) GetChildren() []Node { return nil }
func (t *TemplateData) Type() string        { return "TemplateData" }
func (t *TemplateData) String() string      { return fmt.Sprintf("TemplateData(%q)", t.Value) }

// Symbol is a bare identifier
type Symbol struct {
	BaseNode
	Value string `json:"value"`
}

func (s *Symbol) GetChildren() []Node { return nil }
func (s *Symbol) Type() string        { return "Symbol" }
func (s *Symbol) String() string      { return fmt.Sprintf("Symbol(%s)", s.Value) }

// NodeList is an ordered sequence of nodes
type NodeList struct {
	BaseNode
	Children []Node `json:"children"`
}

func (l *NodeList) GetChildren() []Node { return l.Children }
func (l *NodeList) Type() string        { return "NodeList" }
func (l *NodeList) String() string      { return listString("NodeList", l.Children) }

// Root is the top level node of a parsed template
type Root struct {
	BaseNode
	Children []Node `json:"children"`
}

func (r *Root) GetChildren() []Node { return r.Children }
func (r *Root) Type() string        { return "Root" }
func (r *Root) String() string      { return listString("Root", r.Children) }

// Group is a parenthesized expression list
type Group struct {
	BaseNode
	Children []Node `json:"children"`
}

func (g *Group) GetChildren() []Node { return g.Children }
func (g *Group) Type() string        { return "Group" }
func (g *Group) String() string      { return listString("Group", g.Children) }

// Array is a list literal
type Array struct {
	BaseNode
	Children []Node `json:"children"`
}

func (a *Array) GetChildren() []Node { return a.Children }
func (a *Array) Type() string        { return "Array" }
func (a *Array) String() string      { return listString("Array", a.Children) }

// Dict is a mapping literal made of pairs
type Dict struct {
	BaseNode
	Children []*Pair `json:"children"`
}

func (d *Dict) GetChildren() []Node {
	children := make([]Node, len(d.Children))
	for i, p := range d.Children {
		children[i] = p
	}
	return children
}
func (d *Dict) Type() string   { return "Dict" }
func (d *Dict) String() string { return listString("Dict", d.GetChildren()) }

// Pair is a key/value entry. It is used for dict items, keyword
// arguments, macro parameters with defaults and from-import aliases.
// Value may be nil where the position allows it.
type Pair struct {
	BaseNode
	Key   Node `json:"key"`
	Value Node `json:"value"`
}

func (p *Pair) GetChildren() []Node {
	if p.Value == nil {
		return []Node{p.Key}
	}
	return []Node{p.Key, p.Value}
}
func (p *Pair) Type() string   { return "Pair" }
func (p *Pair) String() string { return fmt.Sprintf("Pair(%v, %v)", p.Key, p.Value) }

// BinExpr holds the operands shared by all binary operators
type BinExpr struct {
	BaseNode
	Left  Node `json:"left"`
	Right Node `json:"right"`
}

func (b *BinExpr) GetChildren() []Node { return []Node{b.Left, b.Right} }

// Or is the logical or operator
type Or struct{ BinExpr }

// And is the logical and operator
type And struct{ BinExpr }

// Add is the addition operator
type Add struct{ BinExpr }

// Sub is the subtraction operator
type Sub struct{ BinExpr }

// Mul is the multiplication operator
type Mul struct{ BinExpr }

// Div is the true division operator
type Div struct{ BinExpr }

// FloorDiv is the // operator
type FloorDiv struct{ BinExpr }

// Mod is the modulo operator
type Mod struct{ BinExpr }

// Pow is the ** operator
type Pow struct{ BinExpr }

func (n *Or) Type() string       { return "Or" }
func (n *And) Type() string      { return "And" }
func (n *Add) Type() string      { return "Add" }
func (n *Sub) Type() string      { return "Sub" }
func (n *Mul) Type() string      { return "Mul" }
func (n *Div) Type() string      { return "Div" }
func (n *FloorDiv) Type() string { return "FloorDiv" }
func (n *Mod) Type() string      { return "Mod" }
func (n *Pow) Type() string      { return "Pow" }

func (n *Or) String() string       { return binString("Or", &n.BinExpr) }
func (n *And) String() string      { return binString("And", &n.BinExpr) }
func (n *Add) String() string      { return binString("Add", &n.BinExpr) }
func (n *Sub) String() string      { return binString("Sub", &n.BinExpr) }
func (n *Mul) String() string      { return binString("Mul", &n.BinExpr) }
func (n *Div) String() string      { return binString("Div", &n.BinExpr) }
func (n *FloorDiv) String() string { return binString("FloorDiv", &n.BinExpr) }
func (n *Mod) String() string      { return binString("Mod", &n.BinExpr) }
func (n *Pow) String() string      { return binString("Pow", &n.BinExpr) }

// UnaryExpr holds the operand shared by unary operators
type UnaryExpr struct {
	BaseNode
	Target Node `json:"target"`
}

func (u *UnaryExpr) GetChildren() []Node { return []Node{u.Target} }

// Not is logical negation
type Not struct{ UnaryExpr }

// Neg is numeric negation
type Neg struct{ UnaryExpr }

// Pos is unary plus
type Pos struct{ UnaryExpr }

func (n *Not) Type() string   { return "Not" }
func (n *Neg) Type() string   { return "Neg" }
func (n *Pos) Type() string   { return "Pos" }
func (n *Not) String() string { return fmt.Sprintf("Not(%v)", n.Target) }
func (n *Neg) String() string { return fmt.Sprintf("Neg(%v)", n.Target) }
func (n *Pos) String() string { return fmt.Sprintf("Pos(%v)", n.Target) }

// Compare is a (possibly chained) comparison: Expr op1 e1 op2 e2 ...
type Compare struct {
	BaseNode
	Expr Node              `json:"expr"`
	Ops  []*CompareOperand `json:"ops"`
}

func (c *Compare) GetChildren() []Node {
	children := []Node{c.Expr}
	for _, op := range c.Ops {
		children = append(children, op)
	}
	return children
}
func (c *Compare) Type() string   { return "Compare" }
func (c *Compare) String() string { return fmt.Sprintf("Compare(%v, %v)", c.Expr, c.Ops) }

// CompareOperand is one operator and right hand side of a Compare
type CompareOperand struct {
	BaseNode
	Op   string `json:"op"`
	Expr Node   `json:"expr"`
}

func (c *CompareOperand) GetChildren() []Node { return []Node{c.Expr} }
func (c *CompareOperand) Type() string        { return "CompareOperand" }
func (c *CompareOperand) String() string      { return fmt.Sprintf("%s %v", c.Op, c.Expr) }

// LookupVal is subscript or attribute access: Target[Val]
type LookupVal struct {
	BaseNode
	Target Node `json:"target"`
	Val    Node `json:"val"`
}

func (l *LookupVal) GetChildren() []Node { return []Node{l.Target, l.Val} }
func (l *LookupVal) Type() string        { return "LookupVal" }
func (l *LookupVal) String() string      { return fmt.Sprintf("LookupVal(%v, %v)", l.Target, l.Val) }

// FunCall is a call expression. Keyword arguments are Pair nodes.
type FunCall struct {
	BaseNode
	Name Node   `json:"name"`
	Args []Node `json:"args"`
}

func (f *FunCall) GetChildren() []Node { return append([]Node{f.Name}, f.Args...) }
func (f *FunCall) Type() string        { return "FunCall" }
func (f *FunCall) String() string      { return fmt.Sprintf("FunCall(%v, %v)", f.Name, f.Args) }

// Filter applies a named filter. The filtered value is the first argument.
type Filter struct {
	BaseNode
	Name Node   `json:"name"`
	Args []Node `json:"args"`
}

func (f *Filter) GetChildren() []Node { return append([]Node{f.Name}, f.Args...) }
func (f *Filter) Type() string        { return "Filter" }
func (f *Filter) String() string      { return fmt.Sprintf("Filter(%v, %v)", f.Name, f.Args) }

// Set assigns a value to one or more names
type Set struct {
	BaseNode
	Targets []*Symbol `json:"targets"`
	Value   Node      `json:"value"`
}

func (s *Set) GetChildren() []Node {
	children := make([]Node, 0, len(s.Targets)+1)
	for _, t := range s.Targets {
		children = append(children, t)
	}
	return append(children, s.Value)
}
func (s *Set) Type() string   { return "Set" }
func (s *Set) String() string { return fmt.Sprintf("Set(%v = %v)", s.Targets, s.Value) }

// If is a conditional. Elif chains are nested Ifs in Else.
type If struct {
	BaseNode
	Test Node      `json:"test"`
	Body *NodeList `json:"body"`
	Else *NodeList `json:"else,omitempty"`
}

func (i *If) GetChildren() []Node {
	children := []Node{i.Test, i.Body}
	if i.Else != nil {
		children = append(children, i.Else)
	}
	return children
}
func (i *If) Type() string   { return "If" }
func (i *If) String() string { return fmt.Sprintf("If(test=%v, body=%v, else=%v)", i.Test, i.Body, i.Else) }

// For is a loop. Target is a Symbol, or an Array of two Symbols for
// key/value iteration.
type For struct {
	BaseNode
	Target Node      `json:"target"`
	Iter   Node      `json:"iter"`
	Body   *NodeList `json:"body"`
}

func (f *For) GetChildren() []Node { return []Node{f.Target, f.Iter, f.Body} }
func (f *For) Type() string        { return "For" }
func (f *For) String() string {
	return fmt.Sprintf("For(target=%v, iter=%v, body=%v)", f.Target, f.Iter, f.Body)
}

// Macro defines a callable template fragment. Args holds Symbol
// parameters and Pair parameters with a default value.
type Macro struct {
	BaseNode
	Name *Symbol   `json:"name"`
	Args []Node    `json:"args"`
	Body *NodeList `json:"body"`
}

func (m *Macro) GetChildren() []Node {
	children := append([]Node{m.Name}, m.Args...)
	return append(children, m.Body)
}
func (m *Macro) Type() string   { return "Macro" }
func (m *Macro) String() string { return fmt.Sprintf("Macro(%s, %v)", m.Name.Value, m.Args) }

// Import binds the exported module of another template: import "x" as y
type Import struct {
	BaseNode
	Template Node    `json:"template"`
	Target   *Symbol `json:"target"`
}

func (i *Import) GetChildren() []Node { return []Node{i.Template, i.Target} }
func (i *Import) Type() string        { return "Import" }
func (i *Import) String() string      { return fmt.Sprintf("Import(%v as %s)", i.Template, i.Target.Value) }

// FromImport binds selected names: from "x" import a, b as c.
// Each Pair has a Symbol key and an optional Symbol alias.
type FromImport struct {
	BaseNode
	Template Node    `json:"template"`
	Names    []*Pair `json:"names"`
}

func (f *FromImport) GetChildren() []Node {
	children := []Node{f.Template}
	for _, n := range f.Names {
		children = append(children, n)
	}
	return children
}
func (f *FromImport) Type() string   { return "FromImport" }
func (f *FromImport) String() string { return fmt.Sprintf("FromImport(%v, %v)", f.Template, f.Names) }

// Block is a named overridable section
type Block struct {
	BaseNode
	Name *Symbol   `json:"name"`
	Body *NodeList `json:"body"`
}

func (b *Block) GetChildren() []Node { return []Node{b.Name, b.Body} }
func (b *Block) Type() string        { return "Block" }
func (b *Block) String() string      { return fmt.Sprintf("Block(%s, %v)", b.Name.Value, b.Body) }

// Extends declares the parent template
type Extends struct {
	BaseNode
	Template Node `json:"template"`
}

func (e *Extends) GetChildren() []Node { return []Node{e.Template} }
func (e *Extends) Type() string        { return "Extends" }
func (e *Extends) String() string      { return fmt.Sprintf("Extends(%v)", e.Template) }

// Include renders another template in place
type Include struct {
	BaseNode
	Template Node `json:"template"`
}

func (i *Include) GetChildren() []Node { return []Node{i.Template} }
func (i *Include) Type() string        { return "Include" }
func (i *Include) String() string      { return fmt.Sprintf("Include(%v)", i.Template) }

// Output writes its children to the current accumulator
type Output struct {
	BaseNode
	Children []Node `json:"children"`
}

func (o *Output) GetChildren() []Node { return o.Children }
func (o *Output) Type() string        { return "Output" }
func (o *Output) String() string      { return listString("Output", o.Children) }

func listString(kind string, children []Node) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = fmt.Sprint(c)
	}
	return kind + "[" + strings.Join(parts, ", ") + "]"
}

func binString(kind string, b *BinExpr) string {
	return fmt.Sprintf("%s(%v, %v)", kind, b.Left, b.Right)
}

// Visitor implements the visitor pattern for AST traversal
type Visitor interface {
	Visit(node Node) interface{}
}

// NodeVisitorFunc is a function adapter for Visitor interface
type NodeVisitorFunc func(node Node) interface{}

func (f NodeVisitorFunc) Visit(node Node) interface{} {
	return f(node)
}

// Walk traverses the AST depth first. A non-nil visitor result stops the
// descent into that node's children.
func Walk(visitor Visitor, node Node) {
	if isNil(node) {
		return
	}

	if visitor.Visit(node) != nil {
		return
	}

	for _, child := range node.GetChildren() {
		Walk(visitor, child)
	}
}

// FindAll returns every node of type T in the tree, in depth-first order,
// including node itself.
func FindAll[T Node](node Node) []T {
	var results []T
	Walk(NodeVisitorFunc(func(n Node) interface{} {
		if match, ok := n.(T); ok {
			results = append(results, match)
		}
		return nil
	}), node)
	return results
}

// Find returns the first node of type T or false.
func Find[T Node](node Node) (T, bool) {
	var (
		found T
		ok    bool
	)
	Walk(NodeVisitorFunc(func(n Node) interface{} {
		if ok {
			return true
		}
		if match, is := n.(T); is {
			found, ok = match, true
			return true
		}
		return nil
	}), node)
	return found, ok
}

// Dump returns an indented tree dump of the node
func Dump(node Node) string {
	if isNil(node) {
		return "nil"
	}

	var buf strings.Builder
	dumpNode(&buf, node, 0)
	return buf.String()
}

func dumpNode(buf *strings.Builder, node Node, indent int) {
	buf.WriteString(strings.Repeat("  ", indent))
	if isNil(node) {
		buf.WriteString("nil\n")
		return
	}

	buf.WriteString(node.Type())
	switch n := node.(type) {
	case *Literal:
		fmt.Fprintf(buf, " %#v", n.Value)
	case *TemplateData:
		fmt.Fprintf(buf, " %q", n.Value)
	case *Symbol:
		buf.WriteString(" " + n.Value)
	case *CompareOperand:
		buf.WriteString(" " + n.Op)
	}
	fmt.Fprintf(buf, " @%s\n", node.GetPosition())

	for _, child := range node.GetChildren() {
		dumpNode(buf, child, indent+1)
	}
}

// isNil reports typed and untyped nil nodes
func isNil(node Node) bool {
	if node == nil {
		return true
	}
	switch n := node.(type) {
	case *NodeList:
		return n == nil
	case *Symbol:
		return n == nil
	case *Pair:
		return n == nil
	}
	return false
}
