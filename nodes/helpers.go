package nodes

// NewLiteral creates a new Literal
func NewLiteral(value interface{}, line, column int) *Literal {
	return &Literal{BaseNode: BaseNode{Pos: NewPosition(line, column)}, Value: value}
}

// NewSymbol creates a new Symbol
func NewSymbol(name string, line, column int) *Symbol {
	return &Symbol{BaseNode: BaseNode{Pos: NewPosition(line, column)}, Value: name}
}

// NewTemplateData creates a new TemplateData
func NewTemplateData(text string, line, column int) *TemplateData {
	return &TemplateData{BaseNode: BaseNode{Pos: NewPosition(line, column)}, Value: text}
}

// NewNodeList creates a new NodeList
func NewNodeList(children []Node, line, column int) *NodeList {
	return &NodeList{BaseNode: BaseNode{Pos: NewPosition(line, column)}, Children: children}
}

// NewOutput creates a new Output
func NewOutput(children []Node, line, column int) *Output {
	return &Output{BaseNode: BaseNode{Pos: NewPosition(line, column)}, Children: children}
}

// NewRoot creates a new Root
func NewRoot(children []Node) *Root {
	return &Root{BaseNode: BaseNode{Pos: NewPosition(1, 1)}, Children: children}
}

// NewBinary builds the binary operator node for op ("or", "and", "+", "-",
// "*", "/", "//", "%", "**"). It returns nil for an unknown operator.
func NewBinary(op string, left, right Node, pos Position) Node {
	b := BinExpr{BaseNode: BaseNode{Pos: pos}, Left: left, Right: right}
	switch op {
	case "or":
		return &Or{b}
	case "and":
		return &And{b}
	case "+":
		return &Add{b}
	case "-":
		return &Sub{b}
	case "*":
		return &Mul{b}
	case "/":
		return &Div{b}
	case "//":
		return &FloorDiv{b}
	case "%":
		return &Mod{b}
	case "**":
		return &Pow{b}
	}
	return nil
}

// IsExpression reports whether node is an expression variant
func IsExpression(node Node) bool {
	switch node.(type) {
	case *Literal, *TemplateData, *Symbol, *Group, *Array, *Dict,
		*Or, *And, *Add, *Sub, *Mul, *Div, *FloorDiv, *Mod, *Pow,
		*Not, *Neg, *Pos, *Compare, *LookupVal, *FunCall, *Filter:
		return true
	}
	return false
}
