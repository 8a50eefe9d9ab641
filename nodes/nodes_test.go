package nodes

import (
	"strings"
	"testing"
)

func TestBaseNode(t *testing.T) {
	pos := NewPosition(10, 5)
	node := &Symbol{Value: "x"}
	node.SetPosition(pos)

	if node.GetPosition().Line != 10 {
		t.Errorf("Expected line 10, got %d", node.GetPosition().Line)
	}

	if node.GetPosition().Column != 5 {
		t.Errorf("Expected column 5, got %d", node.GetPosition().Column)
	}

	if node.Type() != "Symbol" {
		t.Errorf("Expected type Symbol, got %s", node.Type())
	}

	if len(node.GetChildren()) != 0 {
		t.Errorf("Expected 0 children, got %d", len(node.GetChildren()))
	}
}

func TestNewBinary(t *testing.T) {
	left := NewLiteral(1, 1, 1)
	right := NewLiteral(2, 1, 5)

	tests := []struct {
		op   string
		kind string
	}{
		{"or", "Or"},
		{"and", "And"},
		{"+", "Add"},
		{"-", "Sub"},
		{"*", "Mul"},
		{"/", "Div"},
		{"//", "FloorDiv"},
		{"%", "Mod"},
		{"**", "Pow"},
	}

	for _, tt := range tests {
		node := NewBinary(tt.op, left, right, NewPosition(1, 3))
		if node == nil {
			t.Fatalf("NewBinary(%q) returned nil", tt.op)
		}
		if node.Type() != tt.kind {
			t.Errorf("NewBinary(%q) kind = %s, want %s", tt.op, node.Type(), tt.kind)
		}
		children := node.GetChildren()
		if len(children) != 2 || children[0] != left || children[1] != right {
			t.Errorf("NewBinary(%q) children = %v", tt.op, children)
		}
	}

	if NewBinary("~", left, right, Position{}) != nil {
		t.Error("Expected nil for unknown operator")
	}
}

func TestChildrenOrder(t *testing.T) {
	target := NewSymbol("item", 1, 8)
	iter := NewSymbol("items", 1, 16)
	body := NewNodeList([]Node{NewOutput([]Node{NewSymbol("item", 1, 30)}, 1, 27)}, 1, 25)
	loop := &For{Target: target, Iter: iter, Body: body}

	children := loop.GetChildren()
	if len(children) != 3 {
		t.Fatalf("Expected 3 children, got %d", len(children))
	}
	if children[0] != target || children[1] != iter || children[2] != body {
		t.Errorf("Unexpected child order: %v", children)
	}

	ifNode := &If{Test: NewSymbol("x", 1, 1), Body: NewNodeList(nil, 1, 1)}
	if len(ifNode.GetChildren()) != 2 {
		t.Errorf("If without else should have 2 children, got %d", len(ifNode.GetChildren()))
	}
}

func TestFindAll(t *testing.T) {
	inner := &Block{Name: NewSymbol("inner", 2, 10), Body: NewNodeList(nil, 2, 1)}
	outer := &Block{
		Name: NewSymbol("outer", 1, 10),
		Body: NewNodeList([]Node{
			&If{Test: NewSymbol("x", 2, 1), Body: NewNodeList([]Node{inner}, 2, 1)},
		}, 1, 1),
	}
	root := NewRoot([]Node{NewOutput([]Node{NewTemplateData("hi", 1, 1)}, 1, 1), outer})

	blocks := FindAll[*Block](root)
	if len(blocks) != 2 {
		t.Fatalf("Expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Name.Value != "outer" || blocks[1].Name.Value != "inner" {
		t.Errorf("Expected depth-first order outer, inner; got %s, %s", blocks[0].Name.Value, blocks[1].Name.Value)
	}

	symbols := FindAll[*Symbol](root)
	if len(symbols) != 3 {
		t.Errorf("Expected 3 symbols, got %d", len(symbols))
	}

	if _, ok := Find[*Extends](root); ok {
		t.Error("Did not expect to find an Extends node")
	}
	if b, ok := Find[*Block](root); !ok || b != outer {
		t.Error("Expected Find to return the outer block")
	}
}

func TestIsExpression(t *testing.T) {
	exprs := []Node{
		NewLiteral("a", 1, 1),
		NewSymbol("a", 1, 1),
		&Group{},
		&Array{},
		&Dict{},
		&Add{},
		&Not{},
		&Compare{},
		&LookupVal{},
		&FunCall{},
		&Filter{},
	}
	for _, n := range exprs {
		if !IsExpression(n) {
			t.Errorf("Expected %s to be an expression", n.Type())
		}
	}

	stmts := []Node{&Set{}, &If{}, &For{}, &Macro{}, &Block{}, &Output{}, &Root{}, &NodeList{}, &Pair{}}
	for _, n := range stmts {
		if IsExpression(n) {
			t.Errorf("Did not expect %s to be an expression", n.Type())
		}
	}
}

func TestDump(t *testing.T) {
	root := NewRoot([]Node{
		NewOutput([]Node{
			&Filter{
				Name: NewSymbol("upper", 1, 9),
				Args: []Node{NewSymbol("name", 1, 4)},
			},
		}, 1, 1),
	})

	dump := Dump(root)
	for _, want := range []string{"Root", "  Output", "    Filter", "      Symbol upper", "      Symbol name"} {
		if !strings.Contains(dump, want) {
			t.Errorf("Dump missing %q:\n%s", want, dump)
		}
	}

	if Dump(nil) != "nil" {
		t.Errorf("Expected nil dump, got %q", Dump(nil))
	}
}
