package parser

import (
	"github.com/deicod/nunjucks/lexer"
	"github.com/deicod/nunjucks/nodes"
)

// ParseIf parses if/elif/else/endif. An elif becomes a nested If in the
// else branch.
func (p *Parser) ParseIf(token lexer.Token) (nodes.Node, error) {
	test, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}

	body, end, err := p.ParseStatements("elif", "else", "endif")
	if err != nil {
		return nil, err
	}

	node := &nodes.If{BaseNode: nodes.BaseNode{Pos: posOf(token)}, Test: test, Body: body}
	switch end.Value {
	case "elif":
		nested, err := p.ParseIf(end)
		if err != nil {
			return nil, err
		}
		node.Else = nodes.NewNodeList([]nodes.Node{nested}, end.Line, end.Column)
		return node, nil
	case "else":
		elseBody, _, err := p.ParseStatements("endif")
		if err != nil {
			return nil, err
		}
		node.Else = elseBody
	}

	return node, p.expectBlockEnd()
}

// ParseFor parses "for x in expr" and "for k, v in expr"
func (p *Parser) ParseFor(token lexer.Token) (nodes.Node, error) {
	first, err := p.expectName()
	if err != nil {
		return nil, err
	}

	var target nodes.Node = first
	if p.stream.SkipIf(lexer.TokenOperator, ",") {
		second, err := p.expectName()
		if err != nil {
			return nil, err
		}
		target = &nodes.Array{BaseNode: nodes.BaseNode{Pos: first.Pos}, Children: []nodes.Node{first, second}}
	}

	if err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	iter, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}

	body, _, err := p.ParseStatements("endfor")
	if err != nil {
		return nil, err
	}

	node := &nodes.For{BaseNode: nodes.BaseNode{Pos: posOf(token)}, Target: target, Iter: iter, Body: body}
	return node, p.expectBlockEnd()
}

// ParseSet parses "set a, b = expr"
func (p *Parser) ParseSet(token lexer.Token) (nodes.Node, error) {
	var targets []*nodes.Symbol
	for {
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		targets = append(targets, name)
		if !p.stream.SkipIf(lexer.TokenOperator, ",") {
			break
		}
	}

	if _, err := p.expectOp("="); err != nil {
		return nil, err
	}
	value, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}

	node := &nodes.Set{BaseNode: nodes.BaseNode{Pos: posOf(token)}, Targets: targets, Value: value}
	return node, p.expectBlockEnd()
}

// ParseMacro parses "macro name(a, b=default)" ... "endmacro"
func (p *Parser) ParseMacro(token lexer.Token) (nodes.Node, error) {
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}

	var args []nodes.Node
	if _, err := p.expectOp("("); err != nil {
		return nil, err
	}
	for !p.stream.Peek().Is(lexer.TokenOperator, ")") {
		if len(args) > 0 {
			if _, err := p.expectOp(","); err != nil {
				return nil, err
			}
		}
		arg, err := p.expectName()
		if err != nil {
			return nil, err
		}
		if p.stream.SkipIf(lexer.TokenOperator, "=") {
			def, err := p.ParseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, &nodes.Pair{BaseNode: nodes.BaseNode{Pos: arg.Pos}, Key: arg, Value: def})
		} else {
			args = append(args, arg)
		}
	}
	p.stream.Next()

	body, _, err := p.ParseStatements("endmacro")
	if err != nil {
		return nil, err
	}

	node := &nodes.Macro{BaseNode: nodes.BaseNode{Pos: posOf(token)}, Name: name, Args: args, Body: body}
	return node, p.expectBlockEnd()
}

// ParseImport parses "import expr as name"
func (p *Parser) ParseImport(token lexer.Token) (nodes.Node, error) {
	template, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("as"); err != nil {
		return nil, err
	}
	target, err := p.expectName()
	if err != nil {
		return nil, err
	}

	node := &nodes.Import{BaseNode: nodes.BaseNode{Pos: posOf(token)}, Template: template, Target: target}
	return node, p.expectBlockEnd()
}

// ParseFrom parses "from expr import a, b as c"
func (p *Parser) ParseFrom(token lexer.Token) (nodes.Node, error) {
	template, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("import"); err != nil {
		return nil, err
	}

	node := &nodes.FromImport{BaseNode: nodes.BaseNode{Pos: posOf(token)}, Template: template}
	for {
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		pair := &nodes.Pair{BaseNode: nodes.BaseNode{Pos: name.Pos}, Key: name}
		if p.stream.SkipIf(lexer.TokenName, "as") {
			alias, err := p.expectName()
			if err != nil {
				return nil, err
			}
			pair.Value = alias
		}
		node.Names = append(node.Names, pair)
		if !p.stream.SkipIf(lexer.TokenOperator, ",") {
			break
		}
	}

	return node, p.expectBlockEnd()
}

// ParseBlock parses "block name" ... "endblock [name]"
func (p *Parser) ParseBlock(token lexer.Token) (nodes.Node, error) {
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}

	body, _, err := p.ParseStatements("endblock")
	if err != nil {
		return nil, err
	}

	if closing := p.stream.Peek(); closing.Type == lexer.TokenName {
		if closing.Value != name.Value {
			return nil, p.Fail("mismatched endblock name "+closing.Value+", expected "+name.Value, closing.Line, closing.Column)
		}
		p.stream.Next()
	}

	node := &nodes.Block{BaseNode: nodes.BaseNode{Pos: posOf(token)}, Name: name, Body: body}
	return node, p.expectBlockEnd()
}

// ParseExtends parses "extends expr"
func (p *Parser) ParseExtends(token lexer.Token) (nodes.Node, error) {
	template, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	node := &nodes.Extends{BaseNode: nodes.BaseNode{Pos: posOf(token)}, Template: template}
	return node, p.expectBlockEnd()
}

// ParseInclude parses "include expr"
func (p *Parser) ParseInclude(token lexer.Token) (nodes.Node, error) {
	template, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	node := &nodes.Include{BaseNode: nodes.BaseNode{Pos: posOf(token)}, Template: template}
	return node, p.expectBlockEnd()
}
