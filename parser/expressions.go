package parser

import (
	"strconv"

	"github.com/deicod/nunjucks/lexer"
	"github.com/deicod/nunjucks/nodes"
)

var compareOperators = map[string]bool{
	"==": true,
	"!=": true,
	"<":  true,
	">":  true,
	"<=": true,
	">=": true,
}

// ParseExpression parses a full expression
func (p *Parser) ParseExpression() (nodes.Node, error) {
	return p.ParseOr()
}

// ParseOr parses "a or b"
func (p *Parser) ParseOr() (nodes.Node, error) {
	left, err := p.ParseAnd()
	if err != nil {
		return nil, err
	}
	for p.stream.Peek().Is(lexer.TokenName, "or") {
		token := p.stream.Next()
		right, err := p.ParseAnd()
		if err != nil {
			return nil, err
		}
		left = nodes.NewBinary("or", left, right, posOf(token))
	}
	return left, nil
}

// ParseAnd parses "a and b"
func (p *Parser) ParseAnd() (nodes.Node, error) {
	left, err := p.ParseNot()
	if err != nil {
		return nil, err
	}
	for p.stream.Peek().Is(lexer.TokenName, "and") {
		token := p.stream.Next()
		right, err := p.ParseNot()
		if err != nil {
			return nil, err
		}
		left = nodes.NewBinary("and", left, right, posOf(token))
	}
	return left, nil
}

// ParseNot parses "not a"
func (p *Parser) ParseNot() (nodes.Node, error) {
	token := p.stream.Peek()
	if token.Is(lexer.TokenName, "not") {
		p.stream.Next()
		target, err := p.ParseNot()
		if err != nil {
			return nil, err
		}
		return &nodes.Not{UnaryExpr: nodes.UnaryExpr{BaseNode: nodes.BaseNode{Pos: posOf(token)}, Target: target}}, nil
	}
	return p.ParseCompare()
}

// ParseCompare parses chained comparisons
func (p *Parser) ParseCompare() (nodes.Node, error) {
	expr, err := p.ParseMath1()
	if err != nil {
		return nil, err
	}

	var ops []*nodes.CompareOperand
	for {
		token := p.stream.Peek()
		if token.Type != lexer.TokenOperator || !compareOperators[token.Value] {
			break
		}
		p.stream.Next()
		right, err := p.ParseMath1()
		if err != nil {
			return nil, err
		}
		ops = append(ops, &nodes.CompareOperand{BaseNode: nodes.BaseNode{Pos: posOf(token)}, Op: token.Value, Expr: right})
	}

	if len(ops) == 0 {
		return expr, nil
	}
	return &nodes.Compare{BaseNode: nodes.BaseNode{Pos: expr.GetPosition()}, Expr: expr, Ops: ops}, nil
}

// ParseMath1 parses + and -
func (p *Parser) ParseMath1() (nodes.Node, error) {
	return p.parseBinary(p.ParseMath2, "+", "-")
}

// ParseMath2 parses *, /, // and %
func (p *Parser) ParseMath2() (nodes.Node, error) {
	return p.parseBinary(p.ParsePow, "*", "/", "//", "%")
}

// ParsePow parses **
func (p *Parser) ParsePow() (nodes.Node, error) {
	return p.parseBinary(p.parseUnary, "**")
}

func (p *Parser) parseBinary(next func() (nodes.Node, error), ops ...string) (nodes.Node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		token := p.stream.Peek()
		if token.Type != lexer.TokenOperator || !contains(ops, token.Value) {
			return left, nil
		}
		p.stream.Next()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = nodes.NewBinary(token.Value, left, right, posOf(token))
	}
}

// parseUnary parses unary minus/plus and applies trailing filters
func (p *Parser) parseUnary() (nodes.Node, error) {
	token := p.stream.Peek()
	if token.Type == lexer.TokenOperator && (token.Value == "-" || token.Value == "+") {
		p.stream.Next()
		target, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if lit, ok := target.(*nodes.Literal); ok {
			switch v := lit.Value.(type) {
			case int:
				if token.Value == "-" {
					v = -v
				}
				return nodes.NewLiteral(v, token.Line, token.Column), nil
			case float64:
				if token.Value == "-" {
					v = -v
				}
				return nodes.NewLiteral(v, token.Line, token.Column), nil
			}
		}
		unary := nodes.UnaryExpr{BaseNode: nodes.BaseNode{Pos: posOf(token)}, Target: target}
		if token.Value == "-" {
			return &nodes.Neg{UnaryExpr: unary}, nil
		}
		return &nodes.Pos{UnaryExpr: unary}, nil
	}

	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if node, err = p.parsePostfix(node); err != nil {
		return nil, err
	}
	return p.parseFilter(node)
}

func (p *Parser) parsePrimary() (nodes.Node, error) {
	token := p.stream.Peek()
	switch token.Type {
	case lexer.TokenName:
		p.stream.Next()
		switch token.Value {
		case "true", "True":
			return nodes.NewLiteral(true, token.Line, token.Column), nil
		case "false", "False":
			return nodes.NewLiteral(false, token.Line, token.Column), nil
		case "none", "None", "null":
			return nodes.NewLiteral(nil, token.Line, token.Column), nil
		}
		return nodes.NewSymbol(token.Value, token.Line, token.Column), nil

	case lexer.TokenString:
		p.stream.Next()
		return nodes.NewLiteral(token.Value, token.Line, token.Column), nil

	case lexer.TokenInteger:
		p.stream.Next()
		value, err := strconv.Atoi(token.Value)
		if err != nil {
			return nil, p.Fail("invalid integer "+token.Value, token.Line, token.Column)
		}
		return nodes.NewLiteral(value, token.Line, token.Column), nil

	case lexer.TokenFloat:
		p.stream.Next()
		value, err := strconv.ParseFloat(token.Value, 64)
		if err != nil {
			return nil, p.Fail("invalid float "+token.Value, token.Line, token.Column)
		}
		return nodes.NewLiteral(value, token.Line, token.Column), nil

	case lexer.TokenOperator:
		switch token.Value {
		case "(":
			p.stream.Next()
			children, err := p.parseList(")")
			if err != nil {
				return nil, err
			}
			return &nodes.Group{BaseNode: nodes.BaseNode{Pos: posOf(token)}, Children: children}, nil
		case "[":
			p.stream.Next()
			children, err := p.parseList("]")
			if err != nil {
				return nil, err
			}
			return &nodes.Array{BaseNode: nodes.BaseNode{Pos: posOf(token)}, Children: children}, nil
		case "{":
			p.stream.Next()
			return p.parseDict(token)
		}
	}

	return nil, p.failToken(token, "expression")
}

// parseList parses comma separated expressions up to the closing operator
func (p *Parser) parseList(closing string) ([]nodes.Node, error) {
	var items []nodes.Node
	for !p.stream.SkipIf(lexer.TokenOperator, closing) {
		if len(items) > 0 {
			if _, err := p.expectOp(","); err != nil {
				return nil, err
			}
			if p.stream.SkipIf(lexer.TokenOperator, closing) {
				break
			}
		}
		item, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (p *Parser) parseDict(token lexer.Token) (nodes.Node, error) {
	dict := &nodes.Dict{BaseNode: nodes.BaseNode{Pos: posOf(token)}}
	for !p.stream.SkipIf(lexer.TokenOperator, "}") {
		if len(dict.Children) > 0 {
			if _, err := p.expectOp(","); err != nil {
				return nil, err
			}
			if p.stream.SkipIf(lexer.TokenOperator, "}") {
				break
			}
		}
		key, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectOp(":"); err != nil {
			return nil, err
		}
		value, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		dict.Children = append(dict.Children, &nodes.Pair{BaseNode: nodes.BaseNode{Pos: key.GetPosition()}, Key: key, Value: value})
	}
	return dict, nil
}

// parsePostfix parses attribute access, subscripts and calls
func (p *Parser) parsePostfix(node nodes.Node) (nodes.Node, error) {
	for {
		token := p.stream.Peek()
		if token.Type != lexer.TokenOperator {
			return node, nil
		}

		switch token.Value {
		case ".":
			p.stream.Next()
			attr := p.stream.Next()
			if attr.Type != lexer.TokenName && attr.Type != lexer.TokenInteger {
				return nil, p.failToken(attr, "attribute name")
			}
			var key interface{} = attr.Value
			if attr.Type == lexer.TokenInteger {
				key, _ = strconv.Atoi(attr.Value)
			}
			node = &nodes.LookupVal{
				BaseNode: nodes.BaseNode{Pos: posOf(token)},
				Target:   node,
				Val:      nodes.NewLiteral(key, attr.Line, attr.Column),
			}
		case "[":
			p.stream.Next()
			index, err := p.ParseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectOp("]"); err != nil {
				return nil, err
			}
			node = &nodes.LookupVal{BaseNode: nodes.BaseNode{Pos: posOf(token)}, Target: node, Val: index}
		case "(":
			p.stream.Next()
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			node = &nodes.FunCall{BaseNode: nodes.BaseNode{Pos: posOf(token)}, Name: node, Args: args}
		default:
			return node, nil
		}
	}
}

// parseCallArgs parses call arguments; name=value becomes a Pair
func (p *Parser) parseCallArgs() ([]nodes.Node, error) {
	var args []nodes.Node
	for !p.stream.SkipIf(lexer.TokenOperator, ")") {
		if len(args) > 0 {
			if _, err := p.expectOp(","); err != nil {
				return nil, err
			}
		}

		token := p.stream.Peek()
		if token.Type == lexer.TokenName && p.stream.PeekN(1).Is(lexer.TokenOperator, "=") {
			p.stream.Next()
			p.stream.Next()
			value, err := p.ParseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, &nodes.Pair{
				BaseNode: nodes.BaseNode{Pos: posOf(token)},
				Key:      nodes.NewSymbol(token.Value, token.Line, token.Column),
				Value:    value,
			})
			continue
		}

		arg, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

// parseFilter parses "value | name" and "value | name(args)"
func (p *Parser) parseFilter(node nodes.Node) (nodes.Node, error) {
	for p.stream.Peek().Is(lexer.TokenOperator, "|") {
		token := p.stream.Next()
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}

		args := []nodes.Node{node}
		if p.stream.SkipIf(lexer.TokenOperator, "(") {
			rest, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			args = append(args, rest...)
		}
		node = &nodes.Filter{BaseNode: nodes.BaseNode{Pos: posOf(token)}, Name: name, Args: args}
	}
	return node, nil
}
