package parser

import (
	"github.com/deicod/nunjucks/lexer"
	"github.com/deicod/nunjucks/nodes"
)

var statementKeywords = map[string]bool{
	"if":      true,
	"for":     true,
	"set":     true,
	"macro":   true,
	"import":  true,
	"from":    true,
	"block":   true,
	"extends": true,
	"include": true,
}

// ParseStatement parses a single statement. The block start token has
// already been consumed.
func (p *Parser) ParseStatement() (nodes.Node, error) {
	token := p.stream.Peek()
	if token.Type != lexer.TokenName {
		return nil, p.Fail("tag name expected", token.Line, token.Column)
	}

	if !statementKeywords[token.Value] {
		return nil, p.FailUnknownTag(token.Value, token)
	}

	p.tagStack = append(p.tagStack, token.Value)
	defer func() {
		p.tagStack = p.tagStack[:len(p.tagStack)-1]
	}()

	p.stream.Next()
	switch token.Value {
	case "if":
		return p.ParseIf(token)
	case "for":
		return p.ParseFor(token)
	case "set":
		return p.ParseSet(token)
	case "macro":
		return p.ParseMacro(token)
	case "import":
		return p.ParseImport(token)
	case "from":
		return p.ParseFrom(token)
	case "block":
		return p.ParseBlock(token)
	case "extends":
		return p.ParseExtends(token)
	default:
		return p.ParseInclude(token)
	}
}

// ParseStatements expects the end of the current tag, then parses a body
// until one of endTokens. The terminating tag name is left in the stream
// and returned.
func (p *Parser) ParseStatements(endTokens ...string) (*nodes.NodeList, lexer.Token, error) {
	start := p.stream.Peek()
	if err := p.expectBlockEnd(); err != nil {
		return nil, start, err
	}

	body, err := p.Subparse(endTokens)
	if err != nil {
		return nil, start, err
	}

	end := p.stream.Next()
	return nodes.NewNodeList(body, start.Line, start.Column), end, nil
}

// Subparse parses until a block tag named in endTokens is reached, or to
// EOF when endTokens is nil. Adjacent text and variable output is merged
// into a single Output node.
func (p *Parser) Subparse(endTokens []string) ([]nodes.Node, error) {
	var body []nodes.Node
	var data []nodes.Node

	if endTokens != nil {
		p.endTokenStack = append(p.endTokenStack, endTokens)
		defer func() {
			p.endTokenStack = p.endTokenStack[:len(p.endTokenStack)-1]
		}()
	}

	flushData := func() {
		if len(data) > 0 {
			pos := data[0].GetPosition()
			body = append(body, nodes.NewOutput(data, pos.Line, pos.Column))
			data = nil
		}
	}

	for {
		token := p.stream.Peek()
		switch token.Type {
		case lexer.TokenEOF:
			if endTokens != nil {
				return nil, p.FailEOF(token)
			}
			flushData()
			return body, nil

		case lexer.TokenText:
			p.stream.Next()
			data = append(data, nodes.NewTemplateData(token.Value, token.Line, token.Column))

		case lexer.TokenVariableStart:
			p.stream.Next()
			expr, err := p.ParseExpression()
			if err != nil {
				return nil, err
			}
			if end := p.stream.Next(); end.Type != lexer.TokenVariableEnd {
				return nil, p.failToken(end, "end of print statement")
			}
			data = append(data, expr)

		case lexer.TokenBlockStart:
			flushData()
			p.stream.Next()
			tag := p.stream.Peek()
			if tag.Type == lexer.TokenName && contains(endTokens, tag.Value) {
				return body, nil
			}
			stmt, err := p.ParseStatement()
			if err != nil {
				return nil, err
			}
			body = append(body, stmt)

		default:
			return nil, p.failToken(token, "template data or tag")
		}
	}
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
