package parser

import (
	"fmt"
	"strings"

	"github.com/deicod/nunjucks/lexer"
	"github.com/deicod/nunjucks/nodes"
)

// TemplateSyntaxError represents a syntax error in a template
type TemplateSyntaxError struct {
	Message string
	Line    int
	Column  int
	Name    string
}

func (e *TemplateSyntaxError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s at line %d, column %d in %s", e.Message, e.Line, e.Column, e.Name)
	}
	return fmt.Sprintf("%s at line %d, column %d", e.Message, e.Line, e.Column)
}

// Environment carries the lexer settings a parser is built with
type Environment struct {
	TrimBlocks   bool
	LstripBlocks bool
	Delimiters   *lexer.Delimiters
}

// Parser turns a token stream into a nodes.Root
type Parser struct {
	stream        *lexer.TokenStream
	name          string
	tagStack      []string
	endTokenStack [][]string
}

// NewParser creates a new parser instance
func NewParser(env *Environment, source, name string) (*Parser, error) {
	lexerConfig := lexer.DefaultLexerConfig()
	if env != nil {
		lexerConfig.TrimBlocks = env.TrimBlocks
		lexerConfig.LstripBlocks = env.LstripBlocks
		if env.Delimiters != nil {
			lexerConfig.Delimiters = *env.Delimiters
		}
	}

	stream, err := lexer.NewLexer(lexerConfig).Tokenize(source)
	if err != nil {
		if lexErr, ok := err.(lexer.LexerError); ok {
			return nil, &TemplateSyntaxError{Message: lexErr.Message, Line: lexErr.Line, Column: lexErr.Column, Name: name}
		}
		return nil, err
	}

	return &Parser{
		stream: stream,
		name:   name,
	}, nil
}

// Parse parses the whole template
func (p *Parser) Parse() (*nodes.Root, error) {
	body, err := p.Subparse(nil)
	if err != nil {
		return nil, err
	}
	return nodes.NewRoot(body), nil
}

// Fail creates a syntax error with position information
func (p *Parser) Fail(msg string, lineno, column int) error {
	if lineno == 0 {
		token := p.stream.Peek()
		lineno, column = token.Line, token.Column
	}
	return &TemplateSyntaxError{
		Message: msg,
		Line:    lineno,
		Column:  column,
		Name:    p.name,
	}
}

// failToken reports an unexpected token
func (p *Parser) failToken(token lexer.Token, expected string) error {
	got := token.Value
	if token.Type == lexer.TokenEOF {
		got = "end of template"
	}
	return p.Fail(fmt.Sprintf("expected %s, got %q", expected, got), token.Line, token.Column)
}

// FailUnknownTag is called when the parser encounters an unknown tag
func (p *Parser) FailUnknownTag(name string, token lexer.Token) error {
	return p.failUntilEOF(name, p.endTokenStack, token)
}

// FailEOF is called when EOF is encountered unexpectedly
func (p *Parser) FailEOF(token lexer.Token) error {
	return p.failUntilEOF("", p.endTokenStack, token)
}

func (p *Parser) failUntilEOF(name string, endTokenStack [][]string, token lexer.Token) error {
	var message strings.Builder
	if name == "" {
		message.WriteString("Unexpected end of template.")
	} else {
		message.WriteString(fmt.Sprintf("Encountered unknown tag %q.", name))
	}

	if len(endTokenStack) > 0 {
		looking := endTokenStack[len(endTokenStack)-1]
		message.WriteString(fmt.Sprintf(" Was looking for the following tags: %s.", strings.Join(looking, " or ")))
	}

	if len(p.tagStack) > 0 {
		message.WriteString(fmt.Sprintf(" The innermost block that needs to be closed is %q.", p.tagStack[len(p.tagStack)-1]))
	}

	return p.Fail(message.String(), token.Line, token.Column)
}

// expectOp consumes the operator op
func (p *Parser) expectOp(op string) (lexer.Token, error) {
	token := p.stream.Peek()
	if !token.Is(lexer.TokenOperator, op) {
		return token, p.failToken(token, fmt.Sprintf("%q", op))
	}
	return p.stream.Next(), nil
}

// expectName consumes a name token
func (p *Parser) expectName() (*nodes.Symbol, error) {
	token := p.stream.Peek()
	if token.Type != lexer.TokenName {
		return nil, p.failToken(token, "name")
	}
	p.stream.Next()
	return nodes.NewSymbol(token.Value, token.Line, token.Column), nil
}

// expectKeyword consumes the name token with the given value
func (p *Parser) expectKeyword(word string) error {
	token := p.stream.Peek()
	if !token.Is(lexer.TokenName, word) {
		return p.failToken(token, fmt.Sprintf("%q", word))
	}
	p.stream.Next()
	return nil
}

// expectBlockEnd consumes the end of the current block tag
func (p *Parser) expectBlockEnd() error {
	token := p.stream.Peek()
	if token.Type != lexer.TokenBlockEnd {
		return p.failToken(token, "end of block tag")
	}
	p.stream.Next()
	return nil
}

func posOf(token lexer.Token) nodes.Position {
	return nodes.NewPosition(token.Line, token.Column)
}
