package lexer

import (
	"fmt"
)

// TokenType represents the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenText
	TokenVariableStart
	TokenVariableEnd
	TokenBlockStart
	TokenBlockEnd
	TokenName
	TokenString
	TokenInteger
	TokenFloat
	TokenOperator
)

var tokenNames = map[TokenType]string{
	TokenEOF:           "EOF",
	TokenText:          "TEXT",
	TokenVariableStart: "VAR_START",
	TokenVariableEnd:   "VAR_END",
	TokenBlockStart:    "BLOCK_START",
	TokenBlockEnd:      "BLOCK_END",
	TokenName:          "NAME",
	TokenString:        "STRING",
	TokenInteger:       "INTEGER",
	TokenFloat:         "FLOAT",
	TokenOperator:      "OPERATOR",
}

func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", tt)
}

// Token represents a single token in the template
type Token struct {
	Type     TokenType
	Value    string
	Line     int
	Column   int
	Position int
}

func (t Token) String() string {
	return fmt.Sprintf("%s('%s') at %d:%d", t.Type, t.Value, t.Line, t.Column)
}

// Is reports whether the token has the given type and value
func (t Token) Is(tt TokenType, value string) bool {
	return t.Type == tt && t.Value == value
}

// TokenStream represents a stream of tokens
type TokenStream struct {
	tokens []Token
	pos    int
}

func NewTokenStream(tokens []Token) *TokenStream {
	return &TokenStream{
		tokens: tokens,
		pos:    0,
	}
}

func (ts *TokenStream) Next() Token {
	if ts.pos >= len(ts.tokens) {
		return ts.eof()
	}
	token := ts.tokens[ts.pos]
	ts.pos++
	return token
}

func (ts *TokenStream) Peek() Token {
	if ts.pos >= len(ts.tokens) {
		return ts.eof()
	}
	return ts.tokens[ts.pos]
}

func (ts *TokenStream) PeekN(n int) Token {
	if ts.pos+n >= len(ts.tokens) {
		return ts.eof()
	}
	return ts.tokens[ts.pos+n]
}

// Expect consumes and returns a token, failing if it doesn't match the expected type
func (ts *TokenStream) Expect(expected TokenType) (Token, error) {
	token := ts.Next()
	if token.Type != expected {
		return token, fmt.Errorf("expected %s, got %s at %d:%d",
			expected, token.Type, token.Line, token.Column)
	}
	return token, nil
}

// ExpectValue consumes a token of the given type and value
func (ts *TokenStream) ExpectValue(expected TokenType, value string) (Token, error) {
	token := ts.Peek()
	if token.Is(expected, value) {
		return ts.Next(), nil
	}
	return token, fmt.Errorf("expected %s %q, got %s %q at %d:%d",
		expected, value, token.Type, token.Value, token.Line, token.Column)
}

// SkipIf consumes the next token when it matches and reports whether it did
func (ts *TokenStream) SkipIf(tt TokenType, value string) bool {
	if ts.Peek().Is(tt, value) {
		ts.pos++
		return true
	}
	return false
}

func (ts *TokenStream) Eof() bool {
	return ts.Peek().Type == TokenEOF
}

// Tokens returns a copy of the remaining tokens
func (ts *TokenStream) Tokens() []Token {
	if ts.pos >= len(ts.tokens) {
		return nil
	}
	return append([]Token(nil), ts.tokens[ts.pos:]...)
}

// eof returns an EOF token positioned after the last real token
func (ts *TokenStream) eof() Token {
	if len(ts.tokens) == 0 {
		return Token{Type: TokenEOF, Line: 1, Column: 1}
	}
	last := ts.tokens[len(ts.tokens)-1]
	return Token{Type: TokenEOF, Line: last.Line, Column: last.Column, Position: last.Position}
}
