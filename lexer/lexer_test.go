package lexer

import (
	"errors"
	"testing"
)

func tokenize(t *testing.T, config LexerConfig, source string) []Token {
	t.Helper()
	stream, err := NewLexer(config).Tokenize(source)
	if err != nil {
		t.Fatalf("Tokenize(%q) failed: %v", source, err)
	}
	return stream.Tokens()
}

func TestBasicLexing(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     []TokenType
	}{
		{
			name:     "simple text",
			template: "Hello, World!",
			want:     []TokenType{TokenText},
		},
		{
			name:     "simple variable",
			template: "Hello, {{ name }}!",
			want:     []TokenType{TokenText, TokenVariableStart, TokenName, TokenVariableEnd, TokenText},
		},
		{
			name:     "simple block",
			template: "{% if condition %}content{% endif %}",
			want: []TokenType{
				TokenBlockStart, TokenName, TokenName, TokenBlockEnd,
				TokenText,
				TokenBlockStart, TokenName, TokenBlockEnd,
			},
		},
		{
			name:     "comment is dropped",
			template: "Hello{# this is a comment #} World!",
			want:     []TokenType{TokenText, TokenText},
		},
		{
			name:     "literals",
			template: `{{ "a" 'b' 1 2.5 }}`,
			want: []TokenType{
				TokenVariableStart, TokenString, TokenString, TokenInteger, TokenFloat, TokenVariableEnd,
			},
		},
		{
			name:     "nested dict closes before delimiter",
			template: `{{ {"a": {"b": 1}} }}`,
			want: []TokenType{
				TokenVariableStart,
				TokenOperator, TokenString, TokenOperator,
				TokenOperator, TokenString, TokenOperator, TokenInteger, TokenOperator,
				TokenOperator,
				TokenVariableEnd,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := tokenize(t, DefaultLexerConfig(), tt.template)
			if len(tokens) != len(tt.want) {
				t.Fatalf("got %d tokens %v, want %d", len(tokens), tokens, len(tt.want))
			}
			for i, tok := range tokens {
				if tok.Type != tt.want[i] {
					t.Errorf("token %d: got %s, want %s", i, tok.Type, tt.want[i])
				}
			}
		})
	}
}

func TestOperators(t *testing.T) {
	tokens := tokenize(t, DefaultLexerConfig(), "{{ a // b ** c == d != e >= f <= g | h }}")
	var ops []string
	for _, tok := range tokens {
		if tok.Type == TokenOperator {
			ops = append(ops, tok.Value)
		}
	}
	want := []string{"//", "**", "==", "!=", ">=", "<=", "|"}
	if len(ops) != len(want) {
		t.Fatalf("got operators %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("operator %d: got %q, want %q", i, ops[i], want[i])
		}
	}
}

func TestStringEscapes(t *testing.T) {
	tokens := tokenize(t, DefaultLexerConfig(), `{{ "a\"b\n\tc" }}`)
	if tokens[1].Type != TokenString {
		t.Fatalf("expected string token, got %s", tokens[1].Type)
	}
	if tokens[1].Value != "a\"b\n\tc" {
		t.Errorf("unexpected string value %q", tokens[1].Value)
	}
}

func TestWhitespaceControl(t *testing.T) {
	tests := []struct {
		name     string
		config   LexerConfig
		template string
		texts    []string
	}{
		{
			name:     "strip both sides",
			config:   DefaultLexerConfig(),
			template: "a  \n {{- x -}} \n  b",
			texts:    []string{"a", "b"},
		},
		{
			name:     "block strip",
			config:   DefaultLexerConfig(),
			template: "x\n  {%- if y %}\n",
			texts:    []string{"x", "\n"},
		},
		{
			name:     "trim blocks",
			config:   LexerConfig{Delimiters: DefaultDelimiters(), TrimBlocks: true},
			template: "{% if y %}\nhello",
			texts:    []string{"hello"},
		},
		{
			name:     "lstrip blocks",
			config:   LexerConfig{Delimiters: DefaultDelimiters(), LstripBlocks: true},
			template: "line\n    {% if y %}",
			texts:    []string{"line\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var texts []string
			for _, tok := range tokenize(t, tt.config, tt.template) {
				if tok.Type == TokenText {
					texts = append(texts, tok.Value)
				}
			}
			if len(texts) != len(tt.texts) {
				t.Fatalf("got texts %q, want %q", texts, tt.texts)
			}
			for i := range texts {
				if texts[i] != tt.texts[i] {
					t.Errorf("text %d: got %q, want %q", i, texts[i], tt.texts[i])
				}
			}
		})
	}
}

func TestRawBlock(t *testing.T) {
	tokens := tokenize(t, DefaultLexerConfig(), "{% raw %}{{ not a var }}{% endraw %}!")
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %v", tokens)
	}
	if tokens[0].Type != TokenText || tokens[0].Value != "{{ not a var }}" {
		t.Errorf("unexpected raw token %v", tokens[0])
	}
	if tokens[1].Value != "!" {
		t.Errorf("unexpected trailing token %v", tokens[1])
	}
}

func TestPositions(t *testing.T) {
	tokens := tokenize(t, DefaultLexerConfig(), "line one\n  {{ name }}")
	name := tokens[2]
	if name.Type != TokenName || name.Value != "name" {
		t.Fatalf("unexpected token %v", name)
	}
	if name.Line != 2 || name.Column != 6 {
		t.Errorf("expected 2:6, got %d:%d", name.Line, name.Column)
	}
}

func TestCustomDelimiters(t *testing.T) {
	config := DefaultLexerConfig()
	config.Delimiters.VariableStart = "<<"
	config.Delimiters.VariableEnd = ">>"

	tokens := tokenize(t, config, "hi << name >>")
	if len(tokens) != 4 || tokens[2].Value != "name" {
		t.Fatalf("unexpected tokens %v", tokens)
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []string{
		"{{ name ",
		"{# never closed",
		"{% raw %}no end",
		"{{ a) }}",
		"{{ a ? b }}",
	}

	for _, source := range tests {
		_, err := NewLexer(DefaultLexerConfig()).Tokenize(source)
		if err == nil {
			t.Errorf("expected error for %q", source)
			continue
		}
		var lexErr LexerError
		if !errors.As(err, &lexErr) {
			t.Errorf("expected LexerError for %q, got %T", source, err)
		}
	}
}

func TestTokenStream(t *testing.T) {
	stream := NewTokenStream([]Token{
		{Type: TokenName, Value: "a", Line: 1, Column: 1},
		{Type: TokenOperator, Value: "=", Line: 1, Column: 3},
	})

	if stream.PeekN(1).Value != "=" {
		t.Errorf("PeekN(1) = %v", stream.PeekN(1))
	}
	if _, err := stream.Expect(TokenName); err != nil {
		t.Fatalf("Expect(TokenName) failed: %v", err)
	}
	if !stream.SkipIf(TokenOperator, "=") {
		t.Error("SkipIf should consume '='")
	}
	if !stream.Eof() {
		t.Error("expected EOF")
	}
	if _, err := stream.ExpectValue(TokenName, "b"); err == nil {
		t.Error("expected error at EOF")
	}
}
