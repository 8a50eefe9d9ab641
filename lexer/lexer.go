package lexer

import (
	"fmt"
	"regexp"
	"strings"
)

// LexerError represents a lexing error
type LexerError struct {
	Message string
	Line    int
	Column  int
	Pos     int
}

func (e LexerError) Error() string {
	return fmt.Sprintf("%s at line %d, column %d", e.Message, e.Line, e.Column)
}

// LexerConfig holds configuration for the lexer
type LexerConfig struct {
	Delimiters Delimiters
	// TrimBlocks removes the first newline after a block tag
	TrimBlocks bool
	// LstripBlocks strips spaces and tabs from the start of a line up to a block tag
	LstripBlocks bool
}

func DefaultLexerConfig() LexerConfig {
	return LexerConfig{
		Delimiters:   DefaultDelimiters(),
		TrimBlocks:   false,
		LstripBlocks: false,
	}
}

// Lexer splits template source into tokens
type Lexer struct {
	config   LexerConfig
	rawClose *regexp.Regexp
}

// NewLexer creates a new lexer with the given configuration
func NewLexer(config LexerConfig) *Lexer {
	d := config.Delimiters
	return &Lexer{
		config: config,
		rawClose: regexp.MustCompile(regexp.QuoteMeta(d.BlockStart) +
			`(-?)\s*endraw\s*(-?)` + regexp.QuoteMeta(d.BlockEnd)),
	}
}

// Tokenize lexes the full source. Comments are dropped and raw blocks are
// returned as plain text tokens.
func (l *Lexer) Tokenize(source string) (*TokenStream, error) {
	s := &scanner{
		lexer: l,
		src:   strings.ReplaceAll(source, "\r\n", "\n"),
		line:  1,
		col:   1,
	}
	if err := s.run(); err != nil {
		return nil, err
	}
	return NewTokenStream(s.tokens), nil
}

type tagKind int

const (
	tagNone tagKind = iota
	tagVariable
	tagBlock
	tagComment
)

type scanner struct {
	lexer  *Lexer
	src    string
	pos    int
	line   int
	col    int
	tokens []Token

	// whitespace control carried over from the previous tag
	lstripNext  bool
	trimNewline bool
}

func (s *scanner) run() error {
	d := s.lexer.config.Delimiters
	for s.pos < len(s.src) {
		rest := s.src[s.pos:]
		idx, kind := s.nextTag(rest)
		if kind == tagNone {
			s.emitText(rest)
			s.advance(len(rest))
			break
		}

		text := rest[:idx]
		opener := d.VariableStart
		switch kind {
		case tagBlock:
			opener = d.BlockStart
		case tagComment:
			opener = d.CommentStart
		}
		after := rest[idx+len(opener):]

		if strings.HasPrefix(after, "-") {
			text = strings.TrimRight(text, " \t\n")
		} else if kind == tagBlock && s.lexer.config.LstripBlocks {
			text = lstripLine(text, s.pos == 0)
		}
		s.emitText(text)
		s.advance(idx)

		var err error
		switch kind {
		case tagComment:
			err = s.lexComment()
		case tagVariable:
			err = s.lexTag(TokenVariableStart, TokenVariableEnd, d.VariableStart, d.VariableEnd)
		case tagBlock:
			if m := rawStartRegex.FindStringSubmatchIndex(after); m != nil && strings.HasPrefix(after[m[1]:], d.BlockEnd) {
				err = s.lexRaw(len(opener)+m[1]+len(d.BlockEnd), after[m[4]:m[5]] == "-")
			} else {
				err = s.lexTag(TokenBlockStart, TokenBlockEnd, d.BlockStart, d.BlockEnd)
				if err == nil && s.lexer.config.TrimBlocks {
					s.trimNewline = true
				}
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// nextTag finds the earliest tag opener in rest
func (s *scanner) nextTag(rest string) (int, tagKind) {
	d := s.lexer.config.Delimiters
	best, kind := -1, tagNone
	for _, c := range []struct {
		delim string
		kind  tagKind
	}{
		{d.VariableStart, tagVariable},
		{d.BlockStart, tagBlock},
		{d.CommentStart, tagComment},
	} {
		if c.delim == "" {
			continue
		}
		if i := strings.Index(rest, c.delim); i >= 0 && (best < 0 || i < best) {
			best, kind = i, c.kind
		}
	}
	return best, kind
}

func (s *scanner) emitText(text string) {
	if s.lstripNext {
		text = strings.TrimLeft(text, " \t\n")
		s.lstripNext = false
	}
	if s.trimNewline {
		text = strings.TrimPrefix(text, "\n")
		s.trimNewline = false
	}
	if text == "" {
		return
	}
	s.tokens = append(s.tokens, Token{Type: TokenText, Value: text, Line: s.line, Column: s.col, Position: s.pos})
}

func (s *scanner) emit(tt TokenType, value string) {
	s.tokens = append(s.tokens, Token{Type: tt, Value: value, Line: s.line, Column: s.col, Position: s.pos})
}

func (s *scanner) advance(n int) {
	for _, r := range s.src[s.pos : s.pos+n] {
		if r == '\n' {
			s.line++
			s.col = 1
		} else {
			s.col++
		}
	}
	s.pos += n
}

func (s *scanner) fail(msg string) error {
	return LexerError{Message: msg, Line: s.line, Column: s.col, Pos: s.pos}
}

func (s *scanner) lexComment() error {
	d := s.lexer.config.Delimiters
	rest := s.src[s.pos+len(d.CommentStart):]
	end := strings.Index(rest, d.CommentEnd)
	if end < 0 {
		return s.fail("missing end of comment tag")
	}
	if strings.HasSuffix(rest[:end], "-") {
		s.lstripNext = true
	}
	s.advance(len(d.CommentStart) + end + len(d.CommentEnd))
	return nil
}

// lexRaw copies a raw block through as text. open is the byte length of
// the opening tag.
func (s *scanner) lexRaw(open int, lstrip bool) error {
	s.advance(open)
	rest := s.src[s.pos:]
	loc := s.lexer.rawClose.FindStringSubmatchIndex(rest)
	if loc == nil {
		return s.fail("missing endraw tag")
	}

	body := rest[:loc[0]]
	if lstrip {
		body = strings.TrimLeft(body, " \t\n")
	}
	if loc[3] > loc[2] {
		body = strings.TrimRight(body, " \t\n")
	}
	if body != "" {
		s.emit(TokenText, body)
	}
	s.advance(loc[1])
	s.lstripNext = loc[5] > loc[4]
	return nil
}

func (s *scanner) lexTag(startType, endType TokenType, open, close string) error {
	s.emit(startType, open)
	s.advance(len(open))
	if strings.HasPrefix(s.src[s.pos:], "-") {
		s.advance(1)
	}

	var balance []byte
	for {
		s.skipSpace()
		if s.pos >= len(s.src) {
			return s.fail(fmt.Sprintf("unexpected end of template, expected %q", close))
		}
		rest := s.src[s.pos:]

		if len(balance) == 0 {
			if strings.HasPrefix(rest, "-"+close) {
				s.advance(1)
				s.emit(endType, close)
				s.advance(len(close))
				s.lstripNext = true
				return nil
			}
			if strings.HasPrefix(rest, close) {
				s.emit(endType, close)
				s.advance(len(close))
				return nil
			}
		}

		if m := StringRegex.FindString(rest); m != "" {
			value, err := unescapeString(m[1 : len(m)-1])
			if err != nil {
				return s.fail(err.Error())
			}
			s.emit(TokenString, value)
			s.advance(len(m))
			continue
		}
		if m := FloatRegex.FindString(rest); m != "" {
			s.emit(TokenFloat, m)
			s.advance(len(m))
			continue
		}
		if m := IntegerRegex.FindString(rest); m != "" {
			s.emit(TokenInteger, m)
			s.advance(len(m))
			continue
		}
		if m := NameRegex.FindString(rest); m != "" {
			s.emit(TokenName, m)
			s.advance(len(m))
			continue
		}
		if op := matchOperator(rest); op != "" {
			switch op {
			case "(", "[", "{":
				balance = append(balance, op[0])
			case ")", "]", "}":
				if len(balance) == 0 || balance[len(balance)-1] != openerOf(op[0]) {
					return s.fail(fmt.Sprintf("unexpected %q", op))
				}
				balance = balance[:len(balance)-1]
			}
			s.emit(TokenOperator, op)
			s.advance(len(op))
			continue
		}
		return s.fail(fmt.Sprintf("unexpected char %q", rest[0]))
	}
}

func (s *scanner) skipSpace() {
	n := 0
	for s.pos+n < len(s.src) {
		switch s.src[s.pos+n] {
		case ' ', '\t', '\n', '\r':
			n++
			continue
		}
		break
	}
	s.advance(n)
}

func matchOperator(rest string) string {
	for _, op := range OperatorPatterns {
		if strings.HasPrefix(rest, op) {
			return op
		}
	}
	return ""
}

func openerOf(c byte) byte {
	switch c {
	case ')':
		return '('
	case ']':
		return '['
	}
	return '{'
}

// lstripLine removes trailing spaces and tabs when they are the only
// content between the last newline and the tag.
func lstripLine(text string, atStart bool) string {
	i := strings.LastIndexByte(text, '\n')
	if i < 0 && !atStart {
		return text
	}
	if strings.Trim(text[i+1:], " \t") != "" {
		return text
	}
	return text[:i+1]
}

func unescapeString(value string) (string, error) {
	if !strings.Contains(value, `\`) {
		return value, nil
	}
	var buf strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c != '\\' {
			buf.WriteByte(c)
			continue
		}
		i++
		if i >= len(value) {
			return "", fmt.Errorf("invalid escape at end of string")
		}
		switch value[i] {
		case 'n':
			buf.WriteByte('\n')
		case 't':
			buf.WriteByte('\t')
		case 'r':
			buf.WriteByte('\r')
		case '\\', '\'', '"':
			buf.WriteByte(value[i])
		default:
			buf.WriteByte('\\')
			buf.WriteByte(value[i])
		}
	}
	return buf.String(), nil
}
