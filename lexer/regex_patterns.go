package lexer

import (
	"regexp"
	"sort"
)

// Precompiled regular expressions for tokenizing. All are anchored to the
// start of the remaining input.
var (
	// String literals (single and double quoted, with escape sequences)
	StringRegex = regexp.MustCompile(`^('([^'\\]*(?:\\.[^'\\]*)*)'|"([^"\\]*(?:\\.[^"\\]*)*)")`)

	// Numbers: an optional fraction makes a float
	FloatRegex   = regexp.MustCompile(`^\d+\.\d+`)
	IntegerRegex = regexp.MustCompile(`^\d+`)

	// Identifier/names
	NameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*`)

	// Opening of a raw block, matched right after the block start delimiter
	rawStartRegex = regexp.MustCompile(`^(-?)\s*raw\s*(-?)`)

	// Operators sorted by length so that longer operators match first
	OperatorPatterns = func() []string {
		ops := []string{
			"//", "**", "==", "!=", ">=", "<=", "=", "+", "-", "*", "/", "%", "~",
			"[", "]", "(", ")", ">", "<", ".", ":", "|", ",", "{", "}",
		}
		sort.SliceStable(ops, func(i, j int) bool { return len(ops[i]) > len(ops[j]) })
		return ops
	}()
)

// Delimiters holds the tag delimiters of an environment
type Delimiters struct {
	BlockStart    string
	BlockEnd      string
	VariableStart string
	VariableEnd   string
	CommentStart  string
	CommentEnd    string
}

func DefaultDelimiters() Delimiters {
	return Delimiters{
		BlockStart:    "{%",
		BlockEnd:      "%}",
		VariableStart: "{{",
		VariableEnd:   "}}",
		CommentStart:  "{#",
		CommentEnd:    "#}",
	}
}
