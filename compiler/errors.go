package compiler

import (
	"errors"
	"fmt"

	"github.com/deicod/nunjucks/nodes"
)

// ErrorType represents different types of compile and render errors
type ErrorType string

const (
	ErrorTypeCompile  ErrorType = "compile_error"
	ErrorTypeTemplate ErrorType = "template_error"
	ErrorTypeImport   ErrorType = "import_error"
	ErrorTypeMacro    ErrorType = "macro_error"
	ErrorTypeFilter   ErrorType = "filter_error"
)

// Error is a compile or render error with position information
type Error struct {
	Type     ErrorType
	Message  string
	Position nodes.Position
	Kind     string
	Cause    error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Position.Line > 0 {
		if e.Position.Column > 0 {
			return fmt.Sprintf("%s at line %d, column %d: %s", e.Type, e.Position.Line, e.Position.Column, e.Message)
		}
		return fmt.Sprintf("%s at line %d: %s", e.Type, e.Position.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new error for a node
func NewError(errorType ErrorType, message string, node nodes.Node) *Error {
	err := &Error{Type: errorType, Message: message}
	if node != nil {
		err.Position = node.GetPosition()
		err.Kind = node.Type()
	}
	return err
}

// NewErrorWithCause creates a new error with an underlying cause
func NewErrorWithCause(errorType ErrorType, message string, node nodes.Node, cause error) *Error {
	err := NewError(errorType, message, node)
	err.Cause = cause
	return err
}

// WrapError attaches the node's position to err. Errors that already carry
// a position keep it, so the innermost location wins.
func WrapError(err error, node nodes.Node) error {
	if err == nil {
		return nil
	}

	var located interface{ position() *Error }
	if errors.As(err, &located) {
		base := located.position()
		if base.Position.Line == 0 && node != nil {
			base.Position = node.GetPosition()
			base.Kind = node.Type()
		}
		return err
	}

	return NewErrorWithCause(ErrorTypeTemplate, err.Error(), node, err)
}

func (e *Error) position() *Error { return e }

// compileError reports a fatal compile error
func compileError(node nodes.Node, format string, args ...interface{}) *Error {
	return NewError(ErrorTypeCompile, fmt.Sprintf(format, args...), node)
}

// MacroError represents a macro call error
type MacroError struct {
	error
	MacroName string
}

// NewMacroError creates a new macro error
func NewMacroError(macroName, message string, node nodes.Node) *MacroError {
	return &MacroError{
		error:     NewError(ErrorTypeMacro, fmt.Sprintf("macro '%s': %s", macroName, message), node),
		MacroName: macroName,
	}
}

// ImportError represents an import error
type ImportError struct {
	error
	TemplateName string
}

// NewImportError creates a new import error
func NewImportError(templateName, message string, node nodes.Node) *ImportError {
	return &ImportError{
		error:        NewError(ErrorTypeImport, fmt.Sprintf("import '%s': %s", templateName, message), node),
		TemplateName: templateName,
	}
}

// FilterError represents a filter error
type FilterError struct {
	error
	FilterName string
}

// NewFilterError creates a new filter error
func NewFilterError(filterName, message string, node nodes.Node, cause error) *FilterError {
	return &FilterError{
		error:      NewErrorWithCause(ErrorTypeFilter, fmt.Sprintf("filter '%s': %s", filterName, message), node, cause),
		FilterName: filterName,
	}
}

// Unwrap returns the positioned base error
func (e *MacroError) Unwrap() error { return e.error }

// Unwrap returns the positioned base error
func (e *ImportError) Unwrap() error { return e.error }

// Unwrap returns the positioned base error
func (e *FilterError) Unwrap() error { return e.error }

// IsCompileError checks if an error is a compile error
func IsCompileError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == ErrorTypeCompile
}

// IsMacroError checks if an error is a macro error
func IsMacroError(err error) bool {
	var e *MacroError
	return errors.As(err, &e)
}

// IsImportError checks if an error is an import error
func IsImportError(err error) bool {
	var e *ImportError
	return errors.As(err, &e)
}

// IsFilterError checks if an error is a filter error
func IsFilterError(err error) bool {
	var e *FilterError
	return errors.As(err, &e)
}
