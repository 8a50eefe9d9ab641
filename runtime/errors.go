package runtime

import (
	"errors"
	"fmt"
	"strings"

	"github.com/deicod/nunjucks/compiler"
)

// TemplateNotFoundError represents an error when a single template cannot be located.
type TemplateNotFoundError struct {
	base  *compiler.Error
	Name  string
	Tried []string
}

// NewTemplateNotFound creates a TemplateNotFoundError with optional tried locations and cause.
func NewTemplateNotFound(name string, tried []string, cause error) *TemplateNotFoundError {
	message := fmt.Sprintf("template %s not found", name)
	if len(tried) > 0 {
		message = fmt.Sprintf("%s (tried: %s)", message, strings.Join(tried, ", "))
	}

	return &TemplateNotFoundError{
		base:  compiler.NewErrorWithCause(compiler.ErrorTypeTemplate, message, nil, cause),
		Name:  name,
		Tried: append([]string(nil), tried...),
	}
}

func (e *TemplateNotFoundError) Error() string {
	return e.base.Error()
}

// Unwrap exposes the loader's cause, typically os.ErrNotExist
func (e *TemplateNotFoundError) Unwrap() error {
	return e.base.Cause
}

// IsTemplateNotFound reports whether err is or wraps a TemplateNotFoundError
func IsTemplateNotFound(err error) bool {
	var notFound *TemplateNotFoundError
	return errors.As(err, &notFound)
}

// UnknownFilterError is returned by GetFilter for unregistered names
type UnknownFilterError struct {
	Name string
}

func (e *UnknownFilterError) Error() string {
	return fmt.Sprintf("no filter named %q", e.Name)
}
