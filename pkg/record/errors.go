package record

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidField   = errors.New("invalid field")
	ErrDuplicateField = errors.New("duplicate field")
)

// InvalidFieldError reports field names that are not part of a schema.
type InvalidFieldError struct {
	Schema string
	Fields []string // sorted
}

func (e *InvalidFieldError) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("%s: field %q is not allowed", e.Schema, e.Fields[0])
	}
	return fmt.Sprintf("%s: fields %s are not allowed", e.Schema, quoteAll(e.Fields))
}

func (e *InvalidFieldError) Unwrap() error {
	return ErrInvalidField
}

// DuplicateFieldError is returned when a schema declares a name that is
// already allowed by itself or one of its ancestors.
type DuplicateFieldError struct {
	Schema   string
	Field    string
	Declared string // schema that declared the field first
}

func (e *DuplicateFieldError) Error() string {
	if e.Declared == "" || e.Declared == e.Schema {
		return fmt.Sprintf("%s: field %q declared more than once", e.Schema, e.Field)
	}
	return fmt.Sprintf("%s: field %q already declared by %s", e.Schema, e.Field, e.Declared)
}

func (e *DuplicateFieldError) Unwrap() error {
	return ErrDuplicateField
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}
