// Package record implements fixed-attribute records: containers whose set of
// readable and writable field names is decided when their schema is declared.
package record

import (
	"fmt"
	"sort"
	"strings"
)

// Schema is the immutable allowed-field-set of a record type. A derived
// schema (see Extend) allows its parent's fields plus its own declared ones.
type Schema struct {
	name     string
	parent   *Schema
	declared []string
	fields   []string
	index    map[string]string // field -> declaring schema name
}

// NewSchema declares a root schema.
func NewSchema(name string, fields ...string) (*Schema, error) {
	return newSchema(name, nil, fields)
}

// MustSchema is NewSchema for package-level declarations; it panics on error.
func MustSchema(name string, fields ...string) *Schema {
	s, err := NewSchema(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Extend declares a schema derived from s. Redeclaring a field already
// allowed by s (or any of its ancestors) is an error.
func (s *Schema) Extend(name string, fields ...string) (*Schema, error) {
	if s == nil {
		return nil, fmt.Errorf("extend %s: parent schema is nil", name)
	}
	return newSchema(name, s, fields)
}

// MustExtend is Extend for package-level declarations; it panics on error.
func (s *Schema) MustExtend(name string, fields ...string) *Schema {
	d, err := s.Extend(name, fields...)
	if err != nil {
		panic(err)
	}
	return d
}

func newSchema(name string, parent *Schema, declared []string) (*Schema, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("schema name is required")
	}

	s := &Schema{
		name:     name,
		parent:   parent,
		declared: make([]string, 0, len(declared)),
		index:    make(map[string]string),
	}
	if parent != nil {
		s.fields = append(s.fields, parent.fields...)
		for f, owner := range parent.index {
			s.index[f] = owner
		}
	}

	for _, f := range declared {
		f = strings.TrimSpace(f)
		if f == "" {
			return nil, fmt.Errorf("%s: empty field name", name)
		}
		if owner, exists := s.index[f]; exists {
			return nil, &DuplicateFieldError{Schema: name, Field: f, Declared: owner}
		}
		s.index[f] = name
		s.declared = append(s.declared, f)
		s.fields = append(s.fields, f)
	}

	return s, nil
}

func (s *Schema) Name() string    { return s.name }
func (s *Schema) Parent() *Schema { return s.parent }
func (s *Schema) Len() int        { return len(s.fields) }

// Fields returns every allowed field, ancestors first, in declaration order.
func (s *Schema) Fields() []string {
	out := make([]string, len(s.fields))
	copy(out, s.fields)
	return out
}

// Declared returns only the fields this schema added on top of its parent.
func (s *Schema) Declared() []string {
	out := make([]string, len(s.declared))
	copy(out, s.declared)
	return out
}

// Has reports whether name is in the allowed-field-set.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Validate checks keys against the allowed-field-set and reports every
// offending key at once.
func (s *Schema) Validate(keys ...string) error {
	var invalid []string
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if s.Has(k) {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		invalid = append(invalid, k)
	}
	if len(invalid) == 0 {
		return nil
	}
	sort.Strings(invalid)
	return &InvalidFieldError{Schema: s.name, Fields: invalid}
}
