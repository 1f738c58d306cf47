package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

// Record holds one value per allowed field of its schema. Fields that were
// never supplied hold nil.
type Record struct {
	schema *Schema
	values map[string]any
}

// New builds a record of the given schema. Keys of initial that the schema
// does not allow are all reported in a single *InvalidFieldError.
func New(schema *Schema, initial map[string]any) (*Record, error) {
	if schema == nil {
		return nil, fmt.Errorf("record schema is nil")
	}

	keys := make([]string, 0, len(initial))
	for k := range initial {
		keys = append(keys, k)
	}
	if err := schema.Validate(keys...); err != nil {
		return nil, err
	}

	values := make(map[string]any, schema.Len())
	for _, f := range schema.fields {
		values[f] = initial[f]
	}
	return &Record{schema: schema, values: values}, nil
}

func (r *Record) Schema() *Schema { return r.schema }

// Get returns the current value of an allowed field.
func (r *Record) Get(name string) (any, error) {
	if !r.schema.Has(name) {
		return nil, &InvalidFieldError{Schema: r.schema.name, Fields: []string{name}}
	}
	return r.values[name], nil
}

// Set assigns a single allowed field.
func (r *Record) Set(name string, value any) error {
	if !r.schema.Has(name) {
		return &InvalidFieldError{Schema: r.schema.name, Fields: []string{name}}
	}
	r.values[name] = value
	return nil
}

// IsAbsent reports whether an allowed field holds nil. Unknown fields are
// not part of the record and are never absent; use Get to detect them.
func (r *Record) IsAbsent(name string) bool {
	v, err := r.Get(name)
	return err == nil && v == nil
}

// Values returns a copy of all fields, absent ones included.
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// String returns the field as a string. ok is false when the field is
// unknown, absent or holds another type; only Get tells those apart.
func (r *Record) String(name string) (string, bool) {
	v, err := r.Get(name)
	if err != nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int returns the field as an int64, accepting json.Number, integral floats
// within the int64 range and native integers. Like String, ok does not
// distinguish an unknown field from an absent one.
func (r *Record) Int(name string) (int64, bool) {
	v, err := r.Get(name)
	if err != nil {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

// Bool returns the field as a bool, with the same ok semantics as String.
func (r *Record) Bool(name string) (bool, bool) {
	v, err := r.Get(name)
	if err != nil {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// MarshalJSON writes every allowed field in schema order; absent fields are null.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.schema.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[f])
		if err != nil {
			return nil, fmt.Errorf("marshal field %s: %w", f, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Decode parses a JSON object into a record of the given schema. Numbers are
// kept as json.Number so large ids survive; unknown keys are rejected, and
// so is anything after the object.
func Decode(schema *Schema, data []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode %s: %w", schemaName(schema), err)
	}
	if obj == nil {
		return nil, fmt.Errorf("decode %s: expected a JSON object", schemaName(schema))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode %s: trailing data after JSON object", schemaName(schema))
	}
	return New(schema, obj)
}

func schemaName(s *Schema) string {
	if s == nil {
		return "record"
	}
	return s.name
}
