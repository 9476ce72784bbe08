package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Field struct {
	Name  string
	Value any
}

// Fields is an extractor's output: an ordered list of named values, nil
// meaning the value was absent on the page.
type Fields []Field

func (f Fields) Get(name string) (any, bool) {
	for _, field := range f {
		if field.Name == name {
			return field.Value, true
		}
	}
	return nil, false
}

// Conflict reports an incoming value that was dropped because the field
// already held a different value.
type Conflict struct {
	Field   string
	Kept    any
	Dropped any
}

func (c Conflict) String() string {
	return fmt.Sprintf("field %q already set, dropped %v", c.Field, c.Dropped)
}

// Record is the partial record accumulated for one entity. Fields keep the
// order in which they were first folded in.
type Record struct {
	Key    EntityKey
	order  []string
	values map[string]any
}

func NewRecord(key EntityKey) *Record {
	return &Record{Key: key, values: make(map[string]any)}
}

func (r *Record) Len() int { return len(r.order) }

func (r *Record) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Text returns a string or *string field, "" when absent.
func (r *Record) Text(name string) string {
	switch v := r.values[name].(type) {
	case string:
		return v
	case *string:
		if v != nil {
			return *v
		}
	}
	return ""
}

// Clone copies the field table. Stored values are immutable so they are
// shared between the copies.
func (r *Record) Clone() *Record {
	out := &Record{
		Key:    r.Key,
		order:  make([]string, len(r.order)),
		values: make(map[string]any, len(r.values)),
	}
	copy(out.order, r.order)
	for k, v := range r.values {
		out.values[k] = v
	}
	return out
}

// Fold merges fields into r. New names are added, list values append
// without repeating an entry, and a populated scalar is never overwritten.
func (r *Record) Fold(fields Fields) []Conflict {
	var conflicts []Conflict
	for _, field := range fields {
		existing, ok := r.values[field.Name]
		if !ok {
			r.order = append(r.order, field.Name)
			r.values[field.Name] = field.Value
			continue
		}
		merged, ok := merge(existing, field.Value)
		if !ok {
			conflicts = append(conflicts, Conflict{Field: field.Name, Kept: existing, Dropped: field.Value})
			continue
		}
		r.values[field.Name] = merged
	}
	return conflicts
}

func merge(existing, incoming any) (any, bool) {
	if isEmpty(incoming) {
		return existing, true
	}
	if isEmpty(existing) {
		return incoming, true
	}
	if m, ok := existing.(mergeable); ok {
		return m.merge(incoming)
	}
	return existing, sameScalar(existing, incoming)
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case *string:
		return t == nil || *t == ""
	case mergeable:
		return t.empty()
	}
	return false
}

func sameScalar(a, b any) bool {
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case *string:
		y, ok := b.(*string)
		return ok && *x == *y
	}
	return false
}

func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(r.values[name])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Text wraps a trimmed string as a nullable value; "" becomes nil.
func Text(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
