// Copyright (c) 2024 Tigera, Inc. All rights reserved.

// Package diag carries source positions and decode diagnostics through
// every parse and render path in kaquel, and defines the ordered JSON
// object type used to render the query AST with a deterministic key
// order.
package diag

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Position is a location within a source document. Offset is 0-based;
// Line and Column are 1-based.
type Position struct {
	Offset uint32
	Line   uint32
	Column uint32
}

// String renders the position as "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// DecodeError is the sole parse-failure surface for kaquel. It is raised
// at the deepest parser point that could not make progress, and always
// carries a position within the source it was raised against.
type DecodeError struct {
	Position
	Message string
}

// NewDecodeError builds a DecodeError at the given position.
func NewDecodeError(pos Position, message string) *DecodeError {
	return &DecodeError{Position: pos, Message: message}
}

// NewDecodeErrorf builds a DecodeError at the given position with a
// formatted message.
func NewDecodeErrorf(pos Position, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Position: pos, Message: fmt.Sprintf(format, args...)}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s at %s", e.Message, e.Position)
}

// jsonField is a single key/value pair of a JSONObject.
type jsonField struct {
	key   string
	value interface{}
}

// JSONObject is a JSON object that preserves the insertion order of its
// keys, so that Query.Source() can produce a canonical key order (e.g.
// "gte" before "lt") instead of the alphabetical order encoding/json
// would otherwise impose on a bare map.
type JSONObject struct {
	fields []jsonField
}

// NewJSONObject returns an empty ordered JSON object.
func NewJSONObject() *JSONObject {
	return &JSONObject{}
}

// Set appends or overwrites a key, preserving first-insertion position
// on overwrite.
func (o *JSONObject) Set(key string, value interface{}) *JSONObject {
	for i, f := range o.fields {
		if f.key == key {
			o.fields[i].value = value
			return o
		}
	}
	o.fields = append(o.fields, jsonField{key: key, value: value})
	return o
}

// Get returns the value for key and whether it was present.
func (o *JSONObject) Get(key string) (interface{}, bool) {
	for _, f := range o.fields {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

// Len returns the number of keys in the object.
func (o *JSONObject) Len() int {
	if o == nil {
		return 0
	}
	return len(o.fields)
}

// Keys returns the object's keys in insertion order.
func (o *JSONObject) Keys() []string {
	keys := make([]string, len(o.fields))
	for i, f := range o.fields {
		keys[i] = f.key
	}
	return keys
}

// MarshalJSON implements json.Marshaler, emitting keys in insertion
// order rather than encoding/json's default alphabetical map order.
func (o *JSONObject) MarshalJSON() ([]byte, error) {
	if o == nil || len(o.fields) == 0 {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o.fields {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
