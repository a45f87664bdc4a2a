package events

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// ValueKind discriminates the members of the property-value union.
type ValueKind int

const (
	ValueInvalid ValueKind = iota
	ValueString
	ValueNumber
	ValueBool
	ValueJSON
)

// String returns the string representation of the value kind.
func (k ValueKind) String() string {
	switch k {
	case ValueString:
		return "string"
	case ValueNumber:
		return "number"
	case ValueBool:
		return "bool"
	case ValueJSON:
		return "json"
	default:
		return "invalid"
	}
}

// Value is a tagged union holding one event property value: a string, a
// number, a bool, or an arbitrary JSON subtree (objects and arrays).
// The zero value is invalid and marshals as JSON null.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	raw  any
}

// String creates a string property value.
func String(s string) Value { return Value{kind: ValueString, str: s} }

// Number creates a numeric property value.
func Number(f float64) Value { return Value{kind: ValueNumber, num: f} }

// Bool creates a boolean property value.
func Bool(b bool) Value { return Value{kind: ValueBool, b: b} }

// JSON creates a property value holding an arbitrary JSON subtree,
// typically a map[string]any or []any produced by deserialization.
func JSON(v any) Value { return Value{kind: ValueJSON, raw: v} }

// Kind reports which member of the union the value holds.
func (v Value) Kind() ValueKind { return v.kind }

// AsString returns the string member and whether the value holds one.
func (v Value) AsString() (string, bool) { return v.str, v.kind == ValueString }

// AsNumber returns the numeric member and whether the value holds one.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == ValueNumber }

// AsBool returns the boolean member and whether the value holds one.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == ValueBool }

// AsJSON returns the JSON subtree member and whether the value holds one.
func (v Value) AsJSON() (any, bool) { return v.raw, v.kind == ValueJSON }

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return json.Marshal(v.str)
	case ValueNumber:
		return json.Marshal(v.num)
	case ValueBool:
		return json.Marshal(v.b)
	case ValueJSON:
		return json.Marshal(v.raw)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler, classifying the raw JSON
// into the matching union member.
func (v *Value) UnmarshalJSON(data []byte) error {
	decoded, err := decodeValue(data)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func decodeValue(data []byte) (Value, error) {
	var probe any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&probe); err != nil {
		return Value{}, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	switch t := probe.(type) {
	case string:
		return String(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return Number(f), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Value{}, nil
	default:
		// Objects and arrays land here as map[string]any / []any.
		return JSON(t), nil
	}
}
