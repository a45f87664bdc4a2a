package events

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// Property is a single key/value pair inside an event's property set.
type Property struct {
	Key   string
	Value Value
}

// Properties is an insertion-ordered property collection. Order is
// preserved through JSON round-trips so that persisted and delivered
// payloads match the order the host application supplied.
type Properties []Property

// Get returns the value for key and whether it is present.
func (p Properties) Get(key string) (Value, bool) {
	for _, e := range p {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Set replaces the value for an existing key in place or appends a new
// entry, preserving first-insertion order.
func (p *Properties) Set(key string, v Value) {
	for i, e := range *p {
		if e.Key == key {
			(*p)[i].Value = v
			return
		}
	}
	*p = append(*p, Property{Key: key, Value: v})
}

// Len returns the number of entries.
func (p Properties) Len() int { return len(p) }

// Clone returns a shallow copy safe for independent mutation of the
// entry list.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	copy(out, p)
	return out
}

// MarshalJSON emits a JSON object with keys in insertion order.
func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := e.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, preserving the key order found in
// the document.
func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: properties must be a JSON object", ErrInvalidValue)
	}

	out := make(Properties, 0)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("%w: non-string property key", ErrInvalidValue)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		val, err := decodeValue(raw)
		if err != nil {
			return err
		}
		out = append(out, Property{Key: key, Value: val})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	*p = out
	return nil
}
