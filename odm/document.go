package odm

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// IdentityKey is the document key that carries the store-assigned identity.
const IdentityKey = "_id"

// ObjectID is an opaque document identity. A record whose identity is the
// zero ObjectID has never been persisted.
type ObjectID string

// Document is an ordered key/value map representing exactly what was or
// will be persisted for one record. Keys are unique; insertion order is
// preserved, including through a JSON round trip.
type Document struct {
	keys   []string
	values map[string]any
}

// NewDocument returns an empty Document.
func NewDocument() *Document {
	return &Document{values: make(map[string]any)}
}

// Set stores value under key. A new key is appended after existing keys;
// setting an existing key overwrites its value in place.
func (d *Document) Set(key string, value any) {
	if d.values == nil {
		d.values = make(map[string]any)
	}
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the value stored under key and whether it is present.
func (d *Document) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Has reports whether key is present.
func (d *Document) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Delete removes key. Returns true if it existed.
func (d *Document) Delete(key string) bool {
	if _, ok := d.values[key]; !ok {
		return false
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the keys in insertion order. The returned slice is a copy.
func (d *Document) Keys() []string {
	keys := make([]string, len(d.keys))
	copy(keys, d.keys)
	return keys
}

// Len returns the number of keys.
func (d *Document) Len() int {
	return len(d.keys)
}

// Clear removes every key.
func (d *Document) Clear() {
	d.keys = nil
	d.values = make(map[string]any)
}

// Clone returns an independent copy. Values are copied shallowly except
// for nested maps and slices, which are copied through JSON so the two
// documents share no mutable state.
func (d *Document) Clone() *Document {
	clone := NewDocument()
	for _, k := range d.keys {
		clone.Set(k, cloneValue(d.values[k]))
	}
	return clone
}

func cloneValue(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return v
		}
		var out any
		if err := json.Unmarshal(b, &out); err != nil {
			return v
		}
		return out
	default:
		return v
	}
}

// MarshalJSON encodes the document as a JSON object with keys in
// insertion order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(d.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, recording keys in the order they
// appear. The previous contents are discarded.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("activedoc: document must be a JSON object, got %v", tok)
	}

	d.Clear()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("activedoc: expected object key, got %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decode key %q: %w", key, err)
		}
		d.Set(key, value)
	}

	// consume the closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
