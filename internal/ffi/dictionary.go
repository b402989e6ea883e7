package ffi

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Dictionary is an insertion-ordered string-keyed map of variant values,
// the shape a host engine dictionary takes when marshalled across the
// boundary.
//
// Values are whatever msgpack can carry: float64, int64, bool, string,
// []any, map[string]any.
type Dictionary struct {
	keys   []string
	values map[string]any
}

// NewDictionary creates an empty Dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{values: make(map[string]any)}
}

// Set stores value under key. Re-setting a key keeps its position.
func (d *Dictionary) Set(key string, value any) {
	if d.values == nil {
		d.values = make(map[string]any)
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the value for key.
func (d *Dictionary) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Float returns the value for key as float64. Integer values are widened.
func (d *Dictionary) Float(key string) (float64, bool) {
	switch v := d.values[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Keys returns keys in insertion order. The slice is a copy.
func (d *Dictionary) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	return len(d.keys)
}

// EncodeMsgpack implements msgpack.CustomEncoder. Entries are written in
// insertion order.
func (d *Dictionary) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(d.keys)); err != nil {
		return err
	}
	for _, k := range d.keys {
		if err := enc.EncodeString(k); err != nil {
			return err
		}
		if err := enc.Encode(d.values[k]); err != nil {
			return fmt.Errorf("dictionary key %q: %w", k, err)
		}
	}
	return nil
}

// DecodeMsgpack implements msgpack.CustomDecoder. Order is preserved.
func (d *Dictionary) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	d.keys = nil
	d.values = make(map[string]any, max(n, 0))
	for i := 0; i < n; i++ {
		k, err := dec.DecodeString()
		if err != nil {
			return fmt.Errorf("dictionary entry %d key: %w", i, err)
		}
		v, err := dec.DecodeInterface()
		if err != nil {
			return fmt.Errorf("dictionary key %q: %w", k, err)
		}
		d.Set(k, v)
	}
	return nil
}

// WriteDictionary copies d out to buf as msgpack.
func WriteDictionary(buf Buffer, d *Dictionary) error {
	b, err := msgpack.Marshal(d)
	if err != nil {
		return fmt.Errorf("write dictionary: %w", err)
	}
	return buf.WriteForeignBytes(b)
}

// ReadDictionary copies a msgpack dictionary in from buf.
func ReadDictionary(buf Buffer) (*Dictionary, error) {
	b, err := buf.ReadForeignBytes()
	if err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	d := NewDictionary()
	if err := msgpack.Unmarshal(b, d); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return d, nil
}
