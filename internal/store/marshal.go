package store

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// marshalParams encodes run parameters as msgpack with sorted keys, so the
// same parameters always produce the same bytes.
func marshalParams(params map[string]float64) ([]byte, error) {
	if len(params) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(params); err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return buf.Bytes(), nil
}

func unmarshalParams(b []byte) (map[string]float64, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var params map[string]float64
	if err := msgpack.Unmarshal(b, &params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	return params, nil
}
