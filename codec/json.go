package codec

import (
	"bytes"
	"encoding/json"
)

// JSON encodes values with encoding/json. With UseNumber, numbers inside
// interface values decode to json.Number instead of float64, which keeps
// large integer ids exact.
type JSON[V any] struct {
	UseNumber bool
}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (c JSON[V]) Decode(b []byte) (V, error) {
	var v V
	dec := json.NewDecoder(bytes.NewReader(b))
	if c.UseNumber {
		dec.UseNumber()
	}
	err := dec.Decode(&v)
	return v, err
}
