// Package codec serializes cache rows for byte-oriented backends such as
// BigCache. Redis and Ristretto store rows natively and need no codec.
package codec

import "github.com/unkn0wn-root/rowcache"

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Row is the codec shape backends use.
type Row = Codec[rowcache.Row]
