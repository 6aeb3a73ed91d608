package codec

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/unkn0wn-root/rowcache"
)

// Struct encodes rows as a google.protobuf.Struct. Useful when the cache is
// shared with non-Go readers. Numbers come back as float64; []byte values are
// stored base64-encoded and come back as strings. Values structpb cannot
// represent (e.g. time.Time) fail Encode.
type Struct struct{}

var _ Codec[rowcache.Row] = Struct{}

func (Struct) Encode(r rowcache.Row) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any(r))
	if err != nil {
		return nil, err
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(s)
}

func (Struct) Decode(b []byte) (rowcache.Row, error) {
	s := &structpb.Struct{}
	if err := proto.Unmarshal(b, s); err != nil {
		return nil, err
	}
	return rowcache.Row(s.AsMap()), nil
}
