package wire

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestRowFrame(t *testing.T) {
	enc := EncodeRow([]byte("hello"))
	p, neg, err := Decode(enc)
	if err != nil || neg {
		t.Fatalf("Decode: neg=%v err=%v", neg, err)
	}
	if !bytes.Equal(p, []byte("hello")) {
		t.Fatalf("payload mismatch: got %q", p)
	}
}

func TestNegativeFrame(t *testing.T) {
	p, neg, err := Decode(EncodeNegative())
	if err != nil || !neg || p != nil {
		t.Fatalf("Decode negative: p=%v neg=%v err=%v", p, neg, err)
	}
}

func TestDecodeRejects(t *testing.T) {
	row := EncodeRow([]byte("abc"))

	badMagic := append([]byte(nil), row...)
	badMagic[0] = 'X'

	badVersion := append([]byte(nil), row...)
	badVersion[4] = 99

	badKind := append([]byte(nil), row...)
	badKind[5] = 7

	trailing := append(append([]byte(nil), row...), 0xDE, 0xAD)

	shortLen := append([]byte(nil), row...)
	binary.BigEndian.PutUint32(shortLen[6:10], 2)

	hugeLen := append([]byte(nil), row...)
	binary.BigEndian.PutUint32(hugeLen[6:10], ^uint32(0))

	negWithPayload := append([]byte(nil), row...)
	negWithPayload[5] = kindNegative

	cases := map[string][]byte{
		"empty":            nil,
		"header_only_cut":  row[:5],
		"bad_magic":        badMagic,
		"bad_version":      badVersion,
		"bad_kind":         badKind,
		"trailing":         trailing,
		"short_len":        shortLen,
		"huge_len":         hugeLen,
		"negative_payload": negWithPayload,
		"empty_row":        EncodeRow(nil),
		"foreign":          []byte(`{"id":1}`),
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			if _, _, err := Decode(b); err != ErrCorrupt {
				t.Fatalf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}
