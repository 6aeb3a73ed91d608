package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version      byte = 1
	kindRow      byte = 1
	kindNegative byte = 2

	hdrLen = 4 + 1 + 1 + 4
)

var (
	ErrCorrupt = errors.New("rowcache: corrupt entry")
	magic4     = [...]byte{'R', 'O', 'W', 'C'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Row: magic(4) | ver(1) | kind(1=row) | plen(u32 be) | payload(plen)
// The payload is the codec output for a non-empty row.
func EncodeRow(payload []byte) []byte {
	return encode(kindRow, payload)
}

// Negative: magic(4) | ver(1) | kind(2=negative) | plen(u32 be)=0
func EncodeNegative() []byte {
	return encode(kindNegative, nil)
}

func encode(kind byte, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kind)

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// Decode validates framing. negative reports a negative entry, in which
// case payload is nil. Trailing bytes are rejected.
func Decode(b []byte) (payload []byte, negative bool, err error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version {
		return nil, false, ErrCorrupt
	}
	kind := b[5]
	plen := int(binary.BigEndian.Uint32(b[6:hdrLen]))
	if plen != len(b)-hdrLen {
		return nil, false, ErrCorrupt
	}

	switch kind {
	case kindNegative:
		if plen != 0 {
			return nil, false, ErrCorrupt
		}
		return nil, true, nil
	case kindRow:
		if plen == 0 {
			return nil, false, ErrCorrupt
		}
		return b[hdrLen:], false, nil
	default:
		return nil, false, ErrCorrupt
	}
}
