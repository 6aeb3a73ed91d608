package codec

import (
	"strings"
	"testing"
	"time"

	"github.com/unkn0wn-root/rowcache"
)

// Every codec must hand back a row whose primary key still resolves to the
// same id; the manager reconciles batch reads on that.
func TestCodecsPreserveRowIdentity(t *testing.T) {
	codecs := map[string]Row{
		"json":        JSON[rowcache.Row]{},
		"json_number": JSON[rowcache.Row]{UseNumber: true},
		"msgpack":     Msgpack[rowcache.Row]{},
		"cbor":        MustCBOR[rowcache.Row](true),
		"struct":      Struct{},
	}
	in := rowcache.Row{"id": int64(42), "name": "Ada", "score": 1.5}

	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			b, err := c.Encode(in)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			out, err := c.Decode(b)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			id, ok := rowcache.IDFromValue(out["id"])
			if !ok || id.String() != "42" || !id.IsInt() {
				t.Fatalf("id lost: %#v -> %v", out["id"], id)
			}
			if out["name"] != "Ada" {
				t.Fatalf("name = %#v", out["name"])
			}
		})
	}
}

func TestEmptyRowStaysEmpty(t *testing.T) {
	for name, c := range map[string]Row{
		"json":    JSON[rowcache.Row]{},
		"msgpack": Msgpack[rowcache.Row]{},
		"cbor":    MustCBOR[rowcache.Row](false),
		"struct":  Struct{},
	} {
		b, err := c.Encode(rowcache.Row{})
		if err != nil {
			t.Fatalf("%s: Encode: %v", name, err)
		}
		out, err := c.Decode(b)
		if err != nil {
			t.Fatalf("%s: Decode: %v", name, err)
		}
		if len(out) != 0 {
			t.Fatalf("%s: empty row decoded to %v", name, out)
		}
	}
}

func TestStructRejectsUnsupportedValues(t *testing.T) {
	if _, err := (Struct{}).Encode(rowcache.Row{"at": time.Now()}); err == nil {
		t.Fatalf("expected error for time.Time value")
	}
}

func TestLimitCodec(t *testing.T) {
	c := LimitCodec[rowcache.Row]{Inner: JSON[rowcache.Row]{}, MaxDecode: 16}
	big, err := c.Encode(rowcache.Row{"name": strings.Repeat("x", 64)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Decode(big); err == nil {
		t.Fatalf("expected size limit error")
	}
	small, _ := c.Encode(rowcache.Row{"id": 1})
	if _, err := c.Decode(small); err != nil {
		t.Fatalf("small payload rejected: %v", err)
	}
}
