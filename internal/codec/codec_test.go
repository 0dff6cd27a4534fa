package codec

import (
	"bytes"
	"testing"

	cderrors "github.com/entidb/entidb/internal/errors"
)

func TestRoundTripScalars(t *testing.T) {
	cases := []Value{
		Null(),
		Bool(true),
		Bool(false),
		Int(0),
		Int(23),
		Int(24),
		Int(255),
		Int(256),
		Int(65535),
		Int(65536),
		Int(-1),
		Int(-100),
		Bytes([]byte("hello")),
		Text("bob"),
	}
	for _, v := range cases {
		enc := Encode(v)
		dec, err := Decode(enc)
		if err != nil {
			t.Fatalf("decode(%v): %v", v, err)
		}
		if Encode(dec) == nil {
			t.Fatalf("re-encode produced nil")
		}
		if !bytes.Equal(Encode(dec), enc) {
			t.Fatalf("round trip mismatch: %x vs %x", Encode(dec), enc)
		}
	}
}

func TestMapKeySorting(t *testing.T) {
	v := Map([]MapEntry{
		{Key: Text("b"), Value: Int(1)},
		{Key: Text("a"), Value: Int(2)},
	})
	enc := Encode(v)
	// A2 61 61 ... 61 62 ...: "a" (0x61 0x61) must precede "b" (0x61 0x62).
	want := []byte{0xA2, 0x61, 0x61, 0x02, 0x61, 0x62, 0x01}
	if !bytes.Equal(enc, want) {
		t.Fatalf("got % x want % x", enc, want)
	}
}

func TestNonShortestIntegerRejected(t *testing.T) {
	// 1A 00 00 00 05: integer 5 encoded in the 5-byte (uint32) form.
	in := []byte{0x1A, 0x00, 0x00, 0x00, 0x05}
	_, err := Decode(in)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !cderrors.Is(err, cderrors.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestFloatRejected(t *testing.T) {
	// 0xFA = major 7, simple 26 (float32).
	in := []byte{0xFA, 0x00, 0x00, 0x00, 0x00}
	_, err := Decode(in)
	if err == nil {
		t.Fatal("expected decode error for float")
	}
}

func TestIndefiniteLengthRejected(t *testing.T) {
	// 0x9F = array, indefinite length.
	in := []byte{0x9F, 0x01, 0xFF}
	_, err := Decode(in)
	if err == nil {
		t.Fatal("expected decode error for indefinite-length array")
	}
}

func TestInvalidUTF8Rejected(t *testing.T) {
	// text string of length 1 containing an invalid UTF-8 byte.
	in := []byte{0x61, 0xFF}
	_, err := Decode(in)
	if err == nil {
		t.Fatal("expected decode error for invalid utf8")
	}
}

func TestUnsortedMapKeysRejected(t *testing.T) {
	// map{2} "b":1, "a":2 — encoded directly out of order.
	in := []byte{0xA2, 0x61, 0x62, 0x01, 0x61, 0x61, 0x02}
	_, err := Decode(in)
	if err == nil {
		t.Fatal("expected decode error for unsorted map keys")
	}
}

func TestArrayRoundTrip(t *testing.T) {
	v := Array([]Value{Int(1), Text("x"), Bool(true), Null()})
	enc := Encode(v)
	dec, err := Decode(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(dec.Array) != 4 {
		t.Fatalf("expected 4 elements, got %d", len(dec.Array))
	}
}

func TestEncodeDecodeOfKnownCanonicalBytes(t *testing.T) {
	// {"a":"bob"} canonical CBOR per the boundary scenario in the spec.
	want := []byte{0xA1, 0x61, 0x61, 0x63, 0x62, 0x6F, 0x62}
	v := Map([]MapEntry{{Key: Text("a"), Value: Text("bob")}})
	got := Encode(v)
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x want % x", got, want)
	}
	dec, err := Decode(want)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(Encode(dec), want) {
		t.Fatalf("encode(decode(b)) != b")
	}
}
