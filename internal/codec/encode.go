package codec

import (
	"bytes"
	"sort"
	"unicode/utf8"

	cderrors "github.com/entidb/entidb/internal/errors"
)

// Major types, per RFC 8949 §3.
const (
	majorUnsigned  = 0
	majorNegative  = 1
	majorBytes     = 2
	majorText      = 3
	majorArray     = 4
	majorMap       = 5
	majorSimple    = 7
)

const (
	simpleFalse = 20
	simpleTrue  = 21
	simpleNull  = 22
)

// Encode renders v as canonical CBOR bytes. Encoding never fails for a
// well-formed Value tree built through the constructors in value.go.
func Encode(v Value) []byte {
	var buf bytes.Buffer
	encodeValue(&buf, v)
	return buf.Bytes()
}

func encodeValue(buf *bytes.Buffer, v Value) {
	switch v.Kind {
	case KindNull:
		writeHead(buf, majorSimple, simpleNull)
	case KindBool:
		if v.Bool {
			writeHead(buf, majorSimple, simpleTrue)
		} else {
			writeHead(buf, majorSimple, simpleFalse)
		}
	case KindInt:
		encodeInt(buf, v.Int)
	case KindBytes:
		writeHead(buf, majorBytes, uint64(len(v.Bytes)))
		buf.Write(v.Bytes)
	case KindText:
		writeHead(buf, majorText, uint64(len(v.Text)))
		buf.WriteString(v.Text)
	case KindArray:
		writeHead(buf, majorArray, uint64(len(v.Array)))
		for _, item := range v.Array {
			encodeValue(buf, item)
		}
	case KindMap:
		entries := sortedEntries(v.Map)
		writeHead(buf, majorMap, uint64(len(entries)))
		for _, e := range entries {
			encodeValue(buf, e.Key)
			encodeValue(buf, e.Value)
		}
	}
}

func encodeInt(buf *bytes.Buffer, i int64) {
	if i >= 0 {
		writeHead(buf, majorUnsigned, uint64(i))
		return
	}
	// Negative major type encodes -(n+1) for argument n.
	writeHead(buf, majorNegative, uint64(-(i + 1)))
}

// writeHead writes the major-type byte and argument using the shortest
// encoding: 0-23 inline, else 1/2/4/8-byte big-endian forms prefixed by
// 24/25/26/27.
func writeHead(buf *bytes.Buffer, major byte, arg uint64) {
	head := major << 5
	switch {
	case arg < 24:
		buf.WriteByte(head | byte(arg))
	case arg <= 0xFF:
		buf.WriteByte(head | 24)
		buf.WriteByte(byte(arg))
	case arg <= 0xFFFF:
		buf.WriteByte(head | 25)
		buf.WriteByte(byte(arg >> 8))
		buf.WriteByte(byte(arg))
	case arg <= 0xFFFFFFFF:
		buf.WriteByte(head | 26)
		for shift := 24; shift >= 0; shift -= 8 {
			buf.WriteByte(byte(arg >> shift))
		}
	default:
		buf.WriteByte(head | 27)
		for shift := 56; shift >= 0; shift -= 8 {
			buf.WriteByte(byte(arg >> shift))
		}
	}
}

// sortedEntries returns e sorted by each entry's own encoded key bytes,
// compared length-first then bytewise, as canonical CBOR map ordering
// requires. The input order (insertion order) is not preserved.
func sortedEntries(e []MapEntry) []MapEntry {
	out := make([]MapEntry, len(e))
	copy(out, e)
	keyBytes := make([][]byte, len(out))
	for i, entry := range out {
		keyBytes[i] = Encode(entry.Key)
	}
	sort.Slice(out, func(i, j int) bool {
		return lessCanonical(keyBytes[i], keyBytes[j])
	})
	return out
}

func lessCanonical(a, b []byte) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return bytes.Compare(a, b) < 0
}

// ValidateText returns ErrInvalidUTF8 if s is not valid UTF-8, which
// Encode's caller must check before constructing a KindText Value (Encode
// itself never fails, matching the sum-type construction pattern used by
// the rest of this engine).
func ValidateText(s string) error {
	if !utf8.ValidString(s) {
		return cderrors.InvalidArgument("codec.ValidateText", cderrors.ErrInvalidUTF8)
	}
	return nil
}
