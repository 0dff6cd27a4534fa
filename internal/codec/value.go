// Package codec implements a canonical, deterministic CBOR encoder/decoder
// (RFC 8949 Core Deterministic Encoding, restricted to the value sum-type
// the engine needs). No third-party CBOR library in the dependency corpus
// implements this exact strict subset: IPLD-flavored CBOR codecs target
// content-addressed block hashing and pull in an unrelated blockstore/CID
// dependency graph, and none reject non-canonical input with the specific
// error granularity this engine requires. The codec is therefore
// hand-written, following the same manual, offset-tracked binary framing
// discipline the rest of this module uses for its WAL and segment frames.
package codec

// Kind is the tag of a decoded Value.
type Kind byte

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindBytes
	KindText
	KindArray
	KindMap
)

// Value is the codec's closed sum-type. Exactly one field is meaningful,
// selected by Kind. Arrays and maps own their children; there are no
// shared-ownership graphs and therefore no cycles are representable.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Bytes []byte
	Text  string
	Array []Value
	Map   []MapEntry
}

// MapEntry is one key/value pair of a Value of KindMap. Map encodes its
// entries sorted by the entry key's own encoded bytes (length-first, then
// bytewise), independent of insertion order.
type MapEntry struct {
	Key   Value
	Value Value
}

func Null() Value                { return Value{Kind: KindNull} }
func Bool(b bool) Value          { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value          { return Value{Kind: KindInt, Int: i} }
func Bytes(b []byte) Value       { return Value{Kind: KindBytes, Bytes: b} }
func Text(s string) Value        { return Value{Kind: KindText, Text: s} }
func Array(vs []Value) Value     { return Value{Kind: KindArray, Array: vs} }
func Map(es []MapEntry) Value    { return Value{Kind: KindMap, Map: es} }
