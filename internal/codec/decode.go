package codec

import (
	"unicode/utf8"

	cderrors "github.com/entidb/entidb/internal/errors"
)

// Decode parses canonical CBOR bytes into a Value tree, rejecting anything
// that is not in the canonical subset: floats, indefinite-length items,
// non-shortest-form integers/lengths, invalid UTF-8, or unsorted map keys.
func Decode(b []byte) (Value, error) {
	d := &decoder{buf: b}
	v, err := d.decodeValue()
	if err != nil {
		return Value{}, err
	}
	if d.pos != len(d.buf) {
		return Value{}, cderrors.InvalidArgument("codec.Decode", cderrors.ErrInvalidStructure)
	}
	return v, nil
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) op() string { return "codec.decode" }

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, cderrors.InvalidArgument(d.op(), cderrors.ErrUnexpectedEOF)
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readN(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, cderrors.InvalidArgument(d.op(), cderrors.ErrUnexpectedEOF)
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// readArg decodes the argument following a major-type byte, enforcing
// shortest form: the argument must be exactly as large as needed for its
// prefix (24/25/26/27), never padded.
func (d *decoder) readArg(lowBits byte) (uint64, error) {
	switch {
	case lowBits < 24:
		return uint64(lowBits), nil
	case lowBits == 24:
		b, err := d.readByte()
		if err != nil {
			return 0, err
		}
		if b < 24 {
			return 0, cderrors.InvalidArgument(d.op(), cderrors.ErrInvalidStructure)
		}
		return uint64(b), nil
	case lowBits == 25:
		bs, err := d.readN(2)
		if err != nil {
			return 0, err
		}
		v := uint64(bs[0])<<8 | uint64(bs[1])
		if v <= 0xFF {
			return 0, cderrors.InvalidArgument(d.op(), cderrors.ErrInvalidStructure)
		}
		return v, nil
	case lowBits == 26:
		bs, err := d.readN(4)
		if err != nil {
			return 0, err
		}
		var v uint64
		for _, byt := range bs {
			v = v<<8 | uint64(byt)
		}
		if v <= 0xFFFF {
			return 0, cderrors.InvalidArgument(d.op(), cderrors.ErrInvalidStructure)
		}
		return v, nil
	case lowBits == 27:
		bs, err := d.readN(8)
		if err != nil {
			return 0, err
		}
		var v uint64
		for _, byt := range bs {
			v = v<<8 | uint64(byt)
		}
		if v <= 0xFFFFFFFF {
			return 0, cderrors.InvalidArgument(d.op(), cderrors.ErrInvalidStructure)
		}
		return v, nil
	default:
		// 28-30 unassigned, 31 is indefinite-length.
		return 0, cderrors.InvalidArgument(d.op(), cderrors.ErrIndefiniteForbidden)
	}
}

func (d *decoder) decodeValue() (Value, error) {
	head, err := d.readByte()
	if err != nil {
		return Value{}, err
	}
	major := head >> 5
	low := head & 0x1F

	switch major {
	case majorUnsigned:
		arg, err := d.readArg(low)
		if err != nil {
			return Value{}, err
		}
		if arg > 1<<63-1 {
			return Value{}, cderrors.InvalidArgument(d.op(), cderrors.ErrInvalidStructure)
		}
		return Int(int64(arg)), nil
	case majorNegative:
		arg, err := d.readArg(low)
		if err != nil {
			return Value{}, err
		}
		if arg > 1<<63-1 {
			return Value{}, cderrors.InvalidArgument(d.op(), cderrors.ErrInvalidStructure)
		}
		return Int(-1 - int64(arg)), nil
	case majorBytes:
		if low == 31 {
			return Value{}, cderrors.InvalidArgument(d.op(), cderrors.ErrIndefiniteForbidden)
		}
		n, err := d.readArg(low)
		if err != nil {
			return Value{}, err
		}
		b, err := d.readN(int(n))
		if err != nil {
			return Value{}, err
		}
		cp := make([]byte, len(b))
		copy(cp, b)
		return Bytes(cp), nil
	case majorText:
		if low == 31 {
			return Value{}, cderrors.InvalidArgument(d.op(), cderrors.ErrIndefiniteForbidden)
		}
		n, err := d.readArg(low)
		if err != nil {
			return Value{}, err
		}
		b, err := d.readN(int(n))
		if err != nil {
			return Value{}, err
		}
		if !utf8.Valid(b) {
			return Value{}, cderrors.InvalidArgument(d.op(), cderrors.ErrInvalidUTF8)
		}
		return Text(string(b)), nil
	case majorArray:
		if low == 31 {
			return Value{}, cderrors.InvalidArgument(d.op(), cderrors.ErrIndefiniteForbidden)
		}
		n, err := d.readArg(low)
		if err != nil {
			return Value{}, err
		}
		items := make([]Value, 0, n)
		for i := uint64(0); i < n; i++ {
			item, err := d.decodeValue()
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Array(items), nil
	case majorMap:
		if low == 31 {
			return Value{}, cderrors.InvalidArgument(d.op(), cderrors.ErrIndefiniteForbidden)
		}
		n, err := d.readArg(low)
		if err != nil {
			return Value{}, err
		}
		entries := make([]MapEntry, 0, n)
		var prevKeyBytes []byte
		for i := uint64(0); i < n; i++ {
			keyStart := d.pos
			key, err := d.decodeValue()
			if err != nil {
				return Value{}, err
			}
			keyBytes := d.buf[keyStart:d.pos]
			if prevKeyBytes != nil && !lessCanonical(prevKeyBytes, keyBytes) {
				return Value{}, cderrors.InvalidArgument(d.op(), cderrors.ErrInvalidStructure)
			}
			val, err := d.decodeValue()
			if err != nil {
				return Value{}, err
			}
			entries = append(entries, MapEntry{Key: key, Value: val})
			prevKeyBytes = keyBytes
		}
		return Map(entries), nil
	case majorSimple:
		switch low {
		case simpleFalse:
			return Bool(false), nil
		case simpleTrue:
			return Bool(true), nil
		case simpleNull:
			return Null(), nil
		case 25, 26, 27:
			return Value{}, cderrors.InvalidArgument(d.op(), cderrors.ErrFloatForbidden)
		default:
			return Value{}, cderrors.InvalidArgument(d.op(), cderrors.ErrInvalidStructure)
		}
	default:
		return Value{}, cderrors.InvalidArgument(d.op(), cderrors.ErrInvalidStructure)
	}
}
