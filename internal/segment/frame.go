// Package segment implements the log-structured segment store: sealed
// immutable segment files of entity records, the in-memory sharded primary
// index built from them, and compaction.
//
// Grounded on the teacher's internal/docdb/index.go (sharded IndexShard
// primary index) and internal/docdb/compaction.go (rewrite-then-atomic-
// promote compaction), generalized from the teacher's per-document offset
// table to this engine's (collection_id, entity_id) keyed primary index
// with sequence-based dominance and tombstones.
package segment

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/entidb/entidb/internal/errors"
	"github.com/entidb/entidb/internal/types"
)

var byteOrder = binary.LittleEndian

const (
	recordLenSize  = 4
	collIDSize     = 4
	entityIDSize   = types.EntityIDSize
	flagsSize      = 1
	seqSize        = 8
	payloadLenSize = 4
	crcSize        = 4

	recordOverhead = recordLenSize + collIDSize + entityIDSize + flagsSize + seqSize + payloadLenSize + crcSize

	trailerCountSize = 8
	trailerCRCSize   = 4
	TrailerSize      = trailerCountSize + trailerCRCSize

	// MaxPayloadSize bounds a single record's payload.
	MaxPayloadSize = 64 * 1024 * 1024
)

// Record is one decoded entity record from a segment file.
type Record struct {
	CollectionID types.CollectionID
	EntityID     types.EntityID
	Flags        types.Flags
	Sequence     types.Sequence
	Payload      []byte
}

// EncodeRecord renders one entity record:
// record_len | collection_id | entity_id | flags | sequence | payload_len | payload | crc32.
// record_len covers every field except itself and the trailing crc32.
func EncodeRecord(r Record) ([]byte, error) {
	if len(r.Payload) > MaxPayloadSize {
		return nil, errors.InvalidArgument("segment.EncodeRecord", errors.ErrPayloadTooLarge)
	}

	body := collIDSize + entityIDSize + flagsSize + seqSize + payloadLenSize + len(r.Payload)
	buf := make([]byte, recordLenSize+body+crcSize)

	off := 0
	byteOrder.PutUint32(buf[off:], uint32(body))
	off += recordLenSize

	byteOrder.PutUint32(buf[off:], uint32(r.CollectionID))
	off += collIDSize

	copy(buf[off:], r.EntityID[:])
	off += entityIDSize

	buf[off] = byte(r.Flags)
	off += flagsSize

	byteOrder.PutUint64(buf[off:], uint64(r.Sequence))
	off += seqSize

	byteOrder.PutUint32(buf[off:], uint32(len(r.Payload)))
	off += payloadLenSize

	copy(buf[off:], r.Payload)
	off += len(r.Payload)

	crc := crc32.ChecksumIEEE(buf[recordLenSize:off])
	byteOrder.PutUint32(buf[off:], crc)

	return buf, nil
}

// DecodeRecord parses one record from the head of buf, returning the
// record and the number of bytes consumed.
func DecodeRecord(buf []byte) (Record, int, error) {
	if len(buf) < recordLenSize {
		return Record{}, 0, errors.Corruption("segment.DecodeRecord", errors.ErrShortRead)
	}
	off := 0
	bodyLen := byteOrder.Uint32(buf[off:])
	off += recordLenSize

	if bodyLen > MaxPayloadSize+uint32(collIDSize+entityIDSize+flagsSize+seqSize+payloadLenSize) {
		return Record{}, 0, errors.Corruption("segment.DecodeRecord", errors.ErrCorruptRecord)
	}

	total := recordLenSize + int(bodyLen) + crcSize
	if len(buf) < total {
		return Record{}, 0, errors.Corruption("segment.DecodeRecord", errors.ErrShortRead)
	}

	coll := types.CollectionID(byteOrder.Uint32(buf[off:]))
	off += collIDSize

	var id types.EntityID
	copy(id[:], buf[off:off+entityIDSize])
	off += entityIDSize

	flags := types.Flags(buf[off])
	off += flagsSize

	seq := types.Sequence(byteOrder.Uint64(buf[off:]))
	off += seqSize

	plen := byteOrder.Uint32(buf[off:])
	off += payloadLenSize

	if off+int(plen) > len(buf) {
		return Record{}, 0, errors.Corruption("segment.DecodeRecord", errors.ErrCorruptRecord)
	}
	payload := make([]byte, plen)
	copy(payload, buf[off:off+int(plen)])
	off += int(plen)

	storedCRC := byteOrder.Uint32(buf[off:])
	computedCRC := crc32.ChecksumIEEE(buf[recordLenSize:off])
	if storedCRC != computedCRC {
		return Record{}, total, errors.Corruption("segment.DecodeRecord", errors.ErrCRCMismatch)
	}

	return Record{
		CollectionID: coll,
		EntityID:     id,
		Flags:        flags,
		Sequence:     seq,
		Payload:      payload,
	}, total, nil
}

// EncodeTrailer renders a segment trailer: record_count | trailer_crc,
// where trailer_crc covers the entire payload area (every record byte
// preceding the trailer).
func EncodeTrailer(recordCount uint64, payloadArea []byte) []byte {
	buf := make([]byte, TrailerSize)
	byteOrder.PutUint64(buf[0:], recordCount)
	crc := crc32.ChecksumIEEE(payloadArea)
	byteOrder.PutUint32(buf[trailerCountSize:], crc)
	return buf
}

// DecodeTrailer parses and validates a trailer against payloadArea.
func DecodeTrailer(buf []byte, payloadArea []byte) (recordCount uint64, err error) {
	if len(buf) != TrailerSize {
		return 0, errors.Corruption("segment.DecodeTrailer", errors.ErrCorruptRecord)
	}
	recordCount = byteOrder.Uint64(buf[0:])
	storedCRC := byteOrder.Uint32(buf[trailerCountSize:])
	computedCRC := crc32.ChecksumIEEE(payloadArea)
	if storedCRC != computedCRC {
		return 0, errors.Corruption("segment.DecodeTrailer", errors.ErrTrailerMismatch)
	}
	return recordCount, nil
}
