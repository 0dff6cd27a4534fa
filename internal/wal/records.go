package wal

import (
	"github.com/entidb/entidb/internal/errors"
	"github.com/entidb/entidb/internal/types"
)

// Per-kind payload field sizes.
const (
	txIDSize       = 8
	collIDSize     = 4
	entityIDSize   = types.EntityIDSize
	seqSize        = 8
	segIDSize      = 8
	payloadLenSize = 4
)

// EncodeBegin builds the payload for a BEGIN(txid) record.
func EncodeBegin(txid types.TxnID) []byte {
	buf := make([]byte, txIDSize)
	byteOrder.PutUint64(buf, uint64(txid))
	return buf
}

// DecodeBegin parses a BEGIN payload.
func DecodeBegin(p []byte) (types.TxnID, error) {
	if len(p) != txIDSize {
		return 0, errors.Corruption("wal.DecodeBegin", errors.ErrCorruptRecord)
	}
	return types.TxnID(byteOrder.Uint64(p)), nil
}

// EncodePut builds the payload for a PUT(txid, collection_id, entity_id, payload) record.
func EncodePut(txid types.TxnID, coll types.CollectionID, id types.EntityID, payload []byte) []byte {
	buf := make([]byte, txIDSize+collIDSize+entityIDSize+payloadLenSize+len(payload))
	off := 0
	byteOrder.PutUint64(buf[off:], uint64(txid))
	off += txIDSize
	byteOrder.PutUint32(buf[off:], uint32(coll))
	off += collIDSize
	copy(buf[off:], id[:])
	off += entityIDSize
	byteOrder.PutUint32(buf[off:], uint32(len(payload)))
	off += payloadLenSize
	copy(buf[off:], payload)
	return buf
}

// PutRecord is the decoded form of a PUT payload.
type PutRecord struct {
	TxnID        types.TxnID
	CollectionID types.CollectionID
	EntityID     types.EntityID
	Payload      []byte
}

func DecodePut(p []byte) (PutRecord, error) {
	min := txIDSize + collIDSize + entityIDSize + payloadLenSize
	if len(p) < min {
		return PutRecord{}, errors.Corruption("wal.DecodePut", errors.ErrCorruptRecord)
	}
	off := 0
	txid := types.TxnID(byteOrder.Uint64(p[off:]))
	off += txIDSize
	coll := types.CollectionID(byteOrder.Uint32(p[off:]))
	off += collIDSize
	var id types.EntityID
	copy(id[:], p[off:off+entityIDSize])
	off += entityIDSize
	plen := byteOrder.Uint32(p[off:])
	off += payloadLenSize
	if len(p) != off+int(plen) {
		return PutRecord{}, errors.Corruption("wal.DecodePut", errors.ErrCorruptRecord)
	}
	payload := make([]byte, plen)
	copy(payload, p[off:])
	return PutRecord{TxnID: txid, CollectionID: coll, EntityID: id, Payload: payload}, nil
}

// EncodeDelete builds the payload for a DELETE(txid, collection_id, entity_id) record.
func EncodeDelete(txid types.TxnID, coll types.CollectionID, id types.EntityID) []byte {
	buf := make([]byte, txIDSize+collIDSize+entityIDSize)
	off := 0
	byteOrder.PutUint64(buf[off:], uint64(txid))
	off += txIDSize
	byteOrder.PutUint32(buf[off:], uint32(coll))
	off += collIDSize
	copy(buf[off:], id[:])
	return buf
}

// DeleteRecord is the decoded form of a DELETE payload.
type DeleteRecord struct {
	TxnID        types.TxnID
	CollectionID types.CollectionID
	EntityID     types.EntityID
}

func DecodeDelete(p []byte) (DeleteRecord, error) {
	want := txIDSize + collIDSize + entityIDSize
	if len(p) != want {
		return DeleteRecord{}, errors.Corruption("wal.DecodeDelete", errors.ErrCorruptRecord)
	}
	off := 0
	txid := types.TxnID(byteOrder.Uint64(p[off:]))
	off += txIDSize
	coll := types.CollectionID(byteOrder.Uint32(p[off:]))
	off += collIDSize
	var id types.EntityID
	copy(id[:], p[off:off+entityIDSize])
	return DeleteRecord{TxnID: txid, CollectionID: coll, EntityID: id}, nil
}

// EncodeCommit builds the payload for a COMMIT(txid, commit_sequence) record.
func EncodeCommit(txid types.TxnID, seq types.Sequence) []byte {
	buf := make([]byte, txIDSize+seqSize)
	byteOrder.PutUint64(buf[0:], uint64(txid))
	byteOrder.PutUint64(buf[txIDSize:], uint64(seq))
	return buf
}

// CommitRecord is the decoded form of a COMMIT payload.
type CommitRecord struct {
	TxnID    types.TxnID
	Sequence types.Sequence
}

func DecodeCommit(p []byte) (CommitRecord, error) {
	if len(p) != txIDSize+seqSize {
		return CommitRecord{}, errors.Corruption("wal.DecodeCommit", errors.ErrCorruptRecord)
	}
	return CommitRecord{
		TxnID:    types.TxnID(byteOrder.Uint64(p[0:])),
		Sequence: types.Sequence(byteOrder.Uint64(p[txIDSize:])),
	}, nil
}

// EncodeAbort builds the payload for an ABORT(txid) record.
func EncodeAbort(txid types.TxnID) []byte {
	buf := make([]byte, txIDSize)
	byteOrder.PutUint64(buf, uint64(txid))
	return buf
}

func DecodeAbort(p []byte) (types.TxnID, error) {
	if len(p) != txIDSize {
		return 0, errors.Corruption("wal.DecodeAbort", errors.ErrCorruptRecord)
	}
	return types.TxnID(byteOrder.Uint64(p)), nil
}

// EncodeCheckpoint builds the payload for a CHECKPOINT(segment_id, upto_sequence) record.
func EncodeCheckpoint(segmentID uint64, upto types.Sequence) []byte {
	buf := make([]byte, segIDSize+seqSize)
	byteOrder.PutUint64(buf[0:], segmentID)
	byteOrder.PutUint64(buf[segIDSize:], uint64(upto))
	return buf
}

// CheckpointRecord is the decoded form of a CHECKPOINT payload.
type CheckpointRecord struct {
	SegmentID    uint64
	UptoSequence types.Sequence
}

func DecodeCheckpoint(p []byte) (CheckpointRecord, error) {
	if len(p) != segIDSize+seqSize {
		return CheckpointRecord{}, errors.Corruption("wal.DecodeCheckpoint", errors.ErrCorruptRecord)
	}
	return CheckpointRecord{
		SegmentID:    byteOrder.Uint64(p[0:]),
		UptoSequence: types.Sequence(byteOrder.Uint64(p[segIDSize:])),
	}, nil
}
