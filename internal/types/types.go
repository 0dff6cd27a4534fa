// Package types defines the identifiers and small value types shared by
// every layer of the engine: entity identity, collection handles, the
// monotonic commit sequence, record flags and kinds.
package types

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// EntityIDSize is the fixed wire width of an EntityId: 128 bits.
const EntityIDSize = 16

// EntityID is a 128-bit identifier, globally unique within a database,
// immutable and never reused. Equality and ordering are bytewise over the
// big-endian (UUID wire) form.
type EntityID [EntityIDSize]byte

// NewEntityID draws a fresh id from the process's entropy source.
func NewEntityID() EntityID {
	return EntityID(uuid.New())
}

// ParseEntityIDString parses s as a canonical UUID string into an EntityID.
func ParseEntityIDString(s string) (EntityID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return EntityID{}, err
	}
	return EntityID(u), nil
}

// ParseEntityID validates that b has exactly EntityIDSize bytes.
func ParseEntityID(b []byte) (EntityID, bool) {
	var id EntityID
	if len(b) != EntityIDSize {
		return id, false
	}
	copy(id[:], b)
	return id, true
}

// Compare returns -1, 0, or 1 comparing the big-endian byte form.
func (id EntityID) Compare(other EntityID) int {
	return bytes.Compare(id[:], other[:])
}

func (id EntityID) String() string {
	return uuid.UUID(id).String()
}

// Bytes returns the raw 16-byte wire form.
func (id EntityID) Bytes() []byte {
	b := make([]byte, EntityIDSize)
	copy(b, id[:])
	return b
}

// CollectionID is a 32-bit handle assigned monotonically when a collection
// name is first registered in the manifest. Once assigned, stable for the
// lifetime of the database.
type CollectionID uint32

// Sequence is the 64-bit monotonic commit counter that defines visibility
// and ordering of every committed mutation.
type Sequence uint64

// Flags holds per-record bits. Bit 0 is the tombstone marker; bit 1 (0x02)
// is reserved for a future FTS/encryption extension and must never be set
// by this implementation.
type Flags uint8

const (
	FlagTombstone Flags = 1 << 0
	FlagReserved  Flags = 1 << 1
)

func (f Flags) IsTombstone() bool { return f&FlagTombstone != 0 }

// RecordKind enumerates the WAL record kinds.
type RecordKind uint8

const (
	RecordBegin RecordKind = iota + 1
	RecordPut
	RecordDelete
	RecordCommit
	RecordAbort
	RecordCheckpoint
)

func (k RecordKind) String() string {
	switch k {
	case RecordBegin:
		return "BEGIN"
	case RecordPut:
		return "PUT"
	case RecordDelete:
		return "DELETE"
	case RecordCommit:
		return "COMMIT"
	case RecordAbort:
		return "ABORT"
	case RecordCheckpoint:
		return "CHECKPOINT"
	default:
		return "UNKNOWN"
	}
}

// TxnID identifies a transaction for the lifetime of its begin..commit/abort.
type TxnID uint64

// TxnState is the transaction lifecycle state.
type TxnState byte

const (
	TxnActive TxnState = iota + 1
	TxnCommitting
	TxnCommitted
	TxnAborted
)

// ChangeKind distinguishes a change-feed event's mutation kind.
type ChangeKind byte

const (
	ChangePut ChangeKind = iota + 1
	ChangeDelete
)

// ChangeEvent is one entry in the change feed, emitted once per mutation
// of a committed transaction, in commit order.
type ChangeEvent struct {
	Sequence     Sequence
	CollectionID CollectionID
	EntityID     EntityID
	Kind         ChangeKind
	Payload      []byte // nil for ChangeDelete
}

// Mutation is a single pending write inside an open transaction: either a
// put (Payload != nil) or a delete (Tombstone true).
type Mutation struct {
	CollectionID CollectionID
	EntityID     EntityID
	Payload      []byte
	Tombstone    bool
	IndexOps     []IndexOp
}

// IndexKind distinguishes the two user-facing secondary index shapes.
type IndexKind byte

const (
	IndexHash IndexKind = iota + 1
	IndexOrdered
)

// IndexOp is one secondary-index update the client attaches to a mutation
// so it lands in the same commit barrier as the put/delete it describes,
// instead of as a separate, independently-visible write. Remove without a
// matching prior Insert is a harmless no-op.
type IndexOp struct {
	Kind     IndexKind
	Name     string
	KeyBytes []byte
	Remove   bool
}

// Entity pairs an entity id with its current payload, the shape list()
// returns.
type Entity struct {
	ID      EntityID
	Payload []byte
}

// DBStatus mirrors a collection's lifecycle status inside the manifest.
type DBStatus byte

const (
	StatusActive DBStatus = iota + 1
	StatusDeleted
)

// CollectionMeta is the manifest's per-collection bookkeeping entry.
type CollectionMeta struct {
	ID        CollectionID
	Name      string
	CreatedAt time.Time
	Status    DBStatus
}

// Stats summarizes current database state for the CLI's inspect/stats verbs.
type Stats struct {
	Collections      int
	LiveEntities     uint64
	TombstonedCount  uint64
	SegmentCount     int
	WALBytes         uint64
	LastSequence     Sequence
	LastCompactionAt time.Time
}
