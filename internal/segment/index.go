package segment

import (
	"sync"

	"github.com/entidb/entidb/internal/types"
)

// DefaultNumShards is the primary index's shard count, tunable for
// contention vs memory overhead, mirroring the teacher's sharded IndexShard
// design (shard selection there was docID%numShards; here it is a hash of
// the composite (collection_id, entity_id) key).
const DefaultNumShards = 256

// Key is the primary index's composite key.
type Key struct {
	CollectionID types.CollectionID
	EntityID     types.EntityID
}

func (k Key) shardHash() uint64 {
	// FNV-1a over collection_id followed by entity_id bytes.
	h := uint64(14695981039346656037)
	for _, b := range []byte{
		byte(k.CollectionID), byte(k.CollectionID >> 8),
		byte(k.CollectionID >> 16), byte(k.CollectionID >> 24),
	} {
		h ^= uint64(b)
		h *= 1099511628211
	}
	for _, b := range k.EntityID {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return h
}

// Entry is the primary index's value: the location and visibility metadata
// of the single dominant (highest-sequence) record for a key.
type Entry struct {
	SegmentID    uint64
	Offset       int64
	Length       int
	Sequence     types.Sequence
	Tombstone    bool
}

type shard struct {
	mu   sync.RWMutex
	data map[Key]Entry
}

func newShard() *shard {
	return &shard{data: make(map[Key]Entry)}
}

func (s *shard) get(k Key) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[k]
	return e, ok
}

// set installs e for k only if e dominates whatever is currently present
// (strictly higher sequence), matching the dominance rule. Returns true if
// the entry was installed.
func (s *shard) set(k Key, e Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.data[k]
	if ok && cur.Sequence >= e.Sequence {
		return false
	}
	s.data[k] = e
	return true
}

func (s *shard) delete(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, k)
}

func (s *shard) snapshot() map[Key]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Key]Entry, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// PrimaryIndex is the in-memory mapping (collection_id, entity_id) →
// {segment_id, record_offset, record_length, sequence, tombstone_flag}.
// Every key maps to exactly one live record: the one with the highest
// sequence; a tombstone entry suppresses any strictly-earlier version.
type PrimaryIndex struct {
	shards []*shard
}

// NewPrimaryIndex builds an index with DefaultNumShards shards.
func NewPrimaryIndex() *PrimaryIndex {
	return NewPrimaryIndexWithShards(DefaultNumShards)
}

func NewPrimaryIndexWithShards(n int) *PrimaryIndex {
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = newShard()
	}
	return &PrimaryIndex{shards: shards}
}

func (idx *PrimaryIndex) shardFor(k Key) *shard {
	return idx.shards[k.shardHash()%uint64(len(idx.shards))]
}

// Get returns the current dominant entry for k, if any, including
// tombstones (the caller decides whether a tombstone means "not found").
func (idx *PrimaryIndex) Get(k Key) (Entry, bool) {
	return idx.shardFor(k).get(k)
}

// Put installs e for k if it dominates (sequence strictly higher than any
// existing entry); this is how both live records and tombstones are
// recorded, since a tombstone is simply an Entry with Tombstone=true.
func (idx *PrimaryIndex) Put(k Key, e Entry) bool {
	return idx.shardFor(k).set(k, e)
}

// Remove drops k unconditionally (used by compaction to evict tombstones
// no longer needed by any open reader snapshot).
func (idx *PrimaryIndex) Remove(k Key) {
	idx.shardFor(k).delete(k)
}

// ForEach visits every (key, entry) pair in the index. Iteration order is
// unspecified.
func (idx *PrimaryIndex) ForEach(fn func(Key, Entry)) {
	for _, s := range idx.shards {
		for k, v := range s.snapshot() {
			fn(k, v)
		}
	}
}

// LiveCount returns the number of non-tombstone entries.
func (idx *PrimaryIndex) LiveCount() uint64 {
	var n uint64
	idx.ForEach(func(_ Key, e Entry) {
		if !e.Tombstone {
			n++
		}
	})
	return n
}

// TombstoneCount returns the number of tombstone entries.
func (idx *PrimaryIndex) TombstoneCount() uint64 {
	var n uint64
	idx.ForEach(func(_ Key, e Entry) {
		if e.Tombstone {
			n++
		}
	})
	return n
}

// SnapshotRegistry tracks the set of currently-open reader snapshot
// sequences, so compaction can decide which tombstones are still needed:
// a tombstone is retained only while some open snapshot predates it.
type SnapshotRegistry struct {
	mu    sync.Mutex
	open  map[uint64]types.Sequence
	nextH uint64
}

func NewSnapshotRegistry() *SnapshotRegistry {
	return &SnapshotRegistry{open: make(map[uint64]types.Sequence)}
}

// Acquire registers a new open snapshot at seq, returning a handle to
// release later.
func (r *SnapshotRegistry) Acquire(seq types.Sequence) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextH++
	h := r.nextH
	r.open[h] = seq
	return h
}

// Release closes the snapshot identified by handle.
func (r *SnapshotRegistry) Release(handle uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.open, handle)
}

// OldestOpen returns the lowest sequence among currently open snapshots,
// and whether any snapshot is open at all.
func (r *SnapshotRegistry) OldestOpen() (types.Sequence, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.open) == 0 {
		return 0, false
	}
	first := true
	var oldest types.Sequence
	for _, seq := range r.open {
		if first || seq < oldest {
			oldest = seq
			first = false
		}
	}
	return oldest, true
}
