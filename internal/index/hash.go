// Package index implements the two user-facing secondary index shapes:
// a hash index for equality lookup and an ordered index for range scans.
// Both are populated only by client-supplied key bytes at put time, never
// derived implicitly from payloads, and updated atomically within the
// commit barrier by the database facade.
//
// The hash index generalizes the teacher's internal/docdb/index.go sharded
// IndexShard (there keyed by docID alone) to a composite
// (collection_id, index_name, key_bytes) key with a set-of-entity-id value.
package index

import (
	"sync"

	"github.com/entidb/entidb/internal/types"
)

// DefaultShards mirrors the primary index's shard count.
const DefaultShards = 256

// HashKey identifies one entry of a named hash index.
type HashKey struct {
	CollectionID types.CollectionID
	IndexName    string
	KeyBytes     string // string(key bytes); Go strings are comparable map keys
}

type hashShard struct {
	mu   sync.RWMutex
	data map[HashKey]map[types.EntityID]struct{}
}

func newHashShard() *hashShard {
	return &hashShard{data: make(map[HashKey]map[types.EntityID]struct{})}
}

// HashIndex is a sharded equality index: key_bytes → set of entity_id.
type HashIndex struct {
	shards []*hashShard
}

// NewHashIndex builds a hash index with DefaultShards shards.
func NewHashIndex() *HashIndex {
	shards := make([]*hashShard, DefaultShards)
	for i := range shards {
		shards[i] = newHashShard()
	}
	return &HashIndex{shards: shards}
}

func (h *HashIndex) shardFor(k HashKey) *hashShard {
	sum := fnv1a([]byte(k.KeyBytes))
	sum ^= fnv1a([]byte(k.IndexName))
	sum ^= uint64(k.CollectionID)
	return h.shards[sum%uint64(len(h.shards))]
}

func fnv1a(b []byte) uint64 {
	h := uint64(14695981039346656037)
	for _, c := range b {
		h ^= uint64(c)
		h *= 1099511628211
	}
	return h
}

// Insert adds id to the set for key. Idempotent.
func (h *HashIndex) Insert(key HashKey, id types.EntityID) {
	s := h.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.data[key]
	if !ok {
		set = make(map[types.EntityID]struct{})
		s.data[key] = set
	}
	set[id] = struct{}{}
}

// Remove drops id from the set for key.
func (h *HashIndex) Remove(key HashKey, id types.EntityID) {
	s := h.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.data[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(s.data, key)
	}
}

// Lookup returns every entity id currently indexed under key.
func (h *HashIndex) Lookup(key HashKey) []types.EntityID {
	s := h.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.data[key]
	out := make([]types.EntityID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
