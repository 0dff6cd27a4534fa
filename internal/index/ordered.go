package index

import (
	"bytes"
	"sync"

	"github.com/google/btree"

	"github.com/entidb/entidb/internal/types"
)

// orderedEntry is one (key_bytes, entity_id) pair stored in an OrderedIndex's
// btree, ordered first by key_bytes then by entity_id to allow more than one
// entity under the same key.
type orderedEntry struct {
	key types.EntityID
	b   []byte
}

func lessOrdered(a, b orderedEntry) bool {
	if c := bytes.Compare(a.b, b.b); c != 0 {
		return c < 0
	}
	return a.key.Compare(b.key) < 0
}

// OrderedIndex stores (collection_id, index_name) partitions, each backed
// by its own google/btree BTreeG for ascending traversal and half-open
// range scans. Nothing in the teacher does ordered traversal; this is new,
// grounded on the pack's btree dependency instead of a teacher file.
type OrderedIndex struct {
	mu         sync.RWMutex
	partitions map[HashKey]*btree.BTreeG[orderedEntry]
}

// NewOrderedIndex builds an empty ordered index.
func NewOrderedIndex() *OrderedIndex {
	return &OrderedIndex{partitions: make(map[HashKey]*btree.BTreeG[orderedEntry])}
}

func partitionKey(collection types.CollectionID, indexName string) HashKey {
	return HashKey{CollectionID: collection, IndexName: indexName}
}

func (o *OrderedIndex) partition(collection types.CollectionID, indexName string) *btree.BTreeG[orderedEntry] {
	pk := partitionKey(collection, indexName)
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.partitions[pk]
	if !ok {
		t = btree.NewG(32, lessOrdered)
		o.partitions[pk] = t
	}
	return t
}

// Insert adds (keyBytes, id) to the named ordered index.
func (o *OrderedIndex) Insert(collection types.CollectionID, indexName string, keyBytes []byte, id types.EntityID) {
	t := o.partition(collection, indexName)
	o.mu.Lock()
	defer o.mu.Unlock()
	t.ReplaceOrInsert(orderedEntry{b: append([]byte(nil), keyBytes...), key: id})
}

// Remove drops (keyBytes, id) from the named ordered index.
func (o *OrderedIndex) Remove(collection types.CollectionID, indexName string, keyBytes []byte, id types.EntityID) {
	pk := partitionKey(collection, indexName)
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.partitions[pk]
	if !ok {
		return
	}
	t.Delete(orderedEntry{b: keyBytes, key: id})
}

// Range returns every entity id whose key_bytes fall in [lo, hi), ascending
// by key_bytes then entity id. A nil hi means unbounded above.
func (o *OrderedIndex) Range(collection types.CollectionID, indexName string, lo, hi []byte) []types.EntityID {
	pk := partitionKey(collection, indexName)
	o.mu.RLock()
	t, ok := o.partitions[pk]
	o.mu.RUnlock()
	if !ok {
		return nil
	}

	var out []types.EntityID
	visit := func(e orderedEntry) bool {
		if hi != nil && bytes.Compare(e.b, hi) >= 0 {
			return false
		}
		out = append(out, e.key)
		return true
	}
	if lo == nil {
		t.Ascend(visit)
	} else {
		t.AscendGreaterOrEqual(orderedEntry{b: lo}, visit)
	}
	return out
}
