package database

import (
	"fmt"
	"sync"

	"github.com/entidb/entidb/internal/errors"
	"github.com/entidb/entidb/internal/index"
	"github.com/entidb/entidb/internal/types"
)

// indexRegistry tracks which (collection, name) secondary indexes a client
// has declared, and their kind. It exists only in memory: per the primary
// index's own recovery rule, secondary indexes are rebuilt (here: simply
// re-declared) by the client after Open, never replayed from the WAL or
// segment store.
type indexRegistry struct {
	mu      sync.RWMutex
	entries map[index.HashKey]types.IndexKind
}

func newIndexRegistry() *indexRegistry {
	return &indexRegistry{entries: make(map[index.HashKey]types.IndexKind)}
}

func (r *indexRegistry) declare(key index.HashKey, kind types.IndexKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[key]; ok && existing != kind {
		return errors.InvalidArgument("database.CreateIndex",
			fmt.Errorf("index %q on collection already declared as a different kind", key.IndexName))
	}
	r.entries[key] = kind
	return nil
}

func (r *indexRegistry) kindOf(key index.HashKey) (types.IndexKind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kind, ok := r.entries[key]
	return kind, ok
}

// CreateHashIndex declares name as a hash (equality-lookup) index on
// collection. Declaring the same name twice with the same kind is a no-op;
// declaring it again as an ordered index is an error.
func (db *Database) CreateHashIndex(collection, name string) error {
	collID, err := db.Collection(collection)
	if err != nil {
		return err
	}
	return db.indexes.declare(index.HashKey{CollectionID: collID, IndexName: name}, types.IndexHash)
}

// CreateOrderedIndex declares name as an ordered (range-scan) index on
// collection.
func (db *Database) CreateOrderedIndex(collection, name string) error {
	collID, err := db.Collection(collection)
	if err != nil {
		return err
	}
	return db.indexes.declare(index.HashKey{CollectionID: collID, IndexName: name}, types.IndexOrdered)
}

// applyIndexOps performs every index.IndexOp attached to a mutation that has
// already been made durable. Called only from inside CommitBatch, under the
// single-writer serialization, so an index lookup can never observe the op
// without the mutation it describes, or vice versa.
func (db *Database) applyIndexOps(collection types.CollectionID, id types.EntityID, ops []types.IndexOp) {
	for _, op := range ops {
		switch op.Kind {
		case types.IndexOrdered:
			if op.Remove {
				db.orderedIdx.Remove(collection, op.Name, op.KeyBytes, id)
			} else {
				db.orderedIdx.Insert(collection, op.Name, op.KeyBytes, id)
			}
		default: // types.IndexHash, and the zero value for callers that don't set Kind
			key := index.HashKey{CollectionID: collection, IndexName: op.Name, KeyBytes: string(op.KeyBytes)}
			if op.Remove {
				db.hashIdx.Remove(key, id)
			} else {
				db.hashIdx.Insert(key, id)
			}
		}
	}
}

// IndexInsert adds (key, id) to the named hash index directly, outside any
// commit barrier. Intended for backfilling an index over data written
// before the index was declared; client code that wants index.insert
// applied atomically with its put should use Tx.PutIndexed instead.
func (db *Database) IndexInsert(collection string, name string, key []byte, id types.EntityID) error {
	collID, err := db.Collection(collection)
	if err != nil {
		return err
	}
	db.hashIdx.Insert(index.HashKey{CollectionID: collID, IndexName: name, KeyBytes: string(key)}, id)
	return nil
}

// IndexRemove drops (key, id) from the named hash index directly.
func (db *Database) IndexRemove(collection string, name string, key []byte, id types.EntityID) error {
	collID, ok := db.man.Collection(collection)
	if !ok {
		return nil
	}
	db.hashIdx.Remove(index.HashKey{CollectionID: collID, IndexName: name, KeyBytes: string(key)}, id)
	return nil
}

// IndexLookup returns every entity id currently indexed under key in the
// named hash index.
func (db *Database) IndexLookup(collection string, name string, key []byte) ([]types.EntityID, error) {
	collID, ok := db.man.Collection(collection)
	if !ok {
		return nil, nil
	}
	return db.hashIdx.Lookup(index.HashKey{CollectionID: collID, IndexName: name, KeyBytes: string(key)}), nil
}

// IndexRange returns every entity id in the named ordered index whose key
// falls in [lo, hi). A nil hi means unbounded above.
func (db *Database) IndexRange(collection string, name string, lo, hi []byte) ([]types.EntityID, error) {
	collID, ok := db.man.Collection(collection)
	if !ok {
		return nil, nil
	}
	return db.orderedIdx.Range(collID, name, lo, hi), nil
}
