// Package database implements the Database facade: the single entry point
// that owns the advisory lock, manifest, WAL, segment store, transaction
// manager, indexes and change feed for one database directory.
//
// Grounded on the teacher's internal/docdb/core.go (LogicalDB) stripped of
// its partition/worker-pool/2PC machinery, since this engine enforces a
// single writer directly rather than coordinating multiple partitions.
package database

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/entidb/entidb/internal/changefeed"
	"github.com/entidb/entidb/internal/config"
	"github.com/entidb/entidb/internal/errors"
	"github.com/entidb/entidb/internal/index"
	"github.com/entidb/entidb/internal/logger"
	"github.com/entidb/entidb/internal/manifest"
	"github.com/entidb/entidb/internal/metrics"
	"github.com/entidb/entidb/internal/segment"
	"github.com/entidb/entidb/internal/txn"
	"github.com/entidb/entidb/internal/types"
	"github.com/entidb/entidb/internal/wal"
	"github.com/entidb/entidb/internal/workers"
)

// Database is the opened, single-writer handle to one database directory.
type Database struct {
	mu     sync.RWMutex
	closed bool

	dir  string
	cfg  *config.Config
	log  *logger.Logger
	lock *flock.Flock

	man      *manifest.Manifest
	segments *segment.Manager
	wal      *wal.Manager
	txns     *txn.Manager
	feed     *changefeed.Feed

	hashIdx    *index.HashIndex
	orderedIdx *index.OrderedIndex
	indexes    *indexRegistry

	scheduler *workers.Scheduler
	metrics   *metrics.Metrics
}

// Open opens (creating if necessary) the database directory at dir: it
// acquires the cross-process advisory lock, loads the manifest, rebuilds
// the primary index from sealed segments, replays the WAL for any
// committed transactions not yet represented in a sealed segment, and
// returns a ready Database reporting the recovered last_committed_sequence.
func Open(dir string, cfg *config.Config, log *logger.Logger) (*Database, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.Default()
	}

	lock := flock.New(filepath.Join(dir, "LOCK"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, errors.IoError("database.Open", err)
	}
	if !ok {
		return nil, errors.Transaction("database.Open", errors.ErrWriterBusy)
	}

	man, err := manifest.Load(filepath.Join(dir, "MANIFEST"))
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	segMgr, err := segment.Open(filepath.Join(dir, "SEGMENTS"), log)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	if err := segMgr.Rebuild(); err != nil {
		lock.Unlock()
		return nil, err
	}

	walMgr, err := wal.Open(filepath.Join(dir, "WAL"), cfg.WAL.MaxFileSizeMB, log)
	if err != nil {
		segMgr.Close()
		lock.Unlock()
		return nil, err
	}

	replay, err := walMgr.ReplayAll()
	if err != nil {
		walMgr.Close()
		segMgr.Close()
		lock.Unlock()
		return nil, err
	}

	feed := changefeed.New(0)
	lastSeq := man.LastSequence
	for _, committed := range replay.Committed {
		if committed.Sequence <= man.LastCheckpoint {
			// Already durable in a sealed segment as of the last checkpoint.
			continue
		}
		if err := segMgr.AppendCommit(committed.Mutations, committed.Sequence); err != nil {
			walMgr.Close()
			segMgr.Close()
			lock.Unlock()
			return nil, err
		}
		feed.AppendBatch(committed.Sequence, committed.Mutations)
		if committed.Sequence > lastSeq {
			lastSeq = committed.Sequence
		}
	}

	db := &Database{
		dir:        dir,
		cfg:        cfg,
		log:        log,
		lock:       lock,
		man:        man,
		segments:   segMgr,
		wal:        walMgr,
		feed:       feed,
		hashIdx:    index.NewHashIndex(),
		orderedIdx: index.NewOrderedIndex(),
		indexes:    newIndexRegistry(),
		metrics:    metrics.New(),
	}
	db.txns = txn.NewManager(lastSeq, segMgr.Snapshots(), db)

	sched, err := workers.NewScheduler(cfg.Workers.PoolSize, log)
	if err != nil {
		walMgr.Close()
		segMgr.Close()
		lock.Unlock()
		return nil, errors.IoError("database.Open", err)
	}
	db.scheduler = sched
	if cfg.Checkpoint.AutoCreate {
		sched.RunPeriodic(db, cfg.Checkpoint.Interval, cfg.Compaction.CheckInterval)
	}

	log.Info("database opened at %s, recovered last_committed_sequence=%d", dir, lastSeq)
	return db, nil
}

// Close flushes and releases every owned resource: the WAL, the segment
// store, the manifest, and the directory lock.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true

	if db.scheduler != nil {
		db.scheduler.Stop()
	}

	var firstErr error
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	note(db.wal.Close())
	note(db.segments.Close())
	note(db.man.Save())
	if err := db.lock.Unlock(); err != nil {
		note(errors.IoError("database.Close", err))
	}
	return firstErr
}

func (db *Database) checkOpen() error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return errors.Transaction("database", errors.ErrDatabaseClosed)
	}
	return nil
}

// Begin opens a new write transaction.
func (db *Database) Begin() (*txn.Tx, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	return db.txns.Begin(), nil
}

// Commit durably commits tx's buffered mutations and returns its commit
// sequence.
func (db *Database) Commit(tx *txn.Tx) (types.Sequence, error) {
	return db.txns.Commit(tx)
}

// Abort discards tx's buffered mutations.
func (db *Database) Abort(tx *txn.Tx) error {
	return db.txns.Abort(tx)
}

// CommitBatch implements txn.Committer: it is the durable portion of
// commit, steps 2-4 of the five-step protocol.
func (db *Database) CommitBatch(id types.TxnID, mutations []types.Mutation, seq types.Sequence) error {
	start := time.Now()
	if err := db.commitBatch(id, mutations, seq); err != nil {
		db.metrics.RecordError(err)
		return err
	}
	db.metrics.CommitsTotal.Inc()
	db.metrics.CommitDuration.Observe(time.Since(start).Seconds())
	return nil
}

func (db *Database) commitBatch(id types.TxnID, mutations []types.Mutation, seq types.Sequence) error {
	if err := db.wal.AppendBegin(id); err != nil {
		return err
	}
	for _, mut := range mutations {
		if mut.Tombstone {
			if err := db.wal.AppendDelete(id, mut.CollectionID, mut.EntityID); err != nil {
				return err
			}
			continue
		}
		if err := db.wal.AppendPut(id, mut.CollectionID, mut.EntityID, mut.Payload); err != nil {
			return err
		}
	}
	if err := db.wal.AppendCommit(id, seq); err != nil {
		return err
	}
	flushStart := time.Now()
	if err := db.wal.Flush(); err != nil {
		return err
	}
	db.metrics.WALFlushDuration.Observe(time.Since(flushStart).Seconds())

	if err := db.segments.AppendCommit(mutations, seq); err != nil {
		return err
	}
	db.feed.AppendBatch(seq, mutations)
	for _, mut := range mutations {
		if len(mut.IndexOps) > 0 {
			db.applyIndexOps(mut.CollectionID, mut.EntityID, mut.IndexOps)
		}
	}
	db.metrics.ChangeFeedDepth.Set(float64(db.feed.Depth()))
	return nil
}

// Metrics returns the database's Prometheus collector bundle, for a process
// embedding the engine to register on its own handler (e.g.
// promhttp.HandlerFor(db.Metrics().Registry, ...)).
func (db *Database) Metrics() *metrics.Metrics { return db.metrics }

// AbortBatch implements txn.Committer: it records an informational ABORT
// record; replay drops any BEGIN/PUT/DELETE already written for this txn.
func (db *Database) AbortBatch(id types.TxnID) error {
	if err := db.wal.AppendAbort(id); err != nil {
		return err
	}
	return db.wal.Flush()
}

// Collection returns the id for name, registering and persisting it if
// this is the first time it has been seen.
func (db *Database) Collection(name string) (types.CollectionID, error) {
	id := db.man.EnsureCollection(name)
	if err := db.man.Save(); err != nil {
		return 0, err
	}
	return id, nil
}

// Put durably writes payload for (collection, id) as an implicit
// single-mutation transaction.
func (db *Database) Put(collection string, id types.EntityID, payload []byte) error {
	collID, err := db.Collection(collection)
	if err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := tx.Put(collID, id, payload); err != nil {
		db.Abort(tx)
		return err
	}
	_, err = db.Commit(tx)
	return err
}

// PutIndexed durably writes payload for (collection, id) as an implicit
// single-mutation transaction, applying ops to the database's secondary
// indexes atomically within the same commit barrier.
func (db *Database) PutIndexed(collection string, id types.EntityID, payload []byte, ops []types.IndexOp) error {
	collID, err := db.Collection(collection)
	if err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := tx.PutIndexed(collID, id, payload, ops); err != nil {
		db.Abort(tx)
		return err
	}
	_, err = db.Commit(tx)
	return err
}

// Delete durably tombstones (collection, id) as an implicit
// single-mutation transaction.
func (db *Database) Delete(collection string, id types.EntityID) error {
	collID, err := db.Collection(collection)
	if err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := tx.Delete(collID, id); err != nil {
		db.Abort(tx)
		return err
	}
	_, err = db.Commit(tx)
	return err
}

// Get returns the current payload for (collection, id), or ok=false if
// absent or tombstoned.
func (db *Database) Get(collection string, id types.EntityID) ([]byte, bool, error) {
	collID, ok := db.man.Collection(collection)
	if !ok {
		return nil, false, nil
	}
	entry, ok := db.segments.Index().Get(segment.Key{CollectionID: collID, EntityID: id})
	if !ok || entry.Tombstone {
		return nil, false, nil
	}
	payload, err := db.segments.ReadPayload(entry)
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// GetTx resolves (collection, id) the way tx would see it if it committed
// right now: its own buffered mutations take priority over the committed
// primary index, giving read-your-writes within an open transaction.
func (db *Database) GetTx(tx *txn.Tx, collection string, id types.EntityID) ([]byte, bool, error) {
	collID, ok := db.man.Collection(collection)
	if !ok {
		return nil, false, nil
	}
	if mut, found := tx.PendingGet(collID, id); found {
		if mut.Tombstone {
			return nil, false, nil
		}
		return mut.Payload, true, nil
	}
	return db.Get(collection, id)
}

// List returns every live (entity_id, payload) pair in collection (snapshot
// scan of the current primary index). Order is unspecified.
func (db *Database) List(collection string) ([]types.Entity, error) {
	collID, ok := db.man.Collection(collection)
	if !ok {
		return nil, nil
	}
	var keys []segment.Key
	db.segments.Index().ForEach(func(k segment.Key, e segment.Entry) {
		if k.CollectionID == collID && !e.Tombstone {
			keys = append(keys, k)
		}
	})
	out := make([]types.Entity, 0, len(keys))
	for _, k := range keys {
		entry, ok := db.segments.Index().Get(k)
		if !ok || entry.Tombstone {
			continue
		}
		payload, err := db.segments.ReadPayload(entry)
		if err != nil {
			return nil, err
		}
		out = append(out, types.Entity{ID: k.EntityID, Payload: payload})
	}
	return out, nil
}

// Count returns the number of live entities in collection.
func (db *Database) Count(collection string) (uint64, error) {
	collID, ok := db.man.Collection(collection)
	if !ok {
		return 0, nil
	}
	var n uint64
	db.segments.Index().ForEach(func(k segment.Key, e segment.Entry) {
		if k.CollectionID == collID && !e.Tombstone {
			n++
		}
	})
	return n, nil
}

// ListCollections returns every registered collection's manifest metadata.
func (db *Database) ListCollections() []types.CollectionMeta {
	return db.man.ListCollections()
}

// HashIndex returns the database's hash-index engine for client-driven
// secondary index population.
func (db *Database) HashIndex() *index.HashIndex { return db.hashIdx }

// OrderedIndex returns the database's ordered-index engine.
func (db *Database) OrderedIndex() *index.OrderedIndex { return db.orderedIdx }

// PollChanges returns up to max change events with sequence > since.
func (db *Database) PollChanges(since types.Sequence, max int) []types.ChangeEvent {
	return db.feed.PollChanges(since, max)
}

// LatestSequence returns the change feed's current head sequence.
func (db *Database) LatestSequence() types.Sequence {
	return db.feed.LatestSequence()
}

// SchemaVersion returns the opaque, client-set schema version.
func (db *Database) SchemaVersion() uint64 { return db.man.SchemaVersionGet() }

// SetSchemaVersion sets and durably persists the opaque schema version.
func (db *Database) SetSchemaVersion(v uint64) error {
	db.man.SchemaVersionSet(v)
	return db.man.Save()
}

// Stats summarizes current database state for the CLI's inspect/stats verbs.
func (db *Database) Stats() types.Stats {
	segIDs, _ := db.segments.SegmentIDs()
	live := db.segments.Index().LiveCount()
	tombstoned := db.segments.Index().TombstoneCount()

	db.metrics.LiveEntitiesGauge.Set(float64(live))
	db.metrics.TombstonesGauge.Set(float64(tombstoned))
	db.metrics.ChangeFeedDepth.Set(float64(db.feed.Depth()))

	return types.Stats{
		Collections:     len(db.man.ListCollections()),
		LiveEntities:    live,
		TombstonedCount: tombstoned,
		SegmentCount:    len(segIDs) + 1, // sealed + active
		LastSequence:    db.txns.LastSequence(),
	}
}
