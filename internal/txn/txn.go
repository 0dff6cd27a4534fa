// Package txn implements the single-writer transaction manager: snapshot
// assignment, pending-mutation buffering, and the five-step commit protocol
// that hands a committed batch down to the WAL and segment store.
//
// Grounded on the teacher's internal/docdb/transaction.go (Tx, TxState,
// TransactionManager) and internal/docdb/mvcc.go (NextTxID/CurrentSnapshot),
// stripped of SSI read-set/write-set conflict detection since this engine
// excludes multi-writer concurrency: writers are serialized by a single
// mutex and "last commit wins" never arises because there is only ever one
// commit in flight.
package txn

import (
	"sync"

	"github.com/entidb/entidb/internal/types"
)

// Tx is an open transaction: a snapshot sequence fixing what it can see,
// plus a buffer of pending mutations applied so far, in order.
type Tx struct {
	ID         types.TxnID
	Snapshot   types.Sequence
	state      types.TxnState
	mutations  []types.Mutation
	snapHandle uint64
}

// State returns the transaction's current lifecycle state.
func (tx *Tx) State() types.TxnState { return tx.state }

// Mutations returns the mutations buffered so far, in application order.
func (tx *Tx) Mutations() []types.Mutation { return tx.mutations }

// Put buffers a write. It has no effect on durability until Commit.
func (tx *Tx) Put(collection types.CollectionID, id types.EntityID, payload []byte) error {
	return tx.PutIndexed(collection, id, payload, nil)
}

// PutIndexed buffers a write together with the secondary-index updates the
// client wants applied in the same commit barrier as this put, so an index
// lookup can never observe the put without its index entry or vice versa.
func (tx *Tx) PutIndexed(collection types.CollectionID, id types.EntityID, payload []byte, ops []types.IndexOp) error {
	if tx.state != types.TxnActive {
		return errClosed(tx.state)
	}
	tx.mutations = append(tx.mutations, types.Mutation{
		CollectionID: collection,
		EntityID:     id,
		Payload:      payload,
		IndexOps:     ops,
	})
	return nil
}

// Delete buffers a tombstone write, together with any index removals that
// must land atomically with it.
func (tx *Tx) Delete(collection types.CollectionID, id types.EntityID, ops ...types.IndexOp) error {
	if tx.state != types.TxnActive {
		return errClosed(tx.state)
	}
	tx.mutations = append(tx.mutations, types.Mutation{
		CollectionID: collection,
		EntityID:     id,
		Tombstone:    true,
		IndexOps:     ops,
	})
	return nil
}

// PendingGet looks up id among this transaction's own pending mutations,
// giving read-your-writes without consulting the shared primary index. The
// second return distinguishes "no pending mutation" from "pending delete";
// callers fall back to the committed primary index only when it is false.
func (tx *Tx) PendingGet(collection types.CollectionID, id types.EntityID) (types.Mutation, bool) {
	for i := len(tx.mutations) - 1; i >= 0; i-- {
		m := tx.mutations[i]
		if m.CollectionID == collection && m.EntityID == id {
			return m, true
		}
	}
	return types.Mutation{}, false
}

// SnapshotRegistrar is the subset of segment.SnapshotRegistry a Manager
// needs, kept as an interface so txn does not import segment directly.
type SnapshotRegistrar interface {
	Acquire(seq types.Sequence) uint64
	Release(handle uint64)
}

// Committer performs the durable portion of commit: append BEGIN, every
// mutation, and COMMIT to the WAL and flush it, then apply the batch to the
// segment store and primary index. Implemented by the database facade so
// txn stays agnostic of WAL/segment wire formats.
type Committer interface {
	CommitBatch(id types.TxnID, mutations []types.Mutation, seq types.Sequence) error
	AbortBatch(id types.TxnID) error
}

// Manager serializes writers (single in-flight transaction at a time),
// assigns each transaction a snapshot sequence at Begin and a commit
// sequence at Commit, and drives the Committer through the commit/abort
// protocol.
type Manager struct {
	writerMu sync.Mutex // held for the lifetime of one open write transaction

	mu       sync.Mutex // protects lastSeq and nextTxn
	lastSeq  types.Sequence
	nextTxn  types.TxnID
	snaps    SnapshotRegistrar
	committer Committer
}

// NewManager builds a transaction manager starting from lastSeq (the
// highest sequence already durable, from manifest/WAL recovery).
func NewManager(lastSeq types.Sequence, snaps SnapshotRegistrar, committer Committer) *Manager {
	return &Manager{
		lastSeq:   lastSeq,
		nextTxn:   1,
		snaps:     snaps,
		committer: committer,
	}
}

// LastSequence returns the highest commit sequence assigned so far.
func (m *Manager) LastSequence() types.Sequence {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSeq
}

// Begin opens a new write transaction, blocking until any other open write
// transaction commits or aborts (single-writer serialization). The
// returned Tx's snapshot is the sequence last committed at the moment of
// Begin; reads through this Tx see every mutation committed up to and
// including that sequence, plus the transaction's own uncommitted writes.
func (m *Manager) Begin() *Tx {
	m.writerMu.Lock()

	m.mu.Lock()
	snapshot := m.lastSeq
	id := m.nextTxn
	m.nextTxn++
	m.mu.Unlock()

	var handle uint64
	if m.snaps != nil {
		handle = m.snaps.Acquire(snapshot)
	}

	return &Tx{
		ID:         id,
		Snapshot:   snapshot,
		state:      types.TxnActive,
		snapHandle: handle,
	}
}

// Commit runs the five-step protocol: assign the commit sequence, persist
// the batch durably (WAL append + flush, then segment append + index
// update) via the Committer, advance the last-committed sequence, and
// release the writer lock. Change events are emitted by the Committer as
// part of CommitBatch. Committing a transaction that is no longer active
// returns an error and leaves the writer lock alone.
func (m *Manager) Commit(tx *Tx) (types.Sequence, error) {
	if tx.state != types.TxnActive {
		return 0, errClosed(tx.state)
	}
	defer m.release(tx)

	tx.state = types.TxnCommitting

	m.mu.Lock()
	seq := m.lastSeq + 1
	m.mu.Unlock()

	if err := m.committer.CommitBatch(tx.ID, tx.mutations, seq); err != nil {
		tx.state = types.TxnAborted
		return 0, err
	}

	m.mu.Lock()
	m.lastSeq = seq
	m.mu.Unlock()

	tx.state = types.TxnCommitted
	return seq, nil
}

// Abort discards the transaction's buffered mutations without applying
// them, recording an ABORT record so WAL replay can drop any partially
// written BEGIN/PUT records for this transaction.
func (m *Manager) Abort(tx *Tx) error {
	if tx.state != types.TxnActive {
		return errClosed(tx.state)
	}
	defer m.release(tx)

	err := m.committer.AbortBatch(tx.ID)
	tx.state = types.TxnAborted
	return err
}

func (m *Manager) release(tx *Tx) {
	if m.snaps != nil && tx.snapHandle != 0 {
		m.snaps.Release(tx.snapHandle)
	}
	m.writerMu.Unlock()
}
