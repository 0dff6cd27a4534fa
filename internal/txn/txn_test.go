package txn

import (
	"testing"

	"github.com/entidb/entidb/internal/types"
)

type fakeCommitter struct {
	committed [][]types.Mutation
	aborted   []types.TxnID
	failNext  bool
}

func (f *fakeCommitter) CommitBatch(id types.TxnID, mutations []types.Mutation, seq types.Sequence) error {
	if f.failNext {
		f.failNext = false
		return errClosed(types.TxnAborted)
	}
	f.committed = append(f.committed, mutations)
	return nil
}

func (f *fakeCommitter) AbortBatch(id types.TxnID) error {
	f.aborted = append(f.aborted, id)
	return nil
}

type fakeSnaps struct {
	acquired []types.Sequence
	released []uint64
	next     uint64
}

func (f *fakeSnaps) Acquire(seq types.Sequence) uint64 {
	f.next++
	f.acquired = append(f.acquired, seq)
	return f.next
}

func (f *fakeSnaps) Release(h uint64) {
	f.released = append(f.released, h)
}

func TestCommitAdvancesSequence(t *testing.T) {
	c := &fakeCommitter{}
	m := NewManager(0, &fakeSnaps{}, c)

	tx := m.Begin()
	id := types.NewEntityID()
	if err := tx.Put(1, id, []byte("v")); err != nil {
		t.Fatal(err)
	}
	seq, err := m.Commit(tx)
	if err != nil {
		t.Fatal(err)
	}
	if seq != 1 {
		t.Fatalf("expected seq 1, got %d", seq)
	}
	if m.LastSequence() != 1 {
		t.Fatalf("expected last sequence 1, got %d", m.LastSequence())
	}
	if len(c.committed) != 1 || len(c.committed[0]) != 1 {
		t.Fatalf("expected one committed batch of one mutation, got %+v", c.committed)
	}
}

func TestSerializesWriters(t *testing.T) {
	m := NewManager(0, &fakeSnaps{}, &fakeCommitter{})

	tx1 := m.Begin()
	done := make(chan struct{})
	go func() {
		tx2 := m.Begin()
		m.Commit(tx2)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second Begin should block while first transaction is open")
	default:
	}

	if _, err := m.Commit(tx1); err != nil {
		t.Fatal(err)
	}
	<-done
}

func TestAbortDropsMutations(t *testing.T) {
	c := &fakeCommitter{}
	m := NewManager(0, &fakeSnaps{}, c)

	tx := m.Begin()
	tx.Put(1, types.NewEntityID(), []byte("v"))
	if err := m.Abort(tx); err != nil {
		t.Fatal(err)
	}
	if tx.State() != types.TxnAborted {
		t.Fatalf("expected aborted state, got %v", tx.State())
	}
	if len(c.aborted) != 1 {
		t.Fatalf("expected one abort record, got %d", len(c.aborted))
	}
	if m.LastSequence() != 0 {
		t.Fatalf("expected last sequence unchanged at 0, got %d", m.LastSequence())
	}
}

func TestCommitOnClosedTxnFails(t *testing.T) {
	m := NewManager(0, &fakeSnaps{}, &fakeCommitter{})
	tx := m.Begin()
	m.Commit(tx)
	if _, err := m.Commit(tx); err == nil {
		t.Fatal("expected error committing an already-committed transaction")
	}
}

func TestPendingGetSeesOwnWritesNotOthers(t *testing.T) {
	m := NewManager(0, &fakeSnaps{}, &fakeCommitter{})
	tx := m.Begin()

	id := types.NewEntityID()
	other := types.NewEntityID()
	tx.Put(1, id, []byte("v1"))
	tx.Put(1, id, []byte("v2"))

	mut, found := tx.PendingGet(1, id)
	if !found || string(mut.Payload) != "v2" {
		t.Fatalf("expected latest buffered write, got %+v found=%v", mut, found)
	}
	if _, found := tx.PendingGet(1, other); found {
		t.Fatal("expected no pending mutation for an id never written in this tx")
	}

	tx.Delete(1, id)
	mut, found = tx.PendingGet(1, id)
	if !found || !mut.Tombstone {
		t.Fatalf("expected pending delete to shadow the earlier put, got %+v found=%v", mut, found)
	}
}

func TestSnapshotAcquiredAndReleased(t *testing.T) {
	snaps := &fakeSnaps{}
	m := NewManager(5, snaps, &fakeCommitter{})
	tx := m.Begin()
	if tx.Snapshot != 5 {
		t.Fatalf("expected snapshot 5, got %d", tx.Snapshot)
	}
	m.Commit(tx)
	if len(snaps.acquired) != 1 || len(snaps.released) != 1 {
		t.Fatalf("expected one acquire and one release, got %+v %+v", snaps.acquired, snaps.released)
	}
}
