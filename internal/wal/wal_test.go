package wal

import (
	"path/filepath"
	"testing"

	"github.com/entidb/entidb/internal/logger"
	"github.com/entidb/entidb/internal/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "wal")
	m, err := Open(dir, 64, logger.Default())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestAppendAndReplayCommitted(t *testing.T) {
	m := newTestManager(t)

	id := types.NewEntityID()
	if err := m.AppendBegin(1); err != nil {
		t.Fatal(err)
	}
	if err := m.AppendPut(1, 7, id, []byte("payload")); err != nil {
		t.Fatal(err)
	}
	if err := m.AppendCommit(1, 5); err != nil {
		t.Fatal(err)
	}
	if err := m.Flush(); err != nil {
		t.Fatal(err)
	}

	result, err := m.ReplayAll()
	if err != nil {
		t.Fatalf("ReplayAll: %v", err)
	}
	if len(result.Committed) != 1 {
		t.Fatalf("expected 1 committed txn, got %d", len(result.Committed))
	}
	txn := result.Committed[0]
	if txn.Sequence != 5 || len(txn.Mutations) != 1 {
		t.Fatalf("unexpected txn: %+v", txn)
	}
	if txn.Mutations[0].EntityID != id {
		t.Fatalf("entity id mismatch")
	}
}

func TestUncommittedTransactionDropped(t *testing.T) {
	m := newTestManager(t)

	id := types.NewEntityID()
	if err := m.AppendBegin(2); err != nil {
		t.Fatal(err)
	}
	if err := m.AppendPut(2, 1, id, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := m.Flush(); err != nil {
		t.Fatal(err)
	}
	// No COMMIT: transaction must be dropped on replay.

	result, err := m.ReplayAll()
	if err != nil {
		t.Fatalf("ReplayAll: %v", err)
	}
	if len(result.Committed) != 0 {
		t.Fatalf("expected 0 committed txns, got %d", len(result.Committed))
	}
}

func TestAbortedTransactionDropped(t *testing.T) {
	m := newTestManager(t)

	id := types.NewEntityID()
	m.AppendBegin(3)
	m.AppendPut(3, 1, id, []byte("x"))
	m.AppendAbort(3)
	if err := m.Flush(); err != nil {
		t.Fatal(err)
	}

	result, err := m.ReplayAll()
	if err != nil {
		t.Fatalf("ReplayAll: %v", err)
	}
	if len(result.Committed) != 0 {
		t.Fatalf("expected 0 committed txns after abort, got %d", len(result.Committed))
	}
}

func TestCheckpointRecordSurvivesReplay(t *testing.T) {
	m := newTestManager(t)

	if err := m.AppendCheckpoint(9, 42); err != nil {
		t.Fatal(err)
	}
	if err := m.Flush(); err != nil {
		t.Fatal(err)
	}

	result, err := m.ReplayAll()
	if err != nil {
		t.Fatalf("ReplayAll: %v", err)
	}
	if !result.LastCheckpoint.Found || result.LastCheckpoint.SegmentID != 9 || result.LastCheckpoint.UptoSequence != 42 {
		t.Fatalf("unexpected checkpoint: %+v", result.LastCheckpoint)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	payload := EncodeBegin(types.TxnID(123))
	frame, err := EncodeFrame(types.RecordBegin, payload)
	if err != nil {
		t.Fatal(err)
	}
	rec, n, err := DecodeFrame(frame)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(frame) {
		t.Fatalf("expected to consume %d bytes, got %d", len(frame), n)
	}
	txid, err := DecodeBegin(rec.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if txid != 123 {
		t.Fatalf("expected txid 123, got %d", txid)
	}
}

func TestCorruptedTrailingFrameIsTornNotFatal(t *testing.T) {
	m := newTestManager(t)
	m.AppendBegin(1)
	if err := m.Flush(); err != nil {
		t.Fatal(err)
	}
	// Simulate a crash mid-write of a second frame by appending a
	// truncated, unflushed-looking partial frame directly.
	partial := []byte{0x01, 0x02, 0x03}
	if _, err := m.writer.be.Append(partial); err != nil {
		t.Fatal(err)
	}

	result, err := m.ReplayAll()
	if err != nil {
		t.Fatalf("expected tear to be tolerated, got error: %v", err)
	}
	if !result.Torn {
		t.Fatalf("expected Torn=true")
	}
}
