package database

import (
	"path/filepath"
	"testing"

	"github.com/entidb/entidb/internal/types"
)

func TestVerifyCleanAfterCheckpoint(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	db, err := Open(dir, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	db.Put("users", types.NewEntityID(), []byte("x"))
	if err := db.Checkpoint(); err != nil {
		t.Fatal(err)
	}

	report, err := db.Verify()
	if err != nil {
		t.Fatal(err)
	}
	if !report.Clean() {
		t.Fatalf("expected clean verify report, got %+v", report)
	}
	if report.SegmentsChecked == 0 {
		t.Fatal("expected at least one sealed segment to have been checked")
	}
}

func TestDumpOplogReturnsChangesSinceSequence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	db, err := Open(dir, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	db.Put("users", types.NewEntityID(), []byte("a"))
	db.Put("users", types.NewEntityID(), []byte("b"))

	all := db.DumpOplog(0, 0)
	if len(all) != 2 {
		t.Fatalf("expected 2 events, got %d", len(all))
	}
	tail := db.DumpOplog(all[0].Sequence, 0)
	if len(tail) != 1 {
		t.Fatalf("expected 1 event after the first sequence, got %d", len(tail))
	}
}
