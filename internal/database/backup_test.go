package database

import (
	"path/filepath"
	"testing"

	"github.com/entidb/entidb/internal/types"
)

func TestBackupRestoreRoundTrip(t *testing.T) {
	srcDir := filepath.Join(t.TempDir(), "db")
	db, err := Open(srcDir, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	id := types.NewEntityID()
	if err := db.Put("users", id, []byte("alice")); err != nil {
		t.Fatal(err)
	}

	archive, err := db.Backup()
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	report, err := ValidateBackup(archive)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Valid || report.Collections != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	dstDir := filepath.Join(t.TempDir(), "restored")
	if err := Restore(dstDir, archive, MergeFailIfExists); err != nil {
		t.Fatal(err)
	}

	db2, err := Open(dstDir, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()
	payload, ok, err := db2.Get("users", id)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || string(payload) != "alice" {
		t.Fatalf("expected alice after restore, got %q ok=%v", payload, ok)
	}
}

func TestRestoreRefusesNonEmptyTargetByDefault(t *testing.T) {
	srcDir := filepath.Join(t.TempDir(), "db")
	db, err := Open(srcDir, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	db.Put("users", types.NewEntityID(), []byte("x"))
	archive, err := db.Backup()
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	if err := Restore(srcDir, archive, MergeFailIfExists); err == nil {
		t.Fatal("expected restore into the non-empty source directory to fail")
	}
	if err := Restore(srcDir, archive, MergeOverwrite); err != nil {
		t.Fatal(err)
	}
}
