package manifest

import (
	"path/filepath"
	"testing"
)

func TestEnsureCollectionAssignsStableIDs(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "MANIFEST"))
	id1 := m.EnsureCollection("users")
	id2 := m.EnsureCollection("orders")
	again := m.EnsureCollection("users")

	if id1 == id2 {
		t.Fatal("expected distinct ids for distinct collections")
	}
	if again != id1 {
		t.Fatalf("expected stable id on re-registration, got %d vs %d", again, id1)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "MANIFEST")
	m := New(path)
	m.EnsureCollection("users")
	m.EnsureCollection("orders")
	m.SetCheckpoint(3, 42, 40)
	m.SchemaVersionSet(7)

	if err := m.Save(); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ActiveSegmentID != 3 || loaded.LastSequence != 42 || loaded.LastCheckpoint != 40 {
		t.Fatalf("checkpoint fields not round-tripped: %+v", loaded)
	}
	if loaded.SchemaVersionGet() != 7 {
		t.Fatalf("expected schema version 7, got %d", loaded.SchemaVersionGet())
	}
	id, ok := loaded.Collection("users")
	if !ok {
		t.Fatal("expected users collection to survive round trip")
	}
	if id2, _ := loaded.Collection("orders"); id2 == id {
		t.Fatal("expected distinct ids preserved across round trip")
	}
}

func TestLoadMissingFileReturnsEmptyManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "MANIFEST")
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Collections) != 0 {
		t.Fatalf("expected empty manifest, got %+v", m.Collections)
	}
	if m.NextCollection != 1 {
		t.Fatalf("expected next collection id 1, got %d", m.NextCollection)
	}
}

func TestDropCollectionTombstonesStatus(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "MANIFEST"))
	m.EnsureCollection("users")
	if !m.DropCollection("users") {
		t.Fatal("expected drop to succeed")
	}
	if _, ok := m.Collection("users"); ok {
		t.Fatal("expected dropped collection to no longer resolve by name")
	}
	list := m.ListCollections()
	if len(list) != 0 {
		t.Fatalf("expected no active collections listed, got %+v", list)
	}
}

func TestVersionTooNewRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "MANIFEST")
	m := New(path)
	m.FormatVersion = FormatVersion + 1
	if err := m.Save(); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected version mismatch error")
	}
}
