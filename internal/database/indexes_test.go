package database

import (
	"path/filepath"
	"testing"

	"github.com/entidb/entidb/internal/types"
)

func TestPutIndexedAppliesHashIndexAtomically(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	db, err := Open(dir, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.CreateHashIndex("users", "by_email"); err != nil {
		t.Fatal(err)
	}

	id := types.NewEntityID()
	key := []byte("alice@example.com")
	ops := []types.IndexOp{{Name: "by_email", KeyBytes: key}}
	if err := db.PutIndexed("users", id, []byte("alice"), ops); err != nil {
		t.Fatal(err)
	}

	got, err := db.IndexLookup("users", "by_email", key)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != id {
		t.Fatalf("expected index lookup to find %v, got %v", id, got)
	}
}

func TestPutIndexedOrderedAndRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	db, err := Open(dir, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.CreateOrderedIndex("events", "by_ts"); err != nil {
		t.Fatal(err)
	}

	var ids []types.EntityID
	for _, ts := range []byte{1, 2, 3} {
		id := types.NewEntityID()
		ids = append(ids, id)
		ops := []types.IndexOp{{Kind: types.IndexOrdered, Name: "by_ts", KeyBytes: []byte{ts}}}
		if err := db.PutIndexed("events", id, []byte("x"), ops); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.IndexRange("events", "by_ts", []byte{2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events with ts >= 2, got %d", len(got))
	}

	removeOps := []types.IndexOp{{Kind: types.IndexOrdered, Name: "by_ts", KeyBytes: []byte{1}, Remove: true}}
	if err := db.PutIndexed("events", ids[0], []byte("deleted-marker"), removeOps); err != nil {
		t.Fatal(err)
	}
	got, err = db.IndexRange("events", "by_ts", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events after removing ts=1, got %d", len(got))
	}
}

func TestListReturnsEntityAndPayload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	db, err := Open(dir, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	id := types.NewEntityID()
	if err := db.Put("users", id, []byte("alice")); err != nil {
		t.Fatal(err)
	}

	entities, err := db.List("users")
	if err != nil {
		t.Fatal(err)
	}
	if len(entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(entities))
	}
	if entities[0].ID != id || string(entities[0].Payload) != "alice" {
		t.Fatalf("unexpected entity: %+v", entities[0])
	}
}
