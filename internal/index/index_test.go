package index

import (
	"testing"

	"github.com/entidb/entidb/internal/types"
)

func TestHashIndexInsertLookupRemove(t *testing.T) {
	h := NewHashIndex()
	key := HashKey{CollectionID: 1, IndexName: "by_email", KeyBytes: "a@example.com"}
	id1 := types.NewEntityID()
	id2 := types.NewEntityID()

	h.Insert(key, id1)
	h.Insert(key, id2)
	got := h.Lookup(key)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}

	h.Remove(key, id1)
	got = h.Lookup(key)
	if len(got) != 1 || got[0] != id2 {
		t.Fatalf("expected only id2 remaining, got %+v", got)
	}
}

func TestHashIndexSeparatesCollectionsAndNames(t *testing.T) {
	h := NewHashIndex()
	id := types.NewEntityID()
	h.Insert(HashKey{CollectionID: 1, IndexName: "by_email", KeyBytes: "x"}, id)

	if got := h.Lookup(HashKey{CollectionID: 2, IndexName: "by_email", KeyBytes: "x"}); len(got) != 0 {
		t.Fatal("expected no cross-collection leakage")
	}
	if got := h.Lookup(HashKey{CollectionID: 1, IndexName: "by_name", KeyBytes: "x"}); len(got) != 0 {
		t.Fatal("expected no cross-index-name leakage")
	}
}

func TestOrderedIndexAscendingRange(t *testing.T) {
	o := NewOrderedIndex()
	ids := make([]types.EntityID, 5)
	keys := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d"), []byte("e")}
	for i := range ids {
		ids[i] = types.NewEntityID()
		o.Insert(1, "by_key", keys[i], ids[i])
	}

	got := o.Range(1, "by_key", []byte("b"), []byte("d"))
	if len(got) != 2 {
		t.Fatalf("expected 2 entries in [b,d), got %d", len(got))
	}
	if got[0] != ids[1] || got[1] != ids[2] {
		t.Fatalf("expected ascending b,c order, got %+v vs want %+v %+v", got, ids[1], ids[2])
	}
}

func TestOrderedIndexUnboundedRange(t *testing.T) {
	o := NewOrderedIndex()
	id1 := types.NewEntityID()
	id2 := types.NewEntityID()
	o.Insert(1, "by_key", []byte("m"), id1)
	o.Insert(1, "by_key", []byte("z"), id2)

	got := o.Range(1, "by_key", nil, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
}

func TestOrderedIndexRemove(t *testing.T) {
	o := NewOrderedIndex()
	id := types.NewEntityID()
	o.Insert(1, "by_key", []byte("k"), id)
	o.Remove(1, "by_key", []byte("k"), id)
	got := o.Range(1, "by_key", nil, nil)
	if len(got) != 0 {
		t.Fatalf("expected empty after remove, got %+v", got)
	}
}
