package segment

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/entidb/entidb/internal/logger"
	"github.com/entidb/entidb/internal/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "segments")
	m, err := Open(dir, logger.Default())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestAppendCommitAndRead(t *testing.T) {
	m := newTestManager(t)
	id := types.NewEntityID()

	mutations := []types.Mutation{{CollectionID: 1, EntityID: id, Payload: []byte("hello")}}
	if err := m.AppendCommit(mutations, 5); err != nil {
		t.Fatal(err)
	}

	entry, ok := m.Index().Get(Key{CollectionID: 1, EntityID: id})
	if !ok {
		t.Fatal("expected index entry")
	}
	payload, err := m.ReadPayload(entry)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(payload, []byte("hello")) {
		t.Fatalf("got %q", payload)
	}
}

func TestDominanceRule(t *testing.T) {
	m := newTestManager(t)
	id := types.NewEntityID()
	k := Key{CollectionID: 1, EntityID: id}

	m.AppendCommit([]types.Mutation{{CollectionID: 1, EntityID: id, Payload: []byte("P1")}}, 5)
	m.AppendCommit([]types.Mutation{{CollectionID: 1, EntityID: id, Tombstone: true}}, 6)
	m.AppendCommit([]types.Mutation{{CollectionID: 1, EntityID: id, Payload: []byte("P2")}}, 7)

	entry, ok := m.Index().Get(k)
	if !ok {
		t.Fatal("expected entry")
	}
	if entry.Sequence != 7 || entry.Tombstone {
		t.Fatalf("expected live seq=7 entry, got %+v", entry)
	}
	payload, err := m.ReadPayload(entry)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(payload, []byte("P2")) {
		t.Fatalf("got %q", payload)
	}
}

func TestSealAndRebuild(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "segments")
	m, err := Open(dir, logger.Default())
	if err != nil {
		t.Fatal(err)
	}
	id := types.NewEntityID()
	m.AppendCommit([]types.Mutation{{CollectionID: 2, EntityID: id, Payload: []byte("v1")}}, 1)
	sealedID, ok, err := m.Seal()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected segment to be sealed")
	}
	m.Close()

	m2, err := Open(dir, logger.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer m2.Close()
	if err := m2.Rebuild(); err != nil {
		t.Fatal(err)
	}
	entry, ok := m2.Index().Get(Key{CollectionID: 2, EntityID: id})
	if !ok {
		t.Fatal("expected rebuilt index entry")
	}
	if entry.SegmentID != sealedID {
		t.Fatalf("expected segment id %d, got %d", sealedID, entry.SegmentID)
	}
	payload, err := m2.ReadPayload(entry)
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != "v1" {
		t.Fatalf("got %q", payload)
	}
}

func TestCompactionPreservesSemantics(t *testing.T) {
	m := newTestManager(t)
	id1 := types.NewEntityID()
	id2 := types.NewEntityID()

	m.AppendCommit([]types.Mutation{{CollectionID: 1, EntityID: id1, Payload: []byte("a")}}, 1)
	m.AppendCommit([]types.Mutation{{CollectionID: 1, EntityID: id2, Payload: []byte("b")}}, 2)
	m.AppendCommit([]types.Mutation{{CollectionID: 1, EntityID: id1, Payload: []byte("a2")}}, 3)
	if _, _, err := m.Seal(); err != nil {
		t.Fatal(err)
	}

	before1, _ := m.Index().Get(Key{CollectionID: 1, EntityID: id1})
	before2, _ := m.Index().Get(Key{CollectionID: 1, EntityID: id2})
	p1Before, _ := m.ReadPayload(before1)
	p2Before, _ := m.ReadPayload(before2)

	result, err := m.Compact()
	if err != nil {
		t.Fatal(err)
	}
	if result.NewSegmentID == 0 {
		t.Fatal("expected a new segment id")
	}

	after1, ok := m.Index().Get(Key{CollectionID: 1, EntityID: id1})
	if !ok {
		t.Fatal("expected entity 1 to survive compaction")
	}
	after2, ok := m.Index().Get(Key{CollectionID: 1, EntityID: id2})
	if !ok {
		t.Fatal("expected entity 2 to survive compaction")
	}
	p1After, err := m.ReadPayload(after1)
	if err != nil {
		t.Fatal(err)
	}
	p2After, err := m.ReadPayload(after2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(p1Before, p1After) || !bytes.Equal(p2Before, p2After) {
		t.Fatal("compaction changed visible payloads")
	}
}

func TestRecordFrameRoundTrip(t *testing.T) {
	id := types.NewEntityID()
	rec := Record{CollectionID: 3, EntityID: id, Sequence: 9, Payload: []byte("x")}
	buf, err := EncodeRecord(rec)
	if err != nil {
		t.Fatal(err)
	}
	got, n, err := DecodeRecord(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(buf) {
		t.Fatalf("expected to consume %d bytes, got %d", len(buf), n)
	}
	if got.CollectionID != 3 || got.Sequence != 9 || !bytes.Equal(got.Payload, []byte("x")) {
		t.Fatalf("got %+v", got)
	}
}
