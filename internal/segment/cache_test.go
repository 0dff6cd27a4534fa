package segment

import (
	"testing"

	"github.com/entidb/entidb/internal/types"
)

func TestReadPayloadReusesCachedSealedHandle(t *testing.T) {
	m := newTestManager(t)
	id := types.NewEntityID()

	if err := m.AppendCommit([]types.Mutation{{CollectionID: 1, EntityID: id, Payload: []byte("v1")}}, 1); err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.Seal(); err != nil {
		t.Fatal(err)
	}

	entry, ok := m.Index().Get(Key{CollectionID: 1, EntityID: id})
	if !ok {
		t.Fatal("expected entry after seal")
	}

	for i := 0; i < 3; i++ {
		payload, err := m.ReadPayload(entry)
		if err != nil {
			t.Fatal(err)
		}
		if string(payload) != "v1" {
			t.Fatalf("expected v1, got %q", payload)
		}
	}
	if m.sealedCache.Len() != 1 {
		t.Fatalf("expected exactly one cached sealed handle, got %d", m.sealedCache.Len())
	}
}
