package commands

import (
	"testing"

	"github.com/entidb/entidb/internal/codec"
	"github.com/entidb/entidb/internal/types"
)

func TestRenderPayloadRoundTripsText(t *testing.T) {
	payload := codec.Encode(codec.Text("hello"))
	got := RenderPayload(payload)
	if got != `"hello"` {
		t.Fatalf("expected quoted hello, got %q", got)
	}
}

func TestRenderPayloadFallsBackToHexOnBadInput(t *testing.T) {
	got := RenderPayload([]byte{0xff, 0xff})
	if got == "" {
		t.Fatal("expected a non-empty fallback rendering")
	}
}

func TestSortedEntityIDsIsStable(t *testing.T) {
	a := types.NewEntityID()
	b := types.NewEntityID()
	sorted := SortedEntityIDs([]types.EntityID{b, a})
	if sorted[0].Compare(sorted[1]) > 0 {
		t.Fatal("expected ascending order")
	}
}

func TestChangeKindString(t *testing.T) {
	if ChangeKindString(types.ChangePut) != "PUT" {
		t.Fatal("expected PUT")
	}
	if ChangeKindString(types.ChangeDelete) != "DELETE" {
		t.Fatal("expected DELETE")
	}
}
