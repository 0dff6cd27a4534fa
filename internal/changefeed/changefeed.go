// Package changefeed implements the bounded, in-memory record of recently
// committed mutations that the derived change feed polls from.
//
// Grounded on the teacher's internal/docdb/commit_history.go bounded-ring
// buffer (there used to retain read/write sets for SSI conflict detection;
// repurposed here to retain committed ChangeEvents instead, since this
// engine has no conflict detection to perform).
package changefeed

import (
	"sync"

	"github.com/entidb/entidb/internal/types"
)

// DefaultCapacity is the default number of events retained before the
// oldest are evicted.
const DefaultCapacity = 100_000

// Feed is a bounded ring buffer of change events, ordered by commit
// sequence. Polling by a sequence older than the oldest retained event
// returns only the retained events; Gapped reports that case so the caller
// can fall back to a full resync.
type Feed struct {
	mu       sync.Mutex
	events   []types.ChangeEvent
	capacity int
	latest   types.Sequence
}

// New builds a feed retaining up to capacity events (DefaultCapacity if
// capacity <= 0).
func New(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Feed{capacity: capacity}
}

// Append records one committed mutation as a change event. seq must be no
// lower than any previously appended sequence (events of one batch share
// their commit's sequence); callers always satisfy this since the
// transaction manager assigns sequences monotonically under the
// single-writer lock.
func (f *Feed) Append(seq types.Sequence, collection types.CollectionID, id types.EntityID, kind types.ChangeKind, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, types.ChangeEvent{
		Sequence:     seq,
		CollectionID: collection,
		EntityID:     id,
		Kind:         kind,
		Payload:      payload,
	})
	f.latest = seq
	for len(f.events) > f.capacity {
		f.events = f.events[1:]
	}
}

// AppendBatch records every mutation in a committed batch, all stamped
// with the same commit sequence, in the order they were applied.
func (f *Feed) AppendBatch(seq types.Sequence, mutations []types.Mutation) {
	for _, m := range mutations {
		kind := types.ChangePut
		payload := m.Payload
		if m.Tombstone {
			kind = types.ChangeDelete
			payload = nil
		}
		f.Append(seq, m.CollectionID, m.EntityID, kind, payload)
	}
}

// LatestSequence returns the highest sequence any event in the feed carries
// (0 if the feed has never had anything appended).
func (f *Feed) LatestSequence() types.Sequence {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}

// Depth returns the number of events currently retained in the ring.
func (f *Feed) Depth() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// Gapped reports whether since predates the oldest event currently
// retained, meaning PollChanges(since, ...) cannot return a complete
// picture and the caller must resync from a fresh snapshot instead.
func (f *Feed) Gapped(since types.Sequence) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return false
	}
	oldest := f.events[0].Sequence
	return since > 0 && since < oldest-1
}

// PollChanges returns up to max events with Sequence > since, in ascending
// sequence order.
func (f *Feed) PollChanges(since types.Sequence, max int) []types.ChangeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.ChangeEvent
	for _, e := range f.events {
		if e.Sequence <= since {
			continue
		}
		out = append(out, e)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}
