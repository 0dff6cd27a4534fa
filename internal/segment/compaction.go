package segment

import (
	"os"
	"path/filepath"

	"github.com/entidb/entidb/internal/backend"
	"github.com/entidb/entidb/internal/errors"
	"github.com/entidb/entidb/internal/types"
)

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.IoError("segment.RetireSegments", err)
	}
	return nil
}

// CompactionResult describes a completed compaction: the freshly sealed
// segment that now holds every live record, and the old segment ids it
// replaces (safe to retire once the manifest records the new segment).
type CompactionResult struct {
	NewSegmentID    uint64
	RetiredSegments []uint64
}

// Compact rewrites every non-dominated, non-tombstone live record (plus any
// tombstone still needed by an open reader snapshot) into a brand new
// sealed segment, then repoints the primary index at it. It is a logical
// no-op: for every key, Get returns the same sequence/payload before and
// after. The new segment is fully sealed and indexed before any old
// segment id is returned as retireable, so a crash mid-compaction leaves
// the database exactly as it was (the manifest is only updated by the
// caller after Compact returns).
func (m *Manager) Compact() (CompactionResult, error) {
	oldest, anyOpen := m.snaps.OldestOpen()

	type liveEntry struct {
		key Key
		e   Entry
	}
	var live []liveEntry
	m.index.ForEach(func(k Key, e Entry) {
		if e.Tombstone {
			if anyOpen && e.Sequence >= oldest {
				live = append(live, liveEntry{k, e})
			}
			return
		}
		live = append(live, liveEntry{k, e})
	})

	retired, err := m.SegmentIDs()
	if err != nil {
		return CompactionResult{}, err
	}

	allIDs, err := listFileIDs(m.dir)
	if err != nil {
		return CompactionResult{}, err
	}
	newID := m.activeID
	for _, id := range allIDs {
		if id >= newID {
			newID = id + 1
		}
	}
	path := filepath.Join(m.dir, fileName(newID))
	be, err := backend.OpenFile(path)
	if err != nil {
		return CompactionResult{}, err
	}

	newIndex := NewPrimaryIndex()
	for _, le := range live {
		payload, err := m.ReadPayload(le.e)
		if err != nil {
			be.Close()
			return CompactionResult{}, err
		}
		flags := types.Flags(0)
		if le.e.Tombstone {
			flags |= types.FlagTombstone
		}
		frame, err := EncodeRecord(Record{
			CollectionID: le.key.CollectionID,
			EntityID:     le.key.EntityID,
			Flags:        flags,
			Sequence:     le.e.Sequence,
			Payload:      payload,
		})
		if err != nil {
			be.Close()
			return CompactionResult{}, err
		}
		offset, err := be.Append(frame)
		if err != nil {
			be.Close()
			return CompactionResult{}, err
		}
		newIndex.Put(le.key, Entry{
			SegmentID: newID,
			Offset:    offset,
			Length:    len(frame),
			Sequence:  le.e.Sequence,
			Tombstone: le.e.Tombstone,
		})
	}

	size := be.Size()
	payloadArea, err := be.ReadAt(0, int(size))
	if err != nil {
		be.Close()
		return CompactionResult{}, err
	}
	trailer := EncodeTrailer(uint64(len(live)), payloadArea)
	if _, err := be.Append(trailer); err != nil {
		be.Close()
		return CompactionResult{}, err
	}
	if err := be.Flush(); err != nil {
		be.Close()
		return CompactionResult{}, err
	}
	if err := be.Close(); err != nil {
		return CompactionResult{}, err
	}

	m.index = newIndex

	return CompactionResult{NewSegmentID: newID, RetiredSegments: retired}, nil
}

// RetireSegments deletes the given sealed segment files. Callers must only
// call this after the manifest has durably recorded the replacement
// segment, per the "atomic at the manifest level" compaction contract.
func (m *Manager) RetireSegments(ids []uint64) error {
	for _, id := range ids {
		m.sealedCache.Remove(id)
		path := filepath.Join(m.dir, fileName(id))
		if err := removeIfExists(path); err != nil {
			return err
		}
	}
	return nil
}
