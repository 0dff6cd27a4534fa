package segment

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/entidb/entidb/internal/backend"
	"github.com/entidb/entidb/internal/errors"
	"github.com/entidb/entidb/internal/logger"
	"github.com/entidb/entidb/internal/types"
)

const filePrefix = "seg-"
const fileSuffix = ".dat"

// DefaultSealedFileCache bounds how many sealed-segment file handles
// ReadPayload keeps open at once, avoiding an open/close syscall pair per
// read against a segment that was already visited recently.
const DefaultSealedFileCache = 256

func fileName(id uint64) string {
	return fmt.Sprintf("%s%06d%s", filePrefix, id, fileSuffix)
}

func parseFileID(name string) (uint64, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return 0, false
	}
	num := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	id, err := strconv.ParseUint(num, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Manager owns the directory of sealed segment files plus the one active
// (unsealed) segment, and the in-memory primary index built from them.
// Grounded on the teacher's compaction.go rewrite-then-atomic-promote
// structure and index.go's sharded primary index.
type Manager struct {
	dir      string
	log      *logger.Logger
	index    *PrimaryIndex
	snaps    *SnapshotRegistry
	activeID uint64
	active   backend.Backend
	count    int // records appended to the active segment so far

	sealedCache *lru.Cache[uint64, backend.Backend]
}

// Open opens (creating if necessary) the segments directory, sets up a
// fresh active segment with the next id after the highest sealed segment,
// and returns an empty primary index ready for the caller to rebuild via
// Rebuild.
func Open(dir string, log *logger.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.IoError("segment.Open", err)
	}
	ids, err := listFileIDs(dir)
	if err != nil {
		return nil, err
	}

	var nextID uint64 = 1
	if len(ids) > 0 {
		lastID := ids[len(ids)-1]
		sealed, err := isSealed(filepath.Join(dir, fileName(lastID)))
		if err != nil {
			return nil, err
		}
		if sealed {
			nextID = lastID + 1
		} else {
			// The highest-numbered segment was never sealed: its bytes
			// were appended during step 4 of a commit that crashed before
			// reaching durability-confirming completion, or were never
			// covered by a CHECKPOINT. Segment-store durability comes from
			// the WAL, not from unsealed segment bytes, so it is always
			// safe to discard this file and let WAL replay re-derive it.
			nextID = lastID
			if err := os.Truncate(filepath.Join(dir, fileName(lastID)), 0); err != nil {
				return nil, errors.IoError("segment.Open", err)
			}
		}
	}

	be, err := backend.OpenFile(filepath.Join(dir, fileName(nextID)))
	if err != nil {
		return nil, err
	}
	cache, err := lru.NewWithEvict(DefaultSealedFileCache, func(_ uint64, evicted backend.Backend) {
		evicted.Close()
	})
	if err != nil {
		return nil, errors.IoError("segment.Open", err)
	}
	return &Manager{
		dir:         dir,
		log:         log,
		index:       NewPrimaryIndex(),
		snaps:       NewSnapshotRegistry(),
		activeID:    nextID,
		active:      be,
		sealedCache: cache,
	}, nil
}

// isSealed reports whether the segment file at path ends in a trailer
// whose CRC matches its payload area — the only way to tell a sealed
// segment from one abandoned mid-write by a prior crash.
func isSealed(path string) (bool, error) {
	be, err := backend.OpenFile(path)
	if err != nil {
		return false, err
	}
	defer be.Close()

	size := be.Size()
	if size < int64(TrailerSize) {
		return false, nil
	}
	data, err := be.ReadAt(0, int(size))
	if err != nil {
		return false, err
	}
	payloadLen := size - int64(TrailerSize)
	_, err = DecodeTrailer(data[payloadLen:], data[:payloadLen])
	return err == nil, nil
}

func listFileIDs(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.IoError("segment.listFileIDs", err)
	}
	var ids []uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := parseFileID(e.Name()); ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Index returns the manager's primary index.
func (m *Manager) Index() *PrimaryIndex { return m.index }

// Snapshots returns the manager's open-reader-snapshot registry, consulted
// by compaction to decide tombstone retention.
func (m *Manager) Snapshots() *SnapshotRegistry { return m.snaps }

// Rebuild scans every sealed segment (not the active one, which starts
// empty on open) in ascending id order and repopulates the primary index,
// applying the dominance rule record by record.
func (m *Manager) Rebuild() error {
	ids, err := listFileIDs(m.dir)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == m.activeID {
			continue
		}
		if err := m.indexSegment(id); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) indexSegment(id uint64) error {
	path := filepath.Join(m.dir, fileName(id))
	be, err := backend.OpenFile(path)
	if err != nil {
		return err
	}
	defer be.Close()

	size := be.Size()
	if size < int64(TrailerSize) {
		return errors.Corruption("segment.indexSegment", errors.ErrCorruptRecord)
	}
	payloadLen := size - int64(TrailerSize)
	data, err := be.ReadAt(0, int(size))
	if err != nil {
		return err
	}

	trailer := data[payloadLen:]
	payloadArea := data[:payloadLen]
	count, err := DecodeTrailer(trailer, payloadArea)
	if err != nil {
		return err
	}

	offset := int64(0)
	seen := uint64(0)
	for offset < payloadLen {
		rec, n, err := DecodeRecord(payloadArea[offset:])
		if err != nil {
			return err
		}
		key := Key{CollectionID: rec.CollectionID, EntityID: rec.EntityID}
		m.index.Put(key, Entry{
			SegmentID: id,
			Offset:    offset,
			Length:    n,
			Sequence:  rec.Sequence,
			Tombstone: rec.Flags.IsTombstone(),
		})
		offset += int64(n)
		seen++
	}
	if seen != count {
		return errors.Corruption("segment.indexSegment", errors.ErrTrailerMismatch)
	}
	return nil
}

// AppendCommit serializes a batch of committed mutations (already assigned
// sequence numbers by the transaction manager) into the active segment and
// updates the primary index under the commit barrier. Mutations are
// appended in the given order; index updates obey the dominance rule.
func (m *Manager) AppendCommit(mutations []types.Mutation, seq types.Sequence) error {
	for _, mut := range mutations {
		flags := types.Flags(0)
		payload := mut.Payload
		if mut.Tombstone {
			flags |= types.FlagTombstone
			payload = nil
		}
		frame, err := EncodeRecord(Record{
			CollectionID: mut.CollectionID,
			EntityID:     mut.EntityID,
			Flags:        flags,
			Sequence:     seq,
			Payload:      payload,
		})
		if err != nil {
			return err
		}
		offset, err := m.active.Append(frame)
		if err != nil {
			return err
		}
		m.count++
		key := Key{CollectionID: mut.CollectionID, EntityID: mut.EntityID}
		m.index.Put(key, Entry{
			SegmentID: m.activeID,
			Offset:    offset,
			Length:    len(frame),
			Sequence:  seq,
			Tombstone: mut.Tombstone,
		})
	}
	return m.active.Flush()
}

// ReadPayload reads and decodes the record at e's location, returning its
// payload (nil for a tombstone).
func (m *Manager) ReadPayload(e Entry) ([]byte, error) {
	var be backend.Backend
	if e.SegmentID == m.activeID {
		be = m.active
	} else if cached, ok := m.sealedCache.Get(e.SegmentID); ok {
		be = cached
	} else {
		opened, err := backend.OpenFile(filepath.Join(m.dir, fileName(e.SegmentID)))
		if err != nil {
			return nil, err
		}
		m.sealedCache.Add(e.SegmentID, opened)
		be = opened
	}
	buf, err := be.ReadAt(e.Offset, e.Length)
	if err != nil {
		return nil, err
	}
	rec, _, err := DecodeRecord(buf)
	if err != nil {
		return nil, err
	}
	return rec.Payload, nil
}

// Seal writes the active segment's trailer, flushes it, and promotes it to
// immutable by opening a fresh active segment with the next id. A no-op if
// the active segment is empty.
func (m *Manager) Seal() (sealedID uint64, ok bool, err error) {
	if m.count == 0 {
		return 0, false, nil
	}
	size := m.active.Size()
	payloadArea, err := m.active.ReadAt(0, int(size))
	if err != nil {
		return 0, false, err
	}
	trailer := EncodeTrailer(uint64(m.count), payloadArea)
	if _, err := m.active.Append(trailer); err != nil {
		return 0, false, err
	}
	if err := m.active.Flush(); err != nil {
		return 0, false, err
	}
	if err := m.active.Close(); err != nil {
		return 0, false, err
	}

	sealedID = m.activeID
	// Compaction writes its segment above the active id, so skip past every
	// existing file to keep the new active segment a fresh, empty file.
	ids, err := listFileIDs(m.dir)
	if err != nil {
		return 0, false, err
	}
	m.activeID++
	for _, id := range ids {
		if id >= m.activeID {
			m.activeID = id + 1
		}
	}
	m.count = 0
	be, err := backend.OpenFile(filepath.Join(m.dir, fileName(m.activeID)))
	if err != nil {
		return 0, false, err
	}
	m.active = be
	m.log.Info("sealed segment %d", sealedID)
	return sealedID, true, nil
}

// ActiveID returns the id of the current (unsealed) active segment.
func (m *Manager) ActiveID() uint64 { return m.activeID }

// SegmentIDs returns every sealed segment id on disk, ascending.
func (m *Manager) SegmentIDs() ([]uint64, error) {
	ids, err := listFileIDs(m.dir)
	if err != nil {
		return nil, err
	}
	out := ids[:0:0]
	for _, id := range ids {
		if id != m.activeID {
			out = append(out, id)
		}
	}
	return out, nil
}

// Close closes the active segment backend and every cached sealed-segment
// handle.
func (m *Manager) Close() error {
	m.sealedCache.Purge()
	return m.active.Close()
}
