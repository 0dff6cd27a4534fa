package wal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/entidb/entidb/internal/backend"
	"github.com/entidb/entidb/internal/errors"
	"github.com/entidb/entidb/internal/logger"
	"github.com/entidb/entidb/internal/types"
)

const filePrefix = "wal-"
const fileSuffix = ".log"

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

// Manager owns the WAL directory: the sequence of numbered wal-NNNNNN.log
// files, the active writer, and rotation/retirement. Grounded on the
// teacher's rotator.go (monotonic numbered files) and trimmer.go (retiring
// files once their records are represented in a sealed segment).
type Manager struct {
	dir           string
	log           *logger.Logger
	maxFileBytes  int64
	activeID      uint64
	activeBackend *backend.File
	writer        *Writer
}

// Open opens (creating if necessary) the WAL directory at dir, opening the
// highest-numbered file as the active writer, or creating wal-000001.log if
// the directory is empty.
func Open(dir string, maxFileSizeMB uint64, log *logger.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.IoError("wal.Open", err)
	}

	ids, err := listFileIDs(dir)
	if err != nil {
		return nil, err
	}

	var activeID uint64 = 1
	if len(ids) > 0 {
		activeID = ids[len(ids)-1]
	}

	path := filepath.Join(dir, fileName(activeID))
	be, err := backend.OpenFile(path)
	if err != nil {
		return nil, err
	}

	return &Manager{
		dir:           dir,
		log:           log,
		maxFileBytes:  int64(maxFileSizeMB) * 1024 * 1024,
		activeID:      activeID,
		activeBackend: be,
		writer:        NewWriter(be),
	}, nil
}

func listFileIDs(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.IoError("wal.listFileIDs", err)
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

// ReplayAll scans every WAL file in the directory, in file-id order, and
// reduces them to the set of committed transactions plus the last
// checkpoint seen. A mid-stream corruption anywhere fails the whole open;
// a trailing tear is tolerated only on the final (highest-id) file.
func (m *Manager) ReplayAll() (ReplayResult, error) {
	ids, err := listFileIDs(m.dir)
	if err != nil {
		return ReplayResult{}, err
	}

	var all []Record
	for i, id := range ids {
		path := filepath.Join(m.dir, fileName(id))
		be, err := backend.OpenFile(path)
		if err != nil {
			return ReplayResult{}, err
		}
		scan, err := NewReader(be).Scan()
		be.Close()
		if err != nil {
			return ReplayResult{}, err
		}
		if scan.MidStreamCorruption {
			return ReplayResult{}, errors.Corruption("wal.ReplayAll", errors.ErrCRCMismatch)
		}
		all = append(all, scan.Records...)
		if scan.Torn && i != len(ids)-1 {
			return ReplayResult{}, errors.Corruption("wal.ReplayAll", errors.ErrCorruptRecord)
		}
	}

	result, err := Replay(all)
	if err != nil {
		return ReplayResult{}, err
	}
	if len(ids) > 0 {
		path := filepath.Join(m.dir, fileName(ids[len(ids)-1]))
		be, err := backend.OpenFile(path)
		if err == nil {
			scan, scanErr := NewReader(be).Scan()
			be.Close()
			if scanErr == nil {
				result.Torn = scan.Torn
			}
		}
	}
	return result, nil
}

// AppendBegin, AppendPut, AppendDelete, AppendCommit, AppendAbort and
// AppendCheckpoint each encode and append one frame to the active file.
// None of them flush; the caller batches a transaction's frames and calls
// Flush once, matching the commit protocol's single-fsync-per-commit rule.
func (m *Manager) AppendBegin(txid types.TxnID) error {
	_, err := m.writer.Append(types.RecordBegin, EncodeBegin(txid))
	return err
}

func (m *Manager) AppendPut(txid types.TxnID, coll types.CollectionID, id types.EntityID, payload []byte) error {
	_, err := m.writer.Append(types.RecordPut, EncodePut(txid, coll, id, payload))
	return err
}

func (m *Manager) AppendDelete(txid types.TxnID, coll types.CollectionID, id types.EntityID) error {
	_, err := m.writer.Append(types.RecordDelete, EncodeDelete(txid, coll, id))
	return err
}

func (m *Manager) AppendCommit(txid types.TxnID, seq types.Sequence) error {
	_, err := m.writer.Append(types.RecordCommit, EncodeCommit(txid, seq))
	return err
}

func (m *Manager) AppendAbort(txid types.TxnID) error {
	_, err := m.writer.Append(types.RecordAbort, EncodeAbort(txid))
	return err
}

func (m *Manager) AppendCheckpoint(segmentID uint64, upto types.Sequence) error {
	_, err := m.writer.Append(types.RecordCheckpoint, EncodeCheckpoint(segmentID, upto))
	return err
}

// Flush returns once every frame appended so far is durable.
func (m *Manager) Flush() error {
	return m.writer.Flush()
}

// ShouldRotate reports whether the active file has crossed the configured
// size threshold.
func (m *Manager) ShouldRotate() bool {
	return m.maxFileBytes > 0 && m.writer.Size() >= m.maxFileBytes
}

// Rotate seals the active file (by simply closing it; WAL files need no
// explicit trailer) and opens a new, empty one with the next id.
func (m *Manager) Rotate() error {
	if err := m.writer.Close(); err != nil {
		return err
	}
	m.activeID++
	path := filepath.Join(m.dir, fileName(m.activeID))
	be, err := backend.OpenFile(path)
	if err != nil {
		return err
	}
	m.activeBackend = be
	m.writer = NewWriter(be)
	m.log.Info("rotated WAL to %s", path)
	return nil
}

// Retire deletes every WAL file whose id is strictly less than
// keepFromID, i.e. files fully superseded by a checkpoint.
func (m *Manager) Retire(keepFromID uint64) error {
	ids, err := listFileIDs(m.dir)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id >= keepFromID {
			continue
		}
		path := filepath.Join(m.dir, fileName(id))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.IoError("wal.Retire", err)
		}
	}
	return nil
}

// ActiveFileID returns the id of the currently active WAL file.
func (m *Manager) ActiveFileID() uint64 { return m.activeID }

// Close closes the active writer.
func (m *Manager) Close() error {
	return m.writer.Close()
}
