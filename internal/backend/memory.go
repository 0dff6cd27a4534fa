package backend

import (
	"sync"

	"github.com/entidb/entidb/internal/errors"
)

// Memory is an in-process Backend implementation over a growable byte
// slice. It exists to exercise the backend contract in unit tests and to
// serve as the storage medium for embeddable hosts with no filesystem
// (mirrored, for this Go module, as a plain in-memory buffer rather than a
// browser-storage handle).
type Memory struct {
	mu   sync.Mutex
	data []byte
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) ReadAt(offset int64, length int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if offset < 0 || offset+int64(length) > int64(len(m.data)) {
		return nil, errors.IoError("backend.Memory.ReadAt", errors.ErrShortRead)
	}
	buf := make([]byte, length)
	copy(buf, m.data[offset:offset+int64(length)])
	return buf, nil
}

func (m *Memory) Append(p []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	off := int64(len(m.data))
	m.data = append(m.data, p...)
	return off, nil
}

func (m *Memory) Flush() error { return nil }

func (m *Memory) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.data))
}

func (m *Memory) Close() error { return nil }

var _ Backend = (*Memory)(nil)
