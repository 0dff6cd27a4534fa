package backend

import (
	"io"
	"os"
	"sync"

	"github.com/entidb/entidb/internal/errors"
)

// File is the on-disk Backend: an append-only *os.File opened O_APPEND,
// with Flush mapped to fsync. Grounded on the append-offset bookkeeping of
// the teacher's DataFile, but deliberately free of framing/CRC logic —
// that belongs to the WAL and segment layers built on top of this contract.
type File struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	offset int64
}

// OpenFile opens (creating if necessary) path for append-only access.
func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.IoError("backend.OpenFile", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.IoError("backend.OpenFile", err)
	}
	return &File{path: path, file: f, offset: info.Size()}, nil
}

func (f *File) ReadAt(offset int64, length int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if offset < 0 || offset+int64(length) > f.offset {
		return nil, errors.IoError("backend.File.ReadAt", errors.ErrShortRead)
	}
	buf := make([]byte, length)
	if _, err := f.file.ReadAt(buf, offset); err != nil && err != io.EOF {
		return nil, errors.IoError("backend.File.ReadAt", err)
	}
	return buf, nil
}

func (f *File) Append(p []byte) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	off := f.offset
	n, err := f.file.Write(p)
	if err != nil {
		return 0, errors.IoError("backend.File.Append", err)
	}
	f.offset += int64(n)
	return off, nil
}

func (f *File) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.file.Sync(); err != nil {
		return errors.IoError("backend.File.Flush", err)
	}
	return nil
}

func (f *File) Size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offset
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	if err != nil {
		return errors.IoError("backend.File.Close", err)
	}
	return nil
}

// Path returns the backing file's path.
func (f *File) Path() string { return f.path }

var _ Backend = (*File)(nil)
