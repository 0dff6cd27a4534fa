package wal

import (
	"github.com/entidb/entidb/internal/backend"
	"github.com/entidb/entidb/internal/types"
)

// Writer appends frames to a single WAL file's backend. It does not decide
// rotation; Manager does, using Writer.Size against the configured threshold.
type Writer struct {
	be backend.Backend
}

// NewWriter wraps be as the active WAL file's append target.
func NewWriter(be backend.Backend) *Writer {
	return &Writer{be: be}
}

// Append encodes and writes one frame, returning its offset. It does not
// flush; callers batch a transaction's frames and call Flush once, per the
// flush-before-ack commit protocol.
func (w *Writer) Append(kind types.RecordKind, payload []byte) (int64, error) {
	frame, err := EncodeFrame(kind, payload)
	if err != nil {
		return 0, err
	}
	return w.be.Append(frame)
}

// Flush returns once every frame appended so far is durable.
func (w *Writer) Flush() error {
	return w.be.Flush()
}

// Size reports the WAL file's current byte length.
func (w *Writer) Size() int64 {
	return w.be.Size()
}

// Close releases the underlying backend.
func (w *Writer) Close() error {
	return w.be.Close()
}
