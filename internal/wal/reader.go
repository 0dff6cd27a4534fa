package wal

import (
	"github.com/entidb/entidb/internal/backend"
	"github.com/entidb/entidb/internal/errors"
)

// Reader sequentially scans frames out of a WAL file's backend, stopping
// at the first tear: bad magic, short read, or CRC mismatch encountered
// immediately after the last successfully parsed frame. A tear found with
// no prior valid frames behind it (i.e. at the very start) is still a tear,
// not corruption — see Scan's Torn field.
type Reader struct {
	be backend.Backend
}

func NewReader(be backend.Backend) *Reader {
	return &Reader{be: be}
}

// ScanResult is the outcome of scanning one WAL file start to tear.
type ScanResult struct {
	Records []Record
	// ValidBytes is the length of the prefix that parsed cleanly.
	ValidBytes int64
	// Torn is true if the file ended with an incomplete/corrupt final
	// frame (a tolerated crash tear, not CorruptionError).
	Torn bool
	// MidStreamCorruption is true if a frame failed its CRC check while
	// further bytes follow it in the file, or if bad magic was found after
	// at least one valid frame. This is fatal
	// per the error handling design: open fails without heuristic repair.
	MidStreamCorruption bool
}

// Scan reads every well-formed frame from the start of the backend,
// classifying the first failure as either a trailing crash tear (if the
// remaining unreadable bytes look like a partially-written final frame)
// or mid-stream corruption.
func (r *Reader) Scan() (ScanResult, error) {
	size := r.be.Size()
	data, err := r.be.ReadAt(0, int(size))
	if err != nil {
		return ScanResult{}, errors.IoError("wal.Reader.Scan", err)
	}

	var result ScanResult
	offset := int64(0)
	for offset < size {
		rec, n, err := DecodeFrame(data[offset:])
		if err != nil {
			if errors.Is(err, errors.KindIoError) {
				// Short read: not enough bytes left for a full frame —
				// a partially-flushed final frame, the classic crash tear.
				result.Torn = true
				break
			}
			if errors.Is(err, errors.KindCorruption) {
				if errors.CauseIs(err, errors.ErrBadMagic) {
					// Bad magic: the length field itself cannot be trusted,
					// so we cannot tell how much to skip. Treat as a tear
					// only if this is the very first frame in the file.
					if offset == 0 {
						result.Torn = true
					} else {
						result.MidStreamCorruption = true
					}
					break
				}
				// CRC mismatch: length parsed fine, so n tells us whether
				// this was the last frame in the stream.
				if offset+int64(n) >= size {
					result.Torn = true
				} else {
					result.MidStreamCorruption = true
				}
				break
			}
			return ScanResult{}, err
		}
		result.Records = append(result.Records, rec)
		offset += int64(n)
	}
	result.ValidBytes = offset
	return result, nil
}
