// Package backend defines the opaque, append-only byte-store contract the
// WAL and segment managers are built on, plus two implementations: a real
// file backend and an in-memory backend for tests and embeddable hosts that
// have no filesystem. Neither implementation interprets the bytes it
// stores; framing and checksums live one layer up.
package backend

// Backend is the four-operation contract every storage medium must satisfy.
// Implementations must guarantee appends never tear (all-or-nothing at the
// byte-range boundary) and that a successful Flush implies durability across
// a process crash.
type Backend interface {
	// ReadAt returns the len bytes starting at offset. Fails with a
	// taxonomy IoError if the requested range exceeds Size().
	ReadAt(offset int64, length int) ([]byte, error)

	// Append writes bytes at the current end of the store and returns the
	// offset at which they begin. The bytes are visible to readers at
	// offsets < Size() only after the next successful Flush.
	Append(p []byte) (offset int64, err error)

	// Flush returns once every previously appended byte is durable.
	Flush() error

	// Size returns the total number of bytes appended so far, durable or
	// not — durability is tracked by the caller via the flushes it issued.
	Size() int64

	// Close releases any underlying OS resources.
	Close() error
}
