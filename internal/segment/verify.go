package segment

import "path/filepath"

// CheckSegment re-validates one sealed segment's trailer checksum against
// its payload area. Safe to call concurrently across distinct ids: sealed
// segment files are immutable and each check only reads its own file.
func (m *Manager) CheckSegment(id uint64) (bool, error) {
	return isSealed(filepath.Join(m.dir, fileName(id)))
}

// VerifySegments re-checks every sealed segment's trailer checksum against
// its payload area without touching the live primary index, returning the
// ids of any segment that fails. A clean result (nil, nil) means every
// sealed segment on disk is internally consistent.
//
// This sequential form is kept for callers without a worker pool handy
// (tests, single-segment directories); database.Verify fans the same
// per-segment check out across the background pool instead.
func (m *Manager) VerifySegments() ([]uint64, error) {
	ids, err := m.SegmentIDs()
	if err != nil {
		return nil, err
	}
	var bad []uint64
	for _, id := range ids {
		ok, err := m.CheckSegment(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			bad = append(bad, id)
		}
	}
	return bad, nil
}
