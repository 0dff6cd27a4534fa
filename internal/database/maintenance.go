package database

import (
	"sync"

	"github.com/entidb/entidb/internal/errors"
	"github.com/entidb/entidb/internal/types"
)

// VerifyReport summarizes a Verify pass over every sealed segment.
type VerifyReport struct {
	SegmentsChecked int
	CorruptSegments []uint64
}

// Clean reports whether the verified segments carried no corruption.
func (r VerifyReport) Clean() bool { return len(r.CorruptSegments) == 0 }

// Verify re-validates every sealed segment's trailer checksum. It never
// repairs anything; a non-empty CorruptSegments means the directory needs
// restoring from backup. Each segment's check is independent and read-only,
// so it is fanned out across the background worker pool instead of checked
// one file at a time.
func (db *Database) Verify() (VerifyReport, error) {
	if err := db.checkOpen(); err != nil {
		return VerifyReport{}, err
	}
	ids, err := db.segments.SegmentIDs()
	if err != nil {
		return VerifyReport{}, err
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		bad      []uint64
		firstErr error
	)
	for _, id := range ids {
		id := id
		wg.Add(1)
		submitErr := db.scheduler.Submit("verify-segment", func() error {
			defer wg.Done()
			ok, err := db.segments.CheckSegment(id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return err
			}
			if !ok {
				bad = append(bad, id)
			}
			return nil
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = submitErr
			}
			mu.Unlock()
		}
	}
	wg.Wait()
	if firstErr != nil {
		db.metrics.RecordError(firstErr)
		return VerifyReport{}, firstErr
	}
	if len(bad) > 0 {
		db.metrics.RecordError(errors.Corruption("database.Verify", errors.ErrTrailerMismatch))
	}

	return VerifyReport{SegmentsChecked: len(ids), CorruptSegments: bad}, nil
}

// DumpOplog returns up to max change-feed events with sequence > since, the
// same data the CLI's dump-oplog verb prints.
func (db *Database) DumpOplog(since types.Sequence, max int) []types.ChangeEvent {
	return db.PollChanges(since, max)
}

// Checkpoint seals the active segment if it holds any records, writes a
// CHECKPOINT(segment_id, upto_sequence) WAL record, flushes, persists the
// manifest, and retires every WAL file now fully superseded.
func (db *Database) Checkpoint() error {
	if err := db.checkpoint(); err != nil {
		db.metrics.RecordError(err)
		return err
	}
	db.metrics.CheckpointsTotal.Inc()
	return nil
}

func (db *Database) checkpoint() error {
	if err := db.checkOpen(); err != nil {
		return err
	}

	sealedID, sealed, err := db.segments.Seal()
	if err != nil {
		return err
	}

	upto := db.txns.LastSequence()
	checkpointSegment := db.segments.ActiveID()
	if sealed {
		checkpointSegment = sealedID
	}

	if err := db.wal.AppendCheckpoint(checkpointSegment, upto); err != nil {
		return err
	}
	if err := db.wal.Flush(); err != nil {
		return err
	}

	if sealed {
		sealedIDs, err := db.segments.SegmentIDs()
		if err != nil {
			return err
		}
		db.man.SetSealedSegments(sealedIDs)
	}
	db.man.SetCheckpoint(db.segments.ActiveID(), upto, upto)
	if err := db.man.Save(); err != nil {
		return err
	}

	return db.wal.Retire(db.wal.ActiveFileID())
}

// Compact rewrites every live record and tombstone still needed by an open
// snapshot into a fresh sealed segment, records the new segment in the
// manifest before retiring the old ones (atomic at the manifest level),
// then deletes the retired segment files.
func (db *Database) Compact() error {
	if err := db.compact(); err != nil {
		db.metrics.RecordError(err)
		return err
	}
	db.metrics.CompactionsTotal.Inc()
	return nil
}

func (db *Database) compact() error {
	if err := db.checkOpen(); err != nil {
		return err
	}

	result, err := db.segments.Compact()
	if err != nil {
		return err
	}

	// The new segment now holds every live record previously spread across
	// result.RetiredSegments; the manifest's sealed-segment list is updated
	// to name it before any retired segment file is deleted.
	db.man.SetSealedSegments([]uint64{result.NewSegmentID})
	if err := db.man.Save(); err != nil {
		return err
	}

	return db.segments.RetireSegments(result.RetiredSegments)
}
