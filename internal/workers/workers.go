// Package workers runs the database's background maintenance: a periodic
// checkpoint/compaction ticker and parallel read-only segment
// verification, on an ants.Pool-bounded goroutine budget.
//
// Grounded on the teacher's internal/docdb/compaction.go RunPeriodically
// (time.Ticker-driven periodic compaction loop), adapted to also drive
// checkpointing and to submit work through a bounded pool instead of
// spawning goroutines directly, since this engine has no per-partition
// worker pool to reuse.
package workers

import (
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/entidb/entidb/internal/logger"
)

// Database is the subset of *database.Database the scheduler drives,
// kept as an interface so workers does not import database (which would
// be a cycle: database is the orchestrator, workers is a helper it owns).
type Database interface {
	Checkpoint() error
	Compact() error
}

// Scheduler periodically checkpoints and compacts a Database on a bounded
// ants.Pool, and can run arbitrary one-off verification tasks on the same
// pool (e.g. the CLI's parallel segment CRC check).
type Scheduler struct {
	pool *ants.Pool
	log  *logger.Logger
	stop chan struct{}
	done chan struct{}
}

// NewScheduler builds a scheduler with a pool of poolSize goroutines
// (ants.DefaultAntsPoolSize if poolSize <= 0).
func NewScheduler(poolSize int, log *logger.Logger) (*Scheduler, error) {
	if poolSize <= 0 {
		poolSize = ants.DefaultAntsPoolSize
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	return &Scheduler{pool: pool, log: log, stop: make(chan struct{})}, nil
}

// Submit runs fn on the pool, logging (not returning) any error, since the
// pool's tasks are fire-and-forget background work.
func (s *Scheduler) Submit(label string, fn func() error) error {
	return s.pool.Submit(func() {
		if err := fn(); err != nil {
			s.log.Error("%s failed: %v", label, err)
		}
	})
}

// RunPeriodic starts a background loop that submits a checkpoint every
// checkpointEvery and a compaction every compactEvery, until Stop is
// called. A zero duration disables that tick entirely.
func (s *Scheduler) RunPeriodic(db Database, checkpointEvery, compactEvery time.Duration) {
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)

		var checkpointC, compactC <-chan time.Time
		if checkpointEvery > 0 {
			t := time.NewTicker(checkpointEvery)
			defer t.Stop()
			checkpointC = t.C
		}
		if compactEvery > 0 {
			t := time.NewTicker(compactEvery)
			defer t.Stop()
			compactC = t.C
		}

		for {
			select {
			case <-s.stop:
				return
			case <-checkpointC:
				s.Submit("checkpoint", db.Checkpoint)
			case <-compactC:
				s.Submit("compact", db.Compact)
			}
		}
	}()
}

// Stop halts the periodic loop (if running) and releases the pool.
func (s *Scheduler) Stop() {
	close(s.stop)
	if s.done != nil {
		<-s.done
	}
	s.pool.Release()
}
