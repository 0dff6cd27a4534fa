package workers

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/entidb/entidb/internal/logger"
)

type fakeDB struct {
	checkpoints int32
	compactions int32
}

func (f *fakeDB) Checkpoint() error {
	atomic.AddInt32(&f.checkpoints, 1)
	return nil
}

func (f *fakeDB) Compact() error {
	atomic.AddInt32(&f.compactions, 1)
	return nil
}

func TestSubmitRunsOnPool(t *testing.T) {
	s, err := NewScheduler(2, logger.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer s.pool.Release()

	done := make(chan struct{})
	if err := s.Submit("test", func() error { close(done); return nil }); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected submitted task to run")
	}
}

func TestRunPeriodicTicksCheckpointAndCompact(t *testing.T) {
	s, err := NewScheduler(2, logger.Default())
	if err != nil {
		t.Fatal(err)
	}
	db := &fakeDB{}
	s.RunPeriodic(db, 10*time.Millisecond, 15*time.Millisecond)

	time.Sleep(120 * time.Millisecond)
	s.Stop()

	if atomic.LoadInt32(&db.checkpoints) == 0 {
		t.Fatal("expected at least one checkpoint tick")
	}
	if atomic.LoadInt32(&db.compactions) == 0 {
		t.Fatal("expected at least one compaction tick")
	}
}

func TestRunPeriodicDisabledTickNeverFires(t *testing.T) {
	s, err := NewScheduler(2, logger.Default())
	if err != nil {
		t.Fatal(err)
	}
	db := &fakeDB{}
	s.RunPeriodic(db, 0, 10*time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	s.Stop()

	if atomic.LoadInt32(&db.checkpoints) != 0 {
		t.Fatal("expected checkpoint tick to stay disabled with a zero duration")
	}
	if atomic.LoadInt32(&db.compactions) == 0 {
		t.Fatal("expected compaction tick to still fire")
	}
}
