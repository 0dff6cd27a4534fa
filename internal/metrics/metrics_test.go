package metrics

import (
	"testing"

	io_prometheus_client "github.com/prometheus/client_model/go"

	"github.com/entidb/entidb/internal/errors"
)

func TestCountersIncrement(t *testing.T) {
	m := New()
	m.CommitsTotal.Inc()
	m.CommitsTotal.Inc()
	m.RecordError(errors.NotFound("test", errors.ErrNotFound))

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatal(err)
	}

	var foundCommits, foundErrors bool
	for _, f := range families {
		switch f.GetName() {
		case "entidb_commits_total":
			foundCommits = true
			if got := f.Metric[0].GetCounter().GetValue(); got != 2 {
				t.Fatalf("expected commits_total=2, got %v", got)
			}
		case "entidb_errors_total":
			foundErrors = true
			var m *io_prometheus_client.Metric
			for _, mm := range f.Metric {
				m = mm
			}
			if m.GetCounter().GetValue() != 1 {
				t.Fatalf("expected errors_total=1, got %v", m.GetCounter().GetValue())
			}
		}
	}
	if !foundCommits || !foundErrors {
		t.Fatalf("expected both metric families present, commits=%v errors=%v", foundCommits, foundErrors)
	}
}

func TestRecordErrorTracksCriticalAlerts(t *testing.T) {
	m := New()
	corrupt := errors.Corruption("segment.verify", errors.ErrTrailerMismatch)
	m.RecordError(corrupt)

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var foundCritical bool
	for _, f := range families {
		if f.GetName() == "entidb_critical_errors_total" {
			foundCritical = true
			if got := f.Metric[0].GetCounter().GetValue(); got != 1 {
				t.Fatalf("expected critical_errors_total=1, got %v", got)
			}
		}
	}
	if !foundCritical {
		t.Fatal("expected entidb_critical_errors_total metric family")
	}

	alerts := m.ErrorTracker().GetCriticalAlerts()
	if len(alerts) != 1 || alerts[0].Error != corrupt {
		t.Fatalf("expected one critical alert recording the corruption error, got %+v", alerts)
	}
}

func TestGaugesSettable(t *testing.T) {
	m := New()
	m.LiveEntitiesGauge.Set(42)
	m.TombstonesGauge.Set(3)

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() == "entidb_live_entities" {
			if got := f.Metric[0].GetGauge().GetValue(); got != 42 {
				t.Fatalf("expected 42, got %v", got)
			}
		}
	}
}
