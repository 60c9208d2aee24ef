package scheduler

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"MarketTraffic/internal/export"
)

type fakeExporter struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
	done  chan struct{}
}

func (f *fakeExporter) ExportCSV(now time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	if f.done != nil && len(f.calls) == 1 {
		close(f.done)
	}
	return "market_data.csv", f.err
}

func (f *fakeExporter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestRegisterExport_InvalidCron(t *testing.T) {
	s := NewScheduler(&fakeExporter{}, zap.NewNop())
	if err := s.RegisterExport("not a cron"); err == nil {
		t.Error("expected error for invalid cron spec")
	}
}

func TestRunExportNow(t *testing.T) {
	exp := &fakeExporter{err: export.ErrEmpty}
	s := NewScheduler(exp, zap.NewNop())
	fixed := time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.RunExportNow()
	if exp.count() != 1 || !exp.calls[0].Equal(fixed) {
		t.Errorf("calls = %v", exp.calls)
	}
}

func TestScheduledExportRuns(t *testing.T) {
	exp := &fakeExporter{done: make(chan struct{})}
	s := NewScheduler(exp, zap.NewNop())
	if err := s.RegisterExport("* * * * * *"); err != nil {
		t.Fatalf("RegisterExport: %v", err)
	}
	s.Start()
	defer s.Stop()

	select {
	case <-exp.done:
	case <-time.After(3 * time.Second):
		t.Fatal("export job did not run")
	}
}
