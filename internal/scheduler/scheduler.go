package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"MarketTraffic/internal/export"
)

// Exporter is what the periodic export job drives.
type Exporter interface {
	ExportCSV(now time.Time) (string, error)
}

// Scheduler manages the cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Exporter Exporter
	Log      *zap.Logger

	now func() time.Time
}

// NewScheduler creates a new Scheduler. Cron specs include a seconds field.
func NewScheduler(exp Exporter, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Exporter: exp,
		Log:      log,
		now:      time.Now,
	}
}

// RegisterExport schedules the table export.
func (s *Scheduler) RegisterExport(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.exportTask); err != nil {
		return fmt.Errorf("register export task: %w", err)
	}
	s.Log.Info("export scheduled", zap.String("cron", spec))
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info("scheduler stopped")
}

// RunExportNow executes the export task immediately.
func (s *Scheduler) RunExportNow() {
	s.exportTask()
}

func (s *Scheduler) exportTask() {
	path, err := s.Exporter.ExportCSV(s.now())
	switch {
	case errors.Is(err, export.ErrEmpty):
		s.Log.Debug("scheduled export skipped, table empty")
	case err != nil:
		s.Log.Error("scheduled export failed", zap.Error(err))
	default:
		s.Log.Info("scheduled export written", zap.String("path", path))
	}
}
