package usecase

import (
	"context"
	"log/slog"
	"time"

	"GossipSearch/internal/ports"
)

// Daemon drives recurring ingestion runs on a schedule.
type Daemon struct {
	ingest    *Ingest
	scheduler ports.Scheduler
	log       *slog.Logger
}

// NewDaemon glues the ingestion pipeline to a scheduler.
func NewDaemon(ingest *Ingest, scheduler ports.Scheduler, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	return &Daemon{ingest: ingest, scheduler: scheduler, log: logger.With("component", "daemon")}
}

// Run starts the schedule and blocks until the context is cancelled.
// Each tick runs one full ingestion pass; a failed pass logs and waits
// for the next tick.
func (d *Daemon) Run(ctx context.Context) error {
	err := d.scheduler.Start(ctx, func(t time.Time) {
		d.log.Info("scheduled run starting", "at", t)
		if _, err := d.ingest.Run(ctx); err != nil {
			d.log.Error("scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	return d.scheduler.Stop(context.Background())
}
