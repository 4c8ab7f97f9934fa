package jobs

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultRetention     = time.Hour
	defaultSweepInterval = 5 * time.Minute
)

// Sweeper removes terminal jobs older than a cutoff.
type Sweeper interface {
	Sweep(cutoff time.Time) int
}

// Janitor periodically evicts finished jobs once their retention window has passed.
type Janitor struct {
	store     Sweeper
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewJanitor creates a Janitor. Non-positive durations fall back to defaults.
func NewJanitor(s Sweeper, retention, interval time.Duration, logger *slog.Logger) *Janitor {
	if retention <= 0 {
		retention = defaultRetention
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		store:     s,
		retention: retention,
		interval:  interval,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("job janitor started", "retention", j.retention.String(), "interval", j.interval.String())
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("job janitor stopped")
			return nil
		case <-ticker.C:
			j.SweepOnce()
		}
	}
}

// SweepOnce evicts expired jobs now and returns how many were removed.
func (j *Janitor) SweepOnce() int {
	removed := j.store.Sweep(j.now().Add(-j.retention))
	if removed > 0 {
		j.logger.Info("expired jobs evicted", "count", removed)
	}
	return removed
}
