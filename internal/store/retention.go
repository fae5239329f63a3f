package store

// retention.go runs the log retention job, which periodically deletes
// import_logs records older than the configured age. The job runs until
// its context is cancelled; a failed run is logged and retried on the next
// tick.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig holds configuration for the retention job.
type RetentionConfig struct {
	MaxAge        time.Duration // Age after which records are deleted (default: 30 days)
	CheckInterval time.Duration // How often to run (default: 24h)
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.MaxAge <= 0 {
		c.MaxAge = 30 * 24 * time.Hour
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// Purger deletes records older than a cutoff.
type Purger interface {
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// StartRetention runs one purge immediately, then every CheckInterval,
// until ctx is cancelled.
func StartRetention(ctx context.Context, p Purger, cfg RetentionConfig) {
	cfg = cfg.withDefaults()
	slog.Info("log retention started",
		"max_age", cfg.MaxAge.String(),
		"check_interval", cfg.CheckInterval.String(),
	)

	runRetention(ctx, p, cfg, time.Now())

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("log retention stopped")
			return
		case now := <-ticker.C:
			runRetention(ctx, p, cfg, now)
		}
	}
}

func runRetention(ctx context.Context, p Purger, cfg RetentionConfig, now time.Time) {
	start := time.Now()
	purged, err := p.Purge(ctx, now.Add(-cfg.MaxAge))
	if err != nil {
		slog.Error("log purge failed", "error", err)
		return
	}
	slog.Info("purged old log records",
		"records_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
