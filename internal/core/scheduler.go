package core

// scheduler.go runs background maintenance for run history.
//
// Run summaries older than the retention period are purged once on start
// and then every CheckInterval. A failed purge is logged and retried on the
// next tick; it never stops the server.

import (
	"context"
	"log/slog"
	"time"
)

// HistoryConfig holds configuration for the history scheduler.
type HistoryConfig struct {
	RetentionDays int           // Days to keep run summaries (default: 30)
	CheckInterval time.Duration // How often to purge (default: 24h)
}

func (c HistoryConfig) withDefaults() HistoryConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 30
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// StartHistoryScheduler purges old run summaries until ctx is cancelled.
// It blocks; run it in its own goroutine.
func (s *Service) StartHistoryScheduler(ctx context.Context, cfg HistoryConfig) {
	cfg = cfg.withDefaults()
	slog.Info("history scheduler started",
		"retention_days", cfg.RetentionDays,
		"check_interval", cfg.CheckInterval.String(),
	)

	s.runPurgeJob(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history scheduler stopped")
			return
		case <-ticker.C:
			s.runPurgeJob(ctx, cfg)
		}
	}
}

// runPurgeJob performs one purge cycle.
func (s *Service) runPurgeJob(ctx context.Context, cfg HistoryConfig) {
	start := time.Now()
	cutoff := start.AddDate(0, 0, -cfg.RetentionDays)

	purged, err := s.history.PurgeRuns(ctx, cutoff)
	if err != nil {
		slog.Error("history purge failed", "error", err)
		return
	}
	slog.Info("purged run history",
		"runs_purged", purged,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
