// Package scheduler wires up the optional cron job that periodically syncs
// every registered source. The HTTP sync endpoint stays the primary trigger;
// the cron only exists for deployments without an external caller.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/ingest"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/source"
)

// Scheduler wraps robfig/cron around the full-registry sync loop.
type Scheduler struct {
	cron       *cron.Cron
	registry   *source.Registry
	reconciler *ingest.Reconciler
	spec       string
	limit      int
	windowDays int
	logger     *slog.Logger
}

// New creates a Scheduler firing on the given cron spec (e.g. "@every 6h").
func New(registry *source.Registry, reconciler *ingest.Reconciler, spec string, limit, windowDays int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLogger(cron.DefaultLogger)),
		registry:   registry,
		reconciler: reconciler,
		spec:       spec,
		limit:      limit,
		windowDays: windowDays,
		logger:     logger.With("component", "scheduler"),
	}
}

// Start registers the job and starts the scheduler. Also runs one sync cycle
// immediately so the feed is populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.runAll(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("cron started", "spec", s.spec)

	go s.runAll(ctx)
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("cron stopped")
}

// runAll syncs every registered source in order. A failing source is logged
// and skipped; the others still run.
func (s *Scheduler) runAll(ctx context.Context) {
	s.logger.Info("sync cycle started")

	for _, name := range s.registry.Names() {
		src, ok := s.registry.Get(name)
		if !ok {
			continue
		}

		limit := s.limit
		if limit <= 0 || limit > src.MaxLimit() {
			limit = src.MaxLimit()
		}

		records, err := src.Fetch(ctx, limit)
		if err != nil {
			s.logger.Error("scheduled fetch failed", "source", name, "err", err)
			continue
		}
		if _, err := s.reconciler.Sync(ctx, name, records, s.windowDays); err != nil {
			s.logger.Error("scheduled sync failed", "source", name, "err", err)
		}
	}

	s.logger.Info("sync cycle complete")
}
