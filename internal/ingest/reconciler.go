// Package ingest contains the reconciliation engine: it takes a normalised,
// deduplicated batch for one source and makes the store agree with it
// without ever deleting history.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/model"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/storage"
)

// Window bounds for the inactivity sweep, in days.
const (
	MinWindowDays = 1
	MaxWindowDays = 365
)

// Reconciler applies fetched batches to the store.
type Reconciler struct {
	store  storage.Store
	logger *slog.Logger
}

// New returns a Reconciler writing through store.
func New(store storage.Store, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: logger.With("component", "ingest"),
	}
}

// Sync runs one reconciliation for source as a single atomic transaction:
//
//  1. every record in the batch is upserted on (source, source_job_id),
//     refreshed records becoming active again with a fresh last_seen_at;
//  2. one bulk update deactivates every record of the source not seen within
//     the inactivity window — records just upserted were refreshed in step 1
//     and are immune this cycle.
//
// Any failure rolls the whole batch back; there is no partial success. The
// liveness model is purely time-based: a record ages out once the window
// elapses whether or not the source ever reports its absence.
func (r *Reconciler) Sync(ctx context.Context, source string, records []model.JobRecord, windowDays int) (model.SyncResult, error) {
	if windowDays < MinWindowDays {
		windowDays = MinWindowDays
	} else if windowDays > MaxWindowDays {
		windowDays = MaxWindowDays
	}
	cutoff := time.Now().UTC().Add(-time.Duration(windowDays) * 24 * time.Hour)

	res := model.SyncResult{Fetched: len(records)}
	err := r.store.InTx(ctx, func(tx storage.Tx) error {
		for i := range records {
			rec := &records[i]
			if rec.Source == "" {
				rec.Source = source
			}
			if rec.Source != source {
				return fmt.Errorf("record %s belongs to source %q, syncing %q", rec.SourceJobID, rec.Source, source)
			}
			if err := tx.UpsertJob(ctx, rec); err != nil {
				return err
			}
			res.Upserted++
		}

		n, err := tx.DeactivateStale(ctx, source, cutoff)
		if err != nil {
			return err
		}
		res.Deactivated = int(n)
		return nil
	})
	if err != nil {
		return model.SyncResult{}, fmt.Errorf("sync %s: %w", source, err)
	}

	r.logger.Info("sync complete",
		"source", source,
		"fetched", res.Fetched,
		"upserted", res.Upserted,
		"deactivated", res.Deactivated,
		"window_days", windowDays,
	)
	return res, nil
}
