// Package storage persists canonical job records.
package storage

import (
	"context"
	"time"

	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/model"
)

// Tx is the set of write operations available inside one transaction.
type Tx interface {
	// UpsertJob inserts the record or, on (source, source_job_id) conflict,
	// overwrites all descriptive fields, forces is_active and refreshes
	// last_seen_at/updated_at while preserving the original created_at.
	UpsertJob(ctx context.Context, job *model.JobRecord) error

	// DeactivateStale marks every still-active record of source whose
	// last_seen_at predates cutoff as inactive and returns how many rows
	// transitioned.
	DeactivateStale(ctx context.Context, source string, cutoff time.Time) (int64, error)
}

// Store is the persistence seam used by the reconciliation engine and the
// query service. InTx runs fn atomically: any error rolls back every write
// made through the Tx.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	ListJobs(ctx context.Context, limit int) ([]model.JobRecord, error)
}
