package ingest_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/ingest"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/model"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/storage"
)

// fakeStore is an in-memory Store with transactional (all-or-nothing)
// semantics and optional failure injection, mirroring the contract the
// Postgres implementation provides.
type fakeStore struct {
	rows map[string]model.JobRecord // keyed source|source_job_id

	failUpsertFor  string // source_job_id that should fail to upsert
	failDeactivate bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]model.JobRecord)}
}

func (f *fakeStore) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	// Work on a copy; commit by swapping, roll back by discarding.
	work := make(map[string]model.JobRecord, len(f.rows))
	for k, v := range f.rows {
		work[k] = v
	}
	if err := fn(&fakeTx{store: f, rows: work}); err != nil {
		return err
	}
	f.rows = work
	return nil
}

func (f *fakeStore) ListJobs(ctx context.Context, limit int) ([]model.JobRecord, error) {
	out := make([]model.JobRecord, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeTx struct {
	store *fakeStore
	rows  map[string]model.JobRecord
}

func (t *fakeTx) UpsertJob(ctx context.Context, job *model.JobRecord) error {
	if job.SourceJobID == t.store.failUpsertFor {
		return errors.New("injected upsert failure")
	}
	key := job.Source + "|" + job.SourceJobID
	now := time.Now().UTC()

	rec := *job
	rec.IsActive = true
	rec.LastSeenAt = now
	rec.UpdatedAt = now
	if existing, ok := t.rows[key]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.CreatedAt = now
	}
	t.rows[key] = rec
	return nil
}

func (t *fakeTx) DeactivateStale(ctx context.Context, source string, cutoff time.Time) (int64, error) {
	if t.store.failDeactivate {
		return 0, errors.New("injected deactivation failure")
	}
	var n int64
	for k, r := range t.rows {
		if r.Source == source && r.IsActive && r.LastSeenAt.Before(cutoff) {
			r.IsActive = false
			r.UpdatedAt = time.Now().UTC()
			t.rows[k] = r
			n++
		}
	}
	return n, nil
}

// seed places a record directly into the store, bypassing the engine.
func (f *fakeStore) seed(id string, lastSeen time.Time, active bool) {
	f.rows[model.SourceRemoteOK+"|"+id] = model.JobRecord{
		Source:      model.SourceRemoteOK,
		SourceJobID: id,
		Title:       "Seeded",
		Company:     "Acme",
		URL:         "https://acme.example/" + id,
		IsActive:    active,
		LastSeenAt:  lastSeen,
		CreatedAt:   lastSeen,
		UpdatedAt:   lastSeen,
	}
}

func batch(ids ...string) []model.JobRecord {
	out := make([]model.JobRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.JobRecord{
			Source:      model.SourceRemoteOK,
			SourceJobID: id,
			Title:       "Engineer " + id,
			Company:     "Acme",
			URL:         "https://acme.example/" + id,
		})
	}
	return out
}

func newReconciler(store storage.Store) *ingest.Reconciler {
	return ingest.New(store, slog.Default())
}

func TestSync_Idempotence(t *testing.T) {
	store := newFakeStore()
	r := newReconciler(store)
	ctx := context.Background()

	for run := 1; run <= 2; run++ {
		res, err := r.Sync(ctx, model.SourceRemoteOK, batch("1", "2", "3"), 10)
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if res.Upserted != 3 {
			t.Errorf("run %d: upserted = %d, want 3", run, res.Upserted)
		}
		if res.Deactivated != 0 {
			t.Errorf("run %d: deactivated = %d, want 0", run, res.Deactivated)
		}
		if len(store.rows) != 3 {
			t.Errorf("run %d: stored rows = %d, want 3", run, len(store.rows))
		}
	}
}

func TestSync_PreservesCreatedAtOnRefresh(t *testing.T) {
	store := newFakeStore()
	r := newReconciler(store)
	ctx := context.Background()

	created := time.Now().UTC().Add(-48 * time.Hour)
	store.seed("1", created, true)

	if _, err := r.Sync(ctx, model.SourceRemoteOK, batch("1"), 10); err != nil {
		t.Fatal(err)
	}

	rec := store.rows[model.SourceRemoteOK+"|1"]
	if !rec.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v, want original %v", rec.CreatedAt, created)
	}
	if !rec.UpdatedAt.After(created) {
		t.Errorf("updated_at not refreshed: %v", rec.UpdatedAt)
	}
	if rec.Title != "Engineer 1" {
		t.Errorf("descriptive fields not overwritten: %q", rec.Title)
	}
}

func TestSync_LivenessSweep(t *testing.T) {
	store := newFakeStore()
	r := newReconciler(store)
	ctx := context.Background()
	now := time.Now().UTC()

	const window = 10
	store.seed("stale", now.Add(-(window+1)*24*time.Hour), true)
	store.seed("fresh", now.Add(-(window-1)*24*time.Hour), true)

	res, err := r.Sync(ctx, model.SourceRemoteOK, batch("new"), window)
	if err != nil {
		t.Fatal(err)
	}
	if res.Deactivated != 1 {
		t.Errorf("deactivated = %d, want 1", res.Deactivated)
	}

	if store.rows[model.SourceRemoteOK+"|stale"].IsActive {
		t.Error("record outside the window is still active")
	}
	if !store.rows[model.SourceRemoteOK+"|fresh"].IsActive {
		t.Error("record inside the window was deactivated")
	}
	if !store.rows[model.SourceRemoteOK+"|new"].IsActive {
		t.Error("freshly upserted record was deactivated by the same sync")
	}
}

func TestSync_ReactivatesDeactivatedRecordOnRefetch(t *testing.T) {
	store := newFakeStore()
	r := newReconciler(store)
	ctx := context.Background()

	store.seed("zombie", time.Now().UTC().Add(-30*24*time.Hour), false)

	if _, err := r.Sync(ctx, model.SourceRemoteOK, batch("zombie"), 7); err != nil {
		t.Fatal(err)
	}
	if !store.rows[model.SourceRemoteOK+"|zombie"].IsActive {
		t.Error("re-observed record must be active again")
	}
}

func TestSync_DeactivationFailureRollsBackUpserts(t *testing.T) {
	store := newFakeStore()
	store.failDeactivate = true
	r := newReconciler(store)
	ctx := context.Background()

	res, err := r.Sync(ctx, model.SourceRemoteOK, batch("1", "2"), 7)
	if err == nil {
		t.Fatal("expected error from injected deactivation failure")
	}
	if res != (model.SyncResult{}) {
		t.Errorf("result = %+v, want zero value on failure", res)
	}
	if len(store.rows) != 0 {
		t.Errorf("stored rows = %d, want 0 (full rollback)", len(store.rows))
	}
}

func TestSync_MidBatchUpsertFailureRollsBack(t *testing.T) {
	store := newFakeStore()
	store.failUpsertFor = "2"
	r := newReconciler(store)
	ctx := context.Background()

	if _, err := r.Sync(ctx, model.SourceRemoteOK, batch("1", "2", "3"), 7); err == nil {
		t.Fatal("expected error from injected upsert failure")
	}
	if len(store.rows) != 0 {
		t.Errorf("stored rows = %d, want 0 (no partial batch)", len(store.rows))
	}
}

func TestSync_WindowClamped(t *testing.T) {
	store := newFakeStore()
	r := newReconciler(store)
	ctx := context.Background()
	now := time.Now().UTC()

	// Window below the minimum is clamped to 1 day: a record last seen 2
	// days ago must age out even with windowDays = 0.
	store.seed("old", now.Add(-48*time.Hour), true)

	res, err := r.Sync(ctx, model.SourceRemoteOK, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Deactivated != 1 {
		t.Errorf("deactivated = %d, want 1 with clamped window", res.Deactivated)
	}
}

func TestSync_SourcesAreIndependent(t *testing.T) {
	store := newFakeStore()
	r := newReconciler(store)
	ctx := context.Background()

	// A very stale record of another source must not be touched by this
	// source's sweep.
	other := model.JobRecord{
		Source:      model.SourceSimplifyNewGrad,
		SourceJobID: "x",
		Title:       "Other",
		Company:     "Globex",
		URL:         "https://globex.example/x",
	}
	if _, err := r.Sync(ctx, model.SourceSimplifyNewGrad, []model.JobRecord{other}, 7); err != nil {
		t.Fatal(err)
	}
	key := model.SourceSimplifyNewGrad + "|x"
	rec := store.rows[key]
	rec.LastSeenAt = time.Now().UTC().Add(-100 * 24 * time.Hour)
	store.rows[key] = rec

	res, err := r.Sync(ctx, model.SourceRemoteOK, batch("1"), 7)
	if err != nil {
		t.Fatal(err)
	}
	if res.Deactivated != 0 {
		t.Errorf("deactivated = %d, want 0 (other source's rows untouched)", res.Deactivated)
	}
	if !store.rows[key].IsActive {
		t.Error("other source's record was deactivated")
	}
}
