package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/api"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/ingest"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/model"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/source"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/storage"
)

// stubSource is a canned Source for route tests.
type stubSource struct {
	name    string
	max     int
	records []model.JobRecord
	err     error

	gotLimit int
}

func (s *stubSource) Name() string  { return s.name }
func (s *stubSource) MaxLimit() int { return s.max }

func (s *stubSource) Fetch(ctx context.Context, limit int) ([]model.JobRecord, error) {
	s.gotLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

// memStore is an in-memory Store with transactional semantics, enough to
// drive the sync and feed routes without a database.
type memStore struct {
	rows map[string]model.JobRecord

	gotListLimit int
	listErr      error
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]model.JobRecord)}
}

func (m *memStore) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	work := make(map[string]model.JobRecord, len(m.rows))
	for k, v := range m.rows {
		work[k] = v
	}
	if err := fn(&memTx{rows: work}); err != nil {
		return err
	}
	m.rows = work
	return nil
}

func (m *memStore) ListJobs(ctx context.Context, limit int) ([]model.JobRecord, error) {
	m.gotListLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]model.JobRecord, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memTx struct {
	rows map[string]model.JobRecord
}

func (t *memTx) UpsertJob(ctx context.Context, job *model.JobRecord) error {
	rec := *job
	rec.IsActive = true
	rec.LastSeenAt = time.Now().UTC()
	t.rows[job.Source+"|"+job.SourceJobID] = rec
	return nil
}

func (t *memTx) DeactivateStale(ctx context.Context, srcName string, cutoff time.Time) (int64, error) {
	var n int64
	for k, r := range t.rows {
		if r.Source == srcName && r.IsActive && r.LastSeenAt.Before(cutoff) {
			r.IsActive = false
			t.rows[k] = r
			n++
		}
	}
	return n, nil
}

func newTestRouter(t *testing.T, src *stubSource, store *memStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := source.NewRegistry()
	if src != nil {
		registry.Register(src)
	}
	h := api.New(
		registry,
		ingest.New(store, slog.Default()),
		store,
		nil, // redis
		nil, // llm
		nil, // resumes
		slog.Default(),
		"test",
	)
	r := gin.New()
	h.Register(r)
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, nil, newMemStore())

	w := doJSON(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestSync_EndToEnd(t *testing.T) {
	src := &stubSource{
		name: "stub",
		max:  100,
		records: []model.JobRecord{
			{Source: "stub", SourceJobID: "1", Title: "A", Company: "Acme", URL: "https://x.example/1"},
			{Source: "stub", SourceJobID: "2", Title: "B", Company: "Acme", URL: "https://x.example/2"},
		},
	}
	store := newMemStore()
	r := newTestRouter(t, src, store)

	w := doJSON(r, http.MethodPost, "/sync", `{"source": "stub"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Source      string `json:"source"`
		Fetched     int    `json:"fetched"`
		Upserted    int    `json:"upserted"`
		Deactivated int    `json:"deactivated"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if resp.Source != "stub" || resp.Fetched != 2 || resp.Upserted != 2 || resp.Deactivated != 0 {
		t.Errorf("response = %+v", resp)
	}
	if len(store.rows) != 2 {
		t.Errorf("stored rows = %d, want 2", len(store.rows))
	}
	if src.gotLimit != 100 {
		t.Errorf("fetch limit = %d, want source max when omitted", src.gotLimit)
	}
}

func TestSync_UnknownSource(t *testing.T) {
	r := newTestRouter(t, &stubSource{name: "stub", max: 10}, newMemStore())

	w := doJSON(r, http.MethodPost, "/sync", `{"source": "nope"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSync_MissingSourceField(t *testing.T) {
	r := newTestRouter(t, &stubSource{name: "stub", max: 10}, newMemStore())

	w := doJSON(r, http.MethodPost, "/sync", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSync_NegativeLimit(t *testing.T) {
	r := newTestRouter(t, &stubSource{name: "stub", max: 10}, newMemStore())

	w := doJSON(r, http.MethodPost, "/sync", `{"source": "stub", "limit": -1}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSync_LimitCappedAtSourceMax(t *testing.T) {
	src := &stubSource{name: "stub", max: 10}
	r := newTestRouter(t, src, newMemStore())

	w := doJSON(r, http.MethodPost, "/sync", `{"source": "stub", "limit": 99999}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if src.gotLimit != 10 {
		t.Errorf("fetch limit = %d, want capped to 10", src.gotLimit)
	}
}

func TestSync_WindowOutOfRange(t *testing.T) {
	r := newTestRouter(t, &stubSource{name: "stub", max: 10}, newMemStore())

	w := doJSON(r, http.MethodPost, "/sync", `{"source": "stub", "inactivity_window_days": 400}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSync_FetchFailureIsBadGateway(t *testing.T) {
	src := &stubSource{name: "stub", max: 10, err: errors.New("upstream down")}
	store := newMemStore()
	r := newTestRouter(t, src, store)

	w := doJSON(r, http.MethodPost, "/sync", `{"source": "stub"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if strings.Contains(w.Body.String(), "upstream down") {
		t.Error("internal error leaked to the client")
	}
	if len(store.rows) != 0 {
		t.Errorf("stored rows = %d, want 0 after failed fetch", len(store.rows))
	}
}

func TestListJobs_NoLimitReturnsAll(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 60; i++ {
		id := strconv.Itoa(i)
		store.rows["s|"+id] = model.JobRecord{Source: "s", SourceJobID: id, Title: "T", IsActive: true}
	}
	r := newTestRouter(t, nil, store)

	w := doJSON(r, http.MethodGet, "/jobs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if store.gotListLimit != 0 {
		t.Errorf("list limit = %d, want 0 (uncapped) when omitted", store.gotListLimit)
	}
	var body struct {
		Count int               `json:"count"`
		Jobs  []model.JobRecord `json:"jobs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.Count != 60 || len(body.Jobs) != 60 {
		t.Errorf("count = %d, jobs = %d, want 60 each", body.Count, len(body.Jobs))
	}
}

func TestListJobs_LimitClamped(t *testing.T) {
	cases := []struct {
		query string
		want  int
	}{
		{"limit=10", 10},
		{"limit=999", 50},
		{"limit=0", 1},
		{"limit=-3", 1},
	}
	for _, c := range cases {
		store := newMemStore()
		r := newTestRouter(t, nil, store)
		w := doJSON(r, http.MethodGet, "/jobs?"+c.query, "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", c.query, w.Code)
		}
		if store.gotListLimit != c.want {
			t.Errorf("%s: list limit = %d, want %d", c.query, store.gotListLimit, c.want)
		}
	}
}

func TestListJobs_BadLimit(t *testing.T) {
	r := newTestRouter(t, nil, newMemStore())

	w := doJSON(r, http.MethodGet, "/jobs?limit=abc", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListJobs_StoreFailure(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("connection refused")
	r := newTestRouter(t, nil, store)

	w := doJSON(r, http.MethodGet, "/jobs", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Error("internal error leaked to the client")
	}
}

func TestLLMTest_UnconfiguredIsServiceUnavailable(t *testing.T) {
	r := newTestRouter(t, nil, newMemStore())

	w := doJSON(r, http.MethodPost, "/llm/test", `{"prompt": "hi"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestUploadResume_UnconfiguredIsServiceUnavailable(t *testing.T) {
	r := newTestRouter(t, nil, newMemStore())

	w := doJSON(r, http.MethodPost, "/resume/upload", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}
