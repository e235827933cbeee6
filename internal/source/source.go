// Package source implements job listing fetching and normalisation.
//
// Each Source retrieves raw documents or records from one remote origin and
// returns them already normalised into model.JobRecord — untyped payloads
// never leave this package.
package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/model"
)

// httpTimeout bounds every individual HTTP call made by a source.
const httpTimeout = 30 * time.Second

// Source is an external origin of job listings.
type Source interface {
	// Name returns the stable source identifier stored with every record.
	Name() string

	// MaxLimit is the largest fetch cap this source accepts.
	MaxLimit() int

	// Fetch retrieves, normalises and deduplicates at most limit records.
	// It returns a *FetchError on transport failure, timeout or a malformed
	// top-level response; individual invalid records are dropped silently.
	Fetch(ctx context.Context, limit int) ([]model.JobRecord, error)
}

// FetchError is a fatal per-source failure: the sync for that source is
// aborted and no database writes happen.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Registry holds all configured sources keyed by name.
type Registry struct {
	sources map[string]Source
	names   []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds a source. Registering the same name twice replaces it.
func (r *Registry) Register(s Source) {
	if _, ok := r.sources[s.Name()]; !ok {
		r.names = append(r.names, s.Name())
	}
	r.sources[s.Name()] = s
}

// Get returns the source registered under name.
func (r *Registry) Get(name string) (Source, bool) {
	s, ok := r.sources[name]
	return s, ok
}

// Names returns all registered source names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}
