// Package model defines the canonical data structures shared by the
// ingestion pipeline, the store and the HTTP layer.
package model

import "time"

// Known source identifiers. The value is part of every record's identity and
// must never change once records for it exist.
const (
	SourceRemoteOK        = "remoteok"
	SourceSimplifyNewGrad = "simplify_newgrad"
)

// JobRecord is a job listing normalised from any source into one shape.
// The composite key (Source, SourceJobID) is globally unique and is the
// upsert conflict key — re-fetching the same logical listing must always
// resolve to the same pair.
type JobRecord struct {
	Source      string `json:"source"`
	SourceJobID string `json:"source_job_id"`

	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location,omitempty"`
	URL         string     `json:"url"`
	ApplyURL    string     `json:"apply_url,omitempty"`
	Slug        string     `json:"slug,omitempty"`
	CompanyLogo string     `json:"company_logo,omitempty"`
	Tags        []string   `json:"tags"`
	Description string     `json:"description,omitempty"`
	DatePosted  *time.Time `json:"date_posted,omitempty"`
	Epoch       int64      `json:"epoch,omitempty"` // source-native sort key; 0 means absent
	SalaryMin   *int       `json:"salary_min,omitempty"`
	SalaryMax   *int       `json:"salary_max,omitempty"`

	IsActive   bool      `json:"is_active"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SortKey returns the freshness key used to order a fetched batch newest
// first: the source epoch when present, otherwise the posted date as a Unix
// timestamp, otherwise 0.
func (j *JobRecord) SortKey() int64 {
	if j.Epoch > 0 {
		return j.Epoch
	}
	if j.DatePosted != nil {
		return j.DatePosted.Unix()
	}
	return 0
}

// SyncResult reports the outcome of one reconciliation run for one source.
type SyncResult struct {
	Fetched     int `json:"fetched"`
	Upserted    int `json:"upserted"`
	Deactivated int `json:"deactivated"`
}
