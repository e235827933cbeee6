package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/model"
)

const remoteOKAPIURL = "https://remoteok.com/api"

// remoteOKMaxLimit caps one fetch; the API returns the full feed in a single
// response, so the cap is applied after sorting newest-first.
const remoteOKMaxLimit = 2000

// RemoteOK fetches from the RemoteOK public JSON API.
type RemoteOK struct {
	client  *http.Client
	baseURL string
}

// NewRemoteOK constructs a RemoteOK source with a timeout-bounded client.
func NewRemoteOK() *RemoteOK {
	return &RemoteOK{
		client:  newHTTPClient(),
		baseURL: remoteOKAPIURL,
	}
}

func (r *RemoteOK) Name() string { return model.SourceRemoteOK }

func (r *RemoteOK) MaxLimit() int { return remoteOKMaxLimit }

// Fetch issues a single GET, parses the loosely-typed listing array and
// returns at most limit records, newest first. One failed call aborts the
// whole sync for this source; there are no retries here.
func (r *RemoteOK) Fetch(ctx context.Context, limit int) ([]model.JobRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL, nil)
	if err != nil {
		return nil, &FetchError{Source: r.Name(), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "job-retrieval-backend/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: r.Name(), Err: fmt.Errorf("http GET: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Source: r.Name(), Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Source: r.Name(), Err: fmt.Errorf("remoteok returned %d", resp.StatusCode)}
	}

	// The feed is a JSON array whose first element is a legal/metadata blob,
	// so every element is parsed loosely and validated individually.
	var raw []map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &FetchError{Source: r.Name(), Err: fmt.Errorf("response is not a listing array: %w", err)}
	}

	records := make([]model.JobRecord, 0, len(raw))
	for _, item := range raw {
		rec, ok := r.normalize(item)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	// Sort the full batch before capping so "most recent N" holds regardless
	// of source ordering.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].SortKey() > records[j].SortKey()
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// normalize converts one raw API element into a JobRecord. Records missing
// id, title, company or url are dropped (filtering, not an error).
func (r *RemoteOK) normalize(item map[string]any) (model.JobRecord, bool) {
	id := stringValue(item["id"])
	title := stringValue(item["position"])
	if title == "" {
		title = stringValue(item["title"])
	}
	company := stringValue(item["company"])
	url := stringValue(item["url"])
	slug := stringValue(item["slug"])

	if url == "" && slug != "" {
		url = "https://remoteok.com/remote-jobs/" + slug
	}
	if id == "" || title == "" || company == "" || url == "" {
		return model.JobRecord{}, false
	}

	rec := model.JobRecord{
		Source:      model.SourceRemoteOK,
		SourceJobID: id,
		Title:       title,
		Company:     company,
		Location:    stringValue(item["location"]),
		URL:         url,
		ApplyURL:    stringValue(item["apply_url"]),
		Slug:        slug,
		CompanyLogo: stringValue(item["company_logo"]),
		Tags:        stringSlice(item["tags"]),
		Description: stringValue(item["description"]),
		Epoch:       intValue(item["epoch"]),
	}
	if min, ok := optionalInt(item["salary_min"]); ok {
		rec.SalaryMin = &min
	}
	if max, ok := optionalInt(item["salary_max"]); ok {
		rec.SalaryMax = &max
	}
	if t, ok := timeValue(item["date"]); ok {
		rec.DatePosted = &t
	}
	return rec, true
}

// stringValue trims a string field; numeric ids are stringified so the
// synthetic key stays stable whatever the API serialises them as.
func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatInt(int64(s), 10)
	default:
		return ""
	}
}

// intValue coerces a numeric or pure-digit-string field; anything else is
// treated as absent (0).
func intValue(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0
		}
		for _, c := range s {
			if c < '0' || c > '9' {
				return 0
			}
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

func optionalInt(v any) (int, bool) {
	n := intValue(v)
	if n == 0 {
		return 0, false
	}
	return int(n), true
}

func timeValue(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
