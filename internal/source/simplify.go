package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/model"
)

const (
	simplifyRootURL    = "https://raw.githubusercontent.com/SimplifyJobs/New-Grad-Positions/dev/README.md"
	simplifyArchiveAPI = "https://api.github.com/repos/SimplifyJobs/New-Grad-Positions/contents/archived-readmes?ref=dev"

	// The document source has no server-side paging; the cap only bounds the
	// merged, deduplicated result.
	simplifyMaxLimit = 50000
)

// SimplifyNewGrad fetches the SimplifyJobs New-Grad-Positions markdown
// documents: the live README plus whatever archived READMEs the GitHub
// contents API lists.
type SimplifyNewGrad struct {
	client     *http.Client
	rootURL    string
	archiveAPI string
	token      string // optional GitHub token, raises the API rate limit
	logger     *slog.Logger
	now        func() time.Time
}

// NewSimplifyNewGrad constructs the source. token may be empty.
func NewSimplifyNewGrad(token string, logger *slog.Logger) *SimplifyNewGrad {
	return &SimplifyNewGrad{
		client:     newHTTPClient(),
		rootURL:    simplifyRootURL,
		archiveAPI: simplifyArchiveAPI,
		token:      token,
		logger:     logger.With("component", "source.simplify"),
		now:        time.Now,
	}
}

func (s *SimplifyNewGrad) Name() string { return model.SourceSimplifyNewGrad }

func (s *SimplifyNewGrad) MaxLimit() int { return simplifyMaxLimit }

// Fetch retrieves and parses every document, then deduplicates across them.
// Archive discovery is best-effort: if the listing API is unavailable or
// rate-limited the live README alone is used. A failed fetch of any actual
// document is fatal.
//
// Document order is pinned — archives in ascending filename order, the live
// README last — so the later-wins merge always prefers the live document.
func (s *SimplifyNewGrad) Fetch(ctx context.Context, limit int) ([]model.JobRecord, error) {
	archiveURLs, err := s.discoverArchives(ctx)
	if err != nil {
		s.logger.Warn("archive discovery failed, continuing with live document only", "err", err)
		archiveURLs = nil
	}

	now := s.now()
	var records []model.JobRecord
	for _, u := range archiveURLs {
		doc, err := s.fetchDocument(ctx, u)
		if err != nil {
			return nil, &FetchError{Source: s.Name(), Err: err}
		}
		records = append(records, ParseNewGradDocument(doc, now)...)
	}

	root, err := s.fetchDocument(ctx, s.rootURL)
	if err != nil {
		return nil, &FetchError{Source: s.Name(), Err: err}
	}
	records = append(records, ParseNewGradDocument(root, now)...)

	return Deduplicate(records, limit), nil
}

// archiveEntry mirrors the fields we use from the GitHub contents API.
type archiveEntry struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	DownloadURL string `json:"download_url"`
}

// discoverArchives lists the archived-readmes directory and keeps markdown
// files whose name signals an index/readme document.
func (s *SimplifyNewGrad) discoverArchives(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.archiveAPI, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contents API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("contents API returned %d", resp.StatusCode)
	}

	var entries []archiveEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("contents API decode: %w", err)
	}

	type named struct{ name, url string }
	var picked []named
	for _, e := range entries {
		name := strings.ToLower(e.Name)
		if e.Type != "file" || e.DownloadURL == "" {
			continue
		}
		if !strings.HasSuffix(name, ".md") || !strings.Contains(name, "readme") {
			continue
		}
		picked = append(picked, named{name: name, url: e.DownloadURL})
	}

	// Archive filenames embed their period; lexicographic order is the
	// chronological processing order.
	sort.Slice(picked, func(i, j int) bool { return picked[i].name < picked[j].name })

	urls := make([]string, len(picked))
	for i, p := range picked {
		urls[i] = p.url
	}
	return urls, nil
}

func (s *SimplifyNewGrad) fetchDocument(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("document %s returned %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read document %s: %w", url, err)
	}
	return string(body), nil
}
