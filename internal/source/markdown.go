package source

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/model"
)

// The New-Grad documents list openings as five-column tables
// (Company | Role | Location | Application | Age) under category headers.
// Parsing runs as a small line-cursor state machine: scanning → in-section →
// in-table. A row with an unexpected shape ends the current table; parsing
// resumes on the next line instead of aborting the document.

const newGradColumns = 5

// continuationMarker opens a company cell that inherits the company of the
// previous explicit row (one company, several open roles).
const continuationMarker = "↳"

var (
	mdLinkRE    = regexp.MustCompile(`\[([^\]]*)\]\((https?://[^)\s]+)\)`)
	hrefRE      = regexp.MustCompile(`href="(https?://[^"]+)"`)
	bareURLRE   = regexp.MustCompile(`https?://[^\s|<>")]+`)
	htmlTagRE   = regexp.MustCompile(`<[^>]*>`)
	ageRE       = regexp.MustCompile(`^(\d+)\s*(mo|d|w)$`)
	headerRE    = regexp.MustCompile(`^#{1,4}\s+(.+?)\s*$`)
	separatorRE = regexp.MustCompile(`^:?-{3,}:?$`)
)

// ParseNewGradDocument parses one markdown document into normalised records.
// Age strings are converted to an approximate posted date relative to now;
// the result is an approximation, never an exact source date.
func ParseNewGradDocument(doc string, now time.Time) []model.JobRecord {
	var (
		records     []model.JobRecord
		category    string
		inTable     bool
		lastCompany string
		lastCompURL string
	)

	lines := strings.Split(doc, "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		if m := headerRE.FindStringSubmatch(line); m != nil {
			category = cleanHeading(m[1])
			inTable = false
			continue
		}

		if !strings.HasPrefix(line, "|") {
			inTable = false
			continue
		}

		cells, ok := splitRow(line)
		if !ok {
			inTable = false
			continue
		}

		if !inTable {
			// A table starts with a header row followed by a separator row.
			if i+1 < len(lines) && isSeparatorRow(strings.TrimSpace(lines[i+1])) {
				inTable = true
				lastCompany, lastCompURL = "", ""
				i++ // skip the separator
			}
			continue
		}

		if len(cells) != newGradColumns {
			inTable = false
			continue
		}

		rec, ok := buildNewGradRecord(cells, category, &lastCompany, &lastCompURL, now)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// buildNewGradRecord resolves one table row, applying the company-inheritance
// rule. Rows without a resolvable company, or without any usable URL in the
// company or application cells, are discarded.
func buildNewGradRecord(cells []string, category string, lastCompany, lastCompURL *string, now time.Time) (model.JobRecord, bool) {
	companyCell, roleCell, locCell, appCell, ageCell := cells[0], cells[1], cells[2], cells[3], cells[4]

	company, companyURL := parseCompanyCell(companyCell)
	if company == "" {
		company, companyURL = *lastCompany, *lastCompURL
	} else {
		*lastCompany, *lastCompURL = company, companyURL
	}
	if company == "" {
		return model.JobRecord{}, false
	}

	title := cellText(roleCell)
	if title == "" {
		return model.JobRecord{}, false
	}

	applyURL := firstURL(appCell)
	url := applyURL
	if url == "" {
		url = companyURL
	}
	if url == "" {
		return model.JobRecord{}, false
	}

	location := cellText(locCell)

	tags := []string{"new-grad"}
	if category != "" {
		tags = append(tags, "category:"+category)
	}

	rec := model.JobRecord{
		Source:      model.SourceSimplifyNewGrad,
		SourceJobID: stableJobID(url, company, title, location, category),
		Title:       title,
		Company:     company,
		Location:    location,
		URL:         url,
		Tags:        tags,
	}
	if applyURL != "" && applyURL != url {
		rec.ApplyURL = applyURL
	}
	if posted, ok := approximatePostedDate(ageCell, now); ok {
		rec.DatePosted = &posted
	}
	return rec, true
}

// stableJobID derives the synthetic identity for sources without a durable
// native ID: a hex SHA-256 over the resolved URL, or over
// company|title|location|category when no URL survived. Inputs are trimmed
// and lowercased so the same logical listing always hashes the same.
func stableJobID(url, company, title, location, category string) string {
	key := strings.ToLower(strings.TrimSpace(url))
	if key == "" {
		key = strings.ToLower(fmt.Sprintf("%s|%s|%s|%s",
			strings.TrimSpace(company), strings.TrimSpace(title),
			strings.TrimSpace(location), strings.TrimSpace(category)))
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// approximatePostedDate converts "<n>d", "<n>w" or "<n>mo" (months counted as
// 30 days) into a timestamp relative to now. Unparseable ages leave the
// posted date unset.
func approximatePostedDate(ageCell string, now time.Time) (time.Time, bool) {
	m := ageRE.FindStringSubmatch(strings.ToLower(cellText(ageCell)))
	if m == nil {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	days := n
	switch m[2] {
	case "w":
		days = n * 7
	case "mo":
		days = n * 30
	}
	return now.AddDate(0, 0, -days), true
}

// splitRow splits a pipe-delimited table row into trimmed cells.
func splitRow(line string) ([]string, bool) {
	if !strings.HasPrefix(line, "|") {
		return nil, false
	}
	trimmed := strings.TrimPrefix(line, "|")
	trimmed = strings.TrimSuffix(trimmed, "|")
	parts := strings.Split(trimmed, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells, true
}

func isSeparatorRow(line string) bool {
	cells, ok := splitRow(line)
	if !ok || len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		if !separatorRE.MatchString(c) {
			return false
		}
	}
	return true
}

// parseCompanyCell extracts the company name and link. A blank cell or one
// starting with the continuation marker yields "" so the caller inherits.
func parseCompanyCell(cell string) (name, url string) {
	c := strings.TrimSpace(cell)
	if c == "" || strings.HasPrefix(c, continuationMarker) {
		return "", ""
	}
	if m := mdLinkRE.FindStringSubmatch(c); m != nil {
		return strings.TrimSpace(m[1]), m[2]
	}
	return cellText(c), firstURL(c)
}

// firstURL pulls the first usable link out of a cell, whether it is a
// markdown link, an HTML anchor or a bare URL.
func firstURL(cell string) string {
	if m := mdLinkRE.FindStringSubmatch(cell); m != nil {
		return m[2]
	}
	if m := hrefRE.FindStringSubmatch(cell); m != nil {
		return m[1]
	}
	return bareURLRE.FindString(cell)
}

// cellText strips markdown links, HTML tags and emphasis down to plain text.
func cellText(cell string) string {
	s := mdLinkRE.ReplaceAllString(cell, "$1")
	s = htmlTagRE.ReplaceAllString(s, "")
	s = strings.NewReplacer("**", "", "*", "", "`", "").Replace(s)
	return strings.TrimSpace(s)
}

func cleanHeading(h string) string {
	s := htmlTagRE.ReplaceAllString(h, "")
	s = strings.TrimSpace(strings.Trim(s, "#"))
	// Headers often carry a leading emoji; drop anything before the first
	// ASCII letter.
	for i, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			return strings.TrimSpace(s[i:])
		}
	}
	return s
}
