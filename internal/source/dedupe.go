package source

import (
	"sort"

	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/model"
)

// Deduplicate collapses records sharing a SourceJobID — the same listing can
// appear in both the live document and an archive. Later records win, so
// callers must concatenate documents in their pinned processing order. The
// survivors are sorted newest-first by posted date (missing dates last) and
// capped to limit (0 means no cap).
func Deduplicate(records []model.JobRecord, limit int) []model.JobRecord {
	index := make(map[string]int, len(records))
	out := make([]model.JobRecord, 0, len(records))
	for _, rec := range records {
		if i, seen := index[rec.SourceJobID]; seen {
			out[i] = rec
			continue
		}
		index[rec.SourceJobID] = len(out)
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].DatePosted, out[j].DatePosted
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.After(*dj)
		}
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
