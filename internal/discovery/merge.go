package discovery

import (
	"cmp"
	"slices"

	"github.com/raphaelgruber/scout/internal/models"
)

// MergeCandidates concatenates batches in order, drops duplicate URLs keeping
// the first occurrence, then stable-sorts by PriorityRank. Because the sort
// is stable, batch order decides ties between equally recent candidates.
func MergeCandidates(batches [][]models.Candidate) []models.Candidate {
	seen := make(map[string]struct{})
	var merged []models.Candidate
	for _, batch := range batches {
		for _, c := range batch {
			if c.URL == "" {
				continue
			}
			if _, dup := seen[c.URL]; dup {
				continue
			}
			seen[c.URL] = struct{}{}
			merged = append(merged, c)
		}
	}

	slices.SortStableFunc(merged, func(a, b models.Candidate) int {
		return cmp.Compare(a.PriorityRank, b.PriorityRank)
	})
	return merged
}
