package etl

import (
	"time"

	"github.com/sells-group/opportunity-etl/internal/model"
)

// Dedupe keeps exactly one opportunity per ID: the most recently modified
// one. A record whose LastModifiedDate is unparseable ranks below any record
// with a valid timestamp; among equal timestamps the later input row wins.
// Survivors are returned in order of each ID's first appearance.
func Dedupe(opps []model.Opportunity) []model.Opportunity {
	best := make(map[string]int, len(opps))
	var order []string

	for i := range opps {
		id := opps[i].ID
		j, seen := best[id]
		if !seen {
			order = append(order, id)
			best[id] = i
			continue
		}
		if !modifiedBefore(opps[i].LastModifiedDate, opps[j].LastModifiedDate) {
			best[id] = i
		}
	}

	out := make([]model.Opportunity, 0, len(order))
	for _, id := range order {
		out = append(out, opps[best[id]])
	}
	return out
}

// modifiedBefore reports whether a sorts strictly before b, with nil as the
// earliest possible value.
func modifiedBefore(a, b *time.Time) bool {
	switch {
	case a == nil && b == nil:
		return false
	case a == nil:
		return true
	case b == nil:
		return false
	default:
		return a.Before(*b)
	}
}
