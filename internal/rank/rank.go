// Package rank computes the display ordering over a snapshot. Ranking is a
// pure function: same input, same output, and equal keys keep their input
// order so repeated calls never reorder visually.
package rank

import (
	"sort"
	"time"

	"github.com/lanathlor/Forge-sub000/pkg/models"
)

// Rank orders entries most-important-first:
//
//  1. repositories with an unacknowledged alert, before all others
//  2. ascending status priority (writing/thinking first, idle last)
//  3. descending last activity
//
// The input slice is not modified; the returned slice shares entries.
func Rank(entries []*models.RepoSessionState) []*models.RepoSessionState {
	ordered := make([]*models.RepoSessionState, len(entries))
	copy(ordered, entries)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]

		if a.NeedsAttention != b.NeedsAttention {
			return a.NeedsAttention
		}
		if ap, bp := a.ClaudeStatus.DisplayPriority(), b.ClaudeStatus.DisplayPriority(); ap != bp {
			return ap < bp
		}
		return a.LastActivity.After(b.LastActivity)
	})
	return ordered
}

// Filter is a projection predicate applied per entry before ranking.
type Filter func(*models.RepoSessionState) bool

// Apply returns the entries matching the filter. A nil filter keeps
// everything. Input order is preserved.
func Apply(entries []*models.RepoSessionState, filter Filter) []*models.RepoSessionState {
	if filter == nil {
		return entries
	}
	kept := make([]*models.RepoSessionState, 0, len(entries))
	for _, e := range entries {
		if filter(e) {
			kept = append(kept, e)
		}
	}
	return kept
}

// ActiveWork returns the filter behind the "active work" projection:
// repositories with a non-idle status, activity inside the window, or an
// alert needing attention.
func ActiveWork(window time.Duration, now func() time.Time) Filter {
	return func(e *models.RepoSessionState) bool {
		if e.NeedsAttention {
			return true
		}
		if e.ClaudeStatus != models.StatusIdle {
			return true
		}
		return !e.LastActivity.IsZero() && now().Sub(e.LastActivity) <= window
	}
}
