package journal

import (
	"context"
	"sort"
)

// Repo defines persistence operations for the two durable collections.
//
// Both Load operations return collections already in display order: analyzed
// entries descending by analysis timestamp, check-ins with all pending first
// and most-recently-created first within each status group. Save operations
// dedup by id and are whole-collection rewrites; Update and Delete are no-ops
// on unknown ids.
type Repo interface {
	LoadAnalyzedEntries(ctx context.Context) ([]AnalyzedEntry, error)
	SaveAnalyzedEntry(ctx context.Context, entry AnalyzedEntry) error
	LoadCheckIns(ctx context.Context) ([]CheckIn, error)
	SaveCheckIn(ctx context.Context, checkIn CheckIn) error
	UpdateCheckIn(ctx context.Context, checkIn CheckIn) error
	DeleteCheckIn(ctx context.Context, id string) error
}

// sortAnalyzedEntries orders entries most-recent-analysis-first.
func sortAnalyzedEntries(entries []AnalyzedEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
}

// sortCheckIns orders check-ins pending-first, then newest-created-first
// within each status group.
func sortCheckIns(checkIns []CheckIn) {
	sort.SliceStable(checkIns, func(i, j int) bool {
		iPending := checkIns[i].Status == StatusPending
		jPending := checkIns[j].Status == StatusPending
		if iPending != jPending {
			return iPending
		}
		return checkIns[i].CreatedAt.After(checkIns[j].CreatedAt)
	})
}
