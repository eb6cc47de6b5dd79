package ranking

import "example.com/ranking/internal/domain"

// Summary is the landing view for an actor.
type Summary struct {
	// PendingReviews counts submissions awaiting review: all units when unitID is empty,
	// otherwise only the given unit.
	PendingReviews int
	// Completed counts the unit's approved submissions; zero when unitID is empty.
	Completed int
	TopUnit   *Entry
}

// Summarize builds the dashboard summary from the current snapshot.
func Summarize(snap domain.Snapshot, unitID string) Summary {
	var summary Summary
	for _, sub := range snap.Submissions {
		if unitID != "" && sub.UnitID != unitID {
			continue
		}
		switch sub.Status {
		case domain.StatusPendingReview:
			summary.PendingReviews++
		case domain.StatusCompleted:
			if unitID != "" {
				summary.Completed++
			}
		}
	}
	entries := FromSnapshot(snap, nil)
	if len(entries) > 0 {
		top := entries[0]
		summary.TopUnit = &top
	}
	return summary
}
