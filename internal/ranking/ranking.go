// Package ranking computes unit standings from a snapshot of activities and submissions.
// Every call recomputes from its inputs; nothing is cached between calls.
package ranking

import (
	"sort"
	"time"

	"example.com/ranking/internal/domain"
)

// Period restricts the eligible activity set. Nil bounds are open-ended.
type Period struct {
	Start *time.Time
	End   *time.Time
}

// Entry is a unit's aggregated score and submission counts for a period.
type Entry struct {
	Unit           domain.Unit
	Total          int
	CompletedCount int
	PendingCount   int
}

// Eligible reports whether the activity window overlaps the period.
func (p *Period) Eligible(a domain.Activity) bool {
	if p == nil {
		return true
	}
	if p.End != nil && a.WindowStart.After(domain.DateOf(*p.End)) {
		return false
	}
	if p.Start != nil && a.WindowEnd.Before(domain.DateOf(*p.Start)) {
		return false
	}
	return true
}

// Compute ranks units by total points over completed submissions of eligible activities.
// Units with equal totals are ordered by unit id.
func Compute(units []domain.Unit, activities []domain.Activity, submissions []domain.ProofSubmission, period *Period) []Entry {
	eligible := make(map[string]domain.Activity, len(activities))
	for _, a := range activities {
		if period.Eligible(a) {
			eligible[a.ID] = a
		}
	}

	byUnit := make(map[string]*Entry, len(units))
	entries := make([]Entry, len(units))
	for i, u := range units {
		entries[i] = Entry{Unit: u}
		byUnit[u.ID] = &entries[i]
	}

	for _, sub := range submissions {
		entry, ok := byUnit[sub.UnitID]
		if !ok {
			continue
		}
		activity, ok := eligible[sub.ActivityID]
		if !ok {
			continue
		}
		switch sub.Status {
		case domain.StatusCompleted:
			entry.CompletedCount++
			entry.Total += Points(sub, activity)
		case domain.StatusPendingReview:
			entry.PendingCount++
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Total != entries[j].Total {
			return entries[i].Total > entries[j].Total
		}
		return entries[i].Unit.ID < entries[j].Unit.ID
	})
	return entries
}

// FromSnapshot is Compute over a snapshot.
func FromSnapshot(snap domain.Snapshot, period *Period) []Entry {
	return Compute(snap.Units, snap.Activities, snap.Submissions, period)
}

// Points resolves the value of a completed submission: the recorded approval wins,
// otherwise the activity's current defaults apply.
func Points(sub domain.ProofSubmission, activity domain.Activity) int {
	base := domain.ValueOr(sub.ApprovedBasePoints, activity.BasePoints)
	bonus := domain.ValueOr(sub.ApprovedBonusPoints, domain.ValueOr(activity.BonusPoints, 0))
	return base + bonus
}
