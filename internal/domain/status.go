package domain

import (
	"context"
	"sort"
	"time"
)

// StatusFor returns the unit-facing status of an activity.
func (s *Service) StatusFor(ctx context.Context, activityID, unitID string) (SubmissionStatus, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return StatusIn(snap, activityID, unitID), nil
}

// StatusIn resolves the status of (activityID, unitID) within snap; no submission means NO_PROOF.
func StatusIn(snap Snapshot, activityID, unitID string) SubmissionStatus {
	if sub, ok := snap.SubmissionFor(activityID, unitID); ok {
		return sub.Status
	}
	return StatusNoProof
}

// AggregateStatus folds the submissions of one activity into a reviewer-facing status:
// pending review dominates completed, which dominates the default.
func AggregateStatus(subs []ProofSubmission) SubmissionStatus {
	status := StatusNoProof
	for _, sub := range subs {
		switch sub.Status {
		case StatusPendingReview:
			return StatusPendingReview
		case StatusCompleted:
			status = StatusCompleted
		}
	}
	return status
}

// ActivityReviewStatus aggregates the status of an activity across all units.
func (s *Service) ActivityReviewStatus(ctx context.Context, activityID string) (SubmissionStatus, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return ActivityStatusIn(snap, activityID)
}

// ActivityStatusIn folds every submission of activityID within snap through AggregateStatus.
func ActivityStatusIn(snap Snapshot, activityID string) (SubmissionStatus, error) {
	if snap.activityIndex(activityID) < 0 {
		return "", ErrActivityNotFound
	}
	subs := make([]ProofSubmission, 0)
	for _, sub := range snap.Submissions {
		if sub.ActivityID == activityID {
			subs = append(subs, sub)
		}
	}
	return AggregateStatus(subs), nil
}

// SubmissionFilter narrows a submission listing. Zero values match everything.
type SubmissionFilter struct {
	Status      SubmissionStatus
	UnitID      string
	ActivityID  string
	SubmittedOn time.Time
}

func (f SubmissionFilter) matches(sub ProofSubmission) bool {
	if f.Status != "" && sub.Status != f.Status {
		return false
	}
	if f.UnitID != "" && sub.UnitID != f.UnitID {
		return false
	}
	if f.ActivityID != "" && sub.ActivityID != f.ActivityID {
		return false
	}
	if !f.SubmittedOn.IsZero() {
		if sub.SubmittedAt == nil || !DateOf(*sub.SubmittedAt).Equal(DateOf(f.SubmittedOn)) {
			return false
		}
	}
	return true
}

// ListSubmissions returns submissions matching filter ordered by submission time, newest
// first, with cursor pagination. Submissions whose parent activity or unit is missing are skipped.
func (s *Service) ListSubmissions(ctx context.Context, filter SubmissionFilter, cursor *Cursor, limit int) ([]ProofSubmission, *Cursor, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	matched := make([]ProofSubmission, 0)
	for _, sub := range snap.Submissions {
		if !filter.matches(sub) {
			continue
		}
		if _, ok := snap.Activity(sub.ActivityID); !ok {
			continue
		}
		if _, ok := snap.Unit(sub.UnitID); !ok {
			continue
		}
		matched = append(matched, sub)
	}
	sort.Slice(matched, func(i, j int) bool {
		return newerFirst(submittedAt(matched[i]), matched[i].ID, submittedAt(matched[j]), matched[j].ID)
	})

	// One extra item tells us whether another page exists.
	results := make([]ProofSubmission, 0, limit+1)
	for _, sub := range matched {
		if cursor != nil && !newerFirst(cursor.SubmittedAt, cursor.ID, submittedAt(sub), sub.ID) {
			continue
		}
		results = append(results, sub)
		if len(results) > limit {
			break
		}
	}

	var next *Cursor
	if len(results) > limit {
		results = results[:limit]
		last := results[limit-1]
		next = &Cursor{SubmittedAt: submittedAt(last), ID: last.ID}
	}
	for i := range results {
		results[i] = results[i].Clone()
	}
	return results, next, nil
}

// newerFirst reports whether key (aAt, aID) sorts strictly before (bAt, bID) in
// newest-first order, ties broken by descending id.
func newerFirst(aAt time.Time, aID string, bAt time.Time, bID string) bool {
	if !aAt.Equal(bAt) {
		return aAt.After(bAt)
	}
	return aID > bID
}

func submittedAt(sub ProofSubmission) time.Time {
	if sub.SubmittedAt == nil {
		return time.Time{}
	}
	return *sub.SubmittedAt
}
