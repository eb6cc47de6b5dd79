package persistence

import (
	"context"
	"fmt"
	"time"

	"example.com/ranking/internal/domain"
)

// DefaultRoster is the unit roster installed on first start.
func DefaultRoster() []domain.Unit {
	return []domain.Unit{
		{ID: "aguia-dourada", Name: "Águia Dourada"},
		{ID: "morcegos", Name: "Morcegos"},
		{ID: "harpia", Name: "Hárpia"},
		{ID: "panda", Name: "Panda"},
		{ID: "dente-de-sabre", Name: "Dente de Sabre"},
		{ID: "pantera", Name: "Pantera"},
	}
}

// DemoSnapshot returns a small catalogue with submissions in every state, for local development.
func DemoSnapshot() domain.Snapshot {
	day := func(s string) time.Time {
		t, _ := time.Parse(time.DateOnly, s)
		return t
	}
	stamp := func(s string) time.Time {
		t, _ := time.Parse(time.RFC3339, s)
		return t
	}
	activity := func(id, name, desc, start, end string, base int, bonus *int, created string) domain.Activity {
		return domain.Activity{
			ID:          id,
			Name:        name,
			Description: desc,
			WindowStart: day(start),
			WindowEnd:   day(end),
			BasePoints:  base,
			BonusPoints: bonus,
			CreatedAt:   stamp(created),
			UpdatedAt:   stamp(created),
		}
	}

	return domain.Snapshot{
		Units: DefaultRoster(),
		Activities: []domain.Activity{
			activity("act-1", "Team camp", "Annual camp focused on teamwork.", "2026-02-10", "2026-02-12", 200, domain.Ptr(40), "2026-01-05T10:00:00Z"),
			activity("act-2", "Community service project", "A social action recorded by the unit.", "2026-03-01", "2026-03-31", 150, nil, "2026-01-12T09:00:00Z"),
			activity("act-3", "First aid specialty", "Specialty completed with photo record.", "2026-01-20", "2026-02-20", 120, domain.Ptr(30), "2026-01-08T13:30:00Z"),
			activity("act-4", "Night trail", "Guided trail with a safety checklist.", "2026-04-05", "2026-04-06", 90, nil, "2026-01-15T16:45:00Z"),
		},
		Submissions: []domain.ProofSubmission{
			{
				ID: "sub-1", ActivityID: "act-1", UnitID: "aguia-dourada", Status: domain.StatusCompleted,
				Description:         domain.Ptr("Twelve members attended, photos attached."),
				SubmittedAt:         domain.Ptr(stamp("2026-02-13T18:00:00Z")),
				ReviewedAt:          domain.Ptr(stamp("2026-02-14T10:30:00Z")),
				ApprovedBasePoints:  domain.Ptr(200),
				ApprovedBonusPoints: domain.Ptr(40),
				Review: &domain.ReviewDecision{
					ReviewerID: "board", Outcome: domain.OutcomeApproved, ReviewedAt: stamp("2026-02-14T10:30:00Z"),
				},
				Version: 2,
			},
			{
				ID: "sub-2", ActivityID: "act-2", UnitID: "pantera", Status: domain.StatusPendingReview,
				Description: domain.Ptr("Delivery made in the neighbourhood."),
				SubmittedAt: domain.Ptr(stamp("2026-03-20T21:10:00Z")),
				Version:     1,
			},
			{
				ID: "sub-3", ActivityID: "act-4", UnitID: "panda", Status: domain.StatusNoProof,
				ReviewedAt: domain.Ptr(stamp("2026-04-07T10:00:00Z")),
				Review: &domain.ReviewDecision{
					ReviewerID: "board", Outcome: domain.OutcomeRejected,
					RejectionJustification: "The completed safety checklist is missing.",
					ReviewedAt:             stamp("2026-04-07T10:00:00Z"),
				},
				Version: 2,
			},
		},
	}
}

// Bootstrap saves initial into an empty store. A store that already holds units is left alone.
func Bootstrap(ctx context.Context, store domain.SnapshotStore, initial domain.Snapshot) (bool, error) {
	current, err := store.LoadSnapshot(ctx)
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}
	if len(current.Units) > 0 {
		return false, nil
	}
	next := initial.Clone()
	next.Version = current.Version
	if err := store.SaveSnapshot(ctx, next, nil); err != nil {
		return false, fmt.Errorf("save initial snapshot: %w", err)
	}
	return true, nil
}
