package domain

import (
	"context"
	"strings"
	"time"

	"example.com/ranking/internal/events"
)

// ActivityInput captures the mutable fields of an activity.
type ActivityInput struct {
	Name        string
	Description string
	WindowStart time.Time
	WindowEnd   time.Time
	BasePoints  int
	BonusPoints *int
}

// Validate ensures the window is well formed and the scores are in range.
func (in ActivityInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return validationError("name is required")
	}
	if in.WindowStart.IsZero() || in.WindowEnd.IsZero() {
		return validationError("window start and end are required")
	}
	if DateOf(in.WindowEnd).Before(DateOf(in.WindowStart)) {
		return validationError("window end must not precede window start")
	}
	if in.BasePoints < 1 {
		return validationError("base points must be at least 1")
	}
	if in.BonusPoints != nil && *in.BonusPoints < 0 {
		return validationError("bonus points must not be negative")
	}
	return nil
}

func (in ActivityInput) apply(a *Activity) {
	a.Name = strings.TrimSpace(in.Name)
	a.Description = strings.TrimSpace(in.Description)
	a.WindowStart = DateOf(in.WindowStart)
	a.WindowEnd = DateOf(in.WindowEnd)
	a.BasePoints = in.BasePoints
	a.BonusPoints = clonePtr(in.BonusPoints)
}

// CreateActivity adds a new activity to the catalogue.
func (s *Service) CreateActivity(ctx context.Context, in ActivityInput) (*Activity, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var created Activity
	err := s.mutate(ctx, func(snap *Snapshot) ([]Event, error) {
		now := s.now()
		created = Activity{ID: s.newID(ActivityIDPrefix), CreatedAt: now, UpdatedAt: now}
		in.apply(&created)
		snap.Activities = append([]Activity{created}, snap.Activities...)
		return []Event{activityEvent(events.TypeActivityCreated, created, 0, now)}, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateActivity replaces the mutable fields of an existing activity.
func (s *Service) UpdateActivity(ctx context.Context, id string, in ActivityInput) (*Activity, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var updated Activity
	err := s.mutate(ctx, func(snap *Snapshot) ([]Event, error) {
		idx := snap.activityIndex(id)
		if idx < 0 {
			return nil, ErrActivityNotFound
		}
		now := s.now()
		updated = snap.Activities[idx]
		in.apply(&updated)
		updated.UpdatedAt = now
		snap.Activities[idx] = updated
		return []Event{activityEvent(events.TypeActivityUpdated, updated, 0, now)}, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteActivity removes the activity and every submission that references it.
// This is the only operation that deletes submissions in bulk.
func (s *Service) DeleteActivity(ctx context.Context, id string) error {
	var released []string
	err := s.mutate(ctx, func(snap *Snapshot) ([]Event, error) {
		idx := snap.activityIndex(id)
		if idx < 0 {
			return nil, ErrActivityNotFound
		}
		now := s.now()
		removed := snap.Activities[idx]
		snap.Activities = append(snap.Activities[:idx:idx], snap.Activities[idx+1:]...)

		var evts []Event
		kept := make([]ProofSubmission, 0, len(snap.Submissions))
		cascaded := 0
		for _, sub := range snap.Submissions {
			if sub.ActivityID != id {
				kept = append(kept, sub)
				continue
			}
			cascaded++
			if sub.AttachmentID != nil {
				released = append(released, *sub.AttachmentID)
				evts = append(evts, attachmentReleasedEvent(sub, now))
			}
		}
		snap.Submissions = kept
		evts = append([]Event{activityEvent(events.TypeActivityDeleted, removed, cascaded, now)}, evts...)
		return evts, nil
	})
	if err != nil {
		return err
	}
	s.releaseAttachments(ctx, released)
	return nil
}

// GetActivity fetches by ID.
func (s *Service) GetActivity(ctx context.Context, id string) (*Activity, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	activity, ok := snap.Activity(id)
	if !ok {
		return nil, ErrActivityNotFound
	}
	return &activity, nil
}

// ListActivities returns the catalogue, newest first.
func (s *Service) ListActivities(ctx context.Context) ([]Activity, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Activities, nil
}

// ListUnits returns the static roster.
func (s *Service) ListUnits(ctx context.Context) ([]Unit, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Units, nil
}

// GetUnit looks up a roster entry.
func (s *Service) GetUnit(ctx context.Context, id string) (*Unit, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	unit, ok := snap.Unit(id)
	if !ok {
		return nil, ErrUnitNotFound
	}
	return &unit, nil
}

func activityEvent(eventType string, a Activity, removedSubmissions int, at time.Time) Event {
	return Event{
		Type:          eventType,
		AggregateType: "activity",
		AggregateID:   a.ID,
		PartitionKey:  a.ID,
		Payload: events.ActivityChanged{
			ActivityID:         a.ID,
			Name:               a.Name,
			WindowStart:        a.WindowStart.Format(time.DateOnly),
			WindowEnd:          a.WindowEnd.Format(time.DateOnly),
			BasePoints:         a.BasePoints,
			BonusPoints:        clonePtr(a.BonusPoints),
			RemovedSubmissions: removedSubmissions,
			OccurredAt:         at,
		},
	}
}
