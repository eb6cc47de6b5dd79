package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"example.com/ranking/internal/events"
	"example.com/ranking/internal/observability"
)

// SubmitProofInput captures a unit's evidence for one activity.
type SubmitProofInput struct {
	ActivityID  string
	UnitID      string
	Description *string
	Attachment  *Attachment
}

// WriteOption adds preconditions to a lifecycle write.
type WriteOption func(*writeOptions)

type writeOptions struct {
	expectedVersion *int64
}

// IfVersion makes the write fail with ErrVersionConflict unless the submission is
// still at version v. For SubmitProof, v of 0 means no submission may exist yet.
func IfVersion(v int64) WriteOption {
	return func(o *writeOptions) {
		o.expectedVersion = &v
	}
}

func collectWriteOptions(opts []WriteOption) writeOptions {
	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o writeOptions) check(current int64) error {
	if o.expectedVersion != nil && *o.expectedVersion != current {
		return fmt.Errorf("%w: submission is at version %d, expected %d", ErrVersionConflict, current, *o.expectedVersion)
	}
	return nil
}

// SubmitProof records evidence for (ActivityID, UnitID). An existing submission for the
// key is overwritten in place and keeps its id.
func (s *Service) SubmitProof(ctx context.Context, in SubmitProofInput, opts ...WriteOption) (*ProofSubmission, error) {
	if in.Attachment != nil {
		if err := ValidateAttachment(*in.Attachment); err != nil {
			return nil, err
		}
	}
	wo := collectWriteOptions(opts)

	var (
		result   ProofSubmission
		stored   string
		previous string
	)
	err := s.mutate(ctx, func(snap *Snapshot) ([]Event, error) {
		if snap.activityIndex(in.ActivityID) < 0 {
			return nil, ErrActivityNotFound
		}
		if _, ok := snap.Unit(in.UnitID); !ok {
			return nil, ErrUnitNotFound
		}

		idx := snap.submissionIndexFor(in.ActivityID, in.UnitID)
		var current int64
		if idx >= 0 {
			current = snap.Submissions[idx].Version
		}
		if err := wo.check(current); err != nil {
			return nil, err
		}

		if in.Attachment != nil {
			id := s.newID(AttachmentIDPrefix)
			if err := s.attachments.Put(ctx, id, in.Attachment.Data); err != nil {
				return nil, fmt.Errorf("store attachment: %w", err)
			}
			stored = id
		}

		now := s.now()
		var evts []Event
		if idx < 0 {
			result = ProofSubmission{
				ID:         s.newID(SubmissionIDPrefix),
				ActivityID: in.ActivityID,
				UnitID:     in.UnitID,
			}
		} else {
			result = snap.Submissions[idx]
			if result.AttachmentID != nil {
				previous = *result.AttachmentID
				evts = append(evts, attachmentReleasedEvent(result, now))
			}
		}

		result.Status = StatusPendingReview
		result.Description = normalizeText(in.Description)
		result.AttachmentID = nil
		if stored != "" {
			result.AttachmentID = Ptr(stored)
		}
		result.SubmittedAt = Ptr(now)
		result.ReviewedAt = nil
		result.Review = nil
		result.ApprovedBasePoints = nil
		result.ApprovedBonusPoints = nil
		result.Version = current + 1

		if idx < 0 {
			snap.Submissions = append([]ProofSubmission{result}, snap.Submissions...)
		} else {
			snap.Submissions[idx] = result
		}
		evts = append([]Event{submissionEvent(events.TypeSubmissionSubmitted, result, "", "", now)}, evts...)
		return evts, nil
	})
	if err != nil {
		if stored != "" {
			s.discardAttachment(ctx, stored)
		}
		return nil, err
	}
	if previous != "" {
		s.releaseAttachments(ctx, []string{previous})
	}
	observability.RecordTransition(string(result.Status))
	return result.cloned(), nil
}

// ReviewSubmission applies a reviewer's verdict to a pending submission.
func (s *Service) ReviewSubmission(ctx context.Context, id string, decision ReviewDecision, opts ...WriteOption) (*ProofSubmission, error) {
	if decision.Outcome != OutcomeApproved && decision.Outcome != OutcomeRejected {
		return nil, validationError("unknown review outcome %q", decision.Outcome)
	}
	if decision.ReviewedAt.IsZero() {
		decision.ReviewedAt = s.now()
	}
	decision.ReviewedAt = decision.ReviewedAt.UTC()
	wo := collectWriteOptions(opts)

	var (
		result   ProofSubmission
		released string
	)
	err := s.mutate(ctx, func(snap *Snapshot) ([]Event, error) {
		idx := snap.submissionIndex(id)
		if idx < 0 {
			return nil, ErrSubmissionNotFound
		}
		result = snap.Submissions[idx]
		activity, ok := snap.Activity(result.ActivityID)
		if !ok {
			return nil, ErrActivityNotFound
		}
		if err := wo.check(result.Version); err != nil {
			return nil, err
		}
		if result.Status != StatusPendingReview {
			return nil, fmt.Errorf("%w: status is %s", ErrInvalidTransition, result.Status)
		}

		review := decision
		review.AdjustedBasePoints = clonePtr(decision.AdjustedBasePoints)
		review.AdjustedBonusPoints = clonePtr(decision.AdjustedBonusPoints)

		var evts []Event
		reason := ""
		switch decision.Outcome {
		case OutcomeApproved:
			base, bonus, err := resolveApprovedPoints(activity, decision)
			if err != nil {
				return nil, err
			}
			result.Status = StatusCompleted
			result.ApprovedBasePoints = base
			result.ApprovedBonusPoints = bonus
			reason = strings.TrimSpace(decision.AdjustmentJustification)
		case OutcomeRejected:
			reason = strings.TrimSpace(decision.RejectionJustification)
			if reason == "" {
				return nil, validationError("rejection justification is required")
			}
			if result.AttachmentID != nil {
				released = *result.AttachmentID
				evts = append(evts, attachmentReleasedEvent(result, decision.ReviewedAt))
			}
			result.Status = StatusNoProof
			result.Description = nil
			result.AttachmentID = nil
			result.SubmittedAt = nil
			result.ApprovedBasePoints = nil
			result.ApprovedBonusPoints = nil
		}
		result.ReviewedAt = Ptr(decision.ReviewedAt)
		result.Review = &review
		result.Version++
		snap.Submissions[idx] = result

		evts = append([]Event{submissionEvent(events.TypeSubmissionReviewed, result, decision.ReviewerID, reason, decision.ReviewedAt)}, evts...)
		return evts, nil
	})
	if err != nil {
		return nil, err
	}
	if released != "" {
		s.releaseAttachments(ctx, []string{released})
	}
	observability.RecordTransition(string(result.Status))
	return result.cloned(), nil
}

// resolveApprovedPoints applies "adjusted or activity default" and rejects
// unjustified or negative adjustments.
func resolveApprovedPoints(activity Activity, decision ReviewDecision) (*int, *int, error) {
	if decision.AdjustedBasePoints != nil && *decision.AdjustedBasePoints < 0 {
		return nil, nil, validationError("adjusted base points must not be negative")
	}
	if decision.AdjustedBonusPoints != nil && *decision.AdjustedBonusPoints < 0 {
		return nil, nil, validationError("adjusted bonus points must not be negative")
	}

	base := activity.BasePoints
	if decision.AdjustedBasePoints != nil {
		base = *decision.AdjustedBasePoints
	}
	bonus := clonePtr(activity.BonusPoints)
	if decision.AdjustedBonusPoints != nil {
		bonus = clonePtr(decision.AdjustedBonusPoints)
	}

	adjusted := base != activity.BasePoints || ValueOr(bonus, 0) != ValueOr(activity.BonusPoints, 0)
	if adjusted && strings.TrimSpace(decision.AdjustmentJustification) == "" {
		return nil, nil, ErrAdjustmentJustificationRequired
	}
	return Ptr(base), bonus, nil
}

// DeleteSubmission removes a single submission and releases its attachment.
func (s *Service) DeleteSubmission(ctx context.Context, id string) error {
	var released string
	err := s.mutate(ctx, func(snap *Snapshot) ([]Event, error) {
		idx := snap.submissionIndex(id)
		if idx < 0 {
			return nil, ErrSubmissionNotFound
		}
		now := s.now()
		removed := snap.Submissions[idx]
		snap.Submissions = append(snap.Submissions[:idx:idx], snap.Submissions[idx+1:]...)

		evts := []Event{submissionEvent(events.TypeSubmissionDeleted, removed, "", "", now)}
		if removed.AttachmentID != nil {
			released = *removed.AttachmentID
			evts = append(evts, attachmentReleasedEvent(removed, now))
		}
		return evts, nil
	})
	if err != nil {
		return err
	}
	if released != "" {
		s.releaseAttachments(ctx, []string{released})
	}
	return nil
}

// GetSubmission fetches by ID.
func (s *Service) GetSubmission(ctx context.Context, id string) (*ProofSubmission, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	idx := snap.submissionIndex(id)
	if idx < 0 {
		return nil, ErrSubmissionNotFound
	}
	return snap.Submissions[idx].cloned(), nil
}

// LoadAttachment returns the evidence blob of a submission. A submission without an
// attachment, or whose blob has gone missing, yields nil data.
func (s *Service) LoadAttachment(ctx context.Context, submissionID string) ([]byte, error) {
	sub, err := s.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.AttachmentID == nil {
		return nil, nil
	}
	data, err := s.attachments.Get(ctx, *sub.AttachmentID)
	if err != nil {
		return nil, fmt.Errorf("load attachment: %w", err)
	}
	return data, nil
}

func (p ProofSubmission) cloned() *ProofSubmission {
	c := p.Clone()
	return &c
}

func normalizeText(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func submissionEvent(eventType string, sub ProofSubmission, reviewerID, reason string, at time.Time) Event {
	return Event{
		Type:          eventType,
		AggregateType: "submission",
		AggregateID:   sub.ID,
		PartitionKey:  sub.ActivityID + ":" + sub.UnitID,
		Payload: events.SubmissionStateChanged{
			SubmissionID:        sub.ID,
			ActivityID:          sub.ActivityID,
			UnitID:              sub.UnitID,
			Status:              string(sub.Status),
			ReviewerID:          reviewerID,
			ApprovedBasePoints:  clonePtr(sub.ApprovedBasePoints),
			ApprovedBonusPoints: clonePtr(sub.ApprovedBonusPoints),
			Reason:              reason,
			OccurredAt:          at,
		},
	}
}
