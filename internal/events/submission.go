package events

import "time"

// SubmissionStateChanged tracks lifecycle transitions of a proof submission.
type SubmissionStateChanged struct {
	SubmissionID        string    `json:"submission_id"`
	ActivityID          string    `json:"activity_id"`
	UnitID              string    `json:"unit_id"`
	Status              string    `json:"status"`
	ReviewerID          string    `json:"reviewer_id,omitempty"`
	ApprovedBasePoints  *int      `json:"approved_base_points,omitempty"`
	ApprovedBonusPoints *int      `json:"approved_bonus_points,omitempty"`
	Reason              string    `json:"reason,omitempty"`
	OccurredAt          time.Time `json:"occurred_at"`
}

// AttachmentReleased is emitted whenever the core stops referencing an attachment blob.
// Consumers delete the blob idempotently.
type AttachmentReleased struct {
	AttachmentID string    `json:"attachment_id"`
	SubmissionID string    `json:"submission_id"`
	ReleasedAt   time.Time `json:"released_at"`
}
