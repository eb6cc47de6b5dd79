// Package events defines the event payloads recorded in the outbox and published to Kafka.
package events

import "time"

// Event types.
const (
	TypeActivityCreated     = "activity.created"
	TypeActivityUpdated     = "activity.updated"
	TypeActivityDeleted     = "activity.deleted"
	TypeSubmissionSubmitted = "submission.submitted"
	TypeSubmissionReviewed  = "submission.reviewed"
	TypeSubmissionDeleted   = "submission.deleted"
	TypeAttachmentReleased  = "attachment.released"
)

// ActivityChanged is emitted when an activity is created, edited or deleted.
type ActivityChanged struct {
	ActivityID         string    `json:"activity_id"`
	Name               string    `json:"name"`
	WindowStart        string    `json:"window_start"`
	WindowEnd          string    `json:"window_end"`
	BasePoints         int       `json:"base_points"`
	BonusPoints        *int      `json:"bonus_points,omitempty"`
	RemovedSubmissions int       `json:"removed_submissions,omitempty"`
	OccurredAt         time.Time `json:"occurred_at"`
}
