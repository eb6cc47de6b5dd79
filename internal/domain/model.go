// Package domain defines the submission lifecycle and activity catalogue of the ranking service.
package domain

import "time"

// SubmissionStatus is the state of a unit's proof for one activity.
type SubmissionStatus string

const (
	StatusNoProof       SubmissionStatus = "NO_PROOF"
	StatusPendingReview SubmissionStatus = "PENDING_REVIEW"
	StatusCompleted     SubmissionStatus = "COMPLETED"
)

// Valid reports whether the status is one of the known states.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusNoProof, StatusPendingReview, StatusCompleted:
		return true
	}
	return false
}

// ReviewOutcome is the reviewer's verdict.
type ReviewOutcome string

const (
	OutcomeApproved ReviewOutcome = "APPROVED"
	OutcomeRejected ReviewOutcome = "REJECTED"
)

// Activity is a scored task with a validity window. Window bounds are calendar dates in UTC.
type Activity struct {
	ID          string
	Name        string
	Description string
	WindowStart time.Time
	WindowEnd   time.Time
	BasePoints  int
	BonusPoints *int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Unit is a competing team on the roster.
type Unit struct {
	ID   string
	Name string
}

// ReviewDecision is the latest verdict recorded on a submission.
type ReviewDecision struct {
	ReviewerID              string        `json:"reviewer_id"`
	Outcome                 ReviewOutcome `json:"outcome"`
	AdjustedBasePoints      *int          `json:"adjusted_base_points,omitempty"`
	AdjustedBonusPoints     *int          `json:"adjusted_bonus_points,omitempty"`
	AdjustmentJustification string        `json:"adjustment_justification,omitempty"`
	RejectionJustification  string        `json:"rejection_justification,omitempty"`
	ReviewedAt              time.Time     `json:"reviewed_at"`
}

// ProofSubmission is a unit's evidence record for one activity. At most one exists
// per (ActivityID, UnitID).
type ProofSubmission struct {
	ID                  string
	ActivityID          string
	UnitID              string
	Status              SubmissionStatus
	Description         *string
	AttachmentID        *string
	SubmittedAt         *time.Time
	ReviewedAt          *time.Time
	ApprovedBasePoints  *int
	ApprovedBonusPoints *int
	Review              *ReviewDecision
	Version             int64
}

// Snapshot is the full state the core operates on for one logical mutation.
type Snapshot struct {
	Version     int64
	Activities  []Activity
	Units       []Unit
	Submissions []ProofSubmission
}

// Event is a domain event recorded alongside a snapshot write.
type Event struct {
	Type          string
	AggregateType string
	AggregateID   string
	PartitionKey  string
	Payload       any
}

// Cursor models the submission listing pagination token.
type Cursor struct {
	SubmittedAt time.Time
	ID          string
}
