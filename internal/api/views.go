package api

import (
	"time"

	"example.com/ranking/internal/domain"
	"example.com/ranking/internal/ranking"
)

// ActivityRequest is the payload for POST and PUT on activities. Window bounds are YYYY-MM-DD.
type ActivityRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`
	BasePoints  int    `json:"base_points"`
	BonusPoints *int   `json:"bonus_points"`
}

// ActivityView exposes full details about an activity.
type ActivityView struct {
	ActivityID  string    `json:"activity_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	WindowStart string    `json:"window_start"`
	WindowEnd   string    `json:"window_end"`
	BasePoints  int       `json:"base_points"`
	BonusPoints *int      `json:"bonus_points,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListActivitiesResponse packages list results.
type ListActivitiesResponse struct {
	Items []ActivityView `json:"items"`
}

// ActivityStatusView reports the reviewer-facing aggregate and the per-unit statuses of an activity.
type ActivityStatusView struct {
	ActivityID string           `json:"activity_id"`
	Status     string           `json:"status"`
	Units      []UnitStatusView `json:"units"`
}

// UnitStatusView is a unit's status for one activity.
type UnitStatusView struct {
	UnitID string `json:"unit_id"`
	Status string `json:"status"`
}

// UnitView is a roster entry.
type UnitView struct {
	UnitID string `json:"unit_id"`
	Name   string `json:"name"`
}

// ListUnitsResponse packages the roster.
type ListUnitsResponse struct {
	Items []UnitView `json:"items"`
}

// ReviewRequest is the payload for POST /v1/submissions/{id}/review.
type ReviewRequest struct {
	Outcome                 string     `json:"outcome"`
	AdjustedBasePoints      *int       `json:"adjusted_base_points"`
	AdjustedBonusPoints     *int       `json:"adjusted_bonus_points"`
	AdjustmentJustification string     `json:"adjustment_justification"`
	RejectionJustification  string     `json:"rejection_justification"`
	ReviewedAt              *time.Time `json:"reviewed_at"`
}

// ReviewView is the latest decision recorded on a submission.
type ReviewView struct {
	ReviewerID              string    `json:"reviewer_id"`
	Outcome                 string    `json:"outcome"`
	AdjustedBasePoints      *int      `json:"adjusted_base_points,omitempty"`
	AdjustedBonusPoints     *int      `json:"adjusted_bonus_points,omitempty"`
	AdjustmentJustification string    `json:"adjustment_justification,omitempty"`
	RejectionJustification  string    `json:"rejection_justification,omitempty"`
	ReviewedAt              time.Time `json:"reviewed_at"`
}

// SubmissionView exposes a proof submission.
type SubmissionView struct {
	SubmissionID        string      `json:"submission_id"`
	ActivityID          string      `json:"activity_id"`
	UnitID              string      `json:"unit_id"`
	Status              string      `json:"status"`
	Description         *string     `json:"description,omitempty"`
	HasAttachment       bool        `json:"has_attachment"`
	SubmittedAt         *time.Time  `json:"submitted_at,omitempty"`
	ReviewedAt          *time.Time  `json:"reviewed_at,omitempty"`
	ApprovedBasePoints  *int        `json:"approved_base_points,omitempty"`
	ApprovedBonusPoints *int        `json:"approved_bonus_points,omitempty"`
	Review              *ReviewView `json:"review,omitempty"`
	Version             int64       `json:"version"`
}

// ListSubmissionsResponse packages a page of submissions.
type ListSubmissionsResponse struct {
	Items      []SubmissionView `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// RankingEntryView is one row of the standings.
type RankingEntryView struct {
	Position       int      `json:"position"`
	Unit           UnitView `json:"unit"`
	TotalPoints    int      `json:"total_points"`
	CompletedCount int      `json:"completed_count"`
	PendingCount   int      `json:"pending_count"`
}

// RankingResponse is the body of GET /v1/ranking.
type RankingResponse struct {
	Start   string             `json:"start,omitempty"`
	End     string             `json:"end,omitempty"`
	Entries []RankingEntryView `json:"entries"`
}

// DashboardResponse is the body of GET /v1/dashboard.
type DashboardResponse struct {
	PendingReviews int               `json:"pending_reviews"`
	Completed      int               `json:"completed"`
	TopUnit        *RankingEntryView `json:"top_unit,omitempty"`
}

func toActivityView(a domain.Activity) ActivityView {
	return ActivityView{
		ActivityID:  a.ID,
		Name:        a.Name,
		Description: a.Description,
		WindowStart: a.WindowStart.Format(time.DateOnly),
		WindowEnd:   a.WindowEnd.Format(time.DateOnly),
		BasePoints:  a.BasePoints,
		BonusPoints: a.BonusPoints,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func toUnitView(u domain.Unit) UnitView {
	return UnitView{UnitID: u.ID, Name: u.Name}
}

func toSubmissionView(s domain.ProofSubmission) SubmissionView {
	view := SubmissionView{
		SubmissionID:        s.ID,
		ActivityID:          s.ActivityID,
		UnitID:              s.UnitID,
		Status:              string(s.Status),
		Description:         s.Description,
		HasAttachment:       s.AttachmentID != nil,
		SubmittedAt:         s.SubmittedAt,
		ReviewedAt:          s.ReviewedAt,
		ApprovedBasePoints:  s.ApprovedBasePoints,
		ApprovedBonusPoints: s.ApprovedBonusPoints,
		Version:             s.Version,
	}
	if s.Review != nil {
		view.Review = &ReviewView{
			ReviewerID:              s.Review.ReviewerID,
			Outcome:                 string(s.Review.Outcome),
			AdjustedBasePoints:      s.Review.AdjustedBasePoints,
			AdjustedBonusPoints:     s.Review.AdjustedBonusPoints,
			AdjustmentJustification: s.Review.AdjustmentJustification,
			RejectionJustification:  s.Review.RejectionJustification,
			ReviewedAt:              s.Review.ReviewedAt,
		}
	}
	return view
}

func toRankingEntryView(position int, e ranking.Entry) RankingEntryView {
	return RankingEntryView{
		Position:       position,
		Unit:           toUnitView(e.Unit),
		TotalPoints:    e.Total,
		CompletedCount: e.CompletedCount,
		PendingCount:   e.PendingCount,
	}
}
