package outbox

import "example.com/ranking/internal/events"

const activityChangedSchema = `{
  "type": "object",
  "title": "ActivityChanged",
  "properties": {
    "activity_id": {"type": "string"},
    "name": {"type": "string"},
    "window_start": {"type": "string", "format": "date"},
    "window_end": {"type": "string", "format": "date"},
    "base_points": {"type": "integer"},
    "bonus_points": {"type": ["integer", "null"]},
    "removed_submissions": {"type": "integer"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["activity_id", "name", "window_start", "window_end", "base_points", "occurred_at"],
  "additionalProperties": false
}`

const submissionStateChangedSchema = `{
  "type": "object",
  "title": "SubmissionStateChanged",
  "properties": {
    "submission_id": {"type": "string"},
    "activity_id": {"type": "string"},
    "unit_id": {"type": "string"},
    "status": {"type": "string", "enum": ["NO_PROOF", "PENDING_REVIEW", "COMPLETED"]},
    "reviewer_id": {"type": "string"},
    "approved_base_points": {"type": ["integer", "null"]},
    "approved_bonus_points": {"type": ["integer", "null"]},
    "reason": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["submission_id", "activity_id", "unit_id", "status", "occurred_at"],
  "additionalProperties": false
}`

const attachmentReleasedSchema = `{
  "type": "object",
  "title": "AttachmentReleased",
  "properties": {
    "attachment_id": {"type": "string"},
    "submission_id": {"type": "string"},
    "released_at": {"type": "string", "format": "date-time"}
  },
  "required": ["attachment_id", "submission_id", "released_at"],
  "additionalProperties": false
}`

// Topics the service publishes to.
const (
	TopicActivityEvents   = "activity_events"
	TopicSubmissionEvents = "submission_events"
	TopicAttachmentEvents = "attachment_events"
)

// Route describes where an event type is published and which schema frames it.
type Route struct {
	Topic         string
	SchemaSubject string
	Schema        string
}

var schemaCatalog = map[string]Route{
	events.TypeActivityCreated:      activityRoute,
	events.TypeActivityUpdated:      activityRoute,
	events.TypeActivityDeleted:      activityRoute,
	events.TypeSubmissionSubmitted:  submissionRoute,
	events.TypeSubmissionReviewed:   submissionRoute,
	events.TypeSubmissionDeleted:    submissionRoute,
	events.TypeAttachmentReleased: {
		Topic:         TopicAttachmentEvents,
		SchemaSubject: TopicAttachmentEvents + "-value",
		Schema:        attachmentReleasedSchema,
	},
}

var (
	activityRoute = Route{
		Topic:         TopicActivityEvents,
		SchemaSubject: TopicActivityEvents + "-value",
		Schema:        activityChangedSchema,
	}
	submissionRoute = Route{
		Topic:         TopicSubmissionEvents,
		SchemaSubject: TopicSubmissionEvents + "-value",
		Schema:        submissionStateChangedSchema,
	}
)

// RouteFor resolves the publishing route of an event type.
func RouteFor(eventType string) (Route, bool) {
	route, ok := schemaCatalog[eventType]
	return route, ok
}
