package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"example.com/ranking/internal/events"
)

// BlobDeleter removes evidence blobs. Deleting an unknown id must succeed.
type BlobDeleter interface {
	Delete(ctx context.Context, id string) error
}

// AttachmentJanitor deletes blobs named by attachment.released events. The service
// already attempts the delete inline, so most events are no-ops here.
type AttachmentJanitor struct {
	blobs  BlobDeleter
	logger *zap.Logger
}

// NewAttachmentJanitor constructs a janitor over blobs.
func NewAttachmentJanitor(blobs BlobDeleter, logger *zap.Logger) *AttachmentJanitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentJanitor{blobs: blobs, logger: logger}
}

// Handle implements Handler. Events of other types are acknowledged untouched.
func (j *AttachmentJanitor) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != events.TypeAttachmentReleased {
		return nil
	}

	var evt events.AttachmentReleased
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		recordJanitorSkipped("malformed")
		j.logger.Warn("skipping malformed attachment event", zap.Int64("offset", msg.Offset), zap.Error(err))
		return nil
	}
	if evt.AttachmentID == "" {
		recordJanitorSkipped("missing_id")
		return nil
	}

	if err := j.blobs.Delete(ctx, evt.AttachmentID); err != nil {
		return fmt.Errorf("delete attachment %s: %w", evt.AttachmentID, err)
	}
	recordJanitorDeleted()
	j.logger.Debug("attachment released",
		zap.String("attachment_id", evt.AttachmentID),
		zap.String("submission_id", evt.SubmissionID),
	)
	return nil
}
