package domain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"example.com/ranking/internal/events"
	"example.com/ranking/internal/observability"
)

const attachmentCleanupTimeout = 10 * time.Second

// SnapshotStore captures persistence operations. SaveSnapshot must apply next and
// events atomically and fail with ErrVersionConflict when the stored version is not next.Version.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context) (Snapshot, error)
	SaveSnapshot(ctx context.Context, next Snapshot, events []Event) error
}

// AttachmentGateway stores opaque evidence blobs. Operations on unknown ids are no-ops.
type AttachmentGateway interface {
	Put(ctx context.Context, id string, data []byte) error
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithLogger overrides the logger used to report best-effort failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator overrides identifier generation.
func WithIDGenerator(fn func(prefix string) string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// Service orchestrates the activity catalogue and the submission lifecycle.
type Service struct {
	store       SnapshotStore
	attachments AttachmentGateway
	logger      *zap.Logger
	now         func() time.Time
	newID       func(prefix string) string

	// mu serializes load-modify-save cycles within the process.
	mu sync.Mutex
}

// NewService constructs a Service.
func NewService(store SnapshotStore, attachments AttachmentGateway, opts ...Option) *Service {
	s := &Service{
		store:       store,
		attachments: attachments,
		logger:      zap.NewNop(),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current state. Callers computing rankings pass it on explicitly.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	snap, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

// mutate runs fn against a private copy of the current snapshot and persists the
// result together with the events fn returns. Nothing is written when fn fails.
func (s *Service) mutate(ctx context.Context, fn func(*Snapshot) ([]Event, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	next := current.Clone()
	evts, err := fn(&next)
	if err != nil {
		return err
	}
	next.Version = current.Version
	if err := s.store.SaveSnapshot(ctx, next, evts); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	observability.RecordSnapshotPersisted(s.now())
	return nil
}

// releaseAttachments deletes blobs after the record write committed. Failures are
// logged; the attachment.released events let the janitor finish the job.
func (s *Service) releaseAttachments(ctx context.Context, ids []string) {
	ctx, cancel := cleanupContext(ctx)
	defer cancel()
	for _, id := range ids {
		if err := s.attachments.Delete(ctx, id); err != nil {
			observability.RecordAttachmentReleaseFailure()
			s.logger.Warn("attachment release failed", zap.String("attachment_id", id), zap.Error(err))
		}
	}
}

// discardAttachment removes a blob written for a mutation that did not commit.
func (s *Service) discardAttachment(ctx context.Context, id string) {
	ctx, cancel := cleanupContext(ctx)
	defer cancel()
	if err := s.attachments.Delete(ctx, id); err != nil {
		s.logger.Warn("orphan attachment cleanup failed", zap.String("attachment_id", id), zap.Error(err))
	}
}

// cleanupContext detaches blob cleanup from the caller's cancellation so a
// dropped request cannot strand a blob.
func cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), attachmentCleanupTimeout)
}

func attachmentReleasedEvent(sub ProofSubmission, at time.Time) Event {
	return Event{
		Type:          events.TypeAttachmentReleased,
		AggregateType: "attachment",
		AggregateID:   *sub.AttachmentID,
		PartitionKey:  *sub.AttachmentID,
		Payload: events.AttachmentReleased{
			AttachmentID: *sub.AttachmentID,
			SubmissionID: sub.ID,
			ReleasedAt:   at,
		},
	}
}
