package domain_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/ranking/internal/attachments"
	"example.com/ranking/internal/domain"
	"example.com/ranking/internal/events"
	"example.com/ranking/internal/persistence"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
)

type fixture struct {
	service *domain.Service
	store   *persistence.InMemoryStore
	blobs   *attachments.MemoryGateway
	now     time.Time
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	initial domain.Snapshot
	gateway domain.AttachmentGateway
	store   domain.SnapshotStore
}

func withInitial(s domain.Snapshot) fixtureOption {
	return func(c *fixtureConfig) { c.initial = s }
}

func withGateway(g domain.AttachmentGateway) fixtureOption {
	return func(c *fixtureConfig) { c.gateway = g }
}

func withStore(s domain.SnapshotStore) fixtureOption {
	return func(c *fixtureConfig) { c.store = s }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := fixtureConfig{initial: domain.Snapshot{Units: persistence.DefaultRoster()}}
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &fixture{
		store: persistence.NewInMemoryStore(cfg.initial),
		blobs: attachments.NewMemoryGateway(),
		now:   time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC),
	}
	var gateway domain.AttachmentGateway = f.blobs
	if cfg.gateway != nil {
		gateway = cfg.gateway
	}
	var store domain.SnapshotStore = f.store
	if cfg.store != nil {
		store = cfg.store
	}

	var mu sync.Mutex
	counter := 0
	f.service = domain.NewService(store, gateway,
		domain.WithClock(func() time.Time { return f.now }),
		domain.WithIDGenerator(func(prefix string) string {
			mu.Lock()
			defer mu.Unlock()
			counter++
			return fmt.Sprintf("%s-%d", prefix, counter)
		}),
	)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) createActivity(t *testing.T, base int, bonus *int) *domain.Activity {
	t.Helper()
	a, err := f.service.CreateActivity(context.Background(), domain.ActivityInput{
		Name:        "Camp",
		WindowStart: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		BasePoints:  base,
		BonusPoints: bonus,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) submit(t *testing.T, activityID, unitID string, data []byte) *domain.ProofSubmission {
	t.Helper()
	in := domain.SubmitProofInput{ActivityID: activityID, UnitID: unitID, Description: domain.Ptr("evidence")}
	if data != nil {
		in.Attachment = &domain.Attachment{Data: data}
	}
	sub, err := f.service.SubmitProof(context.Background(), in)
	require.NoError(t, err)
	return sub
}

func approve(reviewedAt time.Time) domain.ReviewDecision {
	return domain.ReviewDecision{ReviewerID: "board-1", Outcome: domain.OutcomeApproved, ReviewedAt: reviewedAt}
}

func eventTypes(evts []domain.Event) []string {
	out := make([]string, 0, len(evts))
	for _, e := range evts {
		out = append(out, e.Type)
	}
	return out
}

func TestCreateActivityValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }

	cases := map[string]domain.ActivityInput{
		"end before start": {Name: "x", WindowStart: day(10), WindowEnd: day(9), BasePoints: 10},
		"zero base":        {Name: "x", WindowStart: day(1), WindowEnd: day(2), BasePoints: 0},
		"negative bonus":   {Name: "x", WindowStart: day(1), WindowEnd: day(2), BasePoints: 1, BonusPoints: domain.Ptr(-1)},
		"blank name":       {Name: "  ", WindowStart: day(1), WindowEnd: day(2), BasePoints: 1},
		"missing window":   {Name: "x", BasePoints: 1},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.service.CreateActivity(ctx, in)
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	snap, err := f.service.Snapshot(ctx)
	require.NoError(t, err)
	require.Empty(t, snap.Activities)
	require.Zero(t, snap.Version)
}

func TestCreateActivityNormalisesAndPrepends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.createActivity(t, 100, nil)
	f.advance(time.Minute)
	second, err := f.service.CreateActivity(ctx, domain.ActivityInput{
		Name:        "  Trail  ",
		WindowStart: time.Date(2026, 4, 5, 22, 15, 0, 0, time.UTC),
		WindowEnd:   time.Date(2026, 4, 5, 23, 0, 0, 0, time.UTC),
		BasePoints:  90,
	})
	require.NoError(t, err)
	require.Equal(t, "Trail", second.Name)
	require.Equal(t, time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC), second.WindowStart)
	require.Equal(t, second.WindowStart, second.WindowEnd)
	require.Equal(t, f.now, second.CreatedAt)
	require.Equal(t, second.CreatedAt, second.UpdatedAt)

	list, err := f.service.ListActivities(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID)
	require.Equal(t, first.ID, list[1].ID)
}

func TestUpdateActivityKeepsIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createActivity(t, 100, domain.Ptr(20))

	f.advance(time.Hour)
	updated, err := f.service.UpdateActivity(ctx, created.ID, domain.ActivityInput{
		Name:        "Camp renamed",
		WindowStart: created.WindowStart,
		WindowEnd:   created.WindowEnd,
		BasePoints:  150,
	})
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.Equal(t, f.now, updated.UpdatedAt)
	require.Equal(t, 150, updated.BasePoints)
	require.Nil(t, updated.BonusPoints)

	_, err = f.service.UpdateActivity(ctx, "act-missing", domain.ActivityInput{
		Name: "x", WindowStart: created.WindowStart, WindowEnd: created.WindowEnd, BasePoints: 1,
	})
	require.ErrorIs(t, err, domain.ErrActivityNotFound)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteActivityCascadesSubmissionsAndAttachments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doomed := f.createActivity(t, 100, nil)
	kept := f.createActivity(t, 50, nil)

	f.submit(t, doomed.ID, "panda", pngBytes)
	f.submit(t, doomed.ID, "harpia", jpegBytes)
	survivor := f.submit(t, kept.ID, "panda", pngBytes)
	require.Equal(t, 3, f.blobs.Len())

	require.NoError(t, f.service.DeleteActivity(ctx, doomed.ID))

	snap, err := f.service.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Activities, 1)
	require.Len(t, snap.Submissions, 1)
	require.Equal(t, survivor.ID, snap.Submissions[0].ID)
	require.Equal(t, 1, f.blobs.Len())

	evts := f.store.Events()
	require.Equal(t, []string{events.TypeActivityDeleted, events.TypeAttachmentReleased, events.TypeAttachmentReleased},
		eventTypes(evts[len(evts)-3:]))
	payload := evts[len(evts)-3].Payload.(events.ActivityChanged)
	require.Equal(t, 2, payload.RemovedSubmissions)

	require.ErrorIs(t, f.service.DeleteActivity(ctx, doomed.ID), domain.ErrActivityNotFound)
}

func TestUnitStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	units, err := f.service.ListUnits(ctx)
	require.NoError(t, err)
	require.Len(t, units, 6)

	unit, err := f.service.GetUnit(ctx, "dente-de-sabre")
	require.NoError(t, err)
	require.Equal(t, "Dente de Sabre", unit.Name)

	_, err = f.service.GetUnit(ctx, "leoes")
	require.ErrorIs(t, err, domain.ErrUnitNotFound)
}

func TestSubmitProofCreatesPendingSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t, 100, nil)

	sub := f.submit(t, activity.ID, "panda", pngBytes)
	require.Equal(t, domain.StatusPendingReview, sub.Status)
	require.Equal(t, f.now, *sub.SubmittedAt)
	require.Equal(t, "evidence", *sub.Description)
	require.NotNil(t, sub.AttachmentID)
	require.Equal(t, int64(1), sub.Version)

	blob, err := f.blobs.Get(ctx, *sub.AttachmentID)
	require.NoError(t, err)
	require.Equal(t, pngBytes, blob)

	status, err := f.service.StatusFor(ctx, activity.ID, "panda")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPendingReview, status)

	status, err = f.service.StatusFor(ctx, activity.ID, "harpia")
	require.NoError(t, err)
	require.Equal(t, domain.StatusNoProof, status)
}

func TestSubmitProofRejectsInvalidInputWithoutWriting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t, 100, nil)
	before, err := f.service.Snapshot(ctx)
	require.NoError(t, err)

	_, err = f.service.SubmitProof(ctx, domain.SubmitProofInput{
		ActivityID: activity.ID, UnitID: "panda",
		Attachment: &domain.Attachment{ContentType: "text/plain", Data: []byte("hello")},
	})
	require.ErrorIs(t, err, domain.ErrInvalidAttachment)

	_, err = f.service.SubmitProof(ctx, domain.SubmitProofInput{
		ActivityID: activity.ID, UnitID: "panda",
		Attachment: &domain.Attachment{ContentType: "image/png", Data: []byte("GIF89a not really")},
	})
	require.ErrorIs(t, err, domain.ErrInvalidAttachment)

	_, err = f.service.SubmitProof(ctx, domain.SubmitProofInput{ActivityID: "act-missing", UnitID: "panda"})
	require.ErrorIs(t, err, domain.ErrActivityNotFound)

	_, err = f.service.SubmitProof(ctx, domain.SubmitProofInput{
		ActivityID: activity.ID, UnitID: "leoes",
		Attachment: &domain.Attachment{Data: pngBytes},
	})
	require.ErrorIs(t, err, domain.ErrUnitNotFound)

	after, err := f.service.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.Zero(t, f.blobs.Len())
}

func TestResubmissionOverwritesInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t, 100, domain.Ptr(10))

	first := f.submit(t, activity.ID, "panda", pngBytes)
	_, err := f.service.ReviewSubmission(ctx, first.ID, approve(f.now))
	require.NoError(t, err)

	f.advance(time.Hour)
	second, err := f.service.SubmitProof(ctx, domain.SubmitProofInput{
		ActivityID: activity.ID, UnitID: "panda",
		Attachment: &domain.Attachment{ContentType: "image/jpeg", Data: jpegBytes},
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, domain.StatusPendingReview, second.Status)
	require.Nil(t, second.Description)
	require.Nil(t, second.ReviewedAt)
	require.Nil(t, second.Review)
	require.Nil(t, second.ApprovedBasePoints)
	require.Nil(t, second.ApprovedBonusPoints)
	require.Equal(t, f.now, *second.SubmittedAt)
	require.Equal(t, int64(3), second.Version)
	require.NotEqual(t, *first.AttachmentID, *second.AttachmentID)

	old, err := f.blobs.Get(ctx, *first.AttachmentID)
	require.NoError(t, err)
	require.Nil(t, old)
	require.Equal(t, 1, f.blobs.Len())

	snap, err := f.service.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Submissions, 1)
}

func TestSubmitProofVersionPrecondition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t, 100, nil)

	_, err := f.service.SubmitProof(ctx, domain.SubmitProofInput{ActivityID: activity.ID, UnitID: "panda"}, domain.IfVersion(0))
	require.NoError(t, err)

	_, err = f.service.SubmitProof(ctx, domain.SubmitProofInput{
		ActivityID: activity.ID, UnitID: "panda",
		Attachment: &domain.Attachment{Data: pngBytes},
	}, domain.IfVersion(0))
	require.ErrorIs(t, err, domain.ErrVersionConflict)
	require.Zero(t, f.blobs.Len())

	_, err = f.service.SubmitProof(ctx, domain.SubmitProofInput{ActivityID: activity.ID, UnitID: "panda"}, domain.IfVersion(1))
	require.NoError(t, err)
}

type failingSaveStore struct {
	*persistence.InMemoryStore
}

func (s failingSaveStore) SaveSnapshot(context.Context, domain.Snapshot, []domain.Event) error {
	return errors.New("disk full")
}

func TestSubmitProofDiscardsBlobWhenSaveFails(t *testing.T) {
	seed := domain.Snapshot{
		Units: persistence.DefaultRoster(),
		Activities: []domain.Activity{{
			ID: "act-1", Name: "Camp", BasePoints: 10,
			WindowStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			WindowEnd:   time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		}},
	}
	store := failingSaveStore{persistence.NewInMemoryStore(seed)}
	f := newFixture(t, withStore(store))

	_, err := f.service.SubmitProof(context.Background(), domain.SubmitProofInput{
		ActivityID: "act-1", UnitID: "panda",
		Attachment: &domain.Attachment{Data: pngBytes},
	})
	require.ErrorContains(t, err, "disk full")
	require.Zero(t, f.blobs.Len())
}

// cancellingStore cancels the caller's context while the write is in flight.
type cancellingStore struct {
	*persistence.InMemoryStore
	cancel context.CancelFunc
	commit bool
}

func (s cancellingStore) SaveSnapshot(ctx context.Context, next domain.Snapshot, evts []domain.Event) error {
	s.cancel()
	if s.commit {
		return s.InMemoryStore.SaveSnapshot(context.Background(), next, evts)
	}
	return ctx.Err()
}

func TestSubmitProofDiscardsBlobWhenRequestIsCancelled(t *testing.T) {
	seed := domain.Snapshot{
		Units: persistence.DefaultRoster(),
		Activities: []domain.Activity{{
			ID: "act-1", Name: "Camp", BasePoints: 10,
			WindowStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			WindowEnd:   time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		}},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := cancellingStore{InMemoryStore: persistence.NewInMemoryStore(seed), cancel: cancel}
	f := newFixture(t, withStore(store))

	_, err := f.service.SubmitProof(ctx, domain.SubmitProofInput{
		ActivityID: "act-1", UnitID: "panda",
		Attachment: &domain.Attachment{Data: pngBytes},
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, f.blobs.Len())
}

func TestResubmissionReleasesPreviousBlobAfterCancel(t *testing.T) {
	inner := persistence.NewInMemoryStore(domain.Snapshot{Units: persistence.DefaultRoster()})
	f := newFixture(t, withStore(inner))
	activity := f.createActivity(t, 100, nil)
	first := f.submit(t, activity.ID, "panda", pngBytes)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := cancellingStore{InMemoryStore: inner, cancel: cancel, commit: true}
	svc := domain.NewService(store, f.blobs, domain.WithClock(func() time.Time { return f.now }))

	second, err := svc.SubmitProof(ctx, domain.SubmitProofInput{
		ActivityID: activity.ID, UnitID: "panda",
		Attachment: &domain.Attachment{ContentType: "image/jpeg", Data: jpegBytes},
	})
	require.NoError(t, err)
	require.NotEqual(t, *first.AttachmentID, *second.AttachmentID)

	old, err := f.blobs.Get(context.Background(), *first.AttachmentID)
	require.NoError(t, err)
	require.Nil(t, old)
	require.Equal(t, 1, f.blobs.Len())
}

func TestApproveUsesActivityDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t, 120, domain.Ptr(30))
	sub := f.submit(t, activity.ID, "panda", pngBytes)

	reviewedAt := time.Date(2026, 3, 11, 9, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	done, err := f.service.ReviewSubmission(ctx, sub.ID, approve(reviewedAt))
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, done.Status)
	require.Equal(t, 120, *done.ApprovedBasePoints)
	require.Equal(t, 30, *done.ApprovedBonusPoints)
	require.True(t, reviewedAt.Equal(*done.ReviewedAt))
	require.Equal(t, "board-1", done.Review.ReviewerID)
	require.Equal(t, int64(2), done.Version)
	require.NotNil(t, done.AttachmentID)

	_, err = f.service.ReviewSubmission(ctx, sub.ID, approve(reviewedAt))
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestApproveWithoutActivityBonusLeavesBonusUnset(t *testing.T) {
	f := newFixture(t)
	activity := f.createActivity(t, 150, nil)
	sub := f.submit(t, activity.ID, "pantera", nil)

	done, err := f.service.ReviewSubmission(context.Background(), sub.ID, approve(f.now))
	require.NoError(t, err)
	require.Equal(t, 150, *done.ApprovedBasePoints)
	require.Nil(t, done.ApprovedBonusPoints)
}

func TestApproveAdjustmentRequiresJustification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t, 100, domain.Ptr(20))
	sub := f.submit(t, activity.ID, "panda", nil)

	decision := approve(f.now)
	decision.AdjustedBasePoints = domain.Ptr(80)
	_, err := f.service.ReviewSubmission(ctx, sub.ID, decision)
	require.ErrorIs(t, err, domain.ErrAdjustmentJustificationRequired)

	decision.AdjustedBasePoints = domain.Ptr(-5)
	decision.AdjustmentJustification = "typo"
	_, err = f.service.ReviewSubmission(ctx, sub.ID, decision)
	require.ErrorIs(t, err, domain.ErrValidation)

	// Restating the defaults is not an adjustment.
	same := approve(f.now)
	same.AdjustedBasePoints = domain.Ptr(100)
	same.AdjustedBonusPoints = domain.Ptr(20)
	other := f.submit(t, activity.ID, "harpia", nil)
	_, err = f.service.ReviewSubmission(ctx, other.ID, same)
	require.NoError(t, err)

	decision.AdjustedBasePoints = domain.Ptr(80)
	decision.AdjustedBonusPoints = domain.Ptr(0)
	decision.AdjustmentJustification = "half of the members attended"
	done, err := f.service.ReviewSubmission(ctx, sub.ID, decision)
	require.NoError(t, err)
	require.Equal(t, 80, *done.ApprovedBasePoints)
	require.Equal(t, 0, *done.ApprovedBonusPoints)
	require.Equal(t, "half of the members attended", done.Review.AdjustmentJustification)
}

func TestRejectReturnsToNoProof(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t, 100, nil)
	sub := f.submit(t, activity.ID, "panda", pngBytes)

	_, err := f.service.ReviewSubmission(ctx, sub.ID, domain.ReviewDecision{ReviewerID: "board-1", Outcome: domain.OutcomeRejected})
	require.ErrorIs(t, err, domain.ErrValidation)

	rejected, err := f.service.ReviewSubmission(ctx, sub.ID, domain.ReviewDecision{
		ReviewerID:             "board-1",
		Outcome:                domain.OutcomeRejected,
		RejectionJustification: "photo is blurry",
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusNoProof, rejected.Status)
	require.Nil(t, rejected.Description)
	require.Nil(t, rejected.AttachmentID)
	require.Nil(t, rejected.SubmittedAt)
	require.Nil(t, rejected.ApprovedBasePoints)
	require.Equal(t, f.now, *rejected.ReviewedAt)
	require.Equal(t, "photo is blurry", rejected.Review.RejectionJustification)
	require.Zero(t, f.blobs.Len())

	evts := f.store.Events()
	require.Equal(t, []string{events.TypeSubmissionReviewed, events.TypeAttachmentReleased}, eventTypes(evts[len(evts)-2:]))

	_, err = f.service.ReviewSubmission(ctx, sub.ID, approve(f.now))
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	again := f.submit(t, activity.ID, "panda", jpegBytes)
	require.Equal(t, sub.ID, again.ID)
	require.Equal(t, domain.StatusPendingReview, again.Status)
}

func TestReviewLookupFailures(t *testing.T) {
	orphan := domain.ProofSubmission{ID: "sub-orphan", ActivityID: "act-gone", UnitID: "panda", Status: domain.StatusPendingReview, Version: 1}
	f := newFixture(t, withInitial(domain.Snapshot{Units: persistence.DefaultRoster(), Submissions: []domain.ProofSubmission{orphan}}))
	ctx := context.Background()

	_, err := f.service.ReviewSubmission(ctx, "sub-missing", approve(f.now))
	require.ErrorIs(t, err, domain.ErrSubmissionNotFound)

	_, err = f.service.ReviewSubmission(ctx, orphan.ID, approve(f.now))
	require.ErrorIs(t, err, domain.ErrActivityNotFound)

	_, err = f.service.ReviewSubmission(ctx, orphan.ID, domain.ReviewDecision{Outcome: "MAYBE"})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestReviewVersionPrecondition(t *testing.T) {
	f := newFixture(t)
	activity := f.createActivity(t, 100, nil)
	sub := f.submit(t, activity.ID, "panda", nil)

	_, err := f.service.ReviewSubmission(context.Background(), sub.ID, approve(f.now), domain.IfVersion(7))
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	_, err = f.service.ReviewSubmission(context.Background(), sub.ID, approve(f.now), domain.IfVersion(sub.Version))
	require.NoError(t, err)
}

func TestDeleteSubmissionReleasesAttachment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t, 100, nil)
	sub := f.submit(t, activity.ID, "panda", pngBytes)

	require.NoError(t, f.service.DeleteSubmission(ctx, sub.ID))
	require.Zero(t, f.blobs.Len())
	_, err := f.service.GetSubmission(ctx, sub.ID)
	require.ErrorIs(t, err, domain.ErrSubmissionNotFound)
	require.ErrorIs(t, f.service.DeleteSubmission(ctx, sub.ID), domain.ErrSubmissionNotFound)
}

type flakyGateway struct {
	*attachments.MemoryGateway
}

func (flakyGateway) Delete(context.Context, string) error {
	return errors.New("blob store unavailable")
}

func TestAttachmentReleaseIsBestEffort(t *testing.T) {
	gw := flakyGateway{attachments.NewMemoryGateway()}
	f := newFixture(t, withGateway(gw))
	ctx := context.Background()
	activity := f.createActivity(t, 100, nil)
	sub := f.submit(t, activity.ID, "panda", pngBytes)

	require.NoError(t, f.service.DeleteSubmission(ctx, sub.ID))
	require.Equal(t, 1, gw.Len())

	evts := f.store.Events()
	released := evts[len(evts)-1]
	require.Equal(t, events.TypeAttachmentReleased, released.Type)
	require.Equal(t, *sub.AttachmentID, released.Payload.(events.AttachmentReleased).AttachmentID)
}

func TestLoadAttachment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t, 100, nil)

	withImage := f.submit(t, activity.ID, "panda", pngBytes)
	data, err := f.service.LoadAttachment(ctx, withImage.ID)
	require.NoError(t, err)
	require.Equal(t, pngBytes, data)
	require.Equal(t, "image/png", domain.DetectMediaType(data))

	require.NoError(t, f.blobs.Delete(ctx, *withImage.AttachmentID))
	data, err = f.service.LoadAttachment(ctx, withImage.ID)
	require.NoError(t, err)
	require.Nil(t, data)

	withoutImage := f.submit(t, activity.ID, "harpia", nil)
	data, err = f.service.LoadAttachment(ctx, withoutImage.ID)
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestAggregateStatus(t *testing.T) {
	sub := func(s domain.SubmissionStatus) domain.ProofSubmission { return domain.ProofSubmission{Status: s} }

	require.Equal(t, domain.StatusNoProof, domain.AggregateStatus(nil))
	require.Equal(t, domain.StatusNoProof, domain.AggregateStatus([]domain.ProofSubmission{sub(domain.StatusNoProof)}))
	require.Equal(t, domain.StatusCompleted, domain.AggregateStatus([]domain.ProofSubmission{sub(domain.StatusNoProof), sub(domain.StatusCompleted)}))
	require.Equal(t, domain.StatusPendingReview, domain.AggregateStatus([]domain.ProofSubmission{sub(domain.StatusCompleted), sub(domain.StatusPendingReview)}))
}

func TestActivityReviewStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	activity := f.createActivity(t, 100, nil)

	status, err := f.service.ActivityReviewStatus(ctx, activity.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusNoProof, status)

	sub := f.submit(t, activity.ID, "panda", nil)
	_, err = f.service.ReviewSubmission(ctx, sub.ID, approve(f.now))
	require.NoError(t, err)
	status, err = f.service.ActivityReviewStatus(ctx, activity.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, status)

	f.submit(t, activity.ID, "harpia", nil)
	status, err = f.service.ActivityReviewStatus(ctx, activity.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPendingReview, status)

	_, err = f.service.ActivityReviewStatus(ctx, "act-missing")
	require.ErrorIs(t, err, domain.ErrActivityNotFound)
}

func TestActivityStatusIn(t *testing.T) {
	snap := domain.Snapshot{
		Units:      persistence.DefaultRoster(),
		Activities: []domain.Activity{{ID: "act-1"}, {ID: "act-2"}},
		Submissions: []domain.ProofSubmission{
			{ID: "sub-1", ActivityID: "act-1", UnitID: "panda", Status: domain.StatusCompleted},
			{ID: "sub-2", ActivityID: "act-2", UnitID: "panda", Status: domain.StatusPendingReview},
		},
	}

	status, err := domain.ActivityStatusIn(snap, "act-1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, status)

	status, err = domain.ActivityStatusIn(snap, "act-2")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPendingReview, status)

	_, err = domain.ActivityStatusIn(snap, "act-3")
	require.ErrorIs(t, err, domain.ErrActivityNotFound)
}

func TestListSubmissionsFiltersAndPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	camp := f.createActivity(t, 100, nil)
	trail := f.createActivity(t, 50, nil)

	var pending []string
	for _, unit := range []string{"panda", "harpia", "morcegos", "pantera"} {
		f.advance(time.Hour)
		pending = append(pending, f.submit(t, camp.ID, unit, nil).ID)
	}
	f.advance(24 * time.Hour)
	trailSub := f.submit(t, trail.ID, "panda", nil)
	_, err := f.service.ReviewSubmission(ctx, trailSub.ID, approve(f.now))
	require.NoError(t, err)

	filter := domain.SubmissionFilter{Status: domain.StatusPendingReview}
	page, next, err := f.service.ListSubmissions(ctx, filter, nil, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	require.NotNil(t, next)
	require.Equal(t, []string{pending[3], pending[2], pending[1]}, []string{page[0].ID, page[1].ID, page[2].ID})

	page, next, err = f.service.ListSubmissions(ctx, filter, next, 3)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Nil(t, next)
	require.Equal(t, pending[0], page[0].ID)

	page, next, err = f.service.ListSubmissions(ctx, filter, nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	page, next, err = f.service.ListSubmissions(ctx, filter, next, 2)
	require.NoError(t, err)
	require.Equal(t, []string{pending[1], pending[0]}, []string{page[0].ID, page[1].ID})
	require.Nil(t, next)

	page, next, err = f.service.ListSubmissions(ctx, filter, nil, 4)
	require.NoError(t, err)
	require.Len(t, page, 4)
	require.Nil(t, next)

	page, _, err = f.service.ListSubmissions(ctx, domain.SubmissionFilter{UnitID: "panda"}, nil, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)

	page, _, err = f.service.ListSubmissions(ctx, domain.SubmissionFilter{ActivityID: trail.ID, SubmittedOn: f.now}, nil, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, trailSub.ID, page[0].ID)
}
