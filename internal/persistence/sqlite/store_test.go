package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/ranking/internal/domain"
	"example.com/ranking/internal/persistence"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "ranking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRoundTripsDemoSnapshot(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	seeded, err := persistence.Bootstrap(ctx, store, persistence.DemoSnapshot())
	require.NoError(t, err)
	require.True(t, seeded)

	snap, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)

	want := persistence.DemoSnapshot()
	want.Version = 1
	require.Equal(t, want, snap)

	seeded, err = persistence.Bootstrap(ctx, store, persistence.DemoSnapshot())
	require.NoError(t, err)
	require.False(t, seeded)
}

func TestStoreRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.SaveSnapshot(ctx, domain.Snapshot{Units: persistence.DefaultRoster()}, nil))
	err := store.SaveSnapshot(ctx, domain.Snapshot{Units: persistence.DefaultRoster()}, nil)
	require.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestStoreReopenKeepsServiceWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ranking.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = persistence.Bootstrap(ctx, store, domain.Snapshot{Units: persistence.DefaultRoster()})
	require.NoError(t, err)

	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	service := domain.NewService(store, nil, domain.WithClock(func() time.Time { return now }))
	activity, err := service.CreateActivity(ctx, domain.ActivityInput{
		Name:        "Orienteering",
		WindowStart: now,
		WindowEnd:   now.AddDate(0, 0, 2),
		BasePoints:  80,
		BonusPoints: domain.Ptr(10),
	})
	require.NoError(t, err)
	sub, err := service.SubmitProof(ctx, domain.SubmitProofInput{ActivityID: activity.ID, UnitID: "morcegos", Description: domain.Ptr("map attached")})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	snap, err := reopened.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), snap.Version)
	got, ok := snap.SubmissionFor(activity.ID, "morcegos")
	require.True(t, ok)
	require.Equal(t, sub.ID, got.ID)
	require.Equal(t, domain.StatusPendingReview, got.Status)
	require.Equal(t, now, *got.SubmittedAt)

	// Deleting the activity prunes its submissions.
	service = domain.NewService(reopened, nil)
	require.NoError(t, service.DeleteActivity(ctx, activity.ID))
	snap, err = reopened.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Empty(t, snap.Activities)
	require.Empty(t, snap.Submissions)
}
