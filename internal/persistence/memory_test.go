package persistence

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/ranking/internal/domain"
)

func TestInMemoryStoreVersioning(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(domain.Snapshot{Units: DefaultRoster()})

	snap, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Zero(t, snap.Version)

	snap.Units = snap.Units[:1]
	require.NoError(t, store.SaveSnapshot(ctx, snap, []domain.Event{{Type: "unit.trimmed"}}))

	err = store.SaveSnapshot(ctx, snap, nil)
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	current, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), current.Version)
	require.Len(t, current.Units, 1)
	require.Len(t, store.Events(), 1)
}

func TestInMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(DemoSnapshot())

	snap, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	snap.Activities[0].Name = "mutated"
	*snap.Submissions[0].Description = "mutated"

	again, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, DemoSnapshot(), again)
}

func TestInMemoryStoreHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewInMemoryStore(domain.Snapshot{})

	_, err := store.LoadSnapshot(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, store.SaveSnapshot(ctx, domain.Snapshot{}, nil), context.Canceled)
}

func TestBootstrapOnlySeedsEmptyStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(domain.Snapshot{})

	seeded, err := Bootstrap(ctx, store, DemoSnapshot())
	require.NoError(t, err)
	require.True(t, seeded)

	seeded, err = Bootstrap(ctx, store, domain.Snapshot{Units: DefaultRoster()[:1]})
	require.NoError(t, err)
	require.False(t, seeded)

	snap, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Units, 6)
	require.Len(t, snap.Activities, 4)
	require.Equal(t, int64(1), snap.Version)
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := &domain.Cursor{SubmittedAt: time.Date(2026, 3, 20, 21, 10, 0, 123, time.UTC), ID: "sub-2"}

	token := EncodeCursor(cursor)
	require.NotEmpty(t, token)
	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	require.Equal(t, cursor, decoded)

	require.Empty(t, EncodeCursor(nil))
	decoded, err = DecodeCursor("  ")
	require.NoError(t, err)
	require.Nil(t, decoded)

	require.NotContains(t, token, "+")
	require.NotContains(t, token, "=")

	_, err = DecodeCursor("not base64!")
	require.ErrorIs(t, err, ErrInvalidCursor)
	_, err = DecodeCursor(base64.RawURLEncoding.EncodeToString([]byte("2026-03-20T21:10:00Z")))
	require.ErrorIs(t, err, ErrInvalidCursor)

	zero, err := DecodeCursor(EncodeCursor(&domain.Cursor{ID: "sub-3"}))
	require.NoError(t, err)
	require.True(t, zero.SubmittedAt.IsZero())
}
