package repository

import (
	"context"
	"testing"
	"time"

	"kairon/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDraftRepository(t *testing.T) {
	repo := NewMemoryDraftRepository(time.Hour)
	ctx := context.Background()

	t.Run("MissingDraft", func(t *testing.T) {
		got, err := repo.GetDraft(ctx, "nobody")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("SaveAndGet", func(t *testing.T) {
		draft := &models.BookingDraft{SessionID: "s1", ServiceID: "svc-1", Time: "09:00"}
		require.NoError(t, repo.SaveDraft(ctx, draft))

		got, err := repo.GetDraft(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, draft, got)

		got.Time = "10:00"
		again, _ := repo.GetDraft(ctx, "s1")
		assert.Equal(t, "09:00", again.Time)
	})

	t.Run("Expiry", func(t *testing.T) {
		now := time.Now()
		repo.now = func() time.Time { return now }
		require.NoError(t, repo.SaveDraft(ctx, &models.BookingDraft{SessionID: "s2"}))

		repo.now = func() time.Time { return now.Add(2 * time.Hour) }
		got, err := repo.GetDraft(ctx, "s2")
		assert.NoError(t, err)
		assert.Nil(t, got)
		repo.now = time.Now
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.SaveDraft(ctx, &models.BookingDraft{SessionID: "s3"}))
		require.NoError(t, repo.DeleteDraft(ctx, "s3"))
		got, _ := repo.GetDraft(ctx, "s3")
		assert.Nil(t, got)
	})

	t.Run("RejectsEmptySession", func(t *testing.T) {
		assert.ErrorIs(t, repo.SaveDraft(ctx, &models.BookingDraft{}), ErrMissingSessionID)
		assert.ErrorIs(t, repo.SaveDraft(ctx, nil), ErrMissingSessionID)
	})
}
