package repository

import (
	"context"
	"testing"
	"time"

	"kairon/internal/config"
	"kairon/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisDraftRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(config.RedisConfig{Address: mr.Addr()})
	defer client.Close()

	repo := NewRedisDraftRepository(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, Ping(ctx, client))

	draft := &models.BookingDraft{
		SessionID:      "abc",
		ServiceID:      "svc-1",
		ProfessionalID: "pro-1",
		Date:           models.NewDate(2024, time.March, 15),
		Time:           "10:00",
		ClientName:     "Ana",
		Step:           "schedule",
	}

	require.NoError(t, repo.SaveDraft(ctx, draft))
	assert.True(t, mr.Exists("booking_draft:abc"))
	assert.Equal(t, time.Hour, mr.TTL("booking_draft:abc"))

	got, err := repo.GetDraft(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, draft, got)

	missing, err := repo.GetDraft(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.DeleteDraft(ctx, "abc"))
	assert.False(t, mr.Exists("booking_draft:abc"))

	mr.FastForward(2 * time.Hour)

	t.Run("CorruptPayload", func(t *testing.T) {
		require.NoError(t, mr.Set("booking_draft:bad", "{not json"))
		_, err := repo.GetDraft(ctx, "bad")
		assert.Error(t, err)
	})

	t.Run("ServerDown", func(t *testing.T) {
		mr.Close()
		_, err := repo.GetDraft(ctx, "abc")
		assert.Error(t, err)
		assert.Error(t, repo.SaveDraft(ctx, draft))
	})
}

func TestRedisDraftRepositoryNilClient(t *testing.T) {
	repo := NewRedisDraftRepository(nil, time.Minute)
	ctx := context.Background()

	_, err := repo.GetDraft(ctx, "x")
	assert.EqualError(t, err, "redis client is nil")
	assert.Error(t, repo.SaveDraft(ctx, &models.BookingDraft{SessionID: "x"}))
	assert.Error(t, repo.DeleteDraft(ctx, "x"))
}
