package signals

import (
	"context"
	"gatekeeper/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behaviour every Store backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Latest abuse event empty", func(t *testing.T) {
		s := newStore(t)
		event, err := s.LatestAbuseEvent(ctx, models.DimensionOrigin, "nobody")
		require.NoError(t, err)
		assert.Nil(t, event)
	})

	t.Run("Latest abuse event per dimension", func(t *testing.T) {
		s := newStore(t)
		id := models.Identity{OriginHash: "ip-1", ClientHash: "fp-1"}

		require.NoError(t, s.AppendAbuseEvent(ctx, models.NewAbuseEvent(id, models.RiskAbusive, base)))
		require.NoError(t, s.AppendAbuseEvent(ctx, models.NewAbuseEvent(id, models.RiskSuspicious, base.Add(time.Minute))))
		require.NoError(t, s.AppendAbuseEvent(ctx,
			models.NewAbuseEvent(models.Identity{ClientHash: "fp-1"}, models.RiskAbusive, base.Add(2*time.Minute))))

		byOrigin, err := s.LatestAbuseEvent(ctx, models.DimensionOrigin, "ip-1")
		require.NoError(t, err)
		require.NotNil(t, byOrigin)
		assert.Equal(t, models.RiskSuspicious, byOrigin.RiskLabel)
		assert.True(t, byOrigin.CreatedAt.Equal(base.Add(time.Minute)))
		assert.Equal(t, "fp-1", byOrigin.ClientHash)

		byClient, err := s.LatestAbuseEvent(ctx, models.DimensionClient, "fp-1")
		require.NoError(t, err)
		require.NotNil(t, byClient)
		assert.Equal(t, models.RiskAbusive, byClient.RiskLabel)
		assert.Empty(t, byClient.OriginHash)

		other, err := s.LatestAbuseEvent(ctx, models.DimensionOrigin, "fp-1")
		require.NoError(t, err)
		assert.Nil(t, other, "hashes are matched within their own dimension")
	})

	t.Run("Abuse event without label", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AppendAbuseEvent(ctx, models.NewAbuseEvent(models.Identity{OriginHash: "ip-2"}, models.RiskNone, base)))

		event, err := s.LatestAbuseEvent(ctx, models.DimensionOrigin, "ip-2")
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, models.RiskNone, event.RiskLabel)
	})

	t.Run("Usage in window", func(t *testing.T) {
		s := newStore(t)
		id := models.Identity{OriginHash: "ip-3", ClientHash: "fp-3"}

		for i := 0; i < 3; i++ {
			at := base.Add(time.Duration(i) * 10 * time.Minute)
			require.NoError(t, s.AppendUsageEvent(ctx, models.NewUsageEvent(id, models.ActionGenerateNewPlan, at)))
		}
		require.NoError(t, s.AppendUsageEvent(ctx,
			models.NewUsageEvent(models.Identity{ClientHash: "fp-3"}, models.ActionGenerateNewPlan, base.Add(25*time.Minute))))
		require.NoError(t, s.AppendUsageEvent(ctx, models.NewUsageEvent(id, models.ActionSynthesizeSpeech, base.Add(time.Minute))))

		all, err := s.UsageInWindow(ctx, models.DimensionOrigin, "ip-3", models.ActionGenerateNewPlan, base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 3, all.Count)
		assert.True(t, all.Oldest.Equal(base), "oldest %v", all.Oldest)

		client, err := s.UsageInWindow(ctx, models.DimensionClient, "fp-3", models.ActionGenerateNewPlan, base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 4, client.Count)

		// The lower bound is exclusive.
		recent, err := s.UsageInWindow(ctx, models.DimensionOrigin, "ip-3", models.ActionGenerateNewPlan, base)
		require.NoError(t, err)
		assert.Equal(t, 2, recent.Count)
		assert.True(t, recent.Oldest.Equal(base.Add(10*time.Minute)))

		speech, err := s.UsageInWindow(ctx, models.DimensionOrigin, "ip-3", models.ActionSynthesizeSpeech, base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, speech.Count)

		none, err := s.UsageInWindow(ctx, models.DimensionOrigin, "ip-3", models.ActionGenerateNewPlan, base.Add(time.Hour))
		require.NoError(t, err)
		assert.Zero(t, none.Count)
		assert.True(t, none.Oldest.IsZero())
	})

	t.Run("Rejects invalid events", func(t *testing.T) {
		s := newStore(t)
		err := s.AppendUsageEvent(ctx, models.NewUsageEvent(models.Identity{}, models.ActionGenerateNewPlan, base))
		assert.ErrorIs(t, err, ErrInvalidEvent)

		err = s.AppendUsageEvent(ctx, models.NewUsageEvent(models.Identity{OriginHash: "ip"}, "", base))
		assert.ErrorIs(t, err, ErrInvalidEvent)

		err = s.AppendAbuseEvent(ctx, models.NewAbuseEvent(models.Identity{}, models.RiskAbusive, base))
		assert.ErrorIs(t, err, ErrInvalidEvent)

		_, err = s.LatestAbuseEvent(ctx, models.Dimension("email_hash"), "x")
		assert.ErrorIs(t, err, ErrUnknownDimension)
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(ctx))
	})
}
