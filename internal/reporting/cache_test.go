package reporting

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusdt/vector-insights/internal/analytics"
	"github.com/radiusdt/vector-insights/internal/models"
	"github.com/radiusdt/vector-insights/internal/period"
)

func TestRedisReportCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewRedisReportCache(client, "vi:", time.Minute)
	ctx := context.Background()

	var miss RankingReport
	hit, err := cache.Get(ctx, "nope", &miss)
	require.NoError(t, err)
	assert.False(t, hit)

	from := d(t, "2024-03-01")
	in := RankingReport{
		ID:    "r1",
		Level: LevelCreative,
		Range: period.Range{From: from},
		Rows:  []analytics.RankingRow{{ID: "X1", ROI: analytics.ROI(math.Inf(1))}},
	}
	require.NoError(t, cache.Set(ctx, "k", in))

	var out RankingReport
	hit, err = cache.Get(ctx, "k", &out)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "r1", out.ID)
	assert.True(t, out.Rows[0].ROI.Unbounded())
	assert.Equal(t, "2024-03-01..*", out.Range.Key())
}

func TestRedisReportCacheCorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, mr.Set("vi:k", "{not json"))
	var out RankingReport
	_, err := NewRedisReportCache(client, "vi:", time.Minute).Get(context.Background(), "k", &out)
	assert.Error(t, err)
}

func TestNoopCache(t *testing.T) {
	var c NoopCache
	require.NoError(t, c.Set(context.Background(), "k", 1))
	hit, err := c.Get(context.Background(), "k", new(int))
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRankingKey(t *testing.T) {
	from, to := d(t, "2024-03-09"), d(t, "2024-03-15")
	rng := period.Range{From: from, To: to}

	a := rankingKey(Query{Level: LevelCampaign, TopK: 5, Statuses: []models.CampaignStatus{"paused", "active"}}, rng)
	b := rankingKey(Query{Level: LevelCampaign, TopK: 5, Statuses: []models.CampaignStatus{"active", "paused"}}, rng)
	assert.Equal(t, a, b)
	assert.Equal(t, "ranking:campaign:2024-03-09..2024-03-15:top=5:status=active,paused", a)

	assert.NotEqual(t, a, rankingKey(Query{Level: LevelCampaign, TopK: 10}, rng))
	assert.NotEqual(t, frustrationKey(rng), frustrationKey(period.Range{}))
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"":         LevelCampaign,
		"campaign": LevelCampaign,
		" AdSet ":  LevelAdSet,
		"ad_set":   LevelAdSet,
		"creative": LevelCreative,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("account")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}
