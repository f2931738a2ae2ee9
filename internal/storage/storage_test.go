package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusdt/vector-insights/internal/models"
	"github.com/radiusdt/vector-insights/internal/period"
)

func date(y int, m, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func TestInMemoryCampaignRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryCampaignRepo()

	require.NoError(t, repo.UpsertCampaign(ctx, &models.Campaign{ID: "c2", Name: "B", Status: models.CampaignStatusPaused}))
	require.NoError(t, repo.UpsertCampaign(ctx, &models.Campaign{ID: "c1", Name: "A", Status: models.CampaignStatusActive}))

	list, err := repo.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c1", list[0].ID)

	list[1].Name = "mutated"
	again, err := repo.ListCampaigns(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B", again[1].Name)

	require.NoError(t, repo.UpsertCampaign(ctx, &models.Campaign{ID: "c2", Name: "B2", Status: models.CampaignStatusActive}))
	again, err = repo.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.Equal(t, "B2", again[1].Name)
}

func TestInMemoryMetricsRepoFiltersByRange(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryMetricsRepo()
	require.NoError(t, repo.InsertDailyMetrics(ctx, []models.DailyMetricRecord{
		{Date: date(2024, 3, 10), CreativeID: "X1", Spend: 1},
		{Date: date(2024, 3, 10), CreativeID: "X1", Spend: 2},
		{Date: date(2024, 2, 1), CreativeID: "X1", Spend: 4},
		{CreativeID: "X1", Spend: 8},
	}))

	from, to := date(2024, 3, 1), date(2024, 3, 31)
	got, err := repo.ListDailyMetrics(ctx, period.Range{From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, got, 2, "duplicates for the same day are kept")

	all, err := repo.ListDailyMetrics(ctx, period.Range{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestInMemorySalesRepoCopiesDates(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemorySalesRepo()

	d := date(2024, 3, 12)
	sale := &models.SaleEvent{ID: "s1", Status: models.SaleStatusDelivered, Value: 10, DeliveryDate: &d}
	require.NoError(t, repo.UpsertSale(ctx, sale))
	d.Day = 1

	list, err := repo.ListSales(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 12, list[0].DeliveryDate.Day)

	list[0].DeliveryDate.Day = 20
	list, err = repo.ListSales(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, list[0].DeliveryDate.Day)
}

func TestInMemoryReposBundle(t *testing.T) {
	ctx := context.Background()
	repos := NewInMemoryRepos()

	require.NoError(t, repos.AdSets.UpsertAdSet(ctx, &models.AdSet{ID: "a1", CampaignID: "c1"}))
	require.NoError(t, repos.Creatives.UpsertCreative(ctx, &models.Creative{ID: "x1", AdSetID: "a1"}))
	require.NoError(t, repos.LossReasons.UpsertLossReason(ctx, &models.LossReason{ID: "r1", Name: "Price"}))

	adSets, err := repos.AdSets.ListAdSets(ctx)
	require.NoError(t, err)
	assert.Len(t, adSets, 1)

	creatives, err := repos.Creatives.ListCreatives(ctx)
	require.NoError(t, err)
	assert.Len(t, creatives, 1)

	reasons, err := repos.LossReasons.ListLossReasons(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.LossReason{{ID: "r1", Name: "Price"}}, reasons)

	campaigns, err := repos.Campaigns.ListCampaigns(ctx)
	require.NoError(t, err)
	assert.NotNil(t, campaigns)
	assert.Empty(t, campaigns)
}

func TestDateBounds(t *testing.T) {
	from, to := date(2024, 3, 1), date(2024, 3, 31)
	pg := func(n int) string { return fmt.Sprintf("$%d", n) }

	where, args := dateBounds("date", period.Range{}, pg)
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = dateBounds("date", period.Range{From: &from, To: &to}, pg)
	assert.Contains(t, where, "WHERE date >= $1 AND date <= $2")
	assert.Len(t, args, 2)

	where, args = dateBounds("date", period.Range{To: &to}, pg)
	assert.Contains(t, where, "WHERE date <= $1")
	assert.Len(t, args, 1)
}

func TestPGDateConversion(t *testing.T) {
	assert.False(t, dateToPG(nil).Valid)
	assert.Nil(t, dateFromPG(dateToPG(nil)))

	d := date(2024, 2, 29)
	back := dateFromPG(dateToPG(&d))
	require.NotNil(t, back)
	assert.Equal(t, d, *back)
}
