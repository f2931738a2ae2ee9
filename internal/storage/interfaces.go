package storage

import (
	"context"

	"github.com/radiusdt/vector-insights/internal/models"
	"github.com/radiusdt/vector-insights/internal/period"
)

// =============================================
// HIERARCHY
// =============================================

// CampaignRepo defines operations for campaign storage.
type CampaignRepo interface {
	ListCampaigns(ctx context.Context) ([]models.Campaign, error)
	UpsertCampaign(ctx context.Context, c *models.Campaign) error
}

// AdSetRepo defines operations for ad set storage.
type AdSetRepo interface {
	ListAdSets(ctx context.Context) ([]models.AdSet, error)
	UpsertAdSet(ctx context.Context, a *models.AdSet) error
}

// CreativeRepo defines operations for creative storage.
type CreativeRepo interface {
	ListCreatives(ctx context.Context) ([]models.Creative, error)
	UpsertCreative(ctx context.Context, c *models.Creative) error
}

// =============================================
// PERFORMANCE
// =============================================

// MetricsRepo stores daily metric records. ListDailyMetrics may pre-filter by
// rng; callers still apply the range themselves, so returning a superset is
// allowed.
type MetricsRepo interface {
	ListDailyMetrics(ctx context.Context, rng period.Range) ([]models.DailyMetricRecord, error)
	InsertDailyMetrics(ctx context.Context, records []models.DailyMetricRecord) error
}

// =============================================
// SALES
// =============================================

// SalesRepo stores sale events. Sales are filtered by different dates
// depending on the report, so listing is never range-restricted.
type SalesRepo interface {
	ListSales(ctx context.Context) ([]models.SaleEvent, error)
	UpsertSale(ctx context.Context, s *models.SaleEvent) error
}

// LossReasonRepo stores the loss reason catalogue.
type LossReasonRepo interface {
	ListLossReasons(ctx context.Context) ([]models.LossReason, error)
	UpsertLossReason(ctx context.Context, r *models.LossReason) error
}

// Repos bundles every repository a report needs.
type Repos struct {
	Campaigns   CampaignRepo
	AdSets      AdSetRepo
	Creatives   CreativeRepo
	Metrics     MetricsRepo
	Sales       SalesRepo
	LossReasons LossReasonRepo
}
