package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/radiusdt/vector-insights/internal/models"
	"github.com/radiusdt/vector-insights/internal/period"
)

// In-memory implementations. Lists are returned sorted by id and every value
// is copied in and out, so callers can never alias stored state.

// NewInMemoryRepos wires a full set of empty in-memory repositories.
func NewInMemoryRepos() Repos {
	return Repos{
		Campaigns:   NewInMemoryCampaignRepo(),
		AdSets:      NewInMemoryAdSetRepo(),
		Creatives:   NewInMemoryCreativeRepo(),
		Metrics:     NewInMemoryMetricsRepo(),
		Sales:       NewInMemorySalesRepo(),
		LossReasons: NewInMemoryLossReasonRepo(),
	}
}

// InMemoryCampaignRepo stores campaigns in memory.
type InMemoryCampaignRepo struct {
	mu        sync.RWMutex
	campaigns map[string]models.Campaign
}

func NewInMemoryCampaignRepo() *InMemoryCampaignRepo {
	return &InMemoryCampaignRepo{campaigns: make(map[string]models.Campaign)}
}

func (r *InMemoryCampaignRepo) ListCampaigns(_ context.Context) ([]models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]models.Campaign, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *InMemoryCampaignRepo) UpsertCampaign(_ context.Context, c *models.Campaign) error {
	if c == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.campaigns[c.ID] = *c
	return nil
}

// InMemoryAdSetRepo stores ad sets in memory.
type InMemoryAdSetRepo struct {
	mu     sync.RWMutex
	adSets map[string]models.AdSet
}

func NewInMemoryAdSetRepo() *InMemoryAdSetRepo {
	return &InMemoryAdSetRepo{adSets: make(map[string]models.AdSet)}
}

func (r *InMemoryAdSetRepo) ListAdSets(_ context.Context) ([]models.AdSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]models.AdSet, 0, len(r.adSets))
	for _, a := range r.adSets {
		res = append(res, a)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *InMemoryAdSetRepo) UpsertAdSet(_ context.Context, a *models.AdSet) error {
	if a == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adSets[a.ID] = *a
	return nil
}

// InMemoryCreativeRepo stores creatives in memory.
type InMemoryCreativeRepo struct {
	mu        sync.RWMutex
	creatives map[string]models.Creative
}

func NewInMemoryCreativeRepo() *InMemoryCreativeRepo {
	return &InMemoryCreativeRepo{creatives: make(map[string]models.Creative)}
}

func (r *InMemoryCreativeRepo) ListCreatives(_ context.Context) ([]models.Creative, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]models.Creative, 0, len(r.creatives))
	for _, c := range r.creatives {
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *InMemoryCreativeRepo) UpsertCreative(_ context.Context, c *models.Creative) error {
	if c == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creatives[c.ID] = *c
	return nil
}

// InMemoryMetricsRepo keeps daily records in insertion order. Records are
// append-only: partial-day imports for the same creative coexist.
type InMemoryMetricsRepo struct {
	mu      sync.RWMutex
	records []models.DailyMetricRecord
}

func NewInMemoryMetricsRepo() *InMemoryMetricsRepo {
	return &InMemoryMetricsRepo{}
}

func (r *InMemoryMetricsRepo) ListDailyMetrics(_ context.Context, rng period.Range) ([]models.DailyMetricRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]models.DailyMetricRecord, 0, len(r.records))
	for _, rec := range r.records {
		if rng.Contains(rec.Date) {
			res = append(res, rec)
		}
	}
	return res, nil
}

func (r *InMemoryMetricsRepo) InsertDailyMetrics(_ context.Context, records []models.DailyMetricRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, records...)
	return nil
}

// InMemorySalesRepo stores sale events in memory.
type InMemorySalesRepo struct {
	mu    sync.RWMutex
	sales map[string]models.SaleEvent
}

func NewInMemorySalesRepo() *InMemorySalesRepo {
	return &InMemorySalesRepo{sales: make(map[string]models.SaleEvent)}
}

func (r *InMemorySalesRepo) ListSales(_ context.Context) ([]models.SaleEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]models.SaleEvent, 0, len(r.sales))
	for _, s := range r.sales {
		res = append(res, copySale(s))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *InMemorySalesRepo) UpsertSale(_ context.Context, s *models.SaleEvent) error {
	if s == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales[s.ID] = copySale(*s)
	return nil
}

// copySale detaches the optional date pointers.
func copySale(s models.SaleEvent) models.SaleEvent {
	if s.DeliveryDate != nil {
		d := *s.DeliveryDate
		s.DeliveryDate = &d
	}
	if s.ExpectedDate != nil {
		d := *s.ExpectedDate
		s.ExpectedDate = &d
	}
	return s
}

// InMemoryLossReasonRepo stores loss reasons in memory.
type InMemoryLossReasonRepo struct {
	mu      sync.RWMutex
	reasons map[string]models.LossReason
}

func NewInMemoryLossReasonRepo() *InMemoryLossReasonRepo {
	return &InMemoryLossReasonRepo{reasons: make(map[string]models.LossReason)}
}

func (r *InMemoryLossReasonRepo) ListLossReasons(_ context.Context) ([]models.LossReason, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]models.LossReason, 0, len(r.reasons))
	for _, lr := range r.reasons {
		res = append(res, lr)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *InMemoryLossReasonRepo) UpsertLossReason(_ context.Context, lr *models.LossReason) error {
	if lr == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons[lr.ID] = *lr
	return nil
}
