// Package reporting turns stored data into dashboard reports: it loads a
// snapshot, runs the analytics pipeline over it and caches the result.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radiusdt/vector-insights/internal/analytics"
	"github.com/radiusdt/vector-insights/internal/metrics"
	"github.com/radiusdt/vector-insights/internal/models"
	"github.com/radiusdt/vector-insights/internal/period"
)

// ErrInvalidQuery wraps every query validation failure.
var ErrInvalidQuery = errors.New("invalid query")

// Report kinds.
const (
	KindRanking     = "ranking"
	KindFrustration = "frustration"
)

// Level is the hierarchy level a ranking is computed at.
type Level string

const (
	LevelCampaign Level = "campaign"
	LevelAdSet    Level = "adset"
	LevelCreative Level = "creative"
)

// ParseLevel accepts the dashboard's level names; empty means campaign.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return LevelCampaign, nil
	case LevelCampaign, LevelAdSet, LevelCreative:
		return l, nil
	case "ad_set":
		return LevelAdSet, nil
	default:
		return "", fmt.Errorf("%w: unknown level %q", ErrInvalidQuery, s)
	}
}

// Query selects a ranking.
type Query struct {
	Level     Level                   `json:"level"`
	Selection period.Selection        `json:"selection"`
	TopK      int                     `json:"top_k"`
	Statuses  []models.CampaignStatus `json:"statuses,omitempty"`
}

func (q *Query) validate() error {
	if q.Level == "" {
		q.Level = LevelCampaign
	}
	if _, err := ParseLevel(string(q.Level)); err != nil {
		return err
	}
	if q.TopK < 0 {
		return fmt.Errorf("%w: top must be >= 0", ErrInvalidQuery)
	}
	for _, s := range q.Statuses {
		if !s.Valid() {
			return fmt.Errorf("%w: unknown campaign status %q", ErrInvalidQuery, s)
		}
	}
	return nil
}

// RankingReport is a ranked list of entities plus totals over every ranked
// entity, top-K or not.
type RankingReport struct {
	ID                string                  `json:"id"`
	Level             Level                   `json:"level"`
	Range             period.Range            `json:"range"`
	Rows              []analytics.RankingRow  `json:"rows"`
	Summary           analytics.SummaryTotals `json:"summary"`
	TotalRows         int                     `json:"total_rows"`
	UnattributedSales int                     `json:"unattributed_sales"`
	UnattributedValue float64                 `json:"unattributed_value"`
	GeneratedAt       time.Time               `json:"generated_at"`
}

// FrustrationReport is the lost-sales breakdown for a range.
type FrustrationReport struct {
	ID    string       `json:"id"`
	Range period.Range `json:"range"`
	analytics.FrustrationReport
	GeneratedAt time.Time `json:"generated_at"`
}

// Service computes reports.
type Service struct {
	loader  *SnapshotLoader
	cache   ReportCache
	metrics *metrics.Metrics
	logger  *zap.Logger

	clock func() time.Time
	loc   *time.Location
}

// NewService creates a reporting service. cache may be nil for no caching.
func NewService(loader *SnapshotLoader, cache ReportCache, m *metrics.Metrics, logger *zap.Logger) *Service {
	if cache == nil {
		cache = NoopCache{}
	}
	return &Service{
		loader:  loader,
		cache:   cache,
		metrics: m,
		logger:  logger,
		clock:   time.Now,
		loc:     time.UTC,
	}
}

// SetClock replaces the wall clock used as the reference date.
func (s *Service) SetClock(clock func() time.Time) {
	s.clock = clock
}

// SetLocation sets the timezone whose calendar decides what "today" is.
func (s *Service) SetLocation(loc *time.Location) {
	if loc != nil {
		s.loc = loc
	}
}

// Now returns the reference instant in the reporting timezone.
func (s *Service) Now() time.Time {
	return s.clock().In(s.loc)
}

// ResolvePeriod resolves sel against the reporting clock.
func (s *Service) ResolvePeriod(sel period.Selection) (period.Range, error) {
	return period.Resolve(sel, s.Now())
}

// Ranking loads the current snapshot and ranks it, serving from cache when
// the same query over the same resolved range was computed recently.
func (s *Service) Ranking(ctx context.Context, q Query) (report *RankingReport, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordReport(KindRanking, string(q.Level), err, time.Since(start))
	}()

	if err := q.validate(); err != nil {
		return nil, err
	}
	rng, err := s.ResolvePeriod(q.Selection)
	if err != nil {
		return nil, err
	}

	key := rankingKey(q, rng)
	var cached RankingReport
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	loadStart := time.Now()
	snap, err := s.loader.Load(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("ranking: %w", err)
	}
	s.metrics.RecordSnapshotLoad(time.Since(loadStart))

	report = s.build(snap, q, rng)
	s.cacheSet(ctx, key, report)
	return report, nil
}

// Evaluate ranks an inline snapshot without touching storage or the cache.
// Every entity must pass its Validate check. A snapshot may omit campaigns
// altogether; campaign ids referenced by its ad sets then count as existing,
// and rows carry no names or statuses.
func (s *Service) Evaluate(snap *Snapshot, q Query) (*RankingReport, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	if snap != nil {
		if err := snap.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
	}
	rng, err := s.ResolvePeriod(q.Selection)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		snap = &Snapshot{}
	}
	return s.build(snap, q, rng), nil
}

// Frustration breaks down lost sales whose expected date falls in sel.
func (s *Service) Frustration(ctx context.Context, sel period.Selection) (report *FrustrationReport, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordReport(KindFrustration, "", err, time.Since(start))
	}()

	rng, err := s.ResolvePeriod(sel)
	if err != nil {
		return nil, err
	}

	key := frustrationKey(rng)
	var cached FrustrationReport
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	snap, err := s.loader.LoadSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("frustration: %w", err)
	}

	report = &FrustrationReport{
		ID:                uuid.NewString(),
		Range:             rng,
		FrustrationReport: analytics.AnalyzeFrustration(snap.Sales, snap.LossReasons, rng),
		GeneratedAt:       s.Now(),
	}
	s.cacheSet(ctx, key, report)
	return report, nil
}

// PurgeCache drops cached reports when the cache supports it.
func (s *Service) PurgeCache(ctx context.Context) (int, error) {
	p, ok := s.cache.(interface {
		Purge(context.Context) (int, error)
	})
	if !ok {
		return 0, nil
	}
	n, err := p.Purge(ctx)
	if err != nil {
		return n, fmt.Errorf("purge report cache: %w", err)
	}
	s.logger.Info("report cache purged", zap.Int("keys", n))
	return n, nil
}

func (s *Service) build(snap *Snapshot, q Query, rng period.Range) *RankingReport {
	idx := snap.Index()

	var (
		totals map[string]analytics.Totals
		rev    map[string]decimal.Decimal
		names  analytics.NameResolver
		owner  func(id string) (string, bool)
	)
	switch q.Level {
	case LevelAdSet:
		totals = analytics.AggregateByAdSet(snap.Metrics, rng, idx)
		rev = analytics.AttributeByAdSet(snap.Sales, rng, idx)
		names = idx.AdSetName
		owner = idx.CampaignOfAdSet
	case LevelCreative:
		totals = analytics.AggregateByCreative(snap.Metrics, rng)
		rev = analytics.AttributeByCreative(snap.Sales, rng)
		names = idx.CreativeName
		owner = idx.CampaignOf
	default:
		totals = analytics.AggregateByCampaign(snap.Metrics, rng, idx)
		rev = analytics.AttributeByCampaign(snap.Sales, rng, idx)
		names = idx.CampaignName
		owner = func(id string) (string, bool) { return id, true }
	}

	if len(q.Statuses) > 0 {
		totals = filterByStatus(totals, q.Statuses, idx, owner)
	}

	rows := analytics.Rank(totals, rev, names)
	report := &RankingReport{
		ID:          uuid.NewString(),
		Level:       q.Level,
		Range:       rng,
		Rows:        analytics.TopK(rows, q.TopK),
		Summary:     analytics.Summarize(rows),
		TotalRows:   len(rows),
		GeneratedAt: s.Now(),
	}

	if q.Level != LevelCreative {
		lost := analytics.Unattributed(snap.Sales, rng, idx)
		sum := decimal.Zero
		for _, sale := range lost {
			sum = sum.Add(decimal.NewFromFloat(sale.Value))
		}
		value := sum.InexactFloat64()
		report.UnattributedSales = len(lost)
		report.UnattributedValue = value
		s.metrics.RecordUnattributed(len(lost), value)
		if len(lost) > 0 {
			s.logger.Debug("sales excluded from campaign attribution",
				zap.Int("count", len(lost)),
				zap.String("range", rng.Key()),
			)
		}
	}
	s.metrics.RecordReportRows(KindRanking, string(q.Level), len(rows))
	return report
}

// filterByStatus keeps entities whose owning campaign has one of statuses.
// Entities that reach no campaign are dropped.
func filterByStatus(totals map[string]analytics.Totals, statuses []models.CampaignStatus, idx *analytics.HierarchyIndex, owner func(string) (string, bool)) map[string]analytics.Totals {
	allowed := make(map[models.CampaignStatus]struct{}, len(statuses))
	for _, st := range statuses {
		allowed[st] = struct{}{}
	}
	out := make(map[string]analytics.Totals, len(totals))
	for id, t := range totals {
		campaignID, ok := owner(id)
		if !ok {
			continue
		}
		st, ok := idx.CampaignStatus(campaignID)
		if !ok {
			continue
		}
		if _, keep := allowed[st]; keep {
			out[id] = t
		}
	}
	return out
}

func (s *Service) cacheGet(ctx context.Context, key string, dst any) bool {
	hit, err := s.cache.Get(ctx, key, dst)
	switch {
	case err != nil:
		s.metrics.RecordCacheLookup("error")
		s.logger.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
		return false
	case hit:
		s.metrics.RecordCacheLookup("hit")
		s.logger.Debug("report served from cache", zap.String("key", key))
		return true
	default:
		s.metrics.RecordCacheLookup("miss")
		return false
	}
}

func (s *Service) cacheSet(ctx context.Context, key string, v any) {
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
	}
}
