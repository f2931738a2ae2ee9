package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/radiusdt/vector-insights/internal/analytics"
	"github.com/radiusdt/vector-insights/internal/models"
	"github.com/radiusdt/vector-insights/internal/period"
	"github.com/radiusdt/vector-insights/internal/storage"
)

// Snapshot is everything a report is computed from. It is read-only once
// loaded and may be shared between goroutines.
type Snapshot struct {
	Campaigns   []models.Campaign          `json:"campaigns"`
	AdSets      []models.AdSet             `json:"ad_sets"`
	Creatives   []models.Creative          `json:"creatives"`
	Metrics     []models.DailyMetricRecord `json:"metrics"`
	Sales       []models.SaleEvent         `json:"sales"`
	LossReasons []models.LossReason        `json:"loss_reasons"`
}

// Index builds the hierarchy index for the snapshot.
func (s *Snapshot) Index() *analytics.HierarchyIndex {
	return analytics.NewHierarchyIndex(s.Campaigns, s.AdSets, s.Creatives)
}

// Validate checks every entity of the snapshot and reports the first invalid
// one by collection and position.
func (s *Snapshot) Validate() error {
	for i := range s.Campaigns {
		if err := s.Campaigns[i].Validate(); err != nil {
			return fmt.Errorf("campaigns[%d]: %w", i, err)
		}
	}
	for i := range s.AdSets {
		if err := s.AdSets[i].Validate(); err != nil {
			return fmt.Errorf("ad_sets[%d]: %w", i, err)
		}
	}
	for i := range s.Creatives {
		if err := s.Creatives[i].Validate(); err != nil {
			return fmt.Errorf("creatives[%d]: %w", i, err)
		}
	}
	for i := range s.Metrics {
		if err := s.Metrics[i].Validate(); err != nil {
			return fmt.Errorf("metrics[%d]: %w", i, err)
		}
	}
	for i := range s.Sales {
		if err := s.Sales[i].Validate(); err != nil {
			return fmt.Errorf("sales[%d]: %w", i, err)
		}
	}
	for i := range s.LossReasons {
		if err := s.LossReasons[i].Validate(); err != nil {
			return fmt.Errorf("loss_reasons[%d]: %w", i, err)
		}
	}
	return nil
}

// ReadSnapshot decodes and validates a JSON snapshot.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return &snap, nil
}

// ReadSnapshotFile is ReadSnapshot over a file on disk.
func ReadSnapshotFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}

// Seed writes every entity of snap into repos. Hierarchy entities and sales
// are upserted by id; metric records are appended.
func Seed(ctx context.Context, repos storage.Repos, snap *Snapshot) error {
	for i := range snap.Campaigns {
		if err := repos.Campaigns.UpsertCampaign(ctx, &snap.Campaigns[i]); err != nil {
			return fmt.Errorf("seed campaign %q: %w", snap.Campaigns[i].ID, err)
		}
	}
	for i := range snap.AdSets {
		if err := repos.AdSets.UpsertAdSet(ctx, &snap.AdSets[i]); err != nil {
			return fmt.Errorf("seed ad set %q: %w", snap.AdSets[i].ID, err)
		}
	}
	for i := range snap.Creatives {
		if err := repos.Creatives.UpsertCreative(ctx, &snap.Creatives[i]); err != nil {
			return fmt.Errorf("seed creative %q: %w", snap.Creatives[i].ID, err)
		}
	}
	if err := repos.Metrics.InsertDailyMetrics(ctx, snap.Metrics); err != nil {
		return fmt.Errorf("seed daily metrics: %w", err)
	}
	for i := range snap.Sales {
		if err := repos.Sales.UpsertSale(ctx, &snap.Sales[i]); err != nil {
			return fmt.Errorf("seed sale %q: %w", snap.Sales[i].ID, err)
		}
	}
	for i := range snap.LossReasons {
		if err := repos.LossReasons.UpsertLossReason(ctx, &snap.LossReasons[i]); err != nil {
			return fmt.Errorf("seed loss reason %q: %w", snap.LossReasons[i].ID, err)
		}
	}
	return nil
}

// SnapshotLoader reads snapshots from the configured repositories.
type SnapshotLoader struct {
	repos storage.Repos
}

func NewSnapshotLoader(repos storage.Repos) *SnapshotLoader {
	return &SnapshotLoader{repos: repos}
}

// Load fetches every collection concurrently. Metrics are pre-filtered to rng
// where the backend supports it. The first failure cancels the other fetches.
func (l *SnapshotLoader) Load(ctx context.Context, rng period.Range) (*Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		snap.Campaigns, err = l.repos.Campaigns.ListCampaigns(gctx)
		return wrapLoad("campaigns", err)
	})
	g.Go(func() error {
		var err error
		snap.AdSets, err = l.repos.AdSets.ListAdSets(gctx)
		return wrapLoad("ad sets", err)
	})
	g.Go(func() error {
		var err error
		snap.Creatives, err = l.repos.Creatives.ListCreatives(gctx)
		return wrapLoad("creatives", err)
	})
	g.Go(func() error {
		var err error
		snap.Metrics, err = l.repos.Metrics.ListDailyMetrics(gctx, rng)
		return wrapLoad("daily metrics", err)
	})
	l.goSales(gctx, g, &snap)

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// LoadSales fetches only sales and loss reasons.
func (l *SnapshotLoader) LoadSales(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	l.goSales(gctx, g, &snap)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (l *SnapshotLoader) goSales(ctx context.Context, g *errgroup.Group, snap *Snapshot) {
	g.Go(func() error {
		var err error
		snap.Sales, err = l.repos.Sales.ListSales(ctx)
		return wrapLoad("sales", err)
	})
	g.Go(func() error {
		var err error
		snap.LossReasons, err = l.repos.LossReasons.ListLossReasons(ctx)
		return wrapLoad("loss reasons", err)
	})
}

func wrapLoad(what string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}
