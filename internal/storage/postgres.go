package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/radiusdt/vector-insights/internal/models"
	"github.com/radiusdt/vector-insights/internal/period"
)

// PostgresSchema creates the tables used by the Postgres repositories.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS campaigns (
	id     TEXT PRIMARY KEY,
	name   TEXT NOT NULL,
	status TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS ad_sets (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	campaign_id TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS creatives (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	format    TEXT NOT NULL DEFAULT '',
	ad_set_id TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS daily_metrics (
	date            DATE,
	campaign_id     TEXT NOT NULL DEFAULT '',
	ad_set_id       TEXT NOT NULL DEFAULT '',
	creative_id     TEXT NOT NULL,
	spend           NUMERIC(14,2) NOT NULL DEFAULT 0,
	impressions     BIGINT NOT NULL DEFAULT 0,
	clicks          BIGINT NOT NULL DEFAULT 0,
	leads           BIGINT NOT NULL DEFAULT 0,
	qualified_leads BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS daily_metrics_date_idx ON daily_metrics (date);
CREATE TABLE IF NOT EXISTS loss_reasons (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS sales (
	id             TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	value          NUMERIC(14,2) NOT NULL DEFAULT 0,
	creative_id    TEXT NOT NULL DEFAULT '',
	delivery_date  DATE,
	expected_date  DATE,
	loss_reason_id TEXT NOT NULL DEFAULT ''
);
`

// EnsurePostgresSchema applies PostgresSchema. Every statement is idempotent.
func EnsurePostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// NewPostgresRepos wires every repository onto one pool.
func NewPostgresRepos(pool *pgxpool.Pool) Repos {
	return Repos{
		Campaigns:   NewPostgresCampaignRepo(pool),
		AdSets:      NewPostgresAdSetRepo(pool),
		Creatives:   NewPostgresCreativeRepo(pool),
		Metrics:     NewPostgresMetricsRepo(pool),
		Sales:       NewPostgresSalesRepo(pool),
		LossReasons: NewPostgresLossReasonRepo(pool),
	}
}

// PostgresCampaignRepo implements CampaignRepo using PostgreSQL.
type PostgresCampaignRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresCampaignRepo(pool *pgxpool.Pool) *PostgresCampaignRepo {
	return &PostgresCampaignRepo{pool: pool}
}

func (r *PostgresCampaignRepo) ListCampaigns(ctx context.Context) ([]models.Campaign, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, status FROM campaigns ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		var c models.Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.Status); err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *PostgresCampaignRepo) UpsertCampaign(ctx context.Context, c *models.Campaign) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO campaigns (id, name, status) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, status = EXCLUDED.status
	`, c.ID, c.Name, c.Status)
	if err != nil {
		return fmt.Errorf("failed to upsert campaign: %w", err)
	}
	return nil
}

// PostgresAdSetRepo implements AdSetRepo using PostgreSQL.
type PostgresAdSetRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAdSetRepo(pool *pgxpool.Pool) *PostgresAdSetRepo {
	return &PostgresAdSetRepo{pool: pool}
}

func (r *PostgresAdSetRepo) ListAdSets(ctx context.Context) ([]models.AdSet, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, campaign_id FROM ad_sets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ad sets: %w", err)
	}
	defer rows.Close()

	var adSets []models.AdSet
	for rows.Next() {
		var a models.AdSet
		if err := rows.Scan(&a.ID, &a.Name, &a.CampaignID); err != nil {
			return nil, fmt.Errorf("failed to scan ad set: %w", err)
		}
		adSets = append(adSets, a)
	}
	return adSets, rows.Err()
}

func (r *PostgresAdSetRepo) UpsertAdSet(ctx context.Context, a *models.AdSet) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ad_sets (id, name, campaign_id) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, campaign_id = EXCLUDED.campaign_id
	`, a.ID, a.Name, a.CampaignID)
	if err != nil {
		return fmt.Errorf("failed to upsert ad set: %w", err)
	}
	return nil
}

// PostgresCreativeRepo implements CreativeRepo using PostgreSQL.
type PostgresCreativeRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresCreativeRepo(pool *pgxpool.Pool) *PostgresCreativeRepo {
	return &PostgresCreativeRepo{pool: pool}
}

func (r *PostgresCreativeRepo) ListCreatives(ctx context.Context) ([]models.Creative, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, format, ad_set_id FROM creatives ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list creatives: %w", err)
	}
	defer rows.Close()

	var creatives []models.Creative
	for rows.Next() {
		var c models.Creative
		if err := rows.Scan(&c.ID, &c.Name, &c.Format, &c.AdSetID); err != nil {
			return nil, fmt.Errorf("failed to scan creative: %w", err)
		}
		creatives = append(creatives, c)
	}
	return creatives, rows.Err()
}

func (r *PostgresCreativeRepo) UpsertCreative(ctx context.Context, c *models.Creative) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO creatives (id, name, format, ad_set_id) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			format = EXCLUDED.format,
			ad_set_id = EXCLUDED.ad_set_id
	`, c.ID, c.Name, c.Format, c.AdSetID)
	if err != nil {
		return fmt.Errorf("failed to upsert creative: %w", err)
	}
	return nil
}

// PostgresMetricsRepo implements MetricsRepo on the daily_metrics table. It
// is used when no ClickHouse cluster is configured.
type PostgresMetricsRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresMetricsRepo(pool *pgxpool.Pool) *PostgresMetricsRepo {
	return &PostgresMetricsRepo{pool: pool}
}

func (r *PostgresMetricsRepo) ListDailyMetrics(ctx context.Context, rng period.Range) ([]models.DailyMetricRecord, error) {
	query := `
		SELECT date, campaign_id, ad_set_id, creative_id, spend::float8,
			   impressions, clicks, leads, qualified_leads
		FROM daily_metrics`
	where, args := dateBounds("date", rng, func(n int) string { return fmt.Sprintf("$%d", n) })
	query += where

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily metrics: %w", err)
	}
	defer rows.Close()

	var records []models.DailyMetricRecord
	for rows.Next() {
		var (
			rec  models.DailyMetricRecord
			date pgtype.Date
		)
		if err := rows.Scan(&date, &rec.CampaignID, &rec.AdSetID, &rec.CreativeID, &rec.Spend,
			&rec.Impressions, &rec.Clicks, &rec.Leads, &rec.QualifiedLeads); err != nil {
			return nil, fmt.Errorf("failed to scan daily metric: %w", err)
		}
		if d := dateFromPG(date); d != nil {
			rec.Date = *d
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PostgresMetricsRepo) InsertDailyMetrics(ctx context.Context, records []models.DailyMetricRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i := range records {
		rec := &records[i]
		var date *civil.Date
		if rec.HasDate() {
			date = &rec.Date
		}
		batch.Queue(`
			INSERT INTO daily_metrics (date, campaign_id, ad_set_id, creative_id, spend,
				impressions, clicks, leads, qualified_leads)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, dateToPG(date), rec.CampaignID, rec.AdSetID, rec.CreativeID, rec.Spend,
			rec.Impressions, rec.Clicks, rec.Leads, rec.QualifiedLeads)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert daily metrics: %w", err)
	}
	return nil
}

// PostgresSalesRepo implements SalesRepo using PostgreSQL.
type PostgresSalesRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresSalesRepo(pool *pgxpool.Pool) *PostgresSalesRepo {
	return &PostgresSalesRepo{pool: pool}
}

func (r *PostgresSalesRepo) ListSales(ctx context.Context) ([]models.SaleEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, status, value::float8, creative_id, delivery_date, expected_date, loss_reason_id
		FROM sales ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	var sales []models.SaleEvent
	for rows.Next() {
		var (
			s                  models.SaleEvent
			delivery, expected pgtype.Date
		)
		if err := rows.Scan(&s.ID, &s.Status, &s.Value, &s.CreativeID, &delivery, &expected, &s.LossReasonID); err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		s.DeliveryDate = dateFromPG(delivery)
		s.ExpectedDate = dateFromPG(expected)
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

func (r *PostgresSalesRepo) UpsertSale(ctx context.Context, s *models.SaleEvent) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sales (id, status, value, creative_id, delivery_date, expected_date, loss_reason_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			value = EXCLUDED.value,
			creative_id = EXCLUDED.creative_id,
			delivery_date = EXCLUDED.delivery_date,
			expected_date = EXCLUDED.expected_date,
			loss_reason_id = EXCLUDED.loss_reason_id
	`, s.ID, s.Status, s.Value, s.CreativeID, dateToPG(s.DeliveryDate), dateToPG(s.ExpectedDate), s.LossReasonID)
	if err != nil {
		return fmt.Errorf("failed to upsert sale: %w", err)
	}
	return nil
}

// PostgresLossReasonRepo implements LossReasonRepo using PostgreSQL.
type PostgresLossReasonRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresLossReasonRepo(pool *pgxpool.Pool) *PostgresLossReasonRepo {
	return &PostgresLossReasonRepo{pool: pool}
}

func (r *PostgresLossReasonRepo) ListLossReasons(ctx context.Context) ([]models.LossReason, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM loss_reasons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list loss reasons: %w", err)
	}
	defer rows.Close()

	var reasons []models.LossReason
	for rows.Next() {
		var lr models.LossReason
		if err := rows.Scan(&lr.ID, &lr.Name); err != nil {
			return nil, fmt.Errorf("failed to scan loss reason: %w", err)
		}
		reasons = append(reasons, lr)
	}
	return reasons, rows.Err()
}

func (r *PostgresLossReasonRepo) UpsertLossReason(ctx context.Context, lr *models.LossReason) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO loss_reasons (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, lr.ID, lr.Name)
	if err != nil {
		return fmt.Errorf("failed to upsert loss reason: %w", err)
	}
	return nil
}

func dateToPG(d *civil.Date) pgtype.Date {
	if d == nil || !d.IsValid() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

func dateFromPG(d pgtype.Date) *civil.Date {
	if !d.Valid {
		return nil
	}
	c := civil.DateOf(d.Time)
	return &c
}

// dateBounds renders a WHERE clause restricting col to rng. placeholder maps
// a 1-based argument position to the driver's bind syntax.
func dateBounds(col string, rng period.Range, placeholder func(int) string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if rng.From != nil {
		args = append(args, rng.From.In(time.UTC))
		conds = append(conds, col+" >= "+placeholder(len(args)))
	}
	if rng.To != nil {
		args = append(args, rng.To.In(time.UTC))
		conds = append(conds, col+" <= "+placeholder(len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(conds, " AND "), args
}
