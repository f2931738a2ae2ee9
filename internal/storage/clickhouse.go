package storage

import (
	"context"
	"database/sql"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/radiusdt/vector-insights/internal/models"
	"github.com/radiusdt/vector-insights/internal/period"
)

// ClickHouseSchema is the daily_metrics table as kept in ClickHouse. Imports
// append rows; duplicates for a day are summed at read time by the
// aggregator, never merged by the engine.
const ClickHouseSchema = `
CREATE TABLE IF NOT EXISTS daily_metrics (
	date            Nullable(Date),
	campaign_id     String,
	ad_set_id       String,
	creative_id     String,
	spend           Float64,
	impressions     Int64,
	clicks          Int64,
	leads           Int64,
	qualified_leads Int64
) ENGINE = MergeTree
ORDER BY (creative_id, assumeNotNull(date))
SETTINGS allow_nullable_key = 1`

// ClickHouseMetricsRepo implements MetricsRepo over a database/sql handle
// opened with clickhouse.OpenDB.
type ClickHouseMetricsRepo struct {
	db *sql.DB
}

func NewClickHouseMetricsRepo(db *sql.DB) *ClickHouseMetricsRepo {
	return &ClickHouseMetricsRepo{db: db}
}

// EnsureSchema creates the daily_metrics table if missing.
func (r *ClickHouseMetricsRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, ClickHouseSchema); err != nil {
		return fmt.Errorf("create daily_metrics: %w", err)
	}
	return nil
}

func (r *ClickHouseMetricsRepo) ListDailyMetrics(ctx context.Context, rng period.Range) ([]models.DailyMetricRecord, error) {
	query := `
		SELECT date, campaign_id, ad_set_id, creative_id, spend,
			impressions, clicks, leads, qualified_leads
		FROM daily_metrics`
	where, args := dateBounds("date", rng, func(int) string { return "?" })
	query += where

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query daily metrics: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []models.DailyMetricRecord
	for rows.Next() {
		var (
			rec  models.DailyMetricRecord
			date sql.NullTime
		)
		if err := rows.Scan(&date, &rec.CampaignID, &rec.AdSetID, &rec.CreativeID, &rec.Spend,
			&rec.Impressions, &rec.Clicks, &rec.Leads, &rec.QualifiedLeads); err != nil {
			return nil, fmt.Errorf("scan daily metric: %w", err)
		}
		if date.Valid {
			rec.Date = civil.DateOf(date.Time)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily metrics: %w", err)
	}
	return records, nil
}

// InsertDailyMetrics writes records as one batch. The ClickHouse driver
// buffers prepared-statement executions inside a transaction and flushes them
// on commit.
func (r *ClickHouseMetricsRepo) InsertDailyMetrics(ctx context.Context, records []models.DailyMetricRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_metrics (date, campaign_id, ad_set_id, creative_id, spend,
			impressions, clicks, leads, qualified_leads)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i := range records {
		rec := &records[i]
		var date any
		if rec.HasDate() {
			date = rec.Date.String()
		}
		if _, err := stmt.ExecContext(ctx, date, rec.CampaignID, rec.AdSetID, rec.CreativeID, rec.Spend,
			rec.Impressions, rec.Clicks, rec.Leads, rec.QualifiedLeads); err != nil {
			return fmt.Errorf("append daily metric %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}
