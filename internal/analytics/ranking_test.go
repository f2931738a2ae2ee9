package analytics

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusdt/vector-insights/internal/period"
)

func spend(v float64) Totals { return Totals{Spend: decimal.NewFromFloat(v)} }

func ids(rows []RankingRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestRankDegenerateROI(t *testing.T) {
	totals := map[string]Totals{
		"costly":   spend(100),
		"free-win": spend(0),
		"idle":     spend(0),
	}
	revenue := map[string]decimal.Decimal{
		"free-win": decimal.NewFromInt(50),
	}

	rows := Rank(totals, revenue, nil)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"free-win", "idle", "costly"}, ids(rows))

	assert.True(t, rows[0].ROI.Unbounded())
	assert.Equal(t, 50.0, rows[0].Profit)

	assert.Equal(t, ROI(0), rows[1].ROI)
	assert.Equal(t, 0.0, rows[1].Profit)

	assert.Equal(t, ROI(0), rows[2].ROI)
	assert.Equal(t, -100.0, rows[2].Profit)
}

func TestRankIndicators(t *testing.T) {
	totals := map[string]Totals{
		"X": {Spend: decimal.NewFromInt(200), Impressions: 4000, Clicks: 80, Leads: 8, QualifiedLeads: 3},
	}
	revenue := map[string]decimal.Decimal{"X": decimal.NewFromInt(500)}

	rows := Rank(totals, revenue, func(id string) (string, bool) { return "Creative " + id, true })
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "Creative X", r.Name)
	assert.InDelta(t, 2.5, float64(r.ROI), 1e-9)
	assert.InDelta(t, 300.0, r.Profit, 1e-9)
	assert.InDelta(t, 25.0, r.CPL, 1e-9)
	assert.InDelta(t, 2.0, r.CTR, 1e-9)
	assert.Equal(t, int64(3), r.QualifiedLeads)
}

func TestRankZeroDenominators(t *testing.T) {
	rows := Rank(map[string]Totals{"X": spend(10)}, nil, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.0, rows[0].CPL)
	assert.Equal(t, 0.0, rows[0].CTR)
	assert.False(t, math.IsNaN(float64(rows[0].ROI)))
}

func TestRankTieBreaksOnProfit(t *testing.T) {
	totals := map[string]Totals{"small": spend(10), "big": spend(100)}
	revenue := map[string]decimal.Decimal{
		"small": decimal.NewFromInt(20),
		"big":   decimal.NewFromInt(200),
	}
	rows := Rank(totals, revenue, nil)
	assert.Equal(t, []string{"big", "small"}, ids(rows), "same roi, higher profit first")
}

func TestRankFullTieKeepsIDOrder(t *testing.T) {
	totals := map[string]Totals{"c": spend(0), "a": spend(0), "b": spend(0)}
	rows := Rank(totals, nil, nil)
	assert.Equal(t, []string{"a", "b", "c"}, ids(rows))
}

func TestRankUnknownName(t *testing.T) {
	names := func(id string) (string, bool) {
		if id == "known" {
			return "Known", true
		}
		return "", false
	}
	rows := Rank(map[string]Totals{"known": spend(1), "ghost": spend(2)}, nil, names)
	byID := map[string]string{}
	for _, r := range rows {
		byID[r.ID] = r.Name
	}
	assert.Equal(t, "Known", byID["known"])
	assert.Equal(t, UnknownName, byID["ghost"])
}

func TestRankIgnoresRevenueWithoutTotals(t *testing.T) {
	rows := Rank(map[string]Totals{"X": spend(1)}, map[string]decimal.Decimal{"Y": decimal.NewFromInt(9)}, nil)
	assert.Equal(t, []string{"X"}, ids(rows))
}

func TestRankEmpty(t *testing.T) {
	rows := Rank(map[string]Totals{}, nil, nil)
	require.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestTopK(t *testing.T) {
	rows := []RankingRow{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	assert.Equal(t, []string{"a", "b"}, ids(TopK(rows, 2)))
	assert.Len(t, TopK(rows, 0), 3)
	assert.Len(t, TopK(rows, 10), 3)
	assert.Empty(t, TopK(nil, 5))
}

func TestPipelineIdempotent(t *testing.T) {
	records := testRecords(t)
	sales := testSales(t)
	rng, err := period.Resolve(period.Selection{Tag: period.TagLast7Days}, refTime)
	require.NoError(t, err)

	run := func() []RankingRow {
		idx := testIndex()
		return Rank(AggregateByCreative(records, rng), AttributeByCreative(sales, rng), idx.CreativeName)
	}
	first := run()
	second := run()
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"Z1", "X1", "X2", "Y1"}, ids(first))
}

func TestROIJSON(t *testing.T) {
	b, err := json.Marshal(RankingRow{ID: "x", ROI: ROI(math.Inf(1))})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"roi":"Infinity"`)

	var row RankingRow
	require.NoError(t, json.Unmarshal(b, &row))
	assert.True(t, row.ROI.Unbounded())

	b, err = json.Marshal(RankingRow{ID: "y", ROI: 1.5})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"roi":1.5`)
}
