package analytics

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// UnknownName labels rows whose id the caller could not resolve.
const UnknownName = "Unknown"

// NameResolver looks up the display name of a campaign, ad set or creative.
type NameResolver func(id string) (string, bool)

// ROI is revenue over spend. It is +Inf for an entity that produced revenue
// without any spend, which JSON cannot carry as a number, so it is encoded as
// the string "Infinity".
type ROI float64

const roiInfinity = `"Infinity"`

// Unbounded reports whether r is the zero-cost, positive-revenue case.
func (r ROI) Unbounded() bool { return math.IsInf(float64(r), 1) }

func (r ROI) MarshalJSON() ([]byte, error) {
	if r.Unbounded() {
		return []byte(roiInfinity), nil
	}
	return json.Marshal(float64(r))
}

func (r *ROI) UnmarshalJSON(b []byte) error {
	if string(b) == roiInfinity {
		*r = ROI(math.Inf(1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*r = ROI(f)
	return nil
}

// RankingRow is one ranked entity with its derived indicators.
type RankingRow struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Spend          float64 `json:"spend"`
	Revenue        float64 `json:"revenue"`
	Profit         float64 `json:"profit"`
	ROI            ROI     `json:"roi"`
	CPL            float64 `json:"cpl"`
	CTR            float64 `json:"ctr"` // percent
	Leads          int64   `json:"leads"`
	QualifiedLeads int64   `json:"qualified_leads"`
	Clicks         int64   `json:"clicks"`
	Impressions    int64   `json:"impressions"`
}

type indicators struct {
	profit decimal.Decimal
	roi    ROI
	cpl    float64
	ctr    float64
}

// derive applies the degenerate-value rules: no spend with revenue is an
// unbounded ROI, no spend and no revenue is a neutral 0, and empty
// denominators for CPL and CTR give 0.
func derive(spend, revenue decimal.Decimal, leads, clicks, impressions int64) indicators {
	ind := indicators{profit: revenue.Sub(spend)}

	switch {
	case spend.IsPositive():
		ind.roi = ROI(revenue.InexactFloat64() / spend.InexactFloat64())
	case revenue.IsPositive():
		ind.roi = ROI(math.Inf(1))
	default:
		ind.roi = 0
	}
	if leads > 0 {
		ind.cpl = spend.InexactFloat64() / float64(leads)
	}
	if impressions > 0 {
		ind.ctr = float64(clicks) / float64(impressions) * 100
	}
	return ind
}

// Rank builds one row per key of totals, pairing it with its attributed
// revenue (0 when absent), and orders the rows by ROI descending with profit
// descending as tie-break. Rows that still tie keep ascending id order.
func Rank(totals map[string]Totals, revenue map[string]decimal.Decimal, names NameResolver) []RankingRow {
	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]RankingRow, 0, len(ids))
	profits := make(map[string]decimal.Decimal, len(ids))
	for _, id := range ids {
		t := totals[id]
		rev := revenue[id]
		ind := derive(t.Spend, rev, t.Leads, t.Clicks, t.Impressions)
		profits[id] = ind.profit

		rows = append(rows, RankingRow{
			ID:             id,
			Name:           resolveName(names, id),
			Spend:          t.Spend.InexactFloat64(),
			Revenue:        rev.InexactFloat64(),
			Profit:         ind.profit.InexactFloat64(),
			ROI:            ind.roi,
			CPL:            ind.cpl,
			CTR:            ind.ctr,
			Leads:          t.Leads,
			QualifiedLeads: t.QualifiedLeads,
			Clicks:         t.Clicks,
			Impressions:    t.Impressions,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ROI != rows[j].ROI {
			return rows[i].ROI > rows[j].ROI
		}
		return profits[rows[i].ID].GreaterThan(profits[rows[j].ID])
	})
	return rows
}

// TopK returns the first k rows of an already ranked list. k <= 0 means all.
func TopK(rows []RankingRow, k int) []RankingRow {
	if k <= 0 || k >= len(rows) {
		return rows
	}
	return rows[:k]
}

func resolveName(names NameResolver, id string) string {
	if names == nil {
		return UnknownName
	}
	if n, ok := names(id); ok && n != "" {
		return n
	}
	return UnknownName
}
