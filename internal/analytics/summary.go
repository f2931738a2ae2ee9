package analytics

import "github.com/shopspring/decimal"

// SummaryTotals aggregates every ranked row, not only a top-K slice, for the
// dashboard's summary cards.
type SummaryTotals struct {
	Rows           int     `json:"rows"`
	Spend          float64 `json:"spend"`
	Revenue        float64 `json:"revenue"`
	Profit         float64 `json:"profit"`
	ROI            ROI     `json:"roi"`
	CPL            float64 `json:"cpl"`
	CTR            float64 `json:"ctr"`
	Leads          int64   `json:"leads"`
	QualifiedLeads int64   `json:"qualified_leads"`
	Clicks         int64   `json:"clicks"`
	Impressions    int64   `json:"impressions"`
}

// Summarize folds rows into overall totals and recomputes the ratios from
// those totals with the same degenerate-value rules as Rank. Zero rows yield
// all zeros.
func Summarize(rows []RankingRow) SummaryTotals {
	var (
		spend, revenue decimal.Decimal
		s              SummaryTotals
	)
	for _, r := range rows {
		spend = spend.Add(decimal.NewFromFloat(r.Spend))
		revenue = revenue.Add(decimal.NewFromFloat(r.Revenue))
		s.Leads += r.Leads
		s.QualifiedLeads += r.QualifiedLeads
		s.Clicks += r.Clicks
		s.Impressions += r.Impressions
	}

	ind := derive(spend, revenue, s.Leads, s.Clicks, s.Impressions)
	s.Rows = len(rows)
	s.Spend = spend.InexactFloat64()
	s.Revenue = revenue.InexactFloat64()
	s.Profit = ind.profit.InexactFloat64()
	s.ROI = ind.roi
	s.CPL = ind.cpl
	s.CTR = ind.ctr
	return s
}
