package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/radiusdt/vector-insights/internal/models"
	"github.com/radiusdt/vector-insights/internal/period"
)

// UnspecifiedReason names the bucket for lost sales without a usable reason.
const UnspecifiedReason = "Unspecified"

// ReasonStat is the share of lost sales attributed to one loss reason.
// ReasonID is empty for the unspecified bucket.
type ReasonStat struct {
	ReasonID   string  `json:"reason_id"`
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// FrustrationReport summarises lost sales over a range. TotalValue is lost
// value, not revenue.
type FrustrationReport struct {
	TotalCount  int          `json:"total_count"`
	TotalValue  float64      `json:"total_value"`
	ReasonStats []ReasonStat `json:"reason_stats"`
}

// AnalyzeFrustration groups lost sales whose expected date falls in rng by
// loss reason. Sales with no reason id, or one missing from reasons, land in
// the unspecified bucket. Stats are ordered by count descending, then name.
func AnalyzeFrustration(sales []models.SaleEvent, reasons []models.LossReason, rng period.Range) FrustrationReport {
	names := make(map[string]string, len(reasons))
	for _, r := range reasons {
		names[r.ID] = r.Name
	}

	type bucket struct {
		count int
		value decimal.Decimal
	}
	buckets := make(map[string]*bucket)
	var (
		total      int
		totalValue decimal.Decimal
	)
	for i := range sales {
		s := &sales[i]
		if s.Status != models.SaleStatusLost || !period.InRange(s.ExpectedDate, rng) {
			continue
		}
		id := s.LossReasonID
		if _, known := names[id]; !known {
			id = ""
		}
		b, ok := buckets[id]
		if !ok {
			b = &bucket{}
			buckets[id] = b
		}
		v := decimal.NewFromFloat(s.Value)
		b.count++
		b.value = b.value.Add(v)
		total++
		totalValue = totalValue.Add(v)
	}

	stats := make([]ReasonStat, 0, len(buckets))
	for id, b := range buckets {
		name := UnspecifiedReason
		if id != "" {
			name = names[id]
		}
		st := ReasonStat{
			ReasonID: id,
			Name:     name,
			Count:    b.count,
			Value:    b.value.InexactFloat64(),
		}
		if total > 0 {
			st.Percentage = float64(b.count) / float64(total) * 100
		}
		stats = append(stats, st)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		if stats[i].Name != stats[j].Name {
			return stats[i].Name < stats[j].Name
		}
		return stats[i].ReasonID < stats[j].ReasonID
	})

	return FrustrationReport{
		TotalCount:  total,
		TotalValue:  totalValue.InexactFloat64(),
		ReasonStats: stats,
	}
}
