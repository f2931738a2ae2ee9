package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/radiusdt/vector-insights/internal/models"
	"github.com/radiusdt/vector-insights/internal/period"
)

// Totals is the folded cost and volume of one entity over a range. Spend is
// kept as a decimal so the fold is exact and independent of record order.
type Totals struct {
	Spend          decimal.Decimal `json:"spend"`
	Impressions    int64           `json:"impressions"`
	Clicks         int64           `json:"clicks"`
	Leads          int64           `json:"leads"`
	QualifiedLeads int64           `json:"qualified_leads"`
}

// Add returns the sum of t and o.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Spend:          t.Spend.Add(o.Spend),
		Impressions:    t.Impressions + o.Impressions,
		Clicks:         t.Clicks + o.Clicks,
		Leads:          t.Leads + o.Leads,
		QualifiedLeads: t.QualifiedLeads + o.QualifiedLeads,
	}
}

func totalsOf(r *models.DailyMetricRecord) Totals {
	return Totals{
		Spend:          decimal.NewFromFloat(r.Spend),
		Impressions:    r.Impressions,
		Clicks:         r.Clicks,
		Leads:          r.Leads,
		QualifiedLeads: r.QualifiedLeads,
	}
}

// AggregateByCreative sums the records dated inside rng per creative id.
func AggregateByCreative(records []models.DailyMetricRecord, rng period.Range) map[string]Totals {
	return aggregate(records, rng, func(r *models.DailyMetricRecord) (string, bool) {
		return r.CreativeID, r.CreativeID != ""
	})
}

// AggregateByCampaign sums the records dated inside rng per campaign. The
// bucket comes from the record's own CampaignID; a record without one, or
// whose campaign is unknown to a non-nil idx, is skipped here while still
// counting at creative level.
func AggregateByCampaign(records []models.DailyMetricRecord, rng period.Range, idx *HierarchyIndex) map[string]Totals {
	return aggregate(records, rng, func(r *models.DailyMetricRecord) (string, bool) {
		if r.CampaignID == "" {
			return "", false
		}
		if idx != nil && !idx.KnowsCampaign(r.CampaignID) {
			return "", false
		}
		return r.CampaignID, true
	})
}

// AggregateByAdSet is AggregateByCampaign one level down, keyed by AdSetID.
func AggregateByAdSet(records []models.DailyMetricRecord, rng period.Range, idx *HierarchyIndex) map[string]Totals {
	return aggregate(records, rng, func(r *models.DailyMetricRecord) (string, bool) {
		if r.AdSetID == "" {
			return "", false
		}
		if idx != nil && !idx.KnowsAdSet(r.AdSetID) {
			return "", false
		}
		return r.AdSetID, true
	})
}

func aggregate(records []models.DailyMetricRecord, rng period.Range, keyOf func(*models.DailyMetricRecord) (string, bool)) map[string]Totals {
	out := make(map[string]Totals)
	for i := range records {
		r := &records[i]
		if !rng.Contains(r.Date) {
			continue
		}
		key, ok := keyOf(r)
		if !ok {
			continue
		}
		out[key] = out[key].Add(totalsOf(r))
	}
	return out
}
