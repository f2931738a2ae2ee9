package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/radiusdt/vector-insights/internal/models"
	"github.com/radiusdt/vector-insights/internal/period"
)

// attributable reports whether a sale credits revenue for rng: delivered,
// delivered inside the range and pointing at a creative.
func attributable(s *models.SaleEvent, rng period.Range) bool {
	if s.Status != models.SaleStatusDelivered {
		return false
	}
	if s.DeliveryDate == nil || !period.InRange(s.DeliveryDate, rng) {
		return false
	}
	return s.CreativeID != ""
}

// AttributeByCreative sums delivered sale values per creative id.
func AttributeByCreative(sales []models.SaleEvent, rng period.Range) map[string]decimal.Decimal {
	return attribute(sales, rng, func(s *models.SaleEvent) (string, bool) {
		return s.CreativeID, true
	})
}

// AttributeByCampaign rolls delivered sale values up to the owning campaign.
// Sales whose creative cannot be resolved through idx are left out of this
// view; they still show up per creative.
func AttributeByCampaign(sales []models.SaleEvent, rng period.Range, idx *HierarchyIndex) map[string]decimal.Decimal {
	return attribute(sales, rng, func(s *models.SaleEvent) (string, bool) {
		return idx.CampaignOf(s.CreativeID)
	})
}

// AttributeByAdSet rolls delivered sale values up to the owning ad set.
func AttributeByAdSet(sales []models.SaleEvent, rng period.Range, idx *HierarchyIndex) map[string]decimal.Decimal {
	return attribute(sales, rng, func(s *models.SaleEvent) (string, bool) {
		return idx.AdSetOf(s.CreativeID)
	})
}

// Unattributed returns the sales that credit a creative for rng but reach no
// campaign through idx.
func Unattributed(sales []models.SaleEvent, rng period.Range, idx *HierarchyIndex) []models.SaleEvent {
	var out []models.SaleEvent
	for i := range sales {
		s := &sales[i]
		if !attributable(s, rng) {
			continue
		}
		if _, ok := idx.CampaignOf(s.CreativeID); !ok {
			out = append(out, *s)
		}
	}
	return out
}

func attribute(sales []models.SaleEvent, rng period.Range, keyOf func(*models.SaleEvent) (string, bool)) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for i := range sales {
		s := &sales[i]
		if !attributable(s, rng) {
			continue
		}
		key, ok := keyOf(s)
		if !ok {
			continue
		}
		out[key] = out[key].Add(decimal.NewFromFloat(s.Value))
	}
	return out
}
