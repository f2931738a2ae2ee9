package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/radiusdt/vector-insights/internal/models"
	"github.com/radiusdt/vector-insights/internal/period"
)

func amounts(m map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v.String()
	}
	return out
}

func TestAttributionRollup(t *testing.T) {
	campaigns := []models.Campaign{{ID: "C", Name: "C", Status: models.CampaignStatusActive}}
	adSets := []models.AdSet{{ID: "A", CampaignID: "C"}}
	creatives := []models.Creative{{ID: "X", AdSetID: "A"}}
	idx := NewHierarchyIndex(campaigns, adSets, creatives)
	sales := []models.SaleEvent{
		{ID: "s", Status: models.SaleStatusDelivered, Value: 200, CreativeID: "X", DeliveryDate: dayPtr(t, "2024-03-12")},
	}
	rng := rangeOf(t, "2024-03-09", "2024-03-15")

	assert.Equal(t, map[string]string{"X": "200"}, amounts(AttributeByCreative(sales, rng)))
	assert.Equal(t, map[string]string{"C": "200"}, amounts(AttributeByCampaign(sales, rng, idx)))
	assert.Equal(t, map[string]string{"A": "200"}, amounts(AttributeByAdSet(sales, rng, idx)))
}

func TestAttributeFiltersSales(t *testing.T) {
	rng := rangeOf(t, "2024-03-09", "2024-03-15")
	sales := testSales(t)

	// s4 out of range, s5 not delivered, s6 no creative, s7 no delivery date, s8 lost
	assert.Equal(t, map[string]string{
		"X1": "120.5",
		"X2": "30",
		"Z1": "45",
	}, amounts(AttributeByCreative(sales, rng)))
}

func TestAttributeOrphanedCreative(t *testing.T) {
	rng := rangeOf(t, "2024-03-09", "2024-03-15")
	sales := testSales(t)
	idx := testIndex()

	byCampaign := AttributeByCampaign(sales, rng, idx)
	assert.Equal(t, map[string]string{"C1": "150.5"}, amounts(byCampaign))
	assert.Contains(t, AttributeByCreative(sales, rng), "Z1")

	orphans := Unattributed(sales, rng, idx)
	if assert.Len(t, orphans, 1) {
		assert.Equal(t, "s3", orphans[0].ID)
	}
}

func TestAttributeUnboundedStillNeedsDeliveryDate(t *testing.T) {
	got := AttributeByCreative(testSales(t), period.Range{})
	assert.Equal(t, map[string]string{
		"X1": "120.5",
		"X2": "30",
		"Z1": "45",
		"Y1": "500",
	}, amounts(got))
}

func TestAttributeEmpty(t *testing.T) {
	assert.Empty(t, AttributeByCreative(nil, period.Range{}))
	assert.Empty(t, AttributeByCampaign(nil, period.Range{}, testIndex()))
}
