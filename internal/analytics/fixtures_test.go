package analytics

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"

	"github.com/radiusdt/vector-insights/internal/models"
	"github.com/radiusdt/vector-insights/internal/period"
)

func day(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	require.NoError(t, err)
	return d
}

func dayPtr(t *testing.T, s string) *civil.Date {
	d := day(t, s)
	return &d
}

func rangeOf(t *testing.T, from, to string) period.Range {
	return period.Range{From: dayPtr(t, from), To: dayPtr(t, to)}
}

// hierarchy: C1 -> A1 -> X1, X2 ; C2 -> A2 -> Y1 ; Z1 points at a missing ad set.
func testHierarchy() ([]models.Campaign, []models.AdSet, []models.Creative) {
	campaigns := []models.Campaign{
		{ID: "C1", Name: "Spring Sale", Status: models.CampaignStatusActive},
		{ID: "C2", Name: "Brand", Status: models.CampaignStatusPaused},
	}
	adSets := []models.AdSet{
		{ID: "A1", Name: "Lookalike", CampaignID: "C1"},
		{ID: "A2", Name: "Retargeting", CampaignID: "C2"},
	}
	creatives := []models.Creative{
		{ID: "X1", Name: "Video 15s", Format: "video", AdSetID: "A1"},
		{ID: "X2", Name: "Carousel", Format: "carousel", AdSetID: "A1"},
		{ID: "Y1", Name: "Static", Format: "image", AdSetID: "A2"},
		{ID: "Z1", Name: "Orphan", Format: "image", AdSetID: "A-gone"},
	}
	return campaigns, adSets, creatives
}

func testIndex() *HierarchyIndex {
	return NewHierarchyIndex(testHierarchy())
}

func testRecords(t *testing.T) []models.DailyMetricRecord {
	return []models.DailyMetricRecord{
		{Date: day(t, "2024-03-10"), CampaignID: "C1", AdSetID: "A1", CreativeID: "X1", Spend: 10.10, Impressions: 1000, Clicks: 20, Leads: 2, QualifiedLeads: 1},
		{Date: day(t, "2024-03-10"), CampaignID: "C1", AdSetID: "A1", CreativeID: "X1", Spend: 0.20, Impressions: 100, Clicks: 2, Leads: 1, QualifiedLeads: 1},
		{Date: day(t, "2024-03-11"), CampaignID: "C1", AdSetID: "A1", CreativeID: "X2", Spend: 5.30, Impressions: 400, Clicks: 4},
		{Date: day(t, "2024-03-12"), CampaignID: "C2", AdSetID: "A2", CreativeID: "Y1", Spend: 7.70, Impressions: 300, Clicks: 3, Leads: 1},
		{Date: day(t, "2024-03-01"), CampaignID: "C2", AdSetID: "A2", CreativeID: "Y1", Spend: 99, Impressions: 9, Clicks: 9},
		{Date: day(t, "2024-03-13"), CreativeID: "Z1", Spend: 1.10, Impressions: 50, Clicks: 1},
		{CampaignID: "C1", AdSetID: "A1", CreativeID: "X1", Spend: 1000},
	}
}

func testSales(t *testing.T) []models.SaleEvent {
	return []models.SaleEvent{
		{ID: "s1", Status: models.SaleStatusDelivered, Value: 120.5, CreativeID: "X1", DeliveryDate: dayPtr(t, "2024-03-12")},
		{ID: "s2", Status: models.SaleStatusDelivered, Value: 30, CreativeID: "X2", DeliveryDate: dayPtr(t, "2024-03-14")},
		{ID: "s3", Status: models.SaleStatusDelivered, Value: 45, CreativeID: "Z1", DeliveryDate: dayPtr(t, "2024-03-14")},
		{ID: "s4", Status: models.SaleStatusDelivered, Value: 500, CreativeID: "Y1", DeliveryDate: dayPtr(t, "2024-02-01")},
		{ID: "s5", Status: models.SaleStatusScheduled, Value: 80, CreativeID: "Y1", ExpectedDate: dayPtr(t, "2024-03-12")},
		{ID: "s6", Status: models.SaleStatusDelivered, Value: 60, DeliveryDate: dayPtr(t, "2024-03-12")},
		{ID: "s7", Status: models.SaleStatusDelivered, Value: 70, CreativeID: "Y1"},
		{ID: "s8", Status: models.SaleStatusLost, Value: 90, CreativeID: "Y1", ExpectedDate: dayPtr(t, "2024-03-12"), LossReasonID: "R1"},
	}
}

var refTime = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
