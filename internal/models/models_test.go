package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type validator interface {
	Validate() error
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		v       validator
		wantErr string
	}{
		{"campaign ok", &Campaign{ID: "C1", Name: "Spring", Status: CampaignStatusActive}, ""},
		{"campaign without name", &Campaign{ID: "C1", Status: CampaignStatusActive}, "name is required"},
		{"campaign bad status", &Campaign{ID: "C1", Name: "Spring", Status: "archived"}, `invalid status "archived"`},
		{"ad set without campaign", &AdSet{ID: "A1"}, "campaign_id is required"},
		{"creative without ad set", &Creative{ID: "X1"}, "ad_set_id is required"},
		{"metric without creative", &DailyMetricRecord{Spend: 1}, "creative_id is required"},
		{"negative spend", &DailyMetricRecord{CreativeID: "X1", Spend: -1}, "spend must be >= 0"},
		{"negative clicks", &DailyMetricRecord{CreativeID: "X1", Clicks: -2}, "counters must be >= 0"},
		{"sale ok", &SaleEvent{ID: "s1", Status: SaleStatusDelivered, Value: 10}, ""},
		{"sale refunded", &SaleEvent{ID: "s1", Status: "refunded"}, `invalid status "refunded"`},
		{"sale negative value", &SaleEvent{ID: "s1", Status: SaleStatusLost, Value: -5}, "value must be >= 0"},
		{"loss reason ok", &LossReason{ID: "R1", Name: "Price"}, ""},
		{"loss reason without id", &LossReason{Name: "Price"}, "id is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
