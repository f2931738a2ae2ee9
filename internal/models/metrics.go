package models

import (
	"errors"

	"cloud.google.com/go/civil"
)

// DailyMetricRecord is an immutable per-day, per-creative performance
// snapshot. Several records may exist for the same date and creative (partial
// day imports); consumers sum them.
type DailyMetricRecord struct {
	Date       civil.Date `json:"date"`
	CampaignID string     `json:"campaign_id,omitempty"`
	AdSetID    string     `json:"ad_set_id,omitempty"`
	CreativeID string     `json:"creative_id"`

	Spend          float64 `json:"spend"`
	Impressions    int64   `json:"impressions"`
	Clicks         int64   `json:"clicks"`
	Leads          int64   `json:"leads"`
	QualifiedLeads int64   `json:"qualified_leads"` // conventionally <= Leads
}

// HasDate reports whether the record carries a usable calendar date.
func (r *DailyMetricRecord) HasDate() bool {
	return r.Date.IsValid()
}

func (r *DailyMetricRecord) Validate() error {
	if r.CreativeID == "" {
		return errors.New("creative_id is required")
	}
	if r.Spend < 0 {
		return errors.New("spend must be >= 0")
	}
	if r.Impressions < 0 || r.Clicks < 0 || r.Leads < 0 || r.QualifiedLeads < 0 {
		return errors.New("counters must be >= 0")
	}
	return nil
}
