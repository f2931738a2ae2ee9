package models

import "errors"

// AdSet groups creatives within a campaign. CampaignID is a back-reference
// that may dangle when the campaign was removed after the fact; readers must
// tolerate that.
type AdSet struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CampaignID string `json:"campaign_id"`
}

func (a *AdSet) Validate() error {
	if a == nil {
		return errors.New("adset is nil")
	}
	if a.ID == "" {
		return errors.New("id is required")
	}
	if a.CampaignID == "" {
		return errors.New("campaign_id is required")
	}
	return nil
}

// Creative is the leaf of the hierarchy. Daily metrics and sales reference
// creatives directly and roll up through AdSetID.
type Creative struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Format  string `json:"format,omitempty"` // image, video, carousel, ...
	AdSetID string `json:"ad_set_id"`
}

func (c *Creative) Validate() error {
	if c == nil {
		return errors.New("creative is nil")
	}
	if c.ID == "" {
		return errors.New("id is required")
	}
	if c.AdSetID == "" {
		return errors.New("ad_set_id is required")
	}
	return nil
}
