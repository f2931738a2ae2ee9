package models

import (
	"errors"
	"fmt"
)

type CampaignStatus string

const (
	CampaignStatusActive   CampaignStatus = "active"
	CampaignStatusPaused   CampaignStatus = "paused"
	CampaignStatusDisabled CampaignStatus = "disabled"
)

// Valid reports whether s is one of the known lifecycle statuses.
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusActive, CampaignStatusPaused, CampaignStatusDisabled:
		return true
	}
	return false
}

// ParseCampaignStatus parses a status as sent by the dashboard.
func ParseCampaignStatus(v string) (CampaignStatus, error) {
	s := CampaignStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown campaign status %q", v)
	}
	return s, nil
}

// Campaign is the root of the advertising hierarchy. It owns zero or more ad
// sets through AdSet.CampaignID.
type Campaign struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Status CampaignStatus `json:"status"`
}

func (c *Campaign) Validate() error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	if c.Name == "" {
		return errors.New("name is required")
	}
	if !c.Status.Valid() {
		return fmt.Errorf("invalid status %q", c.Status)
	}
	return nil
}
