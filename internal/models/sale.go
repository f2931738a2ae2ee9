package models

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
)

type SaleStatus string

const (
	SaleStatusScheduled   SaleStatus = "scheduled"
	SaleStatusRescheduled SaleStatus = "rescheduled"
	SaleStatusDelivered   SaleStatus = "delivered"
	SaleStatusLost        SaleStatus = "lost"
)

func (s SaleStatus) Valid() bool {
	switch s {
	case SaleStatusScheduled, SaleStatusRescheduled, SaleStatusDelivered, SaleStatusLost:
		return true
	}
	return false
}

// SaleEvent is a sale as recorded by the CRM side of the dashboard.
//
// DeliveryDate is only meaningful for delivered sales and LossReasonID only
// for lost ones. ExpectedDate is the single stored scheduling date; when a
// sale was rescheduled it holds whatever the upstream form last wrote.
type SaleEvent struct {
	ID           string      `json:"id"`
	Status       SaleStatus  `json:"status"`
	Value        float64     `json:"value"`
	CreativeID   string      `json:"creative_id,omitempty"`
	DeliveryDate *civil.Date `json:"delivery_date,omitempty"`
	ExpectedDate *civil.Date `json:"expected_date,omitempty"`
	LossReasonID string      `json:"loss_reason_id,omitempty"`
}

func (s *SaleEvent) Validate() error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if !s.Status.Valid() {
		return fmt.Errorf("invalid status %q", s.Status)
	}
	if s.Value < 0 {
		return errors.New("value must be >= 0")
	}
	return nil
}

// LossReason names why a sale was lost ("price", "no show", ...).
type LossReason struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (r *LossReason) Validate() error {
	if r.ID == "" {
		return errors.New("id is required")
	}
	return nil
}
