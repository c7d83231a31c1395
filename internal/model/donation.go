package model

import (
	"fmt"
	"time"
)

// DonationStatus is the pickup lifecycle state of a donation.
type DonationStatus string

// Donation statuses.
const (
	StatusToCollect DonationStatus = "to_collect"
	StatusOnTheWay  DonationStatus = "on_the_way"
	StatusReceived  DonationStatus = "received"
)

// DonationStatuses lists every accepted status in lifecycle order.
var DonationStatuses = []DonationStatus{StatusToCollect, StatusOnTheWay, StatusReceived}

// Valid reports whether s is one of the three accepted statuses.
func (s DonationStatus) Valid() bool {
	switch s {
	case StatusToCollect, StatusOnTheWay, StatusReceived:
		return true
	}
	return false
}

// ParseDonationStatus converts a raw request value into a DonationStatus.
func ParseDonationStatus(raw string) (DonationStatus, error) {
	s := DonationStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: status %q must be one of to_collect, on_the_way, received", ErrInvalidArgument, raw)
	}
	return s, nil
}

// Donation is a pledged item from a benefactor toward a campaign.
type Donation struct {
	ID            int64          `json:"id"`
	Description   string         `json:"description"`
	Quantity      int            `json:"quantity"`
	DonationDate  time.Time      `json:"donation_date"`
	Status        DonationStatus `json:"status"`
	Anonymous     bool           `json:"anonymous"`
	CampaignID    int64          `json:"campaign_id"`
	BenefactorID  int64          `json:"benefactor_id"`
	InstitutionID int64          `json:"institution_id"`
	MirrorID      string         `json:"mirror_id"`
	UpdatedAt     time.Time      `json:"updated_at"`

	// Joined fields (populated by list queries).
	Campaign   *CampaignSummary   `json:"campaign,omitempty"`
	Benefactor *BenefactorSummary `json:"benefactor,omitempty"`
}

// CampaignSummary is the subset of campaign fields shown next to a donation.
type CampaignSummary struct {
	Name        string `json:"name"`
	Requirement string `json:"requirement"`
}

// BenefactorSummary is the subset of benefactor fields shown next to a donation.
type BenefactorSummary struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

// DonationFilter narrows a donation listing. Zero values match everything.
type DonationFilter struct {
	Status     DonationStatus
	Campaign   string // substring of the campaign name
	Benefactor string // substring of the benefactor name
	From       *time.Time
	To         *time.Time
}

// Benefactor is the donor behind a donation.
type Benefactor struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	CreatedAt time.Time `json:"created_at"`
}
