package model

import "time"

// Campaign statuses. Never stored; derived from the end date.
const (
	CampaignActive    = "active"
	CampaignFinalized = "finalized"
)

// CampaignStatus reports "finalized" once now is past end, "active" otherwise.
func CampaignStatus(end, now time.Time) string {
	if now.After(end) {
		return CampaignFinalized
	}
	return CampaignActive
}

// Campaign is a fundraising effort run by an institution.
type Campaign struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Requirement     string          `json:"requirement"`
	BeneficiaryType string          `json:"beneficiary_type"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	InstitutionID   int64           `json:"institution_id"`
	Images          []CampaignImage `json:"images"`
	CreatedAt       time.Time       `json:"created_at"`

	// Joined (populated by the "all campaigns" listing).
	Institution *InstitutionSummary `json:"institution,omitempty"`
}

// CampaignImage is one slideshow image; Position follows insertion order.
type CampaignImage struct {
	ID       int64  `json:"id"`
	Position int    `json:"position"`
	ImageURL string `json:"image_url"`
}

// CampaignView is a campaign rendered with its derived status.
type CampaignView struct {
	Campaign
	Status string `json:"status"`
}

// ViewCampaigns derives every status from the same instant so one response
// never mixes "active" and "finalized" for the same boundary.
func ViewCampaigns(campaigns []Campaign, now time.Time) []CampaignView {
	views := make([]CampaignView, 0, len(campaigns))
	for _, c := range campaigns {
		views = append(views, CampaignView{Campaign: c, Status: CampaignStatus(c.EndDate, now)})
	}
	return views
}
