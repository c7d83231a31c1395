package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/elderaid/elderaid/internal/model"
)

func seedInstitution(t *testing.T, q Querier, email string) int64 {
	t.Helper()
	id, err := CreateInstitution(context.Background(), q, &model.Institution{
		Name:               "Hogar San José",
		NIT:                "900123456",
		MainRepresentative: "Ana Pérez",
		Email:              email,
		PasswordHash:       "hash",
		Phone:              "3001234567",
		Address:            "Calle 1 # 2-3",
		Lat:                4.711,
		Lng:                -74.072,
	})
	if err != nil {
		t.Fatalf("CreateInstitution: %v", err)
	}
	return id
}

func seedBenefactor(t *testing.T, q Querier, name string) int64 {
	t.Helper()
	b, err := CreateBenefactor(context.Background(), q, model.Benefactor{
		Name: name, Email: name + "@example.com", Lat: 4.6, Lng: -74.1,
	})
	if err != nil {
		t.Fatalf("CreateBenefactor: %v", err)
	}
	return b.ID
}

func seedCampaign(t *testing.T, q Querier, institutionID int64, name string, images ...string) int64 {
	t.Helper()
	id, err := CreateCampaign(context.Background(), q, &model.Campaign{
		Name:            name,
		Requirement:     "blankets",
		BeneficiaryType: "elderly",
		StartDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		InstitutionID:   institutionID,
	}, images)
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	return id
}

func seedDonation(t *testing.T, q Querier, campaignID, benefactorID, institutionID int64, mirrorID string, date time.Time) int64 {
	t.Helper()
	id, err := CreateDonation(context.Background(), q, &model.Donation{
		Description:   "wool blankets",
		Quantity:      3,
		DonationDate:  date,
		CampaignID:    campaignID,
		BenefactorID:  benefactorID,
		InstitutionID: institutionID,
		MirrorID:      mirrorID,
	})
	if err != nil {
		t.Fatalf("CreateDonation: %v", err)
	}
	return id
}

// compile-time check that both handles satisfy Querier.
var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)
