package model

import (
	"errors"
	"testing"
	"time"
)

func TestParseDonationStatus(t *testing.T) {
	tests := []struct {
		raw     string
		want    DonationStatus
		wantErr bool
	}{
		{"to_collect", StatusToCollect, false},
		{"on_the_way", StatusOnTheWay, false},
		{"received", StatusReceived, false},
		{"lost", "", true},
		{"", "", true},
		{"RECEIVED", "", true},
		{" received", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDonationStatus(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDonationStatus(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("ParseDonationStatus(%q) error should wrap ErrInvalidArgument, got %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("ParseDonationStatus(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		policy  TransitionPolicy
		from    DonationStatus
		to      DonationStatus
		wantErr error
	}{
		// Permissive accepts any valid status from anywhere.
		{PolicyPermissive, StatusToCollect, StatusOnTheWay, nil},
		{PolicyPermissive, StatusToCollect, StatusReceived, nil},
		{PolicyPermissive, StatusReceived, StatusToCollect, nil},
		{PolicyPermissive, StatusOnTheWay, StatusOnTheWay, nil},
		{PolicyPermissive, StatusToCollect, "lost", ErrInvalidArgument},

		// Strict follows the table; same-state replays are fine.
		{PolicyStrict, StatusToCollect, StatusOnTheWay, nil},
		{PolicyStrict, StatusOnTheWay, StatusReceived, nil},
		{PolicyStrict, StatusReceived, StatusReceived, nil},
		{PolicyStrict, StatusToCollect, StatusReceived, ErrConflict},
		{PolicyStrict, StatusReceived, StatusOnTheWay, ErrConflict},
		{PolicyStrict, StatusOnTheWay, StatusToCollect, ErrConflict},
		{PolicyStrict, StatusOnTheWay, "", ErrInvalidArgument},
	}

	for _, tt := range tests {
		err := tt.policy.CheckTransition(tt.from, tt.to)
		if tt.wantErr == nil {
			if err != nil {
				t.Errorf("%s %s->%s: unexpected error %v", tt.policy, tt.from, tt.to, err)
			}
			continue
		}
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("%s %s->%s: error = %v, want %v", tt.policy, tt.from, tt.to, err, tt.wantErr)
		}
	}
}

func TestNextStatuses(t *testing.T) {
	if got := NextStatuses(StatusToCollect); len(got) != 1 || got[0] != StatusOnTheWay {
		t.Errorf("NextStatuses(to_collect) = %v", got)
	}
	if got := NextStatuses(StatusReceived); len(got) != 0 {
		t.Errorf("expected received to be terminal, got %v", got)
	}
}

func TestCampaignStatus(t *testing.T) {
	end := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := CampaignStatus(end, end.Add(time.Nanosecond)); got != CampaignFinalized {
		t.Errorf("just after end: got %q", got)
	}
	if got := CampaignStatus(end, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)); got != CampaignFinalized {
		t.Errorf("years after end: got %q", got)
	}
	// The end instant itself is still active: only now > end finalises.
	if got := CampaignStatus(end, end); got != CampaignActive {
		t.Errorf("at end: got %q", got)
	}
	if got := CampaignStatus(end, end.Add(-time.Hour)); got != CampaignActive {
		t.Errorf("before end: got %q", got)
	}
}

func TestViewCampaignsSharesOneInstant(t *testing.T) {
	boundary := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	campaigns := []Campaign{
		{ID: 1, EndDate: boundary},
		{ID: 2, EndDate: boundary},
		{ID: 3, EndDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	views := ViewCampaigns(campaigns, boundary)
	if len(views) != 3 {
		t.Fatalf("expected 3 views, got %d", len(views))
	}
	if views[0].Status != views[1].Status {
		t.Errorf("campaigns with the same end date diverged: %q vs %q", views[0].Status, views[1].Status)
	}
	if views[2].Status != CampaignFinalized {
		t.Errorf("expected campaign ending 2020-01-01 to be finalized, got %q", views[2].Status)
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"123456", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}
