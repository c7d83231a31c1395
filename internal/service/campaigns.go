package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/elderaid/elderaid/internal/mirror"
	"github.com/elderaid/elderaid/internal/model"
	"github.com/elderaid/elderaid/internal/sanitize"
	"github.com/elderaid/elderaid/internal/store"
)

// Campaigns manages fundraising campaigns.
type Campaigns struct {
	DB    *sql.DB
	Relay *mirror.Relay
	Log   *zap.Logger
	Now   func() time.Time
}

// NewCampaign is the input for Create.
type NewCampaign struct {
	Name            string
	Requirement     string
	BeneficiaryType string
	StartDate       time.Time
	EndDate         time.Time
	ImageURLs       []string
}

// Create opens a campaign for institutionID.
func (s *Campaigns) Create(ctx context.Context, institutionID int64, in NewCampaign) (*model.Campaign, error) {
	in.Name = sanitize.Text(in.Name)
	in.Requirement = sanitize.Text(in.Requirement)
	in.BeneficiaryType = sanitize.Text(in.BeneficiaryType)
	if in.Name == "" || in.Requirement == "" || in.BeneficiaryType == "" {
		return nil, fmt.Errorf("%w: name, requirement and beneficiary_type are required", model.ErrInvalidArgument)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return nil, fmt.Errorf("%w: start_date and end_date are required", model.ErrInvalidArgument)
	}
	if in.EndDate.Before(in.StartDate) {
		return nil, fmt.Errorf("%w: end_date is before start_date", model.ErrInvalidArgument)
	}
	for _, raw := range in.ImageURLs {
		if !validImageURL(raw) {
			return nil, fmt.Errorf("%w: image url %q", model.ErrInvalidArgument, raw)
		}
	}

	var created *model.Campaign
	err := store.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		inst, err := store.GetInstitution(ctx, tx, institutionID)
		if err != nil {
			return err
		}
		if inst == nil {
			return fmt.Errorf("%w: institution %d", model.ErrNotFound, institutionID)
		}

		id, err := store.CreateCampaign(ctx, tx, &model.Campaign{
			Name:            in.Name,
			Requirement:     in.Requirement,
			BeneficiaryType: in.BeneficiaryType,
			StartDate:       in.StartDate,
			EndDate:         in.EndDate,
			InstitutionID:   institutionID,
		}, in.ImageURLs)
		if err != nil {
			return err
		}
		if created, err = store.GetCampaign(ctx, tx, id); err != nil {
			return err
		}
		_, err = store.EnqueueOutbox(ctx, tx, mirror.CollectionCampaigns, docID(id), model.OutboxSet, campaignDoc(created))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("campaign created",
		zap.Int64("campaign_id", created.ID),
		zap.Int64("institution_id", institutionID),
		zap.Int("images", len(created.Images)))
	s.sync(ctx, created.ID)
	return created, nil
}

// Get returns one campaign with its derived status.
func (s *Campaigns) Get(ctx context.Context, id int64) (*model.CampaignView, error) {
	c, err := store.GetCampaign(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: campaign %d", model.ErrNotFound, id)
	}
	views := model.ViewCampaigns([]model.Campaign{*c}, s.now())
	return &views[0], nil
}

// List returns campaigns with their derived status, all evaluated against
// the same instant. An institutionID of zero lists every campaign.
func (s *Campaigns) List(ctx context.Context, institutionID int64) ([]model.CampaignView, error) {
	campaigns, err := store.ListCampaigns(ctx, s.DB, institutionID)
	if err != nil {
		return nil, err
	}
	return model.ViewCampaigns(campaigns, s.now()), nil
}

// Delete removes a campaign owned by institutionID. Campaigns that already
// received donations cannot be deleted.
func (s *Campaigns) Delete(ctx context.Context, institutionID, id int64) error {
	err := store.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := s.owned(ctx, tx, institutionID, id); err != nil {
			return err
		}
		n, err := store.CountCampaignDonations(ctx, tx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: campaign %d has %d donations", model.ErrConflict, id, n)
		}
		if _, err := store.DeleteCampaign(ctx, tx, id); err != nil {
			return err
		}
		_, err = store.EnqueueOutbox(ctx, tx, mirror.CollectionCampaigns, docID(id), model.OutboxDelete, nil)
		return err
	})
	if err != nil {
		return err
	}

	s.Log.Info("campaign deleted", zap.Int64("campaign_id", id), zap.Int64("institution_id", institutionID))
	s.sync(ctx, id)
	return nil
}

// Close finalizes a campaign by moving its end date to now. A campaign that
// already ended keeps its end date.
func (s *Campaigns) Close(ctx context.Context, institutionID, id int64) (*model.CampaignView, error) {
	now := s.now()
	var closed *model.Campaign
	err := store.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		c, err := s.owned(ctx, tx, institutionID, id)
		if err != nil {
			return err
		}
		if model.CampaignStatus(c.EndDate, now) == model.CampaignFinalized {
			closed = c
			return nil
		}
		if err := store.SetCampaignEndDate(ctx, tx, id, now); err != nil {
			return err
		}
		if closed, err = store.GetCampaign(ctx, tx, id); err != nil {
			return err
		}
		_, err = store.EnqueueOutbox(ctx, tx, mirror.CollectionCampaigns, docID(id), model.OutboxUpdate,
			map[string]any{"end_date": closed.EndDate.UTC().Format(mirrorTime)})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("campaign closed", zap.Int64("campaign_id", id))
	s.sync(ctx, id)
	// Evaluate just after the new end date so the closed campaign reads finalized.
	views := model.ViewCampaigns([]model.Campaign{*closed}, now.Add(time.Second))
	return &views[0], nil
}

// Reconcile re-records every campaign's full mirror document.
func (s *Campaigns) Reconcile(ctx context.Context) (int, error) {
	n := 0
	err := store.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		campaigns, err := store.ListCampaigns(ctx, tx, 0)
		if err != nil {
			return err
		}
		for i := range campaigns {
			if _, err := store.EnqueueOutbox(ctx, tx, mirror.CollectionCampaigns, docID(campaigns[i].ID),
				model.OutboxSet, campaignDoc(&campaigns[i])); err != nil {
				return err
			}
		}
		n = len(campaigns)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.Log.Info("campaign mirror reconcile queued", zap.Int("campaigns", n))
	return n, nil
}

func (s *Campaigns) owned(ctx context.Context, q store.Querier, institutionID, id int64) (*model.Campaign, error) {
	c, err := store.GetCampaign(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: campaign %d", model.ErrNotFound, id)
	}
	if c.InstitutionID != institutionID {
		return nil, fmt.Errorf("%w: campaign %d belongs to another institution", model.ErrForbidden, id)
	}
	return c, nil
}

func (s *Campaigns) sync(ctx context.Context, id int64) {
	if err := s.Relay.Sync(ctx, mirror.CollectionCampaigns, docID(id)); err != nil {
		s.Log.Warn("mirror write deferred to relay",
			zap.String("collection", mirror.CollectionCampaigns),
			zap.Int64("campaign_id", id),
			zap.Error(err))
	}
}

func (s *Campaigns) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func validImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
