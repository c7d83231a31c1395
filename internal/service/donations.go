package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elderaid/elderaid/internal/mirror"
	"github.com/elderaid/elderaid/internal/model"
	"github.com/elderaid/elderaid/internal/sanitize"
	"github.com/elderaid/elderaid/internal/store"
)

// Donations runs the donation lifecycle.
type Donations struct {
	DB     *sql.DB
	Relay  *mirror.Relay
	Policy model.TransitionPolicy
	Log    *zap.Logger
	Now    func() time.Time
}

// TransitionRequest asks for a donation to move to Status. A non-zero
// InstitutionID restricts the change to donations owned by that institution.
type TransitionRequest struct {
	DonationID    int64
	Status        string
	InstitutionID int64
}

// Transition overwrites a donation's status and propagates it to the mirror
// document named by the donation's mirror id.
//
// The status change and its outbox entry commit together. The mirror write
// is then attempted right away; if it fails the committed donation is
// returned with an error wrapping model.ErrMirrorSync and the relay retries
// the entry later.
func (s *Donations) Transition(ctx context.Context, req TransitionRequest) (*model.Donation, error) {
	if req.DonationID <= 0 || req.Status == "" {
		return nil, fmt.Errorf("%w: donationId and status are required", model.ErrInvalidArgument)
	}
	status, err := model.ParseDonationStatus(req.Status)
	if err != nil {
		return nil, err
	}

	var (
		mirrorID string
		previous model.DonationStatus
		outboxID int64
	)
	err = store.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		d, err := store.GetDonation(ctx, tx, req.DonationID)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("%w: donation %d", model.ErrNotFound, req.DonationID)
		}
		if req.InstitutionID > 0 && d.InstitutionID != req.InstitutionID {
			return fmt.Errorf("%w: donation %d belongs to another institution", model.ErrForbidden, req.DonationID)
		}
		if err := s.Policy.CheckTransition(d.Status, status); err != nil {
			return err
		}

		if _, err := store.UpdateDonationStatus(ctx, tx, d.ID, status); err != nil {
			return err
		}
		outboxID, err = store.EnqueueOutbox(ctx, tx, mirror.CollectionDonations, d.MirrorID, model.OutboxUpdate,
			map[string]any{"status": string(status)})
		if err != nil {
			return err
		}

		mirrorID = d.MirrorID
		previous = d.Status
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("donation status changed",
		zap.Int64("donation_id", req.DonationID),
		zap.String("from", string(previous)),
		zap.String("to", string(status)))

	updated, err := store.GetDonation(ctx, s.DB, req.DonationID)
	if err != nil {
		return nil, err
	}

	if err := s.Relay.Sync(ctx, mirror.CollectionDonations, mirrorID); err != nil {
		s.Log.Error("donation mirror out of date",
			zap.Int64("donation_id", req.DonationID),
			zap.String("mirror_id", mirrorID),
			zap.String("status", string(status)),
			zap.Int64("outbox_id", outboxID),
			zap.Error(err))
		return updated, err
	}
	return updated, nil
}

// NewDonation is the input for Create.
type NewDonation struct {
	Description  string
	Quantity     int
	DonationDate time.Time
	Anonymous    bool
	CampaignID   int64
	BenefactorID int64
}

// Create records a pledged donation in the to_collect state and assigns the
// mirror id it keeps for life.
func (s *Donations) Create(ctx context.Context, in NewDonation) (*model.Donation, error) {
	in.Description = sanitize.Text(in.Description)
	if in.Description == "" || in.Quantity <= 0 || in.CampaignID <= 0 || in.BenefactorID <= 0 {
		return nil, fmt.Errorf("%w: description, quantity, campaign_id and benefactor_id are required", model.ErrInvalidArgument)
	}
	now := s.now()
	if in.DonationDate.IsZero() {
		in.DonationDate = now
	}

	var created *model.Donation
	err := store.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		campaign, err := store.GetCampaign(ctx, tx, in.CampaignID)
		if err != nil {
			return err
		}
		if campaign == nil {
			return fmt.Errorf("%w: campaign %d", model.ErrNotFound, in.CampaignID)
		}
		if model.CampaignStatus(campaign.EndDate, now) == model.CampaignFinalized {
			return fmt.Errorf("%w: campaign %d is finalized", model.ErrConflict, in.CampaignID)
		}
		benefactor, err := store.GetBenefactor(ctx, tx, in.BenefactorID)
		if err != nil {
			return err
		}
		if benefactor == nil {
			return fmt.Errorf("%w: benefactor %d", model.ErrNotFound, in.BenefactorID)
		}

		d := &model.Donation{
			Description:   in.Description,
			Quantity:      in.Quantity,
			DonationDate:  in.DonationDate,
			Status:        model.StatusToCollect,
			Anonymous:     in.Anonymous,
			CampaignID:    campaign.ID,
			BenefactorID:  benefactor.ID,
			InstitutionID: campaign.InstitutionID,
			MirrorID:      uuid.NewString(),
		}
		id, err := store.CreateDonation(ctx, tx, d)
		if err != nil {
			return err
		}
		if created, err = store.GetDonation(ctx, tx, id); err != nil {
			return err
		}
		_, err = store.EnqueueOutbox(ctx, tx, mirror.CollectionDonations, created.MirrorID, model.OutboxSet, donationDoc(created))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("donation created",
		zap.Int64("donation_id", created.ID),
		zap.Int64("campaign_id", created.CampaignID),
		zap.String("mirror_id", created.MirrorID))
	s.syncLater(ctx, mirror.CollectionDonations, created.MirrorID)
	return created, nil
}

// List returns an institution's donations matching f.
func (s *Donations) List(ctx context.Context, institutionID int64, f model.DonationFilter) ([]model.Donation, error) {
	if institutionID <= 0 {
		return nil, fmt.Errorf("%w: institutionId is required", model.ErrInvalidArgument)
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: status %q", model.ErrInvalidArgument, f.Status)
	}
	donations, err := store.ListDonations(ctx, s.DB, institutionID, f)
	if err != nil {
		return nil, err
	}
	if donations == nil {
		donations = []model.Donation{}
	}
	return donations, nil
}

// Reconcile re-records every donation's full mirror document so a drain
// rebuilds the donations collection from the relational store.
func (s *Donations) Reconcile(ctx context.Context) (int, error) {
	n := 0
	err := store.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		donations, err := store.ListAllDonations(ctx, tx)
		if err != nil {
			return err
		}
		for i := range donations {
			if _, err := store.EnqueueOutbox(ctx, tx, mirror.CollectionDonations, donations[i].MirrorID,
				model.OutboxSet, donationDoc(&donations[i])); err != nil {
				return err
			}
		}
		n = len(donations)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.Log.Info("donation mirror reconcile queued", zap.Int("donations", n))
	return n, nil
}

// syncLater attempts delivery now and leaves failures to the relay.
func (s *Donations) syncLater(ctx context.Context, collection, id string) {
	if err := s.Relay.Sync(ctx, collection, id); err != nil {
		s.Log.Warn("mirror write deferred to relay",
			zap.String("collection", collection),
			zap.String("doc_id", id),
			zap.Error(err))
	}
}

func (s *Donations) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
