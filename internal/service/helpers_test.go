package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/elderaid/elderaid/internal/db"
	"github.com/elderaid/elderaid/internal/mirror"
	"github.com/elderaid/elderaid/internal/model"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// switchMirror fails every write while down is set.
type switchMirror struct {
	*mirror.MemoryMirror
	mu   sync.Mutex
	down bool
}

func (m *switchMirror) setDown(down bool) {
	m.mu.Lock()
	m.down = down
	m.mu.Unlock()
}

func (m *switchMirror) err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errors.New("mirror unavailable")
	}
	return nil
}

func (m *switchMirror) Set(ctx context.Context, collection, id string, doc map[string]any) error {
	if err := m.err(); err != nil {
		return err
	}
	return m.MemoryMirror.Set(ctx, collection, id, doc)
}

func (m *switchMirror) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := m.err(); err != nil {
		return err
	}
	return m.MemoryMirror.Update(ctx, collection, id, fields)
}

func (m *switchMirror) Delete(ctx context.Context, collection, id string) error {
	if err := m.err(); err != nil {
		return err
	}
	return m.MemoryMirror.Delete(ctx, collection, id)
}

type harness struct {
	mirror       *switchMirror
	relay        *mirror.Relay
	logs         *observer.ObservedLogs
	donations    *Donations
	campaigns    *Campaigns
	benefactors  *Benefactors
	institutions *Institutions
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	database := db.NewTestDB(t)
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	m := &switchMirror{MemoryMirror: mirror.NewMemoryMirror()}
	relay := mirror.NewRelay(database, m, log)
	now := func() time.Time { return testNow }

	return &harness{
		mirror:       m,
		relay:        relay,
		logs:         logs,
		donations:    &Donations{DB: database, Relay: relay, Log: log, Now: now},
		campaigns:    &Campaigns{DB: database, Relay: relay, Log: log, Now: now},
		benefactors:  &Benefactors{DB: database, Log: log},
		institutions: &Institutions{DB: database, Relay: relay, Log: log, JWTSecret: "test-secret"},
	}
}

func (h *harness) register(t *testing.T, email string) *model.Institution {
	t.Helper()
	s, err := h.institutions.Register(context.Background(), Registration{
		Name:               "Hogar San José",
		NIT:                "900123456",
		MainRepresentative: "Ana Pérez",
		Email:              email,
		Password:           "secret123",
		Phone:              "3001234567",
		Address:            "Calle 1 # 2-3",
		Lat:                4.711,
		Lng:                -74.072,
	})
	require.NoError(t, err)
	return s.Institution
}

func (h *harness) campaign(t *testing.T, institutionID int64, end time.Time) *model.Campaign {
	t.Helper()
	c, err := h.campaigns.Create(context.Background(), institutionID, NewCampaign{
		Name:            "Winter drive",
		Requirement:     "blankets",
		BeneficiaryType: "elderly",
		StartDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         end,
		ImageURLs:       []string{"https://img.example.com/a.png", "https://img.example.com/b.png"},
	})
	require.NoError(t, err)
	return c
}

func (h *harness) benefactor(t *testing.T, name string) *model.Benefactor {
	t.Helper()
	b, err := h.benefactors.Create(context.Background(), model.Benefactor{
		Name: name, Email: name + "@example.com", Phone: "310", Lat: 4.6, Lng: -74.1,
	})
	require.NoError(t, err)
	return b
}

// donation creates an institution, an active campaign, a benefactor and one
// pledged donation.
func (h *harness) donation(t *testing.T) *model.Donation {
	t.Helper()
	inst := h.register(t, "hogar@example.com")
	c := h.campaign(t, inst.ID, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	b := h.benefactor(t, "maria")
	d, err := h.donations.Create(context.Background(), NewDonation{
		Description:  "wool blankets",
		Quantity:     3,
		CampaignID:   c.ID,
		BenefactorID: b.ID,
	})
	require.NoError(t, err)
	return d
}
