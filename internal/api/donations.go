package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/elderaid/elderaid/internal/model"
	"github.com/elderaid/elderaid/internal/service"
)

// DonationsHandler handles donation endpoints.
type DonationsHandler struct {
	Donations *service.Donations
	Log       *zap.Logger
}

type createDonationRequest struct {
	Description  string `json:"description"`
	Quantity     int    `json:"quantity"`
	DonationDate string `json:"donation_date"`
	Anonymous    bool   `json:"anonymous"`
	CampaignID   flexID `json:"campaign_id"`
	BenefactorID flexID `json:"benefactor_id"`
}

type statusRequest struct {
	DonationID flexID `json:"donationId"`
	Status     string `json:"status"`
}

// Create handles POST /api/donations.
func (h *DonationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDonationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := parseDate(req.DonationDate)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	d, err := h.Donations.Create(r.Context(), service.NewDonation{
		Description:  req.Description,
		Quantity:     req.Quantity,
		DonationDate: date,
		Anonymous:    req.Anonymous,
		CampaignID:   int64(req.CampaignID),
		BenefactorID: int64(req.BenefactorID),
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusCreated, d)
}

// List handles GET /api/donations. The caller sees its own institution's
// donations; institutionId, when given, must name that institution.
func (h *DonationsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	q := r.URL.Query()

	institutionID := claims.InstitutionID
	if raw := q.Get("institutionId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			jsonError(w, http.StatusBadRequest, "invalid institutionId")
			return
		}
		if id != claims.InstitutionID {
			jsonError(w, http.StatusForbidden, "cannot list another institution's donations")
			return
		}
	}

	filter := model.DonationFilter{
		Status:     model.DonationStatus(q.Get("status")),
		Campaign:   q.Get("campaign"),
		Benefactor: q.Get("benefactor"),
	}
	for _, bound := range []struct {
		key string
		dst **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := q.Get(bound.key)
		if raw == "" {
			continue
		}
		t, err := parseDate(raw)
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		if bound.key == "to" && len(raw) == len(time.DateOnly) {
			t = t.Add(24*time.Hour - time.Second)
		}
		*bound.dst = &t
	}

	donations, err := h.Donations.List(r.Context(), institutionID, filter)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, donations)
}

// UpdateStatus handles PUT /api/donations/status.
func (h *DonationsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.Donations.Transition(r.Context(), service.TransitionRequest{
		DonationID:    int64(req.DonationID),
		Status:        req.Status,
		InstitutionID: GetClaims(r.Context()).InstitutionID,
	})
	if errors.Is(err, model.ErrMirrorSync) && d != nil {
		jsonResponse(w, http.StatusBadGateway, map[string]any{
			"error":    "status saved, mirror update pending retry",
			"donation": d,
		})
		return
	}
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, d)
}
