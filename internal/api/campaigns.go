package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/elderaid/elderaid/internal/model"
	"github.com/elderaid/elderaid/internal/service"
)

// CampaignsHandler handles campaign endpoints.
type CampaignsHandler struct {
	Campaigns *service.Campaigns
	Log       *zap.Logger
}

type createCampaignRequest struct {
	Name            string   `json:"name"`
	Requirement     string   `json:"requirement"`
	BeneficiaryType string   `json:"beneficiary_type"`
	StartDate       string   `json:"start_date"`
	EndDate         string   `json:"end_date"`
	ImageURLs       []string `json:"image_urls"`
	Images          []string `json:"images"` // older clients
}

func (req createCampaignRequest) imageURLs() []string {
	if len(req.ImageURLs) > 0 {
		return req.ImageURLs
	}
	return req.Images
}

// List handles GET /api/campaigns.
func (h *CampaignsHandler) List(w http.ResponseWriter, r *http.Request) {
	var institutionID int64
	if raw := r.URL.Query().Get("institutionId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			jsonError(w, http.StatusBadRequest, "invalid institutionId")
			return
		}
		institutionID = id
	}

	views, err := h.Campaigns.List(r.Context(), institutionID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if views == nil {
		views = []model.CampaignView{}
	}
	jsonResponse(w, http.StatusOK, views)
}

// Get handles GET /api/campaigns/{id}.
func (h *CampaignsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	view, err := h.Campaigns.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, view)
}

// Create handles POST /api/campaigns.
func (h *CampaignsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createCampaignRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	c, err := h.Campaigns.Create(r.Context(), claims.InstitutionID, service.NewCampaign{
		Name:            req.Name,
		Requirement:     req.Requirement,
		BeneficiaryType: req.BeneficiaryType,
		StartDate:       start,
		EndDate:         end,
		ImageURLs:       req.imageURLs(),
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusCreated, c)
}

// Delete handles DELETE /api/campaigns/{id}.
func (h *CampaignsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	if err := h.Campaigns.Delete(r.Context(), GetClaims(r.Context()).InstitutionID, id); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "campaign deleted"})
}

// Close handles PUT /api/campaigns/{id}/close.
func (h *CampaignsHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	view, err := h.Campaigns.Close(r.Context(), GetClaims(r.Context()).InstitutionID, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, view)
}
