package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/elderaid/elderaid/internal/model"
	"github.com/elderaid/elderaid/internal/service"
)

// BenefactorsHandler handles benefactor sign-up.
type BenefactorsHandler struct {
	Benefactors *service.Benefactors
	Log         *zap.Logger
}

type createBenefactorRequest struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone string  `json:"phone"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

// Create handles POST /api/benefactors.
func (h *BenefactorsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBenefactorRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b, err := h.Benefactors.Create(r.Context(), model.Benefactor{
		Name: req.Name, Email: req.Email, Phone: req.Phone, Lat: req.Lat, Lng: req.Lng,
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusCreated, b)
}
