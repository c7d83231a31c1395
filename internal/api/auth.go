package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/elderaid/elderaid/internal/service"
)

// AuthHandler handles institution registration and sessions.
type AuthHandler struct {
	Institutions *service.Institutions
	Log          *zap.Logger
}

type registerRequest struct {
	Name               string  `json:"name"`
	NIT                string  `json:"NIT"`
	MainRepresentative string  `json:"main_representative"`
	Email              string  `json:"email"`
	Password           string  `json:"password"`
	Phone              string  `json:"phone"`
	Address            string  `json:"address"`
	Lat                float64 `json:"lat"`
	Lng                float64 `json:"lng"`
	ImageURL           string  `json:"image_url"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.Institutions.Register(r.Context(), service.Registration{
		Name:               req.Name,
		NIT:                req.NIT,
		MainRepresentative: req.MainRepresentative,
		Email:              req.Email,
		Password:           req.Password,
		Phone:              req.Phone,
		Address:            req.Address,
		Lat:                req.Lat,
		Lng:                req.Lng,
		ImageURL:           req.ImageURL,
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusCreated, session)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.Institutions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, session)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	inst, err := h.Institutions.Get(r.Context(), claims.InstitutionID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, inst)
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Institutions.Logout(r.Context(), GetClaims(r.Context())); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}
