package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/elderaid/elderaid/internal/imaging"
	"github.com/elderaid/elderaid/internal/service"
)

// UploadsHandler stores pictures and serves them back.
type UploadsHandler struct {
	Images *service.Images
	Log    *zap.Logger
}

// Upload handles POST /api/uploads with a multipart "image" field.
func (h *UploadsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image field required")
		return
	}
	defer file.Close()

	url, err := h.Images.Upload(r.Context(), file)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]string{"url": url})
}

// Get handles GET /api/images/{id}.
func (h *UploadsHandler) Get(w http.ResponseWriter, r *http.Request) {
	data, mime, err := h.Images.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
