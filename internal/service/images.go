package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elderaid/elderaid/internal/imaging"
	"github.com/elderaid/elderaid/internal/model"
	"github.com/elderaid/elderaid/internal/store"
)

// Images stores uploaded pictures and hands out the URLs campaigns and
// institutions reference.
type Images struct {
	DB        *sql.DB
	Log       *zap.Logger
	PublicURL string
}

// Upload normalizes a picture, stores it and returns its public URL.
func (s *Images) Upload(ctx context.Context, r io.Reader) (string, error) {
	pic, err := imaging.Process(r)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	if err := store.SaveImage(ctx, s.DB, id, pic.Data, pic.MIME); err != nil {
		return "", err
	}

	s.Log.Info("image stored",
		zap.String("image_id", id),
		zap.Int("bytes", len(pic.Data)),
		zap.Int("width", pic.Width),
		zap.Int("height", pic.Height))
	return s.URL(id), nil
}

// Get returns a stored picture.
func (s *Images) Get(ctx context.Context, id string) ([]byte, string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, "", fmt.Errorf("%w: image %s", model.ErrNotFound, id)
	}
	data, mime, err := store.GetImage(ctx, s.DB, id)
	if err != nil {
		return nil, "", err
	}
	if data == nil {
		return nil, "", fmt.Errorf("%w: image %s", model.ErrNotFound, id)
	}
	return data, mime, nil
}

// URL is where the picture with id is served.
func (s *Images) URL(id string) string {
	return strings.TrimRight(s.PublicURL, "/") + "/api/images/" + id
}
