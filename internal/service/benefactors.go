package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/mail"

	"go.uber.org/zap"

	"github.com/elderaid/elderaid/internal/model"
	"github.com/elderaid/elderaid/internal/sanitize"
	"github.com/elderaid/elderaid/internal/store"
)

// Benefactors registers the people who pledge donations.
type Benefactors struct {
	DB  *sql.DB
	Log *zap.Logger
}

// Create registers a benefactor.
func (s *Benefactors) Create(ctx context.Context, b model.Benefactor) (*model.Benefactor, error) {
	b.Name = sanitize.Text(b.Name)
	b.Email = sanitize.Email(b.Email)
	b.Phone = sanitize.Text(b.Phone)
	if b.Name == "" || b.Email == "" {
		return nil, fmt.Errorf("%w: name and email are required", model.ErrInvalidArgument)
	}
	if _, err := mail.ParseAddress(b.Email); err != nil {
		return nil, fmt.Errorf("%w: email %q", model.ErrInvalidArgument, b.Email)
	}

	created, err := store.CreateBenefactor(ctx, s.DB, b)
	if err != nil {
		return nil, err
	}
	s.Log.Info("benefactor created", zap.Int64("benefactor_id", created.ID))
	return created, nil
}
