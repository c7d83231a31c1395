package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/elderaid/elderaid/internal/auth"
	"github.com/elderaid/elderaid/internal/mirror"
	"github.com/elderaid/elderaid/internal/model"
	"github.com/elderaid/elderaid/internal/sanitize"
	"github.com/elderaid/elderaid/internal/store"
)

// Institutions manages institution accounts and their sessions.
type Institutions struct {
	DB        *sql.DB
	Relay     *mirror.Relay
	Log       *zap.Logger
	JWTSecret string
}

// Registration is the input for Register.
type Registration struct {
	Name               string
	NIT                string
	MainRepresentative string
	Email              string
	Password           string
	Phone              string
	Address            string
	Lat                float64
	Lng                float64
	ImageURL           string
}

// Session is a signed-in institution.
type Session struct {
	Token       string             `json:"token"`
	Institution *model.Institution `json:"institution"`
}

// Register creates an institution account and signs it in.
func (s *Institutions) Register(ctx context.Context, in Registration) (*Session, error) {
	in.Name = sanitize.Text(in.Name)
	in.NIT = sanitize.Text(in.NIT)
	in.MainRepresentative = sanitize.Text(in.MainRepresentative)
	in.Email = sanitize.Email(in.Email)
	in.Phone = sanitize.Text(in.Phone)
	in.Address = sanitize.Text(in.Address)
	if in.Name == "" || in.NIT == "" || in.Email == "" {
		return nil, fmt.Errorf("%w: name, NIT and email are required", model.ErrInvalidArgument)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, fmt.Errorf("%w: email %q", model.ErrInvalidArgument, in.Email)
	}
	if err := model.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	if in.ImageURL != "" && !validImageURL(in.ImageURL) {
		return nil, fmt.Errorf("%w: image url %q", model.ErrInvalidArgument, in.ImageURL)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	var created *model.Institution
	err = store.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		existing, err := store.GetInstitutionByEmail(ctx, tx, in.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: email %s is already registered", model.ErrConflict, in.Email)
		}

		id, err := store.CreateInstitution(ctx, tx, &model.Institution{
			Name:               in.Name,
			NIT:                in.NIT,
			MainRepresentative: in.MainRepresentative,
			Email:              in.Email,
			PasswordHash:       string(hash),
			Phone:              in.Phone,
			Address:            in.Address,
			Lat:                in.Lat,
			Lng:                in.Lng,
			ImageURL:           in.ImageURL,
		})
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE") {
				return fmt.Errorf("%w: email %s is already registered", model.ErrConflict, in.Email)
			}
			return err
		}
		if created, err = store.GetInstitution(ctx, tx, id); err != nil {
			return err
		}
		_, err = store.EnqueueOutbox(ctx, tx, mirror.CollectionInstitutions, docID(id), model.OutboxSet, institutionDoc(created))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("institution registered", zap.Int64("institution_id", created.ID), zap.String("email", created.Email))
	if err := s.Relay.Sync(ctx, mirror.CollectionInstitutions, docID(created.ID)); err != nil {
		s.Log.Warn("mirror write deferred to relay",
			zap.String("collection", mirror.CollectionInstitutions),
			zap.Int64("institution_id", created.ID),
			zap.Error(err))
	}

	return s.session(created)
}

// Login checks credentials and issues a token.
func (s *Institutions) Login(ctx context.Context, email, password string) (*Session, error) {
	email = sanitize.Email(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password required", model.ErrInvalidArgument)
	}

	inst, err := store.GetInstitutionByEmail(ctx, s.DB, email)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, fmt.Errorf("%w: invalid credentials", model.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(inst.PasswordHash), []byte(password)); err != nil {
		s.Log.Warn("login failed", zap.String("email", email))
		return nil, fmt.Errorf("%w: invalid credentials", model.ErrUnauthorized)
	}

	s.Log.Info("institution logged in", zap.Int64("institution_id", inst.ID))
	return s.session(inst)
}

// Get returns an institution by ID.
func (s *Institutions) Get(ctx context.Context, id int64) (*model.Institution, error) {
	inst, err := store.GetInstitution(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, fmt.Errorf("%w: institution %d", model.ErrNotFound, id)
	}
	return inst, nil
}

// Logout revokes the token identified by claims until it would have expired.
func (s *Institutions) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return fmt.Errorf("%w: token cannot be revoked", model.ErrInvalidArgument)
	}
	if err := store.RevokeToken(ctx, s.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	s.Log.Info("institution logged out", zap.Int64("institution_id", claims.InstitutionID))
	return nil
}

// Reconcile re-records every institution's mirror document.
func (s *Institutions) Reconcile(ctx context.Context) (int, error) {
	n := 0
	err := store.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		institutions, err := store.ListInstitutions(ctx, tx)
		if err != nil {
			return err
		}
		for i := range institutions {
			if _, err := store.EnqueueOutbox(ctx, tx, mirror.CollectionInstitutions, docID(institutions[i].ID),
				model.OutboxSet, institutionDoc(&institutions[i])); err != nil {
				return err
			}
		}
		n = len(institutions)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.Log.Info("institution mirror reconcile queued", zap.Int("institutions", n))
	return n, nil
}

func (s *Institutions) session(inst *model.Institution) (*Session, error) {
	token, err := auth.GenerateToken(s.JWTSecret, inst.ID, inst.Email)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Institution: inst}, nil
}
