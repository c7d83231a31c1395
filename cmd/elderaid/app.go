package main

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/elderaid/elderaid/internal/api"
	"github.com/elderaid/elderaid/internal/config"
	"github.com/elderaid/elderaid/internal/db"
	"github.com/elderaid/elderaid/internal/mirror"
	"github.com/elderaid/elderaid/internal/model"
	"github.com/elderaid/elderaid/internal/service"
	"github.com/elderaid/elderaid/internal/store"
)

// app is everything a command needs once the database and mirror are open.
type app struct {
	cfg       config.Config
	log       *zap.Logger
	db        *sql.DB
	mirror    mirror.Mirror
	relay     *mirror.Relay
	jwtSecret string
	services  api.Services
}

// openApp opens the database, ensures the schema, connects the mirror and
// builds the services.
func openApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("ensuring database schema: %w", err)
	}
	log.Info("database ready", zap.String("path", cfg.DBPath))

	secret := cfg.JWTSecret
	if secret == "" {
		if secret, err = store.GetJWTSecret(ctx, database); err != nil {
			database.Close()
			return nil, fmt.Errorf("loading JWT secret: %w", err)
		}
	}

	var m mirror.Mirror
	if cfg.MongoURI != "" {
		mm, err := mirror.DialMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			database.Close()
			return nil, err
		}
		log.Info("document mirror connected", zap.String("database", cfg.MongoDB))
		m = mm
	} else {
		log.Warn("no mongo uri configured, mirroring to memory")
		m = mirror.NewMemoryMirror()
	}

	relay := mirror.NewRelay(database, m, log.Named("relay"))
	relay.Timeout = cfg.MirrorTimeout
	relay.Interval = cfg.RelayInterval
	relay.MaxAttempts = cfg.RelayMaxAttempts

	policy := model.PolicyPermissive
	if cfg.StrictTransitions {
		policy = model.PolicyStrict
	}
	log.Info("donation transitions", zap.Stringer("policy", policy))

	return &app{
		cfg:       cfg,
		log:       log,
		db:        database,
		mirror:    m,
		relay:     relay,
		jwtSecret: secret,
		services: api.Services{
			Institutions: &service.Institutions{DB: database, Relay: relay, Log: log, JWTSecret: secret},
			Campaigns:    &service.Campaigns{DB: database, Relay: relay, Log: log},
			Donations:    &service.Donations{DB: database, Relay: relay, Policy: policy, Log: log},
			Benefactors:  &service.Benefactors{DB: database, Log: log},
			Images:       &service.Images{DB: database, Log: log, PublicURL: cfg.PublicURL},
		},
	}, nil
}

func (a *app) Close(ctx context.Context) {
	if err := a.mirror.Close(ctx); err != nil {
		a.log.Warn("closing mirror", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn("closing database", zap.Error(err))
	}
}
