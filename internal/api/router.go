package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/elderaid/elderaid/internal/service"
)

// Services are the operations the API exposes.
type Services struct {
	Institutions *service.Institutions
	Campaigns    *service.Campaigns
	Donations    *service.Donations
	Benefactors  *service.Benefactors
	Images       *service.Images
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, svc Services, log *zap.Logger) http.Handler {
	authHandler := &AuthHandler{Institutions: svc.Institutions, Log: log}
	campaignsHandler := &CampaignsHandler{Campaigns: svc.Campaigns, Log: log}
	donationsHandler := &DonationsHandler{Donations: svc.Donations, Log: log}
	benefactorsHandler := &BenefactorsHandler{Benefactors: svc.Benefactors, Log: log}
	uploadsHandler := &UploadsHandler{Images: svc.Images, Log: log}
	healthHandler := &HealthHandler{DB: db, Log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(log))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		// Public.
		r.Get("/health", healthHandler.Get)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Get("/campaigns", campaignsHandler.List)
		r.Get("/campaigns/{id}", campaignsHandler.Get)
		r.Post("/benefactors", benefactorsHandler.Create)
		r.Post("/donations", donationsHandler.Create)
		r.Get("/images/{id}", uploadsHandler.Get)

		// Institution accounts.
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(jwtSecret, db))

			r.Get("/auth/me", authHandler.Me)
			r.Post("/auth/logout", authHandler.Logout)

			r.Post("/campaigns", campaignsHandler.Create)
			r.Delete("/campaigns/{id}", campaignsHandler.Delete)
			r.Put("/campaigns/{id}/close", campaignsHandler.Close)

			r.Get("/donations", donationsHandler.List)
			r.Put("/donations/status", donationsHandler.UpdateStatus)

			r.Post("/uploads", uploadsHandler.Upload)
		})
	})

	return r
}
