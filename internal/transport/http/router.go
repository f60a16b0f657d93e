package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/latent-app/latent-api/internal/application/house"
	"github.com/latent-app/latent-api/internal/application/principal"
	"github.com/latent-app/latent-api/internal/application/recovery"
	"github.com/latent-app/latent-api/internal/application/review"
	"github.com/latent-app/latent-api/internal/application/session"
	"github.com/latent-app/latent-api/internal/config"
	"github.com/latent-app/latent-api/internal/domain"
	"github.com/latent-app/latent-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/latent-app/latent-api/internal/infrastructure/jwt"
	s3infra "github.com/latent-app/latent-api/internal/infrastructure/s3"
	"github.com/latent-app/latent-api/internal/infrastructure/smtp"
	"github.com/latent-app/latent-api/internal/infrastructure/sns"
	"github.com/latent-app/latent-api/internal/jobs"
	"github.com/latent-app/latent-api/internal/pkg/otp"
	"github.com/latent-app/latent-api/internal/transport/http/handler"
	appmiddleware "github.com/latent-app/latent-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	TenantRepo       *dynamo.PrincipalRepo
	AgentRepo        *dynamo.PrincipalRepo
	HouseRepo        *dynamo.HouseRepo
	RatingRepo       *dynamo.RatingRepo
	SessionRepo      *dynamo.SessionRepo
	BindingRepo      *dynamo.BindingRepo
	NotificationRepo *dynamo.NotificationRepo
	S3Store          *s3infra.Store
	Mailer           smtp.Mailer
	SMSSender        sns.SMSSender
	JWTProvider      *jwtinfra.Provider
	Codes            *otp.Generator
	Queue            *jobs.Queue
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)
	optionalAuthMw := appmiddleware.OptionalAuth(deps.JWTProvider)

	// 5 requests/second with a burst of 10 for sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	sessionSvc := session.NewService(session.ServiceDeps{
		TenantRepo:  deps.TenantRepo,
		AgentRepo:   deps.AgentRepo,
		SessionRepo: deps.SessionRepo,
		JWTProvider: deps.JWTProvider,
	})
	principalSvc := principal.NewService(principal.ServiceDeps{
		TenantRepo:  deps.TenantRepo,
		AgentRepo:   deps.AgentRepo,
		SessionRepo: deps.SessionRepo,
		HouseRepo:   deps.HouseRepo,
		RatingRepo:  deps.RatingRepo,
	})
	recoverySvc := recovery.NewService(recovery.ServiceDeps{
		TenantRepo:  deps.TenantRepo,
		AgentRepo:   deps.AgentRepo,
		BindingRepo: deps.BindingRepo,
		SessionRepo: deps.SessionRepo,
		Codes:       deps.Codes,
		Queue:       deps.Queue,
	})
	reviewSvc := review.NewService(review.ServiceDeps{
		AgentRepo:  deps.AgentRepo,
		TenantRepo: deps.TenantRepo,
		RatingRepo: deps.RatingRepo,
	})
	houseSvc := house.NewService(house.ServiceDeps{
		HouseRepo:  deps.HouseRepo,
		TenantRepo: deps.TenantRepo,
		AgentRepo:  deps.AgentRepo,
		ImageStore: deps.S3Store,
		Queue:      deps.Queue,
	})

	healthH := handler.NewHealthHandler()
	sessionH := handler.NewSessionHandler(sessionSvc)
	principalH := handler.NewPrincipalHandler(principalSvc, sessionSvc)
	agentH := handler.NewAgentHandler(principalSvc, reviewSvc)
	recoveryH := handler.NewRecoveryHandler(recoverySvc)
	houseH := handler.NewHouseHandler(houseSvc)
	notifH := handler.NewNotificationHandler(deps.NotificationRepo)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/ping", healthH.Ping)
		r.With(optionalAuthMw, sensitiveRL.Limit).Post("/login", sessionH.Login)
		r.With(optionalAuthMw, sensitiveRL.Limit).Post("/users", principalH.Register)
		r.With(sensitiveRL.Limit).Post("/reset-password", recoveryH.Issue)
		r.With(sensitiveRL.Limit).Put("/reset-password", recoveryH.Redeem)
		r.Get("/agents/{agentId}", agentH.Get)
		r.Get("/houses", houseH.Search)
		r.Get("/houses/{houseId}", houseH.Get)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/logout", sessionH.Logout)
			r.Get("/sessions", sessionH.GetCurrent)

			r.Get("/users/me", principalH.Get)
			r.Put("/users/me", principalH.Update)
			r.Delete("/users/me", principalH.Delete)
			r.Post("/users/me/password", principalH.ChangePassword)

			r.Get("/notifications", notifH.ListMine)

			// Tenant-only
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireKind(domain.KindTenant))

				r.Put("/agents/{agentId}/reviews", agentH.Review)
				r.Post("/appointment/{houseId}", houseH.Book)
			})

			// Agent-only
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireKind(domain.KindAgent))

				r.Post("/houses", houseH.Create)
				r.Put("/houses/{houseId}", houseH.Update)
				r.Delete("/houses/{houseId}", houseH.Delete)
				r.Post("/houses/{houseId}/images", houseH.UploadImage)
			})
		})
	})

	return r
}
