package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/jobvacancy/internal/config"
	"github.com/garnizeh/jobvacancy/internal/identity"
	"github.com/garnizeh/jobvacancy/internal/ratelimit"
	"github.com/garnizeh/jobvacancy/internal/submission"
	"github.com/garnizeh/jobvacancy/pkg/repository"
)

// SetupRoutes wires the HTTP surface. limiter may be nil to disable rate
// limiting of submissions.
func SetupRoutes(cfg *config.Config, version, buildTime string, repo *repository.Repository, notifier submission.NotificationSender, limiter *ratelimit.Store) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	svc := submission.NewService(repo.Offers, repo.Applications, identity.NewContextResolver(repo.Users), notifier, logger)

	// Create handlers
	systemHandler := &SystemHandler{}
	authHandler := NewAuthHandler(repo.Users, cfg.JWTSecret, cfg.TokenDuration)
	applicationsHandler := NewApplicationsHandler(svc)
	offersHandler := NewOffersHandler(repo.Offers, repo.Users)

	var submit http.Handler = http.HandlerFunc(applicationsHandler.Submit)
	submit = OptionalJWTMiddleware(cfg.JWTSecret)(submit)
	if limiter != nil {
		submit = ratelimit.Middleware(limiter, ratelimit.ClientIP(cfg.RateLimit.TrustForwarded), 0, logger)(submit)
	}

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/v1/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/v1/auth/signin", authHandler.Signin).Methods("POST")
	r.HandleFunc("/v1/offers", offersHandler.ListOffers).Methods("GET")
	r.HandleFunc("/v1/offers/{id:[0-9]+}", offersHandler.GetOffer).Methods("GET")

	// Anonymous or authenticated
	r.Handle("/v1/applications", submit).Methods("POST")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	// Auth endpoints
	authV1 := apiV1.PathPrefix("/auth").Subrouter()
	authV1.HandleFunc("/signout", authHandler.Signout).Methods("POST")

	apiV1.HandleFunc("/offers", offersHandler.CreateOffer).Methods("POST")

	return r
}
