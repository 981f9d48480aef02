package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beck-00/financial-model-generator/pkg/health"
	"github.com/beck-00/financial-model-generator/pkg/middleware"

	"github.com/beck-00/financial-model-generator/internal/auth"
	"github.com/beck-00/financial-model-generator/internal/service"
)

const serviceName = "auth"

// NewRouter creates a chi router with all auth service routes registered.
func NewRouter(
	authService *service.AuthService,
	codec *auth.Codec,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig middleware.CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := codec.ValidateAccess(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{UserID: claims.Subject, TokenID: claims.ID}, nil
	}

	authHandler := NewAuthHandler(authService, logger)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(RequireContentType(mediaTypeJSON, mediaTypeForm)).Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/register", authHandler.Register)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))
			r.Use(middleware.RequestLogger(logger))
			r.Get("/me", authHandler.Me)
		})
	})

	return r
}
