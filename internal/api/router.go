package api

import (
	"github.com/ayo6706/salon-ledger/internal/api/handler"
	"github.com/ayo6706/salon-ledger/internal/api/middleware"
	"github.com/ayo6706/salon-ledger/internal/api/spec"
	"github.com/ayo6706/salon-ledger/internal/config"
	"github.com/ayo6706/salon-ledger/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Dependencies are the collaborators the HTTP layer is built from.
// Redis and Deliveries are optional.
type Dependencies struct {
	Store      handler.Pinger
	Redis      redis.Cmdable
	Deliveries middleware.DeliveryStore
	Webhooks   *service.WebhookService
	Reports    *service.ReportService
	Validator  *service.ValidationService
}

type Router struct {
	cfg    *config.Config
	logger *zap.Logger
	deps   Dependencies
}

func NewRouter(cfg *config.Config, logger *zap.Logger, deps Dependencies) *Router {
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)
	return &Router{cfg: cfg, logger: logger, deps: deps}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware(api.logger))
	r.Use(middleware.RecoverMiddleware)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: api.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.TraceHeader},
		ExposedHeaders: []string{middleware.TraceHeader, "X-Idempotent-Replay"},
		MaxAge:         300,
	}))

	healthHandler := handler.NewHealthHandler(api.deps.Store, api.deps.Redis)
	webhookHandler := handler.NewWebhookHandler(api.deps.Webhooks)
	reportHandler := handler.NewReportHandler(api.deps.Reports, api.deps.Validator)

	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Provider callbacks authenticate with the asaas-access-token header.
	r.Group(func(r chi.Router) {
		r.Use(middleware.WebhookRateLimiter(api.cfg.PublicRateLimitRPS))
		r.With(middleware.WebhookDeliveryMiddleware(api.deps.Deliveries, api.logger)).
			Post("/v1/webhooks/asaas/{unidadeID}", webhookHandler.HandleAsaasWebhook)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.ReportRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Get("/v1/reports/dre", reportHandler.GetDRE)
		r.Get("/v1/reports/validation", reportHandler.GetValidation)
	})

	return r
}
