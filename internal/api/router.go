package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/leozw/ws-billing-resolver/internal/api/handlers"
	"github.com/leozw/ws-billing-resolver/internal/api/middleware"
	"github.com/leozw/ws-billing-resolver/internal/config"
)

type Server struct {
	Config  *config.Config
	Router  *gin.Engine
	handler *handlers.Handler
	auth    middleware.TokenValidator
}

// NewServer builds the http surface. auth may be nil when keycloak is disabled.
func NewServer(cfg *config.Config, handler *handlers.Handler, auth middleware.TokenValidator, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()

	router.Use(middleware.Logger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	server := &Server{
		Config:  cfg,
		Router:  router,
		handler: handler,
		auth:    auth,
	}

	server.setupRoutes(gatherer)
	return server
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.Router.GET("/health", s.handler.Health)
	s.Router.GET("/ready", s.handler.Ready)
	s.Router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := s.Router.Group("/api/v1")
	if s.Config.Keycloak.Enabled && s.auth != nil {
		api.Use(middleware.AuthRequired(s.auth))
	}
	api.Use(middleware.Tenant())

	{
		api.GET("/properties/:propertyId", s.handler.GetProperty)
		api.GET("/connections", s.handler.GetConnectionHistory)
		api.GET("/connections/active", s.handler.GetActiveConnection)
		api.GET("/connections/application", s.handler.GetConnectionByApplication)
		api.GET("/process-instances", s.handler.GetProcessInstances)
	}

	{
		api.GET("/masters/billing-frequency", s.handler.GetBillingFrequency)
		api.GET("/masters/allowed-payment", s.handler.GetAllowedPayment)
		api.GET("/masters/financial-years", s.handler.GetFinancialYears)
	}

	api.GET("/bills/fetch-url", s.handler.GetFetchBillURL)
	api.GET("/rollout/dashboard", s.handler.GetRolloutDashboard)
}
