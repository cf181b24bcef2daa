package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crm/gateway/internal/infrastructure/auth"
	"github.com/crm/gateway/internal/infrastructure/config"
	"github.com/crm/gateway/internal/infrastructure/logger"
	"github.com/crm/gateway/internal/infrastructure/telemetry"
	"github.com/crm/gateway/internal/interfaces/http/handler"
	"github.com/crm/gateway/internal/interfaces/http/middleware"
)

// Handlers groups the handlers served by the gateway
type Handlers struct {
	System      *handler.SystemHandler
	Integration *handler.IntegrationHandler
	Connection  *handler.LLMConnectionHandler
	Webhook     *handler.TelegramWebhookHandler
}

// Dependencies carries everything Setup needs to assemble the engine
type Dependencies struct {
	Config        *config.Config
	Logger        *zap.Logger
	JWTService    *auth.JWTService
	MeterProvider *telemetry.MeterProvider
	Handlers      Handlers
}

// Setup builds the gin engine with the full middleware chain and all
// gateway routes. The webhook route sits outside the JWT-protected API
// group; Telegram authenticates with the shared-secret header instead.
func Setup(deps Dependencies) *gin.Engine {
	cfg := deps.Config

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(cfg.HTTP.TrustedProxies)
	}

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(
		logger.Recovery(deps.Logger),
		middleware.RequestID(),
		logger.GinMiddleware(deps.Logger),
		middleware.Secure(),
		middleware.CORSWithConfig(corsCfg),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: deps.MeterProvider,
			Enabled:       cfg.Telemetry.Enabled,
		}),
		middleware.JWTAuthMiddleware(deps.JWTService),
	)

	engine.GET("/health", deps.Handlers.System.Health)
	engine.GET("/ready", deps.Handlers.System.Ready)
	engine.POST("/webhooks/telegram", deps.Handlers.Webhook.HandleUpdate)

	r := NewRouter(engine, WithAPIVersion("v1"))

	integrations := NewDomainGroup("integrations", "/integrations")
	integrations.Use(middleware.RequireAdmin())
	integrations.POST("", deps.Handlers.Integration.Create)
	integrations.GET("", deps.Handlers.Integration.List)
	integrations.GET("/:id", deps.Handlers.Integration.Get)
	integrations.POST("/:id/test", deps.Handlers.Integration.Test)
	integrations.POST("/:id/activate", deps.Handlers.Integration.Activate)
	integrations.POST("/:id/deactivate", deps.Handlers.Integration.Deactivate)
	integrations.DELETE("/:id", deps.Handlers.Integration.Delete)
	r.Register(integrations)

	llm := NewDomainGroup("llm", "/llm")
	llm.GET("/providers", deps.Handlers.Connection.Providers)
	llm.POST("/connection", deps.Handlers.Connection.Connect)
	llm.GET("/connection", deps.Handlers.Connection.Status)
	llm.POST("/connection/test", deps.Handlers.Connection.Test)
	llm.DELETE("/connection", deps.Handlers.Connection.Disconnect)
	r.Register(llm)

	r.Setup()
	return engine
}
