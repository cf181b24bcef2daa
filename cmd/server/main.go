package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	channelapp "github.com/crm/gateway/internal/application/channel"
	connectionapp "github.com/crm/gateway/internal/application/connection"
	integrationapp "github.com/crm/gateway/internal/application/integration"
	"github.com/crm/gateway/internal/infrastructure/auth"
	"github.com/crm/gateway/internal/infrastructure/cache"
	"github.com/crm/gateway/internal/infrastructure/chat"
	"github.com/crm/gateway/internal/infrastructure/config"
	"github.com/crm/gateway/internal/infrastructure/logger"
	"github.com/crm/gateway/internal/infrastructure/persistence"
	"github.com/crm/gateway/internal/infrastructure/probe"
	"github.com/crm/gateway/internal/infrastructure/telegram"
	"github.com/crm/gateway/internal/infrastructure/telemetry"
	"github.com/crm/gateway/internal/infrastructure/vault"
	"github.com/crm/gateway/internal/infrastructure/workflow"
	"github.com/crm/gateway/internal/interfaces/http/handler"
	"github.com/crm/gateway/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting integration gateway",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port))

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	var gatewayMetrics *telemetry.GatewayMetrics
	if cfg.Telemetry.Enabled {
		gatewayMetrics, err = telemetry.NewGatewayMetrics(telemetry.GatewayMetricsConfig{
			Provider: meterProvider,
			Logger:   log,
		})
		if err != nil {
			log.Fatal("Failed to initialize gateway metrics", zap.Error(err))
		}
	}

	// Database
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	// Secret vault
	secretStore, err := vault.NewStore(vault.Config{
		Address:   cfg.Vault.Address,
		Token:     cfg.Vault.Token,
		MountPath: cfg.Vault.MountPath,
		BasePath:  cfg.Vault.BasePath,
		Timeout:   cfg.Vault.Timeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize vault store", zap.Error(err))
	}

	// Webhook dedupe store: Redis when reachable, in-memory otherwise
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	)
	dedupeStore, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		_ = dedupeStore.Close()
	}()

	// Repositories
	integrationRepo := persistence.NewGormIntegrationRepository(db.DB)
	connectionRepo := persistence.NewGormConnectionRepository(db.DB)
	channelRepo := persistence.NewGormChannelRepository(db.DB)

	// Outbound clients
	prober := probe.NewInstrumentedProber(
		probe.NewHTTPProber(cfg.Probe.Timeout, log),
		gatewayMetrics,
	)
	telegramOpts := []telegram.Option{}
	if cfg.Telegram.APIBaseURL != "" {
		telegramOpts = append(telegramOpts, telegram.WithBaseURL(cfg.Telegram.APIBaseURL))
	}
	telegramClient := telegram.NewClient(log, telegramOpts...)
	chatClient := chat.NewStreamClient(cfg.Chat.CompletionURL, cfg.Chat.Timeout, log)
	workflowClient := workflow.NewClient(cfg.Probe.Timeout, log)

	// Application services
	registryService := integrationapp.NewRegistryService(integrationRepo, secretStore, prober, workflowClient, log)
	connectionService := connectionapp.NewService(connectionRepo, secretStore, prober, log)
	bridgeService := channelapp.NewBridgeService(
		channelRepo, secretStore, telegramClient, chatClient, dedupeStore, log,
		channelapp.WithChunkLimit(cfg.Telegram.MessageLimit),
		channelapp.WithDedupeTTL(cfg.Telegram.DedupeTTL),
		channelapp.WithMetrics(gatewayMetrics),
	)

	jwtService := auth.NewJWTService(cfg.JWT)

	engine := router.Setup(router.Dependencies{
		Config:        cfg,
		Logger:        log,
		JWTService:    jwtService,
		MeterProvider: meterProvider,
		Handlers: router.Handlers{
			System:      handler.NewSystemHandler(db, secretStore, cfg.App.Name),
			Integration: handler.NewIntegrationHandler(registryService),
			Connection:  handler.NewLLMConnectionHandler(connectionService),
			Webhook:     handler.NewTelegramWebhookHandler(bridgeService, cfg.Telegram.WebhookSecret, log, gatewayMetrics),
		},
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer provider shutdown failed", zap.Error(err))
	}
	log.Info("Shutdown complete")
}
