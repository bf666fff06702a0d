package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"wealthos.app/roundtable/common/id"
	"wealthos.app/roundtable/common/llm"
	"wealthos.app/roundtable/common/logger"
	"wealthos.app/roundtable/common/otel"
	"wealthos.app/roundtable/core/config"
	"wealthos.app/roundtable/core/db"
	"wealthos.app/roundtable/internal/engine"
	"wealthos.app/roundtable/internal/http/middleware"
	httprouter "wealthos.app/roundtable/internal/http/router"
	"wealthos.app/roundtable/internal/queue"
	"wealthos.app/roundtable/internal/service"
	"wealthos.app/roundtable/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "roundtable starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	turnProducer := queue.NewRedisProducer(redisClient, cfg.Pipeline.RedisStream, nil)
	defer turnProducer.Close()

	llmClient, err := llm.NewClient(llm.Config{
		Provider: cfg.DefaultLLM.Provider,
		APIKey:   cfg.DefaultLLM.APIKey,
		BaseURL:  cfg.DefaultLLM.BaseURL,
		Model:    cfg.DefaultLLM.Model,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create llm client", "error", err)
		os.Exit(1)
	}

	stores := store.NewStores(database)
	orchestrator := buildOrchestrator(cfg, stores)
	services := service.NewServices(stores, orchestrator, llmClient, cfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, turnProducer)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second, // advance calls may run the full engine budget
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func buildOrchestrator(cfg config.Config, stores *store.Stores) *engine.Orchestrator {
	resolver := engine.NewCompleterResolver(llm.Config{
		Provider: cfg.DefaultLLM.Provider,
		APIKey:   cfg.DefaultLLM.APIKey,
		BaseURL:  cfg.DefaultLLM.BaseURL,
		Model:    cfg.DefaultLLM.Model,
	})

	return engine.NewOrchestrator(
		stores.Discussions(),
		stores.Participants(),
		stores.Personas(),
		stores.Turns(),
		stores.Cursors(),
		engine.NewGenerator(resolver),
		engine.Limits{
			SpeechQuota:       cfg.Engine.SpeechQuota,
			MaxRounds:         cfg.Engine.MaxRounds,
			HistoryWindow:     cfg.Engine.HistoryWindow,
			MaxLoopIterations: cfg.Engine.MaxLoopIterations,
		},
	)
}

func setupRouter(cfg config.Config, services *service.Services, producer queue.Producer) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span -> Recovery catches panics -> Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, producer, httprouter.RouterConfig{
		AdminAPIKey: cfg.AdminAPIKey,
		TraceHeader: cfg.Pipeline.TraceHeaderName,
	})

	return router
}

const banner = `
██████╗  ██████╗ ██╗   ██╗███╗   ██╗██████╗ ████████╗ █████╗ ██████╗ ██╗     ███████╗
██╔══██╗██╔═══██╗██║   ██║████╗  ██║██╔══██╗╚══██╔══╝██╔══██╗██╔══██╗██║     ██╔════╝
██████╔╝██║   ██║██║   ██║██╔██╗ ██║██║  ██║   ██║   ███████║██████╔╝██║     █████╗
██╔══██╗██║   ██║██║   ██║██║╚██╗██║██║  ██║   ██║   ██╔══██║██╔══██╗██║     ██╔══╝
██║  ██║╚██████╔╝╚██████╔╝██║ ╚████║██████╔╝   ██║   ██║  ██║██████╔╝███████╗███████╗
╚═╝  ╚═╝ ╚═════╝  ╚═════╝ ╚═╝  ╚═══╝╚═════╝    ╚═╝   ╚═╝  ╚═╝╚═════╝ ╚══════╝╚══════╝
`
