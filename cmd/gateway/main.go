package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jdupreez/veemark-gateway/api/routes"
	"github.com/jdupreez/veemark-gateway/internal/auction"
	"github.com/jdupreez/veemark-gateway/internal/cart"
	"github.com/jdupreez/veemark-gateway/internal/negotiation"
	"github.com/jdupreez/veemark-gateway/internal/pricing"
	"github.com/jdupreez/veemark-gateway/internal/upstream"
	"github.com/jdupreez/veemark-gateway/pkg/config"
	"github.com/jdupreez/veemark-gateway/pkg/db"
	"github.com/jdupreez/veemark-gateway/pkg/logger"
	"github.com/jdupreez/veemark-gateway/pkg/metrics"
	"github.com/jdupreez/veemark-gateway/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "gateway"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "gateway",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.CartDB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap cart store", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing cart store", err)
		}
	}()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()

	pricingCfg, err := pricing.FromAppConfig(cfg.Pricing)
	if err != nil {
		logg.Error(context.Background(), "invalid pricing config", err)
		os.Exit(1)
	}
	rules := auction.FromAppConfig(cfg.Auction)

	engine, err := negotiation.NewEngine(negotiation.EngineParams{
		Rules:    rules,
		Pricing:  pricingCfg,
		Notifier: negotiation.NewLogNotifier(logg),
		Metrics:  metrics.NewNegotiationMetrics(registry),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create negotiation engine", err)
		os.Exit(1)
	}

	upstreamClient, err := upstream.NewClient(cfg.Upstream, logg, metrics.NewUpstreamMetrics(registry))
	if err != nil {
		logg.Error(context.Background(), "failed to create upstream client", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.NewRepository(dbClient.DB()), dbClient, pricingCfg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting negotiation gateway")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Deps{
			Redis:    redisClient,
			Upstream: upstreamClient,
			Engine:   engine,
			Rules:    rules,
			Pricing:  pricingCfg,
			Cart:     cartService,
			CartDB:   dbClient,
			Registry: registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "gateway server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "gateway server stopped")
}
