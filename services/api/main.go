package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/02loveslollipop/crop-advisor/services/api/cache"
	"github.com/02loveslollipop/crop-advisor/services/api/config"
	"github.com/02loveslollipop/crop-advisor/services/api/db"
	"github.com/02loveslollipop/crop-advisor/services/api/estimate"
	httpserver "github.com/02loveslollipop/crop-advisor/services/api/http"
	"github.com/02loveslollipop/crop-advisor/services/api/market"
	"github.com/02loveslollipop/crop-advisor/services/api/predict"
	"github.com/02loveslollipop/crop-advisor/services/api/recommend"
	"github.com/02loveslollipop/crop-advisor/services/api/soil"
	"github.com/02loveslollipop/crop-advisor/services/api/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connection error: %v", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("db migration error: %v", err)
	}

	var c cache.Cache = cache.Noop{}
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, "crop-advisor:")
		if err != nil {
			logger.Warn("redis unavailable, caching disabled", "error", err)
		} else {
			c = rc
		}
	}
	defer c.Close()

	weatherAgg := weather.New(weather.Config{
		APIKey:   cfg.OpenWeatherKey,
		BaseURL:  cfg.OpenWeatherURL,
		Timeout:  cfg.UpstreamTimeout,
		CacheTTL: cfg.CacheTTL,
	}, c, estimate.Global, logger)
	soilAgg := soil.New(cfg.SoilGridsURL, cfg.UpstreamTimeout, estimate.Global, logger)
	marketAgg := market.New(estimate.Global, logger, store)

	advisor := recommend.NewAdvisor(recommend.Config{
		PredictTimeout: cfg.MLTimeout,
		PersistTimeout: cfg.PersistTimeout,
	}, weatherAgg, soilAgg, marketAgg, predict.NewClient(cfg.MLServiceURL, cfg.MLTimeout), store, logger)
	defer advisor.Wait()

	srv := httpserver.New(cfg, httpserver.Deps{
		Store:   store,
		Advisor: advisor,
		Weather: weatherAgg,
		Soil:    soilAgg,
		Market:  marketAgg,
		Logger:  logger,
	})
	logger.Info("REST API listening", "addr", cfg.ListenAddr())

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
