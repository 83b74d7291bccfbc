// Package weather aggregates current conditions and a 7-day forecast from
// OpenWeatherMap, degrading to the regional/seasonal estimate whenever the
// provider is unconfigured or unavailable.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/02loveslollipop/crop-advisor/services/api/cache"
	"github.com/02loveslollipop/crop-advisor/services/api/estimate"
	"github.com/02loveslollipop/crop-advisor/services/api/models"
)

// DefaultBaseURL is the OpenWeatherMap API root.
const DefaultBaseURL = "https://api.openweathermap.org"

var errNoAPIKey = errors.New("weather api key not configured")

// Config configures the upstream provider.
type Config struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Aggregator serves weather for a coordinate.
type Aggregator struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	ttl     time.Duration
	client  *http.Client
	cache   cache.Cache
	rand    estimate.Rand
	logger  *slog.Logger
	now     func() time.Time
}

// New builds an Aggregator. A nil cache disables caching; a nil rand uses
// estimate.Global.
func New(cfg Config, c cache.Cache, r estimate.Rand, logger *slog.Logger) *Aggregator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if c == nil {
		c = cache.Noop{}
	}
	if r == nil {
		r = estimate.Global
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		timeout: cfg.Timeout,
		ttl:     cfg.CacheTTL,
		client:  &http.Client{Timeout: cfg.Timeout},
		cache:   c,
		rand:    r,
		logger:  logger.With("component", "weather"),
		now:     time.Now,
	}
}

// Current returns current conditions; never fails.
func (a *Aggregator) Current(ctx context.Context, lat, lon float64) estimate.Result[models.WeatherSnapshot] {
	key := cache.Key("weather:current", lat, lon)
	var cached models.WeatherSnapshot
	if a.fromCache(ctx, key, &cached) {
		return estimate.LiveResult(cached)
	}

	snap, err := a.fetchCurrent(ctx, lat, lon)
	if err != nil {
		if !errors.Is(err, errNoAPIKey) {
			a.logger.Warn("current weather unavailable, using estimate", "lat", lat, "lon", lon, "error", err)
		}
		return estimate.Degraded(estimate.Weather(a.rand, lat, lon, a.now().Month()), err.Error())
	}

	a.toCache(ctx, key, snap)
	return estimate.LiveResult(snap)
}

// Forecast returns the day-by-day forecast with outlook, alerts and farming
// recommendations; never fails.
func (a *Aggregator) Forecast(ctx context.Context, lat, lon float64) estimate.Result[models.Forecast] {
	now := a.now()

	key := cache.Key("weather:forecast", lat, lon)
	var days []models.ForecastDay
	if a.fromCache(ctx, key, &days) {
		return estimate.LiveResult(buildForecast(days, lat, now.Month()))
	}

	days, err := a.fetchForecast(ctx, lat, lon)
	if err == nil && len(days) == 0 {
		err = errors.New("forecast contained no samples")
	}
	if err != nil {
		if !errors.Is(err, errNoAPIKey) {
			a.logger.Warn("forecast unavailable, using estimate", "lat", lat, "lon", lon, "error", err)
		}
		est := estimate.ForecastDaysFrom(a.rand, lat, lon, now.UTC())
		return estimate.Degraded(buildForecast(est, lat, now.Month()), err.Error())
	}

	a.toCache(ctx, key, days)
	return estimate.LiveResult(buildForecast(days, lat, now.Month()))
}

func buildForecast(days []models.ForecastDay, lat float64, month time.Month) models.Forecast {
	alerts, recs := Insights(days, estimate.SeasonFor(month))
	return models.Forecast{
		Days:                   days,
		SeasonalOutlook:        SeasonalOutlook(lat, month),
		WeatherAlerts:          alerts,
		FarmingRecommendations: recs,
	}
}

func (a *Aggregator) fromCache(ctx context.Context, key string, out any) bool {
	raw, err := a.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			a.logger.Debug("cache read failed", "key", key, "error", err)
		}
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func (a *Aggregator) toCache(ctx context.Context, key string, v any) {
	if a.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, raw, a.ttl); err != nil {
		a.logger.Debug("cache write failed", "key", key, "error", err)
	}
}
