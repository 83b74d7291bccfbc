// Package market produces crop price quotes, trends and forecasts. Prices
// come from the first PriceSource that has data, then from a simulation over
// fixed per-crop ranges, and finally from the MSP table, which never fails.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/02loveslollipop/crop-advisor/services/api/estimate"
	"github.com/02loveslollipop/crop-advisor/services/api/models"
	"github.com/02loveslollipop/crop-advisor/services/api/refdata"
)

// PriceSource supplies recorded mandi prices (INR/quintal) per crop.
type PriceSource interface {
	LatestPrices(ctx context.Context, state string) (map[string]float64, error)
}

// Aggregator serves market data.
type Aggregator struct {
	sources []PriceSource
	rand    estimate.Rand
	logger  *slog.Logger
	now     func() time.Time
}

// New builds an Aggregator that consults sources in order.
func New(r estimate.Rand, logger *slog.Logger, sources ...PriceSource) *Aggregator {
	if r == nil {
		r = estimate.Global
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		sources: sources,
		rand:    r,
		logger:  logger.With("component", "market"),
		now:     time.Now,
	}
}

// Prices returns the current price per crop for state ("" for national).
func (a *Aggregator) Prices(ctx context.Context, state string) estimate.Result[map[string]float64] {
	if err := ctx.Err(); err != nil {
		return estimate.Degraded(refdata.MSP(), fmt.Sprintf("context done: %v", err))
	}

	for _, src := range a.sources {
		recorded, err := src.LatestPrices(ctx, state)
		if err != nil {
			a.logger.Warn("price source failed", "state", state, "error", err)
			continue
		}
		if len(recorded) == 0 {
			continue
		}
		return estimate.LiveResult(a.merge(ctx, recorded, state))
	}

	simulated, err := Simulate(ctx, a.rand, state)
	if err != nil {
		return estimate.Degraded(refdata.MSP(), err.Error())
	}
	return estimate.Degraded(simulated, "no recorded prices, simulated")
}

// merge rounds recorded prices and fills crops the source lacks by
// simulation, keeping the full crop table in every answer.
func (a *Aggregator) merge(ctx context.Context, recorded map[string]float64, state string) map[string]float64 {
	out, err := Simulate(ctx, a.rand, state)
	if err != nil {
		out = refdata.MSP()
	}
	for crop, price := range recorded {
		out[crop] = estimate.RoundTo(price, 10)
	}
	return out
}

// Data returns prices, MSP and trends for state ("" for national). The
// forecast is attached when withForecast is set.
func (a *Aggregator) Data(ctx context.Context, state string, withForecast bool) estimate.Result[models.MarketData] {
	prices := a.Prices(ctx, state)
	trends := Trends(a.rand, cropNames(prices.Data))

	data := models.MarketData{
		Prices:      prices.Data,
		MSP:         refdata.MSP(),
		Trends:      trends,
		LastUpdated: a.now().UTC(),
	}
	if withForecast {
		data.Forecast = Forecast(prices.Data, trends)
	}
	return estimate.Result[models.MarketData]{Data: data, Provenance: prices.Provenance, Reason: prices.Reason}
}

// Simulate draws a price for each reference crop from its base range, applies
// the state's factor and rounds to the nearest 10.
func Simulate(ctx context.Context, r estimate.Rand, state string) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("simulate prices: %w", err)
	}
	factor := refdata.StateFactor(state)
	crops := refdata.Crops()
	out := make(map[string]float64, len(crops))
	for _, c := range crops {
		price := c.BaseMin + r.Float64()*c.BaseSpread
		out[c.Name] = estimate.RoundTo(price*factor, 10)
	}
	return out, nil
}

// cropNames lists crops in reference-table order followed by any extra
// crops, so draws stay reproducible under a seeded source.
func cropNames(prices map[string]float64) []string {
	names := make([]string, 0, len(prices))
	seen := make(map[string]bool, len(prices))
	for _, c := range refdata.Crops() {
		if _, ok := prices[c.Name]; ok {
			names = append(names, c.Name)
			seen[c.Name] = true
		}
	}
	for name := range prices {
		if !seen[name] {
			names = append(names, name)
		}
	}
	return names
}
