package market

import (
	"math"

	"github.com/02loveslollipop/crop-advisor/services/api/estimate"
	"github.com/02loveslollipop/crop-advisor/services/api/models"
)

// Trends draws a price change in [-10, +10) percent and an independent
// demand level for each crop.
func Trends(r estimate.Rand, crops []string) map[string]models.Trend {
	out := make(map[string]models.Trend, len(crops))
	for _, crop := range crops {
		change := estimate.Round((r.Float64()-0.5)*20, 2)
		out[crop] = models.Trend{
			ChangePercent: change,
			Trend:         Classify(change),
			DemandLevel:   Demand(r.Float64()),
		}
	}
	return out
}

// Classify maps a change percentage to rising, falling or stable.
func Classify(change float64) string {
	switch {
	case change > 2:
		return models.TrendRising
	case change < -2:
		return models.TrendFalling
	default:
		return models.TrendStable
	}
}

// Demand maps a uniform draw to a demand level.
func Demand(draw float64) string {
	switch {
	case draw >= 0.6:
		return models.DemandHigh
	case draw >= 0.18:
		return models.DemandMedium
	default:
		return models.DemandLow
	}
}

// Forecast extrapolates each price a week and a month ahead from its trend.
func Forecast(prices map[string]float64, trends map[string]models.Trend) map[string]models.PriceForecast {
	out := make(map[string]models.PriceForecast, len(prices))
	for crop, price := range prices {
		t, ok := trends[crop]
		if !ok {
			t = models.Trend{Trend: models.TrendStable}
		}
		out[crop] = models.PriceForecast{
			Current:   price,
			NextWeek:  math.Round(price * (1 + 0.3*t.ChangePercent/100)),
			NextMonth: math.Round(price * (1 + 1.2*t.ChangePercent/100)),
			Outlook:   outlook(t.Trend),
		}
	}
	return out
}

func outlook(trend string) string {
	switch trend {
	case models.TrendRising:
		return "bullish"
	case models.TrendFalling:
		return "bearish"
	default:
		return "stable"
	}
}
