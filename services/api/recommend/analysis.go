package recommend

import (
	"fmt"
	"math"

	"github.com/02loveslollipop/crop-advisor/services/api/estimate"
	"github.com/02loveslollipop/crop-advisor/services/api/models"
)

// SoilAnalysis summarises soil health on a 0-100 scale.
type SoilAnalysis struct {
	HealthScore     float64  `json:"health_score"`
	NutrientStatus  string   `json:"nutrient_status"`
	Recommendations []string `json:"recommendations"`
}

// WeatherAnalysis scores current conditions for general cropping.
type WeatherAnalysis struct {
	CurrentConditions models.WeatherSnapshot `json:"current_conditions"`
	SeasonalForecast  models.Forecast        `json:"seasonal_forecast"`
	SuitabilityScore  float64                `json:"suitability_score"`
}

// CropMarket compares one crop's price with its MSP.
type CropMarket struct {
	CurrentPrice      float64 `json:"current_price"`
	MSPPrice          float64 `json:"msp_price"`
	PriceAboveMSP     bool    `json:"price_above_msp"`
	MSPPremiumPercent float64 `json:"msp_premium_percent"`
	Trend             string  `json:"trend"`
	Demand            string  `json:"demand"`
}

// MarketAnalysis is the regional market view attached to a recommendation.
type MarketAnalysis struct {
	PriceTrends     map[string]CropMarket `json:"price_trends"`
	MarketSentiment string                `json:"market_sentiment"`
	AveragePrice    float64               `json:"average_price"`
	CropsAboveMSP   int                   `json:"crops_above_msp"`
	DemandForecast  string                `json:"demand_forecast"`
}

// MarketInsight is the per-recommendation market summary.
type MarketInsight struct {
	CurrentPrice       float64 `json:"current_price"`
	MSPPrice           float64 `json:"msp_price"`
	PriceTrend         string  `json:"price_trend"`
	DemandLevel        string  `json:"demand_level"`
	PriceChangePercent float64 `json:"price_change_percent"`
}

func level(v, high, medium float64) string {
	switch {
	case v > high:
		return "High"
	case v > medium:
		return "Medium"
	default:
		return "Low"
	}
}

// AnalyzeSoil scores pH and N/P/K and suggests amendments. The score never
// leaves [0, 100].
func AnalyzeSoil(f models.Features) SoilAnalysis {
	score := 0.0
	recs := make([]string, 0)

	switch {
	case f.PH >= 6.0 && f.PH <= 7.5:
		score += 25
	case f.PH < 6.0:
		score += 10
		recs = append(recs, "Consider lime application to increase soil pH")
	default:
		score += 15
		recs = append(recs, "Soil is alkaline, consider sulfur application")
	}

	n := level(f.Nitrogen, 40, 20)
	p := level(f.Phosphorus, 20, 10)
	k := level(f.Potassium, 100, 50)
	for _, nutrient := range []struct{ name, status string }{
		{"nitrogen", n}, {"phosphorus", p}, {"potassium", k},
	} {
		switch nutrient.status {
		case "High":
			score += 25
		case "Medium":
			score += 15
		default:
			recs = append(recs, fmt.Sprintf("Consider %s fertilizer application", nutrient.name))
		}
	}

	if f.OrganicCarbon > 0.75 {
		recs = append(recs, "Excellent organic matter content")
	} else {
		recs = append(recs, "Consider adding organic matter (compost, crop residues)")
	}

	return SoilAnalysis{
		HealthScore:     math.Max(0, math.Min(100, score)),
		NutrientStatus:  fmt.Sprintf("N: %s, P: %s, K: %s", n, p, k),
		Recommendations: recs,
	}
}

// AnalyzeWeather scores temperature, rainfall and humidity bands.
func AnalyzeWeather(w models.WeatherSnapshot, f models.Forecast) WeatherAnalysis {
	score := 0.0

	if w.Temperature >= 20 && w.Temperature <= 35 {
		score += 40
	} else {
		score += 20
	}

	switch {
	case w.Rainfall >= 50 && w.Rainfall <= 200:
		score += 30
	case w.Rainfall < 50:
		score += 10
	default:
		score += 20
	}

	if w.Humidity >= 50 && w.Humidity <= 80 {
		score += 30
	} else {
		score += 15
	}

	return WeatherAnalysis{CurrentConditions: w, SeasonalForecast: f, SuitabilityScore: score}
}

// AnalyzeMarket compares regional prices with MSP and derives sentiment from
// the share of rising trends.
func AnalyzeMarket(regional map[string]float64, data models.MarketData) MarketAnalysis {
	trends := make(map[string]CropMarket, len(regional))
	sum, above := 0.0, 0
	for crop, price := range regional {
		sum += price
		msp := data.MSP[crop]
		t := trendOf(data, crop)
		cm := CropMarket{
			CurrentPrice:  price,
			MSPPrice:      msp,
			PriceAboveMSP: price > msp,
			Trend:         t.Trend,
			Demand:        t.DemandLevel,
		}
		if msp > 0 {
			cm.MSPPremiumPercent = estimate.Round((price-msp)/msp*100, 1)
		}
		if cm.PriceAboveMSP {
			above++
		}
		trends[crop] = cm
	}

	avg := 0.0
	if len(regional) > 0 {
		avg = sum / float64(len(regional))
	}

	sentiment := "Neutral"
	if len(data.Trends) > 0 {
		rising := 0
		for _, t := range data.Trends {
			if t.Trend == models.TrendRising {
				rising++
			}
		}
		share := float64(rising) / float64(len(data.Trends))
		switch {
		case share > 0.6:
			sentiment = "Bullish"
		case share < 0.4:
			sentiment = "Bearish"
		}
	}

	forecast := "Cautious market conditions, focus on cost efficiency"
	switch {
	case avg > 3500:
		forecast = "Strong demand expected across commodities"
	case avg > 2500:
		forecast = "Moderate demand with selective opportunities"
	}

	return MarketAnalysis{
		PriceTrends:     trends,
		MarketSentiment: sentiment,
		AveragePrice:    math.Round(avg),
		CropsAboveMSP:   above,
		DemandForecast:  forecast,
	}
}

// InsightFor builds the market summary for a recommended crop. Crops absent
// from the market data read as stable, medium demand and no change.
func InsightFor(crop string, regional map[string]float64, data models.MarketData) MarketInsight {
	price, ok := regional[crop]
	if !ok {
		price = data.Prices[crop]
	}
	t := trendOf(data, crop)
	return MarketInsight{
		CurrentPrice:       price,
		MSPPrice:           data.MSP[crop],
		PriceTrend:         t.Trend,
		DemandLevel:        t.DemandLevel,
		PriceChangePercent: t.ChangePercent,
	}
}

func trendOf(data models.MarketData, crop string) models.Trend {
	t, ok := data.Trends[crop]
	if !ok {
		return models.Trend{Trend: models.TrendStable, DemandLevel: models.DemandMedium}
	}
	if t.Trend == "" {
		t.Trend = models.TrendStable
	}
	if t.DemandLevel == "" {
		t.DemandLevel = models.DemandMedium
	}
	return t
}
