// Package fallback scores crops with fixed agronomic rules when the
// prediction service cannot be reached.
package fallback

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/02loveslollipop/crop-advisor/services/api/models"
	"github.com/02loveslollipop/crop-advisor/services/api/predict"
)

// ModelVersion tags responses produced by this package.
const ModelVersion = "fallback_v1.0"

// MaxRecommendations caps the scored list.
const MaxRecommendations = 3

// Inputs are the values the rules look at.
type Inputs struct {
	Temperature float64
	Rainfall    float64
	PH          float64
	Nitrogen    float64
	Phosphorus  float64
	AreaHa      float64
}

type rule struct {
	crop    string
	score   float64
	applies func(Inputs) bool
	yield   func(Inputs) float64
	profit  float64
	sustain float64
	conf    float64
	risk    string
	season  string
	water   string
	demand  string
}

var rules = []rule{
	{
		crop:    "Rice",
		score:   0.85,
		applies: func(in Inputs) bool { return in.Rainfall > 80 && in.PH >= 5.5 && in.PH <= 7.0 },
		yield:   func(in Inputs) float64 { return 4000 + (in.Nitrogen/10)*100 + (in.Rainfall/10)*20 },
		profit:  45000, sustain: 0.7, conf: 0.8,
		risk: "Low", season: "Kharif", water: "High", demand: "High",
	},
	{
		crop:    "Wheat",
		score:   0.78,
		applies: func(in Inputs) bool { return in.Temperature < 28 && in.Rainfall < 100 && in.PH >= 6.0 },
		yield:   func(in Inputs) float64 { return 3200 + (in.Nitrogen/15)*100 },
		profit:  38000, sustain: 0.8, conf: 0.75,
		risk: "Low", season: "Rabi", water: "Medium", demand: "High",
	},
	{
		crop:    "Maize",
		score:   0.72,
		applies: func(in Inputs) bool { return in.Temperature >= 20 && in.Temperature <= 30 },
		yield:   func(in Inputs) float64 { return 4000 + (in.Nitrogen/12)*80 },
		profit:  35000, sustain: 0.75, conf: 0.7,
		risk: "Medium", season: "Kharif", water: "Medium", demand: "Medium",
	},
	{
		crop:    "Soybean",
		score:   0.76,
		applies: func(in Inputs) bool { return in.PH >= 6.0 && in.PH <= 7.0 && in.Rainfall >= 60 },
		yield:   func(in Inputs) float64 { return 2200 + (in.Phosphorus/5)*50 },
		profit:  42000, sustain: 0.95, conf: 0.72,
		risk: "Medium", season: "Kharif", water: "Medium", demand: "Medium",
	},
}

// Score applies every rule and returns at most MaxRecommendations crops,
// highest score first. An empty slice is a valid result.
func Score(in Inputs) []models.CropRecommendation {
	out := make([]models.CropRecommendation, 0, len(rules))
	for _, r := range rules {
		if !r.applies(in) {
			continue
		}
		out = append(out, models.CropRecommendation{
			Crop:                  r.crop,
			Score:                 r.score,
			PredictedYieldKgPerHa: math.Round(r.yield(in)),
			EstimatedProfitINR:    math.Round(r.profit * in.AreaHa),
			SustainabilityScore:   r.sustain,
			Confidence:            r.conf,
			RiskLevel:             r.risk,
			SeasonSuitability:     r.season,
			WaterRequirement:      r.water,
			MarketDemand:          r.demand,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > MaxRecommendations {
		out = out[:MaxRecommendations]
	}
	return out
}

// Response wraps Score in the prediction service's response shape.
func Response(in Inputs, soilType string, now time.Time) predict.Response {
	return predict.Response{
		ModelVersion:    ModelVersion,
		Timestamp:       now.UTC().Format(time.RFC3339),
		Recommendations: Score(in),
		Explanation: fmt.Sprintf(
			"Based on your %s soil (pH: %s), temperature of %s°C, and %smm rainfall, these crops are recommended for your %s hectare farm.",
			soilType, num(in.PH), num(in.Temperature), num(in.Rainfall), num(in.AreaHa)),
		ShapTopFeatures: []predict.ShapFeature{
			{Feature: "temperature", Impact: 0.3},
			{Feature: "ph", Impact: 0.25},
			{Feature: "rainfall", Impact: 0.2},
		},
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
