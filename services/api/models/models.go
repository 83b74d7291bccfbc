// Package models holds the domain types shared by the aggregators, the
// orchestrator and the HTTP layer.
package models

import "time"

// Location identifies the farm being evaluated.
type Location struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	State string  `json:"state,omitempty"`
}

// WeatherSnapshot is the current-conditions view of a coordinate.
type WeatherSnapshot struct {
	Temperature    float64 `json:"temperature"`
	Humidity       float64 `json:"humidity"`
	Rainfall       float64 `json:"rainfall"`
	WindSpeed      float64 `json:"wind_speed"`
	SolarRadiation float64 `json:"solar_radiation"`
	Pressure       float64 `json:"pressure"`
	Description    string  `json:"description"`
	FeelsLike      float64 `json:"feels_like"`
	UVIndex        float64 `json:"uv_index"`
	Visibility     float64 `json:"visibility"`
	Cloudiness     float64 `json:"cloudiness"`
}

// ForecastDay aggregates one calendar day of the forecast.
type ForecastDay struct {
	Date           string  `json:"date"`
	TemperatureMax float64 `json:"temperature_max"`
	TemperatureMin float64 `json:"temperature_min"`
	Rainfall       float64 `json:"rainfall"`
	Humidity       float64 `json:"humidity"`
	WindSpeed      float64 `json:"wind_speed"`
	Description    string  `json:"description"`
	Icon           string  `json:"weather_icon"`
}

// Forecast is the chronological day list plus derived guidance.
type Forecast struct {
	Days                   []ForecastDay `json:"forecast"`
	SeasonalOutlook        string        `json:"seasonal_outlook"`
	WeatherAlerts          []string      `json:"weather_alerts"`
	FarmingRecommendations []string      `json:"farming_recommendations"`
}

// Soil property keys.
const (
	SoilPH            = "ph"
	SoilNitrogen      = "nitrogen"
	SoilPhosphorus    = "phosphorus"
	SoilPotassium     = "potassium"
	SoilOrganicCarbon = "organic_carbon"
)

// SoilProperties lists the profile keys in query order.
var SoilProperties = []string{SoilPH, SoilNitrogen, SoilPhosphorus, SoilPotassium, SoilOrganicCarbon}

// SoilProperty is one measured or estimated soil value.
type SoilProperty struct {
	Mean        float64 `json:"mean"`
	Uncertainty float64 `json:"uncertainty"`
	Unit        string  `json:"unit"`
	Source      string  `json:"source"`
}

// SoilProfile maps a property key to its value.
type SoilProfile map[string]SoilProperty

// Trend classifications.
const (
	TrendRising  = "rising"
	TrendFalling = "falling"
	TrendStable  = "stable"

	DemandHigh   = "high"
	DemandMedium = "medium"
	DemandLow    = "low"
)

// Trend describes the short-term movement of a crop's price.
type Trend struct {
	ChangePercent float64 `json:"change_percent"`
	Trend         string  `json:"trend"`
	DemandLevel   string  `json:"demand_level"`
}

// PriceForecast extrapolates a crop price from its trend.
type PriceForecast struct {
	Current   float64 `json:"current"`
	NextWeek  float64 `json:"next_week"`
	NextMonth float64 `json:"next_month"`
	Outlook   string  `json:"outlook"`
}

// MarketData is the national market view.
type MarketData struct {
	Prices      map[string]float64       `json:"prices"`
	MSP         map[string]float64       `json:"msp"`
	Trends      map[string]Trend         `json:"trends"`
	Forecast    map[string]PriceForecast `json:"forecast,omitempty"`
	LastUpdated time.Time                `json:"last_updated"`
}

// CropRecommendation is a single scored crop.
type CropRecommendation struct {
	Crop                  string  `json:"crop"`
	Score                 float64 `json:"score"`
	PredictedYieldKgPerHa float64 `json:"predicted_yield_kg_per_ha"`
	EstimatedProfitINR    float64 `json:"estimated_profit_inr"`
	SustainabilityScore   float64 `json:"sustainability_score"`
	Confidence            float64 `json:"confidence"`
	RiskLevel             string  `json:"risk_level"`
	SeasonSuitability     string  `json:"season_suitability"`
	WaterRequirement      string  `json:"water_requirement"`
	MarketDemand          string  `json:"market_demand"`
}

// Features is the flattened feature bundle sent to the prediction service.
type Features struct {
	Nitrogen       float64  `json:"N"`
	Phosphorus     float64  `json:"P"`
	Potassium      float64  `json:"K"`
	PH             float64  `json:"ph"`
	Moisture       float64  `json:"moisture"`
	OrganicCarbon  float64  `json:"organic_carbon"`
	Temperature    float64  `json:"temperature"`
	Humidity       float64  `json:"humidity"`
	Rainfall       float64  `json:"rainfall"`
	WindSpeed      float64  `json:"wind_speed"`
	SolarRadiation float64  `json:"solar_radiation"`
	SoilType       string   `json:"soil_type"`
	FarmingMethod  string   `json:"farming_method"`
	IrrigationType string   `json:"irrigation_type"`
	PreviousCrops  []string `json:"previous_crops"`
	ExperienceYrs  int      `json:"experience_years"`
	BudgetCategory string   `json:"budget_category"`
	PreferredCrops []string `json:"preferred_crops"`
	AreaHa         float64  `json:"area_ha"`
}

// Numeric returns the numeric features by name, for finiteness checks.
func (f Features) Numeric() map[string]float64 {
	return map[string]float64{
		"N":                f.Nitrogen,
		"P":                f.Phosphorus,
		"K":                f.Potassium,
		"ph":               f.PH,
		"moisture":         f.Moisture,
		"organic_carbon":   f.OrganicCarbon,
		"temperature":      f.Temperature,
		"humidity":         f.Humidity,
		"rainfall":         f.Rainfall,
		"wind_speed":       f.WindSpeed,
		"solar_radiation":  f.SolarRadiation,
		"experience_years": float64(f.ExperienceYrs),
		"area_ha":          f.AreaHa,
	}
}
