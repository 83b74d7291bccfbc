// Package recommend turns a farmer's request into crop recommendations. It
// gathers weather, soil and market data concurrently, resolves the feature
// bundle, asks the prediction service and falls back to the local scorer
// when that fails, then attaches soil, weather and market analyses.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/02loveslollipop/crop-advisor/services/api/estimate"
	"github.com/02loveslollipop/crop-advisor/services/api/fallback"
	"github.com/02loveslollipop/crop-advisor/services/api/models"
	"github.com/02loveslollipop/crop-advisor/services/api/predict"
	"github.com/02loveslollipop/crop-advisor/services/api/refdata"
)

// ErrInvalidFeatures reports a feature bundle with a non-finite value.
var ErrInvalidFeatures = errors.New("invalid feature bundle")

// Defaults for optional farm-practice inputs.
const (
	DefaultFarmingMethod   = "conventional"
	DefaultIrrigationType  = "rainfed"
	DefaultExperienceYears = 5
	DefaultBudgetCategory  = "medium"
)

// WeatherSource provides current conditions and forecast.
type WeatherSource interface {
	Current(ctx context.Context, lat, lon float64) estimate.Result[models.WeatherSnapshot]
	Forecast(ctx context.Context, lat, lon float64) estimate.Result[models.Forecast]
}

// SoilSource provides a soil profile.
type SoilSource interface {
	Profile(ctx context.Context, lat, lon float64) estimate.Result[models.SoilProfile]
}

// MarketSource provides national and regional market data.
type MarketSource interface {
	Data(ctx context.Context, state string, withForecast bool) estimate.Result[models.MarketData]
	Prices(ctx context.Context, state string) estimate.Result[map[string]float64]
}

// Predictor is the external prediction service.
type Predictor interface {
	Predict(ctx context.Context, req predict.Request) (predict.Response, error)
}

// Recorder persists a recommendation.
type Recorder interface {
	SaveRecommendation(ctx context.Context, userID string, input, response, marketSnapshot any) (int64, error)
}

// SoilValues are optional measured soil values supplied by the farmer.
type SoilValues struct {
	N             *float64 `json:"N,omitempty"`
	P             *float64 `json:"P,omitempty"`
	K             *float64 `json:"K,omitempty"`
	PH            *float64 `json:"ph,omitempty"`
	Moisture      *float64 `json:"moisture,omitempty"`
	OrganicCarbon *float64 `json:"organic_carbon,omitempty"`
}

// Request is a recommendation request with the area already in hectares.
type Request struct {
	UserID          string          `json:"userId"`
	Location        models.Location `json:"location"`
	SoilType        string          `json:"soil_type"`
	AreaHa          float64         `json:"area_ha"`
	FarmingMethod   string          `json:"farming_method,omitempty"`
	IrrigationType  string          `json:"irrigation_type,omitempty"`
	PreviousCrops   []string        `json:"previous_crops,omitempty"`
	ExperienceYears *int            `json:"experience_years,omitempty"`
	BudgetCategory  string          `json:"budget_category,omitempty"`
	PreferredCrops  []string        `json:"preferred_crops,omitempty"`
	SoilValues      SoilValues      `json:"soil_values"`
}

// Recommendation is a scored crop with its market summary.
type Recommendation struct {
	models.CropRecommendation
	MarketInsights MarketInsight `json:"market_insights"`
}

// DataSources reports where each input came from.
type DataSources struct {
	Weather    estimate.Source `json:"weather"`
	Forecast   estimate.Source `json:"forecast"`
	Soil       estimate.Source `json:"soil"`
	Market     estimate.Source `json:"market"`
	Prediction estimate.Source `json:"prediction"`
}

// Response is the full recommendation answer.
type Response struct {
	ModelVersion    string                `json:"model_version"`
	Timestamp       string                `json:"timestamp"`
	Recommendations []Recommendation      `json:"recommendations"`
	Explanation     string                `json:"explanation"`
	ShapTopFeatures []predict.ShapFeature `json:"shap_top_features"`
	WeatherAnalysis WeatherAnalysis       `json:"weather_analysis"`
	SoilAnalysis    SoilAnalysis          `json:"soil_analysis"`
	MarketAnalysis  MarketAnalysis        `json:"market_analysis"`
	Features        models.Features       `json:"features"`
	AreaHa          float64               `json:"area_ha"`
	DataSources     DataSources           `json:"data_sources"`
}

// Config bounds the outbound calls made per request.
type Config struct {
	PredictTimeout time.Duration
	PersistTimeout time.Duration
}

// Advisor orchestrates a recommendation.
type Advisor struct {
	weather   WeatherSource
	soil      SoilSource
	market    MarketSource
	predictor Predictor
	recorder  Recorder
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time

	pending sync.WaitGroup
}

// NewAdvisor wires an Advisor. recorder may be nil to skip persistence.
func NewAdvisor(cfg Config, w WeatherSource, s SoilSource, m MarketSource, p Predictor, r Recorder, logger *slog.Logger) *Advisor {
	if cfg.PredictTimeout <= 0 {
		cfg.PredictTimeout = 10 * time.Second
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Advisor{
		weather:   w,
		soil:      s,
		market:    m,
		predictor: p,
		recorder:  r,
		cfg:       cfg,
		logger:    logger.With("component", "recommend"),
		now:       time.Now,
	}
}

type gathered struct {
	current  estimate.Result[models.WeatherSnapshot]
	forecast estimate.Result[models.Forecast]
	market   estimate.Result[models.MarketData]
	regional estimate.Result[map[string]float64]
	soil     estimate.Result[models.SoilProfile]
}

// Recommend runs the full pipeline. It fails only on an invalid feature
// bundle; every upstream failure is absorbed by a fallback.
func (a *Advisor) Recommend(ctx context.Context, req Request) (Response, error) {
	in := a.gather(ctx, req.Location)

	features := ResolveFeatures(req, in.soil.Data, in.current.Data)
	if err := Validate(features); err != nil {
		return Response{}, err
	}

	snapshot := marketSnapshot(in.market.Data.Prices, in.regional.Data)
	prediction, predSource := a.predict(ctx, predict.Request{
		Location:       req.Location,
		Features:       features,
		MarketSnapshot: snapshot,
		WeatherData: predict.WeatherData{
			Temperature:    in.current.Data.Temperature,
			Humidity:       in.current.Data.Humidity,
			Rainfall:       in.current.Data.Rainfall,
			WindSpeed:      in.current.Data.WindSpeed,
			SolarRadiation: in.current.Data.SolarRadiation,
			Pressure:       in.current.Data.Pressure,
		},
		ForecastData: predict.ForecastData{
			DailyForecast:   in.forecast.Data.Days,
			SeasonalOutlook: in.forecast.Data.SeasonalOutlook,
		},
	}, features)

	recs := make([]Recommendation, 0, len(prediction.Recommendations))
	for _, r := range prediction.Recommendations {
		recs = append(recs, Recommendation{
			CropRecommendation: r,
			MarketInsights:     InsightFor(r.Crop, in.regional.Data, in.market.Data),
		})
	}

	resp := Response{
		ModelVersion:    prediction.ModelVersion,
		Timestamp:       prediction.Timestamp,
		Recommendations: recs,
		Explanation:     prediction.Explanation,
		ShapTopFeatures: prediction.ShapTopFeatures,
		WeatherAnalysis: AnalyzeWeather(in.current.Data, in.forecast.Data),
		SoilAnalysis:    AnalyzeSoil(features),
		MarketAnalysis:  AnalyzeMarket(in.regional.Data, in.market.Data),
		Features:        features,
		AreaHa:          req.AreaHa,
		DataSources: DataSources{
			Weather:    in.current.Source(),
			Forecast:   in.forecast.Source(),
			Soil:       in.soil.Source(),
			Market:     in.regional.Source(),
			Prediction: predSource,
		},
	}

	a.persist(ctx, req, resp, map[string]any{
		"regional_prices": in.regional.Data,
		"market_data":     in.market.Data,
	})
	return resp, nil
}

// Wait blocks until in-flight persistence writes finish.
func (a *Advisor) Wait() {
	a.pending.Wait()
}

func (a *Advisor) gather(ctx context.Context, loc models.Location) gathered {
	var (
		in gathered
		g  errgroup.Group
	)
	g.Go(func() error {
		in.current = a.weather.Current(ctx, loc.Lat, loc.Lon)
		return nil
	})
	g.Go(func() error {
		in.forecast = a.weather.Forecast(ctx, loc.Lat, loc.Lon)
		return nil
	})
	g.Go(func() error {
		in.market = a.market.Data(ctx, "", false)
		return nil
	})
	g.Go(func() error {
		in.regional = a.market.Prices(ctx, loc.State)
		return nil
	})
	g.Go(func() error {
		in.soil = a.soil.Profile(ctx, loc.Lat, loc.Lon)
		return nil
	})
	_ = g.Wait()
	return in
}

func (a *Advisor) predict(ctx context.Context, req predict.Request, f models.Features) (predict.Response, estimate.Source) {
	if a.predictor != nil {
		pctx, cancel := context.WithTimeout(ctx, a.cfg.PredictTimeout)
		defer cancel()

		resp, err := a.predictor.Predict(pctx, req)
		if err == nil {
			return resp, estimate.Source{Provenance: estimate.Live}
		}
		a.logger.Warn("prediction service unavailable, using fallback scorer", "error", err)
		return a.fallback(f), estimate.Source{Provenance: estimate.Estimated, Reason: err.Error()}
	}
	return a.fallback(f), estimate.Source{Provenance: estimate.Estimated, Reason: "prediction service not configured"}
}

func (a *Advisor) fallback(f models.Features) predict.Response {
	return fallback.Response(fallback.Inputs{
		Temperature: f.Temperature,
		Rainfall:    f.Rainfall,
		PH:          f.PH,
		Nitrogen:    f.Nitrogen,
		Phosphorus:  f.Phosphorus,
		AreaHa:      f.AreaHa,
	}, f.SoilType, a.now())
}

func (a *Advisor) persist(ctx context.Context, req Request, resp Response, snapshot map[string]any) {
	if a.recorder == nil {
		return
	}
	// The write outlives the request; only the persist timeout bounds it.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.PersistTimeout)
	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		defer cancel()
		id, err := a.recorder.SaveRecommendation(pctx, req.UserID, req, resp, snapshot)
		if err != nil {
			a.logger.Error("failed to save recommendation", "user_id", req.UserID, "error", err)
			return
		}
		a.logger.Debug("recommendation saved", "id", id, "user_id", req.UserID)
	}()
}

// ResolveFeatures merges the request with fetched data. Each soil value is
// taken from the farmer, else from a live soil measurement, else from the
// soil-type table; moisture has no soil-grid source. Estimated soil values
// are skipped: the soil-type table is the better guess for the field the
// farmer described than a location-only estimate.
func ResolveFeatures(req Request, soil models.SoilProfile, w models.WeatherSnapshot) models.Features {
	defaults, _ := refdata.SoilDefaults(req.SoilType)

	pick := func(user *float64, key string, def float64) float64 {
		if user != nil {
			return *user
		}
		if p, ok := soil[key]; ok && p.Source == string(estimate.Live) {
			return p.Mean
		}
		return def
	}

	f := models.Features{
		Nitrogen:       pick(req.SoilValues.N, models.SoilNitrogen, defaults.Nitrogen),
		Phosphorus:     pick(req.SoilValues.P, models.SoilPhosphorus, defaults.Phosphorus),
		Potassium:      pick(req.SoilValues.K, models.SoilPotassium, defaults.Potassium),
		PH:             pick(req.SoilValues.PH, models.SoilPH, defaults.PH),
		Moisture:       defaults.Moisture,
		OrganicCarbon:  pick(req.SoilValues.OrganicCarbon, models.SoilOrganicCarbon, defaults.OrganicCarbon),
		Temperature:    w.Temperature,
		Humidity:       w.Humidity,
		Rainfall:       w.Rainfall,
		WindSpeed:      w.WindSpeed,
		SolarRadiation: w.SolarRadiation,
		SoilType:       req.SoilType,
		FarmingMethod:  orDefault(req.FarmingMethod, DefaultFarmingMethod),
		IrrigationType: orDefault(req.IrrigationType, DefaultIrrigationType),
		PreviousCrops:  nonNil(req.PreviousCrops),
		ExperienceYrs:  DefaultExperienceYears,
		BudgetCategory: orDefault(req.BudgetCategory, DefaultBudgetCategory),
		PreferredCrops: nonNil(req.PreferredCrops),
		AreaHa:         req.AreaHa,
	}
	if req.SoilValues.Moisture != nil {
		f.Moisture = *req.SoilValues.Moisture
	}
	if req.ExperienceYears != nil {
		f.ExperienceYrs = *req.ExperienceYears
	}
	return f
}

// Validate rejects bundles containing NaN or infinite values.
func Validate(f models.Features) error {
	var bad []string
	for name, v := range f.Numeric() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			bad = append(bad, name)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return fmt.Errorf("%w: non-finite %s", ErrInvalidFeatures, strings.Join(bad, ", "))
	}
	return nil
}

// marketSnapshot overlays regional prices on national ones.
func marketSnapshot(national, regional map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(national)+len(regional))
	for k, v := range national {
		out[k] = v
	}
	for k, v := range regional {
		out[k] = v
	}
	return out
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
