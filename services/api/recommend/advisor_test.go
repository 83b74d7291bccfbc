package recommend

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/02loveslollipop/crop-advisor/services/api/estimate"
	"github.com/02loveslollipop/crop-advisor/services/api/market"
	"github.com/02loveslollipop/crop-advisor/services/api/models"
	"github.com/02loveslollipop/crop-advisor/services/api/predict"
	"github.com/02loveslollipop/crop-advisor/services/api/refdata"
	"github.com/02loveslollipop/crop-advisor/services/api/weather"
)

func ptr[T any](v T) *T { return &v }

type stubWeather struct {
	current models.WeatherSnapshot
}

func (s stubWeather) Current(context.Context, float64, float64) estimate.Result[models.WeatherSnapshot] {
	return estimate.LiveResult(s.current)
}

func (s stubWeather) Forecast(context.Context, float64, float64) estimate.Result[models.Forecast] {
	return estimate.LiveResult(models.Forecast{Days: []models.ForecastDay{}, SeasonalOutlook: "steady"})
}

type stubSoil struct {
	profile models.SoilProfile
	live    bool
}

func (s stubSoil) Profile(context.Context, float64, float64) estimate.Result[models.SoilProfile] {
	if s.live {
		return estimate.LiveResult(s.profile)
	}
	return estimate.Degraded(s.profile, "soilgrids unreachable")
}

type stubMarket struct{}

func (stubMarket) Data(context.Context, string, bool) estimate.Result[models.MarketData] {
	return estimate.LiveResult(models.MarketData{
		Prices: map[string]float64{"Rice": 2500, "Maize": 2100},
		MSP:    map[string]float64{"Rice": 2300, "Maize": 2090},
		Trends: map[string]models.Trend{"Rice": {ChangePercent: 4, Trend: "rising", DemandLevel: "high"}},
	})
}

func (stubMarket) Prices(context.Context, string) estimate.Result[map[string]float64] {
	return estimate.LiveResult(map[string]float64{"Rice": 2600})
}

type stubPredictor struct {
	resp predict.Response
	err  error
	got  predict.Request
}

func (p *stubPredictor) Predict(_ context.Context, req predict.Request) (predict.Response, error) {
	p.got = req
	return p.resp, p.err
}

type stubRecorder struct {
	mu    sync.Mutex
	err   error
	saved []string
}

func (r *stubRecorder) SaveRecommendation(_ context.Context, userID string, _, _, _ any) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, userID)
	return int64(len(r.saved)), r.err
}

func fixedNow(a *Advisor) *Advisor {
	a.now = func() time.Time { return time.Date(2024, time.July, 10, 6, 0, 0, 0, time.UTC) }
	return a
}

func TestResolveFeaturesPrecedence(t *testing.T) {
	soil := models.SoilProfile{
		models.SoilPH:            {Mean: 7.1, Source: string(estimate.Live)},
		models.SoilNitrogen:      {Mean: 33, Source: string(estimate.Live)},
		models.SoilPhosphorus:    {Mean: 99, Source: string(estimate.Estimated)},
		models.SoilOrganicCarbon: {Mean: 0.9, Source: string(estimate.Live)},
	}
	req := Request{
		SoilType:   "Clayey",
		AreaHa:     2,
		SoilValues: SoilValues{PH: ptr(6.2)},
	}

	f := ResolveFeatures(req, soil, models.WeatherSnapshot{Temperature: 25})
	if f.PH != 6.2 {
		t.Errorf("user pH should win, got %v", f.PH)
	}
	if f.Nitrogen != 33 {
		t.Errorf("live nitrogen should win over default, got %v", f.Nitrogen)
	}
	clay, _ := refdata.SoilDefaults("Clayey")
	if f.Phosphorus != clay.Phosphorus {
		t.Errorf("estimated phosphorus must not be used, got %v want %v", f.Phosphorus, clay.Phosphorus)
	}
	if f.Potassium != clay.Potassium || f.Moisture != clay.Moisture {
		t.Errorf("missing values should come from soil defaults: %+v", f)
	}
	if f.OrganicCarbon != 0.9 {
		t.Errorf("organic carbon = %v", f.OrganicCarbon)
	}
	if f.FarmingMethod != DefaultFarmingMethod || f.IrrigationType != DefaultIrrigationType ||
		f.BudgetCategory != DefaultBudgetCategory || f.ExperienceYrs != DefaultExperienceYears {
		t.Errorf("practice defaults not applied: %+v", f)
	}
	if f.PreviousCrops == nil || f.PreferredCrops == nil {
		t.Error("crop lists must be non-nil")
	}
	if f.Temperature != 25 || f.AreaHa != 2 {
		t.Errorf("weather or area not carried: %+v", f)
	}
}

func TestResolveFeaturesExperienceZeroKept(t *testing.T) {
	f := ResolveFeatures(Request{ExperienceYears: ptr(0), SoilValues: SoilValues{Moisture: ptr(12.5)}}, nil, models.WeatherSnapshot{})
	if f.ExperienceYrs != 0 || f.Moisture != 12.5 {
		t.Fatalf("explicit values overridden: %+v", f)
	}
}

func TestValidateRejectsNonFinite(t *testing.T) {
	f := models.Features{PH: math.NaN(), Rainfall: math.Inf(1)}
	err := Validate(f)
	if !errors.Is(err, ErrInvalidFeatures) {
		t.Fatalf("expected ErrInvalidFeatures, got %v", err)
	}
	if !strings.Contains(err.Error(), "ph, rainfall") {
		t.Fatalf("error should name fields in order: %v", err)
	}
	if err := Validate(models.Features{PH: 6.5}); err != nil {
		t.Fatalf("finite bundle rejected: %v", err)
	}
}

func TestRecommendUsesPrediction(t *testing.T) {
	p := &stubPredictor{resp: predict.Response{
		ModelVersion: "rf_v2",
		Timestamp:    "2024-07-10T06:00:00Z",
		Recommendations: []models.CropRecommendation{
			{Crop: "Rice", Score: 0.9},
			{Crop: "Quinoa", Score: 0.4},
		},
	}}
	rec := &stubRecorder{}
	a := NewAdvisor(Config{}, stubWeather{current: models.WeatherSnapshot{Temperature: 27, Humidity: 70, Rainfall: 120}},
		stubSoil{profile: models.SoilProfile{}, live: true}, stubMarket{}, p, rec, nil)

	resp, err := a.Recommend(context.Background(), Request{
		UserID:   "farmer-1",
		Location: models.Location{Lat: 20.3, Lon: 85.8, State: "Odisha"},
		SoilType: "Loamy",
		AreaHa:   1.5,
	})
	if err != nil {
		t.Fatal(err)
	}
	a.Wait()

	if resp.ModelVersion != "rf_v2" || resp.DataSources.Prediction.Provenance != estimate.Live {
		t.Fatalf("prediction not used: %+v", resp.DataSources)
	}
	if len(resp.Recommendations) != 2 {
		t.Fatalf("recommendations = %d", len(resp.Recommendations))
	}
	rice := resp.Recommendations[0].MarketInsights
	if rice.CurrentPrice != 2600 || rice.MSPPrice != 2300 || rice.PriceTrend != "rising" {
		t.Fatalf("regional insight not attached: %+v", rice)
	}
	quinoa := resp.Recommendations[1].MarketInsights
	if quinoa.PriceTrend != "stable" || quinoa.DemandLevel != "medium" {
		t.Fatalf("unknown crop insight: %+v", quinoa)
	}
	if p.got.MarketSnapshot["Rice"] != 2600 || p.got.MarketSnapshot["Maize"] != 2100 {
		t.Fatalf("snapshot should overlay regional prices: %v", p.got.MarketSnapshot)
	}
	if p.got.WeatherData.Rainfall != 120 {
		t.Fatalf("weather not forwarded: %+v", p.got.WeatherData)
	}
	if resp.WeatherAnalysis.SuitabilityScore != 100 {
		t.Fatalf("suitability = %v", resp.WeatherAnalysis.SuitabilityScore)
	}
	if len(rec.saved) != 1 || rec.saved[0] != "farmer-1" {
		t.Fatalf("recorder calls = %v", rec.saved)
	}
}

func TestRecommendDelhiFallback(t *testing.T) {
	w := weather.New(weather.Config{}, nil, estimate.NoJitter, nil)
	m := market.New(estimate.NoJitter, nil)
	p := &stubPredictor{err: errors.New("connection refused")}

	a := fixedNow(NewAdvisor(Config{PredictTimeout: time.Second}, w, stubSoil{profile: models.SoilProfile{}}, m, p, nil, nil))

	resp, err := a.Recommend(context.Background(), Request{
		UserID:   "anonymous",
		Location: models.Location{Lat: 28.6139, Lon: 77.2090, State: "Delhi"},
		SoilType: "Sandy",
		AreaHa:   estimate.AcresToHectares(5),
		SoilValues: SoilValues{
			PH: ptr(8.2), N: ptr(20.0), P: ptr(10.0), K: ptr(60.0), OrganicCarbon: ptr(0.3),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(resp.ModelVersion, "fallback") {
		t.Fatalf("model version = %q", resp.ModelVersion)
	}
	if resp.DataSources.Prediction.Provenance != estimate.Estimated || resp.DataSources.Prediction.Reason != "connection refused" {
		t.Fatalf("prediction source = %+v", resp.DataSources.Prediction)
	}
	if resp.DataSources.Weather.Provenance != estimate.Estimated {
		t.Fatalf("weather without a key should be estimated: %+v", resp.DataSources.Weather)
	}
	if math.Abs(resp.AreaHa-2.02343) > 1e-4 {
		t.Fatalf("area = %v", resp.AreaHa)
	}
	if len(resp.Recommendations) > 3 {
		t.Fatalf("too many recommendations: %d", len(resp.Recommendations))
	}
	for _, r := range resp.Recommendations {
		if r.Crop == "" || r.Score <= 0 || r.PredictedYieldKgPerHa <= 0 || r.EstimatedProfitINR <= 0 ||
			r.RiskLevel == "" || r.SeasonSuitability == "" || r.WaterRequirement == "" || r.MarketDemand == "" {
			t.Fatalf("incomplete recommendation %+v", r)
		}
	}
	if len(resp.ShapTopFeatures) != 3 || resp.Explanation == "" {
		t.Fatalf("fallback explanation missing: %+v", resp)
	}
	if resp.Timestamp != "2024-07-10T06:00:00Z" {
		t.Fatalf("timestamp = %s", resp.Timestamp)
	}
	if resp.Features.PH != 8.2 || resp.SoilAnalysis.HealthScore != 30 {
		t.Fatalf("soil analysis = %+v", resp.SoilAnalysis)
	}
	if resp.MarketAnalysis.MarketSentiment == "" || len(resp.MarketAnalysis.PriceTrends) == 0 {
		t.Fatalf("market analysis missing: %+v", resp.MarketAnalysis)
	}
}

func TestRecommendWithoutPredictor(t *testing.T) {
	a := fixedNow(NewAdvisor(Config{}, stubWeather{}, stubSoil{}, stubMarket{}, nil, nil, nil))
	resp, err := a.Recommend(context.Background(), Request{SoilType: "Loamy", AreaHa: 1})
	if err != nil {
		t.Fatal(err)
	}
	if resp.ModelVersion != "fallback_v1.0" || resp.DataSources.Prediction.Reason != "prediction service not configured" {
		t.Fatalf("unexpected response %+v", resp.DataSources.Prediction)
	}
}

func TestRecommendSurvivesRecorderFailure(t *testing.T) {
	rec := &stubRecorder{err: errors.New("db down")}
	a := fixedNow(NewAdvisor(Config{}, stubWeather{}, stubSoil{}, stubMarket{}, nil, rec, nil))

	resp, err := a.Recommend(context.Background(), Request{UserID: "u1", SoilType: "Loamy", AreaHa: 1})
	if err != nil {
		t.Fatalf("persistence failure leaked into response: %v", err)
	}
	a.Wait()
	if resp.ModelVersion == "" || len(rec.saved) != 1 {
		t.Fatalf("expected one save attempt, got %v", rec.saved)
	}
}

func TestRecommendPersistsAfterCancel(t *testing.T) {
	rec := &stubRecorder{}
	a := fixedNow(NewAdvisor(Config{}, stubWeather{}, stubSoil{}, stubMarket{}, nil, rec, nil))

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := a.Recommend(ctx, Request{UserID: "u2", SoilType: "Loamy", AreaHa: 1}); err != nil {
		t.Fatal(err)
	}
	cancel()
	a.Wait()
	if len(rec.saved) != 1 {
		t.Fatalf("save not completed: %v", rec.saved)
	}
}

func TestRecommendInvalidFeatures(t *testing.T) {
	rec := &stubRecorder{}
	a := NewAdvisor(Config{}, stubWeather{}, stubSoil{}, stubMarket{}, nil, rec, nil)
	_, err := a.Recommend(context.Background(), Request{AreaHa: 1, SoilValues: SoilValues{PH: ptr(math.NaN())}})
	if !errors.Is(err, ErrInvalidFeatures) {
		t.Fatalf("expected ErrInvalidFeatures, got %v", err)
	}
	a.Wait()
	if len(rec.saved) != 0 {
		t.Fatal("invalid request must not be persisted")
	}
}
