package market

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/02loveslollipop/crop-advisor/services/api/estimate"
	"github.com/02loveslollipop/crop-advisor/services/api/models"
	"github.com/02loveslollipop/crop-advisor/services/api/refdata"
)

type stubSource struct {
	prices map[string]float64
	err    error
}

func (s stubSource) LatestPrices(context.Context, string) (map[string]float64, error) {
	return s.prices, s.err
}

func TestSimulatedPricesAreMultiplesOfTen(t *testing.T) {
	r := estimate.NewSeeded(42)
	for i := 0; i < 50; i++ {
		for _, state := range []string{"", "Punjab", "Kerala", "Nowhere"} {
			prices, err := Simulate(context.Background(), r, state)
			if err != nil {
				t.Fatal(err)
			}
			for crop, p := range prices {
				if math.Mod(p, 10) != 0 {
					t.Fatalf("%s price %v for %q is not a multiple of 10", crop, p, state)
				}
			}
		}
	}
}

func TestSimulateAppliesStateFactor(t *testing.T) {
	national, _ := Simulate(context.Background(), estimate.Fixed(0), "")
	if national["Rice"] != 2850 || national["Sugarcane"] != 350 {
		t.Fatalf("unexpected national prices %v", national)
	}
	delhi, _ := Simulate(context.Background(), estimate.Fixed(0), "Delhi")
	// 2850 × 1.08 = 3078 → 3080
	if delhi["Rice"] != 3080 {
		t.Fatalf("Delhi rice = %v", delhi["Rice"])
	}
	unknown, _ := Simulate(context.Background(), estimate.Fixed(0), "Atlantis")
	if unknown["Rice"] != national["Rice"] {
		t.Fatalf("unknown state should use factor 1.0, got %v", unknown["Rice"])
	}
}

func TestPricesFallsBackToMSPWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(estimate.NoJitter, nil).Prices(ctx, "Punjab")
	if res.IsLive() {
		t.Fatal("expected degraded result")
	}
	msp := refdata.MSP()
	for crop, p := range msp {
		if res.Data[crop] != p {
			t.Fatalf("%s = %v, want MSP %v", crop, res.Data[crop], p)
		}
	}
}

func TestPricesPrefersRecordedSource(t *testing.T) {
	a := New(estimate.Fixed(0), nil,
		stubSource{err: errors.New("db down")},
		stubSource{prices: map[string]float64{"Wheat": 2411, "Onion": 1234}},
	)
	res := a.Prices(context.Background(), "")
	if !res.IsLive() {
		t.Fatalf("expected live prices, reason=%s", res.Reason)
	}
	if res.Data["Wheat"] != 2410 || res.Data["Onion"] != 1230 {
		t.Fatalf("recorded prices not rounded: %v", res.Data)
	}
	if res.Data["Rice"] != 2850 {
		t.Fatalf("missing crop not simulated: %v", res.Data["Rice"])
	}
}

func TestPricesSimulatesWithoutSources(t *testing.T) {
	res := New(estimate.NoJitter, nil, stubSource{}).Prices(context.Background(), "")
	if res.IsLive() || res.Reason == "" {
		t.Fatalf("expected simulated prices, got %+v", res.Source())
	}
	if len(res.Data) != len(refdata.Crops()) {
		t.Fatalf("expected every crop, got %d", len(res.Data))
	}
}

func TestClassifyAndDemand(t *testing.T) {
	cases := map[float64]string{2.01: "rising", 2: "stable", -2: "stable", -2.01: "falling", 0: "stable"}
	for in, want := range cases {
		if got := Classify(in); got != want {
			t.Errorf("Classify(%v) = %s, want %s", in, got, want)
		}
	}
	demand := map[float64]string{0.6: "high", 0.99: "high", 0.59: "medium", 0.18: "medium", 0.17: "low", 0: "low"}
	for in, want := range demand {
		if got := Demand(in); got != want {
			t.Errorf("Demand(%v) = %s, want %s", in, got, want)
		}
	}
}

func TestTrendsRange(t *testing.T) {
	trends := Trends(estimate.Fixed(0.9), []string{"Rice"})
	tr := trends["Rice"]
	if tr.ChangePercent != 8 || tr.Trend != models.TrendRising || tr.DemandLevel != models.DemandHigh {
		t.Fatalf("unexpected trend %+v", tr)
	}
	low := Trends(estimate.Fixed(0), []string{"Rice"})["Rice"]
	if low.ChangePercent != -10 || low.Trend != models.TrendFalling || low.DemandLevel != models.DemandLow {
		t.Fatalf("unexpected trend %+v", low)
	}
}

func TestForecast(t *testing.T) {
	prices := map[string]float64{"Rice": 3000, "Wheat": 2000}
	trends := map[string]models.Trend{
		"Rice": {ChangePercent: 5, Trend: models.TrendRising},
	}
	f := Forecast(prices, trends)
	if got := f["Rice"]; got.NextWeek != 3045 || got.NextMonth != 3180 || got.Outlook != "bullish" {
		t.Fatalf("unexpected rice forecast %+v", got)
	}
	if got := f["Wheat"]; got.NextWeek != 2000 || got.Outlook != "stable" {
		t.Fatalf("unexpected wheat forecast %+v", got)
	}
}

func TestDataIncludesForecastOnRequest(t *testing.T) {
	a := New(estimate.NoJitter, nil)
	without := a.Data(context.Background(), "", false)
	if without.Data.Forecast != nil {
		t.Fatal("forecast attached without request")
	}
	with := a.Data(context.Background(), "", true)
	if len(with.Data.Forecast) != len(with.Data.Prices) {
		t.Fatalf("forecast size %d, prices %d", len(with.Data.Forecast), len(with.Data.Prices))
	}
	if len(with.Data.Trends) != len(with.Data.Prices) || len(with.Data.MSP) == 0 {
		t.Fatal("trends or msp missing")
	}
}

func TestNearby(t *testing.T) {
	a := New(estimate.NoJitter, nil)
	got := a.Nearby(context.Background(), 28.6139, 77.2090, 0, "Wheat")
	if len(got) != 1 || got[0].Name != "Azadpur Mandi" {
		t.Fatalf("unexpected markets %+v", got)
	}
	if got[0].DistanceKm <= 0 || got[0].DistanceKm > 15 {
		t.Fatalf("unexpected distance %v", got[0].DistanceKm)
	}
	if len(got[0].CurrentPrices) != 1 || got[0].CurrentPrices["Wheat"] == 0 {
		t.Fatalf("crop filter not applied: %v", got[0].CurrentPrices)
	}

	lower := a.Nearby(context.Background(), 28.6139, 77.2090, 0, "wheat")
	if len(lower) != 1 || lower[0].CurrentPrices["Wheat"] != got[0].CurrentPrices["Wheat"] {
		t.Fatalf("crop filter should ignore case: %+v", lower)
	}

	all := a.Nearby(context.Background(), 22, 77, 2000, "")
	if len(all) != 5 {
		t.Fatalf("expected all 5 markets, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].DistanceKm < all[i-1].DistanceKm {
			t.Fatal("markets not sorted by distance")
		}
	}
}

func TestHaversine(t *testing.T) {
	// Delhi to Mumbai is roughly 1150 km.
	d := Haversine(28.6139, 77.2090, 19.0760, 72.8777)
	if d < 1100 || d > 1200 {
		t.Fatalf("unexpected distance %v", d)
	}
	if Haversine(10, 10, 10, 10) != 0 {
		t.Fatal("zero distance expected")
	}
}
