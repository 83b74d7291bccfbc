package estimate

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/02loveslollipop/crop-advisor/services/api/models"
)

func TestRegionFor(t *testing.T) {
	cases := []struct {
		lat  float64
		want Region
	}{
		{28.6139, North},
		{28, Central},
		{20, Central},
		{19.99, South},
		{-10, South},
	}
	for _, tc := range cases {
		if got := RegionFor(tc.lat); got != tc.want {
			t.Errorf("RegionFor(%v) = %s, want %s", tc.lat, got, tc.want)
		}
	}
}

func TestSeasonFor(t *testing.T) {
	want := map[time.Month]Season{
		time.January: Winter, time.February: Winter, time.March: Baseline,
		time.May: Baseline, time.June: Monsoon, time.September: Monsoon,
		time.October: Baseline, time.November: Winter, time.December: Winter,
	}
	for m, s := range want {
		if got := SeasonFor(m); got != s {
			t.Errorf("SeasonFor(%s) = %s, want %s", m, got, s)
		}
	}
}

func TestWeatherDeterministicWithoutJitter(t *testing.T) {
	a := Weather(NoJitter, 28.6139, 77.2090, time.July)
	b := Weather(NoJitter, 28.6139, 77.2090, time.July)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("estimates differ: %+v vs %+v", a, b)
	}

	// North, monsoon: 25-2 °C, 60+10 %, 50*2 mm.
	if a.Temperature != 23 || a.Humidity != 70 || a.Rainfall != 100 {
		t.Fatalf("unexpected monsoon estimate %+v", a)
	}
	if a.Description != "Light rain" || a.Pressure != 1013 || a.FeelsLike != 23 {
		t.Fatalf("unexpected derived fields %+v", a)
	}
}

func TestWeatherWinterSouth(t *testing.T) {
	w := Weather(NoJitter, 13.08, 80.27, time.December)
	if w.Temperature != 25 || w.Humidity != 60 || math.Abs(w.Rainfall-24) > 1e-9 {
		t.Fatalf("unexpected winter estimate %+v", w)
	}
	if w.Description != "Partly cloudy" {
		t.Fatalf("description = %q", w.Description)
	}
}

func TestWeatherJitterBounds(t *testing.T) {
	for _, v := range []float64{0, 0.999999} {
		w := Weather(Fixed(v), 22, 78, time.April)
		if w.Humidity < 30 || w.Humidity > 90 {
			t.Errorf("humidity out of range: %v", w.Humidity)
		}
		if w.Rainfall < 0 {
			t.Errorf("negative rainfall: %v", w.Rainfall)
		}
		if math.Abs(w.Temperature-28) > 2 {
			t.Errorf("temperature jitter too large: %v", w.Temperature)
		}
	}
}

func TestForecastDaysFrom(t *testing.T) {
	start := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)
	days := ForecastDaysFrom(NoJitter, 28.6, 77.2, start)
	if len(days) != ForecastDays {
		t.Fatalf("expected %d days, got %d", ForecastDays, len(days))
	}
	if days[0].Date != "2024-07-01" || days[6].Date != "2024-07-07" {
		t.Fatalf("unexpected dates %s..%s", days[0].Date, days[6].Date)
	}
	d := days[0]
	if d.TemperatureMax != 25.5 || d.TemperatureMin != 15.5 || d.Rainfall != 100 {
		t.Fatalf("unexpected day %+v", d)
	}
}

func TestSoilDeterministic(t *testing.T) {
	a := Soil(NoJitter, 13, 80)
	b := Soil(NoJitter, 13, 80)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("soil estimate not reproducible")
	}
	ph := a[models.SoilPH]
	if ph.Mean != 6.5 || ph.Uncertainty != 0.3 || ph.Unit != "pH" || ph.Source != "estimated" {
		t.Fatalf("unexpected pH %+v", ph)
	}
	if a[models.SoilPotassium].Mean != 90 {
		t.Fatalf("unexpected K %+v", a[models.SoilPotassium])
	}

	high, _ := SoilProperty(Fixed(0.999999), models.SoilNitrogen, 30, 75)
	if high.Mean > 45*1.05+1e-6 || high.Mean < 45 {
		t.Fatalf("jitter outside ±5%%: %v", high.Mean)
	}
	if _, ok := SoilProperty(NoJitter, "zinc", 30, 75); ok {
		t.Fatal("unknown property accepted")
	}
}

func TestConversions(t *testing.T) {
	if got := AcresToHectares(5); math.Abs(got-2.02343) > 1e-9 {
		t.Errorf("AcresToHectares(5) = %v", got)
	}
	if got := PHFromSoilGrids(65); got != 6.5 {
		t.Errorf("PHFromSoilGrids = %v", got)
	}
	if got := NutrientKgPerHa(4500); got != 45 {
		t.Errorf("NutrientKgPerHa = %v", got)
	}
	if got := OrganicCarbonPercent(12); got != 1.2 {
		t.Errorf("OrganicCarbonPercent = %v", got)
	}
	if got := PressureHPa(101.3); math.Abs(got-1013) > 1e-9 {
		t.Errorf("PressureHPa(kPa) = %v", got)
	}
	if got := PressureHPa(1008); got != 1008 {
		t.Errorf("PressureHPa(hPa) = %v", got)
	}
	if got := SolarRadiation(0); got != 17.5 {
		t.Errorf("SolarRadiation(0) = %v", got)
	}
	if got := SolarRadiation(100); got != 0 {
		t.Errorf("SolarRadiation(100) = %v", got)
	}
	if got := RoundTo(2864, 10); got != 2860 {
		t.Errorf("RoundTo = %v", got)
	}
}

func TestResultSource(t *testing.T) {
	r := Degraded(1, "no api key")
	if r.IsLive() || r.Source().Reason != "no api key" {
		t.Fatalf("unexpected %+v", r)
	}
	if !LiveResult("x").IsLive() {
		t.Fatal("live result not live")
	}
}

func TestSeededIsReproducible(t *testing.T) {
	a, b := NewSeeded(7), NewSeeded(7)
	for i := 0; i < 10; i++ {
		if a.Float64() != b.Float64() {
			t.Fatal("seeded sources diverged")
		}
	}
}
