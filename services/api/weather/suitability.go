package weather

import (
	"math"

	"github.com/02loveslollipop/crop-advisor/services/api/models"
	"github.com/02loveslollipop/crop-advisor/services/api/refdata"
)

// Suitability scores how well current conditions match a crop's climate
// window, in [0, 1].
func Suitability(c refdata.CropClimate, w models.WeatherSnapshot) float64 {
	score := 0.5
	score += windowScore(w.Temperature, c.TempMin, c.TempMax, 0.3, 0.02)
	score += windowScore(w.Humidity, c.HumidityMin, c.HumidityMax, 0.2, 0.005)
	return math.Min(1, math.Max(0, score))
}

func windowScore(v, lo, hi, full, penalty float64) float64 {
	if v >= lo && v <= hi {
		return full
	}
	dev := math.Min(math.Abs(v-lo), math.Abs(v-hi))
	return math.Max(0, full-dev*penalty)
}
