package weather

import (
	"math"
	"time"

	"github.com/02loveslollipop/crop-advisor/services/api/estimate"
	"github.com/02loveslollipop/crop-advisor/services/api/models"
)

// Sample is one 3-hourly forecast point. WindSpeed is in km/h.
type Sample struct {
	Unix        int64
	Temperature float64
	Humidity    float64
	WindSpeed   float64
	Rainfall    float64
	Description string
	Icon        string
}

type dayAcc struct {
	day      models.ForecastDay
	humidity float64
	wind     float64
	n        int
}

// GroupDaily folds samples into one entry per UTC calendar date, in the order
// dates are first seen, keeping at most ForecastDays dates. The first sample
// of each date supplies its description and icon.
func GroupDaily(samples []Sample) []models.ForecastDay {
	order := make([]string, 0, estimate.ForecastDays)
	acc := make(map[string]*dayAcc, estimate.ForecastDays)

	for _, s := range samples {
		date := time.Unix(s.Unix, 0).UTC().Format(time.DateOnly)
		d, ok := acc[date]
		if !ok {
			if len(order) == estimate.ForecastDays {
				break
			}
			description := s.Description
			if description == "" {
				description = "Clear sky"
			}
			icon := s.Icon
			if icon == "" {
				icon = "01d"
			}
			d = &dayAcc{day: models.ForecastDay{
				Date:           date,
				TemperatureMax: math.Inf(-1),
				TemperatureMin: math.Inf(1),
				Description:    description,
				Icon:           icon,
			}}
			acc[date] = d
			order = append(order, date)
		}
		d.day.TemperatureMax = math.Max(d.day.TemperatureMax, s.Temperature)
		d.day.TemperatureMin = math.Min(d.day.TemperatureMin, s.Temperature)
		d.day.Rainfall += s.Rainfall
		d.humidity += s.Humidity
		d.wind += s.WindSpeed
		d.n++
	}

	days := make([]models.ForecastDay, 0, len(order))
	for _, date := range order {
		d := acc[date]
		d.day.Humidity = d.humidity / float64(d.n)
		d.day.WindSpeed = d.wind / float64(d.n)
		days = append(days, d.day)
	}
	return days
}
