package estimate

import (
	"math"
	"time"

	"github.com/02loveslollipop/crop-advisor/services/api/models"
)

// ForecastDays is the length of every forecast.
const ForecastDays = 7

type climate struct {
	temperature float64
	humidity    float64
	rainfall    float64
}

var regionClimate = map[Region]climate{
	North:   {temperature: 25, humidity: 60, rainfall: 50},
	Central: {temperature: 28, humidity: 65, rainfall: 70},
	South:   {temperature: 30, humidity: 70, rainfall: 80},
}

func seasonalClimate(lat float64, month time.Month) climate {
	c := regionClimate[RegionFor(lat)]
	switch SeasonFor(month) {
	case Monsoon:
		c.rainfall *= 2
		c.humidity += 10
		c.temperature -= 2
	case Winter:
		c.temperature -= 5
		c.humidity -= 10
		c.rainfall *= 0.3
	}
	return c
}

// Weather estimates current conditions for a coordinate in a given month.
// Longitude does not influence the estimate.
func Weather(r Rand, lat, lon float64, month time.Month) models.WeatherSnapshot {
	c := seasonalClimate(lat, month)

	description := "Partly cloudy"
	cloudiness := 30 + r.Float64()*40
	if c.rainfall > 60 {
		description = "Light rain"
		cloudiness = 70 + r.Float64()*20
	}

	return models.WeatherSnapshot{
		Temperature:    c.temperature + centred(r, 4),
		Humidity:       clamp(c.humidity+centred(r, 10), 30, 90),
		Rainfall:       math.Max(0, c.rainfall+centred(r, 20)),
		WindSpeed:      3 + r.Float64()*8,
		SolarRadiation: 12 + r.Float64()*8,
		Pressure:       1013 + centred(r, 10),
		Description:    description,
		FeelsLike:      c.temperature + centred(r, 3),
		UVIndex:        4 + r.Float64()*4,
		Visibility:     8 + r.Float64()*2,
		Cloudiness:     cloudiness,
	}
}

// ForecastDaysFrom builds an estimated day-by-day forecast starting at start.
func ForecastDaysFrom(r Rand, lat, lon float64, start time.Time) []models.ForecastDay {
	days := make([]models.ForecastDay, 0, ForecastDays)
	for i := 0; i < ForecastDays; i++ {
		day := start.AddDate(0, 0, i)
		w := Weather(r, lat, lon, day.Month())
		days = append(days, models.ForecastDay{
			Date:           day.Format(time.DateOnly),
			TemperatureMax: w.Temperature + r.Float64()*5,
			TemperatureMin: w.Temperature - 5 - r.Float64()*5,
			Rainfall:       math.Max(0, w.Rainfall+centred(r, 30)),
			Humidity:       w.Humidity + centred(r, 15),
			WindSpeed:      w.WindSpeed,
			Description:    w.Description,
			Icon:           "01d",
		})
	}
	return days
}
