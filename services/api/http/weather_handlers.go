package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/02loveslollipop/crop-advisor/services/api/models"
	"github.com/02loveslollipop/crop-advisor/services/api/refdata"
	"github.com/02loveslollipop/crop-advisor/services/api/weather"
)

const (
	defaultCityLimit   = 50
	defaultRegionLimit = 10
)

// coordinates reads lat/lon query parameters, writing a 400 when invalid.
func coordinates(c *gin.Context) (lat, lon float64, ok bool) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat must be a number between -90 and 90"})
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lon must be a number between -180 and 180"})
		return 0, 0, false
	}
	return lat, lon, true
}

// positiveInt parses an optional positive integer query parameter.
func positiveInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

// GET /api/weather/current?lat=..&lon=..
func (s *Server) handleWeatherCurrent(c *gin.Context) {
	lat, lon, ok := coordinates(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	res := s.weather.Current(ctx, lat, lon)
	c.JSON(http.StatusOK, gin.H{
		"data":        res.Data,
		"data_source": res.Source(),
	})
}

// GET /api/weather/forecast?lat=..&lon=..
func (s *Server) handleWeatherForecast(c *gin.Context) {
	lat, lon, ok := coordinates(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	res := s.weather.Forecast(ctx, lat, lon)
	c.JSON(http.StatusOK, gin.H{
		"data":        res.Data,
		"data_source": res.Source(),
	})
}

// GET /api/india/weather?city=..&state=..
func (s *Server) handleCityWeather(c *gin.Context) {
	name := strings.TrimSpace(c.Query("city"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "city is required"})
		return
	}

	city, err := refdata.FindCity(name, c.Query("state"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.cityWeather(c, city)
}

// GET /api/india/weather/:cityId
func (s *Server) handleCityWeatherByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("cityId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cityId"})
		return
	}

	city, err := refdata.CityByID(id)
	if errors.Is(err, refdata.ErrUnknownCity) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.cityWeather(c, city)
}

func (s *Server) cityWeather(c *gin.Context, city refdata.City) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	res := s.weather.Current(ctx, city.Lat, city.Lon)
	c.JSON(http.StatusOK, gin.H{
		"city":        city,
		"weather":     res.Data,
		"data_source": res.Source(),
	})
}

// GET /api/india/cities?state=..&limit=..
func (s *Server) handleCities(c *gin.Context) {
	limit, ok := positiveInt(c, "limit", defaultCityLimit)
	if !ok {
		return
	}

	cities := refdata.Cities(c.Query("state"))
	if len(cities) > limit {
		cities = cities[:limit]
	}
	c.JSON(http.StatusOK, gin.H{
		"cities": cities,
		"count":  len(cities),
	})
}

type regionWeather struct {
	City        refdata.City           `json:"city"`
	Weather     models.WeatherSnapshot `json:"weather"`
	Suitability float64                `json:"suitability_score"`
	Provenance  string                 `json:"data_source"`
}

// GET /api/india/agricultural-regions?crop=..&limit=..
func (s *Server) handleAgriculturalRegions(c *gin.Context) {
	crop := strings.TrimSpace(c.Query("crop"))
	if crop == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "crop is required"})
		return
	}
	limit, ok := positiveInt(c, "limit", defaultRegionLimit)
	if !ok {
		return
	}

	climate, err := refdata.ClimateFor(crop)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	cities, err := refdata.RegionCities(crop)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if len(cities) > limit {
		cities = cities[:limit]
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 20*time.Second)
	defer cancel()

	regions := make([]regionWeather, len(cities))
	var g errgroup.Group
	for i, city := range cities {
		g.Go(func() error {
			res := s.weather.Current(ctx, city.Lat, city.Lon)
			regions[i] = regionWeather{
				City:        city,
				Weather:     res.Data,
				Suitability: weather.Suitability(climate, res.Data),
				Provenance:  string(res.Provenance),
			}
			return nil
		})
	}
	_ = g.Wait()

	c.JSON(http.StatusOK, gin.H{
		"crop": climate.Crop,
		"climate": gin.H{
			"temperature_range": []float64{climate.TempMin, climate.TempMax},
			"humidity_range":    []float64{climate.HumidityMin, climate.HumidityMax},
		},
		"regions": regions,
	})
}
