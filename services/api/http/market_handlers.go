package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/crop-advisor/services/api/market"
)

// GET /api/market/prices?state=..&crops=Rice,Wheat
func (s *Server) handleMarketPrices(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	state := c.Query("state")
	res := s.market.Prices(ctx, state)

	prices := res.Data
	if raw := c.Query("crops"); raw != "" {
		prices = make(map[string]float64)
		for _, crop := range strings.Split(raw, ",") {
			crop = strings.TrimSpace(crop)
			for name, price := range res.Data {
				if strings.EqualFold(name, crop) {
					prices[name] = price
				}
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"state":       state,
		"prices":      prices,
		"data_source": res.Source(),
	})
}

// GET /api/market/data?state=..&include_forecast=true
func (s *Server) handleMarketData(c *gin.Context) {
	withForecast := false
	if raw := c.Query("include_forecast"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid include_forecast parameter"})
			return
		}
		withForecast = v
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	res := s.market.Data(ctx, c.Query("state"), withForecast)
	c.JSON(http.StatusOK, gin.H{
		"data":        res.Data,
		"data_source": res.Source(),
	})
}

// GET /api/market/nearby?lat=..&lon=..&radius_km=..&crop=..
func (s *Server) handleNearbyMarkets(c *gin.Context) {
	lat, lon, ok := coordinates(c)
	if !ok {
		return
	}

	radius := float64(market.DefaultRadiusKm)
	if raw := c.Query("radius_km"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius_km"})
			return
		}
		radius = v
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	markets := s.market.Nearby(ctx, lat, lon, radius, c.Query("crop"))
	c.JSON(http.StatusOK, gin.H{
		"markets":   markets,
		"count":     len(markets),
		"radius_km": radius,
	})
}
