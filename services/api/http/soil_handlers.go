package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/crop-advisor/services/api/refdata"
)

// GET /api/soil/properties?lat=..&lon=..
func (s *Server) handleSoilProperties(c *gin.Context) {
	lat, lon, ok := coordinates(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 20*time.Second)
	defer cancel()

	res := s.soil.Profile(ctx, lat, lon)
	c.JSON(http.StatusOK, gin.H{
		"location":    gin.H{"lat": lat, "lon": lon},
		"properties":  res.Data,
		"data_source": res.Source(),
	})
}

// GET /api/soil/defaults/:soilType
func (s *Server) handleSoilDefaults(c *gin.Context) {
	soil, matched := refdata.SoilDefaults(c.Param("soilType"))
	c.JSON(http.StatusOK, gin.H{
		"soil_type": soil,
		"matched":   matched,
	})
}
