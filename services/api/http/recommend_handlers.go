package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/crop-advisor/services/api/db"
	"github.com/02loveslollipop/crop-advisor/services/api/estimate"
	"github.com/02loveslollipop/crop-advisor/services/api/models"
	"github.com/02loveslollipop/crop-advisor/services/api/recommend"
)

const anonymousUser = "anonymous"

type locationBody struct {
	Lat   *float64 `json:"lat" binding:"required,gte=-90,lte=90"`
	Lon   *float64 `json:"lon" binding:"required,gte=-180,lte=180"`
	State string   `json:"state"`
}

type recommendBody struct {
	UserID          string               `json:"userId"`
	Location        *locationBody        `json:"location" binding:"required"`
	SoilType        string               `json:"soil_type" binding:"required"`
	FarmingMethod   string               `json:"farming_method"`
	IrrigationType  string               `json:"irrigation_type"`
	PreviousCrops   []string             `json:"previous_crops"`
	ExperienceYears *int                 `json:"experience_years" binding:"omitempty,gte=0"`
	BudgetCategory  string               `json:"budget_category"`
	PreferredCrops  []string             `json:"preferred_crops"`
	SoilValues      recommend.SoilValues `json:"soil_values"`
}

type acresBody struct {
	recommendBody
	AreaAcres *float64 `json:"area_acres" binding:"required,gt=0"`
}

type hectaresBody struct {
	recommendBody
	AreaHa *float64 `json:"area_ha" binding:"required,gt=0"`
}

func (b recommendBody) toRequest(areaHa float64) recommend.Request {
	userID := strings.TrimSpace(b.UserID)
	if userID == "" {
		userID = anonymousUser
	}
	return recommend.Request{
		UserID: userID,
		Location: models.Location{
			Lat:   *b.Location.Lat,
			Lon:   *b.Location.Lon,
			State: b.Location.State,
		},
		SoilType:        b.SoilType,
		AreaHa:          areaHa,
		FarmingMethod:   b.FarmingMethod,
		IrrigationType:  b.IrrigationType,
		PreviousCrops:   b.PreviousCrops,
		ExperienceYears: b.ExperienceYears,
		BudgetCategory:  b.BudgetCategory,
		PreferredCrops:  b.PreferredCrops,
		SoilValues:      b.SoilValues,
	}
}

// handleRecommendAcres accepts the farm area in acres.
// POST /api/recommend
func (s *Server) handleRecommendAcres(c *gin.Context) {
	var body acresBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.recommend(c, body.toRequest(estimate.AcresToHectares(*body.AreaAcres)))
}

// handleRecommendHectares accepts the farm area in hectares.
// POST /api/v1/recommend
func (s *Server) handleRecommendHectares(c *gin.Context) {
	var body hectaresBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.recommend(c, body.toRequest(*body.AreaHa))
}

func (s *Server) recommend(c *gin.Context, req recommend.Request) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	resp, err := s.advisor.Recommend(ctx, req)
	if errors.Is(err, recommend.ErrInvalidFeatures) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.log(c).Error("recommendation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handleHistory returns a user's newest recommendations.
// GET /api/history/:userId
func (s *Server) handleHistory(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	records, err := s.store.RecentRecommendations(ctx, userID, s.cfg.HistoryLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, records)
}

// handleRecommendationByID returns one stored recommendation.
// GET /api/recommendations/:id
func (s *Server) handleRecommendationByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recommendation id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	rec, err := s.store.RecommendationByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "recommendation not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rec)
}

type feedbackBody struct {
	RecommendationID int64   `json:"recommendationId" binding:"required,gt=0"`
	UserID           string  `json:"userId"`
	Helpful          *bool   `json:"helpful" binding:"required"`
	Notes            *string `json:"notes"`
}

// handleFeedback stores a farmer's verdict on a recommendation.
// POST /api/feedback
func (s *Server) handleFeedback(c *gin.Context) {
	var body feedbackBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := strings.TrimSpace(body.UserID)
	if userID == "" {
		userID = anonymousUser
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if _, err := s.store.SaveFeedback(ctx, db.Feedback{
		RecommendationID: body.RecommendationID,
		UserID:           userID,
		Helpful:          *body.Helpful,
		Notes:            body.Notes,
	}); err != nil {
		s.log(c).Error("failed to save feedback", "recommendation_id", body.RecommendationID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
