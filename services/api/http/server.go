package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/02loveslollipop/crop-advisor/services/api/config"
	"github.com/02loveslollipop/crop-advisor/services/api/db"
	"github.com/02loveslollipop/crop-advisor/services/api/estimate"
	"github.com/02loveslollipop/crop-advisor/services/api/market"
	"github.com/02loveslollipop/crop-advisor/services/api/models"
	"github.com/02loveslollipop/crop-advisor/services/api/recommend"
)

const requestIDHeader = "X-Request-ID"

// Store is the persistence the handlers need.
type Store interface {
	Ping(ctx context.Context) error
	RecentRecommendations(ctx context.Context, userID string, limit int) ([]db.RecommendationRecord, error)
	RecommendationByID(ctx context.Context, id int64) (db.RecommendationRecord, error)
	SaveFeedback(ctx context.Context, f db.Feedback) (int64, error)
}

// Recommender produces crop recommendations.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (recommend.Response, error)
}

// MarketService serves market prices, trends and the mandi directory.
type MarketService interface {
	Prices(ctx context.Context, state string) estimate.Result[map[string]float64]
	Data(ctx context.Context, state string, withForecast bool) estimate.Result[models.MarketData]
	Nearby(ctx context.Context, lat, lon, radiusKm float64, crop string) []market.NearbyMarket
}

// Deps are the services behind the routes.
type Deps struct {
	Store   Store
	Advisor Recommender
	Weather recommend.WeatherSource
	Soil    recommend.SoilSource
	Market  MarketService
	Logger  *slog.Logger
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg     config.Config
	store   Store
	advisor Recommender
	weather recommend.WeatherSource
	soil    recommend.SoilSource
	market  MarketService
	logger  *slog.Logger
	engine  *gin.Engine
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	engine.Use(requestIDMiddleware())
	engine.Use(corsMiddleware())

	if cfg.BearerToken != "" {
		engine.Use(bearerAuthMiddleware(cfg.BearerToken))
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := &Server{
		cfg:     cfg,
		store:   deps.Store,
		advisor: deps.Advisor,
		weather: deps.Weather,
		soil:    deps.Soil,
		market:  deps.Market,
		logger:  logger.With("component", "http"),
		engine:  engine,
	}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	api := s.engine.Group("/api")
	{
		api.POST("/recommend", s.handleRecommendAcres)
		api.GET("/history/:userId", s.handleHistory)
		api.GET("/recommendations/:id", s.handleRecommendationByID)
		api.POST("/feedback", s.handleFeedback)

		api.GET("/weather/current", s.handleWeatherCurrent)
		api.GET("/weather/forecast", s.handleWeatherForecast)

		india := api.Group("/india")
		india.GET("/weather", s.handleCityWeather)
		india.GET("/weather/:cityId", s.handleCityWeatherByID)
		india.GET("/cities", s.handleCities)
		india.GET("/agricultural-regions", s.handleAgriculturalRegions)

		api.GET("/soil/properties", s.handleSoilProperties)
		api.GET("/soil/defaults/:soilType", s.handleSoilDefaults)

		api.GET("/market/prices", s.handleMarketPrices)
		api.GET("/market/data", s.handleMarketData)
		api.GET("/market/nearby", s.handleNearbyMarkets)
	}

	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware())
	v1.POST("/recommend", s.handleRecommendHectares)
}

func (s *Server) handleHealth(c *gin.Context) {
	status := gin.H{"status": "ok"}
	if s.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		status["database"] = "ok"
	}
	c.JSON(http.StatusOK, status)
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware keeps an incoming X-Request-ID or assigns a new one.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func apiVersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-API-Version", "v1")
		c.Next()
	}
}

// log returns the server logger tagged with the request id.
func (s *Server) log(c *gin.Context) *slog.Logger {
	return s.logger.With("request_id", c.GetString("request_id"))
}
