// Package predict is the HTTP client for the external crop prediction
// service.
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/02loveslollipop/crop-advisor/services/api/models"
)

// DefaultEndpoint is where the prediction service listens in development.
const DefaultEndpoint = "http://localhost:8001/predict"

// WeatherData is the weather block of a prediction request.
type WeatherData struct {
	Temperature    float64 `json:"temperature"`
	Humidity       float64 `json:"humidity"`
	Rainfall       float64 `json:"rainfall"`
	WindSpeed      float64 `json:"wind_speed"`
	SolarRadiation float64 `json:"solar_radiation"`
	Pressure       float64 `json:"pressure"`
}

// ForecastData is the forecast block of a prediction request.
type ForecastData struct {
	DailyForecast   []models.ForecastDay `json:"daily_forecast"`
	SeasonalOutlook string               `json:"seasonal_outlook"`
}

// Request is the feature bundle posted to the service.
type Request struct {
	Location       models.Location    `json:"location"`
	Features       models.Features    `json:"features"`
	MarketSnapshot map[string]float64 `json:"market_snapshot"`
	WeatherData    WeatherData        `json:"weather_data"`
	ForecastData   ForecastData       `json:"forecast_data"`
}

// ShapFeature is one feature attribution.
type ShapFeature struct {
	Feature string  `json:"feature"`
	Impact  float64 `json:"impact"`
}

// Response is the service's answer; the local fallback produces the same
// shape.
type Response struct {
	ModelVersion    string                      `json:"model_version"`
	Timestamp       string                      `json:"timestamp"`
	Recommendations []models.CropRecommendation `json:"recommendations"`
	Explanation     string                      `json:"explanation"`
	ShapTopFeatures []ShapFeature               `json:"shap_top_features"`
}

// Client posts feature bundles to the prediction service.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient builds a client bounded by timeout.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Predict posts req and decodes the response. Any transport error or
// non-2xx status is returned as an error.
func (c *Client) Predict(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("marshal prediction request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("create prediction request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("prediction service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, fmt.Errorf("prediction service returned status %s", resp.Status)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("decode prediction response: %w", err)
	}
	if out.Recommendations == nil {
		out.Recommendations = []models.CropRecommendation{}
	}
	return out, nil
}
