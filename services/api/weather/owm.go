package weather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/02loveslollipop/crop-advisor/services/api/estimate"
	"github.com/02loveslollipop/crop-advisor/services/api/models"
)

const defaultUVIndex = 5

func (a *Aggregator) get(ctx context.Context, path string, lat, lon float64, metric bool) (gjson.Result, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("appid", a.apiKey)
	if metric {
		q.Set("units", "metric")
	}
	endpoint := strings.TrimRight(a.baseURL, "/") + path + "?" + q.Encode()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return gjson.Result{}, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return gjson.Result{}, fmt.Errorf("%s: unexpected status %s", path, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%s: invalid json payload", path)
	}
	return gjson.ParseBytes(body), nil
}

func (a *Aggregator) fetchCurrent(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error) {
	if a.apiKey == "" {
		return models.WeatherSnapshot{}, errNoAPIKey
	}
	data, err := a.get(ctx, "/data/2.5/weather", lat, lon, true)
	if err != nil {
		return models.WeatherSnapshot{}, err
	}

	uv := float64(defaultUVIndex)
	if uvData, err := a.get(ctx, "/data/2.5/uvi", lat, lon, false); err != nil {
		a.logger.Debug("uv index unavailable", "error", err)
	} else if v := uvData.Get("value").Float(); v > 0 {
		uv = v
	}

	return parseCurrent(data, uv), nil
}

func parseCurrent(data gjson.Result, uv float64) models.WeatherSnapshot {
	temp := orDefault(data.Get("main.temp"), 25)
	clouds := data.Get("clouds.all").Float()

	rain := data.Get("rain.1h")
	if !rain.Exists() {
		rain = data.Get("rain.3h")
	}

	description := data.Get("weather.0.description").String()
	if description == "" {
		description = "Clear sky"
	}

	return models.WeatherSnapshot{
		Temperature:    temp,
		Humidity:       orDefault(data.Get("main.humidity"), 60),
		Rainfall:       rain.Float(),
		WindSpeed:      estimate.WindKmh(data.Get("wind.speed").Float()),
		SolarRadiation: estimate.SolarRadiation(clouds),
		Pressure:       estimate.PressureHPa(orDefault(data.Get("main.pressure"), 1013)),
		Description:    description,
		FeelsLike:      orDefault(data.Get("main.feels_like"), temp),
		UVIndex:        uv,
		Visibility:     estimate.VisibilityKm(orDefault(data.Get("visibility"), 10000)),
		Cloudiness:     clouds,
	}
}

func (a *Aggregator) fetchForecast(ctx context.Context, lat, lon float64) ([]models.ForecastDay, error) {
	if a.apiKey == "" {
		return nil, errNoAPIKey
	}
	data, err := a.get(ctx, "/data/2.5/forecast", lat, lon, true)
	if err != nil {
		return nil, err
	}
	return GroupDaily(parseSamples(data)), nil
}

func parseSamples(data gjson.Result) []Sample {
	list := data.Get("list").Array()
	samples := make([]Sample, 0, len(list))
	for _, item := range list {
		samples = append(samples, Sample{
			Unix:        item.Get("dt").Int(),
			Temperature: item.Get("main.temp").Float(),
			Humidity:    item.Get("main.humidity").Float(),
			WindSpeed:   estimate.WindKmh(item.Get("wind.speed").Float()),
			Rainfall:    item.Get("rain.3h").Float(),
			Description: item.Get("weather.0.description").String(),
			Icon:        item.Get("weather.0.icon").String(),
		})
	}
	return samples
}

func orDefault(r gjson.Result, def float64) float64 {
	if !r.Exists() || r.Type == gjson.Null {
		return def
	}
	return r.Float()
}
