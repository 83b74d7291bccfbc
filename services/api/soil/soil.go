// Package soil builds a topsoil profile from SoilGrids, one query per
// property, filling any property the service cannot provide from the
// latitude-band estimate.
package soil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/02loveslollipop/crop-advisor/services/api/estimate"
	"github.com/02loveslollipop/crop-advisor/services/api/models"
)

// DefaultBaseURL is the SoilGrids v2 property query endpoint.
const DefaultBaseURL = "https://rest.isric.org/soilgrids/v2.0/properties/query"

const depth = "0-5cm"

type property struct {
	upstream string
	convert  func(float64) float64
}

var properties = map[string]property{
	models.SoilPH:            {upstream: "phh2o", convert: estimate.PHFromSoilGrids},
	models.SoilNitrogen:      {upstream: "nitrogen", convert: estimate.NutrientKgPerHa},
	models.SoilPhosphorus:    {upstream: "phosphorus", convert: estimate.NutrientKgPerHa},
	models.SoilPotassium:     {upstream: "potassium", convert: estimate.NutrientKgPerHa},
	models.SoilOrganicCarbon: {upstream: "soc", convert: estimate.OrganicCarbonPercent},
}

var errNoValue = errors.New("no mean value for depth " + depth)

// Aggregator fetches soil profiles.
type Aggregator struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	rand    estimate.Rand
	logger  *slog.Logger
}

// New builds an Aggregator against baseURL (DefaultBaseURL when empty).
func New(baseURL string, timeout time.Duration, r estimate.Rand, logger *slog.Logger) *Aggregator {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if r == nil {
		r = estimate.Global
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		baseURL: baseURL,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		rand:    r,
		logger:  logger.With("component", "soil"),
	}
}

// Profile returns every soil property for the coordinate; never fails. The
// result is Live only when all properties came from SoilGrids.
func (a *Aggregator) Profile(ctx context.Context, lat, lon float64) estimate.Result[models.SoilProfile] {
	var (
		mu      sync.Mutex
		profile = make(models.SoilProfile, len(models.SoilProperties))
		failed  []string
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, key := range models.SoilProperties {
		g.Go(func() error {
			prop, err := a.fetch(gctx, key, lat, lon)
			if err != nil {
				a.logger.Debug("soil property unavailable, using estimate", "property", key, "error", err)
				prop, _ = estimate.SoilProperty(a.rand, key, lat, lon)
			}

			mu.Lock()
			defer mu.Unlock()
			profile[key] = prop
			if err != nil {
				failed = append(failed, key)
			}
			// Failures stay local so sibling properties keep their live values.
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) == 0 {
		return estimate.LiveResult(profile)
	}
	return estimate.Degraded(profile, fmt.Sprintf("%d of %d properties estimated", len(failed), len(models.SoilProperties)))
}

func (a *Aggregator) fetch(ctx context.Context, key string, lat, lon float64) (models.SoilProperty, error) {
	p := properties[key]

	q := url.Values{}
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("property", p.upstream)
	q.Set("depth", depth)
	q.Add("value", "mean")
	q.Add("value", "uncertainty")

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return models.SoilProperty{}, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return models.SoilProperty{}, fmt.Errorf("request %s: %w", p.upstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.SoilProperty{}, fmt.Errorf("%s: unexpected status %s", p.upstream, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.SoilProperty{}, fmt.Errorf("read %s: %w", p.upstream, err)
	}
	return parse(body, key)
}

// parse extracts one property from a SoilGrids query response.
func parse(body []byte, key string) (models.SoilProperty, error) {
	p := properties[key]
	if !gjson.ValidBytes(body) {
		return models.SoilProperty{}, fmt.Errorf("%s: invalid json payload", p.upstream)
	}
	doc := gjson.ParseBytes(body)

	layer := doc.Get(`properties.layers.#(name=="` + p.upstream + `")`)
	if !layer.Exists() {
		layer = doc.Get("properties.layers.0")
	}
	values := layer.Get(`depths.#(label=="` + depth + `").values`)
	if !values.Exists() {
		values = layer.Get("depths.0.values")
	}

	mean := values.Get("mean")
	if !mean.Exists() || mean.Type == gjson.Null {
		return models.SoilProperty{}, fmt.Errorf("%s: %w", p.upstream, errNoValue)
	}

	converted := p.convert(mean.Float())
	uncertainty := converted * 0.1
	if u := values.Get("uncertainty"); u.Exists() && u.Type != gjson.Null {
		uncertainty = p.convert(u.Float())
	}

	return models.SoilProperty{
		Mean:        estimate.Round(converted, 2),
		Uncertainty: estimate.Round(uncertainty, 2),
		Unit:        estimate.SoilUnits[key],
		Source:      string(estimate.Live),
	}, nil
}
