package market

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/02loveslollipop/crop-advisor/services/api/refdata"
)

// DefaultRadiusKm is the search radius when none is given.
const DefaultRadiusKm = 50

const earthRadiusKm = 6371

// NearbyMarket is a mandi with its distance and local prices.
type NearbyMarket struct {
	Name          string             `json:"name"`
	Lat           float64            `json:"lat"`
	Lon           float64            `json:"lon"`
	District      string             `json:"district"`
	State         string             `json:"state"`
	DistanceKm    float64            `json:"distance_km"`
	CurrentPrices map[string]float64 `json:"current_prices"`
	Timing        string             `json:"market_timing"`
	Contact       string             `json:"contact_info,omitempty"`
	Facilities    []string           `json:"facilities"`
}

// Nearby returns mandis within radiusKm of the coordinate, nearest first.
// When crop is set only that crop's price is reported; the name match
// ignores case.
func (a *Aggregator) Nearby(ctx context.Context, lat, lon, radiusKm float64, crop string) []NearbyMarket {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}

	out := make([]NearbyMarket, 0)
	for _, m := range refdata.Markets() {
		dist := Haversine(lat, lon, m.Lat, m.Lon)
		if dist > radiusKm {
			continue
		}
		prices := a.Prices(ctx, m.State).Data
		if crop != "" {
			filtered := make(map[string]float64, 1)
			for name, p := range prices {
				if strings.EqualFold(name, strings.TrimSpace(crop)) {
					filtered[name] = p
				}
			}
			prices = filtered
		}
		out = append(out, NearbyMarket{
			Name:          m.Name,
			Lat:           m.Lat,
			Lon:           m.Lon,
			District:      m.District,
			State:         m.State,
			DistanceKm:    math.Round(dist*10) / 10,
			CurrentPrices: prices,
			Timing:        m.Timing,
			Contact:       m.Contact,
			Facilities:    m.Facilities,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}

// Haversine returns the great-circle distance in km.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
