// Package refdata exposes the static reference tables used across the API:
// soil-type defaults, crop prices, regional price factors, Indian cities,
// crop climate windows and the mandi directory. Tables are decoded once from
// embedded CSV files and are read-only afterwards; accessors return copies.
package refdata

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jszwec/csvutil"
)

//go:embed data/*.csv
var files embed.FS

var (
	// ErrUnknownCity is returned when a city lookup has no match.
	ErrUnknownCity = errors.New("city not found")
	// ErrUnknownCrop is returned when a crop has no reference entry.
	ErrUnknownCrop = errors.New("crop not found")
)

// DefaultSoilType is used for any soil type missing from the table.
const DefaultSoilType = "Loamy"

// List is a pipe-separated CSV cell.
type List []string

// UnmarshalText implements encoding.TextUnmarshaler for csvutil.
func (l *List) UnmarshalText(text []byte) error {
	*l = List{}
	for _, part := range strings.Split(string(text), "|") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

// SoilType holds the default agronomic tuple for a soil texture class.
type SoilType struct {
	Name          string  `csv:"name" json:"name"`
	PH            float64 `csv:"ph" json:"ph"`
	Moisture      float64 `csv:"moisture" json:"moisture"`
	Nitrogen      float64 `csv:"nitrogen" json:"nitrogen"`
	Phosphorus    float64 `csv:"phosphorus" json:"phosphorus"`
	Potassium     float64 `csv:"potassium" json:"potassium"`
	OrganicCarbon float64 `csv:"organic_carbon" json:"organic_carbon"`
	Description   string  `csv:"description" json:"description"`
}

// Crop carries the MSP and the simulated mandi price range (INR/quintal).
type Crop struct {
	Name       string  `csv:"name" json:"name"`
	MSP        float64 `csv:"msp" json:"msp"`
	BaseMin    float64 `csv:"base_min" json:"base_min"`
	BaseSpread float64 `csv:"base_spread" json:"base_spread"`
}

type stateFactor struct {
	State  string  `csv:"state"`
	Factor float64 `csv:"factor"`
}

// City is an entry in the Indian city directory.
type City struct {
	ID      int     `csv:"id" json:"id"`
	Name    string  `csv:"name" json:"name"`
	State   string  `csv:"state" json:"state"`
	Country string  `csv:"country" json:"country"`
	Lat     float64 `csv:"lat" json:"lat"`
	Lon     float64 `csv:"lon" json:"lon"`
}

// CropClimate is the preferred temperature/humidity window of a crop and the
// cities where it is widely grown.
type CropClimate struct {
	Crop        string  `csv:"crop"`
	TempMin     float64 `csv:"temp_min"`
	TempMax     float64 `csv:"temp_max"`
	HumidityMin float64 `csv:"humidity_min"`
	HumidityMax float64 `csv:"humidity_max"`
	Regions     List    `csv:"regions"`
}

// Market is a mandi from the static directory.
type Market struct {
	Name       string  `csv:"name" json:"name"`
	Lat        float64 `csv:"lat" json:"lat"`
	Lon        float64 `csv:"lon" json:"lon"`
	District   string  `csv:"district" json:"district"`
	State      string  `csv:"state" json:"state"`
	Timing     string  `csv:"timing" json:"timing"`
	Contact    string  `csv:"contact" json:"contact"`
	Facilities List    `csv:"facilities" json:"facilities"`
}

type tables struct {
	soilTypes    []SoilType
	crops        []Crop
	stateFactors map[string]float64
	cities       []City
	climate      []CropClimate
	markets      []Market
}

var tbl = mustLoad()

func mustLoad() *tables {
	t, err := load()
	if err != nil {
		panic(fmt.Sprintf("refdata: %v", err))
	}
	return t
}

func load() (*tables, error) {
	t := &tables{stateFactors: make(map[string]float64)}

	if err := decode("data/soil_types.csv", &t.soilTypes); err != nil {
		return nil, err
	}
	if err := decode("data/crops.csv", &t.crops); err != nil {
		return nil, err
	}
	if err := decode("data/cities.csv", &t.cities); err != nil {
		return nil, err
	}
	if err := decode("data/crop_climate.csv", &t.climate); err != nil {
		return nil, err
	}
	if err := decode("data/markets.csv", &t.markets); err != nil {
		return nil, err
	}

	var factors []stateFactor
	if err := decode("data/state_factors.csv", &factors); err != nil {
		return nil, err
	}
	for _, f := range factors {
		t.stateFactors[strings.ToLower(f.State)] = f.Factor
	}
	return t, nil
}

func decode(name string, out any) error {
	raw, err := files.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := csvutil.Unmarshal(bytes.TrimSpace(raw), out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// SoilTypes returns the soil-type table in declaration order.
func SoilTypes() []SoilType {
	return append([]SoilType(nil), tbl.soilTypes...)
}

// SoilDefaults returns the defaults for soilType (case-insensitive). Unknown
// types resolve to Loamy; the second result reports whether soilType matched.
func SoilDefaults(soilType string) (SoilType, bool) {
	name := strings.TrimSpace(soilType)
	for _, st := range tbl.soilTypes {
		if strings.EqualFold(st.Name, name) {
			return st, true
		}
	}
	for _, st := range tbl.soilTypes {
		if st.Name == DefaultSoilType {
			return st, false
		}
	}
	return SoilType{}, false
}

// Crops returns the crop price table in declaration order.
func Crops() []Crop {
	return append([]Crop(nil), tbl.crops...)
}

// MSP returns a fresh crop → minimum support price map.
func MSP() map[string]float64 {
	out := make(map[string]float64, len(tbl.crops))
	for _, c := range tbl.crops {
		out[c.Name] = c.MSP
	}
	return out
}

// StateFactor returns the regional price multiplier; 1.0 when unknown.
func StateFactor(state string) float64 {
	if f, ok := tbl.stateFactors[strings.ToLower(strings.TrimSpace(state))]; ok {
		return f
	}
	return 1.0
}

// Cities returns the city directory, optionally filtered by state.
func Cities(state string) []City {
	out := make([]City, 0, len(tbl.cities))
	for _, c := range tbl.cities {
		if state == "" || strings.EqualFold(c.State, state) {
			out = append(out, c)
		}
	}
	return out
}

// CityByID returns the first city with the given id.
func CityByID(id int) (City, error) {
	for _, c := range tbl.cities {
		if c.ID == id {
			return c, nil
		}
	}
	return City{}, fmt.Errorf("city id %d: %w", id, ErrUnknownCity)
}

// FindCity matches the name exactly (and the state when given), then falls
// back to a substring match in either direction ignoring the state.
func FindCity(name, state string) (City, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return City{}, fmt.Errorf("empty city name: %w", ErrUnknownCity)
	}
	for _, c := range tbl.cities {
		if strings.ToLower(c.Name) == needle && (state == "" || strings.EqualFold(c.State, state)) {
			return c, nil
		}
	}
	for _, c := range tbl.cities {
		hay := strings.ToLower(c.Name)
		if strings.Contains(hay, needle) || strings.Contains(needle, hay) {
			return c, nil
		}
	}
	return City{}, fmt.Errorf("city %q: %w", name, ErrUnknownCity)
}

// ClimateFor returns the climate window of a crop (case-insensitive).
func ClimateFor(crop string) (CropClimate, error) {
	for _, c := range tbl.climate {
		if strings.EqualFold(c.Crop, strings.TrimSpace(crop)) {
			c.Regions = append(List(nil), c.Regions...)
			return c, nil
		}
	}
	return CropClimate{}, fmt.Errorf("crop %q: %w", crop, ErrUnknownCrop)
}

// RegionCities resolves the growing regions of a crop to known cities, in
// region order. Regions absent from the directory are skipped.
func RegionCities(crop string) ([]City, error) {
	climate, err := ClimateFor(crop)
	if err != nil {
		return nil, err
	}
	out := make([]City, 0, len(climate.Regions))
	for _, name := range climate.Regions {
		for _, c := range tbl.cities {
			if c.Name == name {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

// Markets returns the mandi directory.
func Markets() []Market {
	out := make([]Market, len(tbl.markets))
	for i, m := range tbl.markets {
		m.Facilities = append(List(nil), m.Facilities...)
		out[i] = m
	}
	return out
}
