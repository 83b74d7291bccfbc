package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/02loveslollipop/crop-advisor/services/watcher/internal/models"
)

// commodityAliases maps published commodity base names to the API's crop
// names. Processed products ("Mustard Oil", "Wheat Atta") have their own
// base names and are not tracked.
var commodityAliases = map[string]string{
	"paddy":          "Rice",
	"rice":           "Rice",
	"wheat":          "Wheat",
	"maize":          "Maize",
	"cotton":         "Cotton",
	"kapas":          "Cotton",
	"sugarcane":      "Sugarcane",
	"soyabean":       "Soybean",
	"soybean":        "Soybean",
	"groundnut":      "Groundnut",
	"groundnut pods": "Groundnut",
	"sunflower":      "Sunflower",
	"sunflower seed": "Sunflower",
	"bengal gram":    "Chickpea",
	"gram":           "Chickpea",
	"gram raw":       "Chickpea",
	"arhar":          "Pigeon Pea",
	"mustard":        "Mustard",
	"barley":         "Barley",
}

// baseCommodity lower-cases a published name and drops any parenthesised
// variety, so "Paddy(Dhan)(Common)" becomes "paddy".
func baseCommodity(commodity string) string {
	c := strings.ToLower(commodity)
	if i := strings.IndexByte(c, '('); i >= 0 {
		c = c[:i]
	}
	return strings.Join(strings.Fields(c), " ")
}

// CanonicalCrop returns the crop name for a published commodity, or "" when
// the commodity is not tracked.
func CanonicalCrop(commodity string) string {
	return commodityAliases[baseCommodity(commodity)]
}

// NormalizePrice parses a published price ("2,350", "2350.00"); blanks,
// placeholders and non-positive values -> nil.
func NormalizePrice(raw string) *float64 {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" || s == "-" || strings.EqualFold(s, "NR") {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// BuildPriceCandidates keeps tracked crops with a modal price. Rows without a
// state use defaultState. A later row for the same series wins.
func BuildPriceCandidates(rows []models.PriceRow, retrievalTS time.Time, defaultState string) []models.PriceCandidate {
	index := make(map[string]int, len(rows))
	out := make([]models.PriceCandidate, 0, len(rows))
	for _, row := range rows {
		crop := CanonicalCrop(row.Commodity)
		if crop == "" || row.ModalPrice == nil {
			continue
		}
		state := strings.TrimSpace(row.State)
		if state == "" {
			state = defaultState
		}
		cand := models.PriceCandidate{
			Crop:       crop,
			State:      state,
			Market:     strings.TrimSpace(row.Market),
			ModalPrice: *row.ModalPrice,
			TS:         retrievalTS,
		}
		if i, ok := index[cand.Key()]; ok {
			out[i] = cand
			continue
		}
		index[cand.Key()] = len(out)
		out = append(out, cand)
	}
	return out
}

// CropNames returns the distinct crops of the candidates in first-seen order.
func CropNames(candidates []models.PriceCandidate) []string {
	seen := make(map[string]bool, len(candidates))
	crops := make([]string, 0)
	for _, c := range candidates {
		if !seen[c.Crop] {
			seen[c.Crop] = true
			crops = append(crops, c.Crop)
		}
	}
	return crops
}

// FilterNewPrices selects candidates that should be inserted.
func FilterNewPrices(
	candidates []models.PriceCandidate,
	last map[string]models.LastPrice,
	minInterval time.Duration,
	epsilon float64,
) []models.PriceCandidate {
	out := make([]models.PriceCandidate, 0, len(candidates))
	for _, cand := range candidates {
		prev, ok := last[cand.Key()]
		if !ok {
			out = append(out, cand)
			continue
		}

		if cand.TS.Sub(prev.TS) >= minInterval {
			out = append(out, cand)
			continue
		}

		if !ValuesEqual(prev.ModalPrice, cand.ModalPrice, epsilon) {
			out = append(out, cand)
		}
	}
	return out
}

// ValuesEqual compares two prices with tolerance.
func ValuesEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

// PriceString prints a price for logging.
func PriceString(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
