package estimate

import "math"

// AcreToHectare is the fixed area conversion factor.
const AcreToHectare = 0.404686

// AcresToHectares converts a farm area.
func AcresToHectares(acres float64) float64 {
	return acres * AcreToHectare
}

// PHFromSoilGrids converts SoilGrids' pH×10 integer to pH.
func PHFromSoilGrids(v float64) float64 { return v / 10 }

// NutrientKgPerHa approximates kg/ha from SoilGrids' cg/kg nutrient values.
func NutrientKgPerHa(v float64) float64 { return v / 100 }

// OrganicCarbonPercent converts organic carbon from g/kg to percent.
func OrganicCarbonPercent(v float64) float64 { return v / 10 }

// PressureHPa normalises a pressure reading to hPa. Readings below 200 are
// taken to be kPa.
func PressureHPa(v float64) float64 {
	if v > 0 && v < 200 {
		return v * 10
	}
	return v
}

// WindKmh converts m/s to km/h.
func WindKmh(ms float64) float64 { return ms * 3.6 }

// VisibilityKm converts metres to kilometres.
func VisibilityKm(m float64) float64 { return m / 1000 }

// SolarRadiation estimates MJ/m²/day from cloud cover percent.
func SolarRadiation(cloudPercent float64) float64 {
	return 25 * (1 - clamp(cloudPercent, 0, 100)/100) * 0.7
}

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// RoundTo rounds v to the nearest multiple of step.
func RoundTo(v, step float64) float64 {
	return math.Round(v/step) * step
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
