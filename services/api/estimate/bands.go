package estimate

import "time"

// Region is a coarse latitude band.
type Region string

const (
	North   Region = "north"
	Central Region = "central"
	South   Region = "south"
)

// RegionFor classifies a latitude: above 28 is north, 20 through 28 central,
// below 20 south.
func RegionFor(lat float64) Region {
	switch {
	case lat > 28:
		return North
	case lat >= 20:
		return Central
	default:
		return South
	}
}

// Season is a coarse calendar band.
type Season string

const (
	Monsoon  Season = "monsoon"
	Winter   Season = "winter"
	Baseline Season = "summer"
)

// SeasonFor classifies a calendar month: June to September is monsoon,
// November to February winter, anything else baseline.
func SeasonFor(month time.Month) Season {
	switch {
	case month >= time.June && month <= time.September:
		return Monsoon
	case month >= time.November || month <= time.February:
		return Winter
	default:
		return Baseline
	}
}
