package estimate

import "github.com/02loveslollipop/crop-advisor/services/api/models"

// SoilUnits lists the unit reported for each soil property.
var SoilUnits = map[string]string{
	models.SoilPH:            "pH",
	models.SoilNitrogen:      "kg/ha",
	models.SoilPhosphorus:    "kg/ha",
	models.SoilPotassium:     "kg/ha",
	models.SoilOrganicCarbon: "%",
}

var soilUncertainty = map[string]float64{
	models.SoilPH:            0.3,
	models.SoilNitrogen:      5,
	models.SoilPhosphorus:    3,
	models.SoilPotassium:     10,
	models.SoilOrganicCarbon: 0.2,
}

var regionSoil = map[Region]map[string]float64{
	North: {
		models.SoilPH: 7.2, models.SoilNitrogen: 45, models.SoilPhosphorus: 25,
		models.SoilPotassium: 120, models.SoilOrganicCarbon: 1.2,
	},
	Central: {
		models.SoilPH: 6.8, models.SoilNitrogen: 35, models.SoilPhosphorus: 20,
		models.SoilPotassium: 100, models.SoilOrganicCarbon: 0.9,
	},
	South: {
		models.SoilPH: 6.5, models.SoilNitrogen: 30, models.SoilPhosphorus: 18,
		models.SoilPotassium: 90, models.SoilOrganicCarbon: 0.7,
	},
}

// SoilProperty estimates one property from the latitude band with a ±5%
// proportional jitter. ok is false for unknown property keys.
func SoilProperty(r Rand, property string, lat, lon float64) (models.SoilProperty, bool) {
	base, ok := regionSoil[RegionFor(lat)][property]
	if !ok {
		return models.SoilProperty{}, false
	}
	return models.SoilProperty{
		Mean:        Round(base*(1+centred(r, 0.1)), 2),
		Uncertainty: soilUncertainty[property],
		Unit:        SoilUnits[property],
		Source:      string(Estimated),
	}, true
}

// Soil estimates the full profile for a coordinate.
func Soil(r Rand, lat, lon float64) models.SoilProfile {
	profile := make(models.SoilProfile, len(models.SoilProperties))
	for _, key := range models.SoilProperties {
		prop, _ := SoilProperty(r, key, lat, lon)
		profile[key] = prop
	}
	return profile
}
