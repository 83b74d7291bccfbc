package weather

import (
	"fmt"
	"time"

	"github.com/02loveslollipop/crop-advisor/services/api/estimate"
	"github.com/02loveslollipop/crop-advisor/services/api/models"
)

var outlooks = map[estimate.Region]map[estimate.Season]string{
	estimate.North: {
		estimate.Baseline: "Summer season: Rising temperatures with hot and dry conditions. Wheat harvesting season. Prepare for summer crops like cotton and sugarcane.",
		estimate.Monsoon:  "Monsoon season: Heavy rainfall expected. Excellent for kharif crops like rice, maize, and cotton. Monitor for waterlogging.",
		estimate.Winter:   "Winter season: Cool and dry conditions. Ideal for rabi crops like wheat, mustard, and chickpea. Risk of frost in January.",
	},
	estimate.Central: {
		estimate.Baseline: "Pre-monsoon summer: Hot and dry weather expected. Good time for irrigation-dependent crops. Monitor heat stress in standing crops.",
		estimate.Monsoon:  "Southwest monsoon: Good rainfall for kharif crops. Ideal for soybean, cotton, and sugarcane planting. Watch for pest outbreaks.",
		estimate.Winter:   "Post-monsoon winter: Pleasant weather for rabi crops. Good for wheat, gram, and vegetable cultivation.",
	},
	estimate.South: {
		estimate.Baseline: "Summer season: Warm and moderately dry conditions. Suitable for summer rice and sugarcane cultivation with adequate irrigation.",
		estimate.Monsoon:  "Monsoon season: Consistent rainfall with high humidity. Perfect for rice cultivation and other water-intensive crops.",
		estimate.Winter:   "Northeast monsoon/Winter: Mild weather with occasional showers. Suitable for rabi crops and winter vegetables.",
	},
}

// SeasonalOutlook returns the fixed outlook text for the latitude and month.
func SeasonalOutlook(lat float64, month time.Month) string {
	return outlooks[estimate.RegionFor(lat)][estimate.SeasonFor(month)]
}

const (
	recIrrigation = "Increase irrigation frequency during hot weather and provide shade for livestock"
	recFrost      = "Protect sensitive crops from frost and cold damage"
	recDrainage   = "Ensure proper drainage and delay pesticide application during heavy rains"
	recDrySpell   = "Dry spell expected - monitor soil moisture and plan irrigation accordingly"
	recWind       = "Secure farm structures and avoid spraying operations during windy conditions"
)

var seasonRecommendations = map[estimate.Season][]string{
	estimate.Monsoon: {
		"Monitor for fungal diseases due to high humidity and rainfall",
		"Ensure good drainage to prevent waterlogging in fields",
	},
	estimate.Baseline: {
		"Focus on water conservation and efficient irrigation methods",
		"Consider heat-resistant crop varieties for summer planting",
	},
	estimate.Winter: {
		"Utilize favorable weather for rabi crop cultivation",
		"Monitor for frost conditions that may damage sensitive crops",
	},
}

// Insights derives weather alerts and farming recommendations from the
// forecast, followed by the recommendations for the current season.
func Insights(days []models.ForecastDay, season estimate.Season) (alerts, recs []string) {
	alerts = make([]string, 0)
	recs = make([]string, 0)

	for i, d := range days {
		if d.TemperatureMax > 40 {
			alerts = append(alerts, fmt.Sprintf("Heat wave warning for %s: Temperature may reach %.1f°C", d.Date, d.TemperatureMax))
			recs = append(recs, recIrrigation)
		}
		if d.TemperatureMin < 5 {
			alerts = append(alerts, fmt.Sprintf("Cold wave alert for %s: Minimum temperature may drop to %.1f°C", d.Date, d.TemperatureMin))
			recs = append(recs, recFrost)
		}
		if d.Rainfall > 50 {
			alerts = append(alerts, fmt.Sprintf("Heavy rainfall expected on %s: %.1fmm precipitation", d.Date, d.Rainfall))
			recs = append(recs, recDrainage)
		}
		if i < 3 && d.Rainfall < 1 {
			recs = append(recs, recDrySpell)
		}
		if d.WindSpeed > 25 {
			alerts = append(alerts, fmt.Sprintf("Strong winds expected on %s: %.1f km/h", d.Date, d.WindSpeed))
			recs = append(recs, recWind)
		}
	}

	recs = append(recs, seasonRecommendations[season]...)
	return alerts, recs
}
