package scorers

import (
	"math"
	"time"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
)

// ForecastOptions configures the daily value projection.
type ForecastOptions struct {
	Days         int
	DailyGrowth  float64
	UpliftFactor float64
}

// DefaultForecastOptions returns 30 days at 0.1% daily growth with a 5% lift.
func DefaultForecastOptions() ForecastOptions {
	return ForecastOptions{Days: 30, DailyGrowth: 0.001, UpliftFactor: 1.05}
}

// ForecastPoint is one entity-day of the forecast table.
type ForecastPoint struct {
	EntityID   string    `json:"customer_id"`
	Date       time.Time `json:"date"`
	Historical int64     `json:"historical_clv"`
	Forecast   int64     `json:"forecast_clv"`
}

// MonthStart returns midnight on the first day of now's month.
func MonthStart(now time.Time) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
}

// Forecast projects every entity with positive CLV over opts.Days days
// starting at start: historical = CLV*(1+g)^i and forecast = historical*lift,
// both rounded half to even.
func Forecast(table *model.ScoredTable, start time.Time, opts ForecastOptions) ([]ForecastPoint, error) {
	if err := table.Require("forecast", model.CapPrediction); err != nil {
		return nil, err
	}

	var out []ForecastPoint
	for _, e := range table.Entities {
		if !(e.CLV > 0) || math.IsInf(e.CLV, 0) {
			continue
		}
		for i := 0; i < opts.Days; i++ {
			historical := e.CLV * math.Pow(1+opts.DailyGrowth, float64(i))
			out = append(out, ForecastPoint{
				EntityID:   e.EntityID,
				Date:       start.AddDate(0, 0, i),
				Historical: int64(math.RoundToEven(historical)),
				Forecast:   int64(math.RoundToEven(historical * opts.UpliftFactor)),
			})
		}
	}
	return out, nil
}
