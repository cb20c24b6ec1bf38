package model

// Method selects how forecasts are produced.
type Method string

const (
	MethodEnsemble      Method = "ensemble"
	MethodLinear        Method = "linear"
	MethodRandomForest  Method = "random_forest"
	MethodMovingAverage Method = "moving_average"
)

// Methods lists the forecasting methods with dedicated behavior. Any other
// value falls back to the whole-series mean.
var Methods = []Method{MethodEnsemble, MethodLinear, MethodRandomForest, MethodMovingAverage}

// Trend labels the direction of a forecast relative to recent history.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// ForecastRecord is one predicted day.
type ForecastRecord struct {
	Date          string  `json:"date"`
	PredictedCost float64 `json:"predicted_cost"`
}

// ForecastStats summarizes a forecast against recent history.
type ForecastStats struct {
	RecentAvgCost    float64 `json:"recent_avg_cost"`
	PredictedAvgCost float64 `json:"predicted_avg_cost"`
	Trend            Trend   `json:"trend"`
	HistoricalDays   int     `json:"historical_days"`
	PredictionDays   int     `json:"prediction_days"`
	Method           Method  `json:"method"`
}

// Forecast is the output of the forecaster.
type Forecast struct {
	Predictions []ForecastRecord `json:"predictions"`
	Stats       ForecastStats    `json:"statistics"`
}
