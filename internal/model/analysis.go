package model

// Level classifies a day's cost against the series mean and std.
type Level string

const (
	LevelHigh   Level = "high"
	LevelNormal Level = "normal"
	LevelLow    Level = "low"
)

// Description is the human label shown next to a level.
func (l Level) Description() string {
	switch l {
	case LevelHigh:
		return "above normal range"
	case LevelLow:
		return "below normal range"
	default:
		return "within normal range"
	}
}

// CostStats holds whole-series summary statistics.
type CostStats struct {
	Mean      float64 `json:"mean"`
	Median    float64 `json:"median"`
	Std       float64 `json:"std"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	TotalDays int     `json:"total_days"`
}

// LevelRecord is the classification of a single day.
type LevelRecord struct {
	Date         string  `json:"date"`
	Cost         float64 `json:"cost"`
	Level        Level   `json:"level"`
	Description  string  `json:"description"`
	DeviationPct float64 `json:"deviation_pct"`
	// DeviationUndefined is set when the series mean is zero and
	// DeviationPct carries the placeholder 0.
	DeviationUndefined bool `json:"deviation_undefined,omitempty"`
}

// Analysis is the output of level classification.
type Analysis struct {
	Records []LevelRecord `json:"daily_analysis"`
	Stats   CostStats     `json:"statistics"`
}

// AnomalyStatus marks the direction of an anomalous deviation.
type AnomalyStatus string

const (
	AnomalyHigh AnomalyStatus = "high"
	AnomalyLow  AnomalyStatus = "low"
)

// AnomalyRecord is a day whose z-score magnitude exceeded the threshold.
type AnomalyRecord struct {
	Date   string        `json:"date"`
	Cost   float64       `json:"cost"`
	ZScore float64       `json:"z_score"`
	Status AnomalyStatus `json:"status"`
}
