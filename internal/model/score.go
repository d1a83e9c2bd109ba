package model

import "time"

// ScoreRecord is one completed analysis cycle for a product. Records are append-only.
type ScoreRecord struct {
	Product   string
	Timestamp time.Time
	Score     float64
}

// Horizon is a lookback window and the weight of its percent change in the movement score.
type Horizon struct {
	Hours  int
	Weight float64
}

// Lookback returns the horizon as a duration.
func (h Horizon) Lookback() time.Duration {
	return time.Duration(h.Hours) * time.Hour
}

// WeightSet is the fixed set of horizons used to compute a movement score.
type WeightSet []Horizon

// FlashRule is a parsed "<percent> in <duration>" threshold.
type FlashRule struct {
	Threshold float64 // absolute fraction, 0.05 == 5%
	Window    time.Duration
	Raw       string
}

// FlashDirection names the sign of a flash event.
type FlashDirection string

const (
	FlashRally FlashDirection = "rally"
	FlashCrash FlashDirection = "crash"
)

// FlashEvent is raised when a rule's threshold is met or exceeded.
type FlashEvent struct {
	Direction     FlashDirection
	PercentChange float64
	Rule          FlashRule
}
