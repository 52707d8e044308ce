package contracts

import "time"

// RiskLevel is the ordinal band a final score maps into.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskElevated RiskLevel = "ELEVATED"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// SignalContribution is one signal's share of the base score.
type SignalContribution struct {
	Type             SignalType `json:"type"`
	PredictiveWeight int        `json:"predictive_weight"`
	Severity         int        `json:"severity"`
	Contribution     float64    `json:"contribution"`
	Date             string     `json:"date"`
}

// CombinationMatch records a detected multi-signal pattern.
type CombinationMatch struct {
	Pattern     string       `json:"pattern"`
	Signals     []SignalType `json:"signals"`
	Multiplier  float64      `json:"multiplier"`
	Description string       `json:"description"`
	RiskLevel   RiskLevel    `json:"risk_level"`
}

// VelocityInfo describes the signal accumulation rate in the trailing
// 90-day window and the multiplier it earned.
type VelocityInfo struct {
	Velocity        string  `json:"velocity"` // LOW, HIGH, EXTREME
	Multiplier      float64 `json:"multiplier"`
	SignalsIn90Days int     `json:"signals_per_90_days"`
	Description     string  `json:"description,omitempty"`
}

// RiskAssessment is the fully explained output of the risk scorer. It is
// recomputed from scratch on every call, never incrementally mutated.
type RiskAssessment struct {
	Subject string    `json:"subject"`
	AsOf    time.Time `json:"as_of"` // the "now" the windows were computed against

	FinalScore       int       `json:"final_score"` // 0-100
	Level            RiskLevel `json:"level"`
	BaseScore        int       `json:"base_score"`
	CombinationBonus int       `json:"combination_bonus"`
	VelocityBonus    int       `json:"velocity_bonus"`
	FloorApplied     bool      `json:"floor_applied"` // bankruptcy floor raised the score

	SignalBreakdown      []SignalContribution `json:"signal_breakdown"` // sorted by contribution desc
	CombinationsDetected []CombinationMatch   `json:"combinations_detected"`
	VelocityInfo         VelocityInfo         `json:"velocity_info"`
	Notes                string               `json:"notes,omitempty"`
}
