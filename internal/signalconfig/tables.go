package signalconfig

import (
	"regexp"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
)

// Tables bundles every weight and rule table the pipeline consumes.
// Components receive a *Tables at construction instead of reaching for
// globals, so tests can run against alternative tables.
type Tables struct {
	BaseSeverity      map[contracts.SignalType]int
	PredictiveWeights map[contracts.SignalType]int
	DefaultWeight     int
	SeverityModifiers map[contracts.SignalType][]SeverityModifier
	Ongoing           map[contracts.SignalType]bool
	Combinations      []Combination
	Velocity          []VelocityThreshold
	Rules             map[contracts.SignalType]ValidationRule
	Thresholds        Thresholds
}

// SeverityModifier is a declarative (pattern, points) pair. Patterns are
// matched case-insensitively against evidence text and their points summed.
// PercentTiers handles the layoff-percentage rule: the first capture group
// is parsed as an integer and the highest tier at or below it applies.
type SeverityModifier struct {
	Pattern      *regexp.Regexp
	Points       int
	PercentTiers []PercentTier
}

// PercentTier maps a minimum captured percentage to bonus points.
type PercentTier struct {
	MinPercent int
	Points     int
}

// Combination names a multi-signal pattern that is disproportionately
// predictive when every required type appears in the recent window.
type Combination struct {
	Name        string
	Signals     []contracts.SignalType
	Multiplier  float64
	Description string
	RiskLevel   contracts.RiskLevel
}

// VelocityThreshold maps a trailing-window signal count to a multiplier.
type VelocityThreshold struct {
	Name        string
	MinSignals  int
	WindowDays  int
	Multiplier  float64
	Description string
}

// Thresholds holds scalar knobs shared across stages.
type Thresholds struct {
	MinConfidence      float64
	MinEvidenceLength  int
	MinWordCount       int
	MaxEvidenceLength  int
	DedupWindowDays    int
	CombinationWindow  int // days
	VelocityWindowDays int
	BaseScoreCap       float64
	CombinationCap     float64
	VelocityCap        float64
	BankruptcyFloor    int
}

// Default returns the production tables. The values are deliberately plain
// data: no executable code lives in configuration.
func Default() *Tables {
	return &Tables{
		BaseSeverity: map[contracts.SignalType]int{
			contracts.BankruptcyFiling:  10,
			contracts.GoingConcern:      9,
			contracts.DebtDefault:       8,
			contracts.DelistingWarning:  8,
			contracts.MassLayoffs:       7,
			contracts.CovenantViolation: 7,
			contracts.SECInvestigation:  7,
			contracts.CEODeparture:      6,
			contracts.CFODeparture:      6,
			contracts.AuditorChange:     6,
			contracts.CreditDowngrade:   6,
			contracts.Restructuring:     5,
			contracts.AssetSale:         5,
			contracts.MaterialWeakness:  4,
			contracts.BoardResignation:  4,
			contracts.EquityDilution:    4,
		},

		// Predictive weight measures how far ahead of a bankruptcy the
		// signal tends to appear, not how severe it reads. CFO departures
		// and auditor changes lead by 12-24 months; an actual filing has
		// almost no predictive value because it already happened.
		PredictiveWeights: map[contracts.SignalType]int{
			contracts.CFODeparture:      9,
			contracts.AuditorChange:     8,
			contracts.CovenantViolation: 8,
			contracts.MaterialWeakness:  7,
			contracts.MassLayoffs:       7,
			contracts.CEODeparture:      6,
			contracts.Restructuring:     6,
			contracts.CreditDowngrade:   6,
			contracts.SECInvestigation:  6,
			contracts.GoingConcern:      5,
			contracts.DebtDefault:       5,
			contracts.DelistingWarning:  4,
			contracts.AssetSale:         4,
			contracts.EquityDilution:    4,
			contracts.BoardResignation:  3,
			contracts.BankruptcyFiling:  2,
		},
		DefaultWeight: 3,

		SeverityModifiers: map[contracts.SignalType][]SeverityModifier{
			contracts.MassLayoffs: {
				{Pattern: regexp.MustCompile(`(?i)(\d{2,})%`), PercentTiers: []PercentTier{
					{MinPercent: 30, Points: 2},
					{MinPercent: 20, Points: 1},
				}},
				{Pattern: regexp.MustCompile(`(?i)immediately`), Points: 1},
			},
			contracts.CEODeparture: {
				{Pattern: regexp.MustCompile(`(?i)terminated`), Points: 2},
				{Pattern: regexp.MustCompile(`(?i)immediate`), Points: 1},
				{Pattern: regexp.MustCompile(`(?i)disagreement`), Points: 2},
			},
			contracts.CFODeparture: {
				{Pattern: regexp.MustCompile(`(?i)terminated`), Points: 2},
				{Pattern: regexp.MustCompile(`(?i)immediate`), Points: 1},
				{Pattern: regexp.MustCompile(`(?i)disagreement`), Points: 2},
			},
			contracts.DebtDefault: {
				{Pattern: regexp.MustCompile(`(?i)acceleration`), Points: 2},
				{Pattern: regexp.MustCompile(`(?i)cross.?default`), Points: 2},
				{Pattern: regexp.MustCompile(`(?i)event of default`), Points: 1},
			},
			contracts.GoingConcern: {
				{Pattern: regexp.MustCompile(`(?i)substantial doubt`), Points: 1},
				{Pattern: regexp.MustCompile(`(?i)ability to continue`), Points: 1},
			},
		},

		// Ongoing conditions persist until explicitly resolved, so repeat
		// disclosures are the same event. Everything else is discrete.
		Ongoing: map[contracts.SignalType]bool{
			contracts.GoingConcern:      true,
			contracts.MaterialWeakness:  true,
			contracts.Restructuring:     true,
			contracts.CovenantViolation: true,
			contracts.DelistingWarning:  true,
		},

		Combinations: []Combination{
			{
				Name:        "INSIDER_FLIGHT",
				Signals:     []contracts.SignalType{contracts.CFODeparture, contracts.AuditorChange},
				Multiplier:  1.5,
				Description: "CFO and auditor both exiting - insiders fleeing",
				RiskLevel:   contracts.RiskCritical,
			},
			{
				Name:        "FINANCIAL_COLLAPSE",
				Signals:     []contracts.SignalType{contracts.CovenantViolation, contracts.DebtDefault},
				Multiplier:  1.5,
				Description: "Covenant breach followed by default - debt spiral",
				RiskLevel:   contracts.RiskCritical,
			},
			{
				Name:        "LEADERSHIP_CRISIS",
				Signals:     []contracts.SignalType{contracts.CEODeparture, contracts.CFODeparture},
				Multiplier:  1.4,
				Description: "Both CEO and CFO leaving - leadership vacuum",
				RiskLevel:   contracts.RiskHigh,
			},
			{
				Name:        "CONFIRMED_DISTRESS",
				Signals:     []contracts.SignalType{contracts.GoingConcern, contracts.Restructuring},
				Multiplier:  1.5,
				Description: "Auditor warning plus restructuring - confirmed crisis",
				RiskLevel:   contracts.RiskCritical,
			},
			{
				Name:        "OPERATIONAL_MELTDOWN",
				Signals:     []contracts.SignalType{contracts.MassLayoffs, contracts.Restructuring},
				Multiplier:  1.3,
				Description: "Layoffs plus restructuring - deep operational cuts",
				RiskLevel:   contracts.RiskHigh,
			},
			{
				Name:        "CASH_CRISIS",
				Signals:     []contracts.SignalType{contracts.MassLayoffs, contracts.EquityDilution},
				Multiplier:  1.3,
				Description: "Cutting staff and raising equity - cash desperation",
				RiskLevel:   contracts.RiskHigh,
			},
			{
				Name:        "ACCOUNTING_RED_FLAG",
				Signals:     []contracts.SignalType{contracts.AuditorChange, contracts.MaterialWeakness},
				Multiplier:  1.4,
				Description: "Auditor change plus material weakness - accounting issues",
				RiskLevel:   contracts.RiskHigh,
			},
			{
				Name:        "DELISTING_SPIRAL",
				Signals:     []contracts.SignalType{contracts.DelistingWarning, contracts.MassLayoffs, contracts.CFODeparture},
				Multiplier:  1.6,
				Description: "Delisting warning with layoffs and CFO exit - collapse imminent",
				RiskLevel:   contracts.RiskCritical,
			},
			{
				Name:        "TRIPLE_THREAT",
				Signals:     []contracts.SignalType{contracts.CFODeparture, contracts.CovenantViolation, contracts.MassLayoffs},
				Multiplier:  1.8,
				Description: "CFO exits + covenant breach + layoffs - imminent collapse",
				RiskLevel:   contracts.RiskCritical,
			},
		},

		Velocity: []VelocityThreshold{
			{
				Name:        "EXTREME",
				MinSignals:  5,
				WindowDays:  90,
				Multiplier:  1.5,
				Description: "5+ signals in 90 days indicates crisis",
			},
			{
				Name:        "HIGH",
				MinSignals:  3,
				WindowDays:  90,
				Multiplier:  1.3,
				Description: "3+ signals in 90 days indicates rapid deterioration",
			},
		},

		Rules: defaultRules(),

		Thresholds: Thresholds{
			MinConfidence:      0.6,
			MinEvidenceLength:  50,
			MinWordCount:       10,
			MaxEvidenceLength:  500,
			DedupWindowDays:    90,
			CombinationWindow:  180,
			VelocityWindowDays: 90,
			BaseScoreCap:       70,
			CombinationCap:     30,
			VelocityCap:        15,
			BankruptcyFloor:    90,
		},
	}
}

// IsOngoing reports whether the type's dedup policy is earliest-wins.
func (t *Tables) IsOngoing(st contracts.SignalType) bool {
	return t.Ongoing[st]
}

// Weight returns the predictive weight for a type, falling back to the
// default for types outside the table.
func (t *Tables) Weight(st contracts.SignalType) int {
	if w, ok := t.PredictiveWeights[st]; ok {
		return w
	}
	return t.DefaultWeight
}

// IsKnownType reports membership in the closed signal-type set.
func (t *Tables) IsKnownType(st contracts.SignalType) bool {
	_, ok := t.BaseSeverity[st]
	return ok
}
