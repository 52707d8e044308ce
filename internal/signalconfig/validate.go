package signalconfig

import (
	"fmt"
)

// ValidationError reports an incoherent table entry. Tables are validated
// once at startup; a failure aborts the program.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the tables for internal coherence: every type in the
// closed set has a base severity, a predictive weight, a dedup class and a
// Stage-A rule; combination members are known types; multipliers and
// thresholds are sane.
func Validate(t *Tables) error {
	for st, sev := range t.BaseSeverity {
		if sev < 1 || sev > 10 {
			return ValidationError{fmt.Sprintf("base_severity[%s]", st), "must be in [1,10]"}
		}
		if _, ok := t.PredictiveWeights[st]; !ok {
			return ValidationError{fmt.Sprintf("predictive_weights[%s]", st), "missing"}
		}
		if _, ok := t.Rules[st]; !ok {
			return ValidationError{fmt.Sprintf("rules[%s]", st), "missing"}
		}
	}

	for st, w := range t.PredictiveWeights {
		if w < 1 || w > 10 {
			return ValidationError{fmt.Sprintf("predictive_weights[%s]", st), "must be in [1,10]"}
		}
		if !t.IsKnownType(st) {
			return ValidationError{fmt.Sprintf("predictive_weights[%s]", st), "unknown signal type"}
		}
	}

	for st := range t.Ongoing {
		if !t.IsKnownType(st) {
			return ValidationError{fmt.Sprintf("ongoing[%s]", st), "unknown signal type"}
		}
	}

	for _, combo := range t.Combinations {
		if combo.Multiplier <= 1.0 {
			return ValidationError{fmt.Sprintf("combinations[%s].multiplier", combo.Name), "must be > 1.0"}
		}
		if len(combo.Signals) < 2 {
			return ValidationError{fmt.Sprintf("combinations[%s].signals", combo.Name), "needs at least 2 types"}
		}
		for _, st := range combo.Signals {
			if !t.IsKnownType(st) {
				return ValidationError{fmt.Sprintf("combinations[%s]", combo.Name), fmt.Sprintf("unknown signal type %s", st)}
			}
		}
	}

	for _, v := range t.Velocity {
		if v.Multiplier <= 1.0 {
			return ValidationError{fmt.Sprintf("velocity[%s].multiplier", v.Name), "must be > 1.0"}
		}
		if v.MinSignals < 1 {
			return ValidationError{fmt.Sprintf("velocity[%s].min_signals", v.Name), "must be >= 1"}
		}
	}

	th := t.Thresholds
	if th.MinConfidence < 0 || th.MinConfidence > 1 {
		return ValidationError{"thresholds.min_confidence", "must be in [0,1]"}
	}
	if th.MinEvidenceLength <= 0 || th.MaxEvidenceLength <= th.MinEvidenceLength {
		return ValidationError{"thresholds.evidence_length", "min must be positive and below max"}
	}
	if th.BaseScoreCap <= 0 || th.BaseScoreCap > 100 {
		return ValidationError{"thresholds.base_score_cap", "must be in (0,100]"}
	}
	if th.BankruptcyFloor < 0 || th.BankruptcyFloor > 100 {
		return ValidationError{"thresholds.bankruptcy_floor", "must be in [0,100]"}
	}

	return nil
}
