package score

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
	"github.com/manoharb30/insight-lookinsight/internal/signalconfig"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

// Scorer turns a deduplicated signal set into an explainable 0-100 risk
// assessment. Scoring is a pure function of the set and the caller's clock:
// the same inputs always produce the same assessment.
type Scorer struct {
	tables *signalconfig.Tables
	logger *logger.Logger
}

// NewScorer creates a risk scorer over the given tables.
func NewScorer(tables *signalconfig.Tables, log *logger.Logger) *Scorer {
	return &Scorer{tables: tables, logger: log}
}

// Score computes the assessment for a signal set as of the given time.
// Window checks (combinations, velocity) are relative to now, never to the
// wall clock, so historical sets can be rescored reproducibly.
func (s *Scorer) Score(set *contracts.SignalSet, now time.Time) *contracts.RiskAssessment {
	assessment := &contracts.RiskAssessment{
		Subject: set.Subject,
		AsOf:    now,
		Level:   contracts.RiskLow,
		VelocityInfo: contracts.VelocityInfo{
			Velocity:   "LOW",
			Multiplier: 1.0,
		},
	}

	if set.Count() == 0 {
		assessment.Notes = "no distress signals detected"
		return assessment
	}

	breakdown := s.contributions(set)
	base := s.baseScore(breakdown)

	combos := s.detectCombinations(set, now)
	comboBonus := 0.0
	if len(combos) > 0 {
		maxMult := 1.0
		for _, c := range combos {
			if c.Multiplier > maxMult {
				maxMult = c.Multiplier
			}
		}
		comboBonus = math.Min(s.tables.Thresholds.CombinationCap, base*(maxMult-1))
	}

	velocity := s.measureVelocity(set, now)
	velocityBonus := 0.0
	if velocity.Multiplier > 1.0 {
		velocityBonus = math.Min(s.tables.Thresholds.VelocityCap, base*(velocity.Multiplier-1))
	}

	final := int(math.Round(base + comboBonus + velocityBonus))
	if final > 100 {
		final = 100
	}

	// An actual bankruptcy filing is not a prediction to be weighed, it is
	// the outcome. The score floor overrides the predictive arithmetic.
	if set.HasType(contracts.BankruptcyFiling) && final < s.tables.Thresholds.BankruptcyFloor {
		final = s.tables.Thresholds.BankruptcyFloor
		assessment.FloorApplied = true
	}

	assessment.FinalScore = final
	assessment.Level = levelFor(final)
	assessment.BaseScore = int(math.Round(base))
	assessment.CombinationBonus = int(math.Round(comboBonus))
	assessment.VelocityBonus = int(math.Round(velocityBonus))
	assessment.SignalBreakdown = breakdown
	assessment.CombinationsDetected = combos
	assessment.VelocityInfo = velocity
	assessment.Notes = s.buildNotes(assessment, set)

	s.logger.WithFields(map[string]interface{}{
		"subject": set.Subject,
		"score":   final,
		"level":   assessment.Level,
		"signals": set.Count(),
	}).Info("Risk assessment computed")

	return assessment
}

// contributions computes each signal's predictive-weighted share, sorted by
// contribution descending for the report.
func (s *Scorer) contributions(set *contracts.SignalSet) []contracts.SignalContribution {
	breakdown := make([]contracts.SignalContribution, 0, set.Count())
	for i := range set.Signals {
		sig := &set.Signals[i]
		weight := s.tables.Weight(sig.Type)
		breakdown = append(breakdown, contracts.SignalContribution{
			Type:             sig.Type,
			PredictiveWeight: weight,
			Severity:         sig.Severity,
			Contribution:     float64(weight) * float64(sig.Severity) / 10.0,
			Date:             sig.Date(),
		})
	}

	sort.SliceStable(breakdown, func(i, j int) bool {
		return breakdown[i].Contribution > breakdown[j].Contribution
	})
	return breakdown
}

// baseScore normalizes total contribution by the maximum possible for the
// set size, then caps it. The cap leaves headroom so that combination and
// velocity bonuses remain meaningful.
func (s *Scorer) baseScore(breakdown []contracts.SignalContribution) float64 {
	total := 0.0
	for _, c := range breakdown {
		total += c.Contribution
	}

	n := float64(len(breakdown))
	base := total / (n * 10.0) * 100.0
	return math.Min(s.tables.Thresholds.BaseScoreCap, base)
}

// detectCombinations finds every configured pattern whose member types all
// appear within the combination window before now. Undated signals never
// satisfy a window.
func (s *Scorer) detectCombinations(set *contracts.SignalSet, now time.Time) []contracts.CombinationMatch {
	window := time.Duration(s.tables.Thresholds.CombinationWindow) * 24 * time.Hour

	recent := make(map[contracts.SignalType]bool)
	for i := range set.Signals {
		sig := &set.Signals[i]
		date, ok := sig.ParsedDate()
		if !ok {
			continue
		}
		age := now.Sub(date)
		if age >= 0 && age <= window {
			recent[sig.Type] = true
		}
	}

	var matches []contracts.CombinationMatch
	for _, combo := range s.tables.Combinations {
		all := true
		for _, st := range combo.Signals {
			if !recent[st] {
				all = false
				break
			}
		}
		if !all {
			continue
		}
		matches = append(matches, contracts.CombinationMatch{
			Pattern:     combo.Name,
			Signals:     combo.Signals,
			Multiplier:  combo.Multiplier,
			Description: combo.Description,
			RiskLevel:   combo.RiskLevel,
		})
	}
	return matches
}

// measureVelocity counts dated signals inside the trailing window and maps
// the count onto the first (highest) matching threshold.
func (s *Scorer) measureVelocity(set *contracts.SignalSet, now time.Time) contracts.VelocityInfo {
	window := time.Duration(s.tables.Thresholds.VelocityWindowDays) * 24 * time.Hour

	count := 0
	for i := range set.Signals {
		date, ok := set.Signals[i].ParsedDate()
		if !ok {
			continue
		}
		age := now.Sub(date)
		if age >= 0 && age <= window {
			count++
		}
	}

	info := contracts.VelocityInfo{
		Velocity:        "LOW",
		Multiplier:      1.0,
		SignalsIn90Days: count,
	}
	for _, th := range s.tables.Velocity {
		if count >= th.MinSignals {
			info.Velocity = th.Name
			info.Multiplier = th.Multiplier
			info.Description = th.Description
			break
		}
	}
	return info
}

// buildNotes renders a short human-readable explanation of the assessment.
func (s *Scorer) buildNotes(a *contracts.RiskAssessment, set *contracts.SignalSet) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%d distress signal(s); base score %d", set.Count(), a.BaseScore)

	if len(a.CombinationsDetected) > 0 {
		names := make([]string, 0, len(a.CombinationsDetected))
		for _, c := range a.CombinationsDetected {
			names = append(names, c.Pattern)
		}
		fmt.Fprintf(&b, "; combinations: %s (+%d)", strings.Join(names, ", "), a.CombinationBonus)
	}
	if a.VelocityBonus > 0 {
		fmt.Fprintf(&b, "; velocity %s with %d signals in 90 days (+%d)",
			a.VelocityInfo.Velocity, a.VelocityInfo.SignalsIn90Days, a.VelocityBonus)
	}
	if a.FloorApplied {
		fmt.Fprintf(&b, "; bankruptcy filing floors the score at %d", s.tables.Thresholds.BankruptcyFloor)
	}

	return b.String()
}

func levelFor(score int) contracts.RiskLevel {
	switch {
	case score >= 70:
		return contracts.RiskCritical
	case score >= 50:
		return contracts.RiskHigh
	case score >= 30:
		return contracts.RiskElevated
	default:
		return contracts.RiskLow
	}
}
