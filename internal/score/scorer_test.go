package score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
	"github.com/manoharb30/insight-lookinsight/internal/signalconfig"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	return NewScorer(signalconfig.Default(), logger.Discard())
}

func validated(st contracts.SignalType, date string, severity int) contracts.ValidatedSignal {
	return contracts.ValidatedSignal{
		VerifiedSignal: contracts.VerifiedSignal{
			CandidateSignal: contracts.CandidateSignal{
				Type:       st,
				Severity:   severity,
				Confidence: 0.9,
				EventDate:  date,
				FilingDate: date,
			},
			EvidenceVerified: true,
			MatchQuality:     contracts.MatchExact,
		},
		Validated: true,
		Outcome:   contracts.OutcomeAccepted,
	}
}

func signalSet(signals ...contracts.ValidatedSignal) *contracts.SignalSet {
	return &contracts.SignalSet{
		Subject: "ACME",
		Signals: signals,
		BuiltAt: time.Now(),
	}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(contracts.DateLayout, s)
	require.NoError(t, err)
	return d
}

func TestScore_EmptySet(t *testing.T) {
	s := newTestScorer(t)

	a := s.Score(signalSet(), mustDate(t, "2024-06-01"))

	assert.Equal(t, 0, a.FinalScore)
	assert.Equal(t, contracts.RiskLow, a.Level)
	assert.Empty(t, a.SignalBreakdown)
	assert.Contains(t, a.Notes, "no distress signals")
}

func TestScore_SingleSignal(t *testing.T) {
	s := newTestScorer(t)

	// CFO departure: weight 9, severity 6 -> contribution 5.4, base 54.
	a := s.Score(signalSet(
		validated(contracts.CFODeparture, "2024-05-01", 6),
	), mustDate(t, "2024-06-01"))

	assert.Equal(t, 54, a.BaseScore)
	assert.Equal(t, 54, a.FinalScore)
	assert.Equal(t, contracts.RiskHigh, a.Level)
	assert.Empty(t, a.CombinationsDetected)
	assert.Equal(t, 0, a.CombinationBonus)
	require.Len(t, a.SignalBreakdown, 1)
	assert.Equal(t, 9, a.SignalBreakdown[0].PredictiveWeight)
	assert.InDelta(t, 5.4, a.SignalBreakdown[0].Contribution, 1e-9)
}

func TestScore_InsiderFlightCombination(t *testing.T) {
	s := newTestScorer(t)

	// CFO (9*6/10=5.4) + auditor change (8*6/10=4.8): base 51, INSIDER_FLIGHT
	// 1.5x adds min(30, 51*0.5)=25.5, final rounds to 77.
	a := s.Score(signalSet(
		validated(contracts.CFODeparture, "2024-04-01", 6),
		validated(contracts.AuditorChange, "2024-05-01", 6),
	), mustDate(t, "2024-06-01"))

	assert.Equal(t, 51, a.BaseScore)
	require.Len(t, a.CombinationsDetected, 1)
	assert.Equal(t, "INSIDER_FLIGHT", a.CombinationsDetected[0].Pattern)
	assert.Equal(t, 26, a.CombinationBonus)
	assert.Equal(t, 77, a.FinalScore)
	assert.Equal(t, contracts.RiskCritical, a.Level)
}

func TestScore_CombinationWindowExpires(t *testing.T) {
	s := newTestScorer(t)

	// Auditor change is over 180 days before now: no combination.
	a := s.Score(signalSet(
		validated(contracts.CFODeparture, "2024-05-01", 6),
		validated(contracts.AuditorChange, "2023-09-01", 6),
	), mustDate(t, "2024-06-01"))

	assert.Empty(t, a.CombinationsDetected)
	assert.Equal(t, 0, a.CombinationBonus)
}

func TestScore_VelocityExtreme(t *testing.T) {
	s := newTestScorer(t)

	// Five dated signals inside the 90-day window, no combination pattern
	// among them. Velocity EXTREME (1.5x) capped at +15.
	a := s.Score(signalSet(
		validated(contracts.GoingConcern, "2024-05-20", 9),
		validated(contracts.DebtDefault, "2024-05-10", 8),
		validated(contracts.CreditDowngrade, "2024-04-25", 6),
		validated(contracts.SECInvestigation, "2024-04-10", 7),
		validated(contracts.AssetSale, "2024-03-20", 5),
	), mustDate(t, "2024-06-01"))

	assert.Equal(t, "EXTREME", a.VelocityInfo.Velocity)
	assert.Equal(t, 5, a.VelocityInfo.SignalsIn90Days)
	assert.Equal(t, 1.5, a.VelocityInfo.Multiplier)
	assert.Equal(t, 15, a.VelocityBonus)
	assert.Equal(t, 52, a.FinalScore)
	assert.Equal(t, contracts.RiskHigh, a.Level)
}

func TestScore_VelocityHigh(t *testing.T) {
	s := newTestScorer(t)

	a := s.Score(signalSet(
		validated(contracts.GoingConcern, "2024-05-20", 9),
		validated(contracts.DebtDefault, "2024-05-10", 8),
		validated(contracts.CreditDowngrade, "2024-04-25", 6),
	), mustDate(t, "2024-06-01"))

	assert.Equal(t, "HIGH", a.VelocityInfo.Velocity)
	assert.Equal(t, 1.3, a.VelocityInfo.Multiplier)
}

func TestScore_BankruptcyFloor(t *testing.T) {
	s := newTestScorer(t)

	// A filing has weight 2: base is only 20, but the floor lifts it to 90.
	a := s.Score(signalSet(
		validated(contracts.BankruptcyFiling, "2024-05-01", 10),
	), mustDate(t, "2024-06-01"))

	assert.Equal(t, 20, a.BaseScore)
	assert.Equal(t, 90, a.FinalScore)
	assert.True(t, a.FloorApplied)
	assert.Equal(t, contracts.RiskCritical, a.Level)
	assert.Contains(t, a.Notes, "floors the score")
}

func TestScore_BoundsAndDeterminism(t *testing.T) {
	s := newTestScorer(t)
	now := mustDate(t, "2024-06-01")

	set := signalSet(
		validated(contracts.CFODeparture, "2024-05-25", 9),
		validated(contracts.AuditorChange, "2024-05-20", 8),
		validated(contracts.CovenantViolation, "2024-05-15", 8),
		validated(contracts.MassLayoffs, "2024-05-10", 9),
		validated(contracts.GoingConcern, "2024-05-05", 10),
		validated(contracts.DebtDefault, "2024-05-01", 9),
	)

	first := s.Score(set, now)
	second := s.Score(set, now)

	assert.GreaterOrEqual(t, first.FinalScore, 0)
	assert.LessOrEqual(t, first.FinalScore, 100)
	assert.LessOrEqual(t, first.BaseScore, 70)
	assert.LessOrEqual(t, first.CombinationBonus, 30)
	assert.LessOrEqual(t, first.VelocityBonus, 15)
	assert.Equal(t, first, second)
}

func TestScore_BreakdownSortedDescending(t *testing.T) {
	s := newTestScorer(t)

	a := s.Score(signalSet(
		validated(contracts.BoardResignation, "2024-05-01", 4), // 3*4/10 = 1.2
		validated(contracts.CFODeparture, "2024-05-02", 8),     // 9*8/10 = 7.2
		validated(contracts.AssetSale, "2024-05-03", 5),        // 4*5/10 = 2.0
	), mustDate(t, "2024-06-01"))

	require.Len(t, a.SignalBreakdown, 3)
	assert.Equal(t, contracts.CFODeparture, a.SignalBreakdown[0].Type)
	assert.Equal(t, contracts.AssetSale, a.SignalBreakdown[1].Type)
	assert.Equal(t, contracts.BoardResignation, a.SignalBreakdown[2].Type)
}

func TestScore_UndatedSignalsCountTowardBaseOnly(t *testing.T) {
	s := newTestScorer(t)

	// Undated signals contribute to the base but never to windows.
	a := s.Score(signalSet(
		validated(contracts.CFODeparture, "", 6),
		validated(contracts.AuditorChange, "", 6),
	), mustDate(t, "2024-06-01"))

	assert.Equal(t, 51, a.BaseScore)
	assert.Empty(t, a.CombinationsDetected)
	assert.Equal(t, 0, a.VelocityInfo.SignalsIn90Days)
}

func TestLevelBands(t *testing.T) {
	tests := []struct {
		score int
		want  contracts.RiskLevel
	}{
		{0, contracts.RiskLow},
		{29, contracts.RiskLow},
		{30, contracts.RiskElevated},
		{49, contracts.RiskElevated},
		{50, contracts.RiskHigh},
		{69, contracts.RiskHigh},
		{70, contracts.RiskCritical},
		{100, contracts.RiskCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, levelFor(tt.score), "score %d", tt.score)
	}
}
