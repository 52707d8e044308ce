package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
	"github.com/manoharb30/insight-lookinsight/internal/signalconfig"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

func newTestDeduplicator(t *testing.T) *Deduplicator {
	t.Helper()
	return New(signalconfig.Default(), logger.Discard())
}

func sig(st contracts.SignalType, date string, severity int, evidence string) contracts.VerifiedSignal {
	return contracts.VerifiedSignal{
		CandidateSignal: contracts.CandidateSignal{
			Type:       st,
			Severity:   severity,
			Confidence: 0.9,
			EventDate:  date,
			FilingDate: date,
		},
		Evidence:         evidence,
		EvidenceVerified: true,
		MatchQuality:     contracts.MatchExact,
	}
}

func TestDeduplicate_OngoingKeepsEarliest(t *testing.T) {
	d := newTestDeduplicator(t)

	result := d.Deduplicate([]contracts.VerifiedSignal{
		sig(contracts.GoingConcern, "2024-06-01", 9, "substantial doubt about the ability to continue as a going concern"),
		sig(contracts.GoingConcern, "2024-01-05", 9, "substantial doubt about the ability to continue as a going concern"),
	})

	require.Len(t, result.Unique, 1)
	assert.Equal(t, "2024-01-05", result.Unique[0].Date())
	assert.Equal(t, 1, result.RemovedCount)
	assert.Equal(t, 1, result.ByType[contracts.GoingConcern])
}

func TestDeduplicate_DiscreteWithinWindowKeepsHigherSeverity(t *testing.T) {
	d := newTestDeduplicator(t)

	// 19 days apart, same discrete event. The later detection carries the
	// termination language that normalizes higher.
	result := d.Deduplicate([]contracts.VerifiedSignal{
		sig(contracts.CEODeparture, "2024-01-01", 6, "the chief executive officer resigned from the company"),
		sig(contracts.CEODeparture, "2024-01-20", 8, "the chief executive officer was terminated effective immediately"),
	})

	require.Len(t, result.Unique, 1)
	assert.Equal(t, "2024-01-20", result.Unique[0].Date())
	assert.Equal(t, 1, result.RemovedCount)
}

func TestDeduplicate_DiscreteOutsideWindowKeepsBoth(t *testing.T) {
	d := newTestDeduplicator(t)

	// 152 days apart: two separate departures.
	result := d.Deduplicate([]contracts.VerifiedSignal{
		sig(contracts.CEODeparture, "2024-01-01", 6, "the chief executive officer resigned from the company"),
		sig(contracts.CEODeparture, "2024-06-01", 6, "the new chief executive officer resigned from the company"),
	})

	require.Len(t, result.Unique, 2)
	assert.Equal(t, 0, result.RemovedCount)
	assert.Equal(t, 2, result.ByType[contracts.CEODeparture])
}

func TestDeduplicate_TieKeepsEarlier(t *testing.T) {
	d := newTestDeduplicator(t)

	result := d.Deduplicate([]contracts.VerifiedSignal{
		sig(contracts.MassLayoffs, "2024-03-15", 7, "the company announced a workforce reduction affecting many employees"),
		sig(contracts.MassLayoffs, "2024-03-01", 7, "the company announced a workforce reduction affecting many employees"),
	})

	require.Len(t, result.Unique, 1)
	assert.Equal(t, "2024-03-01", result.Unique[0].Date())
}

func TestDeduplicate_DatelessNeverMerged(t *testing.T) {
	d := newTestDeduplicator(t)

	result := d.Deduplicate([]contracts.VerifiedSignal{
		sig(contracts.AssetSale, "2024-02-01", 5, "the company completed the sale of its logistics division"),
		sig(contracts.AssetSale, "", 5, "the company agreed to divest certain non-core assets"),
		sig(contracts.AssetSale, "not-a-date", 5, "the company entered into a disposition agreement"),
	})

	assert.Len(t, result.Unique, 3)
	assert.Equal(t, 0, result.RemovedCount)
}

func TestDeduplicate_Idempotent(t *testing.T) {
	d := newTestDeduplicator(t)

	input := []contracts.VerifiedSignal{
		sig(contracts.GoingConcern, "2024-01-05", 9, "substantial doubt about the ability to continue as a going concern"),
		sig(contracts.GoingConcern, "2024-06-01", 9, "substantial doubt about the ability to continue as a going concern"),
		sig(contracts.CEODeparture, "2024-01-01", 6, "the chief executive officer resigned from the company"),
		sig(contracts.CEODeparture, "2024-01-20", 8, "the chief executive officer was terminated effective immediately"),
		sig(contracts.MassLayoffs, "2024-04-10", 7, "a reduction in force impacting 30% of positions across the company"),
	}

	first := d.Deduplicate(input)
	second := d.Deduplicate(first.Unique)

	assert.Equal(t, len(first.Unique), len(second.Unique))
	assert.Equal(t, 0, second.RemovedCount)
	assert.Equal(t, first.Unique, second.Unique)
}

func TestDeduplicate_InputNotMutated(t *testing.T) {
	d := newTestDeduplicator(t)

	input := []contracts.VerifiedSignal{
		sig(contracts.CEODeparture, "2024-01-20", 6, "the chief executive officer was terminated effective immediately"),
	}

	_ = d.Deduplicate(input)
	assert.Equal(t, 6, input[0].Severity)
}

func TestNormalizeSeverity(t *testing.T) {
	d := newTestDeduplicator(t)

	tests := []struct {
		name     string
		signal   contracts.VerifiedSignal
		expected int
	}{
		{
			name:     "base severity only",
			signal:   sig(contracts.CEODeparture, "2024-01-01", 6, "the chief executive officer resigned"),
			expected: 6,
		},
		{
			name:     "terminated and immediate stack",
			signal:   sig(contracts.CEODeparture, "2024-01-01", 6, "the chief executive officer was terminated effective immediately"),
			expected: 9,
		},
		{
			name:     "layoff percentage top tier",
			signal:   sig(contracts.MassLayoffs, "2024-01-01", 7, "a reduction of approximately 35% of the workforce"),
			expected: 9,
		},
		{
			name:     "layoff percentage middle tier",
			signal:   sig(contracts.MassLayoffs, "2024-01-01", 7, "a reduction of approximately 22% of the workforce"),
			expected: 8,
		},
		{
			name:     "going concern with substantial doubt",
			signal:   sig(contracts.GoingConcern, "2024-01-01", 9, "substantial doubt about its ability to continue"),
			expected: 10, // 9 base + 1 + 1, clamped
		},
		{
			name:     "generator far above computed gets single bump",
			signal:   sig(contracts.BoardResignation, "2024-01-01", 10, "a director resigned from the board"),
			expected: 5, // base 4, reported 10 > 4+2, bump to 5
		},
		{
			name:     "clamped at ten",
			signal:   sig(contracts.BankruptcyFiling, "2024-01-01", 10, "filed a voluntary petition under chapter 11"),
			expected: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, d.NormalizeSeverity(tt.signal))
		})
	}
}
