package validate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
	"github.com/manoharb30/insight-lookinsight/internal/signalconfig"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

type fakeChecker struct {
	mu      sync.Mutex
	calls   int32
	active  int32
	peak    int32
	respond func(st contracts.SignalType, evidence string) (*contracts.ClassificationCheck, error)
}

func (f *fakeChecker) Check(ctx context.Context, st contracts.SignalType, evidence string, severity int, fc contracts.FilingContext) (*contracts.ClassificationCheck, error) {
	atomic.AddInt32(&f.calls, 1)
	cur := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)

	f.mu.Lock()
	if cur > f.peak {
		f.peak = cur
	}
	f.mu.Unlock()

	if f.respond != nil {
		return f.respond(st, evidence)
	}
	return &contracts.ClassificationCheck{IsValid: true, Confidence: 0.95}, nil
}

func verifiedSignal(st contracts.SignalType, evidence string) contracts.VerifiedSignal {
	return contracts.VerifiedSignal{
		CandidateSignal: contracts.CandidateSignal{
			Type:         st,
			Severity:     6,
			Confidence:   0.9,
			FilingDate:   "2024-03-01",
			DocumentType: "8-K",
			Person:       "Jordan Smith",
		},
		Evidence:         evidence,
		EvidenceVerified: true,
		MatchQuality:     contracts.MatchExact,
	}
}

func TestValidate_StageA(t *testing.T) {
	v := NewValidator(signalconfig.Default(), nil, logger.Discard(), 0)

	goodEvidence := "Jordan Smith notified the board of his decision to resign as chief executive officer of the company"

	tests := []struct {
		name       string
		mutate     func(*contracts.VerifiedSignal)
		wantReason string
	}{
		{
			name:   "clean signal accepted",
			mutate: func(s *contracts.VerifiedSignal) {},
		},
		{
			name:       "unknown type",
			mutate:     func(s *contracts.VerifiedSignal) { s.Type = "SOMETHING_ELSE" },
			wantReason: "unknown signal type",
		},
		{
			name:       "short evidence",
			mutate:     func(s *contracts.VerifiedSignal) { s.Evidence = "resigned" },
			wantReason: "evidence too short",
		},
		{
			name:       "low confidence",
			mutate:     func(s *contracts.VerifiedSignal) { s.Confidence = 0.4 },
			wantReason: "confidence 0.40 below minimum",
		},
		{
			name:       "severity out of range",
			mutate:     func(s *contracts.VerifiedSignal) { s.Severity = 11 },
			wantReason: "severity 11 outside",
		},
		{
			name:       "missing person for departure",
			mutate:     func(s *contracts.VerifiedSignal) { s.Person = "" },
			wantReason: "person required",
		},
		{
			name: "disqualifying phrase",
			mutate: func(s *contracts.VerifiedSignal) {
				s.Evidence = goodEvidence + " and a successor was appointed by the board"
			},
			wantReason: "disqualifying phrase",
		},
		{
			name: "no required phrase",
			mutate: func(s *contracts.VerifiedSignal) {
				s.Evidence = "the company held its annual meeting of stockholders in the normal course of business operations"
			},
			wantReason: "lacks any required phrase",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := verifiedSignal(contracts.CEODeparture, goodEvidence)
			tt.mutate(&sig)

			accepted, rejected := v.Validate(context.Background(), []contracts.VerifiedSignal{sig})

			if tt.wantReason == "" {
				require.Len(t, accepted, 1)
				assert.Empty(t, rejected)
				assert.Equal(t, contracts.OutcomeAccepted, accepted[0].Outcome)
				assert.True(t, accepted[0].Validated)
				return
			}

			require.Len(t, rejected, 1)
			assert.Empty(t, accepted)
			assert.Equal(t, "validation", rejected[0].Stage)
			assert.Contains(t, rejected[0].Reason, tt.wantReason)
		})
	}
}

func TestValidate_StageBRejects(t *testing.T) {
	checker := &fakeChecker{
		respond: func(st contracts.SignalType, evidence string) (*contracts.ClassificationCheck, error) {
			return &contracts.ClassificationCheck{
				IsValid:         false,
				RejectionReason: "describes a planned retirement, not a distress departure",
			}, nil
		},
	}
	v := NewValidator(signalconfig.Default(), checker, logger.Discard(), 2)

	sig := verifiedSignal(contracts.CEODeparture,
		"Jordan Smith notified the board of his decision to resign as chief executive officer of the company")

	accepted, rejected := v.Validate(context.Background(), []contracts.VerifiedSignal{sig})

	assert.Empty(t, accepted)
	require.Len(t, rejected, 1)
	assert.Contains(t, rejected[0].Reason, "planned retirement")
}

func TestValidate_StageBCorrections(t *testing.T) {
	corrected := contracts.BoardResignation
	severity := 4
	checker := &fakeChecker{
		respond: func(st contracts.SignalType, evidence string) (*contracts.ClassificationCheck, error) {
			return &contracts.ClassificationCheck{
				IsValid:           true,
				CorrectedType:     &corrected,
				CorrectedSeverity: &severity,
			}, nil
		},
	}
	v := NewValidator(signalconfig.Default(), checker, logger.Discard(), 2)

	sig := verifiedSignal(contracts.CEODeparture,
		"Jordan Smith notified the board of his decision to resign as chief executive officer of the company")

	accepted, rejected := v.Validate(context.Background(), []contracts.VerifiedSignal{sig})

	assert.Empty(t, rejected)
	require.Len(t, accepted, 1)
	assert.Equal(t, contracts.BoardResignation, accepted[0].Type)
	assert.Equal(t, contracts.CEODeparture, accepted[0].OriginalType)
	assert.Equal(t, 4, accepted[0].Severity)
	assert.Equal(t, 6, accepted[0].OriginalSeverity)
}

func TestValidate_FailOpenOnCheckerError(t *testing.T) {
	checker := &fakeChecker{
		respond: func(st contracts.SignalType, evidence string) (*contracts.ClassificationCheck, error) {
			return nil, errors.New("upstream 500")
		},
	}
	v := NewValidator(signalconfig.Default(), checker, logger.Discard(), 2)

	sig := verifiedSignal(contracts.CEODeparture,
		"Jordan Smith notified the board of his decision to resign as chief executive officer of the company")

	accepted, rejected := v.Validate(context.Background(), []contracts.VerifiedSignal{sig})

	assert.Empty(t, rejected)
	require.Len(t, accepted, 1)
	assert.Equal(t, contracts.OutcomeAcceptedWarn, accepted[0].Outcome)
	assert.Contains(t, accepted[0].ValidationNote, "classification check unavailable")
	// Non-retryable error: no backoff loop.
	assert.Equal(t, int32(1), checker.calls)
}

func TestValidate_RetriesRateLimits(t *testing.T) {
	var calls int32
	checker := &fakeChecker{
		respond: func(st contracts.SignalType, evidence string) (*contracts.ClassificationCheck, error) {
			if atomic.AddInt32(&calls, 1) < 3 {
				return nil, fmt.Errorf("throttled: %w", contracts.ErrRateLimited)
			}
			return &contracts.ClassificationCheck{IsValid: true}, nil
		},
	}
	v := NewValidator(signalconfig.Default(), checker, logger.Discard(), 2)

	sig := verifiedSignal(contracts.CEODeparture,
		"Jordan Smith notified the board of his decision to resign as chief executive officer of the company")

	accepted, rejected := v.Validate(context.Background(), []contracts.VerifiedSignal{sig})

	assert.Empty(t, rejected)
	require.Len(t, accepted, 1)
	assert.Equal(t, contracts.OutcomeAccepted, accepted[0].Outcome)
	assert.Equal(t, int32(3), calls)
}

func TestValidate_BoundedConcurrency(t *testing.T) {
	checker := &fakeChecker{}
	v := NewValidator(signalconfig.Default(), checker, logger.Discard(), 3)

	signals := make([]contracts.VerifiedSignal, 20)
	for i := range signals {
		signals[i] = verifiedSignal(contracts.CEODeparture,
			"Jordan Smith notified the board of his decision to resign as chief executive officer of the company")
	}

	accepted, rejected := v.Validate(context.Background(), signals)

	assert.Empty(t, rejected)
	assert.Len(t, accepted, 20)
	assert.LessOrEqual(t, checker.peak, int32(3))
}

func TestValidate_OrderPreserved(t *testing.T) {
	checker := &fakeChecker{}
	v := NewValidator(signalconfig.Default(), checker, logger.Discard(), 4)

	signals := make([]contracts.VerifiedSignal, 10)
	for i := range signals {
		s := verifiedSignal(contracts.CEODeparture,
			"Jordan Smith notified the board of his decision to resign as chief executive officer of the company")
		s.ID = fmt.Sprintf("sig-%02d", i)
		signals[i] = s
	}

	accepted, _ := v.Validate(context.Background(), signals)

	require.Len(t, accepted, 10)
	for i, a := range accepted {
		assert.Equal(t, fmt.Sprintf("sig-%02d", i), a.ID)
	}
}
