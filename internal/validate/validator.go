package validate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
	"github.com/manoharb30/insight-lookinsight/internal/signalconfig"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

const (
	defaultMaxConcurrent = 4
	maxCheckAttempts     = 5
	initialBackoff       = 500 * time.Millisecond
	maxBackoff           = 8 * time.Second
)

// Validator runs two-stage classification validation. Stage A is the
// deterministic per-type rule set and rejects cheaply before any external
// call. Stage B delegates survivors to the classification checker and fails
// open: a collaborator outage degrades confidence, it never loses signals.
type Validator struct {
	tables        *signalconfig.Tables
	checker       contracts.ClassificationChecker // nil disables Stage B
	logger        *logger.Logger
	maxConcurrent int
}

// NewValidator creates a validator. checker may be nil, in which case only
// Stage A runs. maxConcurrent bounds concurrent checker calls; values
// outside [1,16] fall back to the default.
func NewValidator(tables *signalconfig.Tables, checker contracts.ClassificationChecker, log *logger.Logger, maxConcurrent int) *Validator {
	if maxConcurrent < 1 || maxConcurrent > 16 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Validator{
		tables:        tables,
		checker:       checker,
		logger:        log,
		maxConcurrent: maxConcurrent,
	}
}

// Validate runs both stages over the signal batch. Order is preserved for
// accepted signals regardless of checker completion order.
func (v *Validator) Validate(ctx context.Context, signals []contracts.VerifiedSignal) ([]contracts.ValidatedSignal, []contracts.RejectedSignal) {
	var rejected []contracts.RejectedSignal
	var rejectedMu sync.Mutex

	// Stage A: deterministic rules.
	stageA := make([]contracts.VerifiedSignal, 0, len(signals))
	for _, sig := range signals {
		if reason := v.checkRules(sig); reason != "" {
			rejected = append(rejected, contracts.RejectedSignal{
				Signal: sig,
				Stage:  "validation",
				Reason: reason,
			})
			v.logger.WithFields(map[string]interface{}{
				"type":   sig.Type,
				"reason": reason,
			}).Debug("Signal rejected by validation rules")
			continue
		}
		stageA = append(stageA, sig)
	}

	// Stage B: external classification check, bounded concurrency. Results
	// land in a positional slice so output order matches input order.
	results := make([]*contracts.ValidatedSignal, len(stageA))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.maxConcurrent)

	for i, sig := range stageA {
		g.Go(func() error {
			validated, rej := v.checkExternal(gctx, sig)
			if rej != nil {
				rejectedMu.Lock()
				rejected = append(rejected, *rej)
				rejectedMu.Unlock()
				return nil
			}
			results[i] = validated
			return nil
		})
	}
	// Workers only report via the slices, never an error.
	_ = g.Wait()

	accepted := make([]contracts.ValidatedSignal, 0, len(stageA))
	warnings := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Outcome == contracts.OutcomeAcceptedWarn {
			warnings++
		}
		accepted = append(accepted, *r)
	}

	v.logger.WithFields(map[string]interface{}{
		"input":    len(signals),
		"accepted": len(accepted),
		"rejected": len(rejected),
		"warnings": warnings,
	}).Info("Validation completed")

	return accepted, rejected
}

// checkRules evaluates Stage A and returns a rejection reason, or "" when
// the signal passes.
func (v *Validator) checkRules(sig contracts.VerifiedSignal) string {
	if !v.tables.IsKnownType(sig.Type) {
		return fmt.Sprintf("unknown signal type %q", sig.Type)
	}

	th := v.tables.Thresholds
	if len(strings.TrimSpace(sig.Evidence)) < th.MinEvidenceLength {
		return fmt.Sprintf("evidence too short (%d < %d chars)", len(strings.TrimSpace(sig.Evidence)), th.MinEvidenceLength)
	}
	if sig.Confidence < th.MinConfidence {
		return fmt.Sprintf("confidence %.2f below minimum %.2f", sig.Confidence, th.MinConfidence)
	}
	if sig.Severity < 1 || sig.Severity > 10 {
		return fmt.Sprintf("severity %d outside [1,10]", sig.Severity)
	}

	rule, ok := v.tables.Rules[sig.Type]
	if !ok {
		return fmt.Sprintf("no validation rule for type %q", sig.Type)
	}

	if rule.RequiresPerson && strings.TrimSpace(sig.Person) == "" {
		return "person required but missing"
	}

	evidence := strings.ToLower(sig.Evidence)
	if len(rule.MustContainAny) > 0 {
		found := false
		for _, phrase := range rule.MustContainAny {
			if strings.Contains(evidence, phrase) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Sprintf("evidence lacks any required phrase for %s", sig.Type)
		}
	}
	for _, phrase := range rule.MustNotContain {
		if strings.Contains(evidence, phrase) {
			return fmt.Sprintf("evidence contains disqualifying phrase %q", phrase)
		}
	}

	return ""
}

// checkExternal runs Stage B for one signal. Exactly one of the returns is
// non-nil. Collaborator failure accepts with a warning; only an explicit
// invalid verdict rejects.
func (v *Validator) checkExternal(ctx context.Context, sig contracts.VerifiedSignal) (*contracts.ValidatedSignal, *contracts.RejectedSignal) {
	base := contracts.ValidatedSignal{
		VerifiedSignal: sig,
		Validated:      true,
		Outcome:        contracts.OutcomeAccepted,
	}

	if v.checker == nil {
		return &base, nil
	}

	check, err := v.callWithBackoff(ctx, sig)
	if err != nil {
		base.Outcome = contracts.OutcomeAcceptedWarn
		base.ValidationNote = fmt.Sprintf("classification check unavailable: %v", err)
		v.logger.WithError(err).WithField("type", sig.Type).Warn("Classification check failed, accepting with warning")
		return &base, nil
	}

	if !check.IsValid {
		reason := check.RejectionReason
		if reason == "" {
			reason = "classification check rejected signal"
		}
		return nil, &contracts.RejectedSignal{
			Signal: sig,
			Stage:  "validation",
			Reason: reason,
		}
	}

	if check.CorrectedType != nil && *check.CorrectedType != sig.Type {
		base.OriginalType = sig.Type
		base.Type = *check.CorrectedType
		base.ValidationNote = fmt.Sprintf("type corrected from %s", base.OriginalType)
	}
	if check.CorrectedSeverity != nil && *check.CorrectedSeverity != sig.Severity {
		base.OriginalSeverity = sig.Severity
		base.Severity = *check.CorrectedSeverity
	}

	return &base, nil
}

// callWithBackoff retries the checker on rate limits with exponential
// backoff and jitter. Non-retryable errors return immediately.
func (v *Validator) callWithBackoff(ctx context.Context, sig contracts.VerifiedSignal) (*contracts.ClassificationCheck, error) {
	fc := contracts.FilingContext{
		FilingType: sig.DocumentType,
		FilingDate: sig.FilingDate,
		Person:     sig.Person,
	}

	delay := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= maxCheckAttempts; attempt++ {
		check, err := v.checker.Check(ctx, sig.Type, sig.Evidence, sig.Severity, fc)
		if err == nil {
			return check, nil
		}
		lastErr = err

		if !errors.Is(err, contracts.ErrRateLimited) {
			return nil, err
		}
		if attempt == maxCheckAttempts {
			break
		}

		jittered := delay + time.Duration(rand.Int63n(int64(delay/2)+1))
		v.logger.WithFields(map[string]interface{}{
			"attempt": attempt,
			"delay":   jittered,
		}).Debug("Classification check rate limited, backing off")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(jittered):
		}

		delay *= 2
		if delay > maxBackoff {
			delay = maxBackoff
		}
	}

	return nil, fmt.Errorf("classification check exhausted %d attempts: %w", maxCheckAttempts, lastErr)
}
