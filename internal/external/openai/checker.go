package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

const checkSystemPrompt = `You review distress-signal classifications extracted from SEC filings.
Given a signal type, its evidence passage and the filing context, decide whether the
evidence genuinely supports the classification. Respond with a JSON object:
{"is_valid": bool, "corrected_type": string or null, "corrected_severity": int or null,
"rejection_reason": string or null, "confidence": number between 0 and 1}.
Only propose corrected_type from the caller's known type list. Reject routine or
positive corporate events (planned retirements, promotions, scheduled refinancings).`

// Checker implements contracts.ClassificationChecker over the chat API.
type Checker struct {
	client *Client
	logger *logger.Logger
}

// NewChecker creates the Stage-B classification checker.
func NewChecker(client *Client, log *logger.Logger) *Checker {
	return &Checker{client: client, logger: log}
}

type checkVerdict struct {
	IsValid           bool    `json:"is_valid"`
	CorrectedType     *string `json:"corrected_type"`
	CorrectedSeverity *int    `json:"corrected_severity"`
	RejectionReason   *string `json:"rejection_reason"`
	Confidence        float64 `json:"confidence"`
}

// Check submits one type/evidence pairing for review. Errors (including
// rate limits) propagate to the validator, which owns retry and fail-open.
func (c *Checker) Check(ctx context.Context, signalType contracts.SignalType, evidence string, severity int, fc contracts.FilingContext) (*contracts.ClassificationCheck, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Known types: %s\n", joinTypes(contracts.AllSignalTypes))
	fmt.Fprintf(&sb, "Classified type: %s (severity %d)\n", signalType, severity)
	fmt.Fprintf(&sb, "Filing: %s dated %s\n", fc.FilingType, fc.FilingDate)
	if fc.Person != "" {
		fmt.Fprintf(&sb, "Person: %s\n", fc.Person)
	}
	fmt.Fprintf(&sb, "Evidence: %s\n", evidence)

	raw, err := c.client.completeJSON(ctx, c.client.cfg.CheckModel, checkSystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}

	var verdict checkVerdict
	if err := json.Unmarshal(raw, &verdict); err != nil {
		return nil, fmt.Errorf("decode check verdict: %w", err)
	}

	check := &contracts.ClassificationCheck{
		IsValid:    verdict.IsValid,
		Confidence: verdict.Confidence,
	}
	if verdict.RejectionReason != nil {
		check.RejectionReason = *verdict.RejectionReason
	}
	if verdict.CorrectedSeverity != nil {
		sev := *verdict.CorrectedSeverity
		if sev >= 1 && sev <= 10 {
			check.CorrectedSeverity = &sev
		}
	}
	if verdict.CorrectedType != nil {
		// Corrections outside the closed type set are discarded, not trusted.
		proposed := contracts.SignalType(strings.ToUpper(strings.TrimSpace(*verdict.CorrectedType)))
		for _, known := range contracts.AllSignalTypes {
			if proposed == known {
				check.CorrectedType = &proposed
				break
			}
		}
		if check.CorrectedType == nil {
			c.logger.WithField("proposed", *verdict.CorrectedType).Debug("Ignoring correction to unknown type")
		}
	}

	return check, nil
}

func joinTypes(types []contracts.SignalType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
