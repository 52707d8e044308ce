package evidence

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
	"github.com/manoharb30/insight-lookinsight/internal/signalconfig"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

// Shapes that mark evidence as structured-data junk rather than prose:
// XBRL member tags, bare XML tags, CamelCase identifiers with a year,
// ALL_CAPS constants, empty strings.
var junkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[a-z]+:[A-Za-z0-9]+Member$`),
	regexp.MustCompile(`^[a-z]+:[A-Za-z0-9]+$`),
	regexp.MustCompile(`^<[^>]+>$`),
	regexp.MustCompile(`^[A-Z][a-z]+[A-Z][a-z]+\d{4}$`),
	regexp.MustCompile(`^\s*$`),
	regexp.MustCompile(`^[A-Z_]+$`),
}

var (
	specialChars = regexp.MustCompile(`[<>{}\[\]|\\]`)
	// Loose natural-language shape: an uppercase letter eventually
	// followed by a lowercase run.
	naturalLanguage = regexp.MustCompile(`[A-Z].*[a-z]`)
)

// Filter rejects signals whose evidence text is structurally junk.
// Rejections are retained with their reason, never silently dropped.
type Filter struct {
	tables *signalconfig.Tables
	logger *logger.Logger
}

// NewFilter creates an evidence quality filter.
func NewFilter(tables *signalconfig.Tables, log *logger.Logger) *Filter {
	return &Filter{tables: tables, logger: log}
}

// IsValidEvidence checks a single evidence string against the quality
// rules. The second return value is the rejection reason when invalid.
func (f *Filter) IsValidEvidence(evidence string) (bool, string) {
	if evidence == "" {
		return false, "empty evidence"
	}

	evidence = strings.TrimSpace(evidence)
	th := f.tables.Thresholds

	// Patterns first: a bare XBRL tag is junk however long it is.
	for _, pattern := range junkPatterns {
		if pattern.MatchString(evidence) {
			return false, fmt.Sprintf("matches junk pattern %s", pattern.String())
		}
	}

	if len(evidence) < th.MinEvidenceLength {
		return false, fmt.Sprintf("evidence too short (%d < %d chars)", len(evidence), th.MinEvidenceLength)
	}

	words := strings.Fields(evidence)
	if len(words) < th.MinWordCount {
		return false, fmt.Sprintf("too few words (%d < %d)", len(words), th.MinWordCount)
	}

	// Heavy markup share means XML/code fragments, not filing prose.
	specialRatio := float64(len(specialChars.FindAllString(evidence, -1))) / float64(len(evidence))
	if specialRatio > 0.1 {
		return false, "too many special characters (likely markup)"
	}

	if !naturalLanguage.MatchString(evidence) {
		return false, "does not appear to be natural language"
	}

	return true, ""
}

// Apply partitions signals into quality-passing and rejected. Every
// rejection carries its reason for audit.
func (f *Filter) Apply(signals []contracts.VerifiedSignal) ([]contracts.VerifiedSignal, []contracts.RejectedSignal) {
	valid := make([]contracts.VerifiedSignal, 0, len(signals))
	var rejected []contracts.RejectedSignal

	for _, sig := range signals {
		ok, reason := f.IsValidEvidence(sig.Evidence)
		if ok {
			valid = append(valid, sig)
			continue
		}

		rejected = append(rejected, contracts.RejectedSignal{
			Signal: sig,
			Stage:  "evidence_quality",
			Reason: reason,
		})
		f.logger.WithFields(map[string]interface{}{
			"type":   sig.Type,
			"reason": reason,
		}).Debug("Rejected signal for evidence quality")
	}

	f.logger.WithFields(map[string]interface{}{
		"input":    len(signals),
		"valid":    len(valid),
		"rejected": len(rejected),
	}).Info("Evidence quality filter completed")

	return valid, rejected
}
