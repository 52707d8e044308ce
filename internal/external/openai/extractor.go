package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

const extractSystemPrompt = `You extract financial distress signals from SEC filing text.
Scan the filing for events in these categories: %s.
Respond with a JSON object: {"signals": [{"type": string, "severity": int 1-10,
"confidence": number 0-1, "marker_phrase": string, "event_date": "YYYY-MM-DD" or null,
"item_number": string or null, "person": string or null}]}.
marker_phrase must be a short verbatim quote from the filing that states the event.
Report only events affecting the named company itself. Return an empty signals array
when the filing contains none.`

// Filing text past this size is split into segments extracted separately.
const maxExtractChars = 24000

// Extractor implements contracts.CandidateGenerator over the chat API. Its
// output is deliberately raw: downstream stages verify, filter and validate
// every candidate, so the extractor never needs to be right, only thorough.
type Extractor struct {
	client *Client
	logger *logger.Logger
}

// NewExtractor creates the candidate extractor.
func NewExtractor(client *Client, log *logger.Logger) *Extractor {
	return &Extractor{client: client, logger: log}
}

type extractedSignal struct {
	Type         string  `json:"type"`
	Severity     int     `json:"severity"`
	Confidence   float64 `json:"confidence"`
	MarkerPhrase string  `json:"marker_phrase"`
	EventDate    *string `json:"event_date"`
	ItemNumber   *string `json:"item_number"`
	Person       *string `json:"person"`
}

type extractResponse struct {
	Signals []extractedSignal `json:"signals"`
}

// GenerateCandidates extracts candidate signals from one filing's text.
// Long filings are segmented; a failed segment fails the whole call so the
// analyzer can decide whether to skip the filing.
func (e *Extractor) GenerateCandidates(ctx context.Context, documentText string, subject contracts.SubjectContext) ([]contracts.CandidateSignal, error) {
	system := fmt.Sprintf(extractSystemPrompt, joinTypes(contracts.AllSignalTypes))

	var candidates []contracts.CandidateSignal
	for _, segment := range segmentText(documentText, maxExtractChars) {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Company: %s (%s)\n\nFiling text:\n%s", subject.CompanyName, subject.Ticker, segment)

		raw, err := e.client.completeJSON(ctx, e.client.cfg.ExtractModel, system, sb.String())
		if err != nil {
			return nil, fmt.Errorf("extract candidates: %w", err)
		}

		var parsed extractResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("decode extract response: %w", err)
		}

		for _, sig := range parsed.Signals {
			if strings.TrimSpace(sig.MarkerPhrase) == "" {
				continue
			}
			cand := contracts.CandidateSignal{
				ID:           fmt.Sprintf("cand-%03d", len(candidates)+1),
				Type:         contracts.SignalType(strings.ToUpper(strings.TrimSpace(sig.Type))),
				Severity:     sig.Severity,
				Confidence:   sig.Confidence,
				MarkerPhrase: sig.MarkerPhrase,
			}
			if sig.EventDate != nil {
				cand.EventDate = *sig.EventDate
			}
			if sig.ItemNumber != nil {
				cand.ItemNumber = *sig.ItemNumber
			}
			if sig.Person != nil {
				cand.Person = *sig.Person
			}
			candidates = append(candidates, cand)
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"subject":    subject.Ticker,
		"candidates": len(candidates),
	}).Debug("Candidate extraction completed")

	return candidates, nil
}

// segmentText splits text on paragraph boundaries into pieces at most
// maxChars long. A single oversized paragraph is cut hard.
func segmentText(text string, maxChars int) []string {
	if len(text) <= maxChars {
		return []string{text}
	}

	var segments []string
	var current strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		for len(para) > maxChars {
			segments = append(segments, para[:maxChars])
			para = para[maxChars:]
		}
		if current.Len() > 0 && current.Len()+len(para)+2 > maxChars {
			segments = append(segments, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		segments = append(segments, current.String())
	}
	return segments
}
