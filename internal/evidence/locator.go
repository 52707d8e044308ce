package evidence

import (
	"context"
	"strings"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
	"github.com/manoharb30/insight-lookinsight/internal/signalconfig"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

const (
	// Characters of context pulled in on each side of a located marker.
	contextWindow = 300
	// How far boundaries may move to snap onto sentence punctuation.
	sentenceSnap = 50

	fuzzyDirectThreshold = 0.8
	fuzzyWindowFloor     = 0.5
	fuzzyWindowAccept    = 0.7
	semanticThreshold    = 0.6
	semanticTopK         = 1
)

// Locator resolves a candidate's marker phrase to a verbatim passage of the
// source document. Tiers run in order (exact, fuzzy, semantic) and the
// first success wins; an unlocatable marker is returned unverified rather
// than discarded. Safe for concurrent use: it holds no per-call state.
type Locator struct {
	search contracts.EmbeddingSearcher // nil disables the semantic tier
	tables *signalconfig.Tables
	logger *logger.Logger
}

// NewLocator creates an evidence locator. search may be nil, in which case
// tier 3 is skipped and unlocated markers go straight to unverified.
func NewLocator(search contracts.EmbeddingSearcher, tables *signalconfig.Tables, log *logger.Logger) *Locator {
	return &Locator{
		search: search,
		tables: tables,
		logger: log,
	}
}

// Locate finds the passage of sourceText that supports markerPhrase.
// The returned evidence is capped at the configured maximum length.
func (l *Locator) Locate(ctx context.Context, markerPhrase, sourceText, documentID string) (string, contracts.MatchQuality) {
	marker := strings.TrimSpace(markerPhrase)
	if marker == "" || sourceText == "" {
		return l.truncate(marker), contracts.MatchNone
	}

	// Tier 1: exact case-insensitive substring.
	if evidence, ok := l.exactMatch(marker, sourceText); ok {
		return l.truncate(evidence), contracts.MatchExact
	}

	// Tier 2: word-overlap fuzzy matching.
	if evidence, ok := l.fuzzyMatch(marker, sourceText); ok {
		return l.truncate(evidence), contracts.MatchFuzzy
	}

	// Tier 3: embedding nearest-neighbor over document chunks.
	if evidence, ok := l.semanticMatch(ctx, marker, documentID); ok {
		return l.truncate(evidence), contracts.MatchSemantic
	}

	// Unverified: keep the marker itself as evidence. The signal is not
	// dropped here; absence of verification is recorded, not punished.
	return l.truncate(marker), contracts.MatchNone
}

func (l *Locator) exactMatch(marker, source string) (string, bool) {
	idx := strings.Index(strings.ToLower(source), strings.ToLower(marker))
	if idx < 0 {
		return "", false
	}
	return expandContext(source, idx, idx+len(marker)), true
}

// fuzzyMatch tokenizes the marker into significant words (length > 4) and
// measures how many occur anywhere in the source. High coverage anchors
// context at the first word; mid coverage falls back to a sliding window
// over the source's word sequence.
func (l *Locator) fuzzyMatch(marker, source string) (string, bool) {
	words := significantWords(marker)
	if len(words) == 0 {
		return "", false
	}

	lowerSource := strings.ToLower(source)
	present := 0
	firstIdx := -1
	for _, w := range words {
		if idx := strings.Index(lowerSource, w); idx >= 0 {
			present++
			if firstIdx < 0 || idx < firstIdx {
				firstIdx = idx
			}
		}
	}

	coverage := float64(present) / float64(len(words))
	if coverage >= fuzzyDirectThreshold {
		return expandContext(source, firstIdx, firstIdx), true
	}
	if coverage < fuzzyWindowFloor {
		return "", false
	}

	return l.bestWindow(words, source)
}

// bestWindow slides a window of roughly twice the marker's word count over
// the source word sequence and returns the span with the highest distinct
// word overlap, provided it reaches the acceptance threshold.
func (l *Locator) bestWindow(markerWords []string, source string) (string, bool) {
	tokens := tokenize(source)
	if len(tokens) == 0 {
		return "", false
	}

	windowSize := 2 * len(markerWords)
	if windowSize > len(tokens) {
		windowSize = len(tokens)
	}

	wanted := make(map[string]bool, len(markerWords))
	for _, w := range markerWords {
		wanted[w] = true
	}

	bestScore := 0.0
	bestStart := -1
	for i := 0; i+windowSize <= len(tokens); i++ {
		seen := make(map[string]bool)
		for _, tok := range tokens[i : i+windowSize] {
			if wanted[tok.lower] {
				seen[tok.lower] = true
			}
		}
		score := float64(len(seen)) / float64(len(markerWords))
		if score > bestScore {
			bestScore = score
			bestStart = i
		}
	}

	if bestScore < fuzzyWindowAccept || bestStart < 0 {
		return "", false
	}

	start := tokens[bestStart].offset
	last := tokens[bestStart+windowSize-1]
	return expandContext(source, start, last.offset+len(last.text)), true
}

func (l *Locator) semanticMatch(ctx context.Context, marker, documentID string) (string, bool) {
	if l.search == nil || documentID == "" {
		return "", false
	}

	vector, err := l.search.Embed(ctx, marker)
	if err != nil {
		// Collaborator failure falls through to unverified, never up.
		l.logger.WithError(err).WithField("document_id", documentID).Debug("Embedding lookup failed")
		return "", false
	}

	chunks, err := l.search.NearestChunks(ctx, vector, documentID, semanticTopK, semanticThreshold)
	if err != nil {
		l.logger.WithError(err).WithField("document_id", documentID).Debug("Chunk search failed")
		return "", false
	}
	if len(chunks) == 0 {
		return "", false
	}

	return chunks[0].Text, true
}

// truncate caps evidence at the configured maximum, preferring a sentence
// boundary when one lands in the final third of the allowance.
func (l *Locator) truncate(evidence string) string {
	maxLen := l.tables.Thresholds.MaxEvidenceLength
	if len(evidence) <= maxLen {
		return evidence
	}

	cut := evidence[:maxLen]
	if lastPeriod := strings.LastIndex(cut, "."); lastPeriod > maxLen*7/10 {
		return cut[:lastPeriod+1]
	}
	return strings.TrimRight(cut, " \t\n") + "..."
}

// expandContext grows [start,end) by the context window on each side, then
// snaps both boundaries to nearby sentence-terminating punctuation so the
// evidence reads as complete sentences.
func expandContext(source string, start, end int) string {
	s := start - contextWindow
	if s < 0 {
		s = 0
	}
	e := end + contextWindow
	if e > len(source) {
		e = len(source)
	}

	// Snap the left edge forward past the nearest sentence end behind it.
	for i := s; i > s-sentenceSnap && i > 0; i-- {
		if isSentenceEnd(source[i-1]) {
			s = i
			break
		}
	}

	// Snap the right edge out to the nearest sentence end ahead of it.
	for i := e; i < e+sentenceSnap && i < len(source); i++ {
		if isSentenceEnd(source[i]) {
			e = i + 1
			break
		}
	}

	return strings.TrimSpace(source[s:e])
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?' || b == '\n'
}

// significantWords returns the lowercased words of the marker longer than
// four characters, with common punctuation stripped.
func significantWords(marker string) []string {
	fields := strings.Fields(strings.ToLower(marker))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:()\"'")
		if len(f) > 4 {
			words = append(words, f)
		}
	}
	return words
}

type token struct {
	text   string
	lower  string
	offset int
}

// tokenize splits source into whitespace-delimited tokens with their byte
// offsets, so windows can be mapped back to source spans.
func tokenize(source string) []token {
	tokens := make([]token, 0, len(source)/6)
	inWord := false
	start := 0
	for i := 0; i < len(source); i++ {
		isSpace := source[i] == ' ' || source[i] == '\t' || source[i] == '\n' || source[i] == '\r'
		if !isSpace && !inWord {
			inWord = true
			start = i
		} else if isSpace && inWord {
			inWord = false
			text := source[start:i]
			tokens = append(tokens, token{
				text:   text,
				lower:  strings.Trim(strings.ToLower(text), ".,;:()\"'"),
				offset: start,
			})
		}
	}
	if inWord {
		text := source[start:]
		tokens = append(tokens, token{
			text:   text,
			lower:  strings.Trim(strings.ToLower(text), ".,;:()\"'"),
			offset: start,
		})
	}
	return tokens
}
