package contracts

import (
	"context"
	"errors"
	"time"
)

// ErrRateLimited marks a transient upstream throttle. Callers back off and
// retry; any other collaborator error is treated as non-retryable.
var ErrRateLimited = errors.New("rate limited")

// DocumentSource fetches cleaned filing text keyed by accession number.
// Implemented by internal/external/edgar.
type DocumentSource interface {
	GetSourceText(ctx context.Context, documentID string) (string, error)
}

// FilingRef identifies one filing in a subject's disclosure history.
type FilingRef struct {
	Accession  string `json:"accession"`
	FilingType string `json:"filing_type"` // 8-K, 10-K, 10-Q
	FilingDate string `json:"filing_date"`
	PrimaryDoc string `json:"primary_doc,omitempty"`
}

// DocumentCatalog extends DocumentSource with subject resolution and filing
// discovery, the full surface the analyzer needs from EDGAR.
type DocumentCatalog interface {
	DocumentSource
	ResolveSubject(ctx context.Context, ticker string) (SubjectContext, error)
	RecentFilings(ctx context.Context, cik string) ([]FilingRef, error)
}

// CandidateGenerator is the LLM-backed extractor. The pipeline only
// consumes its output; it never builds prompts itself.
type CandidateGenerator interface {
	GenerateCandidates(ctx context.Context, documentText string, subject SubjectContext) ([]CandidateSignal, error)
}

// SubjectContext carries company identity into candidate generation.
type SubjectContext struct {
	Ticker      string
	CIK         string
	CompanyName string
}

// ScoredChunk is a document chunk with its similarity to a query vector.
type ScoredChunk struct {
	Text       string
	Similarity float64
}

// EmbeddingSearcher backs the evidence locator's semantic tier. Both calls
// are collaborator calls and may fail; the locator falls through to
// unverified on any error.
type EmbeddingSearcher interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	NearestChunks(ctx context.Context, vector []float32, documentID string, k int, threshold float64) ([]ScoredChunk, error)
}

// ClassificationCheck is the verdict of the external classification-check
// collaborator. Corrected fields are nil when no correction applies.
type ClassificationCheck struct {
	IsValid           bool
	CorrectedType     *SignalType
	CorrectedSeverity *int
	RejectionReason   string
	Confidence        float64
}

// ClassificationChecker delegates ambiguous type/evidence pairings to an
// external collaborator. Implementations must surface rate limiting via
// errors the validator can recognize for backoff.
type ClassificationChecker interface {
	Check(ctx context.Context, signalType SignalType, evidence string, severity int, filingContext FilingContext) (*ClassificationCheck, error)
}

// FilingContext gives the classification checker the document framing of
// the signal under review.
type FilingContext struct {
	FilingType string
	FilingDate string
	Person     string
}

// SignalRepository persists validated signal sets.
type SignalRepository interface {
	SaveSignalSet(ctx context.Context, set *SignalSet) error
	GetSignalSet(ctx context.Context, subject string) (*SignalSet, error)
	ListSubjects(ctx context.Context) ([]string, error)
}

// AssessmentRepository persists risk assessments.
type AssessmentRepository interface {
	SaveAssessment(ctx context.Context, a *RiskAssessment) error
	GetLatestAssessment(ctx context.Context, subject string) (*RiskAssessment, error)
	ListAssessments(ctx context.Context, subject string, since time.Time) ([]RiskAssessment, error)
}
