package contracts

import "time"

// SignalType identifies a distress category extracted from a filing.
// The set is closed: anything else is rejected during validation.
type SignalType string

const (
	GoingConcern      SignalType = "GOING_CONCERN"
	BankruptcyFiling  SignalType = "BANKRUPTCY_FILING"
	CEODeparture      SignalType = "CEO_DEPARTURE"
	CFODeparture      SignalType = "CFO_DEPARTURE"
	MassLayoffs       SignalType = "MASS_LAYOFFS"
	DebtDefault       SignalType = "DEBT_DEFAULT"
	CovenantViolation SignalType = "COVENANT_VIOLATION"
	AuditorChange     SignalType = "AUDITOR_CHANGE"
	BoardResignation  SignalType = "BOARD_RESIGNATION"
	DelistingWarning  SignalType = "DELISTING_WARNING"
	CreditDowngrade   SignalType = "CREDIT_DOWNGRADE"
	AssetSale         SignalType = "ASSET_SALE"
	Restructuring     SignalType = "RESTRUCTURING"
	SECInvestigation  SignalType = "SEC_INVESTIGATION"
	MaterialWeakness  SignalType = "MATERIAL_WEAKNESS"
	EquityDilution    SignalType = "EQUITY_DILUTION"
)

// AllSignalTypes lists every member of the closed signal-type set.
var AllSignalTypes = []SignalType{
	GoingConcern, BankruptcyFiling, CEODeparture, CFODeparture,
	MassLayoffs, DebtDefault, CovenantViolation, AuditorChange,
	BoardResignation, DelistingWarning, CreditDowngrade, AssetSale,
	Restructuring, SECInvestigation, MaterialWeakness, EquityDilution,
}

// MatchQuality grades how the evidence for a signal was located in source.
type MatchQuality string

const (
	MatchExact    MatchQuality = "EXACT"
	MatchFuzzy    MatchQuality = "FUZZY"
	MatchSemantic MatchQuality = "SEMANTIC"
	MatchNone     MatchQuality = "NONE"
)

// DateLayout is the wire format for all signal dates.
const DateLayout = "2006-01-02"

// CandidateSignal is a raw detection produced by the external candidate
// generator. Dates stay strings on purpose: the generator is noisy and an
// unparseable date is meaningful downstream (dedup never merges it).
type CandidateSignal struct {
	ID           string     `json:"signal_id"`
	Type         SignalType `json:"type"`
	Severity     int        `json:"severity"`   // 1-10
	Confidence   float64    `json:"confidence"` // 0-1
	MarkerPhrase string     `json:"marker_phrase"`
	EventDate    string     `json:"event_date,omitempty"` // ISO date, optional
	FilingDate   string     `json:"filing_date"`          // ISO date
	DocumentID   string     `json:"document_id"`          // accession number
	DocumentType string     `json:"document_type"`        // 8-K, 10-K, ...
	ItemNumber   string     `json:"item_number,omitempty"`
	Person       string     `json:"person,omitempty"`
}

// Date returns the best available date for the signal: the event date when
// the generator supplied one, the filing date otherwise.
func (c CandidateSignal) Date() string {
	if c.EventDate != "" {
		return c.EventDate
	}
	return c.FilingDate
}

// ParsedDate parses Date(). ok is false for missing or malformed dates.
func (c CandidateSignal) ParsedDate() (time.Time, bool) {
	t, err := time.Parse(DateLayout, c.Date())
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// VerifiedSignal is a CandidateSignal whose marker phrase has been run
// through the evidence locator. Evidence supersedes the marker phrase as
// the signal's proof.
type VerifiedSignal struct {
	CandidateSignal

	Evidence         string       `json:"evidence"`
	EvidenceVerified bool         `json:"evidence_verified"`
	MatchQuality     MatchQuality `json:"match_quality"`
}

// ValidationOutcome distinguishes a clean accept from a fail-open accept so
// callers (and tests) can observe collaborator failures without losing data.
type ValidationOutcome string

const (
	OutcomeAccepted     ValidationOutcome = "ACCEPTED"
	OutcomeRejected     ValidationOutcome = "REJECTED"
	OutcomeAcceptedWarn ValidationOutcome = "ACCEPTED_WITH_WARNING"
)

// ValidatedSignal is a VerifiedSignal after classification validation. The
// validator may reclassify type/severity; the originals are retained for
// audit and never silently overwritten.
type ValidatedSignal struct {
	VerifiedSignal

	Validated        bool              `json:"validated"`
	Outcome          ValidationOutcome `json:"outcome"`
	RejectionReason  string            `json:"rejection_reason,omitempty"`
	ValidationNote   string            `json:"validation_note,omitempty"`
	OriginalType     SignalType        `json:"original_type,omitempty"`
	OriginalSeverity int               `json:"original_severity,omitempty"`
}

// RejectedSignal keeps a rejected candidate alongside the stage that
// rejected it. Nothing is deleted during processing, only classified.
type RejectedSignal struct {
	Signal VerifiedSignal `json:"signal"`
	Stage  string         `json:"stage"` // "evidence_quality", "validation"
	Reason string         `json:"reason"`
}

// SignalSet is the deduplicated, validated signal collection for one
// subject. Invariants: at most one signal per ongoing type; discrete
// signals of the same type are always more than 90 days apart.
type SignalSet struct {
	Subject   string            `json:"subject"` // ticker
	Signals   []ValidatedSignal `json:"signals"`
	BuiltAt   time.Time         `json:"built_at"`
	Documents int               `json:"documents"` // source documents analyzed
}

// Count returns the number of signals in the set.
func (s *SignalSet) Count() int {
	return len(s.Signals)
}

// HasType reports whether any signal of the given type is present.
func (s *SignalSet) HasType(t SignalType) bool {
	for i := range s.Signals {
		if s.Signals[i].Type == t {
			return true
		}
	}
	return false
}

// ByType returns a count histogram keyed by signal type.
func (s *SignalSet) ByType() map[SignalType]int {
	counts := make(map[SignalType]int)
	for i := range s.Signals {
		counts[s.Signals[i].Type]++
	}
	return counts
}

// ProcessStats reports what happened to a candidate batch at each stage.
type ProcessStats struct {
	Input             int                `json:"input"`
	EvidenceVerified  int                `json:"evidence_verified"`
	QualityRejected   int                `json:"quality_rejected"`
	DuplicatesRemoved int                `json:"duplicates_removed"`
	DedupByType       map[SignalType]int `json:"dedup_by_type"`
	ValidationPassed  int                `json:"validation_passed"`
	ValidationFailed  int                `json:"validation_failed"`
	Warnings          int                `json:"warnings"` // fail-open accepts
}
