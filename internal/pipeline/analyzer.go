package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

// ProgressFunc receives stage transitions during an analysis. May be nil.
type ProgressFunc func(stage, detail string)

// AnalysisResult bundles everything one end-to-end run produced.
type AnalysisResult struct {
	Subject    contracts.SubjectContext    `json:"subject"`
	Filings    []contracts.FilingRef       `json:"filings"`
	Set        *contracts.SignalSet        `json:"signal_set"`
	Rejected   []contracts.RejectedSignal  `json:"rejected"`
	Stats      contracts.ProcessStats      `json:"stats"`
	Assessment *contracts.RiskAssessment   `json:"assessment"`
}

// Analyzer drives a full analysis for one ticker: filing discovery,
// candidate generation, pipeline processing and scoring.
type Analyzer struct {
	catalog           contracts.DocumentCatalog
	generator         contracts.CandidateGenerator
	pipeline          *Pipeline
	logger            *logger.Logger
	maxConcurrentDocs int
}

// NewAnalyzer creates an analyzer over a document catalog and candidate
// generator.
func NewAnalyzer(catalog contracts.DocumentCatalog, generator contracts.CandidateGenerator, p *Pipeline, log *logger.Logger, maxConcurrentDocs int) *Analyzer {
	if maxConcurrentDocs < 1 {
		maxConcurrentDocs = defaultMaxConcurrent
	}
	return &Analyzer{
		catalog:           catalog,
		generator:         generator,
		pipeline:          p,
		logger:            log,
		maxConcurrentDocs: maxConcurrentDocs,
	}
}

// Analyze runs the end-to-end flow for a ticker as of now. Per-filing
// failures are logged and skipped; the run fails only when the subject
// cannot be resolved or no filing could be read at all.
func (a *Analyzer) Analyze(ctx context.Context, ticker string, now time.Time, progress ProgressFunc) (*AnalysisResult, error) {
	report := func(stage, detail string) {
		if progress != nil {
			progress(stage, detail)
		}
	}

	report("resolve", ticker)
	subject, err := a.catalog.ResolveSubject(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("resolve subject %s: %w", ticker, err)
	}

	report("filings", subject.CIK)
	filings, err := a.catalog.RecentFilings(ctx, subject.CIK)
	if err != nil {
		return nil, fmt.Errorf("list filings for %s: %w", ticker, err)
	}
	if len(filings) == 0 {
		return nil, fmt.Errorf("no recent filings for %s", ticker)
	}

	report("extract", fmt.Sprintf("%d filings", len(filings)))
	candidates, sourceTexts := a.extract(ctx, subject, filings)
	if len(sourceTexts) == 0 {
		return nil, fmt.Errorf("no filing text retrievable for %s", ticker)
	}

	report("process", fmt.Sprintf("%d candidates", len(candidates)))
	set, rejected, stats := a.pipeline.Process(ctx, subject.Ticker, candidates, sourceTexts)

	report("score", fmt.Sprintf("%d signals", set.Count()))
	assessment := a.pipeline.Score(ctx, set, now)

	report("done", fmt.Sprintf("score %d (%s)", assessment.FinalScore, assessment.Level))
	return &AnalysisResult{
		Subject:    subject,
		Filings:    filings,
		Set:        set,
		Rejected:   rejected,
		Stats:      stats,
		Assessment: assessment,
	}, nil
}

// extract downloads filing text and generates candidates per filing with
// bounded concurrency. A filing that cannot be fetched or parsed is skipped.
func (a *Analyzer) extract(ctx context.Context, subject contracts.SubjectContext, filings []contracts.FilingRef) ([]contracts.CandidateSignal, map[string]string) {
	var mu sync.Mutex
	candidates := make([]contracts.CandidateSignal, 0)
	sourceTexts := make(map[string]string, len(filings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxConcurrentDocs)

	for _, filing := range filings {
		g.Go(func() error {
			text, err := a.catalog.GetSourceText(gctx, filing.Accession)
			if err != nil {
				a.logger.WithError(err).WithField("accession", filing.Accession).Warn("Skipping unreadable filing")
				return nil
			}

			cands, err := a.generator.GenerateCandidates(gctx, text, subject)
			if err != nil {
				a.logger.WithError(err).WithField("accession", filing.Accession).Warn("Candidate generation failed for filing")
				cands = nil
			}

			// Fill in document framing the generator may not know.
			for i := range cands {
				if cands[i].DocumentID == "" {
					cands[i].DocumentID = filing.Accession
				}
				if cands[i].DocumentType == "" {
					cands[i].DocumentType = filing.FilingType
				}
				if cands[i].FilingDate == "" {
					cands[i].FilingDate = filing.FilingDate
				}
			}

			mu.Lock()
			sourceTexts[filing.Accession] = text
			candidates = append(candidates, cands...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return candidates, sourceTexts
}
