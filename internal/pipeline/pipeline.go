package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
	"github.com/manoharb30/insight-lookinsight/internal/dedup"
	"github.com/manoharb30/insight-lookinsight/internal/evidence"
	"github.com/manoharb30/insight-lookinsight/internal/score"
	"github.com/manoharb30/insight-lookinsight/internal/validate"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

const defaultMaxConcurrent = 4

// Pipeline wires the processing stages into the candidate-to-assessment
// flow. Stages run in fixed order with barriers between them: evidence
// location fans out per candidate, but dedup and scoring always see the
// complete batch.
type Pipeline struct {
	locator       *evidence.Locator
	filter        *evidence.Filter
	deduper       *dedup.Deduplicator
	validator     *validate.Validator
	scorer        *score.Scorer
	signals       contracts.SignalRepository     // optional
	assessments   contracts.AssessmentRepository // optional
	logger        *logger.Logger
	maxConcurrent int
}

// Options carries the optional pipeline collaborators.
type Options struct {
	Signals       contracts.SignalRepository
	Assessments   contracts.AssessmentRepository
	MaxConcurrent int
}

// New assembles a pipeline from its stages. Repositories in opts may be
// nil; persistence is best-effort and never fails processing.
func New(
	locator *evidence.Locator,
	filter *evidence.Filter,
	deduper *dedup.Deduplicator,
	validator *validate.Validator,
	scorer *score.Scorer,
	log *logger.Logger,
	opts Options,
) *Pipeline {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Pipeline{
		locator:       locator,
		filter:        filter,
		deduper:       deduper,
		validator:     validator,
		scorer:        scorer,
		signals:       opts.Signals,
		assessments:   opts.Assessments,
		logger:        log,
		maxConcurrent: maxConcurrent,
	}
}

// Process runs candidates through evidence location, quality filtering,
// deduplication and validation, producing the subject's signal set. Every
// dropped candidate comes back in the rejected slice with its reason; the
// stats account for the whole batch.
func (p *Pipeline) Process(ctx context.Context, subject string, candidates []contracts.CandidateSignal, sourceTexts map[string]string) (*contracts.SignalSet, []contracts.RejectedSignal, contracts.ProcessStats) {
	stats := contracts.ProcessStats{Input: len(candidates)}

	p.logger.WithFields(map[string]interface{}{
		"subject":    subject,
		"candidates": len(candidates),
		"documents":  len(sourceTexts),
	}).Info("Pipeline processing started")

	// Stage 1: evidence location, fanned out per candidate. Results are
	// positional so downstream stages see the original order.
	verified := make([]contracts.VerifiedSignal, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrent)
	for i, cand := range candidates {
		g.Go(func() error {
			ev, quality := p.locator.Locate(gctx, cand.MarkerPhrase, sourceTexts[cand.DocumentID], cand.DocumentID)
			verified[i] = contracts.VerifiedSignal{
				CandidateSignal:  cand,
				Evidence:         ev,
				EvidenceVerified: quality != contracts.MatchNone,
				MatchQuality:     quality,
			}
			return nil
		})
	}
	_ = g.Wait()

	for i := range verified {
		if verified[i].EvidenceVerified {
			stats.EvidenceVerified++
		}
	}

	// Stage 2: evidence quality filter.
	passed, rejected := p.filter.Apply(verified)
	stats.QualityRejected = len(rejected)

	// Stage 3: dedup over the full surviving batch.
	dedupResult := p.deduper.Deduplicate(passed)
	stats.DuplicatesRemoved = dedupResult.RemovedCount
	stats.DedupByType = dedupResult.ByType

	// Stage 4: two-stage validation.
	accepted, validationRejected := p.validator.Validate(ctx, dedupResult.Unique)
	rejected = append(rejected, validationRejected...)
	stats.ValidationPassed = len(accepted)
	stats.ValidationFailed = len(validationRejected)
	for i := range accepted {
		if accepted[i].Outcome == contracts.OutcomeAcceptedWarn {
			stats.Warnings++
		}
	}

	set := &contracts.SignalSet{
		Subject:   subject,
		Signals:   accepted,
		BuiltAt:   time.Now().UTC(),
		Documents: len(sourceTexts),
	}

	p.saveSignalSet(ctx, set)

	p.logger.WithFields(map[string]interface{}{
		"subject":  subject,
		"input":    stats.Input,
		"signals":  set.Count(),
		"rejected": len(rejected),
	}).Info("Pipeline processing completed")

	return set, rejected, stats
}

// Score computes the risk assessment for a processed set as of now and
// persists it best-effort.
func (p *Pipeline) Score(ctx context.Context, set *contracts.SignalSet, now time.Time) *contracts.RiskAssessment {
	assessment := p.scorer.Score(set, now)
	p.saveAssessment(ctx, assessment)
	return assessment
}

func (p *Pipeline) saveSignalSet(ctx context.Context, set *contracts.SignalSet) {
	if p.signals == nil {
		return
	}
	if err := p.signals.SaveSignalSet(ctx, set); err != nil {
		// Persistence is observability, not correctness. Log and move on.
		p.logger.WithError(err).WithField("subject", set.Subject).Error("Failed to save signal set")
	}
}

func (p *Pipeline) saveAssessment(ctx context.Context, a *contracts.RiskAssessment) {
	if p.assessments == nil {
		return
	}
	if err := p.assessments.SaveAssessment(ctx, a); err != nil {
		p.logger.WithError(err).WithField("subject", a.Subject).Error("Failed to save assessment")
	}
}
