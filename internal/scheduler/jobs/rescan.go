package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

// RescanSchedule runs nightly at 02:30 UTC, after EDGAR's evening filing
// load settles.
const RescanSchedule = "0 30 2 * * *"

// SetScorer rescores a stored signal set as of a point in time.
// Implemented by pipeline.Pipeline.
type SetScorer interface {
	Score(ctx context.Context, set *contracts.SignalSet, now time.Time) *contracts.RiskAssessment
}

// RescanJob rescores every stored signal set against the current date.
// Scores decay as signals age out of the combination and velocity windows,
// so an assessment computed months ago goes stale even with no new filings.
type RescanJob struct {
	signals  contracts.SignalRepository
	scorer   SetScorer
	logger   *logger.Logger
	schedule string
}

// NewRescanJob creates the nightly rescan job. An empty schedule selects
// the default.
func NewRescanJob(signals contracts.SignalRepository, scorer SetScorer, log *logger.Logger, schedule string) *RescanJob {
	if schedule == "" {
		schedule = RescanSchedule
	}
	return &RescanJob{
		signals:  signals,
		scorer:   scorer,
		logger:   log,
		schedule: schedule,
	}
}

// Name returns the job name
func (j *RescanJob) Name() string {
	return "risk_rescan"
}

// Schedule returns the cron schedule expression
func (j *RescanJob) Schedule() string {
	return j.schedule
}

// Run rescores all stored subjects. A subject that cannot be loaded is
// skipped and logged; the job fails only when nothing could be rescored.
func (j *RescanJob) Run(ctx context.Context) error {
	subjects, err := j.signals.ListSubjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subjects: %w", err)
	}
	if len(subjects) == 0 {
		j.logger.Info("No stored signal sets to rescan")
		return nil
	}

	now := time.Now().UTC()
	rescored := 0
	failed := 0

	for _, subject := range subjects {
		set, err := j.signals.GetSignalSet(ctx, subject)
		if err != nil {
			failed++
			j.logger.WithError(err).WithField("subject", subject).Warn("Skipping subject in rescan")
			continue
		}

		assessment := j.scorer.Score(ctx, set, now)
		rescored++

		j.logger.WithFields(map[string]interface{}{
			"subject": subject,
			"score":   assessment.FinalScore,
			"level":   assessment.Level,
		}).Debug("Subject rescored")
	}

	j.logger.WithFields(map[string]interface{}{
		"subjects": len(subjects),
		"rescored": rescored,
		"failed":   failed,
	}).Info("Rescan completed")

	if rescored == 0 {
		return fmt.Errorf("rescan failed for all %d subjects", len(subjects))
	}
	return nil
}
