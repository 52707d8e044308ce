package scheduler

import (
	"context"
	"time"
)

// historyCap bounds how many results are retained per job.
const historyCap = 100

// Job is a unit of scheduled work.
type Job interface {
	Name() string

	// Run does the work. The context carries the per-run deadline.
	Run(ctx context.Context) error

	// Schedule is a cron expression with seconds, e.g. "0 30 2 * * *",
	// or a descriptor like "@hourly".
	Schedule() string
}

// JobResult records one execution of a job.
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory keeps a bounded window of results plus running counters,
// so stats do not rescan the window.
type JobHistory struct {
	Results []JobResult

	totalRuns int
	failures  int
}

// Append records a result, evicting the oldest once the cap is hit.
// Counters cover every run ever recorded, not just the retained window.
func (h *JobHistory) Append(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > historyCap {
		h.Results = h.Results[len(h.Results)-historyCap:]
	}

	h.totalRuns++
	if !result.Success {
		h.failures++
	}
}

// Last returns the most recent result, or nil when nothing has run.
func (h *JobHistory) Last() *JobResult {
	if len(h.Results) == 0 {
		return nil
	}
	return &h.Results[len(h.Results)-1]
}

// TotalRuns returns how many runs were recorded.
func (h *JobHistory) TotalRuns() int {
	return h.totalRuns
}

// FailureCount returns how many recorded runs failed.
func (h *JobHistory) FailureCount() int {
	return h.failures
}

// SuccessRate returns the fraction of recorded runs that succeeded.
func (h *JobHistory) SuccessRate() float64 {
	if h.totalRuns == 0 {
		return 0
	}
	return float64(h.totalRuns-h.failures) / float64(h.totalRuns)
}
