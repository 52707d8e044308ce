package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/manoharb30/insight-lookinsight/internal/pipeline"
)

// JobStatus is the lifecycle state of an analysis job.
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// StageUpdate is one progress event emitted while a job runs.
type StageUpdate struct {
	Stage  string    `json:"stage"`
	Detail string    `json:"detail"`
	At     time.Time `json:"at"`
}

// Job is one asynchronous analysis run.
type Job struct {
	ID        string                   `json:"id"`
	Ticker    string                   `json:"ticker"`
	Status    JobStatus                `json:"status"`
	Stages    []StageUpdate            `json:"stages"`
	Result    *pipeline.AnalysisResult `json:"result,omitempty"`
	Error     string                   `json:"error,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// maxStoredJobs bounds the in-memory job history. Finished jobs past the
// cap are evicted oldest-first.
const maxStoredJobs = 200

// JobStore tracks analysis jobs in memory and fans progress updates out to
// websocket subscribers. Jobs do not survive a restart; results that matter
// are persisted by the pipeline itself.
type JobStore struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string
	subs  map[string][]chan StageUpdate
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		subs: make(map[string][]chan StageUpdate),
	}
}

// Create registers a queued job for a ticker and returns its snapshot.
func (s *JobStore) Create(ticker string) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	job := &Job{
		ID:        newJobID(),
		Ticker:    ticker,
		Status:    JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	s.evictLocked()

	return *job
}

// Get returns a snapshot of the job, if it exists.
func (s *JobStore) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return snapshot(job), true
}

// AddStage records a progress event and notifies subscribers. The first
// stage moves the job from queued to running.
func (s *JobStore) AddStage(id, stage, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return
	}

	update := StageUpdate{Stage: stage, Detail: detail, At: time.Now().UTC()}
	job.Stages = append(job.Stages, update)
	job.UpdatedAt = update.At
	if job.Status == JobQueued {
		job.Status = JobRunning
	}

	s.notifyLocked(id, update)
}

// Complete marks the job done with its result and closes subscriber
// channels.
func (s *JobStore) Complete(id string, result *pipeline.AnalysisResult) {
	s.finish(id, JobDone, result, "")
}

// Fail marks the job failed and closes subscriber channels.
func (s *JobStore) Fail(id string, errMsg string) {
	s.finish(id, JobFailed, nil, errMsg)
}

// Subscribe returns the stages recorded so far and a channel carrying
// subsequent updates. The channel is closed when the job finishes. cancel
// must be called when the subscriber goes away.
func (s *JobStore) Subscribe(id string) (replay []StageUpdate, updates <-chan StageUpdate, cancel func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, nil, nil, false
	}

	replay = append([]StageUpdate(nil), job.Stages...)

	ch := make(chan StageUpdate, 16)
	if job.Status == JobDone || job.Status == JobFailed {
		close(ch)
		return replay, ch, func() {}, true
	}

	s.subs[id] = append(s.subs[id], ch)
	cancel = func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subs[id]
		for i, c := range subs {
			if c == ch {
				s.subs[id] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
	return replay, ch, cancel, true
}

func (s *JobStore) finish(id string, status JobStatus, result *pipeline.AnalysisResult, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return
	}

	job.Status = status
	job.Result = result
	job.Error = errMsg
	job.UpdatedAt = time.Now().UTC()

	for _, ch := range s.subs[id] {
		close(ch)
	}
	delete(s.subs, id)
}

func (s *JobStore) notifyLocked(id string, update StageUpdate) {
	for _, ch := range s.subs[id] {
		select {
		case ch <- update:
		default:
			// Slow subscriber; it still sees the final state on close.
		}
	}
}

// evictLocked drops the oldest finished jobs over the cap. Running jobs are
// never evicted.
func (s *JobStore) evictLocked() {
	for len(s.order) > maxStoredJobs {
		removed := false
		for i, id := range s.order {
			job := s.jobs[id]
			if job == nil || job.Status == JobDone || job.Status == JobFailed {
				s.order = append(s.order[:i], s.order[i+1:]...)
				delete(s.jobs, id)
				removed = true
				break
			}
		}
		if !removed {
			return
		}
	}
}

func snapshot(job *Job) Job {
	out := *job
	out.Stages = append([]StageUpdate(nil), job.Stages...)
	return out
}

func newJobID() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().UTC().Format("20060102150405.000")))
	}
	return hex.EncodeToString(b)
}
