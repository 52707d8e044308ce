package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/manoharb30/insight-lookinsight/internal/pipeline"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

// How long a background analysis may run before it is abandoned.
const analysisTimeout = 10 * time.Minute

// AnalysisRunner runs one end-to-end analysis. Implemented by
// pipeline.Analyzer.
type AnalysisRunner interface {
	Analyze(ctx context.Context, ticker string, now time.Time, progress pipeline.ProgressFunc) (*pipeline.AnalysisResult, error)
}

// AnalysisHandler exposes asynchronous analysis runs over HTTP. A POST
// kicks off a background job; clients poll the job or stream its progress
// over the websocket endpoint.
type AnalysisHandler struct {
	analyzer AnalysisRunner
	jobs     *JobStore
	logger   *logger.Logger
}

// NewAnalysisHandler creates an analysis handler.
func NewAnalysisHandler(analyzer AnalysisRunner, jobs *JobStore, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: analyzer,
		jobs:     jobs,
		logger:   log,
	}
}

// Start launches an analysis job for a ticker.
// POST /api/analyze/{ticker}
func (h *AnalysisHandler) Start(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(mux.Vars(r)["ticker"]))
	if ticker == "" {
		respondError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	job := h.jobs.Create(ticker)

	// The job outlives the HTTP request, so it gets its own context.
	go h.run(job.ID, ticker)

	h.logger.WithFields(map[string]interface{}{
		"job_id": job.ID,
		"ticker": ticker,
	}).Info("Analysis job started")

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"ticker": ticker,
		"status": string(job.Status),
	})
}

// Get returns the current state of a job, including its result once done.
// GET /api/analysis/{id}
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, ok := h.jobs.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	respondJSON(w, http.StatusOK, job)
}

func (h *AnalysisHandler) run(jobID, ticker string) {
	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	result, err := h.analyzer.Analyze(ctx, ticker, time.Now().UTC(), func(stage, detail string) {
		h.jobs.AddStage(jobID, stage, detail)
	})
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"job_id": jobID,
			"ticker": ticker,
		}).Error("Analysis job failed")
		h.jobs.Fail(jobID, err.Error())
		return
	}

	h.jobs.Complete(jobID, result)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
