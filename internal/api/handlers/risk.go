package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

const defaultHistoryDays = 365

// RiskHandler serves persisted assessments and signal sets. It reads what
// previous analysis runs stored; it never triggers new analysis.
type RiskHandler struct {
	signals     contracts.SignalRepository
	assessments contracts.AssessmentRepository
	logger      *logger.Logger
}

// NewRiskHandler creates a risk handler over the persistence layer.
func NewRiskHandler(signals contracts.SignalRepository, assessments contracts.AssessmentRepository, log *logger.Logger) *RiskHandler {
	return &RiskHandler{
		signals:     signals,
		assessments: assessments,
		logger:      log,
	}
}

// GetRisk returns the latest assessment for a ticker.
// GET /api/risk/{ticker}
func (h *RiskHandler) GetRisk(w http.ResponseWriter, r *http.Request) {
	ticker := pathTicker(r)

	assessment, err := h.assessments.GetLatestAssessment(r.Context(), ticker)
	if err != nil {
		respondError(w, http.StatusNotFound, "no assessment for "+ticker)
		return
	}

	respondJSON(w, http.StatusOK, assessment)
}

// GetHistory returns a ticker's assessment history, newest first.
// GET /api/risk/{ticker}/history?days=365
func (h *RiskHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ticker := pathTicker(r)

	days := defaultHistoryDays
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	history, err := h.assessments.ListAssessments(r.Context(), ticker, since)
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to list assessments")
		respondError(w, http.StatusInternalServerError, "failed to list assessments")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ticker": ticker,
		"days":   days,
		"count":  len(history),
		"items":  history,
	})
}

// GetSignals returns the stored signal set for a ticker.
// GET /api/signals/{ticker}
func (h *RiskHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	ticker := pathTicker(r)

	set, err := h.signals.GetSignalSet(r.Context(), ticker)
	if err != nil {
		respondError(w, http.StatusNotFound, "no signal set for "+ticker)
		return
	}

	respondJSON(w, http.StatusOK, set)
}

// ListSubjects returns every ticker with a stored signal set.
// GET /api/subjects
func (h *RiskHandler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.signals.ListSubjects(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list subjects")
		respondError(w, http.StatusInternalServerError, "failed to list subjects")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(subjects),
		"items": subjects,
	})
}

func pathTicker(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(mux.Vars(r)["ticker"]))
}
