package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/manoharb30/insight-lookinsight/internal/api/handlers"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

// NewRouter wires every HTTP route. Routing lives here and nowhere else.
func NewRouter(analysis *handlers.AnalysisHandler, risk *handlers.RiskHandler, jobSocket *handlers.JobSocketHandler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// API
	api := r.PathPrefix("/api").Subrouter()

	// Analysis jobs
	api.HandleFunc("/analyze/{ticker}", analysis.Start).Methods("POST")
	api.HandleFunc("/analysis/{id}", analysis.Get).Methods("GET")

	// Persisted results
	api.HandleFunc("/risk/{ticker}", risk.GetRisk).Methods("GET")
	api.HandleFunc("/risk/{ticker}/history", risk.GetHistory).Methods("GET")
	api.HandleFunc("/signals/{ticker}", risk.GetSignals).Methods("GET")
	api.HandleFunc("/subjects", risk.ListSubjects).Methods("GET")

	// Job progress streaming
	r.HandleFunc("/ws/jobs/{id}", jobSocket.Stream).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "radar-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
