package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/manoharb30/insight-lookinsight/internal/api"
	"github.com/manoharb30/insight-lookinsight/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                    - Health check
  POST /api/analyze/{ticker}      - Start an analysis job
  GET  /api/analysis/{id}         - Job status and result
  GET  /api/risk/{ticker}         - Latest risk assessment
  GET  /api/risk/{ticker}/history - Assessment history
  GET  /api/signals/{ticker}      - Stored signal set
  GET  /api/subjects              - Subjects with stored sets
  GET  /ws/jobs/{id}              - Job progress stream (websocket)

Example:
  go run ./cmd/radar api
  go run ./cmd/radar api --port 8089`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Radar API Server ===")

	st, err := buildStack()
	if err != nil {
		return err
	}
	defer st.close()

	if apiPort != "" {
		st.cfg.Port = apiPort
	}

	jobs := handlers.NewJobStore()
	analysisHandler := handlers.NewAnalysisHandler(st.analyzer, jobs, st.log)
	riskHandler := handlers.NewRiskHandler(st.signals, st.assessments, st.log)
	jobSocket := handlers.NewJobSocketHandler(jobs, st.log)

	router := api.NewRouter(analysisHandler, riskHandler, jobSocket, st.log)
	server := api.New(st.cfg, st.log, router)

	go func() {
		if err := server.Start(); err != nil {
			st.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", st.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	st.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	st.log.Info("Server stopped")
	return nil
}
