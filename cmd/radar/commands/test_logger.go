package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/manoharb30/insight-lookinsight/pkg/config"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

// testLoggerCmd represents the test-logger command
var testLoggerCmd = &cobra.Command{
	Use:   "test-logger",
	Short: "Test structured logging",
	Long: `Tests the structured logging setup.

This command:
- JSON/Console format test
- log level test
- structured field logging
- error context logging

Example:
  go run ./cmd/radar test-logger
  go run ./cmd/radar test-logger --env production`,
	RunE: runTestLogger,
}

func init() {
	rootCmd.AddCommand(testLoggerCmd)
}

func runTestLogger(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Radar Logger Test ===")

	fmt.Println("1. JSON Format (Production)")
	fmt.Println("--------------------------------")
	testJSONFormat()
	fmt.Println()

	fmt.Println("2. Console Format (Development)")
	fmt.Println("--------------------------------")
	testConsoleFormat()
	fmt.Println()

	fmt.Println("3. Structured Logging with Fields")
	fmt.Println("--------------------------------")
	testStructuredLogging()
	fmt.Println()

	fmt.Println("4. Error Logging")
	fmt.Println("--------------------------------")
	testErrorLogging()
	fmt.Println()

	fmt.Println("✅ All logger tests completed!")
	return nil
}

func testJSONFormat() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
		Database: config.DatabaseConfig{
			URL: "dummy", // Required by config validation
		},
	}

	log := logger.New(cfg)
	log.Info("Service started")
	log.Warn("EDGAR rate limit approaching")
	log.Error("Failed to reach classification API")
}

func testConsoleFormat() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "debug",
		LogFormat: "console",
		Database: config.DatabaseConfig{
			URL: "dummy",
		},
	}

	log := logger.New(cfg)
	log.Debug("Debugging pipeline flow")
	log.Info("Analysis request received")
	log.Warn("Cache miss, fetching filing from EDGAR")
}

func testStructuredLogging() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
		Database: config.DatabaseConfig{
			URL: "dummy",
		},
	}

	log := logger.New(cfg)

	// Single field
	jobLog := log.WithField("job_id", "a3f9c2d1")
	jobLog.Info("Analysis job started")

	// Multiple fields
	scoreLog := log.WithFields(map[string]interface{}{
		"ticker":  "ACME",
		"score":   77,
		"level":   "CRITICAL",
		"signals": 4,
	})
	scoreLog.Info("Risk assessment computed")

	// Chained fields
	log.WithField("module", "evidence").
		WithField("tier", "semantic").
		Info("Evidence located")
}

func testErrorLogging() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "error",
		LogFormat: "json",
		Database: config.DatabaseConfig{
			URL: "dummy",
		},
	}

	log := logger.New(cfg)

	// Simple error
	err := errors.New("connection timeout")
	log.WithError(err).Error("Failed to fetch filing index")

	// Error with context
	log.WithError(err).
		WithFields(map[string]interface{}{
			"retry_count": 3,
			"timeout_ms":  5000,
			"endpoint":    "/submissions",
		}).
		Error("Connection failed after retries")
}
