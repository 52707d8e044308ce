package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "radar",
	Short: "Corporate distress radar over SEC disclosures",
	Long: `Radar CLI

Extracts distress signals from SEC filings, verifies them against the
source text and scores bankruptcy risk 0-100.

Usage:
  go run ./cmd/radar [command]

Examples:
  go run ./cmd/radar api
  go run ./cmd/radar analyze ACME
  go run ./cmd/radar score ACME
  go run ./cmd/radar test-db
  go run ./cmd/radar test-logger`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
