package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [ticker]",
	Short: "Run a full analysis for one ticker",
	Long: `Runs the end-to-end analysis for a ticker: resolves the company,
downloads its recent filings, extracts candidate signals, verifies them
against the filing text and scores the result.

The signal set and assessment are persisted; the assessment is printed.

Example:
  go run ./cmd/radar analyze ACME`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var analyzeTimeout time.Duration

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 10*time.Minute, "analysis timeout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ticker := args[0]
	fmt.Printf("=== Radar Analysis: %s ===\n\n", ticker)

	st, err := buildStack()
	if err != nil {
		return err
	}
	defer st.close()

	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	result, err := st.analyzer.Analyze(ctx, ticker, time.Now().UTC(), func(stage, detail string) {
		fmt.Printf("  [%s] %s\n", stage, detail)
	})
	if err != nil {
		return fmt.Errorf("❌ analysis failed: %w", err)
	}

	a := result.Assessment
	fmt.Printf("\n✅ %s (%s)\n", result.Subject.CompanyName, result.Subject.Ticker)
	fmt.Printf("   Filings analyzed: %d\n", len(result.Filings))
	fmt.Printf("   Candidates: %d, signals kept: %d, rejected: %d\n",
		result.Stats.Input, result.Set.Count(), len(result.Rejected))
	fmt.Printf("\n   Risk score: %d / 100 (%s)\n", a.FinalScore, a.Level)
	if a.Notes != "" {
		fmt.Printf("   %s\n", a.Notes)
	}

	if len(a.SignalBreakdown) > 0 {
		fmt.Println("\n   Contributions:")
		for _, c := range a.SignalBreakdown {
			fmt.Printf("     %-20s weight %d x severity %d -> %.1f\n",
				c.Type, c.PredictiveWeight, c.Severity, c.Contribution)
		}
	}

	return nil
}
