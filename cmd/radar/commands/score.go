package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score [ticker]",
	Short: "Rescore a stored signal set",
	Long: `Recomputes the risk assessment for a ticker from its stored signal
set, without re-fetching filings. Useful after signals age out of the
combination or velocity windows.

Example:
  go run ./cmd/radar score ACME`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	ticker := args[0]
	fmt.Printf("=== Radar Rescore: %s ===\n\n", ticker)

	st, err := buildStack()
	if err != nil {
		return err
	}
	defer st.close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	set, err := st.signals.GetSignalSet(ctx, ticker)
	if err != nil {
		return fmt.Errorf("❌ %w (run analyze first)", err)
	}

	a := st.pipe.Score(ctx, set, time.Now().UTC())

	fmt.Printf("✅ %s: %d signals from %d documents (built %s)\n",
		set.Subject, set.Count(), set.Documents, set.BuiltAt.Format("2006-01-02"))
	fmt.Printf("\n   Risk score: %d / 100 (%s)\n", a.FinalScore, a.Level)
	fmt.Printf("   Base %d, combinations +%d, velocity +%d\n",
		a.BaseScore, a.CombinationBonus, a.VelocityBonus)
	if a.FloorApplied {
		fmt.Println("   Bankruptcy floor applied")
	}
	if a.Notes != "" {
		fmt.Printf("   %s\n", a.Notes)
	}

	return nil
}
