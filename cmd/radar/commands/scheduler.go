package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/manoharb30/insight-lookinsight/internal/scheduler"
	"github.com/manoharb30/insight-lookinsight/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage scheduled jobs",
	Long: `Starts the scheduler daemon or runs a job immediately.

Registered jobs:
- risk_rescan: nightly rescore of every stored signal set

Subcommands:
  start  - start the scheduler daemon
  run    - run a job immediately
  list   - list registered jobs
  status - show job statistics

Example:
  go run ./cmd/radar scheduler start
  go run ./cmd/radar scheduler run risk_rescan`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  runScheduler,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listSchedulerJobs,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show job statistics",
		RunE:  showSchedulerStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func initScheduler() (*scheduler.Scheduler, *stack, error) {
	st, err := buildStack()
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(st.log)
	if err := sched.AddJob(jobs.NewRescanJob(st.signals, st.pipe, st.log, "")); err != nil {
		st.close()
		return nil, nil, fmt.Errorf("register rescan job: %w", err)
	}

	return sched, st, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Radar Scheduler ===")

	sched, st, err := initScheduler()
	if err != nil {
		return err
	}
	defer st.close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listSchedulerJobs(cmd *cobra.Command, args []string) error {
	sched, st, err := initScheduler()
	if err != nil {
		return err
	}
	defer st.close()

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}

	return nil
}

func showSchedulerStatus(cmd *cobra.Command, args []string) error {
	sched, st, err := initScheduler()
	if err != nil {
		return err
	}
	defer st.close()

	stats := sched.GetJobStats()

	fmt.Println("Job Statistics:")
	fmt.Println()

	for jobName, stat := range stats {
		fmt.Printf("📊 %s\n", jobName)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("   Failures: %d\n", stat.FailureCount)

		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}
		if stat.LastFailure != nil {
			fmt.Printf("   Last Failure: %s\n", stat.LastFailure.Format("2006-01-02 15:04:05"))
		}

		fmt.Println()
	}

	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	st, err := buildStack()
	if err != nil {
		return err
	}
	defer st.close()

	job := jobs.NewRescanJob(st.signals, st.pipe, st.log, "")
	if jobName != job.Name() {
		return fmt.Errorf("unknown job %s", jobName)
	}

	fmt.Printf("Running job %s...\n", jobName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := job.Run(ctx); err != nil {
		return fmt.Errorf("❌ job failed: %w", err)
	}

	fmt.Println("✅ Job completed")
	return nil
}
