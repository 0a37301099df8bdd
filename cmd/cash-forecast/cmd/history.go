package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/cash-forecast/pkg/db"
)

var historyLimit int

// historyCmd represents the history command.
var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Display reconcile run history",
	Long: `Display recent reconcile runs and overall statistics, or the details
of a single run when its ID is given.

Shows:
- Total, succeeded and failed runs
- Time of the last successful (non dry-run) reconcile
- Recent runs with their per-group row counts

Example:
  cash-forecast history
  cash-forecast history --limit 5
  cash-forecast history 3f1c2a9e-5b7d-4e0a-9c1b-2d8f6a4e7b10`,
	Args: cobra.MaximumNArgs(1),
	Run:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) {
	slog.Info("Loading configuration")
	_, pathResolver := loadPaths()

	// Open database connection
	dbPath := pathResolver.GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)

	conn, err := db.Open(dbPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	history := db.NewRunHistory(conn)
	slog.Debug("Reading run history", "path", conn.GetPath())

	if len(args) == 1 {
		showRun(history, args[0])
		return
	}

	stats, err := history.GetStats()
	exitOnError(err, "failed to get statistics")

	fmt.Println("\n=== Reconcile Statistics ===")
	fmt.Printf("Total runs:     %d\n", stats.TotalRuns)
	fmt.Printf("Succeeded:      %d\n", stats.SucceededRuns)
	fmt.Printf("Failed:         %d\n", stats.FailedRuns)

	if stats.LastSuccess.Valid {
		fmt.Printf("Last reconcile: %s\n", stats.LastSuccess.String)
	} else {
		fmt.Printf("Last reconcile: (never)\n")
	}

	runs, err := history.ListRuns(historyLimit)
	exitOnError(err, "failed to list runs")

	if len(runs) > 0 {
		fmt.Println("\n=== Recent Runs ===")
	}
	for _, run := range runs {
		mode := ""
		if run.DryRun {
			mode = " [dry run]"
		}
		fmt.Printf("%s  %-9s %s%s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Status, filepath.Base(run.SourceFile), mode)
		if run.Error != "" {
			fmt.Printf("    error: %s\n", run.Error)
		}

		printGroupRuns(history, run.ID)
	}

	fmt.Println()

	slog.Info("History displayed successfully")
}

func showRun(history *db.RunHistory, runID string) {
	run, err := history.GetRun(runID)
	exitOnError(err, "failed to get run")
	if run == nil {
		exitOnError(fmt.Errorf("run %s not found", runID), "failed to get run")
	}

	fmt.Printf("\n=== Run %s ===\n", run.ID)
	fmt.Printf("Status:   %s\n", run.Status)
	fmt.Printf("Source:   %s\n", run.SourceFile)
	fmt.Printf("Workbook: %s\n", run.Workbook)
	fmt.Printf("Dry run:  %t\n", run.DryRun)
	fmt.Printf("Started:  %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if run.FinishedAt.Valid {
		fmt.Printf("Finished: %s\n", run.FinishedAt.Time.Local().Format("2006-01-02 15:04:05"))
	}
	if run.Error != "" {
		fmt.Printf("Error:    %s\n", run.Error)
	}
	printGroupRuns(history, run.ID)
	fmt.Println()
}

func printGroupRuns(history *db.RunHistory, runID string) {
	groups, err := history.GetGroupRuns(runID)
	exitOnError(err, "failed to get group counts")
	for _, g := range groups {
		fmt.Printf("    %-20s prior=%d incoming=%d final=%d added=%d py=%d\n",
			g.GroupName, g.PriorRows, g.IncomingRows, g.FinalRows, g.AddedRows, g.PYRows)
	}
}
