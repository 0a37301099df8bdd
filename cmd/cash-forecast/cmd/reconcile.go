package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/cash-forecast/pkg/config"
	"github.com/shunichi-ikebuchi/cash-forecast/pkg/db"
	"github.com/shunichi-ikebuchi/cash-forecast/pkg/forecast"
	"github.com/shunichi-ikebuchi/cash-forecast/pkg/pathutil"
	"github.com/shunichi-ikebuchi/cash-forecast/pkg/runner"
	"github.com/shunichi-ikebuchi/cash-forecast/pkg/workbook"
)

var (
	sourceFile string
	dryRun     bool
)

// reconcileCmd represents the reconcile command.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Merge the latest COMS export into the forecast workbook",
	Long: `Merge a COMS "KTM Issued" export into the forecast workbook.

This command:
1. Loads the Week Table from the forecast workbook
2. Reads the Details sheet of the export (latest matching file by default)
3. Splits the transactions into the configured payee groups
4. Merges every group with its existing sheet, keeping the newest row per
   document, amount and purchase date
5. Saves the workbook (skipped with --dry-run)

Nothing is written unless every group reconciles.

Example:
  cash-forecast reconcile
  cash-forecast reconcile --source "KTM Issued-0301.xlsx"
  cash-forecast reconcile --dry-run`,
	Run: runReconcile,
}

func init() {
	reconcileCmd.Flags().StringVar(&sourceFile, "source", "", "COMS export to merge (default is the newest matching file)")
	reconcileCmd.Flags().BoolVar(&dryRun, "dry-run", false, "reconcile without writing the workbook")
}

func runReconcile(cmd *cobra.Command, args []string) {
	slog.Info("Loading configuration")
	cfg, pathResolver := loadPaths()

	defs, err := forecast.LoadGroups(pathResolver.GetGroupsFile())
	exitOnError(err, "failed to load group definitions")
	slog.Debug("Loaded group definitions", "groups", defs.Names())

	source := sourceFile
	if source == "" {
		source, err = pathResolver.LatestSourceFile()
		exitOnError(err, "failed to find source file")
	}
	workbookPath := pathResolver.GetWorkbookPath()
	exitOnError(pathResolver.CheckWorkbook(), "invalid configuration")

	slog.Info("Starting reconcile",
		"dir", pathResolver.GetForecastDir(),
		"source", filepath.Base(source),
		"workbook", filepath.Base(workbookPath),
		"dry_run", dryRun,
	)

	// Open database connection
	dbPath := pathResolver.GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)

	conn, err := db.Open(dbPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	history := db.NewRunHistory(conn)
	run, err := history.StartRun(source, workbookPath, dryRun)
	exitOnError(err, "failed to record run")

	report, runErr := reconcileWorkbook(cfg, pathResolver, defs, source, dryRun)

	var groups []db.GroupRun
	if report != nil {
		for _, g := range report.Groups {
			groups = append(groups, db.GroupRun{
				GroupName:    g.Name,
				PriorRows:    g.Prior,
				IncomingRows: g.Incoming,
				FinalRows:    g.Final,
				AddedRows:    g.Added,
				PYRows:       g.PY,
			})
		}
	}
	if err := history.FinishRun(run.ID, groups, runErr); err != nil {
		slog.Warn("Failed to record run result", "run", run.ID, "error", err)
	}

	if runErr != nil {
		conn.Close()
		exitOnError(runErr, "reconcile failed")
	}

	printReport(report, source, dryRun)
	slog.Info("Reconcile completed", "run", run.ID)
}

// reconcileWorkbook opens both workbooks, runs the reconciliation and saves
// the forecast workbook unless dryRun is set.
func reconcileWorkbook(cfg *config.Config, pathResolver *pathutil.PathResolver, defs *forecast.GroupDefinitions, source string, dryRun bool) (*runner.Report, error) {
	wb, err := workbook.Open(pathResolver.GetWorkbookPath(), workbook.RetryPolicy{
		Attempts: cfg.Workbook.OpenAttempts,
		Delay:    cfg.Workbook.OpenDelay,
	})
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	wb.SetInsertAfter(defs.InsertAfter)

	src, err := workbook.OpenSource(source)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	report, err := runner.New(defs).Run(runner.Inputs{
		Periods: wb,
		Source:  src,
		Store:   wb,
		DryRun:  dryRun,
	})
	if err != nil {
		return nil, err
	}

	if dryRun {
		slog.Info("[DRY RUN] Workbook not saved")
		return report, nil
	}

	if err := wb.Save(); err != nil {
		return report, err
	}
	slog.Info("Saved workbook", "path", wb.Path())

	return report, nil
}

func printReport(report *runner.Report, source string, dryRun bool) {
	title := "Reconcile Summary"
	if dryRun {
		title += " (dry run)"
	}

	fmt.Printf("\n=== %s ===\n", title)
	fmt.Printf("Source:          %s\n", filepath.Base(source))
	fmt.Printf("Week table days: %d\n", report.PeriodDays)
	fmt.Printf("Source records:  %d\n", report.SourceRecords)
	fmt.Printf("Unassigned:      %d\n", report.Unassigned)
	fmt.Println()
	fmt.Printf("%-20s %8s %8s %8s %8s %8s\n", "GROUP", "PRIOR", "INCOMING", "FINAL", "ADDED", "PY")
	for _, g := range report.Groups {
		fmt.Printf("%-20s %8d %8d %8d %8d %8d\n", g.Name, g.Prior, g.Incoming, g.Final, g.Added, g.PY)
	}
	fmt.Println()
}
