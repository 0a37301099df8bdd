// Package cmd provides CLI commands for cash-forecast.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/cash-forecast/pkg/config"
	"github.com/shunichi-ikebuchi/cash-forecast/pkg/pathutil"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cash-forecast",
	Short: "Merge COMS issued exports into the NA cash forecast workbook",
	Long: `cash-forecast reconciles the latest COMS "KTM Issued" export against
the rolling cash forecast workbook.

It supports:
- Splitting transactions into payee groups (one sheet per group)
- Tagging each transaction with its forecast week, or PY when unresolved
- Merging with rows already in the workbook without duplicating entries
- Recording every run in a SQLite history
- Dry-run mode for testing

Example:
  cash-forecast reconcile
  cash-forecast reconcile --source "KTM Issued-0301.xlsx" --dry-run
  cash-forecast history`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(groupsCmd)
}

// loadPaths loads configuration and builds the path resolver.
func loadPaths() (*config.Config, *pathutil.PathResolver) {
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate([]string{"forecast", "dir"}, []string{"workbook", "openAttempts"}); err != nil {
		exitOnError(err, "invalid configuration")
	}

	if cfg.Debug && !debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	return cfg, pathutil.New(pathutil.Config{
		ForecastDir:    cfg.Forecast.Dir,
		WorkbookPath:   cfg.Forecast.WorkbookPath,
		DatabasePath:   cfg.Forecast.DBPath,
		GroupsFile:     cfg.Forecast.GroupsFile,
		SourcePatterns: cfg.Forecast.SourcePatterns,
	})
}

func getConfigFile() string {
	if cfgFile != "" {
		return cfgFile
	}
	return "" // Will use default .env loading
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
