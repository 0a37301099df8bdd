// Package pathutil provides centralized path management for the forecast
// workbook, COMS exports, group definitions and run history.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

var (
	// ErrNoSourceFile is returned when no export matches the configured patterns.
	ErrNoSourceFile = errors.New("no source file found")
	// ErrWorkbookNotFound is returned when the forecast workbook does not exist.
	ErrWorkbookNotFound = errors.New("forecast workbook not found")
)

// DefaultWorkbookName is the forecast workbook's file name inside the forecast directory.
const DefaultWorkbookName = "2025 NA Cash Forecast.xlsx"

// DefaultSourcePatterns match the COMS "KTM Issued" exports.
var DefaultSourcePatterns = []string{"KTM Issued-*.xlsx", "KTM-Issued-*.xlsx"}

// PathResolver manages paths for the forecast workbook, exports and database.
type PathResolver struct {
	forecastDir    string
	workbookPath   string
	databasePath   string
	groupsFile     string
	sourcePatterns []string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// ForecastDir is the folder holding the workbook and the COMS exports
	ForecastDir string
	// WorkbookPath is the forecast workbook
	WorkbookPath string
	// DatabasePath is the SQLite run history file
	DatabasePath string
	// GroupsFile is the YAML group definition file
	GroupsFile string
	// SourcePatterns are glob patterns, relative to ForecastDir, matching exports
	SourcePatterns []string
}

// New creates a new PathResolver with the given configuration.
// If WorkbookPath is empty, it defaults to {ForecastDir}/2025 NA Cash Forecast.xlsx
// If DatabasePath is empty, it defaults to {ForecastDir}/.forecast/history.db
// If GroupsFile is empty, it defaults to config/groups.yaml
func New(config Config) *PathResolver {
	dir := config.ForecastDir
	if dir == "" {
		dir = "."
	}

	workbook := config.WorkbookPath
	if workbook == "" {
		workbook = filepath.Join(dir, DefaultWorkbookName)
	}

	dbPath := config.DatabasePath
	if dbPath == "" {
		dbPath = filepath.Join(dir, ".forecast", "history.db")
	}

	groups := config.GroupsFile
	if groups == "" {
		groups = filepath.Join("config", "groups.yaml")
	}

	patterns := config.SourcePatterns
	if len(patterns) == 0 {
		patterns = DefaultSourcePatterns
	}

	return &PathResolver{
		forecastDir:    dir,
		workbookPath:   workbook,
		databasePath:   dbPath,
		groupsFile:     groups,
		sourcePatterns: patterns,
	}
}

// GetForecastDir returns the forecast directory.
func (p *PathResolver) GetForecastDir() string {
	return p.forecastDir
}

// GetWorkbookPath returns the forecast workbook path.
func (p *PathResolver) GetWorkbookPath() string {
	return p.workbookPath
}

// GetDatabasePath returns the database file path.
func (p *PathResolver) GetDatabasePath() string {
	return p.databasePath
}

// GetGroupsFile returns the group definitions path.
func (p *PathResolver) GetGroupsFile() string {
	return p.groupsFile
}

// LatestSourceFile returns the most recently modified export in the forecast
// directory matching any source pattern. Files with equal modification times
// are ordered by name and the last one wins.
func (p *PathResolver) LatestSourceFile() (string, error) {
	var matches []string
	for _, pattern := range p.sourcePatterns {
		found, err := filepath.Glob(filepath.Join(p.forecastDir, pattern))
		if err != nil {
			return "", fmt.Errorf("invalid source pattern %q: %w", pattern, err)
		}
		matches = append(matches, found...)
	}

	sort.Strings(matches)

	var latest string
	var latestMod int64
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if mod := info.ModTime().UnixNano(); latest == "" || mod >= latestMod {
			latest, latestMod = path, mod
		}
	}

	if latest == "" {
		return "", fmt.Errorf("%w in %s matching %v", ErrNoSourceFile, p.forecastDir, p.sourcePatterns)
	}

	return latest, nil
}

// CheckWorkbook verifies that the forecast workbook exists and is a file.
func (p *PathResolver) CheckWorkbook() error {
	if !p.FileExists(p.workbookPath) {
		return fmt.Errorf("%w: %s (set FORECAST_DIR or FORECAST_WORKBOOK)", ErrWorkbookNotFound, p.workbookPath)
	}
	return nil
}

// FileExists reports whether filePath exists and is not a directory.
func (p *PathResolver) FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	return err == nil && !info.IsDir()
}
