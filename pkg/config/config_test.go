package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"FORECAST_DIR",
	"FORECAST_WORKBOOK",
	"FORECAST_SOURCE_PATTERNS",
	"FORECAST_GROUPS_FILE",
	"FORECAST_DB_PATH",
	"FORECAST_OPEN_ATTEMPTS",
	"FORECAST_OPEN_DELAY",
	"DEBUG",
}

// clearEnv blanks every key for the test; godotenv does not override
// variables that are already set, so tests must start from an empty value.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

// chdir switches the working directory for the test and restores it on
// cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Forecast.Dir)
	assert.Empty(t, cfg.Forecast.WorkbookPath)
	assert.Empty(t, cfg.Forecast.SourcePatterns)
	assert.Equal(t, 5, cfg.Workbook.OpenAttempts)
	assert.Equal(t, 2*time.Second, cfg.Workbook.OpenDelay)
	assert.False(t, cfg.Debug)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "forecast.env")
	content := `FORECAST_DIR=/data/cf
FORECAST_WORKBOOK=/data/cf/forecast.xlsx
FORECAST_SOURCE_PATTERNS=KTM Issued-*.xlsx, COMS-*.xlsx ,
FORECAST_OPEN_ATTEMPTS=3
FORECAST_OPEN_DELAY=500ms
DEBUG=true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/cf", cfg.Forecast.Dir)
	assert.Equal(t, "/data/cf/forecast.xlsx", cfg.Forecast.WorkbookPath)
	assert.Equal(t, []string{"KTM Issued-*.xlsx", "COMS-*.xlsx"}, cfg.Forecast.SourcePatterns)
	assert.Equal(t, 3, cfg.Workbook.OpenAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Workbook.OpenDelay)
	assert.True(t, cfg.Debug)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"FORECAST_OPEN_ATTEMPTS", "many"},
		{"FORECAST_OPEN_ATTEMPTS", "0"},
		{"FORECAST_OPEN_DELAY", "soon"},
		{"FORECAST_OPEN_DELAY", "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			chdir(t, t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Forecast: ForecastConfig{Dir: "."},
		Workbook: WorkbookConfig{OpenAttempts: 1},
	}

	assert.NoError(t, cfg.Validate([]string{"forecast", "dir"}, []string{"workbook", "openAttempts"}))

	err := cfg.Validate(
		[]string{"forecast", "dir"},
		[]string{"forecast", "workbook"},
		[]string{"forecast", "groupsFile"},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forecast.workbook")
	assert.Contains(t, err.Error(), "forecast.groupsFile")
	assert.NotContains(t, err.Error(), "forecast.dir")
}
