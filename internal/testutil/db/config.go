package db

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"credcore/internal/config"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
)

// LoadTestConfig loads configuration for integration tests. Tests are
// skipped when TEST_DATABASE is not set, so the suite passes without a
// database available.
func LoadTestConfig(t *testing.T) *config.Config {
	t.Helper()

	if os.Getenv("TEST_DATABASE") == "" {
		t.Skip("TEST_DATABASE not set, skipping database test")
	}

	// Get the absolute path to this file
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "Failed to get current file path")

	// Calculate project root (3 levels up from this file)
	projectRoot := filepath.Join(filepath.Dir(filename), "..", "..", "..")
	projectRoot, err := filepath.Abs(projectRoot)
	require.NoError(t, err, "Failed to get absolute project root path")

	// Optional env file for local runs
	_ = godotenv.Load(filepath.Join(projectRoot, ".env.test"))

	if os.Getenv("JWT_SECRET") == "" {
		os.Setenv("JWT_SECRET", "test-secret")
	}

	cfg := &config.Config{}
	err = cfg.LoadFromEnv()
	require.NoError(t, err, "Failed to load config")

	cfg.Database.DBName = os.Getenv("TEST_DATABASE")
	cfg.Database.MigrationsPath = filepath.Join(projectRoot, "migrations")

	return cfg
}
