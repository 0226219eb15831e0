package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BCINSIGHTS_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":50051", cfg.Server.Address)
	assert.Zero(t, cfg.Filters.MinYear, "years come from the policy pack unless set")
	assert.Zero(t, cfg.Filters.MaxYear)
	assert.Equal(t, 0.05, cfg.Survival.Alpha)
	assert.Equal(t, "loglog", cfg.Survival.CIMethod)
	assert.Len(t, cfg.Data.Preload, 5)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
server:
  httpAddress: ":9090"
data:
  dir: /srv/data
survival:
  ciMethod: linear
cache:
  enabled: true
  viewTTL: 30s
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	t.Setenv("BCINSIGHTS_LOG_LEVEL", "debug")
	t.Setenv("BCINSIGHTS_FILTERS_MAX_YEAR", "2015")
	t.Setenv("BCINSIGHTS_DATA_PRELOAD", "genome_cluster, survival df")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.HTTPAddress)
	assert.Equal(t, "/srv/data", cfg.Data.Dir)
	assert.Equal(t, "linear", cfg.Survival.CIMethod)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Cache.ViewTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2015, cfg.Filters.MaxYear)
	assert.Equal(t, []string{"genome_cluster", "survival df"}, cfg.Data.Preload)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := defaultConfig()
	cfg.Filters.MinYear = 2030
	require.NoError(t, cfg.Validate())
	cfg.Filters.MaxYear = 2000
	require.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Survival.Alpha = 1.5
	require.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Cache.Backend = "redis-cluster"
	require.Error(t, cfg.Validate())
}
