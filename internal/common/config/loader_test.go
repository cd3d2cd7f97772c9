// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFileAppliesDefaultsAndExpansion(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("TEST_LEAD_URL", "https://ingest.example.com")

	path := writeConfigFile(t, `
app:
  environment: test
funnel:
  demo_mode: true
apis:
  address_lookup:
    base_url: "https://lookup.example.com"
  lead_ingestion:
    base_url: "${TEST_LEAD_URL}"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Environment)
	assert.True(t, cfg.Funnel.DemoMode)
	assert.Equal(t, "https://ingest.example.com", cfg.APIs.LeadIngestion.BaseURL)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 400, cfg.Funnel.TransitionDelay)
	assert.Equal(t, "energylab", cfg.Funnel.DefaultSource)
	assert.Equal(t, 60, cfg.Funnel.SessionTTL)
	assert.Equal(t, 10000, cfg.APIs.AddressLookup.Timeout)
	assert.Equal(t, "funnel-events", cfg.Database.Elasticsearch.LeadIndex)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFileRequiresIngestionURL(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	path := writeConfigFile(t, `
apis:
  address_lookup:
    base_url: "https://lookup.example.com"
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lead_ingestion")
}
