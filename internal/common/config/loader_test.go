package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
marketplace:
  base_url: http://marketplace.local/api
workers:
  onboarding-wizard-load:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://marketplace.local/api", cfg.Marketplace.BaseURL)
	assert.Equal(t, FamilyBusiness, cfg.Marketplace.Family)
	assert.Equal(t, 15000, cfg.Marketplace.Timeout)
	assert.True(t, cfg.Onboarding.DurableSkip)
	assert.Equal(t, 5000, cfg.Onboarding.PollInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ":8080", cfg.App.HealthAddr)

	w := cfg.Workers["onboarding-wizard-load"]
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_MARKETPLACE_TOKEN", "secret-token")
	path := writeConfig(t, `
marketplace:
  base_url: http://marketplace.local
  family: company
  auth_token: ${TEST_MARKETPLACE_TOKEN}
onboarding:
  durable_skip: false
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "secret-token", cfg.Marketplace.AuthToken)
	assert.Equal(t, FamilyCompany, cfg.Marketplace.Family)
	assert.False(t, cfg.Onboarding.DurableSkip)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing base url",
			body:    "logging:\n  level: debug\n",
			wantErr: "marketplace.base_url is required",
		},
		{
			name:    "unknown family",
			body:    "marketplace:\n  base_url: http://x\n  family: shop\n",
			wantErr: "marketplace.family",
		},
		{
			name:    "audit without postgres",
			body:    "marketplace:\n  base_url: http://x\nonboarding:\n  audit_enabled: true\n",
			wantErr: "database.postgres",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{}}
	w := GetWorkerConfig(cfg, "missing")
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30*time.Second, GetDuration(w.Timeout))
}
