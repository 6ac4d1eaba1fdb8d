package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const fullConfig = `
platform:
  base_url: https://platform.example.com
  api_key: sekrit
  project: purchase-ml
  region: westeurope
deployment:
  type: managed_endpoint
  endpoint_base: purchase-predictor
  max_attempts: 4
  retry_delay: 2m
server:
  dir: /srv/predictor/server
  keep: 7
training:
  samples: 500
`

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, fullConfig), filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "https://platform.example.com", cfg.Platform.BaseURL)
	assert.Equal(t, "westeurope", cfg.Platform.Region)
	assert.Equal(t, 4, cfg.Deployment.MaxAttempts)
	assert.Equal(t, 2*time.Minute, cfg.Deployment.RetryDelay)
	assert.Equal(t, "/srv/predictor/server", cfg.Server.Dir)
	assert.Equal(t, 7, cfg.Server.Keep)
	assert.Equal(t, 500, cfg.Training.Samples)

	// Unset fields fall back to defaults.
	assert.Equal(t, 20*time.Minute, cfg.Deployment.AttemptTimeout)
	assert.Equal(t, ":5001", cfg.Serving.Addr)

	require.NoError(t, cfg.Validate())
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "config.yaml"), "")
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("PREDICTOR_PLATFORM_API_KEY", "from-env")
	t.Setenv("PREDICTOR_DEPLOYMENT_MAX_ATTEMPTS", "9")

	cfg, err := Load(writeConfig(t, fullConfig), filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Platform.APIKey)
	assert.Equal(t, 9, cfg.Deployment.MaxAttempts)
}

func TestEnvFileLoaded(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env.local")
	require.NoError(t, os.WriteFile(envFile, []byte("PREDICTOR_PLATFORM_REGION=northeurope\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("PREDICTOR_PLATFORM_REGION") })

	cfg, err := Load(writeConfig(t, fullConfig), envFile)
	require.NoError(t, err)
	assert.Equal(t, "northeurope", cfg.Platform.Region)
}

func TestValidateRequiresPlatformFields(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
platform:
  base_url: https://platform.example.com
  project: "  "
  region: westeurope
`), filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "platform.project")
}

func TestValidateLocalSkipsPlatformFields(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
deployment:
  type: local
`), filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveAttempts(t *testing.T) {
	cfg, err := Load(writeConfig(t, fullConfig), filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	cfg.Deployment.MaxAttempts = 0
	assert.Error(t, cfg.Validate())
}
