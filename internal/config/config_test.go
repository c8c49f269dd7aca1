package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
listen: ":9000"
backend:
  base_url: "https://admin.example.com/"
  employee_path: "/employees"
  stale_on_error: true
log_format: xml
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "https://admin.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, defaultEmployeePath, cfg.Backend.EmployeePath, "path without {id} is replaced")
	assert.Equal(t, defaultProjectsPath, cfg.Backend.ProjectsPath)
	assert.Equal(t, defaultTimeout, cfg.Backend.TimeoutSeconds)
	assert.True(t, cfg.Backend.StaleOnError)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, defaultRefresh, cfg.RefreshCron)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.RefreshCron = "0 * * * *"
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0 * * * *", loaded.RefreshCron)
	require.NotNil(t, loaded.BasicAuth)
	assert.Equal(t, "admin", loaded.BasicAuth.Username)
}

func TestNormalizeDropsEmptyBasicAuth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BasicAuth = &BasicAuthConfig{}
	cfg.Normalize()
	assert.Nil(t, cfg.BasicAuth)
}

func TestApplyEnvOverridesFile(t *testing.T) {
	t.Setenv(EnvListen, "0.0.0.0:7000")
	t.Setenv(EnvBackendURL, "https://backend.internal/")
	t.Setenv(EnvBackendToken, "tok")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvBackendTimeout, "3")
	t.Setenv(EnvBasicAuthUser, "u")
	t.Setenv(EnvBasicAuthPass, "p")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	assert.Equal(t, "0.0.0.0:7000", cfg.Listen)
	assert.Equal(t, "https://backend.internal", cfg.Backend.BaseURL)
	assert.Equal(t, "tok", cfg.Backend.Token)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.Backend.TimeoutSeconds)
	require.NotNil(t, cfg.BasicAuth)
	assert.Equal(t, "u", cfg.BasicAuth.Username)
}

func TestApplyEnvIgnoresBadTimeout(t *testing.T) {
	t.Setenv(EnvBackendTimeout, "soon")
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	assert.Equal(t, defaultTimeout, cfg.Backend.TimeoutSeconds)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ADMINCAL_BACKEND_TOKEN=from-dotenv\n"), 0o600))
	t.Setenv(EnvBackendToken, "")
	require.NoError(t, os.Unsetenv(EnvBackendToken))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-dotenv", os.Getenv(EnvBackendToken))

	assert.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env")))
	assert.NoError(t, LoadEnvFile(""))
}
