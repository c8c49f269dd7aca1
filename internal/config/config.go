package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values. ApplyEnv reads them.
const (
	EnvListen         = "ADMINCAL_LISTEN"
	EnvBackendURL     = "ADMINCAL_BACKEND_URL"
	EnvBackendToken   = "ADMINCAL_BACKEND_TOKEN"
	EnvLogLevel       = "ADMINCAL_LOG_LEVEL"
	EnvBasicAuthUser  = "ADMINCAL_BASIC_AUTH_USERNAME"
	EnvBasicAuthPass  = "ADMINCAL_BASIC_AUTH_PASSWORD"
	EnvBackendTimeout = "ADMINCAL_BACKEND_TIMEOUT_SECONDS"
)

// BackendConfig describes the admin backend that serves projects, meetings
// and employees. Paths are joined to BaseURL; EmployeePath must contain
// "{id}".
type BackendConfig struct {
	BaseURL      string `yaml:"base_url" json:"base_url"`
	ProjectsPath string `yaml:"projects_path" json:"projects_path"`
	MeetingsPath string `yaml:"meetings_path" json:"meetings_path"`
	DueDatePath  string `yaml:"due_date_path" json:"due_date_path"`
	EmployeePath string `yaml:"employee_path" json:"employee_path"`

	// Token, if set, is sent as "Authorization: Bearer <token>".
	Token string `yaml:"token,omitempty" json:"-"`

	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`

	// CacheDir holds ETag/Last-Modified metadata and bodies of GET
	// responses. Empty disables the cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// StaleOnError serves a cached body when the backend is unreachable or
	// answers with a non-2xx status. Off by default so that fetch failures
	// stay visible.
	StaleOnError bool `yaml:"stale_on_error" json:"stale_on_error"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone the refresh schedule runs in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron-style schedule string (e.g. "*/5 * * * *")
	// used for periodic refresh of both sources.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`

	Backend BackendConfig `yaml:"backend" json:"backend"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen       = "127.0.0.1:8080"
	defaultTimezone     = "UTC"
	defaultRefresh      = "*/5 * * * *"
	defaultLogLevel     = "info"
	defaultLogFormat    = "console"
	defaultBaseURL      = "http://127.0.0.1:8081"
	defaultProjectsPath = "/api/admin/projects"
	defaultMeetingsPath = "/api/admin/meetings"
	defaultDueDatePath  = "/api/admin/project/due-date"
	defaultEmployeePath = "/api/employee/{id}"
	defaultTimeout      = 15
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Timezone:    defaultTimezone,
		RefreshCron: defaultRefresh,
		LogLevel:    defaultLogLevel,
		LogFormat:   defaultLogFormat,
		Backend: BackendConfig{
			BaseURL:        defaultBaseURL,
			ProjectsPath:   defaultProjectsPath,
			MeetingsPath:   defaultMeetingsPath,
			DueDatePath:    defaultDueDatePath,
			EmployeePath:   defaultEmployeePath,
			TimeoutSeconds: defaultTimeout,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefresh
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	switch c.LogFormat {
	case "console", "json":
		// ok
	default:
		c.LogFormat = defaultLogFormat
	}

	b := &c.Backend
	b.BaseURL = strings.TrimRight(b.BaseURL, "/")
	if b.BaseURL == "" {
		b.BaseURL = defaultBaseURL
	}
	if b.ProjectsPath == "" {
		b.ProjectsPath = defaultProjectsPath
	}
	if b.MeetingsPath == "" {
		b.MeetingsPath = defaultMeetingsPath
	}
	if b.DueDatePath == "" {
		b.DueDatePath = defaultDueDatePath
	}
	if b.EmployeePath == "" || !strings.Contains(b.EmployeePath, "{id}") {
		b.EmployeePath = defaultEmployeePath
	}
	if b.TimeoutSeconds <= 0 {
		b.TimeoutSeconds = defaultTimeout
	}

	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.Password == "" {
		c.BasicAuth = nil
	}
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides file values with ADMINCAL_* environment variables.
// Precedence: flags (applied by the caller afterwards) > env > file > defaults.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvBackendURL); v != "" {
		c.Backend.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv(EnvBackendToken); v != "" {
		c.Backend.Token = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvBackendTimeout); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Backend.TimeoutSeconds = n
		}
	}
	user, pass := os.Getenv(EnvBasicAuthUser), os.Getenv(EnvBasicAuthPass)
	if user != "" && pass != "" {
		c.BasicAuth = &BasicAuthConfig{Username: user, Password: pass}
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".admincal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
