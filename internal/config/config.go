// Package config provides application configuration management with support
// for command-line flags, environment variables and .env files.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Backend modes.
const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

// Client state storage drivers.
const (
	DriverBadger = "badger"
	DriverFile   = "file"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Backend  BackendConfig
	State    StateConfig
	Realtime RealtimeConfig
	Shell    ShellConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	// Name doubles as the key of the persisted settings blob.
	Name string
	// URL is the public address of the web app, used in share links.
	URL string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string // json, pretty or empty for environment default
}

// BackendConfig describes the collaborator the client talks to.
type BackendConfig struct {
	Mode      string // remote or local
	URL       string
	AnonKey   string
	Timeout   time.Duration
	RateLimit float64 // requests per second per table
	Burst     int
	// LocalPath is the sqlite database used in local mode.
	LocalPath string
	// TokenKey is a hex PASETO key for local mode. Generated when empty.
	TokenKey string
	// AccessTokenTTL and RefreshTokenTTL apply to local mode sessions.
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// StateConfig holds the on-device storage location.
type StateConfig struct {
	Dir    string
	Driver string // badger or file
}

// RealtimeConfig tunes channel reconnects.
type RealtimeConfig struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Heartbeat      time.Duration
}

// ShellConfig configures the local HTTP bridge for web views.
type ShellConfig struct {
	Port           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// Flags carries command-line overrides. Empty fields fall through to the
// environment, then the .env file, then defaults.
type Flags struct {
	Env         string
	LogLevel    string
	LogFormat   string
	BackendMode string
	BackendURL  string
	AnonKey     string
	StateDir    string
	StateDriver string
	ShellPort   string
	EnvFile     string
}

// Load builds configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(flags Flags) (*Config, error) {
	envFile := flags.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// A missing .env file is normal.
	if err := loadEnvFile(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", envFile, err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(flags.Env, "ENV", "development"),
			Name:        getConfigValue("", "APP_NAME", "goodaideas"),
			URL:         strings.TrimRight(getConfigValue("", "APP_URL", ""), "/"),
		},
		Logger: LoggerConfig{
			Level:  getConfigValue(flags.LogLevel, "LOG_LEVEL", "info"),
			Format: getConfigValue(flags.LogFormat, "LOG_FORMAT", ""),
		},
		Backend: BackendConfig{
			Mode:      getConfigValue(flags.BackendMode, "BACKEND_MODE", BackendLocal),
			URL:       strings.TrimRight(getConfigValue(flags.BackendURL, "BACKEND_URL", ""), "/"),
			AnonKey:   getConfigValue(flags.AnonKey, "BACKEND_ANON_KEY", ""),
			RateLimit: getFloatConfigValue("", "BACKEND_RPS", 10),
			Burst:     getIntConfigValue("", "BACKEND_BURST", 20),
			LocalPath: getConfigValue("", "BACKEND_LOCAL_PATH", ""),
			TokenKey:  getConfigValue("", "BACKEND_TOKEN_KEY", ""),
		},
		State: StateConfig{
			Dir:    getConfigValue(flags.StateDir, "STATE_DIR", ""),
			Driver: getConfigValue(flags.StateDriver, "STATE_DRIVER", DriverBadger),
		},
		Shell: ShellConfig{
			Port:           getConfigValue(flags.ShellPort, "SHELL_PORT", "8787"),
			AllowedOrigins: splitList(getConfigValue("", "SHELL_ALLOWED_ORIGINS", "http://localhost:5173")),
		},
	}

	durations := []struct {
		dst    *time.Duration
		envKey string
		def    string
	}{
		{&cfg.Backend.Timeout, "BACKEND_TIMEOUT", "15s"},
		{&cfg.Backend.AccessTokenTTL, "ACCESS_TOKEN_DURATION", "1h"},
		{&cfg.Backend.RefreshTokenTTL, "REFRESH_TOKEN_DURATION", "720h"},
		{&cfg.Realtime.InitialBackoff, "REALTIME_INITIAL_BACKOFF", "500ms"},
		{&cfg.Realtime.MaxBackoff, "REALTIME_MAX_BACKOFF", "30s"},
		{&cfg.Realtime.Heartbeat, "REALTIME_HEARTBEAT", "25s"},
		{&cfg.Shell.ReadTimeout, "SHELL_READ_TIMEOUT", "15s"},
		{&cfg.Shell.WriteTimeout, "SHELL_WRITE_TIMEOUT", "0s"},
		{&cfg.Shell.IdleTimeout, "SHELL_IDLE_TIMEOUT", "60s"},
	}
	for _, d := range durations {
		raw := getConfigValue("", d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{"development": true, "staging": true, "production": true}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.App.Name == "" {
		return errors.New("APP_NAME cannot be empty")
	}

	switch c.Backend.Mode {
	case BackendRemote:
		if c.Backend.URL == "" || c.Backend.AnonKey == "" {
			return errors.New("missing backend credentials: BACKEND_URL and BACKEND_ANON_KEY are required in remote mode")
		}
	case BackendLocal:
	default:
		return fmt.Errorf("invalid backend mode: %s (must be remote or local)", c.Backend.Mode)
	}

	if c.State.Driver != DriverBadger && c.State.Driver != DriverFile {
		return fmt.Errorf("invalid state driver: %s (must be badger or file)", c.State.Driver)
	}

	if c.Backend.RateLimit <= 0 || c.Backend.Burst <= 0 {
		return errors.New("backend rate limit and burst must be positive")
	}

	if c.Realtime.InitialBackoff <= 0 || c.Realtime.MaxBackoff < c.Realtime.InitialBackoff {
		return errors.New("realtime backoff must be positive and max must not be below initial")
	}

	return nil
}

// SettingsKey is the storage key of the persisted settings blob.
func (c *Config) SettingsKey() string {
	return c.App.Name + "-storage"
}

// PublicURL returns the address share links point at. Without APP_URL it
// is the local app shell.
func (c *Config) PublicURL() string {
	if c.App.URL != "" {
		return c.App.URL
	}
	return "http://localhost:" + c.Shell.Port
}

func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	c.State.Dir, err = expandPath(c.State.Dir, filepath.Join(homeDir, "."+c.App.Name))
	if err != nil {
		return fmt.Errorf("invalid state dir: %w", err)
	}

	c.Backend.LocalPath, err = expandPath(c.Backend.LocalPath, filepath.Join(c.State.Dir, "backend.db"))
	if err != nil {
		return fmt.Errorf("invalid local backend path: %w", err)
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envKey != "" {
		if envValue := os.Getenv(envKey); envValue != "" {
			return envValue
		}
	}
	return defaultValue
}

func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	n, err := strconv.Atoi(getConfigValue(flagValue, envKey, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(getConfigValue(flagValue, envKey, ""), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- .env path is chosen by the user
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables take precedence over .env.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
