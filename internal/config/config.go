// Package config loads tada settings from defaults, TOML files, .env,
// TADA_* environment variables and flags, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/idilsaglam/tada-sync/internal/remote"
)

const (
	DefaultBaseURL        = remote.DefaultBaseURL
	DefaultMode           = "users"
	DefaultTimeoutSeconds = 10
	DefaultTheme          = "classic"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultListen         = "127.0.0.1:8080"

	// ProjectConfigFile is looked up in the working directory.
	ProjectConfigFile = "tada.toml"
	userConfigFile    = "config.toml"
	dotEnvFile        = ".env"
)

// Config holds every tunable. Zero values are replaced by defaults.
type Config struct {
	BaseURL        string `toml:"base_url"`
	Username       string `toml:"username"`
	Mode           string `toml:"mode"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Theme          string `toml:"theme"`
	Group          bool   `toml:"group"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogFile   string `toml:"log_file"`

	// Playground server.
	Listen   string `toml:"listen"`
	DataFile string `toml:"data_file"`
}

// Dir is the per-user state directory (~/.tada, or $TADA_HOME).
func Dir() (string, error) {
	if d := strings.TrimSpace(os.Getenv("TADA_HOME")); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".tada"), nil
}

// Load builds the configuration and returns the arguments left after flag
// parsing.
func Load(fs *flag.FlagSet, args []string) (*Config, []string, error) {
	cfg := &Config{}
	setDefaults(cfg)

	dir, err := Dir()
	if err != nil {
		return nil, nil, err
	}
	for _, path := range []string{filepath.Join(dir, userConfigFile), ProjectConfigFile} {
		if err := loadFile(cfg, path); err != nil {
			return nil, nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("loading %s: %w", dotEnvFile, err)
	}
	if err := loadFromEnv(cfg); err != nil {
		return nil, nil, err
	}

	rest, err := parseFlags(cfg, fs, args)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing flags: %w", err)
	}

	if err := finalize(cfg, dir); err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}

// Timeout is the per-request HTTP timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func setDefaults(cfg *Config) {
	cfg.BaseURL = DefaultBaseURL
	cfg.Mode = DefaultMode
	cfg.TimeoutSeconds = DefaultTimeoutSeconds
	cfg.Theme = DefaultTheme
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
	cfg.Listen = DefaultListen
}

// loadFile decodes a TOML file over cfg. Missing files are skipped.
func loadFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	_, err := toml.DecodeFile(path, cfg)
	return err
}

func loadFromEnv(cfg *Config) error {
	str := map[string]*string{
		"TADA_BASE_URL":   &cfg.BaseURL,
		"TADA_MODE":       &cfg.Mode,
		"TADA_THEME":      &cfg.Theme,
		"TADA_LOG_LEVEL":  &cfg.LogLevel,
		"TADA_LOG_FORMAT": &cfg.LogFormat,
		"TADA_LOG_FILE":   &cfg.LogFile,
		"TADA_LISTEN":     &cfg.Listen,
		"TADA_DATA_FILE":  &cfg.DataFile,
	}
	for key, dst := range str {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	if v := strings.TrimSpace(os.Getenv("TADA_TIMEOUT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TADA_TIMEOUT: not a number: %q", v)
		}
		cfg.TimeoutSeconds = n
	}
	if v := strings.TrimSpace(os.Getenv("TADA_GROUP")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TADA_GROUP: not a boolean: %q", v)
		}
		cfg.Group = b
	}
	return nil
}

// parseFlags registers flags defaulting to the values gathered so far, so
// only flags given on the command line change anything.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string) ([]string, error) {
	fs.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the todo API")
	fs.StringVar(&cfg.Username, "user", cfg.Username, "username whose list to open")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "API dialect: users or list")
	fs.IntVar(&cfg.TimeoutSeconds, "timeout", cfg.TimeoutSeconds, "request timeout in seconds")
	fs.StringVar(&cfg.Theme, "theme", cfg.Theme, "color theme: classic, neon or mono")
	fs.BoolVar(&cfg.Group, "group", cfg.Group, "group output by pending/done")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text, json or logfmt")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file path, - for stderr")
	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "playground listen address")
	fs.StringVar(&cfg.DataFile, "data", cfg.DataFile, "playground JSON data file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}

func finalize(cfg *Config, dir string) error {
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	cfg.Username = strings.TrimSpace(cfg.Username)
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(dir, "tada.log")
	}
	return cfg.Validate()
}

// Validate rejects settings no component can work with.
func (c *Config) Validate() error {
	switch c.Mode {
	case remote.ModeUsers, remote.ModeList:
	default:
		return fmt.Errorf("mode: want users or list, got %q", c.Mode)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout: must not be negative, got %d", c.TimeoutSeconds)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url: not an absolute URL: %q", c.BaseURL)
	}
	return nil
}
