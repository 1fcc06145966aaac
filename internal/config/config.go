// Package config loads console settings from an optional YAML file and
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"deployconsole/internal/log"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultActiveInterval = 2 * time.Second
	DefaultIdleInterval   = 15 * time.Second
	DefaultTimeout        = 10 * time.Second
	DefaultPageLimit      = 50
	DefaultListenAddr     = "127.0.0.1:8089"
)

// Config is the merged console configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Poll   PollConfig   `yaml:"poll"`
	Listen string       `yaml:"listen"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig points at the management API.
type ServerConfig struct {
	URL       string        `yaml:"url"`
	Tenant    string        `yaml:"tenant"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	Timeout   time.Duration `yaml:"timeout"`
	PageLimit int           `yaml:"pageLimit"`
}

// PollConfig controls refresh cadence.
type PollConfig struct {
	Active          time.Duration `yaml:"active"`
	Idle            time.Duration `yaml:"idle"`
	StopWhenSettled bool          `yaml:"stopWhenSettled"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns a config with every default filled in.
func Default() Config {
	return Config{
		Server: ServerConfig{
			URL:       "http://localhost:8080",
			Tenant:    "DEFAULT",
			Timeout:   DefaultTimeout,
			PageLimit: DefaultPageLimit,
		},
		Poll: PollConfig{
			Active: DefaultActiveInterval,
			Idle:   DefaultIdleInterval,
		},
		Listen: DefaultListenAddr,
	}
}

// DefaultPath is the config file looked up when --config is not given.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "deployconsole", "config.yaml")
	}
	return ""
}

// Load reads path (missing files are fine unless required) on top of the
// defaults, then applies environment overrides.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	logger := log.WithComponent("config")

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
			logger.Debug().Str("path", path).Msg("loaded config file")
		case errors.Is(err, os.ErrNotExist) && !required:
			logger.Debug().Str("path", path).Msg("no config file, using defaults")
		default:
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := applyEnv(&cfg, logger); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, logger zerolog.Logger) error {
	setString(logger, "DEPLOYCONSOLE_URL", &cfg.Server.URL)
	setString(logger, "DEPLOYCONSOLE_TENANT", &cfg.Server.Tenant)
	setString(logger, "DEPLOYCONSOLE_USER", &cfg.Server.Username)
	setString(logger, "DEPLOYCONSOLE_PASSWORD", &cfg.Server.Password)
	setString(logger, "DEPLOYCONSOLE_LISTEN", &cfg.Listen)
	setString(logger, "LOG_LEVEL", &cfg.Log.Level)

	for key, dst := range map[string]*time.Duration{
		"DEPLOYCONSOLE_POLL_ACTIVE": &cfg.Poll.Active,
		"DEPLOYCONSOLE_POLL_IDLE":   &cfg.Poll.Idle,
		"DEPLOYCONSOLE_TIMEOUT":     &cfg.Server.Timeout,
	} {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}

	if v := os.Getenv("DEPLOYCONSOLE_PAGE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DEPLOYCONSOLE_PAGE_LIMIT: %w", err)
		}
		cfg.Server.PageLimit = n
	}
	return nil
}

func setString(logger zerolog.Logger, key string, dst *string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if strings.Contains(strings.ToLower(key), "password") {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Str("value", v)
	}
	ev.Msg("using environment variable")
	*dst = v
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.url %q: must be an absolute http(s) URL", c.Server.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.url %q: unsupported scheme %q", c.Server.URL, u.Scheme)
	}
	if c.Poll.Active <= 0 {
		return fmt.Errorf("poll.active must be positive, got %s", c.Poll.Active)
	}
	if c.Poll.Idle <= 0 {
		return fmt.Errorf("poll.idle must be positive, got %s", c.Poll.Idle)
	}
	if c.Poll.Idle < c.Poll.Active {
		return fmt.Errorf("poll.idle (%s) must not be shorter than poll.active (%s)", c.Poll.Idle, c.Poll.Active)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Server.PageLimit <= 0 {
		return fmt.Errorf("server.pageLimit must be positive, got %d", c.Server.PageLimit)
	}
	return nil
}
