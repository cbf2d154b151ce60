package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Cooldown backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Rules      RulesConfig      `yaml:"rules"`
	Cooldown   CooldownConfig   `yaml:"cooldown"`
	Advisor    AdvisorConfig    `yaml:"advisor"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Auth       AuthConfig       `yaml:"auth"`
	Moderation ModerationConfig `yaml:"moderation"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RulesConfig controls the combination engine.
type RulesConfig struct {
	// Window is the minimum spacing between S and P foods.
	Window Duration `yaml:"window"`
	// RulesetPath optionally points at a YAML ruleset override.
	RulesetPath string `yaml:"ruleset_path"`
}

// CooldownConfig selects where the cooldown timestamps live.
type CooldownConfig struct {
	Backend       string `yaml:"backend"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"-"` // env-only, never in YAML
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
}

// AdvisorConfig contains suggestion narration settings.
type AdvisorConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
	Model  string `yaml:"model"`
}

// ArchiveConfig contains S3-compatible report archive settings.
// An empty bucket disables archiving.
type ArchiveConfig struct {
	Bucket    string   `yaml:"bucket"`
	Endpoint  string   `yaml:"endpoint"`
	Region    string   `yaml:"region"`
	UseSSL    *bool    `yaml:"use_ssl"`
	AccessKey string   `yaml:"-"` // env-only, never in YAML
	SecretKey string   `yaml:"-"` // env-only, never in YAML
	Password  string   `yaml:"-"` // env-only, never in YAML
	Interval  Duration `yaml:"interval"`
}

// Enabled reports whether archiving can run.
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != "" && a.Password != ""
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
}

// ModerationConfig lists phrases rejected in food descriptions.
// An empty list uses the built-in defaults.
type ModerationConfig struct {
	Blocked []string `yaml:"blocked"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("PLATEWISE_CONFIG_PATH", "config/platewise.yaml")

	// Missing file is not an error
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path, which must exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Database: DatabaseConfig{
			Path: "data/platewise.db",
		},
		Rules: RulesConfig{
			Window: Duration(3 * time.Hour),
		},
		Cooldown: CooldownConfig{
			Backend:     BackendSQLite,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "platewise:cooldown",
		},
		Advisor: AdvisorConfig{
			Model: "gpt-4o-mini",
		},
		Archive: ArchiveConfig{
			Interval: Duration(24 * time.Hour),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Server
	envInt("PLATEWISE_PORT", &cfg.Server.Port)
	envDuration("PLATEWISE_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("PLATEWISE_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("PLATEWISE_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Database
	envString("PLATEWISE_DB_PATH", &cfg.Database.Path)

	// Rules
	envDuration("PLATEWISE_COOLDOWN_WINDOW", &cfg.Rules.Window)
	envString("PLATEWISE_RULESET_PATH", &cfg.Rules.RulesetPath)

	// Cooldown
	envString("PLATEWISE_COOLDOWN_BACKEND", &cfg.Cooldown.Backend)
	envString("PLATEWISE_REDIS_ADDR", &cfg.Cooldown.RedisAddr)
	envString("PLATEWISE_REDIS_PASSWORD", &cfg.Cooldown.RedisPassword)
	envInt("PLATEWISE_REDIS_DB", &cfg.Cooldown.RedisDB)

	// Advisor (OPENAI_API_KEY is industry convention)
	envString("OPENAI_API_KEY", &cfg.Advisor.APIKey)
	envString("PLATEWISE_ADVISOR_MODEL", &cfg.Advisor.Model)

	// Archive
	envString("PLATEWISE_ARCHIVE_BUCKET", &cfg.Archive.Bucket)
	envString("PLATEWISE_ARCHIVE_ENDPOINT", &cfg.Archive.Endpoint)
	envString("PLATEWISE_ARCHIVE_REGION", &cfg.Archive.Region)
	envString("PLATEWISE_ARCHIVE_ACCESS_KEY", &cfg.Archive.AccessKey)
	envString("PLATEWISE_ARCHIVE_SECRET_KEY", &cfg.Archive.SecretKey)
	envString("PLATEWISE_ARCHIVE_PASSWORD", &cfg.Archive.Password)
	envDuration("PLATEWISE_ARCHIVE_INTERVAL", &cfg.Archive.Interval)
	if v := os.Getenv("PLATEWISE_ARCHIVE_USE_SSL"); v != "" {
		useSSL := v == "true" || v == "1"
		cfg.Archive.UseSSL = &useSSL
	}

	// Auth
	envString("PLATEWISE_API_KEY", &cfg.Auth.APIKey)

	// Moderation
	if v := os.Getenv("PLATEWISE_BLOCKED_PHRASES"); v != "" {
		var phrases []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				phrases = append(phrases, p)
			}
		}
		cfg.Moderation.Blocked = phrases
	}

	// Log
	envString("PLATEWISE_LOG_LEVEL", &cfg.Log.Level)
	envString("PLATEWISE_LOG_FORMAT", &cfg.Log.Format)
}

// validate checks that configuration values are usable. External services
// are all optional.
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Rules.Window <= 0 {
		return errors.New("cooldown window must be positive")
	}
	switch c.Cooldown.Backend {
	case BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.Cooldown.RedisAddr == "" {
			return errors.New("redis cooldown backend requires PLATEWISE_REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown cooldown backend %q", c.Cooldown.Backend)
	}
	if c.Archive.Bucket != "" && c.Archive.Interval <= 0 {
		return errors.New("archive interval must be positive")
	}
	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
