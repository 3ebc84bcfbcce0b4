// ABOUTME: Configuration loading and parsing for kforge.
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing.

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete kforge configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Project  ProjectConfig  `yaml:"project"`
	Audit    AuditConfig    `yaml:"audit"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds the identity advertised during initialize.
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ProjectConfig holds the workspace the server operates on.
type ProjectConfig struct {
	Root string `yaml:"root"`
	// AllowedRoots are extra directories readable through resources/read
	// in addition to the project root.
	AllowedRoots []string `yaml:"allowed_roots"`
}

// AuditConfig holds the audit store configuration.
type AuditConfig struct {
	DBPath string `yaml:"db_path"`
}

// TimeoutsConfig holds the per-class capability timeouts.
type TimeoutsConfig struct {
	Interactive time.Duration `yaml:"-"`
	Build       time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	InteractiveRaw string `yaml:"interactive"`
	BuildRaw       string `yaml:"build"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no config file exists. The
// project root defaults to the working directory and the audit database
// lives beside it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Name: "kforge"},
		Audit:  AuditConfig{DBPath: ".kforge/audit.db"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. If the environment variable is not set, it
// is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure
// encountered.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("server.name is required")
	}
	if c.Audit.DBPath == "" {
		return fmt.Errorf("audit.db_path is required")
	}
	if c.Timeouts.Interactive < 0 || c.Timeouts.Build < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Timeouts.InteractiveRaw != "" {
		cfg.Timeouts.Interactive, err = time.ParseDuration(cfg.Timeouts.InteractiveRaw)
		if err != nil {
			return fmt.Errorf("parsing timeouts.interactive %q: %w", cfg.Timeouts.InteractiveRaw, err)
		}
	}

	if cfg.Timeouts.BuildRaw != "" {
		cfg.Timeouts.Build, err = time.ParseDuration(cfg.Timeouts.BuildRaw)
		if err != nil {
			return fmt.Errorf("parsing timeouts.build %q: %w", cfg.Timeouts.BuildRaw, err)
		}
	}

	return nil
}
