// Package config provides YAML configuration parsing for agentcheck.
//
// Every key is optional; anything left out keeps the built-in default, so
// an empty file (or no file at all) polls the default endpoint.
//
// Example configuration:
//
//	url: https://cx.example.com/chat-ready
//	api_name: Chat_DC
//	csv_file: /var/log/agentcheck/agents.csv
//	timeout: 30s
//	interval: 15m
//	headers:
//	  Authorization: Bearer ${AGENTCHECK_TOKEN}
//
//	log:
//	  level: info
//	  format: json
//	  file: /var/log/agentcheck/agentcheck.log
//
//	server:
//	  port: 8080
//	  title: Chat DC agents
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/agentcheck"
)

const (
	// minTimeout and minInterval guard against configs that would hammer
	// the endpoint.
	minTimeout  = 1 * time.Second
	minInterval = 1 * time.Second

	// DefaultPort is the dashboard port used by `agentcheck serve`.
	DefaultPort = 8080

	// DefaultEnvFile is loaded by [LoadEnvFile] when no path is given.
	DefaultEnvFile = ".env"
)

// Config is the root configuration structure for agentcheck.
//
// It maps directly to the YAML configuration file structure.
// Use [Load], [Parse] or [Default] to create one.
type Config struct {
	// URL is the availability endpoint.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// APIName is recorded in the APIName column and, unless Field is set,
	// is the JSON key read from the response.
	APIName string `yaml:"api_name"`

	// Field is a dot-separated JSON path read instead of APIName.
	Field string `yaml:"field"`

	// CSVFile is the log file rows are appended to.
	// Supports environment variable substitution.
	CSVFile string `yaml:"csv_file"`

	// Timeout bounds each request. Must be at least 1s.
	Timeout Duration `yaml:"timeout"`

	// Interval is the time between checks for `watch` and `serve --poll`.
	// Must be at least 1s.
	Interval Duration `yaml:"interval"`

	// Headers are custom HTTP headers sent with each request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Log configures the process logger.
	Log LogConfig `yaml:"log"`

	// Server configures the dashboard started by `agentcheck serve`.
	Server ServerConfig `yaml:"server"`
}

// LogConfig controls log output.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level"`

	// Format is text or json. Defaults to text.
	Format string `yaml:"format"`

	// File, when set, receives a copy of the log output with size-based
	// rotation.
	File string `yaml:"file"`

	// MaxSizeMB is the size at which File is rotated. Defaults to 10.
	MaxSizeMB int `yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files kept. Zero keeps all.
	MaxBackups int `yaml:"max_backups"`

	// MaxAgeDays is the age after which rotated files are removed.
	// Zero keeps them regardless of age.
	MaxAgeDays int `yaml:"max_age_days"`

	// Compress gzips rotated files.
	Compress bool `yaml:"compress"`
}

// ServerConfig controls the dashboard.
type ServerConfig struct {
	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// Title is the dashboard title.
	Title string `yaml:"title"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// SlogLevel maps Level to a [slog.Level]. Unknown levels map to info;
// [Parse] rejects them before this is reached.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		URL:      agentcheck.DefaultURL,
		APIName:  agentcheck.DefaultAPIName,
		CSVFile:  agentcheck.DefaultCSVFile,
		Timeout:  Duration(agentcheck.DefaultTimeout),
		Interval: Duration(agentcheck.DefaultInterval),
		Log: LogConfig{
			Level:     "info",
			Format:    "text",
			MaxSizeMB: 10,
		},
		Server: ServerConfig{
			Port: DefaultPort,
		},
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment so they can be referenced as ${VAR} in the config.
// Variables already set in the environment are not overwritten.
//
// With an empty path, [DefaultEnvFile] is loaded if it exists. An explicit
// path that does not exist is an error.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load reads and parses a YAML configuration file.
//
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data over [Default].
//
// Environment variables are expanded in url, csv_file and header values.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	expanded, err := expandEnvVars(c.URL)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	c.URL = expanded

	parsedURL, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsedURL.Scheme == "" {
		return errors.New("url must have a scheme (http:// or https://)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return errors.New("url must have a host")
	}

	if c.APIName == "" {
		return errors.New("api_name cannot be empty")
	}

	if c.CSVFile == "" {
		return errors.New("csv_file cannot be empty")
	}
	expanded, err = expandEnvVars(c.CSVFile)
	if err != nil {
		return fmt.Errorf("csv_file: %w", err)
	}
	c.CSVFile = expanded

	for k, v := range c.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("headers[%s]: %w", k, err)
		}
		c.Headers[k] = expanded
	}

	if c.Timeout.Duration() < minTimeout {
		return fmt.Errorf("timeout must be at least %s, got %s", minTimeout, c.Timeout.Duration())
	}
	if c.Interval.Duration() < minInterval {
		return fmt.Errorf("interval must be at least %s, got %s", minInterval, c.Interval.Duration())
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return errors.New("log rotation limits cannot be negative")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	return nil
}
