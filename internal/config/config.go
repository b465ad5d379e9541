package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"stackdid/internal/panelio"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Stacking StackingConfig   `yaml:"stacking" envconfig:"STACKING"`
	Fields   panelio.FieldMap `yaml:"fields" envconfig:"FIELDS"`
	Output   OutputConfig     `yaml:"output" envconfig:"OUTPUT"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" default:"25"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/stackdid.log"`
}

// StackingConfig contains the event-window and execution settings for stack
// construction.
type StackingConfig struct {
	KappaPre       int `yaml:"kappa_pre" envconfig:"KAPPA_PRE" default:"3"`
	KappaPost      int `yaml:"kappa_post" envconfig:"KAPPA_POST" default:"2"`
	MaxConcurrency int `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY" default:"4"`
}

// OutputConfig contains default output locations for the CLI.
type OutputConfig struct {
	Dir             string `yaml:"dir" envconfig:"DIR" default:"out"`
	StackFile       string `yaml:"stack_file" envconfig:"STACK_FILE" default:"stacked_panel.csv"`
	DiagnosticsFile string `yaml:"diagnostics_file" envconfig:"DIAGNOSTICS_FILE" default:"stack_diagnostics.csv"`
}

// Load loads configuration from environment variables and an optional YAML
// file named by STACKDID_CONFIG_FILE. File values override environment ones,
// matching the precedence the deployment scripts expect.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("STACKDID", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if path := os.Getenv("STACKDID_CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	cfg.Fields.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadFile overlays YAML file values onto cfg.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks constraints the struct tags cannot express.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Stacking.KappaPre < 0 || c.Stacking.KappaPost < 0 {
		return fmt.Errorf("invalid event window: kappa_pre=%d, kappa_post=%d", c.Stacking.KappaPre, c.Stacking.KappaPost)
	}
	if c.Stacking.MaxConcurrency < 1 {
		return fmt.Errorf("invalid max_concurrency: %d", c.Stacking.MaxConcurrency)
	}
	if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst < 1 {
		return fmt.Errorf("invalid rate limit: rps=%.1f, burst=%d", c.Server.RateLimitRPS, c.Server.RateLimitBurst)
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output: %q", c.Logging.Output)
	}
	return nil
}
