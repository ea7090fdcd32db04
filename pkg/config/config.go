// Package config provides the configuration system for Quarry: one Config
// structure loaded from a YAML file with environment overrides, plus a JSON
// job-list loader. Credentials live here so the engine never touches
// credential storage directly.
package config

import (
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/viper"

	"github.com/quarryhq/quarry/pkg/extract"
	"github.com/quarryhq/quarry/pkg/qerrors"
	"github.com/quarryhq/quarry/pkg/source"
)

// SourceConfig selects and parameterizes the connection provider.
type SourceConfig struct {
	// Type names the registered provider (postgres, mysql, snowflake).
	Type string `mapstructure:"type" yaml:"type"`

	// DSN is a pre-configured connection string for DSN-style providers.
	DSN string `mapstructure:"dsn" yaml:"dsn"`

	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`
	Schema   string `mapstructure:"schema" yaml:"schema"`

	// Snowflake-specific
	Account   string `mapstructure:"account" yaml:"account"`
	Warehouse string `mapstructure:"warehouse" yaml:"warehouse"`
	Role      string `mapstructure:"role" yaml:"role"`

	// Timeout bounds connection establishment.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ExtractConfig bounds the engine's parallelism.
type ExtractConfig struct {
	// WorkerCeiling caps the worker count per job. Minimum 2.
	WorkerCeiling int `mapstructure:"worker_ceiling" yaml:"worker_ceiling"`
}

// OutputConfig controls artifact persistence.
type OutputConfig struct {
	// Dir is where artifacts land. Empty disables persistence.
	Dir string `mapstructure:"dir" yaml:"dir"`

	// Delimiter between fields, default comma.
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`

	// Compress gzips artifacts.
	Compress bool `mapstructure:"compress" yaml:"compress"`

	// Timestamp appends a run timestamp to artifact names.
	Timestamp bool `mapstructure:"timestamp" yaml:"timestamp"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Encoding    string `mapstructure:"encoding" yaml:"encoding"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// Config is the root configuration document.
type Config struct {
	Source  SourceConfig  `mapstructure:"source" yaml:"source"`
	Extract ExtractConfig `mapstructure:"extract" yaml:"extract"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Jobs    []extract.Job `mapstructure:"jobs" yaml:"jobs"`
}

// Load reads configuration from path (YAML), applying QUARRY_* environment
// overrides (QUARRY_SOURCE_PASSWORD overrides source.password and so on).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvPrefix("QUARRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("extract.worker_ceiling", 8)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("source.timeout", 30*time.Second)

	if err := v.ReadInConfig(); err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeConfig, "failed to read config file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeConfig, "failed to parse config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate fails fast on configuration the engine would reject anyway.
func (c *Config) Validate() error {
	if c.Source.Type == "" {
		return qerrors.New(qerrors.ErrorTypeConfig, "source.type is required")
	}
	if c.Extract.WorkerCeiling < 2 {
		return qerrors.Newf(qerrors.ErrorTypeConfig, "extract.worker_ceiling must be at least 2, got %d", c.Extract.WorkerCeiling)
	}
	for _, job := range c.Jobs {
		if err := job.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SourceParams maps the source section onto provider parameters.
func (c *Config) SourceParams() source.Params {
	return source.Params{
		DSN:       c.Source.DSN,
		Host:      c.Source.Host,
		Port:      c.Source.Port,
		User:      c.Source.User,
		Password:  c.Source.Password,
		Database:  c.Source.Database,
		Schema:    c.Source.Schema,
		Account:   c.Source.Account,
		Warehouse: c.Source.Warehouse,
		Role:      c.Source.Role,
		Timeout:   c.Source.Timeout,
	}
}

// SinkDelimiter returns the configured delimiter as a rune, defaulting to
// comma.
func (c *Config) SinkDelimiter() rune {
	if c.Output.Delimiter == "" {
		return ','
	}
	return []rune(c.Output.Delimiter)[0]
}

// LoadJobs reads an extraction job list from a JSON file. Used when jobs are
// supplied separately from the main config.
func LoadJobs(path string) ([]extract.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeConfig, "failed to read jobs file")
	}

	var jobs []extract.Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeConfig, "failed to parse jobs file")
	}

	for _, job := range jobs {
		if err := job.Validate(); err != nil {
			return nil, err
		}
	}

	return jobs, nil
}
