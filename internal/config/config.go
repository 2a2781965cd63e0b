// Package config loads the guardrail server configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"ads-guardrail/internal/domain"
	"ads-guardrail/internal/pipeline"
)

// Storage backends.
const (
	BackendMemory     = "memory"
	BackendPostgres   = "postgres"
	BackendClickHouse = "clickhouse"
	BackendSQLite     = "sqlite"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all server configuration.
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Storage struct {
		// DaysBackend serves daily metrics: memory, postgres or clickhouse.
		DaysBackend string `yaml:"days_backend"`
		// ReportsBackend stores evaluation records: memory, postgres or sqlite.
		ReportsBackend   string `yaml:"reports_backend"`
		PostgresDSN      string `yaml:"postgres_dsn"`
		PostgresMaxConns int32  `yaml:"postgres_max_conns"`
		ClickHouseDSN    string `yaml:"clickhouse_dsn"`
		SQLitePath       string `yaml:"sqlite_path"`
		UseFixtures      bool   `yaml:"use_fixtures"`
	} `yaml:"storage"`
	Schedule struct {
		Cron        string `yaml:"cron"`
		RunOnStart  bool   `yaml:"run_on_start"`
		Parallelism int    `yaml:"parallelism"`
	} `yaml:"schedule"`
	Notify struct {
		ClientBuffer int `yaml:"client_buffer"`
	} `yaml:"notify"`
	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	// Guardrail overrides individual policy thresholds; unset ones keep their defaults.
	Guardrail   domain.GuardrailConfigOverride `yaml:"guardrail"`
	Experiments []Experiment                   `yaml:"experiments"`
}

// Experiment is a scheduled experiment with its baseline and windows.
type Experiment struct {
	ID       string                 `yaml:"id"`
	Baseline domain.BaselineMetrics `yaml:"baseline"`
	Windows  []Window               `yaml:"windows"`
}

// Window is one evaluation window of an experiment.
type Window struct {
	Label        string `yaml:"label"`
	Start        string `yaml:"start"`
	End          string `yaml:"end"`
	EndOfWindowB bool   `yaml:"end_of_window_b"`
}

// Load reads config from a YAML file, then applies environment variable overrides
// and defaults. A missing file yields a config built from env and defaults only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("GUARDRAIL_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("GUARDRAIL_POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("GUARDRAIL_CLICKHOUSE_DSN"); v != "" {
		c.Storage.ClickHouseDSN = v
	}
	if v := os.Getenv("GUARDRAIL_SQLITE_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if v := os.Getenv("GUARDRAIL_DAYS_BACKEND"); v != "" {
		c.Storage.DaysBackend = v
	}
	if v := os.Getenv("GUARDRAIL_REPORTS_BACKEND"); v != "" {
		c.Storage.ReportsBackend = v
	}
	if v := os.Getenv("GUARDRAIL_CRON"); v != "" {
		c.Schedule.Cron = v
	}
	if v := os.Getenv("GUARDRAIL_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("GUARDRAIL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("GUARDRAIL_USE_FIXTURES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse GUARDRAIL_USE_FIXTURES: %w", err)
		}
		c.Storage.UseFixtures = b
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Storage.DaysBackend == "" {
		c.Storage.DaysBackend = BackendMemory
	}
	if c.Storage.ReportsBackend == "" {
		c.Storage.ReportsBackend = BackendMemory
	}
	if c.Storage.PostgresMaxConns == 0 {
		c.Storage.PostgresMaxConns = 10
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/guardrail.db"
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 6 * * *"
	}
	if c.Schedule.Parallelism == 0 {
		c.Schedule.Parallelism = pipeline.DefaultParallelism
	}
	if c.Notify.ClientBuffer == 0 {
		c.Notify.ClientBuffer = 16
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks backends, credentials, the cron expression, the guardrail
// policy and every configured window.
func (c *Config) Validate() error {
	switch c.Storage.DaysBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("%w: storage.postgres_dsn is required for postgres days backend", ErrInvalidConfig)
		}
	case BackendClickHouse:
		if c.Storage.ClickHouseDSN == "" {
			return fmt.Errorf("%w: storage.clickhouse_dsn is required for clickhouse days backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown days backend %q", ErrInvalidConfig, c.Storage.DaysBackend)
	}

	switch c.Storage.ReportsBackend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("%w: storage.postgres_dsn is required for postgres reports backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown reports backend %q", ErrInvalidConfig, c.Storage.ReportsBackend)
	}

	if c.Storage.UseFixtures && c.Storage.DaysBackend != BackendMemory {
		return fmt.Errorf("%w: use_fixtures requires the memory days backend", ErrInvalidConfig)
	}

	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		return fmt.Errorf("%w: schedule.cron: %v", ErrInvalidConfig, err)
	}
	if c.Schedule.Parallelism < 1 {
		return fmt.Errorf("%w: schedule.parallelism must be positive", ErrInvalidConfig)
	}

	if err := validator.New().Struct(c.GuardrailPolicy()); err != nil {
		return fmt.Errorf("%w: guardrail: %v", ErrInvalidConfig, err)
	}

	seen := make(map[string]struct{})
	for _, spec := range c.WindowSpecs() {
		key := spec.ExperimentID + "/" + spec.Label
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate window %s", ErrInvalidConfig, key)
		}
		seen[key] = struct{}{}
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("%w: window %s: %v", ErrInvalidConfig, key, err)
		}
	}
	return nil
}

// GuardrailPolicy returns the default policy with the configured overrides applied.
func (c *Config) GuardrailPolicy() domain.GuardrailConfig {
	return c.Guardrail.Apply(domain.DefaultGuardrailConfig())
}

// WindowSpecs flattens the configured experiments into pipeline windows,
// in file order. With fixtures enabled the demo windows are appended.
func (c *Config) WindowSpecs() []pipeline.WindowSpec {
	var specs []pipeline.WindowSpec
	for _, exp := range c.Experiments {
		for _, w := range exp.Windows {
			specs = append(specs, pipeline.WindowSpec{
				ExperimentID: exp.ID,
				Label:        w.Label,
				Start:        w.Start,
				End:          w.End,
				EndOfWindowB: w.EndOfWindowB,
				Baseline:     exp.Baseline,
			})
		}
	}
	if c.Storage.UseFixtures {
		specs = append(specs, pipeline.FixtureWindows()...)
	}
	return specs
}
