// Package config loads gateway configuration from YAML with environment
// overrides.
//
// DESIGN: The config file covers the full surface, but every secret and
// limit can also be supplied through the environment so deployments can
// keep credentials out of the file:
//   - SHARED_TOKEN_SECRET
//   - USAGE_TABLE_NAME
//   - MODEL_ID
//   - THROTTLE_MONTHLY_LIMIT_USER
//   - THROTTLE_MONTHLY_LIMIT_GLOBAL
//
// Environment values win over file values. Configuration is read once at
// startup and passed down explicitly; nothing re-reads it per request.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the chat gateway.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Usage      UsageConfig      `yaml:"usage"`
	Inference  InferenceConfig  `yaml:"inference"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port        int           `yaml:"port"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// WriteTimeout must stay generous: a model stream can run for minutes.
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// AuthConfig configures bearer-token verification.
type AuthConfig struct {
	// SharedSecret is the HS256 secret shared with the token issuer.
	SharedSecret string `yaml:"shared_secret"`
}

// UsageConfig configures the usage store and the monthly quota ceilings.
type UsageConfig struct {
	// Driver selects the store backend: "dynamodb" or "sqlite".
	Driver    string `yaml:"driver"`
	TableName string `yaml:"table_name"`
	// SQLitePath is the database file for the sqlite driver.
	// ":memory:" is accepted for throwaway local runs.
	SQLitePath string `yaml:"sqlite_path"`

	// UserMonthlyLimit and GlobalMonthlyLimit gate admission on the
	// invocation count of the current calendar-month bucket. The two
	// ceilings are checked independently; either breach rejects.
	UserMonthlyLimit   uint64 `yaml:"user_monthly_limit"`
	GlobalMonthlyLimit uint64 `yaml:"global_monthly_limit"`
}

// InferenceConfig configures the upstream model provider.
type InferenceConfig struct {
	ModelID string `yaml:"model_id"`
	Region  string `yaml:"region"`
	// SystemPreamble is sent as the system instruction on every call.
	SystemPreamble string `yaml:"system_preamble"`
}

// MonitoringConfig configures telemetry output.
type MonitoringConfig struct {
	Enabled bool `yaml:"enabled"`
	// RequestLogPath is the JSONL file request events are appended to.
	RequestLogPath string `yaml:"request_log_path"`
	LogToStdout    bool   `yaml:"log_to_stdout"`
}

// Load reads the config file at path (optional) and applies environment
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SHARED_TOKEN_SECRET"); v != "" {
		c.Auth.SharedSecret = v
	}
	if v := os.Getenv("USAGE_TABLE_NAME"); v != "" {
		c.Usage.TableName = v
	}
	if v := os.Getenv("MODEL_ID"); v != "" {
		c.Inference.ModelID = v
	}
	if v := os.Getenv("THROTTLE_MONTHLY_LIMIT_USER"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Usage.UserMonthlyLimit = n
		}
	}
	if v := os.Getenv("THROTTLE_MONTHLY_LIMIT_GLOBAL"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Usage.GlobalMonthlyLimit = n
		}
	}
	if v := os.Getenv("AWS_REGION"); v != "" && c.Inference.Region == "" {
		c.Inference.Region = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if c.Usage.Driver == "" {
		c.Usage.Driver = DriverDynamoDB
	}
	if c.Usage.UserMonthlyLimit == 0 {
		c.Usage.UserMonthlyLimit = DefaultUserMonthlyLimit
	}
	if c.Usage.GlobalMonthlyLimit == 0 {
		c.Usage.GlobalMonthlyLimit = DefaultGlobalMonthlyLimit
	}
	if c.Inference.Region == "" {
		c.Inference.Region = DefaultRegion
	}
	if c.Inference.SystemPreamble == "" {
		c.Inference.SystemPreamble = DefaultSystemPreamble
	}
}

func (c *Config) validate() error {
	if c.Auth.SharedSecret == "" {
		return fmt.Errorf("config: auth.shared_secret (or SHARED_TOKEN_SECRET) is required")
	}
	if c.Inference.ModelID == "" {
		return fmt.Errorf("config: inference.model_id (or MODEL_ID) is required")
	}
	switch c.Usage.Driver {
	case DriverDynamoDB:
		if c.Usage.TableName == "" {
			return fmt.Errorf("config: usage.table_name (or USAGE_TABLE_NAME) is required for the dynamodb driver")
		}
	case DriverSQLite:
		if c.Usage.SQLitePath == "" {
			return fmt.Errorf("config: usage.sqlite_path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("config: unknown usage driver %q", c.Usage.Driver)
	}
	return nil
}
