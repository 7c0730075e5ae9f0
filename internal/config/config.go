// Package config loads application configuration from YAML files and
// environment variables layered over built-in defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix prefixes every environment override. A double underscore
// separates nesting levels, e.g. PUBLISHQD_QUEUE__MAX_RETRIES.
const envPrefix = "PUBLISHQD_"

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Log        LogConfig        `koanf:"log"`
	CORS       CORSConfig       `koanf:"cors"`
	Queue      QueueConfig      `koanf:"queue"`
	Delivery   DeliveryConfig   `koanf:"delivery"`
	Compliance ComplianceConfig `koanf:"compliance"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port" validate:"required"`
	MetricsPort       string        `koanf:"metrics_port" validate:"required,nefield=Port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// LogConfig holds the logger settings.
type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `koanf:"format" validate:"omitempty,oneof=text json"`
}

// CORSConfig holds the allowed CORS origins.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// QueueConfig holds the scheduling loop settings.
type QueueConfig struct {
	MaxRetries        int           `koanf:"max_retries" validate:"gte=0,lte=10"`
	RetryDelay        time.Duration `koanf:"retry_delay" validate:"gt=0"`
	RetryReentryDelay time.Duration `koanf:"retry_reentry_delay" validate:"gt=0"`
	TickInterval      time.Duration `koanf:"tick_interval" validate:"gte=10ms"`
	Autopublish       bool          `koanf:"autopublish"`
}

// DeliveryConfig holds the delivery settings.
type DeliveryConfig struct {
	Simulated SimulatedConfig `koanf:"simulated"`
}

// SimulatedConfig holds the simulated publisher settings. A zero seed picks
// a random seed per publisher.
type SimulatedConfig struct {
	SuccessRate     float64 `koanf:"success_rate" validate:"gte=0,lte=1"`
	MinLatencyTicks int     `koanf:"min_latency_ticks" validate:"gte=1"`
	MaxLatencyTicks int     `koanf:"max_latency_ticks" validate:"gtefield=MinLatencyTicks"`
	RatePerSec      float64 `koanf:"rate_per_sec" validate:"gt=0"`
	Seed            int64   `koanf:"seed"`
}

// ComplianceConfig holds the content checker settings.
type ComplianceConfig struct {
	MinScore int `koanf:"min_score" validate:"gte=0,lte=100"`
	MaxTags  int `koanf:"max_tags" validate:"gte=1"`
}

// TelemetryConfig holds the optional tracing settings.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint" validate:"required_if=Enabled true"`
	ServiceName string `koanf:"service_name"`
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Queue: QueueConfig{
			MaxRetries:        3,
			RetryDelay:        15 * time.Minute,
			RetryReentryDelay: time.Minute,
			TickInterval:      2 * time.Second,
			Autopublish:       true,
		},
		Delivery: DeliveryConfig{
			Simulated: SimulatedConfig{
				SuccessRate:     0.9,
				MinLatencyTicks: 1,
				MaxLatencyTicks: 3,
				RatePerSec:      5,
			},
		},
		Compliance: ComplianceConfig{
			MinScore: 40,
			MaxTags:  10,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "publishqd",
		},
	}
}

// Load reads the configuration. Defaults are overlaid by the optional YAML
// file at path, then by PUBLISHQD_ environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := defaultConfig()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// envTransform maps PUBLISHQD_QUEUE__MAX_RETRIES to queue.max_retries.
func envTransform(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	return strings.ReplaceAll(key, "__", "."), value
}

// Watch invokes onChange with a freshly loaded config whenever the file at
// path changes. It returns a stop function.
func Watch(path string, onChange func(*Config, error)) (func(), error) {
	f := file.Provider(path)

	if err := f.Watch(func(_ interface{}, err error) {
		if err != nil {
			onChange(nil, err)
			return
		}
		onChange(Load(path))
	}); err != nil {
		return nil, fmt.Errorf("watch config file %s: %w", path, err)
	}

	return func() {
		_ = f.Unwatch()
	}, nil
}
