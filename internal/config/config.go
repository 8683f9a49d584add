package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables. A double underscore
// separates nesting levels, so TELEMETRY_RECEIVER_DATABASE__QUERY_XML_FILE_PATH
// sets database.query_xml_file_path.
const EnvPrefix = "TELEMETRY_RECEIVER_"

type Config struct {
	Environment string `koanf:"environment" validate:"required"`
	HTTPAddr    string `koanf:"http_addr" validate:"required"`

	Log      LogConfig      `koanf:"log"`
	Database DatabaseConfig `koanf:"database"`
	OTel     OTelConfig     `koanf:"otel"`
	Address  AddressConfig  `koanf:"address"`
	Cache    CacheConfig    `koanf:"cache"`

	// WatchQueries reloads the queries file when it changes on disk.
	WatchQueries bool `koanf:"watch_queries"`
	// AuditLog is the path of the NDJSON journal of executed queries.
	AuditLog string `koanf:"audit_log"`

	// LogLevel is parsed from Log.Level.
	LogLevel slog.Level `koanf:"-"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn warning error"`
	Format string `koanf:"format" validate:"oneof=json text"`
}

// DatabaseConfig is the Database section of the receiver options. An empty
// connection string disables stored forecasts. An empty query file path is
// left for the query registry to report.
type DatabaseConfig struct {
	ConnectionString string        `koanf:"connection_string"`
	QueryXMLFilePath string        `koanf:"query_xml_file_path"`
	MaxRows          int           `koanf:"max_rows" validate:"gt=0"`
	QueryTimeout     time.Duration `koanf:"query_timeout" validate:"gt=0"`

	PoolMaxConns        int32         `koanf:"pool_max_conns" validate:"gt=0"`
	PoolMinConns        int32         `koanf:"pool_min_conns" validate:"gte=0,ltefield=PoolMaxConns"`
	PoolMaxConnLifetime time.Duration `koanf:"pool_max_conn_lifetime" validate:"gte=0"`
}

type OTelConfig struct {
	Enabled        bool    `koanf:"enabled"`
	TraceExporter  string  `koanf:"trace_exporter" validate:"oneof=none otlp stdout"`
	MetricExporter string  `koanf:"metric_exporter" validate:"oneof=none otlp prometheus"`
	SampleRate     float64 `koanf:"sample_rate" validate:"gt=0,lte=1"`
}

type AddressConfig struct {
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

type CacheConfig struct {
	Backend  string        `koanf:"backend" validate:"oneof=none memory redis"`
	TTL      time.Duration `koanf:"ttl" validate:"gte=0"`
	RedisURL string        `koanf:"redis_url" validate:"required_if=Backend redis"`
	Prefix   string        `koanf:"prefix"`
}

// Overrides holds CLI flag values that override the file and environment.
// Pointer fields distinguish "not set" from zero values.
type Overrides struct {
	ConfigFile       *string
	Environment      *string
	HTTPAddr         *string
	ConnectionString *string
	QueryXMLFilePath *string
	LogLevel         *string
	LogFormat        *string
	MaxRows          *int
	QueryTimeout     *time.Duration
	TraceExporter    *string
	MetricExporter   *string
	AddressBaseURL   *string
	CacheBackend     *string
	RedisURL         *string
	OTelEnabled      bool
	WatchQueries     bool
	AuditLog         string

	// Connection pool overrides.
	PoolMaxConns        *int32
	PoolMinConns        *int32
	PoolMaxConnLifetime *time.Duration
}

// Load builds a Config from defaults, the optional settings file, environment
// variables and CLI overrides, in that order, then validates the result.
func Load(overrides Overrides) (*Config, error) {
	cfg := defaults()
	k := koanf.New(".")

	if overrides.ConfigFile != nil && *overrides.ConfigFile != "" {
		if err := k.Load(file.Provider(*overrides.ConfigFile), yamlParser{}); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", *overrides.ConfigFile, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envKey maps TELEMETRY_RECEIVER_CACHE__REDIS_URL to cache.redis_url.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// defaults returns a Config populated with default values.
func defaults() *Config {
	return &Config{
		Environment: "Development",
		HTTPAddr:    ":8080",
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			MaxRows:             100,
			QueryTimeout:        10 * time.Second,
			PoolMaxConns:        5,
			PoolMinConns:        1,
			PoolMaxConnLifetime: 30 * time.Minute,
		},
		OTel: OTelConfig{
			TraceExporter:  "otlp",
			MetricExporter: "prometheus",
			SampleRate:     1.0,
		},
		Address: AddressConfig{
			BaseURL: "https://random-data-api.com",
			Timeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			Backend: "none",
			TTL:     time.Minute,
			Prefix:  "telemetry-receiver",
		},
	}
}

// applyOverrides applies CLI flag values on top of the loaded config.
func applyOverrides(cfg *Config, o Overrides) error {
	setString(&cfg.Environment, o.Environment)
	setString(&cfg.HTTPAddr, o.HTTPAddr)
	setString(&cfg.Database.ConnectionString, o.ConnectionString)
	setString(&cfg.Database.QueryXMLFilePath, o.QueryXMLFilePath)
	setString(&cfg.Log.Level, o.LogLevel)
	setString(&cfg.Log.Format, o.LogFormat)
	setString(&cfg.OTel.TraceExporter, o.TraceExporter)
	setString(&cfg.OTel.MetricExporter, o.MetricExporter)
	setString(&cfg.Address.BaseURL, o.AddressBaseURL)
	setString(&cfg.Cache.Backend, o.CacheBackend)
	setString(&cfg.Cache.RedisURL, o.RedisURL)

	if o.MaxRows != nil {
		if *o.MaxRows <= 0 {
			return fmt.Errorf("invalid --max-rows value: must be a positive integer")
		}
		cfg.Database.MaxRows = *o.MaxRows
	}
	if o.QueryTimeout != nil {
		cfg.Database.QueryTimeout = *o.QueryTimeout
	}

	if err := applyPoolOverrides(cfg, o); err != nil {
		return err
	}

	if o.AuditLog != "" {
		cfg.AuditLog = o.AuditLog
	}
	cfg.OTel.Enabled = cfg.OTel.Enabled || o.OTelEnabled
	cfg.WatchQueries = cfg.WatchQueries || o.WatchQueries

	return nil
}

// applyPoolOverrides applies connection pool CLI flag overrides.
func applyPoolOverrides(cfg *Config, o Overrides) error {
	if o.PoolMaxConns != nil {
		if *o.PoolMaxConns <= 0 {
			return fmt.Errorf("invalid --pool-max-conns value: must be a positive integer")
		}
		cfg.Database.PoolMaxConns = *o.PoolMaxConns
	}
	if o.PoolMinConns != nil {
		if *o.PoolMinConns < 0 {
			return fmt.Errorf("invalid --pool-min-conns value: must be a non-negative integer")
		}
		cfg.Database.PoolMinConns = *o.PoolMinConns
	}
	if o.PoolMaxConnLifetime != nil {
		cfg.Database.PoolMaxConnLifetime = *o.PoolMaxConnLifetime
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// validate normalises enum-like fields and checks the struct constraints.
func validate(cfg *Config) error {
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.OTel.TraceExporter = strings.ToLower(cfg.OTel.TraceExporter)
	cfg.OTel.MetricExporter = strings.ToLower(cfg.OTel.MetricExporter)
	cfg.Cache.Backend = strings.ToLower(cfg.Cache.Backend)

	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating config: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s fails %q (value %v)", fe.Namespace(), fe.ActualTag(), redacted(fe)))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}

	level, err := parseLogLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	cfg.LogLevel = level

	return nil
}

// redacted keeps URLs that may carry credentials out of error messages.
func redacted(fe validator.FieldError) any {
	switch fe.Field() {
	case "ConnectionString", "RedisURL":
		return "***"
	default:
		return fe.Value()
	}
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: must be debug, info, warn, or error", s)
	}
}
