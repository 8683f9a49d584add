package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/guillermoBallester/telemetry-receiver/internal/config"
	"github.com/spf13/cobra"
)

// cliFlags holds raw flag values. Only flags the user set end up in the overrides.
type cliFlags struct {
	configFile      string
	environment     string
	httpAddr        string
	databaseURL     string
	queriesFile     string
	logLevel        string
	logFormat       string
	maxRows         int
	queryTimeout    time.Duration
	traceExporter   string
	metricExporter  string
	addressBaseURL  string
	cacheBackend    string
	redisURL        string
	otel            bool
	watchQueries    bool
	auditLog        string
	poolMaxConns    int32
	poolMinConns    int32
	poolMaxLifetime time.Duration
}

func newRootCmd(run func(ctx context.Context, o config.Overrides) error) *cobra.Command {
	var f cliFlags

	cmd := &cobra.Command{
		Use:   "telemetry-receiver",
		Short: "Serve weather forecasts with traces, metrics and logs",
		Long:  `telemetry-receiver serves GET /api/WeatherForecast. Each response carries
synthetic forecasts decorated with a random address, followed by stored
forecasts read through the GET_WEATHER_FORECASTS named query.

Settings come from defaults, the optional --config file, TELEMETRY_RECEIVER_*
environment variables and flags, in that order.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f.overrides(cmd))
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.configFile, "config", "", "YAML settings file")
	fs.StringVar(&f.environment, "environment", "", "deployment environment name")
	fs.StringVar(&f.httpAddr, "http-addr", "", "HTTP listen address")
	fs.StringVar(&f.databaseURL, "database-url", "", "PostgreSQL connection string; empty disables stored forecasts")
	fs.StringVar(&f.queriesFile, "queries-file", "", "XML file with the named queries")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: json or text")
	fs.IntVar(&f.maxRows, "max-rows", 0, "maximum rows returned by a named query")
	fs.DurationVar(&f.queryTimeout, "query-timeout", 0, "statement timeout for named queries")
	fs.StringVar(&f.traceExporter, "trace-exporter", "", "trace exporter: otlp, stdout, none")
	fs.StringVar(&f.metricExporter, "metric-exporter", "", "metric exporter: prometheus, otlp, none")
	fs.StringVar(&f.addressBaseURL, "address-base-url", "", "base URL of the random address API")
	fs.StringVar(&f.cacheBackend, "cache", "", "address cache backend: none, memory, redis")
	fs.StringVar(&f.redisURL, "redis-url", "", "Redis URL for the redis cache backend")
	fs.BoolVar(&f.otel, "otel", false, "enable OpenTelemetry traces and metrics")
	fs.BoolVar(&f.watchQueries, "watch-queries", false, "reload the queries file when it changes")
	fs.StringVar(&f.auditLog, "audit-log", "", "NDJSON file recording executed named queries")
	fs.Int32Var(&f.poolMaxConns, "pool-max-conns", 0, "maximum database connections")
	fs.Int32Var(&f.poolMinConns, "pool-min-conns", 0, "minimum idle database connections")
	fs.DurationVar(&f.poolMaxLifetime, "pool-max-conn-lifetime", 0, "maximum lifetime of a database connection")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run:   func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "telemetry-receiver %s\n", version)
		},
	}
}

func (f *cliFlags) overrides(cmd *cobra.Command) config.Overrides {
	changed := cmd.Flags().Changed
	o := config.Overrides{
		OTelEnabled:  f.otel,
		WatchQueries: f.watchQueries,
		AuditLog:     f.auditLog,
	}

	if changed("config") {
		o.ConfigFile = &f.configFile
	}
	if changed("environment") {
		o.Environment = &f.environment
	}
	if changed("http-addr") {
		o.HTTPAddr = &f.httpAddr
	}
	if changed("database-url") {
		o.ConnectionString = &f.databaseURL
	}
	if changed("queries-file") {
		o.QueryXMLFilePath = &f.queriesFile
	}
	if changed("log-level") {
		o.LogLevel = &f.logLevel
	}
	if changed("log-format") {
		o.LogFormat = &f.logFormat
	}
	if changed("max-rows") {
		o.MaxRows = &f.maxRows
	}
	if changed("query-timeout") {
		o.QueryTimeout = &f.queryTimeout
	}
	if changed("trace-exporter") {
		o.TraceExporter = &f.traceExporter
	}
	if changed("metric-exporter") {
		o.MetricExporter = &f.metricExporter
	}
	if changed("address-base-url") {
		o.AddressBaseURL = &f.addressBaseURL
	}
	if changed("cache") {
		o.CacheBackend = &f.cacheBackend
	}
	if changed("redis-url") {
		o.RedisURL = &f.redisURL
	}
	if changed("pool-max-conns") {
		o.PoolMaxConns = &f.poolMaxConns
	}
	if changed("pool-min-conns") {
		o.PoolMinConns = &f.poolMinConns
	}
	if changed("pool-max-conn-lifetime") {
		o.PoolMaxConnLifetime = &f.poolMaxLifetime
	}
	return o
}

// parseFlags parses args as the root command would and returns the overrides
// without starting the receiver.
func parseFlags(args []string) (config.Overrides, error) {
	var got config.Overrides
	cmd := newRootCmd(func(_ context.Context, o config.Overrides) error {
		got = o
		return nil
	})
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err != nil {
		return config.Overrides{}, err
	}
	return got, nil
}
