package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// defaults registers every key. Viper only consults the environment for keys
// it knows about, so zero-valued entries matter too.
var defaults = map[string]any{
	"app.name": "orderdesk",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "orderdesk",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.enabled":  false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":        15 * time.Second,
	"http.write_timeout":       15 * time.Second,
	"http.idle_timeout":        time.Minute,
	"http.shutdown_timeout":    10 * time.Second,
	"http.max_header_bytes":    1 << 20,
	"http.max_body_size":       1 << 20,
	"http.rate_limit_enabled":  false,
	"http.rate_limit_requests": 100,
	"http.rate_limit_window":   time.Minute,
	"http.cors_allow_origins":  []string{},
	"http.cors_allow_methods":  []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
	"http.cors_allow_headers":  []string{"Content-Type", "X-Request-ID", "X-User-ID", "X-User-Role", "Idempotency-Key"},
	"http.trusted_proxies":     []string{},

	"order.max_conflict_retries":   3,
	"order.retry_initial_interval": 20 * time.Millisecond,
	"order.retry_max_interval":     500 * time.Millisecond,
	"order.idempotency_ttl":        24 * time.Hour,

	"events.notifications_enabled":       false,
	"events.notification_channel_prefix": "orderdesk:notify",
	"events.handler_dedup_ttl":           24 * time.Hour,
	"events.dispatch_buffer":             1024,
	"events.kafka_enabled":               false,
	"events.kafka_brokers":               []string{},
	"events.kafka_topic":                 "orderdesk.domain-events",
	"events.kafka_write_timeout":         10 * time.Second,

	"swagger.enabled":     false,
	"swagger.allowed_ips": []string{},

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "orderdesk",
	"telemetry.insecure":                false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
	"telemetry.metrics_enabled":         false,
	"telemetry.metrics_export_interval": time.Minute,
	"telemetry.logs_enabled":            false,
}

type loadOptions struct {
	flags      *pflag.FlagSet
	configFile string
	dotenv     bool
}

type Option func(*loadOptions)

// WithFlags lets flags named after config keys, such as --database.host,
// override every other source. Only flags the user actually set take effect.
func WithFlags(fs *pflag.FlagSet) Option {
	return func(o *loadOptions) { o.flags = fs }
}

// WithConfigFile reads path instead of searching for config.toml.
func WithConfigFile(path string) Option {
	return func(o *loadOptions) { o.configFile = path }
}

// WithoutDotEnv skips the .env file.
func WithoutDotEnv() Option {
	return func(o *loadOptions) { o.dotenv = false }
}

// Load builds the configuration. A missing config.toml or .env is not an error.
func Load(opts ...Option) (*Config, error) {
	o := loadOptions{dotenv: true}
	for _, opt := range opts {
		opt(&o)
	}

	if o.dotenv {
		// godotenv never overrides variables already set in the environment.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}

	v := viper.New()
	if o.configFile != "" {
		v.SetConfigFile(o.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if o.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if o.flags != nil {
		if err := v.BindPFlags(o.flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}
	return fromViper(v)
}

// fromViper layers defaults and the environment under whatever v already
// holds, then decodes and validates.
func fromViper(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
