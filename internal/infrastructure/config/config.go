// Package config loads service settings from built-in defaults, an optional
// config.toml, a .env file, the ORDERDESK_* environment and command-line flags,
// each layer overriding the previous one.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// EnvPrefix prefixes every environment override, e.g. ORDERDESK_DATABASE_PASSWORD.
const EnvPrefix = "ORDERDESK"

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Order     OrderConfig     `mapstructure:"order"`
	Events    EventsConfig    `mapstructure:"events"`
	Swagger   SwaggerConfig   `mapstructure:"swagger"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"` // development, staging, production
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

// DatabaseConfig addresses the PostgreSQL primary. Lifetimes are minutes.
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"`
}

// DSN renders a postgres:// URL with user info escaped.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// RedisConfig is optional. Disabled, the idempotency store is in-memory and
// notifications are only logged.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr is host:port.
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

type HTTPConfig struct {
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"`
	MaxBodySize       int64         `mapstructure:"max_body_size"`
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
	// No origin is allowed until configured.
	CORSAllowOrigins []string `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string `mapstructure:"trusted_proxies"`
}

type OrderConfig struct {
	MaxConflictRetries   int           `mapstructure:"max_conflict_retries"`   // re-executions after CONCURRENCY_CONFLICT
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval"` // first backoff step
	RetryMaxInterval     time.Duration `mapstructure:"retry_max_interval"`
	IdempotencyTTL       time.Duration `mapstructure:"idempotency_ttl"` // how long Idempotency-Key values are remembered
}

type EventsConfig struct {
	NotificationsEnabled      bool          `mapstructure:"notifications_enabled"`
	NotificationChannelPrefix string        `mapstructure:"notification_channel_prefix"` // redis pub/sub, e.g. "orderdesk:notify"
	HandlerDedupTTL           time.Duration `mapstructure:"handler_dedup_ttl"`           // at-most-once window per event id
	DispatchBuffer            int           `mapstructure:"dispatch_buffer"`             // inbox size of each external subscriber
	KafkaEnabled              bool          `mapstructure:"kafka_enabled"`
	KafkaBrokers              []string      `mapstructure:"kafka_brokers"`
	KafkaTopic                string        `mapstructure:"kafka_topic"`
	KafkaWriteTimeout         time.Duration `mapstructure:"kafka_write_timeout"`
}

type SwaggerConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	AllowedIPs []string `mapstructure:"allowed_ips"` // empty allows everyone
}

type TelemetryConfig struct {
	Enabled           bool    `mapstructure:"enabled"` // traces
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	SamplingRatio     float64 `mapstructure:"sampling_ratio"`
	ServiceName       string  `mapstructure:"service_name"`
	Insecure          bool    `mapstructure:"insecure"`

	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"` // bound values in spans and logs; never in production
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`

	MetricsEnabled        bool          `mapstructure:"metrics_enabled"`
	MetricsExportInterval time.Duration `mapstructure:"metrics_export_interval"`
	LogsEnabled           bool          `mapstructure:"logs_enabled"`
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c *Config) validate() error {
	switch {
	case c.Database.MaxOpenConns <= 0:
		return fmt.Errorf("database.max_open_conns must be positive")
	case c.Database.MaxIdleConns < 0:
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	case c.Database.MaxIdleConns > c.Database.MaxOpenConns:
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	case c.Order.MaxConflictRetries < 0:
		return fmt.Errorf("order.max_conflict_retries cannot be negative")
	case c.Events.KafkaEnabled && len(c.Events.KafkaBrokers) == 0:
		return fmt.Errorf("events.kafka_brokers is required when events.kafka_enabled is true")
	case c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1:
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %g", c.Telemetry.SamplingRatio)
	}
	if c.IsProduction() {
		return c.validateProduction()
	}
	return nil
}

func (c *Config) validateProduction() error {
	if c.Database.Password == "" {
		return fmt.Errorf("database.password is required in production")
	}
	if c.Database.SSLMode == "disable" {
		return fmt.Errorf("database.sslmode cannot be 'disable' in production")
	}
	for _, origin := range c.HTTP.CORSAllowOrigins {
		if origin == "*" {
			return fmt.Errorf("http.cors_allow_origins cannot be '*' in production")
		}
	}
	if c.Swagger.Enabled && len(c.Swagger.AllowedIPs) == 0 {
		return fmt.Errorf("swagger endpoint must be disabled or IP restricted in production")
	}
	if c.Telemetry.DBLogFullSQL {
		return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
	}
	return nil
}
