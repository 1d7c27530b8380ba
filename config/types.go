package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	Database       DatabaseConfig      `mapstructure:"database"`
	CasbinDatabase DatabaseConfig      `mapstructure:"casbin_database"`
	Redis          RedisConfig         `mapstructure:"redis"`
	Nats           NatsConfig          `mapstructure:"nats"`
	Server         ServerConfig        `mapstructure:"server"`
	Authorization  AuthorizationConfig `mapstructure:"authorization"`
	Observability  ObservabilityConfig `mapstructure:"observability"`
	Logging        LoggingConfig       `mapstructure:"logging"`
	Calendar       CalendarConfig      `mapstructure:"calendar"`
	Demo           DemoConfig          `mapstructure:"demo"`
	Cache          CacheConfig         `mapstructure:"cache"`
}

type NatsConfig struct {
	URL  string `mapstructure:"url" yaml:"url"`
	Name string `mapstructure:"name" yaml:"name"`
}

type DatabaseConfig struct {
	Host       string                  `mapstructure:"host"`
	Port       int                     `mapstructure:"port"`
	User       string                  `mapstructure:"user"`
	Password   string                  `mapstructure:"password"`
	DBName     string                  `mapstructure:"dbname"`
	SSLMode    string                  `mapstructure:"sslmode"`
	Pool       DatabasePoolConfig      `mapstructure:"pool"`
	Migrations DatabaseMigrationConfig `mapstructure:"migrations"`
	Logging    DatabaseLoggingConfig   `mapstructure:"logging"`
}

type DatabasePoolConfig struct {
	MaxOpenConns       int `mapstructure:"max_open_conns"`
	MaxIdleConns       int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int `mapstructure:"conn_max_lifetime_minutes"`
}

type DatabaseMigrationConfig struct {
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

type DatabaseLoggingConfig struct {
	Enabled              bool `mapstructure:"enabled"`
	SlowQueryThresholdMs int  `mapstructure:"slow_query_threshold_ms"`
}

type RedisConfig struct {
	Addr                string `mapstructure:"addr"`
	DB                  int    `mapstructure:"db"`
	Username            string `mapstructure:"username"`
	Password            string `mapstructure:"password"`
	PoolSize            int    `mapstructure:"pool_size"`
	MinIdleConns        int    `mapstructure:"min_idle_conns"`
	DialTimeoutSeconds  int    `mapstructure:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
}

type RateLimitConfig struct {
	RequestsPerWindow int `mapstructure:"requests_per_window"`
	WindowSeconds     int `mapstructure:"window_seconds"`
}

type ServerConfig struct {
	Port           int             `mapstructure:"port"`
	TimeoutSeconds int             `mapstructure:"timeout_seconds"`
	Environment    string          `mapstructure:"environment"`
	Databases      []string        `mapstructure:"databases"`
	CORS           CORSConfig      `mapstructure:"cors"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

type CORSConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type AuthorizationConfig struct {
	CasbinModelPath string `mapstructure:"casbin_model_path"`
	EnableAudit     bool   `mapstructure:"enable_audit"`
}

type ObservabilityConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ServiceName    string        `mapstructure:"service_name"`
	ServiceVersion string        `mapstructure:"service_version"`
	Tracing        TracingConfig `mapstructure:"tracing"`
	Metrics        MetricsConfig `mapstructure:"metrics"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string       `mapstructure:"level"`  // debug, info, warn, error
	Format string       `mapstructure:"format"` // text, json
	Output OutputConfig `mapstructure:"output"`
}

type OutputConfig struct {
	Stdout bool          `mapstructure:"stdout"`
	File   FileLogConfig `mapstructure:"file"`
	Loki   LokiConfig    `mapstructure:"loki"`
}

type FileLogConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`        // e.g. "logs/app.log"
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // rotate after N MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type LokiConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"` // e.g. "http://localhost:3100"
	TenantID string `mapstructure:"tenant_id"`
	Username string `mapstructure:"username"` // for Grafana Cloud basic auth
	Password string `mapstructure:"password"`
}

// CalendarConfig configures the terminal calendar client.
type CalendarConfig struct {
	APIURL                string `mapstructure:"api_url"`
	StaffID               string `mapstructure:"staff_id"`
	Timezone              string `mapstructure:"timezone"`
	DefaultView           string `mapstructure:"default_view"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"`
}

// Location resolves Timezone, falling back to time.Local.
func (c CalendarConfig) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c CalendarConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

type DemoConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ResetCron  string `mapstructure:"reset_cron"`
	FacilityID string `mapstructure:"facility_id"`
}

type CacheConfig struct {
	RangeTTLSeconds int `mapstructure:"range_ttl_seconds"`
}

func (c CacheConfig) RangeTTL() time.Duration {
	if c.RangeTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.RangeTTLSeconds) * time.Second
}

func (c *Config) Validate() error {
	if c.Calendar.Timezone != "" && !strings.EqualFold(c.Calendar.Timezone, "local") {
		if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
			return fmt.Errorf("calendar.timezone: %w", err)
		}
	}
	if c.Demo.Enabled && c.Demo.ResetCron != "" {
		if _, err := cron.ParseStandard(c.Demo.ResetCron); err != nil {
			return fmt.Errorf("demo.reset_cron: %w", err)
		}
	}
	return nil
}
