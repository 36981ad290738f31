// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables,
// with CLI flag overrides.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Bootstrap is the root configuration for the MeshGuard service.
type Bootstrap struct {
	Server  *Server
	Data    *Data
	Breaker *Breaker
	Cache   *Cache
	Events  *Events
	Admin   *Admin
	Log     *Log
}

// Server holds transport configuration for the admin surface.
type Server struct {
	Http *HTTP
}

// HTTP holds the admin HTTP server settings.
type HTTP struct {
	Network string
	Addr    string
	Timeout time.Duration
}

// Data holds backing-store configuration.
type Data struct {
	Redis    *Redis
	Database *Database
}

// Redis holds connection settings for the shared store.
type Redis struct {
	Network      string
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Database holds the optional MySQL connection used by the admin audit trail.
// An empty Source disables auditing.
type Database struct {
	Driver string
	Source string
}

// Breaker holds circuit breaker tunables.
type Breaker struct {
	FailureThreshold  int
	RecoveryTimeout   time.Duration
	MonitoringPeriod  time.Duration
	ExpectedErrorRate float64
}

// Cache holds tier-1 cache tunables. TTLs per category are a static policy
// table in the biz layer, not configuration.
type Cache struct {
	Tier1MaxEntries int
	SweepInterval   time.Duration
}

// Events holds event publisher tunables.
type Events struct {
	StreamTTL     time.Duration
	RetryInterval time.Duration
}

// Admin holds the static token protecting mutating admin endpoints.
// An empty token leaves the admin surface unauthenticated.
type Admin struct {
	Token string
}

// Log holds logger settings.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies
// defaults, and allows overrides from environment variables prefixed with
// MESHGUARD_.
//
// Configuration priority: CLI flags > Environment variables > Config file > Defaults
//
// Common environment variables:
//   - REDIS_ADDR or MESHGUARD_DATA_REDIS_ADDR: shared store address
//   - MYSQL_DSN or MESHGUARD_DATA_DATABASE_SOURCE: audit database DSN (optional)
//   - ADMIN_TOKEN or MESHGUARD_ADMIN_TOKEN: admin surface token (optional)
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	// Enable environment variable support with MESHGUARD_ prefix
	v.SetEnvPrefix("MESHGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow short environment variable names for commonly deployed fields
	_ = v.BindEnv("data.redis.addr", "REDIS_ADDR", "MESHGUARD_DATA_REDIS_ADDR")
	_ = v.BindEnv("data.redis.password", "REDIS_PASSWORD", "MESHGUARD_DATA_REDIS_PASSWORD")
	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "MESHGUARD_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("admin.token", "ADMIN_TOKEN", "MESHGUARD_ADMIN_TOKEN")

	// Load configuration file when one is given
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	bc := &Bootstrap{
		Server: &Server{
			Http: &HTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: v.GetDuration("server.http.timeout"),
			},
		},
		Data: &Data{
			Redis: &Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				Password:     v.GetString("data.redis.password"),
				DB:           v.GetInt("data.redis.db"),
				PoolSize:     v.GetInt("data.redis.pool_size"),
				DialTimeout:  v.GetDuration("data.redis.dial_timeout"),
				ReadTimeout:  v.GetDuration("data.redis.read_timeout"),
				WriteTimeout: v.GetDuration("data.redis.write_timeout"),
			},
			Database: &Database{
				Driver: v.GetString("data.database.driver"),
				Source: v.GetString("data.database.source"),
			},
		},
		Breaker: &Breaker{
			FailureThreshold:  v.GetInt("breaker.failure_threshold"),
			RecoveryTimeout:   v.GetDuration("breaker.recovery_timeout"),
			MonitoringPeriod:  v.GetDuration("breaker.monitoring_period"),
			ExpectedErrorRate: v.GetFloat64("breaker.expected_error_rate"),
		},
		Cache: &Cache{
			Tier1MaxEntries: v.GetInt("cache.tier1_max_entries"),
			SweepInterval:   v.GetDuration("cache.sweep_interval"),
		},
		Events: &Events{
			StreamTTL:     v.GetDuration("events.stream_ttl"),
			RetryInterval: v.GetDuration("events.retry_interval"),
		},
		Admin: &Admin{
			Token: v.GetString("admin.token"),
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 30*time.Second)

	// Data defaults
	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.redis.db", 0)
	v.SetDefault("data.redis.pool_size", 10)
	v.SetDefault("data.redis.dial_timeout", 5*time.Second)
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	v.SetDefault("data.database.driver", "mysql")
	// Note: data.database.source (MYSQL_DSN) is optional; empty disables auditing

	// Breaker defaults
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.recovery_timeout", 60*time.Second)
	v.SetDefault("breaker.monitoring_period", 300*time.Second)
	v.SetDefault("breaker.expected_error_rate", 0.5)

	// Cache defaults
	v.SetDefault("cache.tier1_max_entries", 1000)
	v.SetDefault("cache.sweep_interval", 60*time.Second)

	// Events defaults
	v.SetDefault("events.stream_ttl", 24*time.Hour)
	v.SetDefault("events.retry_interval", 60*time.Second)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that all configuration values are usable.
// It returns an error listing every invalid field.
func Validate(bc *Bootstrap) error {
	var invalid []string

	if bc.Breaker == nil || bc.Breaker.FailureThreshold < 1 {
		invalid = append(invalid, "breaker.failure_threshold (must be >= 1)")
	}
	if bc.Breaker == nil || bc.Breaker.RecoveryTimeout <= 0 {
		invalid = append(invalid, "breaker.recovery_timeout (must be positive)")
	}
	if bc.Breaker == nil || bc.Breaker.MonitoringPeriod <= 0 {
		invalid = append(invalid, "breaker.monitoring_period (must be positive)")
	}
	if bc.Breaker == nil || bc.Breaker.ExpectedErrorRate <= 0 || bc.Breaker.ExpectedErrorRate > 1 {
		invalid = append(invalid, "breaker.expected_error_rate (must be in (0, 1])")
	}
	if bc.Cache == nil || bc.Cache.Tier1MaxEntries < 1 {
		invalid = append(invalid, "cache.tier1_max_entries (must be >= 1)")
	}
	if bc.Cache == nil || bc.Cache.SweepInterval <= 0 {
		invalid = append(invalid, "cache.sweep_interval (must be positive)")
	}
	if bc.Events == nil || bc.Events.StreamTTL <= 0 {
		invalid = append(invalid, "events.stream_ttl (must be positive)")
	}
	if bc.Events == nil || bc.Events.RetryInterval <= 0 {
		invalid = append(invalid, "events.retry_interval (must be positive)")
	}
	if bc.Data == nil || bc.Data.Redis == nil || bc.Data.Redis.Addr == "" {
		invalid = append(invalid, "data.redis.addr (REDIS_ADDR)")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration fields: %s", strings.Join(invalid, ", "))
	}

	return nil
}
