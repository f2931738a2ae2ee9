package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/radiusdt/vector-insights/internal/period"
)

const envPrefix = "VECTOR_INSIGHTS_"

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the Vector-Insights application.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Database   DatabaseConfig   `yaml:"database"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Redis      RedisConfig      `yaml:"redis"`
	Cache      CacheConfig      `yaml:"cache"`
	Auth       AuthConfig       `yaml:"auth"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	CORS       CORSConfig       `yaml:"cors"`
	Log        LogConfig        `yaml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Reports    ReportsConfig    `yaml:"reports"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	Env             string        `yaml:"env"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects where the hierarchy and sales live.
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	AutoMigrate bool   `yaml:"auto_migrate"`
	// SeedFile names a JSON snapshot written into storage at start-up.
	SeedFile string `yaml:"seed_file"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`

	// StatementTimeout bounds every query; zero leaves the server default.
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// ClickHouseConfig configures the optional daily metrics store.
type ClickHouseConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Addrs       []string      `yaml:"addrs"`
	Database    string        `yaml:"database"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CacheConfig configures the Redis report cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
	Prefix  string        `yaml:"prefix"`
}

type AuthConfig struct {
	Enabled   bool     `yaml:"enabled"`
	MasterKey string   `yaml:"master_key"`
	SkipPaths []string `yaml:"skip_paths"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ReportsConfig holds dashboard defaults.
type ReportsConfig struct {
	DefaultPeriod string `yaml:"default_period"`
	DefaultTopK   int    `yaml:"default_top_k"`
	// Timezone decides which calendar day "today" is.
	Timezone string `yaml:"timezone"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			Env:             "development",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Backend: BackendMemory,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "vectorinsights",
			Password: "vectorinsights_secret",
			DBName:   "vectorinsights",
			SSLMode:  "disable",
			MaxConns: 25,
			MinConns: 5,

			StatementTimeout: 30 * time.Second,
		},
		ClickHouse: ClickHouseConfig{
			Addrs:       []string{"localhost:9000"},
			Database:    "default",
			Username:    "default",
			DialTimeout: 5 * time.Second,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     5 * time.Minute,
			Prefix:  "vi:report:",
		},
		Auth: AuthConfig{
			Enabled:   true,
			SkipPaths: []string{"/health", "/metrics"},
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     100,
			Burst:   20,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Reports: ReportsConfig{
			DefaultPeriod: string(period.TagLast30Days),
			DefaultTopK:   5,
			Timezone:      "UTC",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// VECTOR_INSIGHTS_CONFIG_FILE and environment variables, in that order of
// precedence. A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path := getEnv(envPrefix+"CONFIG_FILE", ""); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides every field whose variable is set; the current value is
// the fallback.
func (c *Config) applyEnv() {
	c.Server.Addr = getEnv(envPrefix+"HTTP_ADDR", c.Server.Addr)
	c.Server.Env = getEnv(envPrefix+"ENV", c.Server.Env)
	c.Server.ReadTimeout = getDurationEnv(envPrefix+"READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getDurationEnv(envPrefix+"WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getDurationEnv(envPrefix+"SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Storage.Backend = getEnv(envPrefix+"STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.AutoMigrate = getBoolEnv(envPrefix+"STORAGE_AUTO_MIGRATE", c.Storage.AutoMigrate)
	c.Storage.SeedFile = getEnv(envPrefix+"STORAGE_SEED_FILE", c.Storage.SeedFile)

	c.Database.Host = getEnv(envPrefix+"DB_HOST", c.Database.Host)
	c.Database.Port = getIntEnv(envPrefix+"DB_PORT", c.Database.Port)
	c.Database.User = getEnv(envPrefix+"DB_USER", c.Database.User)
	c.Database.Password = getEnv(envPrefix+"DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv(envPrefix+"DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv(envPrefix+"DB_SSLMODE", c.Database.SSLMode)
	c.Database.MaxConns = getIntEnv(envPrefix+"DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getIntEnv(envPrefix+"DB_MIN_CONNS", c.Database.MinConns)
	c.Database.StatementTimeout = getDurationEnv(envPrefix+"DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.ClickHouse.Enabled = getBoolEnv(envPrefix+"CLICKHOUSE_ENABLED", c.ClickHouse.Enabled)
	c.ClickHouse.Addrs = getSliceEnv(envPrefix+"CLICKHOUSE_ADDRS", c.ClickHouse.Addrs)
	c.ClickHouse.Database = getEnv(envPrefix+"CLICKHOUSE_DB", c.ClickHouse.Database)
	c.ClickHouse.Username = getEnv(envPrefix+"CLICKHOUSE_USER", c.ClickHouse.Username)
	c.ClickHouse.Password = getEnv(envPrefix+"CLICKHOUSE_PASSWORD", c.ClickHouse.Password)
	c.ClickHouse.DialTimeout = getDurationEnv(envPrefix+"CLICKHOUSE_DIAL_TIMEOUT", c.ClickHouse.DialTimeout)

	c.Redis.Addr = getEnv(envPrefix+"REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv(envPrefix+"REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getIntEnv(envPrefix+"REDIS_DB", c.Redis.DB)

	c.Cache.Enabled = getBoolEnv(envPrefix+"CACHE_ENABLED", c.Cache.Enabled)
	c.Cache.TTL = getDurationEnv(envPrefix+"CACHE_TTL", c.Cache.TTL)
	c.Cache.Prefix = getEnv(envPrefix+"CACHE_PREFIX", c.Cache.Prefix)

	c.Auth.Enabled = getBoolEnv(envPrefix+"AUTH_ENABLED", c.Auth.Enabled)
	c.Auth.MasterKey = getEnv(envPrefix+"API_KEY_MASTER", c.Auth.MasterKey)
	c.Auth.SkipPaths = getSliceEnv(envPrefix+"AUTH_SKIP_PATHS", c.Auth.SkipPaths)

	c.RateLimit.Enabled = getBoolEnv(envPrefix+"RATE_LIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.RPS = getFloatEnv(envPrefix+"RATE_LIMIT_RPS", c.RateLimit.RPS)
	c.RateLimit.Burst = getIntEnv(envPrefix+"RATE_LIMIT_BURST", c.RateLimit.Burst)

	c.CORS.AllowedOrigins = getSliceEnv(envPrefix+"CORS_ALLOWED_ORIGINS", c.CORS.AllowedOrigins)

	c.Log.Level = getEnv(envPrefix+"LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv(envPrefix+"LOG_FORMAT", c.Log.Format)

	c.Metrics.Enabled = getBoolEnv(envPrefix+"METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Path = getEnv(envPrefix+"METRICS_PATH", c.Metrics.Path)

	c.Reports.DefaultPeriod = getEnv(envPrefix+"REPORTS_DEFAULT_PERIOD", c.Reports.DefaultPeriod)
	c.Reports.DefaultTopK = getIntEnv(envPrefix+"REPORTS_DEFAULT_TOP_K", c.Reports.DefaultTopK)
	c.Reports.Timezone = getEnv(envPrefix+"REPORTS_TIMEZONE", c.Reports.Timezone)
}

// Validate checks that required configuration is present and coherent.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return errors.New(envPrefix + "API_KEY_MASTER is required when auth is enabled")
	}
	switch c.Storage.Backend {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return errors.New("cache ttl must be positive")
	}
	if c.ClickHouse.Enabled && len(c.ClickHouse.Addrs) == 0 {
		return errors.New("clickhouse addrs are required when clickhouse is enabled")
	}
	if c.RateLimit.Enabled && c.RateLimit.RPS <= 0 {
		return errors.New("rate limit rps must be positive")
	}
	if _, err := period.ParseTag(c.Reports.DefaultPeriod); err != nil {
		return fmt.Errorf("invalid default period: %w", err)
	}
	if c.Reports.DefaultTopK < 0 {
		return errors.New("default top k must be >= 0")
	}
	if _, err := time.LoadLocation(c.Reports.Timezone); err != nil {
		return fmt.Errorf("invalid reports timezone: %w", err)
	}
	return nil
}

// Location returns the reports timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Reports.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// LogFormat is the encoder passed to the logger. Production always logs JSON.
func (c *Config) LogFormat() string {
	if c.IsProduction() {
		return "json"
	}
	return c.Log.Format
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
