package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/stockroom/pkg/observability"
	"github.com/platinummonkey/stockroom/pkg/reports"
	"github.com/platinummonkey/stockroom/pkg/storage"
)

// DefaultMaxBodyBytes caps JSON request bodies
const DefaultMaxBodyBytes int64 = 10 << 20

// MinJWTSecretBytes is the minimum signing secret length outside dev mode
const MinJWTSecretBytes = 32

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Auth          AuthConfig          `yaml:"auth"`
	Redis         RedisConfig         `yaml:"redis"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Observability ObservabilityConfig `yaml:"observability"`
	Reports       ReportsConfig       `yaml:"reports"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`

	// DevMode exposes internal error detail to clients
	DevMode        bool     `yaml:"dev_mode"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxBodyBytes   int64    `yaml:"max_body_bytes"`
}

// DatabaseConfig holds relational store settings
type DatabaseConfig struct {
	Driver      string        `yaml:"driver"`
	URL         string        `yaml:"url"`
	ReplicaURLs []string      `yaml:"replica_urls"`
	MaxConns    int           `yaml:"max_conns"`
	MinConns    int           `yaml:"min_conns"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxLifetime time.Duration `yaml:"max_lifetime"`
	MaxIdleTime time.Duration `yaml:"max_idle_time"`
}

// AuthConfig holds credential and token settings
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

// RedisConfig holds the optional Redis connection used for rate limiting
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled reports whether a Redis URL is configured
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// RateLimitConfig holds limiter settings for the auth endpoints and the API
type RateLimitConfig struct {
	AuthRequests int           `yaml:"auth_requests"`
	APIRequests  int           `yaml:"api_requests"`
	Window       time.Duration `yaml:"window"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`

	OTelEnabled        bool    `yaml:"otel_enabled"`
	OTelEndpoint       string  `yaml:"otel_endpoint"`
	OTelServiceName    string  `yaml:"otel_service_name"`
	OTelServiceVersion string  `yaml:"otel_service_version"`
	OTelInsecure       bool    `yaml:"otel_insecure"`
	OTelSampleRatio    float64 `yaml:"otel_sample_ratio"`
}

// ReportsConfig holds the scheduled export target
type ReportsConfig struct {
	S3Endpoint     string `yaml:"s3_endpoint"`
	S3Region       string `yaml:"s3_region"`
	S3Bucket       string `yaml:"s3_bucket"`
	S3AccessKey    string `yaml:"s3_access_key"`
	S3SecretKey    string `yaml:"s3_secret_key"`
	S3UsePathStyle bool   `yaml:"s3_use_path_style"`
	Schedule       string `yaml:"schedule"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "5000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
			AllowedOrigins:  []string{"http://localhost:3000"},
			MaxBodyBytes:    DefaultMaxBodyBytes,
		},
		Database: DatabaseConfig{
			Driver:      "postgres",
			MaxConns:    20,
			MinConns:    2,
			Timeout:     5 * time.Second,
			MaxLifetime: time.Hour,
			MaxIdleTime: 10 * time.Minute,
		},
		Auth: AuthConfig{
			TokenTTL:   24 * time.Hour,
			BcryptCost: 12,
		},
		RateLimit: RateLimitConfig{
			AuthRequests: 20,
			APIRequests:  600,
			Window:       time.Minute,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "stockroom",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
			OTelSampleRatio:    1,
		},
		Reports: ReportsConfig{
			S3Region: "us-east-1",
			Schedule: "0 2 * * *",
		},
	}
}

// LoadConfig loads defaults, the optional YAML file, then environment overrides
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("STOCKROOM_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("STOCKROOM_HOST", s.Host)
	s.Port = getEnv("STOCKROOM_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("STOCKROOM_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("STOCKROOM_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("STOCKROOM_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("STOCKROOM_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.HealthPort = getEnv("STOCKROOM_HEALTH_PORT", s.HealthPort)
	s.DevMode = getEnvBool("STOCKROOM_DEV_MODE", s.DevMode)
	s.AllowedOrigins = getEnvList("STOCKROOM_ALLOWED_ORIGINS", s.AllowedOrigins)
	s.MaxBodyBytes = getEnvInt64("STOCKROOM_MAX_BODY_BYTES", s.MaxBodyBytes)

	d := &c.Database
	d.Driver = getEnv("STOCKROOM_DB_DRIVER", d.Driver)
	d.URL = getEnv("STOCKROOM_DB_URL", d.URL)
	d.ReplicaURLs = getEnvList("STOCKROOM_DB_REPLICA_URLS", d.ReplicaURLs)
	d.MaxConns = getEnvInt("STOCKROOM_DB_MAX_CONNS", d.MaxConns)
	d.MinConns = getEnvInt("STOCKROOM_DB_MIN_CONNS", d.MinConns)
	d.Timeout = getEnvDuration("STOCKROOM_DB_TIMEOUT", d.Timeout)

	a := &c.Auth
	a.JWTSecret = getEnv("STOCKROOM_JWT_SECRET", a.JWTSecret)
	a.TokenTTL = getEnvDuration("STOCKROOM_TOKEN_TTL", a.TokenTTL)
	a.BcryptCost = getEnvInt("STOCKROOM_BCRYPT_COST", a.BcryptCost)

	r := &c.Redis
	r.URL = getEnv("STOCKROOM_REDIS_URL", r.URL)
	r.Password = getEnv("STOCKROOM_REDIS_PASSWORD", r.Password)
	r.DB = getEnvInt("STOCKROOM_REDIS_DB", r.DB)

	rl := &c.RateLimit
	rl.AuthRequests = getEnvInt("STOCKROOM_RATE_LIMIT_AUTH", rl.AuthRequests)
	rl.APIRequests = getEnvInt("STOCKROOM_RATE_LIMIT_API", rl.APIRequests)
	rl.Window = getEnvDuration("STOCKROOM_RATE_LIMIT_WINDOW", rl.Window)

	o := &c.Observability
	o.LogLevel = getEnv("STOCKROOM_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("STOCKROOM_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("STOCKROOM_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("STOCKROOM_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("STOCKROOM_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("STOCKROOM_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("STOCKROOM_OTEL_INSECURE", o.OTelInsecure)
	o.OTelSampleRatio = getEnvFloat("STOCKROOM_OTEL_SAMPLE_RATIO", o.OTelSampleRatio)

	rp := &c.Reports
	rp.S3Endpoint = getEnv("STOCKROOM_S3_ENDPOINT", rp.S3Endpoint)
	rp.S3Region = getEnv("STOCKROOM_S3_REGION", rp.S3Region)
	rp.S3Bucket = getEnv("STOCKROOM_S3_BUCKET", rp.S3Bucket)
	rp.S3AccessKey = getEnv("STOCKROOM_S3_ACCESS_KEY", rp.S3AccessKey)
	rp.S3SecretKey = getEnv("STOCKROOM_S3_SECRET_KEY", rp.S3SecretKey)
	rp.S3UsePathStyle = getEnvBool("STOCKROOM_S3_USE_PATH_STYLE", rp.S3UsePathStyle)
	rp.Schedule = getEnv("STOCKROOM_REPORT_SCHEDULE", rp.Schedule)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if !c.Server.DevMode && len(c.Auth.JWTSecret) < MinJWTSecretBytes {
		return fmt.Errorf("JWT secret must be at least %d bytes outside dev mode", MinJWTSecretBytes)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31")
	}

	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
		if r := c.Observability.OTelSampleRatio; r < 0 || r > 1 {
			return fmt.Errorf("OpenTelemetry sample ratio must be between 0 and 1")
		}
	}

	return nil
}

// ValidateReports checks the settings the report exporter needs
func (c *Config) ValidateReports() error {
	if c.Reports.S3Bucket == "" {
		return fmt.Errorf("S3 bucket is required for report export")
	}
	if c.Reports.Schedule == "" {
		return fmt.Errorf("report schedule is required")
	}
	return nil
}

// Storage converts the database section to connection manager settings
func (d DatabaseConfig) Storage() storage.Config {
	return storage.Config{
		Driver:      d.Driver,
		PrimaryURL:  d.URL,
		ReplicaURLs: d.ReplicaURLs,
		MaxConns:    d.MaxConns,
		MinConns:    d.MinConns,
		Timeout:     d.Timeout,
		MaxLifetime: d.MaxLifetime,
		MaxIdleTime: d.MaxIdleTime,
	}
}

// OTel converts the telemetry settings for observability.StartTelemetry
func (o ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
		SampleRatio:    o.OTelSampleRatio,
	}
}

// S3 converts the export target for reports.NewS3Archive
func (r ReportsConfig) S3() reports.S3Config {
	return reports.S3Config{
		Endpoint:     r.S3Endpoint,
		Region:       r.S3Region,
		Bucket:       r.S3Bucket,
		AccessKey:    r.S3AccessKey,
		SecretKey:    r.S3SecretKey,
		UsePathStyle: r.S3UsePathStyle,
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
