package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/AdrianMsc/msc-component-status-ws/pkg/observability"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/storage"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/storage/postgres"
)

// Rate limiter backends
const (
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// RateLimit configuration
	RateLimit RateLimitConfig

	// CORS configuration
	CORS CORSConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	MaxBodyBytes    int64

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// StaticDir, when set, is served at the root path
	StaticDir string

	SwaggerEnabled bool
}

// RateLimitConfig holds per-IP request limiting settings
type RateLimitConfig struct {
	Enabled  bool
	Backend  string
	Requests int
	Window   time.Duration
	Message  string
}

// CORSConfig lists the origins allowed to call the API. "*" allows any.
type CORSConfig struct {
	AllowedOrigins []string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
	OTelSampleRatio    float64
}

// LoadDotEnv loads variables from the given .env files without overriding
// variables already set in the environment. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		RateLimit:     loadRateLimitConfig(),
		CORS:          loadCORSConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("MSC_HOST", "0.0.0.0"),
		Port:            getEnvAny([]string{"MSC_PORT", "PORT"}, "8080"),
		ReadTimeout:     getEnvDuration("MSC_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("MSC_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     getEnvDuration("MSC_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("MSC_SHUTDOWN_TIMEOUT", 30*time.Second),
		RequestTimeout:  getEnvDuration("MSC_REQUEST_TIMEOUT", 25*time.Second),
		MaxBodyBytes:    getEnvInt64("MSC_MAX_BODY_BYTES", 10<<20),
		HealthPort:      getEnv("MSC_HEALTH_PORT", "9090"),
		StaticDir:       getEnv("MSC_STATIC_DIR", ""),
		SwaggerEnabled:  getEnvBool("MSC_SWAGGER_ENABLED", true),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	// PostgreSQL config
	cfg.PostgresURL = getEnvAny([]string{"MSC_DATABASE_URL", "DATABASE_URL"}, "")
	cfg.PostgresReplicaURLs = postgres.ParseReplicaURLs(getEnv("MSC_DATABASE_REPLICA_URLS", ""))
	if maxConns := getEnvInt("MSC_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("MSC_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("MSC_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}
	cfg.AutoMigrate = getEnvBool("MSC_AUTO_MIGRATE", false)

	// S3 config
	cfg.S3Endpoint = getEnv("MSC_S3_ENDPOINT", "")
	cfg.S3Region = getEnvAny([]string{"MSC_S3_REGION", "AWS_REGION"}, cfg.S3Region)
	cfg.S3Bucket = getEnvAny([]string{"MSC_S3_BUCKET", "AWS_S3_BUCKET_NAME"}, "")
	cfg.S3AccessKey = getEnvAny([]string{"MSC_S3_ACCESS_KEY", "AWS_ACCESS_KEY_ID"}, "")
	cfg.S3SecretKey = getEnvAny([]string{"MSC_S3_SECRET_KEY", "AWS_SECRET_ACCESS_KEY"}, "")
	cfg.S3UsePathStyle = getEnvBool("MSC_S3_USE_PATH_STYLE", false)
	cfg.S3PublicURL = strings.TrimRight(getEnv("MSC_S3_PUBLIC_URL", ""), "/")
	cfg.S3CreateBucket = getEnvBool("MSC_S3_CREATE_BUCKET", false)

	// Redis config
	cfg.RedisURL = getEnv("MSC_REDIS_URL", "")
	cfg.RedisPassword = getEnv("MSC_REDIS_PASSWORD", "")
	if redisDB := getEnvInt("MSC_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisMaxRetries := getEnvInt("MSC_REDIS_MAX_RETRIES", 0); redisMaxRetries > 0 {
		cfg.RedisMaxRetries = redisMaxRetries
	}
	if redisPoolSize := getEnvInt("MSC_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}

	// Cache config
	cfg.CacheEnabled = getEnvBool("MSC_CACHE_ENABLED", cfg.CacheEnabled)
	if l1CacheSize := getEnvInt("MSC_L1_CACHE_SIZE", 0); l1CacheSize > 0 {
		cfg.L1CacheSize = l1CacheSize
	}
	if ttl := getEnvDuration("MSC_CACHE_TTL", 0); ttl > 0 {
		for ns := range cfg.CacheTTL {
			cfg.CacheTTL[ns] = ttl
		}
	}

	return cfg
}

func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:  getEnvBool("MSC_RATE_LIMIT_ENABLED", true),
		Backend:  strings.ToLower(getEnv("MSC_RATE_LIMIT_BACKEND", RateLimitMemory)),
		Requests: getEnvInt("MSC_RATE_LIMIT_REQUESTS", 100),
		Window:   getEnvDuration("MSC_RATE_LIMIT_WINDOW", 15*time.Minute),
		Message:  getEnv("MSC_RATE_LIMIT_MESSAGE", "Too many requests from this IP, please try again after 15 minutes"),
	}
}

func loadCORSConfig() CORSConfig {
	origins := splitList(getEnv("MSC_CORS_ORIGINS", "*"))
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return CORSConfig{AllowedOrigins: origins}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("MSC_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("MSC_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("MSC_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("MSC_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("MSC_OTEL_SERVICE_NAME", "msc-component-status"),
		OTelServiceVersion: getEnv("MSC_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("MSC_OTEL_INSECURE", true),
		OTelSampleRatio:    getEnvFloat("MSC_OTEL_SAMPLE_RATIO", 1.0),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// Validate storage config
	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("database URL is required (MSC_DATABASE_URL or DATABASE_URL)")
	}
	if c.Storage.S3Enabled() && c.Storage.S3Region == "" {
		return fmt.Errorf("S3 region is required when a bucket is configured")
	}
	if (c.Storage.S3AccessKey == "") != (c.Storage.S3SecretKey == "") {
		return fmt.Errorf("S3 access key and secret key must be set together")
	}

	// Validate rate limiting
	if c.RateLimit.Enabled {
		if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit requests and window must be positive")
		}
		switch c.RateLimit.Backend {
		case RateLimitMemory:
		case RateLimitRedis:
			if c.Storage.RedisURL == "" {
				return fmt.Errorf("redis URL is required for the redis rate limit backend")
			}
		default:
			return fmt.Errorf("invalid rate limit backend: %s (must be memory or redis)", c.RateLimit.Backend)
		}
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// OTel converts the observability settings for observability.InitOTel
func (c *Config) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.Observability.OTelEnabled,
		Endpoint:       c.Observability.OTelEndpoint,
		ServiceName:    c.Observability.OTelServiceName,
		ServiceVersion: c.Observability.OTelServiceVersion,
		Insecure:       c.Observability.OTelInsecure,
		SampleRatio:    c.Observability.OTelSampleRatio,
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAny returns the first non-empty variable among keys
func getEnvAny(keys []string, defaultValue string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
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

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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

// splitList splits a comma separated value, dropping blanks
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
