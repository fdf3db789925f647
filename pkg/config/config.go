package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brightlane/agencyhub/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Auth configuration
	Auth AuthConfig

	// Notification dispatcher configuration
	Notify NotifyConfig

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

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings for the notification queue
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// AuthConfig holds OIDC bearer verification settings. When Enabled is
// false every request resolves as an unbound identity, which denies all
// non-public access; the flag exists for local smoke testing only.
type AuthConfig struct {
	Enabled  bool
	Issuer   string
	ClientID string

	// RolesClaim names the token claim carrying coarse roles.
	RolesClaim string
}

// NotifyConfig holds notification dispatcher settings
type NotifyConfig struct {
	Workers     int
	SendTimeout time.Duration
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
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Auth:          loadAuthConfig(),
		Notify:        loadNotifyConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("AGENCYHUB_HOST", "0.0.0.0"),
		Port:            getEnv("AGENCYHUB_PORT", "8080"),
		ReadTimeout:     getEnvDuration("AGENCYHUB_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("AGENCYHUB_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("AGENCYHUB_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("AGENCYHUB_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("AGENCYHUB_HEALTH_PORT", "9090"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:             getEnv("AGENCYHUB_POSTGRES_URL", ""),
		MaxOpenConns:    getEnvInt("AGENCYHUB_POSTGRES_MAX_CONNS", 25),
		MaxIdleConns:    getEnvInt("AGENCYHUB_POSTGRES_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("AGENCYHUB_POSTGRES_CONN_LIFETIME", 30*time.Minute),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     getEnv("AGENCYHUB_REDIS_ADDR", "localhost:6379"),
		Password: getEnv("AGENCYHUB_REDIS_PASSWORD", ""),
		DB:       getEnvInt("AGENCYHUB_REDIS_DB", 0),
		PoolSize: getEnvInt("AGENCYHUB_REDIS_POOL_SIZE", 10),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		Enabled:    getEnvBool("AGENCYHUB_AUTH_ENABLED", true),
		Issuer:     getEnv("AGENCYHUB_OIDC_ISSUER", ""),
		ClientID:   getEnv("AGENCYHUB_OIDC_CLIENT_ID", ""),
		RolesClaim: getEnv("AGENCYHUB_OIDC_ROLES_CLAIM", "roles"),
	}
}

func loadNotifyConfig() NotifyConfig {
	return NotifyConfig{
		Workers:     getEnvInt("AGENCYHUB_NOTIFY_WORKERS", 4),
		SendTimeout: getEnvDuration("AGENCYHUB_NOTIFY_SEND_TIMEOUT", 15*time.Second),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("AGENCYHUB_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("AGENCYHUB_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("AGENCYHUB_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("AGENCYHUB_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("AGENCYHUB_OTEL_SERVICE_NAME", "agencyhub"),
		OTelServiceVersion: getEnv("AGENCYHUB_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("AGENCYHUB_OTEL_INSECURE", true),
	}
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

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("postgres max conns must be positive")
	}

	if c.Auth.Enabled {
		if c.Auth.Issuer == "" {
			return fmt.Errorf("OIDC issuer is required when auth is enabled")
		}
		if c.Auth.ClientID == "" {
			return fmt.Errorf("OIDC client ID is required when auth is enabled")
		}
	}

	if c.Notify.Workers < 1 {
		return fmt.Errorf("notify workers must be positive")
	}

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

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
