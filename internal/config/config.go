package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	TrustedProxies []string
	AllowedOrigins []string
}

type AuthConfig struct {
	// Lockout policy: LockoutThreshold consecutive failures lock the
	// account for LockoutDuration.
	LockoutThreshold int
	LockoutDuration  time.Duration

	// Login attempt audit retention
	AttemptRetention time.Duration
	CleanupInterval  time.Duration

	// Session cookie keys (hex/base64 not required; length is)
	SessionHashKey  string
	SessionBlockKey string
	SessionMaxAge   time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	sessionHashKey := getEnv("SESSION_HASH_KEY", "")
	if sessionHashKey == "" {
		return nil, fmt.Errorf("SESSION_HASH_KEY is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "nasablog"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS"),
		},
		Auth: AuthConfig{
			LockoutThreshold: getEnvAsInt("LOCKOUT_THRESHOLD", 10),
			LockoutDuration:  getEnvAsDuration("LOCKOUT_DURATION", 30*time.Minute),
			AttemptRetention: getEnvAsDuration("ATTEMPT_RETENTION", 90*24*time.Hour),
			CleanupInterval:  getEnvAsDuration("ATTEMPT_CLEANUP_INTERVAL", 1*time.Hour),
			SessionHashKey:   sessionHashKey,
			SessionBlockKey:  getEnv("SESSION_BLOCK_KEY", ""),
			SessionMaxAge:    getEnvAsDuration("SESSION_MAX_AGE", 12*time.Hour),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if cfg.Auth.LockoutThreshold < 1 {
		return nil, fmt.Errorf("LOCKOUT_THRESHOLD must be at least 1")
	}

	if err := validateSessionKeys(&cfg.Auth, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSessionKeys enforces minimum security standards for cookie keys
func validateSessionKeys(auth *AuthConfig, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires 256 bits
	}

	if len(auth.SessionHashKey) < minLength {
		return fmt.Errorf("SESSION_HASH_KEY must be at least %d characters in %s environment (got %d)",
			minLength, env, len(auth.SessionHashKey))
	}

	// Check against common weak secrets
	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	keyLower := strings.ToLower(auth.SessionHashKey)
	for _, weak := range weakSecrets {
		if keyLower == weak {
			return fmt.Errorf("SESSION_HASH_KEY cannot be a common weak value")
		}
	}

	// securecookie's AES block key must be a valid AES key size
	if auth.SessionBlockKey != "" {
		switch len(auth.SessionBlockKey) {
		case 16, 24, 32:
		default:
			return fmt.Errorf("SESSION_BLOCK_KEY must be 16, 24, or 32 bytes (got %d)", len(auth.SessionBlockKey))
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
