// Package config loads application configuration from the environment
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// API contains API server configuration
	API APIConfig
	// Auth contains authentication configuration
	Auth AuthConfig
	// Database contains database configuration
	Database DatabaseConfig
	// Email contains email service configuration
	Email EmailConfig
	// Redis contains the optional shared rate-limit store configuration
	Redis RedisConfig
	// Reset contains password reset configuration
	Reset ResetConfig
	// RateLimit contains global request throttling configuration
	RateLimit RateLimitConfig
	// Retention contains data retention configuration
	Retention RetentionConfig
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

// APIConfig contains API server settings
type APIConfig struct {
	Port string
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	// JWTSecret is the secret key used to sign JWT access tokens
	JWTSecret            string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	// RegistrationOpen determines if new user registration is allowed
	RegistrationOpen bool
}

// EmailConfig contains email service settings
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromAddress  string
	AppURL       string
}

// RedisConfig contains the optional Redis connection settings. An empty Addr
// selects the in-process rate-limit store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ResetConfig contains password reset settings
type ResetConfig struct {
	// TokenTTL is how long an issued reset token stays valid
	TokenTTL time.Duration
	// MaxRequests reset requests are allowed per RequestWindow per email
	MaxRequests   int
	RequestWindow time.Duration
}

// RateLimitConfig contains global per-IP throttling settings
type RateLimitConfig struct {
	Requests int
	Window   int // seconds
	// FailOpen controls behavior when the limiter's backing store is
	// unavailable: true lets requests through, false rejects them.
	// Default is false (fail closed) so an outage cannot disable throttling.
	FailOpen bool
}

// RetentionConfig contains data retention settings
type RetentionConfig struct {
	AuditEvents     time.Duration
	PasswordHistory time.Duration
	LoginAttempts   time.Duration
	// CleanupSchedule is a cron expression for the maintenance sweep
	CleanupSchedule string
}

// LoadFromEnv retrieves configuration from environment variables
func (c *Config) LoadFromEnv() error {
	c.API = APIConfig{
		Port: getEnvOrDefault("API_PORT", "8080"),
	}
	c.Database = DatabaseConfig{
		Host:           getEnvOrDefault("DB_HOST", "localhost"),
		Port:           getEnvAsInt("DB_PORT", 5432),
		User:           getEnvOrDefault("DB_USER", "postgres"),
		Password:       getEnvOrDefault("DB_PASSWORD", "postgres"),
		DBName:         getEnvOrDefault("DB_NAME", "credcore"),
		SSLMode:        getEnvOrDefault("DB_SSL_MODE", "disable"),
		MigrationsPath: getEnvOrDefault("DB_MIGRATIONS_PATH", "migrations"),
	}
	c.Auth = AuthConfig{
		JWTSecret:            os.Getenv("JWT_SECRET"),
		AccessTokenDuration:  getEnvAsDuration("ACCESS_TOKEN_DURATION", 15*time.Minute),
		RefreshTokenDuration: getEnvAsDuration("REFRESH_TOKEN_DURATION", 7*24*time.Hour),
		RegistrationOpen:     getEnvAsBool("REGISTRATION_OPEN", true),
	}
	c.Email = EmailConfig{
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		FromAddress:  os.Getenv("SMTP_FROM"),
		AppURL:       os.Getenv("APP_URL"),
	}
	c.Redis = RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getEnvAsInt("REDIS_DB", 0),
	}
	c.Reset = ResetConfig{
		TokenTTL:      getEnvAsDuration("RESET_TOKEN_TTL", time.Hour),
		MaxRequests:   getEnvAsInt("RESET_MAX_REQUESTS", 3),
		RequestWindow: getEnvAsDuration("RESET_REQUEST_WINDOW", time.Hour),
	}
	c.RateLimit = RateLimitConfig{
		Requests: getEnvAsInt("RATE_LIMIT_REQUESTS", 1000),
		Window:   getEnvAsInt("RATE_LIMIT_WINDOW", 60),
		FailOpen: getEnvAsBool("RATE_LIMIT_FAIL_OPEN", false),
	}
	c.Retention = RetentionConfig{
		AuditEvents:     getEnvAsDuration("AUDIT_RETENTION", 365*24*time.Hour),
		PasswordHistory: getEnvAsDuration("PASSWORD_HISTORY_RETENTION", 90*24*time.Hour),
		LoginAttempts:   getEnvAsDuration("LOGIN_ATTEMPT_RETENTION", 24*time.Hour),
		CleanupSchedule: getEnvOrDefault("CLEANUP_SCHEDULE", "@hourly"),
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	return nil
}

// ConnectionString builds the database connection string
func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// getEnvAsInt retrieves an environment variable and converts it to an integer
func getEnvAsInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvAsBool retrieves an environment variable and converts it to a boolean
func getEnvAsBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvAsDuration retrieves an environment variable and parses it as a duration
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvOrDefault(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
