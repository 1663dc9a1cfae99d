// Package config provides configuration management for the application.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application.
type Config struct {
	// AWS
	AWSRegion string
	S3Bucket  string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBMaxConns int

	// SES
	SESSenderEmail string
	DashboardURL   string

	// RabbitMQ
	RabbitMQURL         string
	MatchEventsExchange string

	// Redis
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	CandidateCacheTTL time.Duration

	// Matching
	MutualWindowHours   int
	ReceiverWindowHours int
	SenderWindowHours   int
	NotifyTimeout       time.Duration

	// Application
	Port     int
	Stage    string
	LogLevel string
	DemoMode bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	_ = godotenv.Load()

	cfg := &Config{
		// AWS
		AWSRegion: getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:  getEnv("S3_BUCKET", "matchmaking-imports-dev"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBName:     getEnv("DB_NAME", "matchmaking"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBMaxConns: getEnvInt("DB_MAX_CONNS", 10),

		// SES
		SESSenderEmail: getEnv("SES_SENDER_EMAIL", ""),
		DashboardURL:   getEnv("DASHBOARD_URL", "http://localhost:3000"),

		// RabbitMQ
		RabbitMQURL:         getEnv("RABBITMQ_URL", ""),
		MatchEventsExchange: getEnv("MATCH_EVENTS_EXCHANGE", "match.events"),

		// Redis
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		CandidateCacheTTL: getEnvDuration("CANDIDATE_CACHE_TTL", 10*time.Minute),

		// Matching
		MutualWindowHours:   getEnvInt("MUTUAL_WINDOW_HOURS", 48),
		ReceiverWindowHours: getEnvInt("RECEIVER_WINDOW_HOURS", 24),
		SenderWindowHours:   getEnvInt("SENDER_WINDOW_HOURS", 72),
		NotifyTimeout:       getEnvDuration("NOTIFY_TIMEOUT", 5*time.Second),

		// Application
		Port:     getEnvInt("PORT", 8080),
		Stage:    getEnv("STAGE", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DemoMode: getEnvBool("DEMO_MODE", false),
	}

	return cfg, nil
}

// DatabaseURL returns the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	sslMode := "require" // Use SSL for RDS
	if c.DBHost == "localhost" || c.DBHost == "127.0.0.1" {
		sslMode = "disable"
	}
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + strconv.Itoa(c.DBPort) + "/" + c.DBName + "?sslmode=" + sslMode
}

// MutualWindow is how long both members of a mutual match have to answer.
func (c *Config) MutualWindow() time.Duration {
	return time.Duration(c.MutualWindowHours) * time.Hour
}

// ReceiverWindow is how long the receiver of a sequential match has to answer.
func (c *Config) ReceiverWindow() time.Duration {
	return time.Duration(c.ReceiverWindowHours) * time.Hour
}

// SenderWindow is how long the sender of a sequential match has to answer once initiated.
func (c *Config) SenderWindow() time.Duration {
	return time.Duration(c.SenderWindowHours) * time.Hour
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as int or returns a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
