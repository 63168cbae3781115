package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the municipal sentinel service
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBMaxConns int

	// Store backend: "mysql" or "memory"
	StoreBackend string

	// Server configuration
	Port string

	// Oracle configuration
	GeminiAPIKey string
	GeminiModel  string

	// Per-call oracle deadline; a timeout falls into the
	// degrade-to-defaults path like any other oracle failure.
	OracleTimeout time.Duration

	// Dashboard auth
	APIToken string

	// RabbitMQ dispatch publishing (optional)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables
func Load() *Config {
	config := &Config{
		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret_app"),
		DBName:     getEnv("DB_NAME", "sentinel"),
		DBMaxConns: getIntEnv("DB_MAX_CONNS", 25),

		StoreBackend: getEnv("STORE_BACKEND", "mysql"),

		// Server defaults
		Port: getEnv("PORT", "8080"),

		// Oracle defaults
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash-preview-09-2025"),
		OracleTimeout: getDurationEnv("ORACLE_TIMEOUT", 30*time.Second),

		APIToken: getEnv("API_TOKEN", ""),

		// RabbitMQ defaults; empty URL disables publishing
		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "sentinel-reports"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "report.created"),

		// Logging defaults
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return config
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
