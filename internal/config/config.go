package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr string

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	RedisHost string
	RedisPort int
	CacheTTL  time.Duration

	RabbitHost     string
	RabbitPort     int
	RabbitUser     string
	RabbitPassword string

	ConsulHost string
	ConsulPort int

	Workers int
}

// Load reads configuration from environment variables with local-dev
// defaults.
func Load() *Config {
	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvInt("POSTGRES_PORT", 5432),
		PostgresUser:     getEnv("POSTGRES_USER", "ordersys"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "ordersys123"),
		PostgresDB:       getEnv("POSTGRES_DB", "ordersys"),

		RedisHost: getEnv("REDIS_HOST", "localhost"),
		RedisPort: getEnvInt("REDIS_PORT", 6379),
		CacheTTL:  time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)) * time.Second,

		RabbitHost:     getEnv("RABBITMQ_HOST", "localhost"),
		RabbitPort:     getEnvInt("RABBITMQ_PORT", 5672),
		RabbitUser:     getEnv("RABBITMQ_USER", "guest"),
		RabbitPassword: getEnv("RABBITMQ_PASSWORD", "guest"),

		ConsulHost: getEnv("CONSUL_HOST", "localhost"),
		ConsulPort: getEnvInt("CONSUL_PORT", 8500),

		Workers: getEnvInt("FULFILLMENT_WORKERS", 2),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}
