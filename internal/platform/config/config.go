package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration. Optional backends (Postgres,
// Redis, Kafka) degrade to in-memory behavior when their settings are empty,
// so a bare `go run ./cmd/server` works for development.
type Server struct {
	Addr          string
	DatabaseURL   string
	Redis         RedisConfig
	KafkaBrokers  []string
	JWTSigningKey string
	LogLevel      string
	SnapshotTTL   time.Duration
}

// RedisConfig tunes the shared Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("STRIDE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("STRIDE_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default, override in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("STRIDE_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:          addr,
		DatabaseURL:   os.Getenv("STRIDE_DATABASE_URL"),
		KafkaBrokers:  brokers,
		JWTSigningKey: jwtSigningKey,
		LogLevel:      os.Getenv("STRIDE_LOG_LEVEL"),
		SnapshotTTL:   24 * time.Hour,
		Redis: RedisConfig{
			URL:          os.Getenv("STRIDE_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}
