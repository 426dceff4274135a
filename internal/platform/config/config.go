// Package config loads process configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Server captures everything the API server and the audit worker need.
type Server struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaGroup    string
	JWTSigningKey string

	AsyncWorkers int
	AsyncBuffer  int

	AuditEnabled      bool
	AuditFieldChanges bool
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("FYNDORA_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default, must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	topic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "audit.tasks"
	}
	group := os.Getenv("KAFKA_AUDIT_GROUP")
	if group == "" {
		group = "audit-worker"
	}

	return Server{
		Addr:          addr,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:    topic,
		KafkaGroup:    group,
		JWTSigningKey: jwtSigningKey,
		AsyncWorkers:  envInt("AUDIT_ASYNC_WORKERS", 4),
		AsyncBuffer:   envInt("AUDIT_ASYNC_BUFFER", 256),

		AuditEnabled:      envBool("AUDIT_ENABLED", true),
		AuditFieldChanges: envBool("AUDIT_FIELD_CHANGES", true),
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	return raw == "true" || raw == "1"
}
