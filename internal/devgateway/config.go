// Package devgateway is a development stand-in for the remote system of
// record. It serves the single-endpoint protocol over SQLite so the CLI and
// engines can be exercised end to end. Its own policies, such as rejecting
// a second attendance for the same employee and date, are local to it.
package devgateway

import (
	"os"
	"strconv"
)

// Config holds the server settings, read from the environment.
type Config struct {
	Port          int
	DBPath        string
	KafkaBroker   string
	KafkaTopic    string
	RedisHost     string
	RedisPassword string
	SentryDSN     string
	Env           string
	// PublicURL prefixes image URLs. Empty derives it from each request's host.
	PublicURL string
}

// ConfigFromEnv reads PORT, FT_GATEWAY_DB, KAFKA_BROKER, KAFKA_TOPIC,
// REDIS_HOST, REDIS_PASSWORD, SENTRY_DSN, APP_ENV and FT_PUBLIC_URL.
// Kafka, Redis and Sentry stay disabled when their variable is unset.
func ConfigFromEnv() Config {
	cfg := Config{
		Port:          8080,
		DBPath:        os.Getenv("FT_GATEWAY_DB"),
		KafkaBroker:   os.Getenv("KAFKA_BROKER"),
		KafkaTopic:    os.Getenv("KAFKA_TOPIC"),
		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		Env:           os.Getenv("APP_ENV"),
		PublicURL:     os.Getenv("FT_PUBLIC_URL"),
	}
	if p, err := strconv.Atoi(os.Getenv("PORT")); err == nil && p > 0 {
		cfg.Port = p
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = DefaultTopic
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	return cfg
}
