// Package config loads the environment-like key/value configuration
// recognized by the engine. It follows the teacher's pattern: load a
// .env file if present (non-fatal if missing), then read os.Getenv
// with defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every recognized configuration option.
type Config struct {
	MaxRetries int
	RetryDelay time.Duration

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string

	ExchangeURL  string
	KafkaBrokers []string
	MetricsAddr  string
	HTTPAddr     string
}

// Load reads a .env file if present, then resolves every option from
// the environment, falling back to documented defaults.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		MaxRetries:   envInt("MAX_RETRIES", 3),
		RetryDelay:   envSeconds("RETRY_DELAY", 5.0),
		DBHost:       envString("DB_HOST", "localhost"),
		DBUser:       envString("DB_USER", "root"),
		DBPassword:   envString("DB_PASSWORD", "password"),
		DBName:       envString("DB_NAME", "lemon_markets"),
		ExchangeURL:  envString("EXCHANGE_URL", "http://localhost:9090/place"),
		KafkaBrokers: envList("KAFKA_BROKERS"),
		MetricsAddr:  envString("METRICS_ADDR", ":9100"),
		HTTPAddr:     envString("HTTP_ADDR", ":8080"),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func envSeconds(key string, def float64) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return toDuration(def)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return toDuration(def)
	}
	return toDuration(f)
}

func toDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
