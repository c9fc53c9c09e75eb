package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds runtime settings loaded from environment variables. Every
// field has a development default so a bare `go run` comes up against local
// Postgres and Redis.
type Config struct {
	Port string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	JWTSecret string

	RedisAddr string

	// Path to a Firebase service account file. Empty disables push delivery;
	// that is a valid, degraded mode.
	FirebaseCredentialsFile string

	// Upper bound for notification sends awaited inline on the purchase
	// request paths.
	NotifyTimeout time.Duration

	// TTL for the cached seller reputation payload.
	ReputationCacheTTL time.Duration
}

func Load() Config {
	return Config{
		Port:                    getenv("PORT", "8080"),
		DBUser:                  getenv("DB_USER", "postgres"),
		DBPassword:              getenv("DB_PASSWORD", "postgres"),
		DBHost:                  getenv("DB_HOST", "localhost"),
		DBPort:                  getenv("DB_PORT", "5432"),
		DBName:                  getenv("DB_NAME", "campusshelf"),
		JWTSecret:               getenv("JWT_SECRET", "supersecret"),
		RedisAddr:               redisAddr(),
		FirebaseCredentialsFile: os.Getenv("FIREBASE_CREDENTIALS_FILE"),
		NotifyTimeout:           getdur("NOTIFY_TIMEOUT", 5*time.Second),
		ReputationCacheTTL:      getdur("REPUTATION_CACHE_TTL", 60*time.Second),
	}
}

// DSN builds the Postgres connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func redisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	host := getenv("REDIS_HOST", "localhost")
	port := getenv("REDIS_PORT", "6379")
	return host + ":" + port
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
