// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env        string        // application environment (dev/test/prod)
	Port       string        // HTTP port to listen on
	DBUser     string        // database username
	DBPass     string        // database password (optional)
	DBHost     string        // database host
	DBPort     string        // database port
	DBName     string        // database name
	JWTSecret  string        // secret used to sign access tokens
	AccessTTL  time.Duration // access-token lifetime
	RefreshTTL time.Duration // refresh-token lifetime
	BcryptCost int           // bcrypt cost for password hashing

	RateLimit RateLimitConfig
}

// Load reads configuration from the environment. Required variables are
// enforced by must(); missing values halt startup with a fatal log.
func Load() Config {
	return Config{
		Env:        must("APP_ENV"),
		Port:       must("APP_PORT"),
		DBUser:     must("DB_USER"),
		DBPass:     os.Getenv("DB_PASS"),
		DBHost:     must("DB_HOST"),
		DBPort:     must("DB_PORT"),
		DBName:     must("DB_NAME"),
		JWTSecret:  must("JWT_SECRET"),
		AccessTTL:  time.Duration(mustInt("ACCESS_TOKEN_TTL_MIN")) * time.Minute,
		RefreshTTL: time.Duration(mustInt("REFRESH_TOKEN_TTL_DAYS")) * 24 * time.Hour,
		BcryptCost: mustInt("BCRYPT_COST"),
		RateLimit:  LoadRateLimitConfig(),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the value to an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
