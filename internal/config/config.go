// Package config loads service configuration from the environment
// once at startup. Components receive the resulting struct explicitly
// instead of reading environment variables per call.
package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults applied when the environment does not override them.
const (
	DefaultAddr         = ":8080"
	DefaultTokenTTL     = 24 * time.Hour
	DefaultLockThresh   = 5
	DefaultLockWindow   = 30 * time.Minute
	defaultTokenTTLHrs  = 24
	defaultLockWindMins = 30
)

// Config carries everything the service needs at construction time.
type Config struct {
	Addr        string
	DatabaseURL string

	// JWTSecret signs every token. An empty value is a startup-fatal
	// condition enforced by the token service constructor.
	JWTSecret string
	TokenTTL  time.Duration

	// BcryptCost is the password hashing work factor; zero selects
	// the library default.
	BcryptCost int

	LockThreshold int
	LockWindow    time.Duration
}

// Load reads the configuration from the environment.
func Load() Config {
	return Config{
		Addr:          envString("ADDR", DefaultAddr),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenTTL:      time.Duration(envInt("JWT_EXPIRATION_HOURS", defaultTokenTTLHrs)) * time.Hour,
		BcryptCost:    envInt("BCRYPT_COST", 0),
		LockThreshold: envInt("AUTH_LOCK_THRESHOLD", DefaultLockThresh),
		LockWindow:    time.Duration(envInt("AUTH_LOCK_WINDOW_MINUTES", defaultLockWindMins)) * time.Minute,
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
