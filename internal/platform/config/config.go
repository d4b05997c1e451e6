// Package config builds the process configuration once at startup. Everything
// that used to be ambient (secrets, TTLs, provider credentials) lives on the
// Config struct and is passed into constructors explicitly; no package reads
// the environment after FromEnv returns.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything the server needs at startup.
type Config struct {
	Addr     string
	LogLevel string

	// Token signing.
	SigningSecret string
	SigningAlg    string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	// CookieSessions additionally delivers tokens as httponly cookies on
	// login, for the page-serving frontend. API clients use the JSON body
	// either way.
	CookieSessions bool

	GitHub GitHubConfig

	// PostgresDSN selects the PostgreSQL stores; empty means in-memory.
	PostgresDSN string

	Redis RedisConfig
}

// GitHubConfig holds the delegated-login client credentials.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Timeout bounds each outbound call to the provider.
	Timeout time.Duration
	// StateTTL bounds how long an issued authorization state stays valid.
	StateTTL time.Duration
}

// RedisConfig configures the optional Redis client used for OAuth state.
// An empty URL means Redis is not configured and memory backends are used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("TASKGATE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	secret := os.Getenv("JWT_SIGNING_KEY")
	if secret == "" {
		// Development default; must be overridden in production.
		secret = "dev-secret-key-change-in-production"
	}

	alg := os.Getenv("JWT_SIGNING_ALG")
	if alg == "" {
		alg = "HS256"
	}

	return Config{
		Addr:          addr,
		LogLevel:      os.Getenv("LOG_LEVEL"),
		SigningSecret: secret,
		SigningAlg:    alg,
		AccessTTL:     time.Duration(envInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		RefreshTTL:    time.Duration(envInt("REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour,

		CookieSessions: os.Getenv("TASKGATE_COOKIE_SESSIONS") == "true",

		GitHub: GitHubConfig{
			ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
			ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GITHUB_REDIRECT_URL"),
			Timeout:      time.Duration(envInt("GITHUB_TIMEOUT_SECONDS", 10)) * time.Second,
			StateTTL:     time.Duration(envInt("GITHUB_STATE_TTL_SECONDS", 300)) * time.Second,
		},

		PostgresDSN: os.Getenv("TASKGATE_POSTGRES_DSN"),

		Redis: RedisConfig{
			URL:          os.Getenv("TASKGATE_REDIS_URL"),
			PoolSize:     envInt("TASKGATE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("TASKGATE_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  time.Duration(envInt("TASKGATE_REDIS_DIAL_TIMEOUT_MS", 5000)) * time.Millisecond,
			ReadTimeout:  time.Duration(envInt("TASKGATE_REDIS_READ_TIMEOUT_MS", 3000)) * time.Millisecond,
			WriteTimeout: time.Duration(envInt("TASKGATE_REDIS_WRITE_TIMEOUT_MS", 3000)) * time.Millisecond,
		},
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
