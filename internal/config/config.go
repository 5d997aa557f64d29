package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// CORS / public surface
	CORSOrigins    []string
	LeadRateLimit  string // ulule/limiter formatted rate, e.g. "10-M"
	PollInterval   time.Duration
	SecondRoundTTL time.Duration

	// HTTP client
	HTTPTimeout  time.Duration
	StoreTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration
	RedisURL string

	// Observability
	OTLPEndpoint string

	// Store selection: "supabase", "postgres" or "memory".
	Store       string
	DatabaseURL string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	SupabaseJWTSecret  string

	// Local sign-in, used when the store is not Supabase.
	JWTAccessTTL           time.Duration
	BootstrapAdminEmail    string
	BootstrapAdminPassword string

	// Default branding, overridden per franchise unit.
	BrandName    string
	BrandLogoURL string
	BrandIconURL string
}

// LoadDotEnv loads a .env file into the process environment.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	return godotenv.Load(paths...)
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	cfg := &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CORSOrigins:    getEnvList("CORS_ORIGINS", []string{"*"}),
		LeadRateLimit:  getEnv("LEAD_RATE_LIMIT", "10-M"),
		PollInterval:   getEnvDuration("NOTIFICATION_POLL_INTERVAL", 60*time.Second),
		SecondRoundTTL: getEnvDuration("SECOND_ROUND_ALERT_WINDOW", 48*time.Hour),

		HTTPTimeout:  getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		StoreTimeout: getEnvDuration("STORE_TIMEOUT", 30*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 0),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),
		RedisURL: getEnv("REDIS_URL", ""),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		Store:       getEnv("STORE", ""),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseJWTSecret:  getEnv("SUPABASE_JWT_SECRET", "elance-dev-secret-change-me"),

		JWTAccessTTL:           getEnvDuration("JWT_ACCESS_TTL", time.Hour),
		BootstrapAdminEmail:    getEnv("BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),

		BrandName:    getEnv("BRAND_NAME", "E-Lance Franquias"),
		BrandLogoURL: getEnv("BRAND_LOGO_URL", ""),
		BrandIconURL: getEnv("BRAND_ICON_URL", ""),
	}

	if cfg.Store == "" {
		switch {
		case cfg.DatabaseURL != "":
			cfg.Store = "postgres"
		case cfg.SupabaseURL != "":
			cfg.Store = "supabase"
		default:
			cfg.Store = "memory"
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
