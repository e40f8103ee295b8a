package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Realtime drivers
const (
	RealtimeNone  = "none"
	RealtimeNATS  = "nats"
	RealtimeRedis = "redis"
)

// Decision policies
const (
	PolicyOwner  = "owner"
	PolicyPermit = "permit"
)

type Config struct {
	Port            string
	Environment     string
	SupabaseURL     string
	SupabaseKey     string
	SupabaseDBURL   string
	SupabaseJWKSURL string // Constructed from SupabaseURL + /auth/v1/.well-known/jwks.json
	SupabaseIssuer  string // Expected iss claim, SupabaseURL + /auth/v1
	CORSOrigins     string
	TablePrefix     string
	AutoMigrate     bool
	// Change review
	DecisionPolicy string // "owner" or "permit"
	// Realtime fan-out of change events
	RealtimeDriver    string
	NATSURL           string
	NATSSubjectPrefix string
	RedisAddr         string
	RedisChannel      string
	// Logging
	LogDir      string
	LogMaxFiles int
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	tablePrefix := getTablePrefix(env)
	supabaseURL := getEnv("SUPABASE_URL", "")

	// Construct JWKS URL from Supabase URL
	jwksURL := supabaseURL + "/auth/v1/.well-known/jwks.json"

	return &Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       env,
		SupabaseURL:       supabaseURL,
		SupabaseKey:       getEnv("SUPABASE_KEY", ""),
		SupabaseDBURL:     getEnv("SUPABASE_DB_URL", ""),
		SupabaseJWKSURL:   jwksURL,
		SupabaseIssuer:    issuer(supabaseURL),
		CORSOrigins:       getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix:       tablePrefix,
		AutoMigrate:       getEnv("AUTO_MIGRATE", "false") == "true",
		DecisionPolicy:    strings.ToLower(getEnv("DECISION_POLICY", PolicyOwner)),
		RealtimeDriver:    strings.ToLower(getEnv("REALTIME_DRIVER", RealtimeNone)),
		NATSURL:           getEnv("NATS_URL", ""),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "specboard"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisChannel:      getEnv("REDIS_CHANNEL", "specboard.changes"),
		LogDir:            getEnv("LOG_DIR", ""),
		LogMaxFiles:       getEnvInt("LOG_MAX_FILES", 10),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// Validate checks settings that only make sense together.
func (c *Config) Validate() error {
	switch c.DecisionPolicy {
	case PolicyOwner, PolicyPermit:
	default:
		return fmt.Errorf("unknown DECISION_POLICY %q (want %q or %q)", c.DecisionPolicy, PolicyOwner, PolicyPermit)
	}

	switch c.RealtimeDriver {
	case RealtimeNone:
	case RealtimeNATS:
		if c.NATSURL == "" {
			return fmt.Errorf("REALTIME_DRIVER=nats requires NATS_URL")
		}
	case RealtimeRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REALTIME_DRIVER=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown REALTIME_DRIVER %q", c.RealtimeDriver)
	}

	return nil
}

// issuer returns the iss claim Supabase Auth puts in its tokens, or "" when
// no project URL is configured.
func issuer(supabaseURL string) string {
	if supabaseURL == "" {
		return ""
	}
	return strings.TrimRight(supabaseURL, "/") + "/auth/v1"
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true" // Enable DEBUG in dev/test by default
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
