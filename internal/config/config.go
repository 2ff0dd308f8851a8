package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creatorsgarden/garden/internal/ratelimit"
	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Alerts    AlertConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string // CIDR ranges allowed to set forwarding headers
}

type AuthConfig struct {
	SessionExpiry              time.Duration
	CSRFTokenTTL               time.Duration
	MaxFailedLogins            int
	LockoutDuration            time.Duration
	CleanupInterval            time.Duration
	AnomalyWindow              time.Duration
	AnomalyFailedLoginsPerIP   int
	AnomalyUnauthorizedPerUser int
	TimingDelayBase            time.Duration
	TimingDelayJitter          time.Duration
	TimingDelayOnSuccess       bool
	SecureCookies              bool
}

type RateLimitConfig struct {
	Buckets       ratelimit.Config
	SweepInterval time.Duration
}

type AlertConfig struct {
	Enabled         bool
	AWSRegion       string
	FromAddress     string
	SecurityContact string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "garden"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: parseCSV(getEnv("TRUSTED_PROXIES", "")),
		},
		Auth: AuthConfig{
			SessionExpiry:              getEnvAsDuration("SESSION_EXPIRY", 7*24*time.Hour),
			CSRFTokenTTL:               getEnvAsDuration("CSRF_TOKEN_TTL", 30*time.Minute),
			MaxFailedLogins:            getEnvAsInt("MAX_FAILED_LOGINS", 5),
			LockoutDuration:            getEnvAsDuration("LOCKOUT_DURATION", 30*time.Minute),
			CleanupInterval:            getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
			AnomalyWindow:              getEnvAsDuration("ANOMALY_WINDOW", 15*time.Minute),
			AnomalyFailedLoginsPerIP:   getEnvAsInt("ANOMALY_FAILED_LOGINS_PER_IP", 20),
			AnomalyUnauthorizedPerUser: getEnvAsInt("ANOMALY_UNAUTHORIZED_PER_USER", 10),
			TimingDelayBase:            getEnvAsDuration("TIMING_DELAY_BASE", 200*time.Millisecond),
			TimingDelayJitter:          getEnvAsDuration("TIMING_DELAY_JITTER", 100*time.Millisecond),
			TimingDelayOnSuccess:       getEnvAsBool("TIMING_DELAY_ON_SUCCESS", false),
			SecureCookies:              env == "production",
		},
		RateLimit: RateLimitConfig{
			Buckets:       loadRateLimitBuckets(env),
			SweepInterval: getEnvAsDuration("RATE_LIMIT_SWEEP_INTERVAL", 5*time.Minute),
		},
		Alerts: AlertConfig{
			Enabled:         getEnvAsBool("SECURITY_ALERTS_ENABLED", false),
			AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
			FromAddress:     getEnv("ALERT_FROM_ADDRESS", ""),
			SecurityContact: getEnv("SECURITY_CONTACT_ADDRESS", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if cfg.Alerts.Enabled && (cfg.Alerts.FromAddress == "" || cfg.Alerts.SecurityContact == "") {
		return nil, fmt.Errorf("ALERT_FROM_ADDRESS and SECURITY_CONTACT_ADDRESS are required when security alerts are enabled")
	}

	return cfg, nil
}

// loadRateLimitBuckets selects the per-environment profile and applies any
// RATE_LIMIT_<CLASS>_MAX / RATE_LIMIT_<CLASS>_WINDOW overrides, so limits
// are configuration rather than compiled branches.
func loadRateLimitBuckets(env string) ratelimit.Config {
	buckets := ratelimit.DevelopmentProfile()
	if env == "production" {
		buckets = ratelimit.ProductionProfile()
	}

	for _, class := range ratelimit.Classes() {
		prefix := "RATE_LIMIT_" + strings.ToUpper(string(class))
		bucket := buckets[class]
		bucket.MaxRequests = getEnvAsInt(prefix+"_MAX", bucket.MaxRequests)
		bucket.Window = getEnvAsDuration(prefix+"_WINDOW", bucket.Window)
		buckets[class] = bucket
	}

	return buckets
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

// parseCSV splits a comma-separated value into trimmed entries, returning nil
// for an empty input so the zero value means "feature off".
func parseCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{} // Default to no origins in production
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
