package config

import (
	"os"
	"testing"
	"time"

	"github.com/creatorsgarden/garden/internal/ratelimit"
)

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	tests := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"SessionExpiry", cfg.Auth.SessionExpiry, 7 * 24 * time.Hour},
		{"CSRFTokenTTL", cfg.Auth.CSRFTokenTTL, 30 * time.Minute},
		{"LockoutDuration", cfg.Auth.LockoutDuration, 30 * time.Minute},
		{"AnomalyWindow", cfg.Auth.AnomalyWindow, 15 * time.Minute},
		{"TimingDelayBase", cfg.Auth.TimingDelayBase, 200 * time.Millisecond},
		{"TimingDelayJitter", cfg.Auth.TimingDelayJitter, 100 * time.Millisecond},
	}

	for _, tt := range tests {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}

	if cfg.Auth.MaxFailedLogins != 5 {
		t.Errorf("MaxFailedLogins: got %d, want 5", cfg.Auth.MaxFailedLogins)
	}
}

func TestLoad_MissingDBPassword(t *testing.T) {
	os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error for missing DB_PASSWORD")
	}
}

func TestLoad_RateLimitProfileByEnv(t *testing.T) {
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("ENV", "production")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	login := cfg.RateLimit.Buckets[ratelimit.ClassLogin]
	if login.MaxRequests != 10 || login.Window != 15*time.Minute {
		t.Errorf("production login bucket: got %+v, want {10 15m}", login)
	}
}

func TestLoad_RateLimitBucketOverride(t *testing.T) {
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("ENV", "production")
	os.Setenv("RATE_LIMIT_LOGIN_MAX", "3")
	os.Setenv("RATE_LIMIT_LOGIN_WINDOW", "5m")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	login := cfg.RateLimit.Buckets[ratelimit.ClassLogin]
	if login.MaxRequests != 3 {
		t.Errorf("overridden login max: got %d, want 3", login.MaxRequests)
	}
	if login.Window != 5*time.Minute {
		t.Errorf("overridden login window: got %v, want 5m", login.Window)
	}

	// Other buckets keep profile defaults
	register := cfg.RateLimit.Buckets[ratelimit.ClassRegister]
	if register.MaxRequests != 5 {
		t.Errorf("register max: got %d, want 5", register.MaxRequests)
	}
}

func TestLoad_AlertsRequireAddresses(t *testing.T) {
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("SECURITY_ALERTS_ENABLED", "true")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error when alerts enabled without addresses")
	}
}

func TestLoad_TrustedProxies(t *testing.T) {
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.1")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	want := []string{"10.0.0.0/8", "192.168.1.1"}
	if len(cfg.Server.TrustedProxies) != len(want) {
		t.Fatalf("TrustedProxies: got %v, want %v", cfg.Server.TrustedProxies, want)
	}
	for i := range want {
		if cfg.Server.TrustedProxies[i] != want[i] {
			t.Errorf("TrustedProxies[%d]: got %q, want %q", i, cfg.Server.TrustedProxies[i], want[i])
		}
	}
}

func TestLoad_TrustedProxiesDefaultEmpty(t *testing.T) {
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if len(cfg.Server.TrustedProxies) != 0 {
		t.Errorf("TrustedProxies: got %v, want empty", cfg.Server.TrustedProxies)
	}
}
