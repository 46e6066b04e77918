package goShopAuth

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "test defaults valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "missing api key",
			mutate: func(c *Config) {
				c.App.APIKey = "  "
			},
			wantValid: false,
		},
		{
			name: "missing api secret",
			mutate: func(c *Config) {
				c.App.APISecret = ""
			},
			wantValid: false,
		},
		{
			name: "relative app url",
			mutate: func(c *Config) {
				c.App.AppURL = "/app"
			},
			wantValid: false,
		},
		{
			name: "app url with path",
			mutate: func(c *Config) {
				c.App.AppURL = "https://app.example.com/embedded"
			},
			wantValid: false,
		},
		{
			name: "app url trailing slash",
			mutate: func(c *Config) {
				c.App.AppURL = "https://app.example.com/"
			},
			wantValid: true,
		},
		{
			name: "app url ftp",
			mutate: func(c *Config) {
				c.App.AppURL = "ftp://app.example.com"
			},
			wantValid: false,
		},
		{
			name: "unknown distribution",
			mutate: func(c *Config) {
				c.Auth.Distribution = Distribution(42)
			},
			wantValid: false,
		},
		{
			name: "shopify admin without token",
			mutate: func(c *Config) {
				c.Auth.Distribution = DistributionShopifyAdmin
			},
			wantValid: false,
		},
		{
			name: "shopify admin with token",
			mutate: func(c *Config) {
				c.Auth.Distribution = DistributionShopifyAdmin
				c.Auth.AdminAPIAccessToken = "shpat_x"
			},
			wantValid: true,
		},
		{
			name: "admin token on app store distribution",
			mutate: func(c *Config) {
				c.Auth.AdminAPIAccessToken = "shpat_x"
			},
			wantValid: false,
		},
		{
			name: "comma separated scope entry",
			mutate: func(c *Config) {
				c.Auth.Scopes = []string{"read_orders,write_orders"}
			},
			wantValid: false,
		},
		{
			name: "negative freshness threshold",
			mutate: func(c *Config) {
				c.Auth.FreshnessThreshold = -time.Second
			},
			wantValid: false,
		},
		{
			name: "zero freshness threshold",
			mutate: func(c *Config) {
				c.Auth.FreshnessThreshold = 0
			},
			wantValid: false,
		},
		{
			name: "relative login path",
			mutate: func(c *Config) {
				c.Paths.Login = "auth/login"
			},
			wantValid: false,
		},
		{
			name: "leeway too large",
			mutate: func(c *Config) {
				c.SessionToken.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "leeway at bound",
			mutate: func(c *Config) {
				c.SessionToken.Leeway = 2 * time.Minute
			},
			wantValid: true,
		},
		{
			name: "zero platform timeout",
			mutate: func(c *Config) {
				c.Platform.Timeout = 0
			},
			wantValid: false,
		},
		{
			name: "zero max tries",
			mutate: func(c *Config) {
				c.Platform.MaxTries = 0
			},
			wantValid: false,
		},
		{
			name: "too many tries",
			mutate: func(c *Config) {
				c.Platform.MaxTries = 11
			},
			wantValid: false,
		},
		{
			name: "negative proxy skew",
			mutate: func(c *Config) {
				c.AppProxy.MaxTimestampSkew = -time.Second
			},
			wantValid: false,
		},
		{
			name: "zero idempotency ttl",
			mutate: func(c *Config) {
				c.Hooks.IdempotencyTTL = 0
			},
			wantValid: false,
		},
		{
			name: "audit enabled zero buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDefaultConfigNeedsAppCredentials(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected default config without credentials to fail validation")
	}
	if cfg.Auth.FreshnessThreshold != time.Second {
		t.Fatalf("expected 1s freshness threshold, got %v", cfg.Auth.FreshnessThreshold)
	}
	if !cfg.Auth.ManagedInstall {
		t.Fatal("expected managed install by default")
	}
}

func TestParseDistribution(t *testing.T) {
	tests := map[string]Distribution{
		"":                DistributionAppStore,
		"app_store":       DistributionAppStore,
		"single_merchant": DistributionSingleMerchant,
		"shopify_admin":   DistributionShopifyAdmin,
	}
	for raw, want := range tests {
		got, err := ParseDistribution(raw)
		if err != nil {
			t.Fatalf("ParseDistribution(%q) failed: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseDistribution(%q) = %s, want %s", raw, got, want)
		}
		if raw != "" && got.String() != raw {
			t.Fatalf("String() = %q, want %q", got.String(), raw)
		}
	}

	if _, err := ParseDistribution("marketplace"); err == nil {
		t.Fatal("expected unknown distribution to fail")
	}
}

func TestRefreshEnabled(t *testing.T) {
	cfg := testConfig()
	if cfg.refreshEnabled() {
		t.Fatal("expected refresh disabled without expiring offline tokens")
	}
	cfg.Auth.ExpiringOfflineTokens = true
	if !cfg.refreshEnabled() {
		t.Fatal("expected refresh enabled")
	}
	cfg.Auth.Distribution = DistributionShopifyAdmin
	if cfg.refreshEnabled() {
		t.Fatal("expected refresh disabled for merchant custom apps")
	}
}

func TestBuilderCannotBeReused(t *testing.T) {
	b := New().WithConfig(testConfig()).WithSessionStore(newTestEngine(t, nil).store)
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuilderRequiresStore(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("expected Build without a session store to fail")
	}
}

func TestConfigCloneIsolation(t *testing.T) {
	cfg := testConfig()
	e := newTestEngine(t, nil)
	got := e.Config()
	got.Auth.Scopes[0] = "mutated"
	if e.Config().Auth.Scopes[0] != cfg.Auth.Scopes[0] {
		t.Fatal("expected Config() to return an isolated copy")
	}
}
