package goShopAuth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/goShopAuth/internal/flows"
	"github.com/MrEthical07/goShopAuth/scopes"
)

// Config is the complete engine configuration.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	App          AppConfig
	Auth         AuthConfig
	Paths        PathsConfig
	SessionToken SessionTokenConfig
	Platform     PlatformConfig
	AppProxy     AppProxyConfig
	Hooks        HooksConfig
	Audit        AuditConfig
	Metrics      MetricsConfig

	// Logger receives structured engine logs. Tokens and secrets are never logged.
	Logger zerolog.Logger
}

/*
====================================
APP CONFIG
====================================
*/

// AppConfig holds the app credentials issued by the platform and the public app URL.
type AppConfig struct {
	APIKey    string
	APISecret string
	// AppURL is the absolute origin the app is served from, e.g. https://app.example.com.
	AppURL string
	// ExtraShopDomains widens the accepted shop domains beyond the platform defaults.
	ExtraShopDomains []string
}

/*
====================================
AUTH CONFIG
====================================
*/

// Distribution selects how the app is distributed, and with it the admin auth strategy.
type Distribution int

const (
	// DistributionAppStore is a public app installed through the app store.
	DistributionAppStore Distribution = iota
	// DistributionSingleMerchant is a custom app built for one merchant.
	DistributionSingleMerchant
	// DistributionShopifyAdmin is a merchant custom app created in the admin with a static token.
	DistributionShopifyAdmin
)

var distributionNames = map[Distribution]string{
	DistributionAppStore:       "app_store",
	DistributionSingleMerchant: "single_merchant",
	DistributionShopifyAdmin:   "shopify_admin",
}

func (d Distribution) String() string {
	if name, ok := distributionNames[d]; ok {
		return name
	}
	return "unknown"
}

// ParseDistribution accepts the snake case names returned by [Distribution.String], ignoring
// case and treating dashes as underscores.
func ParseDistribution(raw string) (Distribution, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
	if norm == "" {
		return DistributionAppStore, nil
	}
	for d, name := range distributionNames {
		if name == norm || strings.ReplaceAll(name, "_", "") == norm {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown distribution %q", raw)
}

// AuthConfig controls which credentials the engine acquires and how it keeps them fresh.
type AuthConfig struct {
	Distribution Distribution
	// Scopes the app requires. Stored sessions missing any of them are re-exchanged.
	Scopes []string
	// UseOnlineTokens adds a per-user online exchange after the offline one.
	UseOnlineTokens bool
	// ExpiringOfflineTokens requests expiring offline tokens with refresh tokens and enables
	// proactive refresh.
	ExpiringOfflineTokens bool
	// AdminAPIAccessToken is the static token of a DistributionShopifyAdmin app.
	AdminAPIAccessToken string
	// ManagedInstall sends uninstalled shops to the platform-managed install page instead of
	// Paths.Login.
	ManagedInstall bool
	// FreshnessThreshold is how close to expiry a session may be and still be used. Must be
	// positive; defaults to 1s.
	FreshnessThreshold time.Duration
}

/*
====================================
PATHS CONFIG
====================================
*/

// PathsConfig holds the app routes the recovery responses point at.
type PathsConfig struct {
	SessionToken string
	ExitIframe   string
	Login        string
}

// SessionTokenConfig tunes session token validation.
//
// SessionTokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionTokenConfig struct {
	// Leeway tolerates clock skew on exp and nbf. At most 2 minutes.
	Leeway time.Duration
}

// PlatformConfig bounds outbound calls to the token endpoint.
type PlatformConfig struct {
	// Timeout bounds a token exchange once detached from the request.
	Timeout time.Duration
	// MaxTries bounds attempts for retryable exchange failures.
	MaxTries uint
	// InitialBackoff is the first retry delay.
	InitialBackoff time.Duration
}

// AppProxyConfig tunes app proxy signature checks.
//
// AppProxyConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AppProxyConfig struct {
	// MaxTimestampSkew rejects signed proxy requests whose timestamp is further from now.
	// Zero disables the check.
	MaxTimestampSkew time.Duration
}

// HooksConfig controls the after-auth hook barrier.
type HooksConfig struct {
	// IdempotencyTTL is how long a successful hook result is replayed for the same token.
	IdempotencyTTL time.Duration
}

// AuditConfig sizes the async audit dispatcher.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles counters and the latency histogram.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration Build starts from when WithConfig is not called.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Auth: AuthConfig{
			Distribution:       DistributionAppStore,
			ManagedInstall:     true,
			FreshnessThreshold: flows.DefaultFreshnessThreshold,
		},
		Paths: PathsConfig{
			SessionToken: "/auth/session-token",
			ExitIframe:   "/auth/exit-iframe",
			Login:        "/auth/login",
		},
		SessionToken: SessionTokenConfig{
			Leeway: 10 * time.Second,
		},
		Platform: PlatformConfig{
			Timeout:        30 * time.Second,
			MaxTries:       3,
			InitialBackoff: 200 * time.Millisecond,
		},
		AppProxy: AppProxyConfig{
			MaxTimestampSkew: 90 * time.Second,
		},
		Hooks: HooksConfig{
			IdempotencyTTL: 60 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Logger: zerolog.Nop(),
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.App.ExtraShopDomains = cloneStrings(cfg.App.ExtraShopDomains)
	out.Auth.Scopes = cloneStrings(cfg.Auth.Scopes)
	return out
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// requiredScopes parses the configured scope list.
func (c *Config) requiredScopes() scopes.Set {
	return scopes.New(c.Auth.Scopes...)
}

// refreshEnabled reports whether stale sessions may be refreshed.
func (c *Config) refreshEnabled() bool {
	return c.Auth.ExpiringOfflineTokens && c.Auth.Distribution != DistributionShopifyAdmin
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// App
	if strings.TrimSpace(c.App.APIKey) == "" {
		return errors.New("App APIKey is required")
	}
	if c.App.APISecret == "" {
		return errors.New("App APISecret is required")
	}
	appURL, err := url.Parse(c.App.AppURL)
	if err != nil || appURL.Host == "" {
		return errors.New("App AppURL must be an absolute URL")
	}
	if appURL.Scheme != "https" && appURL.Scheme != "http" {
		return errors.New("App AppURL must use http or https")
	}
	if appURL.Path != "" && appURL.Path != "/" {
		return errors.New("App AppURL must not carry a path")
	}

	// Auth
	if _, ok := distributionNames[c.Auth.Distribution]; !ok {
		return errors.New("unsupported Auth Distribution")
	}
	if c.Auth.Distribution == DistributionShopifyAdmin && c.Auth.AdminAPIAccessToken == "" {
		return errors.New("Auth AdminAPIAccessToken is required for the shopify_admin distribution")
	}
	if c.Auth.Distribution != DistributionShopifyAdmin && c.Auth.AdminAPIAccessToken != "" {
		return errors.New("Auth AdminAPIAccessToken is only valid for the shopify_admin distribution")
	}
	for _, s := range c.Auth.Scopes {
		if strings.TrimSpace(s) == "" || strings.ContainsAny(s, ", ") {
			return fmt.Errorf("Auth Scopes contains invalid scope %q", s)
		}
	}
	if c.Auth.FreshnessThreshold <= 0 {
		return errors.New("Auth FreshnessThreshold must be > 0")
	}

	// Paths
	for name, p := range map[string]string{
		"SessionToken": c.Paths.SessionToken,
		"ExitIframe":   c.Paths.ExitIframe,
		"Login":        c.Paths.Login,
	} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("Paths %s must start with /", name)
		}
	}

	// Session token
	if c.SessionToken.Leeway < 0 || c.SessionToken.Leeway > 2*time.Minute {
		return errors.New("SessionToken Leeway must be between 0 and 2m")
	}

	// Platform
	if c.Platform.Timeout <= 0 {
		return errors.New("Platform Timeout must be > 0")
	}
	if c.Platform.MaxTries == 0 || c.Platform.MaxTries > 10 {
		return errors.New("Platform MaxTries must be between 1 and 10")
	}
	if c.Platform.InitialBackoff < 0 {
		return errors.New("Platform InitialBackoff must be >= 0")
	}

	// App proxy
	if c.AppProxy.MaxTimestampSkew < 0 {
		return errors.New("AppProxy MaxTimestampSkew must be >= 0")
	}

	// Hooks
	if c.Hooks.IdempotencyTTL <= 0 {
		return errors.New("Hooks IdempotencyTTL must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
