package goShopAuth

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/goShopAuth/internal/flows"
	"github.com/MrEthical07/goShopAuth/internal/idempotent"
	"github.com/MrEthical07/goShopAuth/internal/platform"
	"github.com/MrEthical07/goShopAuth/jwt"
	"github.com/MrEthical07/goShopAuth/session"
)

// Builder assembles an Engine. Methods chain; Build validates and freezes the result.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	store  session.Store

	hook       AfterAuthHook
	auditSink  AuditSink
	httpClient *http.Client
	endpoint   func(shop string) string
	now        func() time.Time

	built bool
}

// New returns a Builder starting from DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSessionStore sets the credential store. Required.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithLogger replaces Config.Logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.config.Logger = logger
	return b
}

// WithAfterAuth sets the hook run once per session token after a token exchange is stored.
func (b *Builder) WithAfterAuth(hook AfterAuthHook) *Builder {
	b.hook = hook
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithHTTPClient sets the client used for token exchange and refresh calls.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithPlatformEndpoint overrides the token endpoint of each shop, for proxies and local
// platform fakes.
func (b *Builder) WithPlatformEndpoint(endpoint func(shop string) string) *Builder {
	b.endpoint = endpoint
	return b
}

// WithClock overrides the engine clock.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms enables the AuthenticateAdmin latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. A Builder can be built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("session store required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- SESSION TOKENS --------
	validator, err := jwt.NewValidator(jwt.Config{
		APIKey:           cfg.App.APIKey,
		APISecret:        cfg.App.APISecret,
		Leeway:           cfg.SessionToken.Leeway,
		ExtraShopDomains: cloneStrings(cfg.App.ExtraShopDomains),
		Now:              now,
	})
	if err != nil {
		return nil, err
	}

	// -------- PLATFORM CLIENT --------
	client, err := platform.NewClient(platform.Config{
		APIKey:         cfg.App.APIKey,
		APISecret:      cfg.App.APISecret,
		HTTPClient:     b.httpClient,
		MaxTries:       cfg.Platform.MaxTries,
		InitialBackoff: cfg.Platform.InitialBackoff,
		Endpoint:       b.endpoint,
		Logger:         cfg.Logger,
		Now:            now,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:    cfg,
		store:     b.store,
		validator: validator,
		client:    client,
		responder: NewResponder(cfg),
		exchanges: idempotent.New[exchangeOutcome](cfg.Hooks.IdempotencyTTL),
		hook:      b.hook,
		required:  cfg.requiredScopes(),
		audit:     newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:   NewMetrics(cfg.Metrics),
		now:       now,
	}

	// -------- FLOWS --------
	logger := cfg.Logger
	engine.flows = flows.Deps{
		Exchange: flows.TokenExchangeDeps{
			Exchanger:             client,
			SessionStore:          b.store,
			UseOnlineTokens:       cfg.Auth.UseOnlineTokens,
			ExpiringOfflineTokens: cfg.Auth.ExpiringOfflineTokens,
			Timeout:               cfg.Platform.Timeout,
			Debug: func(msg, shop string) {
				logger.Debug().Str("shop", shop).Msg(msg)
			},
		},
		EnsureFresh: flows.EnsureFreshDeps{
			Refresh: flows.RefreshDeps{
				Refresher:    client,
				SessionStore: b.store,
				Now:          now,
			},
			RefreshEnabled: cfg.refreshEnabled(),
			Threshold:      cfg.Auth.FreshnessThreshold,
		},
	}

	// -------- ADMIN STRATEGY --------
	switch cfg.Auth.Distribution {
	case DistributionShopifyAdmin:
		engine.strategy = &MerchantCustomAppStrategy{engine: engine}
	default:
		engine.strategy = &TokenExchangeStrategy{engine: engine}
	}

	b.built = true

	return engine, nil
}
