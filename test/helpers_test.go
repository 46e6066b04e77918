//go:build integration
// +build integration

package test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goShopAuth "github.com/MrEthical07/goShopAuth"
	"github.com/MrEthical07/goShopAuth/jwt"
	"github.com/MrEthical07/goShopAuth/session"
)

const (
	itAPIKey    = "it-api-key"
	itAPISecret = "it-api-secret"
	itShop      = "it-shop.myshopify.com"
	itScope     = "read_products"
)

// cmdCounter is a go-redis hook counting round-trips.
type cmdCounter struct {
	commands  atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.pipelines.Add(1)
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.commands.Store(0)
	h.pipelines.Store(0)
}

func (h *cmdCounter) Commands() int64  { return h.commands.Load() }
func (h *cmdCounter) Pipelines() int64 { return h.pipelines.Load() }

// newIntegrationStore returns a RedisStore on miniredis with a command counter
// installed after a warmup PING.
func newIntegrationStore(t *testing.T) (*session.RedisStore, *miniredis.Miniredis, *cmdCounter) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}
	counter := &cmdCounter{}
	rdb.AddHook(counter)

	return session.NewRedisStore(rdb, "it"), mr, counter
}

func integrationConfig() goShopAuth.Config {
	cfg := goShopAuth.DefaultConfig()
	cfg.App.APIKey = itAPIKey
	cfg.App.APISecret = itAPISecret
	cfg.App.AppURL = "https://app.example.com"
	cfg.Auth.Scopes = []string{itScope}
	cfg.Platform.InitialBackoff = time.Millisecond
	return cfg
}

func newIntegrationEngine(t *testing.T, store session.Store, mutate func(*goShopAuth.Config), opts ...func(*goShopAuth.Builder)) *goShopAuth.Engine {
	t.Helper()
	cfg := integrationConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	b := goShopAuth.New().WithConfig(cfg).WithSessionStore(store)
	for _, opt := range opts {
		opt(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func offlineSession(shop string) *session.Session {
	return &session.Session{
		ID:          session.OfflineID(shop),
		Shop:        shop,
		Scope:       itScope,
		AccessToken: "shpat_" + shop,
	}
}

func bearerRequest(t *testing.T, shop string) *http.Request {
	t.Helper()
	token, err := jwt.Sign([]byte(itAPISecret), jwt.NewClaims(itAPIKey, shop, 0, time.Minute, time.Now()))
	if err != nil {
		t.Fatalf("sign session token: %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/api/it", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}
