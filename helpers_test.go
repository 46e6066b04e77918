package goShopAuth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goShopAuth/jwt"
	"github.com/MrEthical07/goShopAuth/session"
)

const (
	testAPIKey    = "test-api-key"
	testAPISecret = "test-api-secret"
	testAppURL    = "https://app.example.com"
	testShop      = "shop1.myshopify.io"
	testUserID    = int64(42)
	testScopes    = "write_products,read_orders"
)

var testHost = base64.RawURLEncoding.EncodeToString([]byte("admin.shopify.com/store/shop1"))

func testConfig() Config {
	cfg := defaultConfig()
	cfg.App.APIKey = testAPIKey
	cfg.App.APISecret = testAPISecret
	cfg.App.AppURL = testAppURL
	cfg.Auth.Scopes = []string{"write_products", "read_orders"}
	cfg.Platform.InitialBackoff = time.Millisecond
	return cfg
}

// fakePlatform answers token exchange and refresh grants like the platform token endpoint.
type fakePlatform struct {
	t   *testing.T
	srv *httptest.Server

	exchanges atomic.Int32
	refreshes atomic.Int32

	// exchangeStatus and refreshStatus force an error response when non-zero.
	exchangeStatus atomic.Int32
	refreshStatus  atomic.Int32

	// gate, when set, blocks token exchanges until closed.
	gate chan struct{}

	offlineExpiresIn int64
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()
	p := &fakePlatform{t: t}
	p.srv = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *fakePlatform) endpoint(shop string) string {
	return p.srv.URL + "/" + shop + "/admin/oauth/access_token"
}

func (p *fakePlatform) serve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	switch r.Form.Get("grant_type") {
	case "urn:ietf:params:oauth:grant-type:token-exchange":
		p.serveExchange(w, r)
	case "refresh_token":
		p.serveRefresh(w, r)
	default:
		p.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}
}

func (p *fakePlatform) serveExchange(w http.ResponseWriter, r *http.Request) {
	n := p.exchanges.Add(1)
	if p.gate != nil {
		<-p.gate
	}
	if status := int(p.exchangeStatus.Load()); status != 0 {
		if status == http.StatusUnauthorized || status == http.StatusBadRequest {
			p.writeJSON(w, status, map[string]string{"error": "invalid_subject_token"})
			return
		}
		w.WriteHeader(status)
		return
	}

	if r.Form.Get("requested_token_type") == "urn:shopify:params:oauth:token-type:online-access-token" {
		p.writeJSON(w, http.StatusOK, map[string]interface{}{
			"access_token":          fmt.Sprintf("online-token-%d", n),
			"scope":                 testScopes,
			"expires_in":            86399,
			"associated_user_scope": testScopes,
			"associated_user": map[string]interface{}{
				"id":             testUserID,
				"first_name":     "Ada",
				"email":          "ada@example.com",
				"email_verified": true,
				"account_owner":  true,
			},
		})
		return
	}

	body := map[string]interface{}{
		"access_token": fmt.Sprintf("offline-token-%d", n),
		"scope":        testScopes,
	}
	if p.offlineExpiresIn > 0 {
		body["expires_in"] = p.offlineExpiresIn
		body["refresh_token"] = fmt.Sprintf("refresh-token-%d", n)
		body["refresh_token_expires_in"] = 7776000
	}
	p.writeJSON(w, http.StatusOK, body)
}

func (p *fakePlatform) serveRefresh(w http.ResponseWriter, r *http.Request) {
	n := p.refreshes.Add(1)
	if status := int(p.refreshStatus.Load()); status != 0 {
		if status == http.StatusUnauthorized || status == http.StatusBadRequest {
			p.writeJSON(w, status, map[string]string{"error": "invalid_grant"})
			return
		}
		w.WriteHeader(status)
		return
	}
	p.writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":             fmt.Sprintf("refreshed-token-%d", n),
		"token_type":               "bearer",
		"expires_in":               3600,
		"refresh_token":            fmt.Sprintf("rotated-refresh-%d", n),
		"refresh_token_expires_in": 7776000,
		"scope":                    testScopes,
	})
}

func (p *fakePlatform) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		p.t.Errorf("encode response: %v", err)
	}
}

type testEngine struct {
	*Engine
	store    *session.MemoryStore
	platform *fakePlatform
}

func newTestEngine(t *testing.T, mutate func(*Config), opts ...func(*Builder)) *testEngine {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	platform := newFakePlatform(t)
	store := session.NewMemoryStore()

	b := New().
		WithConfig(cfg).
		WithSessionStore(store).
		WithHTTPClient(platform.srv.Client()).
		WithPlatformEndpoint(platform.endpoint)
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEngine{Engine: engine, store: store, platform: platform}
}

func mintSessionToken(t *testing.T, shop string, issuedAt time.Time, ttl time.Duration) string {
	t.Helper()
	token, err := jwt.Sign([]byte(testAPISecret), jwt.NewClaims(testAPIKey, shop, testUserID, ttl, issuedAt))
	if err != nil {
		t.Fatalf("sign session token: %v", err)
	}
	return token
}

func validSessionToken(t *testing.T) string {
	t.Helper()
	return mintSessionToken(t, testShop, time.Now(), time.Minute)
}

func expiredSessionToken(t *testing.T) string {
	t.Helper()
	return mintSessionToken(t, testShop, time.Now().Add(-2*time.Minute), time.Minute)
}

func fetchRequest(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func documentRequest(target string) *http.Request {
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func storedOffline(t *testing.T, store session.Store, expires *time.Time, refreshToken string) *session.Session {
	t.Helper()
	sess := &session.Session{
		ID:           session.OfflineID(testShop),
		Shop:         testShop,
		Scope:        testScopes,
		AccessToken:  "stored-access-token",
		RefreshToken: refreshToken,
		Expires:      expires,
	}
	if refreshToken != "" {
		rte := time.Now().Add(30 * 24 * time.Hour)
		sess.RefreshTokenExpires = &rte
	}
	if err := store.Store(t.Context(), sess); err != nil {
		t.Fatalf("store session: %v", err)
	}
	return sess
}

func timePtr(t time.Time) *time.Time {
	return &t
}
