package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goShopAuth "github.com/MrEthical07/goShopAuth"
	"github.com/MrEthical07/goShopAuth/jwt"
	"github.com/MrEthical07/goShopAuth/session"
	"github.com/MrEthical07/goShopAuth/signature"
)

const (
	testAPIKey    = "mw-api-key"
	testAPISecret = "mw-api-secret"
	testShop      = "shop1.myshopify.com"
)

func newEngine(t *testing.T) *goShopAuth.Engine {
	t.Helper()

	cfg := goShopAuth.DefaultConfig()
	cfg.App.APIKey = testAPIKey
	cfg.App.APISecret = testAPISecret
	cfg.App.AppURL = "https://app.example.com"
	cfg.Auth.Scopes = []string{"read_products"}

	store := session.NewMemoryStore()
	require.NoError(t, store.Store(context.Background(), &session.Session{
		ID:          session.OfflineID(testShop),
		Shop:        testShop,
		Scope:       "read_products",
		AccessToken: "stored-token",
	}))

	engine, err := goShopAuth.New().WithConfig(cfg).WithSessionStore(store).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine
}

func okHandler(t *testing.T, check func(r *http.Request)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAdminInjectsContext(t *testing.T) {
	engine := newEngine(t)
	token, err := jwt.Sign([]byte(testAPISecret), jwt.NewClaims(testAPIKey, testShop, 7, time.Minute, time.Now()))
	require.NoError(t, err)

	var got *goShopAuth.AdminContext
	h := Admin(engine)(okHandler(t, func(r *http.Request) {
		got, _ = goShopAuth.AdminContextFrom(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, testShop, got.Shop)
	assert.Equal(t, "stored-token", got.Session.AccessToken)
}

func TestAdminWritesRecoveryDecision(t *testing.T) {
	engine := newEngine(t)
	h := Admin(engine)(okHandler(t, func(*http.Request) {
		t.Fatal("handler must not run")
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	r.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "1", rec.Header().Get(goShopAuth.HeaderRetryInvalidSessionRequest))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminNilEngine(t *testing.T) {
	rec := httptest.NewRecorder()
	Admin(nil)(okHandler(t, nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func webhookRequest(body []byte, sign bool) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/webhooks", bytes.NewReader(body))
	if sign {
		r.Header.Set("X-Shopify-Hmac-Sha256", signature.Sign([]byte(testAPISecret), body, signature.Base64))
	}
	r.Header.Set("X-Shopify-Topic", "app/uninstalled")
	r.Header.Set("X-Shopify-API-Version", "2025-07")
	r.Header.Set("X-Shopify-Shop-Domain", testShop)
	r.Header.Set("X-Shopify-Webhook-Id", "wh-1")
	return r
}

func TestWebhookVerifiesAndRestoresBody(t *testing.T) {
	engine := newEngine(t)
	body := []byte(`{"id":1}`)

	h := Webhook(engine)(okHandler(t, func(r *http.Request) {
		hook, ok := goShopAuth.WebhookContextFrom(r.Context())
		require.True(t, ok)
		assert.Equal(t, "APP_UNINSTALLED", hook.Topic)
		assert.NotNil(t, hook.Session)

		restored, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, body, restored)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, webhookRequest(body, true))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestWebhookRejections(t *testing.T) {
	engine := newEngine(t)
	h := Webhook(engine)(okHandler(t, func(*http.Request) {
		t.Fatal("handler must not run")
	}))

	body := []byte(`{"id":1}`)
	forged := webhookRequest(body, false)
	forged.Header.Set("X-Shopify-Hmac-Sha256", signature.Sign([]byte("other-secret"), body, signature.Base64))

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{name: "forged", req: forged, want: http.StatusUnauthorized},
		{name: "missing hmac", req: webhookRequest(body, false), want: http.StatusBadRequest},
		{name: "empty body", req: webhookRequest(nil, true), want: http.StatusBadRequest},
		{name: "too large", req: webhookRequest(bytes.Repeat([]byte("a"), MaxWebhookBodyBytes+1), true), want: http.StatusRequestEntityTooLarge},
		{name: "get", req: httptest.NewRequest(http.MethodGet, "/webhooks", nil), want: http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAppProxy(t *testing.T) {
	engine := newEngine(t)
	h := AppProxy(engine)(okHandler(t, func(r *http.Request) {
		proxy, ok := goShopAuth.AppProxyContextFrom(r.Context())
		require.True(t, ok)
		assert.Equal(t, testShop, proxy.Shop)
		assert.Equal(t, "99", proxy.LoggedInCustomerID)
	}))

	signed := signature.SignAppProxy([]byte(testAPISecret), url.Values{
		"shop":                  {testShop},
		"path_prefix":           {"/apps/x"},
		"timestamp":             {strconv.FormatInt(time.Now().Unix(), 10)},
		"logged_in_customer_id": {"99"},
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/apps/x?"+signed.Encode(), nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	signed.Set("logged_in_customer_id", "100")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/apps/x?"+signed.Encode(), nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/apps/x?shop="+testShop, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBouncePage(t *testing.T) {
	rec := httptest.NewRecorder()
	BouncePage(testAPIKey).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/session-token", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), AppBridgeScript)
	assert.Contains(t, rec.Body.String(), `data-api-key="mw-api-key"`)
}

func TestExitIframe(t *testing.T) {
	engine := newEngine(t)
	h := ExitIframe(engine)

	allowed := "https://admin.shopify.com/store/shop1/oauth/install?client_id=" + testAPIKey
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/exit-iframe?exitIframe="+url.QueryEscape(allowed), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "window.open(")
	assert.Contains(t, rec.Body.String(), "admin.shopify.com")

	for _, dest := range []string{"", "https://evil.example.com/", "javascript:alert(1)", "//evil.example.com", "/\\evil.example.com", "/\\/evil.example.com"} {
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/exit-iframe?exitIframe="+url.QueryEscape(dest), nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, dest)
		assert.False(t, strings.Contains(rec.Body.String(), "evil.example.com"), dest)
	}
}
