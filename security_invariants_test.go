package goShopAuth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goShopAuth/jwt"
	"github.com/MrEthical07/goShopAuth/session"
)

func TestSecurityInvariantTokenForAnotherAppRejected(t *testing.T) {
	e := newTestEngine(t, nil)

	token, err := jwt.Sign([]byte(testAPISecret), jwt.NewClaims("other-app", testShop, testUserID, time.Minute, time.Now()))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	_, err = e.AuthenticateAdmin(fetchRequest(token))
	if !errors.Is(err, ErrInvalidJWT) {
		t.Fatalf("expected ErrInvalidJWT, got %v", err)
	}
	if e.platform.exchanges.Load() != 0 {
		t.Fatal("expected no token exchange for a token minted for another app")
	}
}

func TestSecurityInvariantTokenForForeignDomainRejected(t *testing.T) {
	e := newTestEngine(t, nil)

	token, err := jwt.Sign([]byte(testAPISecret), jwt.NewClaims(testAPIKey, "shop1.example.com", testUserID, time.Minute, time.Now()))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := e.AuthenticateAdmin(fetchRequest(token)); !errors.Is(err, ErrInvalidJWT) {
		t.Fatalf("expected ErrInvalidJWT, got %v", err)
	}
}

func TestSecurityInvariantRedirectsStayOnTrustedHosts(t *testing.T) {
	e := newTestEngine(t, nil)

	targets := []string{
		"/app?shop=" + url.QueryEscape("https://evil.example.com"),
		"/app?embedded=1&shop=" + url.QueryEscape("evil.example.com/.myshopify.com"),
		"/app?shop=" + testShop + "&host=" + url.QueryEscape("aHR0cHM6Ly9ldmlsLmV4YW1wbGUuY29t"),
		"/app?embedded=1&shop=" + testShop + "&id_token=garbage",
	}
	for _, target := range targets {
		_, err := e.AuthenticateAdmin(documentRequest(target))
		var d *RecoveryDecision
		if !errors.As(err, &d) {
			t.Fatalf("%s: expected RecoveryDecision, got %v", target, err)
		}
		if d.Location == "" {
			continue
		}
		loc, err := url.Parse(d.Location)
		if err != nil {
			t.Fatalf("%s: bad location %q", target, d.Location)
		}
		switch loc.Host {
		case "app.example.com", "admin.shopify.com":
		default:
			t.Fatalf("%s: redirect left trusted hosts: %s", target, d.Location)
		}
		if strings.Contains(d.Location, "evil.example.com") {
			t.Fatalf("%s: untrusted value reflected into redirect: %s", target, d.Location)
		}
	}
}

func TestSecurityInvariantFailedExchangeKeepsStoredSession(t *testing.T) {
	e := newTestEngine(t, nil)
	require := func(cond bool, msg string) {
		t.Helper()
		if !cond {
			t.Fatal(msg)
		}
	}

	if err := e.store.Store(t.Context(), &session.Session{
		ID:          session.OfflineID(testShop),
		Shop:        testShop,
		Scope:       "read_orders",
		AccessToken: "narrow-token",
	}); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	e.platform.exchangeStatus.Store(http.StatusInternalServerError)

	_, err := e.AuthenticateAdmin(fetchRequest(validSessionToken(t)))
	require(errors.Is(err, ErrTransientFailure), "expected ErrTransientFailure")

	stored, err := e.store.Load(t.Context(), session.OfflineID(testShop))
	require(err == nil && stored != nil, "expected stored session to survive")
	require(stored.AccessToken == "narrow-token", "expected stored session to be unchanged")
}

func TestSecurityInvariantForgedWebhookNeverLoadsSession(t *testing.T) {
	e := newTestEngine(t, nil)
	storedOffline(t, e.store, nil, "")

	headers := signedLegacyHeaders(webhookBody)
	headers.Set("X-Shopify-Hmac-Sha256", "bm90LWEtdmFsaWQtc2lnbmF0dXJl")

	hook, err := e.AuthenticateWebhook(t.Context(), webhookBody, headers)
	if hook != nil {
		t.Fatal("expected no webhook context for a forged delivery")
	}
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestSecurityReportReflectsPosture(t *testing.T) {
	e := newTestEngine(t, func(cfg *Config) {
		cfg.Auth.UseOnlineTokens = true
		cfg.Auth.ExpiringOfflineTokens = true
		cfg.Audit.Enabled = true
	})

	report := e.SecurityReport()
	if report.Distribution != "app_store" || report.AdminStrategy != "token_exchange" {
		t.Fatalf("unexpected strategy in report: %+v", report)
	}
	if !report.OnlineTokens || !report.RefreshEnabled || !report.AuditEnabled {
		t.Fatalf("expected online tokens, refresh and audit in report: %+v", report)
	}
	if report.MetricsEnabled {
		t.Fatal("expected metrics disabled in report")
	}
	if !report.AppProxySkewEnforced || report.AppProxyTimestampSkew != 90*time.Second {
		t.Fatalf("unexpected app proxy posture: %+v", report)
	}
	if strings.Join(report.RequiredScopes, ",") != "read_orders,write_products" {
		t.Fatalf("unexpected scopes %v", report.RequiredScopes)
	}

	custom := newTestEngine(t, func(cfg *Config) {
		cfg.Auth.Distribution = DistributionShopifyAdmin
		cfg.Auth.AdminAPIAccessToken = "shpat_static"
		cfg.Auth.ExpiringOfflineTokens = true
	})
	report = custom.SecurityReport()
	if report.AdminStrategy != "merchant_custom_app" || report.RefreshEnabled {
		t.Fatalf("unexpected merchant custom app posture: %+v", report)
	}
	for _, field := range []string{"shpat_static", testAPISecret} {
		if strings.Contains(strings.Join(report.RequiredScopes, ","), field) {
			t.Fatal("secret leaked into report")
		}
	}
}
