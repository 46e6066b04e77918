package goShopAuth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/goShopAuth/internal/flows"
	"github.com/MrEthical07/goShopAuth/internal/platform"
	"github.com/MrEthical07/goShopAuth/internal/shopdomain"
	"github.com/MrEthical07/goShopAuth/jwt"
	"github.com/MrEthical07/goShopAuth/scopes"
	"github.com/MrEthical07/goShopAuth/session"
)

// AdminStrategy authenticates requests to the app's admin surface. Build selects one
// implementation from Config.Auth.Distribution.
type AdminStrategy interface {
	Authenticate(r *http.Request) (*AdminContext, error)
}

// TokenExchangeStrategy authenticates embedded requests with a session token, acquiring
// credentials by token exchange when the shop has none usable.
type TokenExchangeStrategy struct {
	engine *Engine
}

// MerchantCustomAppStrategy authenticates with the static Admin API token of a merchant
// custom app. It never exchanges or refreshes.
type MerchantCustomAppStrategy struct {
	engine *Engine
}

// exchangeOutcome is what the exchange barrier shares between callers of one session token.
type exchangeOutcome struct {
	Offline *session.Session
	Online  *session.Session
}

// AuthenticateAdmin authenticates an admin request with the configured strategy.
//
// A returned *RecoveryDecision (as error) must be written to the client verbatim. Any other
// error wraps ErrTransientFailure or ErrHookFailed and should surface as a 500.
func (e *Engine) AuthenticateAdmin(r *http.Request) (*AdminContext, error) {
	if e == nil || e.strategy == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	admin, err := e.strategy.Authenticate(r)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricAuthenticateAdminLatency, time.Since(start))
	}
	if err == nil {
		e.metricInc(MetricAdminAuthenticated)
	}
	return admin, err
}

func sessionTokenFrom(r *http.Request) (string, bool) {
	if token, ok := bearerToken(r); ok {
		return token, true
	}
	token := r.URL.Query().Get(QueryIDToken)
	return token, token != ""
}

// Authenticate implements AdminStrategy.
func (s *TokenExchangeStrategy) Authenticate(r *http.Request) (*AdminContext, error) {
	e := s.engine
	ctx := r.Context()

	raw, ok := sessionTokenFrom(r)
	if !ok {
		return nil, s.missingToken(r)
	}

	tok, err := e.validator.Validate(raw)
	if err != nil {
		e.metricInc(MetricSessionTokenInvalid)
		e.emitAudit(ctx, auditEventSessionTokenInvalid, false, "", "", err, nil)
		return nil, s.fail(r, "", fmt.Errorf("%w: %w", ErrInvalidJWT, err))
	}

	// dest is authoritative, but a shop parameter naming another shop means the token was
	// lifted from a different context.
	if qs := r.URL.Query().Get("shop"); qs != "" {
		if shop, ok := shopdomain.Sanitize(qs, e.config.App.ExtraShopDomains...); !ok || shop != tok.Shop {
			e.metricInc(MetricSessionTokenInvalid)
			return nil, s.fail(r, tok.Shop, fmt.Errorf("%w: dest does not match shop parameter", ErrInvalidJWT))
		}
	}

	shop := tok.Shop
	id := session.OfflineID(shop)
	if e.config.Auth.UseOnlineTokens {
		id = session.OnlineID(shop, tok.UserID())
	}

	sess, err := e.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransientFailure, err)
	}

	if e.needsExchange(sess) {
		outcome, err := e.exchange(ctx, shop, raw, tok)
		if err != nil {
			if errors.Is(err, ErrInvalidJWT) {
				return nil, s.fail(r, shop, err)
			}
			return nil, err
		}
		sess = outcome.Offline
		if e.config.Auth.UseOnlineTokens {
			sess = outcome.Online
		}
	}

	sess, err = e.EnsureFresh(ctx, sess)
	if err != nil {
		if errors.Is(err, ErrInvalidJWT) {
			return nil, e.decide(r, Failure{Err: err, Shop: shop, CredentialExisted: true})
		}
		return nil, err
	}

	return &AdminContext{Shop: shop, Session: sess, SessionToken: tok}, nil
}

// missingToken answers a request without any session token. A top-level load for an installed
// shop bounces to acquire one; for an unknown shop it starts the install.
func (s *TokenExchangeStrategy) missingToken(r *http.Request) error {
	e := s.engine
	f := Failure{Err: fmt.Errorf("%w: session token missing", ErrInvalidJWT), TokenMissing: true}

	existed, err := s.credentialExisted(r, "")
	if err != nil {
		return err
	}
	f.CredentialExisted = existed
	if !existed {
		f.Err = ErrSessionNotFound
	}
	return e.decide(r, f)
}

// fail turns a rejected token or exchange into the recovery decision for r.
func (s *TokenExchangeStrategy) fail(r *http.Request, shop string, cause error) error {
	existed, err := s.credentialExisted(r, shop)
	if err != nil {
		return err
	}
	return s.engine.decide(r, Failure{Err: cause, Shop: shop, CredentialExisted: existed})
}

// credentialExisted reports whether the shop behind a failed top-level load has a stored offline
// session. shop falls back to the sanitized shop parameter. Fetches and iframe loads always
// count as installed: they retry with a fresh token rather than start an install.
func (s *TokenExchangeStrategy) credentialExisted(r *http.Request, shop string) (bool, error) {
	if DetectRequestShape(r) != DocumentLoadTopLevel {
		return true, nil
	}
	e := s.engine
	if shop == "" {
		sanitized, ok := shopdomain.Sanitize(r.URL.Query().Get("shop"), e.config.App.ExtraShopDomains...)
		if !ok {
			return false, nil
		}
		shop = sanitized
	}
	existing, err := e.store.Load(r.Context(), session.OfflineID(shop))
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrTransientFailure, err)
	}
	return existing != nil, nil
}

// needsExchange reports whether sess cannot serve the request: absent, missing a required
// scope, or stale without a way to refresh it.
func (e *Engine) needsExchange(sess *session.Session) bool {
	if sess == nil || sess.AccessToken == "" {
		return true
	}
	if !scopes.Parse(sess.Scope).Has(e.required) {
		return true
	}
	now := e.now()
	if !sess.IsExpired(e.config.Auth.FreshnessThreshold, now) {
		return false
	}
	refreshable := e.config.refreshEnabled() && !sess.IsOnline && !sess.IsRefreshTokenExpired(now)
	return !refreshable
}

// exchange runs token exchange, store and after-auth hook once per session token. Concurrent
// callers with the same token wait for and share one execution; a successful execution is
// replayed for Hooks.IdempotencyTTL.
func (e *Engine) exchange(ctx context.Context, shop, raw string, tok *jwt.SessionToken) (exchangeOutcome, error) {
	key := tok.ID
	if key == "" {
		key = raw
	}

	outcome, shared, err := e.exchanges.Do(key, func() (exchangeOutcome, error) {
		res := flows.RunTokenExchange(ctx, shop, raw, e.flows.Exchange)
		if res.Failure != flows.ExchangeFailureNone {
			e.metricInc(MetricTokenExchangeFailure)
			mapped := mapExchangeError(res)
			e.config.Logger.Warn().Str("shop", shop).Err(mapped).Msg("token exchange failed")
			e.emitAudit(ctx, auditEventTokenExchangeFailure, false, shop, "", mapped, nil)
			return exchangeOutcome{}, mapped
		}

		e.metricInc(MetricTokenExchangeSuccess)
		out := exchangeOutcome{Offline: res.Offline, Online: res.Online}
		e.emitAudit(ctx, auditEventTokenExchangeSuccess, true, shop, res.Offline.ID, nil, func() map[string]string {
			return map[string]string{"online": fmt.Sprint(res.Online != nil)}
		})

		if e.hook == nil {
			return out, nil
		}
		e.metricInc(MetricHookRun)
		hookCtx := context.WithoutCancel(ctx)
		if err := e.hook(hookCtx, AfterAuthEvent{
			Shop:         shop,
			Offline:      res.Offline.Clone(),
			Online:       res.Online.Clone(),
			SessionToken: tok,
		}); err != nil {
			e.metricInc(MetricHookFailure)
			wrapped := fmt.Errorf("%w: %w", ErrHookFailed, err)
			e.config.Logger.Error().Str("shop", shop).Err(err).Msg("after auth hook failed")
			e.emitAudit(ctx, auditEventAfterAuthHookFailure, false, shop, res.Offline.ID, wrapped, nil)
			return out, wrapped
		}
		return out, nil
	})
	if shared {
		e.config.Logger.Debug().Str("shop", shop).Msg("token exchange coalesced")
	}
	if err != nil {
		return exchangeOutcome{}, err
	}
	return exchangeOutcome{Offline: outcome.Offline.Clone(), Online: outcome.Online.Clone()}, nil
}

func mapExchangeError(res flows.ExchangeResult) error {
	switch {
	case res.Failure == flows.ExchangeFailureStore:
		return fmt.Errorf("%w: store session: %w", ErrTransientFailure, res.Err)
	case errors.Is(res.Err, platform.ErrSubjectTokenInvalid):
		return fmt.Errorf("%w: %w", ErrInvalidJWT, res.Err)
	default:
		return fmt.Errorf("%w: %w", ErrTransientFailure, res.Err)
	}
}

// Authenticate implements AdminStrategy.
func (s *MerchantCustomAppStrategy) Authenticate(r *http.Request) (*AdminContext, error) {
	e := s.engine

	raw := r.URL.Query().Get("shop")
	shop, ok := shopdomain.Sanitize(raw, e.config.App.ExtraShopDomains...)
	if !ok {
		cause := ErrInvalidShop
		if raw == "" {
			cause = ErrMissingShop
		}
		e.metricInc(MetricRecoveryBadRequest)
		return nil, &RecoveryDecision{Kind: RecoveryBadRequest, Status: http.StatusBadRequest, Cause: cause}
	}

	return &AdminContext{
		Shop: shop,
		Session: &session.Session{
			ID:          session.OfflineID(shop),
			Shop:        shop,
			Scope:       e.required.String(),
			AccessToken: e.config.Auth.AdminAPIAccessToken,
		},
	}, nil
}

var (
	_ AdminStrategy = (*TokenExchangeStrategy)(nil)
	_ AdminStrategy = (*MerchantCustomAppStrategy)(nil)
)
