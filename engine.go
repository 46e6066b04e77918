package goShopAuth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/goShopAuth/internal/flows"
	"github.com/MrEthical07/goShopAuth/internal/idempotent"
	"github.com/MrEthical07/goShopAuth/internal/platform"
	"github.com/MrEthical07/goShopAuth/internal/shopdomain"
	"github.com/MrEthical07/goShopAuth/jwt"
	"github.com/MrEthical07/goShopAuth/scopes"
	"github.com/MrEthical07/goShopAuth/session"
)

// Engine authenticates admin, webhook and app proxy requests and keeps stored credentials
// fresh. Build it with New().
//
// Engine instances are safe for concurrent use. The only state shared between requests is the
// injected session.Store, the exchange barrier, metrics counters and the audit buffer.
type Engine struct {
	config    Config
	store     session.Store
	validator *jwt.Validator
	client    *platform.Client
	responder *Responder
	strategy  AdminStrategy
	flows     flows.Deps
	exchanges *idempotent.Barrier[exchangeOutcome]
	hook      AfterAuthHook
	required  scopes.Set
	audit     *auditDispatcher
	metrics   *Metrics
	now       func() time.Time
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Responder returns the recovery policy the engine answers failures with.
func (e *Engine) Responder() *Responder {
	return e.responder
}

// Close flushes pending audit events. Safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

var recoveryMetrics = [...]MetricID{
	RecoveryRedirectToBouncePage:        MetricRecoveryBouncePage,
	RecoveryRedirectToExitIframe:        MetricRecoveryExitIframe,
	RecoveryRedirectToInstall:           MetricRecoveryInstall,
	RecoveryUnauthorizedWithRetryHeader: MetricRecoveryRetryHeader,
	RecoveryUnauthorizedWithReauthURL:   MetricRecoveryReauthURL,
	RecoveryBadRequest:                  MetricRecoveryBadRequest,
}

// decide runs the recovery policy and records the decision.
func (e *Engine) decide(r *http.Request, f Failure) *RecoveryDecision {
	d := e.responder.Decide(r, f)
	if int(d.Kind) < len(recoveryMetrics) {
		e.metricInc(recoveryMetrics[d.Kind])
	}
	e.emitAudit(r.Context(), auditEventRecoveryDecision, false, f.Shop, "", d.Cause, func() map[string]string {
		return map[string]string{
			"decision": d.Kind.String(),
			"shape":    DetectRequestShape(r).String(),
		}
	})
	return d
}

// EnsureFresh returns sess when it is not within the freshness threshold of expiring. A stale
// session is refreshed and stored under the same ID when refresh is enabled and it carries a
// refresh token; otherwise it is returned unchanged.
//
// A rejected or expired refresh token yields ErrInvalidJWT. Network and store failures yield
// ErrTransientFailure and leave the stored session untouched.
func (e *Engine) EnsureFresh(ctx context.Context, sess *session.Session) (*session.Session, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}

	res := flows.RunEnsureFresh(ctx, sess, e.flows.EnsureFresh)
	if res.Failure == flows.RefreshFailureNone {
		if res.Refreshed {
			e.metricInc(MetricRefreshSuccess)
			e.config.Logger.Debug().Str("shop", sess.Shop).Str("session_id", sess.ID).Msg("session refreshed")
			e.emitAudit(ctx, auditEventRefreshSuccess, true, sess.Shop, sess.ID, nil, nil)
		}
		return res.Session, nil
	}

	var err error
	switch {
	case res.Failure == flows.RefreshFailureTokenExpired:
		err = fmt.Errorf("%w: %w", ErrInvalidJWT, res.Err)
	case res.Failure == flows.RefreshFailureGrant && errors.Is(res.Err, platform.ErrSubjectTokenInvalid):
		err = fmt.Errorf("%w: %w", ErrInvalidJWT, res.Err)
	default:
		err = fmt.Errorf("%w: %w", ErrTransientFailure, res.Err)
	}

	e.metricInc(MetricRefreshFailure)
	e.config.Logger.Warn().Str("shop", sess.Shop).Str("session_id", sess.ID).Err(err).Msg("session refresh failed")
	e.emitAudit(ctx, auditEventRefreshFailure, false, sess.Shop, sess.ID, err, nil)
	return nil, err
}

// EnsureFreshOffline loads the shop's offline session and runs EnsureFresh on it. It returns
// (nil, nil) when the shop has no offline session.
func (e *Engine) EnsureFreshOffline(ctx context.Context, shop string) (*session.Session, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	canonical, ok := shopdomain.Sanitize(shop, e.config.App.ExtraShopDomains...)
	if !ok {
		if shop == "" {
			return nil, ErrMissingShop
		}
		return nil, ErrInvalidShop
	}

	sess, err := e.store.Load(ctx, session.OfflineID(canonical))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransientFailure, err)
	}
	if sess == nil {
		return nil, nil
	}
	return e.EnsureFresh(ctx, sess)
}

// Recover answers r after the Admin API rejected failed with 401. The rejected session is
// deleted so the next request acquires a new credential, and the returned decision re-enters
// the auth flow in the way r's shape allows.
func (e *Engine) Recover(r *http.Request, failed *session.Session) *RecoveryDecision {
	f := Failure{
		Err:               fmt.Errorf("%w: access token rejected", ErrInvalidJWT),
		CredentialExisted: true,
	}
	if failed != nil {
		f.Shop = failed.Shop
		if err := e.store.Delete(r.Context(), failed.ID); err != nil {
			e.config.Logger.Warn().Str("shop", failed.Shop).Str("session_id", failed.ID).Err(err).Msg("delete rejected session")
		}
	}
	return e.decide(r, f)
}
