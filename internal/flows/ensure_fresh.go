package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goShopAuth/session"
)

// DefaultFreshnessThreshold is how close to expiry a session may be and still be used as is.
const DefaultFreshnessThreshold = 1000 * time.Millisecond

// EnsureFreshDeps captures expiry guard dependencies.
type EnsureFreshDeps struct {
	Refresh RefreshDeps
	// RefreshEnabled is false when the distribution or configuration does not allow refresh.
	RefreshEnabled bool
	Threshold      time.Duration
}

// EnsureFreshResult reports the session to use, and whether it was refreshed.
type EnsureFreshResult struct {
	Failure   RefreshFailureKind
	Err       error
	Session   *session.Session
	Refreshed bool
}

// RunEnsureFresh returns sess unchanged while it is fresh, or when it is stale but cannot be
// refreshed (no refresh token, refresh disabled). Otherwise it refreshes and persists.
func RunEnsureFresh(ctx context.Context, sess *session.Session, deps EnsureFreshDeps) EnsureFreshResult {
	if sess == nil || sess.Expires == nil {
		return EnsureFreshResult{Session: sess}
	}

	now := time.Now
	if deps.Refresh.Now != nil {
		now = deps.Refresh.Now
	}
	threshold := deps.Threshold
	if threshold <= 0 {
		threshold = DefaultFreshnessThreshold
	}
	if !sess.IsExpired(threshold, now()) {
		return EnsureFreshResult{Session: sess}
	}
	if sess.RefreshToken == "" || !deps.RefreshEnabled {
		return EnsureFreshResult{Session: sess}
	}

	res := RunRefresh(ctx, sess, deps.Refresh)
	if res.Failure != RefreshFailureNone {
		return EnsureFreshResult{Failure: res.Failure, Err: res.Err}
	}
	return EnsureFreshResult{Session: res.Session, Refreshed: true}
}
