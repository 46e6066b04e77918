package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goShopAuth/internal/platform"
	"github.com/MrEthical07/goShopAuth/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureTokenExpired
	RefreshFailureGrant
	RefreshFailureStore
)

// RefreshResult carries either the refreshed session or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	Session *session.Session
}

// Refresher performs one refresh-token grant.
type Refresher interface {
	Refresh(ctx context.Context, shop, refreshToken string) (*platform.RefreshedToken, error)
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Refresher    Refresher
	SessionStore SessionWriter
	Now          func() time.Time
}

var errRefreshTokenExpired = errors.New("refresh token expired")

// RunRefresh redeems the session's refresh token and stores the result under the same ID.
//
// The new session replaces the old one entirely: ID, Shop, IsOnline, State and
// OnlineAccessInfo are preserved, tokens and expiries are replaced, and Scope is replaced
// when the grant returns one. An expired refresh token fails without a network call.
func RunRefresh(ctx context.Context, sess *session.Session, deps RefreshDeps) RefreshResult {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	if sess.IsRefreshTokenExpired(now()) {
		return RefreshResult{Failure: RefreshFailureTokenExpired, Err: errRefreshTokenExpired}
	}

	tok, err := deps.Refresher.Refresh(ctx, sess.Shop, sess.RefreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureGrant, Err: err}
	}

	next := &session.Session{
		ID:                  sess.ID,
		Shop:                sess.Shop,
		State:               sess.State,
		IsOnline:            sess.IsOnline,
		Scope:               sess.Scope,
		AccessToken:         tok.AccessToken,
		RefreshToken:        tok.RefreshToken,
		Expires:             tok.Expires,
		RefreshTokenExpires: tok.RefreshTokenExpires,
	}
	if tok.Scope != "" {
		next.Scope = tok.Scope
	}
	if sess.OnlineAccessInfo != nil {
		info := *sess.OnlineAccessInfo
		next.OnlineAccessInfo = &info
	}

	if err := deps.SessionStore.Store(ctx, next); err != nil {
		return RefreshResult{Failure: RefreshFailureStore, Err: err}
	}
	return RefreshResult{Session: next}
}
