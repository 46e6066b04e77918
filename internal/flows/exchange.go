package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goShopAuth/internal/platform"
	"github.com/MrEthical07/goShopAuth/session"
)

// ExchangeFailureKind classifies token exchange failures for root-level mapping.
type ExchangeFailureKind int

const (
	ExchangeFailureNone ExchangeFailureKind = iota
	ExchangeFailureOffline
	ExchangeFailureOnline
	ExchangeFailureStore
)

// ExchangeResult carries the stored sessions or failure metadata. Offline is set whenever the
// offline exchange and store succeeded, even if the online leg failed afterwards.
type ExchangeResult struct {
	Failure ExchangeFailureKind
	Err     error
	Offline *session.Session
	Online  *session.Session
}

// Exchanger performs one token exchange grant.
type Exchanger interface {
	Exchange(ctx context.Context, req platform.ExchangeRequest) (*session.Session, error)
}

// TokenExchangeDeps captures token exchange flow dependencies.
type TokenExchangeDeps struct {
	Exchanger             Exchanger
	SessionStore          SessionWriter
	UseOnlineTokens       bool
	ExpiringOfflineTokens bool
	// Timeout bounds the whole exchange once it is detached from the request context.
	Timeout time.Duration
	Debug   func(msg string, shop string)
}

// RunTokenExchange performs the offline exchange, stores it, then the online exchange when
// configured, and stores that too.
//
// The exchange is detached from ctx cancellation: an aborted request still completes and
// persists the install. Timeout bounds the detached work.
func RunTokenExchange(ctx context.Context, shop, sessionToken string, deps TokenExchangeDeps) ExchangeResult {
	ctx = context.WithoutCancel(ctx)
	if deps.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deps.Timeout)
		defer cancel()
	}

	offline, err := deps.Exchanger.Exchange(ctx, platform.ExchangeRequest{
		Shop:         shop,
		SessionToken: sessionToken,
		Kind:         platform.OfflineAccessToken,
		Expiring:     deps.ExpiringOfflineTokens,
	})
	if err != nil {
		return ExchangeResult{Failure: ExchangeFailureOffline, Err: err}
	}
	if err := deps.SessionStore.Store(ctx, offline); err != nil {
		return ExchangeResult{Failure: ExchangeFailureStore, Err: err}
	}
	if deps.Debug != nil {
		deps.Debug("offline session stored", shop)
	}

	result := ExchangeResult{Offline: offline}
	if !deps.UseOnlineTokens {
		return result
	}

	online, err := deps.Exchanger.Exchange(ctx, platform.ExchangeRequest{
		Shop:         shop,
		SessionToken: sessionToken,
		Kind:         platform.OnlineAccessToken,
	})
	if err != nil {
		result.Failure = ExchangeFailureOnline
		result.Err = err
		return result
	}
	if err := deps.SessionStore.Store(ctx, online); err != nil {
		result.Failure = ExchangeFailureStore
		result.Err = err
		return result
	}
	if deps.Debug != nil {
		deps.Debug("online session stored", shop)
	}

	result.Online = online
	return result
}
