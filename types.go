package goShopAuth

import (
	"context"

	"github.com/MrEthical07/goShopAuth/jwt"
	"github.com/MrEthical07/goShopAuth/session"
)

// AdminContext is the result of a successful AuthenticateAdmin.
//
// Session is the credential to call the Admin API with: the online session when online tokens
// are enabled, the offline session otherwise. SessionToken is nil for merchant custom apps.
type AdminContext struct {
	Shop         string
	Session      *session.Session
	SessionToken *jwt.SessionToken
}

// WebhookContext is a verified webhook delivery. Session is the shop's offline session, or nil
// when the shop has none (for example after uninstall).
type WebhookContext struct {
	WebhookValidation
	Payload []byte
	Session *session.Session
}

// AppProxyContext is a verified app proxy request. Session is the shop's offline session when
// one exists. LoggedInCustomerID is empty for anonymous storefront visitors.
type AppProxyContext struct {
	Shop               string
	LoggedInCustomerID string
	Session            *session.Session
}

// AfterAuthEvent describes the credentials a token exchange just stored.
type AfterAuthEvent struct {
	Shop         string
	Offline      *session.Session
	Online       *session.Session
	SessionToken *jwt.SessionToken
}

// AfterAuthHook runs once per session token after its exchange has been stored, for example to
// register webhooks or seed shop data. Concurrent requests carrying the same token share one
// execution and its error.
type AfterAuthHook func(ctx context.Context, event AfterAuthEvent) error
