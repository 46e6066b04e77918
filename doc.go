// Package goShopAuth authenticates requests to an app embedded in the Shopify admin and keeps
// the app's stored access credentials alive.
//
// An [Engine] verifies webhook and app proxy signatures, validates session tokens, exchanges
// them for offline and online access tokens, refreshes expiring offline tokens, and answers
// authentication failures with the response that fits the request: a bounce page, an
// exit-iframe redirect, an install redirect, or a 401 carrying the header the admin's fetch
// wrapper understands.
//
// Engine methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// goShopAuth is the public surface. It exposes [Engine], [Builder], [Config], [Responder] and
// value types. Token exchange, refresh, and the exchange barrier live under internal/. Credential
// persistence is delegated to a [session.Store] supplied by the caller.
//
// # What this package must NOT do
//
//   - Log or audit access tokens, refresh tokens, session tokens or the app secret.
//   - Write HTTP responses itself; [RecoveryDecision] values are returned for the web layer to
//     serve.
//   - Import any sub-package that re-imports goShopAuth (no import cycles).
package goShopAuth
