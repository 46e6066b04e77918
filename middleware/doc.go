// Package middleware exposes net/http adapters that put goShopAuth.Engine in front of the
// three inbound surfaces of an embedded app, plus the two pages the recovery protocol
// navigates through.
//
// # Adapters
//
//   - [Admin] authenticates admin requests and writes recovery decisions verbatim.
//   - [Webhook] verifies webhook deliveries over the raw body.
//   - [AppProxy] verifies storefront app proxy requests.
//   - [BouncePage] serves the page that re-acquires a session token inside the iframe.
//   - [ExitIframe] serves the page that navigates the top frame out of the iframe.
//
// Each adapter injects its verified context into the request context, readable with
// goShopAuth.AdminContextFrom, WebhookContextFrom and AppProxyContextFrom.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// authentication logic itself; all decisions are delegated to the Engine.
//
// # What this package must NOT do
//
//   - Parse or verify session tokens or signatures directly (delegates to Engine).
//   - Access the session store (Engine handles I/O).
//   - Choose a recovery response (the Engine's Responder owns that policy).
package middleware
