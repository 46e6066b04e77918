// Package signature verifies HMAC-SHA256 signatures on payloads delivered by the platform:
// webhook bodies (base64 digests) and app proxy query strings (hex digests).
//
// # Canonical payloads
//
// Webhook signatures cover the raw request body exactly as received. Re-serialising the JSON
// before verification changes whitespace and key order and breaks the digest, so callers must
// pass the untouched bytes.
//
// App proxy signatures cover the query parameters, minus the signature itself, rendered by
// [AppProxyPayload].
//
// # What this package must NOT do
//
//   - Read HTTP headers or decide which header shape a request uses.
//   - Return errors for an invalid signature; invalidity is a false result.
package signature
