// Package jwt verifies and mints the HS256 session tokens an embedding admin host attaches to
// requests, enforcing audience, destination, issuer and clock checks with a bounded leeway.
package jwt
