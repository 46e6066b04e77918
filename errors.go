package goShopAuth

import "errors"

var (
	// ErrInvalidSignature is returned when a webhook or app proxy HMAC does not match. The
	// request should be treated as forged and never retried.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrMissingRequiredHeaders is returned when a webhook lacks one of its required headers.
	ErrMissingRequiredHeaders = errors.New("missing required headers")
	// ErrMissingHMAC is returned when a signed request carries no signature at all.
	ErrMissingHMAC = errors.New("missing hmac")
	// ErrInvalidJWT is returned when a session token or refresh token is stale or invalid.
	// Callers re-authenticate through the recovery flow.
	ErrInvalidJWT = errors.New("invalid jwt")
	// ErrTransientFailure is returned for network, 5xx or storage failures. Surface it as a
	// retryable 500; the stored session is left untouched.
	ErrTransientFailure = errors.New("transient failure")
	// ErrSessionNotFound is returned when no credential exists for the shop.
	ErrSessionNotFound = errors.New("session not found")
	// ErrMissingShop is returned when a document load carries no shop parameter.
	ErrMissingShop = errors.New("missing shop parameter")
	// ErrInvalidShop is returned when the shop parameter is not an allowed shop domain.
	ErrInvalidShop = errors.New("invalid shop parameter")
	// ErrEngineNotReady is returned by methods called on a nil Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrHookFailed wraps an error returned by the after-auth hook.
	ErrHookFailed = errors.New("after auth hook failed")
)
