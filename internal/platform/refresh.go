package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// RefreshedToken is the result of a refresh-token grant.
type RefreshedToken struct {
	AccessToken         string
	RefreshToken        string
	Scope               string
	Expires             *time.Time
	RefreshTokenExpires *time.Time
}

// String implements fmt.Stringer, redacting tokens.
func (t RefreshedToken) String() string {
	return fmt.Sprintf("RefreshedToken{AccessToken: %s, RefreshToken: %s, Scope: %s}",
		redact(t.AccessToken), redact(t.RefreshToken), t.Scope)
}

func redact(v string) string {
	if v == "" {
		return emptyPlaceholder
	}
	return redactedPlaceholder
}

// Refresh redeems refreshToken for a new access token. It is not retried: a failed refresh is
// retried by the next request that finds the session stale.
func (c *Client) Refresh(ctx context.Context, shop, refreshToken string) (*RefreshedToken, error) {
	if shop == "" {
		return nil, errors.New("shop is required")
	}
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh_token is required", ErrSubjectTokenInvalid)
	}

	conf := &oauth2.Config{
		ClientID:     c.config.APIKey,
		ClientSecret: c.config.APISecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.config.Endpoint(shop),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.config.HTTPClient)
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, classifyRefreshError(err)
	}

	out := &RefreshedToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry
		out.Expires = &exp
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		out.Scope = scope
	}
	out.RefreshTokenExpires = c.expiryFrom(extraSeconds(tok.Extra("refresh_token_expires_in")))
	return out, nil
}

func classifyRefreshError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return fmt.Errorf("%w: refresh request failed: %v", ErrTransient, err)
	}

	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	code := re.ErrorCode
	if code == "" {
		if oauthErr := parseOAuthError(status, re.Body); oauthErr != nil {
			code = oauthErr.Error
		}
	}

	switch {
	case code == oauthErrInvalidSubjectToken || code == oauthErrInvalidGrant:
		return fmt.Errorf("%w: refresh rejected with %q (status %d)", ErrSubjectTokenInvalid, code, status)
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: refresh rejected (status %d)", ErrSubjectTokenInvalid, status)
	default:
		return fmt.Errorf("%w: refresh failed (status %d)", ErrTransient, status)
	}
}

// extraSeconds reads a numeric token extra, which arrives as float64 from JSON or as a string
// from form-encoded responses.
func extraSeconds(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case string:
		out, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0
		}
		return out
	default:
		return 0
	}
}
