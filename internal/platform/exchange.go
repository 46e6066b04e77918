package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/MrEthical07/goShopAuth/session"
)

const (
	//nolint:gosec // G101: OAuth URN identifiers, not credentials
	grantTypeTokenExchange = "urn:ietf:params:oauth:grant-type:token-exchange"
	//nolint:gosec // G101: OAuth URN identifiers, not credentials
	subjectTokenTypeIDToken = "urn:ietf:params:oauth:token-type:id_token"

	oauthErrInvalidSubjectToken = "invalid_subject_token"
	oauthErrInvalidGrant        = "invalid_grant"
)

// TokenKind selects the credential requested from the exchange grant.
type TokenKind int

const (
	// OfflineAccessToken requests a shop-wide credential.
	OfflineAccessToken TokenKind = iota
	// OnlineAccessToken requests a credential scoped to the token's user.
	OnlineAccessToken
)

func (k TokenKind) String() string {
	if k == OnlineAccessToken {
		return "online"
	}
	return "offline"
}

func (k TokenKind) requestedTokenType() string {
	return "urn:shopify:params:oauth:token-type:" + k.String() + "-access-token"
}

// ExchangeRequest describes one token exchange.
type ExchangeRequest struct {
	Shop         string
	SessionToken string
	Kind         TokenKind
	// Expiring asks for an expiring offline token with a refresh token. Ignored for online.
	Expiring bool
}

// String implements fmt.Stringer, redacting the session token.
func (r ExchangeRequest) String() string {
	subjectToken := redactedPlaceholder
	if r.SessionToken == "" {
		subjectToken = emptyPlaceholder
	}
	return fmt.Sprintf("ExchangeRequest{Shop: %s, Kind: %s, Expiring: %t, SessionToken: %s}",
		r.Shop, r.Kind, r.Expiring, subjectToken)
}

// oAuthError represents an OAuth 2.0 error response as defined in RFC 6749 Section 5.2.
type oAuthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	StatusCode       int    `json:"-"`
}

func (e *oAuthError) String() string {
	return fmt.Sprintf("OAuth error %q (status %d)", e.Error, e.StatusCode)
}

func parseOAuthError(statusCode int, body []byte) *oAuthError {
	var oauthErr oAuthError
	if err := json.Unmarshal(body, &oauthErr); err != nil {
		return nil
	}
	if oauthErr.Error == "" {
		return nil
	}
	oauthErr.StatusCode = statusCode
	return &oauthErr
}

// accessTokenResponse is the token endpoint body for both offline and online grants.
type accessTokenResponse struct {
	AccessToken           string                  `json:"access_token"`
	Scope                 string                  `json:"scope"`
	ExpiresIn             int64                   `json:"expires_in"`
	RefreshToken          string                  `json:"refresh_token"`
	RefreshTokenExpiresIn int64                   `json:"refresh_token_expires_in"`
	AssociatedUserScope   string                  `json:"associated_user_scope"`
	AssociatedUser        *session.AssociatedUser `json:"associated_user"`
}

func (r accessTokenResponse) String() string {
	accessToken := redactedPlaceholder
	if r.AccessToken == "" {
		accessToken = emptyPlaceholder
	}
	refreshToken := redactedPlaceholder
	if r.RefreshToken == "" {
		refreshToken = emptyPlaceholder
	}
	return fmt.Sprintf("accessTokenResponse{AccessToken: %s, Scope: %s, ExpiresIn: %d, RefreshToken: %s}",
		accessToken, r.Scope, r.ExpiresIn, refreshToken)
}

// Exchange trades a validated session token for a session of the requested kind.
// Retryable failures are retried with exponential backoff.
func (c *Client) Exchange(ctx context.Context, req ExchangeRequest) (*session.Session, error) {
	if req.Shop == "" {
		return nil, errors.New("shop is required")
	}
	if req.SessionToken == "" {
		return nil, fmt.Errorf("%w: subject_token is required", ErrSubjectTokenInvalid)
	}

	expBackoff := backoff.NewExponentialBackOff()
	if c.config.InitialBackoff > 0 {
		expBackoff.InitialInterval = c.config.InitialBackoff
		expBackoff.Reset()
	}

	attempt := 0
	operation := func() (*accessTokenResponse, error) {
		attempt++
		resp, err := c.exchangeOnce(ctx, req)
		if err == nil {
			return resp, nil
		}
		var retryable *retryableError
		if errors.As(err, &retryable) {
			c.config.Logger.Warn().
				Str("shop", req.Shop).
				Str("kind", req.Kind.String()).
				Int("attempt", attempt).
				Err(retryable.err).
				Msg("token exchange attempt failed")
			return nil, retryable.err
		}
		return nil, backoff.Permanent(err)
	}

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(c.config.MaxTries),
		backoff.WithNotify(func(_ error, d time.Duration) {
			c.config.Logger.Debug().Str("shop", req.Shop).Dur("delay", d).Msg("retrying token exchange")
		}),
	)
	if err != nil {
		if errors.Is(err, ErrSubjectTokenInvalid) || errors.Is(err, ErrTransient) {
			return nil, err
		}
		// context cancellation or deadline from the retry loop itself
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	return c.sessionFromResponse(req, resp)
}

// retryableError marks a transient failure worth another attempt.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func (c *Client) exchangeOnce(ctx context.Context, req ExchangeRequest) (*accessTokenResponse, error) {
	data := buildExchangeFormData(c.auth(), req)

	encoded := data.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint(req.Shop), strings.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create token exchange request: %v", ErrTransient, err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Length", strconv.Itoa(len(encoded)))

	resp, err := c.config.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("%w: token exchange request failed: %v", ErrTransient, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("%w: failed to read token exchange response: %v", ErrTransient, err)}
	}

	if err := classifyStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	var tokenResp accessTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse token exchange response", ErrTransient)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("%w: server returned empty access_token", ErrTransient)
	}
	if req.Kind == OnlineAccessToken && tokenResp.AssociatedUser == nil {
		return nil, fmt.Errorf("%w: online response missing associated_user", ErrTransient)
	}
	return &tokenResp, nil
}

func buildExchangeFormData(auth clientAuthentication, req ExchangeRequest) url.Values {
	data := url.Values{}
	data.Set("client_id", auth.ClientID)
	data.Set("client_secret", auth.ClientSecret)
	data.Set("grant_type", grantTypeTokenExchange)
	data.Set("subject_token", req.SessionToken)
	data.Set("subject_token_type", subjectTokenTypeIDToken)
	data.Set("requested_token_type", req.Kind.requestedTokenType())
	if req.Kind == OfflineAccessToken && req.Expiring {
		data.Set("expiring", "1")
	}
	return data
}

// classifyStatus maps a non-2xx response to a classified error.
func classifyStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode <= 299 {
		return nil
	}

	oauthErr := parseOAuthError(statusCode, body)
	switch {
	case oauthErr != nil && (oauthErr.Error == oauthErrInvalidSubjectToken || oauthErr.Error == oauthErrInvalidGrant) &&
		(statusCode == http.StatusBadRequest || statusCode == http.StatusUnauthorized):
		return fmt.Errorf("%w: %s", ErrSubjectTokenInvalid, oauthErr)
	case statusCode == http.StatusUnauthorized && oauthErr == nil:
		return fmt.Errorf("%w: status %d", ErrSubjectTokenInvalid, statusCode)
	case statusCode >= 500 || statusCode == http.StatusTooManyRequests:
		return &retryableError{err: fmt.Errorf("%w: token endpoint returned status %d", ErrTransient, statusCode)}
	case oauthErr != nil:
		return fmt.Errorf("%w: %s", ErrTransient, oauthErr)
	default:
		return fmt.Errorf("%w: token endpoint returned status %d", ErrTransient, statusCode)
	}
}

func (c *Client) sessionFromResponse(req ExchangeRequest, resp *accessTokenResponse) (*session.Session, error) {
	sess := &session.Session{
		Shop:                req.Shop,
		Scope:               resp.Scope,
		AccessToken:         resp.AccessToken,
		RefreshToken:        resp.RefreshToken,
		Expires:             c.expiryFrom(resp.ExpiresIn),
		RefreshTokenExpires: c.expiryFrom(resp.RefreshTokenExpiresIn),
	}
	if req.Kind == OfflineAccessToken {
		sess.ID = session.OfflineID(req.Shop)
		return sess, nil
	}

	sess.IsOnline = true
	sess.ID = session.OnlineID(req.Shop, resp.AssociatedUser.ID)
	sess.OnlineAccessInfo = &session.OnlineAccessInfo{
		ExpiresIn:           resp.ExpiresIn,
		AssociatedUserScope: resp.AssociatedUserScope,
		AssociatedUser:      *resp.AssociatedUser,
	}
	return sess, nil
}
