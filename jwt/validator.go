package jwt

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goShopAuth/internal/shopdomain"
	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultLeeway = 10 * time.Second
	maxLeeway     = 2 * time.Minute
)

// ErrInvalidSessionToken wraps every validation failure. Callers treat it as "re-authenticate".
var ErrInvalidSessionToken = errors.New("invalid session token")

// Config holds the app credentials and clock settings a Validator checks tokens against.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// APIKey is the app client id; tokens must carry it as audience.
	APIKey string
	// APISecret is the app client secret; tokens are HS256 signed with it.
	APISecret string
	// Leeway tolerates clock skew on exp and nbf. Zero selects 10s.
	Leeway time.Duration
	// ExtraShopDomains widens the accepted dest domains beyond the platform defaults.
	ExtraShopDomains []string
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// SessionToken holds the claims of a verified session token.
//
// Shop is derived from Dest and is authoritative over any shop query parameter.
type SessionToken struct {
	Dest string `json:"dest"`
	SID  string `json:"sid,omitempty"`
	jwt.RegisteredClaims

	Shop string `json:"-"`
}

// UserID returns the numeric staff user id from sub, or 0 when absent.
func (t *SessionToken) UserID() int64 {
	if t == nil || t.Subject == "" {
		return 0
	}
	id, err := strconv.ParseInt(t.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Validator verifies session tokens. It is safe for concurrent use.
//
// Validator instances are safe for concurrent use.
type Validator struct {
	config Config
	parser *jwt.Parser
}

// NewValidator validates cfg and builds a parser restricted to HS256.
func NewValidator(cfg Config) (*Validator, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required")
	}
	if cfg.APISecret == "" {
		return nil, errors.New("api secret is required")
	}
	if cfg.Leeway == 0 {
		cfg.Leeway = defaultLeeway
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(cfg.APIKey),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cfg.Now),
	)
	return &Validator{config: cfg, parser: parser}, nil
}

// Validate verifies the token signature and claims.
//
// Every failure wraps [ErrInvalidSessionToken]; a non-nil result is fully trusted.
func (v *Validator) Validate(tokenStr string) (*SessionToken, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidSessionToken)
	}

	claims := &SessionToken{}
	token, err := v.parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return []byte(v.config.APISecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSessionToken, jwt.ErrTokenInvalidClaims)
	}

	dest, err := url.Parse(claims.Dest)
	if err != nil || dest.Hostname() == "" {
		return nil, fmt.Errorf("%w: invalid dest", ErrInvalidSessionToken)
	}
	shop, ok := shopdomain.Sanitize(dest.Hostname(), v.config.ExtraShopDomains...)
	if !ok {
		return nil, fmt.Errorf("%w: dest is not a shop domain", ErrInvalidSessionToken)
	}

	iss, err := url.Parse(claims.Issuer)
	if err != nil || !strings.EqualFold(iss.Hostname(), shop) {
		return nil, fmt.Errorf("%w: issuer does not match dest", ErrInvalidSessionToken)
	}

	claims.Shop = shop
	return claims, nil
}

// Sign mints an HS256 session token with the validator's secret. It exists for tests and the
// developer CLI; production tokens are issued by the admin host.
func (v *Validator) Sign(claims *SessionToken) (string, error) {
	return Sign([]byte(v.config.APISecret), claims)
}

// Sign mints an HS256 session token with secret.
func Sign(secret []byte, claims *SessionToken) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("secret is required")
	}
	if claims == nil {
		return "", errors.New("claims are required")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// NewClaims returns the claims an admin host would issue for shop and user at now.
// userID 0 omits the subject.
func NewClaims(apiKey, shop string, userID int64, ttl time.Duration, now time.Time) *SessionToken {
	claims := &SessionToken{
		Dest: "https://" + shop,
		SID:  fmt.Sprintf("sid-%d-%d", userID, now.UnixNano()),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://" + shop + "/admin",
			Audience:  jwt.ClaimStrings{apiKey},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        fmt.Sprintf("jti-%d", now.UnixNano()),
		},
	}
	if userID != 0 {
		claims.Subject = strconv.FormatInt(userID, 10)
	}
	return claims
}
