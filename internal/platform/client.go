package platform

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultMaxTries    = 3

	// maxResponseBodySize is the maximum size for reading response bodies (1 MB)
	maxResponseBodySize = 1 << 20

	redactedPlaceholder = "[REDACTED]"
	emptyPlaceholder    = "<empty>"
)

var (
	// ErrSubjectTokenInvalid is returned when the platform rejects the presented session token
	// or refresh token.
	ErrSubjectTokenInvalid = errors.New("subject token invalid")
	// ErrTransient is returned for transport failures, 5xx responses and malformed bodies.
	ErrTransient = errors.New("platform request failed")
)

// Config holds the client credentials and transport settings.
type Config struct {
	APIKey    string
	APISecret string
	// HTTPClient is used for every request. Nil selects a client with a 30s timeout.
	HTTPClient *http.Client
	// MaxTries bounds attempts for retryable failures, first attempt included. Zero selects 3.
	MaxTries uint
	// InitialBackoff is the first retry delay. Zero keeps the backoff library default.
	InitialBackoff time.Duration
	// Endpoint maps a shop to its token URL. Nil selects https://{shop}/admin/oauth/access_token.
	Endpoint func(shop string) string
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Client performs token exchange and refresh grants. It is safe for concurrent use.
type Client struct {
	config Config
}

// NewClient validates cfg and applies defaults.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("APIKey is required")
	}
	if cfg.APISecret == "" {
		return nil, errors.New("APISecret is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = defaultMaxTries
	}
	if cfg.Endpoint == nil {
		cfg.Endpoint = TokenURL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Client{config: cfg}, nil
}

// TokenURL returns the platform token endpoint of shop.
func TokenURL(shop string) string {
	return "https://" + shop + "/admin/oauth/access_token"
}

// clientAuthentication carries the app credentials; String redacts the secret.
type clientAuthentication struct {
	ClientID     string
	ClientSecret string
}

func (c clientAuthentication) String() string {
	clientSecret := redactedPlaceholder
	if c.ClientSecret == "" {
		clientSecret = emptyPlaceholder
	}
	return fmt.Sprintf("clientAuthentication{ClientID: %s, ClientSecret: %s}", c.ClientID, clientSecret)
}

func (c *Client) auth() clientAuthentication {
	return clientAuthentication{ClientID: c.config.APIKey, ClientSecret: c.config.APISecret}
}

func (c *Client) expiryFrom(seconds int64) *time.Time {
	if seconds <= 0 {
		return nil
	}
	t := c.config.Now().Add(time.Duration(seconds) * time.Second)
	return &t
}
