package goShopAuth

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/goShopAuth/internal/shopdomain"
)

// Response headers the embedded host's fetch wrapper reacts to.
const (
	HeaderRetryInvalidSessionRequest = "X-Shopify-Retry-Invalid-Session-Request"
	HeaderReauthorize                = "X-Shopify-API-Request-Failure-Reauthorize"
	HeaderReauthorizeURL             = "X-Shopify-API-Request-Failure-Reauthorize-Url"
)

// Query parameters carried through the bounce and exit-iframe pages.
const (
	QueryExitIframe    = "exitIframe"
	QueryShopifyReload = "shopify-reload"
	QueryIDToken       = "id_token"
	QueryEmbedded      = "embedded"
)

// RequestShape is the execution context a request arrived in. It decides which recovery
// response can work: only a top-level navigation can redirect cross-origin, and only a page
// inside the iframe can re-acquire a session token.
type RequestShape int

const (
	// DocumentLoadTopLevel is a navigation outside the admin iframe.
	DocumentLoadTopLevel RequestShape = iota
	// DocumentLoadInIframe is a navigation inside the admin iframe (embedded=1).
	DocumentLoadInIframe
	// AuthenticatedFetch is a background request carrying a bearer session token.
	AuthenticatedFetch
)

func (s RequestShape) String() string {
	switch s {
	case DocumentLoadInIframe:
		return "document_load_in_iframe"
	case AuthenticatedFetch:
		return "authenticated_fetch"
	default:
		return "document_load_top_level"
	}
}

// DetectRequestShape classifies r. A bearer Authorization header wins over embedded=1.
func DetectRequestShape(r *http.Request) RequestShape {
	if _, ok := bearerToken(r); ok {
		return AuthenticatedFetch
	}
	if r.URL.Query().Get(QueryEmbedded) == "1" {
		return DocumentLoadInIframe
	}
	return DocumentLoadTopLevel
}

func bearerToken(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

// RecoveryKind names the remediation a RecoveryDecision performs.
type RecoveryKind int

const (
	// RecoveryRedirectToBouncePage re-acquires a session token inside the iframe.
	RecoveryRedirectToBouncePage RecoveryKind = iota
	// RecoveryRedirectToExitIframe breaks out of the iframe before a top-level redirect.
	RecoveryRedirectToExitIframe
	// RecoveryRedirectToInstall starts the install flow for a shop without credentials.
	RecoveryRedirectToInstall
	// RecoveryUnauthorizedWithRetryHeader asks the host fetch wrapper to retry with a new token.
	RecoveryUnauthorizedWithRetryHeader
	// RecoveryUnauthorizedWithReauthURL asks the host fetch wrapper to navigate to the install URL.
	RecoveryUnauthorizedWithReauthURL
	// RecoveryBadRequest rejects a document load without a valid shop parameter.
	RecoveryBadRequest
)

var recoveryKindNames = [...]string{
	RecoveryRedirectToBouncePage:        "redirect_to_bounce_page",
	RecoveryRedirectToExitIframe:        "redirect_to_exit_iframe",
	RecoveryRedirectToInstall:           "redirect_to_install",
	RecoveryUnauthorizedWithRetryHeader: "unauthorized_with_retry_header",
	RecoveryUnauthorizedWithReauthURL:   "unauthorized_with_reauth_url",
	RecoveryBadRequest:                  "bad_request",
}

func (k RecoveryKind) String() string {
	if k < 0 || int(k) >= len(recoveryKindNames) {
		return "unknown"
	}
	return recoveryKindNames[k]
}

// RecoveryDecision is a fully formed HTTP response answering an authentication failure. It is
// returned as an error by AuthenticateAdmin; the web layer writes it verbatim with ServeHTTP.
type RecoveryDecision struct {
	Kind     RecoveryKind
	Status   int
	Location string
	Header   http.Header
	// Cause is the failure that led to the decision.
	Cause error
}

func (d *RecoveryDecision) Error() string {
	if d.Cause == nil {
		return fmt.Sprintf("recovery: %s (%d)", d.Kind, d.Status)
	}
	return fmt.Sprintf("recovery: %s (%d): %v", d.Kind, d.Status, d.Cause)
}

func (d *RecoveryDecision) Unwrap() error {
	return d.Cause
}

// ServeHTTP writes the decision's headers, Location and status. The body is empty.
func (d *RecoveryDecision) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	dst := w.Header()
	for k, vs := range d.Header {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
	if d.Location != "" {
		dst.Set("Location", d.Location)
	}
	w.WriteHeader(d.Status)
}

// Failure describes an authentication failure handed to Responder.Decide.
type Failure struct {
	Err error
	// Shop and Host override the request's shop and host query parameters when set.
	Shop string
	Host string
	// CredentialExisted is true when the shop had a stored session that turned out unusable.
	CredentialExisted bool
	// TokenMissing is true when the request carried no session token at all.
	TokenMissing bool
}

func (f Failure) installRequired() bool {
	return !f.CredentialExisted
}

// Responder turns authentication failures into the response that fits the request shape. It is
// the only place that policy lives.
type Responder struct {
	apiKey         string
	appURL         string
	paths          PathsConfig
	managedInstall bool
	extraDomains   []string
	logger         zerolog.Logger
}

// NewResponder builds a Responder from a validated Config.
func NewResponder(cfg Config) *Responder {
	return &Responder{
		apiKey:         cfg.App.APIKey,
		appURL:         strings.TrimRight(cfg.App.AppURL, "/"),
		paths:          cfg.Paths,
		managedInstall: cfg.Auth.ManagedInstall,
		extraDomains:   cloneStrings(cfg.App.ExtraShopDomains),
		logger:         cfg.Logger,
	}
}

// Decide returns the response for failure f on request r.
//
//   - AuthenticatedFetch: 401 with the retry header, or with the reauthorize headers when the
//     shop has no credential and must install.
//   - DocumentLoadInIframe: the bounce page when no token was presented, otherwise an
//     exit-iframe redirect carrying the top-level destination.
//   - DocumentLoadTopLevel: install when no credential ever existed, the bounce page otherwise.
//
// Document loads without a valid shop get a 400.
func (p *Responder) Decide(r *http.Request, f Failure) *RecoveryDecision {
	shape := DetectRequestShape(r)
	query := r.URL.Query()

	rawShop := f.Shop
	if rawShop == "" {
		rawShop = query.Get("shop")
	}
	shop, shopOK := shopdomain.Sanitize(rawShop, p.extraDomains...)
	host := f.Host
	if host == "" {
		host = query.Get("host")
	}
	if _, ok := shopdomain.SanitizeHost(host, p.extraDomains...); !ok {
		host = ""
	}

	var d *RecoveryDecision
	switch {
	case shape == AuthenticatedFetch:
		d = p.fetchDecision(shop, shopOK, f)
	case !shopOK:
		d = &RecoveryDecision{Kind: RecoveryBadRequest, Status: http.StatusBadRequest}
		if rawShop == "" {
			d.Cause = ErrMissingShop
		} else {
			d.Cause = ErrInvalidShop
		}
	case shape == DocumentLoadInIframe && f.TokenMissing:
		d = p.redirect(RecoveryRedirectToBouncePage, p.bounceURL(r, shop, host))
	case shape == DocumentLoadInIframe:
		top := p.topLevel(r, shop, host, f)
		d = p.redirect(RecoveryRedirectToExitIframe, p.exitIframeURL(top.Location, shop, host))
	default:
		d = p.topLevel(r, shop, host, f)
	}
	if d.Cause == nil {
		d.Cause = f.Err
	}

	p.logger.Debug().
		Str("shop", shop).
		Str("shape", shape.String()).
		Str("decision", d.Kind.String()).
		Int("status", d.Status).
		Msg("authentication recovery")
	return d
}

func (p *Responder) fetchDecision(shop string, shopOK bool, f Failure) *RecoveryDecision {
	header := make(http.Header)
	if f.installRequired() && shopOK {
		header.Set(HeaderReauthorize, "1")
		header.Set(HeaderReauthorizeURL, p.installURL(shop))
		header.Set("Access-Control-Expose-Headers", HeaderReauthorize+", "+HeaderReauthorizeURL)
		return &RecoveryDecision{Kind: RecoveryUnauthorizedWithReauthURL, Status: http.StatusUnauthorized, Header: header}
	}
	header.Set(HeaderRetryInvalidSessionRequest, "1")
	header.Set("Access-Control-Expose-Headers", HeaderRetryInvalidSessionRequest)
	return &RecoveryDecision{Kind: RecoveryUnauthorizedWithRetryHeader, Status: http.StatusUnauthorized, Header: header}
}

func (p *Responder) topLevel(r *http.Request, shop, host string, f Failure) *RecoveryDecision {
	if f.installRequired() {
		return p.redirect(RecoveryRedirectToInstall, p.installURL(shop))
	}
	return p.redirect(RecoveryRedirectToBouncePage, p.bounceURL(r, shop, host))
}

func (p *Responder) redirect(kind RecoveryKind, location string) *RecoveryDecision {
	return &RecoveryDecision{Kind: kind, Status: http.StatusFound, Location: location}
}

// installURL is the platform-managed install page, or the app's own login route when managed
// install is off.
func (p *Responder) installURL(shop string) string {
	if p.managedInstall {
		return "https://admin.shopify.com/store/" + url.PathEscape(shopdomain.Handle(shop)) +
			"/oauth/install?client_id=" + url.QueryEscape(p.apiKey)
	}
	return p.appURL + p.paths.Login + "?" + url.Values{"shop": {shop}}.Encode()
}

// bounceURL points at the session token route, asking it to reload the original request
// without its stale id_token once a fresh token is available.
func (p *Responder) bounceURL(r *http.Request, shop, host string) string {
	original := r.URL.Query()
	original.Del(QueryIDToken)
	reload := p.appURL + r.URL.Path
	if encoded := original.Encode(); encoded != "" {
		reload += "?" + encoded
	}

	params := url.Values{"shop": {shop}, QueryShopifyReload: {reload}}
	if host != "" {
		params.Set("host", host)
	}
	return p.appURL + p.paths.SessionToken + "?" + params.Encode()
}

// unsafeRedirectRune reports runes browsers rewrite or strip when resolving a URL, such as "\\"
// read as "/".
func unsafeRedirectRune(r rune) bool {
	return r == '\\' || r <= ' ' || r == 0x7f
}

func (p *Responder) exitIframeURL(destination, shop, host string) string {
	params := url.Values{"shop": {shop}, QueryExitIframe: {destination}}
	if host != "" {
		params.Set("host", host)
	}
	return p.appURL + p.paths.ExitIframe + "?" + params.Encode()
}

// ExitIframeAllowed reports whether destination may be navigated to from the exit-iframe page:
// a path on the app, an absolute URL on the app's origin, or a URL on the platform admin.
func (p *Responder) ExitIframeAllowed(destination string) bool {
	if destination == "" || strings.IndexFunc(destination, unsafeRedirectRune) >= 0 {
		return false
	}
	u, err := url.Parse(destination)
	if err != nil {
		return false
	}
	app, appErr := url.Parse(p.appURL)
	if u.Scheme == "" && u.Host == "" {
		if !strings.HasPrefix(destination, "/") || strings.HasPrefix(destination, "//") || appErr != nil {
			return false
		}
		resolved := app.ResolveReference(u)
		return resolved.Scheme == app.Scheme && strings.EqualFold(resolved.Host, app.Host)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return false
	}
	if appErr == nil && strings.EqualFold(u.Host, app.Host) && u.Scheme == app.Scheme {
		return true
	}
	if u.Scheme != "https" {
		return false
	}
	if strings.EqualFold(u.Hostname(), "admin.shopify.com") {
		return true
	}
	_, ok := shopdomain.Sanitize(u.Hostname(), p.extraDomains...)
	return ok
}
