// Package shopdomain validates shop and host parameters before they are trusted in URLs.
package shopdomain

import (
	"encoding/base64"
	"net/url"
	"regexp"
	"strings"
)

var defaultDomains = []string{"myshopify.com", "shopify.com", "myshopify.io", "shop.dev"}

var (
	handleRe     = regexp.MustCompile(`^[a-z0-9][a-z0-9\-_]*$`)
	adminStoreRe = regexp.MustCompile(`^admin\.(?:shopify\.com|myshopify\.io)/store/([a-z0-9][a-z0-9\-_]*)/?$`)
)

// Sanitize returns the canonical shop domain, or false when shop is not a shop under one of
// the allowed domains. Admin URLs of the form admin.shopify.com/store/{handle} are accepted and
// converted to {handle}.myshopify.com. extra widens the allowed domain list.
func Sanitize(shop string, extra ...string) (string, bool) {
	shop = strings.ToLower(strings.TrimSpace(shop))
	if shop == "" {
		return "", false
	}
	shop = strings.TrimPrefix(strings.TrimPrefix(shop, "https://"), "http://")

	if m := adminStoreRe.FindStringSubmatch(shop); m != nil {
		if strings.HasPrefix(shop, "admin.myshopify.io") {
			return m[1] + ".myshopify.io", true
		}
		return m[1] + ".myshopify.com", true
	}

	dot := strings.IndexByte(shop, '.')
	if dot <= 0 {
		return "", false
	}
	handle, domain := shop[:dot], shop[dot+1:]
	if !handleRe.MatchString(handle) {
		return "", false
	}
	for _, allowed := range defaultDomains {
		if domain == allowed {
			return shop, true
		}
	}
	for _, allowed := range extra {
		if domain == strings.ToLower(strings.TrimSpace(allowed)) {
			return shop, true
		}
	}
	return "", false
}

// Handle returns the store handle of a canonical shop domain.
func Handle(shop string) string {
	if i := strings.IndexByte(shop, '.'); i > 0 {
		return shop[:i]
	}
	return shop
}

// SanitizeHost checks the base64 encoded host parameter decodes to a URL on an allowed admin
// or shop domain and returns it unchanged.
func SanitizeHost(host string, extra ...string) (string, bool) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", false
	}
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(host, "="))
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(host, "="))
		if err != nil {
			return "", false
		}
	}
	raw := string(decoded)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	hostname := strings.ToLower(u.Hostname())
	if hostname == "admin.shopify.com" {
		return host, true
	}
	if _, ok := Sanitize(hostname, extra...); ok {
		return host, true
	}
	return "", false
}
