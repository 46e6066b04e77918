package session

import (
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goShopAuth/scopes"
)

// AssociatedUser is the shop staff member an online session acts for.
type AssociatedUser struct {
	ID            int64  `json:"id"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	AccountOwner  bool   `json:"account_owner,omitempty"`
	Locale        string `json:"locale,omitempty"`
	Collaborator  bool   `json:"collaborator,omitempty"`
}

// OnlineAccessInfo is attached to online sessions only.
type OnlineAccessInfo struct {
	ExpiresIn           int64          `json:"expires_in"`
	AssociatedUserScope string         `json:"associated_user_scope"`
	AssociatedUser      AssociatedUser `json:"associated_user"`
}

// Session is one durable credential grant for a shop, or for a user of a shop when IsOnline.
//
// A stored Session always carries an AccessToken. Expires and RefreshTokenExpires are nil for
// credentials that do not expire.
type Session struct {
	ID                  string
	Shop                string
	State               string
	IsOnline            bool
	Scope               string
	AccessToken         string
	RefreshToken        string
	Expires             *time.Time
	RefreshTokenExpires *time.Time
	OnlineAccessInfo    *OnlineAccessInfo
}

// OfflineID returns the session ID of the shop-wide credential.
func OfflineID(shop string) string {
	return "offline_" + normalizeShop(shop)
}

// OnlineID returns the session ID of a user-scoped credential.
func OnlineID(shop string, userID int64) string {
	return normalizeShop(shop) + "_" + strconv.FormatInt(userID, 10)
}

func normalizeShop(shop string) string {
	return strings.ToLower(strings.TrimSpace(shop))
}

// IsExpired reports whether the access token expires within the given window from now.
// Sessions without an expiry never expire.
func (s *Session) IsExpired(within time.Duration, now time.Time) bool {
	if s == nil {
		return true
	}
	if s.Expires == nil {
		return false
	}
	return s.Expires.Sub(now) <= within
}

// IsRefreshTokenExpired reports whether the refresh token can no longer be redeemed.
func (s *Session) IsRefreshTokenExpired(now time.Time) bool {
	if s == nil || s.RefreshToken == "" {
		return true
	}
	if s.RefreshTokenExpires == nil {
		return false
	}
	return !s.RefreshTokenExpires.After(now)
}

// IsActive reports whether the session holds a usable token that grants every required scope.
func (s *Session) IsActive(required scopes.Set, within time.Duration, now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	if !scopes.Parse(s.Scope).Has(required) {
		return false
	}
	return !s.IsExpired(within, now)
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Expires != nil {
		t := *s.Expires
		out.Expires = &t
	}
	if s.RefreshTokenExpires != nil {
		t := *s.RefreshTokenExpires
		out.RefreshTokenExpires = &t
	}
	if s.OnlineAccessInfo != nil {
		info := *s.OnlineAccessInfo
		out.OnlineAccessInfo = &info
	}
	return &out
}
