package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	goShopAuth "github.com/MrEthical07/goShopAuth"
)

// Environment keys read by Load.
const (
	KeyAPIKey                = "SHOPIFY_API_KEY"
	KeyAPISecret             = "SHOPIFY_API_SECRET"
	KeyAppURL                = "SHOPIFY_APP_URL"
	KeyScopes                = "SCOPES"
	KeyUseOnlineTokens       = "SHOPIFY_USE_ONLINE_TOKENS"
	KeyDistribution          = "SHOPIFY_DISTRIBUTION"
	KeyAdminAPIAccessToken   = "SHOPIFY_ADMIN_API_ACCESS_TOKEN"
	KeyExpiringOfflineTokens = "SHOPIFY_EXPIRING_OFFLINE_TOKENS"
	KeyCustomShopDomains     = "SHOP_CUSTOM_DOMAIN"
)

// LoadFromEnv builds a validated engine config from the process environment.
func LoadFromEnv() (goShopAuth.Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	return Load(v)
}

// Load builds a validated engine config from v. Keys not set in v keep the
// engine defaults.
func Load(v *viper.Viper) (goShopAuth.Config, error) {
	for _, key := range []string{
		KeyAPIKey, KeyAPISecret, KeyAppURL, KeyScopes, KeyUseOnlineTokens,
		KeyDistribution, KeyAdminAPIAccessToken, KeyExpiringOfflineTokens, KeyCustomShopDomains,
	} {
		if err := v.BindEnv(key); err != nil {
			return goShopAuth.Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := goShopAuth.DefaultConfig()
	cfg.App.APIKey = strings.TrimSpace(v.GetString(KeyAPIKey))
	cfg.App.APISecret = v.GetString(KeyAPISecret)
	cfg.App.AppURL = strings.TrimSpace(v.GetString(KeyAppURL))
	cfg.App.ExtraShopDomains = splitList(v.GetString(KeyCustomShopDomains))
	cfg.Auth.Scopes = splitList(v.GetString(KeyScopes))
	cfg.Auth.UseOnlineTokens = v.GetBool(KeyUseOnlineTokens)
	cfg.Auth.ExpiringOfflineTokens = v.GetBool(KeyExpiringOfflineTokens)
	cfg.Auth.AdminAPIAccessToken = v.GetString(KeyAdminAPIAccessToken)

	dist, err := goShopAuth.ParseDistribution(v.GetString(KeyDistribution))
	if err != nil {
		return goShopAuth.Config{}, fmt.Errorf("%s: %w", KeyDistribution, err)
	}
	cfg.Auth.Distribution = dist

	if err := cfg.Validate(); err != nil {
		return goShopAuth.Config{}, err
	}
	return cfg, nil
}

func splitList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return nil
	}
	return fields
}
