package goShopAuth

import "time"

// SecurityReport summarizes the authentication posture of a built engine.
type SecurityReport struct {
	Distribution          string
	AdminStrategy         string
	SigningAlgorithm      string
	ManagedInstall        bool
	OnlineTokens          bool
	RefreshEnabled        bool
	RequiredScopes        []string
	SessionTokenLeeway    time.Duration
	FreshnessThreshold    time.Duration
	AppProxySkewEnforced  bool
	AppProxyTimestampSkew time.Duration
	ExtraShopDomains      []string
	AuditEnabled          bool
	MetricsEnabled        bool
}

// SecurityReport returns the posture derived from the engine configuration. It never includes
// secrets or tokens.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	strategy := "token_exchange"
	if _, ok := e.strategy.(*MerchantCustomAppStrategy); ok {
		strategy = "merchant_custom_app"
	}

	return SecurityReport{
		Distribution:          e.config.Auth.Distribution.String(),
		AdminStrategy:         strategy,
		SigningAlgorithm:      "HS256",
		ManagedInstall:        e.config.Auth.ManagedInstall,
		OnlineTokens:          e.config.Auth.UseOnlineTokens,
		RefreshEnabled:        e.config.refreshEnabled(),
		RequiredScopes:        e.required.Names(),
		SessionTokenLeeway:    e.config.SessionToken.Leeway,
		FreshnessThreshold:    e.config.Auth.FreshnessThreshold,
		AppProxySkewEnforced:  e.config.AppProxy.MaxTimestampSkew > 0,
		AppProxyTimestampSkew: e.config.AppProxy.MaxTimestampSkew,
		ExtraShopDomains:      cloneStrings(e.config.App.ExtraShopDomains),
		AuditEnabled:          e.audit != nil,
		MetricsEnabled:        e.metrics.Enabled(),
	}
}
