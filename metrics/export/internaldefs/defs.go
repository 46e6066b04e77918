package internaldefs

import (
	goShopAuth "github.com/MrEthical07/goShopAuth"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   goShopAuth.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   goShopAuth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for dispatcher drops.
const AuditDroppedName = "goshopauth_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goShopAuth.MetricTokenExchangeSuccess, Name: "goshopauth_token_exchange_success_total", Help: "Completed token exchanges."},
	{ID: goShopAuth.MetricTokenExchangeFailure, Name: "goshopauth_token_exchange_failure_total", Help: "Failed token exchanges."},
	{ID: goShopAuth.MetricRefreshSuccess, Name: "goshopauth_refresh_success_total", Help: "Refreshed offline sessions."},
	{ID: goShopAuth.MetricRefreshFailure, Name: "goshopauth_refresh_failure_total", Help: "Failed refresh grants."},
	{ID: goShopAuth.MetricSessionTokenInvalid, Name: "goshopauth_session_token_invalid_total", Help: "Rejected session tokens."},
	{ID: goShopAuth.MetricAdminAuthenticated, Name: "goshopauth_admin_authenticated_total", Help: "Successful admin authentications."},
	{ID: goShopAuth.MetricWebhookValid, Name: "goshopauth_webhook_valid_total", Help: "Webhooks with a valid signature."},
	{ID: goShopAuth.MetricWebhookInvalid, Name: "goshopauth_webhook_invalid_total", Help: "Rejected webhooks."},
	{ID: goShopAuth.MetricAppProxyValid, Name: "goshopauth_app_proxy_valid_total", Help: "App proxy requests with a valid signature."},
	{ID: goShopAuth.MetricAppProxyInvalid, Name: "goshopauth_app_proxy_invalid_total", Help: "Rejected app proxy requests."},
	{ID: goShopAuth.MetricHookRun, Name: "goshopauth_hook_run_total", Help: "After-auth hook executions."},
	{ID: goShopAuth.MetricHookFailure, Name: "goshopauth_hook_failure_total", Help: "After-auth hook executions that failed."},
	{ID: goShopAuth.MetricRecoveryBouncePage, Name: "goshopauth_recovery_bounce_page_total", Help: "Redirects to the session-token bounce page."},
	{ID: goShopAuth.MetricRecoveryExitIframe, Name: "goshopauth_recovery_exit_iframe_total", Help: "Redirects to the exit-iframe page."},
	{ID: goShopAuth.MetricRecoveryInstall, Name: "goshopauth_recovery_install_total", Help: "Redirects to install or login."},
	{ID: goShopAuth.MetricRecoveryRetryHeader, Name: "goshopauth_recovery_retry_header_total", Help: "401 responses asking App Bridge to retry."},
	{ID: goShopAuth.MetricRecoveryReauthURL, Name: "goshopauth_recovery_reauth_url_total", Help: "401 responses carrying a reauthorize URL."},
	{ID: goShopAuth.MetricRecoveryBadRequest, Name: "goshopauth_recovery_bad_request_total", Help: "Requests rejected with 400."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goShopAuth.MetricAuthenticateAdminLatency, Name: "goshopauth_authenticate_admin_latency_seconds", Help: "AuthenticateAdmin latency histogram."},
}

// HistogramBounds are the bucket labels matching the engine's eight buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramUpperBounds are the finite bucket bounds in seconds.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix is HistogramBounds made safe for instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
