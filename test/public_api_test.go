package test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	goShopAuth "github.com/MrEthical07/goShopAuth"
	"github.com/MrEthical07/goShopAuth/middleware"
	"github.com/MrEthical07/goShopAuth/session"
)

// TestPublicAPISurfaceCompile fails to build when an exported signature consumers rely on changes.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = goShopAuth.New

	var _ *goShopAuth.Engine
	var _ goShopAuth.Config
	var _ goShopAuth.AdminContext
	var _ goShopAuth.WebhookContext
	var _ goShopAuth.AppProxyContext
	var _ goShopAuth.AfterAuthHook
	var _ goShopAuth.AuditSink
	var _ session.Store = session.NewMemoryStore()
	var _ http.Handler = (*goShopAuth.RecoveryDecision)(nil)
	var _ error = (*goShopAuth.RecoveryDecision)(nil)

	var _ error = goShopAuth.ErrInvalidSignature
	var _ error = goShopAuth.ErrMissingRequiredHeaders
	var _ error = goShopAuth.ErrInvalidJWT
	var _ error = goShopAuth.ErrTransientFailure
	var _ error = goShopAuth.ErrSessionNotFound
	var _ error = goShopAuth.ErrHookFailed

	var _ func(*goShopAuth.Engine) func(http.Handler) http.Handler = middleware.Admin
	var _ func(*goShopAuth.Engine) func(http.Handler) http.Handler = middleware.Webhook
	var _ func(*goShopAuth.Engine) func(http.Handler) http.Handler = middleware.AppProxy

	var _ func(*goShopAuth.Engine, *http.Request) (*goShopAuth.AdminContext, error) = (*goShopAuth.Engine).AuthenticateAdmin
	var _ func(*goShopAuth.Engine, context.Context, *session.Session) (*session.Session, error) = (*goShopAuth.Engine).EnsureFresh
	var _ func(*goShopAuth.Engine, []byte, http.Header) goShopAuth.WebhookValidation = (*goShopAuth.Engine).ValidateWebhook
	var _ func(*goShopAuth.Engine, url.Values) bool = (*goShopAuth.Engine).ValidateAppProxy
	var _ func(*goShopAuth.Engine, *http.Request, *session.Session) *goShopAuth.RecoveryDecision = (*goShopAuth.Engine).Recover
}
