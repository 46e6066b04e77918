package goShopAuth

import "context"

type adminContextKey struct{}
type webhookContextKey struct{}
type appProxyContextKey struct{}

// WithAdminContext attaches an authenticated admin request to ctx. The middleware package calls
// it after AuthenticateAdmin succeeds.
func WithAdminContext(ctx context.Context, admin *AdminContext) context.Context {
	return context.WithValue(ctx, adminContextKey{}, admin)
}

// AdminContextFrom returns the admin context attached by WithAdminContext.
func AdminContextFrom(ctx context.Context) (*AdminContext, bool) {
	if ctx == nil {
		return nil, false
	}
	admin, ok := ctx.Value(adminContextKey{}).(*AdminContext)
	return admin, ok && admin != nil
}

// WithWebhookContext attaches a verified webhook delivery to ctx.
func WithWebhookContext(ctx context.Context, hook *WebhookContext) context.Context {
	return context.WithValue(ctx, webhookContextKey{}, hook)
}

// WebhookContextFrom returns the delivery attached by WithWebhookContext.
func WebhookContextFrom(ctx context.Context) (*WebhookContext, bool) {
	if ctx == nil {
		return nil, false
	}
	hook, ok := ctx.Value(webhookContextKey{}).(*WebhookContext)
	return hook, ok && hook != nil
}

// WithAppProxyContext attaches a verified app proxy request to ctx.
func WithAppProxyContext(ctx context.Context, proxy *AppProxyContext) context.Context {
	return context.WithValue(ctx, appProxyContextKey{}, proxy)
}

// AppProxyContextFrom returns the request attached by WithAppProxyContext.
func AppProxyContextFrom(ctx context.Context) (*AppProxyContext, bool) {
	if ctx == nil {
		return nil, false
	}
	proxy, ok := ctx.Value(appProxyContextKey{}).(*AppProxyContext)
	return proxy, ok && proxy != nil
}
