package goShopAuth

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/MrEthical07/goShopAuth/internal/shopdomain"
	"github.com/MrEthical07/goShopAuth/session"
	"github.com/MrEthical07/goShopAuth/signature"
)

func (e *Engine) validAppProxy(query url.Values) bool {
	if !signature.VerifyAppProxy([]byte(e.config.App.APISecret), query) {
		return false
	}

	skew := e.config.AppProxy.MaxTimestampSkew
	raw := query.Get("timestamp")
	if skew <= 0 || raw == "" {
		return true
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	diff := e.now().Sub(time.Unix(ts, 0))
	if diff < 0 {
		diff = -diff
	}
	return diff <= skew
}

// ValidateAppProxy reports whether query carries a valid app proxy signature and, when a
// timestamp parameter is present, that it lies within AppProxy.MaxTimestampSkew of now.
func (e *Engine) ValidateAppProxy(query url.Values) bool {
	ok := e.validAppProxy(query)
	if ok {
		e.metricInc(MetricAppProxyValid)
		return true
	}

	e.metricInc(MetricAppProxyInvalid)
	e.config.Logger.Debug().Str("shop", query.Get("shop")).Msg("app proxy signature rejected")
	e.emitAudit(context.Background(), auditEventAppProxyInvalid, false, query.Get("shop"), "", ErrInvalidSignature, nil)
	return false
}

// AuthenticateAppProxy validates query and attaches the shop's offline session when one exists.
func (e *Engine) AuthenticateAppProxy(ctx context.Context, query url.Values) (*AppProxyContext, error) {
	if query.Get(signature.AppProxySignatureParam) == "" {
		e.metricInc(MetricAppProxyInvalid)
		return nil, ErrMissingHMAC
	}
	if !e.ValidateAppProxy(query) {
		return nil, ErrInvalidSignature
	}

	raw := query.Get("shop")
	if raw == "" {
		return nil, ErrMissingShop
	}
	shop, ok := shopdomain.Sanitize(raw, e.config.App.ExtraShopDomains...)
	if !ok {
		return nil, ErrInvalidShop
	}

	sess, err := e.store.Load(ctx, session.OfflineID(shop))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransientFailure, err)
	}

	return &AppProxyContext{
		Shop:               shop,
		LoggedInCustomerID: query.Get("logged_in_customer_id"),
		Session:            sess,
	}, nil
}
