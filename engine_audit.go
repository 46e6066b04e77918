package goShopAuth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goShopAuth/internal/platform"
	"github.com/MrEthical07/goShopAuth/jwt"
	"github.com/MrEthical07/goShopAuth/session"
)

const (
	auditEventTokenExchangeSuccess = "token_exchange_success"
	auditEventTokenExchangeFailure = "token_exchange_failure"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshFailure       = "refresh_failure"
	auditEventSessionTokenInvalid  = "session_token_invalid"
	auditEventAfterAuthHookFailure = "after_auth_hook_failure"
	auditEventWebhookInvalid       = "webhook_invalid"
	auditEventAppProxyInvalid      = "app_proxy_invalid"
	auditEventRecoveryDecision     = "recovery_decision"
)

// AuditErrorCode is the stable error label written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidSignature AuditErrorCode = "invalid_signature"
	auditErrMissingHeaders   AuditErrorCode = "missing_headers"
	auditErrInvalidJWT       AuditErrorCode = "invalid_jwt"
	auditErrSessionNotFound  AuditErrorCode = "session_not_found"
	auditErrInvalidShop      AuditErrorCode = "invalid_shop"
	auditErrStoreUnavailable AuditErrorCode = "store_unavailable"
	auditErrTransient        AuditErrorCode = "transient_failure"
	auditErrHookFailed       AuditErrorCode = "hook_failed"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	shop string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Shop:      shop,
		SessionID: sessionID,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	var decision *RecoveryDecision
	if errors.As(err, &decision) && decision.Cause != nil {
		err = decision.Cause
	}

	switch {
	case errors.Is(err, ErrHookFailed):
		return auditErrHookFailed
	case errors.Is(err, ErrInvalidSignature):
		return auditErrInvalidSignature
	case errors.Is(err, ErrMissingRequiredHeaders),
		errors.Is(err, ErrMissingHMAC):
		return auditErrMissingHeaders
	case errors.Is(err, ErrInvalidJWT),
		errors.Is(err, jwt.ErrInvalidSessionToken),
		errors.Is(err, platform.ErrSubjectTokenInvalid):
		return auditErrInvalidJWT
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrMissingShop),
		errors.Is(err, ErrInvalidShop):
		return auditErrInvalidShop
	case errors.Is(err, session.ErrStoreUnavailable):
		return auditErrStoreUnavailable
	case errors.Is(err, ErrTransientFailure),
		errors.Is(err, platform.ErrTransient):
		return auditErrTransient
	default:
		return auditErrInternal
	}
}
