package goShopAuth

import (
	"errors"

	"github.com/MrEthical07/goShopAuth/jwt"
	"github.com/MrEthical07/goShopAuth/internal/platform"
)

// Outcome is the engine's verdict for one inbound request.
type Outcome int

const (
	// OutcomeAuthenticated means the request carried a valid credential.
	OutcomeAuthenticated Outcome = iota
	// OutcomeNoSessionFound means the shop has no stored credential; install is required.
	OutcomeNoSessionFound
	// OutcomeInvalidSignature means the request signature did not verify.
	OutcomeInvalidSignature
	// OutcomeMissingRequiredHeaders means the request was incomplete.
	OutcomeMissingRequiredHeaders
	// OutcomeExpired means the presented or stored credential is stale.
	OutcomeExpired
	// OutcomeInternalError means an infrastructure fault; the request may be retried.
	OutcomeInternalError
)

var outcomeNames = [...]string{
	OutcomeAuthenticated:          "authenticated",
	OutcomeNoSessionFound:         "no_session_found",
	OutcomeInvalidSignature:       "invalid_signature",
	OutcomeMissingRequiredHeaders: "missing_required_headers",
	OutcomeExpired:                "expired",
	OutcomeInternalError:          "internal_error",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// OutcomeOf classifies an error returned by the engine. A nil error is OutcomeAuthenticated.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeAuthenticated
	}

	var decision *RecoveryDecision
	if errors.As(err, &decision) && decision.Cause != nil {
		err = decision.Cause
	}

	switch {
	case errors.Is(err, ErrSessionNotFound):
		return OutcomeNoSessionFound
	case errors.Is(err, ErrInvalidSignature):
		return OutcomeInvalidSignature
	case errors.Is(err, ErrMissingRequiredHeaders),
		errors.Is(err, ErrMissingHMAC),
		errors.Is(err, ErrMissingShop),
		errors.Is(err, ErrInvalidShop):
		return OutcomeMissingRequiredHeaders
	case errors.Is(err, ErrInvalidJWT),
		errors.Is(err, jwt.ErrInvalidSessionToken),
		errors.Is(err, platform.ErrSubjectTokenInvalid):
		return OutcomeExpired
	default:
		return OutcomeInternalError
	}
}
