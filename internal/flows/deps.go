package flows

import (
	"context"

	"github.com/MrEthical07/goShopAuth/session"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Exchange    TokenExchangeDeps
	EnsureFresh EnsureFreshDeps
}

// SessionWriter is the subset of session.Store the flows persist through.
type SessionWriter interface {
	Store(ctx context.Context, sess *session.Session) error
}
