package session

import (
	"context"
	"errors"
)

// ErrStoreUnavailable wraps backend failures so callers can tell them apart from a miss.
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrInvalidSession is returned when a caller tries to persist a session without an ID, shop
// or access token.
var ErrInvalidSession = errors.New("invalid session")

// Store is the credential persistence contract consumed by the engine.
//
// Implementations must be safe for concurrent use and atomic per session ID: a Load never
// observes a partially written session. Last write wins.
type Store interface {
	// Load returns the session with the given ID, or (nil, nil) when none exists.
	Load(ctx context.Context, id string) (*Session, error)
	// Store persists the session under its ID, replacing any previous value.
	Store(ctx context.Context, sess *Session) error
	// Delete removes the given sessions. Missing IDs are not an error.
	Delete(ctx context.Context, ids ...string) error
	// FindByShop returns every session stored for the shop.
	FindByShop(ctx context.Context, shop string) ([]*Session, error)
}

func validateForStore(sess *Session) error {
	switch {
	case sess == nil:
		return ErrInvalidSession
	case sess.ID == "":
		return errors.Join(ErrInvalidSession, errors.New("missing id"))
	case sess.Shop == "":
		return errors.Join(ErrInvalidSession, errors.New("missing shop"))
	case sess.AccessToken == "":
		return errors.Join(ErrInvalidSession, errors.New("missing access token"))
	}
	return nil
}
