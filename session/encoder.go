package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	sessionFormatVersionCurrent = 2
	sessionFormatVersionV1      = 1
)

// ErrSessionCorrupt is returned when a stored blob cannot be decoded.
var ErrSessionCorrupt = errors.New("session corrupt")

// ErrUnsupportedVersion is returned for blobs written by a newer schema.
var ErrUnsupportedVersion = errors.New("unsupported session schema version")

// record is the wire form. v1 stored expiry as unix seconds; v2 stores milliseconds and adds
// the refresh token expiry.
type record struct {
	Version             int               `json:"v"`
	ID                  string            `json:"id"`
	Shop                string            `json:"shop"`
	State               string            `json:"state,omitempty"`
	IsOnline            bool              `json:"is_online"`
	Scope               string            `json:"scope,omitempty"`
	AccessToken         string            `json:"access_token"`
	RefreshToken        string            `json:"refresh_token,omitempty"`
	Expires             int64             `json:"expires,omitempty"`
	RefreshTokenExpires int64             `json:"refresh_token_expires,omitempty"`
	OnlineAccessInfo    *OnlineAccessInfo `json:"online_access_info,omitempty"`
}

// Encode serialises a session with the current schema version.
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}
	rec := record{
		Version:          sessionFormatVersionCurrent,
		ID:               s.ID,
		Shop:             s.Shop,
		State:            s.State,
		IsOnline:         s.IsOnline,
		Scope:            s.Scope,
		AccessToken:      s.AccessToken,
		RefreshToken:     s.RefreshToken,
		OnlineAccessInfo: s.OnlineAccessInfo,
	}
	if s.Expires != nil {
		rec.Expires = s.Expires.UnixMilli()
	}
	if s.RefreshTokenExpires != nil {
		rec.RefreshTokenExpires = s.RefreshTokenExpires.UnixMilli()
	}
	return json.Marshal(rec)
}

// Decode parses a blob produced by [Encode], migrating older schema versions forward.
func Decode(data []byte) (*Session, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}

	var toTime func(int64) *time.Time
	switch rec.Version {
	case sessionFormatVersionV1:
		toTime = func(v int64) *time.Time {
			if v == 0 {
				return nil
			}
			t := time.Unix(v, 0)
			return &t
		}
	case sessionFormatVersionCurrent:
		toTime = func(v int64) *time.Time {
			if v == 0 {
				return nil
			}
			t := time.UnixMilli(v)
			return &t
		}
	default:
		if rec.Version > sessionFormatVersionCurrent {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, rec.Version)
		}
		return nil, fmt.Errorf("%w: missing schema version", ErrSessionCorrupt)
	}

	if rec.ID == "" || rec.Shop == "" {
		return nil, fmt.Errorf("%w: missing id or shop", ErrSessionCorrupt)
	}

	return &Session{
		ID:                  rec.ID,
		Shop:                rec.Shop,
		State:               rec.State,
		IsOnline:            rec.IsOnline,
		Scope:               rec.Scope,
		AccessToken:         rec.AccessToken,
		RefreshToken:        rec.RefreshToken,
		Expires:             toTime(rec.Expires),
		RefreshTokenExpires: toTime(rec.RefreshTokenExpires),
		OnlineAccessInfo:    rec.OnlineAccessInfo,
	}, nil
}
