package domain

import (
	"time"

	"github.com/pulsefeed/pulse/pkg/idx"
)

// RefreshSession is one device's refresh grant. TokenHash is a salted
// argon2id hash of the opaque refresh token, so a presented token can
// only be matched by verifying against each of the user's live rows.
type RefreshSession struct {
	ID        idx.ID
	UserID    idx.ID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s RefreshSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// AuthOutcome is the token pair minted by login and refresh.
type AuthOutcome struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	User         PublicUser `json:"user"`
}
