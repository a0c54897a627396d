// Package session derives the authenticated identity from the stored bearer
// token and gates access to the list screen.
//
// The client has no signing key, so tokens are decoded, not verified: the
// server stays the judge of authenticity. Expiry is checked locally and an
// expired token is evicted from the credential store the first time it is
// noticed; there is no background timer.
package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is what the client learns from a token.
type Identity struct {
	SubjectID int64
	ExpiresAt time.Time
}

type State int

const (
	StateNone State = iota
	StateActive
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	default:
		return "none"
	}
}

// Session is an explicit snapshot of the login state. Token and Identity
// are set only when State is StateActive.
type Session struct {
	Token    string
	Identity Identity
	State    State
}

func (s Session) Active() bool {
	return s.State == StateActive
}

// Claims is the token payload the backend issues.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// Decode extracts the identity from a signed token without verifying the
// signature. A token lacking user_id or exp is malformed.
func Decode(token string) (Identity, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	if claims.UserID == 0 {
		return Identity{}, fmt.Errorf("%w: missing user_id", ErrMalformedToken)
	}
	if claims.ExpiresAt == nil {
		return Identity{}, fmt.Errorf("%w: missing exp", ErrMalformedToken)
	}
	return Identity{SubjectID: claims.UserID, ExpiresAt: claims.ExpiresAt.Time}, nil
}
