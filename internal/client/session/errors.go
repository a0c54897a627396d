package session

import (
	"errors"
	"fmt"
)

// ErrInvalidSession is the umbrella for every reason a session is unusable.
// The specific errors below all match it with errors.Is.
var ErrInvalidSession = errors.New("invalid session")

var (
	ErrNoToken        = fmt.Errorf("%w: no token", ErrInvalidSession)
	ErrMalformedToken = fmt.Errorf("%w: malformed token", ErrInvalidSession)
	ErrTokenExpired   = fmt.Errorf("%w: token expired", ErrInvalidSession)
)
