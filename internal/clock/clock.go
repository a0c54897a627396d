// Package clock abstracts wall-clock time so token expiry can be tested
// deterministically.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

// System returns the current wall-clock time.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Fixed always returns the same instant until moved with Advance.
// Safe for concurrent use.
type Fixed struct {
	mu sync.Mutex
	T  time.Time
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.T
}

func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.T = f.T.Add(d)
	f.mu.Unlock()
}
