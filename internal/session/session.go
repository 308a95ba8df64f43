// Package session owns the per-session "location permission already
// requested" state.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Eldo84/live-health-sub002/internal/model"
)

var (
	// ErrPermissionTimeout means the locator did not answer in time.
	ErrPermissionTimeout = errors.New("location permission timed out")
	// ErrNoLocator is returned when the session has nothing to ask.
	ErrNoLocator = errors.New("no locator")
)

// Locator asks the user agent for its position. Implementations block until
// the user answers or ctx ends.
type Locator interface {
	Locate(ctx context.Context) (model.Position, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (model.Position, error)

func (f LocatorFunc) Locate(ctx context.Context) (model.Position, error) { return f(ctx) }

// Session asks for the position at most once until Reset. Concurrent callers
// wait for the single outstanding request and share its outcome.
type Session struct {
	timeout time.Duration

	mu    sync.Mutex
	asked bool
	pos   model.Position
	err   error
}

func New(permissionTimeout time.Duration) *Session {
	if permissionTimeout <= 0 {
		permissionTimeout = 10 * time.Second
	}
	return &Session{timeout: permissionTimeout}
}

// RequestPosition returns the user's position, asking loc only on the first
// call. The wait is bounded by the permission timeout.
func (s *Session) RequestPosition(ctx context.Context, loc Locator) (model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.asked {
		return s.pos, s.err
	}
	if loc == nil {
		return model.Position{}, ErrNoLocator
	}
	s.asked = true

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	pos, err := loc.Locate(cctx)
	if err != nil && errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = ErrPermissionTimeout
	}
	s.pos, s.err = pos, err
	return pos, err
}

// Asked reports whether the position has been requested.
func (s *Session) Asked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asked
}

// Reset forgets the previous request so the next call asks again.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = false
	s.pos = model.Position{}
	s.err = nil
}
