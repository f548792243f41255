package htmlpdf

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// statusPolicy decides which main-response status codes are fatal.
type statusPolicy struct {
	fail4xx *bool
	fail5xx *bool
}

// fatal reports whether code fails the call. A nil toggle counts as true.
func (p statusPolicy) fatal(code int) bool {
	switch {
	case code >= 400 && code <= 499:
		return p.fail4xx == nil || *p.fail4xx
	case code >= 500 && code <= 599:
		return p.fail5xx == nil || *p.fail5xx
	}
	return false
}

// navState tracks the main navigation request of one call. Event listeners
// write it; the supervisor reads it.
type navState struct {
	mu            sync.Mutex
	mainRequestID string
	failure       error
	status        int
}

// latchMain records id as the main request unless one is already set.
func (s *navState) latchMain(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mainRequestID == "" {
		s.mainRequestID = id
	}
}

// isMain reports whether id is the latched main request.
func (s *navState) isMain(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return id != "" && id == s.mainRequestID
}

// markFailed latches the first navigation failure. err must wrap
// ErrNavigationFailed.
func (s *navState) markFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure == nil {
		s.failure = err
	}
}

func (s *navState) recordStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = code
}

func (s *navState) snapshot() (failure error, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure, s.status
}

// supervisor owns the deadline of one call. Its timer is the only writer of
// the timed-out flag; every stage consults checkAlive around each round trip.
type supervisor struct {
	parent   context.Context
	ctx      context.Context
	cancel   context.CancelFunc
	timer    *time.Timer
	timedOut atomic.Bool
	state    *navState
	policy   statusPolicy
}

// newSupervisor arms the deadline when armed is true and timeout is not
// negative. A zero timeout is expired on return.
func newSupervisor(parent context.Context, timeout time.Duration, armed bool, state *navState, policy statusPolicy) *supervisor {
	ctx, cancel := context.WithCancel(parent)
	s := &supervisor{
		parent: parent,
		ctx:    ctx,
		cancel: cancel,
		state:  state,
		policy: policy,
	}

	switch {
	case !armed || timeout < 0:
	case timeout == 0:
		s.expire()
	default:
		s.timer = time.AfterFunc(timeout, s.expire)
	}
	return s
}

// expire marks the call as timed out and aborts outstanding waits.
func (s *supervisor) expire() {
	s.timedOut.Store(true)
	s.cancel()
}

// context returns the context protocol calls should run under.
func (s *supervisor) context() context.Context {
	return s.ctx
}

// stop disarms the timer and releases the derived context.
func (s *supervisor) stop() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.cancel()
}

// checkAlive returns the first reason the call must not continue, or nil.
func (s *supervisor) checkAlive() error {
	if s.timedOut.Load() {
		return ErrTimedOut
	}
	if err := s.parent.Err(); err != nil {
		return err
	}

	failure, status := s.state.snapshot()
	if failure != nil {
		return failure
	}
	if status != 0 && s.policy.fatal(status) {
		return &HTTPStatusError{StatusCode: status}
	}
	return nil
}

// guard runs fn between two checkpoints. A failing checkpoint after fn
// supersedes fn's own result.
func (s *supervisor) guard(fn func() error) error {
	if err := s.checkAlive(); err != nil {
		return err
	}
	err := fn()
	if aliveErr := s.checkAlive(); aliveErr != nil {
		return aliveErr
	}
	return err
}
