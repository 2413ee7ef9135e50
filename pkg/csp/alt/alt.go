// Package alt implements alternation: blocking on several selectable inputs
// (channel read ends, deadline timers) and proceeding with whichever becomes
// ready first.
package alt

import (
	"context"
	"time"

	"github.com/ib-77/csp3/pkg/csp"
)

// Waker receives readiness notifications from an enabled input. Wake must not block.
type Waker interface {
	Wake()
}

// Input is anything a Selector can wait on.
type Input interface {
	// Enable registers w for notifications and reports whether the input is
	// already ready. A closed input is always ready.
	Enable(w Waker) bool
	// Disable removes the registration made by Enable.
	Disable(w Waker)
	IsClosed() bool
}

// Selector waits until one of its inputs is ready. A Selector must be used by
// one goroutine at a time; concurrent Select calls on the same instance are
// not supported.
type Selector struct {
	inputs []Input
	wake   chan struct{}
}

func NewSelector(inputs ...Input) *Selector {
	return &Selector{
		inputs: inputs,
		wake:   make(chan struct{}, 1),
	}
}

// Add appends an input and returns its index.
func (s *Selector) Add(in Input) int {
	s.inputs = append(s.inputs, in)
	return len(s.inputs) - 1
}

func (s *Selector) Len() int {
	return len(s.inputs)
}

// Wake implements Waker.
func (s *Selector) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Select blocks until an input is ready and returns the lowest ready index.
// Timers bound the wait; without a timer Select waits until an input becomes
// ready or ctx is done.
func (s *Selector) Select(ctx context.Context) (int, error) {
	if len(s.inputs) == 0 {
		return -1, csp.ErrNoInputs
	}

	for {
		s.drainWake()

		if i := s.enable(); i >= 0 {
			s.disable()
			return i, nil
		}

		wait, bounded := s.timeout()
		if bounded && wait <= 0 {
			// deadline reached but not yet passed
			s.disable()
			continue
		}

		var timerC <-chan time.Time
		var timer *time.Timer
		if bounded {
			timer = time.NewTimer(wait)
			timerC = timer.C
		}

		select {
		case <-s.wake:
		case <-timerC:
		case <-ctx.Done():
			stopTimer(timer)
			s.disable()
			return -1, ctx.Err()
		}

		stopTimer(timer)
		s.disable()
	}
}

// Poll reports the lowest ready index without blocking.
func (s *Selector) Poll() (int, bool) {
	i := s.enable()
	s.disable()
	return i, i >= 0
}

func (s *Selector) enable() int {
	for i, in := range s.inputs {
		if in.Enable(s) {
			return i
		}
	}
	return -1
}

func (s *Selector) disable() {
	for _, in := range s.inputs {
		in.Disable(s)
	}
}

func (s *Selector) drainWake() {
	select {
	case <-s.wake:
	default:
	}
}

// timeout returns the smallest wait among the timers, if any.
func (s *Selector) timeout() (time.Duration, bool) {
	var (
		shortest time.Duration
		bounded  bool
	)
	for _, in := range s.inputs {
		t, ok := in.(*Timer)
		if !ok {
			continue
		}
		w := t.WaitTime()
		if !bounded || w < shortest {
			shortest = w
			bounded = true
		}
	}
	return shortest, bounded
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
