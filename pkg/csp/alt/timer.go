package alt

import "time"

// Timer is a deadline usable as a Selector input. It never blocks and is
// never closed; it becomes ready once the deadline has passed.
type Timer struct {
	deadline time.Time
}

func NewTimer(deadline time.Time) *Timer {
	return &Timer{deadline: deadline}
}

// After returns a Timer expiring d from now.
func After(d time.Duration) *Timer {
	return NewTimer(time.Now().Add(d))
}

func (t *Timer) Deadline() time.Time {
	return t.deadline
}

// Set moves the deadline. Not safe while a Select using t is in progress.
func (t *Timer) Set(deadline time.Time) {
	t.deadline = deadline
}

func (t *Timer) IsTimeout() bool {
	return time.Now().After(t.deadline)
}

// WaitTime is the time left until the deadline; negative once it has passed.
func (t *Timer) WaitTime() time.Duration {
	return time.Until(t.deadline)
}

func (t *Timer) Enable(Waker) bool {
	return t.IsTimeout()
}

func (t *Timer) Disable(Waker) {}

func (t *Timer) IsClosed() bool {
	return false
}
