package alt

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/csp3/pkg/csp"
)

// flag is a minimal Input whose readiness is set from the test.
type flag struct {
	mu      sync.Mutex
	ready   bool
	closed  bool
	waker   Waker
	enabled int
}

func (f *flag) Enable(w Waker) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled++
	if f.ready || f.closed {
		return true
	}
	f.waker = w
	return false
}

func (f *flag) Disable(Waker) {
	f.mu.Lock()
	f.waker = nil
	f.mu.Unlock()
}

func (f *flag) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *flag) set() {
	f.mu.Lock()
	f.ready = true
	w := f.waker
	f.mu.Unlock()
	if w != nil {
		w.Wake()
	}
}

func TestTimer(t *testing.T) {
	t.Parallel()

	past := NewTimer(time.Now().Add(-time.Second))
	assert.True(t, past.IsTimeout())
	assert.Negative(t, past.WaitTime())
	assert.True(t, past.Enable(nil))
	assert.False(t, past.IsClosed())

	future := After(time.Hour)
	assert.False(t, future.IsTimeout())
	assert.Greater(t, future.WaitTime(), 59*time.Minute)
	assert.False(t, future.Enable(nil))

	future.Set(time.Now().Add(-time.Millisecond))
	assert.True(t, future.IsTimeout())
}

func TestSelect_NoInputs(t *testing.T) {
	t.Parallel()

	_, err := NewSelector().Select(context.Background())
	assert.ErrorIs(t, err, csp.ErrNoInputs)
}

func TestSelect_ImmediateLowestIndex(t *testing.T) {
	t.Parallel()

	a, b, c := &flag{}, &flag{ready: true}, &flag{ready: true}
	s := NewSelector(a, b, c)

	i, err := s.Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	assert.Zero(t, c.enabled, "enabling stops at the first ready input")
}

func TestSelect_WokenByInput(t *testing.T) {
	t.Parallel()

	a, b := &flag{}, &flag{}
	s := NewSelector(a, b)

	go func() {
		time.Sleep(20 * time.Millisecond)
		b.set()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	i, err := s.Select(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func TestSelect_ClosedIsReady(t *testing.T) {
	t.Parallel()

	s := NewSelector(&flag{}, &flag{closed: true})
	i, err := s.Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func TestSelect_TimerExpires(t *testing.T) {
	t.Parallel()

	s := NewSelector(&flag{}, &flag{})
	ti := s.Add(After(50 * time.Millisecond))

	start := time.Now()
	i, err := s.Select(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, ti, i)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestSelect_ShortestTimerWins(t *testing.T) {
	t.Parallel()

	s := NewSelector(After(time.Hour), After(10*time.Millisecond))
	i, err := s.Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func TestSelect_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	f := &flag{}
	i, err := NewSelector(f).Select(ctx)
	assert.Equal(t, -1, i)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, f.waker, "inputs are disabled on return")
}

func TestPoll(t *testing.T) {
	t.Parallel()

	f := &flag{}
	s := NewSelector(f)
	_, ok := s.Poll()
	assert.False(t, ok)

	f.set()
	i, ok := s.Poll()
	assert.True(t, ok)
	assert.Equal(t, 0, i)
}
