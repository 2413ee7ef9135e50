// Package channel implements typed point-to-point CSP channels over a
// pluggable store.Store.
//
// Writers block while the store is full, readers block while it is empty, and
// Close is the only cancellation primitive: it wakes every blocked party,
// makes later writes fail with csp.ErrClosed and lets readers drain what is
// left before they see end-of-stream. A channel is also an alt.Input, so its
// read end can take part in a Selector.
package channel

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ib-77/csp3/pkg/csp"
	"github.com/ib-77/csp3/pkg/csp/alt"
	"github.com/ib-77/csp3/pkg/csp/store"
)

// Reader is the read end of a channel.
type Reader[T any] interface {
	// Read returns the next value. ok is false at end-of-stream, i.e. when
	// the channel is closed and drained.
	Read(ctx context.Context) (v T, ok bool, err error)
}

// Writer is the write end of a channel.
type Writer[T any] interface {
	Write(ctx context.Context, v T) error
}

// WriteCloser is a write end that the producer closes when done.
type WriteCloser[T any] interface {
	Writer[T]
	Close()
}

// Observer receives channel events, e.g. for metrics.
type Observer interface {
	Wrote(channel string)
	Read(channel string)
	Blocked(channel, op string)
	Closed(channel string)
}

// Channel is a blocking channel. The zero value is not usable; build one with New.
type Channel[T any] struct {
	id       uuid.UUID
	name     string
	logger   *zap.Logger
	observer Observer

	mu     sync.Mutex
	store  store.Store[T]
	closed bool

	// each signal is closed and replaced to wake everybody waiting on it
	notEmpty chan struct{}
	notFull  chan struct{}
	taken    chan struct{}

	readers int
	writers int

	// put/got sequence numbers pair a rendezvous writer with its reader
	put uint64
	got uint64

	reads  uint64
	writes uint64

	selectors map[alt.Waker]struct{}
}

// New builds a channel owning a fresh store from factory.
func New[T any](factory store.Factory[T], opts ...Option) *Channel[T] {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Channel[T]{
		id:        uuid.New(),
		name:      o.name,
		logger:    o.logger,
		observer:  o.observer,
		store:     factory(),
		notEmpty:  make(chan struct{}),
		notFull:   make(chan struct{}),
		taken:     make(chan struct{}),
		selectors: make(map[alt.Waker]struct{}),
	}
	if c.name == "" {
		c.name = c.id.String()
	}
	return c
}

// NewOne builds a rendezvous channel: Write returns once a reader took the value.
func NewOne[T any](opts ...Option) *Channel[T] {
	return New(store.OneFactory[T](), opts...)
}

// NewBuffered builds a FIFO channel holding up to size values.
func NewBuffered[T any](size int, opts ...Option) *Channel[T] {
	return New(store.BufferFactory[T](size), opts...)
}

// NewUnbounded builds a FIFO channel whose writers never block.
func NewUnbounded[T any](opts ...Option) *Channel[T] {
	return New(store.UnboundedFactory[T](), opts...)
}

func (c *Channel[T]) ID() uuid.UUID {
	return c.id
}

func (c *Channel[T]) Name() string {
	return c.name
}

// Write stores v, blocking while the store is full. On a rendezvous channel it
// also waits until a reader has taken v. It fails with csp.ErrClosed once the
// channel is closed, and with ctx.Err() if ctx ends while blocked; in both
// cases a rendezvous value that was not taken is withdrawn.
func (c *Channel[T]) Write(ctx context.Context, v T) error {
	c.mu.Lock()
	for {
		if c.closed {
			c.mu.Unlock()
			return csp.ErrClosed
		}
		if c.store.State() != store.Full {
			break
		}

		wait := c.notFull
		c.writers++
		c.mu.Unlock()
		c.observe(func(o Observer) { o.Blocked(c.name, "write") })

		select {
		case <-wait:
		case <-ctx.Done():
			c.mu.Lock()
			c.writers--
			c.mu.Unlock()
			return ctx.Err()
		}

		c.mu.Lock()
		c.writers--
	}

	wasEmpty := c.store.State() == store.Empty
	if err := c.store.Put(v); err != nil {
		c.mu.Unlock()
		return err
	}
	c.put++
	ticket := c.put
	if wasEmpty {
		c.signalNotEmpty()
	}

	if c.store.Cap() == 0 {
		if err := c.awaitTaken(ctx, ticket); err != nil {
			c.mu.Unlock()
			return err
		}
	}

	c.writes++
	c.mu.Unlock()
	c.observe(func(o Observer) { o.Wrote(c.name) })
	return nil
}

// awaitTaken holds a rendezvous writer until its value is read. Called and
// returns with c.mu held.
func (c *Channel[T]) awaitTaken(ctx context.Context, ticket uint64) error {
	for c.got < ticket {
		if c.closed {
			c.withdraw()
			return csp.ErrClosed
		}

		wait := c.taken
		c.writers++
		c.mu.Unlock()

		select {
		case <-wait:
			c.mu.Lock()
			c.writers--
		case <-ctx.Done():
			c.mu.Lock()
			c.writers--
			if c.got < ticket {
				c.withdraw()
				return ctx.Err()
			}
			return nil
		}
	}
	return nil
}

// withdraw removes an untaken rendezvous value. The slot holds only that value.
func (c *Channel[T]) withdraw() {
	if _, err := c.store.Get(); err != nil {
		c.logger.Error("withdraw rendezvous value", zap.String("channel", c.name), zap.Error(err))
		return
	}
	c.got++
	c.signalNotFull()
}

// Read returns the oldest value, blocking while the store is empty. At
// end-of-stream it returns ok == false and a nil error.
func (c *Channel[T]) Read(ctx context.Context) (T, bool, error) {
	var zero T

	c.mu.Lock()
	for c.store.State() == store.Empty {
		if c.closed {
			c.mu.Unlock()
			return zero, false, nil
		}

		wait := c.notEmpty
		c.readers++
		c.mu.Unlock()
		c.observe(func(o Observer) { o.Blocked(c.name, "read") })

		select {
		case <-wait:
		case <-ctx.Done():
			c.mu.Lock()
			c.readers--
			c.mu.Unlock()
			return zero, false, ctx.Err()
		}

		c.mu.Lock()
		c.readers--
	}

	wasFull := c.store.State() == store.Full
	v, err := c.store.Get()
	if err != nil {
		c.mu.Unlock()
		return zero, false, err
	}
	c.got++
	c.reads++
	if wasFull {
		c.signalNotFull()
	}
	if c.store.Cap() == 0 {
		c.signalTaken()
	}
	c.mu.Unlock()

	c.observe(func(o Observer) { o.Read(c.name) })
	return v, true, nil
}

// Close marks the channel closed and wakes every blocked reader, writer and
// selector. Values still stored stay readable. Closing twice is a no-op.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.notEmpty)
	close(c.notFull)
	close(c.taken)
	for w := range c.selectors {
		w.Wake()
	}
	pending := c.store.Len()
	c.mu.Unlock()

	c.logger.Debug("channel closed", zap.String("channel", c.name), zap.Int("pending", pending))
	c.observe(func(o Observer) { o.Closed(c.name) })
}

func (c *Channel[T]) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Enable implements alt.Input: the read end is ready when a value is stored
// or the channel is closed.
func (c *Channel[T]) Enable(w alt.Waker) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.store.State() != store.Empty {
		return true
	}
	c.selectors[w] = struct{}{}
	return false
}

func (c *Channel[T]) Disable(w alt.Waker) {
	c.mu.Lock()
	delete(c.selectors, w)
	c.mu.Unlock()
}

// Stats is a point-in-time view of a channel.
type Stats struct {
	Len            int
	BlockedReaders int
	BlockedWriters int
	Reads          uint64
	Writes         uint64
	Dropped        uint64
	Closed         bool
}

func (c *Channel[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Len:            c.store.Len(),
		BlockedReaders: c.readers,
		BlockedWriters: c.writers,
		Reads:          c.reads,
		Writes:         c.writes,
		Closed:         c.closed,
	}
	if d, ok := c.store.(store.Dropper); ok {
		s.Dropped = d.Dropped()
	}
	return s
}

func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Len()
}

func (c *Channel[T]) State() store.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.State()
}

// signal helpers are called with c.mu held. Waiters re-check the store state
// under the lock, so a broadcast lets exactly as many through as the state allows.
// Once closed nobody waits again and the signals stay closed.

func (c *Channel[T]) signalNotEmpty() {
	if c.closed {
		return
	}
	if c.readers > 0 {
		close(c.notEmpty)
		c.notEmpty = make(chan struct{})
	}
	for w := range c.selectors {
		w.Wake()
	}
}

func (c *Channel[T]) signalNotFull() {
	if !c.closed && c.writers > 0 {
		close(c.notFull)
		c.notFull = make(chan struct{})
	}
}

func (c *Channel[T]) signalTaken() {
	if !c.closed && c.writers > 0 {
		close(c.taken)
		c.taken = make(chan struct{})
	}
}

func (c *Channel[T]) observe(fn func(o Observer)) {
	if c.observer != nil {
		fn(c.observer)
	}
}
