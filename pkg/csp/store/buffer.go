package store

import (
	"github.com/emirpasic/gods/queues"
	"github.com/emirpasic/gods/queues/circularbuffer"
	"github.com/emirpasic/gods/queues/linkedlistqueue"

	"github.com/ib-77/csp3/pkg/csp"
)

// Policy decides what a bounded buffer does with a Put while it holds maxSize values.
type Policy int

const (
	// Block reports Full so the channel suspends the writer.
	Block Policy = iota
	// DiscardNewest silently drops the incoming value.
	DiscardNewest
	// OverwriteOldest evicts the oldest value to make room.
	OverwriteOldest
)

func (p Policy) String() string {
	switch p {
	case Block:
		return "block"
	case DiscardNewest:
		return "discard-newest"
	case OverwriteOldest:
		return "overwrite-oldest"
	default:
		return "unknown"
	}
}

type Option func(*options)

type options struct {
	policy Policy
}

// WithPolicy sets the overflow policy of a bounded buffer. It has no effect on
// unbounded buffers.
func WithPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithDiscardOnFull is WithPolicy(DiscardNewest): the buffer never reports
// Full and excess writes are dropped.
func WithDiscardOnFull() Option {
	return WithPolicy(DiscardNewest)
}

// Buffer is a FIFO store. With maxSize > 0 it reports Full once it holds
// maxSize values (unless an overflow policy suppresses it); with maxSize <= 0
// it is unbounded.
type Buffer[T any] struct {
	maxSize int
	policy  Policy
	queue   queues.Queue
	dropped uint64
}

func NewBuffer[T any](maxSize int, opts ...Option) *Buffer[T] {
	o := options{policy: Block}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Buffer[T]{policy: o.policy}
	if maxSize > 0 {
		b.maxSize = maxSize
		b.queue = circularbuffer.New(maxSize)
	} else {
		b.queue = linkedlistqueue.New()
	}
	return b
}

func (b *Buffer[T]) bounded() bool {
	return b.maxSize > 0
}

func (b *Buffer[T]) atLimit() bool {
	return b.bounded() && b.queue.Size() >= b.maxSize
}

func (b *Buffer[T]) Put(v T) error {
	if b.State() == Full {
		return csp.Preconditionf("put on full buffer (size %d)", b.maxSize)
	}

	if b.atLimit() {
		switch b.policy {
		case DiscardNewest:
			b.dropped++
			return nil
		case OverwriteOldest:
			b.queue.Dequeue()
			b.dropped++
		}
	}

	b.queue.Enqueue(v)
	return nil
}

func (b *Buffer[T]) Get() (T, error) {
	var zero T
	raw, ok := b.queue.Dequeue()
	if !ok {
		return zero, csp.Preconditionf("get on empty buffer")
	}
	// comma-ok keeps a stored nil interface value from panicking
	v, _ := raw.(T)
	return v, nil
}

func (b *Buffer[T]) State() State {
	switch {
	case b.queue.Empty():
		return Empty
	case b.policy == Block && b.atLimit():
		return Full
	default:
		return NonEmptyFull
	}
}

func (b *Buffer[T]) Len() int {
	return b.queue.Size()
}

func (b *Buffer[T]) Cap() int {
	if !b.bounded() {
		return Unbounded
	}
	return b.maxSize
}

func (b *Buffer[T]) Clear() {
	b.queue.Clear()
}

func (b *Buffer[T]) Policy() Policy {
	return b.policy
}

// Dropped counts values lost to the overflow policy.
func (b *Buffer[T]) Dropped() uint64 {
	return b.dropped
}
