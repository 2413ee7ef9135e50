package store

import "github.com/ib-77/csp3/pkg/csp"

// One is the rendezvous store: a single slot exchanged between one writer and
// one reader. It reports Full while the slot is occupied so that a second
// writer waits; a channel over One also holds the writer until its value is
// taken.
type One[T any] struct {
	value T
	held  bool
}

func NewOne[T any]() *One[T] {
	return &One[T]{}
}

func (o *One[T]) Put(v T) error {
	if o.held {
		return csp.Preconditionf("put on occupied rendezvous slot")
	}
	o.value = v
	o.held = true
	return nil
}

func (o *One[T]) Get() (T, error) {
	var zero T
	if !o.held {
		return zero, csp.Preconditionf("get on empty rendezvous slot")
	}
	v := o.value
	o.value = zero
	o.held = false
	return v, nil
}

func (o *One[T]) State() State {
	if o.held {
		return Full
	}
	return Empty
}

func (o *One[T]) Len() int {
	if o.held {
		return 1
	}
	return 0
}

func (o *One[T]) Cap() int {
	return 0
}

func (o *One[T]) Clear() {
	var zero T
	o.value = zero
	o.held = false
}
