package store

// State is the capacity state of a store.
type State int

const (
	// Empty holds no values; Get is not allowed.
	Empty State = iota
	// NonEmptyFull holds values and still accepts Put.
	NonEmptyFull
	// Full accepts no Put until a value is taken.
	Full
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case NonEmptyFull:
		return "nonempty"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// Unbounded is the Cap of a store that never reports Full.
const Unbounded = -1

// Store is the storage strategy behind a channel. Implementations are not
// safe for concurrent use; the owning channel serializes every call.
type Store[T any] interface {
	// Put stores v. It fails with csp.ErrPrecondition when State is Full.
	Put(v T) error
	// Get removes and returns the oldest value. It fails with
	// csp.ErrPrecondition when State is Empty.
	Get() (T, error)
	State() State
	Len() int
	// Cap is 0 for a rendezvous store, Unbounded for an unbounded buffer and
	// the maximum size otherwise.
	Cap() int
	// Clear drops every stored value.
	Clear()
}

// Factory builds a fresh store with a fixed configuration. Two calls never
// share queued data.
type Factory[T any] func() Store[T]

// OneFactory builds rendezvous stores.
func OneFactory[T any]() Factory[T] {
	return func() Store[T] {
		return NewOne[T]()
	}
}

// BufferFactory builds FIFO buffers holding up to maxSize values
// (maxSize <= 0 is unbounded).
func BufferFactory[T any](maxSize int, opts ...Option) Factory[T] {
	return func() Store[T] {
		return NewBuffer[T](maxSize, opts...)
	}
}

// UnboundedFactory builds FIFO buffers that never report Full.
func UnboundedFactory[T any]() Factory[T] {
	return BufferFactory[T](0)
}

// Dropper is implemented by stores with an overflow policy that discards values.
type Dropper interface {
	Dropped() uint64
}
