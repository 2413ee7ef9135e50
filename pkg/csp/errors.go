package csp

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrClosed is returned when writing to a closed channel.
	ErrClosed = errors.New("csp: channel closed")
	// ErrPrecondition reports a store accessed in a state that forbids the call,
	// e.g. Get on an empty store or Put on a full one.
	ErrPrecondition = errors.New("csp: precondition violated")
	// ErrNoInputs is returned by a selector that has nothing to wait on.
	ErrNoInputs = errors.New("csp: selector has no inputs")
	// ErrNetworkClosed is returned when starting a process on a network that
	// has been shut down.
	ErrNetworkClosed = errors.New("csp: network shut down")
	// ErrCancelled marks values that were discarded because their stage was canceled.
	ErrCancelled = errors.New("csp: operation cancelled")
)

// PanicError wraps a value recovered from a panicking process together with
// the stack at the point of the panic.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic recovered: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Preconditionf builds an ErrPrecondition carrying a formatted detail.
func Preconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

func IsNil(i interface{}) bool {
	if i == nil || (reflect.ValueOf(i).Kind() == reflect.Ptr && reflect.ValueOf(i).IsNil()) {
		return true
	}
	return false
}

// GetErrors flattens an errors.Join result into its parts.
func GetErrors(err error) []error {
	if IsNil(err) {
		return []error{}
	}

	e, ok := err.(interface{ Unwrap() []error })
	if ok {
		return e.Unwrap()
	}

	return []error{err}
}

func IsCancellationError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, ErrCancelled)
}

func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}
