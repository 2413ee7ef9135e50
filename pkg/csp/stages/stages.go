// Package stages provides ready-made inout stages.
package stages

import (
	"context"
	"errors"
	"fmt"

	"github.com/ib-77/csp3/pkg/csp"
	"github.com/ib-77/csp3/pkg/csp/channel"
	"github.com/ib-77/csp3/pkg/csp/inout"
)

// Map writes fn(v) for every input value.
func Map[In, Out any](fn func(ctx context.Context, in In) Out) inout.Hooks[In, Out] {
	return inout.Hooks[In, Out]{
		OnProcess: func(ctx context.Context, _ channel.Reader[In], out channel.Writer[Out], v In) error {
			return out.Write(ctx, fn(ctx, v))
		},
	}
}

// Try writes the result of fn. A failing value goes to onError: a nil
// return skips the value, an error stops the stage. With a nil onError
// the first failure stops the stage.
func Try[In, Out any](fn func(ctx context.Context, in In) (Out, error),
	onError func(ctx context.Context, in In, err error) error) inout.Hooks[In, Out] {
	return inout.Hooks[In, Out]{
		OnProcess: func(ctx context.Context, _ channel.Reader[In], out channel.Writer[Out], v In) error {
			res, err := fn(ctx, v)
			if err != nil {
				if onError == nil {
					return err
				}
				return onError(ctx, v, err)
			}
			return out.Write(ctx, res)
		},
	}
}

// Validate passes valid values through and reports invalid ones to onInvalid.
func Validate[T any](validate func(ctx context.Context, in T) (valid bool, errMsg string),
	onInvalid func(ctx context.Context, in T, err error)) inout.Hooks[T, T] {
	return inout.Hooks[T, T]{
		OnProcess: func(ctx context.Context, _ channel.Reader[T], out channel.Writer[T], v T) error {
			valid, errMsg := validate(ctx, v)
			if !valid {
				if onInvalid != nil {
					onInvalid(ctx, v, errors.New(errMsg))
				}
				return nil
			}
			return out.Write(ctx, v)
		},
	}
}

// Tee calls sideEffect and passes the value on unchanged.
func Tee[T any](sideEffect func(ctx context.Context, in T)) inout.Hooks[T, T] {
	return inout.Hooks[T, T]{
		OnProcess: func(ctx context.Context, _ channel.Reader[T], out channel.Writer[T], v T) error {
			sideEffect(ctx, v)
			return out.Write(ctx, v)
		},
	}
}

// Reduce folds the input into one value, written when the input ends. The
// accumulator is reset by Init, so each call to Reduce is for one stage.
func Reduce[In, Acc any](initial Acc, fn func(ctx context.Context, acc Acc, in In) Acc) inout.Hooks[In, Acc] {
	var acc Acc
	return inout.Hooks[In, Acc]{
		OnInit: func(context.Context) error {
			acc = initial
			return nil
		},
		OnProcess: func(ctx context.Context, _ channel.Reader[In], _ channel.Writer[Acc], v In) error {
			acc = fn(ctx, acc, v)
			return nil
		},
		OnPostRun: func(ctx context.Context, out channel.Writer[Acc]) error {
			return out.Write(ctx, acc)
		},
	}
}

// Sink consumes values without writing any. An error from fn stops the stage.
func Sink[T any](fn func(ctx context.Context, in T) error) inout.Hooks[T, T] {
	return inout.Hooks[T, T]{
		OnProcess: func(ctx context.Context, _ channel.Reader[T], _ channel.Writer[T], v T) error {
			return fn(ctx, v)
		},
	}
}

// CancelTo is an OnCancel hook writing brokenF(v) for every value left over
// after a cancellation. A failed write stops the draining.
func CancelTo[In, Out any](brokenF func(ctx context.Context, in In, err error) Out) func(ctx context.Context,
	in In, out channel.Writer[Out]) error {
	return func(ctx context.Context, in In, out channel.Writer[Out]) error {
		if err := out.Write(ctx, brokenF(ctx, in, csp.ErrCancelled)); err != nil {
			return fmt.Errorf("write cancel result: %w", err)
		}
		return nil
	}
}

// WithCancel returns h with its OnCancel hook set.
func WithCancel[In, Out any](h inout.Hooks[In, Out],
	onCancel func(ctx context.Context, in In, out channel.Writer[Out]) error) inout.Hooks[In, Out] {
	h.OnCancel = onCancel
	return h
}
