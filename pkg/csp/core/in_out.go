package core

import (
	"context"

	"github.com/ib-77/csp3/pkg/csp/channel"
)

type FeedHandlers[T any] struct {
	OnStartFail func(ctx context.Context, input []T)
	OnSuccess   func(ctx context.Context, input T)
	OnBreak     func(ctx context.Context, rest []T, err error)
}

// FromSliceWithHandlers writes values to ch in order and closes it. When a
// write fails (ctx done, channel closed) the unwritten tail goes to OnBreak.
func FromSliceWithHandlers[T any](ctx context.Context, ch channel.WriteCloser[T],
	handlers FeedHandlers[T], values ...T) error {
	defer ch.Close()

	if err := ctx.Err(); err != nil {
		if handlers.OnStartFail != nil {
			handlers.OnStartFail(ctx, values)
		}
		return err
	}

	for i, v := range values {
		if err := ch.Write(ctx, v); err != nil {
			if handlers.OnBreak != nil {
				handlers.OnBreak(ctx, values[i:], err)
			}
			return err
		}
		if handlers.OnSuccess != nil {
			handlers.OnSuccess(ctx, v)
		}
	}
	return nil
}

// FromSlice writes values to ch in order, then closes it.
func FromSlice[T any](ctx context.Context, ch channel.WriteCloser[T], values ...T) error {
	return FromSliceWithHandlers(ctx, ch, FeedHandlers[T]{}, values...)
}

// Feed runs FromSlice on its own goroutine; the returned channel yields its error.
func Feed[T any](ctx context.Context, ch channel.WriteCloser[T], values ...T) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- FromSlice(ctx, ch, values...)
	}()
	return errCh
}

// ToSlice reads ch until end-of-stream. On error it returns what was read so far.
func ToSlice[T any](ctx context.Context, ch channel.Reader[T]) ([]T, error) {
	res := make([]T, 0)
	for {
		v, ok, err := ch.Read(ctx)
		if err != nil {
			return res, err
		}
		if !ok {
			return res, nil
		}
		res = append(res, v)
	}
}

// FirstOrDefault reads one value, falling back to defaultV at end-of-stream or on error.
func FirstOrDefault[T any](ctx context.Context, ch channel.Reader[T], defaultV T) T {
	v, ok, err := ch.Read(ctx)
	if err != nil || !ok {
		return defaultV
	}
	return v
}
