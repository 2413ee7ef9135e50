package inout

import (
	"context"

	"github.com/ib-77/csp3/pkg/csp"
	"github.com/ib-77/csp3/pkg/csp/channel"
)

type CancellationHandlers[In, Out any] struct {
	// OnCancel gets the input still unread when the loop was canceled.
	OnCancel func(ctx context.Context, in channel.Reader[In], out channel.Writer[Out])
	// OnCancelUnprocessed gets a value that was read but not processed.
	OnCancelUnprocessed func(ctx context.Context, unprocessed In, out channel.Writer[Out])
}

// Locomotive drives one stage: it reads in until end-of-stream and hands
// every value to stage.Process. It returns nil at end-of-stream, the stage's
// error if Process fails, and ctx.Err() when canceled.
func Locomotive[In, Out any](ctx context.Context, in channel.Reader[In], out channel.Writer[Out],
	stage Stage[In, Out], handlers CancellationHandlers[In, Out],
	onSuccess func(ctx context.Context, v In)) error {

	for {
		if err := ctx.Err(); err != nil {
			if handlers.OnCancel != nil {
				handlers.OnCancel(ctx, in, out)
			}
			return err
		}

		v, ok, err := in.Read(ctx)
		if err != nil {
			if csp.IsCancellationError(err) && handlers.OnCancel != nil {
				handlers.OnCancel(ctx, in, out)
			}
			return err
		}
		if !ok {
			return nil
		}

		if err := ctx.Err(); err != nil {
			if handlers.OnCancelUnprocessed != nil {
				handlers.OnCancelUnprocessed(ctx, v, out)
			}
			if handlers.OnCancel != nil {
				handlers.OnCancel(ctx, in, out)
			}
			return err
		}

		if err := stage.Process(ctx, in, out, v); err != nil {
			return err
		}
		if onSuccess != nil {
			onSuccess(ctx, v)
		}
	}
}
