// Package inout is the skeleton of a process with one input and one output
// channel. A Stage supplies the domain hooks; Proc runs them:
//
//	Init -> Process for every value until end-of-stream -> PostRun -> close output
//
// Stages only ever read, write and close channels.
package inout

import (
	"context"

	"github.com/ib-77/csp3/pkg/csp/channel"
)

// Stage holds the domain logic of an In/Out process.
type Stage[In, Out any] interface {
	// Init allocates per-run resources.
	Init(ctx context.Context) error
	// Process handles one input value and may write any number of values to out.
	Process(ctx context.Context, in channel.Reader[In], out channel.Writer[Out], v In) error
	// PostRun flushes accumulated state to out before it is closed. It is
	// only called after the input reached end-of-stream.
	PostRun(ctx context.Context, out channel.Writer[Out]) error
}

// Canceler is implemented by stages that want the input left over after a
// cancellation. See core.WithProcessOptions. An error stops the draining.
type Canceler[In, Out any] interface {
	Cancel(ctx context.Context, v In, out channel.Writer[Out]) error
}

// Hooks builds a Stage from functions. Nil hooks do nothing.
type Hooks[In, Out any] struct {
	OnInit    func(ctx context.Context) error
	OnProcess func(ctx context.Context, in channel.Reader[In], out channel.Writer[Out], v In) error
	OnPostRun func(ctx context.Context, out channel.Writer[Out]) error
	OnCancel  func(ctx context.Context, v In, out channel.Writer[Out]) error
}

func (h Hooks[In, Out]) Init(ctx context.Context) error {
	if h.OnInit == nil {
		return nil
	}
	return h.OnInit(ctx)
}

func (h Hooks[In, Out]) Process(ctx context.Context, in channel.Reader[In], out channel.Writer[Out], v In) error {
	if h.OnProcess == nil {
		return nil
	}
	return h.OnProcess(ctx, in, out, v)
}

func (h Hooks[In, Out]) PostRun(ctx context.Context, out channel.Writer[Out]) error {
	if h.OnPostRun == nil {
		return nil
	}
	return h.OnPostRun(ctx, out)
}

func (h Hooks[In, Out]) Cancel(ctx context.Context, v In, out channel.Writer[Out]) error {
	if h.OnCancel == nil {
		return nil
	}
	return h.OnCancel(ctx, v, out)
}
