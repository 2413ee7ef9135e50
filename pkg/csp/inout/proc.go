package inout

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ib-77/csp3/pkg/csp/channel"
	"github.com/ib-77/csp3/pkg/csp/core"
)

// State is the lifecycle position of a Proc.
type State int32

const (
	Created State = iota
	Initialized
	Running
	Draining
	Closed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

type Option[In, Out any] func(*Proc[In, Out])

func WithLogger[In, Out any](logger *zap.Logger) Option[In, Out] {
	return func(p *Proc[In, Out]) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithCleanupTimeout bounds PostRun and the draining of canceled input.
// Zero means no bound.
func WithCleanupTimeout[In, Out any](d time.Duration) Option[In, Out] {
	return func(p *Proc[In, Out]) {
		p.cleanupTimeout = d
	}
}

// WithOnSuccess is called after every value the stage processed without error.
func WithOnSuccess[In, Out any](fn func(ctx context.Context, v In)) Option[In, Out] {
	return func(p *Proc[In, Out]) {
		p.onSuccess = fn
	}
}

// WithOnStateChange is called with every state the Proc enters, in order.
func WithOnStateChange[In, Out any](fn func(s State)) Option[In, Out] {
	return func(p *Proc[In, Out]) {
		p.onState = fn
	}
}

// withCloser replaces closing the output, used by replicas sharing it.
func withCloser[In, Out any](fn func()) Option[In, Out] {
	return func(p *Proc[In, Out]) {
		p.closeOut = fn
	}
}

// Proc runs a Stage between an input and an output channel. It implements
// process.Process. A Proc runs once.
type Proc[In, Out any] struct {
	name           string
	in             channel.Reader[In]
	out            channel.WriteCloser[Out]
	stage          Stage[In, Out]
	logger         *zap.Logger
	cleanupTimeout time.Duration
	onSuccess      func(ctx context.Context, v In)
	onState        func(s State)
	closeOut       func()

	state atomic.Int32
}

func New[In, Out any](name string, in channel.Reader[In], out channel.WriteCloser[Out],
	stage Stage[In, Out], opts ...Option[In, Out]) *Proc[In, Out] {

	p := &Proc[In, Out]{
		name:   name,
		in:     in,
		out:    out,
		stage:  stage,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.closeOut == nil {
		p.closeOut = out.Close
	}
	return p
}

func (p *Proc[In, Out]) Name() string {
	return p.name
}

func (p *Proc[In, Out]) State() State {
	return State(p.state.Load())
}

func (p *Proc[In, Out]) setState(s State) {
	p.state.Store(int32(s))
	if p.onState != nil {
		p.onState(s)
	}
}

// Run executes the stage. The output is closed when Run returns, whatever
// the outcome. When ctx is canceled and core.IsProcessRemainingEnabled is
// set, the unread input is handed to the stage's Cancel hook, if it has one.
// When the stage fails, the input is closed too so upstream writers stop.
func (p *Proc[In, Out]) Run(ctx context.Context) (err error) {
	log := p.logger.With(zap.String("stage", p.name))
	defer func() {
		p.closeOut()
		p.setState(Closed)
		if err != nil {
			log.Debug("stage stopped", zap.Error(err))
		}
	}()

	if err := p.stage.Init(ctx); err != nil {
		p.closeInput()
		return err
	}
	p.setState(Initialized)

	handlers := p.cancellationHandlers(ctx, log)
	p.setState(Running)
	err = Locomotive(ctx, p.in, p.out, p.stage, handlers, p.onSuccess)
	p.setState(Draining)

	if err != nil {
		p.closeInput()
		return err
	}

	cleanupCtx, cancel := p.cleanupContext(ctx)
	defer cancel()
	return p.stage.PostRun(cleanupCtx, p.out)
}

func (p *Proc[In, Out]) cancellationHandlers(ctx context.Context, log *zap.Logger) CancellationHandlers[In, Out] {
	canceler, ok := p.stage.(Canceler[In, Out])
	if !ok || !core.IsProcessRemainingEnabled(ctx, false) {
		return CancellationHandlers[In, Out]{}
	}

	return CancellationHandlers[In, Out]{
		OnCancelUnprocessed: func(ctx context.Context, v In, out channel.Writer[Out]) {
			drainCtx, cancel := p.cleanupContext(ctx)
			defer cancel()
			if err := canceler.Cancel(drainCtx, v, out); err != nil {
				log.Warn("cancel hook failed", zap.Error(err))
			}
		},
		OnCancel: func(ctx context.Context, in channel.Reader[In], out channel.Writer[Out]) {
			drainCtx, cancel := p.cleanupContext(ctx)
			defer cancel()
			for {
				v, ok, err := in.Read(drainCtx)
				if err != nil || !ok {
					return
				}
				if err := canceler.Cancel(drainCtx, v, out); err != nil {
					log.Warn("cancel hook failed, dropping remaining input", zap.Error(err))
					return
				}
			}
		},
	}
}

// cleanupContext outlives the cancellation of ctx, bounded by the cleanup timeout.
func (p *Proc[In, Out]) cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if p.cleanupTimeout > 0 {
		return context.WithTimeout(base, p.cleanupTimeout)
	}
	return context.WithCancel(base)
}

func (p *Proc[In, Out]) closeInput() {
	if c, ok := p.in.(interface{ Close() }); ok {
		c.Close()
	}
}
