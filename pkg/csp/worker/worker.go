// Package worker creates the goroutines processes run on. Every worker gets a
// unique name "<pool>-thread-<n>", logs its start and finish, and converts a
// panic into a csp.PanicError instead of taking the program down, so a
// crashed worker never disappears silently.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ib-77/csp3/pkg/csp"
)

// Factory creates named workers for one pool, typically one process network.
type Factory struct {
	pool         string
	priority     int
	lockOSThread bool
	logger       *zap.Logger

	count atomic.Int64
}

type Option func(*Factory)

func WithLogger(logger *zap.Logger) Option {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithPriority records a priority on every worker of the pool. The Go
// scheduler has no goroutine priorities; the value is carried for diagnostics.
func WithPriority(priority int) Option {
	return func(f *Factory) {
		f.priority = priority
	}
}

// WithLockOSThread pins every worker to its own OS thread for its lifetime.
func WithLockOSThread(lock bool) Option {
	return func(f *Factory) {
		f.lockOSThread = lock
	}
}

func NewFactory(pool string, opts ...Option) *Factory {
	f := &Factory{
		pool:   pool,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Factory) Pool() string {
	return f.pool
}

func (f *Factory) Priority() int {
	return f.priority
}

// Count is the number of workers created so far.
func (f *Factory) Count() int64 {
	return f.count.Load()
}

// NewThread creates an unstarted worker that will call run.
func (f *Factory) NewThread(run func() error) *Thread {
	n := f.count.Add(1)
	return &Thread{
		name:    fmt.Sprintf("%s-thread-%d", f.pool, n),
		run:     run,
		factory: f,
		done:    make(chan struct{}),
	}
}

// Go creates and starts a worker.
func (f *Factory) Go(run func() error) *Thread {
	t := f.NewThread(run)
	t.Start()
	return t
}

// Thread is one worker goroutine.
type Thread struct {
	name    string
	run     func() error
	factory *Factory

	once sync.Once
	done chan struct{}
	err  error
}

func (t *Thread) Name() string {
	return t.name
}

// Start launches the worker. Calling it again has no effect.
func (t *Thread) Start() {
	t.once.Do(func() {
		go t.loop()
	})
}

// Done is closed when the worker has finished.
func (t *Thread) Done() <-chan struct{} {
	return t.done
}

// Err is the worker's result; only meaningful after Done is closed.
func (t *Thread) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Join waits for the worker to finish and returns its result.
func (t *Thread) Join(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Thread) loop() {
	f := t.factory
	if f.lockOSThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	log := f.logger.With(
		zap.String("thread", t.name),
		zap.String("pool", f.pool),
		zap.Int("priority", f.priority),
	)

	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			t.err = &csp.PanicError{Value: r, Stack: string(debug.Stack())}
			log.Error("worker panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	log.Debug("worker started")
	t.err = t.run()
	if t.err != nil {
		log.Debug("worker finished with error", zap.Error(t.err))
		return
	}
	log.Debug("worker finished")
}
