package process

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
	"sync"
	"time"

	"github.com/emirpasic/gods/queues/circularbuffer"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ib-77/csp3/pkg/csp"
	"github.com/ib-77/csp3/pkg/csp/metrics"
	"github.com/ib-77/csp3/pkg/csp/worker"
)

type Option func(*Network)

func WithLogger(logger *zap.Logger) Option {
	return func(n *Network) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithFactory runs processes on threads from factory instead of a factory
// named after the network.
func WithFactory(factory *worker.Factory) Option {
	return func(n *Network) {
		n.factory = factory
	}
}

// WithMaxProcesses caps how many processes run at once. Start waits for a
// free slot. Zero or less means no cap.
func WithMaxProcesses(limit int64) Option {
	return func(n *Network) {
		if limit > 0 {
			n.sem = semaphore.NewWeighted(limit)
		}
	}
}

// DefaultExitHistory is how many exit records a network keeps by default.
const DefaultExitHistory = 1024

// WithExitHistory sets how many of the most recent exit records the network
// keeps for Exits and Wait. Older records are dropped. Zero or less keeps
// DefaultExitHistory.
func WithExitHistory(limit int) Option {
	return func(n *Network) {
		if limit > 0 {
			n.history = limit
		}
	}
}

func WithMetrics(m *metrics.Network) Option {
	return func(n *Network) {
		n.metrics = m
	}
}

// WithOnExit is called once per process after it finished and before it
// leaves the network.
func WithOnExit(fn func(exit csp.Exit)) Option {
	return func(n *Network) {
		n.onExit = fn
	}
}

type member struct {
	id        uuid.UUID
	proc      Process
	thread    *worker.Thread
	cancel    context.CancelFunc
	startedAt time.Time
}

// Network is a set of running processes.
type Network struct {
	name    string
	logger  *zap.Logger
	factory *worker.Factory
	sem     *semaphore.Weighted
	metrics *metrics.Network
	onExit  func(exit csp.Exit)
	history int

	mu      sync.Mutex
	members map[uuid.UUID]*member
	// drained is closed while the network has no members
	drained chan struct{}
	// the most recent exits, oldest overwritten first
	exits  *circularbuffer.Queue
	closed bool
}

func NewNetwork(name string, opts ...Option) *Network {
	n := &Network{
		name:    name,
		logger:  zap.NewNop(),
		members: make(map[uuid.UUID]*member),
		drained: make(chan struct{}),
		history: DefaultExitHistory,
	}
	close(n.drained)

	for _, opt := range opts {
		opt(n)
	}
	n.exits = circularbuffer.New(n.history)
	if n.factory == nil {
		n.factory = worker.NewFactory(name, worker.WithLogger(n.logger))
	}
	n.logger = n.logger.With(zap.String("network", name))
	return n
}

func (n *Network) Name() string {
	return n.name
}

// Start runs p on a new worker thread and returns its id. The process joins
// the network before its thread starts, so WaitForAll called right after
// Start waits for it. The context passed to Run is derived from ctx and is
// canceled by Shutdown.
func (n *Network) Start(ctx context.Context, p Process) (uuid.UUID, error) {
	if csp.IsNil(p) {
		return uuid.Nil, fmt.Errorf("process: nil process")
	}

	if n.sem != nil {
		if err := n.sem.Acquire(ctx, 1); err != nil {
			return uuid.Nil, err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	m := &member{
		id:     uuid.New(),
		proc:   p,
		cancel: cancel,
	}
	m.thread = n.factory.NewThread(func() error {
		return n.run(runCtx, m)
	})

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		cancel()
		n.release()
		return uuid.Nil, csp.ErrNetworkClosed
	}
	if len(n.members) == 0 {
		n.drained = make(chan struct{})
	}
	n.members[m.id] = m
	n.mu.Unlock()

	if n.metrics != nil {
		n.metrics.ProcessStarted()
	}
	n.logger.Debug("process started",
		zap.String("process", p.Name()),
		zap.Stringer("id", m.id),
		zap.String("thread", m.thread.Name()))

	m.thread.Start()
	return m.id, nil
}

// run executes the process, records its exit and always removes it.
func (n *Network) run(ctx context.Context, m *member) (err error) {
	m.startedAt = time.Now().UTC()

	defer n.Remove(m.id)
	defer n.release()
	defer m.cancel()
	defer func() {
		if r := recover(); r != nil {
			err = &csp.PanicError{Value: r, Stack: string(debug.Stack())}
		}
		n.exited(csp.NewExit(m.id, m.proc.Name(), m.thread.Name(), m.startedAt, err))
	}()

	return m.proc.Run(ctx)
}

func (n *Network) exited(exit csp.Exit) {
	fields := []zap.Field{
		zap.String("process", exit.Name()),
		zap.Stringer("id", exit.Id()),
		zap.String("thread", exit.Thread()),
		zap.Stringer("outcome", exit.Outcome()),
		zap.Duration("duration", exit.Duration()),
	}

	switch exit.Outcome() {
	case csp.Terminated:
		n.logger.Debug("process terminated", fields...)
	case csp.Canceled:
		n.logger.Info("process canceled", append(fields, zap.Error(exit.Err()))...)
	case csp.Panicked:
		var pe *csp.PanicError
		if errors.As(exit.Err(), &pe) {
			fields = append(fields, zap.String("stack", pe.Stack))
		}
		n.logger.Error("process panicked", append(fields, zap.Error(exit.Err()))...)
	default:
		n.logger.Error("process failed", append(fields, zap.Error(exit.Err()))...)
	}

	if n.metrics != nil {
		n.metrics.ProcessExited(exit.Outcome().String(), exit.Duration())
	}

	n.mu.Lock()
	if n.exits.Full() {
		n.exits.Dequeue()
	}
	n.exits.Enqueue(exit)
	n.mu.Unlock()

	if n.onExit != nil {
		n.onExit(exit)
	}
}

func (n *Network) release() {
	if n.sem != nil {
		n.sem.Release(1)
	}
}

// RemoveProcess drops p from the membership. It does not stop p. Reports
// whether p was a member. A p whose type is not comparable is never found;
// use Remove with the id returned by Start instead.
func (n *Network) RemoveProcess(p Process) bool {
	if csp.IsNil(p) || !reflect.TypeOf(p).Comparable() {
		return false
	}

	n.mu.Lock()
	var id uuid.UUID
	found := false
	for mid, m := range n.members {
		if m.proc == p {
			id, found = mid, true
			break
		}
	}
	n.mu.Unlock()

	if !found {
		return false
	}
	return n.Remove(id)
}

// Remove drops the member with the given id. Removing twice is a no-op.
func (n *Network) Remove(id uuid.UUID) bool {
	n.mu.Lock()
	if _, ok := n.members[id]; !ok {
		n.mu.Unlock()
		return false
	}
	delete(n.members, id)
	if len(n.members) == 0 {
		close(n.drained)
	}
	n.mu.Unlock()

	if n.metrics != nil {
		n.metrics.ProcessRemoved()
	}
	return true
}

// WaitForAll blocks until the network has no members.
func (n *Network) WaitForAll(ctx context.Context) error {
	for {
		n.mu.Lock()
		if len(n.members) == 0 {
			n.mu.Unlock()
			return nil
		}
		drained := n.drained
		n.mu.Unlock()

		select {
		case <-drained:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Wait blocks until the network drains and returns the errors of the
// processes in the exit history that did not terminate normally, joined.
func (n *Network) Wait(ctx context.Context) error {
	if err := n.WaitForAll(ctx); err != nil {
		return err
	}

	var errs []error
	for _, exit := range n.Exits() {
		if exit.Err() != nil {
			errs = append(errs, fmt.Errorf("%s: %w", exit.Name(), exit.Err()))
		}
	}
	return errors.Join(errs...)
}

// Shutdown refuses new processes, cancels the running ones and waits for the
// network to drain.
func (n *Network) Shutdown(ctx context.Context) error {
	n.mu.Lock()
	n.closed = true
	for _, m := range n.members {
		m.cancel()
	}
	count := len(n.members)
	n.mu.Unlock()

	n.logger.Debug("network shutting down", zap.Int("members", count))
	return n.WaitForAll(ctx)
}

func (n *Network) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.members)
}

// Members returns the ids of the current members.
func (n *Network) Members() []uuid.UUID {
	n.mu.Lock()
	defer n.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(n.members))
	for id := range n.members {
		ids = append(ids, id)
	}
	return ids
}

// Exits returns the retained exit records, in finishing order.
func (n *Network) Exits() []csp.Exit {
	n.mu.Lock()
	defer n.mu.Unlock()

	values := n.exits.Values()
	exits := make([]csp.Exit, 0, len(values))
	for _, v := range values {
		if exit, ok := v.(csp.Exit); ok {
			exits = append(exits, exit)
		}
	}
	return exits
}
