package inout

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ib-77/csp3/pkg/csp/channel"
	"github.com/ib-77/csp3/pkg/csp/core"
	"github.com/ib-77/csp3/pkg/csp/process"
)

// Starter is the part of process.Network that Run needs.
type Starter interface {
	Start(ctx context.Context, p process.Process) (uuid.UUID, error)
}

// Run starts lines replicas of a stage on net, all reading in and writing
// out. newStage is called once per replica. out is closed when the last
// replica finishes. lines <= 0 falls back to core.GetWorkerMaxCount(ctx, 1).
//
// If a replica cannot be started, out is still closed once the replicas
// already running finish.
func Run[In, Out any](ctx context.Context, net Starter, name string,
	in channel.Reader[In], out channel.WriteCloser[Out],
	newStage func() Stage[In, Out], lines int, opts ...Option[In, Out]) ([]uuid.UUID, error) {

	if lines <= 0 {
		lines = core.GetWorkerMaxCount(ctx, 1)
	}

	closer := newSharedCloser(out.Close, lines)
	ids := make([]uuid.UUID, 0, lines)

	for i := range lines {
		procOpts := append(append([]Option[In, Out]{}, opts...), withCloser[In, Out](closer.done))
		p := New(fmt.Sprintf("%s-%d", name, i+1), in, out, newStage(), procOpts...)

		id, err := net.Start(ctx, p)
		if err != nil {
			for range lines - i {
				closer.done()
			}
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// sharedCloser calls closeFn when done has been called n times.
type sharedCloser struct {
	mu      sync.Mutex
	pending int
	closeFn func()
}

func newSharedCloser(closeFn func(), n int) *sharedCloser {
	return &sharedCloser{pending: n, closeFn: closeFn}
}

func (s *sharedCloser) done() {
	s.mu.Lock()
	s.pending--
	last := s.pending == 0
	s.mu.Unlock()

	if last {
		s.closeFn()
	}
}
