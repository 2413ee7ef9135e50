package channel

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/csp3/pkg/csp"
	"github.com/ib-77/csp3/pkg/csp/alt"
	"github.com/ib-77/csp3/pkg/csp/store"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func readAll[T any](t *testing.T, ctx context.Context, c *Channel[T]) []T {
	t.Helper()
	var out []T
	for {
		v, ok, err := c.Read(ctx)
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

func TestChannel_FIFO(t *testing.T) {
	t.Parallel()

	for name, c := range map[string]*Channel[int]{
		"bounded":   NewBuffered[int](4),
		"unbounded": NewUnbounded[int](),
		"one":       NewOne[int](),
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := testCtx(t)

			go func() {
				defer c.Close()
				for i := range 100 {
					if err := c.Write(ctx, i); err != nil {
						return
					}
				}
			}()

			got := readAll(t, ctx, c)
			require.Len(t, got, 100)
			for i, v := range got {
				assert.Equal(t, i, v)
			}
		})
	}
}

func TestChannel_Backpressure(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	const k = 3
	c := NewBuffered[int](k)
	for i := range k {
		require.NoError(t, c.Write(ctx, i))
	}
	assert.Equal(t, store.Full, c.State())

	var completed atomic.Int32
	for i := range 2 {
		go func() {
			if err := c.Write(ctx, k+i); err == nil {
				completed.Add(1)
			}
		}()
	}

	require.Eventually(t, func() bool { return c.Stats().BlockedWriters == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), completed.Load())

	_, ok, err := c.Read(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool { return completed.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), completed.Load(), "one read frees exactly one writer")
	assert.Equal(t, 1, c.Stats().BlockedWriters)

	_, _, err = c.Read(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return completed.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestChannel_Rendezvous(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	c := NewOne[string]()
	var written atomic.Bool
	done := make(chan error, 1)
	go func() {
		err := c.Write(ctx, "hello")
		written.Store(true)
		done <- err
	}()

	time.Sleep(30 * time.Millisecond)
	assert.False(t, written.Load(), "write waits for the reader")

	v, ok, err := c.Read(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", v)
	require.NoError(t, <-done)
	assert.True(t, written.Load())
}

func TestChannel_RendezvousReaderWaits(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	c := NewOne[int]()
	got := make(chan int, 1)
	go func() {
		v, _, _ := c.Read(ctx)
		got <- v
	}()

	select {
	case <-got:
		t.Fatal("read completed without a writer")
	case <-time.After(30 * time.Millisecond):
	}

	require.NoError(t, c.Write(ctx, 7))
	assert.Equal(t, 7, <-got)
}

func TestChannel_RendezvousCancelWithdraws(t *testing.T) {
	t.Parallel()

	c := NewOne[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Write(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, c.Len(), "untaken value is withdrawn")

	ctx2 := testCtx(t)
	got := make(chan int, 1)
	go func() {
		v, _, _ := c.Read(ctx2)
		got <- v
	}()
	require.NoError(t, c.Write(ctx2, 2), "channel is still usable")
	assert.Equal(t, 2, <-got)
}

func TestChannel_RendezvousCloseWithdraws(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	c := NewOne[int]()
	done := make(chan error, 1)
	go func() { done <- c.Write(ctx, 1) }()

	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 5*time.Millisecond)
	c.Close()

	assert.ErrorIs(t, <-done, csp.ErrClosed)
	_, ok, err := c.Read(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChannel_CloseDrains(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	c := NewBuffered[int](5)
	for _, v := range []int{1, 2, 3} {
		require.NoError(t, c.Write(ctx, v))
	}
	c.Close()
	c.Close()

	assert.ErrorIs(t, c.Write(ctx, 4), csp.ErrClosed)
	assert.Equal(t, []int{1, 2, 3}, readAll(t, ctx, c))

	_, ok, err := c.Read(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "end-of-stream repeats")
}

func TestChannel_CloseWakesBlocked(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	empty := NewBuffered[int](1)
	full := NewBuffered[int](1)
	require.NoError(t, full.Write(ctx, 0))

	var wg sync.WaitGroup
	var readEOS, writeClosed atomic.Int32
	for range 3 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, ok, err := empty.Read(ctx); err == nil && !ok {
				readEOS.Add(1)
			}
		}()
		go func() {
			defer wg.Done()
			if err := full.Write(ctx, 1); err == csp.ErrClosed {
				writeClosed.Add(1)
			}
		}()
	}

	require.Eventually(t, func() bool {
		return empty.Stats().BlockedReaders == 3 && full.Stats().BlockedWriters == 3
	}, time.Second, 5*time.Millisecond)

	empty.Close()
	full.Close()
	wg.Wait()

	assert.Equal(t, int32(3), readEOS.Load())
	assert.Equal(t, int32(3), writeClosed.Load())
}

func TestChannel_ReadContextCancel(t *testing.T) {
	t.Parallel()

	c := NewUnbounded[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok, err := c.Read(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, c.Stats().BlockedReaders)
}

func TestChannel_ConcurrentWriters(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	c := NewBuffered[int](2)
	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 25 {
				assert.NoError(t, c.Write(ctx, w*100+i))
			}
		}()
	}
	go func() {
		wg.Wait()
		c.Close()
	}()

	got := readAll(t, ctx, c)
	assert.Len(t, got, 100)

	// per-writer order is preserved
	last := map[int]int{}
	for _, v := range got {
		w := v / 100
		if prev, ok := last[w]; ok {
			assert.Greater(t, v, prev)
		}
		last[w] = v
	}
}

func TestChannel_DiscardOnFull(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	c := New(store.BufferFactory[int](2, store.WithDiscardOnFull()))
	for i := range 5 {
		require.NoError(t, c.Write(ctx, i), "never blocks")
	}
	c.Close()

	assert.Equal(t, []int{0, 1}, readAll(t, ctx, c))
	assert.Equal(t, uint64(3), c.Stats().Dropped)
}

func TestChannel_SelectReady(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	a := NewBuffered[int](1)
	b := NewBuffered[int](1)
	require.NoError(t, b.Write(ctx, 42))

	s := alt.NewSelector(a, b)
	i, err := s.Select(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	v, ok, err := b.Read(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestChannel_SelectTimer(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	a := NewBuffered[int](1)
	b := NewOne[int]()
	s := alt.NewSelector(a, b, alt.After(50*time.Millisecond))

	start := time.Now()
	i, err := s.Select(ctx)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 2, i)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestChannel_SelectWokenByWrite(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	a := NewBuffered[int](1)
	b := NewBuffered[int](1)
	s := alt.NewSelector(a, b)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = b.Write(ctx, 1)
	}()

	i, err := s.Select(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func TestChannel_SelectWokenByClose(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	a := NewUnbounded[int]()
	s := alt.NewSelector(a)

	go func() {
		time.Sleep(20 * time.Millisecond)
		a.Close()
	}()

	i, err := s.Select(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	assert.True(t, a.IsClosed())
}

type countingObserver struct {
	mu                             sync.Mutex
	wrote, read, blocked, closedCh int
}

func (o *countingObserver) Wrote(string) { o.mu.Lock(); o.wrote++; o.mu.Unlock() }
func (o *countingObserver) Read(string)  { o.mu.Lock(); o.read++; o.mu.Unlock() }
func (o *countingObserver) Blocked(string, string) {
	o.mu.Lock()
	o.blocked++
	o.mu.Unlock()
}
func (o *countingObserver) Closed(string) { o.mu.Lock(); o.closedCh++; o.mu.Unlock() }

func TestChannel_Observer(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	o := &countingObserver{}
	c := NewBuffered[int](2, WithName("obs"), WithObserver(o))
	assert.Equal(t, "obs", c.Name())

	require.NoError(t, c.Write(ctx, 1))
	require.NoError(t, c.Write(ctx, 2))
	_, _, _ = c.Read(ctx)
	c.Close()

	o.mu.Lock()
	defer o.mu.Unlock()
	assert.Equal(t, 2, o.wrote)
	assert.Equal(t, 1, o.read)
	assert.Equal(t, 1, o.closedCh)
}
