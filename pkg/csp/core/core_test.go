package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/csp3/pkg/csp"
	"github.com/ib-77/csp3/pkg/csp/channel"
)

func TestFeedAndToSlice(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ch := channel.NewOne[string]()
	errCh := Feed(ctx, ch, "a", "b", "c")

	got, err := ToSlice[string](ctx, ch)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.NoError(t, <-errCh)
	assert.True(t, ch.IsClosed())
}

func TestFromSlice_BreakReportsRest(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ch := channel.NewBuffered[int](2)
	ch.Close()

	var rest []int
	var success int
	err := FromSliceWithHandlers(ctx, ch, FeedHandlers[int]{
		OnSuccess: func(context.Context, int) { success++ },
		OnBreak: func(_ context.Context, r []int, err error) {
			rest = r
			assert.ErrorIs(t, err, csp.ErrClosed)
		},
	}, 1, 2, 3)

	assert.ErrorIs(t, err, csp.ErrClosed)
	assert.Equal(t, []int{1, 2, 3}, rest)
	assert.Zero(t, success)
}

func TestFromSlice_StartFail(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var notSent []int
	ch := channel.NewUnbounded[int]()
	err := FromSliceWithHandlers(ctx, ch, FeedHandlers[int]{
		OnStartFail: func(_ context.Context, in []int) { notSent = in },
	}, 4, 5)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{4, 5}, notSent)
	assert.True(t, ch.IsClosed(), "channel is closed even when nothing was sent")
}

func TestFirstOrDefault(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ch := channel.NewBuffered[int](1)
	require.NoError(t, ch.Write(ctx, 9))
	ch.Close()

	assert.Equal(t, 9, FirstOrDefault[int](ctx, ch, -1))
	assert.Equal(t, -1, FirstOrDefault[int](ctx, ch, -1))
}

func TestOptions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	assert.Equal(t, 3, GetWorkerMaxCount(ctx, 3))
	assert.True(t, IsProcessRemainingEnabled(ctx, true))

	ctx = WithProcessOptions(WithWorkerOptions(ctx, 5), false)
	assert.Equal(t, 5, GetWorkerMaxCount(ctx, 3))
	assert.False(t, IsProcessRemainingEnabled(ctx, true))

	assert.Equal(t, 2, GetWorkerMaxCount(WithWorkerOptions(ctx, 0), 2), "non-positive falls back")
}
