package batch_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customfit-ai/customfit-go/pkg/batch"
)

func sequence(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestSplit(t *testing.T) {
	t.Parallel()

	t.Run("even split", func(t *testing.T) {
		t.Parallel()

		chunks := batch.Split(sequence(10), 5)
		require.Len(t, chunks, 2)
		assert.Equal(t, []int{0, 1, 2, 3, 4}, chunks[0])
		assert.Equal(t, []int{5, 6, 7, 8, 9}, chunks[1])
	})

	t.Run("remainder in last chunk", func(t *testing.T) {
		t.Parallel()

		chunks := batch.Split(sequence(7), 3)
		require.Len(t, chunks, 3)
		assert.Equal(t, []int{6}, chunks[2])
	})

	t.Run("size larger than input", func(t *testing.T) {
		t.Parallel()

		chunks := batch.Split(sequence(3), 100)
		require.Len(t, chunks, 1)
		assert.Len(t, chunks[0], 3)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, batch.Split([]int(nil), 5))
		assert.Nil(t, batch.Split([]int{}, 5))
	})

	t.Run("non-positive size uses default", func(t *testing.T) {
		t.Parallel()

		chunks := batch.Split(sequence(250), 0)
		require.Len(t, chunks, 3)
		assert.Len(t, chunks[0], batch.DefaultSize)
	})
}

func TestSplitSlices(t *testing.T) {
	t.Parallel()

	t.Run("groups chunks by concurrency", func(t *testing.T) {
		t.Parallel()

		// 25 items, chunk size 5 -> 5 chunks; concurrency 2 -> 3 slices.
		slices := batch.SplitSlices(sequence(25), 5, 2)
		require.Len(t, slices, 3)
		assert.Len(t, slices[0], 2)
		assert.Len(t, slices[1], 2)
		assert.Len(t, slices[2], 1)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, batch.SplitSlices([]int(nil), 5, 2))
	})
}

func TestForEach(t *testing.T) {
	t.Parallel()

	t.Run("processes all chunks", func(t *testing.T) {
		t.Parallel()

		var processed atomic.Int64
		err := batch.ForEach(context.Background(), sequence(100), 10, 4,
			func(_ context.Context, chunk []int) error {
				processed.Add(int64(len(chunk)))
				return nil
			})
		require.NoError(t, err)
		assert.Equal(t, int64(100), processed.Load())
	})

	t.Run("bounds concurrency", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		var inFlight, peak int

		err := batch.ForEach(context.Background(), sequence(50), 5, 2,
			func(_ context.Context, _ []int) error {
				mu.Lock()
				inFlight++
				if inFlight > peak {
					peak = inFlight
				}
				mu.Unlock()

				mu.Lock()
				inFlight--
				mu.Unlock()
				return nil
			})
		require.NoError(t, err)
		assert.LessOrEqual(t, peak, 2)
	})

	t.Run("first error cancels remaining work", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		var started atomic.Int64

		err := batch.ForEach(context.Background(), sequence(100), 10, 1,
			func(ctx context.Context, chunk []int) error {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				started.Add(1)
				if chunk[0] == 0 {
					return boom
				}
				return nil
			})
		require.ErrorIs(t, err, boom)
		assert.Less(t, started.Load(), int64(10))
	})

	t.Run("empty input is a no-op", func(t *testing.T) {
		t.Parallel()

		called := false
		err := batch.ForEach(context.Background(), []int(nil), 10, 2,
			func(_ context.Context, _ []int) error {
				called = true
				return nil
			})
		require.NoError(t, err)
		assert.False(t, called)
	})
}
