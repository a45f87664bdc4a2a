package events_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customfit-ai/customfit-go/pkg/events"
)

func TestPool_AcquireRelease(t *testing.T) {
	t.Parallel()

	pool := events.NewPool(4)

	rec := pool.Acquire()
	require.NotNil(t, rec)
	assert.Equal(t, 1, pool.LeasedCount())

	rec.SubjectID = "purchase"
	assert.True(t, pool.Release(rec))
	assert.Equal(t, 0, pool.LeasedCount())
	assert.Equal(t, 1, pool.IdleCount())

	// A recycled record comes back cleared.
	again := pool.Acquire()
	assert.Same(t, rec, again)
	assert.Empty(t, again.SubjectID)

	acquired, recycled := pool.Stats()
	assert.Equal(t, uint64(2), acquired)
	assert.Equal(t, uint64(1), recycled)
}

func TestPool_DoubleReleaseRejected(t *testing.T) {
	t.Parallel()

	pool := events.NewPool(4)
	rec := pool.Acquire()

	assert.True(t, pool.Release(rec))
	assert.False(t, pool.Release(rec))
	assert.Equal(t, 1, pool.IdleCount())
}

func TestPool_ForeignRecordRejected(t *testing.T) {
	t.Parallel()

	pool := events.NewPool(4)
	foreign := &events.Record{SubjectID: "not_from_pool"}

	assert.False(t, pool.Release(foreign))
	assert.Equal(t, "not_from_pool", foreign.SubjectID)
	assert.Zero(t, pool.IdleCount())
}

func TestPool_CapacityBoundsFreeList(t *testing.T) {
	t.Parallel()

	pool := events.NewPool(2)

	recs := []*events.Record{pool.Acquire(), pool.Acquire(), pool.Acquire()}
	pool.ReleaseAll(recs)

	assert.Equal(t, 2, pool.IdleCount())
	assert.Equal(t, 0, pool.LeasedCount())
}

func TestPool_Clear(t *testing.T) {
	t.Parallel()

	pool := events.NewPool(4)
	rec := pool.Acquire()
	pool.Release(rec)

	pool.Clear()
	assert.Zero(t, pool.IdleCount())
	assert.Zero(t, pool.LeasedCount())
}

func TestPool_ConcurrentUse(t *testing.T) {
	t.Parallel()

	pool := events.NewPool(16)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				rec := pool.Acquire()
				rec.SubjectID = "x"
				pool.Release(rec)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, pool.LeasedCount())
	assert.LessOrEqual(t, pool.IdleCount(), 16)
}
