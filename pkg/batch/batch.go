package batch

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// DefaultSize is the chunk size used when a non-positive size is given.
const DefaultSize = 100

// DefaultConcurrency caps parallel chunk processing when a non-positive
// limit is given.
const DefaultConcurrency = 4

// Split partitions items into ordered chunks of at most size elements;
// the last chunk may be smaller. The chunks share the input's backing
// array. An empty input yields nil.
func Split[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultSize
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// SplitSlices partitions items into chunks of at most size, then groups
// the chunks into slices of at most maxConcurrency chunks each. Each
// slice is a unit of work whose chunks may run in parallel.
func SplitSlices[T any](items []T, size, maxConcurrency int) [][][]T {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultConcurrency
	}
	chunks := Split(items, size)
	if chunks == nil {
		return nil
	}
	slices := make([][][]T, 0, (len(chunks)+maxConcurrency-1)/maxConcurrency)
	for start := 0; start < len(chunks); start += maxConcurrency {
		end := min(start+maxConcurrency, len(chunks))
		slices = append(slices, chunks[start:end])
	}
	return slices
}

// ForEach runs fn over every chunk of items with at most maxConcurrency
// chunks in flight at a time. The first error cancels the remaining
// work; ForEach returns once all started chunks have finished. An empty
// input is a no-op.
func ForEach[T any](ctx context.Context, items []T, size, maxConcurrency int, fn func(ctx context.Context, chunk []T) error) error {
	chunks := Split(items, size)
	if chunks == nil {
		return nil
	}
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultConcurrency
	}

	p := pool.New().
		WithContext(ctx).
		WithMaxGoroutines(maxConcurrency).
		WithCancelOnError().
		WithFirstError()
	for _, chunk := range chunks {
		p.Go(func(ctx context.Context) error {
			return fn(ctx, chunk)
		})
	}
	return p.Wait()
}
