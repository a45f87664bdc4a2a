package events

import (
	"sync"
)

// Pool is a bounded free list of reusable Records. It exists to damp
// allocation pressure under high event rates; callers that skip the pool
// entirely remain correct, just slower.
//
// Ownership rules: Acquire hands a record to exactly one logical owner,
// and Release returns it. A record released twice, or never acquired
// from this pool, is never adopted twice into the free list.
type Pool struct {
	mu       sync.Mutex
	free     []*Record
	leased   map[*Record]struct{}
	capacity int

	acquired uint64
	recycled uint64
}

// DefaultPoolCapacity bounds the free list when no explicit capacity is
// configured.
const DefaultPoolCapacity = 256

// NewPool creates a record pool holding at most capacity idle records.
func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultPoolCapacity
	}
	return &Pool{
		leased:   make(map[*Record]struct{}),
		capacity: capacity,
	}
}

// Acquire returns a cleared record, reusing an idle one when available.
func (p *Pool) Acquire() *Record {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.acquired++
	var rec *Record
	if n := len(p.free); n > 0 {
		rec = p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		p.recycled++
	} else {
		rec = &Record{}
	}
	p.leased[rec] = struct{}{}
	return rec
}

// Release returns a record to the pool. It reports false when the record
// is not currently leased from this pool (double release, or a record
// that never came from it) or when the free list is full; in either case
// the record is left for the garbage collector.
func (p *Pool) Release(rec *Record) bool {
	if rec == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.leased[rec]; !ok {
		return false
	}
	delete(p.leased, rec)
	if len(p.free) >= p.capacity {
		return false
	}
	rec.reset()
	p.free = append(p.free, rec)
	return true
}

// ReleaseAll returns every record in the slice, tolerating nils.
func (p *Pool) ReleaseAll(recs []*Record) {
	for _, rec := range recs {
		p.Release(rec)
	}
}

// IdleCount returns the number of records currently in the free list.
func (p *Pool) IdleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// LeasedCount returns the number of records currently handed out.
func (p *Pool) LeasedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.leased)
}

// Stats reports cumulative acquire and reuse counts.
func (p *Pool) Stats() (acquired, recycled uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired, p.recycled
}

// Clear drops all idle records and forgets outstanding leases. Intended
// for shutdown; records still held by callers remain usable but will not
// be re-adopted.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = nil
	p.leased = make(map[*Record]struct{})
}
