// Package events defines the analytics event data model shared by the
// queuing and delivery layers: the immutable Record value, the typed
// property-value union, the persisted snapshot codec, and a reusable
// record pool for allocation-heavy tracking workloads.
//
// Records are created once at track time and never mutated afterwards.
// The snapshot codec is deliberately forgiving: a corrupt or stale record
// invalidates only itself, never the whole snapshot, so a partially
// damaged persistence file still yields every recoverable event.
package events
