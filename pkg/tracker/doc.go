// Package tracker is the event delivery pipeline. A Tracker accepts
// events from host application code, holds them in a durable bounded
// queue, and delivers them to the collector in adaptively sized batches.
//
// The pipeline never blocks the host beyond a deliberate admission
// delay, never loses data silently, and degrades gracefully offline:
// admission applies backpressure when the queue runs hot, concurrent
// flushes collapse into a single network request, and a circuit breaker
// stops hammering a failing collector.
//
//	t, err := tracker.New("client-key",
//		tracker.WithStorage(store),
//		tracker.WithIdentity("user-42", sessionID),
//	)
//	if err != nil {
//		return err
//	}
//	defer t.Shutdown(ctx)
//
//	_ = t.Track(ctx, "purchase", events.Properties{
//		{Key: "amount", Value: events.Number(19.99)},
//	})
package tracker
