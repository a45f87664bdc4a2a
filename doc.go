// Package customfit is the CustomFit analytics SDK for Go. It embeds a
// client-side telemetry pipeline in host applications: events are
// queued in memory, snapshotted to storage for crash safety, and
// delivered to the collector in batches with retries, backpressure, and
// a circuit breaker.
//
// The Client in this package is the convenience surface wiring the
// pipeline together from environment configuration:
//
//	client, err := customfit.NewClient()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close(context.Background())
//
//	_ = client.Track(ctx, "purchase", events.Properties{
//		{Key: "amount", Value: events.Number(19.99)},
//	})
//
// Hosts needing finer control compose the pieces directly: pkg/tracker
// is the pipeline, pkg/eventqueue the durable queue, pkg/storage the
// persistence backends, pkg/transport the retrying HTTP delivery.
package customfit
