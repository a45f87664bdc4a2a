// Package connectivity tracks whether the collector is reachable. The
// Monitor combines host-reported status changes (airplane mode, network
// switches) with delivery outcomes: a streak of failures transitions to
// disconnected, a success restores connected. Listeners are notified on
// every transition so the pipeline can trigger a catch-up flush when the
// network returns.
package connectivity
