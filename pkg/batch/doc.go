// Package batch provides pure helpers for partitioning work: splitting a
// list into size-bounded chunks, grouping chunks into slices capped by a
// concurrency limit, and running a function over chunks with bounded
// parallelism. Used by the delivery pipeline for backlog draining and by
// hosts for any bulk-processing need.
package batch
