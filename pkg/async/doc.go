// Package async provides the small concurrency primitives the delivery
// pipeline is built on: a Future for awaiting the result of a background
// computation, and a single-flight Group that collapses concurrent
// requests for the same logical operation into one execution whose
// result every caller shares.
package async
