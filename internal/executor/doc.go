// Package executor runs storage queries off the caller's goroutine.
//
// Jobs are submitted to a bounded worker pool. A job may be chained behind a
// previous job so that one query builder never has two executions in flight,
// while independent builders run concurrently and complete in any order.
//
// Cancellation is cooperative. Abort flags a job; the flag is checked once the
// storage call returns and again before delivery, so a storage call that is
// already running is never interrupted, only its result is discarded.
package executor
