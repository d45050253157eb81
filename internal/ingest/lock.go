package ingest

import "sync/atomic"

// loadLock is a non-blocking mutex guarding a Loader.
type loadLock struct {
	state atomic.Int32 // 0 = free, 1 = loading
}

// TryAcquire takes the lock if it is free.
func (l *loadLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release frees the lock. Only the holder may call it.
func (l *loadLock) Release() {
	l.state.Store(0)
}
