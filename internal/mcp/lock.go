package mcp

import "sync/atomic"

// writeLock rejects a second write on a conversation while one is running.
// Tool calls fail fast with ErrorCodeWriteInProgress instead of queueing.
type writeLock struct {
	state atomic.Int32 // 0 = free, 1 = held
}

// TryAcquire takes the lock without blocking and reports whether it did
func (l *writeLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release frees the lock. Only the holder may call it.
func (l *writeLock) Release() {
	l.state.Store(0)
}
