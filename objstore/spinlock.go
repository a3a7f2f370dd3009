package objstore

import (
	"runtime"
	"sync/atomic"
)

// SpinLock is a test-and-test-and-set spinlock for the handful of
// critical sections in the core that are held for only a few
// instructions (the prior-block pointer swap, the last-indelible
// combined getter) where parking a goroutine via sync.Mutex would cost
// more than busy-waiting a few cycles. Grounded on §5 "Shared-resource
// policy": "The prior-block pointer is guarded by one short spinlock"
// and "The indelible tip uses a spinlock for the combined getter".
type SpinLock struct {
	state int32
}

const (
	unlocked = 0
	locked   = 1
)

// Lock spins until the lock is acquired.
func (s *SpinLock) Lock() {
	for !atomic.CompareAndSwapInt32(&s.state, unlocked, locked) {
		for atomic.LoadInt32(&s.state) == locked {
			runtime.Gosched()
		}
	}
}

// Unlock releases the lock. Unlocking an unlocked SpinLock is a bug in
// the caller and is not guarded against, matching the original's
// FastSpinLock semantics.
func (s *SpinLock) Unlock() {
	atomic.StoreInt32(&s.state, unlocked)
}
