package objstore

import "sync/atomic"

// Accountant sums live buffer bytes across the node so ingress paths
// can apply back-pressure once a cap is exceeded (§4.1: "A global
// accounting counter sums live buffer bytes; this is compared against
// an in-memory cap to apply back-pressure").
type Accountant struct {
	liveBytes int64 // atomic
	capBytes  int64 // atomic; 0 means unlimited
}

// DefaultAccountant is the process-wide buffer accountant. Tests that
// want isolation should construct their own Accountant and call
// NewBufferWithAccountant instead of NewBuffer.
var DefaultAccountant = &Accountant{}

// SetCap sets the in-memory byte cap; 0 disables back-pressure.
func (a *Accountant) SetCap(capBytes int64) {
	atomic.StoreInt64(&a.capBytes, capBytes)
}

// Reserve records newly-allocated bytes as live.
func (a *Accountant) Reserve(n int64) {
	atomic.AddInt64(&a.liveBytes, n)
}

// Release returns bytes to the pool once their owning buffer is freed.
func (a *Accountant) Release(n int64) {
	atomic.AddInt64(&a.liveBytes, -n)
}

// LiveBytes reports the current accounted byte total.
func (a *Accountant) LiveBytes() int64 {
	return atomic.LoadInt64(&a.liveBytes)
}

// OverCap reports whether the live byte total exceeds the configured
// cap. New transaction downloads are skipped by the relay layer while
// this is true.
func (a *Accountant) OverCap() bool {
	capBytes := atomic.LoadInt64(&a.capBytes)
	return capBytes > 0 && a.LiveBytes() > capBytes
}
