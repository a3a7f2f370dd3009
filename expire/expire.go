// Package expire runs the background reclaim sweep for each
// object-class/sequence-range pair: wait until an object's age passes
// its class's expiration threshold, then delete it through its
// Source; for blocks, additionally wait until the block has
// dropped below the prune horizon before breaking its prior link so
// the graph node can be released (§4.10 "Pruning and expiry").
//
// Grounded on ExpireObj::ThreadProc/DoExpires
// (_examples/original_source/source/ccnode/src/expire.cpp lines
// 105-222: a 10-second poll loop per worker, a per-object age check
// against a possibly-externally-changed expire_age, and a
// block-specific prune-level wait before the object is finally
// deleted) and on the teacher's background cleanup goroutines pattern
// (mempool/mempool.go periodic expiry passes via time.Ticker).
package expire

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/CredaCash/CredaCash-sub002/blockgraph"
)

// PollInterval is how often a worker rechecks for newly-expirable
// objects when none is currently due (expire.cpp "ccsleep(10)").
const PollInterval = 10 * time.Second

// BlockPruneWait is how long a worker waits between rechecking a
// not-yet-prunable block's level against the advancing prune horizon.
const BlockPruneWait = 10 * time.Second

// Candidate is the next object due for expiry from a Source, or a
// zero value with Seqnum == NoCandidate when nothing is pending.
type Candidate struct {
	Seqnum    int64
	Block     *blockgraph.Block // non-nil only when this candidate is a block
	FirstSeen time.Time
}

// NoCandidate marks the absence of a pending expiry (expire.cpp
// "next_expires_seqnum == -1").
const NoCandidate int64 = -1

// Source supplies the next due-for-expiry object for one
// (class, sequence-range) worker and deletes it once expired.
type Source interface {
	NextExpiring() Candidate
	Delete(seqnum int64) error
}

// PruneLevelFunc reports the current prune horizon, so a block
// candidate can be held until it falls below it (expire.cpp
// "g_blockchain.ComputePruneLevel").
type PruneLevelFunc func() uint64

// Worker ages out one object class at the pace given by Age, which
// may be changed concurrently (expire.cpp "m_expire_age" can be
// changed externally while a worker sleeps).
type Worker struct {
	Name   string
	Source Source
	Age    int64 // nanoseconds; atomic
	Prune  PruneLevelFunc

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// NewWorker constructs a Worker with an initial expiry age.
func NewWorker(name string, source Source, age time.Duration, prune PruneLevelFunc) *Worker {
	return &Worker{
		Name:   name,
		Source: source,
		Age:    int64(age),
		Prune:  prune,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// SetAge updates the expiry age threshold at runtime (expire.cpp
// Expire::ChangeExpireAge).
func (w *Worker) SetAge(age time.Duration) {
	atomic.StoreInt64(&w.Age, int64(age))
}

func (w *Worker) age() time.Duration {
	return time.Duration(atomic.LoadInt64(&w.Age))
}

// Run drives the poll loop until Stop is called (ExpireObj::ThreadProc).
func (w *Worker) Run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		w.doExpires()

		select {
		case <-w.stopCh:
			return
		case <-time.After(PollInterval):
		}
	}
}

// Stop signals Run to exit and waits for it to return.
func (w *Worker) Stop() {
	w.once.Do(func() { close(w.stopCh) })
	<-w.doneCh
}

// doExpires drains every object whose age has passed the threshold,
// then returns once the source reports nothing currently due
// (ExpireObj::DoExpires).
func (w *Worker) doExpires() {
	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		c := w.Source.NextExpiring()
		if c.Seqnum == NoCandidate {
			return
		}

		if !w.waitUntilExpirable(c) {
			return // shutdown requested mid-wait
		}

		if err := w.Source.Delete(c.Seqnum); err != nil {
			return // retry on the next pass
		}
	}
}

// waitUntilExpirable blocks until c has aged past the threshold (and,
// for a block, has also dropped below the prune horizon and had its
// prior link severed), returning false if Stop fires first.
func (w *Worker) waitUntilExpirable(c Candidate) bool {
	for {
		age := w.age()
		elapsed := time.Since(c.FirstSeen)

		if elapsed >= age {
			if c.Block == nil {
				break
			}
			if w.Prune != nil && c.Block.Level() < w.Prune() {
				c.Block.BreakPriorLink()
				break
			}
			if !w.sleep(BlockPruneWait) {
				return false
			}
			continue
		}

		remaining := age - elapsed
		if remaining > 10*time.Second {
			remaining = 10 * time.Second // re-sample in case Age changed underneath us
		}
		if !w.sleep(remaining) {
			return false
		}
	}
	return true
}

func (w *Worker) sleep(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-w.stopCh:
		return false
	case <-time.After(d):
		return true
	}
}
