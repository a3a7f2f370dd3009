package blockgraph

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/CredaCash/CredaCash-sub002/objstore"
)

// Graph is the node's view of the block DAG: the set of resident
// blocks is implicit in the prior-pointer chains reachable from
// whatever handles validators/relay/witness-builder currently hold,
// but the graph owns the single piece of shared, published state
// every component reads: the last-indelible tip (§4.2).
type Graph struct {
	tipLock objstore.SpinLock
	tip     *Block // guarded by tipLock for writes; read via atomic snapshot below

	tipSnapshot atomic.Value // holds *Block, kept in step with tip

	level     int64 // atomic, snapshot of tip.Level()
	timestamp int64 // atomic, snapshot of tip.Timestamp()

	// genstamp is bumped every time the tip advances, invalidating
	// witnessscore score-cache memos computed under an older stamp
	// (§4.3).
	genstamp int32 // atomic
}

// NewGraph returns an empty graph; SetLastIndelible must be called
// once with the genesis block before any other method is meaningful.
func NewGraph() *Graph {
	return &Graph{}
}

// LastIndelibleBlock returns a snapshot handle to the current tip.
// Safe for concurrent callers; the handle is immutable once published
// (§4.2).
func (g *Graph) LastIndelibleBlock() *Block {
	v := g.tipSnapshot.Load()
	if v == nil {
		return nil
	}
	return v.(*Block)
}

// LastIndelibleLevel is an atomic scalar that may momentarily disagree
// with LastIndelibleBlock() under concurrent SetLastIndelible calls
// (§5 "Ordering guarantees").
func (g *Graph) LastIndelibleLevel() uint64 {
	return uint64(atomic.LoadInt64(&g.level))
}

// LastIndelibleTimestamp is the atomic scalar counterpart of
// LastIndelibleLevel.
func (g *Graph) LastIndelibleTimestamp() uint64 {
	return uint64(atomic.LoadInt64(&g.timestamp))
}

// LastIndelibleTriple returns a mutually consistent (block, level,
// timestamp) under the tip spinlock, for callers that cannot tolerate
// the atomics being momentarily stale relative to each other (§4.2
// "a combined getter returns a consistent triple under a spinlock").
func (g *Graph) LastIndelibleTriple() (block *Block, level uint64, timestamp uint64) {
	g.tipLock.Lock()
	defer g.tipLock.Unlock()
	return g.tip, uint64(g.tip.Level()), uint64(g.tip.Timestamp())
}

// GenStamp is the current memoization generation; callers pass it to
// witnessscore.CalcSkipScore and must refetch it after any
// SetLastIndelible call.
func (g *Graph) GenStamp() uint16 {
	return uint16(atomic.LoadInt32(&g.genstamp))
}

// SetLastIndelible publishes newTip as the last-indelible tip. Only
// the indelible-promotion engine (§4.7) calls this. Advancement is
// monotone in level (invariant 5, §8 property 7); a non-advancing
// call is a caller bug and is rejected rather than silently
// corrupting state.
func (g *Graph) SetLastIndelible(newTip *Block) error {
	g.tipLock.Lock()
	defer g.tipLock.Unlock()

	if g.tip != nil && newTip.Level() <= g.tip.Level() {
		return errNotMonotone
	}
	if g.tip != nil && !CheckBlockInChain(g.tip, newTip) {
		return errNotChained
	}

	g.tip = newTip
	g.tipSnapshot.Store(newTip)
	atomic.StoreInt64(&g.level, int64(newTip.Level()))
	atomic.StoreInt64(&g.timestamp, int64(newTip.Timestamp()))
	atomic.AddInt32(&g.genstamp, 1)
	return nil
}

// WalkPrior returns the sequence of blocks from start back to (and
// including) the block at until_level, following prior pointers. The
// walk stops early, returning a shorter slice, if it encounters a
// broken (pruned) link before reaching until_level — callers must
// tolerate this (§4.2 "Callers must tolerate seeing null at any point
// past the prune level").
func WalkPrior(start *Block, untilLevel uint64) []*Block {
	var out []*Block
	for cur := start; cur != nil; {
		out = append(out, cur)
		if cur.Level() <= untilLevel {
			break
		}
		cur = cur.PriorBlock()
	}
	return out
}

// CheckBlockInChain reports whether b is an ancestor of tip, i.e. the
// prior-chain from tip reaches b before running off a pruned link or
// below b's level (§4.2).
func CheckBlockInChain(b *Block, tip *Block) bool {
	if b == nil || tip == nil {
		return false
	}
	for cur := tip; cur != nil; {
		if cur.SameNode(b) {
			return true
		}
		if cur.Level() <= b.Level() {
			return false
		}
		cur = cur.PriorBlock()
	}
	return false
}

var (
	errNotMonotone = errors.New("blockgraph: SetLastIndelible called with a non-advancing level")
	errNotChained  = errors.New("blockgraph: SetLastIndelible called with a tip that does not chain back to the prior tip")
)
