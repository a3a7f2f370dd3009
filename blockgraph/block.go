// Package blockgraph holds the in-memory DAG of Block nodes linked by
// prior edges, and the atomics/spinlock that publish the node's view of
// the last-indelible tip (§4.2).
//
// Grounded on the teacher's VirtualBlock / blockNode pattern
// (blockdag/virtualblock.go, blockdag/dag.go: an embedded node struct,
// a combined tip-set protected by one mutex) carried over to the
// CredaCash prior-pointer model in
// _examples/original_source/source/ccnode/src/block.hpp and block.cpp
// (BlockAux fields, Block::SetPriorBlock/GetPriorBlock under
// prior_block_lock, BlockChain::SetLastIndelibleBlock /
// GetLastIndelibleBlock under a spinlock).
package blockgraph

import (
	"sync/atomic"

	"github.com/CredaCash/CredaCash-sub002/chainparams"
	"github.com/CredaCash/CredaCash-sub002/objstore"
	"github.com/CredaCash/CredaCash-sub002/witnessscore"
)

// auxPriorSlot is the objstore.Buffer aux slot holding the strong
// pointer to this block's prior Block (§3 "Prior pointer").
const auxPriorSlot = 1

// Block is one resident node of the block graph: an objstore.Buffer
// (the wire-format body) plus the aux fields of §3 "Block aux".
type Block struct {
	buf *objstore.Buffer

	level     uint64
	witness   uint8
	skip      uint16
	timestamp uint32

	announceTicks uint32
	fromTxNet     bool

	params chainparams.BlockchainParams

	hash objstore.OID // block-hash, cached
	oid  objstore.OID

	donations uint64

	priorLock objstore.SpinLock

	// witness-private, mutated by at most one role at a time (§9
	// "Shared scratch on blocks"): score cache with generation stamp.
	score    uint64
	bits     uint16
	genstamp uint16

	// signingKey is populated only on a block this node's own witness
	// role is extending; nil otherwise.
	signingKey []byte

	pendingTx int32 // atomic; pending block-tx validations, decremented to 0
}

// NewBlock constructs a resident Block wrapping buf. skip and the
// derived BlockchainParams fields must already be computed by the
// block validator (§4.6 step 3) before the node is linked into the
// graph.
func NewBlock(buf *objstore.Buffer, level uint64, witness uint8, timestamp uint32, params chainparams.BlockchainParams) *Block {
	return &Block{
		buf:       buf,
		level:     level,
		witness:   witness,
		timestamp: timestamp,
		params:    params,
	}
}

// Buffer returns the underlying wire-format body.
func (b *Block) Buffer() *objstore.Buffer { return b.buf }

// Level implements witnessscore.BlockView.
func (b *Block) Level() uint64 { return b.level }

// Witness implements witnessscore.BlockView.
func (b *Block) Witness() uint8 { return b.witness }

// Skip implements witnessscore.BlockView.
func (b *Block) Skip() uint16 { return b.skip }

// SetSkip records the skip value computed by the block validator
// against this block's prior (§4.6 step 3).
func (b *Block) SetSkip(skip uint16) { b.skip = skip }

// Timestamp is the block's packed wire timestamp (§3).
func (b *Block) Timestamp() uint32 { return b.timestamp }

// Params implements witnessscore.BlockView.
func (b *Block) Params() *chainparams.BlockchainParams { return &b.params }

// AnnounceTicks is the monotonic tick at which this block was first
// seen, used by the witness builder's min_time scheduling (§4.11).
func (b *Block) AnnounceTicks() uint32 { return b.announceTicks }

// SetAnnounceTicks records the first-seen tick; called once, at
// insertion into ValidObjs.
func (b *Block) SetAnnounceTicks(t uint32) { b.announceTicks = t }

// FromTxNet reports whether this block arrived via the tx-gossip path
// rather than the block relay path (§3 "from_tx_net flag").
func (b *Block) FromTxNet() bool { return b.fromTxNet }

// SetFromTxNet sets the from_tx_net flag.
func (b *Block) SetFromTxNet(v bool) { b.fromTxNet = v }

// Hash returns the cached block-hash, computing nothing: it must be
// set by SetHash once blocksig.CalcHash has run.
func (b *Block) Hash() objstore.OID { return b.hash }

// SetHash caches the block-hash (§3 invariant 7).
func (b *Block) SetHash(h objstore.OID) { b.hash = h }

// OID returns the cached object id.
func (b *Block) OID() objstore.OID { return b.oid }

// SetOID caches the object id (§3 invariant 7).
func (b *Block) SetOID(oid objstore.OID) { b.oid = oid }

// Donations is the cumulative donation total carried in this block's
// aux (§3 "Block aux").
func (b *Block) Donations() uint64 { return b.donations }

// SetDonations records the cumulative donation total.
func (b *Block) SetDonations(d uint64) { b.donations = d }

// ScoreCache implements witnessscore.BlockView.
func (b *Block) ScoreCache() (score uint64, bits uint16, genstamp uint16) {
	return b.score, b.bits, b.genstamp
}

// SetScoreCache implements witnessscore.BlockView.
func (b *Block) SetScoreCache(score uint64, bits uint16, genstamp uint16) {
	b.score, b.bits, b.genstamp = score, bits, genstamp
}

// SigningKey returns the witness's local private signing key, non-nil
// only while this node is building a block extending b.
func (b *Block) SigningKey() []byte { return b.signingKey }

// SetSigningKey attaches a local private signing key.
func (b *Block) SetSigningKey(k []byte) { b.signingKey = k }

// SameNode implements witnessscore.BlockView by pointer identity.
func (b *Block) SameNode(other witnessscore.BlockView) bool {
	ob, ok := other.(*Block)
	return ok && ob == b
}

// Prior returns the strong handle to this block's parent, or nil if
// the edge has been broken by expire/prune (§9 "Cyclic graph vs.
// back-links") or this is genesis. Safe for concurrent readers; the
// link is only ever replaced under priorLock.
func (b *Block) Prior() witnessscore.BlockView {
	p := b.PriorBlock()
	if p == nil {
		return nil
	}
	return p
}

// PriorBlock returns the concrete *Block parent, or nil.
func (b *Block) PriorBlock() *Block {
	b.priorLock.Lock()
	defer b.priorLock.Unlock()
	v := b.buf.AuxPtr(auxPriorSlot)
	if v == nil {
		return nil
	}
	return v.(*Block)
}

// SetPriorBlock replaces the prior edge, adjusting reference counts on
// both the new and the old target (§4.1: "replacing it increments the
// new target's refcount and decrements the old one"). Guarded by
// priorLock since any validator thread may be following the edge
// concurrently.
func (b *Block) SetPriorBlock(prior *Block) {
	b.priorLock.Lock()
	old := b.buf.AuxPtr(auxPriorSlot)
	if prior != nil {
		prior.buf.IncRef()
	}
	_ = b.buf.SetAuxPtr(auxPriorSlot, prior)
	b.priorLock.Unlock()

	if old != nil {
		old.(*Block).buf.DecRef()
	}
}

// BreakPriorLink severs the prior edge without installing a
// replacement, the expire/prune reclaim mechanism (§9).
func (b *Block) BreakPriorLink() {
	b.SetPriorBlock(nil)
}

// PendingTxCount returns the number of not-yet-validated transactions
// still outstanding for this block (§4.6 step 7).
func (b *Block) PendingTxCount() int32 {
	return atomic.LoadInt32(&b.pendingTx)
}

// SetPendingTxCount initializes the pending-tx counter when the block
// validator enqueues its contained transactions.
func (b *Block) SetPendingTxCount(n int32) {
	atomic.StoreInt32(&b.pendingTx, n)
}

// DecPendingTx decrements the pending-tx counter and reports whether
// this call brought it to zero (§4.5 "Success": "decrement the
// block's pending-tx counter and, when zero, wake the block
// validator").
func (b *Block) DecPendingTx() bool {
	return atomic.AddInt32(&b.pendingTx, -1) == 0
}
