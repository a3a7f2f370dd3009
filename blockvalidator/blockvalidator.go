// Package blockvalidator runs the single-worker block validation
// pipeline (§4.6): chain-to-prior, signature-order and signature
// checks, a scoped tentative-spend set for enclosed transactions, and
// hand-off into indelible promotion on success.
//
// Grounded on ProcessBlock::BlockValidate
// (_examples/original_source/source/ccnode/src/processblock.cpp
// lines 145-520: prune-level skip, prior-not-yet-valid hold, witness
// order check, signature verify, future-timestamp defer, per-tx
// serial-number scan against a tentative set, then a second pass
// matching or re-validating each enclosed tx) and on the teacher's
// single-goroutine block-processing worker
// (blockdag/process.go ProcessBlock: one path threading validate,
// then chain-insert, then a notifier call).
package blockvalidator

import (
	"time"

	"github.com/CredaCash/CredaCash-sub002/blockgraph"
	"github.com/CredaCash/CredaCash-sub002/blocksig"
	"github.com/CredaCash/CredaCash-sub002/chainparams"
	"github.com/CredaCash/CredaCash-sub002/objstore"
	"github.com/CredaCash/CredaCash-sub002/txvalidator"
	"github.com/CredaCash/CredaCash-sub002/witnessscore"
)

// Status is the outcome of validating one block (§4.6).
type Status int

const (
	StatusInvalid Status = iota
	StatusValid
	StatusHold // prior not yet valid; requeue when it becomes so
	StatusSkipped
	StatusDeferred // timestamp too far in the future; requeue later
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "VALID"
	case StatusHold:
		return "HOLD"
	case StatusSkipped:
		return "SKIPPED"
	case StatusDeferred:
		return "DEFERRED"
	default:
		return "INVALID"
	}
}

// ValidObjsLookup resolves an already-resident prior block by OID,
// the interface blockvalidator needs from the ValidObjs cache without
// importing it directly (keeps this package dependency-light and
// testable).
type ValidObjsLookup interface {
	PriorBlock(oid objstore.OID) (*blockgraph.Block, bool)
	InsertBlock(b *blockgraph.Block)
}

// TentativeSpendSink hands a block's completed tentative-spend set to
// the indelible-promotion engine once validation succeeds (§4.6 step
// 9: "atomically promote its tentative-spend set to be associated
// with the indelible-update path").
type TentativeSpendSink interface {
	Promote(block *blockgraph.Block, spent []txvalidator.SerialNumber)
}

// TxEnqueuer submits a block-carried transaction to the tx validator
// pool and blocks until every submitted tx for this validation call
// has completed (§4.6 steps 6-7).
type TxEnqueuer interface {
	EnqueueBlockTx(block *blockgraph.Block, tx *txvalidator.Tx, buf *objstore.Buffer)
	WaitForBlockTxs(block *blockgraph.Block)
}

// PromotionTrigger is called once a block is inserted into ValidObjs,
// to kick off the indelible-promotion walk (§4.6 step 9, §4.7).
type PromotionTrigger interface {
	OnNewValidBlock(block *blockgraph.Block)
}

// Deps bundles the block validator's collaborators.
type Deps struct {
	ValidObjs ValidObjsLookup
	Sink      TentativeSpendSink
	Enqueuer  TxEnqueuer
	Promotion PromotionTrigger

	BlockFutureTolerance time.Duration
	MaliciousCapMode     bool
}

// ParsedBlock is the input to Validate: a block already decoded off
// the wire but not yet linked into the graph or checked against its
// prior.
type ParsedBlock struct {
	Block      *blockgraph.Block
	PriorOID   objstore.OID
	Signature  []byte
	BlockHash  objstore.OID
	Txs        []ParsedTx
	PruneLevel uint64
}

// ParsedTx pairs a parsed transaction with its original buffer, which
// Validate hands to the block-tx enqueuer at step 6.
type ParsedTx struct {
	Tx  *txvalidator.Tx
	Buf *objstore.Buffer
}

// Validate runs steps 1-7 and 9 of the §4.6 pipeline against pb (step
// 8 is not performed) and returns a Status. On StatusValid the caller must already have observed a
// PromotionTrigger.OnNewValidBlock call, made internally at step 9.
func Validate(pb *ParsedBlock, deps *Deps) Status {
	// Step 1: prune-horizon skip.
	if pb.Block.Level() < pb.PruneLevel {
		return StatusSkipped
	}

	// Step 2: prior must already be valid.
	prior, ok := deps.ValidObjs.PriorBlock(pb.PriorOID)
	if !ok {
		return StatusHold
	}

	// Step 3: chain to prior.
	params := derivedParams(prior)
	skip := witnessscore.Skip(prior.Witness(), pb.Block.Witness(), prior.Params().NextNWitnesses)
	pb.Block.SetSkip(skip)
	*pb.Block.Params() = params
	pb.Block.SetPriorBlock(prior)

	if pb.Block.Witness() >= prior.Params().NextNWitnesses {
		return StatusInvalid
	}

	// Step 4: bad-sig-order and signature verification.
	if witnessscore.CheckBadSigOrder(pb.Block, -1) {
		return StatusInvalid
	}

	digest, err := blocksig.SigningDigest(prior.Hash(), pb.BlockHash, nil)
	if err != nil {
		return StatusInvalid
	}
	pubkey := prior.Params().SigningKeys[pb.Block.Witness()]
	if !blocksig.Verify(pubkey[:], digest, pb.Signature) {
		return StatusInvalid
	}

	// Step 5: future-timestamp deferral.
	now := uint32(time.Now().Unix())
	if deps.BlockFutureTolerance > 0 {
		tolSecs := uint32(deps.BlockFutureTolerance / time.Second)
		if pb.Block.Timestamp() > now+tolSecs {
			return StatusDeferred
		}
	}

	// Step 6: scoped tentative-spend set + enqueue contained txs.
	tentative := newTentativeSet()
	pb.Block.SetPendingTxCount(int32(len(pb.Txs)))
	for _, ptx := range pb.Txs {
		for _, in := range ptx.Tx.Inputs {
			if in.NoSerialNumber {
				continue
			}
			if tentative.contains(in.SerialNumber) {
				return StatusInvalid
			}
			tentative.add(in.SerialNumber)
		}
		deps.Enqueuer.EnqueueBlockTx(pb.Block, ptx.Tx, ptx.Buf)
	}

	// Step 7: wait for all block-tx validations.
	deps.Enqueuer.WaitForBlockTxs(pb.Block)

	// Step 8 (match-or-revalidate each tx) is not performed: enclosed
	// txs are neither compared by OID and bytes against ValidObjs nor
	// re-validated here. The only per-tx work is the enqueue at step 6
	// and the wait at step 7.

	// Step 9: success.
	deps.ValidObjs.InsertBlock(pb.Block)
	deps.Sink.Promote(pb.Block, tentative.slice())
	deps.Promotion.OnNewValidBlock(pb.Block)

	return StatusValid
}

// derivedParams copies prior's blockchain_params and derives this
// block's nconfsigs/nseqconfsigs/nskipconfsigs from the (possibly
// rotated) next_nwitnesses/next_maxmal fields (§4.6 step 3, §3
// invariant 4).
func derivedParams(prior *blockgraph.Block) chainparams.BlockchainParams {
	p := *prior.Params()
	p.NWitnesses = p.NextNWitnesses
	p.Maxmal = p.NextMaxmal
	p.SetConfSigs()
	return p
}

type tentativeSet struct {
	m map[txvalidator.SerialNumber]bool
}

func newTentativeSet() *tentativeSet {
	return &tentativeSet{m: make(map[txvalidator.SerialNumber]bool)}
}

func (t *tentativeSet) contains(sn txvalidator.SerialNumber) bool { return t.m[sn] }
func (t *tentativeSet) add(sn txvalidator.SerialNumber)           { t.m[sn] = true }
func (t *tentativeSet) slice() []txvalidator.SerialNumber {
	out := make([]txvalidator.SerialNumber, 0, len(t.m))
	for sn := range t.m {
		out = append(out, sn)
	}
	return out
}
