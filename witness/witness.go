// Package witness implements the block-building role (§4.11): pick
// the best currently-valid block to extend, compute its scheduled
// min_time, and assemble and sign a new block over a caller-supplied
// body, returned for submission to the block validator.
//
// Grounded on Witness::FindBestBuildingBlock and the timing logic in
// Witness::ThreadProc
// (_examples/original_source/source/ccnode/src/witness.cpp lines
// 446-535 and 540-710: scan every currently-valid candidate block not
// below the highest level this witness has already signed, skip
// blocks with a bad signature order, score each with CalcSkipScore
// and keep the best, then derive min_time from the winner's skip
// value and WITNESS_TIME_SPACING) and on the teacher's block template
// assembly loop (mining/mining.go NewBlockTemplate: pull candidates
// off a priority queue, respect a minimum work time, assemble and
// sign).
package witness

import (
	"time"

	"github.com/CredaCash/CredaCash-sub002/blockgraph"
	"github.com/CredaCash/CredaCash-sub002/blocksig"
	"github.com/CredaCash/CredaCash-sub002/objstore"
	"github.com/CredaCash/CredaCash-sub002/witnessscore"
)

// TimeSpacing is the minimum interval between successive signed
// blocks from the same witness slot, scaled by how many witnesses
// were skipped (witness.cpp WITNESS_TIME_SPACING, block_time_ms).
var TimeSpacing = time.Second

// MinWorkTime is the minimum duration a witness spends assembling a
// candidate block's transactions before it is eligible to sign
// (witness.cpp MIN_BLOCK_WORK_TIME, block_min_work_ms).
var MinWorkTime = 200 * time.Millisecond

// Candidates supplies the pool of currently-valid blocks a witness
// may extend, in no particular order (mirrors ProcessQGetNextValidObj
// over PROCESS_Q_TYPE_BLOCK).
type Candidates interface {
	ValidBlocks() []*blockgraph.Block
}

// TxSource supplies pending transactions to assemble into a new
// block, and the cumulative donation total they carry.
type TxSource interface {
	PendingTxs(maxBytes int) (txs []objstore.Buffer, donations uint64)
}

// Signer produces a signature over a block's signing digest with this
// witness's private key.
type Signer interface {
	PublicKey() []byte
	Sign(digest [64]byte) []byte
}

// Engine drives one witness slot's block-building loop.
type Engine struct {
	WitnessIndex   uint8
	Candidates     Candidates
	Txs            TxSource
	Signer         Signer
	MaxBlockBytes  int
	IgnoreSigOrder bool // maltest data-path guard (§9): never set true in production

	highestWitnessedLevel uint64
}

// FindBestBuildingBlock scans every currently valid block and returns
// the one with the highest skip-score this witness may legally
// extend: at or above the highest level it has already built on,
// passing CheckBadSigOrder, and strictly better-scored than the
// running best (witness.cpp FindBestBuildingBlock).
func (e *Engine) FindBestBuildingBlock(lastIndelible *blockgraph.Block) *blockgraph.Block {
	var best *blockgraph.Block
	var bestScore uint64

	for _, candidate := range e.Candidates.ValidBlocks() {
		level := candidate.Level()

		if e.highestWitnessedLevel > level && !e.IgnoreSigOrder {
			continue
		}

		if witnessscore.CheckBadSigOrder(candidate, int(e.WitnessIndex)) && !e.IgnoreSigOrder {
			continue
		}

		score := witnessscore.CalcSkipScore(candidate, int(e.WitnessIndex), lastIndelible, 0, e.IgnoreSigOrder)
		if bestScore >= score && !e.IgnoreSigOrder {
			continue
		}

		best = candidate
		bestScore = score

		if e.IgnoreSigOrder {
			break // take the first legal block, per the maltest data-path guard
		}
	}

	return best
}

// MinTime derives the earliest wall-clock time this witness may sign
// a block extending building, from its skip value and the announce
// tick it first became visible at (witness.cpp ThreadProc's min_time
// derivation: "min_time = announce_ticks; min_time += (skip+1) *
// WITNESS_TIME_SPACING").
func MinTime(building *blockgraph.Block, startTime time.Time) time.Time {
	announced := time.Unix(0, 0).Add(time.Duration(building.AnnounceTicks()) * time.Millisecond)
	minTime := announced.Add(time.Duration(building.Skip()+1) * TimeSpacing)

	if minTime.Sub(startTime) <= MinWorkTime {
		minTime = startTime.Add(MinWorkTime)
	}
	return minTime
}

// AssembledBlock is a new block built and signed by this witness,
// ready for submission back into the block validator.
type AssembledBlock struct {
	Block     *blockgraph.Block
	Signature []byte
	BlockHash objstore.OID
}

// BuildAndSign assembles a new block extending building over the
// caller-supplied body (it does not draw transactions from Txs),
// computes the block hash over that body, and signs the cumulative digest against
// building's hash (§4.11, grounded on blocksig.SigningDigest/Sign,
// the same primitives the block validator verifies against).
func (e *Engine) BuildAndSign(building *blockgraph.Block, level uint64, timestamp uint32, headerTag uint32, body []byte) (*AssembledBlock, error) {
	blockHash, err := blocksig.CalcHash(headerTag, body)
	if err != nil {
		return nil, err
	}

	digest, err := blocksig.SigningDigest(building.Hash(), blockHash, nil)
	if err != nil {
		return nil, err
	}

	sig := e.Signer.Sign(digest)

	buf := objstore.NewBuffer(objstore.OID{}, body)
	newBlock := blockgraph.NewBlock(buf, level, e.WitnessIndex, timestamp, *building.Params())
	newBlock.SetHash(blockHash)
	newBlock.SetPriorBlock(building)

	if level > e.highestWitnessedLevel {
		e.highestWitnessedLevel = level
	}

	return &AssembledBlock{Block: newBlock, Signature: sig, BlockHash: blockHash}, nil
}
