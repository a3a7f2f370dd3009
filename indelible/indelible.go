// Package indelible walks a newly valid block's ancestry to find the
// deepest block that has now accumulated enough distinct-witness
// confirmations to be permanently committed, then atomically
// advances the graph's last-indelible tip and persists its spends
// (§4.7).
//
// Grounded on BlockChain's last-indelible fields and accessors
// (_examples/original_source/source/ccnode/src/blockchain.hpp lines
// 36-156: m_last_indelible_block/level/timestamp, FastSpinLock-guarded
// SetLastIndelible, GetLastIndelibleValues) and on the teacher's
// single notifier-driven promotion call after block insertion
// (blockdag/dag.go updateVirtualChainIfNeeded, invoked once per
// processed block).
package indelible

import (
	"github.com/CredaCash/CredaCash-sub002/blockgraph"
	"github.com/CredaCash/CredaCash-sub002/txvalidator"
)

// Store persists indelible state in a single write transaction per
// advance (§4.7: "writes the block's serial numbers and outputs to
// the persistent store inside a single write transaction").
type Store interface {
	CommitBlock(b *blockgraph.Block, serials []txvalidator.SerialNumber) error
}

// SpendSource supplies the tentative-spend set a block accumulated
// during validation (§4.6 step 9), keyed by the block's pointer
// identity, matching the original's "no contention across concurrent
// block validations" design (§5 "Shared-resource policy").
type SpendSource interface {
	TentativeSpends(b *blockgraph.Block) []txvalidator.SerialNumber
}

// Pruner is invoked after each advance to clear queue entries and
// scratch tables below the new horizon (§4.7: "prunes expired queue
// entries below the new horizon and periodically ... sweeps the
// tentative-serial-number table").
type Pruner interface {
	PruneBelow(level uint64)
	SweepTentativeSerials(level uint64)
}

// SweepEveryLevels is the interval §4.7 specifies for the
// tentative-serial-number table sweep ("periodically (every 4
// levels)").
const SweepEveryLevels = 4

// Engine drives promotion for one Graph.
type Engine struct {
	Graph   *blockgraph.Graph
	Spends  SpendSource
	Store   Store
	Pruner  Pruner

	lastSweptLevel uint64
}

// OnNewValidBlock is called once per block validated (§4.7
// "Triggered by each newly valid block"). It finds the deepest
// ancestor of b that now has nconfsigs distinct-witness confirmations
// within the permitted window and, if that is beyond the current
// tip, advances it.
func (e *Engine) OnNewValidBlock(b *blockgraph.Block) error {
	lastIndelible := e.Graph.LastIndelibleBlock()
	if lastIndelible == nil {
		return nil // graph not yet seeded with genesis
	}

	candidate := ComputeIndelibleCandidate(b, lastIndelible)
	if candidate == nil || candidate.Level() <= lastIndelible.Level() {
		return nil
	}

	serials := e.Spends.TentativeSpends(candidate)
	if e.Store != nil {
		if err := e.Store.CommitBlock(candidate, serials); err != nil {
			return err
		}
	}

	if err := e.Graph.SetLastIndelible(candidate); err != nil {
		return err
	}

	if e.Pruner != nil {
		e.Pruner.PruneBelow(candidate.Level())
		if candidate.Level()-e.lastSweptLevel >= SweepEveryLevels {
			e.Pruner.SweepTentativeSerials(candidate.Level())
			e.lastSweptLevel = candidate.Level()
		}
	}

	return nil
}

// ComputeIndelibleCandidate walks from tip back toward lastIndelible,
// accumulating distinct witnesses seen, and returns the highest-level
// ancestor whose confirming suffix (tip down to that ancestor) first
// reaches tip's own nconfsigs distinct witnesses, bounded by
// max(nskipconfsigs, nseqconfsigs) levels of depth (§4.7: "a block
// becomes indelible when its descendant branch accumulates nconfsigs
// signatures from distinct witnesses within the window permitted by
// nskipconfsigs and nseqconfsigs"). Returns nil if no such ancestor
// exists above lastIndelible within the window.
func ComputeIndelibleCandidate(tip *blockgraph.Block, lastIndelible *blockgraph.Block) *blockgraph.Block {
	params := tip.Params()
	window := params.NSkipConfSigs
	if params.NSeqConfSigs > window {
		window = params.NSeqConfSigs
	}

	seen := make(map[uint8]bool, params.NConfSigs)
	var candidate *blockgraph.Block

	depth := uint16(0)
	for cur := tip; cur != nil; {
		if cur.Level() <= lastIndelible.Level() {
			break
		}
		seen[cur.Witness()] = true
		if uint16(len(seen)) >= params.NConfSigs {
			candidate = cur
			break
		}
		depth++
		if depth > window {
			break
		}
		cur = cur.PriorBlock()
	}

	return candidate
}
