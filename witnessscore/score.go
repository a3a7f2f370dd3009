// Package witnessscore computes the skip value and skip-score used to
// pick a canonical branch among competing tips of the block graph, and
// the signature-order check that rejects a witness signing too often
// within a confirmation window.
//
// Grounded directly on the original CredaCash Block::ComputeSkip,
// Block::CheckBadSigOrder and Block::CalcSkipScore
// (_examples/original_source/source/ccnode/src/block.cpp), carried over
// to Go in the teacher's dag-branch-selection idiom
// (blockdag/ghostdag.go, blockdag/blues.go: a pure function over a
// block-graph view, no package-level mutable state).
package witnessscore

import "github.com/CredaCash/CredaCash-sub002/chainparams"

// MaxScoreBits is the fixed width a skip-score is left-justified into.
// A branch whose accumulated shift would overflow this window either
// disqualifies (score collapses to 0) or, in malicious-test-mode, caps.
const MaxScoreBits = 64

// BlockView is the minimal read/write surface witnessscore needs from a
// resident block graph node. blockgraph.Block implements it; keeping it
// as an interface here avoids a dependency cycle between the graph and
// the scoring engine, mirroring the teacher's separation of
// dagtopologymanager from dagtraversalmanager.
type BlockView interface {
	Level() uint64
	Witness() uint8
	Skip() uint16
	Params() *chainparams.BlockchainParams
	Prior() BlockView

	// ScoreCache returns the memoized skip-score for this node along
	// with the generation stamp it was computed under.
	ScoreCache() (score uint64, bits uint16, genstamp uint16)
	SetScoreCache(score uint64, bits uint16, genstamp uint16)

	// Same pointer identity as returned by Prior(); used only to detect
	// "this node is the last-indelible tip" without relying on level
	// comparisons, which is unsafe once levels start repeating across
	// a reused BlockView in tests.
	SameNode(other BlockView) bool
}

// Skip is the number of witnesses that "missed a turn" between the
// prior block's witness and this block's witness, out of n committee
// seats: skip(prev, next, n) = (next - ((prev+1) mod n) + n) mod n.
//
// S1: Skip(3,4,21)=0; Skip(3,3,21)=20; Skip(20,0,21)=0; Skip(0,5,21)=4.
// §8 property 4: Skip(w,w,n) = n-1; Skip(n-1,0,n) = 0.
func Skip(prevWitness, nextWitness uint8, n uint16) uint16 {
	if n == 0 {
		return 0
	}
	pn := uint32(prevWitness) + 1
	next := uint32(nextWitness)
	nn := uint32(n)
	return uint16((next - (pn % nn) + nn) % nn)
}

// CheckBadSigOrder sums the skip values of b and its predecessors,
// nconfsigs blocks in all counting b (one fewer when topWitness >= 0
// names a witness considering extending b, whose own skip over b is
// counted first and takes that block's place in the count). If the
// running sum plus nconfsigs exceeds nwitnesses, a single witness could
// have signed twice inside the confirmation window and the block is
// rejected.
//
// topWitness >= 0 is used when a witness-builder is probing whether it
// could safely extend b; it substitutes the candidate's own
// nwitnesses/maxmal/nconfsigs (from b.Params().NextNWitnesses /
// NextMaxmal) for the check, since the new block hasn't been
// constructed yet. This mirrors the original's "next_nwitnesses" branch
// of CheckBadSigOrder (top_witness >= 0).
func CheckBadSigOrder(b BlockView, topWitness int) bool {
	params := b.Params()
	nwitnesses := params.NWitnesses
	nconfsigs := params.NConfSigs

	if topWitness >= 0 {
		nwitnesses = params.NextNWitnesses
		nconfsigs = (nwitnesses-params.NextMaxmal)/2 + params.NextMaxmal + 1
	}

	var nsigs uint16
	var skipsum uint32

	if topWitness >= 0 {
		nsigs++
		skipsum += uint32(Skip(b.Witness(), uint8(topWitness), nwitnesses))
	}

	cur := b
	for nsigs < nconfsigs {
		nsigs++
		skipsum += uint32(cur.Skip())

		prior := cur.Prior()
		if prior == nil {
			if cur.Level() != 0 {
				// Ran off a null prior before genesis: fatally malformed.
				return true
			}
			break
		}
		cur = prior
	}

	return skipsum+uint32(nconfsigs) > uint32(nwitnesses)
}

// CalcSkipScore returns 0 if b does not chain back to lastIndelible;
// otherwise it walks from b back to lastIndelible, at each step
// shifting the accumulator left by (skip+1) bits and ORing in a
// terminal 1, then left-justifies the result to MaxScoreBits. Smaller
// skip values produce denser bits nearer the top, so a
// fewest-missed-turns branch wins a plain uint64 compare.
//
// genstamp, when nonzero, memoizes the per-node partial result on b's
// aux (ScoreCache) keyed by that generation stamp; callers bump the
// stamp whenever the last-indelible tip advances so stale memos are
// recomputed (§4.3).
//
// topWitness >= 0 prepends one extra (skip+1) shift for the witness
// index that would extend b, used by the witness-builder to rank
// candidate parents before it has built anything.
func CalcSkipScore(b BlockView, topWitness int, lastIndelible BlockView, genstamp uint16, maltest bool) uint64 {
	if maltest && b.Level() <= maltestFloor(b, lastIndelible) {
		return 0
	}

	score, scorebits := calcSkipScoreRecursive(b, lastIndelible, genstamp, maltest)

	if score != 0 && topWitness >= 0 {
		nwitnesses := b.Params().NextNWitnesses
		skip := Skip(b.Witness(), uint8(topWitness), nwitnesses)
		score <<= uint(skip) + 1
		score |= 1
		scorebits += uint32(skip) + 1
	}

	if scorebits > MaxScoreBits {
		if maltest {
			scorebits = MaxScoreBits
		} else {
			score = 0
		}
	}

	if scorebits < MaxScoreBits {
		score <<= MaxScoreBits - scorebits
	}

	return score
}

func maltestFloor(b BlockView, lastIndelible BlockView) uint64 {
	offset := uint64(b.Params().NSkipConfSigs)
	target := lastIndelible.Level()
	if target <= offset {
		return 0
	}
	return target - offset
}

func calcSkipScoreRecursive(b BlockView, lastIndelible BlockView, genstamp uint16, maltest bool) (score uint64, scorebits uint32) {
	if genstamp != 0 {
		if cached, bits, stamp := b.ScoreCache(); stamp == genstamp {
			return cached, uint32(bits)
		}
	}

	if !maltest && b.SameNode(lastIndelible) {
		return 1, 1
	}

	if !maltest && b.Level() <= lastIndelible.Level() {
		return 0, 0
	}

	if maltest && b.Level() <= maltestFloor(b, lastIndelible) {
		return 1, 1
	}

	prior := b.Prior()
	if prior == nil {
		if !maltest {
			return 0, 0
		}
		return 1, 1
	}

	score, scorebits = calcSkipScoreRecursive(prior, lastIndelible, genstamp, maltest)
	if score == 0 {
		return 0, 0
	}

	skip := b.Skip()
	score <<= uint(skip) + 1
	score |= 1
	scorebits += uint32(skip) + 1

	if genstamp != 0 {
		b.SetScoreCache(score, uint16(scorebits), genstamp)
	}

	return score, scorebits
}
