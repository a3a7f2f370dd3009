package blockgraph

import (
	"testing"

	"github.com/CredaCash/CredaCash-sub002/chainparams"
)

func testParams() chainparams.BlockchainParams {
	p := chainparams.BlockchainParams{NWitnesses: 21, Maxmal: 3, NextNWitnesses: 21, NextMaxmal: 3}
	p.SetConfSigs()
	return p
}

func chainOf(n int) []*Block {
	blocks := make([]*Block, n)
	for i := 0; i < n; i++ {
		b := newTestBlock(uint64(i), uint8(i%21))
		if i > 0 {
			b.SetPriorBlock(blocks[i-1])
		}
		blocks[i] = b
	}
	return blocks
}

func TestSetLastIndelibleMonotone(t *testing.T) {
	g := NewGraph()
	blocks := chainOf(5)

	if err := g.SetLastIndelible(blocks[2]); err != nil {
		t.Fatalf("unexpected error advancing to level 2: %v", err)
	}
	if got := g.LastIndelibleLevel(); got != 2 {
		t.Fatalf("LastIndelibleLevel() = %d, want 2", got)
	}

	if err := g.SetLastIndelible(blocks[1]); err == nil {
		t.Fatal("expected error advancing to a lower level")
	}

	if err := g.SetLastIndelible(blocks[4]); err != nil {
		t.Fatalf("unexpected error advancing to level 4: %v", err)
	}
	if got := g.LastIndelibleLevel(); got != 4 {
		t.Fatalf("LastIndelibleLevel() = %d, want 4", got)
	}
}

func TestSetLastIndelibleRejectsUnchained(t *testing.T) {
	g := NewGraph()
	blocks := chainOf(3)
	if err := g.SetLastIndelible(blocks[1]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sibling := newTestBlock(2, 5)
	sibling.SetPriorBlock(newTestBlock(0, 9))

	if err := g.SetLastIndelible(sibling); err == nil {
		t.Fatal("expected error advancing to a block that does not chain back to the current tip")
	}
}

func TestLastIndelibleTripleConsistent(t *testing.T) {
	g := NewGraph()
	blocks := chainOf(3)
	if err := g.SetLastIndelible(blocks[2]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	block, level, timestamp := g.LastIndelibleTriple()
	if block != blocks[2] || level != 2 || timestamp != uint64(blocks[2].Timestamp()) {
		t.Fatalf("inconsistent triple: block=%v level=%d timestamp=%d", block, level, timestamp)
	}
}

func TestGenStampAdvancesOnEachTipChange(t *testing.T) {
	g := NewGraph()
	blocks := chainOf(3)
	start := g.GenStamp()

	if err := g.SetLastIndelible(blocks[1]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.GenStamp() == start {
		t.Fatal("expected genstamp to change after SetLastIndelible")
	}
}

func TestWalkPriorStopsAtLevel(t *testing.T) {
	blocks := chainOf(5)
	tip := blocks[4]

	walk := WalkPrior(tip, 1)
	if len(walk) != 4 {
		t.Fatalf("expected walk of length 4 (levels 4,3,2,1), got %d", len(walk))
	}
	if walk[len(walk)-1] != blocks[1] {
		t.Fatalf("expected walk to stop at level 1, stopped at level %d", walk[len(walk)-1].Level())
	}
}

func TestWalkPriorTolerantOfBrokenLink(t *testing.T) {
	blocks := chainOf(4)
	blocks[1].BreakPriorLink()

	walk := WalkPrior(blocks[3], 0)
	if len(walk) != 3 {
		t.Fatalf("expected walk to stop early at the broken link, got length %d", len(walk))
	}
}

func TestCheckBlockInChain(t *testing.T) {
	blocks := chainOf(5)
	if !CheckBlockInChain(blocks[2], blocks[4]) {
		t.Fatal("expected blocks[2] to be an ancestor of blocks[4]")
	}

	sibling := newTestBlock(3, 9)
	sibling.SetPriorBlock(blocks[1])
	if CheckBlockInChain(sibling, blocks[4]) {
		t.Fatal("did not expect sibling branch to be an ancestor of blocks[4]")
	}
}
