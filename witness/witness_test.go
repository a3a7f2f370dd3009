package witness

import (
	"testing"
	"time"

	"github.com/CredaCash/CredaCash-sub002/blockgraph"
	"github.com/CredaCash/CredaCash-sub002/chainparams"
	"github.com/CredaCash/CredaCash-sub002/objstore"
)

type fakeCandidates struct {
	blocks []*blockgraph.Block
}

func (f *fakeCandidates) ValidBlocks() []*blockgraph.Block { return f.blocks }

type fakeSigner struct {
	pub []byte
}

func (f *fakeSigner) PublicKey() []byte         { return f.pub }
func (f *fakeSigner) Sign(digest [64]byte) []byte { return append([]byte{}, digest[:16]...) }

func testParams(nwitnesses, maxmal uint16) chainparams.BlockchainParams {
	p := chainparams.BlockchainParams{NWitnesses: nwitnesses, Maxmal: maxmal, NextNWitnesses: nwitnesses, NextMaxmal: maxmal}
	p.SetConfSigs()
	return p
}

func newBlock(level uint64, witness uint8, params chainparams.BlockchainParams) *blockgraph.Block {
	buf := objstore.NewBuffer(objstore.OID{byte(level), witness}, []byte("b"))
	return blockgraph.NewBlock(buf, level, witness, uint32(level), params)
}

func TestFindBestBuildingBlockPicksHighestScoringCandidate(t *testing.T) {
	params := testParams(5, 0)
	genesis := newBlock(0, 0, params)

	a := newBlock(1, 1, params)
	a.SetPriorBlock(genesis)
	b := newBlock(1, 2, params)
	b.SetPriorBlock(genesis)

	e := &Engine{WitnessIndex: 3, Candidates: &fakeCandidates{blocks: []*blockgraph.Block{a, b}}}

	best := e.FindBestBuildingBlock(genesis)
	if best == nil {
		t.Fatal("expected a building block to be selected")
	}
	// b's witness 2 directly precedes witness 3 (skip 0), a's witness 1
	// does not (skip 1), so b scores higher.
	if best != b {
		t.Fatalf("expected the higher-scoring candidate (witness 2), got witness %d", best.Witness())
	}
}

func TestFindBestBuildingBlockSkipsLevelsBelowHighestWitnessed(t *testing.T) {
	params := testParams(5, 0)
	genesis := newBlock(0, 0, params)

	low := newBlock(1, 1, params)
	low.SetPriorBlock(genesis)

	e := &Engine{WitnessIndex: 3, Candidates: &fakeCandidates{blocks: []*blockgraph.Block{low}}}
	e.highestWitnessedLevel = 5

	if best := e.FindBestBuildingBlock(genesis); best != nil {
		t.Fatalf("expected no candidate below the highest witnessed level, got level %d", best.Level())
	}
}

func TestMinTimeRespectsMinWorkTime(t *testing.T) {
	params := testParams(5, 0)
	b := newBlock(1, 1, params)
	b.SetAnnounceTicks(0)
	b.SetSkip(0)

	start := time.Now()
	mt := MinTime(b, start)
	if mt.Before(start.Add(MinWorkTime)) {
		t.Fatalf("expected min_time to respect MinWorkTime, got %v vs start+minwork %v", mt, start.Add(MinWorkTime))
	}
}

func TestBuildAndSignProducesLinkedSignedBlock(t *testing.T) {
	params := testParams(5, 0)
	prior := newBlock(0, 0, params)
	prior.SetHash(objstore.OID{0xAA})

	e := &Engine{WitnessIndex: 1, Signer: &fakeSigner{pub: []byte("pub")}}
	assembled, err := e.BuildAndSign(prior, 1, 100, 0xABCD, []byte("body"))
	if err != nil {
		t.Fatal(err)
	}
	if assembled.Block.PriorBlock() != prior {
		t.Fatal("expected the assembled block to link back to its prior")
	}
	if len(assembled.Signature) == 0 {
		t.Fatal("expected a non-empty signature")
	}
	if e.highestWitnessedLevel != 1 {
		t.Fatalf("expected highestWitnessedLevel to advance to 1, got %d", e.highestWitnessedLevel)
	}
}
