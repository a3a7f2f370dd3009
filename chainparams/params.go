// Package chainparams holds the committee-sizing and timing constants
// that parameterize a CredaCash network, along with the per-branch
// witness rotation state (BlockchainParams) carried in every block's
// aux record.
//
// Grounded on dagconfig/params.go's per-network parameter struct and on
// the constants pulled directly from the original block.hpp/blockchain.hpp
// (MAX_NWITNESSES, MAX_NCONFSIGS, the nconfsigs/nskipconfsigs/nseqconfsigs
// derivation in BlockAux::SetConfSigs).
package chainparams

import "time"

// MaxWitnesses is the hard ceiling on committee size; a witness index is
// always < MaxWitnesses for any resident block.
const MaxWitnesses = 21

// MaxNConfSigs bounds the derived confirmation-signature counts so a
// pathological maxmal can't make a branch un-confirmable.
const MaxNConfSigs = MaxWitnesses + (MaxWitnesses-1)/2

// Epoch is the fixed reference point block timestamps are packed as an
// offset from.
var Epoch = time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC)

// BlockchainParams is the per-branch witness-rotation state carried in
// each block's aux record (§3 "Block aux"). It is copied from the prior
// block and then adjusted for this block's level by BlockValidator.
type BlockchainParams struct {
	NWitnesses uint16
	Maxmal     uint16

	NConfSigs     uint16
	NSeqConfSigs  uint16
	NSkipConfSigs uint16

	// NextNWitnesses / NextMaxmal take effect for this block's children;
	// they are what a rotation-committing block updates.
	NextNWitnesses uint16
	NextMaxmal     uint16

	// SigningKeys[i] is the public key the i'th witness signs with when
	// extending a block whose aux carries this BlockchainParams.
	SigningKeys [MaxWitnesses]BlockSigningPublicKey
}

// BlockSigningPublicKey is an ed25519 public key, kept as a distinct type
// so callers can't confuse it with other 32-byte values in the aux record.
type BlockSigningPublicKey [32]byte

// SetConfSigs derives NConfSigs/NSeqConfSigs/NSkipConfSigs from
// NWitnesses/Maxmal, matching invariant 4 of §3 and the original
// BlockAux::SetConfSigs: the two confsigs variants coincide whenever
// Maxmal > 0, and only diverge in the Maxmal == 0 case. This is
// deliberate (see DESIGN.md Open Question) and must not be collapsed
// into a single field.
func (p *BlockchainParams) SetConfSigs() {
	if p.NWitnesses == 0 {
		p.NWitnesses = 1
	}
	if p.Maxmal >= (p.NWitnesses+1)/2 {
		p.Maxmal = (p.NWitnesses - 1) / 2
	}

	p.NConfSigs = (p.NWitnesses-p.Maxmal)/2 + p.Maxmal + 1
	p.NSkipConfSigs = p.NWitnesses + p.Maxmal

	if p.Maxmal > 0 {
		p.NSeqConfSigs = p.NSkipConfSigs
	} else {
		p.NSeqConfSigs = p.NConfSigs
	}

	if p.NConfSigs > MaxNConfSigs {
		p.NConfSigs = MaxNConfSigs
	}
	if p.NSeqConfSigs > MaxNConfSigs {
		p.NSeqConfSigs = MaxNConfSigs
	}
	if p.NSkipConfSigs > MaxNConfSigs {
		p.NSkipConfSigs = MaxNConfSigs
	}
}

// MintWindow describes the feature-gated genesis mint period (§6): for
// the first Count levels, only mint transactions are accepted, one per
// accepting witness per level.
type MintWindow struct {
	Enabled    bool
	Count      uint64
	AcceptSpan uint64
	KeyID      uint32
}

// GenesisParams seeds the rotation state used by the genesis block and
// by a mint-window rotation reset at level Count+AcceptSpan.
type GenesisParams struct {
	NWitnesses uint16
	Maxmal     uint16
	Mint       MintWindow
}

// NodeParams are the runtime-tunable knobs that are not derived from the
// block graph itself.
type NodeParams struct {
	Genesis GenesisParams

	// BlockFutureTolerance bounds how far ahead of local wall-clock a
	// block's timestamp may be before the block validator defers it.
	BlockFutureTolerance time.Duration

	// MaxParamAge is how long a param_level's Merkle root remains usable
	// for proof verification after a newer one replaces it.
	MaxParamAge time.Duration

	// BlockTimeMS is the target spacing between blocks.
	BlockTimeMS uint32

	// MaliciousCapMode names the CalcSkipScore overflow behavior used
	// by the "test_mal" fault-injection mode, in which an over-64-bit
	// score caps instead of collapsing to zero. It is copied into
	// blockvalidator.Deps, which Validate does not read; CalcSkipScore
	// takes the choice as its maltest argument. Production nodes run
	// with this false (see SPEC_FULL.md §4, witness.cpp
	// FindBestBuildingBlock maltest path).
	MaliciousCapMode bool
}

// DefaultNodeParams mirrors the constants hard-coded in the original
// ccnode.cpp bootstrap (max_param_age = 16*60*60 seconds) and the
// block.hpp/witness.cpp committee defaults.
func DefaultNodeParams() NodeParams {
	return NodeParams{
		Genesis: GenesisParams{
			NWitnesses: 21,
			Maxmal:     3,
		},
		BlockFutureTolerance: 60 * time.Second,
		MaxParamAge:          16 * time.Hour,
		BlockTimeMS:          10000,
		MaliciousCapMode:     false,
	}
}
