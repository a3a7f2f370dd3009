// Package blocksig computes the block-hash and object-id of a block's
// wire bytes and implements the ed25519 cumulative-hash sign/verify
// scheme witnesses use to extend the chain (§4.4).
//
// Grounded directly on Block::CalcHash, Block::CalcOid,
// Block::CummulativeHash and Block::SignOrVerify
// (_examples/original_source/source/ccnode/src/block.cpp lines
// 491-612): block-hash is a blake2b-512 keyed by the wire header tag
// over the body minus the signature, kept here as its first 32 bytes; OID is a blake2s-256 keyed the
// same way over (block-hash || signature); the signed digest is a
// cumulative blake2b-512 chain seeded with the prior block's hash.
package blocksig

import (
	"crypto/ed25519"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"

	"github.com/CredaCash/CredaCash-sub002/objstore"
)

// PublicKeySize and PrivateKeySize match ed25519's, named here so
// callers outside crypto/ed25519 don't need that import just to size
// a key vector.
const (
	PublicKeySize  = ed25519.PublicKeySize
	PrivateKeySize = ed25519.PrivateKeySize
	SignatureSize  = ed25519.SignatureSize
)

// CalcHash computes the block-hash: a keyed blake2b-512 hash over
// bodyMinusSignature, keyed by the 4-byte little-endian wire header
// tag (§3 "Block hash", invariant 7). The 64-byte digest is truncated
// to its first 32 bytes, the size of an objstore.OID.
func CalcHash(headerTag uint32, bodyMinusSignature []byte) (objstore.OID, error) {
	key := tagKey(headerTag)
	h, err := blake2b.New512(key)
	if err != nil {
		return objstore.OID{}, errors.Wrap(err, "blocksig: blake2b.New512")
	}
	h.Write(bodyMinusSignature)
	var out objstore.OID
	copy(out[:], h.Sum(nil))
	return out, nil
}

// CalcOid computes the object id: a keyed blake2s-256 hash, keyed the
// same way as CalcHash, over (blockHash || signature) (§3 "Object
// ID", invariant 7).
func CalcOid(headerTag uint32, blockHash objstore.OID, signature []byte) (objstore.OID, error) {
	key := tagKey(headerTag)
	h, err := blake2s.New256(key)
	if err != nil {
		return objstore.OID{}, errors.Wrap(err, "blocksig: blake2s.New256")
	}
	h.Write(blockHash[:])
	h.Write(signature)
	var out objstore.OID
	copy(out[:], h.Sum(nil))
	return out, nil
}

// tagKey packs headerTag into a little-endian byte key for the keyed
// hash constructors. blake2b/blake2s key length is capped at their
// respective block sizes; 4 bytes is always valid for both.
func tagKey(headerTag uint32) []byte {
	return []byte{
		byte(headerTag),
		byte(headerTag >> 8),
		byte(headerTag >> 16),
		byte(headerTag >> 24),
	}
}

// CumulativeHash folds data into the running digest d: d' = H(d ||
// data), matching Block::CummulativeHash exactly (a fresh,
// unkeyed blake2b-512 state seeded by writing the prior digest in
// first). The original traces this step only under a verbose logging
// flag, conditioned on level*verify; no such tracing is needed here.
func CumulativeHash(d [64]byte, data []byte) ([64]byte, error) {
	h, err := blake2b.New512(nil)
	if err != nil {
		return d, errors.Wrap(err, "blocksig: blake2b.New512")
	}
	h.Write(d[:])
	h.Write(data)
	var out [64]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}

// SigningDigest builds the cumulative-hash digest a witness signs or
// verifies: seeded with priorBlockHash, folded once with thisBlockHash,
// and (only when key rotation is enabled) folded again with
// nextSigningPublicKey (§4.4 steps 1-3).
func SigningDigest(priorBlockHash, thisBlockHash objstore.OID, nextSigningPublicKey []byte) ([64]byte, error) {
	var d [64]byte
	copy(d[:], priorBlockHash[:])

	d, err := CumulativeHash(d, thisBlockHash[:])
	if err != nil {
		return d, err
	}

	if nextSigningPublicKey != nil {
		d, err = CumulativeHash(d, nextSigningPublicKey)
		if err != nil {
			return d, err
		}
	}

	return d, nil
}

// Sign signs digest with the witness's private key (§4.4: "Sign d
// using the witness's private key").
func Sign(priv ed25519.PrivateKey, digest [64]byte) []byte {
	return ed25519.Sign(priv, digest[:])
}

// Verify checks signature against digest and the public key carried
// in the prior block's aux at this block's witness index. Callers
// must separately enforce `witness < prior.next_nwitnesses` (§4.4:
// "Verification must also enforce this.witness < prior.next_nwitnesses"),
// since that check depends on fields outside this package's scope.
func Verify(pub ed25519.PublicKey, digest [64]byte, signature []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, digest[:], signature)
}
