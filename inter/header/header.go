// Package header defines the block header representation consumed by the chain-state trust
// model. Only the parts of a header that the finalized chain state depends on are modelled:
// the block number, the commitments and the digest. Decoding headers from their wire format
// is done elsewhere; this package works on already decoded values.
package header

import (
	"crypto/sha256"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/rlp"
)

// Header is a decoded block header.
type Header struct {
	// ParentHash is the hash of the parent block. Zero for the genesis block.
	ParentHash hash.Hash

	// Number is the height of the block. The genesis block is number 0.
	Number idx.Block

	// StateRoot is the root of the storage trie after executing the block.
	StateRoot hash.Hash

	// ExtrinsicsRoot is the root of the trie of the block body.
	ExtrinsicsRoot hash.Hash

	// Digest is the list of engine-specific log items attached to the block.
	Digest Digest
}

// Hash calculates the SHA256 hash of the RLP-encoded header.
func (h *Header) Hash() hash.Hash {
	hasher := sha256.New()
	if err := rlp.Encode(hasher, h); err != nil {
		panic("can't hash: " + err.Error())
	}
	return hash.BytesToHash(hasher.Sum(nil))
}

// Copy creates a deep copy of the header. The digest items hold pointers and slices, so a
// plain assignment would share them with the original.
func (h Header) Copy() Header {
	cp := h
	cp.Digest = h.Digest.Copy()
	return cp
}
