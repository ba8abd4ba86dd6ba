// Package unittest provides chain state fixtures and generators shared by the tests of
// the repository.
package unittest

import (
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-chainstate/inter/chaininfo"
	"github.com/rony4d/go-chainstate/inter/header"
)

// FixtureSlotsPerEpoch is the epoch length used by the Babe fixtures.
const FixtureSlotsPerEpoch = 600

// AuthorityFixture returns an authority whose id is derived from seed.
func AuthorityFixture(seed byte) header.Authority {
	var id header.AuthorityID
	for i := range id {
		id[i] = seed + byte(i)
	}
	return header.Authority{ID: id, Weight: 1}
}

// AuthorityListFixture returns n distinct authorities.
func AuthorityListFixture(n int) []header.Authority {
	list := make([]header.Authority, n)
	for i := range list {
		list[i] = AuthorityFixture(byte(i * 37))
	}
	return list
}

// RandomnessFixture returns a recognizable epoch randomness.
func RandomnessFixture(seed byte) [32]byte {
	var r [32]byte
	for i := range r {
		r[i] = seed ^ byte(i)
	}
	return r
}

// HeaderFixture returns a header at the given height with an empty digest.
func HeaderFixture(number idx.Block, opts ...func(*header.Header)) header.Header {
	h := header.Header{
		ParentHash: hash.BytesToHash([]byte{byte(number), 0xaa}),
		Number:     number,
		StateRoot:  hash.BytesToHash([]byte{byte(number), 0xbb}),
	}
	for _, opt := range opts {
		opt(&h)
	}
	return h
}

// WithBabeDigest gives the header a Babe pre-runtime item for slot and a Babe seal.
func WithBabeDigest(slot uint64) func(*header.Header) {
	return func(h *header.Header) {
		h.Digest = header.Digest{
			{BabePreRuntime: &header.BabePreDigest{Kind: header.BabePrimary, Slot: slot}},
			{Seal: &header.Seal{Engine: header.BabeEngineID, Signature: []byte{0x5e, 0xa1}}},
		}
	}
}

// WithAuraDigest gives the header an Aura pre-runtime item for slot and an Aura seal.
func WithAuraDigest(slot uint64) func(*header.Header) {
	return func(h *header.Header) {
		h.Digest = header.Digest{
			{AuraPreRuntime: &header.AuraPreDigest{Slot: slot}},
			{Seal: &header.Seal{Engine: header.AuraEngineID, Signature: []byte{0xa0, 0x2a}}},
		}
	}
}

// WithDigestItems inserts items right before the seal of the header, or at the end if the
// header isn't sealed.
func WithDigestItems(items ...header.DigestItem) func(*header.Header) {
	return func(h *header.Header) {
		n := len(h.Digest)
		if n > 0 && h.Digest[n-1].Seal != nil {
			seal := h.Digest[n-1]
			h.Digest = append(append(h.Digest[:n-1:n-1], items...), seal)
			return
		}
		h.Digest = append(h.Digest, items...)
	}
}

// BabeEpochFixture returns the information of epoch index starting at start.
func BabeEpochFixture(index uint64, start *uint64) chaininfo.BabeEpochInfo {
	return chaininfo.BabeEpochInfo{
		EpochIndex:      index,
		StartSlotNumber: start,
		Authorities:     AuthorityListFixture(3),
		Randomness:      RandomnessFixture(byte(index)),
		C:               header.Fraction{Numerator: 1, Denominator: 4},
		AllowedSlots:    header.PrimaryAndSecondaryPlainSlots,
	}
}

// BabeGenesisFixture returns a coherent block #0 state of a Babe and Grandpa chain.
func BabeGenesisFixture() chaininfo.ChainState {
	return chaininfo.NewChainState(
		HeaderFixture(0),
		chaininfo.BabeConsensus{
			SlotsPerEpoch: FixtureSlotsPerEpoch,
			NextEpoch:     BabeEpochFixture(0, nil),
		},
		chaininfo.GrandpaFinality{TriggeredAuthorities: AuthorityListFixture(4)},
	)
}

// BabeChainStateFixture returns a coherent state of a Babe and Grandpa chain finalized at
// number, whose finalized block was authored in the first slot of epoch #1.
func BabeChainStateFixture(number idx.Block) chaininfo.ChainState {
	start := uint64(1000)
	current := BabeEpochFixture(1, chaininfo.SlotNumber(start))
	return chaininfo.NewChainState(
		HeaderFixture(number, WithBabeDigest(start)),
		chaininfo.BabeConsensus{
			SlotsPerEpoch: FixtureSlotsPerEpoch,
			CurrentEpoch:  &current,
			NextEpoch:     BabeEpochFixture(2, chaininfo.SlotNumber(start+FixtureSlotsPerEpoch)),
		},
		chaininfo.GrandpaFinality{
			AuthoritiesSetID:     3,
			TriggeredAuthorities: AuthorityListFixture(4),
		},
	)
}

// AuraGenesisFixture returns a coherent block #0 state of an Aura chain with outsourced
// finality.
func AuraGenesisFixture() chaininfo.ChainState {
	return chaininfo.NewChainState(
		HeaderFixture(0),
		chaininfo.AuraConsensus{Authorities: AuthorityListFixture(2), SlotDuration: 6000},
		chaininfo.OutsourcedFinality{},
	)
}

// AuraChainStateFixture returns a coherent state of an Aura chain finalized at number.
func AuraChainStateFixture(number idx.Block) chaininfo.ChainState {
	return chaininfo.NewChainState(
		HeaderFixture(number, WithAuraDigest(uint64(number)+500)),
		chaininfo.AuraConsensus{Authorities: AuthorityListFixture(2), SlotDuration: 6000},
		chaininfo.OutsourcedFinality{},
	)
}

// ChainStateAtFixture returns a coherent Babe state finalized at number, genesis included.
func ChainStateAtFixture(number idx.Block) chaininfo.ChainState {
	if number == 0 {
		return BabeGenesisFixture()
	}
	return BabeChainStateFixture(number)
}
