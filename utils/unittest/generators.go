package unittest

import (
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"pgregory.net/rapid"

	"github.com/rony4d/go-chainstate/inter/chaininfo"
	"github.com/rony4d/go-chainstate/inter/header"
)

// The generators below never produce empty non-nil slices, so that their output survives
// encodings which don't distinguish nil from empty.

func bytes32Gen() *rapid.Generator[[32]byte] {
	return rapid.Custom(func(t *rapid.T) [32]byte {
		var b [32]byte
		copy(b[:], rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "bytes32"))
		return b
	})
}

// AuthoritiesGen generates nil or a non-empty list of authorities.
func AuthoritiesGen() *rapid.Generator[[]header.Authority] {
	return rapid.Custom(func(t *rapid.T) []header.Authority {
		n := rapid.IntRange(0, 4).Draw(t, "authorities")
		if n == 0 {
			return nil
		}
		list := make([]header.Authority, n)
		for i := range list {
			list[i] = header.Authority{
				ID:     header.AuthorityID(bytes32Gen().Draw(t, "id")),
				Weight: rapid.Uint64().Draw(t, "weight"),
			}
		}
		return list
	})
}

func optionalUint64Gen() *rapid.Generator[*uint64] {
	return rapid.Custom(func(t *rapid.T) *uint64 {
		if !rapid.Bool().Draw(t, "present") {
			return nil
		}
		return chaininfo.SlotNumber(rapid.Uint64().Draw(t, "value"))
	})
}

// DigestItemGen generates any digest item: mostly items with a single field set, but also
// empty items and items with several fields set.
func DigestItemGen() *rapid.Generator[header.DigestItem] {
	return rapid.Custom(func(t *rapid.T) header.DigestItem {
		switch rapid.IntRange(0, 7).Draw(t, "shape") {
		case 0:
			return header.DigestItem{}
		case 1:
			return mergeDigestItems(singleDigestItemGen().Draw(t, "first"), singleDigestItemGen().Draw(t, "second"))
		default:
			return singleDigestItemGen().Draw(t, "single")
		}
	})
}

// mergeDigestItems sets on a every field that b sets.
func mergeDigestItems(a, b header.DigestItem) header.DigestItem {
	if b.AuraPreRuntime != nil {
		a.AuraPreRuntime = b.AuraPreRuntime
	}
	if b.BabePreRuntime != nil {
		a.BabePreRuntime = b.BabePreRuntime
	}
	if b.BabeNextEpoch != nil {
		a.BabeNextEpoch = b.BabeNextEpoch
	}
	if b.BabeNextConfig != nil {
		a.BabeNextConfig = b.BabeNextConfig
	}
	if b.GrandpaScheduledChange != nil {
		a.GrandpaScheduledChange = b.GrandpaScheduledChange
	}
	if b.Seal != nil {
		a.Seal = b.Seal
	}
	return a
}

func singleDigestItemGen() *rapid.Generator[header.DigestItem] {
	return rapid.Custom(func(t *rapid.T) header.DigestItem {
		switch rapid.IntRange(0, 5).Draw(t, "kind") {
		case 0:
			return header.DigestItem{AuraPreRuntime: &header.AuraPreDigest{Slot: rapid.Uint64().Draw(t, "slot")}}
		case 1:
			return header.DigestItem{BabePreRuntime: &header.BabePreDigest{
				Kind:           header.BabePreDigestKind(rapid.IntRange(1, 3).Draw(t, "preKind")),
				AuthorityIndex: rapid.Uint32().Draw(t, "authorityIndex"),
				Slot:           rapid.Uint64().Draw(t, "slot"),
			}}
		case 2:
			return header.DigestItem{BabeNextEpoch: &header.BabeNextEpoch{
				Authorities: AuthoritiesGen().Draw(t, "authorities"),
				Randomness:  bytes32Gen().Draw(t, "randomness"),
			}}
		case 3:
			return header.DigestItem{BabeNextConfig: &header.BabeNextConfig{
				C:            FractionGen().Draw(t, "c"),
				AllowedSlots: AllowedSlotsGen().Draw(t, "allowedSlots"),
			}}
		case 4:
			return header.DigestItem{GrandpaScheduledChange: &header.GrandpaScheduledChange{
				Authorities: AuthoritiesGen().Draw(t, "authorities"),
				Delay:       rapid.Uint64().Draw(t, "delay"),
			}}
		default:
			return header.DigestItem{Seal: &header.Seal{
				Engine:    rapid.SampledFrom([]header.EngineID{header.AuraEngineID, header.BabeEngineID, header.GrandpaEngineID}).Draw(t, "engine"),
				Signature: rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "signature"),
			}}
		}
	})
}

// HeaderGen generates headers with arbitrary digests.
func HeaderGen() *rapid.Generator[header.Header] {
	return rapid.Custom(func(t *rapid.T) header.Header {
		h := header.Header{
			ParentHash:     hash.Hash(bytes32Gen().Draw(t, "parent")),
			Number:         idx.Block(rapid.Uint64Range(0, 1<<40).Draw(t, "number")),
			StateRoot:      hash.Hash(bytes32Gen().Draw(t, "stateRoot")),
			ExtrinsicsRoot: hash.Hash(bytes32Gen().Draw(t, "extrinsicsRoot")),
		}
		if n := rapid.IntRange(0, 4).Draw(t, "digestLen"); n > 0 {
			h.Digest = make(header.Digest, n)
			for i := range h.Digest {
				h.Digest[i] = DigestItemGen().Draw(t, "item")
			}
		}
		return h
	})
}

// FractionGen generates any fraction, including invalid Babe constants.
func FractionGen() *rapid.Generator[header.Fraction] {
	return rapid.Custom(func(t *rapid.T) header.Fraction {
		return header.Fraction{
			Numerator:   rapid.Uint64Range(0, 8).Draw(t, "numerator"),
			Denominator: rapid.Uint64Range(0, 8).Draw(t, "denominator"),
		}
	})
}

// AllowedSlotsGen generates any defined allowed slots policy.
func AllowedSlotsGen() *rapid.Generator[header.BabeAllowedSlots] {
	return rapid.SampledFrom([]header.BabeAllowedSlots{
		header.PrimarySlots,
		header.PrimaryAndSecondaryPlainSlots,
		header.PrimaryAndSecondaryVRFSlots,
	})
}

// BabeEpochInfoGen generates epochs whose fields are unrelated to each other.
func BabeEpochInfoGen() *rapid.Generator[chaininfo.BabeEpochInfo] {
	return rapid.Custom(func(t *rapid.T) chaininfo.BabeEpochInfo {
		return chaininfo.BabeEpochInfo{
			EpochIndex:      rapid.Uint64Range(0, 4).Draw(t, "epochIndex"),
			StartSlotNumber: optionalUint64Gen().Draw(t, "startSlot"),
			Authorities:     AuthoritiesGen().Draw(t, "authorities"),
			Randomness:      bytes32Gen().Draw(t, "randomness"),
			C:               FractionGen().Draw(t, "c"),
			AllowedSlots:    AllowedSlotsGen().Draw(t, "allowedSlots"),
		}
	})
}

// ConsensusGen generates any consensus variant.
func ConsensusGen() *rapid.Generator[chaininfo.Consensus] {
	return rapid.Custom(func(t *rapid.T) chaininfo.Consensus {
		switch rapid.IntRange(0, 2).Draw(t, "consensus") {
		case 0:
			return chaininfo.UnknownConsensus{}
		case 1:
			return chaininfo.AuraConsensus{
				Authorities:  AuthoritiesGen().Draw(t, "authorities"),
				SlotDuration: rapid.Uint64Range(1, 30000).Draw(t, "slotDuration"),
			}
		default:
			babe := chaininfo.BabeConsensus{
				SlotsPerEpoch: rapid.Uint64Range(1, 4800).Draw(t, "slotsPerEpoch"),
				NextEpoch:     BabeEpochInfoGen().Draw(t, "next"),
			}
			if rapid.Bool().Draw(t, "hasCurrent") {
				current := BabeEpochInfoGen().Draw(t, "current")
				babe.CurrentEpoch = &current
			}
			return babe
		}
	})
}

// FinalityGen generates any finality variant.
func FinalityGen() *rapid.Generator[chaininfo.Finality] {
	return rapid.Custom(func(t *rapid.T) chaininfo.Finality {
		if rapid.Bool().Draw(t, "outsourced") {
			return chaininfo.OutsourcedFinality{}
		}
		grandpa := chaininfo.GrandpaFinality{
			AuthoritiesSetID:     rapid.Uint64Range(0, 3).Draw(t, "setID"),
			TriggeredAuthorities: AuthoritiesGen().Draw(t, "triggered"),
		}
		if rapid.Bool().Draw(t, "hasScheduled") {
			grandpa.ScheduledChange = &chaininfo.GrandpaScheduledChange{
				TriggerHeight:  idx.Block(rapid.Uint64Range(0, 1<<41).Draw(t, "triggerHeight")),
				NewAuthorities: AuthoritiesGen().Draw(t, "newAuthorities"),
			}
		}
		return grandpa
	})
}

// ChainStateGen generates chain states that are mostly incoherent. Use it where validity
// doesn't matter, or filter with Validate.
func ChainStateGen() *rapid.Generator[chaininfo.ChainState] {
	return rapid.Custom(func(t *rapid.T) chaininfo.ChainState {
		return chaininfo.NewChainState(
			HeaderGen().Draw(t, "header"),
			ConsensusGen().Draw(t, "consensus"),
			FinalityGen().Draw(t, "finality"),
		)
	})
}
