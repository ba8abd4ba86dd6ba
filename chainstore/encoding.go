// Package chainstore persists chain states.
//
// Snapshots are encoded with RLP behind a version byte. The encoding mirrors the sum types
// of package chaininfo with explicit kind discriminators. Decoding never validates: every
// snapshot read back from disk crosses a trust boundary and the Store runs it through
// chaininfo.TryValidate before handing it out.
package chainstore

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-chainstate/inter/chaininfo"
	"github.com/rony4d/go-chainstate/inter/header"
)

// EncodingVersion is the version of the snapshot layout written by Encode.
const EncodingVersion = 1

var (
	// ErrUnsupportedVersion is returned when decoding a snapshot of an unknown layout.
	ErrUnsupportedVersion = errors.New("unsupported chain state encoding version")
	// ErrMalformed is returned when a snapshot decodes but doesn't describe a chain state.
	ErrMalformed = errors.New("malformed chain state encoding")
)

const (
	kindUnknownConsensus uint8 = iota
	kindAuraConsensus
	kindBabeConsensus
)

const (
	kindOutsourcedFinality uint8 = iota
	kindGrandpaFinality
)

type encodedState struct {
	Version   uint8
	Header    header.Header
	Consensus encodedConsensus
	Finality  encodedFinality
}

type encodedConsensus struct {
	Kind uint8
	Aura *encodedAura `rlp:"nil"`
	Babe *encodedBabe `rlp:"nil"`
}

type encodedAura struct {
	Authorities  []header.Authority
	SlotDuration uint64
}

type encodedBabe struct {
	SlotsPerEpoch uint64
	HasCurrent    bool
	Current       encodedEpoch
	Next          encodedEpoch
}

type encodedEpoch struct {
	EpochIndex   uint64
	HasStartSlot bool
	StartSlot    uint64
	Authorities  []header.Authority
	Randomness   [32]byte
	C            header.Fraction
	AllowedSlots header.BabeAllowedSlots
}

type encodedFinality struct {
	Kind    uint8
	Grandpa *encodedGrandpa `rlp:"nil"`
}

type encodedGrandpa struct {
	AuthoritiesSetID     uint64
	TriggeredAuthorities []header.Authority
	HasScheduled         bool
	TriggerHeight        idx.Block
	NewAuthorities       []header.Authority
}

// Encode serializes cs. Empty lists are encoded like nil ones.
func Encode(cs chaininfo.ChainState) ([]byte, error) {
	if err := checkEnums(cs.View()); err != nil {
		return nil, err
	}
	enc := encodedState{
		Version: EncodingVersion,
		Header:  cs.FinalizedHeader,
	}

	view := cs.View()
	switch c := view.Consensus.(type) {
	case chaininfo.UnknownConsensusView:
		enc.Consensus.Kind = kindUnknownConsensus
	case chaininfo.AuraConsensusView:
		enc.Consensus.Kind = kindAuraConsensus
		enc.Consensus.Aura = &encodedAura{Authorities: c.Authorities, SlotDuration: c.SlotDuration}
	case chaininfo.BabeConsensusView:
		babe := &encodedBabe{SlotsPerEpoch: c.SlotsPerEpoch, Next: encodeEpoch(c.NextEpoch)}
		if c.CurrentEpoch != nil {
			babe.HasCurrent = true
			babe.Current = encodeEpoch(*c.CurrentEpoch)
		}
		enc.Consensus.Kind = kindBabeConsensus
		enc.Consensus.Babe = babe
	default:
		return nil, fmt.Errorf("encode consensus: %w", chaininfo.ErrUnsupportedEngine)
	}

	switch f := view.Finality.(type) {
	case chaininfo.OutsourcedFinalityView:
		enc.Finality.Kind = kindOutsourcedFinality
	case chaininfo.GrandpaFinalityView:
		grandpa := &encodedGrandpa{
			AuthoritiesSetID:     f.AuthoritiesSetID,
			TriggeredAuthorities: f.TriggeredAuthorities,
		}
		if f.ScheduledChange != nil {
			grandpa.HasScheduled = true
			grandpa.TriggerHeight = f.ScheduledChange.TriggerHeight
			grandpa.NewAuthorities = f.ScheduledChange.NewAuthorities
		}
		enc.Finality.Kind = kindGrandpaFinality
		enc.Finality.Grandpa = grandpa
	default:
		return nil, fmt.Errorf("encode finality: %w", chaininfo.ErrUnsupportedEngine)
	}

	return rlp.EncodeToBytes(&enc)
}

func encodeEpoch(e chaininfo.BabeEpochInfoView) encodedEpoch {
	enc := encodedEpoch{
		EpochIndex:   e.EpochIndex,
		Authorities:  e.Authorities,
		C:            e.C,
		AllowedSlots: e.AllowedSlots,
	}
	if e.Randomness != nil {
		enc.Randomness = *e.Randomness
	}
	if e.StartSlotNumber != nil {
		enc.HasStartSlot = true
		enc.StartSlot = *e.StartSlotNumber
	}
	return enc
}

// Decode is the inverse of Encode. The result is not validated.
func Decode(raw []byte) (chaininfo.ChainState, error) {
	var enc encodedState
	if err := rlp.DecodeBytes(raw, &enc); err != nil {
		return chaininfo.ChainState{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if enc.Version != EncodingVersion {
		return chaininfo.ChainState{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, enc.Version)
	}

	cs := chaininfo.ChainState{FinalizedHeader: normalizeHeader(enc.Header)}

	switch enc.Consensus.Kind {
	case kindUnknownConsensus:
		cs.Consensus = chaininfo.UnknownConsensus{}
	case kindAuraConsensus:
		if enc.Consensus.Aura == nil {
			return chaininfo.ChainState{}, fmt.Errorf("%w: aura consensus without parameters", ErrMalformed)
		}
		cs.Consensus = chaininfo.AuraConsensus{
			Authorities:  nilIfEmpty(enc.Consensus.Aura.Authorities),
			SlotDuration: enc.Consensus.Aura.SlotDuration,
		}
	case kindBabeConsensus:
		b := enc.Consensus.Babe
		if b == nil {
			return chaininfo.ChainState{}, fmt.Errorf("%w: babe consensus without parameters", ErrMalformed)
		}
		babe := chaininfo.BabeConsensus{SlotsPerEpoch: b.SlotsPerEpoch, NextEpoch: decodeEpoch(b.Next)}
		if b.HasCurrent {
			current := decodeEpoch(b.Current)
			babe.CurrentEpoch = &current
		}
		cs.Consensus = babe
	default:
		return chaininfo.ChainState{}, fmt.Errorf("%w: consensus kind %d", ErrMalformed, enc.Consensus.Kind)
	}

	switch enc.Finality.Kind {
	case kindOutsourcedFinality:
		cs.Finality = chaininfo.OutsourcedFinality{}
	case kindGrandpaFinality:
		g := enc.Finality.Grandpa
		if g == nil {
			return chaininfo.ChainState{}, fmt.Errorf("%w: grandpa finality without parameters", ErrMalformed)
		}
		grandpa := chaininfo.GrandpaFinality{
			AuthoritiesSetID:     g.AuthoritiesSetID,
			TriggeredAuthorities: nilIfEmpty(g.TriggeredAuthorities),
		}
		if g.HasScheduled {
			grandpa.ScheduledChange = &chaininfo.GrandpaScheduledChange{
				TriggerHeight:  g.TriggerHeight,
				NewAuthorities: nilIfEmpty(g.NewAuthorities),
			}
		}
		cs.Finality = grandpa
	default:
		return chaininfo.ChainState{}, fmt.Errorf("%w: finality kind %d", ErrMalformed, enc.Finality.Kind)
	}

	if err := checkEnums(cs.View()); err != nil {
		return chaininfo.ChainState{}, err
	}
	return cs, nil
}

func decodeEpoch(enc encodedEpoch) chaininfo.BabeEpochInfo {
	e := chaininfo.BabeEpochInfo{
		EpochIndex:   enc.EpochIndex,
		Authorities:  nilIfEmpty(enc.Authorities),
		Randomness:   enc.Randomness,
		C:            enc.C,
		AllowedSlots: enc.AllowedSlots,
	}
	if enc.HasStartSlot {
		e.StartSlotNumber = chaininfo.SlotNumber(enc.StartSlot)
	}
	return e
}

func nilIfEmpty(list []header.Authority) []header.Authority {
	if len(list) == 0 {
		return nil
	}
	return list
}

// normalizeHeader turns the empty lists produced by the RLP decoder back into nil ones.
func normalizeHeader(h header.Header) header.Header {
	if len(h.Digest) == 0 {
		h.Digest = nil
		return h
	}
	for _, it := range h.Digest {
		if it.BabeNextEpoch != nil {
			it.BabeNextEpoch.Authorities = nilIfEmpty(it.BabeNextEpoch.Authorities)
		}
		if it.GrandpaScheduledChange != nil {
			it.GrandpaScheduledChange.Authorities = nilIfEmpty(it.GrandpaScheduledChange.Authorities)
		}
		if it.Seal != nil && len(it.Seal.Signature) == 0 {
			it.Seal.Signature = nil
		}
	}
	return h
}

// checkEnums rejects enumerations outside of their defined range. Both codecs run it on
// the way in and on the way out, so that what one of them writes the other can read.
func checkEnums(v chaininfo.ChainStateView) error {
	if v.FinalizedHeader != nil {
		for i, it := range v.FinalizedHeader.Digest {
			if it.BabePreRuntime != nil && !it.BabePreRuntime.Kind.Valid() {
				return fmt.Errorf("%w: digest item %d: babe pre-digest kind %d", ErrMalformed, i, it.BabePreRuntime.Kind)
			}
			if it.BabeNextConfig != nil && !it.BabeNextConfig.AllowedSlots.Valid() {
				return fmt.Errorf("%w: digest item %d: %v babe allowed slots", ErrMalformed, i, it.BabeNextConfig.AllowedSlots)
			}
		}
	}
	if babe, ok := v.Consensus.(chaininfo.BabeConsensusView); ok {
		if !babe.NextEpoch.AllowedSlots.Valid() {
			return fmt.Errorf("%w: next epoch: %v babe allowed slots", ErrMalformed, babe.NextEpoch.AllowedSlots)
		}
		if babe.CurrentEpoch != nil && !babe.CurrentEpoch.AllowedSlots.Valid() {
			return fmt.Errorf("%w: current epoch: %v babe allowed slots", ErrMalformed, babe.CurrentEpoch.AllowedSlots)
		}
	}
	return nil
}
