package chainstore

import (
	"encoding/json"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/rony4d/go-chainstate/inter/chaininfo"
	"github.com/rony4d/go-chainstate/inter/header"
)

type jsonState struct {
	Header    jsonHeader    `json:"header"`
	Consensus jsonConsensus `json:"consensus"`
	Finality  jsonFinality  `json:"finality"`
}

type jsonHeader struct {
	ParentHash     common.Hash      `json:"parentHash"`
	Number         uint64           `json:"number"`
	StateRoot      common.Hash      `json:"stateRoot"`
	ExtrinsicsRoot common.Hash      `json:"extrinsicsRoot"`
	Digest         []jsonDigestItem `json:"digest,omitempty"`
}

type jsonDigestItem struct {
	AuraPreRuntime         *jsonAuraPre      `json:"auraPreRuntime,omitempty"`
	BabePreRuntime         *jsonBabePre      `json:"babePreRuntime,omitempty"`
	BabeNextEpoch          *jsonNextEpoch    `json:"babeNextEpoch,omitempty"`
	BabeNextConfig         *jsonNextConfig   `json:"babeNextConfig,omitempty"`
	GrandpaScheduledChange *jsonDigestChange `json:"grandpaScheduledChange,omitempty"`
	Seal                   *jsonSeal         `json:"seal,omitempty"`
}

type jsonAuraPre struct {
	Slot uint64 `json:"slot"`
}

type jsonBabePre struct {
	Kind           uint8  `json:"kind"`
	AuthorityIndex uint32 `json:"authorityIndex"`
	Slot           uint64 `json:"slot"`
}

type jsonNextEpoch struct {
	Authorities []header.Authority `json:"authorities"`
	Randomness  common.Hash        `json:"randomness"`
}

type jsonNextConfig struct {
	C            header.Fraction `json:"c"`
	AllowedSlots string          `json:"allowedSlots"`
}

type jsonDigestChange struct {
	Authorities []header.Authority `json:"authorities"`
	Delay       uint64             `json:"delay"`
}

type jsonSeal struct {
	Engine    string        `json:"engine"`
	Signature hexutil.Bytes `json:"signature"`
}

type jsonScheduledChange struct {
	TriggerHeight  uint64             `json:"triggerHeight"`
	NewAuthorities []header.Authority `json:"newAuthorities"`
}

type jsonConsensus struct {
	Engine        string             `json:"engine"`
	Authorities   []header.Authority `json:"authorities,omitempty"`
	SlotDuration  uint64             `json:"slotDuration,omitempty"`
	SlotsPerEpoch uint64             `json:"slotsPerEpoch,omitempty"`
	CurrentEpoch  *jsonEpoch         `json:"currentEpoch,omitempty"`
	NextEpoch     *jsonEpoch         `json:"nextEpoch,omitempty"`
}

type jsonEpoch struct {
	EpochIndex      uint64             `json:"epochIndex"`
	StartSlotNumber *uint64            `json:"startSlotNumber"`
	Authorities     []header.Authority `json:"authorities"`
	Randomness      common.Hash        `json:"randomness"`
	C               header.Fraction    `json:"c"`
	AllowedSlots    string             `json:"allowedSlots"`
}

type jsonFinality struct {
	Engine               string               `json:"engine"`
	AuthoritiesSetID     uint64               `json:"authoritiesSetId,omitempty"`
	TriggeredAuthorities []header.Authority   `json:"triggeredAuthorities,omitempty"`
	ScheduledChange      *jsonScheduledChange `json:"scheduledChange,omitempty"`
}

// MarshalJSON renders cs in the JSON form accepted by ParseJSON.
func MarshalJSON(cs chaininfo.ChainState) ([]byte, error) {
	if err := checkEnums(cs.View()); err != nil {
		return nil, err
	}
	var out jsonState

	h := cs.FinalizedHeader
	out.Header = jsonHeader{
		ParentHash:     common.Hash(h.ParentHash),
		Number:         uint64(h.Number),
		StateRoot:      common.Hash(h.StateRoot),
		ExtrinsicsRoot: common.Hash(h.ExtrinsicsRoot),
	}
	for _, it := range h.Digest {
		out.Header.Digest = append(out.Header.Digest, marshalDigestItem(it))
	}

	view := cs.View()
	switch c := view.Consensus.(type) {
	case chaininfo.UnknownConsensusView:
		out.Consensus.Engine = chaininfo.EngineUnknown
	case chaininfo.AuraConsensusView:
		out.Consensus.Engine = chaininfo.EngineAura
		out.Consensus.Authorities = c.Authorities
		out.Consensus.SlotDuration = c.SlotDuration
	case chaininfo.BabeConsensusView:
		out.Consensus.Engine = chaininfo.EngineBabe
		out.Consensus.SlotsPerEpoch = c.SlotsPerEpoch
		out.Consensus.NextEpoch = marshalEpoch(c.NextEpoch)
		if c.CurrentEpoch != nil {
			out.Consensus.CurrentEpoch = marshalEpoch(*c.CurrentEpoch)
		}
	default:
		return nil, fmt.Errorf("marshal consensus: %w", chaininfo.ErrUnsupportedEngine)
	}

	switch f := view.Finality.(type) {
	case chaininfo.OutsourcedFinalityView:
		out.Finality.Engine = chaininfo.EngineOutsourced
	case chaininfo.GrandpaFinalityView:
		out.Finality.Engine = chaininfo.EngineGrandpa
		out.Finality.AuthoritiesSetID = f.AuthoritiesSetID
		out.Finality.TriggeredAuthorities = f.TriggeredAuthorities
		if f.ScheduledChange != nil {
			out.Finality.ScheduledChange = &jsonScheduledChange{uint64(f.ScheduledChange.TriggerHeight), f.ScheduledChange.NewAuthorities}
		}
	default:
		return nil, fmt.Errorf("marshal finality: %w", chaininfo.ErrUnsupportedEngine)
	}

	return json.MarshalIndent(&out, "", "  ")
}

func marshalEpoch(e chaininfo.BabeEpochInfoView) *jsonEpoch {
	out := &jsonEpoch{
		EpochIndex:      e.EpochIndex,
		StartSlotNumber: e.StartSlotNumber,
		Authorities:     e.Authorities,
		C:               e.C,
		AllowedSlots:    e.AllowedSlots.String(),
	}
	if e.Randomness != nil {
		out.Randomness = common.Hash(*e.Randomness)
	}
	return out
}

// marshalDigestItem keeps every field of the item, so that items with none or several of
// them set survive a round trip.
func marshalDigestItem(it header.DigestItem) jsonDigestItem {
	var out jsonDigestItem
	if it.AuraPreRuntime != nil {
		out.AuraPreRuntime = &jsonAuraPre{it.AuraPreRuntime.Slot}
	}
	if it.BabePreRuntime != nil {
		out.BabePreRuntime = &jsonBabePre{uint8(it.BabePreRuntime.Kind), it.BabePreRuntime.AuthorityIndex, it.BabePreRuntime.Slot}
	}
	if it.BabeNextEpoch != nil {
		out.BabeNextEpoch = &jsonNextEpoch{it.BabeNextEpoch.Authorities, common.Hash(it.BabeNextEpoch.Randomness)}
	}
	if it.BabeNextConfig != nil {
		out.BabeNextConfig = &jsonNextConfig{it.BabeNextConfig.C, it.BabeNextConfig.AllowedSlots.String()}
	}
	if it.GrandpaScheduledChange != nil {
		out.GrandpaScheduledChange = &jsonDigestChange{it.GrandpaScheduledChange.Authorities, it.GrandpaScheduledChange.Delay}
	}
	if it.Seal != nil {
		out.Seal = &jsonSeal{it.Seal.Engine.String(), it.Seal.Signature}
	}
	return out
}

// ParseJSON decodes a chain state supplied by an operator. The result is not validated.
func ParseJSON(data []byte) (chaininfo.ChainState, error) {
	var in jsonState
	if err := json.Unmarshal(data, &in); err != nil {
		return chaininfo.ChainState{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var cs chaininfo.ChainState
	cs.FinalizedHeader = header.Header{
		ParentHash:     hash.Hash(in.Header.ParentHash),
		Number:         idx.Block(in.Header.Number),
		StateRoot:      hash.Hash(in.Header.StateRoot),
		ExtrinsicsRoot: hash.Hash(in.Header.ExtrinsicsRoot),
	}
	for i, it := range in.Header.Digest {
		item, err := parseDigestItem(it)
		if err != nil {
			return chaininfo.ChainState{}, fmt.Errorf("digest item %d: %w", i, err)
		}
		cs.FinalizedHeader.Digest = append(cs.FinalizedHeader.Digest, item)
	}

	switch in.Consensus.Engine {
	case chaininfo.EngineUnknown:
		cs.Consensus = chaininfo.UnknownConsensus{}
	case chaininfo.EngineAura:
		cs.Consensus = chaininfo.AuraConsensus{
			Authorities:  nilIfEmpty(in.Consensus.Authorities),
			SlotDuration: in.Consensus.SlotDuration,
		}
	case chaininfo.EngineBabe:
		if in.Consensus.NextEpoch == nil {
			return chaininfo.ChainState{}, fmt.Errorf("%w: babe consensus without next epoch", ErrMalformed)
		}
		next, err := parseEpoch(in.Consensus.NextEpoch)
		if err != nil {
			return chaininfo.ChainState{}, err
		}
		babe := chaininfo.BabeConsensus{SlotsPerEpoch: in.Consensus.SlotsPerEpoch, NextEpoch: next}
		if in.Consensus.CurrentEpoch != nil {
			current, err := parseEpoch(in.Consensus.CurrentEpoch)
			if err != nil {
				return chaininfo.ChainState{}, err
			}
			babe.CurrentEpoch = &current
		}
		cs.Consensus = babe
	default:
		return chaininfo.ChainState{}, fmt.Errorf("%w: unknown consensus engine %q", ErrMalformed, in.Consensus.Engine)
	}

	switch in.Finality.Engine {
	case chaininfo.EngineOutsourced:
		cs.Finality = chaininfo.OutsourcedFinality{}
	case chaininfo.EngineGrandpa:
		grandpa := chaininfo.GrandpaFinality{
			AuthoritiesSetID:     in.Finality.AuthoritiesSetID,
			TriggeredAuthorities: nilIfEmpty(in.Finality.TriggeredAuthorities),
		}
		if sc := in.Finality.ScheduledChange; sc != nil {
			grandpa.ScheduledChange = &chaininfo.GrandpaScheduledChange{
				TriggerHeight:  idx.Block(sc.TriggerHeight),
				NewAuthorities: nilIfEmpty(sc.NewAuthorities),
			}
		}
		cs.Finality = grandpa
	default:
		return chaininfo.ChainState{}, fmt.Errorf("%w: unknown finality engine %q", ErrMalformed, in.Finality.Engine)
	}

	if err := checkEnums(cs.View()); err != nil {
		return chaininfo.ChainState{}, err
	}
	return cs, nil
}

func parseEpoch(in *jsonEpoch) (chaininfo.BabeEpochInfo, error) {
	allowed, err := header.ParseBabeAllowedSlots(in.AllowedSlots)
	if err != nil {
		return chaininfo.BabeEpochInfo{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	e := chaininfo.BabeEpochInfo{
		EpochIndex:   in.EpochIndex,
		Authorities:  nilIfEmpty(in.Authorities),
		Randomness:   in.Randomness,
		C:            in.C,
		AllowedSlots: allowed,
	}
	if in.StartSlotNumber != nil {
		e.StartSlotNumber = chaininfo.SlotNumber(*in.StartSlotNumber)
	}
	return e, nil
}

func parseDigestItem(in jsonDigestItem) (header.DigestItem, error) {
	var it header.DigestItem
	if in.AuraPreRuntime != nil {
		it.AuraPreRuntime = &header.AuraPreDigest{Slot: in.AuraPreRuntime.Slot}
	}
	if in.BabePreRuntime != nil {
		it.BabePreRuntime = &header.BabePreDigest{
			Kind:           header.BabePreDigestKind(in.BabePreRuntime.Kind),
			AuthorityIndex: in.BabePreRuntime.AuthorityIndex,
			Slot:           in.BabePreRuntime.Slot,
		}
	}
	if in.BabeNextEpoch != nil {
		it.BabeNextEpoch = &header.BabeNextEpoch{
			Authorities: nilIfEmpty(in.BabeNextEpoch.Authorities),
			Randomness:  in.BabeNextEpoch.Randomness,
		}
	}
	if in.BabeNextConfig != nil {
		allowed, err := header.ParseBabeAllowedSlots(in.BabeNextConfig.AllowedSlots)
		if err != nil {
			return it, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		it.BabeNextConfig = &header.BabeNextConfig{C: in.BabeNextConfig.C, AllowedSlots: allowed}
	}
	if in.GrandpaScheduledChange != nil {
		it.GrandpaScheduledChange = &header.GrandpaScheduledChange{
			Authorities: nilIfEmpty(in.GrandpaScheduledChange.Authorities),
			Delay:       in.GrandpaScheduledChange.Delay,
		}
	}
	if in.Seal != nil {
		if len(in.Seal.Engine) != len(header.EngineID{}) {
			return it, fmt.Errorf("%w: engine id %q", ErrMalformed, in.Seal.Engine)
		}
		seal := &header.Seal{}
		copy(seal.Engine[:], in.Seal.Engine)
		if len(in.Seal.Signature) != 0 {
			seal.Signature = in.Seal.Signature
		}
		it.Seal = seal
	}
	return it, nil
}
