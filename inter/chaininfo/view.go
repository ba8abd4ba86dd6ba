package chaininfo

import (
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-chainstate/inter/header"
)

// ChainStateView is equivalent to a ChainState but references the data of an existing
// structure instead of owning it. It is cheap to copy. The referenced data must not be
// modified while the view is in use.
type ChainStateView struct {
	// FinalizedHeader points to the header of the highest known finalized block.
	FinalizedHeader *header.Header

	// Consensus is one of UnknownConsensusView, AuraConsensusView or BabeConsensusView.
	Consensus ConsensusView

	// Finality is one of OutsourcedFinalityView or GrandpaFinalityView.
	Finality FinalityView
}

// ConsensusView is the borrowing counterpart of Consensus.
type ConsensusView interface {
	isConsensusView()
}

// UnknownConsensusView mirrors UnknownConsensus.
type UnknownConsensusView struct{}

// AuraConsensusView mirrors AuraConsensus.
type AuraConsensusView struct {
	Authorities  []header.Authority
	SlotDuration uint64
}

// BabeConsensusView mirrors BabeConsensus.
type BabeConsensusView struct {
	SlotsPerEpoch uint64
	CurrentEpoch  *BabeEpochInfoView
	NextEpoch     BabeEpochInfoView
}

func (UnknownConsensusView) isConsensusView() {}
func (AuraConsensusView) isConsensusView()    {}
func (BabeConsensusView) isConsensusView()    {}

// BabeEpochInfoView mirrors BabeEpochInfo.
type BabeEpochInfoView struct {
	EpochIndex      uint64
	StartSlotNumber *uint64
	Authorities     []header.Authority
	Randomness      *[32]byte
	C               header.Fraction
	AllowedSlots    header.BabeAllowedSlots
}

// FinalityView is the borrowing counterpart of Finality.
type FinalityView interface {
	isFinalityView()
}

// OutsourcedFinalityView mirrors OutsourcedFinality.
type OutsourcedFinalityView struct{}

// GrandpaFinalityView mirrors GrandpaFinality.
type GrandpaFinalityView struct {
	AuthoritiesSetID     uint64
	TriggeredAuthorities []header.Authority
	ScheduledChange      *GrandpaScheduledChange
}

func (OutsourcedFinalityView) isFinalityView() {}
func (GrandpaFinalityView) isFinalityView()    {}

// Engine names, as found in configuration files and in the JSON form of chain states.
const (
	EngineUnknown    = "unknown"
	EngineAura       = "aura"
	EngineBabe       = "babe"
	EngineOutsourced = "outsourced"
	EngineGrandpa    = "grandpa"
)

// ConsensusEngine returns the engine name of c, or "" if c isn't a variant of this package.
func ConsensusEngine(c Consensus) string {
	switch consensusView(c).(type) {
	case UnknownConsensusView:
		return EngineUnknown
	case AuraConsensusView:
		return EngineAura
	case BabeConsensusView:
		return EngineBabe
	}
	return ""
}

// FinalityEngine returns the engine name of f, or "" if f isn't a variant of this package.
func FinalityEngine(f Finality) string {
	switch finalityView(f).(type) {
	case OutsourcedFinalityView:
		return EngineOutsourced
	case GrandpaFinalityView:
		return EngineGrandpa
	}
	return ""
}

// FinalizedNumber returns the height of the finalized block.
func (v ChainStateView) FinalizedNumber() idx.Block {
	return v.FinalizedHeader.Number
}

// FinalizedHash returns the hash of the finalized block.
func (v ChainStateView) FinalizedHash() hash.Hash {
	return v.FinalizedHeader.Hash()
}

// View returns a view referencing the data of cs.
func (cs *ChainState) View() ChainStateView {
	return ChainStateView{
		FinalizedHeader: &cs.FinalizedHeader,
		Consensus:       consensusView(cs.Consensus),
		Finality:        finalityView(cs.Finality),
	}
}

func consensusView(c Consensus) ConsensusView {
	switch c := c.(type) {
	case UnknownConsensus:
		return UnknownConsensusView{}
	case *UnknownConsensus:
		if c != nil {
			return UnknownConsensusView{}
		}
	case AuraConsensus:
		return AuraConsensusView{Authorities: c.Authorities, SlotDuration: c.SlotDuration}
	case *AuraConsensus:
		if c != nil {
			return AuraConsensusView{Authorities: c.Authorities, SlotDuration: c.SlotDuration}
		}
	case BabeConsensus:
		return babeConsensusView(&c)
	case *BabeConsensus:
		if c != nil {
			return babeConsensusView(c)
		}
	}
	return nil
}

func babeConsensusView(c *BabeConsensus) BabeConsensusView {
	v := BabeConsensusView{
		SlotsPerEpoch: c.SlotsPerEpoch,
		NextEpoch:     c.NextEpoch.View(),
	}
	if c.CurrentEpoch != nil {
		current := c.CurrentEpoch.View()
		v.CurrentEpoch = &current
	}
	return v
}

func finalityView(f Finality) FinalityView {
	switch f := f.(type) {
	case OutsourcedFinality:
		return OutsourcedFinalityView{}
	case *OutsourcedFinality:
		if f != nil {
			return OutsourcedFinalityView{}
		}
	case GrandpaFinality:
		return grandpaFinalityView(&f)
	case *GrandpaFinality:
		if f != nil {
			return grandpaFinalityView(f)
		}
	}
	return nil
}

func grandpaFinalityView(f *GrandpaFinality) GrandpaFinalityView {
	return GrandpaFinalityView{
		AuthoritiesSetID:     f.AuthoritiesSetID,
		TriggeredAuthorities: f.TriggeredAuthorities,
		ScheduledChange:      f.ScheduledChange,
	}
}

// View returns a view referencing the data of e.
func (e *BabeEpochInfo) View() BabeEpochInfoView {
	return BabeEpochInfoView{
		EpochIndex:      e.EpochIndex,
		StartSlotNumber: e.StartSlotNumber,
		Authorities:     e.Authorities,
		Randomness:      &e.Randomness,
		C:               e.C,
		AllowedSlots:    e.AllowedSlots,
	}
}

// ToOwned copies everything the view references into a new, independent ChainState.
func (v ChainStateView) ToOwned() ChainState {
	var cs ChainState
	if v.FinalizedHeader != nil {
		cs.FinalizedHeader = v.FinalizedHeader.Copy()
	}

	switch c := v.Consensus.(type) {
	case UnknownConsensusView:
		cs.Consensus = UnknownConsensus{}
	case AuraConsensusView:
		cs.Consensus = AuraConsensus{
			Authorities:  header.CopyAuthorities(c.Authorities),
			SlotDuration: c.SlotDuration,
		}
	case BabeConsensusView:
		babe := BabeConsensus{
			SlotsPerEpoch: c.SlotsPerEpoch,
			NextEpoch:     c.NextEpoch.ToOwned(),
		}
		if c.CurrentEpoch != nil {
			current := c.CurrentEpoch.ToOwned()
			babe.CurrentEpoch = &current
		}
		cs.Consensus = babe
	}

	switch f := v.Finality.(type) {
	case OutsourcedFinalityView:
		cs.Finality = OutsourcedFinality{}
	case GrandpaFinalityView:
		grandpa := GrandpaFinality{
			AuthoritiesSetID:     f.AuthoritiesSetID,
			TriggeredAuthorities: header.CopyAuthorities(f.TriggeredAuthorities),
		}
		if f.ScheduledChange != nil {
			grandpa.ScheduledChange = &GrandpaScheduledChange{
				TriggerHeight:  f.ScheduledChange.TriggerHeight,
				NewAuthorities: header.CopyAuthorities(f.ScheduledChange.NewAuthorities),
			}
		}
		cs.Finality = grandpa
	}
	return cs
}

// ToOwned copies everything the view references into a new BabeEpochInfo.
func (v BabeEpochInfoView) ToOwned() BabeEpochInfo {
	e := BabeEpochInfo{
		EpochIndex:   v.EpochIndex,
		Authorities:  header.CopyAuthorities(v.Authorities),
		C:            v.C,
		AllowedSlots: v.AllowedSlots,
	}
	if v.StartSlotNumber != nil {
		e.StartSlotNumber = SlotNumber(*v.StartSlotNumber)
	}
	if v.Randomness != nil {
		e.Randomness = *v.Randomness
	}
	return e
}
