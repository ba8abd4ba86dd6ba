// Package chaininfo defines the finalized state of a chain, other than its storage.
//
// The types of this package contain everything needed to verify the authenticity (but not
// the correctness) of the blocks that descend from the finalized block: the finalized header
// and the configuration of the consensus and finality engines at that point.
//
// A ChainState alone carries no guarantee about its content. It may have been decoded from
// a database that an operator edited, or received from a peer. Any subsystem that needs to
// trust a chain state must obtain a ValidatedChainState, which can only be created by
// TryValidate and is therefore known to be internally coherent.
//
// Two parallel representations exist. ChainState owns all of its data, while ChainStateView
// references data held by someone else and is cheap to pass around. View and ToOwned
// convert between them without losing anything.
package chaininfo

import (
	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-chainstate/inter/header"
)

// ChainState is the information about the latest finalized block and the state found in
// its ancestors.
type ChainState struct {
	// FinalizedHeader is the header of the highest known finalized block.
	FinalizedHeader header.Header

	// Consensus holds the items that depend on the consensus engine.
	// One of UnknownConsensus, AuraConsensus or BabeConsensus.
	Consensus Consensus

	// Finality holds the items that depend on the finality engine.
	// One of OutsourcedFinality or GrandpaFinality.
	Finality Finality
}

// NewChainState assembles a chain state from its parts. No validation is performed.
func NewChainState(finalized header.Header, consensus Consensus, finality Finality) ChainState {
	return ChainState{
		FinalizedHeader: finalized,
		Consensus:       consensus,
		Finality:        finality,
	}
}

// FinalizedNumber returns the height of the finalized block.
func (cs *ChainState) FinalizedNumber() idx.Block {
	return cs.FinalizedHeader.Number
}

// Validate checks whether the chain state is coherent. See ChainStateView.Validate.
func (cs *ChainState) Validate() error {
	return cs.View().Validate()
}

// Consensus is the set of items that depend on the consensus engine. The interface is
// sealed: the only implementations are the ones of this package.
type Consensus interface {
	isConsensus()
}

// UnknownConsensus means that any node on the chain is allowed to produce blocks.
//
// Be warned that this makes it possible for a huge number of blocks to be produced. Users
// of this variant are encouraged to bound, through other means, the number of blocks they
// accept.
type UnknownConsensus struct{}

// AuraConsensus means that the chain uses the Aura consensus engine.
type AuraConsensus struct {
	// Authorities must author the children of the finalized block, in round-robin order.
	Authorities []header.Authority

	// SlotDuration is the duration of an Aura slot, in milliseconds. Never zero.
	SlotDuration uint64
}

// BabeConsensus means that the chain uses the Babe consensus engine.
type BabeConsensus struct {
	// SlotsPerEpoch is configured at genesis and never changes. Never zero.
	SlotsPerEpoch uint64

	// CurrentEpoch is the epoch the finalized block belongs to.
	//
	// Must be nil if and only if the finalized block is block #0. If the finalized block
	// belongs to epoch #0, which starts at block #1, this contains the information of epoch #0.
	//
	// Only the epoch of the children of the finalized block is strictly needed, but because
	// of missed slots it isn't possible to know in advance whether the children belong to
	// the same epoch as their parent.
	CurrentEpoch *BabeEpochInfo

	// NextEpoch is the epoch following CurrentEpoch. If the finalized block is block #0,
	// this contains the information about epoch #0.
	NextEpoch BabeEpochInfo
}

func (UnknownConsensus) isConsensus() {}
func (AuraConsensus) isConsensus()    {}
func (BabeConsensus) isConsensus()    {}

// BabeEpochInfo is the information about a Babe epoch.
type BabeEpochInfo struct {
	// EpochIndex is the index of the epoch. Epoch #0 starts at the slot of block #1 and
	// indices increase one by one.
	EpochIndex uint64

	// StartSlotNumber is the slot at which the epoch starts.
	//
	// Must be nil if and only if this is BabeConsensus.NextEpoch and EpochIndex is 0. When
	// the epoch is BabeConsensus.CurrentEpoch it must always be set.
	StartSlotNumber *uint64

	// Authorities may author blocks during this epoch.
	Authorities []header.Authority

	// Randomness is determined using the VRF outputs of the validators of the previous epoch.
	Randomness [32]byte

	// C determines the chances of a slot being claimable by a given authority. The fraction
	// must be <= 1, i.e. its numerator must not exceed its denominator.
	C header.Fraction

	// AllowedSlots is the kind of slots allowed to author blocks during this epoch.
	AllowedSlots header.BabeAllowedSlots
}

// SlotNumber returns a pointer to a copy of slot, for filling StartSlotNumber.
func SlotNumber(slot uint64) *uint64 {
	return &slot
}

// Validate checks whether the fields of the epoch make sense on their own.
func (e *BabeEpochInfo) Validate() error {
	return e.View().Validate()
}

// Copy returns a deep copy of the epoch information.
func (e BabeEpochInfo) Copy() BabeEpochInfo {
	return e.View().ToOwned()
}

// Finality is the set of items that depend on the finality engine. The interface is
// sealed: the only implementations are the ones of this package.
type Finality interface {
	isFinality()
}

// OutsourcedFinality means that blocks don't contain any information about finality, which
// is provided by a mechanism entirely external to the chain. This is the case of parachains,
// whose finality comes from the relay chain.
type OutsourcedFinality struct{}

// GrandpaFinality means that the chain uses the Grandpa finality algorithm.
type GrandpaFinality struct {
	// AuthoritiesSetID is the set id of the block right after the finalized block.
	//
	// Must be 0 if the finalized block is the genesis block. Otherwise it is incremented by
	// one for every change of authorities reported by the headers since genesis.
	AuthoritiesSetID uint64

	// TriggeredAuthorities must finalize the block right after the finalized block.
	TriggeredAuthorities []header.Authority

	// ScheduledChange is a change of authorities scheduled by an already finalized block
	// but not triggered yet. It will happen for sure.
	ScheduledChange *GrandpaScheduledChange
}

// GrandpaScheduledChange is a pending change of the Grandpa authorities.
type GrandpaScheduledChange struct {
	// TriggerHeight is the block at which the change triggers. That block is still
	// finalized by the old authorities, only its descendants use NewAuthorities.
	// Always strictly greater than the finalized block number.
	TriggerHeight idx.Block

	// NewAuthorities replace the triggered authorities after TriggerHeight.
	NewAuthorities []header.Authority
}

func (OutsourcedFinality) isFinality() {}
func (GrandpaFinality) isFinality()    {}
