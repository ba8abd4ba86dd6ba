package chaininfo

import (
	"github.com/rony4d/go-chainstate/inter/header"
)

// Validate checks whether the fields of the epoch make sense on their own. The context
// dependent rules about StartSlotNumber are checked by ChainStateView.Validate.
func (v BabeEpochInfoView) Validate() error {
	if v.C.Numerator > v.C.Denominator {
		return ErrInvalidBabeConstant
	}
	return nil
}

func (v BabeEpochInfoView) randomness() [32]byte {
	if v.Randomness == nil {
		return [32]byte{}
	}
	return *v.Randomness
}

// Validate checks whether the chain state is coherent and returns the first rule it
// violates. Consensus rules are checked before finality rules. The function is pure: the
// same input always gives the same result.
func (v ChainStateView) Validate() error {
	if v.FinalizedHeader == nil {
		return ErrNoFinalizedHeader
	}
	number := v.FinalizedHeader.Number
	digest := v.FinalizedHeader.Digest

	switch c := v.Consensus.(type) {
	case UnknownConsensusView:
	case AuraConsensusView:
		if err := validateAura(number != 0, digest); err != nil {
			return err
		}
	case BabeConsensusView:
		if err := validateBabe(number != 0, digest, c); err != nil {
			return err
		}
	default:
		return ErrUnsupportedEngine
	}

	switch f := v.Finality.(type) {
	case OutsourcedFinalityView:
	case GrandpaFinalityView:
		if f.ScheduledChange != nil && f.ScheduledChange.TriggerHeight <= number {
			return ErrScheduledGrandpaChangeBeforeFinalized
		}
		if number == 0 && f.AuthoritiesSetID != 0 {
			return ErrFinalizedZeroButNonZeroAuthoritiesSetID
		}
	default:
		return ErrUnsupportedEngine
	}

	return nil
}

func validateAura(nonGenesis bool, digest header.Digest) error {
	if (digest.AuraPreRuntime() != nil) != nonGenesis ||
		(digest.AuraSeal() != nil) != nonGenesis ||
		digest.HasAnyBabe() {
		return ErrConsensusAlgorithmMismatch
	}
	return nil
}

func validateBabe(nonGenesis bool, digest header.Digest, c BabeConsensusView) error {
	next := c.NextEpoch
	if err := next.Validate(); err != nil {
		return InvalidBabeError{Err: err}
	}
	if next.StartSlotNumber != nil && next.EpochIndex == 0 {
		return ErrUnexpectedBabeSlotStartNumber
	}
	if next.StartSlotNumber == nil && next.EpochIndex != 0 {
		return ErrMissingBabeSlotStartNumber
	}

	if c.CurrentEpoch == nil {
		if nonGenesis {
			return ErrNoBabeFinalizedEpoch
		}
		return nil
	}

	current := *c.CurrentEpoch
	if err := current.Validate(); err != nil {
		return InvalidBabeError{Err: err}
	}
	if !nonGenesis {
		return ErrUnexpectedBabeFinalizedEpoch
	}
	if current.StartSlotNumber == nil {
		return ErrMissingBabeSlotStartNumber
	}

	if pre := digest.BabePreRuntime(); pre != nil {
		if pre.Slot < *current.StartSlotNumber {
			return ErrHeaderBabeSlotInferiorToEpochStartSlot
		}
	} else {
		return ErrConsensusAlgorithmMismatch
	}

	if digest.BabeSeal() == nil || digest.HasAnyAura() {
		return ErrConsensusAlgorithmMismatch
	}

	if epoch, _ := digest.BabeEpochChange(); epoch != nil {
		if !header.AuthoritiesEqual(epoch.Authorities, next.Authorities) ||
			epoch.Randomness != next.randomness() {
			return ErrBabeEpochInfoMismatch
		}
	}
	return nil
}
