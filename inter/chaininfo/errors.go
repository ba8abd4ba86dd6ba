package chaininfo

import (
	"errors"
	"fmt"
)

var (
	// ErrConsensusAlgorithmMismatch is returned when the digest of the finalized header
	// doesn't match the consensus engine the chain state claims to use.
	ErrConsensusAlgorithmMismatch = errors.New("mismatch between the consensus algorithm and the finalized block header")
	// ErrUnexpectedBabeSlotStartNumber is returned when the start slot of the next Babe
	// epoch is known although that epoch is epoch #0.
	ErrUnexpectedBabeSlotStartNumber = errors.New("unexpected slot start number for babe epoch #0")
	// ErrMissingBabeSlotStartNumber is returned when a Babe epoch lacks a start slot it must have.
	ErrMissingBabeSlotStartNumber = errors.New("missing slot start number for babe epoch")
	// ErrUnexpectedBabeFinalizedEpoch is returned when the finalized block is block #0 but
	// a current Babe epoch is provided.
	ErrUnexpectedBabeFinalizedEpoch = errors.New("finalized block is block #0 but a babe epoch is provided")
	// ErrNoBabeFinalizedEpoch is returned when the finalized block isn't block #0 but no
	// current Babe epoch is provided.
	ErrNoBabeFinalizedEpoch = errors.New("finalized block isn't block #0 but no babe epoch is provided")
	// ErrHeaderBabeSlotInferiorToEpochStartSlot is returned when the slot of the finalized
	// header precedes the start of its epoch.
	ErrHeaderBabeSlotInferiorToEpochStartSlot = errors.New("slot of the finalized block is inferior to the start slot of its epoch")
	// ErrBabeEpochInfoMismatch is returned when the epoch change announced by the finalized
	// header doesn't match the next epoch.
	ErrBabeEpochInfoMismatch = errors.New("babe epoch change of the finalized block doesn't match the next babe epoch")
	// ErrScheduledGrandpaChangeBeforeFinalized is returned when a pending Grandpa change
	// triggers at or before the finalized block.
	ErrScheduledGrandpaChangeBeforeFinalized = errors.New("scheduled grandpa authorities change is before the finalized block")
	// ErrFinalizedZeroButNonZeroAuthoritiesSetID is returned when the finalized block is
	// block #0 but the Grandpa authorities set id isn't 0.
	ErrFinalizedZeroButNonZeroAuthoritiesSetID = errors.New("finalized block is block #0 but the grandpa authorities set id isn't 0")
	// ErrNoFinalizedHeader is returned by views that don't reference any header.
	ErrNoFinalizedHeader = errors.New("chain state has no finalized header")
	// ErrUnsupportedEngine is returned when the consensus or finality is nil, or a type
	// this package doesn't define.
	ErrUnsupportedEngine = errors.New("unsupported consensus or finality engine")

	// ErrInvalidBabeConstant is returned when the numerator of the Babe c constant is
	// greater than its denominator.
	ErrInvalidBabeConstant = errors.New("babe c constant must be inferior or equal to 1")
)

// InvalidBabeError wraps an error found in the information of a Babe epoch.
type InvalidBabeError struct {
	Err error
}

func (e InvalidBabeError) Error() string {
	return fmt.Sprintf("error in a babe epoch information: %v", e.Err)
}

func (e InvalidBabeError) Unwrap() error {
	return e.Err
}

// IsInvalidBabeError reports whether err is or wraps an InvalidBabeError.
func IsInvalidBabeError(err error) bool {
	var target InvalidBabeError
	return errors.As(err, &target)
}

var validityErrors = []error{
	ErrConsensusAlgorithmMismatch,
	ErrUnexpectedBabeSlotStartNumber,
	ErrMissingBabeSlotStartNumber,
	ErrUnexpectedBabeFinalizedEpoch,
	ErrNoBabeFinalizedEpoch,
	ErrHeaderBabeSlotInferiorToEpochStartSlot,
	ErrBabeEpochInfoMismatch,
	ErrScheduledGrandpaChangeBeforeFinalized,
	ErrFinalizedZeroButNonZeroAuthoritiesSetID,
	ErrNoFinalizedHeader,
	ErrUnsupportedEngine,
}

// IsValidityError reports whether err explains why a chain state is incoherent, as opposed
// to an I/O or decoding failure.
func IsValidityError(err error) bool {
	if err == nil {
		return false
	}
	if IsInvalidBabeError(err) {
		return true
	}
	for _, target := range validityErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
