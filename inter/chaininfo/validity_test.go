package chaininfo_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-chainstate/inter/chaininfo"
	"github.com/rony4d/go-chainstate/inter/header"
	"github.com/rony4d/go-chainstate/utils/unittest"
)

// babeOf switches the consensus of cs to its pointer form, so that tests can edit it in place.
func babeOf(cs *chaininfo.ChainState) *chaininfo.BabeConsensus {
	if babe, ok := cs.Consensus.(*chaininfo.BabeConsensus); ok {
		return babe
	}
	babe := cs.Consensus.(chaininfo.BabeConsensus)
	cs.Consensus = &babe
	return &babe
}

func grandpaOf(cs *chaininfo.ChainState) *chaininfo.GrandpaFinality {
	if grandpa, ok := cs.Finality.(*chaininfo.GrandpaFinality); ok {
		return grandpa
	}
	grandpa := cs.Finality.(chaininfo.GrandpaFinality)
	cs.Finality = &grandpa
	return &grandpa
}

func TestValidate_Fixtures(t *testing.T) {
	for name, cs := range map[string]chaininfo.ChainState{
		"babe genesis": unittest.BabeGenesisFixture(),
		"babe block":   unittest.BabeChainStateFixture(50),
		"aura genesis": unittest.AuraGenesisFixture(),
		"aura block":   unittest.AuraChainStateFixture(7),
		"unknown": chaininfo.NewChainState(
			unittest.HeaderFixture(12),
			chaininfo.UnknownConsensus{},
			chaininfo.OutsourcedFinality{},
		),
	} {
		cs := cs
		t.Run(name, func(t *testing.T) {
			require.NoError(t, cs.Validate())
		})
	}
}

func TestValidate_Babe(t *testing.T) {
	for _, tc := range []struct {
		name   string
		state  func() chaininfo.ChainState
		expect error
	}{
		{
			name: "epoch on genesis",
			state: func() chaininfo.ChainState {
				cs := unittest.BabeGenesisFixture()
				current := unittest.BabeEpochFixture(0, chaininfo.SlotNumber(1))
				babeOf(&cs).CurrentEpoch = &current
				return cs
			},
			expect: chaininfo.ErrUnexpectedBabeFinalizedEpoch,
		},
		{
			name: "no epoch on block 5",
			state: func() chaininfo.ChainState {
				cs := unittest.BabeChainStateFixture(5)
				babeOf(&cs).CurrentEpoch = nil
				return cs
			},
			expect: chaininfo.ErrNoBabeFinalizedEpoch,
		},
		{
			name: "next epoch 0 with start slot",
			state: func() chaininfo.ChainState {
				cs := unittest.BabeGenesisFixture()
				babeOf(&cs).NextEpoch.StartSlotNumber = chaininfo.SlotNumber(3)
				return cs
			},
			expect: chaininfo.ErrUnexpectedBabeSlotStartNumber,
		},
		{
			name: "next epoch 2 without start slot",
			state: func() chaininfo.ChainState {
				cs := unittest.BabeChainStateFixture(5)
				babeOf(&cs).NextEpoch.StartSlotNumber = nil
				return cs
			},
			expect: chaininfo.ErrMissingBabeSlotStartNumber,
		},
		{
			name: "current epoch without start slot",
			state: func() chaininfo.ChainState {
				cs := unittest.BabeChainStateFixture(5)
				babeOf(&cs).CurrentEpoch.StartSlotNumber = nil
				return cs
			},
			expect: chaininfo.ErrMissingBabeSlotStartNumber,
		},
		{
			name: "header slot before epoch start",
			state: func() chaininfo.ChainState {
				cs := unittest.BabeChainStateFixture(5)
				cs.FinalizedHeader.Digest[0].BabePreRuntime.Slot = 999
				return cs
			},
			expect: chaininfo.ErrHeaderBabeSlotInferiorToEpochStartSlot,
		},
		{
			name: "missing pre-runtime",
			state: func() chaininfo.ChainState {
				cs := unittest.BabeChainStateFixture(5)
				cs.FinalizedHeader.Digest = cs.FinalizedHeader.Digest[1:]
				return cs
			},
			expect: chaininfo.ErrConsensusAlgorithmMismatch,
		},
		{
			name: "missing seal",
			state: func() chaininfo.ChainState {
				cs := unittest.BabeChainStateFixture(5)
				cs.FinalizedHeader.Digest = cs.FinalizedHeader.Digest[:1]
				return cs
			},
			expect: chaininfo.ErrConsensusAlgorithmMismatch,
		},
		{
			name: "aura marker in babe header",
			state: func() chaininfo.ChainState {
				cs := unittest.BabeChainStateFixture(5)
				unittest.WithDigestItems(header.DigestItem{AuraPreRuntime: &header.AuraPreDigest{Slot: 1000}})(&cs.FinalizedHeader)
				return cs
			},
			expect: chaininfo.ErrConsensusAlgorithmMismatch,
		},
		{
			name: "epoch change with other authorities",
			state: func() chaininfo.ChainState {
				cs := unittest.BabeChainStateFixture(5)
				unittest.WithDigestItems(header.DigestItem{BabeNextEpoch: &header.BabeNextEpoch{
					Authorities: unittest.AuthorityListFixture(1),
					Randomness:  babeOf(&cs).NextEpoch.Randomness,
				}})(&cs.FinalizedHeader)
				return cs
			},
			expect: chaininfo.ErrBabeEpochInfoMismatch,
		},
		{
			name: "epoch change with other randomness",
			state: func() chaininfo.ChainState {
				cs := unittest.BabeChainStateFixture(5)
				unittest.WithDigestItems(header.DigestItem{BabeNextEpoch: &header.BabeNextEpoch{
					Authorities: babeOf(&cs).NextEpoch.Authorities,
					Randomness:  unittest.RandomnessFixture(0xff),
				}})(&cs.FinalizedHeader)
				return cs
			},
			expect: chaininfo.ErrBabeEpochInfoMismatch,
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cs := tc.state()
			require.ErrorIs(t, cs.Validate(), tc.expect)
			require.True(t, chaininfo.IsValidityError(cs.Validate()))
		})
	}
}

func TestValidate_BabeEpochChangeMatchingNextEpoch(t *testing.T) {
	require := require.New(t)

	cs := unittest.BabeChainStateFixture(5)
	next := babeOf(&cs).NextEpoch
	unittest.WithDigestItems(header.DigestItem{BabeNextEpoch: &header.BabeNextEpoch{
		Authorities: header.CopyAuthorities(next.Authorities),
		Randomness:  next.Randomness,
	}})(&cs.FinalizedHeader)
	require.NoError(cs.Validate())
}

func TestValidate_InvalidBabeConstant(t *testing.T) {
	require := require.New(t)

	// Case 1: next epoch.
	cs := unittest.BabeGenesisFixture()
	babeOf(&cs).NextEpoch.C = header.Fraction{Numerator: 3, Denominator: 2}
	err := cs.Validate()
	require.ErrorIs(err, chaininfo.ErrInvalidBabeConstant)
	var invalid chaininfo.InvalidBabeError
	require.True(errors.As(err, &invalid))
	require.Equal(chaininfo.ErrInvalidBabeConstant, invalid.Err)
	require.Contains(err.Error(), "error in a babe epoch information")

	// Case 2: current epoch.
	cs = unittest.BabeChainStateFixture(5)
	babeOf(&cs).CurrentEpoch.C = header.Fraction{Numerator: 3, Denominator: 2}
	require.True(chaininfo.IsInvalidBabeError(cs.Validate()))

	// Case 3: the epoch alone.
	epoch := unittest.BabeEpochFixture(4, nil)
	require.NoError(epoch.Validate())
	epoch.C = header.Fraction{Numerator: 1, Denominator: 0}
	require.ErrorIs(epoch.Validate(), chaininfo.ErrInvalidBabeConstant)
}

func TestValidate_Aura(t *testing.T) {
	for _, tc := range []struct {
		name   string
		state  func() chaininfo.ChainState
		expect error
	}{
		{
			name: "genesis with pre-runtime",
			state: func() chaininfo.ChainState {
				cs := unittest.AuraGenesisFixture()
				cs.FinalizedHeader.Digest = header.Digest{{AuraPreRuntime: &header.AuraPreDigest{Slot: 1}}}
				return cs
			},
		},
		{
			name: "block without seal",
			state: func() chaininfo.ChainState {
				cs := unittest.AuraChainStateFixture(4)
				cs.FinalizedHeader.Digest = cs.FinalizedHeader.Digest[:1]
				return cs
			},
		},
		{
			name: "block without pre-runtime",
			state: func() chaininfo.ChainState {
				cs := unittest.AuraChainStateFixture(4)
				cs.FinalizedHeader.Digest = cs.FinalizedHeader.Digest[1:]
				return cs
			},
		},
		{
			name: "babe header",
			state: func() chaininfo.ChainState {
				cs := unittest.AuraChainStateFixture(4)
				unittest.WithBabeDigest(4)(&cs.FinalizedHeader)
				return cs
			},
		},
		{
			name: "babe marker",
			state: func() chaininfo.ChainState {
				cs := unittest.AuraChainStateFixture(4)
				unittest.WithDigestItems(header.DigestItem{BabeNextConfig: &header.BabeNextConfig{}})(&cs.FinalizedHeader)
				return cs
			},
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cs := tc.state()
			require.ErrorIs(t, cs.Validate(), chaininfo.ErrConsensusAlgorithmMismatch)
		})
	}
}

func TestValidate_Grandpa(t *testing.T) {
	require := require.New(t)

	// Case 1: genesis with a non-zero set id.
	cs := unittest.BabeGenesisFixture()
	grandpaOf(&cs).AuthoritiesSetID = 1
	require.ErrorIs(cs.Validate(), chaininfo.ErrFinalizedZeroButNonZeroAuthoritiesSetID)

	// Case 2: scheduled change at the finalized height.
	cs = unittest.BabeChainStateFixture(10)
	grandpaOf(&cs).ScheduledChange = &chaininfo.GrandpaScheduledChange{
		TriggerHeight:  10,
		NewAuthorities: unittest.AuthorityListFixture(2),
	}
	require.ErrorIs(cs.Validate(), chaininfo.ErrScheduledGrandpaChangeBeforeFinalized)

	// Case 3: scheduled change right after the finalized height.
	grandpaOf(&cs).ScheduledChange.TriggerHeight = 11
	require.NoError(cs.Validate())

	// Case 4: scheduled change on genesis.
	cs = unittest.BabeGenesisFixture()
	grandpaOf(&cs).ScheduledChange = &chaininfo.GrandpaScheduledChange{TriggerHeight: 0}
	require.ErrorIs(cs.Validate(), chaininfo.ErrScheduledGrandpaChangeBeforeFinalized)
}

func TestValidate_ConsensusCheckedBeforeFinality(t *testing.T) {
	require := require.New(t)

	cs := unittest.BabeGenesisFixture()
	grandpaOf(&cs).AuthoritiesSetID = 1
	babeOf(&cs).NextEpoch.C = header.Fraction{Numerator: 2, Denominator: 1}
	require.True(chaininfo.IsInvalidBabeError(cs.Validate()))
}

// TestValidate_BabeConstantCheckedFirst covers inputs breaking several rules at once: the c
// constant of an epoch is checked before the rules about its start slot and its presence.
func TestValidate_BabeConstantCheckedFirst(t *testing.T) {
	bad := header.Fraction{Numerator: 3, Denominator: 2}

	for _, tc := range []struct {
		name  string
		state func() chaininfo.ChainState
		other error
	}{
		{
			name: "next epoch missing its start slot",
			state: func() chaininfo.ChainState {
				cs := unittest.BabeChainStateFixture(5)
				next := &babeOf(&cs).NextEpoch
				next.EpochIndex = 2
				next.StartSlotNumber = nil
				next.C = bad
				return cs
			},
			other: chaininfo.ErrMissingBabeSlotStartNumber,
		},
		{
			name: "next epoch 0 with a start slot",
			state: func() chaininfo.ChainState {
				cs := unittest.BabeGenesisFixture()
				next := &babeOf(&cs).NextEpoch
				next.StartSlotNumber = chaininfo.SlotNumber(1)
				next.C = bad
				return cs
			},
			other: chaininfo.ErrUnexpectedBabeSlotStartNumber,
		},
		{
			name: "current epoch on genesis",
			state: func() chaininfo.ChainState {
				cs := unittest.BabeGenesisFixture()
				current := unittest.BabeEpochFixture(0, chaininfo.SlotNumber(1))
				current.C = bad
				babeOf(&cs).CurrentEpoch = &current
				return cs
			},
			other: chaininfo.ErrUnexpectedBabeFinalizedEpoch,
		},
		{
			name: "current epoch missing its start slot",
			state: func() chaininfo.ChainState {
				cs := unittest.BabeChainStateFixture(5)
				current := babeOf(&cs).CurrentEpoch.Copy()
				current.StartSlotNumber = nil
				current.C = bad
				babeOf(&cs).CurrentEpoch = &current
				return cs
			},
			other: chaininfo.ErrMissingBabeSlotStartNumber,
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			require := require.New(t)

			cs := tc.state()
			err := cs.Validate()
			require.True(chaininfo.IsInvalidBabeError(err), "got %v", err)
			require.ErrorIs(err, chaininfo.ErrInvalidBabeConstant)
			require.NotErrorIs(err, tc.other)
		})
	}
}

func TestValidate_UnsupportedEngine(t *testing.T) {
	require := require.New(t)

	var cs chaininfo.ChainState
	require.ErrorIs(cs.Validate(), chaininfo.ErrUnsupportedEngine)

	cs.Consensus = chaininfo.UnknownConsensus{}
	require.ErrorIs(cs.Validate(), chaininfo.ErrUnsupportedEngine)

	cs.Finality = chaininfo.OutsourcedFinality{}
	require.NoError(cs.Validate())

	require.ErrorIs(chaininfo.ChainStateView{}.Validate(), chaininfo.ErrNoFinalizedHeader)
	require.False(chaininfo.IsValidityError(nil))
	require.False(chaininfo.IsValidityError(errors.New("disk on fire")))
}
