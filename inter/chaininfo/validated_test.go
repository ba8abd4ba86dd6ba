package chaininfo_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/rony4d/go-chainstate/inter/chaininfo"
	"github.com/rony4d/go-chainstate/inter/header"
	"github.com/rony4d/go-chainstate/utils/unittest"
)

func TestTryValidate(t *testing.T) {
	require := require.New(t)

	// Case 1: a coherent state is wrapped.
	cs := unittest.BabeChainStateFixture(20)
	validated, err := chaininfo.TryValidate(cs)
	require.NoError(err)
	require.Equal(cs, validated.ChainState())
	require.Equal(cs.FinalizedNumber(), validated.FinalizedNumber())
	require.Equal(cs.FinalizedHeader.Hash(), validated.FinalizedHash())

	// Case 2: later changes by the caller don't leak into the validated state.
	cs.FinalizedHeader.Digest[0].BabePreRuntime.Slot = 1
	require.Error(cs.Validate())
	require.NoError(validated.View().View().Validate())

	// Case 3: the copy returned by ChainState is independent as well.
	out := validated.ChainState()
	out.FinalizedHeader.Number = 0
	require.Equal(cs.FinalizedNumber(), validated.FinalizedNumber())

	// Case 4: an incoherent state is rejected.
	cs = unittest.BabeGenesisFixture()
	cs.Finality = chaininfo.GrandpaFinality{AuthoritiesSetID: 1}
	validated, err = chaininfo.TryValidate(cs)
	require.ErrorIs(err, chaininfo.ErrFinalizedZeroButNonZeroAuthoritiesSetID)
	require.Nil(validated)
}

func TestTryValidateView(t *testing.T) {
	require := require.New(t)

	cs := unittest.AuraChainStateFixture(3)
	view, err := chaininfo.TryValidateView(cs.View())
	require.NoError(err)
	require.Equal(cs.FinalizedNumber(), view.FinalizedNumber())
	require.Equal(cs.FinalizedHeader.Hash(), view.FinalizedHash())
	require.Same(&cs.FinalizedHeader, view.View().FinalizedHeader)

	owned := view.ToOwned()
	require.Equal(cs, owned.ChainState())

	cs.FinalizedHeader.Digest = append(cs.FinalizedHeader.Digest, header.DigestItem{})
	_, err = chaininfo.TryValidateView(chaininfo.ChainStateView{
		FinalizedHeader: &cs.FinalizedHeader,
		Consensus:       chaininfo.AuraConsensusView{SlotDuration: 1},
		Finality:        chaininfo.OutsourcedFinalityView{},
	})
	require.ErrorIs(err, chaininfo.ErrConsensusAlgorithmMismatch)
}

func TestTryValidate_Sound(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cs := unittest.ChainStateGen().Draw(t, "state")
		validated, err := chaininfo.TryValidate(cs)
		if err != nil {
			require.Nil(t, validated)
			require.True(t, chaininfo.IsValidityError(err))
			return
		}
		require.NoError(t, validated.View().View().Validate())
		require.Equal(t, cs, validated.ChainState())
	})
}

func TestValidatedChainState_ViewReferencesSnapshot(t *testing.T) {
	require := require.New(t)

	validated, err := chaininfo.TryValidate(unittest.BabeChainStateFixture(20))
	require.NoError(err)

	// Views hand out the data of the validated value itself, not copies of it.
	first, second := validated.View().View(), validated.View().View()
	require.Same(first.FinalizedHeader, second.FinalizedHeader)

	// ChainState and ToOwned are the way to get data that can be modified.
	owned := validated.ChainState()
	require.NotSame(&owned.FinalizedHeader, first.FinalizedHeader)
	owned.FinalizedHeader.Digest[0].BabePreRuntime.Slot = 1
	require.NoError(validated.View().View().Validate())

	reowned := validated.View().ToOwned().ChainState()
	reowned.FinalizedHeader.Number = 0
	require.Equal(uint64(20), uint64(validated.FinalizedNumber()))
}
