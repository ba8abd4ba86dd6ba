package chaininfo

import (
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

// ValidatedChainState is a ChainState known to be coherent. It can only be obtained
// through TryValidate (or ValidatedChainStateView.ToOwned), and its content can't be
// modified afterwards.
type ValidatedChainState struct {
	inner ChainState
}

// TryValidate checks cs and wraps it on success. cs is deep copied so that later
// modifications by the caller can't affect the validated value.
func TryValidate(cs ChainState) (*ValidatedChainState, error) {
	if err := cs.Validate(); err != nil {
		return nil, err
	}
	return &ValidatedChainState{inner: cs.View().ToOwned()}, nil
}

// View returns a view of the validated state. No validation is performed. The view
// references the data of v: writing through it, for instance through
// View().View().FinalizedHeader, breaks the guarantees of v and of everyone sharing it.
func (v *ValidatedChainState) View() ValidatedChainStateView {
	return ValidatedChainStateView{inner: v.inner.View()}
}

// ChainState returns an independent copy of the validated state.
func (v *ValidatedChainState) ChainState() ChainState {
	return v.inner.View().ToOwned()
}

// FinalizedNumber returns the height of the finalized block.
func (v *ValidatedChainState) FinalizedNumber() idx.Block {
	return v.inner.FinalizedHeader.Number
}

// FinalizedHash returns the hash of the finalized block.
func (v *ValidatedChainState) FinalizedHash() hash.Hash {
	return v.inner.FinalizedHeader.Hash()
}

// ValidatedChainStateView is a ChainStateView known to be coherent.
type ValidatedChainStateView struct {
	inner ChainStateView
}

// TryValidateView checks v and wraps it on success. The caller must not modify the
// referenced data afterwards.
func TryValidateView(v ChainStateView) (ValidatedChainStateView, error) {
	if err := v.Validate(); err != nil {
		return ValidatedChainStateView{}, err
	}
	return ValidatedChainStateView{inner: v}, nil
}

// View returns the underlying view. Modifying the data it references breaks the
// guarantees of the validated value.
func (v ValidatedChainStateView) View() ChainStateView {
	return v.inner
}

// ToOwned copies the referenced data into a ValidatedChainState without validating it again.
func (v ValidatedChainStateView) ToOwned() *ValidatedChainState {
	return &ValidatedChainState{inner: v.inner.ToOwned()}
}

// FinalizedNumber returns the height of the finalized block.
func (v ValidatedChainStateView) FinalizedNumber() idx.Block {
	return v.inner.FinalizedNumber()
}

// FinalizedHash returns the hash of the finalized block.
func (v ValidatedChainStateView) FinalizedHash() hash.Hash {
	return v.inner.FinalizedHash()
}
