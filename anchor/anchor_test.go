package anchor

import (
	"errors"
	"sync"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/rony4d/go-chainstate/chainstore"
	"github.com/rony4d/go-chainstate/inter/chaininfo"
	"github.com/rony4d/go-chainstate/utils/unittest"
)

type failingPersister struct{}

func (failingPersister) Put(*chaininfo.ValidatedChainState) error {
	return errors.New("disk full")
}

func newTestAnchor(t *testing.T, persister Persister) (*Anchor, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return New(nil, persister, logger), hook
}

func TestAnchor_Advance(t *testing.T) {
	require := require.New(t)
	a, hook := newTestAnchor(t, nil)

	require.Nil(a.Current())
	_, ok := a.View()
	require.False(ok)

	// Case 1: first trusted state.
	v, err := a.Advance(unittest.BabeGenesisFixture())
	require.NoError(err)
	require.Same(v, a.Current())
	require.Equal(logrus.InfoLevel, hook.LastEntry().Level)

	// Case 2: moving forward.
	v, err = a.Advance(unittest.BabeChainStateFixture(10))
	require.NoError(err)
	require.Equal(idx.Block(10), a.Current().FinalizedNumber())
	view, ok := a.View()
	require.True(ok)
	require.Equal(v.FinalizedHash(), view.FinalizedHash())

	// Case 3: same state again is a no-op.
	again, err := a.Advance(unittest.BabeChainStateFixture(10))
	require.NoError(err)
	require.Same(v, again)
	require.Equal(uint64(2), a.Advances())

	// Case 4: regression.
	_, err = a.Advance(unittest.BabeChainStateFixture(9))
	require.ErrorIs(err, ErrFinalityRegression)

	// Case 5: conflicting block at the same height.
	conflicting := unittest.BabeChainStateFixture(10)
	conflicting.FinalizedHeader.StateRoot[0] ^= 0xff
	_, err = a.Advance(conflicting)
	require.ErrorIs(err, ErrConflictingFinalizedBlock)
	require.Equal(logrus.ErrorLevel, hook.LastEntry().Level)

	// Case 6: incoherent candidate.
	bad := unittest.BabeChainStateFixture(11)
	bad.Finality = chaininfo.GrandpaFinality{ScheduledChange: &chaininfo.GrandpaScheduledChange{TriggerHeight: 11}}
	_, err = a.Advance(bad)
	require.ErrorIs(err, chaininfo.ErrScheduledGrandpaChangeBeforeFinalized)

	require.Same(v, a.Current())
	require.Equal(uint64(2), a.Advances())
}

func TestAnchor_Persists(t *testing.T) {
	require := require.New(t)

	logger, _ := test.NewNullLogger()
	store, err := chainstore.NewMemory(chainstore.DefaultConfig(), logger)
	require.NoError(err)
	a, _ := newTestAnchor(t, store)

	_, err = a.Advance(unittest.BabeChainStateFixture(3))
	require.NoError(err)
	latest, err := store.Latest()
	require.NoError(err)
	require.Equal(idx.Block(3), latest.FinalizedNumber())

	// A failure to persist leaves the trusted state untouched.
	a.persister = failingPersister{}
	_, err = a.Advance(unittest.BabeChainStateFixture(4))
	require.Error(err)
	require.Equal(idx.Block(3), a.Current().FinalizedNumber())
}

func TestAnchor_Subscribe(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnchor(t, nil)

	fast, cancelFast := a.Subscribe(4)
	slow, cancelSlow := a.Subscribe(0)
	defer cancelSlow()

	for n := idx.Block(1); n <= 3; n++ {
		_, err := a.Advance(unittest.BabeChainStateFixture(n))
		require.NoError(err)
	}
	for n := idx.Block(1); n <= 3; n++ {
		require.Equal(n, (<-fast).FinalizedNumber())
	}
	select {
	case <-slow:
		require.Fail("unbuffered subscriber received a notification")
	default:
	}

	cancelFast()
	cancelFast()
	_, open := <-fast
	require.False(open)

	a.Close()
	_, open = <-slow
	require.False(open)
	_, err := a.Advance(unittest.BabeChainStateFixture(4))
	require.ErrorIs(err, ErrClosed)

	closed, _ := a.Subscribe(1)
	_, open = <-closed
	require.False(open)
}

func TestAnchor_ConcurrentAdvance(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnchor(t, nil)

	var (
		g         errgroup.Group
		mu        sync.Mutex
		succeeded []idx.Block
	)
	for n := idx.Block(1); n <= 32; n++ {
		n := n
		g.Go(func() error {
			v, err := a.Advance(unittest.BabeChainStateFixture(n))
			if errors.Is(err, ErrFinalityRegression) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			succeeded = append(succeeded, v.FinalizedNumber())
			mu.Unlock()
			return nil
		})
	}
	require.NoError(g.Wait())

	// Whatever the interleaving, finality only moved forward and ended at the top.
	require.Equal(idx.Block(32), a.Current().FinalizedNumber())
	require.Equal(uint64(len(succeeded)), a.Advances())
}
