// Package anchor holds the chain state the rest of a node trusts.
//
// Readers get the current validated chain state without locking. Writers hand candidate
// states to Advance, which validates them, refuses to move finality backwards, persists
// them and finally swaps the trusted pointer. Subscribers are notified of every swap.
package anchor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/rony4d/go-chainstate/inter/chaininfo"
)

var (
	// ErrFinalityRegression is returned when a candidate is finalized below the trusted state.
	ErrFinalityRegression = errors.New("candidate chain state is below the trusted finalized block")
	// ErrConflictingFinalizedBlock is returned when a candidate finalizes another block at
	// the height of the trusted state.
	ErrConflictingFinalizedBlock = errors.New("candidate chain state finalizes a conflicting block")
	// ErrClosed is returned by Advance once the anchor is closed.
	ErrClosed = errors.New("anchor is closed")
)

// Persister stores chain states before they become trusted.
type Persister interface {
	Put(*chaininfo.ValidatedChainState) error
}

// Anchor is the holder of the trusted chain state. It is safe for concurrent use.
type Anchor struct {
	current   atomic.Pointer[chaininfo.ValidatedChainState]
	advances  atomic.Uint64
	persister Persister
	log       logrus.FieldLogger

	mu     sync.Mutex // serializes writers and guards subs
	subs   map[int]chan *chaininfo.ValidatedChainState
	nextID int
	closed bool
}

// New returns an anchor trusting initial, which may be nil when nothing is trusted yet.
// persister may be nil.
func New(initial *chaininfo.ValidatedChainState, persister Persister, logger logrus.FieldLogger) *Anchor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	a := &Anchor{
		persister: persister,
		log:       logger.WithField("module", "anchor"),
		subs:      make(map[int]chan *chaininfo.ValidatedChainState),
	}
	if initial != nil {
		a.current.Store(initial)
	}
	return a
}

// Current returns the trusted chain state, or nil if there is none.
func (a *Anchor) Current() *chaininfo.ValidatedChainState {
	return a.current.Load()
}

// View returns a view of the trusted chain state. The boolean is false if there is none.
// The view references the snapshot shared with every other reader and the store cache,
// so the data it points to must not be modified.
func (a *Anchor) View() (chaininfo.ValidatedChainStateView, bool) {
	cur := a.current.Load()
	if cur == nil {
		return chaininfo.ValidatedChainStateView{}, false
	}
	return cur.View(), true
}

// Advances returns the number of times the trusted chain state was replaced.
func (a *Anchor) Advances() uint64 {
	return a.advances.Load()
}

// Advance makes candidate the trusted chain state. The candidate must be coherent and
// must not finalize a block below, or conflicting with, the trusted one. Advancing to the
// trusted state itself is a no-op. On error the trusted state is left untouched.
func (a *Anchor) Advance(candidate chaininfo.ChainState) (*chaininfo.ValidatedChainState, error) {
	logger := a.log.WithField("number", candidate.FinalizedNumber())

	next, err := chaininfo.TryValidate(candidate)
	if err != nil {
		logger.WithError(err).Warn("Rejected incoherent chain state")
		return nil, err
	}
	logger = logger.WithField("hash", next.FinalizedHash().String())

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, ErrClosed
	}

	if cur := a.current.Load(); cur != nil {
		switch {
		case next.FinalizedNumber() < cur.FinalizedNumber():
			logger.WithField("trusted", cur.FinalizedNumber()).Warn("Rejected finality regression")
			return nil, fmt.Errorf("%w: %d < %d", ErrFinalityRegression, next.FinalizedNumber(), cur.FinalizedNumber())
		case next.FinalizedNumber() == cur.FinalizedNumber():
			if next.FinalizedHash() == cur.FinalizedHash() {
				logger.Debug("Chain state already trusted")
				return cur, nil
			}
			logger.WithField("trusted", cur.FinalizedHash().String()).Error("Rejected conflicting finalized block")
			return nil, ErrConflictingFinalizedBlock
		}
	}

	if a.persister != nil {
		if err := a.persister.Put(next); err != nil {
			logger.WithError(err).Error("Failed to persist chain state")
			return nil, fmt.Errorf("persist chain state: %w", err)
		}
	}

	a.current.Store(next)
	a.advances.Inc()
	logger.Info("Advanced trusted chain state")

	for id, ch := range a.subs {
		select {
		case ch <- next:
		default:
			logger.WithField("subscriber", id).Warn("Subscriber too slow, dropped notification")
		}
	}
	return next, nil
}

// Subscribe returns a channel receiving every newly trusted chain state, and a function
// cancelling the subscription. Notifications are dropped when the buffer is full.
func (a *Anchor) Subscribe(buffer int) (<-chan *chaininfo.ValidatedChainState, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ch := make(chan *chaininfo.ValidatedChainState, buffer)
	if a.closed {
		close(ch)
		return ch, func() {}
	}
	id := a.nextID
	a.nextID++
	a.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			if sub, ok := a.subs[id]; ok {
				delete(a.subs, id)
				close(sub)
			}
		})
	}
}

// Close ends all subscriptions and refuses further advances. The trusted chain state stays
// readable.
func (a *Anchor) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	for id, ch := range a.subs {
		delete(a.subs, id)
		close(ch)
	}
}
