package core

import (
	"sync"

	"github.com/dustin/go-broadcast"
	"github.com/encodeous/dvsim/state"
)

// Watcher delivers every committed RoundResult to its subscribers
type Watcher interface {
	Subscribe() (<-chan any, func())
}

// SimTrace fans every committed round out to observers
type SimTrace struct {
	broadcast.Broadcaster
	mu     sync.Mutex
	closed bool
}

func (n *SimTrace) Init(s *state.State) error {
	n.Broadcaster = broadcast.NewBroadcaster(state.TraceBufferSize)
	return nil
}

// Subscribe registers a new observer. The returned function must be called once the observer is done,
// it may be called after the trace has been closed.
func (n *SimTrace) Subscribe() (<-chan any, func()) {
	ch := make(chan any, state.TraceBufferSize)
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		close(ch)
		return ch, func() {}
	}
	n.Register(ch)
	return ch, func() {
		done := make(chan struct{})
		go func() {
			n.mu.Lock()
			if !n.closed {
				n.Unregister(ch)
			}
			n.mu.Unlock()
			close(done)
		}()
		// a broadcast blocked on ch would otherwise hold up the unregister
		for {
			select {
			case <-ch:
			case <-done:
				return
			}
		}
	}
}

func (n *SimTrace) Cleanup(s *state.State) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return n.Broadcaster.Close()
}
