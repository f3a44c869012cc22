package vescflow

import (
	"sync"
)

// Update pairs a published snapshot with the fields that changed.
type Update struct {
	Snapshot Snapshot
	Changed  ChangeSet
}

// NewChannelSubscriber exposes updates via a channel; it returns the
// subscriber, the read-only channel, and a close function the caller should
// invoke after unsubscribing. When the buffer is full new updates are
// dropped: a consumer that falls behind misses intermediate states but is
// never reordered and never stalls the publish path.
func NewChannelSubscriber(buffer int) (Subscriber, <-chan Update, func()) {
	if buffer < 1 {
		buffer = 1
	}
	s := &channelSubscriber{
		ch: make(chan Update, buffer),
	}
	return s, s.ch, func() { s.close() }
}

type channelSubscriber struct {
	mu     sync.Mutex
	ch     chan Update
	closed bool
}

// The send happens under the mutex so close can never race it onto a
// closed channel; the buffered non-blocking send keeps the hold time
// bounded.
func (s *channelSubscriber) TelemetryChanged(snap Snapshot, changed ChangeSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.ch <- Update{Snapshot: snap, Changed: changed}:
	default:
		// Slow consumer: drop rather than stall the publish path.
	}
}

func (s *channelSubscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
