// Package publish holds the latest telemetry snapshot and fans change
// notifications out to subscribers.
package publish

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ghalamif/vescflow/internal/domain"
	"github.com/ghalamif/vescflow/internal/ports"
)

// Publisher stores the latest published snapshot behind an atomic pointer
// swap, so readers never block on a publish and never observe a torn
// snapshot. Notification runs on the publishing goroutine, one subscriber
// at a time; a panicking subscriber is isolated and counted, never allowed
// to take down the publish or the remaining subscribers.
type Publisher struct {
	cur atomic.Pointer[domain.Snapshot]
	obs ports.Observability

	mu     sync.Mutex
	subs   map[uint64]ports.Subscriber
	nextID uint64
}

func New(obs ports.Observability) *Publisher {
	p := &Publisher{
		obs:  obs,
		subs: make(map[uint64]ports.Subscriber),
	}
	p.cur.Store(&domain.Snapshot{})
	return p
}

// Publish atomically replaces the held snapshot, then notifies every
// subscriber. An empty change set updates the snapshot without notifying
// anyone.
func (p *Publisher) Publish(snap domain.Snapshot, changed domain.ChangeSet) {
	p.cur.Store(&snap)

	if changed.Empty() {
		return
	}

	p.mu.Lock()
	subs := make([]ports.Subscriber, 0, len(p.subs))
	for _, s := range p.subs {
		subs = append(subs, s)
	}
	p.mu.Unlock()

	for _, s := range subs {
		p.notify(s, snap, changed)
	}
}

func (p *Publisher) notify(s ports.Subscriber, snap domain.Snapshot, changed domain.ChangeSet) {
	defer func() {
		if r := recover(); r != nil {
			p.obs.IncCounter("vescflow_subscriber_panics_total", 1)
			p.obs.LogError("subscriber_panic", fmt.Errorf("%v", r))
		}
	}()
	s.TelemetryChanged(snap, changed)
}

// Latest returns the most recently published snapshot by value. It never
// blocks on a concurrent publish.
func (p *Publisher) Latest() domain.Snapshot {
	return *p.cur.Load()
}

// Subscribe registers an observer and returns its handle.
func (p *Publisher) Subscribe(s ports.Subscriber) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	p.subs[id] = s
	return id
}

// Unsubscribe removes a previously registered observer. Unknown handles
// are a no-op.
func (p *Publisher) Unsubscribe(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subs, id)
}
