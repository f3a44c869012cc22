package ports

import "github.com/ghalamif/vescflow/internal/domain"

// Subscriber receives the newly published snapshot together with the set of
// fields that changed since the previous one. The snapshot is passed by
// value; callbacks run on the publishing goroutine and should return fast.
type Subscriber interface {
	TelemetryChanged(snap domain.Snapshot, changed domain.ChangeSet)
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(snap domain.Snapshot, changed domain.ChangeSet)

func (f SubscriberFunc) TelemetryChanged(snap domain.Snapshot, changed domain.ChangeSet) {
	f(snap, changed)
}
