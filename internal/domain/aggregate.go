// Package domain holds the aggregates of every bounded context and the ports they are
// persisted through.
package domain

import (
	"time"

	"taskflow/internal/events"
)

// Identity is the capability an aggregate id must provide: value equality.
type Identity[ID any] interface {
	comparable
	Equals(other ID) bool
	String() string
}

// Entity compares by identity only.
type Entity[ID Identity[ID]] struct {
	id ID
}

func (e Entity[ID]) ID() ID { return e.id }

// SameIdentity reports whether both entities carry equal ids.
func (e Entity[ID]) SameIdentity(other Entity[ID]) bool { return e.id.Equals(other.id) }

// Root owns the pending events raised by an aggregate and its persisted version.
// A Root is not safe for concurrent mutation.
type Root[ID Identity[ID]] struct {
	Entity[ID]

	factory events.Factory
	version int
	pending []events.CausalEvent
	trail   *events.Link
}

func newRoot[ID Identity[ID]](id ID, f events.Factory) Root[ID] {
	return Root[ID]{Entity: Entity[ID]{id: id}, factory: f}
}

func restoreRoot[ID Identity[ID]](id ID, f events.Factory, version int, trail *events.Link) Root[ID] {
	return Root[ID]{Entity: Entity[ID]{id: id}, factory: f, version: version, trail: trail}
}

// Version is the optimistic concurrency token of the last load or save.
func (r *Root[ID]) Version() int { return r.version }

// SetVersion is called by persistence adapters after a successful save.
func (r *Root[ID]) SetVersion(v int) { r.version = v }

// AggregateID is the id as stored in event envelopes and the aggregate table.
func (r *Root[ID]) AggregateID() string { return r.id.String() }

// PullDomainEvents drains the buffer in raise order. A second call returns nothing
// until new events are raised.
func (r *Root[ID]) PullDomainEvents() []events.CausalEvent {
	out := r.pending
	r.pending = nil
	return out
}

// ClearDomainEvents discards the buffer without delivery.
func (r *Root[ID]) ClearDomainEvents() { r.pending = nil }

func (r *Root[ID]) HasPendingEvents() bool { return len(r.pending) > 0 }

// Trail is the link to the last event this aggregate raised.
func (r *Root[ID]) Trail() *events.Link { return r.trail }

// build creates the events for one mutation without touching the buffer, so a
// failing payload leaves the aggregate unchanged.
func (r *Root[ID]) build(opts []events.Option, payloads ...events.Payload) ([]events.CausalEvent, error) {
	out := make([]events.CausalEvent, 0, len(payloads))
	for i, p := range payloads {
		o := opts
		if i > 0 {
			// later events of the same mutation are caused by the first one
			o = append(append([]events.Option{}, opts...), events.CausedBy(out[0]))
		}
		e, err := r.factory.New(r.id.String(), p, o...)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *Root[ID]) record(evts []events.CausalEvent) {
	if len(evts) == 0 {
		return
	}
	r.pending = append(r.pending, evts...)
	link := events.LinkOf(evts[len(evts)-1])
	r.trail = &link
}

// followTrail prepends a continuation of the aggregate's own workflow; explicit options win.
func (r *Root[ID]) followTrail(opts []events.Option) []events.Option {
	if r.trail == nil {
		return opts
	}
	return append([]events.Option{events.Continue(*r.trail)}, opts...)
}

func (r *Root[ID]) now() time.Time {
	return r.factory.Clock()
}
