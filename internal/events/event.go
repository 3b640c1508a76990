// Package events defines the causal event envelope, its factory and the event log plumbing.
package events

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"taskflow/internal/ident"
)

// ErrMalformedEvent marks a programming error while building or decoding an event.
var ErrMalformedEvent = errors.New("malformed event")

// CausalEvent records one business fact about one aggregate and its place in a workflow.
// CorrelationID is shared by every event of a workflow; CausationID is nil only for roots.
type CausalEvent struct {
	EventID       ident.EventID
	Type          Type
	AggregateID   string
	CorrelationID ident.CorrelationID
	CausationID   *ident.CausationID
	Timestamp     time.Time
	Actor         ident.UserID
	Payload       Payload
}

// IsRoot reports whether nothing caused e.
func (e CausalEvent) IsRoot() bool { return e.CausationID == nil }

// Link is the position of the last event in a workflow, enough to continue it later.
type Link struct {
	CorrelationID ident.CorrelationID `json:"correlation_id"`
	EventID       ident.EventID       `json:"event_id"`
}

// LinkOf returns the link a follow-up of e should continue from.
func LinkOf(e CausalEvent) Link {
	return Link{CorrelationID: e.CorrelationID, EventID: e.EventID}
}

type Option func(*options)

type options struct {
	correlation *ident.CorrelationID
	causation   *ident.CausationID
	actor       ident.UserID
}

// WithCorrelation places the event in an existing workflow.
func WithCorrelation(id ident.CorrelationID) Option {
	return func(o *options) { o.correlation = &id }
}

// WithCausation records the event or command that directly produced the event.
func WithCausation(id ident.CausationID) Option {
	return func(o *options) { o.causation = &id }
}

// CausedBy applies the propagation rule: same correlation as parent, caused by parent.
func CausedBy(parent CausalEvent) Option {
	return Continue(LinkOf(parent))
}

// Continue is CausedBy for a stored Link.
func Continue(l Link) Option {
	return func(o *options) {
		corr := l.CorrelationID
		cause := ident.Convert[ident.Causation](l.EventID)
		o.correlation = &corr
		o.causation = &cause
	}
}

// ByActor stamps the user responsible for the event.
func ByActor(id ident.UserID) Option {
	return func(o *options) { o.actor = id }
}

// Factory builds events with injected identity and clock sources.
type Factory struct {
	IDs ident.Generator
	Now func() time.Time
}

// NewFactory returns a Factory backed by random UUIDs and the wall clock.
func NewFactory() Factory {
	return Factory{IDs: ident.UUIDGenerator{}, Now: time.Now}
}

func (f Factory) now() time.Time {
	if f.Now == nil {
		return time.Now().UTC()
	}
	return f.Now().UTC()
}

// Clock returns the factory's current instant in UTC.
func (f Factory) Clock() time.Time { return f.now() }

// New builds an event for aggregateID. The returned event is a root unless the options
// thread a correlation or causation through.
func (f Factory) New(aggregateID string, payload Payload, opts ...Option) (CausalEvent, error) {
	if strings.TrimSpace(aggregateID) == "" {
		return CausalEvent{}, fmt.Errorf("%w: aggregate id is required", ErrMalformedEvent)
	}
	if payload == nil {
		return CausalEvent{}, fmt.Errorf("%w: payload is required", ErrMalformedEvent)
	}
	typ := payload.EventType()
	if !typ.IsValid() {
		return CausalEvent{}, fmt.Errorf("%w: unknown event type %q", ErrMalformedEvent, typ)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	eventID := ident.Generate[ident.Event](f.IDs)
	correlation := ident.Convert[ident.Correlation](eventID)
	if o.correlation != nil {
		correlation = *o.correlation
	}
	return CausalEvent{
		EventID:       eventID,
		Type:          typ,
		AggregateID:   strings.TrimSpace(aggregateID),
		CorrelationID: correlation,
		CausationID:   o.causation,
		Timestamp:     f.now(),
		Actor:         o.actor,
		Payload:       payload,
	}, nil
}
