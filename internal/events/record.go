package events

import (
	"encoding/json"
	"fmt"
	"time"

	"taskflow/internal/ident"
)

// Record is the plain serialized shape of a CausalEvent.
type Record struct {
	EventID       string          `json:"event_id"`
	Type          string          `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	CorrelationID string          `json:"correlation_id"`
	CausationID   *string         `json:"causation_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Actor         string          `json:"actor,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// Stored is an event read back from the log with its sequence number.
type Stored struct {
	Seq   int64
	Event CausalEvent
}

// ToRecord flattens e.
func ToRecord(e CausalEvent) (Record, error) {
	if e.Payload == nil {
		return Record{}, fmt.Errorf("%w: payload is required", ErrMalformedEvent)
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return Record{}, fmt.Errorf("marshal event payload: %w", err)
	}
	rec := Record{
		EventID:       e.EventID.String(),
		Type:          string(e.Type),
		AggregateID:   e.AggregateID,
		CorrelationID: e.CorrelationID.String(),
		Timestamp:     e.Timestamp,
		Actor:         e.Actor.String(),
		Payload:       data,
	}
	if e.CausationID != nil {
		v := e.CausationID.String()
		rec.CausationID = &v
	}
	return rec, nil
}

// FromRecord rebuilds an event. Unknown types and blank identifiers fail with ErrMalformedEvent.
func FromRecord(r Record) (CausalEvent, error) {
	typ := Type(r.Type)
	decode, ok := decoders[typ]
	if !ok {
		return CausalEvent{}, fmt.Errorf("%w: unknown event type %q", ErrMalformedEvent, r.Type)
	}
	eventID, err := ident.Create[ident.Event](r.EventID)
	if err != nil {
		return CausalEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	correlation, err := ident.Create[ident.Correlation](r.CorrelationID)
	if err != nil {
		return CausalEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if r.AggregateID == "" {
		return CausalEvent{}, fmt.Errorf("%w: aggregate id is required", ErrMalformedEvent)
	}
	payload, err := decode(r.Payload)
	if err != nil {
		return CausalEvent{}, fmt.Errorf("%w: decode %s payload: %v", ErrMalformedEvent, r.Type, err)
	}
	e := CausalEvent{
		EventID:       eventID,
		Type:          typ,
		AggregateID:   r.AggregateID,
		CorrelationID: correlation,
		Timestamp:     r.Timestamp,
		Payload:       payload,
	}
	if r.CausationID != nil {
		cause, err := ident.Create[ident.Causation](*r.CausationID)
		if err != nil {
			return CausalEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		e.CausationID = &cause
	}
	if r.Actor != "" {
		actor, err := ident.Create[ident.User](r.Actor)
		if err != nil {
			return CausalEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		e.Actor = actor
	}
	return e, nil
}

// Marshal serializes e as a JSON Record.
func Marshal(e CausalEvent) ([]byte, error) {
	rec, err := ToRecord(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

// Unmarshal parses a JSON Record produced by Marshal.
func Unmarshal(data []byte) (CausalEvent, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return CausalEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return FromRecord(rec)
}
