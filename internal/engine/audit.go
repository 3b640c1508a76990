package engine

import (
	"context"
	"fmt"

	"taskflow/internal/domain"
	"taskflow/internal/engine/auth"
	"taskflow/internal/events"
	"taskflow/internal/ident"
	"taskflow/internal/repo"
)

// EventView is a stored event in its wire form.
type EventView struct {
	Seq int64 `json:"seq"`
	events.Record
}

// AuditEntry places an event in its causation tree.
type AuditEntry struct {
	Depth int `json:"depth"`
	EventView
}

type AuditTrailRequest struct {
	CorrelationID string
	// EventID narrows the trail to the causal chain ending at this event.
	EventID string
	ActorID string
}

// AuditTrail returns one workflow as a causation tree, parents before children.
// With EventID set it returns the chain from that event back to the root instead.
func (e Engine) AuditTrail(ctx context.Context, req AuditTrailRequest) Result[[]AuditEntry] {
	if _, _, err := e.authorize(ctx, req.ActorID, auth.PermEventsRead); err != nil {
		return fail[[]AuditEntry](err)
	}
	corr, err := parseID[ident.Correlation]("correlation_id", req.CorrelationID)
	if err != nil {
		return fail[[]AuditEntry](err)
	}
	stored, err := e.Events.ByCorrelation(ctx, corr)
	if err != nil {
		return fail[[]AuditEntry](err)
	}
	if len(stored) == 0 {
		return fail[[]AuditEntry](fmt.Errorf("correlation %s: %w", corr, domain.ErrNotFound))
	}
	seqs := make(map[ident.EventID]int64, len(stored))
	evts := make([]events.CausalEvent, 0, len(stored))
	for _, s := range stored {
		seqs[s.Event.EventID] = s.Seq
		evts = append(evts, s.Event)
	}
	idx := events.NewIndex(evts)

	var nodes []events.Node
	if req.EventID != "" {
		id, err := parseID[ident.Event]("event_id", req.EventID)
		if err != nil {
			return fail[[]AuditEntry](err)
		}
		var target *events.CausalEvent
		for i := range evts {
			if evts[i].EventID.Equals(id) {
				target = &evts[i]
				break
			}
		}
		if target == nil {
			return fail[[]AuditEntry](fmt.Errorf("event %s in correlation %s: %w", id, corr, domain.ErrNotFound))
		}
		chain := idx.Trace(*target)
		for i, evt := range chain {
			nodes = append(nodes, events.Node{Event: evt, Depth: len(chain) - 1 - i})
		}
	} else {
		nodes = idx.Walk()
	}

	out := make([]AuditEntry, 0, len(nodes))
	for _, n := range nodes {
		view, err := eventView(seqs[n.Event.EventID], n.Event)
		if err != nil {
			return fail[[]AuditEntry](err)
		}
		out = append(out, AuditEntry{Depth: n.Depth, EventView: view})
	}
	return ok(out)
}

type ListEventsRequest struct {
	repo.EventFilters
	ActorID string
}

// ListEvents returns the newest events first.
func (e Engine) ListEvents(ctx context.Context, req ListEventsRequest) Result[[]EventView] {
	if _, _, err := e.authorize(ctx, req.ActorID, auth.PermEventsRead); err != nil {
		return fail[[]EventView](err)
	}
	stored, err := e.Repo.Events().Latest(ctx, req.EventFilters)
	if err != nil {
		return fail[[]EventView](err)
	}
	views, err := eventViews(stored)
	if err != nil {
		return fail[[]EventView](err)
	}
	return ok(views)
}

func eventViews(stored []events.Stored) ([]EventView, error) {
	out := make([]EventView, 0, len(stored))
	for _, s := range stored {
		v, err := eventView(s.Seq, s.Event)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func eventView(seq int64, evt events.CausalEvent) (EventView, error) {
	rec, err := events.ToRecord(evt)
	if err != nil {
		return EventView{}, err
	}
	return EventView{Seq: seq, Record: rec}, nil
}
