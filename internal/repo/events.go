package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"taskflow/internal/domain"
	"taskflow/internal/events"
	"taskflow/internal/ident"
)

const defaultEventLimit = 100

var _ domain.EventLog = EventLog{}

// EventLog reads and appends the events table.
type EventLog struct {
	repo   Repo
	writer events.Writer
}

func (r Repo) Events() EventLog {
	return EventLog{repo: r}
}

func (l EventLog) Append(ctx context.Context, evts ...events.CausalEvent) error {
	return l.writer.Append(ctx, l.repo.q(ctx), evts...)
}

// ByAggregate returns the history of one aggregate in append order.
func (l EventLog) ByAggregate(ctx context.Context, aggregateID string) ([]events.Stored, error) {
	return l.query(ctx, `WHERE aggregate_id=? ORDER BY seq`, aggregateID)
}

// ByCorrelation returns every event of one workflow in append order.
func (l EventLog) ByCorrelation(ctx context.Context, correlationID ident.CorrelationID) ([]events.Stored, error) {
	return l.query(ctx, `WHERE correlation_id=? ORDER BY seq`, correlationID.String())
}

// After pages forward through the log from an exclusive sequence cursor.
func (l EventLog) After(ctx context.Context, seq int64, limit int) ([]events.Stored, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	return l.query(ctx, `WHERE seq>? ORDER BY seq LIMIT ?`, seq, limit)
}

type EventFilters struct {
	Type        string
	Domain      string
	AggregateID string
	Limit       int
}

// Latest returns the newest events first, optionally narrowed by type, domain or aggregate.
func (l EventLog) Latest(ctx context.Context, f EventFilters) ([]events.Stored, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		where = append(where, "type=?")
		args = append(args, f.Type)
	}
	if f.Domain != "" {
		where = append(where, "domain=?")
		args = append(args, f.Domain)
	}
	if f.AggregateID != "" {
		where = append(where, "aggregate_id=?")
		args = append(args, f.AggregateID)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	return l.query(ctx, clause+` ORDER BY seq DESC LIMIT ?`, args...)
}

// LatestSeq is the sequence of the newest event, or 0 for an empty log.
func (l EventLog) LatestSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := l.repo.q(ctx).QueryRowContext(ctx, `SELECT COALESCE(MAX(seq),0) FROM events`).Scan(&seq)
	return seq, err
}

func (l EventLog) query(ctx context.Context, clause string, args ...any) ([]events.Stored, error) {
	rows, err := l.repo.q(ctx).QueryContext(ctx, `SELECT seq,event_id,type,aggregate_id,correlation_id,causation_id,actor_id,ts,payload_json FROM events `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []events.Stored
	for rows.Next() {
		var (
			seq       int64
			rec       events.Record
			causation sql.NullString
			actor     sql.NullString
			ts        string
			payload   string
		)
		if err := rows.Scan(&seq, &rec.EventID, &rec.Type, &rec.AggregateID, &rec.CorrelationID, &causation, &actor, &ts, &payload); err != nil {
			return nil, err
		}
		if causation.Valid {
			rec.CausationID = &causation.String
		}
		rec.Actor = actor.String
		rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("event %d: parse ts: %w", seq, err)
		}
		rec.Payload = []byte(payload)
		evt, err := events.FromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", seq, err)
		}
		res = append(res, events.Stored{Seq: seq, Event: evt})
	}
	return res, rows.Err()
}
