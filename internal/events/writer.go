package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Execer is satisfied by both *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Writer appends events to the append-only events table.
type Writer struct{}

func (w Writer) Append(ctx context.Context, exec Execer, evts ...CausalEvent) error {
	for _, e := range evts {
		rec, err := ToRecord(e)
		if err != nil {
			return err
		}
		_, err = exec.ExecContext(ctx, `INSERT INTO events(event_id,type,domain,aggregate_id,correlation_id,causation_id,actor_id,ts,payload_json) VALUES (?,?,?,?,?,?,?,?,?)`,
			rec.EventID, rec.Type, e.Type.Domain(), rec.AggregateID, rec.CorrelationID, rec.CausationID, nullable(rec.Actor), rec.Timestamp.UTC().Format(time.RFC3339Nano), string(rec.Payload))
		if err != nil {
			return fmt.Errorf("append event %s: %w", rec.EventID, err)
		}
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
