package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"taskflow/internal/domain"
	"taskflow/internal/events"
	"taskflow/internal/ident"
)

type aggregate interface {
	AggregateID() string
	Version() int
	SetVersion(v int)
	WorkspaceID() ident.WorkspaceID
}

// store persists one aggregate kind in the aggregates table.
type store[A aggregate, S any] struct {
	repo    Repo
	kind    string
	state   func(A) S
	restore func(events.Factory, S, int) A
}

func (s store[A, S]) find(ctx context.Context, id string) (A, error) {
	var (
		zero    A
		raw     string
		version int
	)
	err := s.repo.q(ctx).QueryRowContext(ctx, `SELECT state_json, version FROM aggregates WHERE kind=? AND id=?`, s.kind, id).Scan(&raw, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, fmt.Errorf("%s %s: %w", s.kind, id, ErrNotFound)
	}
	if err != nil {
		return zero, err
	}
	return s.decode(raw, version)
}

func (s store[A, S]) decode(raw string, version int) (A, error) {
	var st S
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		var zero A
		return zero, fmt.Errorf("decode %s: %w", s.kind, err)
	}
	return s.restore(s.repo.Factory, st, version), nil
}

func (s store[A, S]) list(ctx context.Context, where string, args ...any) ([]A, error) {
	query := `SELECT state_json, version FROM aggregates WHERE kind=? AND ` + where + ` ORDER BY rowid`
	rows, err := s.repo.q(ctx).QueryContext(ctx, query, append([]any{s.kind}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []A
	for rows.Next() {
		var (
			raw     string
			version int
		)
		if err := rows.Scan(&raw, &version); err != nil {
			return nil, err
		}
		a, err := s.decode(raw, version)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (s store[A, S]) byWorkspace(ctx context.Context, workspaceID ident.WorkspaceID) ([]A, error) {
	return s.list(ctx, `workspace_id=?`, workspaceID.String())
}

// save inserts a new aggregate or updates the stored one when its version still
// matches, then advances the in-memory version.
func (s store[A, S]) save(ctx context.Context, a A) error {
	data, err := json.Marshal(s.state(a))
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.kind, err)
	}
	id := a.AggregateID()
	current := a.Version()
	var res sql.Result
	if current == 0 {
		res, err = s.repo.q(ctx).ExecContext(ctx, `INSERT INTO aggregates(kind,id,workspace_id,version,state_json,updated_at) VALUES (?,?,?,?,?,?) ON CONFLICT(kind,id) DO NOTHING`,
			s.kind, id, a.WorkspaceID().String(), 1, string(data), s.repo.now())
	} else {
		res, err = s.repo.q(ctx).ExecContext(ctx, `UPDATE aggregates SET version=?, workspace_id=?, state_json=?, updated_at=? WHERE kind=? AND id=? AND version=?`,
			current+1, a.WorkspaceID().String(), string(data), s.repo.now(), s.kind, id, current)
	}
	if err != nil {
		return fmt.Errorf("save %s %s: %w", s.kind, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s %s at version %d: %w", s.kind, id, current, domain.ErrConcurrentModification)
	}
	a.SetVersion(current + 1)
	s.repo.onRollback(ctx, func() { a.SetVersion(current) })
	return nil
}

func (s store[A, S]) remove(ctx context.Context, id string) error {
	res, err := s.repo.q(ctx).ExecContext(ctx, `DELETE FROM aggregates WHERE kind=? AND id=?`, s.kind, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%s %s: %w", s.kind, id, ErrNotFound)
	}
	return nil
}

func first[A any](items []A, kind string) (A, error) {
	if len(items) == 0 {
		var zero A
		return zero, fmt.Errorf("%s: %w", kind, ErrNotFound)
	}
	return items[0], nil
}
