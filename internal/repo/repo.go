package repo

import (
	"context"
	"database/sql"
	"time"

	"taskflow/internal/domain"
	"taskflow/internal/events"
)

// Repo is the SQLite adapter behind every domain port. Aggregates are stored as
// versioned JSON documents and events in an append-only table.
type Repo struct {
	DB      *sql.DB
	Factory events.Factory
}

var ErrNotFound = domain.ErrNotFound

var _ domain.Transactor = Repo{}

type txKey struct{}

// txState is the open transaction plus the in-memory changes to undo if it rolls back.
type txState struct {
	tx   *sql.Tx
	undo []func()
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r Repo) q(ctx context.Context) querier {
	if st, ok := ctx.Value(txKey{}).(*txState); ok {
		return st.tx
	}
	return r.DB
}

// InTx runs fn inside a transaction carried by the returned context. A nested call
// joins the outer transaction. When the transaction does not commit, aggregate
// versions bumped inside it are restored.
func (r Repo) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	st := &txState{tx: tx}
	defer func() {
		if err == nil {
			return
		}
		_ = tx.Rollback()
		for i := len(st.undo) - 1; i >= 0; i-- {
			st.undo[i]()
		}
	}()
	if err = fn(context.WithValue(ctx, txKey{}, st)); err != nil {
		return err
	}
	return tx.Commit()
}

// onRollback registers undo to run if the surrounding transaction does not commit.
// Outside a transaction the write is already durable and undo is dropped.
func (r Repo) onRollback(ctx context.Context, undo func()) {
	if st, ok := ctx.Value(txKey{}).(*txState); ok {
		st.undo = append(st.undo, undo)
	}
}

func (r Repo) now() string {
	return r.Factory.Clock().Format(time.RFC3339Nano)
}
