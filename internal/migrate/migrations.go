package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"go.uber.org/zap"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

// Step is one embedded schema change. Files are named NNNN_description.sql.
type Step struct {
	Version int
	Name    string
	UpSQL   string
}

type options struct {
	log    *zap.Logger
	source fs.FS
}

type Option func(*options)

func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithSource replaces the embedded steps. The directory must hold the .sql files at its root.
func WithSource(fsys fs.FS) Option {
	return func(o *options) { o.source = fsys }
}

func newOptions(opts []Option) options {
	o := options{log: zap.NewNop()}
	if sub, err := fs.Sub(migrationsFS, "sql"); err == nil {
		o.source = sub
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	return o
}

func loadSteps(fsys fs.FS) ([]Step, error) {
	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	seen := map[int]string{}
	var steps []Step
	for _, f := range files {
		if f.IsDir() || path.Ext(f.Name()) != ".sql" {
			continue
		}
		var v int
		if _, err := fmt.Sscanf(f.Name(), "%d_", &v); err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid migration filename %s", f.Name())
		}
		if prev, dup := seen[v]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, f.Name(), v)
		}
		seen[v] = f.Name()
		data, err := fs.ReadFile(fsys, f.Name())
		if err != nil {
			return nil, err
		}
		steps = append(steps, Step{Version: v, Name: f.Name(), UpSQL: string(data)})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].Version < steps[j].Version })
	return steps, nil
}

// Migrate applies the pending steps in order inside one transaction.
func Migrate(ctx context.Context, db *sql.DB, opts ...Option) error {
	o := newOptions(opts)
	steps, err := loadSteps(o.source)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	current, err := ensureVersionTable(ctx, tx)
	if err != nil {
		return err
	}
	from := current
	for _, s := range steps {
		if s.Version <= current {
			continue
		}
		if _, err := tx.ExecContext(ctx, s.UpSQL); err != nil {
			return fmt.Errorf("migration %s: %w", s.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE schema_version SET version=?`, s.Version); err != nil {
			return fmt.Errorf("update schema_version: %w", err)
		}
		o.log.Info("applied migration", zap.Int("version", s.Version), zap.String("name", s.Name))
		current = s.Version
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if current == from {
		o.log.Debug("schema up to date", zap.Int("version", current))
	}
	return nil
}

// Status reports the applied schema version and the newest known one.
// A database that was never migrated reports version 0.
func Status(ctx context.Context, db *sql.DB, opts ...Option) (current, latest int, err error) {
	o := newOptions(opts)
	steps, err := loadSteps(o.source)
	if err != nil {
		return 0, 0, err
	}
	if len(steps) > 0 {
		latest = steps[len(steps)-1].Version
	}
	var tables int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'`).Scan(&tables); err != nil {
		return 0, 0, err
	}
	if tables == 0 {
		return 0, latest, nil
	}
	err = db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, latest, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("read schema_version: %w", err)
	}
	return current, latest, nil
}

func ensureVersionTable(ctx context.Context, tx *sql.Tx) (int, error) {
	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version(version INTEGER NOT NULL);`); err != nil {
		return 0, fmt.Errorf("create schema_version: %w", err)
	}
	var current int
	err := tx.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version(version) VALUES (0)`); err != nil {
			return 0, fmt.Errorf("init schema_version: %w", err)
		}
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema_version: %w", err)
	}
	return current, nil
}
