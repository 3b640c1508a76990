package app

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"taskflow/internal/config"
	"taskflow/internal/db"
	"taskflow/internal/engine"
	"taskflow/internal/migrate"
)

// Options selects the workspace a Session opens.
type Options struct {
	Workspace string
	// WorkspaceID overrides the id from taskflow.yml.
	WorkspaceID string
	Log         *zap.Logger
}

// Session is an opened workspace: a migrated database and an engine over it.
type Session struct {
	Engine engine.Engine
	Config *config.Config
	DB     *sql.DB
}

func (s *Session) Close() error {
	return s.DB.Close()
}

// Open prepares the workspace directory, migrates its database and builds the engine.
func Open(ctx context.Context, opts Options) (*Session, error) {
	cfg, err := ResolveConfig(opts.Workspace, opts.WorkspaceID)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	if err := migrate.Migrate(ctx, conn, migrate.WithLogger(log.Named("migrate"))); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	e := engine.New(conn, cfg, engine.WithLogger(log.Named("engine")))
	return &Session{Engine: e, Config: cfg, DB: conn}, nil
}

// ResolveConfig loads taskflow.yml from workspace. Without one the defaults apply,
// with the workspace directory name as workspace id.
func ResolveConfig(workspace, idOverride string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		id := idOverride
		if id == "" {
			id = defaultWorkspaceID(workspace)
		}
		return config.Default(id), nil
	}
	if idOverride != "" {
		cfg.Workspace.ID = idOverride
	}
	return cfg, nil
}

func defaultWorkspaceID(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return "default"
	}
	name := strings.ToLower(strings.TrimSpace(filepath.Base(abs)))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "default"
	}
	return name
}
