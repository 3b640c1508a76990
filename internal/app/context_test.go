package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/config"
	"taskflow/internal/engine"
)

func TestResolveConfigDefaultsToDirectoryName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Site-A")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	cfg, err := ResolveConfig(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "site-a", cfg.Workspace.ID)
	assert.Contains(t, cfg.Roles, "manager")

	cfg, err = ResolveConfig(dir, "override")
	require.NoError(t, err)
	assert.Equal(t, "override", cfg.Workspace.ID)
}

func TestResolveConfigReadsWorkspaceFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(config.Path(dir), []byte(config.GenerateDefault("from-file")), 0o644))

	cfg, err := ResolveConfig(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Workspace.ID)

	cfg, err = ResolveConfig(dir, "flag")
	require.NoError(t, err)
	assert.Equal(t, "flag", cfg.Workspace.ID)
}

func TestOpenBuildsUsableEngine(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Options{Workspace: t.TempDir(), WorkspaceID: "ws-app"})
	require.NoError(t, err)
	defer s.Close()

	res := s.Engine.InitWorkspace(ctx, engine.InitWorkspaceRequest{ActorID: "alice"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "ws-app", res.Data.ID)
}
