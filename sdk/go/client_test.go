package taskflowsdk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/config"
	"taskflow/internal/db"
	"taskflow/internal/engine"
	"taskflow/internal/migrate"
	"taskflow/internal/server"
)

const secret = "sdk-secret"

func newClient(t *testing.T) *Client {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(context.Background(), conn))
	e := engine.New(conn, config.Default("ws-sdk"))
	res := e.InitWorkspace(context.Background(), engine.InitWorkspaceRequest{ActorID: "alice"})
	require.True(t, res.Success, res.Error)

	handler, err := server.New(server.Config{Engine: e, BasePath: "/v0", Auth: server.AuthConfig{JWTSecret: secret}})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	token, err := server.SignToken(secret, "alice", time.Hour)
	require.NoError(t, err)
	c := New(srv.URL, token)
	c.HTTPClient = srv.Client()
	return c
}

func TestClientDrivesTaskToCompletion(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	task, err := c.CreateTask(ctx, "Lay bricks")
	require.NoError(t, err)
	assert.Equal(t, "TODO", task.Status)

	_, err = c.SetStatus(ctx, task.ID, "IN_PROGRESS")
	require.NoError(t, err)
	_, err = c.SetProgress(ctx, task.ID, 100)
	require.NoError(t, err)
	task, err = c.SubmitForQC(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "IN_QC", task.Status)

	check, err := c.PassQC(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "PASSED", check.Status)

	acc, err := c.ApproveAcceptance(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", acc.Status)

	task, err = c.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", task.Status)

	done, err := c.Events(ctx, EventQuery{Type: "TaskCompleted", Limit: 5})
	require.NoError(t, err)
	require.Len(t, done, 1)

	trail, err := c.Trail(ctx, done[0].CorrelationID)
	require.NoError(t, err)
	require.NotEmpty(t, trail)
	assert.Equal(t, 0, trail[0].Depth)
	assert.Nil(t, trail[0].CausationID)
}

func TestClientSurfacesErrorEnvelope(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	_, err := c.GetTask(ctx, "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "not_found", apiErr.Code)

	c.BearerToken = ""
	_, err = c.CreateTask(ctx, "Anonymous")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
