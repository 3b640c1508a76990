package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"taskflow/internal/config"
	"taskflow/internal/db"
	"taskflow/internal/engine"
	"taskflow/internal/migrate"
)

const (
	testSecret = "test-secret"
	owner      = "alice"
)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, authCfg AuthConfig) (*testServer, func()) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default("ws-test"))
	if res := e.InitWorkspace(context.Background(), engine.InitWorkspaceRequest{ActorID: owner}); !res.Success {
		t.Fatalf("init workspace: %s", res.Error)
	}
	if authCfg.JWTSecret == "" {
		authCfg.JWTSecret = testSecret
	}
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: authCfg})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	client := &http.Client{}
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: client,
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			client.CloseIdleConnections()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func as(actor string) map[string]string {
	return map[string]string{"X-Actor-Id": actor}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal %s: %v", string(data), err)
	}
	return out
}

type taskBody struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func expectStatus(t *testing.T, res *http.Response, data []byte, want int) {
	t.Helper()
	if res.StatusCode != want {
		t.Fatalf("%s %s: expected %d, got %d: %s", res.Request.Method, res.Request.URL.Path, want, res.StatusCode, string(data))
	}
}

func expectError(t *testing.T, res *http.Response, data []byte, status int, code string) {
	t.Helper()
	expectStatus(t, res, data, status)
	body := decode[errorBody](t, data)
	if body.Error.Code != code {
		t.Fatalf("expected error code %s, got %s (%s)", code, body.Error.Code, body.Error.Message)
	}
}

func TestHealthIsOpen(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	if got := decode[map[string]string](t, data)["status"]; got != "ok" {
		t.Fatalf("expected status ok, got %q", got)
	}
}

func TestRequestsRequireAuthentication(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks", nil, nil)
	expectError(t, res, data, http.StatusUnauthorized, "unauthorized")

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks", nil, map[string]string{"Authorization": "Bearer not-a-jwt"})
	expectError(t, res, data, http.StatusUnauthorized, "invalid_credentials")

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks", nil, as(owner))
	expectError(t, res, data, http.StatusUnauthorized, "unauthorized")

	forged, err := SignToken("other-secret", owner, devTokenTTL)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks", nil, map[string]string{"Authorization": "Bearer " + forged})
	expectError(t, res, data, http.StatusUnauthorized, "invalid_credentials")
}

func TestDevLoginIsOffByDefault(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/auth/dev/login", map[string]any{"actor_id": owner}, nil)
	expectError(t, res, data, http.StatusUnauthorized, "unauthorized")

	token, err := SignToken(testSecret, owner, devTokenTTL)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/auth/dev/login", map[string]any{"actor_id": "mallory"}, map[string]string{"Authorization": "Bearer " + token})
	expectStatus(t, res, data, http.StatusNotFound)
}

func TestDevLoginTokenAuthenticates(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{DevLogin: true})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/auth/dev/login", map[string]any{"actor_id": owner}, nil)
	expectStatus(t, res, data, http.StatusOK)
	token := decode[DevLoginResponse](t, data).Token
	if token == "" {
		t.Fatalf("expected token")
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks", map[string]any{"title": "Frame roof"}, map[string]string{"Authorization": "Bearer " + token})
	expectStatus(t, res, data, http.StatusCreated)
	if created := decode[taskBody](t, data); created.Status != "TODO" {
		t.Fatalf("expected TODO, got %s", created.Status)
	}
}

func TestQCWorkflowOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{AllowActorHeader: true})
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v0"
	hdr := as(owner)

	res, data := doJSON(t, client, http.MethodPost, base+"/tasks", map[string]any{"title": "Pour foundation"}, hdr)
	expectStatus(t, res, data, http.StatusCreated)
	taskURL := base + "/tasks/" + decode[taskBody](t, data).ID

	res, data = doJSON(t, client, http.MethodPost, taskURL+"/status", map[string]any{"status": "IN_PROGRESS"}, hdr)
	expectStatus(t, res, data, http.StatusOK)
	res, data = doJSON(t, client, http.MethodPut, taskURL+"/progress", map[string]any{"progress": 100}, hdr)
	expectStatus(t, res, data, http.StatusOK)

	res, data = doJSON(t, client, http.MethodPost, taskURL+"/submit", nil, hdr)
	expectStatus(t, res, data, http.StatusOK)
	if got := decode[taskBody](t, data).Status; got != "IN_QC" {
		t.Fatalf("expected IN_QC, got %s", got)
	}

	res, data = doJSON(t, client, http.MethodPost, taskURL+"/qc/fail", map[string]any{"reason": "cracks in slab"}, hdr)
	expectStatus(t, res, data, http.StatusOK)

	res, data = doJSON(t, client, http.MethodGet, taskURL+"/issues", nil, hdr)
	expectStatus(t, res, data, http.StatusOK)
	issues := decode[[]struct {
		ID       string `json:"id"`
		Blocking bool   `json:"blocking"`
	}](t, data)
	if len(issues) != 1 || !issues[0].Blocking {
		t.Fatalf("expected one blocking issue, got %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, taskURL+"/submit", nil, hdr)
	expectError(t, res, data, http.StatusUnprocessableEntity, "validation_failed")

	res, data = doJSON(t, client, http.MethodPost, base+"/issues/"+issues[0].ID+"/resolve", map[string]any{"note": "patched"}, hdr)
	expectStatus(t, res, data, http.StatusOK)
	res, data = doJSON(t, client, http.MethodPost, taskURL+"/submit", nil, hdr)
	expectStatus(t, res, data, http.StatusOK)
	res, data = doJSON(t, client, http.MethodPost, taskURL+"/qc/pass", nil, hdr)
	expectStatus(t, res, data, http.StatusOK)

	res, data = doJSON(t, client, http.MethodPost, taskURL+"/acceptance/approve", map[string]any{"notes": "looks good"}, hdr)
	expectStatus(t, res, data, http.StatusOK)

	res, data = doJSON(t, client, http.MethodGet, taskURL, nil, hdr)
	expectStatus(t, res, data, http.StatusOK)
	if got := decode[taskBody](t, data).Status; got != "COMPLETED" {
		t.Fatalf("expected COMPLETED, got %s", got)
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/events?type=TaskCompleted", nil, hdr)
	expectStatus(t, res, data, http.StatusOK)
	done := decode[[]engine.EventView](t, data)
	if len(done) != 1 {
		t.Fatalf("expected one TaskCompleted event, got %d", len(done))
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/trail/"+done[0].CorrelationID, nil, hdr)
	expectStatus(t, res, data, http.StatusOK)
	trail := decode[[]engine.AuditEntry](t, data)
	if len(trail) == 0 || trail[0].Depth != 0 || trail[0].Type != "TaskSubmittedForQC" {
		t.Fatalf("unexpected trail root: %s", string(data))
	}
	if last := trail[len(trail)-1]; last.Type != "TaskCompleted" {
		t.Fatalf("expected trail to end with TaskCompleted, got %s", last.Type)
	}
}

func TestTaskRoutesBindPathID(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{AllowActorHeader: true})
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v0"
	hdr := as(owner)

	res, data := doJSON(t, client, http.MethodPost, base+"/tasks", map[string]any{"title": "Build walls"}, hdr)
	expectStatus(t, res, data, http.StatusCreated)
	parentID := decode[taskBody](t, data).ID
	taskURL := base + "/tasks/" + parentID

	res, data = doJSON(t, client, http.MethodPost, taskURL+"/subtasks", map[string]any{"title": "North wall"}, hdr)
	expectStatus(t, res, data, http.StatusCreated)
	child := decode[struct {
		ParentID string `json:"parent_id"`
	}](t, data)
	if child.ParentID != parentID {
		t.Fatalf("expected parent %s, got %q", parentID, child.ParentID)
	}

	res, data = doJSON(t, client, http.MethodPost, taskURL+"/status", map[string]any{"status": "IN_PROGRESS"}, hdr)
	expectStatus(t, res, data, http.StatusOK)
	res, data = doJSON(t, client, http.MethodPut, taskURL+"/progress", map[string]any{"progress": 40}, hdr)
	expectStatus(t, res, data, http.StatusOK)
	if got := decode[taskBody](t, data); got.ID != parentID || got.Progress != 40 {
		t.Fatalf("unexpected progress response: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, taskURL+"/issues", map[string]any{"title": "Missing rebar", "blocking": true}, hdr)
	expectStatus(t, res, data, http.StatusCreated)
	issue := decode[struct {
		TaskID string `json:"task_id"`
	}](t, data)
	if issue.TaskID != parentID {
		t.Fatalf("expected issue on %s, got %q", parentID, issue.TaskID)
	}
}

func TestEngineErrorsMapToStatus(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{AllowActorHeader: true})
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v0"

	res, data := doJSON(t, client, http.MethodGet, base+"/tasks/missing", nil, as(owner))
	expectError(t, res, data, http.StatusNotFound, "not_found")

	res, data = doJSON(t, client, http.MethodPost, base+"/tasks", map[string]any{"title": "ab"}, as(owner))
	expectError(t, res, data, http.StatusUnprocessableEntity, "validation_failed")

	res, data = doJSON(t, client, http.MethodPost, base+"/tasks", map[string]any{"title": "Sneaky task"}, as("mallory"))
	expectError(t, res, data, http.StatusForbidden, "forbidden")

	res, data = doJSON(t, client, http.MethodPost, base+"/roles", map[string]any{"name": "Manager"}, as(owner))
	expectError(t, res, data, http.StatusUnprocessableEntity, "validation_failed")
}

func TestSettingsRoundTrip(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{AllowActorHeader: true})
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v0"

	type settingsBody struct {
		Theme    string `json:"theme"`
		Language string `json:"language"`
	}
	res, data := doJSON(t, client, http.MethodPatch, base+"/settings", map[string]any{"theme": "dark"}, as(owner))
	expectStatus(t, res, data, http.StatusOK)

	res, data = doJSON(t, client, http.MethodGet, base+"/settings", nil, as(owner))
	expectStatus(t, res, data, http.StatusOK)
	if got := decode[settingsBody](t, data); got.Theme != "dark" {
		t.Fatalf("expected dark theme, got %+v", got)
	}

	res, data = doJSON(t, client, http.MethodPatch, base+"/settings", map[string]any{"theme": "neon"}, as(owner))
	if res.StatusCode != http.StatusBadRequest && res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected theme rejection, got %d: %s", res.StatusCode, string(data))
	}
}
