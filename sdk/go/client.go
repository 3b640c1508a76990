package taskflowsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal taskflow HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	// ActorID is sent as X-Actor-Id when no bearer token is set. Servers only
	// honour it when started with --allow-actor-header.
	ActorID    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, bearerToken string) *Client {
	return &Client{
		BaseURL:     baseURL,
		BasePath:    "/v0",
		BearerToken: bearerToken,
		Timeout:     10 * time.Second,
	}
}

// Task represents the API task model (partial).
type Task struct {
	ID       string  `json:"id"`
	ParentID *string `json:"parent_id,omitempty"`
	Title    string  `json:"title"`
	Status   string  `json:"status"`
	Progress int     `json:"progress"`
}

type QCCheck struct {
	ID         string  `json:"id"`
	TaskID     string  `json:"task_id"`
	Status     string  `json:"status"`
	Attempt    int     `json:"attempt"`
	LastReason *string `json:"last_reason,omitempty"`
}

type Acceptance struct {
	ID     string `json:"id"`
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Round  int    `json:"round"`
}

type Issue struct {
	ID       string `json:"id"`
	TaskID   string `json:"task_id"`
	Title    string `json:"title"`
	Blocking bool   `json:"blocking"`
	Status   string `json:"status"`
}

// Event is one entry of the event log.
type Event struct {
	Seq           int64           `json:"seq"`
	EventID       string          `json:"event_id"`
	Type          string          `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	CorrelationID string          `json:"correlation_id"`
	CausationID   *string         `json:"causation_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Actor         string          `json:"actor,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// TrailEntry is an event positioned in its causation tree.
type TrailEntry struct {
	Depth int `json:"depth"`
	Event
}

// EventQuery narrows Events. Zero fields are ignored.
type EventQuery struct {
	Type        string
	Domain      string
	AggregateID string
	Limit       int
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, title string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", map[string]any{"title": title}, &resp)
	return resp, err
}

func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodGet, "tasks/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// SetStatus changes a task status outside the QC workflow.
func (c *Client) SetStatus(ctx context.Context, id, status string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks/"+url.PathEscape(id)+"/status", map[string]any{"status": status}, &resp)
	return resp, err
}

func (c *Client) SetProgress(ctx context.Context, id string, progress int) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPut, "tasks/"+url.PathEscape(id)+"/progress", map[string]any{"progress": progress}, &resp)
	return resp, err
}

// SubmitForQC moves a finished task into QC.
func (c *Client) SubmitForQC(ctx context.Context, id string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks/"+url.PathEscape(id)+"/submit", nil, &resp)
	return resp, err
}

// PassQC passes the latest QC check of a task.
func (c *Client) PassQC(ctx context.Context, taskID string) (QCCheck, error) {
	var resp QCCheck
	err := c.do(ctx, http.MethodPost, "tasks/"+url.PathEscape(taskID)+"/qc/pass", map[string]any{}, &resp)
	return resp, err
}

// FailQC fails the latest QC check of a task with reason.
func (c *Client) FailQC(ctx context.Context, taskID, reason string) (QCCheck, error) {
	var resp QCCheck
	err := c.do(ctx, http.MethodPost, "tasks/"+url.PathEscape(taskID)+"/qc/fail", map[string]any{"reason": reason}, &resp)
	return resp, err
}

func (c *Client) ApproveAcceptance(ctx context.Context, taskID string) (Acceptance, error) {
	var resp Acceptance
	err := c.do(ctx, http.MethodPost, "tasks/"+url.PathEscape(taskID)+"/acceptance/approve", map[string]any{}, &resp)
	return resp, err
}

func (c *Client) RejectAcceptance(ctx context.Context, taskID, notes string) (Acceptance, error) {
	var resp Acceptance
	err := c.do(ctx, http.MethodPost, "tasks/"+url.PathEscape(taskID)+"/acceptance/reject", map[string]any{"notes": notes}, &resp)
	return resp, err
}

func (c *Client) ListIssues(ctx context.Context, taskID string) ([]Issue, error) {
	var resp []Issue
	err := c.do(ctx, http.MethodGet, "tasks/"+url.PathEscape(taskID)+"/issues", nil, &resp)
	return resp, err
}

func (c *Client) ResolveIssue(ctx context.Context, issueID, note string) (Issue, error) {
	var resp Issue
	err := c.do(ctx, http.MethodPost, "issues/"+url.PathEscape(issueID)+"/resolve", map[string]any{"note": note}, &resp)
	return resp, err
}

// Events returns the newest events first.
func (c *Client) Events(ctx context.Context, q EventQuery) ([]Event, error) {
	values := url.Values{}
	if q.Type != "" {
		values.Set("type", q.Type)
	}
	if q.Domain != "" {
		values.Set("domain", q.Domain)
	}
	if q.AggregateID != "" {
		values.Set("aggregate_id", q.AggregateID)
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	endpoint := "events"
	if len(values) > 0 {
		endpoint += "?" + values.Encode()
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Trail returns the causation tree of one workflow.
func (c *Client) Trail(ctx context.Context, correlationID string) ([]TrailEntry, error) {
	var resp []TrailEntry
	err := c.do(ctx, http.MethodGet, "trail/"+url.PathEscape(correlationID), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
		reader = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.ActorID != "":
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	basePath := c.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(basePath, "/")
}
