package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"taskflow/internal/config"
	"taskflow/internal/engine"
	"taskflow/internal/events"
	"taskflow/internal/repo"
)

const (
	defaultWebhookInterval = 2 * time.Second
	defaultWebhookTimeout  = 5 * time.Second
	defaultWebhookBatch    = 100
)

// ErrRelayRunning is returned when Run is called on a relay that is already running.
var ErrRelayRunning = errors.New("webhook relay already running")

// Relay delivers committed events to configured webhooks. Each hook keeps its own
// persisted cursor, so deliveries resume after a restart instead of replaying the log.
type Relay struct {
	repo      repo.Repo
	hooks     []config.WebhookConfig
	workspace string
	interval  time.Duration
	transport *http.Transport
	log       *zap.Logger

	mu      sync.Mutex
	running bool
}

type RelayOption func(*Relay)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func NewRelay(r repo.Repo, hooks []config.WebhookConfig, workspace string, log *zap.Logger, opts ...RelayOption) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	relay := &Relay{
		repo:      r,
		workspace: workspace,
		interval:  defaultWebhookInterval,
		transport: http.DefaultTransport.(*http.Transport).Clone(),
		log:       log,
	}
	for _, hook := range hooks {
		if hook.Active() {
			relay.hooks = append(relay.hooks, hook)
		}
	}
	for _, opt := range opts {
		opt(relay)
	}
	return relay
}

// Run polls the event log until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrRelayRunning
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.Close()
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()
	if len(r.hooks) == 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if err := r.DispatchOnce(ctx); err != nil && ctx.Err() == nil {
			r.log.Warn("webhook dispatch failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// DispatchOnce delivers every pending event to every hook. A failed delivery stops
// that hook's batch; the event is retried on the next call.
func (r *Relay) DispatchOnce(ctx context.Context) error {
	var errs []error
	for _, hook := range r.hooks {
		if err := r.dispatchHook(ctx, hook); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", hook.URL, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases idle delivery connections.
func (r *Relay) Close() {
	r.transport.CloseIdleConnections()
}

func (r *Relay) dispatchHook(ctx context.Context, hook config.WebhookConfig) error {
	cursor, err := r.cursorFor(ctx, hook)
	if err != nil {
		return fmt.Errorf("init cursor: %w", err)
	}
	batch, err := r.repo.Events().After(ctx, cursor, defaultWebhookBatch)
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}
	filter := newEventFilter(hook.Events)
	for _, stored := range batch {
		if filter.match(stored.Event.Type) {
			if err := r.deliver(ctx, hook, stored); err != nil {
				return err
			}
			r.log.Debug("webhook delivered",
				zap.String("url", hook.URL),
				zap.Int64("seq", stored.Seq),
				zap.String("type", string(stored.Event.Type)))
		}
		if err := r.repo.SetWebhookCursor(ctx, hook.URL, stored.Seq); err != nil {
			return fmt.Errorf("advance cursor: %w", err)
		}
	}
	return nil
}

// cursorFor starts a hook that never delivered at the head of the log.
func (r *Relay) cursorFor(ctx context.Context, hook config.WebhookConfig) (int64, error) {
	seq, found, err := r.repo.WebhookCursor(ctx, hook.URL)
	if err != nil || found {
		return seq, err
	}
	seq, err = r.repo.Events().LatestSeq(ctx)
	if err != nil {
		return 0, err
	}
	return seq, r.repo.SetWebhookCursor(ctx, hook.URL, seq)
}

func (r *Relay) deliver(ctx context.Context, hook config.WebhookConfig, stored events.Stored) error {
	rec, err := events.ToRecord(stored.Event)
	if err != nil {
		return err
	}
	data, err := json.Marshal(engine.EventView{Seq: stored.Seq, Record: rec})
	if err != nil {
		return err
	}
	timeout := defaultWebhookTimeout
	if hook.TimeoutSeconds > 0 {
		timeout = time.Duration(hook.TimeoutSeconds) * time.Second
	}
	client := &http.Client{Transport: r.transport, Timeout: timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Taskflow-Event", rec.Type)
	req.Header.Set("X-Taskflow-Delivery", rec.EventID)
	req.Header.Set("X-Taskflow-Seq", strconv.FormatInt(stored.Seq, 10))
	req.Header.Set("X-Taskflow-Workspace", r.workspace)
	if strings.TrimSpace(hook.Secret) != "" {
		req.Header.Set("X-Taskflow-Signature", Signature(hook.Secret, data))
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}

// Signature is the X-Taskflow-Signature value for body signed with secret.
func Signature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// eventFilter matches an event by exact type or by its domain, e.g. "qc".
type eventFilter struct {
	all bool
	set map[string]struct{}
}

func newEventFilter(names []string) eventFilter {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		key := strings.TrimSpace(name)
		if key == "" {
			continue
		}
		if key == "*" {
			return eventFilter{all: true}
		}
		set[key] = struct{}{}
	}
	if len(set) == 0 {
		return eventFilter{all: true}
	}
	return eventFilter{set: set}
}

func (f eventFilter) match(t events.Type) bool {
	if f.all {
		return true
	}
	if _, ok := f.set[string(t)]; ok {
		return true
	}
	_, ok := f.set[t.Domain()]
	return ok
}
