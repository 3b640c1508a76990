package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Handler reacts to a published event.
type Handler func(ctx context.Context, e CausalEvent) error

// Bus is an in-process publisher with per-type and catch-all subscribers.
// Handlers run synchronously on the publishing goroutine, outside the bus lock.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	global   []Handler
	log      *zap.Logger
}

// NewBus returns an empty bus. A nil logger disables logging.
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{handlers: map[Type][]Handler{}, log: log}
}

// Subscribe registers h for events of type t.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// SubscribeAll registers h for every event.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.global = append(b.global, h)
}

// Publish delivers evts in order. Every handler runs even when an earlier one fails;
// the failures are joined into the returned error.
func (b *Bus) Publish(ctx context.Context, evts ...CausalEvent) error {
	var errs []error
	for _, e := range evts {
		b.mu.RLock()
		hs := make([]Handler, 0, len(b.handlers[e.Type])+len(b.global))
		hs = append(hs, b.handlers[e.Type]...)
		hs = append(hs, b.global...)
		b.mu.RUnlock()

		b.log.Debug("publish event",
			zap.String("event_type", string(e.Type)),
			zap.String("event_id", e.EventID.String()),
			zap.String("correlation_id", e.CorrelationID.String()),
			zap.Int("handlers", len(hs)))
		for _, h := range hs {
			if err := h(ctx, e); err != nil {
				b.log.Warn("event handler failed",
					zap.String("event_type", string(e.Type)),
					zap.String("event_id", e.EventID.String()),
					zap.Error(err))
				errs = append(errs, fmt.Errorf("handle %s %s: %w", e.Type, e.EventID, err))
			}
		}
	}
	return errors.Join(errs...)
}
