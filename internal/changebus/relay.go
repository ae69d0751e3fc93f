package changebus

import (
	"context"
	"log/slog"

	"kiosk/internal/logging"
)

// DefaultRelayBuffer bounds the relay handoff channel.
const DefaultRelayBuffer = 256

// Relay hands events from background goroutines to the bus. Producers call
// Enqueue; one goroutine running Run republishes them in order.
type Relay struct {
	bus    *Bus
	ch     chan Event
	logger *slog.Logger
}

// NewRelay builds a relay feeding bus.
func NewRelay(bus *Bus, buffer int, logger *slog.Logger) *Relay {
	if buffer <= 0 {
		buffer = DefaultRelayBuffer
	}
	return &Relay{
		bus:    bus,
		ch:     make(chan Event, buffer),
		logger: logging.NewComponentLogger(logger, "relay"),
	}
}

// Enqueue queues an event without blocking. It returns false when the
// handoff buffer is full.
func (r *Relay) Enqueue(eventType string, data any) bool {
	select {
	case r.ch <- Event{Type: eventType, Data: data}:
		return true
	default:
		logging.WarnWithContext(r.logger, "relay buffer full; event dropped", "relay_event_dropped",
			logging.String("type", eventType),
			logging.String(logging.FieldErrorHint, "raise relay.buffer or reduce the upstream event rate"),
			logging.String(logging.FieldImpact, "subscribers miss one relayed event"),
		)
		return false
	}
}

// Run drains the relay into the bus until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-r.ch:
			r.bus.Publish(evt.Type, evt.Data)
		}
	}
}
