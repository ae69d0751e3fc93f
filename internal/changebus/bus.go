package changebus

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"kiosk/internal/logging"
)

// DefaultQueueSize bounds each subscriber queue when no size is configured.
const DefaultQueueSize = 64

// Metrics receives bus activity counters.
type Metrics interface {
	EventPublished(eventType string)
	EventDropped(eventType string)
	SubscribersChanged(count int)
}

// Subscriber is the handle for one live reader. Its queue is never closed;
// readers select on Done to learn about unsubscription.
type Subscriber struct {
	id   string
	ch   chan Event
	done chan struct{}
	once sync.Once
}

// ID returns the subscriber identifier used in logs.
func (s *Subscriber) ID() string { return s.id }

// Events returns the subscriber queue.
func (s *Subscriber) Events() <-chan Event { return s.ch }

// Done is closed once the subscriber is removed from the bus.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

func (s *Subscriber) offer(evt Event) bool {
	select {
	case s.ch <- evt:
		return true
	default:
		return false
	}
}

// Option configures a Bus.
type Option func(*Bus)

// WithQueueSize sets the per-subscriber queue capacity.
func WithQueueSize(size int) Option {
	return func(b *Bus) {
		if size > 0 {
			b.queueSize = size
		}
	}
}

// WithLogger sets the bus logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logging.NewComponentLogger(logger, "changebus")
	}
}

// WithMetrics wires bus counters.
func WithMetrics(m Metrics) Option {
	return func(b *Bus) {
		if m != nil {
			b.metrics = m
		}
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) {
		if now != nil {
			b.now = now
		}
	}
}

// Bus is the in-memory publish/subscribe hub.
type Bus struct {
	mu        sync.Mutex
	subs      map[string]*Subscriber
	queueSize int
	logger    *slog.Logger
	metrics   Metrics
	now       func() time.Time
}

// New constructs a Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:      make(map[string]*Subscriber),
		queueSize: DefaultQueueSize,
		logger:    logging.NewNop(),
		metrics:   noopMetrics{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a new reader.
func (b *Bus) Subscribe() *Subscriber {
	sub := &Subscriber{
		id:   uuid.NewString(),
		ch:   make(chan Event, b.queueSize),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.subs[sub.id] = sub
	count := len(b.subs)
	b.mu.Unlock()

	b.metrics.SubscribersChanged(count)
	b.logger.Debug("subscriber added", logging.String(logging.FieldSubscriberID, sub.id), logging.Int("subscribers", count))
	return sub
}

// Unsubscribe removes sub. Removing an unknown or already removed
// subscriber is a no-op.
func (b *Bus) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	_, ok := b.subs[sub.id]
	delete(b.subs, sub.id)
	count := len(b.subs)
	b.mu.Unlock()

	sub.once.Do(func() { close(sub.done) })
	if !ok {
		return
	}
	b.metrics.SubscribersChanged(count)
	b.logger.Debug("subscriber removed", logging.String(logging.FieldSubscriberID, sub.id), logging.Int("subscribers", count))
}

// Len reports the number of live subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish delivers an event to every current subscriber and returns how
// many queues accepted it.
func (b *Bus) Publish(eventType string, data any) int {
	if b == nil {
		return 0
	}
	if data == nil {
		data = map[string]any{}
	}
	evt := Event{Type: eventType, Data: data, TS: b.now().Unix()}

	b.mu.Lock()
	if len(b.subs) == 0 {
		b.mu.Unlock()
		return 0
	}
	subs := make([]*Subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	b.metrics.EventPublished(eventType)
	delivered := 0
	for _, sub := range subs {
		if sub.offer(evt) {
			delivered++
			continue
		}
		b.metrics.EventDropped(eventType)
		logging.WarnWithContext(b.logger, "subscriber queue full; event dropped", "changebus_event_dropped",
			logging.String(logging.FieldSubscriberID, sub.id),
			logging.String("type", eventType),
			logging.String(logging.FieldErrorHint, "the client is not reading its stream fast enough"),
			logging.String(logging.FieldImpact, "client misses one event and may show stale state"),
		)
	}
	return delivered
}

// PublishConfigChanged publishes the canonical config_changed event. An
// empty group list is reported as ["all"].
func (b *Bus) PublishConfigChanged(checksum string, groups []string) int {
	return b.Publish(TypeConfigChanged, ConfigChanged{
		Checksum:      checksum,
		ChangedGroups: changedGroups(groups),
	})
}

// Heartbeat enqueues a heartbeat for one subscriber and reports whether it
// fit in the queue.
func (b *Bus) Heartbeat(sub *Subscriber) bool {
	if sub == nil {
		return false
	}
	return sub.offer(Event{Type: TypeHeartbeat, Data: map[string]any{}, TS: b.now().Unix()})
}

type noopMetrics struct{}

func (noopMetrics) EventPublished(string)  {}
func (noopMetrics) EventDropped(string)    {}
func (noopMetrics) SubscribersChanged(int) {}
