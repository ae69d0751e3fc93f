package changebus_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"pgregory.net/rapid"

	"kiosk/internal/changebus"
)

type countingMetrics struct {
	mu          sync.Mutex
	published   map[string]int
	dropped     map[string]int
	subscribers int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{published: map[string]int{}, dropped: map[string]int{}}
}

func (m *countingMetrics) EventPublished(t string) {
	m.mu.Lock()
	m.published[t]++
	m.mu.Unlock()
}

func (m *countingMetrics) EventDropped(t string) {
	m.mu.Lock()
	m.dropped[t]++
	m.mu.Unlock()
}

func (m *countingMetrics) SubscribersChanged(n int) {
	m.mu.Lock()
	m.subscribers = n
	m.mu.Unlock()
}

func fixedClock() time.Time { return time.Unix(1700000000, 0) }

func drain(sub *changebus.Subscriber) []changebus.Event {
	var out []changebus.Event
	for {
		select {
		case evt := <-sub.Events():
			out = append(out, evt)
		default:
			return out
		}
	}
}

func TestPublishFansOutInOrder(t *testing.T) {
	bus := changebus.New(changebus.WithClock(fixedClock))
	subs := []*changebus.Subscriber{bus.Subscribe(), bus.Subscribe(), bus.Subscribe()}
	gone := bus.Subscribe()
	bus.Unsubscribe(gone)

	if got := bus.PublishConfigChanged("abc", []string{"layers"}); got != 3 {
		t.Fatalf("delivered = %d, want 3", got)
	}
	bus.Publish("strike", map[string]any{"n": 1})

	for i, sub := range subs {
		events := drain(sub)
		if len(events) != 2 {
			t.Fatalf("subscriber %d got %d events, want 2", i, len(events))
		}
		if events[0].Type != changebus.TypeConfigChanged || events[1].Type != "strike" {
			t.Fatalf("subscriber %d order = %s, %s", i, events[0].Type, events[1].Type)
		}
		payload, ok := events[0].Data.(changebus.ConfigChanged)
		if !ok {
			t.Fatalf("payload type %T", events[0].Data)
		}
		if payload.Checksum != "abc" || len(payload.ChangedGroups) != 1 || payload.ChangedGroups[0] != "layers" {
			t.Fatalf("unexpected payload %+v", payload)
		}
		if events[0].TS != 1700000000 {
			t.Fatalf("ts = %d", events[0].TS)
		}
	}
	if events := drain(gone); len(events) != 0 {
		t.Fatalf("unsubscribed reader received %d events", len(events))
	}
	select {
	case <-gone.Done():
	default:
		t.Fatal("Done should be closed after unsubscribe")
	}
}

func TestPublishConfigChangedDefaultsToAll(t *testing.T) {
	bus := changebus.New()
	sub := bus.Subscribe()
	bus.PublishConfigChanged("sum", nil)
	evt := <-sub.Events()
	payload := evt.Data.(changebus.ConfigChanged)
	if len(payload.ChangedGroups) != 1 || payload.ChangedGroups[0] != changebus.AllGroups {
		t.Fatalf("changed_groups = %v, want [all]", payload.ChangedGroups)
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	metrics := newCountingMetrics()
	bus := changebus.New(changebus.WithMetrics(metrics))
	if got := bus.Publish("anything", nil); got != 0 {
		t.Fatalf("delivered = %d", got)
	}
	if metrics.published["anything"] != 0 {
		t.Fatal("empty publish should not count")
	}
}

func TestFullQueueDropsOnlyThatEvent(t *testing.T) {
	metrics := newCountingMetrics()
	bus := changebus.New(changebus.WithQueueSize(1), changebus.WithMetrics(metrics))
	slow := bus.Subscribe()
	fast := bus.Subscribe()

	bus.Publish("one", nil)
	<-fast.Events()
	bus.Publish("two", nil)
	<-fast.Events()

	if got := drain(slow); len(got) != 1 || got[0].Type != "one" {
		t.Fatalf("slow subscriber events = %+v", got)
	}
	if metrics.dropped["two"] != 1 {
		t.Fatalf("dropped = %v", metrics.dropped)
	}

	bus.Publish("three", nil)
	if got := drain(slow); len(got) != 1 || got[0].Type != "three" {
		t.Fatalf("slow subscriber should keep receiving, got %+v", got)
	}
}

func TestUnsubscribeTwiceIsNoop(t *testing.T) {
	metrics := newCountingMetrics()
	bus := changebus.New(changebus.WithMetrics(metrics))
	sub := bus.Subscribe()
	if metrics.subscribers != 1 {
		t.Fatalf("subscribers gauge = %d", metrics.subscribers)
	}
	bus.Unsubscribe(sub)
	bus.Unsubscribe(sub)
	bus.Unsubscribe(nil)
	if bus.Len() != 0 || metrics.subscribers != 0 {
		t.Fatalf("len = %d gauge = %d", bus.Len(), metrics.subscribers)
	}
}

func TestHeartbeatReportsQueueSpace(t *testing.T) {
	bus := changebus.New(changebus.WithQueueSize(1))
	sub := bus.Subscribe()
	if !bus.Heartbeat(sub) {
		t.Fatal("first heartbeat should fit")
	}
	if bus.Heartbeat(sub) {
		t.Fatal("second heartbeat should not fit")
	}
	evt := <-sub.Events()
	if evt.Type != changebus.TypeHeartbeat {
		t.Fatalf("type = %s", evt.Type)
	}
}

func TestConcurrentPublishersAndSubscribers(t *testing.T) {
	bus := changebus.New(changebus.WithQueueSize(1024))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := bus.Subscribe()
			for j := 0; j < 50; j++ {
				bus.Publish("tick", nil)
			}
			bus.Unsubscribe(sub)
		}()
	}
	wg.Wait()
	if bus.Len() != 0 {
		t.Fatalf("len = %d, want 0", bus.Len())
	}
}

func TestRelayRepublishesThroughBus(t *testing.T) {
	bus := changebus.New()
	sub := bus.Subscribe()
	relay := changebus.NewRelay(bus, 4, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	if !relay.Enqueue("lightning_strike", map[string]any{"lat": 40.0}) {
		t.Fatal("Enqueue rejected event")
	}
	select {
	case evt := <-sub.Events():
		if evt.Type != "lightning_strike" {
			t.Fatalf("type = %s", evt.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for relayed event")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func TestRelayEnqueueNeverBlocks(t *testing.T) {
	relay := changebus.NewRelay(changebus.New(), 1, nil)
	if !relay.Enqueue("a", nil) {
		t.Fatal("first enqueue should fit")
	}
	if relay.Enqueue("b", nil) {
		t.Fatal("second enqueue should be dropped")
	}
}

func TestFanOutProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		queueSize := rapid.IntRange(1, 8).Draw(t, "queue")
		readers := rapid.IntRange(1, 5).Draw(t, "readers")
		events := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,6}`), 0, 12).Draw(t, "events")

		bus := changebus.New(changebus.WithQueueSize(queueSize))
		subs := make([]*changebus.Subscriber, readers)
		for i := range subs {
			subs[i] = bus.Subscribe()
		}
		for _, typ := range events {
			bus.Publish(typ, nil)
		}

		want := events
		if len(want) > queueSize {
			want = want[:queueSize]
		}
		for i, sub := range subs {
			got := drain(sub)
			if len(got) != len(want) {
				t.Fatalf("reader %d got %d events, want %d", i, len(got), len(want))
			}
			for j := range want {
				if got[j].Type != want[j] {
					t.Fatalf("reader %d event %d = %s, want %s", i, j, got[j].Type, want[j])
				}
			}
		}
	})
}
