package bus

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestBus() *MessageBus {
	return New(Options{HistorySize: 16, QueueCapacity: 4})
}

func TestPublishAssignsMonotonicTimestamps(t *testing.T) {
	b := newTestBus()

	var last int64
	for i := 0; i < 100; i++ {
		msg := Message{KeyType: "test.event"}
		b.Publish(msg)
		ts := msg.Timestamp()
		if ts == 0 {
			t.Fatal("Publish() did not assign a timestamp")
		}
		if ts < last {
			t.Fatalf("timestamp went backwards: %d after %d", ts, last)
		}
		last = ts
	}
}

func TestFilterMatches(t *testing.T) {
	msg := Message{
		KeyType:  "component_registry.event.setting_changed",
		"uid":    "lamp.1",
		"value":  float64(50),
		"nested": map[string]any{"a": float64(1)},
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter matches all", Filter{}, true},
		{"type match", Filter{KeyType: "component_registry.event.setting_changed"}, true},
		{"type mismatch", Filter{KeyType: "other.event"}, false},
		{"two keys match", Filter{KeyType: "component_registry.event.setting_changed", "uid": "lamp.1"}, true},
		{"second key mismatch", Filter{KeyType: "component_registry.event.setting_changed", "uid": "lamp.2"}, false},
		{"missing key", Filter{"absent": true}, false},
		{"number equality across int and float", Filter{"value": 50}, true},
		{"nested value equality", Filter{"nested": map[string]any{"a": 1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(msg); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPushSubscriptionReceivesOnlyMatching(t *testing.T) {
	b := newTestBus()

	var mu sync.Mutex
	var received []string
	b.SubscribePush([]Filter{{KeyType: "wanted.event"}}, func(m Message) {
		mu.Lock()
		received = append(received, m.Type())
		mu.Unlock()
	})

	b.Publish(Message{KeyType: "wanted.event"})
	b.Publish(Message{KeyType: "other.event"})
	b.Publish(Message{KeyType: "wanted.event"})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("received %d messages, want 2", len(received))
	}
}

func TestNoDeliveryBeforeSubscription(t *testing.T) {
	b := newTestBus()

	b.Publish(Message{KeyType: "early.event"})

	var mu sync.Mutex
	count := 0
	b.SubscribePush(nil, func(Message) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	b.Publish(Message{KeyType: "late.event"})

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("received %d messages, want 1 (only the one published after Subscribe)", count)
	}
}

func TestSubscribersObserveSameOrder(t *testing.T) {
	b := newTestBus()

	var mu sync.Mutex
	var first, second []int64
	b.SubscribePush(nil, func(m Message) {
		mu.Lock()
		first = append(first, m.Timestamp())
		mu.Unlock()
	})
	b.SubscribePush(nil, func(m Message) {
		mu.Lock()
		second = append(second, m.Timestamp())
		mu.Unlock()
	})

	for i := 0; i < 50; i++ {
		b.Publish(Message{KeyType: "ordered.event"})
	}

	mu.Lock()
	defer mu.Unlock()
	if len(first) != 50 || len(second) != 50 {
		t.Fatalf("received %d/%d messages, want 50/50", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("order diverged at %d: %d vs %d", i, first[i], second[i])
		}
		if i > 0 && first[i] < first[i-1] {
			t.Fatalf("subscriber saw out-of-order timestamps at %d", i)
		}
	}
}

func TestPushSubscriberPanicDoesNotDisturbOthers(t *testing.T) {
	b := newTestBus()

	b.SubscribePush(nil, func(Message) {
		panic("subscriber failure")
	})

	var mu sync.Mutex
	count := 0
	b.SubscribePush(nil, func(Message) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	b.Publish(Message{KeyType: "test.event"})

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("healthy subscriber received %d messages, want 1", count)
	}
}

func TestLongPollOverflowDropsOldest(t *testing.T) {
	b := newTestBus() // queue capacity 4

	uid := b.SubscribeLongPoll([]Filter{{KeyType: "flood.event"}})

	for i := 0; i < 7; i++ {
		b.Publish(Message{KeyType: "flood.event", "seq": i})
	}

	if got := b.OverflowCount(uid); got != 3 {
		t.Errorf("OverflowCount() = %d, want 3", got)
	}

	msgs, err := b.Poll(context.Background(), uid, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Poll() error: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("Poll() returned %d messages, want 4", len(msgs))
	}
	// Exactly the oldest 3 were dropped: sequences 3..6 remain, in order.
	for i, msg := range msgs {
		if seq, _ := msg["seq"].(int); seq != i+3 {
			t.Errorf("msgs[%d] seq = %v, want %d", i, msg["seq"], i+3)
		}
	}
}

func TestPollUnknownSubscription(t *testing.T) {
	b := newTestBus()
	if _, err := b.Poll(context.Background(), "nope", time.Millisecond); err != ErrSubscriptionNotFound {
		t.Errorf("Poll() error = %v, want ErrSubscriptionNotFound", err)
	}
}

func TestWaitReturnsOnMatch(t *testing.T) {
	b := newTestBus()

	done := make(chan []Message, 1)
	go func() {
		done <- b.Wait(context.Background(), []Filter{{KeyType: "awaited.event"}}, 0, 5*time.Second)
	}()

	// Give the waiter a moment to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	b.Publish(Message{KeyType: "awaited.event", "payload": "hello"})

	select {
	case msgs := <-done:
		if len(msgs) != 1 {
			t.Fatalf("Wait() returned %d messages, want 1", len(msgs))
		}
		if msgs[0]["payload"] != "hello" {
			t.Errorf("payload = %v, want hello", msgs[0]["payload"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return after a matching publish")
	}
}

func TestWaitTimesOutEmpty(t *testing.T) {
	b := newTestBus()

	start := time.Now()
	msgs := b.Wait(context.Background(), []Filter{{KeyType: "nothing.ever"}}, 0, 200*time.Millisecond)
	elapsed := time.Since(start)

	if len(msgs) != 0 {
		t.Errorf("Wait() returned %d messages, want 0", len(msgs))
	}
	if elapsed < 200*time.Millisecond {
		t.Errorf("Wait() returned after %v, want >= 200ms", elapsed)
	}
	if elapsed > time.Second {
		t.Errorf("Wait() returned after %v, want < 1s", elapsed)
	}
}

func TestWaitSeedsFromHistory(t *testing.T) {
	b := newTestBus()

	b.Publish(Message{KeyType: "seed.event", "seq": 0})
	cutoff := b.History()[0].Timestamp()
	b.Publish(Message{KeyType: "seed.event", "seq": 1})
	b.Publish(Message{KeyType: "other.event"})

	msgs := b.Wait(context.Background(), []Filter{{KeyType: "seed.event"}}, cutoff, 100*time.Millisecond)
	if len(msgs) != 1 {
		t.Fatalf("Wait() returned %d messages, want 1 seeded from history", len(msgs))
	}
	if seq, _ := msgs[0]["seq"].(int); seq != 1 {
		t.Errorf("seeded message seq = %v, want 1", msgs[0]["seq"])
	}

	// Subscription was ephemeral.
	if got := b.SubscriptionCount(); got != 0 {
		t.Errorf("SubscriptionCount() = %d after Wait, want 0", got)
	}
}

func TestWaitReturnsOnCancellation(t *testing.T) {
	b := newTestBus()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan []Message, 1)
	go func() {
		done <- b.Wait(ctx, []Filter{{KeyType: "never.event"}}, 0, time.Minute)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case msgs := <-done:
		if len(msgs) != 0 {
			t.Errorf("Wait() returned %d messages on cancel, want 0", len(msgs))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return on cancellation")
	}
}

func TestUnsubscribeWakesWaiter(t *testing.T) {
	b := newTestBus()

	uid := b.SubscribeLongPoll([]Filter{{KeyType: "never.event"}})
	done := make(chan []Message, 1)
	go func() {
		msgs, _ := b.Poll(context.Background(), uid, time.Minute)
		done <- msgs
	}()

	time.Sleep(50 * time.Millisecond)
	b.Unsubscribe(uid)

	select {
	case msgs := <-done:
		if len(msgs) != 0 {
			t.Errorf("Poll() returned %d messages after Unsubscribe, want 0", len(msgs))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Poll() did not return after Unsubscribe")
	}

	// Idempotent.
	b.Unsubscribe(uid)
}

func TestClosedQueueRejectsEnqueues(t *testing.T) {
	b := newTestBus()

	uid := b.SubscribeLongPoll(nil)
	b.mu.Lock()
	sub := b.subscriptions[uid]
	b.mu.Unlock()

	b.Unsubscribe(uid)
	if dropped := sub.enqueue(Message{KeyType: "late.event"}); dropped != 0 {
		t.Errorf("enqueue on closed queue reported %d drops", dropped)
	}
	if msgs := sub.drain(); len(msgs) != 0 {
		t.Errorf("closed queue accepted %d messages", len(msgs))
	}
}

func TestHistoryRingEvictsOldest(t *testing.T) {
	b := New(Options{HistorySize: 4, QueueCapacity: 4})

	for i := 0; i < 6; i++ {
		b.Publish(Message{KeyType: "hist.event", "seq": i})
	}

	history := b.History()
	if len(history) != 4 {
		t.Fatalf("History() has %d entries, want 4", len(history))
	}
	for i, msg := range history {
		if seq, _ := msg["seq"].(int); seq != i+2 {
			t.Errorf("history[%d] seq = %v, want %d", i, msg["seq"], i+2)
		}
	}
}

func TestPublishCountsMessages(t *testing.T) {
	b := newTestBus()

	published := &countingCounter{}
	dropped := &countingCounter{}
	b.SetCounters(published, dropped)

	uid := b.SubscribeLongPoll(nil)
	for i := 0; i < 6; i++ { // queue capacity 4 → 2 drops
		b.Publish(Message{KeyType: "count.event"})
	}

	if published.value() != 6 {
		t.Errorf("published counter = %d, want 6", published.value())
	}
	if dropped.value() != 2 {
		t.Errorf("dropped counter = %d, want 2", dropped.value())
	}
	b.Unsubscribe(uid)
}

type countingCounter struct {
	mu sync.Mutex
	n  int64
}

func (c *countingCounter) Increment() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *countingCounter) value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
