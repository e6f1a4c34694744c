package bus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the bus.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Counter is the increment-only face of a diagnostics counter.
type Counter interface {
	Increment()
}

// noopCounter is a counter that does nothing.
type noopCounter struct{}

func (noopCounter) Increment() {}

// PushCallback is invoked synchronously on the publisher's goroutine for
// every matching message. Panics are recovered and logged; they never
// prevent dispatch to other subscribers.
type PushCallback func(Message)

// Options configures a MessageBus.
type Options struct {
	// HistorySize is the capacity of the RAM-only history ring.
	HistorySize int

	// QueueCapacity bounds each long-poll subscription queue. On overflow
	// the oldest message is dropped and the overflow counter incremented.
	QueueCapacity int

	// IdleTTL is how long a named long-poll subscription may go without
	// being polled before the expiry sweep removes it. Ephemeral Wait
	// subscriptions are removed on return and are not subject to expiry.
	IdleTTL time.Duration
}

// Default bus sizing.
const (
	DefaultHistorySize   = 2048
	DefaultQueueCapacity = 1024
	defaultIdleTTL       = 5 * time.Minute
	expirySweepInterval  = time.Minute
)

// MessageBus is the in-process event router of the hub.
//
// Subscribers register a filter and receive matching messages either via a
// synchronous push callback or a bounded long-poll queue. A bounded history
// ring supports "fetch missed events since timestamp T" for clients that
// briefly disconnect; it is best-effort and RAM-only.
//
// Thread Safety: all methods are safe for concurrent use.
type MessageBus struct {
	mu            sync.Mutex
	subscriptions map[string]*subscription
	history       []Message
	historyNext   int
	historyCount  int
	lastTimestamp int64

	queueCapacity int
	idleTTL       time.Duration

	logger    Logger
	published Counter
	dropped   Counter
}

// New creates a message bus with the given options. Zero option fields
// fall back to the package defaults.
func New(opts Options) *MessageBus {
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = DefaultQueueCapacity
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = defaultIdleTTL
	}

	return &MessageBus{
		subscriptions: make(map[string]*subscription),
		history:       make([]Message, opts.HistorySize),
		queueCapacity: opts.QueueCapacity,
		idleTTL:       opts.IdleTTL,
		logger:        noopLogger{},
		published:     noopCounter{},
		dropped:       noopCounter{},
	}
}

// SetLogger sets the logger for the bus.
func (b *MessageBus) SetLogger(logger Logger) {
	b.logger = logger
}

// SetCounters wires the diagnostics counters incremented on publish and on
// long-poll queue overflow.
func (b *MessageBus) SetCounters(published, dropped Counter) {
	if published != nil {
		b.published = published
	}
	if dropped != nil {
		b.dropped = dropped
	}
}

// Publish routes a message to every matching subscription.
//
// The bus assigns the timestamp (when absent) and appends the message to
// the history ring under its lock; long-poll queues are filled under the
// lock too, so every subscriber observes messages in the same order. Push
// callbacks run on the publisher's goroutine after the table lock is
// released, in the order recorded while locked.
func (b *MessageBus) Publish(msg Message) {
	if msg == nil {
		return
	}

	b.mu.Lock()

	if msg.Timestamp() == 0 {
		ts := time.Now().UnixMilli()
		if ts <= b.lastTimestamp {
			ts = b.lastTimestamp + 1
		}
		b.lastTimestamp = ts
		msg[KeyTimestamp] = ts
	} else if msg.Timestamp() > b.lastTimestamp {
		b.lastTimestamp = msg.Timestamp()
	}

	b.history[b.historyNext] = msg
	b.historyNext = (b.historyNext + 1) % len(b.history)
	if b.historyCount < len(b.history) {
		b.historyCount++
	}

	var callbacks []PushCallback
	for _, sub := range b.subscriptions {
		if !matchesAny(sub.filters, msg) {
			continue
		}
		if sub.callback != nil {
			callbacks = append(callbacks, sub.callback)
			continue
		}
		if dropped := sub.enqueue(msg); dropped > 0 {
			b.dropped.Increment()
		}
	}

	b.mu.Unlock()

	// Callbacks run after the table lock is released so a subscriber may
	// publish follow-up messages without deadlocking. A single publisher
	// still delivers in publish order; queues were filled under the lock.
	for _, cb := range callbacks {
		b.invoke(cb, msg)
	}

	b.published.Increment()
}

// invoke runs a push callback, recovering and logging panics so one
// failing subscriber cannot disturb the rest of the dispatch.
func (b *MessageBus) invoke(cb PushCallback, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("push subscriber panicked", "error", r, "message_type", msg.Type())
		}
	}()
	cb(msg)
}

// SubscribePush registers a push subscription. The callback is invoked
// synchronously on the publisher's goroutine for every matching message.
//
// Returns the subscription uid for Unsubscribe.
func (b *MessageBus) SubscribePush(filters []Filter, callback PushCallback) string {
	sub := &subscription{
		uid:      uuid.NewString(),
		filters:  normalizeFilters(filters),
		callback: callback,
	}

	b.mu.Lock()
	b.subscriptions[sub.uid] = sub
	b.mu.Unlock()

	b.logger.Debug("push subscription created", "uid", sub.uid)
	return sub.uid
}

// SubscribeLongPoll registers a named long-poll subscription with a fresh
// bounded queue. Matching messages accumulate until Poll drains them; a
// subscription not polled within the idle TTL is removed by the expiry
// sweep in Run.
func (b *MessageBus) SubscribeLongPoll(filters []Filter) string {
	sub := newQueueSubscription(uuid.NewString(), normalizeFilters(filters), b.queueCapacity)

	b.mu.Lock()
	b.subscriptions[sub.uid] = sub
	b.mu.Unlock()

	b.logger.Debug("long-poll subscription created", "uid", sub.uid)
	return sub.uid
}

// Unsubscribe removes a subscription. Unknown uids are ignored. A waiter
// pending on the subscription is woken and returns its current, possibly
// empty, drain.
func (b *MessageBus) Unsubscribe(uid string) {
	b.mu.Lock()
	sub, ok := b.subscriptions[uid]
	if ok {
		delete(b.subscriptions, uid)
	}
	b.mu.Unlock()

	if ok {
		sub.close()
		b.logger.Debug("subscription removed", "uid", uid)
	}
}

// Poll blocks until the named long-poll subscription has at least one
// queued message, the timeout elapses, or ctx is cancelled; it drains and
// returns whatever is queued (possibly nothing). Unknown uids return
// ErrSubscriptionNotFound.
func (b *MessageBus) Poll(ctx context.Context, uid string, timeout time.Duration) ([]Message, error) {
	b.mu.Lock()
	sub, ok := b.subscriptions[uid]
	b.mu.Unlock()
	if !ok || sub.callback != nil {
		return nil, ErrSubscriptionNotFound
	}
	return sub.await(ctx, timeout), nil
}

// Wait implements the long-poll contract of the HTTP facade.
//
// It creates an ephemeral long-poll subscription over the disjunction of
// filters, seeds it with history messages newer than since (Unix ms, 0 to
// skip seeding), blocks until the queue is non-empty, the timeout elapses,
// or ctx is cancelled, then drains, removes the subscription, and returns.
// Cancellation returns the currently queued messages as a soft signal.
func (b *MessageBus) Wait(ctx context.Context, filters []Filter, since int64, timeout time.Duration) []Message {
	sub := newQueueSubscription(uuid.NewString(), normalizeFilters(filters), b.queueCapacity)

	b.mu.Lock()
	if since > 0 {
		for i := 0; i < b.historyCount; i++ {
			idx := (b.historyNext - b.historyCount + i + len(b.history)) % len(b.history)
			msg := b.history[idx]
			if msg.Timestamp() > since && matchesAny(sub.filters, msg) {
				sub.enqueue(msg)
			}
		}
	}
	b.subscriptions[sub.uid] = sub
	b.mu.Unlock()

	defer b.Unsubscribe(sub.uid)
	return sub.await(ctx, timeout)
}

// Run hosts the idle-expiry sweep for named long-poll subscriptions.
// It blocks until ctx is cancelled.
func (b *MessageBus) Run(ctx context.Context) {
	ticker := time.NewTicker(expirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.expireIdle()
		}
	}
}

// expireIdle removes named long-poll subscriptions that have not been
// polled within the idle TTL.
func (b *MessageBus) expireIdle() {
	deadline := time.Now().Add(-b.idleTTL)

	b.mu.Lock()
	var expired []*subscription
	for uid, sub := range b.subscriptions {
		if sub.callback != nil || sub.ephemeralWaiter() {
			continue
		}
		if sub.lastActivity().Before(deadline) {
			delete(b.subscriptions, uid)
			expired = append(expired, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range expired {
		sub.close()
		b.logger.Info("idle long-poll subscription expired", "uid", sub.uid)
	}
}

// SubscriptionCount returns the number of active subscriptions.
func (b *MessageBus) SubscriptionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscriptions)
}

// History returns a copy of the history ring in publish order, oldest
// first. Intended for diagnostics surfaces.
func (b *MessageBus) History() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	msgs := make([]Message, 0, b.historyCount)
	for i := 0; i < b.historyCount; i++ {
		idx := (b.historyNext - b.historyCount + i + len(b.history)) % len(b.history)
		msgs = append(msgs, b.history[idx])
	}
	return msgs
}

// OverflowCount returns the number of messages dropped from the named
// subscription's queue, or 0 for unknown uids.
func (b *MessageBus) OverflowCount(uid string) int64 {
	b.mu.Lock()
	sub, ok := b.subscriptions[uid]
	b.mu.Unlock()
	if !ok {
		return 0
	}
	return sub.overflowCount()
}

// normalizeFilters ensures a subscription always matches on at least one
// filter map; a nil or empty list becomes the match-everything filter.
func normalizeFilters(filters []Filter) []Filter {
	if len(filters) == 0 {
		return []Filter{{}}
	}
	return filters
}
