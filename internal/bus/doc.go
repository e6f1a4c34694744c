// Package bus implements the in-process message bus of Wirehome Core.
//
// The bus routes JSON-shaped messages from publishers (registries, the
// MQTT ingress, scripts) to filter-based subscriptions. Two delivery
// modes exist:
//
//   - Push: a callback invoked synchronously on the publisher's
//     goroutine. Panics are caught and logged; they never disturb other
//     subscribers.
//   - Long-poll: matching messages accumulate in a bounded FIFO queue
//     until a waiter drains them. On overflow the oldest message is
//     dropped and a counter incremented — publishers never block.
//
// A bounded history ring of recent messages supports "fetch events since
// timestamp T" for clients that briefly disconnect. The ring is RAM-only
// and best-effort; there is no durable event log.
//
// # Ordering
//
// Timestamps are assigned under the bus lock and are strictly
// non-decreasing. Long-poll queues are filled under the lock, so they
// hold messages in timestamp order. Push callbacks run after the lock is
// released: a single publisher's messages arrive in publish order, while
// callbacks for messages from concurrent publishers may interleave.
// Within a subscriber, FIFO is strict.
package bus
