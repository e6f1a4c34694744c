package diagnostics

import "sync/atomic"

// OperationsPerSecondCounter tracks how often an operation happens per
// second. Increment is lock-free; once a second the diagnostics service
// snapshots the current count into the published rate and resets it.
type OperationsPerSecondCounter struct {
	uid     string
	current atomic.Int64
	rate    atomic.Int64
}

// UID returns the counter's identifier.
func (c *OperationsPerSecondCounter) UID() string {
	return c.uid
}

// Increment records one operation.
func (c *OperationsPerSecondCounter) Increment() {
	c.current.Add(1)
}

// Rate returns the last observed operations-per-second value.
func (c *OperationsPerSecondCounter) Rate() int64 {
	return c.rate.Load()
}

// Reset zeroes both the in-flight count and the published rate.
func (c *OperationsPerSecondCounter) Reset() {
	c.current.Store(0)
	c.rate.Store(0)
}

// tick snapshots the in-flight count into the published rate and starts
// a fresh second.
func (c *OperationsPerSecondCounter) tick() {
	c.rate.Store(c.current.Swap(0))
}
