// Package diagnostics provides per-metric operations-per-second counters
// for the hub's own instrumentation (bus throughput, registry event
// volume, API request rate).
//
// Counters are incremented with an atomic add on the hot path. A single
// background ticker fires every second, snapshots each counter's
// in-flight count into its published rate, and resets it. Rates feed the
// system status snapshot; they are not a scrape surface.
package diagnostics
