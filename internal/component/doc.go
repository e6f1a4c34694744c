// Package component implements the component registry: the authoritative
// in-memory table of devices and logical units.
//
// Every committed mutation produces exactly one bus event, published
// after the in-memory state has changed and after successful
// persistence. The registry lock is deliberately held across the local
// filesystem write and the publish so an observer can never see a
// setting_changed event for state that was not persisted, or events out
// of order with one another.
//
// Settings persist to Components/<uid>/settings.json; configuration to
// Components/<uid>/configuration.json; status is RAM-only and rebuilt by
// adapters after a restart.
package component
