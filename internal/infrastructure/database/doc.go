// Package database manages the hub's embedded SQLite database.
//
// Registries persist to the JSON document tree (see the storage
// package); SQLite holds the relational leftovers — currently the
// notification store. The schema is applied idempotently on every
// startup, so a fresh data directory boots without a separate migration
// step.
package database
