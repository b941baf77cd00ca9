// Package database implements the catalogue cache: an indexed SQLite store of
// catalogue items with TTL-aware eviction, a query engine that only consumes
// sanitizer-approved fragments, a versioned migration manager, and offline
// media bookkeeping for the streaming layer.
//
// Opening a store creates the base schema and the migration ledger only;
// migrations are applied explicitly via RunMigrations and never as a side
// effect of New. Callers must not issue content operations concurrently with
// RunMigrations — that contract is documented here, not enforced by a lock.
package database
