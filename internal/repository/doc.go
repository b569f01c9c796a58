// Package repository contains the trace store backends and the guard that
// sits in front of them.
//
// # Backends
//
//   - clickhouse: the primary store, a MergeTree table ordered by capture time
//   - postgres: the same table on PostgreSQL, read through pgx
//   - sqlite: an embedded store for local use and end-to-end tests, with
//     migrations and an insert path for seeding
//
// Every backend returns rows with captured_at in [from, to], ordered by
// captured_at then id, and passes the stored JSON fragments through untouched.
//
// # Guarding
//
// Open selects the backend named by the configuration and wraps it in a
// GuardedStore, which bounds each lookup with a timeout and opens a circuit
// breaker after repeated failures. Lookups rejected by the guard surface as
// StoreUnavailable errors.
package repository
