// Package domain contains the entities shared by the traceview layers.
//
// # Key Types
//
//   - TimeRangeQuery: the raw (from, to) window query, relative or absolute
//   - ResolvedRange: absolute bounds plus whether "to" was defaulted to now
//   - StoredTrace: a persisted trace, including two pre-serialized JSON fragments
//   - TraceSummary: capture time and duration, one point per trace
//   - WindowExport: a composed window scheduled for object storage
//
// Domain types are persistence-agnostic. The struct tags cover the three
// stores (ClickHouse "ch", sqlx "db") and the JSON views that are not
// produced by the streaming composer.
package domain
