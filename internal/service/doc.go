// Package service answers trace window queries.
//
// RangeResolver turns a raw (from, to) query into absolute bounds.
// TraceComposer writes the stored traces of a window as a single JSON
// document, splicing the pre-serialized fragments without re-encoding.
// WindowService ties the two to a StoredTraceStore and an optional render
// cache, and SummaryService reports per-trace durations for the same windows.
//
// Services depend on the store and cache interfaces declared in store.go.
// All services are safe for concurrent use.
package service
