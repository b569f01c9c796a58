// Package handler contains the HTTP handlers of the trace query service.
//
// # Route Organization
//
//   - /v1/traces/window - trace window document, GET with query parameters or POST with a JSON body
//   - /v1/traces/summaries - per-trace durations and percentiles
//   - /v1/traces/window/export - asynchronous export to object storage
//   - /health, /livez, /readyz, /version - probes
//   - /openapi.yaml, /docs - API documentation
//
// # Error Handling
//
// Failures known before the first byte is written are mapped to a JSON error
// through the apperrors package. Once a window is streaming the status is
// already committed, so a write failure only ends the body early and is logged.
//
// # Thread Safety
//
// All handlers are safe for concurrent use.
package handler
