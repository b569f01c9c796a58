// Package errors provides application error types for traceview.
//
// # Error Types
//
//   - Validation / BadRequest: the request could not be decoded (400)
//   - RateLimited: the client exceeded its request budget (429)
//   - MalformedFragment: strict mode rejected a stored JSON fragment (502)
//   - StoreUnavailable: the trace store circuit is open (503)
//   - QueueUnavailable: exports are not configured or the queue failed (503)
//   - WriteFailure: the response sink rejected a write (500)
//   - Internal: unexpected server error (500)
//
// # Usage
//
//	return apperrors.WriteFailure(err)
//
//	if apperrors.IsWriteFailure(err) {
//	    // the client went away mid-stream
//	}
//
// Errors support wrapping with fmt.Errorf:
//
//	return fmt.Errorf("compose window: %w", apperrors.WriteFailure(err))
package errors
