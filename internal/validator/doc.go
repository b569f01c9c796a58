// Package validator provides struct validation for traceview.
//
// It wraps go-playground/validator with a shared instance, readable messages
// and field names taken from json or mapstructure tags. It validates both
// request bodies (through dto.ParseAndValidate) and the loaded configuration.
//
// Custom tags:
//   - compression: an export compression, "gzip" or "none"
//   - store_driver: a trace store driver name
package validator
