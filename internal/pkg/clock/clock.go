// Package clock provides the time source used to resolve relative windows.
package clock

import "time"

// Clock reports the current time in epoch milliseconds.
// Implementations must be safe for concurrent use.
type Clock interface {
	NowMillis() int64
}

// Func adapts a function to a Clock
type Func func() int64

// NowMillis calls f
func (f Func) NowMillis() int64 {
	return f()
}

// System is the wall clock
type System struct{}

// NowMillis returns the wall clock time in epoch milliseconds
func (System) NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Fixed always returns the same instant
type Fixed int64

// NowMillis returns the fixed instant
func (f Fixed) NowMillis() int64 {
	return int64(f)
}
