package domain

import "fmt"

// TimeRangeQuery is the raw window query as sent by clients.
//
// A negative From is an offset in milliseconds before the current time.
// A To of zero means "now".
type TimeRangeQuery struct {
	From int64 `json:"from" query:"from"`
	To   int64 `json:"to" query:"to"`
}

// ResolvedRange holds absolute epoch-millisecond bounds.
//
// ToWasDefaulted is true when the query left To open and it was filled in
// with the current time. Such windows are still growing, so responses do not
// echo an end bound and are never cached.
type ResolvedRange struct {
	From           int64 `json:"from"`
	To             int64 `json:"to"`
	ToWasDefaulted bool  `json:"toWasDefaulted"`
}

// Closed reports whether the caller supplied an explicit upper bound.
func (r ResolvedRange) Closed() bool {
	return !r.ToWasDefaulted
}

// String renders the range for logs and cache keys.
func (r ResolvedRange) String() string {
	if r.ToWasDefaulted {
		return fmt.Sprintf("[%d,now=%d]", r.From, r.To)
	}
	return fmt.Sprintf("[%d,%d]", r.From, r.To)
}
