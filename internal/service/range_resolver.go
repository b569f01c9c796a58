package service

import (
	"github.com/agenttrace/traceview/internal/domain"
	"github.com/agenttrace/traceview/internal/pkg/clock"
)

// RangeResolver turns relative window queries into absolute bounds
type RangeResolver struct {
	clock clock.Clock
}

// NewRangeResolver creates a resolver reading time from c
func NewRangeResolver(c clock.Clock) *RangeResolver {
	if c == nil {
		c = clock.System{}
	}
	return &RangeResolver{clock: c}
}

// Resolve converts a query into absolute epoch-millisecond bounds.
//
// A negative From is taken relative to now. A zero To becomes now and marks
// the range as open-ended. Any other value passes through unchanged, including
// ranges where From > To. The clock is read at most once.
func (r *RangeResolver) Resolve(q domain.TimeRangeQuery) domain.ResolvedRange {
	var now int64
	haveNow := false
	nowMillis := func() int64 {
		if !haveNow {
			now = r.clock.NowMillis()
			haveNow = true
		}
		return now
	}

	rng := domain.ResolvedRange{From: q.From, To: q.To}
	if q.From < 0 {
		rng.From = nowMillis() + q.From
	}
	if q.To == 0 {
		rng.To = nowMillis()
		rng.ToWasDefaulted = true
	}
	return rng
}
