package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agenttrace/traceview/internal/domain"
	"github.com/agenttrace/traceview/internal/pkg/clock"
)

const fixedNow = int64(1_700_000_000_000)

func TestRangeResolver_Resolve(t *testing.T) {
	resolver := NewRangeResolver(clock.Fixed(fixedNow))

	tests := []struct {
		name  string
		query domain.TimeRangeQuery
		want  domain.ResolvedRange
	}{
		{
			name:  "absolute bounds pass through",
			query: domain.TimeRangeQuery{From: 100, To: 200},
			want:  domain.ResolvedRange{From: 100, To: 200},
		},
		{
			name:  "zero from stays zero",
			query: domain.TimeRangeQuery{From: 0, To: 200},
			want:  domain.ResolvedRange{From: 0, To: 200},
		},
		{
			name:  "negative from is relative to now",
			query: domain.TimeRangeQuery{From: -60_000, To: 200},
			want:  domain.ResolvedRange{From: fixedNow - 60_000, To: 200},
		},
		{
			name:  "zero to defaults to now",
			query: domain.TimeRangeQuery{From: 100, To: 0},
			want:  domain.ResolvedRange{From: 100, To: fixedNow, ToWasDefaulted: true},
		},
		{
			name:  "relative from with open end",
			query: domain.TimeRangeQuery{From: -1000, To: 0},
			want:  domain.ResolvedRange{From: fixedNow - 1000, To: fixedNow, ToWasDefaulted: true},
		},
		{
			name:  "out of order range is not corrected",
			query: domain.TimeRangeQuery{From: 500, To: 100},
			want:  domain.ResolvedRange{From: 500, To: 100},
		},
		{
			name:  "negative to is explicit",
			query: domain.TimeRangeQuery{From: 0, To: -5},
			want:  domain.ResolvedRange{From: 0, To: -5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolver.Resolve(tt.query)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRangeResolver_NonNegativeFromUnchanged(t *testing.T) {
	resolver := NewRangeResolver(clock.Fixed(fixedNow))

	for _, from := range []int64{0, 1, 42, fixedNow, fixedNow * 2} {
		got := resolver.Resolve(domain.TimeRangeQuery{From: from, To: 1})
		assert.Equal(t, from, got.From)
	}
}

func TestRangeResolver_ReadsClockOnce(t *testing.T) {
	calls := 0
	ticking := clock.Func(func() int64 {
		calls++
		return fixedNow + int64(calls)
	})
	resolver := NewRangeResolver(ticking)

	got := resolver.Resolve(domain.TimeRangeQuery{From: -10, To: 0})

	assert.Equal(t, 1, calls)
	assert.Equal(t, fixedNow+1-10, got.From)
	assert.Equal(t, fixedNow+1, got.To)
}

func TestRangeResolver_SkipsClockForAbsoluteRange(t *testing.T) {
	resolver := NewRangeResolver(clock.Func(func() int64 {
		t.Fatal("clock should not be read")
		return 0
	}))

	got := resolver.Resolve(domain.TimeRangeQuery{From: 1, To: 2})
	assert.True(t, got.Closed())
}
