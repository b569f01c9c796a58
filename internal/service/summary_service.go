package service

import (
	"context"
	"sort"
	"strconv"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/agenttrace/traceview/internal/domain"
	"github.com/agenttrace/traceview/internal/pkg/logger"
)

// DefaultPercentiles are reported when none are configured
var DefaultPercentiles = []float64{50, 95, 99}

// SummaryConfig configures the summary service
type SummaryConfig struct {
	// Percentiles in (0, 100]
	Percentiles []float64
	// SlowThresholdMillis marks traces at or above this duration as slow
	SlowThresholdMillis float64
}

// SummaryService reports per-trace durations for a window along with percentiles
type SummaryService struct {
	logger   *zap.Logger
	resolver *RangeResolver
	store    StoredTraceStore
	config   SummaryConfig
}

// NewSummaryService creates a new summary service
func NewSummaryService(logger *zap.Logger, resolver *RangeResolver, store StoredTraceStore, config SummaryConfig) *SummaryService {
	if len(config.Percentiles) == 0 {
		config.Percentiles = DefaultPercentiles
	}
	return &SummaryService{
		logger:   logger,
		resolver: resolver,
		store:    store,
		config:   config,
	}
}

// Summarize resolves the query and builds the summary report for its window
func (s *SummaryService) Summarize(ctx context.Context, q domain.TimeRangeQuery) (*domain.SummaryReport, error) {
	rng := s.resolver.Resolve(q)

	summaries, err := s.store.ReadSummaries(ctx, rng.From, rng.To)
	if err != nil {
		return nil, lookupError(err)
	}
	if summaries == nil {
		summaries = []domain.TraceSummary{}
	}

	report := &domain.SummaryReport{
		Start:       rng.From,
		Summaries:   summaries,
		Percentiles: s.percentiles(summaries),
		SlowCount:   s.slowCount(summaries),
	}
	if rng.Closed() {
		end := rng.To
		report.End = &end
	}

	s.logger.Debug("trace summaries computed",
		append(logger.WindowFields(rng),
			zap.Int("traces", len(summaries)),
			zap.Int("slow", report.SlowCount),
		)...,
	)
	return report, nil
}

func (s *SummaryService) percentiles(summaries []domain.TraceSummary) map[string]float64 {
	out := make(map[string]float64, len(s.config.Percentiles))
	if len(summaries) == 0 {
		return out
	}

	durations := make([]float64, len(summaries))
	for i, sm := range summaries {
		durations[i] = sm.Duration
	}
	sort.Float64s(durations)

	for _, p := range s.config.Percentiles {
		out[PercentileKey(p)] = stat.Quantile(p/100, stat.Empirical, durations, nil)
	}
	return out
}

func (s *SummaryService) slowCount(summaries []domain.TraceSummary) int {
	n := 0
	for _, sm := range summaries {
		if sm.Duration >= s.config.SlowThresholdMillis {
			n++
		}
	}
	return n
}

// PercentileKey formats a percentile as a report key, e.g. 99.9 -> "99.9"
func PercentileKey(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
