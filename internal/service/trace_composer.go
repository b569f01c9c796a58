package service

import (
	"errors"
	"fmt"
	"io"

	"github.com/agenttrace/traceview/internal/domain"
	apperrors "github.com/agenttrace/traceview/internal/pkg/errors"
	"github.com/agenttrace/traceview/internal/pkg/jsonstream"
)

// DefaultFlushThreshold is the buffered size at which the composer flushes between traces
const DefaultFlushThreshold = 32 * 1024

// ComposerConfig configures the trace composer
type ComposerConfig struct {
	// StrictFragments validates stored JSON fragments before any output is written
	StrictFragments bool
	// FlushThresholdBytes bounds how much output is buffered between traces
	FlushThresholdBytes int
}

// TraceComposer writes a trace window as a single JSON document.
//
// Most fields go through the structured writer. ThreadNames and Spans are
// stored pre-serialized and are spliced into the same stream unchanged; in the
// default mode they are trusted as-is and a malformed fragment yields a
// malformed document. Re-parsing them would cost more than the whole write.
type TraceComposer struct {
	config ComposerConfig
}

// NewTraceComposer creates a new trace composer
func NewTraceComposer(config ComposerConfig) *TraceComposer {
	if config.FlushThresholdBytes <= 0 {
		config.FlushThresholdBytes = DefaultFlushThreshold
	}
	return &TraceComposer{config: config}
}

// Compose writes {"start":..,["end":..,]"traces":[..]} to w.
//
// "end" is present only when the range has an explicit upper bound. Traces
// appear in the order given. A sink failure aborts with a WriteFailure error;
// output flushed before that point stays written.
func (c *TraceComposer) Compose(w io.Writer, rng domain.ResolvedRange, traces []domain.StoredTrace) error {
	if err := c.Check(traces); err != nil {
		return err
	}
	return c.compose(w, rng, traces)
}

// Check validates stored fragments when strict mode is on, and is a no-op otherwise
func (c *TraceComposer) Check(traces []domain.StoredTrace) error {
	if !c.config.StrictFragments {
		return nil
	}
	return ValidateFragments(traces)
}

// compose writes the document without the strict check
func (c *TraceComposer) compose(w io.Writer, rng domain.ResolvedRange, traces []domain.StoredTrace) error {
	jw := jsonstream.NewWriter(w, c.config.FlushThresholdBytes+jsonstream.DefaultBufferSize)
	jw.BeginObject()
	jw.Name("start").Int64(rng.From)
	if !rng.ToWasDefaulted {
		jw.Name("end").Int64(rng.To)
	}
	jw.Name("traces").BeginArray()

	for i := range traces {
		writeTrace(jw, &traces[i])
		if jw.Buffered() >= c.config.FlushThresholdBytes {
			if err := jw.Flush(); err != nil {
				return composeError(err, traces[i].ID)
			}
		}
	}

	jw.EndArray()
	jw.EndObject()
	if err := jw.Close(); err != nil {
		return composeError(err, "")
	}
	return nil
}

func writeTrace(jw *jsonstream.Writer, t *domain.StoredTrace) {
	jw.BeginObject()
	jw.Name("id").String(t.ID)
	jw.Name("start").Int64(t.StartAt)
	jw.Name("stuck").Bool(t.Stuck)
	// uniqueId duplicates id for older clients
	jw.Name("uniqueId").String(t.ID)
	jw.Name("duration").Float64(t.Duration)
	jw.Name("completed").Bool(t.Completed)
	jw.RawField("threadNames", t.ThreadNames)
	jw.Name("username").NullableString(t.Username)
	jw.RawField("spans", t.Spans)
	jw.EndObject()
}

func composeError(err error, traceID string) error {
	var sinkErr *jsonstream.SinkError
	if errors.As(err, &sinkErr) {
		return apperrors.WriteFailure(sinkErr.Err)
	}
	if traceID != "" {
		return apperrors.Internal(fmt.Sprintf("failed to encode trace %s", traceID)).WithError(err)
	}
	return apperrors.Internal("failed to encode trace window").WithError(err)
}

// ValidateFragments checks that every stored fragment is well-formed JSON
func ValidateFragments(traces []domain.StoredTrace) error {
	for i := range traces {
		if !jsonstream.Valid(traces[i].ThreadNames) {
			return apperrors.MalformedFragment(traces[i].ID, "threadNames")
		}
		if !jsonstream.Valid(traces[i].Spans) {
			return apperrors.MalformedFragment(traces[i].ID, "spans")
		}
	}
	return nil
}
