package domain

// StoredTrace is a captured trace as persisted by the trace store.
//
// ThreadNames and Spans hold JSON text that was serialized when the trace was
// captured. They are owned by the store and are forwarded verbatim into query
// responses; nothing in this service parses or re-encodes them.
type StoredTrace struct {
	ID          string  `json:"id" ch:"id" db:"id"`
	CapturedAt  int64   `json:"capturedAt" ch:"captured_at" db:"captured_at"`
	StartAt     int64   `json:"start" ch:"start_at" db:"start_at"`
	Duration    float64 `json:"duration" ch:"duration" db:"duration"`
	Stuck       bool    `json:"stuck" ch:"stuck" db:"stuck"`
	Completed   bool    `json:"completed" ch:"completed" db:"completed"`
	Username    *string `json:"username" ch:"username" db:"username"`
	ThreadNames string  `json:"-" ch:"thread_names" db:"thread_names"`
	Spans       string  `json:"-" ch:"spans" db:"spans"`
}

// TraceSummary is the point-per-trace view used by the summaries endpoint.
type TraceSummary struct {
	CapturedAt int64   `json:"capturedAt" ch:"captured_at" db:"captured_at"`
	Duration   float64 `json:"duration" ch:"duration" db:"duration"`
}

// TraceWindow pairs a resolved range with the traces found inside it.
type TraceWindow struct {
	Range  ResolvedRange
	Traces []StoredTrace
}

// SummaryReport is the response of a summaries query.
//
// End is omitted when the window was left open, following the same rule as
// the trace window document.
type SummaryReport struct {
	Start       int64              `json:"start"`
	End         *int64             `json:"end,omitempty"`
	Summaries   []TraceSummary     `json:"summaries"`
	Percentiles map[string]float64 `json:"percentiles"`
	SlowCount   int                `json:"slowCount"`
}
