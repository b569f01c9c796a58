package dto

import "github.com/agenttrace/traceview/internal/domain"

// ExportWindowRequest requests an asynchronous export of a trace window.
// From and To follow the same relative rules as window queries.
type ExportWindowRequest struct {
	From        int64                    `json:"from"`
	To          int64                    `json:"to"`
	Compression domain.ExportCompression `json:"compression,omitempty" validate:"omitempty,compression"`
}

// Query returns the window part of the request
func (r ExportWindowRequest) Query() domain.TimeRangeQuery {
	return domain.TimeRangeQuery{From: r.From, To: r.To}
}
