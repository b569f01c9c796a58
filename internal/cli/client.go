package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/agenttrace/traceview/internal/domain"
)

// APIError is a non-2xx response from the query service
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// Client talks to a traceview server
type Client struct {
	resty *resty.Client
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string, timeout time.Duration) *Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("User-Agent", "traceviewctl/"+Version)
	return &Client{resty: r}
}

// Window copies the trace window document for q to out as it arrives
func (c *Client) Window(ctx context.Context, q domain.TimeRangeQuery, post bool, out io.Writer) error {
	req := c.resty.R().SetContext(ctx).SetDoNotParseResponse(true)

	var (
		resp *resty.Response
		err  error
	)
	if post {
		resp, err = req.SetBody(q).Post("/v1/traces/window")
	} else {
		resp, err = req.SetQueryParams(rangeParams(q)).Get("/v1/traces/window")
	}
	if err != nil {
		return fmt.Errorf("window request failed: %w", err)
	}
	return copyBody(resp, out)
}

// Summaries writes the summary report for q to out
func (c *Client) Summaries(ctx context.Context, q domain.TimeRangeQuery, out io.Writer) error {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetQueryParams(rangeParams(q)).
		Get("/v1/traces/summaries")
	if err != nil {
		return fmt.Errorf("summaries request failed: %w", err)
	}
	return copyBody(resp, out)
}

// exportRequest mirrors the export endpoint body
type exportRequest struct {
	From        int64  `json:"from"`
	To          int64  `json:"to"`
	Compression string `json:"compression,omitempty"`
}

// Export submits an export job and writes the accepted job to out
func (c *Client) Export(ctx context.Context, q domain.TimeRangeQuery, compression string, out io.Writer) error {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetBody(exportRequest{From: q.From, To: q.To, Compression: compression}).
		Post("/v1/traces/window/export")
	if err != nil {
		return fmt.Errorf("export request failed: %w", err)
	}
	return copyBody(resp, out)
}

func rangeParams(q domain.TimeRangeQuery) map[string]string {
	params := map[string]string{}
	if q.From != 0 {
		params["from"] = strconv.FormatInt(q.From, 10)
	}
	if q.To != 0 {
		params["to"] = strconv.FormatInt(q.To, 10)
	}
	return params
}

func copyBody(resp *resty.Response, out io.Writer) error {
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return decodeError(resp.StatusCode(), body)
	}
	if _, err := io.Copy(out, body); err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	return nil
}

func decodeError(status int, body io.Reader) error {
	apiErr := &APIError{StatusCode: status}
	var payload struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := jsoniter.NewDecoder(body).Decode(&payload); err == nil {
		apiErr.Message = payload.Message
		apiErr.Code = payload.Code
	}
	if apiErr.Message == "" {
		apiErr.Message = "request failed"
	}
	return apiErr
}
