package handler

import (
	"bufio"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/agenttrace/traceview/internal/domain"
	apperrors "github.com/agenttrace/traceview/internal/pkg/errors"
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// newErrorResponse renders err the way every endpoint reports failures.
// Errors without an AppError in their chain become an opaque 500.
func newErrorResponse(err error) (int, ErrorResponse) {
	appErr := apperrors.GetAppError(err)
	if appErr == nil {
		return fiber.StatusInternalServerError, ErrorResponse{
			Error:   utils.StatusMessage(fiber.StatusInternalServerError),
			Message: "internal error",
		}
	}
	return appErr.StatusCode, ErrorResponse{
		Error:   utils.StatusMessage(appErr.StatusCode),
		Message: appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	}
}

// appErrorResponse writes err as a JSON error
func appErrorResponse(c *fiber.Ctx, err error) error {
	status, body := newErrorResponse(err)
	return c.Status(status).JSON(body)
}

// parseRangeQuery reads from/to query parameters. Missing values are zero,
// anything that is not an integer is rejected.
func parseRangeQuery(c *fiber.Ctx) (domain.TimeRangeQuery, error) {
	var q domain.TimeRangeQuery
	var err error
	if q.From, err = parseQueryInt64(c, "from"); err != nil {
		return q, err
	}
	if q.To, err = parseQueryInt64(c, "to"); err != nil {
		return q, err
	}
	return q, nil
}

func parseQueryInt64(c *fiber.Ctx, key string) (int64, error) {
	val := c.Query(key)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, apperrors.BadRequest("query parameter " + key + " must be an integer")
	}
	return n, nil
}

// flushWriter pushes every write through to the connection so that sink
// errors are seen by the writer that produced the bytes.
type flushWriter struct {
	w *bufio.Writer
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}
	return n, f.w.Flush()
}
