package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/etag"

	"github.com/agenttrace/traceview/docs"
)

const mimeYAML = "application/x-yaml"

// DocsHandler serves the embedded API description
type DocsHandler struct {
	openAPI []byte
	ui      []byte
}

// NewDocsHandler creates a new docs handler
func NewDocsHandler() *DocsHandler {
	return &DocsHandler{
		openAPI: docs.OpenAPI,
		ui:      docs.SwaggerUI,
	}
}

// RegisterRoutes registers documentation routes. Responses carry a strong
// ETag so browsers revalidate instead of refetching.
func (h *DocsHandler) RegisterRoutes(app *fiber.App) {
	tag := etag.New()
	app.Get("/openapi.yaml", tag, h.serve(mimeYAML, h.openAPI))
	app.Get("/docs/openapi.yaml", tag, h.serve(mimeYAML, h.openAPI))
	app.Get("/docs", tag, h.serve(fiber.MIMETextHTMLCharsetUTF8, h.ui))
}

func (h *DocsHandler) serve(contentType string, body []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, contentType)
		c.Set(fiber.HeaderCacheControl, "no-cache")
		return c.Send(body)
	}
}
