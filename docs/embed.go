// Package docs embeds the traceview API description and its browser view.
package docs

import _ "embed"

// OpenAPI is the API description served at /openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPI []byte

// SwaggerUI is the page served at /docs. It loads the description from
// /openapi.yaml.
//
//go:embed index.html
var SwaggerUI []byte
