// Package dto contains request bodies for the HTTP API.
//
// Use dto.ParseAndValidate in handlers to parse and validate requests:
//
//	var req dto.ExportWindowRequest
//	if err := dto.ParseAndValidate(c, &req); err != nil {
//	    return appErrorResponse(c, err)
//	}
package dto
