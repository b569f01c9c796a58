package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// WindowExport describes a composed window written to object storage.
//
// The range is resolved when the export is requested, so a later run of the
// job produces the same document the caller would have seen at that moment.
type WindowExport struct {
	JobID       uuid.UUID         `json:"jobId"`
	Range       ResolvedRange     `json:"range"`
	Bucket      string            `json:"bucket"`
	Object      string            `json:"object"`
	Compression ExportCompression `json:"compression"`
	Status      JobStatus         `json:"status"`
}

// WindowExportObject builds the object name for an exported window
func WindowExportObject(jobID uuid.UUID, rng ResolvedRange, compression ExportCompression) string {
	return fmt.Sprintf("exports/windows/%d-%d-%s%s", rng.From, rng.To, jobID.String(), compression.Extension())
}
