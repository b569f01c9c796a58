package domain

// StoreDriver selects the backing trace store
type StoreDriver string

const (
	StoreDriverClickHouse StoreDriver = "clickhouse"
	StoreDriverPostgres   StoreDriver = "postgres"
	StoreDriverSQLite     StoreDriver = "sqlite"
)

// IsValid checks if the store driver is valid
func (d StoreDriver) IsValid() bool {
	switch d {
	case StoreDriverClickHouse, StoreDriverPostgres, StoreDriverSQLite:
		return true
	}
	return false
}

// ExportCompression represents the encoding of an exported window object
type ExportCompression string

const (
	ExportCompressionNone ExportCompression = "none"
	ExportCompressionGzip ExportCompression = "gzip"
)

// IsValid checks if the export compression is valid
func (c ExportCompression) IsValid() bool {
	switch c {
	case ExportCompressionNone, ExportCompressionGzip:
		return true
	}
	return false
}

// Extension returns the object name suffix for the compression
func (c ExportCompression) Extension() string {
	if c == ExportCompressionGzip {
		return ".json.gz"
	}
	return ".json"
}

// JobStatus represents the status of a background job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)
