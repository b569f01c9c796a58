package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/klauspost/compress/gzip"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"github.com/agenttrace/traceview/internal/domain"
	apperrors "github.com/agenttrace/traceview/internal/pkg/errors"
	"github.com/agenttrace/traceview/internal/pkg/logger"
	"github.com/agenttrace/traceview/internal/pkg/metrics"
)

const (
	// TypeWindowExport is the task type for trace window export
	TypeWindowExport = "export:window"

	// DefaultExportTimeout bounds a single export attempt
	DefaultExportTimeout = 10 * time.Minute
	// DefaultExportRetries is the retry budget of an export task
	DefaultExportRetries = 3
)

// WindowExportPayload is the payload for window export tasks
type WindowExportPayload struct {
	JobID       uuid.UUID                `json:"job_id"`
	Range       domain.ResolvedRange     `json:"range"`
	Bucket      string                   `json:"bucket"`
	Object      string                   `json:"object"`
	Compression domain.ExportCompression `json:"compression"`
}

// NewWindowExportTask creates a window export task. opts are applied after the defaults.
func NewWindowExportTask(payload *WindowExportPayload, opts ...asynq.Option) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal window export payload: %w", err)
	}
	options := append([]asynq.Option{
		asynq.MaxRetry(DefaultExportRetries),
		asynq.Timeout(DefaultExportTimeout),
		asynq.TaskID(payload.JobID.String()),
	}, opts...)
	return asynq.NewTask(TypeWindowExport, data, options...), nil
}

// WindowSource looks up and composes trace windows
type WindowSource interface {
	Open(ctx context.Context, rng domain.ResolvedRange) (*domain.TraceWindow, error)
	Export(w io.Writer, window *domain.TraceWindow) error
}

// ObjectUploader stores export objects. *minio.Client implements it.
type ObjectUploader interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ExportWorker handles window export tasks
type ExportWorker struct {
	logger   *zap.Logger
	windows  WindowSource
	uploader ObjectUploader
}

// NewExportWorker creates a new export worker
func NewExportWorker(logger *zap.Logger, windows WindowSource, uploader ObjectUploader) *ExportWorker {
	return &ExportWorker{
		logger:   logger,
		windows:  windows,
		uploader: uploader,
	}
}

// ProcessTask processes a window export task.
//
// The range in the payload is already resolved, so retries export the same
// window. The document is composed straight into the upload stream.
func (w *ExportWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	start := time.Now()

	var payload WindowExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		metrics.RecordExportProcessed(string(domain.JobStatusFailed), time.Since(start))
		return fmt.Errorf("failed to unmarshal window export payload: %v: %w", err, asynq.SkipRetry)
	}

	log := w.logger.With(append(logger.WindowFields(payload.Range),
		zap.String("job_id", payload.JobID.String()),
		zap.String("object", payload.Object),
	)...)
	log.Info("processing window export", zap.String("compression", string(payload.Compression)))

	size, err := w.export(ctx, &payload)
	if err != nil {
		metrics.RecordExportProcessed(string(domain.JobStatusFailed), time.Since(start))
		log.Error("window export failed", zap.Error(err))
		if apperrors.IsMalformedFragment(err) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	metrics.RecordExportProcessed(string(domain.JobStatusCompleted), time.Since(start))
	log.Info("window export completed",
		zap.Int64("size", size),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (w *ExportWorker) export(ctx context.Context, payload *WindowExportPayload) (int64, error) {
	window, err := w.windows.Open(ctx, payload.Range)
	if err != nil {
		return 0, err
	}

	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		pw.CloseWithError(w.compose(pw, window, payload.Compression))
	}()

	opts := minio.PutObjectOptions{ContentType: "application/json"}
	if payload.Compression == domain.ExportCompressionGzip {
		opts.ContentEncoding = "gzip"
	}

	info, err := w.uploader.PutObject(ctx, payload.Bucket, payload.Object, pr, -1, opts)
	// unblocks the composer if the upload stopped reading early
	pr.CloseWithError(io.ErrClosedPipe)
	<-done
	if err != nil {
		return 0, fmt.Errorf("failed to upload window export: %w", err)
	}
	return info.Size, nil
}

func (w *ExportWorker) compose(out io.Writer, window *domain.TraceWindow, compression domain.ExportCompression) error {
	if compression != domain.ExportCompressionGzip {
		return w.windows.Export(out, window)
	}
	gz := gzip.NewWriter(out)
	if err := w.windows.Export(gz, window); err != nil {
		_ = gz.Close()
		return err
	}
	return gz.Close()
}
