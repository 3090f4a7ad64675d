package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbon-scribe/emissions-forecast/internal/forecast"
	"carbon-scribe/emissions-forecast/internal/ingestion"
	"carbon-scribe/emissions-forecast/internal/metrics"
	"carbon-scribe/emissions-forecast/internal/reports/export"
)

// Executor builds a forecast from a source file and hands the exports to a sink
type Executor struct {
	service *forecast.Service
	sink    ReportSink
	metrics *metrics.PipelineMetrics
	logger  *zap.Logger
	config  ExecutorConfig
}

// ReportSink receives generated report files
type ReportSink interface {
	Deliver(ctx context.Context, report *GeneratedReport) (string, error)
}

// GeneratedReport represents a rendered export
type GeneratedReport struct {
	ExecutionID uuid.UUID `json:"execution_id"`
	RunID       uuid.UUID `json:"run_id"`
	Format      string    `json:"format"`
	Data        []byte    `json:"-"`
	ContentType string    `json:"content_type"`
	FileName    string    `json:"file_name"`
	RecordCount int       `json:"record_count"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ExecutionRequest represents a report execution request
type ExecutionRequest struct {
	ScheduleID *uuid.UUID `json:"schedule_id,omitempty"`
	InputPath  string     `json:"input_path"`
	Formats    []string   `json:"formats"`
	Horizon    int        `json:"horizon,omitempty"`
	Seed       *uint64    `json:"seed,omitempty"`
}

// DeliveredFile is one report handed to the sink
type DeliveredFile struct {
	Format    string `json:"format"`
	FileName  string `json:"file_name"`
	Location  string `json:"location,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
	Error     string `json:"error,omitempty"`
}

// ExecutionResult represents the result of report execution
type ExecutionResult struct {
	ExecutionID uuid.UUID       `json:"execution_id"`
	RunID       uuid.UUID       `json:"run_id"`
	Status      string          `json:"status"`
	RecordCount int             `json:"record_count"`
	Files       []DeliveredFile `json:"files"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
	DurationMs  int64           `json:"duration_ms"`
	Error       string          `json:"error,omitempty"`
}

// Execution statuses
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusPartial    = "partial"
	StatusFailed     = "failed"
)

// ExecutorConfig configuration for the executor
type ExecutorConfig struct {
	Timeout          time.Duration  `json:"timeout"`
	MaxFileSizeBytes int64          `json:"max_file_size_bytes"`
	DefaultFormats   []string       `json:"default_formats"`
	Export           export.Options `json:"export"`
}

// DefaultExecutorConfig returns default configuration
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Timeout:          5 * time.Minute,
		MaxFileSizeBytes: 20 * 1024 * 1024, // 20MB
		DefaultFormats:   []string{string(export.FormatXLSX)},
		Export:           export.DefaultOptions(),
	}
}

// NewExecutor creates a new executor. pipelineMetrics may be nil.
func NewExecutor(service *forecast.Service, sink ReportSink, pipelineMetrics *metrics.PipelineMetrics, logger *zap.Logger, config ExecutorConfig) *Executor {
	return &Executor{
		service: service,
		sink:    sink,
		metrics: pipelineMetrics,
		logger:  logger,
		config:  config,
	}
}

// Execute loads the input, runs the forecast and delivers one file per format
func (e *Executor) Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResult, error) {
	executionID := uuid.New()
	startTime := time.Now()

	e.logger.Info("Starting report execution",
		zap.String("execution_id", executionID.String()),
		zap.String("input", req.InputPath),
		zap.Strings("formats", req.Formats))

	result := &ExecutionResult{
		ExecutionID: executionID,
		Status:      StatusProcessing,
		StartedAt:   startTime,
	}
	fail := func(err error) (*ExecutionResult, error) {
		result.Status = StatusFailed
		result.Error = err.Error()
		result.CompletedAt = time.Now()
		result.DurationMs = time.Since(startTime).Milliseconds()
		return result, err
	}

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	formats, err := e.resolveFormats(req.Formats)
	if err != nil {
		return fail(err)
	}

	observations, err := loadObservations(req.InputPath)
	if err != nil {
		return fail(err)
	}
	result.RecordCount = len(observations)

	run, err := e.service.Run(ctx, &forecast.RunRequest{
		Observations: observations,
		Horizon:      req.Horizon,
		Seed:         req.Seed,
	})
	if err != nil {
		return fail(fmt.Errorf("forecast failed: %w", err))
	}
	result.RunID = run.RunID

	report := export.NewReport(run)
	delivered := 0
	for _, format := range formats {
		file := e.deliver(ctx, executionID, run, report, format)
		if file.Error == "" {
			delivered++
		}
		result.Files = append(result.Files, file)
	}

	switch delivered {
	case len(formats):
		result.Status = StatusCompleted
	case 0:
		return fail(fmt.Errorf("no report could be delivered"))
	default:
		result.Status = StatusPartial
	}

	result.CompletedAt = time.Now()
	result.DurationMs = time.Since(startTime).Milliseconds()

	e.logger.Info("Report execution completed",
		zap.String("execution_id", executionID.String()),
		zap.String("status", result.Status),
		zap.Int("record_count", result.RecordCount),
		zap.Int64("duration_ms", result.DurationMs))

	return result, nil
}

// deliver renders one format and passes it to the sink
func (e *Executor) deliver(ctx context.Context, executionID uuid.UUID, run *forecast.RunResult, report *export.Report, format export.Format) DeliveredFile {
	fileName := format.FileName(e.config.Export.FileName)
	file := DeliveredFile{Format: string(format), FileName: fileName}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, report, e.config.Export); err != nil {
		e.logger.Error("Failed to render report", zap.String("format", string(format)), zap.Error(err))
		file.Error = err.Error()
		return file
	}
	file.SizeBytes = int64(buf.Len())

	if e.config.MaxFileSizeBytes > 0 && file.SizeBytes > e.config.MaxFileSizeBytes {
		file.Error = "report exceeds maximum file size"
		return file
	}

	location, err := e.sink.Deliver(ctx, &GeneratedReport{
		ExecutionID: executionID,
		RunID:       run.RunID,
		Format:      string(format),
		Data:        buf.Bytes(),
		ContentType: format.ContentType(),
		FileName:    fileName,
		RecordCount: len(report.Points),
		GeneratedAt: run.GeneratedAt,
	})
	if err != nil {
		e.logger.Error("Failed to deliver report", zap.String("format", string(format)), zap.Error(err))
		file.Error = err.Error()
		return file
	}

	e.metrics.ObserveExport(string(format))
	file.Location = location
	return file
}

func (e *Executor) resolveFormats(names []string) ([]export.Format, error) {
	if len(names) == 0 {
		names = e.config.DefaultFormats
	}
	if len(names) == 0 {
		names = []string{string(export.FormatXLSX)}
	}

	formats := make([]export.Format, 0, len(names))
	seen := make(map[export.Format]bool)
	for _, name := range names {
		format, err := export.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		if !seen[format] {
			seen[format] = true
			formats = append(formats, format)
		}
	}
	return formats, nil
}

// ExecuteAsync executes a report in the background. The returned channel
// receives the execution result, failed ones included, and is then closed.
func (e *Executor) ExecuteAsync(req *ExecutionRequest) <-chan *ExecutionResult {
	timeout := e.config.Timeout
	if timeout <= 0 {
		timeout = DefaultExecutorConfig().Timeout
	}

	done := make(chan *ExecutionResult, 1)
	go func() {
		defer close(done)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		result, err := e.Execute(ctx, req)
		if err != nil {
			e.logger.Error("Async execution failed", zap.Error(err))
		} else {
			e.logger.Info("Async execution completed",
				zap.String("execution_id", result.ExecutionID.String()),
				zap.String("status", result.Status))
		}
		done <- result
	}()
	return done
}

func loadObservations(path string) ([]forecast.Observation, error) {
	if path == "" {
		return nil, fmt.Errorf("input path is required")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	dataset, err := ingestion.Load(path, f, ingestion.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return dataset.Observations(), nil
}
