package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// DirectorySink writes reports under a base directory, one folder per run date
type DirectorySink struct {
	dir    string
	logger *zap.Logger
}

// NewDirectorySink creates a sink rooted at dir
func NewDirectorySink(dir string, logger *zap.Logger) *DirectorySink {
	return &DirectorySink{dir: dir, logger: logger}
}

// Deliver writes the report to <dir>/<yyyy-mm-dd>/<execution id>_<file name>
func (s *DirectorySink) Deliver(ctx context.Context, report *GeneratedReport) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	generated := report.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	folder := filepath.Join(s.dir, generated.UTC().Format("2006-01-02"))
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(folder, fmt.Sprintf("%s_%s", report.ExecutionID.String()[:8], report.FileName))
	if err := os.WriteFile(path, report.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	s.logger.Info("Report written",
		zap.String("path", path),
		zap.Int("size_bytes", len(report.Data)))

	return path, nil
}

// WebhookSink posts a JSON notice for each delivered report. It does not
// store the file itself and is meant to follow a storing sink.
type WebhookSink struct {
	url        string
	headers    map[string]string
	retries    int
	httpClient *http.Client
	logger     *zap.Logger
}

// WebhookPayload is the body posted by WebhookSink
type WebhookPayload struct {
	ExecutionID string    `json:"execution_id"`
	RunID       string    `json:"run_id"`
	Format      string    `json:"format"`
	FileName    string    `json:"file_name"`
	Location    string    `json:"location,omitempty"`
	SizeBytes   int       `json:"size_bytes"`
	RecordCount int       `json:"record_count"`
	GeneratedAt time.Time `json:"generated_at"`
}

// NewWebhookSink creates a webhook sink with a 30s timeout and 3 attempts
func NewWebhookSink(url string, logger *zap.Logger) *WebhookSink {
	return &WebhookSink{
		url:     url,
		headers: map[string]string{},
		retries: 3,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// WithHeader adds a header to every webhook request
func (s *WebhookSink) WithHeader(key, value string) *WebhookSink {
	s.headers[key] = value
	return s
}

// Deliver posts the notice and returns the webhook URL
func (s *WebhookSink) Deliver(ctx context.Context, report *GeneratedReport) (string, error) {
	return s.notify(ctx, report, "")
}

func (s *WebhookSink) notify(ctx context.Context, report *GeneratedReport, location string) (string, error) {
	if s.url == "" {
		return "", fmt.Errorf("webhook URL is required")
	}

	payload, err := json.Marshal(WebhookPayload{
		ExecutionID: report.ExecutionID.String(),
		RunID:       report.RunID.String(),
		Format:      report.Format,
		FileName:    report.FileName,
		Location:    location,
		SizeBytes:   len(report.Data),
		RecordCount: report.RecordCount,
		GeneratedAt: report.GeneratedAt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for key, value := range s.headers {
			req.Header.Set(key, value)
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
			s.logger.Warn("Webhook request failed, retrying",
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			s.logger.Info("Webhook delivered successfully",
				zap.String("url", s.url),
				zap.Int("status_code", resp.StatusCode))
			return s.url, nil
		}

		lastErr = fmt.Errorf("webhook returned status %d", resp.StatusCode)
		s.logger.Warn("Webhook returned non-success status",
			zap.Int("attempt", attempt+1),
			zap.Int("status_code", resp.StatusCode))
	}

	return "", fmt.Errorf("webhook delivery failed after %d attempts: %w", s.retries, lastErr)
}

// NotifyingSink stores reports with a primary sink and announces each stored
// file through a webhook. Webhook failures are logged, not returned.
type NotifyingSink struct {
	primary ReportSink
	webhook *WebhookSink
	logger  *zap.Logger
}

// NewNotifyingSink wraps primary with webhook notices
func NewNotifyingSink(primary ReportSink, webhook *WebhookSink, logger *zap.Logger) *NotifyingSink {
	return &NotifyingSink{primary: primary, webhook: webhook, logger: logger}
}

// Deliver stores the report, then posts its location
func (s *NotifyingSink) Deliver(ctx context.Context, report *GeneratedReport) (string, error) {
	if s.primary == nil {
		return "", errors.New("no primary sink configured")
	}

	location, err := s.primary.Deliver(ctx, report)
	if err != nil {
		return "", err
	}

	if s.webhook != nil {
		if _, err := s.webhook.notify(ctx, report, location); err != nil {
			s.logger.Warn("Failed to send report notice", zap.Error(err))
		}
	}
	return location, nil
}
