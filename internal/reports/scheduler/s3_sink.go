package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"carbon-scribe/emissions-forecast/pkg/storage"
)

// S3Sink uploads reports to a bucket under <prefix>/<yyyy-mm-dd>/
type S3Sink struct {
	client storage.S3Client
	bucket string
	prefix string
	// PresignTTL, when positive, makes Deliver return a presigned GET URL
	PresignTTL time.Duration
	logger     *zap.Logger
}

// NewS3Sink creates a sink for the given bucket
func NewS3Sink(client storage.S3Client, bucket, prefix string, logger *zap.Logger) *S3Sink {
	return &S3Sink{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}
}

// Key returns the object key used for a report
func (s *S3Sink) Key(report *GeneratedReport) string {
	generated := report.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	name := fmt.Sprintf("%s_%s", report.ExecutionID.String()[:8], report.FileName)
	return path.Join(s.prefix, generated.UTC().Format("2006-01-02"), name)
}

// Deliver uploads the report and returns its s3:// location, or a presigned
// URL when PresignTTL is set
func (s *S3Sink) Deliver(ctx context.Context, report *GeneratedReport) (string, error) {
	if s.bucket == "" {
		return "", fmt.Errorf("s3 bucket is required")
	}

	key := s.Key(report)
	if err := s.client.Upload(ctx, s.bucket, key, report.ContentType, bytes.NewReader(report.Data)); err != nil {
		return "", err
	}

	s.logger.Info("Report uploaded",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int("size_bytes", len(report.Data)))

	if s.PresignTTL > 0 {
		url, err := s.client.GetPresignedURL(ctx, s.bucket, key, s.PresignTTL)
		if err != nil {
			return "", err
		}
		return url, nil
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
