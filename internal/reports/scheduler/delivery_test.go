package scheduler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testReport() *GeneratedReport {
	return &GeneratedReport{
		ExecutionID: uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e"),
		RunID:       uuid.New(),
		Format:      "csv",
		Data:        []byte("date,predicted_emissions\n"),
		ContentType: "text/csv",
		FileName:    "carbon_forecast.csv",
		RecordCount: 6,
		GeneratedAt: time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC),
	}
}

func TestDirectorySink(t *testing.T) {
	dir := t.TempDir()
	sink := NewDirectorySink(dir, zap.NewNop())

	location, err := sink.Deliver(context.Background(), testReport())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "2024-03-01", "0f8fad5b_carbon_forecast.csv"), location)
	data, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, "date,predicted_emissions\n", string(data))
}

func TestDirectorySink_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDirectorySink(t.TempDir(), zap.NewNop()).Deliver(ctx, testReport())

	assert.ErrorIs(t, err, context.Canceled)
}

func TestWebhookSink(t *testing.T) {
	var payload WebhookPayload
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL, zap.NewNop()).WithHeader("Authorization", "Bearer token")
	location, err := sink.Deliver(context.Background(), testReport())
	require.NoError(t, err)

	assert.Equal(t, server.URL, location)
	assert.Equal(t, "Bearer token", auth)
	assert.Equal(t, "0f8fad5b-d9cb-469f-a165-70867728950e", payload.ExecutionID)
	assert.Equal(t, "carbon_forecast.csv", payload.FileName)
	assert.Equal(t, 6, payload.RecordCount)
	assert.Equal(t, len(testReport().Data), payload.SizeBytes)
}

func TestWebhookSink_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := NewWebhookSink(server.URL, zap.NewNop()).Deliver(context.Background(), testReport())

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWebhookSink_GivesUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL, zap.NewNop())
	sink.retries = 1

	_, err := sink.Deliver(context.Background(), testReport())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestWebhookSink_RequiresURL(t *testing.T) {
	_, err := NewWebhookSink("", zap.NewNop()).Deliver(context.Background(), testReport())

	assert.Error(t, err)
}

func TestNotifyingSink(t *testing.T) {
	var payload WebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}))
	defer server.Close()

	primary := new(MockSink)
	primary.On("Deliver", mock.Anything, mock.Anything).Return("/reports/file.csv", nil)

	sink := NewNotifyingSink(primary, NewWebhookSink(server.URL, zap.NewNop()), zap.NewNop())
	location, err := sink.Deliver(context.Background(), testReport())
	require.NoError(t, err)

	assert.Equal(t, "/reports/file.csv", location)
	assert.Equal(t, "/reports/file.csv", payload.Location)
}

func TestNotifyingSink_WebhookFailureIsNotFatal(t *testing.T) {
	primary := new(MockSink)
	primary.On("Deliver", mock.Anything, mock.Anything).Return("/reports/file.csv", nil)
	webhook := NewWebhookSink("http://127.0.0.1:0/hook", zap.NewNop())
	webhook.retries = 1

	location, err := NewNotifyingSink(primary, webhook, zap.NewNop()).Deliver(context.Background(), testReport())

	require.NoError(t, err)
	assert.Equal(t, "/reports/file.csv", location)
}

func TestNotifyingSink_PrimaryFailure(t *testing.T) {
	primary := new(MockSink)
	primary.On("Deliver", mock.Anything, mock.Anything).Return("", errors.New("disk full"))

	_, err := NewNotifyingSink(primary, nil, zap.NewNop()).Deliver(context.Background(), testReport())

	assert.EqualError(t, err, "disk full")
}

// MockS3Client is a mock implementation of the storage.S3Client interface
type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) error {
	data, _ := io.ReadAll(body)
	args := m.Called(ctx, bucket, key, contentType, data)
	return args.Error(0)
}

func (m *MockS3Client) GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error) {
	args := m.Called(ctx, bucket, key, expiration)
	return args.String(0), args.Error(1)
}

func TestS3Sink(t *testing.T) {
	client := new(MockS3Client)
	key := "forecasts/2024-03-01/0f8fad5b_carbon_forecast.csv"
	client.On("Upload", mock.Anything, "reports", key, "text/csv", testReport().Data).Return(nil)

	sink := NewS3Sink(client, "reports", "forecasts", zap.NewNop())
	location, err := sink.Deliver(context.Background(), testReport())
	require.NoError(t, err)

	assert.Equal(t, "s3://reports/"+key, location)
	client.AssertExpectations(t)
}

func TestS3Sink_Presigned(t *testing.T) {
	client := new(MockS3Client)
	client.On("Upload", mock.Anything, "reports", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	client.On("GetPresignedURL", mock.Anything, "reports", "2024-03-01/0f8fad5b_carbon_forecast.csv", time.Hour).
		Return("https://example.test/signed", nil)

	sink := NewS3Sink(client, "reports", "", zap.NewNop())
	sink.PresignTTL = time.Hour

	location, err := sink.Deliver(context.Background(), testReport())
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/signed", location)
}

func TestS3Sink_Errors(t *testing.T) {
	client := new(MockS3Client)
	client.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("access denied"))

	_, err := NewS3Sink(client, "", "", zap.NewNop()).Deliver(context.Background(), testReport())
	assert.Error(t, err)

	_, err = NewS3Sink(client, "reports", "", zap.NewNop()).Deliver(context.Background(), testReport())
	assert.EqualError(t, err, "access denied")
}

func TestS3Sink_Key(t *testing.T) {
	sink := NewS3Sink(nil, "reports", "a/b", zap.NewNop())

	key := sink.Key(testReport())

	assert.True(t, strings.HasPrefix(key, "a/b/2024-03-01/"))
	assert.False(t, bytes.Contains([]byte(key), []byte("//")))
}
