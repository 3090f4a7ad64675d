package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbon-scribe/emissions-forecast/internal/forecast"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, forecast.DefaultHorizon, cfg.Forecast.Horizon)
	assert.Equal(t, forecast.DefaultMaxHorizon, cfg.Forecast.MaxHorizon)
	assert.Equal(t, 0.15, cfg.Optimization.Reduction)
	assert.Equal(t, "Forecast", cfg.Export.SheetName)
	assert.Equal(t, "0 0 6 1 * *", cfg.Schedule.Cron)
	assert.Equal(t, "us-east-1", cfg.Schedule.S3.Region)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.GetServerAddr())
}

func TestLoadConfig_YAML(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
forecast:
  horizon: 12
  jitter_enabled: false
optimization:
  reduction: 0.2
  bound_damping: 0.5
export:
  sheet_name: Projection
schedule:
  enabled: true
  formats: [xlsx, pdf]
  s3:
    bucket: reports
    endpoint: http://localhost:9000
    presign_ttl: 1h
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 12, cfg.Forecast.Horizon)
	assert.False(t, cfg.Forecast.JitterEnabled)
	assert.Equal(t, 0.2, cfg.Optimization.Reduction)
	assert.Equal(t, []string{"xlsx", "pdf"}, cfg.Schedule.Formats)
	assert.Equal(t, "reports", cfg.Schedule.S3.Bucket)
	assert.Equal(t, "http://localhost:9000", cfg.Schedule.S3.Endpoint)
	assert.Equal(t, time.Hour, cfg.Schedule.S3.PresignTTL)
	// unset keys keep their defaults
	assert.Equal(t, forecast.DefaultMinHistory, cfg.Forecast.MinHistory)

	service := cfg.ServiceConfig()
	assert.Equal(t, 12, service.Horizon)
	assert.Equal(t, 0.5, service.Optimization.BoundDamping)

	opts := cfg.ExportOptions()
	assert.Equal(t, "Projection", opts.Excel.SheetName)
	assert.Equal(t, "carbon_forecast.xlsx", opts.FileName)
}

func TestLoadConfig_JSON(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"forecast":{"horizon":3,"min_history":2}}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Forecast.Horizon)
	assert.Equal(t, 2, cfg.Forecast.MinHistory)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("FORECAST_HORIZON", "9")
	t.Setenv("FORECAST_SEED", "42")
	t.Setenv("FORECAST_JITTER", "false")
	t.Setenv("OPTIMIZATION_REDUCTION", "0.3")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("SCHEDULE_WEBHOOK_URL", "http://hooks.local/report")
	t.Setenv("S3_BUCKET", "forecasts")
	t.Setenv("LOG_LEVEL", "production")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 9, cfg.Forecast.Horizon)
	assert.Equal(t, uint64(42), cfg.Forecast.Seed)
	assert.False(t, cfg.Forecast.JitterEnabled)
	assert.Equal(t, 0.3, cfg.Optimization.Reduction)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "http://hooks.local/report", cfg.Schedule.WebhookURL)
	assert.Equal(t, "forecasts", cfg.Schedule.S3.Bucket)

	logger, err := cfg.Logging.NewLogger()
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FORECAST_HORIZON=4\n"), 0o644))
	t.Setenv("FORECAST_HORIZON", "")
	os.Unsetenv("FORECAST_HORIZON")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Forecast.Horizon)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := LoadConfig(path)

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero horizon", func(c *Config) { c.Forecast.Horizon = 0 }},
		{"horizon above max", func(c *Config) { c.Forecast.Horizon = c.Forecast.MaxHorizon + 1 }},
		{"zero max horizon", func(c *Config) { c.Forecast.MaxHorizon = 0 }},
		{"max horizon above limit", func(c *Config) { c.Forecast.MaxHorizon = forecast.MaxHorizonLimit + 1 }},
		{"zero min history", func(c *Config) { c.Forecast.MinHistory = 0 }},
		{"inverted jitter", func(c *Config) { c.Forecast.JitterMin, c.Forecast.JitterMax = 1.2, 0.8 }},
		{"full reduction", func(c *Config) { c.Optimization.Reduction = 1 }},
		{"negative damping", func(c *Config) { c.Optimization.BoundDamping = -0.1 }},
	}

	assert.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
