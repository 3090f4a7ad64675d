package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"carbon-scribe/emissions-forecast/internal/forecast"
	"carbon-scribe/emissions-forecast/internal/reports/export"
	"carbon-scribe/emissions-forecast/pkg/storage"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig                `json:"server" yaml:"server"`
	Forecast     ForecastConfig              `json:"forecast" yaml:"forecast"`
	Optimization forecast.OptimizationConfig `json:"optimization" yaml:"optimization"`
	Evaluation   forecast.QualityThresholds  `json:"evaluation" yaml:"evaluation"`
	Export       ExportConfig                `json:"export" yaml:"export"`
	Cache        CacheConfig                 `json:"cache" yaml:"cache"`
	Schedule     ScheduleConfig              `json:"schedule" yaml:"schedule"`
	Metrics      MetricsConfig               `json:"metrics" yaml:"metrics"`
	Logging      LoggingConfig               `json:"logging" yaml:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host" yaml:"host"`
	Port         int           `json:"port" yaml:"port"`
	Mode         string        `json:"mode" yaml:"mode"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// ForecastConfig controls forecast synthesis
type ForecastConfig struct {
	Horizon       int     `json:"horizon" yaml:"horizon"`
	MaxHorizon    int     `json:"max_horizon" yaml:"max_horizon"`
	MinHistory    int     `json:"min_history" yaml:"min_history"`
	JitterEnabled bool    `json:"jitter_enabled" yaml:"jitter_enabled"`
	JitterMin     float64 `json:"jitter_min" yaml:"jitter_min"`
	JitterMax     float64 `json:"jitter_max" yaml:"jitter_max"`
	// Seed fixes the jitter sequence; 0 draws a fresh seed per run
	Seed uint64 `json:"seed" yaml:"seed"`
}

// JitterBand returns the configured jitter band
func (c ForecastConfig) JitterBand() forecast.JitterBand {
	return forecast.JitterBand{Min: c.JitterMin, Max: c.JitterMax}
}

// ExportConfig controls spreadsheet and report export
type ExportConfig struct {
	SheetName     string `json:"sheet_name" yaml:"sheet_name"`
	FileName      string `json:"file_name" yaml:"file_name"`
	HeaderFill    string `json:"header_fill" yaml:"header_fill"`
	DefaultFormat string `json:"default_format" yaml:"default_format"`
}

// CacheConfig controls result memoization
type CacheConfig struct {
	Enabled         bool          `json:"enabled" yaml:"enabled"`
	TTL             time.Duration `json:"ttl" yaml:"ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
}

// ScheduleConfig controls the scheduled report worker
type ScheduleConfig struct {
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	Cron      string   `json:"cron" yaml:"cron"`
	Timezone  string   `json:"timezone" yaml:"timezone"`
	InputPath string   `json:"input_path" yaml:"input_path"`
	OutputDir string   `json:"output_dir" yaml:"output_dir"`
	Formats   []string `json:"formats" yaml:"formats"`
	// WebhookURL is notified after each delivered report when set
	WebhookURL string `json:"webhook_url" yaml:"webhook_url"`
	// S3 replaces the output directory when a bucket is configured
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config selects a bucket for scheduled reports
type S3Config struct {
	storage.S3Config `yaml:",inline"`
	Bucket           string        `json:"bucket" yaml:"bucket"`
	Prefix           string        `json:"prefix" yaml:"prefix"`
	PresignTTL       time.Duration `json:"presign_ttl" yaml:"presign_ttl"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

// NewLogger builds a zap logger. "production" selects JSON output; any other
// level name selects the development console encoder.
func (c LoggingConfig) NewLogger() (*zap.Logger, error) {
	if strings.EqualFold(c.Level, "production") {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			Mode:         "debug",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Forecast: ForecastConfig{
			Horizon:       forecast.DefaultHorizon,
			MaxHorizon:    forecast.DefaultMaxHorizon,
			MinHistory:    forecast.DefaultMinHistory,
			JitterEnabled: true,
			JitterMin:     forecast.DefaultJitterBand().Min,
			JitterMax:     forecast.DefaultJitterBand().Max,
		},
		Optimization: forecast.DefaultOptimizationConfig(),
		Evaluation:   forecast.DefaultQualityThresholds(),
		Export: ExportConfig{
			SheetName:     "Forecast",
			FileName:      "carbon_forecast.xlsx",
			HeaderFill:    "D7E4BC",
			DefaultFormat: "xlsx",
		},
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             10 * time.Minute,
			CleanupInterval: time.Minute,
		},
		Schedule: ScheduleConfig{
			Cron:      "0 0 6 1 * *",
			Timezone:  "UTC",
			OutputDir: "reports",
			Formats:   []string{"xlsx"},
			S3: S3Config{
				S3Config: storage.S3Config{Region: "us-east-1"},
				Prefix:   "forecasts",
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level: "development",
		},
	}
}

// LoadConfig loads configuration from file and environment variables. A
// missing file is not an error. Files ending in .yaml or .yml are read as
// YAML, anything else as JSON. A .env file next to the working directory is
// loaded before environment overrides are applied.
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := decode(configPath, data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func decode(path string, data []byte, config *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	default:
		return json.Unmarshal(data, config)
	}
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		config.Server.Mode = mode
	}
	if horizon := os.Getenv("FORECAST_HORIZON"); horizon != "" {
		if h, err := strconv.Atoi(horizon); err == nil {
			config.Forecast.Horizon = h
		}
	}
	if seed := os.Getenv("FORECAST_SEED"); seed != "" {
		if s, err := strconv.ParseUint(seed, 10, 64); err == nil {
			config.Forecast.Seed = s
		}
	}
	if jitter := os.Getenv("FORECAST_JITTER"); jitter != "" {
		if j, err := strconv.ParseBool(jitter); err == nil {
			config.Forecast.JitterEnabled = j
		}
	}
	if reduction := os.Getenv("OPTIMIZATION_REDUCTION"); reduction != "" {
		if r, err := strconv.ParseFloat(reduction, 64); err == nil {
			config.Optimization.Reduction = r
		}
	}
	if damping := os.Getenv("OPTIMIZATION_DAMPING"); damping != "" {
		if d, err := strconv.ParseFloat(damping, 64); err == nil {
			config.Optimization.BoundDamping = d
		}
	}
	if ttl := os.Getenv("CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.Cache.TTL = d
		}
	}
	if expr := os.Getenv("SCHEDULE_CRON"); expr != "" {
		config.Schedule.Cron = expr
	}
	if dir := os.Getenv("SCHEDULE_OUTPUT_DIR"); dir != "" {
		config.Schedule.OutputDir = dir
	}
	if url := os.Getenv("SCHEDULE_WEBHOOK_URL"); url != "" {
		config.Schedule.WebhookURL = url
	}
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		config.Schedule.S3.Bucket = bucket
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		config.Schedule.S3.Region = region
	}
	if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
		config.Schedule.S3.Endpoint = endpoint
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// Validate rejects configurations the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Forecast.Horizon <= 0 {
		return fmt.Errorf("forecast.horizon must be positive, got %d", c.Forecast.Horizon)
	}
	if c.Forecast.MaxHorizon <= 0 || c.Forecast.MaxHorizon > forecast.MaxHorizonLimit {
		return fmt.Errorf("forecast.max_horizon must be in [1, %d], got %d", forecast.MaxHorizonLimit, c.Forecast.MaxHorizon)
	}
	if c.Forecast.Horizon > c.Forecast.MaxHorizon {
		return fmt.Errorf("forecast.horizon %d exceeds max_horizon %d", c.Forecast.Horizon, c.Forecast.MaxHorizon)
	}
	if c.Forecast.MinHistory <= 0 {
		return fmt.Errorf("forecast.min_history must be positive, got %d", c.Forecast.MinHistory)
	}
	if c.Forecast.JitterMin > c.Forecast.JitterMax {
		return fmt.Errorf("forecast.jitter_min %.3f exceeds jitter_max %.3f", c.Forecast.JitterMin, c.Forecast.JitterMax)
	}
	if c.Optimization.Reduction < 0 || c.Optimization.Reduction >= 1 {
		return fmt.Errorf("optimization.reduction must be in [0, 1), got %.3f", c.Optimization.Reduction)
	}
	if c.Optimization.BoundDamping < 0 {
		return fmt.Errorf("optimization.bound_damping must not be negative, got %.3f", c.Optimization.BoundDamping)
	}
	return nil
}

// ServiceConfig returns the pipeline defaults for forecast.NewService
func (c *Config) ServiceConfig() forecast.ServiceConfig {
	return forecast.ServiceConfig{
		Horizon:       c.Forecast.Horizon,
		MaxHorizon:    c.Forecast.MaxHorizon,
		MinHistory:    c.Forecast.MinHistory,
		JitterEnabled: c.Forecast.JitterEnabled,
		Jitter:        c.Forecast.JitterBand(),
		Seed:          c.Forecast.Seed,
		Optimization:  c.Optimization,
		Thresholds:    c.Evaluation,
	}
}

// ExportOptions applies the export section to the default exporter settings
func (c *Config) ExportOptions() export.Options {
	opts := export.DefaultOptions()
	if c.Export.FileName != "" {
		opts.FileName = c.Export.FileName
	}
	if c.Export.SheetName != "" {
		opts.Excel.SheetName = c.Export.SheetName
	}
	if c.Export.HeaderFill != "" && opts.Excel.HeaderStyle != nil {
		opts.Excel.HeaderStyle.FillColor = c.Export.HeaderFill
	}
	return opts
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
