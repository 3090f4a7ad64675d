package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"carbon-scribe/emissions-forecast/internal/config"
	"carbon-scribe/emissions-forecast/internal/forecast"
	"carbon-scribe/emissions-forecast/internal/ingestion"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Carbon emissions forecasting CLI",
	Long: `Forecast monthly carbon emissions from operational data, estimate the
effect of reduction measures and export the results.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON or YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline activity to stderr")
}

// loadConfig reads --config, falling back to the built-in defaults
func loadConfig() (*config.Config, error) {
	return config.LoadConfig(configPath)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return cfg.Logging.NewLogger()
}

// newService builds a forecast service without cache or metrics
func newService() (*forecast.Service, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return forecast.NewService(cfg.ServiceConfig(), nil, nil, logger), cfg, nil
}

// loadObservations reads a CSV, Excel or JSON file through the upload mapping
func loadObservations(path string) ([]forecast.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	dataset, err := ingestion.Load(path, f, ingestion.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return dataset.Observations(), nil
}
