package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"carbon-scribe/emissions-forecast/internal/config"
	"carbon-scribe/emissions-forecast/internal/forecast"
	"carbon-scribe/emissions-forecast/internal/reports/scheduler"
	"carbon-scribe/emissions-forecast/pkg/storage"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if !cfg.Schedule.Enabled {
		logger.Info("Scheduled reports are disabled, set schedule.enabled to run the worker")
		return
	}
	if cfg.Schedule.InputPath == "" {
		logger.Fatal("schedule.input_path is required")
	}

	service := forecast.NewService(cfg.ServiceConfig(), nil, nil, logger)

	var sink scheduler.ReportSink = scheduler.NewDirectorySink(cfg.Schedule.OutputDir, logger)
	if s3cfg := cfg.Schedule.S3; s3cfg.Bucket != "" {
		client, err := storage.NewS3Client(context.Background(), s3cfg.S3Config)
		if err != nil {
			logger.Fatal("Failed to create S3 client", zap.Error(err))
		}
		s3Sink := scheduler.NewS3Sink(client, s3cfg.Bucket, s3cfg.Prefix, logger)
		s3Sink.PresignTTL = s3cfg.PresignTTL
		sink = s3Sink
		logger.Info("Delivering reports to S3", zap.String("bucket", s3cfg.Bucket))
	}
	if cfg.Schedule.WebhookURL != "" {
		sink = scheduler.NewNotifyingSink(sink, scheduler.NewWebhookSink(cfg.Schedule.WebhookURL, logger), logger)
	}

	executorConfig := scheduler.DefaultExecutorConfig()
	executorConfig.Export = cfg.ExportOptions()
	executorConfig.DefaultFormats = cfg.Schedule.Formats
	executor := scheduler.NewExecutor(service, sink, nil, logger, executorConfig)

	manager := scheduler.NewScheduleManager(executor, logger, scheduler.DefaultScheduleManagerConfig())

	schedule := &scheduler.Schedule{
		Name:           "monthly-forecast",
		CronExpression: cfg.Schedule.Cron,
		Timezone:       cfg.Schedule.Timezone,
		IsActive:       true,
		InputPath:      cfg.Schedule.InputPath,
		Formats:        cfg.Schedule.Formats,
	}
	if err := manager.AddSchedule(schedule); err != nil {
		logger.Fatal("Failed to add schedule", zap.Error(err))
	}

	if runNow, _ := strconv.ParseBool(os.Getenv("RUN_ON_START")); runNow {
		logger.Info("Running initial report in the background")
		executor.ExecuteAsync(&scheduler.ExecutionRequest{
			ScheduleID: &schedule.ID,
			InputPath:  schedule.InputPath,
			Formats:    schedule.Formats,
		})
	}

	if err := manager.Start(); err != nil {
		logger.Fatal("Failed to start schedule manager", zap.Error(err))
	}

	status, err := manager.GetJobStatus(schedule.ID)
	if err == nil {
		logger.Info("Forecast worker started",
			zap.String("schedule", status.Description),
			zap.Time("next_run", status.NextRun))
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutdown signal received")

	manager.Stop()
	logger.Info("Forecast worker stopped")
}
