package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronParser accepts expressions with or without a leading seconds field
var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ScheduleManager runs forecast reports on cron schedules
type ScheduleManager struct {
	cron      *cron.Cron
	jobs      map[uuid.UUID]cron.EntryID
	schedules map[uuid.UUID]*Schedule
	executor  *Executor
	logger    *zap.Logger
	config    ScheduleManagerConfig
	mu        sync.RWMutex
	running   bool
}

// Schedule represents a recurring forecast report
type Schedule struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	CronExpression string    `json:"cron_expression"`
	Timezone       string    `json:"timezone"`
	IsActive       bool      `json:"is_active"`
	// InputPath is the CSV, Excel or JSON file the forecast is built from
	InputPath string   `json:"input_path"`
	Formats   []string `json:"formats"`
	Horizon   int      `json:"horizon,omitempty"`
	Seed      *uint64  `json:"seed,omitempty"`
}

// ScheduleManagerConfig configuration for the schedule manager
type ScheduleManagerConfig struct {
	JobTimeout time.Duration `json:"job_timeout"`
}

// DefaultScheduleManagerConfig returns default configuration
func DefaultScheduleManagerConfig() ScheduleManagerConfig {
	return ScheduleManagerConfig{
		JobTimeout: 5 * time.Minute,
	}
}

// NewScheduleManager creates a new schedule manager
func NewScheduleManager(executor *Executor, logger *zap.Logger, config ScheduleManagerConfig) *ScheduleManager {
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultScheduleManagerConfig().JobTimeout
	}
	return &ScheduleManager{
		cron:      cron.New(cron.WithParser(cronParser)),
		jobs:      make(map[uuid.UUID]cron.EntryID),
		schedules: make(map[uuid.UUID]*Schedule),
		executor:  executor,
		logger:    logger,
		config:    config,
	}
}

// Start starts the schedule manager
func (m *ScheduleManager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("schedule manager already running")
	}
	m.running = true

	m.logger.Info("Starting schedule manager", zap.Int("jobs", len(m.jobs)))
	m.cron.Start()

	return nil
}

// Stop stops the schedule manager and waits for running jobs
func (m *ScheduleManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	m.logger.Info("Stopping schedule manager")

	ctx := m.cron.Stop()
	<-ctx.Done()

	m.running = false
}

// executeSchedule runs a single scheduled report
func (m *ScheduleManager) executeSchedule(ctx context.Context, schedule *Schedule) (*ExecutionResult, error) {
	m.logger.Info("Executing scheduled report",
		zap.String("schedule_id", schedule.ID.String()),
		zap.String("schedule_name", schedule.Name))

	result, err := m.executor.Execute(ctx, &ExecutionRequest{
		ScheduleID: &schedule.ID,
		InputPath:  schedule.InputPath,
		Formats:    schedule.Formats,
		Horizon:    schedule.Horizon,
		Seed:       schedule.Seed,
	})
	if err != nil {
		m.logger.Error("Failed to execute scheduled report",
			zap.String("schedule_id", schedule.ID.String()),
			zap.Error(err))
		return result, err
	}

	next, _ := NextRun(schedule.CronExpression, schedule.Timezone, time.Now())
	m.logger.Info("Scheduled report execution completed",
		zap.String("schedule_id", schedule.ID.String()),
		zap.String("execution_id", result.ExecutionID.String()),
		zap.Int("files", len(result.Files)),
		zap.Time("next_execution", next))

	return result, nil
}

// AddSchedule registers or replaces a schedule
func (m *ScheduleManager) AddSchedule(schedule *Schedule) error {
	if err := ValidateCronExpression(schedule.CronExpression); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule.CronExpression, err)
	}
	if schedule.ID == uuid.Nil {
		schedule.ID = uuid.New()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if entryID, ok := m.jobs[schedule.ID]; ok {
		m.cron.Remove(entryID)
	}

	loc := loadLocation(schedule.Timezone)
	spec := fmt.Sprintf("CRON_TZ=%s %s", loc.String(), schedule.CronExpression)

	entryID, err := m.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.config.JobTimeout)
		defer cancel()
		m.executeSchedule(ctx, schedule)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	m.jobs[schedule.ID] = entryID
	m.schedules[schedule.ID] = schedule

	m.logger.Info("Added schedule",
		zap.String("schedule_id", schedule.ID.String()),
		zap.String("cron", schedule.CronExpression),
		zap.String("timezone", loc.String()))

	return nil
}

// RemoveSchedule removes a schedule from the manager
func (m *ScheduleManager) RemoveSchedule(scheduleID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entryID, ok := m.jobs[scheduleID]; ok {
		m.cron.Remove(entryID)
		delete(m.jobs, scheduleID)
		delete(m.schedules, scheduleID)

		m.logger.Info("Removed schedule", zap.String("schedule_id", scheduleID.String()))
	}
}

// UpdateSchedule replaces a schedule, dropping it when inactive
func (m *ScheduleManager) UpdateSchedule(schedule *Schedule) error {
	m.RemoveSchedule(schedule.ID)

	if schedule.IsActive {
		return m.AddSchedule(schedule)
	}

	return nil
}

// RunNow executes a registered schedule immediately
func (m *ScheduleManager) RunNow(ctx context.Context, scheduleID uuid.UUID) (*ExecutionResult, error) {
	m.mu.RLock()
	schedule, ok := m.schedules[scheduleID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("schedule %s not found", scheduleID)
	}

	ctx, cancel := context.WithTimeout(ctx, m.config.JobTimeout)
	defer cancel()
	return m.executeSchedule(ctx, schedule)
}

// GetActiveJobs returns the number of active jobs
func (m *ScheduleManager) GetActiveJobs() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}

// GetJobStatus returns the status of a scheduled job
func (m *ScheduleManager) GetJobStatus(scheduleID uuid.UUID) (*JobStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entryID, ok := m.jobs[scheduleID]
	if !ok {
		return nil, fmt.Errorf("job not found")
	}

	schedule := m.schedules[scheduleID]
	entry := m.cron.Entry(entryID)
	next := entry.Next
	if next.IsZero() {
		// entries only carry Next once the cron loop is running
		next, _ = NextRun(schedule.CronExpression, schedule.Timezone, time.Now())
	}

	return &JobStatus{
		ScheduleID:  scheduleID,
		NextRun:     next,
		PrevRun:     entry.Prev,
		IsActive:    true,
		Description: DescribeCronExpression(schedule.CronExpression),
	}, nil
}

// JobStatus represents the status of a scheduled job
type JobStatus struct {
	ScheduleID  uuid.UUID `json:"schedule_id"`
	NextRun     time.Time `json:"next_run"`
	PrevRun     time.Time `json:"prev_run"`
	IsActive    bool      `json:"is_active"`
	Description string    `json:"description"`
}

// ValidateCronExpression validates a five or six field cron expression
func ValidateCronExpression(expr string) error {
	_, err := cronParser.Parse(expr)
	return err
}

// NextRun returns the first activation of expr after from, in the given timezone
func NextRun(expr, timezone string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.Next(from.In(loadLocation(timezone))), nil
}

// DescribeCronExpression returns a human-readable description of a cron expression
func DescribeCronExpression(expr string) string {
	fields := strings.Fields(expr)
	if len(fields) == 6 && fields[0] == "0" {
		expr = strings.Join(fields[1:], " ")
	}

	switch expr {
	case "0 * * * *", "@hourly":
		return "Every hour"
	case "0 0 * * *", "@daily", "@midnight":
		return "Every day at midnight"
	case "0 0 * * 0", "@weekly":
		return "Every Sunday at midnight"
	case "0 0 1 * *", "@monthly":
		return "First day of every month at midnight"
	case "0 6 1 * *":
		return "First day of every month at 6:00 AM"
	case "0 9 * * 1-5":
		return "Every weekday at 9:00 AM"
	default:
		return expr
	}
}

func loadLocation(timezone string) *time.Location {
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
