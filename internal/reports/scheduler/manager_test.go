package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestValidateCronExpression(t *testing.T) {
	for _, expr := range []string{"0 6 1 * *", "0 0 6 1 * *", "@monthly", "*/15 * * * *"} {
		assert.NoError(t, ValidateCronExpression(expr), expr)
	}
	for _, expr := range []string{"", "not cron", "61 * * * *", "* * * *"} {
		assert.Error(t, ValidateCronExpression(expr), expr)
	}
}

func TestNextRun(t *testing.T) {
	from := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	next, err := NextRun("0 6 1 * *", "UTC", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 6, 0, 0, 0, time.UTC), next.UTC())

	withSeconds, err := NextRun("0 0 6 1 * *", "", from)
	require.NoError(t, err)
	assert.True(t, next.Equal(withSeconds))

	berlin, err := NextRun("0 6 1 * *", "Europe/Berlin", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 5, 0, 0, 0, time.UTC), berlin.UTC())

	_, err = NextRun("bad", "UTC", from)
	assert.Error(t, err)
}

func TestDescribeCronExpression(t *testing.T) {
	assert.Equal(t, "First day of every month at 6:00 AM", DescribeCronExpression("0 6 1 * *"))
	assert.Equal(t, "First day of every month at 6:00 AM", DescribeCronExpression("0 0 6 1 * *"))
	assert.Equal(t, "Every day at midnight", DescribeCronExpression("@daily"))
	assert.Equal(t, "5 4 * * *", DescribeCronExpression("5 4 * * *"))
}

func TestLoadLocation(t *testing.T) {
	assert.Equal(t, time.UTC, loadLocation(""))
	assert.Equal(t, time.UTC, loadLocation("Not/AZone"))
	assert.Equal(t, "Europe/Berlin", loadLocation("Europe/Berlin").String())
}

func newTestManager(t *testing.T, sink ReportSink) *ScheduleManager {
	t.Helper()
	return NewScheduleManager(newTestExecutor(sink), zap.NewNop(), ScheduleManagerConfig{})
}

func TestScheduleManager_AddAndRemove(t *testing.T) {
	manager := newTestManager(t, new(MockSink))

	schedule := &Schedule{Name: "monthly", CronExpression: "0 6 1 * *", Timezone: "UTC", IsActive: true}
	require.NoError(t, manager.AddSchedule(schedule))
	assert.NotEqual(t, uuid.Nil, schedule.ID)
	assert.Equal(t, 1, manager.GetActiveJobs())

	// re-adding replaces the entry
	require.NoError(t, manager.AddSchedule(schedule))
	assert.Equal(t, 1, manager.GetActiveJobs())

	status, err := manager.GetJobStatus(schedule.ID)
	require.NoError(t, err)
	assert.True(t, status.IsActive)
	assert.Equal(t, "First day of every month at 6:00 AM", status.Description)
	assert.True(t, status.NextRun.After(time.Now()))
	assert.Equal(t, 1, status.NextRun.UTC().Day())

	manager.RemoveSchedule(schedule.ID)
	assert.Zero(t, manager.GetActiveJobs())
	_, err = manager.GetJobStatus(schedule.ID)
	assert.Error(t, err)
}

func TestScheduleManager_RejectsInvalidCron(t *testing.T) {
	manager := newTestManager(t, new(MockSink))

	err := manager.AddSchedule(&Schedule{CronExpression: "every month"})

	assert.Error(t, err)
	assert.Zero(t, manager.GetActiveJobs())
}

func TestScheduleManager_UpdateInactiveRemoves(t *testing.T) {
	manager := newTestManager(t, new(MockSink))
	schedule := &Schedule{CronExpression: "@monthly", IsActive: true}
	require.NoError(t, manager.AddSchedule(schedule))

	schedule.IsActive = false
	require.NoError(t, manager.UpdateSchedule(schedule))

	assert.Zero(t, manager.GetActiveJobs())
}

func TestScheduleManager_RunNow(t *testing.T) {
	sink := new(MockSink)
	sink.On("Deliver", mock.Anything, formatIs("csv")).Return("mem://csv", nil).Once()
	manager := newTestManager(t, sink)

	schedule := &Schedule{
		CronExpression: "0 6 1 * *",
		IsActive:       true,
		InputPath:      writeHistory(t),
		Formats:        []string{"csv"},
		Horizon:        2,
	}
	require.NoError(t, manager.AddSchedule(schedule))

	result, err := manager.RunNow(context.Background(), schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	sink.AssertExpectations(t)

	_, err = manager.RunNow(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestScheduleManager_StartStop(t *testing.T) {
	manager := newTestManager(t, new(MockSink))

	require.NoError(t, manager.Start())
	assert.Error(t, manager.Start())

	manager.Stop()
	manager.Stop()

	require.NoError(t, manager.Start())
	manager.Stop()
}
