package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/store/memory"
)

func TestCreateJobAppliesDefaultSchedule(t *testing.T) {
	s := New(memory.NewStore(), time.Second)

	scenarios := []struct {
		kind entities.JobKind
		want string
	}{
		{kind: entities.JobKindDriftCheck, want: "@every 1h"},
		{kind: entities.JobKindBiasCheck, want: "@every 6h"},
		{kind: entities.JobKindPerformanceCheck, want: "@every 30m"},
	}
	for _, scenario := range scenarios {
		job, cErr := s.CreateJob(scenario.kind, "fraud-v3", "", nil)
		require.Nil(t, cErr)
		require.Equal(t, scenario.want, job.Schedule)
		require.True(t, job.Enabled)
		require.Equal(t, entities.JobStatusPending, job.Status)
		require.True(t, job.NextRun.After(time.Now().UTC()))
	}
}

func TestCreateJobValidation(t *testing.T) {
	s := New(memory.NewStore(), time.Second)

	_, cErr := s.CreateJob("COFFEE_BREAK", "", "", nil)
	require.NotNil(t, cErr)

	_, cErr = s.CreateJob(entities.JobKindDriftCheck, "", "hourly", nil)
	require.NotNil(t, cErr)

	_, cErr = s.CreateJob(entities.JobKindDriftCheck, "", "@every soon", nil)
	require.NotNil(t, cErr)

	job, cErr := s.CreateJob(entities.JobKindDriftCheck, "", "@every 15m", nil)
	require.Nil(t, cErr)
	require.Equal(t, "@every 15m", job.Schedule)
}

func TestRunJobRecordsCompletedRun(t *testing.T) {
	s := New(memory.NewStore(), time.Second)
	s.Register(entities.JobKindDriftCheck, func(_ context.Context, job *entities.MonitoringJob) (map[string]any, error) {
		return map[string]any{"model_id": job.ModelID}, nil
	})

	job, cErr := s.CreateJob(entities.JobKindDriftCheck, "fraud-v3", "", nil)
	require.Nil(t, cErr)

	run, cErr := s.RunJob(context.Background(), job.ID)
	require.Nil(t, cErr)
	require.Equal(t, entities.JobStatusCompleted, run.Status)
	require.Equal(t, "fraud-v3", run.Result["model_id"])
	require.NotNil(t, run.CompletedAt)

	job, cErr = s.GetJob(job.ID)
	require.Nil(t, cErr)
	require.Equal(t, entities.JobStatusCompleted, job.Status)
	require.NotNil(t, job.LastRun)
	require.True(t, job.NextRun.After(*job.LastRun))
}

func TestRunJobRecordsFailure(t *testing.T) {
	s := New(memory.NewStore(), time.Second)
	s.Register(entities.JobKindDriftCheck, func(_ context.Context, _ *entities.MonitoringJob) (map[string]any, error) {
		return nil, errors.New("window fetch timed out")
	})

	job, cErr := s.CreateJob(entities.JobKindDriftCheck, "fraud-v3", "", nil)
	require.Nil(t, cErr)

	run, cErr := s.RunJob(context.Background(), job.ID)
	require.Nil(t, cErr)
	require.Equal(t, entities.JobStatusFailed, run.Status)
	require.Contains(t, run.Error, "window fetch timed out")

	job, _ = s.GetJob(job.ID)
	require.Equal(t, entities.JobStatusFailed, job.Status)
}

func TestRunJobRecoversPanickingHandler(t *testing.T) {
	s := New(memory.NewStore(), time.Second)
	s.Register(entities.JobKindDriftCheck, func(_ context.Context, _ *entities.MonitoringJob) (map[string]any, error) {
		panic("window provider exploded")
	})

	job, cErr := s.CreateJob(entities.JobKindDriftCheck, "fraud-v3", "", nil)
	require.Nil(t, cErr)

	run, cErr := s.RunJob(context.Background(), job.ID)
	require.Nil(t, cErr)
	require.Equal(t, entities.JobStatusFailed, run.Status)
	require.NotNil(t, run.CompletedAt)
	require.Contains(t, run.Error, "window provider exploded")

	job, _ = s.GetJob(job.ID)
	require.Equal(t, entities.JobStatusFailed, job.Status)

	// The in-flight slot must be released so the job can run again.
	_, cErr = s.RunJob(context.Background(), job.ID)
	require.Nil(t, cErr)
}

func TestRunJobWithoutHandler(t *testing.T) {
	s := New(memory.NewStore(), time.Second)
	job, cErr := s.CreateJob(entities.JobKindDataCleanup, "", "", nil)
	require.Nil(t, cErr)

	_, cErr = s.RunJob(context.Background(), job.ID)
	require.NotNil(t, cErr)
}

func TestEnsureDefaultsIsIdempotent(t *testing.T) {
	s := New(memory.NewStore(), time.Second)

	require.Nil(t, s.EnsureDefaults("fraud-v3"))
	jobs, cErr := s.ListJobs("", "fraud-v3")
	require.Nil(t, cErr)
	require.Len(t, jobs, 3)

	require.Nil(t, s.EnsureDefaults("fraud-v3"))
	jobs, cErr = s.ListJobs("", "fraud-v3")
	require.Nil(t, cErr)
	require.Len(t, jobs, 3)
}

func TestDeleteJobRetainsRunHistory(t *testing.T) {
	s := New(memory.NewStore(), time.Second)
	s.Register(entities.JobKindDriftCheck, func(_ context.Context, _ *entities.MonitoringJob) (map[string]any, error) {
		return nil, nil
	})

	job, cErr := s.CreateJob(entities.JobKindDriftCheck, "fraud-v3", "", nil)
	require.Nil(t, cErr)
	_, cErr = s.RunJob(context.Background(), job.ID)
	require.Nil(t, cErr)

	require.Nil(t, s.DeleteJob(job.ID))
	_, cErr = s.GetJob(job.ID)
	require.NotNil(t, cErr)

	runs, cErr := s.ListRuns(job.ID, 0)
	require.Nil(t, cErr)
	require.Len(t, runs, 1)
}

func TestDisableAndEnable(t *testing.T) {
	s := New(memory.NewStore(), time.Second)
	job, cErr := s.CreateJob(entities.JobKindBiasCheck, "fraud-v3", "", nil)
	require.Nil(t, cErr)

	job, cErr = s.Disable(job.ID)
	require.Nil(t, cErr)
	require.False(t, job.Enabled)

	job, cErr = s.Enable(job.ID)
	require.Nil(t, cErr)
	require.True(t, job.Enabled)
	require.True(t, job.NextRun.After(time.Now().UTC()))
}

func TestStartDispatchesDueJobs(t *testing.T) {
	st := memory.NewStore()
	s := New(st, 20*time.Millisecond)

	var executions atomic.Int32
	s.Register(entities.JobKindDriftCheck, func(_ context.Context, _ *entities.MonitoringJob) (map[string]any, error) {
		executions.Add(1)
		return nil, nil
	})

	job, cErr := s.CreateJob(entities.JobKindDriftCheck, "fraud-v3", "@every 1h", nil)
	require.Nil(t, cErr)

	// Backdate the job so the first poll finds it due.
	stored, err := st.GetJob(job.ID)
	require.NoError(t, err)
	stored.NextRun = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, st.UpdateJob(stored))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	require.GreaterOrEqual(t, executions.Load(), int32(1))
	// After the run the schedule pushed NextRun an hour out, so the loop
	// must not have re-run it on every poll.
	require.LessOrEqual(t, executions.Load(), int32(2))
}

func TestStartSkipsDisabledJobs(t *testing.T) {
	st := memory.NewStore()
	s := New(st, 20*time.Millisecond)

	var executions atomic.Int32
	s.Register(entities.JobKindDriftCheck, func(_ context.Context, _ *entities.MonitoringJob) (map[string]any, error) {
		executions.Add(1)
		return nil, nil
	})

	job, cErr := s.CreateJob(entities.JobKindDriftCheck, "fraud-v3", "@every 1h", nil)
	require.Nil(t, cErr)
	_, cErr = s.Disable(job.ID)
	require.Nil(t, cErr)

	stored, err := st.GetJob(job.ID)
	require.NoError(t, err)
	stored.NextRun = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, st.UpdateJob(stored))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	require.Zero(t, executions.Load())
}
