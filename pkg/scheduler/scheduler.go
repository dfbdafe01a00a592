// Package scheduler runs the periodic health checks. Jobs carry an
// "@every <interval>" schedule; a poll loop dispatches due jobs to the
// handler registered for their kind and records every execution.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/modelguard/modelguard/pkg/contract"
	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/store"
)

// Handler executes one job kind. The returned map becomes the run's
// recorded result.
type Handler func(ctx context.Context, job *entities.MonitoringJob) (map[string]any, error)

// DefaultSchedules are applied when a job is created without an explicit
// schedule.
var DefaultSchedules = map[entities.JobKind]string{
	entities.JobKindDriftCheck:       "@every 1h",
	entities.JobKindBiasCheck:        "@every 6h",
	entities.JobKindPerformanceCheck: "@every 30m",
	entities.JobKindModelRetrain:     "@every 168h",
	entities.JobKindDataCleanup:      "@every 24h",
}

type Scheduler struct {
	store    store.JobStore
	poll     time.Duration
	handlers map[entities.JobKind]Handler

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func New(s store.JobStore, poll time.Duration) *Scheduler {
	return &Scheduler{
		store:    s,
		poll:     poll,
		handlers: make(map[entities.JobKind]Handler),
		inFlight: make(map[string]struct{}),
	}
}

// Register binds the handler for a job kind. Not safe to call after
// Start.
func (s *Scheduler) Register(kind entities.JobKind, handler Handler) {
	s.handlers[kind] = handler
}

// parseSchedule accepts "@every <duration>" with any Go duration string.
func parseSchedule(schedule string) (time.Duration, *contract.Error) {
	raw, ok := strings.CutPrefix(schedule, "@every ")
	if !ok {
		return 0, contract.NewError(
			contract.ErrorCodeInvalidParameterValue, "schedule %q must be of the form \"@every <interval>\"", schedule,
		)
	}
	interval, err := time.ParseDuration(raw)
	if err != nil || interval <= 0 {
		return 0, contract.NewError(contract.ErrorCodeInvalidParameterValue, "invalid schedule interval %q", raw)
	}
	return interval, nil
}

// CreateJob registers a new monitoring job, enabled, with its first run
// due one interval from now.
func (s *Scheduler) CreateJob(
	kind entities.JobKind,
	modelID, schedule string,
	config map[string]any,
) (*entities.MonitoringJob, *contract.Error) {
	if !kind.Valid() {
		return nil, contract.NewError(contract.ErrorCodeInvalidParameterValue, "invalid job type %q", kind)
	}
	if schedule == "" {
		schedule = DefaultSchedules[kind]
	}
	interval, cErr := parseSchedule(schedule)
	if cErr != nil {
		return nil, cErr
	}

	now := time.Now().UTC()
	job := &entities.MonitoringJob{
		ID:        uuid.NewString(),
		Kind:      kind,
		Schedule:  schedule,
		ModelID:   modelID,
		Enabled:   true,
		NextRun:   now.Add(interval),
		Status:    entities.JobStatusPending,
		Config:    config,
		CreatedAt: now,
	}
	if err := s.store.CreateJob(job); err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to store job")
	}
	return job, nil
}

// EnsureDefaults creates the standard drift, bias and performance jobs
// for a model unless that kind already has one.
func (s *Scheduler) EnsureDefaults(modelID string) *contract.Error {
	for _, kind := range []entities.JobKind{
		entities.JobKindDriftCheck,
		entities.JobKindBiasCheck,
		entities.JobKindPerformanceCheck,
	} {
		existing, err := s.store.ListJobs(kind, modelID)
		if err != nil {
			return contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to list jobs")
		}
		if len(existing) > 0 {
			continue
		}
		if _, cErr := s.CreateJob(kind, modelID, "", nil); cErr != nil {
			return cErr
		}
	}
	return nil
}

// RunJob executes a job immediately, regardless of its schedule, and
// records the run.
func (s *Scheduler) RunJob(ctx context.Context, id string) (*entities.JobRun, *contract.Error) {
	job, err := s.store.GetJob(id)
	if err != nil {
		return nil, contract.NewNotFound("job %q not found", id)
	}
	return s.execute(ctx, job)
}

func (s *Scheduler) execute(ctx context.Context, job *entities.MonitoringJob) (*entities.JobRun, *contract.Error) {
	handler, ok := s.handlers[job.Kind]
	if !ok {
		return nil, contract.NewError(contract.ErrorCodeInternalError, "no handler registered for job type %q", job.Kind)
	}

	s.mu.Lock()
	if _, busy := s.inFlight[job.ID]; busy {
		s.mu.Unlock()
		return nil, contract.NewError(contract.ErrorCodeResourceConflict, "job %q is already running", job.ID)
	}
	s.inFlight[job.ID] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inFlight, job.ID)
		s.mu.Unlock()
	}()

	now := time.Now().UTC()
	run := &entities.JobRun{
		ID:        uuid.NewString(),
		JobID:     job.ID,
		Kind:      job.Kind,
		StartedAt: now,
		Status:    entities.JobStatusRunning,
	}
	if err := s.store.CreateRun(run); err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to store job run")
	}

	job.Status = entities.JobStatusRunning
	_ = s.store.UpdateJob(job)

	log := logrus.WithFields(logrus.Fields{"job_id": job.ID, "job_type": job.Kind})
	result, handlerErr := runHandler(ctx, handler, job)

	completed := time.Now().UTC()
	run.CompletedAt = &completed
	run.Result = result
	if handlerErr != nil {
		run.Status = entities.JobStatusFailed
		run.Error = handlerErr.Error()
		job.Status = entities.JobStatusFailed
		log.WithError(handlerErr).Error("job run failed")
	} else {
		run.Status = entities.JobStatusCompleted
		job.Status = entities.JobStatusCompleted
		log.Info("job run completed")
	}
	if err := s.store.UpdateRun(run); err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to finalize job run")
	}

	job.LastRun = &completed
	if interval, cErr := parseSchedule(job.Schedule); cErr == nil {
		job.NextRun = completed.Add(interval)
	}
	if err := s.store.UpdateJob(job); err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to update job")
	}
	return run, nil
}

// runHandler contains a panicking handler. The run must always reach a
// terminal state, and dispatchDue executes on bare goroutines where an
// escaped panic would take down the process.
func runHandler(
	ctx context.Context,
	handler Handler,
	job *entities.MonitoringJob,
) (result map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, job)
}

// Start blocks on the poll loop until ctx is cancelled. Due jobs run on
// their own goroutines so a slow check cannot stall the loop.
func (s *Scheduler) Start(ctx context.Context) {
	logrus.WithField("poll", s.poll.String()).Info("scheduler started")
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.dispatchDue(ctx)
		}
	}
}

func (s *Scheduler) dispatchDue(ctx context.Context) {
	jobs, err := s.store.ListJobs("", "")
	if err != nil {
		logrus.WithError(err).Error("scheduler failed to list jobs")
		return
	}

	now := time.Now().UTC()
	for _, job := range jobs {
		if !job.Enabled || job.NextRun.After(now) {
			continue
		}
		job := job
		go func() {
			if _, cErr := s.execute(ctx, job); cErr != nil &&
				cErr.Code != contract.ErrorCodeResourceConflict {
				logrus.WithError(cErr).WithField("job_id", job.ID).Error("scheduled run failed")
			}
		}()
	}
}

// Enable re-arms a disabled job one interval out.
func (s *Scheduler) Enable(id string) (*entities.MonitoringJob, *contract.Error) {
	return s.setEnabled(id, true)
}

func (s *Scheduler) Disable(id string) (*entities.MonitoringJob, *contract.Error) {
	return s.setEnabled(id, false)
}

func (s *Scheduler) setEnabled(id string, enabled bool) (*entities.MonitoringJob, *contract.Error) {
	job, err := s.store.GetJob(id)
	if err != nil {
		return nil, contract.NewNotFound("job %q not found", id)
	}
	job.Enabled = enabled
	if enabled {
		if interval, cErr := parseSchedule(job.Schedule); cErr == nil {
			job.NextRun = time.Now().UTC().Add(interval)
		}
	}
	if err := s.store.UpdateJob(job); err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to update job")
	}
	return job, nil
}

// DeleteJob removes the job; its run history stays behind for audit.
func (s *Scheduler) DeleteJob(id string) *contract.Error {
	if err := s.store.DeleteJob(id); err != nil {
		return contract.NewNotFound("job %q not found", id)
	}
	return nil
}

func (s *Scheduler) GetJob(id string) (*entities.MonitoringJob, *contract.Error) {
	job, err := s.store.GetJob(id)
	if err != nil {
		return nil, contract.NewNotFound("job %q not found", id)
	}
	return job, nil
}

func (s *Scheduler) ListJobs(kind entities.JobKind, modelID string) ([]*entities.MonitoringJob, *contract.Error) {
	jobs, err := s.store.ListJobs(kind, modelID)
	if err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to list jobs")
	}
	return jobs, nil
}

func (s *Scheduler) ListRuns(jobID string, limit int) ([]*entities.JobRun, *contract.Error) {
	runs, err := s.store.ListRuns(jobID, limit)
	if err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, err, "failed to list job runs")
	}
	return runs, nil
}
