// Package memory implements store.Store with mutex-guarded maps. It backs
// the test suites and the memory:// development mode.
package memory

import (
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/modelguard/modelguard/pkg/contract"
	"github.com/modelguard/modelguard/pkg/entities"
	"github.com/modelguard/modelguard/pkg/store"
)

type Store struct {
	mu sync.RWMutex

	jobs        map[string]*entities.MonitoringJob
	runs        map[string]*entities.JobRun
	alerts      map[string]*entities.Alert
	baselines   map[string][]*entities.Baseline
	retrainJobs map[string]*entities.RetrainJob
	abTests     map[string]*entities.ABTest
	driftReps   map[string]*entities.DriftReport
	biasReps    map[string]*entities.BiasReport
}

func NewStore() *Store {
	return &Store{
		jobs:        make(map[string]*entities.MonitoringJob),
		runs:        make(map[string]*entities.JobRun),
		alerts:      make(map[string]*entities.Alert),
		baselines:   make(map[string][]*entities.Baseline),
		retrainJobs: make(map[string]*entities.RetrainJob),
		abTests:     make(map[string]*entities.ABTest),
		driftReps:   make(map[string]*entities.DriftReport),
		biasReps:    make(map[string]*entities.BiasReport),
	}
}

var _ store.Store = (*Store)(nil)

// Entities cross the store boundary by value. The clone helpers copy the
// inner maps and nested records too, so a caller mutating a returned
// entity cannot reach stored state through a shared reference.

func cloneJob(job *entities.MonitoringJob) *entities.MonitoringJob {
	clone := *job
	clone.Config = maps.Clone(job.Config)
	return &clone
}

func cloneRun(run *entities.JobRun) *entities.JobRun {
	clone := *run
	clone.Result = maps.Clone(run.Result)
	return &clone
}

func cloneAlert(alert *entities.Alert) *entities.Alert {
	clone := *alert
	clone.Details = maps.Clone(alert.Details)
	return &clone
}

func cloneRetrainJob(job *entities.RetrainJob) *entities.RetrainJob {
	clone := *job
	clone.Metrics = maps.Clone(job.Metrics)
	if job.Comparison != nil {
		comparison := *job.Comparison
		comparison.CurrentMetrics = maps.Clone(job.Comparison.CurrentMetrics)
		comparison.CandidateMetrics = maps.Clone(job.Comparison.CandidateMetrics)
		comparison.Improvement = maps.Clone(job.Comparison.Improvement)
		clone.Comparison = &comparison
	}
	return &clone
}

func cloneABTest(test *entities.ABTest) *entities.ABTest {
	clone := *test
	clone.Config.SecondaryMetrics = slices.Clone(test.Config.SecondaryMetrics)
	clone.ChampionMetrics = maps.Clone(test.ChampionMetrics)
	clone.ChallengerMetrics = maps.Clone(test.ChallengerMetrics)
	if test.Analysis != nil {
		analysis := *test.Analysis
		clone.Analysis = &analysis
	}
	return &clone
}

func cloneDriftReport(report *entities.DriftReport) *entities.DriftReport {
	clone := *report
	clone.Features = maps.Clone(report.Features)
	return &clone
}

func cloneBiasReport(report *entities.BiasReport) *entities.BiasReport {
	clone := *report
	clone.Attributes = make(map[string]entities.AttributeBias, len(report.Attributes))
	for attr, bias := range report.Attributes {
		bias.GroupRates = maps.Clone(bias.GroupRates)
		clone.Attributes[attr] = bias
	}
	return &clone
}

func (s *Store) CreateJob(job *entities.MonitoringJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return contract.NewError(contract.ErrorCodeResourceConflict, "job %q already exists", job.ID)
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *Store) GetJob(id string) (*entities.MonitoringJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, contract.NewNotFound("job %q not found", id)
	}
	return cloneJob(job), nil
}

func (s *Store) UpdateJob(job *entities.MonitoringJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return contract.NewNotFound("job %q not found", job.ID)
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *Store) DeleteJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return contract.NewNotFound("job %q not found", id)
	}
	// Runs stay behind as audit history.
	delete(s.jobs, id)
	return nil
}

func (s *Store) ListJobs(kind entities.JobKind, modelID string) ([]*entities.MonitoringJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entities.MonitoringJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		if kind != "" && job.Kind != kind {
			continue
		}
		if modelID != "" && job.ModelID != modelID {
			continue
		}
		out = append(out, cloneJob(job))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateRun(run *entities.JobRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = cloneRun(run)
	return nil
}

func (s *Store) UpdateRun(run *entities.JobRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		return contract.NewNotFound("job run %q not found", run.ID)
	}
	s.runs[run.ID] = cloneRun(run)
	return nil
}

func (s *Store) ListRuns(jobID string, limit int) ([]*entities.JobRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entities.JobRun, 0)
	for _, run := range s.runs {
		if jobID != "" && run.JobID != jobID {
			continue
		}
		out = append(out, cloneRun(run))
	}
	// Newest first.
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateAlert(alert *entities.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[alert.ID] = cloneAlert(alert)
	return nil
}

func (s *Store) GetAlert(id string) (*entities.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alert, ok := s.alerts[id]
	if !ok {
		return nil, contract.NewNotFound("alert %q not found", id)
	}
	return cloneAlert(alert), nil
}

func (s *Store) UpdateAlert(alert *entities.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[alert.ID]; !ok {
		return contract.NewNotFound("alert %q not found", alert.ID)
	}
	s.alerts[alert.ID] = cloneAlert(alert)
	return nil
}

func (s *Store) ListAlerts(filter store.AlertFilter) ([]*entities.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entities.Alert, 0)
	for _, alert := range s.alerts {
		if filter.Status != "" && alert.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && alert.Severity != filter.Severity {
			continue
		}
		if filter.ModelID != "" && alert.ModelID != filter.ModelID {
			continue
		}
		out = append(out, cloneAlert(alert))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) FindActiveDuplicate(
	modelID string,
	alertType entities.AlertType,
	title string,
	since time.Time,
) (*entities.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, alert := range s.alerts {
		if alert.Status != entities.AlertStatusActive {
			continue
		}
		if alert.ModelID != modelID || alert.Type != alertType || alert.Title != title {
			continue
		}
		if alert.CreatedAt.Before(since) {
			continue
		}
		return cloneAlert(alert), nil
	}
	return nil, nil
}

func (s *Store) ReplaceBaselines(modelID string, baselines []*entities.Baseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	replacement := make([]*entities.Baseline, len(baselines))
	for i, b := range baselines {
		clone := *b
		replacement[i] = &clone
	}
	s.baselines[modelID] = replacement
	return nil
}

func (s *Store) GetBaselines(modelID string) ([]*entities.Baseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entities.Baseline, 0, len(s.baselines[modelID]))
	for _, b := range s.baselines[modelID] {
		clone := *b
		out = append(out, &clone)
	}
	return out, nil
}

func (s *Store) CreateRetrainJob(job *entities.RetrainJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.retrainJobs[job.ID]; ok {
		return contract.NewError(contract.ErrorCodeResourceConflict, "retrain job %q already exists", job.ID)
	}
	s.retrainJobs[job.ID] = cloneRetrainJob(job)
	return nil
}

func (s *Store) GetRetrainJob(id string) (*entities.RetrainJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.retrainJobs[id]
	if !ok {
		return nil, contract.NewNotFound("retrain job %q not found", id)
	}
	return cloneRetrainJob(job), nil
}

func (s *Store) UpdateRetrainJob(job *entities.RetrainJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.retrainJobs[job.ID]; !ok {
		return contract.NewNotFound("retrain job %q not found", job.ID)
	}
	s.retrainJobs[job.ID] = cloneRetrainJob(job)
	return nil
}

func (s *Store) ListRetrainJobs(
	modelID string,
	status entities.RetrainStatus,
	limit int,
) ([]*entities.RetrainJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entities.RetrainJob, 0)
	for _, job := range s.retrainJobs {
		if modelID != "" && job.ModelID != modelID {
			continue
		}
		if status != "" && job.Status != status {
			continue
		}
		out = append(out, cloneRetrainJob(job))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateABTest(test *entities.ABTest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.abTests[test.ID]; ok {
		return contract.NewError(contract.ErrorCodeResourceConflict, "ab test %q already exists", test.ID)
	}
	s.abTests[test.ID] = cloneABTest(test)
	return nil
}

func (s *Store) GetABTest(id string) (*entities.ABTest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	test, ok := s.abTests[id]
	if !ok {
		return nil, contract.NewNotFound("ab test %q not found", id)
	}
	return cloneABTest(test), nil
}

func (s *Store) UpdateABTest(test *entities.ABTest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.abTests[test.ID]; !ok {
		return contract.NewNotFound("ab test %q not found", test.ID)
	}
	s.abTests[test.ID] = cloneABTest(test)
	return nil
}

func (s *Store) ListABTests(status entities.ABTestStatus, limit int) ([]*entities.ABTest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entities.ABTest, 0)
	for _, test := range s.abTests {
		if status != "" && test.Status != status {
			continue
		}
		out = append(out, cloneABTest(test))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) FindRunning() (*entities.ABTest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, test := range s.abTests {
		if test.Status == entities.ABTestRunning || test.Status == entities.ABTestPaused {
			return cloneABTest(test), nil
		}
	}
	return nil, nil
}

func (s *Store) SaveDriftReport(report *entities.DriftReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.driftReps[report.ModelID] = cloneDriftReport(report)
	return nil
}

func (s *Store) GetDriftReport(modelID string) (*entities.DriftReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.driftReps[modelID]
	if !ok {
		return nil, contract.NewNotFound("no drift report for model %q", modelID)
	}
	return cloneDriftReport(report), nil
}

func (s *Store) SaveBiasReport(report *entities.BiasReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.biasReps[report.ModelID] = cloneBiasReport(report)
	return nil
}

func (s *Store) GetBiasReport(modelID string) (*entities.BiasReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.biasReps[modelID]
	if !ok {
		return nil, contract.NewNotFound("no bias report for model %q", modelID)
	}
	return cloneBiasReport(report), nil
}
