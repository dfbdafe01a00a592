// Package store defines the persistence interfaces the services depend
// on. Implementations: memory (tests, development) and sql (gorm).
package store

import (
	"time"

	"github.com/modelguard/modelguard/pkg/entities"
)

// JobStore persists monitoring jobs and their run history. Deleting a job
// retains its runs as an orphaned audit trail.
type JobStore interface {
	CreateJob(job *entities.MonitoringJob) error
	GetJob(id string) (*entities.MonitoringJob, error)
	UpdateJob(job *entities.MonitoringJob) error
	DeleteJob(id string) error
	ListJobs(kind entities.JobKind, modelID string) ([]*entities.MonitoringJob, error)

	CreateRun(run *entities.JobRun) error
	UpdateRun(run *entities.JobRun) error
	ListRuns(jobID string, limit int) ([]*entities.JobRun, error)
}

// AlertStore persists alerts. Alerts are never hard-deleted.
type AlertStore interface {
	CreateAlert(alert *entities.Alert) error
	GetAlert(id string) (*entities.Alert, error)
	UpdateAlert(alert *entities.Alert) error
	ListAlerts(filter AlertFilter) ([]*entities.Alert, error)
	// FindActiveDuplicate returns an ACTIVE alert with the same model,
	// type and title created after the cutoff, or nil.
	FindActiveDuplicate(modelID string, alertType entities.AlertType, title string, since time.Time) (*entities.Alert, error)
}

type AlertFilter struct {
	Status   entities.AlertStatus
	Severity entities.AlertSeverity
	ModelID  string
	Limit    int
}

// BaselineStore persists baseline thresholds. ReplaceBaselines is the
// only write path: the previous set for the model is dropped and the new
// set inserted in one transaction.
type BaselineStore interface {
	ReplaceBaselines(modelID string, baselines []*entities.Baseline) error
	GetBaselines(modelID string) ([]*entities.Baseline, error)
}

// RetrainStore persists retraining jobs.
type RetrainStore interface {
	CreateRetrainJob(job *entities.RetrainJob) error
	GetRetrainJob(id string) (*entities.RetrainJob, error)
	UpdateRetrainJob(job *entities.RetrainJob) error
	ListRetrainJobs(modelID string, status entities.RetrainStatus, limit int) ([]*entities.RetrainJob, error)
}

// ABTestStore persists champion/challenger tests.
type ABTestStore interface {
	CreateABTest(test *entities.ABTest) error
	GetABTest(id string) (*entities.ABTest, error)
	UpdateABTest(test *entities.ABTest) error
	ListABTests(status entities.ABTestStatus, limit int) ([]*entities.ABTest, error)
	// FindRunning returns the RUNNING or PAUSED test, or nil.
	FindRunning() (*entities.ABTest, error)
}

// ReportStore keeps the latest drift/bias report per model; a new report
// supersedes the previous one.
type ReportStore interface {
	SaveDriftReport(report *entities.DriftReport) error
	GetDriftReport(modelID string) (*entities.DriftReport, error)
	SaveBiasReport(report *entities.BiasReport) error
	GetBiasReport(modelID string) (*entities.BiasReport, error)
}

// Store is the full persistence surface, injected into the services.
type Store interface {
	JobStore
	AlertStore
	BaselineStore
	RetrainStore
	ABTestStore
	ReportStore
}
