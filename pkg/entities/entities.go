// Package entities holds the domain records shared between the services,
// the stores and the HTTP layer. The stores own persistence of these
// shapes; no service mutates another service's entities.
package entities

import "time"

// MonitoringJob is a scheduled health check against a model.
type MonitoringJob struct {
	ID       string         `json:"id"`
	Kind     JobKind        `json:"job_type"`
	Schedule string         `json:"schedule"`
	ModelID  string         `json:"model_id,omitempty"`
	Enabled  bool           `json:"enabled"`
	LastRun  *time.Time     `json:"last_run,omitempty"`
	NextRun  time.Time      `json:"next_run"`
	Status   JobStatus      `json:"status"`
	Config   map[string]any `json:"config,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// JobRun is one execution of a MonitoringJob. Immutable once finalized;
// retained as audit history even after the owning job is deleted.
type JobRun struct {
	ID          string         `json:"id"`
	JobID       string         `json:"job_id"`
	Kind        JobKind        `json:"job_type"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Status      JobStatus      `json:"status"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// FeatureDrift is the drift verdict for a single feature.
type FeatureDrift struct {
	PSI         float64      `json:"psi"`
	KSStatistic float64      `json:"ks_statistic"`
	KSPValue    float64      `json:"ks_p_value"`
	Status      HealthStatus `json:"status"`
	Trend       string       `json:"trend"`

	RefMean  float64 `json:"ref_mean"`
	RefStd   float64 `json:"ref_std"`
	CurMean  float64 `json:"curr_mean"`
	CurStd   float64 `json:"curr_std"`
	RefCount int     `json:"ref_count"`
	CurCount int     `json:"curr_count"`
}

// DriftReport is the latest drift verdict for a model. A new report for
// the same model supersedes the previous one.
type DriftReport struct {
	ModelID         string                  `json:"model_id"`
	ComputedAt      time.Time               `json:"computed_at"`
	OverallStatus   HealthStatus            `json:"overall_status"`
	Features        map[string]FeatureDrift `json:"features"`
	DriftedFeatures int                     `json:"drifted_features"`
}

// AttributeBias is the fairness verdict for one protected attribute.
type AttributeBias struct {
	DemographicParityDiff float64            `json:"demographic_parity_diff"`
	EqualizedOddsDiff     float64            `json:"equalized_odds_diff"`
	DisparateImpact       float64            `json:"disparate_impact"`
	GroupRates            map[string]float64 `json:"group_rates"`
	Status                HealthStatus       `json:"status"`
}

// BiasReport is the latest fairness verdict for a model.
type BiasReport struct {
	ModelID       string                   `json:"model_id"`
	ComputedAt    time.Time                `json:"computed_at"`
	OverallStatus HealthStatus             `json:"overall_status"`
	Attributes    map[string]AttributeBias `json:"attributes"`
}

// Baseline is an operator-configured metric threshold. The full set for a
// model is always replaced atomically, never patched.
type Baseline struct {
	ID        string           `json:"id"`
	ModelID   string           `json:"model_id"`
	Metric    string           `json:"metric"`
	Threshold float64          `json:"threshold"`
	Operator  BaselineOperator `json:"operator"`
	Severity  AlertSeverity    `json:"severity"`
	Active    bool             `json:"active"`
	CreatedAt time.Time        `json:"created_at"`
}

// BaselineCheck is the outcome of evaluating one baseline against the
// model's current metric map.
type BaselineCheck struct {
	Metric       string           `json:"metric"`
	CurrentValue float64          `json:"current_value"`
	Threshold    float64          `json:"threshold"`
	Operator     BaselineOperator `json:"operator"`
	Passed       bool             `json:"passed"`
	Severity     AlertSeverity    `json:"severity"`
	Message      string           `json:"message"`
}

// Alert is an operator-facing notification record. Alerts are never hard
// deleted; acknowledge/resolve transitions preserve the audit trail.
type Alert struct {
	ID             string         `json:"id"`
	ModelID        string         `json:"model_id,omitempty"`
	Type           AlertType      `json:"alert_type"`
	Severity       AlertSeverity  `json:"severity"`
	Status         AlertStatus    `json:"status"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Details        map[string]any `json:"details,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	AcknowledgedAt *time.Time     `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string         `json:"acknowledged_by,omitempty"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
	ResolutionNote string         `json:"resolution_note,omitempty"`
}

// AlertSummary aggregates alert counts by status, severity and type.
type AlertSummary struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	BySeverity map[string]int `json:"by_severity"`
	ByType     map[string]int `json:"by_type"`
}

// RetrainConfig controls one retraining run.
type RetrainConfig struct {
	Algorithm               string  `json:"algorithm"`
	DataWindowDays          int     `json:"data_window_days"`
	ValidationSplit         float64 `json:"validation_split"`
	HyperparameterTuning    bool    `json:"hyperparameter_tuning"`
	FairnessConstraint      bool    `json:"fairness_constraint"`
	PrimaryMetric           string  `json:"primary_metric"`
	MinImprovementThreshold float64 `json:"min_improvement_threshold"`
	AutoPromote             bool    `json:"auto_promote"`
}

// DefaultRetrainConfig mirrors the defaults used for fraud models.
func DefaultRetrainConfig() RetrainConfig {
	return RetrainConfig{
		Algorithm:               "xgboost",
		DataWindowDays:          90,
		ValidationSplit:         0.2,
		HyperparameterTuning:    true,
		FairnessConstraint:      true,
		PrimaryMetric:           "f1",
		MinImprovementThreshold: 0.01,
	}
}

// ComparisonResult captures the COMPARISON stage verdict: the candidate's
// metrics against the incumbent's, per-metric improvement, and whether the
// candidate clears the configured improvement threshold.
type ComparisonResult struct {
	CurrentMetrics   map[string]float64 `json:"current_model"`
	CandidateMetrics map[string]float64 `json:"new_model"`
	Improvement      map[string]float64 `json:"improvement"`
	IsBetter         bool               `json:"is_better"`
	PassesThreshold  bool               `json:"passes_threshold"`
}

// RetrainJob tracks one pass through the retraining pipeline.
type RetrainJob struct {
	ID          string             `json:"id"`
	ModelID     string             `json:"model_id"`
	Reason      RetrainReason      `json:"reason"`
	Status      RetrainStatus      `json:"status"`
	Config      RetrainConfig      `json:"config"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	CurrentStep string             `json:"current_step"`
	Progress    float64            `json:"progress"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
	NewModelID  string             `json:"new_model_id,omitempty"`
	Comparison  *ComparisonResult  `json:"comparison_result,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// ABTestConfig controls a champion/challenger test.
type ABTestConfig struct {
	TrafficPercent           float64  `json:"challenger_traffic_percent"`
	MinSamples               int      `json:"min_samples"`
	MaxDurationHours         int      `json:"max_duration_hours"`
	PrimaryMetric            string   `json:"primary_metric"`
	SecondaryMetrics         []string `json:"secondary_metrics"`
	AutoPromoteOnWin         bool     `json:"auto_promote_on_win"`
	RollbackOnDrop           bool     `json:"rollback_on_performance_drop"`
	PerformanceDropThreshold float64  `json:"performance_drop_threshold"`
}

// DefaultABTestConfig starts the challenger on 10% traffic with a one week cap.
func DefaultABTestConfig() ABTestConfig {
	return ABTestConfig{
		TrafficPercent:           10,
		MinSamples:               1000,
		MaxDurationHours:         168,
		PrimaryMetric:            "f1",
		SecondaryMetrics:         []string{"precision", "recall", "auc"},
		RollbackOnDrop:           true,
		PerformanceDropThreshold: 0.05,
	}
}

// ArmStats holds the running aggregates for one test arm. Confusion
// counts only move when a prediction arrives with its ground-truth label.
type ArmStats struct {
	Samples        int     `json:"samples"`
	Positives      int     `json:"positives"`
	Labeled        int     `json:"labeled"`
	Correct        int     `json:"correct"`
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	FalseNegatives int     `json:"false_negatives"`
	TotalLatency   float64 `json:"total_latency_ms"`
}

// StatisticalAnalysis is the snapshot produced by an A/B evaluation.
type StatisticalAnalysis struct {
	PrimaryMetric   string       `json:"primary_metric"`
	ChampionValue   float64      `json:"champion_value"`
	ChallengerValue float64      `json:"challenger_value"`
	Difference      float64      `json:"difference"`
	DifferencePct   float64      `json:"difference_percent"`
	IsSignificant   bool         `json:"is_significant"`
	Confidence      float64      `json:"confidence"`
	Recommendation  string       `json:"recommendation"`
	Result          ABTestResult `json:"result"`
}

// ABTest is a champion/challenger comparison record.
type ABTest struct {
	ID                string               `json:"id"`
	Name              string               `json:"name"`
	ChampionModelID   string               `json:"champion_model_id"`
	ChallengerModelID string               `json:"challenger_model_id"`
	Config            ABTestConfig         `json:"config"`
	Status            ABTestStatus         `json:"status"`
	Result            ABTestResult         `json:"result"`
	CreatedAt         time.Time            `json:"created_at"`
	StartedAt         *time.Time           `json:"started_at,omitempty"`
	EndedAt           *time.Time           `json:"ended_at,omitempty"`
	Champion          ArmStats             `json:"champion"`
	Challenger        ArmStats             `json:"challenger"`
	ChampionMetrics   map[string]float64   `json:"champion_metrics,omitempty"`
	ChallengerMetrics map[string]float64   `json:"challenger_metrics,omitempty"`
	Analysis          *StatisticalAnalysis `json:"statistical_analysis,omitempty"`
}
