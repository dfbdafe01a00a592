package entities

// HealthStatus is the three-level verdict shared by drift, bias and
// performance checks. Aggregation always takes the worst status.
type HealthStatus string

const (
	StatusOK       HealthStatus = "OK"
	StatusWarning  HealthStatus = "WARNING"
	StatusCritical HealthStatus = "CRITICAL"
)

// Worse returns the more severe of the two statuses.
func (s HealthStatus) Worse(other HealthStatus) HealthStatus {
	if s.rank() >= other.rank() {
		return s
	}
	return other
}

func (s HealthStatus) rank() int {
	switch s {
	case StatusCritical:
		return 2
	case StatusWarning:
		return 1
	default:
		return 0
	}
}

type JobKind string

const (
	JobKindDriftCheck       JobKind = "DRIFT_CHECK"
	JobKindBiasCheck        JobKind = "BIAS_CHECK"
	JobKindPerformanceCheck JobKind = "PERFORMANCE_CHECK"
	JobKindModelRetrain     JobKind = "MODEL_RETRAIN"
	JobKindDataCleanup      JobKind = "DATA_CLEANUP"
)

func (k JobKind) Valid() bool {
	switch k {
	case JobKindDriftCheck, JobKindBiasCheck, JobKindPerformanceCheck,
		JobKindModelRetrain, JobKindDataCleanup:
		return true
	}
	return false
}

type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

type AlertType string

const (
	AlertTypeDrift       AlertType = "DRIFT"
	AlertTypePerformance AlertType = "PERFORMANCE"
	AlertTypeBias        AlertType = "BIAS"
	AlertTypeSystem      AlertType = "SYSTEM"
)

func (t AlertType) Valid() bool {
	switch t {
	case AlertTypeDrift, AlertTypePerformance, AlertTypeBias, AlertTypeSystem:
		return true
	}
	return false
}

type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "INFO"
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityCritical AlertSeverity = "CRITICAL"
)

func (s AlertSeverity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "ACTIVE"
	AlertStatusAcknowledged AlertStatus = "ACKNOWLEDGED"
	AlertStatusResolved     AlertStatus = "RESOLVED"
)

type RetrainReason string

const (
	ReasonScheduled              RetrainReason = "SCHEDULED"
	ReasonDriftDetected          RetrainReason = "DRIFT_DETECTED"
	ReasonPerformanceDegradation RetrainReason = "PERFORMANCE_DEGRADATION"
	ReasonBiasDetected           RetrainReason = "BIAS_DETECTED"
	ReasonManual                 RetrainReason = "MANUAL"
	ReasonNewData                RetrainReason = "NEW_DATA"
)

func (r RetrainReason) Valid() bool {
	switch r {
	case ReasonScheduled, ReasonDriftDetected, ReasonPerformanceDegradation,
		ReasonBiasDetected, ReasonManual, ReasonNewData:
		return true
	}
	return false
}

type RetrainStatus string

const (
	RetrainPending         RetrainStatus = "PENDING"
	RetrainDataPreparation RetrainStatus = "DATA_PREPARATION"
	RetrainTraining        RetrainStatus = "TRAINING"
	RetrainValidation      RetrainStatus = "VALIDATION"
	RetrainComparison      RetrainStatus = "COMPARISON"
	RetrainCompleted       RetrainStatus = "COMPLETED"
	RetrainFailed          RetrainStatus = "FAILED"
	RetrainRejected        RetrainStatus = "REJECTED"
)

// Terminal reports whether the retrain state machine can move on from s.
func (s RetrainStatus) Terminal() bool {
	return s == RetrainCompleted || s == RetrainFailed || s == RetrainRejected
}

type ABTestStatus string

const (
	ABTestDraft     ABTestStatus = "DRAFT"
	ABTestRunning   ABTestStatus = "RUNNING"
	ABTestPaused    ABTestStatus = "PAUSED"
	ABTestCompleted ABTestStatus = "COMPLETED"
	ABTestAborted   ABTestStatus = "ABORTED"
)

type ABTestResult string

const (
	ABResultPending        ABTestResult = "PENDING"
	ABResultChallengerWins ABTestResult = "CHALLENGER_WINS"
	ABResultChampionWins   ABTestResult = "CHAMPION_WINS"
	ABResultNoSignificance ABTestResult = "NO_SIGNIFICANT_DIFFERENCE"
)

func (r ABTestResult) Valid() bool {
	switch r {
	case ABResultPending, ABResultChallengerWins, ABResultChampionWins, ABResultNoSignificance:
		return true
	}
	return false
}

// BaselineOperator is the comparison applied between a current metric value
// and its configured threshold.
type BaselineOperator string

const (
	OpGTE BaselineOperator = "gte"
	OpLTE BaselineOperator = "lte"
	OpEQ  BaselineOperator = "eq"
	OpGT  BaselineOperator = "gt"
	OpLT  BaselineOperator = "lt"
)

func (o BaselineOperator) Valid() bool {
	switch o {
	case OpGTE, OpLTE, OpEQ, OpGT, OpLT:
		return true
	}
	return false
}
