// Package log defines standard attribute keys for machine learning operations.
//
// The keys follow a hierarchical naming convention (e.g., "model.name",
// "data.samples") so that logs from the tune, train and intervals stages
// can be filtered the same way.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator type.
	// Examples: "XGBRegressor", "LGBMClassifier", "KNeighborsRegressor"
	ModelNameKey = "model.name"

	// ModelFamilyKey is the gradient-boosting family: xgboost, lightgbm or catboost.
	ModelFamilyKey = "model.family"

	// ProblemTypeKey is regression, classification or multiclass.
	ProblemTypeKey = "model.problem_type"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package emitted the record.
	ComponentKey = "ml.component"

	// StageKey is the pipeline stage: tune, train, intervals or plot.
	StageKey = "pipeline.stage"

	// RunIDKey correlates all records of one CLI invocation.
	RunIDKey = "pipeline.run_id"

	// DatasetKey is the dataset label used in output file names.
	DatasetKey = "pipeline.dataset"
)

// Data Shape
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ClassesKey  = "data.classes"

	// PathKey is an input or output file path.
	PathKey = "data.path"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	LossKey    = "metrics.loss"
	R2ScoreKey = "metrics.r2_score"

	// ScoreKey is a cross-validated search score, whatever the scorer.
	ScoreKey = "metrics.score"

	// CoverageKey is the fraction of targets that fall inside their interval.
	CoverageKey = "metrics.coverage"

	IterationKey = "training.iteration"
)

// Search and Interval Context
const (
	ScorerKey       = "search.scorer"
	CandidatesKey   = "search.candidates"
	FoldsKey        = "search.folds"
	CandidateKey    = "search.candidate"
	SignificanceKey = "intervals.significance"
	StrategyKey     = "intervals.strategy"
)

// Error Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// StacktraceKey contains the cockroachdb stack trace of a logged error.
	StacktraceKey = "error.stacktrace"

	// ErrorDetailsKey holds the structured fields of a typed error.
	ErrorDetailsKey = "error.details"

	// SuggestionKey provides a hint for resolving the issue.
	SuggestionKey = "error.suggestion"
)

// Hyperparameters and Configuration
const (
	HyperParamsKey  = "model.hyperparams"
	LearningRateKey = "hyperparams.learning_rate"
	RandomSeedKey   = "config.random_seed"
)

// Standard attribute value constants.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationScore     = "score"
	OperationTune      = "tune"
	OperationCalibrate = "calibrate"
	OperationSave      = "save"
	OperationLoad      = "load"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
)
