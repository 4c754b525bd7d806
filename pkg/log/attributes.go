// Package log defines standard attribute keys for training and prediction logs.
//
// Using these keys keeps log records from every predictor and optimizer
// consistent, so that a training run can be followed across components.
// Keys follow a hierarchical naming convention ("model.name",
// "data.samples") to make filtering easy.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the predictor type.
	// Examples: "LinearRegression", "NeuralNetwork", "DecisionTree"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "train", "predict", "minimize", "normalize"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	// Examples: "linear", "optimize", "matrix"
	ComponentKey = "ml.component"

	// AlgorithmKey identifies the optimization algorithm of a training run.
	AlgorithmKey = "ml.algorithm"

	// ImplementationKey records whether kernels run sequentially or in parallel.
	ImplementationKey = "ml.implementation"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of rows in the matrix.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of feature columns, bias excluded.
	FeaturesKey = "data.features"

	// ClassesKey indicates the number of classes of a classifier.
	ClassesKey = "data.classes"

	// ParametersKey indicates the length of the trained parameter vector.
	ParametersKey = "model.parameters"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// LossKey records the cost at the end of an optimization run.
	LossKey = "metrics.loss"

	// InitialLossKey records the cost evaluated at the initial parameters.
	InitialLossKey = "metrics.initial_loss"

	// AccuracyKey records classification accuracy in [0, 1].
	AccuracyKey = "metrics.accuracy"

	// IterationKey records the iteration count of an iterative algorithm.
	IterationKey = "training.iteration"

	// StatusKey records the termination status of an optimizer.
	StatusKey = "training.status"

	// DepthKey records the depth of a trained decision tree.
	DepthKey = "training.depth"
)

// Hyperparameters
const (
	// LearningRateKey records the learning rate for gradient descent.
	LearningRateKey = "hyperparams.learning_rate"

	// RegularizationKey records the regularization coefficient.
	RegularizationKey = "hyperparams.regularization"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute values.
const (
	OperationTrain    = "train"
	OperationMinimize = "minimize"

	ErrorConvergence    = "CONVERGENCE_FAILURE"
	ErrorSingularMatrix = "SINGULAR_MATRIX"
)

// Error Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// SuggestionKey provides a hint for resolving an issue.
	SuggestionKey = "error.suggestion"
)
