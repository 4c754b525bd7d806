package model

// Predictor は全ての予測器が共有する学習ライフサイクルのインターフェース
type Predictor interface {
	// Train runs the optimization (or split search) against the bound matrix.
	Train() error
	// IsTrained reports whether Train has completed successfully.
	IsTrained() bool
}

// Regressor predicts a continuous value for a feature vector.
type Regressor interface {
	Predictor
	Predict(x []float64) (float64, error)
}

// Classifier predicts a class label for a feature vector.
type Classifier interface {
	Predictor
	// Predict returns the label of the most probable class.
	Predict(x []float64) (int, error)
	// PredictProbabilities returns one probability per class, ordered by
	// class index.
	PredictProbabilities(x []float64) ([]float64, error)
	// Classes returns the label table the classifier was built with.
	Classes() *Classes
}

// ParameterExporter exposes a trained predictor's raw parameter buffer.
type ParameterExporter interface {
	ExportParameters() ([]float64, error)
	ImportParameters(params []float64) error
}
