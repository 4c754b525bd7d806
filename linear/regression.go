// Package linear provides linear regression trained by any of the
// least-squares capable optimizers.
package linear

import (
	"fmt"
	"time"

	"github.com/YuminosukeSato/learnkit/core/accel"
	"github.com/YuminosukeSato/learnkit/core/matrix"
	"github.com/YuminosukeSato/learnkit/core/model"
	"github.com/YuminosukeSato/learnkit/core/parallel"
	"github.com/YuminosukeSato/learnkit/metrics"
	"github.com/YuminosukeSato/learnkit/optimize"
	"github.com/YuminosukeSato/learnkit/pkg/errors"
	"github.com/YuminosukeSato/learnkit/pkg/log"
)

const modelName = "Regression"

// Regression は線形回帰モデル
//
// コスト関数:
//
//	J(θ) = (1/2m) Σ (xᵢθ - yᵢ)² + penalty(θ₁..θₙ)
//
// θ₀ は切片で、正則化の対象外。
type Regression struct {
	state *model.StateManager

	matrix         *matrix.Matrix
	algorithm      optimize.Algorithm
	regularization model.Regularization
	implementation model.Implementation
	initial        []float64
	logger         log.Logger

	theta  []float64
	result *optimize.Result
}

var (
	_ model.Regressor         = (*Regression)(nil)
	_ model.ParameterExporter = (*Regression)(nil)
)

// NewRegression binds a linear regression to m. A bias column is added when
// m lacks one and m must carry an output vector. algorithm must be
// GradientDescent, NormalEquations or LBFGS.
func NewRegression(m *matrix.Matrix, algorithm optimize.Algorithm, opts ...Option) (*Regression, error) {
	if m == nil {
		return nil, errors.NewValidationError("matrix", "must not be nil", nil)
	}
	if !m.HasOutput() {
		return nil, errors.NewPreconditionError("NewRegression", "matrix has an output vector", errors.ErrNoOutputVector)
	}
	switch algorithm.(type) {
	case *optimize.GradientDescent, *optimize.NormalEquations, *optimize.LBFGS:
	case nil:
		return nil, errors.NewValidationError("algorithm", "must not be nil", nil)
	default:
		return nil, errors.NewValidationError("algorithm",
			"linear regression supports gradient descent, normal equations and L-BFGS", algorithm.Name())
	}

	lr := &Regression{
		state:          model.NewStateManager(),
		matrix:         m.AddingBiasColumn(),
		algorithm:      algorithm,
		implementation: model.Sequential,
		logger:         log.GetLoggerWithName("linear"),
	}
	for _, opt := range opts {
		opt(lr)
	}
	if err := lr.regularization.Validate(); err != nil {
		return nil, err
	}
	if lr.initial == nil {
		lr.initial = make([]float64, lr.matrix.Width())
	} else if len(lr.initial) != lr.matrix.Width() {
		return nil, errors.NewDimensionError("NewRegression", lr.matrix.Width(), len(lr.initial), 0)
	}

	if _, ok := algorithm.(*optimize.NormalEquations); ok && lr.regularization.Enabled() {
		w := errors.NewIgnoredSettingWarning("regularization",
			"normal equations solve the unpenalized problem; use optimize.WithRidge instead")
		lr.logger.Warn(w.Error(), log.ModelNameKey, modelName)
		errors.Warn(w)
		lr.regularization = model.NoRegularization
	}
	return lr, nil
}

// Matrix returns the training matrix, with its bias column.
func (lr *Regression) Matrix() *matrix.Matrix { return lr.matrix }

// evaluate returns J(θ) and, when grad is non-nil, stores ∇J(θ) into it.
func (lr *Regression) evaluate(theta, grad []float64) float64 {
	m := lr.matrix.Rows()
	n := len(theta)
	y := lr.matrix.Output()

	// acc[0] は二乗誤差の和、acc[1:] は勾配の和
	width := 1
	if grad != nil {
		width += n
	}
	acc := parallel.Reduce(m, lr.implementation.Threshold(), width, func(start, end int, acc []float64) {
		for i := start; i < end; i++ {
			row := lr.matrix.Row(i)
			r := accel.Dot(row, theta) - y[i]
			acc[0] += r * r
			if grad != nil {
				for j, x := range row {
					acc[1+j] += r * x
				}
			}
		}
	})

	cost := acc[0]/(2*float64(m)) + lr.regularization.Penalty(theta[1:], m)
	if grad != nil {
		accel.Scale(grad, 1/float64(m), acc[1:])
		lr.regularization.AddGradient(grad[1:], theta[1:], m)
	}
	return cost
}

// Cost returns J(θ) on the training matrix.
func (lr *Regression) Cost(theta []float64) float64 {
	return lr.evaluate(theta, nil)
}

// Gradient stores ∇J(θ) into grad.
func (lr *Regression) Gradient(grad, theta []float64) {
	lr.evaluate(theta, grad)
}

func (lr *Regression) objective() optimize.Objective {
	return optimize.Objective{
		Cost:     lr.Cost,
		Gradient: lr.Gradient,
		LeastSquares: &optimize.LeastSquares{
			X: lr.matrix.Dense(),
			Y: lr.matrix.Output(),
		},
	}
}

// Train はモデルを学習させる
//
// 学習済みのモデルに対しては errors.ErrAlreadyTrained を返す。
// 失敗した場合は未学習状態に戻る。
func (lr *Regression) Train() error {
	if err := lr.state.Begin("Regression.Train"); err != nil {
		return err
	}

	logger := lr.logger.With(log.ModelNameKey, modelName)
	logger.Info("Training started",
		log.OperationKey, log.OperationTrain,
		log.AlgorithmKey, lr.algorithm.Name(),
		log.ImplementationKey, lr.implementation.String(),
		log.SamplesKey, lr.matrix.Rows(),
		log.FeaturesKey, lr.matrix.Columns(),
		log.RegularizationKey, lr.regularization.Lambda,
	)
	started := time.Now()

	res, err := lr.algorithm.Minimize(lr.objective(), lr.initial)
	if err != nil {
		lr.state.Fail()
		fields := []any{err, log.OperationKey, log.OperationTrain}
		if errors.Is(err, errors.ErrSingularMatrix) {
			fields = append(fields,
				log.ErrorCodeKey, log.ErrorSingularMatrix,
				log.SuggestionKey, "add a ridge penalty with optimize.WithRidge or drop collinear columns",
			)
		}
		logger.Error("Training failed", fields...)
		return errors.NewModelError("Regression.Train", "training failed", err)
	}

	lr.theta = res.Parameters
	lr.result = res
	lr.state.Finish(lr.matrix.Columns(), lr.matrix.Rows())

	logger.Info("Training finished",
		log.OperationKey, log.OperationTrain,
		log.StatusKey, res.Status.String(),
		log.IterationKey, res.Iterations,
		log.LossKey, res.Cost,
		log.DurationMsKey, time.Since(started).Milliseconds(),
	)
	return nil
}

// IsTrained reports whether Train has completed.
func (lr *Regression) IsTrained() bool {
	return lr.state.IsTrained()
}

// predictFeatures evaluates θ on a feature vector that is already in the
// training matrix's scale.
func (lr *Regression) predictFeatures(x []float64) float64 {
	return lr.theta[0] + accel.Dot(lr.theta[1:], x)
}

// Predict returns the predicted value for a raw feature vector of Columns()
// entries. When the training matrix is normalized, x is normalized with the
// training statistics first.
func (lr *Regression) Predict(x []float64) (float64, error) {
	if err := lr.state.RequireTrained(modelName, "Predict"); err != nil {
		return 0, err
	}
	if len(x) != lr.matrix.Columns() {
		return 0, errors.NewDimensionError("Regression.Predict", lr.matrix.Columns(), len(x), 0)
	}
	if lr.matrix.IsNormalized() {
		nx, err := lr.matrix.NormalizeVector(x)
		if err != nil {
			return 0, err
		}
		x = nx
	}
	return lr.predictFeatures(x), nil
}

// PredictMatrix predicts every row of test. Rows of a normalized test
// matrix are used as they are; rows of a raw test matrix go through Predict.
func (lr *Regression) PredictMatrix(test *matrix.Matrix) ([]float64, error) {
	if err := lr.state.RequireTrained(modelName, "PredictMatrix"); err != nil {
		return nil, err
	}
	if test.Columns() != lr.matrix.Columns() {
		return nil, errors.NewDimensionError("Regression.PredictMatrix", lr.matrix.Columns(), test.Columns(), 1)
	}
	out := make([]float64, test.Rows())
	for i := range out {
		x := test.Features(i)
		if test.IsNormalized() {
			out[i] = lr.predictFeatures(x)
			continue
		}
		v, err := lr.Predict(x)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (lr *Regression) testOutputs(op string, test *matrix.Matrix) (pred, y []float64, err error) {
	if !test.HasOutput() {
		return nil, nil, errors.NewPreconditionError(op, "test matrix has an output vector", errors.ErrNoOutputVector)
	}
	pred, err = lr.PredictMatrix(test)
	if err != nil {
		return nil, nil, err
	}
	return pred, test.Output(), nil
}

// AverageCost returns (1/2m) Σ (ŷᵢ - yᵢ)² over test, without penalty.
func (lr *Regression) AverageCost(test *matrix.Matrix) (float64, error) {
	pred, y, err := lr.testOutputs("Regression.AverageCost", test)
	if err != nil {
		return 0, err
	}
	mse, err := metrics.MSE(y, pred)
	if err != nil {
		return 0, err
	}
	return mse / 2, nil
}

// Score returns the coefficient of determination R² over test.
func (lr *Regression) Score(test *matrix.Matrix) (float64, error) {
	pred, y, err := lr.testOutputs("Regression.Score", test)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(y, pred)
}

// Parameters returns a copy of θ, intercept first.
func (lr *Regression) Parameters() ([]float64, error) {
	if err := lr.state.RequireTrained(modelName, "Parameters"); err != nil {
		return nil, err
	}
	return append([]float64(nil), lr.theta...), nil
}

// Result returns the optimizer outcome of the last Train, or nil.
func (lr *Regression) Result() *optimize.Result {
	return lr.result
}

// ExportParameters implements model.ParameterExporter.
func (lr *Regression) ExportParameters() ([]float64, error) {
	return lr.Parameters()
}

// ImportParameters installs θ on an untrained regression, which becomes
// trained without running the optimizer.
func (lr *Regression) ImportParameters(params []float64) error {
	if len(params) != lr.matrix.Width() {
		return errors.NewDimensionError("Regression.ImportParameters", lr.matrix.Width(), len(params), 0)
	}
	if err := lr.state.Begin("Regression.ImportParameters"); err != nil {
		return err
	}
	lr.theta = append([]float64(nil), params...)
	lr.state.Finish(lr.matrix.Columns(), lr.matrix.Rows())
	return nil
}

func (lr *Regression) String() string {
	if !lr.IsTrained() {
		return fmt.Sprintf("Regression(%s, untrained)", lr.algorithm.Name())
	}
	return fmt.Sprintf("Regression(%s, θ=%v)", lr.algorithm.Name(), lr.theta)
}
