package optimize

import (
	"math"
	"sync"
	"testing"

	"github.com/YuminosukeSato/learnkit/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var (
	_ Algorithm = (*GradientDescent)(nil)
	_ Algorithm = (*NormalEquations)(nil)
	_ Algorithm = (*LBFGS)(nil)
	_ Algorithm = (*ConjugateGradient)(nil)
)

// captureWarnings collects warnings raised during a test.
func captureWarnings(t *testing.T) func() []error {
	t.Helper()
	var mu sync.Mutex
	var warnings []error
	errors.SetWarningHandler(func(w error) {
		mu.Lock()
		defer mu.Unlock()
		warnings = append(warnings, w)
	})
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })
	return func() []error {
		mu.Lock()
		defer mu.Unlock()
		return append([]error(nil), warnings...)
	}
}

// quadratic is Σ wᵢ(xᵢ - cᵢ)².
func quadratic(c, w []float64) Objective {
	return Objective{
		Cost: func(x []float64) float64 {
			var s float64
			for i := range x {
				d := x[i] - c[i]
				s += w[i] * d * d
			}
			return s
		},
		Gradient: func(grad, x []float64) {
			for i := range x {
				grad[i] = 2 * w[i] * (x[i] - c[i])
			}
		},
	}
}

func rosenbrock() Objective {
	return Objective{
		Cost: func(x []float64) float64 {
			a := 1 - x[0]
			b := x[1] - x[0]*x[0]
			return a*a + 100*b*b
		},
		Gradient: func(grad, x []float64) {
			b := x[1] - x[0]*x[0]
			grad[0] = -2*(1-x[0]) - 400*x[0]*b
			grad[1] = 200 * b
		},
	}
}

func TestGradientDescentConverges(t *testing.T) {
	gd, err := NewGradientDescent(WithLearningRate(0.1), WithConvergenceThreshold(1e-14))
	require.NoError(t, err)

	initial := []float64{0, 0}
	res, err := gd.Minimize(quadratic([]float64{3, -1}, []float64{1, 2}), initial)
	require.NoError(t, err)

	assert.Equal(t, Converged, res.Status)
	assert.Len(t, res.Parameters, 2)
	assert.InDelta(t, 3, res.Parameters[0], 1e-5)
	assert.InDelta(t, -1, res.Parameters[1], 1e-5)
	assert.Equal(t, 11.0, res.InitialCost)
	assert.Equal(t, res.InitialCost, res.CostHistory[0])
	assert.Less(t, res.Cost, 1e-9)
	assert.False(t, res.Degenerate())
	assert.True(t, res.Converged())
	assert.Equal(t, []float64{0, 0}, initial, "initial guess must not be modified")
}

func TestGradientDescentCostHistoryIsMonotone(t *testing.T) {
	gd, err := NewGradientDescent(WithLearningRate(0.05))
	require.NoError(t, err)
	res, err := gd.Minimize(quadratic([]float64{1}, []float64{1}), []float64{10})
	require.NoError(t, err)
	for i := 1; i < len(res.CostHistory); i++ {
		assert.LessOrEqual(t, res.CostHistory[i], res.CostHistory[i-1])
	}
}

func TestGradientDescentDiverges(t *testing.T) {
	warnings := captureWarnings(t)
	gd, err := NewGradientDescent(WithLearningRate(1.5), WithDivergencePatience(3))
	require.NoError(t, err)

	res, err := gd.Minimize(quadratic([]float64{0}, []float64{1}), []float64{1})
	require.NoError(t, err, "divergence is reported through the status")

	assert.Equal(t, Diverged, res.Status)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, []float64{1}, res.Parameters, "best parameters are the initial ones")
	assert.Equal(t, 1.0, res.Cost)

	require.Len(t, warnings(), 1)
	var cw *errors.ConvergenceWarning
	assert.True(t, errors.As(warnings()[0], &cw))
	assert.Equal(t, "gradient_descent", cw.Algorithm)
}

func TestGradientDescentAdaptiveRecovers(t *testing.T) {
	gd, err := NewGradientDescent(WithLearningRate(1.5), WithSchedule(Adaptive), WithConvergenceThreshold(1e-15))
	require.NoError(t, err)

	res, err := gd.Minimize(quadratic([]float64{0}, []float64{1}), []float64{1})
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.InDelta(t, 0, res.Parameters[0], 1e-6)
}

func TestGradientDescentInverseScaling(t *testing.T) {
	gd, err := NewGradientDescent(WithLearningRate(0.4), WithSchedule(InverseScaling), WithDecay(0.01))
	require.NoError(t, err)
	res, err := gd.Minimize(quadratic([]float64{2}, []float64{1}), []float64{0})
	require.NoError(t, err)
	assert.InDelta(t, 2, res.Parameters[0], 1e-4)
}

func TestGradientDescentIterationLimitWarns(t *testing.T) {
	warnings := captureWarnings(t)
	gd, err := NewGradientDescent(WithLearningRate(1e-4), WithMaxIterations(5))
	require.NoError(t, err)
	res, err := gd.Minimize(quadratic([]float64{100}, []float64{1}), []float64{0})
	require.NoError(t, err)
	assert.Equal(t, IterationLimit, res.Status)
	assert.Equal(t, 5, res.Iterations)
	assert.Len(t, warnings(), 1)
}

func TestDegenerateStart(t *testing.T) {
	algs := []Algorithm{}
	gd, _ := NewGradientDescent()
	lb, _ := NewLBFGS()
	cg, _ := NewConjugateGradient()
	algs = append(algs, gd, lb, cg)

	for _, alg := range algs {
		t.Run(alg.Name(), func(t *testing.T) {
			res, err := alg.Minimize(quadratic([]float64{1, 2}, []float64{1, 1}), []float64{1, 2})
			require.NoError(t, err)
			assert.True(t, res.Degenerate())
			assert.Equal(t, 0.0, res.InitialCost)
			assert.Equal(t, []float64{1, 2}, res.Parameters)
			assert.Equal(t, 0, res.Iterations)
		})
	}
}

func TestGonumMethodsOnRosenbrock(t *testing.T) {
	lb, err := NewLBFGS()
	require.NoError(t, err)
	hs, err := NewConjugateGradient(WithVariant(HestenesStiefel), WithCGMaxIterations(2000))
	require.NoError(t, err)
	pr, err := NewConjugateGradient(WithCGMaxIterations(2000))
	require.NoError(t, err)

	for _, alg := range []Algorithm{lb, hs, pr} {
		t.Run(alg.Name(), func(t *testing.T) {
			initial := []float64{-1.2, 1}
			res, err := alg.Minimize(rosenbrock(), initial)
			require.NoError(t, err)

			assert.InDelta(t, 24.2, res.InitialCost, 1e-12)
			assert.Equal(t, res.InitialCost, res.CostHistory[0])
			assert.Equal(t, res.Cost, res.CostHistory[len(res.CostHistory)-1])
			assert.Len(t, res.Parameters, 2)
			assert.InDelta(t, 1, res.Parameters[0], 1e-3)
			assert.InDelta(t, 1, res.Parameters[1], 1e-3)
			assert.Greater(t, res.Iterations, 0)
			assert.Greater(t, res.Evaluations, res.Iterations)
			assert.Equal(t, []float64{-1.2, 1}, initial)
		})
	}
}

func TestLBFGSIterationLimit(t *testing.T) {
	captureWarnings(t)
	lb, err := NewLBFGS(WithLBFGSMaxIterations(2))
	require.NoError(t, err)
	res, err := lb.Minimize(rosenbrock(), []float64{-1.2, 1})
	require.NoError(t, err)
	assert.Equal(t, IterationLimit, res.Status)
	assert.Equal(t, 2, res.Iterations)
	assert.Less(t, res.Cost, res.InitialCost)
}

func TestObjectiveValidation(t *testing.T) {
	lb, _ := NewLBFGS()
	_, err := lb.Minimize(Objective{}, []float64{1})
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	obj := quadratic([]float64{0}, []float64{1})
	_, err = lb.Minimize(obj, nil)
	assert.True(t, errors.As(err, &ve))

	nan := Objective{
		Cost:     func([]float64) float64 { return math.NaN() },
		Gradient: func(g, _ []float64) { g[0] = 1 },
	}
	_, err = lb.Minimize(nan, []float64{1})
	var ne *errors.NumericalInstabilityError
	assert.True(t, errors.As(err, &ne))
}

func TestConstructorValidation(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"gd learning rate", second(NewGradientDescent(WithLearningRate(0)))},
		{"gd schedule", second(NewGradientDescent(WithSchedule(Schedule(7))))},
		{"gd iterations", second(NewGradientDescent(WithMaxIterations(0)))},
		{"gd patience", second(NewGradientDescent(WithDivergencePatience(0)))},
		{"gd decay", second(NewGradientDescent(WithDecay(-1)))},
		{"lbfgs history", second(NewLBFGS(WithHistory(0)))},
		{"lbfgs tolerance", second(NewLBFGS(WithGradientTolerance(0)))},
		{"cg restart", second(NewConjugateGradient(WithRestartFactor(0)))},
		{"cg variant", second(NewConjugateGradient(WithVariant(Variant(9))))},
		{"ridge", second(NewNormalEquations(WithRidge(-1)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ve *errors.ValidationError
			assert.True(t, errors.As(tt.err, &ve), "got %v", tt.err)
		})
	}
}

func second[T any](_ T, err error) error { return err }

func leastSquares(x []float64, rows, cols int, y []float64) Objective {
	X := mat.NewDense(rows, cols, x)
	return Objective{
		Cost: func(theta []float64) float64 {
			var s float64
			for i := 0; i < rows; i++ {
				r := mat.Dot(X.RowView(i), mat.NewVecDense(cols, theta)) - y[i]
				s += r * r
			}
			return s / (2 * float64(rows))
		},
		LeastSquares: &LeastSquares{X: X, Y: y},
	}
}

func TestNormalEquations(t *testing.T) {
	// y = 1 + 2x
	x := []float64{1, 0, 1, 1, 1, 2, 1, 3}
	y := []float64{1, 3, 5, 7}
	ne, err := NewNormalEquations()
	require.NoError(t, err)

	res, err := ne.Minimize(leastSquares(x, 4, 2, y), []float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.InDelta(t, 1, res.Parameters[0], 1e-10)
	assert.InDelta(t, 2, res.Parameters[1], 1e-10)
	assert.InDelta(t, 0, res.Cost, 1e-18)
	assert.Equal(t, []float64{res.InitialCost, res.Cost}, res.CostHistory)
}

func TestNormalEquationsRidgeSkipsIntercept(t *testing.T) {
	x := []float64{1, -1, 1, 0, 1, 1}
	y := []float64{4, 5, 6}
	plain, _ := NewNormalEquations()
	ridge, _ := NewNormalEquations(WithRidge(10))

	a, err := plain.Minimize(leastSquares(x, 3, 2, y), []float64{0, 0})
	require.NoError(t, err)
	b, err := ridge.Minimize(leastSquares(x, 3, 2, y), []float64{0, 0})
	require.NoError(t, err)

	assert.InDelta(t, 1, a.Parameters[1], 1e-12)
	assert.InDelta(t, 2.0/12, b.Parameters[1], 1e-12)
	// centered feature: the intercept is the mean of y either way
	assert.InDelta(t, 5, a.Parameters[0], 1e-12)
	assert.InDelta(t, 5, b.Parameters[0], 1e-12)
}

func TestNormalEquationsErrors(t *testing.T) {
	ne, _ := NewNormalEquations()

	singular := []float64{1, 2, 1, 2, 1, 2}
	_, err := ne.Minimize(leastSquares(singular, 3, 2, []float64{1, 2, 3}), []float64{0, 0})
	assert.True(t, errors.Is(err, errors.ErrSingularMatrix))

	_, err = ne.Minimize(quadratic([]float64{0}, []float64{1}), []float64{0})
	var pe *errors.PreconditionError
	assert.True(t, errors.As(err, &pe))

	_, err = ne.Minimize(leastSquares([]float64{1, 0, 1, 1}, 2, 2, []float64{1, 2}), []float64{0})
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "converged", Converged.String())
	assert.Equal(t, "diverged", Diverged.String())
	assert.Equal(t, "status(42)", Status(42).String())
	assert.Equal(t, "adaptive", Adaptive.String())
	assert.Equal(t, "polak_ribiere", PolakRibiere.String())
}
