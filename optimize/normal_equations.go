package optimize

import (
	"math"

	"github.com/YuminosukeSato/learnkit/core/accel"
	"github.com/YuminosukeSato/learnkit/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// NormalEquations solves linear least squares in closed form:
//
//	θ = (XᵀX + λI′)⁻¹ Xᵀy
//
// where I′ is the identity with a zero at the intercept, so the intercept is
// never shrunk.
type NormalEquations struct {
	ridge float64
}

// NormalEquationsOption configures NormalEquations.
type NormalEquationsOption func(*NormalEquations)

// WithRidge adds λ to the diagonal of XᵀX, except at the intercept.
func WithRidge(lambda float64) NormalEquationsOption {
	return func(n *NormalEquations) { n.ridge = lambda }
}

// NewNormalEquations creates a closed-form least-squares solver.
func NewNormalEquations(opts ...NormalEquationsOption) (*NormalEquations, error) {
	n := &NormalEquations{}
	for _, opt := range opts {
		opt(n)
	}
	if n.ridge < 0 || math.IsNaN(n.ridge) || math.IsInf(n.ridge, 0) {
		return nil, errors.NewValidationError("ridge", "must be a finite non-negative number", n.ridge)
	}
	return n, nil
}

// Name implements Algorithm.
func (n *NormalEquations) Name() string { return "normal_equations" }

func (n *NormalEquations) algorithm() {}

// Ridge returns the ridge penalty λ.
func (n *NormalEquations) Ridge() float64 { return n.ridge }

// Minimize implements Algorithm. obj.LeastSquares is required; obj.Cost is
// evaluated at the initial guess and at the solution.
func (n *NormalEquations) Minimize(obj Objective, initial []float64) (*Result, error) {
	ls := obj.LeastSquares
	if ls == nil || ls.X == nil {
		return nil, errors.NewPreconditionError("NormalEquations.Minimize", "objective provides a least-squares problem", nil)
	}
	m, p := ls.X.Dims()
	if p != len(initial) {
		return nil, errors.NewDimensionError("NormalEquations.Minimize", p, len(initial), 1)
	}
	if len(ls.Y) != m {
		return nil, errors.NewDimensionError("NormalEquations.Minimize", m, len(ls.Y), 0)
	}
	cost, grad, err := start(n.Name(), obj, initial, false)
	if err != nil {
		return nil, err
	}

	theta := mat.NewVecDense(p, nil)
	err = errors.SafeExecute("NormalEquations.Minimize", func() error {
		xtx := mat.NewDense(p, p, nil)
		xtx.Mul(ls.X.T(), ls.X)
		for j := 1; j < p; j++ {
			xtx.Set(j, j, xtx.At(j, j)+n.ridge)
		}
		if err := accel.Invert(xtx.RawMatrix().Data, p); err != nil {
			return errors.Wrap(err, "normal equations: XᵀX is not invertible")
		}
		xty := mat.NewVecDense(p, nil)
		xty.MulVec(ls.X.T(), mat.NewVecDense(m, append([]float64(nil), ls.Y...)))
		theta.MulVec(xtx, xty)
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		Parameters:      append([]float64(nil), theta.RawVector().Data...),
		InitialCost:     cost,
		Iterations:      1,
		Evaluations:     2,
		Status:          Converged,
		initialGradNorm: gradNorm(grad),
	}
	res.Cost = obj.Cost(res.Parameters)
	res.CostHistory = []float64{cost, res.Cost}
	finish(n.Name(), res)
	return res, nil
}
