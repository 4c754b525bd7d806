package optimize

import (
	"math"

	"github.com/YuminosukeSato/learnkit/pkg/errors"
	"gonum.org/v1/gonum/optimize"
)

// LBFGS is the limited-memory BFGS quasi-Newton method. It keeps the last m
// parameter and gradient differences to approximate the inverse Hessian and
// takes steps satisfying the strong Wolfe conditions (More–Thuente line
// search).
type LBFGS struct {
	history       int
	gradTolerance float64
	maxIterations int
}

// LBFGSOption configures LBFGS.
type LBFGSOption func(*LBFGS)

// WithHistory sets the number of stored correction pairs m. Default 10.
func WithHistory(m int) LBFGSOption {
	return func(l *LBFGS) { l.history = m }
}

// WithGradientTolerance stops once ‖∇C‖∞ falls below tol. Default 1e-8.
func WithGradientTolerance(tol float64) LBFGSOption {
	return func(l *LBFGS) { l.gradTolerance = tol }
}

// WithLBFGSMaxIterations sets the iteration budget. Default 500.
func WithLBFGSMaxIterations(n int) LBFGSOption {
	return func(l *LBFGS) { l.maxIterations = n }
}

// NewLBFGS creates an L-BFGS minimizer.
func NewLBFGS(opts ...LBFGSOption) (*LBFGS, error) {
	l := &LBFGS{
		history:       10,
		gradTolerance: 1e-8,
		maxIterations: 500,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.history < 1 {
		return nil, errors.NewValidationError("history", "must be at least 1", l.history)
	}
	if !(l.gradTolerance > 0) || math.IsInf(l.gradTolerance, 0) {
		return nil, errors.NewValidationError("gradientTolerance", "must be a finite positive number", l.gradTolerance)
	}
	if l.maxIterations < 1 {
		return nil, errors.NewValidationError("maxIterations", "must be at least 1", l.maxIterations)
	}
	return l, nil
}

// Name implements Algorithm.
func (l *LBFGS) Name() string { return "lbfgs" }

func (l *LBFGS) algorithm() {}

// Minimize implements Algorithm.
func (l *LBFGS) Minimize(obj Objective, initial []float64) (*Result, error) {
	run := gonumRun{
		name: l.Name(),
		method: &optimize.LBFGS{
			Linesearcher:      &optimize.MoreThuente{},
			Store:             l.history,
			GradStopThreshold: l.gradTolerance,
		},
		maxIterations: l.maxIterations,
		gradTolerance: l.gradTolerance,
	}
	return run.minimize(obj, initial)
}
