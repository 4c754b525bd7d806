// Package optimize provides the minimizers every trainable learnkit
// predictor delegates to.
//
// The set of algorithms is closed: GradientDescent, NormalEquations, LBFGS
// and ConjugateGradient. Each minimizes an Objective from an initial
// parameter vector and returns a Result whose Parameters have the same
// length as the initial guess. The cost is always evaluated at the initial
// guess before any step so callers can detect an already optimal start.
//
// Running out of iterations is not an error: the best parameters found are
// returned together with a Status, and a ConvergenceWarning is raised
// through errors.Warn.
package optimize

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/learnkit/pkg/errors"
	"github.com/YuminosukeSato/learnkit/pkg/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Objective is a differentiable cost over a parameter vector.
type Objective struct {
	// Cost returns C(θ). It must not modify theta.
	Cost func(theta []float64) float64
	// Gradient stores ∇C(θ) into grad. It must not modify theta.
	Gradient func(grad, theta []float64)
	// LeastSquares carries the design matrix and targets for closed-form
	// solvers. Only NormalEquations reads it.
	LeastSquares *LeastSquares
}

// LeastSquares is a linear least-squares problem min ‖Xθ - y‖². X includes
// the intercept column at index 0.
type LeastSquares struct {
	X mat.Matrix
	Y []float64
}

// Algorithm is one of the package's minimizers.
type Algorithm interface {
	// Name identifies the algorithm in logs and warnings.
	Name() string
	// Minimize searches for θ minimizing obj starting at initial. initial is
	// not modified.
	Minimize(obj Objective, initial []float64) (*Result, error)

	algorithm()
}

// Status describes why a minimization stopped.
type Status int

const (
	// NotTerminated is never returned by a finished run.
	NotTerminated Status = iota
	// Converged means the cost stopped improving by more than the threshold,
	// or a closed-form solution was computed.
	Converged
	// GradientTolerance means the gradient's infinity norm fell below the
	// configured tolerance.
	GradientTolerance
	// IterationLimit means the iteration budget ran out first.
	IterationLimit
	// Diverged means the cost kept rising.
	Diverged
	// Failure means the line search could not make further progress. The
	// best parameters found so far are returned.
	Failure
)

func (s Status) String() string {
	switch s {
	case NotTerminated:
		return "not_terminated"
	case Converged:
		return "converged"
	case GradientTolerance:
		return "gradient_tolerance"
	case IterationLimit:
		return "iteration_limit"
	case Diverged:
		return "diverged"
	case Failure:
		return "failure"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of a minimization.
type Result struct {
	// Parameters is the best θ found. len(Parameters) == len(initial).
	Parameters []float64
	// InitialCost is C(θ0), evaluated before any step.
	InitialCost float64
	// Cost is C(Parameters).
	Cost float64
	// Iterations counts accepted and rejected steps.
	Iterations int
	// Evaluations counts cost evaluations, including the initial one.
	Evaluations int
	Status      Status
	// CostHistory holds the cost at θ0 followed by the cost after each
	// major iteration.
	CostHistory []float64

	initialGradNorm float64
}

// Degenerate reports an already optimal start: a zero gradient at θ0 or no
// improvement over the initial cost.
func (r *Result) Degenerate() bool {
	return r.initialGradNorm == 0 || !(r.Cost < r.InitialCost)
}

// Converged reports whether the run met one of its tolerances.
func (r *Result) Converged() bool {
	return r.Status == Converged || r.Status == GradientTolerance
}

// start validates obj and evaluates the cost and gradient at initial.
func start(name string, obj Objective, initial []float64, needGradient bool) (cost float64, grad []float64, err error) {
	if obj.Cost == nil {
		return 0, nil, errors.NewValidationError("objective.Cost", name+": cost function is required", nil)
	}
	if needGradient && obj.Gradient == nil {
		return 0, nil, errors.NewValidationError("objective.Gradient", name+": gradient function is required", nil)
	}
	if len(initial) == 0 {
		return 0, nil, errors.NewValidationError("initial", name+": parameter vector must not be empty", 0)
	}
	cost = obj.Cost(initial)
	if err := errors.CheckScalar(name+".InitialCost", cost, 0); err != nil {
		return 0, nil, err
	}
	if obj.Gradient != nil {
		grad = make([]float64, len(initial))
		obj.Gradient(grad, initial)
		if err := errors.CheckNumericalStability(name+".InitialGradient", grad, 0); err != nil {
			return 0, nil, err
		}
	}
	return cost, grad, nil
}

func gradNorm(grad []float64) float64 {
	if grad == nil {
		return math.NaN()
	}
	return floats.Norm(grad, math.Inf(1))
}

// finish logs the outcome and warns when the run did not converge.
func finish(name string, res *Result) {
	logger := log.GetLoggerWithName("optimize")
	logger.Debug("Minimization finished",
		log.OperationKey, log.OperationMinimize,
		log.AlgorithmKey, name,
		log.StatusKey, res.Status.String(),
		log.IterationKey, res.Iterations,
		log.InitialLossKey, res.InitialCost,
		log.LossKey, res.Cost,
	)
	if res.Status == IterationLimit || res.Status == Diverged || res.Status == Failure {
		logger.Warn("Minimization did not converge",
			log.AlgorithmKey, name,
			log.StatusKey, res.Status.String(),
			log.ErrorCodeKey, log.ErrorConvergence,
		)
	}
	switch res.Status {
	case IterationLimit:
		errors.Warn(errors.NewConvergenceWarning(name, res.Iterations, "iteration limit reached before the cost converged"))
	case Diverged:
		errors.Warn(errors.NewConvergenceWarning(name, res.Iterations, "cost kept increasing; returning the best parameters seen"))
	case Failure:
		errors.Warn(errors.NewConvergenceWarning(name, res.Iterations, "line search made no further progress; returning the best parameters seen"))
	}
}
