package optimize

import (
	"math"

	"github.com/YuminosukeSato/learnkit/pkg/errors"
	"gonum.org/v1/gonum/optimize"
)

// costRecorder collects the cost at every major iteration of a gonum run.
type costRecorder struct {
	history []float64
}

func (r *costRecorder) Init() error {
	r.history = r.history[:0]
	return nil
}

func (r *costRecorder) Record(loc *optimize.Location, op optimize.Operation, _ *optimize.Stats) error {
	if op&optimize.MajorIteration != 0 {
		r.history = append(r.history, loc.F)
	}
	return nil
}

// gonumRun is the shared driver for the line-search methods in
// gonum/optimize.
type gonumRun struct {
	name          string
	method        optimize.Method
	maxIterations int
	gradTolerance float64
}

func (g gonumRun) minimize(obj Objective, initial []float64) (res *Result, err error) {
	defer errors.Recover(&err, g.name+".Minimize")

	cost, grad, err := start(g.name, obj, initial, true)
	if err != nil {
		return nil, err
	}
	res = &Result{
		InitialCost:     cost,
		Evaluations:     1,
		initialGradNorm: gradNorm(grad),
	}
	if res.initialGradNorm < g.gradTolerance {
		res.Parameters = append([]float64(nil), initial...)
		res.Cost = cost
		res.Status = GradientTolerance
		res.CostHistory = []float64{cost}
		finish(g.name, res)
		return res, nil
	}

	rec := &costRecorder{}
	problem := optimize.Problem{
		Func: obj.Cost,
		Grad: obj.Gradient,
	}
	settings := &optimize.Settings{
		InitValues: &optimize.Location{
			F:        cost,
			Gradient: grad,
		},
		GradientThreshold: g.gradTolerance,
		// the starting location counts as the first major iteration
		MajorIterations: g.maxIterations + 1,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-12,
			Iterations: 25,
		},
		Recorder: rec,
	}

	out, runErr := optimize.Minimize(problem, initial, settings, g.method)
	if out == nil {
		return nil, errors.Wrapf(runErr, "%s: minimization failed", g.name)
	}

	res.Evaluations += out.Stats.FuncEvaluations
	if out.Stats.MajorIterations > 1 {
		res.Iterations = out.Stats.MajorIterations - 1
	}
	res.Parameters = append([]float64(nil), out.Location.X...)
	res.Cost = out.Location.F
	if math.IsInf(res.Cost, 1) || len(res.Parameters) != len(initial) {
		res.Parameters = append([]float64(nil), initial...)
		res.Cost = cost
	}
	res.Status = fromGonum(out.Status)

	if runErr != nil {
		if !(res.Cost < cost) {
			return nil, errors.Wrapf(runErr, "%s: no progress from the initial parameters", g.name)
		}
		res.Status = Failure
	}

	res.CostHistory = rec.history
	if len(res.CostHistory) == 0 {
		res.CostHistory = []float64{cost}
	}
	if last := res.CostHistory[len(res.CostHistory)-1]; last != res.Cost {
		res.CostHistory = append(res.CostHistory, res.Cost)
	}
	finish(g.name, res)
	return res, nil
}

func fromGonum(s optimize.Status) Status {
	switch s {
	case optimize.GradientThreshold:
		return GradientTolerance
	case optimize.Success, optimize.FunctionConvergence, optimize.StepConvergence,
		optimize.FunctionThreshold, optimize.MethodConverge:
		return Converged
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit,
		optimize.GradientEvaluationLimit, optimize.RuntimeLimit:
		return IterationLimit
	case optimize.FunctionNegativeInfinity:
		return Diverged
	default:
		return Failure
	}
}
