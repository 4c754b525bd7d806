package optimize

import (
	"math"

	"github.com/YuminosukeSato/learnkit/pkg/errors"
	"github.com/YuminosukeSato/learnkit/pkg/log"
)

// Schedule selects how the gradient descent learning rate evolves.
type Schedule int

const (
	// Constant keeps the learning rate fixed.
	Constant Schedule = iota
	// InverseScaling uses α / (1 + decay·t) at iteration t (0-based).
	InverseScaling
	// Adaptive halves the rate whenever a step would raise the cost and
	// rejects that step.
	Adaptive
)

func (s Schedule) String() string {
	switch s {
	case Constant:
		return "constant"
	case InverseScaling:
		return "inverse_scaling"
	case Adaptive:
		return "adaptive"
	default:
		return "unknown"
	}
}

// GradientDescent iterates θ ← θ - α∇C(θ).
type GradientDescent struct {
	learningRate  float64
	schedule      Schedule
	decay         float64
	maxIterations int
	threshold     float64
	patience      int
}

// GradientDescentOption configures a GradientDescent.
type GradientDescentOption func(*GradientDescent)

// WithLearningRate sets the initial step size α. Default 0.01.
func WithLearningRate(alpha float64) GradientDescentOption {
	return func(g *GradientDescent) { g.learningRate = alpha }
}

// WithSchedule sets the learning rate schedule. Default Constant.
func WithSchedule(s Schedule) GradientDescentOption {
	return func(g *GradientDescent) { g.schedule = s }
}

// WithDecay sets the InverseScaling decay. Default 0.
func WithDecay(decay float64) GradientDescentOption {
	return func(g *GradientDescent) { g.decay = decay }
}

// WithMaxIterations sets the iteration budget. Default 1000.
func WithMaxIterations(n int) GradientDescentOption {
	return func(g *GradientDescent) { g.maxIterations = n }
}

// WithConvergenceThreshold stops once an accepted step improves the cost by
// less than threshold. Default 1e-9.
func WithConvergenceThreshold(threshold float64) GradientDescentOption {
	return func(g *GradientDescent) { g.threshold = threshold }
}

// WithDivergencePatience sets how many consecutive cost increases are
// tolerated under a non-adaptive schedule. Default 10.
func WithDivergencePatience(n int) GradientDescentOption {
	return func(g *GradientDescent) { g.patience = n }
}

// NewGradientDescent creates a gradient descent minimizer.
func NewGradientDescent(opts ...GradientDescentOption) (*GradientDescent, error) {
	g := &GradientDescent{
		learningRate:  0.01,
		schedule:      Constant,
		maxIterations: 1000,
		threshold:     1e-9,
		patience:      10,
	}
	for _, opt := range opts {
		opt(g)
	}
	if !(g.learningRate > 0) || math.IsInf(g.learningRate, 0) {
		return nil, errors.NewValidationError("learningRate", "must be a finite positive number", g.learningRate)
	}
	if g.schedule < Constant || g.schedule > Adaptive {
		return nil, errors.NewValidationError("schedule", "unknown schedule", int(g.schedule))
	}
	if g.decay < 0 || math.IsNaN(g.decay) {
		return nil, errors.NewValidationError("decay", "must be non-negative", g.decay)
	}
	if g.maxIterations < 1 {
		return nil, errors.NewValidationError("maxIterations", "must be at least 1", g.maxIterations)
	}
	if g.threshold < 0 || math.IsNaN(g.threshold) {
		return nil, errors.NewValidationError("threshold", "must be non-negative", g.threshold)
	}
	if g.patience < 1 {
		return nil, errors.NewValidationError("patience", "must be at least 1", g.patience)
	}
	return g, nil
}

// Name implements Algorithm.
func (g *GradientDescent) Name() string { return "gradient_descent" }

func (g *GradientDescent) algorithm() {}

// LearningRate returns the initial step size.
func (g *GradientDescent) LearningRate() float64 { return g.learningRate }

// Minimize implements Algorithm.
func (g *GradientDescent) Minimize(obj Objective, initial []float64) (*Result, error) {
	cost, grad, err := start(g.Name(), obj, initial, true)
	if err != nil {
		return nil, err
	}
	res := &Result{
		InitialCost:     cost,
		Evaluations:     1,
		CostHistory:     []float64{cost},
		initialGradNorm: gradNorm(grad),
	}

	theta := append([]float64(nil), initial...)
	best := append([]float64(nil), initial...)
	bestCost := cost
	candidate := make([]float64, len(theta))
	rate := g.learningRate
	increases := 0
	status := IterationLimit

	if res.initialGradNorm == 0 {
		status = Converged
	}

	for it := 0; it < g.maxIterations && status == IterationLimit; it++ {
		if it > 0 {
			obj.Gradient(grad, theta)
		}
		alpha := rate
		if g.schedule == InverseScaling {
			alpha = g.learningRate / (1 + g.decay*float64(it))
		}
		for j := range theta {
			candidate[j] = theta[j] - alpha*grad[j]
		}
		next := obj.Cost(candidate)
		res.Evaluations++
		res.Iterations = it + 1

		finite := !math.IsNaN(next) && !math.IsInf(next, 0)
		if g.schedule == Adaptive {
			if !finite || next > cost {
				rate /= 2
				if rate == 0 {
					status = Failure
				}
				continue
			}
		} else if !finite {
			status = Diverged
			break
		}

		improvement := cost - next
		copy(theta, candidate)
		cost = next
		res.CostHistory = append(res.CostHistory, cost)

		if improvement < 0 {
			increases++
			if increases >= g.patience {
				status = Diverged
			}
			continue
		}
		increases = 0
		if cost < bestCost {
			bestCost = cost
			copy(best, theta)
		}
		if improvement < g.threshold {
			status = Converged
		}
	}

	res.Parameters = best
	res.Cost = bestCost
	res.Status = status
	if g.schedule == Adaptive {
		log.GetLoggerWithName("optimize").Debug("Adaptive learning rate settled",
			log.AlgorithmKey, g.Name(), log.LearningRateKey, rate)
	}
	finish(g.Name(), res)
	return res, nil
}
