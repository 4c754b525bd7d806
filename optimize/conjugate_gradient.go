package optimize

import (
	"math"

	"github.com/YuminosukeSato/learnkit/pkg/errors"
	"gonum.org/v1/gonum/optimize"
)

// Variant selects the β formula of nonlinear conjugate gradient.
type Variant int

const (
	PolakRibiere Variant = iota
	FletcherReeves
	HestenesStiefel
	DaiYuan
)

func (v Variant) String() string {
	switch v {
	case PolakRibiere:
		return "polak_ribiere"
	case FletcherReeves:
		return "fletcher_reeves"
	case HestenesStiefel:
		return "hestenes_stiefel"
	case DaiYuan:
		return "dai_yuan"
	default:
		return "unknown"
	}
}

func (v Variant) gonum() optimize.CGVariant {
	switch v {
	case FletcherReeves:
		return &optimize.FletcherReeves{}
	case HestenesStiefel:
		return &optimize.HestenesStiefel{}
	case DaiYuan:
		return &optimize.DaiYuan{}
	default:
		return &optimize.PolakRibierePolyak{}
	}
}

// ConjugateGradient is nonlinear conjugate gradient with a restart to the
// steepest descent direction every ceil(restartFactor·dim) iterations.
type ConjugateGradient struct {
	variant       Variant
	restartFactor float64
	gradTolerance float64
	maxIterations int
}

// ConjugateGradientOption configures ConjugateGradient.
type ConjugateGradientOption func(*ConjugateGradient)

// WithVariant selects the β formula. Default PolakRibiere.
func WithVariant(v Variant) ConjugateGradientOption {
	return func(c *ConjugateGradient) { c.variant = v }
}

// WithRestartFactor restarts every ceil(f·dim) iterations. Default 1.
func WithRestartFactor(f float64) ConjugateGradientOption {
	return func(c *ConjugateGradient) { c.restartFactor = f }
}

// WithCGGradientTolerance stops once ‖∇C‖∞ falls below tol. Default 1e-8.
func WithCGGradientTolerance(tol float64) ConjugateGradientOption {
	return func(c *ConjugateGradient) { c.gradTolerance = tol }
}

// WithCGMaxIterations sets the iteration budget. Default 400.
func WithCGMaxIterations(n int) ConjugateGradientOption {
	return func(c *ConjugateGradient) { c.maxIterations = n }
}

// NewConjugateGradient creates a nonlinear conjugate gradient minimizer.
func NewConjugateGradient(opts ...ConjugateGradientOption) (*ConjugateGradient, error) {
	c := &ConjugateGradient{
		variant:       PolakRibiere,
		restartFactor: 1,
		gradTolerance: 1e-8,
		maxIterations: 400,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.variant < PolakRibiere || c.variant > DaiYuan {
		return nil, errors.NewValidationError("variant", "unknown conjugate gradient variant", int(c.variant))
	}
	if !(c.restartFactor > 0) || math.IsInf(c.restartFactor, 0) {
		return nil, errors.NewValidationError("restartFactor", "must be a finite positive number", c.restartFactor)
	}
	if !(c.gradTolerance > 0) || math.IsInf(c.gradTolerance, 0) {
		return nil, errors.NewValidationError("gradientTolerance", "must be a finite positive number", c.gradTolerance)
	}
	if c.maxIterations < 1 {
		return nil, errors.NewValidationError("maxIterations", "must be at least 1", c.maxIterations)
	}
	return c, nil
}

// Name implements Algorithm.
func (c *ConjugateGradient) Name() string { return "conjugate_gradient" }

func (c *ConjugateGradient) algorithm() {}

// Minimize implements Algorithm.
func (c *ConjugateGradient) Minimize(obj Objective, initial []float64) (*Result, error) {
	run := gonumRun{
		name: c.Name(),
		method: &optimize.CG{
			Linesearcher:           &optimize.MoreThuente{CurvatureFactor: 0.1},
			Variant:                c.variant.gonum(),
			IterationRestartFactor: c.restartFactor,
			GradStopThreshold:      c.gradTolerance,
		},
		maxIterations: c.maxIterations,
		gradTolerance: c.gradTolerance,
	}
	return run.minimize(obj, initial)
}
