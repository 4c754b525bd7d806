package linear

import (
	"github.com/YuminosukeSato/learnkit/core/model"
	"github.com/YuminosukeSato/learnkit/pkg/log"
)

// Option configures a Regression.
type Option func(*Regression)

// WithRegularization sets the weight penalty applied to every parameter
// except the intercept. It is ignored under normal equations.
func WithRegularization(r model.Regularization) Option {
	return func(lr *Regression) {
		lr.regularization = r
	}
}

// WithImplementation selects sequential or parallel cost evaluation.
func WithImplementation(impl model.Implementation) Option {
	return func(lr *Regression) {
		lr.implementation = impl
	}
}

// WithInitialParameters sets θ0. It must have Columns()+1 entries. The
// default is all zeros.
func WithInitialParameters(theta []float64) Option {
	return func(lr *Regression) {
		lr.initial = append([]float64(nil), theta...)
	}
}

// WithLogger replaces the component logger.
func WithLogger(logger log.Logger) Option {
	return func(lr *Regression) {
		lr.logger = logger
	}
}
