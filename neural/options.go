package neural

import (
	"github.com/YuminosukeSato/learnkit/core/model"
	"github.com/YuminosukeSato/learnkit/pkg/log"
)

// Option configures a Classifier.
type Option func(*Classifier)

// WithRegularization penalises every non-bias weight.
func WithRegularization(r model.Regularization) Option {
	return func(c *Classifier) { c.regularization = r }
}

// WithActivation sets the hidden-layer non-linearity. Default Sigmoid.
func WithActivation(a Activation) Option {
	return func(c *Classifier) { c.activation = a }
}

// WithSeed fixes the weight initialisation. Default 1.
func WithSeed(seed uint64) Option {
	return func(c *Classifier) { c.seed = seed }
}

// WithImplementation selects sequential or parallel batch evaluation.
func WithImplementation(impl model.Implementation) Option {
	return func(c *Classifier) { c.implementation = impl }
}

// WithLogger replaces the component logger.
func WithLogger(logger log.Logger) Option {
	return func(c *Classifier) { c.logger = logger }
}
