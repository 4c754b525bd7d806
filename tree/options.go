package tree

import (
	"github.com/YuminosukeSato/learnkit/pkg/log"
)

// Option configures a Classifier.
type Option func(*Classifier)

// WithExampleIndices restricts training to the given rows. Default: every
// row.
func WithExampleIndices(rows []int) Option {
	return func(c *Classifier) {
		c.exampleIndices = append(make([]int, 0, len(rows)), rows...)
	}
}

// WithColumnIndices restricts the candidate split columns to the given
// feature columns, numbered without the bias column. Default: every feature
// column.
func WithColumnIndices(columns []int) Option {
	return func(c *Classifier) {
		c.columnIndices = append(make([]int, 0, len(columns)), columns...)
	}
}

// WithColumnReuse allows a column to be split on again further down a path
// when it still partitions the remaining examples.
func WithColumnReuse(reuse bool) Option {
	return func(c *Classifier) {
		c.reuseColumns = reuse
	}
}

// WithLogger replaces the component logger.
func WithLogger(logger log.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}
