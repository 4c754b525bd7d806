package model

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/learnkit/pkg/errors"
)

// Classes is an ordered set of unique integer labels with stable indices.
// It is immutable after construction.
type Classes struct {
	labels []int
	index  map[int]int
}

// NewClasses builds a label table in the given order. Labels must be unique
// and there must be at least one.
func NewClasses(labels ...int) (*Classes, error) {
	if len(labels) == 0 {
		return nil, errors.NewValidationError("labels", "at least one class label is required", labels)
	}
	c := &Classes{
		labels: make([]int, len(labels)),
		index:  make(map[int]int, len(labels)),
	}
	for i, l := range labels {
		if _, dup := c.index[l]; dup {
			return nil, errors.NewValidationError("labels", fmt.Sprintf("duplicate class label %d", l), labels)
		}
		c.labels[i] = l
		c.index[l] = i
	}
	return c, nil
}

// ClassesWithCount returns the labels 0..n-1. It panics when n < 1.
func ClassesWithCount(n int) *Classes {
	if n < 1 {
		panic(fmt.Sprintf("model: ClassesWithCount: need at least one class, got %d", n))
	}
	labels := make([]int, n)
	for i := range labels {
		labels[i] = i
	}
	c, _ := NewClasses(labels...)
	return c
}

// Count returns the number of classes.
func (c *Classes) Count() int { return len(c.labels) }

// Index returns the stable index of label.
func (c *Classes) Index(label int) (int, bool) {
	i, ok := c.index[label]
	return i, ok
}

// IndexOf maps a label stored as a float64 in a matrix output vector. Values
// that are not integral are reported as unknown.
func (c *Classes) IndexOf(value float64) (int, bool) {
	label := int(value)
	if float64(label) != value {
		return 0, false
	}
	return c.Index(label)
}

// Label returns the label at index i.
func (c *Classes) Label(i int) int { return c.labels[i] }

// Labels returns a copy of the labels in index order.
func (c *Classes) Labels() []int {
	out := make([]int, len(c.labels))
	copy(out, c.labels)
	return out
}

func (c *Classes) String() string {
	parts := make([]string, len(c.labels))
	for i, l := range c.labels {
		parts[i] = fmt.Sprint(l)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
