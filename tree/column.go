package tree

import (
	"fmt"
	"math"
)

// ColumnType describes how a feature column's values are interpreted.
type ColumnType int

const (
	// Boolean columns hold 0 or 1.
	Boolean ColumnType = iota
	// Categorical columns hold integers in [0, cardinality).
	Categorical
)

func (t ColumnType) String() string {
	switch t {
	case Boolean:
		return "boolean"
	case Categorical:
		return "categorical"
	default:
		return fmt.Sprintf("column_type(%d)", int(t))
	}
}

type columnSpec struct {
	kind        ColumnType
	cardinality int
}

// outcome maps a stored value to its branch index.
func (s columnSpec) outcome(v float64) (int, bool) {
	if v != math.Trunc(v) || v < 0 || v >= float64(s.cardinality) {
		return 0, false
	}
	return int(v), true
}
