package model

// Implementation selects how a predictor evaluates its cost and gradient.
type Implementation int

const (
	// Sequential evaluates every example on the calling goroutine.
	Sequential Implementation = iota
	// Parallel splits the examples across CPU cores and reduces the
	// partial results. Training still blocks the caller.
	Parallel
)

// ParallelThreshold is the example count below which Parallel falls back to
// sequential evaluation.
const ParallelThreshold = 256

func (i Implementation) String() string {
	switch i {
	case Sequential:
		return "sequential"
	case Parallel:
		return "parallel"
	default:
		return "unknown"
	}
}

// Threshold returns the item count handed to parallel.Reduce.
func (i Implementation) Threshold() int {
	if i == Parallel {
		return ParallelThreshold
	}
	return int(^uint(0) >> 1)
}
