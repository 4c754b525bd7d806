// Package model provides the contracts shared by every learnkit predictor:
// the training lifecycle, class label tables, regularization settings and
// raw parameter buffers.
package model

import (
	"sync"

	"github.com/YuminosukeSato/learnkit/pkg/errors"
)

// State is a predictor's position in the training lifecycle.
type State int

const (
	// Untrained は未学習の状態（初期状態、または学習失敗後）
	Untrained State = iota
	// Training は学習中の状態
	Training
	// Trained は学習済みの状態
	Trained
)

func (s State) String() string {
	switch s {
	case Untrained:
		return "untrained"
	case Training:
		return "training"
	case Trained:
		return "trained"
	default:
		return "unknown"
	}
}

// StateManager manages the training state of a predictor in a thread-safe
// manner. Predictors embed it by composition.
//
// Transitions: Untrained → Training (Begin) → Trained (Finish) or back to
// Untrained (Fail). A trained predictor cannot be trained again.
type StateManager struct {
	mu    sync.RWMutex
	state State

	nFeatures int
	nSamples  int
}

// NewStateManager creates a new StateManager in the Untrained state.
func NewStateManager() *StateManager {
	return &StateManager{state: Untrained}
}

// State returns the current lifecycle state.
func (s *StateManager) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsTrained returns whether the predictor has finished training.
func (s *StateManager) IsTrained() bool {
	return s.State() == Trained
}

// Begin moves Untrained to Training. It returns errors.ErrAlreadyTrained for
// a trained predictor and a PreconditionError while another Train call is
// running.
func (s *StateManager) Begin(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Trained:
		return errors.WithStack(errors.ErrAlreadyTrained)
	case Training:
		return errors.NewPreconditionError(op, "training is already in progress", nil)
	}
	s.state = Training
	return nil
}

// Finish marks training as complete and records the data dimensions.
func (s *StateManager) Finish(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Trained
	s.nFeatures = nFeatures
	s.nSamples = nSamples
}

// Fail returns the predictor to Untrained after a failed Train.
func (s *StateManager) Fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Untrained
	s.nFeatures = 0
	s.nSamples = 0
}

// Dimensions returns the number of features and samples seen during training.
func (s *StateManager) Dimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nSamples
}

// RequireTrained returns a NotTrainedError naming modelName and method
// unless training has finished.
func (s *StateManager) RequireTrained(modelName, method string) error {
	if !s.IsTrained() {
		return errors.NewNotTrainedError(modelName, method)
	}
	return nil
}
