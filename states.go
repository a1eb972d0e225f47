package meadow

import (
	"errors"
	"fmt"
)

// Scene lifecycle. AssetsLoading -> Rendering happens at most once and
// TornDown is terminal.
const (
	StateInitializing State = iota
	StateAssetsLoading
	StateRendering
	StateTornDown
)

var ErrInvalidTransition = errors.New("invalid scene state transition")

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "Initializing"
	case StateAssetsLoading:
		return "AssetsLoading"
	case StateRendering:
		return "Rendering"
	case StateTornDown:
		return "TornDown"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func canTransition(from, to State) bool {
	switch to {
	case StateAssetsLoading:
		return from == StateInitializing
	case StateRendering:
		return from == StateAssetsLoading
	case StateTornDown:
		return from != StateTornDown
	}
	return false
}

// Lifecycle tracks the scene state independently of the app scheduler so
// every transition is validated in one place.
type Lifecycle struct {
	state State
}

func (l *Lifecycle) State() State {
	return l.state
}

// Transition validates and records the move, then schedules the matching
// app state change.
func (l *Lifecycle) Transition(cmd *Commands, to State) error {
	if !canTransition(l.state, to) {
		return fmt.Errorf("%w: %v -> %v", ErrInvalidTransition, l.state, to)
	}
	l.state = to
	if cmd != nil {
		cmd.ChangeState(to)
	}
	return nil
}
