// CLAUDE:SUMMARY Run lifecycle states and the allowed transition table.
// Package runner drives a sequence of relocate-then-act steps under a
// pausable, stoppable execution model. The Machine owns the run lifecycle
// and all progress/timing bookkeeping; the Runner layers the step loop on
// top of it.
package runner

// State is a run lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateStopped   State = "stopped"
	StateCompleted State = "completed"
	StateError     State = "error"
)

// transitions is the closed set of allowed lifecycle transitions.
var transitions = map[State][]State{
	StateIdle:      {StateRunning},
	StateRunning:   {StatePaused, StateStopped, StateCompleted, StateError},
	StatePaused:    {StateRunning, StateStopped},
	StateStopped:   {StateIdle},
	StateCompleted: {StateIdle},
	StateError:     {StateIdle},
}

// CanTransitionTo reports whether the lifecycle allows s -> next.
func (s State) CanTransitionTo(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the state ends a run (a fresh run requires Reset
// or a new Start from it).
func (s State) Terminal() bool {
	return s == StateStopped || s == StateCompleted || s == StateError
}

// Active reports whether a run is in flight.
func (s State) Active() bool { return s == StateRunning || s == StatePaused }
