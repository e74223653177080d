package model

// StepState tracks where a step is in the runner lifecycle.
type StepState string

const (
	// StatePending indicates a step has not started yet.
	StatePending StepState = "pending"
	// StateSkipped indicates the skip-check found the step converged.
	StateSkipped StepState = "skipped"
	// StatePrompting indicates the step is collecting user input.
	StatePrompting StepState = "prompting"
	// StateRunning indicates the step is executing.
	StateRunning StepState = "running"
	// StateCompleted marks a successful execution.
	StateCompleted StepState = "completed"
	// StateFailed marks a failed execution.
	StateFailed StepState = "failed"
)

var stepTransitions = map[StepState][]StepState{
	StatePending:   {StateSkipped, StatePrompting, StateRunning, StateFailed},
	StatePrompting: {StateRunning, StateFailed},
	StateRunning:   {StateCompleted, StateFailed},
}

// CanTransition reports whether moving from one state to another is allowed.
func (s StepState) CanTransition(next StepState) bool {
	for _, allowed := range stepTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s StepState) Terminal() bool {
	return len(stepTransitions[s]) == 0
}
