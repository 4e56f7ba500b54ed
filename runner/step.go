package runner

import (
	"time"

	"github.com/hazyhaar/domreplay/descriptor"
)

// Action names understood by the bundled actors. Custom actors may accept
// more.
const (
	ActionClick  = "click"
	ActionInput  = "input"
	ActionSelect = "select"
	ActionAssert = "assert" // resolve only, perform nothing
)

// Step is one recorded relocate-then-act unit.
type Step struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Action string `json:"action" yaml:"action"`

	// Value is the action payload: text for input, option value for select.
	Value string `json:"value,omitempty" yaml:"value,omitempty"`

	// Skip marks the step disabled; it is recorded as skipped, not executed.
	Skip bool `json:"skip,omitempty" yaml:"skip,omitempty"`

	Descriptor descriptor.Descriptor `json:"descriptor" yaml:"descriptor"`
}

// StepStatus is the outcome class of one step.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepPassed  StepStatus = "passed"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// StepResult records one executed (or skipped) step. Results are appended to
// the run, never mutated.
type StepResult struct {
	StepID   string        `json:"step_id"`
	Status   StepStatus    `json:"status"`
	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`

	// Strategy and Confidence carry over from the match when one was found.
	Strategy   string  `json:"strategy,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}
