// CLAUDE:SUMMARY Run loop: pause checkpoint, resolve, act, record; stop/continue failure policy with consecutive-failure ceiling.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/resolve"
)

// Actor is the action primitive collaborator: it performs the concrete
// interaction once a step's element is resolved.
type Actor interface {
	Perform(ctx context.Context, node dom.Node, step Step) error
}

// ActorFunc adapts a function to the Actor interface.
type ActorFunc func(ctx context.Context, node dom.Node, step Step) error

func (f ActorFunc) Perform(ctx context.Context, node dom.Node, step Step) error {
	return f(ctx, node, step)
}

// Options configures a run.
type Options struct {
	// ContinueOnFailure keeps the run going past failed steps. The default
	// stops at the first failure.
	ContinueOnFailure bool `yaml:"continue_on_failure"`

	// MaxConsecutiveFailures stops a continue-on-failure run once this many
	// steps fail in a row. 0 means no ceiling.
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures"`

	// StepDelay sleeps between steps.
	StepDelay time.Duration `yaml:"step_delay"`

	Logger *slog.Logger `yaml:"-"`
}

// Stop reasons reported in Summary.StopReason.
const (
	StopReasonFailure     = "failure"              // first failed step, default policy
	StopReasonConsecutive = "consecutive-failures" // ceiling reached under continue-on-failure
	StopReasonStopped     = "stopped"              // external Stop
)

// Summary is the final report of one run.
type Summary struct {
	Success       bool          `json:"success"`
	Passed        int           `json:"passed"`
	Failed        int           `json:"failed"`
	Skipped       int           `json:"skipped"`
	Total         int           `json:"total"`
	StoppedEarly  bool          `json:"stopped_early"`
	StoppedAtStep int           `json:"stopped_at_step"` // index of the step that ended the run; -1 when it ran out
	StopReason    string        `json:"stop_reason,omitempty"`
	Duration      time.Duration `json:"duration"`
	State         State         `json:"state"`
	Results       []StepResult  `json:"results"`
}

// Runner executes step sequences through a Resolver and an Actor, driving
// one Machine. One Runner per run sequence; independent runs get independent
// Runners.
type Runner struct {
	machine  *Machine
	resolver *resolve.Resolver
	provider dom.Provider
	actor    Actor
	opts     Options
	logger   *slog.Logger
}

// New creates a Runner. The machine may be shared with observers (report
// surfaces, journals) that subscribed to it beforehand.
func New(machine *Machine, resolver *resolve.Resolver, provider dom.Provider, actor Actor, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		machine:  machine,
		resolver: resolver,
		provider: provider,
		actor:    actor,
		opts:     opts,
		logger:   opts.Logger,
	}
}

// Machine exposes the underlying state machine for pause/resume/stop and
// snapshot reads.
func (r *Runner) Machine() *Machine { return r.machine }

// Run executes the steps in order. It returns an error only for structural
// misuse (empty steps, already-active machine); step failures are reported
// through the Summary per the failure policy. Cancellation of ctx stops the
// run cooperatively at the next checkpoint.
func (r *Runner) Run(ctx context.Context, steps []Step) (*Summary, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	if err := r.machine.Start(len(steps)); err != nil {
		return nil, err
	}

	// Propagate ctx cancellation as a cooperative stop so a paused run
	// cannot outlive its context.
	stopWatch := context.AfterFunc(ctx, func() { r.machine.Stop() })
	defer stopWatch()

	consecutive := 0
	stoppedAt := -1
	reason := ""

loop:
	for i, step := range steps {
		if ctx.Err() != nil {
			r.machine.Stop()
		}
		// Pause checkpoint; also the stop checkpoint.
		if st := r.machine.WaitWhilePaused(); st != StateRunning {
			stoppedAt = i - 1
			reason = StopReasonStopped
			break
		}
		r.machine.SetCurrentStep(i)

		res := r.runStep(ctx, step)
		r.machine.CompleteStep(res)

		switch res.Status {
		case StepPassed, StepSkipped:
			consecutive = 0
		case StepFailed:
			consecutive++
			if !r.opts.ContinueOnFailure {
				stoppedAt = i
				reason = StopReasonFailure
				break loop
			}
			if r.opts.MaxConsecutiveFailures > 0 && consecutive >= r.opts.MaxConsecutiveFailures {
				r.logger.Warn("consecutive-failure ceiling reached",
					"failures", consecutive, "step", step.ID)
				stoppedAt = i
				reason = StopReasonConsecutive
				break loop
			}
		}

		if r.opts.StepDelay > 0 && i < len(steps)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(r.opts.StepDelay):
			}
		}
	}

	return r.finish(stoppedAt, reason, len(steps)), nil
}

// runStep resolves and performs one step. Failures come back as a failed
// StepResult, never as an error: propagation is the failure policy's job.
func (r *Runner) runStep(ctx context.Context, step Step) StepResult {
	start := time.Now()
	res := StepResult{StepID: step.ID, Status: StepPending}

	if step.Skip {
		res.Status = StepSkipped
		res.Success = true
		res.Duration = time.Since(start)
		return res
	}

	d := &step.Descriptor
	scope, err := r.provider.Scope(ctx, d.FramePath, d.ShadowHosts)
	if err != nil {
		return failed(res, start, fmt.Sprintf("open scope: %v", err))
	}

	match := r.resolver.Find(ctx, d, scope)
	res.Strategy = match.Strategy
	res.Confidence = match.Confidence
	if !match.Found() {
		return failed(res, start, "element not found: "+match.Diagnostic)
	}

	r.logger.Debug("element resolved",
		"step", step.ID, "strategy", match.Strategy,
		"confidence", match.Confidence, "retries", match.Retries)

	if step.Action != ActionAssert {
		if err := r.actor.Perform(ctx, match.Node, step); err != nil {
			return failed(res, start, fmt.Sprintf("action %s: %v", step.Action, err))
		}
	}

	res.Status = StepPassed
	res.Success = true
	res.Duration = time.Since(start)
	return res
}

func failed(res StepResult, start time.Time, msg string) StepResult {
	res.Status = StepFailed
	res.Success = false
	res.Error = msg
	res.Duration = time.Since(start)
	return res
}

// finish settles the machine into its terminal state and builds the Summary.
func (r *Runner) finish(stoppedAt int, reason string, total int) *Summary {
	earlyStop := reason != ""
	switch {
	case earlyStop:
		// Stop may already have happened externally; both calls are safe.
		r.machine.Stop()
	case r.machine.Complete():
	case r.machine.State() == StatePaused:
		// Pause landed against the final step; nothing is left to run.
		r.machine.Resume()
		r.machine.Complete()
	default:
		// Stop landed against the final step. Its result is recorded, but
		// the run still ended by request.
		earlyStop = true
		reason = StopReasonStopped
		stoppedAt = total - 1
	}

	snap := r.machine.Snapshot()
	return &Summary{
		Success:       snap.Progress.Failed == 0 && !earlyStop,
		Passed:        snap.Progress.Passed,
		Failed:        snap.Progress.Failed,
		Skipped:       snap.Progress.Skipped,
		Total:         total,
		StoppedEarly:  earlyStop,
		StoppedAtStep: stoppedAt,
		StopReason:    reason,
		Duration:      snap.Timing.Elapsed,
		State:         snap.State,
		Results:       snap.Results,
	}
}
