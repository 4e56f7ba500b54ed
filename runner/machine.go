// CLAUDE:SUMMARY Run state machine: guarded lifecycle mutators, paused-time-excluding clock, progress/ETA, synchronous change events.
package runner

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrRunActive is returned by Start while a run is in flight. Silently
	// dropping a start request would be surprising, so this one misuse is
	// surfaced as an error instead of a false return.
	ErrRunActive = errors.New("runner: run already active")

	// ErrNoSteps is returned when a run is started with no steps.
	ErrNoSteps = errors.New("runner: no steps")
)

// Event is a synchronous change notification emitted by every successful
// mutator.
type Event struct {
	Type      string    `json:"type"`
	Previous  Snapshot  `json:"previous"`
	Current   Snapshot  `json:"current"`
	Timestamp time.Time `json:"timestamp"`
}

// Progress is the step-count view of a run.
type Progress struct {
	CurrentStep int     `json:"current_step"`
	TotalSteps  int     `json:"total_steps"`
	Percentage  float64 `json:"percentage"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	Skipped     int     `json:"skipped"`
	Remaining   int     `json:"remaining"`
}

// Timing is the clock view of a run. Elapsed always excludes paused
// intervals.
type Timing struct {
	StartedAt          time.Time      `json:"started_at,omitzero"`
	EndedAt            time.Time      `json:"ended_at,omitzero"`
	Elapsed            time.Duration  `json:"elapsed"`
	PausedTotal        time.Duration  `json:"paused_total"`
	AverageStep        time.Duration  `json:"average_step"`
	EstimatedRemaining *time.Duration `json:"estimated_remaining,omitempty"`
}

// Snapshot is a point-in-time copy of the run. Readers always get copies;
// only Machine mutators touch the underlying state.
type Snapshot struct {
	State    State        `json:"state"`
	Progress Progress     `json:"progress"`
	Timing   Timing       `json:"timing"`
	Results  []StepResult `json:"results"`
	Error    string       `json:"error,omitempty"`
}

// Machine is the run lifecycle state machine. All mutators are guarded by
// the transition table; disallowed calls return false (Start excepted, see
// ErrRunActive). Safe for concurrent use, though the intended model is a
// single owning goroutine driving mutations.
type Machine struct {
	mu   sync.Mutex
	cond *sync.Cond

	state   State
	total   int
	current int
	passed  int
	failed  int
	skipped int
	results []StepResult
	errMsg  string

	// inFlight is set between SetCurrentStep and CompleteStep. A Stop that
	// lands inside that window still lets the executing step record its
	// result.
	inFlight bool

	startedAt   time.Time
	endedAt     time.Time
	pausedAt    time.Time
	pausedTotal time.Duration
	stepDurSum  time.Duration

	subs    map[int]func(Event)
	nextSub int
	logger  *slog.Logger
}

// NewMachine creates a Machine in the idle state.
func NewMachine(logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Machine{state: StateIdle, subs: make(map[int]func(Event)), logger: logger}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// State returns the current lifecycle state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns a copy of the full run state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers a synchronous change listener and returns its remover.
// Listener panics are recovered and logged; they never propagate into the
// mutator that triggered them.
func (m *Machine) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Start begins a run of totalSteps steps. It succeeds from idle and from any
// terminal state (implicitly resetting first). Starting while a run is
// active returns ErrRunActive.
func (m *Machine) Start(totalSteps int) error {
	if totalSteps <= 0 {
		return ErrNoSteps
	}
	m.mu.Lock()
	if m.state.Active() {
		m.mu.Unlock()
		return ErrRunActive
	}
	prev := m.snapshotLocked()
	m.resetLocked()
	m.total = totalSteps
	m.startedAt = time.Now()
	m.state = StateRunning
	ev := m.eventLocked("start", prev)
	m.mu.Unlock()

	m.emit(ev)
	return nil
}

// Pause suspends a running run.
func (m *Machine) Pause() bool {
	return m.transition("pause", StatePaused, func() {
		m.pausedAt = time.Now()
	})
}

// Resume continues a paused run and wakes the run loop's pause checkpoint.
func (m *Machine) Resume() bool {
	ok := m.transition("resume", StateRunning, func() {
		m.pausedTotal += time.Since(m.pausedAt)
		m.pausedAt = time.Time{}
	})
	if ok {
		m.cond.Broadcast()
	}
	return ok
}

// Stop ends the run from running or paused. Cooperative: the loop observes
// it at the next checkpoint.
func (m *Machine) Stop() bool {
	ok := m.transition("stop", StateStopped, func() {
		if !m.pausedAt.IsZero() {
			m.pausedTotal += time.Since(m.pausedAt)
			m.pausedAt = time.Time{}
		}
		m.endedAt = time.Now()
	})
	if ok {
		m.cond.Broadcast()
	}
	return ok
}

// Complete marks a running run finished.
func (m *Machine) Complete() bool {
	return m.transition("complete", StateCompleted, func() {
		m.endedAt = time.Now()
	})
}

// SetError moves a running run to the error state.
func (m *Machine) SetError(msg string) bool {
	return m.transition("error", StateError, func() {
		m.errMsg = msg
		m.endedAt = time.Now()
	})
}

// Reset returns a terminal run to idle, clearing progress and timing.
func (m *Machine) Reset() bool {
	return m.transition("reset", StateIdle, func() {
		m.resetLocked()
	})
}

// SetCurrentStep records the index of the step about to execute.
func (m *Machine) SetCurrentStep(i int) bool {
	m.mu.Lock()
	if !m.state.Active() || i < 0 || i > m.total {
		m.mu.Unlock()
		return false
	}
	prev := m.snapshotLocked()
	m.current = i
	m.inFlight = true
	ev := m.eventLocked("progress", prev)
	m.mu.Unlock()
	m.emit(ev)
	return true
}

// CompleteStep appends a step result and recomputes progress, the rolling
// average step duration, and the remaining-time estimate. Accepted while
// paused, and once after a stop that landed against the step in flight: the
// action already hit the page, so its result is recorded either way.
func (m *Machine) CompleteStep(res StepResult) bool {
	m.mu.Lock()
	if !m.state.Active() && !(m.state == StateStopped && m.inFlight) {
		m.mu.Unlock()
		return false
	}
	prev := m.snapshotLocked()
	m.inFlight = false
	m.results = append(m.results, res)
	switch res.Status {
	case StepPassed:
		m.passed++
	case StepFailed:
		m.failed++
	case StepSkipped:
		m.skipped++
	}
	m.current = len(m.results)
	m.stepDurSum += res.Duration
	ev := m.eventLocked("step", prev)
	m.mu.Unlock()
	m.emit(ev)
	return true
}

// WaitWhilePaused blocks while the run is paused and returns the state that
// ended the wait. Resume and Stop both wake it; there is no polling.
func (m *Machine) WaitWhilePaused() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.state == StatePaused {
		m.cond.Wait()
	}
	return m.state
}

// transition applies a guarded state change plus its bookkeeping, emitting
// one event on success.
func (m *Machine) transition(evType string, to State, apply func()) bool {
	m.mu.Lock()
	if !m.state.CanTransitionTo(to) {
		m.mu.Unlock()
		return false
	}
	prev := m.snapshotLocked()
	apply()
	m.state = to
	ev := m.eventLocked(evType, prev)
	m.mu.Unlock()
	m.emit(ev)
	return true
}

func (m *Machine) resetLocked() {
	m.total, m.current = 0, 0
	m.inFlight = false
	m.passed, m.failed, m.skipped = 0, 0, 0
	m.results = nil
	m.errMsg = ""
	m.startedAt, m.endedAt, m.pausedAt = time.Time{}, time.Time{}, time.Time{}
	m.pausedTotal, m.stepDurSum = 0, 0
}

func (m *Machine) snapshotLocked() Snapshot {
	s := Snapshot{
		State: m.state,
		Progress: Progress{
			CurrentStep: m.current,
			TotalSteps:  m.total,
			Passed:      m.passed,
			Failed:      m.failed,
			Skipped:     m.skipped,
			Remaining:   m.total - m.current,
		},
		Timing: Timing{
			StartedAt:   m.startedAt,
			EndedAt:     m.endedAt,
			PausedTotal: m.pausedTotal,
			Elapsed:     m.elapsedLocked(),
		},
		Results: append([]StepResult(nil), m.results...),
		Error:   m.errMsg,
	}
	if m.total > 0 {
		s.Progress.Percentage = 100 * float64(m.current) / float64(m.total)
	}
	if n := len(m.results); n > 0 {
		avg := m.stepDurSum / time.Duration(n)
		s.Timing.AverageStep = avg
		eta := time.Duration(s.Progress.Remaining) * avg
		s.Timing.EstimatedRemaining = &eta
	}
	return s
}

// elapsedLocked is wall time since start minus accumulated paused time; the
// clock freezes at pausedAt while paused and at endedAt once terminal.
func (m *Machine) elapsedLocked() time.Duration {
	if m.startedAt.IsZero() {
		return 0
	}
	ref := time.Now()
	if !m.pausedAt.IsZero() {
		ref = m.pausedAt
	} else if !m.endedAt.IsZero() {
		ref = m.endedAt
	}
	return ref.Sub(m.startedAt) - m.pausedTotal
}

func (m *Machine) eventLocked(evType string, prev Snapshot) Event {
	return Event{Type: evType, Previous: prev, Current: m.snapshotLocked(), Timestamp: time.Now()}
}

func (m *Machine) emit(ev Event) {
	m.mu.Lock()
	subs := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if p := recover(); p != nil {
					m.logger.Error("runner: subscriber panic", "event", ev.Type, "panic", p)
				}
			}()
			fn(ev)
		}()
	}
}
