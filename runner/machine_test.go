package runner

import (
	"sync"
	"testing"
	"time"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateRunning, true},
		{StateIdle, StatePaused, false},
		{StateIdle, StateStopped, false},
		{StateRunning, StatePaused, true},
		{StateRunning, StateStopped, true},
		{StateRunning, StateCompleted, true},
		{StateRunning, StateError, true},
		{StateRunning, StateIdle, false},
		{StatePaused, StateRunning, true},
		{StatePaused, StateStopped, true},
		{StatePaused, StateCompleted, false},
		{StatePaused, StateError, false},
		{StateStopped, StateIdle, true},
		{StateStopped, StateRunning, false},
		{StateCompleted, StateIdle, true},
		{StateCompleted, StateRunning, false},
		{StateError, StateIdle, true},
		{StateError, StateRunning, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestStateClassifiers(t *testing.T) {
	for _, s := range []State{StateStopped, StateCompleted, StateError} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []State{StateIdle, StateRunning, StatePaused} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	if !StateRunning.Active() || !StatePaused.Active() {
		t.Error("running and paused should be active")
	}
	if StateIdle.Active() || StateStopped.Active() {
		t.Error("idle and stopped should not be active")
	}
}

func TestStartFromIdle(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Start(3); err != nil {
		t.Fatal(err)
	}
	if got := m.State(); got != StateRunning {
		t.Fatalf("state = %s, want running", got)
	}
}

func TestStartZeroSteps(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Start(0); err != ErrNoSteps {
		t.Fatalf("err = %v, want ErrNoSteps", err)
	}
}

func TestStartWhileActive(t *testing.T) {
	m := NewMachine(nil)
	m.Start(3)
	m.SetCurrentStep(1)

	if err := m.Start(5); err != ErrRunActive {
		t.Fatalf("err = %v, want ErrRunActive", err)
	}
	snap := m.Snapshot()
	if snap.State != StateRunning || snap.Progress.TotalSteps != 3 || snap.Progress.CurrentStep != 1 {
		t.Fatalf("rejected Start modified state: %+v", snap)
	}

	m.Pause()
	if err := m.Start(5); err != ErrRunActive {
		t.Fatalf("err while paused = %v, want ErrRunActive", err)
	}
}

func TestStartFromTerminalResets(t *testing.T) {
	m := NewMachine(nil)
	m.Start(2)
	m.CompleteStep(StepResult{StepID: "a", Status: StepPassed})
	m.Complete()

	if err := m.Start(4); err != nil {
		t.Fatal(err)
	}
	snap := m.Snapshot()
	if snap.Progress.TotalSteps != 4 || snap.Progress.Passed != 0 || len(snap.Results) != 0 {
		t.Fatalf("previous run leaked into new one: %+v", snap)
	}
}

func TestInvalidMutatorsReturnFalse(t *testing.T) {
	m := NewMachine(nil)
	if m.Pause() {
		t.Error("Pause from idle should fail")
	}
	if m.Resume() {
		t.Error("Resume from idle should fail")
	}
	if m.Stop() {
		t.Error("Stop from idle should fail")
	}
	if m.Complete() {
		t.Error("Complete from idle should fail")
	}
	if m.Reset() {
		t.Error("Reset from idle should fail")
	}

	m.Start(1)
	if m.Resume() {
		t.Error("Resume from running should fail")
	}
	if m.Reset() {
		t.Error("Reset from running should fail")
	}

	m.Pause()
	if m.Complete() {
		t.Error("Complete from paused should fail")
	}
	if m.SetError("x") {
		t.Error("SetError from paused should fail")
	}
}

func TestPauseResumeStop(t *testing.T) {
	m := NewMachine(nil)
	m.Start(2)
	if !m.Pause() {
		t.Fatal("Pause failed")
	}
	if got := m.State(); got != StatePaused {
		t.Fatalf("state = %s", got)
	}
	if !m.Resume() {
		t.Fatal("Resume failed")
	}
	if !m.Stop() {
		t.Fatal("Stop failed")
	}
	if got := m.State(); got != StateStopped {
		t.Fatalf("state = %s", got)
	}
	if !m.Reset() {
		t.Fatal("Reset from stopped failed")
	}
	if got := m.State(); got != StateIdle {
		t.Fatalf("state = %s", got)
	}
}

func TestElapsedExcludesPause(t *testing.T) {
	m := NewMachine(nil)
	m.Start(1)
	time.Sleep(20 * time.Millisecond)

	m.Pause()
	pausedSnap := m.Snapshot()
	time.Sleep(40 * time.Millisecond)

	// Clock frozen while paused.
	frozen := m.Snapshot()
	if frozen.Timing.Elapsed != pausedSnap.Timing.Elapsed {
		t.Fatalf("elapsed advanced while paused: %s -> %s",
			pausedSnap.Timing.Elapsed, frozen.Timing.Elapsed)
	}

	m.Resume()
	m.Complete()
	snap := m.Snapshot()
	if snap.Timing.PausedTotal < 40*time.Millisecond {
		t.Fatalf("paused total = %s, want >= 40ms", snap.Timing.PausedTotal)
	}
	wall := snap.Timing.EndedAt.Sub(snap.Timing.StartedAt)
	if snap.Timing.Elapsed >= wall {
		t.Fatalf("elapsed %s should be less than wall %s", snap.Timing.Elapsed, wall)
	}
	if diff := wall - snap.Timing.Elapsed - snap.Timing.PausedTotal; diff < -time.Millisecond || diff > time.Millisecond {
		t.Fatalf("elapsed + paused != wall (off by %s)", diff)
	}
}

func TestProgressAndETA(t *testing.T) {
	m := NewMachine(nil)
	m.Start(4)

	snap := m.Snapshot()
	if snap.Timing.EstimatedRemaining != nil {
		t.Fatal("ETA should be nil before the first completed step")
	}
	if snap.Progress.Percentage != 0 {
		t.Fatalf("percentage = %v, want 0", snap.Progress.Percentage)
	}

	m.CompleteStep(StepResult{StepID: "a", Status: StepPassed, Duration: 10 * time.Millisecond})
	snap = m.Snapshot()
	if snap.Progress.Percentage != 25 {
		t.Fatalf("percentage = %v, want 25", snap.Progress.Percentage)
	}
	if snap.Timing.EstimatedRemaining == nil {
		t.Fatal("ETA should exist after one sample")
	}
	if got := *snap.Timing.EstimatedRemaining; got != 30*time.Millisecond {
		t.Fatalf("ETA = %s, want 30ms", got)
	}
	if snap.Timing.AverageStep != 10*time.Millisecond {
		t.Fatalf("average = %s, want 10ms", snap.Timing.AverageStep)
	}

	m.CompleteStep(StepResult{StepID: "b", Status: StepFailed, Duration: 20 * time.Millisecond})
	m.CompleteStep(StepResult{StepID: "c", Status: StepSkipped})
	m.CompleteStep(StepResult{StepID: "d", Status: StepPassed, Duration: 10 * time.Millisecond})

	snap = m.Snapshot()
	if snap.Progress.Percentage != 100 || snap.Progress.Remaining != 0 {
		t.Fatalf("progress = %+v", snap.Progress)
	}
	if snap.Progress.Passed != 2 || snap.Progress.Failed != 1 || snap.Progress.Skipped != 1 {
		t.Fatalf("counters = %+v", snap.Progress)
	}
	if got := *snap.Timing.EstimatedRemaining; got != 0 {
		t.Fatalf("ETA at completion = %s, want 0", got)
	}
}

func TestCompleteStepOnlyWhileActive(t *testing.T) {
	m := NewMachine(nil)
	if m.CompleteStep(StepResult{StepID: "a", Status: StepPassed}) {
		t.Fatal("CompleteStep from idle should fail")
	}
	m.Start(1)
	m.Pause()
	// The in-flight step may land its result after Pause.
	if !m.CompleteStep(StepResult{StepID: "a", Status: StepPassed}) {
		t.Fatal("CompleteStep while paused should succeed")
	}
	m.Stop()
	if m.CompleteStep(StepResult{StepID: "b", Status: StepPassed}) {
		t.Fatal("CompleteStep after Stop should fail")
	}
}

func TestCompleteStepAfterStopMidStep(t *testing.T) {
	m := NewMachine(nil)
	m.Start(1)
	m.SetCurrentStep(0)
	// Stop lands while the step executes; the step still records its result.
	m.Stop()
	if !m.CompleteStep(StepResult{StepID: "a", Status: StepPassed}) {
		t.Fatal("in-flight step's result dropped by Stop")
	}
	// Exactly one trailing result is accepted.
	if m.CompleteStep(StepResult{StepID: "b", Status: StepPassed}) {
		t.Fatal("second CompleteStep after Stop should succeed only once")
	}
	snap := m.Snapshot()
	if len(snap.Results) != 1 || snap.Progress.Passed != 1 {
		t.Fatalf("snapshot = %+v", snap.Progress)
	}
}

func TestEvents(t *testing.T) {
	m := NewMachine(nil)
	var mu sync.Mutex
	var types []string
	unsub := m.Subscribe(func(ev Event) {
		mu.Lock()
		types = append(types, ev.Type)
		mu.Unlock()
		if ev.Timestamp.IsZero() {
			t.Error("event without timestamp")
		}
	})

	m.Start(2)
	m.Pause()
	m.Resume()
	m.CompleteStep(StepResult{StepID: "a", Status: StepPassed})
	m.Complete()

	mu.Lock()
	got := append([]string(nil), types...)
	mu.Unlock()
	want := []string{"start", "pause", "resume", "step", "complete"}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}

	unsub()
	m.Reset()
	mu.Lock()
	after := len(types)
	mu.Unlock()
	if after != len(want) {
		t.Fatal("unsubscribed listener still received events")
	}
}

func TestEventCarriesPreviousAndCurrent(t *testing.T) {
	m := NewMachine(nil)
	var ev Event
	m.Subscribe(func(e Event) {
		if e.Type == "pause" {
			ev = e
		}
	})
	m.Start(1)
	m.Pause()

	if ev.Previous.State != StateRunning || ev.Current.State != StatePaused {
		t.Fatalf("pause event states: prev %s, cur %s", ev.Previous.State, ev.Current.State)
	}
}

func TestSubscriberPanicRecovered(t *testing.T) {
	m := NewMachine(nil)
	m.Subscribe(func(Event) { panic("listener bug") })

	received := 0
	m.Subscribe(func(Event) { received++ })

	if err := m.Start(1); err != nil {
		t.Fatal(err)
	}
	if !m.Complete() {
		t.Fatal("mutator failed after subscriber panic")
	}
	if received != 2 {
		t.Fatalf("healthy subscriber got %d events, want 2", received)
	}
}

func TestWaitWhilePausedWakesOnResume(t *testing.T) {
	m := NewMachine(nil)
	m.Start(1)
	m.Pause()

	done := make(chan State, 1)
	go func() { done <- m.WaitWhilePaused() }()

	select {
	case <-done:
		t.Fatal("WaitWhilePaused returned while paused")
	case <-time.After(20 * time.Millisecond):
	}

	m.Resume()
	select {
	case st := <-done:
		if st != StateRunning {
			t.Fatalf("state = %s, want running", st)
		}
	case <-time.After(time.Second):
		t.Fatal("Resume did not wake the waiter")
	}
}

func TestWaitWhilePausedWakesOnStop(t *testing.T) {
	m := NewMachine(nil)
	m.Start(1)
	m.Pause()

	done := make(chan State, 1)
	go func() { done <- m.WaitWhilePaused() }()

	m.Stop()
	select {
	case st := <-done:
		if st != StateStopped {
			t.Fatalf("state = %s, want stopped", st)
		}
	case <-time.After(time.Second):
		t.Fatal("Stop did not wake the waiter")
	}
}
