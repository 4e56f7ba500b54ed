// CLAUDE:SUMMARY SQLite run journal: async buffered persistence of run summaries and step results.
// Package journal persists run summaries and step results to SQLite. It is
// an optional sink outside the resolution core: writes are asynchronous and
// dropped under backpressure so a slow disk never stalls a run.
package journal

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/domreplay/runner"
)

// Schema for the journal tables. Applied by Init.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	page_url TEXT,
	state TEXT NOT NULL,
	success INTEGER NOT NULL,
	passed INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	skipped INTEGER NOT NULL,
	total INTEGER NOT NULL,
	stopped_early INTEGER NOT NULL,
	stopped_at_step INTEGER NOT NULL,
	stop_reason TEXT,
	duration_us INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS step_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	step_id TEXT NOT NULL,
	status TEXT NOT NULL,
	success INTEGER NOT NULL,
	strategy TEXT,
	confidence REAL,
	error TEXT,
	duration_us INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_step_results_run ON step_results(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

// entry is one queued write.
type entry struct {
	runID   string
	pageURL string
	summary *runner.Summary
	step    *runner.StepResult
}

// Journal writes run records asynchronously.
type Journal struct {
	db   *sql.DB
	ch   chan entry
	done chan struct{}
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

// New creates a Journal backed by the given database. Call Init once to
// apply the schema, then Close to drain and stop.
func New(db *sql.DB) *Journal {
	j := &Journal{
		db:   db,
		ch:   make(chan entry, 256),
		done: make(chan struct{}),
	}
	go j.flushLoop()
	return j
}

// Init creates the journal tables if they don't exist.
func (j *Journal) Init() error {
	_, err := j.db.Exec(Schema)
	return err
}

// RecordStep queues one step result. Non-blocking; drops if the buffer is
// full or the journal is closed.
func (j *Journal) RecordStep(runID string, res runner.StepResult) {
	j.enqueue(entry{runID: runID, step: &res})
}

// RecordRun queues a finished run's summary.
func (j *Journal) RecordRun(runID, pageURL string, sum *runner.Summary) {
	j.enqueue(entry{runID: runID, pageURL: pageURL, summary: sum})
}

func (j *Journal) enqueue(e entry) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}
	select {
	case j.ch <- e:
	default:
		// buffer full — drop rather than backpressure the run loop
	}
}

// Close drains the buffer and stops the flush goroutine.
func (j *Journal) Close() error {
	j.once.Do(func() {
		j.mu.Lock()
		j.closed = true
		close(j.ch)
		j.mu.Unlock()
		<-j.done
	})
	return nil
}

func (j *Journal) flushLoop() {
	defer close(j.done)

	batch := make([]entry, 0, 32)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-j.ch:
			if !ok {
				j.flushBatch(batch)
				return
			}
			batch = append(batch, e)
			if len(batch) >= 32 {
				j.flushBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				j.flushBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (j *Journal) flushBatch(batch []entry) {
	if len(batch) == 0 {
		return
	}

	tx, err := j.db.Begin()
	if err != nil {
		slog.Error("journal: begin tx", "error", err)
		return
	}

	now := time.Now().Unix()
	for _, e := range batch {
		if e.step != nil {
			_, err = tx.Exec(`INSERT INTO step_results
				(run_id, step_id, status, success, strategy, confidence, error, duration_us, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				e.runID, e.step.StepID, string(e.step.Status), e.step.Success,
				e.step.Strategy, e.step.Confidence, e.step.Error,
				e.step.Duration.Microseconds(), now)
		} else if e.summary != nil {
			s := e.summary
			_, err = tx.Exec(`INSERT OR REPLACE INTO runs
				(run_id, page_url, state, success, passed, failed, skipped, total,
				 stopped_early, stopped_at_step, stop_reason, duration_us, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				e.runID, e.pageURL, string(s.State), s.Success, s.Passed, s.Failed,
				s.Skipped, s.Total, s.StoppedEarly, s.StoppedAtStep, s.StopReason,
				s.Duration.Microseconds(), now)
		}
		if err != nil {
			slog.Error("journal: insert", "error", err)
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("journal: commit", "error", err)
	}
}
