// CLAUDE:SUMMARY Replayer orchestrator: browser lifecycle, run loop wiring, journal and report plumbing.
package domreplay

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/hazyhaar/domreplay/descriptor"
	"github.com/hazyhaar/domreplay/dom/roddom"
	"github.com/hazyhaar/domreplay/idgen"
	"github.com/hazyhaar/domreplay/internal/journal"
	"github.com/hazyhaar/domreplay/internal/report"
	"github.com/hazyhaar/domreplay/resolve"
	"github.com/hazyhaar/domreplay/runner"

	// sqlite driver for the journal database.
	_ "modernc.org/sqlite"
)

// Replayer binds a browser, a resolver and the run machinery behind one
// handle. Create with New, Start before use, Close when done.
type Replayer struct {
	cfg      *Config
	logger   *slog.Logger
	resolver *resolve.Resolver
	registry *report.Registry
	newRunID idgen.Generator

	mu      sync.Mutex
	mgr     *roddom.Manager
	db      *sql.DB
	journal *journal.Journal
	started bool
}

// New builds a Replayer from cfg. A nil cfg gets all defaults.
func New(cfg *Config, logger *slog.Logger) *Replayer {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	ropts := cfg.Resolver
	ropts.Logger = logger
	return &Replayer{
		cfg:      cfg,
		logger:   logger,
		resolver: resolve.New(ropts),
		registry: report.NewRegistry(),
		newRunID: idgen.Prefixed("run_", idgen.Default),
	}
}

// Start connects the browser and opens the journal. It is an error to
// start twice without an intervening Close.
func (r *Replayer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("domreplay: already started")
	}

	mgr := roddom.NewManager(roddom.Config{
		RemoteURL:       r.cfg.Browser.Remote,
		Headful:         r.cfg.Browser.Headful,
		Stealth:         *r.cfg.Browser.Stealth,
		NavigateTimeout: r.cfg.Browser.NavigateTimeout,
		Logger:          r.logger,
	})
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("domreplay: browser: %w", err)
	}
	r.mgr = mgr

	if r.cfg.JournalPath != "" {
		db, err := sql.Open("sqlite", r.cfg.JournalPath)
		if err != nil {
			mgr.Close()
			return fmt.Errorf("domreplay: open journal: %w", err)
		}
		j := journal.New(db)
		if err := j.Init(); err != nil {
			j.Close()
			db.Close()
			mgr.Close()
			return fmt.Errorf("domreplay: init journal: %w", err)
		}
		r.db = db
		r.journal = j
	}

	r.started = true
	return nil
}

// Close tears down the browser and flushes the journal.
func (r *Replayer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil
	}
	r.started = false
	var firstErr error
	if r.journal != nil {
		if err := r.journal.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.journal = nil
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.db = nil
	}
	if r.mgr != nil {
		if err := r.mgr.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.mgr = nil
	}
	return firstErr
}

// RunResult pairs a run ID with its summary and the machine that drove it.
type RunResult struct {
	RunID   string
	Summary *runner.Summary
	Machine *runner.Machine
}

// Run opens the steps file's URL in a fresh page and replays its steps.
// The run's Machine stays registered on the report surface afterwards so
// status reads keep resolving for finished runs.
func (r *Replayer) Run(ctx context.Context, sf *StepsFile) (*RunResult, error) {
	r.mu.Lock()
	mgr, j := r.mgr, r.journal
	r.mu.Unlock()
	if mgr == nil {
		return nil, fmt.Errorf("domreplay: not started")
	}

	runID := r.newRunID()
	log := r.logger.With("run_id", runID, "name", sf.Name)

	page, err := mgr.Open(ctx, sf.URL)
	if err != nil {
		return nil, fmt.Errorf("domreplay: open %s: %w", sf.URL, err)
	}
	defer page.Close()

	provider := roddom.NewProvider(page)
	machine := runner.NewMachine(log)
	_ = r.registry.Register(runID, machine)

	opts := r.cfg.Run
	opts.Logger = log
	run := runner.New(machine, r.resolver, provider, roddom.NewActor(), opts)

	log.Info("run starting", "url", sf.URL, "steps", len(sf.Steps))
	summary, err := run.Run(ctx, sf.Steps)
	if err != nil {
		return nil, err
	}

	if j != nil {
		for _, sr := range summary.Results {
			j.RecordStep(runID, sr)
		}
		j.RecordRun(runID, sf.URL, summary)
	}
	log.Info("run finished",
		"success", summary.Success,
		"passed", summary.Passed,
		"failed", summary.Failed,
		"skipped", summary.Skipped)
	return &RunResult{RunID: runID, Summary: summary, Machine: machine}, nil
}

// Resolve opens url and relocates a single descriptor without acting on it.
func (r *Replayer) Resolve(ctx context.Context, url string, d *descriptor.Descriptor) (*resolve.MatchResult, error) {
	r.mu.Lock()
	mgr := r.mgr
	r.mu.Unlock()
	if mgr == nil {
		return nil, fmt.Errorf("domreplay: not started")
	}
	page, err := mgr.Open(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("domreplay: open %s: %w", url, err)
	}
	defer page.Close()

	provider := roddom.NewProvider(page)
	q, err := provider.Scope(ctx, d.FramePath, d.ShadowHosts)
	if err != nil {
		return nil, err
	}
	return r.resolver.Find(ctx, d, q), nil
}

// Resolver exposes the shared resolver, mainly for static (memdom) lookups.
func (r *Replayer) Resolver() *resolve.Resolver { return r.resolver }

// ReportHandler serves the read-only run status API.
func (r *Replayer) ReportHandler() http.Handler {
	return report.Handler(r.registry, r.logger)
}
