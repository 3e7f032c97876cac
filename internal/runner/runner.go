// Package runner orchestrates a full reconciliation pass: list every tracker
// project, delegate each one to the reconciliation engine, and aggregate the
// results into a single run summary.
package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/calebroseland/tracksync/internal/canonical"
	"github.com/calebroseland/tracksync/internal/recon"
	"github.com/calebroseland/tracksync/internal/syncerr"
)

// State is the run controller's lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Options configures a run.
type Options struct {
	// DryRun suppresses every write; the summary still reports what would
	// have happened. Defaults to true at the configuration layer.
	DryRun bool

	// Concurrency bounds how many independent projects reconcile at once.
	// Items within a project are always sequential. Values below 1 mean 1.
	Concurrency int

	// RequestTimeout bounds each store call. Zero means no per-call deadline
	// beyond the run context.
	RequestTimeout time.Duration
}

// Summary is the outcome of one run, emitted exactly once at the end.
type Summary struct {
	recon.Report

	State      State
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	// Canceled marks a run interrupted between projects; the summary covers
	// the work completed before the interrupt.
	Canceled bool
	// ProjectsSeen is how many tracker projects the run visited.
	ProjectsSeen int
}

// Runner drives a single reconciliation pass. Running is the only state with
// side effects; a Runner is single-use.
type Runner struct {
	tracker canonical.Store
	board   canonical.Store
	opts    Options
	logger  *slog.Logger

	mu    sync.Mutex
	state State
}

// New creates a Runner. Under dry-run both stores are wrapped so no write
// call site can reach the network.
func New(tracker, board canonical.Store, opts Options, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	// Order matters: the timeout wraps the real transport, the dry-run
	// decorator wraps everything so no write call site reaches the network.
	tracker = canonical.WithTimeout(tracker, opts.RequestTimeout)
	board = canonical.WithTimeout(board, opts.RequestTimeout)
	if opts.DryRun {
		tracker = canonical.NewDryRunStore(tracker, logger)
		board = canonical.NewDryRunStore(board, logger)
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Runner{
		tracker: tracker,
		board:   board,
		opts:    opts,
		logger:  logger,
		state:   StateIdle,
	}
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Run executes the pass. It returns an error only when the initial project
// listing fails; per-project and per-item failures are recorded in the
// summary instead. A canceled context between projects stops the loop and
// still returns the summary of work completed so far.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		DryRun:    r.opts.DryRun,
		StartedAt: time.Now(),
	}
	r.setState(StateRunning)

	projects, err := r.listProjects(ctx)
	if err != nil {
		r.setState(StateFailed)
		summary.State = StateFailed
		summary.FinishedAt = time.Now()
		return summary, syncerr.ErrUpstreamUnavailable(r.tracker.Name(), "list projects", err)
	}
	r.logger.Info("starting reconciliation",
		"projects", len(projects), "dry_run", r.opts.DryRun, "concurrency", r.opts.Concurrency)

	engine := recon.New(r.tracker, r.board, r.logger)

	var reportMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for _, proj := range projects {
		// Cancellation is honored between project iterations so a partial run
		// still emits what it finished.
		if ctx.Err() != nil {
			summary.Canceled = true
			break
		}

		g.Go(func() error {
			report := engine.SyncProject(gctx, proj)
			reportMu.Lock()
			summary.Report.Merge(report)
			summary.ProjectsSeen++
			reportMu.Unlock()
			return nil
		})
	}

	// Project goroutines never return errors; failures are in their reports.
	_ = g.Wait()
	if ctx.Err() != nil {
		summary.Canceled = true
	}

	r.setState(StateCompleted)
	summary.State = StateCompleted
	summary.FinishedAt = time.Now()
	r.logger.Info("reconciliation finished",
		"projects_seen", summary.ProjectsSeen,
		"created", summary.TotalCreates(),
		"conflicts", len(summary.Conflicts),
		"errors", len(summary.Errors),
		"canceled", summary.Canceled)
	return summary, nil
}

func (r *Runner) listProjects(ctx context.Context) ([]canonical.Project, error) {
	return r.tracker.ListProjects(ctx)
}
