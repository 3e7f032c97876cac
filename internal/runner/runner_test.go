package runner

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebroseland/tracksync/internal/canonical"
	"github.com/calebroseland/tracksync/internal/syncerr"
)

var runT0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return runT0 }

func seededStores() (*canonical.FakeStore, *canonical.FakeStore) {
	tracker := &canonical.FakeStore{
		StoreName: "tracker",
		Now:       clock,
		Projects: []canonical.Project{
			{ID: "p1", Title: "Launch Plan", UpdatedAt: runT0},
			{ID: "p2", Title: "Q3 Retrospective", UpdatedAt: runT0},
		},
		Items: []canonical.Item{
			{ID: "i1", Title: "Write copy", Status: "In Progress", ProjectID: "p1", UpdatedAt: runT0},
		},
	}
	board := &canonical.FakeStore{StoreName: "board", Now: clock}
	return tracker, board
}

func TestRunner_CompletesAndCounts(t *testing.T) {
	tracker, board := seededStores()
	r := New(tracker, board, Options{}, slog.Default())
	require.Equal(t, StateIdle, r.State())

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, r.State())
	assert.Equal(t, StateCompleted, summary.State)
	assert.Equal(t, 2, summary.ProjectsSeen)
	assert.Equal(t, 2, summary.ProjectsCreated)
	assert.Equal(t, 1, summary.ItemsCreated)
	assert.False(t, summary.Canceled)
	assert.False(t, summary.FinishedAt.IsZero())
}

func TestRunner_InitialListingFailureIsFatal(t *testing.T) {
	tracker, board := seededStores()
	tracker.Fail = map[string]error{"ListProjects": errors.New("502 bad gateway")}

	r := New(tracker, board, Options{}, slog.Default())
	summary, err := r.Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, &syncerr.SyncError{Code: syncerr.CodeUpstreamUnavailable}))
	assert.Equal(t, StateFailed, r.State())
	assert.Equal(t, StateFailed, summary.State)
	assert.Zero(t, board.WriteCount(""))
}

// Under dry-run every mutation is simulated: the real stores see zero writes
// while the summary still reports the would-be creates.
func TestRunner_DryRunWritesNothing(t *testing.T) {
	tracker, board := seededStores()
	r := New(tracker, board, Options{DryRun: true}, slog.Default())

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, summary.DryRun)
	assert.Equal(t, 2, summary.ProjectsCreated)
	assert.Equal(t, 1, summary.ItemsCreated)
	assert.Zero(t, tracker.WriteCount(""))
	assert.Zero(t, board.WriteCount(""))
	assert.Empty(t, board.Projects)
}

// Per-project failures never abort the run or fail the process.
func TestRunner_ProjectFailureIsIsolated(t *testing.T) {
	tracker, board := seededStores()
	board.Fail = map[string]error{"CreateProject": errors.New("403 forbidden")}

	r := New(tracker, board, Options{}, slog.Default())
	summary, err := r.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateCompleted, summary.State)
	assert.Equal(t, 2, summary.ProjectsSeen)
	assert.Len(t, summary.Errors, 2)
	for _, e := range summary.Errors {
		assert.True(t, errors.Is(e.Err, &syncerr.SyncError{Code: syncerr.CodeCreateFailed}))
	}
}

// A context canceled before the loop starts still yields a summary.
func TestRunner_CancellationEmitsPartialSummary(t *testing.T) {
	tracker, board := seededStores()
	r := New(tracker, board, Options{}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := r.Run(ctx)
	require.NoError(t, err)
	assert.True(t, summary.Canceled)
	assert.Equal(t, StateCompleted, summary.State)
	assert.Zero(t, summary.ProjectsSeen)
}

func TestRunner_ConcurrencyFloor(t *testing.T) {
	tracker, board := seededStores()
	r := New(tracker, board, Options{Concurrency: -3}, slog.Default())
	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ProjectsSeen)
}
