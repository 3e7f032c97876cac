package recon

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebroseland/tracksync/internal/canonical"
)

func fixedClock() time.Time { return t0 }

func newTestEngine(tracker, board *canonical.FakeStore) *Engine {
	e := New(tracker, board, slog.Default())
	e.now = func() time.Time { return t0.Add(time.Hour) }
	return e
}

// First run against an empty board: the project and its item are created,
// the tracker records counterpart links, and a second run creates nothing.
func TestEngine_FirstRunCreatesAndLinks(t *testing.T) {
	tracker := &canonical.FakeStore{
		StoreName: "tracker",
		Now:       fixedClock,
		Projects: []canonical.Project{
			{ID: "p1", Title: "Launch Plan", UpdatedAt: t0},
		},
		Items: []canonical.Item{
			{ID: "i1", Title: "Write copy", Status: "In Progress", ProjectID: "p1", UpdatedAt: t0},
		},
	}
	board := &canonical.FakeStore{StoreName: "board", Now: fixedClock}

	engine := newTestEngine(tracker, board)
	report := engine.SyncProject(context.Background(), tracker.Projects[0])

	require.Empty(t, report.Errors)
	assert.Equal(t, 1, report.ProjectsCreated)
	assert.Equal(t, 1, report.ProjectsLinked)
	assert.Equal(t, 1, report.ItemsCreated)

	// Board has exactly one project and one open item.
	require.Len(t, board.Projects, 1)
	assert.Equal(t, "Launch Plan", board.Projects[0].Title)
	require.Len(t, board.Items, 1)
	assert.Equal(t, "Write copy", board.Items[0].Title)
	assert.Equal(t, "open", board.Items[0].Status)

	// Tracker now stores counterpart references and checkpoints.
	assert.Equal(t, board.Projects[0].ID, tracker.Projects[0].CounterpartID)
	assert.Equal(t, board.Items[0].ID, tracker.Items[0].CounterpartID)
	assert.False(t, tracker.Projects[0].LastSyncAt.IsZero())
	assert.False(t, tracker.Items[0].LastSyncAt.IsZero())
}

// Running twice with no external changes produces zero additional creates:
// every entity resolves via its stored counterpart link.
func TestEngine_SecondRunIsIdempotent(t *testing.T) {
	tracker := &canonical.FakeStore{
		StoreName: "tracker",
		Now:       fixedClock,
		Projects: []canonical.Project{
			{ID: "p1", Title: "Launch Plan", UpdatedAt: t0},
		},
		Items: []canonical.Item{
			{ID: "i1", Title: "Write copy", Status: "In Progress", ProjectID: "p1", UpdatedAt: t0},
		},
	}
	board := &canonical.FakeStore{StoreName: "board", Now: fixedClock}

	engine := newTestEngine(tracker, board)
	first := engine.SyncProject(context.Background(), tracker.Projects[0])
	require.Empty(t, first.Errors)
	createsAfterFirst := board.WriteCount("CreateProject") + board.WriteCount("CreateItem")
	require.Equal(t, 2, createsAfterFirst)

	// Second pass, clocks unchanged on both stores.
	second := engine.SyncProject(context.Background(), tracker.Projects[0])
	require.Empty(t, second.Errors)
	assert.Zero(t, second.ProjectsCreated)
	assert.Zero(t, second.ItemsCreated)
	assert.Equal(t, createsAfterFirst, board.WriteCount("CreateProject")+board.WriteCount("CreateItem"))

	// Unchanged pair takes the default direction: a no-op propagation that
	// still advances the checkpoint.
	assert.Equal(t, 1, second.ProjectsSynced)
	assert.Equal(t, 1, second.ItemsSyncedL2R)
}

// Both sides changed since the checkpoint: conflict, and neither store is
// written for that pair.
func TestEngine_ConflictWritesNothing(t *testing.T) {
	tracker := &canonical.FakeStore{
		StoreName: "tracker",
		Now:       fixedClock,
		Projects: []canonical.Project{
			{ID: "p1", Title: "Launch Plan", CounterpartID: "bp1", LastSyncAt: t0, UpdatedAt: t0.Add(time.Second)},
		},
		Items: []canonical.Item{
			{ID: "i1", Title: "Write copy", Status: "In Progress", ProjectID: "p1",
				CounterpartID: "bi1", LastSyncAt: t0, UpdatedAt: t0.Add(time.Second)},
		},
	}
	board := &canonical.FakeStore{
		StoreName: "board",
		Now:       fixedClock,
		Projects: []canonical.Project{
			{ID: "bp1", Title: "Launch Plan", UpdatedAt: t0.Add(2 * time.Second)},
		},
		Items: []canonical.Item{
			{ID: "bi1", Title: "Write copy", Status: "open", ProjectID: "bp1", UpdatedAt: t0.Add(2 * time.Second)},
		},
	}

	engine := newTestEngine(tracker, board)
	report := engine.SyncProject(context.Background(), tracker.Projects[0])

	require.Empty(t, report.Errors)
	assert.Equal(t, 1, report.ProjectsConflicted)
	assert.Equal(t, 1, report.ItemsConflicted)
	require.Len(t, report.Conflicts, 2)
	assert.Contains(t, report.Conflicts[0].Reason, "both sides changed")

	assert.Zero(t, tracker.WriteCount(""))
	assert.Zero(t, board.WriteCount(""))
}

// Tracker item status changed after the last sync, board untouched:
// left-to-right, board item closes, checkpoint advances.
func TestEngine_StatusChangePropagatesToBoard(t *testing.T) {
	tracker := &canonical.FakeStore{
		StoreName: "tracker",
		Now:       fixedClock,
		Projects: []canonical.Project{
			{ID: "p1", Title: "Launch Plan", CounterpartID: "bp1", LastSyncAt: t0, UpdatedAt: t0.Add(-time.Hour)},
		},
		Items: []canonical.Item{
			{ID: "i1", Title: "Write copy", Status: "Completed", ProjectID: "p1",
				CounterpartID: "bi1", LastSyncAt: t0, UpdatedAt: t0.Add(time.Minute)},
		},
	}
	board := &canonical.FakeStore{
		StoreName: "board",
		Now:       fixedClock,
		Projects: []canonical.Project{
			{ID: "bp1", Title: "Launch Plan", UpdatedAt: t0.Add(-time.Hour)},
		},
		Items: []canonical.Item{
			{ID: "bi1", Title: "Write copy", Status: "open", ProjectID: "bp1", UpdatedAt: t0.Add(-time.Hour)},
		},
	}

	engine := newTestEngine(tracker, board)
	report := engine.SyncProject(context.Background(), tracker.Projects[0])

	require.Empty(t, report.Errors)
	assert.Equal(t, 1, report.ItemsSyncedL2R)
	assert.Equal(t, "closed", board.Items[0].Status)
	assert.True(t, tracker.Items[0].LastSyncAt.After(t0))
}

// Board item closed after the last sync, tracker untouched: right-to-left,
// tracker status collapses to the canonical closed status.
func TestEngine_BoardChangePropagatesToTracker(t *testing.T) {
	tracker := &canonical.FakeStore{
		StoreName: "tracker",
		Now:       fixedClock,
		Projects: []canonical.Project{
			{ID: "p1", Title: "Launch Plan", CounterpartID: "bp1", LastSyncAt: t0, UpdatedAt: t0.Add(-time.Hour)},
		},
		Items: []canonical.Item{
			{ID: "i1", Title: "Write copy", Status: "In Progress", ProjectID: "p1",
				CounterpartID: "bi1", LastSyncAt: t0, UpdatedAt: t0.Add(-time.Hour)},
		},
	}
	board := &canonical.FakeStore{
		StoreName: "board",
		Now:       fixedClock,
		Projects: []canonical.Project{
			{ID: "bp1", Title: "Launch Plan", UpdatedAt: t0.Add(-time.Hour)},
		},
		Items: []canonical.Item{
			{ID: "bi1", Title: "Write copy", Status: "closed", ProjectID: "bp1", UpdatedAt: t0.Add(time.Minute)},
		},
	}

	engine := newTestEngine(tracker, board)
	report := engine.SyncProject(context.Background(), tracker.Projects[0])

	require.Empty(t, report.Errors)
	assert.Equal(t, 1, report.ItemsSyncedR2L)
	assert.Equal(t, "Completed", tracker.Items[0].Status)
}

// A lost tracker link with the board record still present re-links by exact
// title match instead of creating a duplicate.
func TestEngine_StaleLinkSelfHeals(t *testing.T) {
	tracker := &canonical.FakeStore{
		StoreName: "tracker",
		Now:       fixedClock,
		Projects: []canonical.Project{
			{ID: "p1", Title: "Launch Plan", CounterpartID: "gone", LastSyncAt: t0, UpdatedAt: t0},
		},
	}
	board := &canonical.FakeStore{
		StoreName: "board",
		Now:       fixedClock,
		Projects: []canonical.Project{
			{ID: "bp1", Title: "Launch Plan", UpdatedAt: t0},
		},
	}

	engine := newTestEngine(tracker, board)
	report := engine.SyncProject(context.Background(), tracker.Projects[0])

	require.Empty(t, report.Errors)
	assert.Zero(t, report.ProjectsCreated)
	assert.Equal(t, 1, report.ProjectsLinked)
	assert.Equal(t, "bp1", tracker.Projects[0].CounterpartID)
	require.Len(t, board.Projects, 1)
}

// Closed tracker items create their board counterpart already closed.
func TestEngine_CreatesClosedItemForCompletedStatus(t *testing.T) {
	tracker := &canonical.FakeStore{
		StoreName: "tracker",
		Now:       fixedClock,
		Projects: []canonical.Project{
			{ID: "p1", Title: "Launch Plan", UpdatedAt: t0},
		},
		Items: []canonical.Item{
			{ID: "i1", Title: "Old task", Status: "Completed", ProjectID: "p1", UpdatedAt: t0},
		},
	}
	board := &canonical.FakeStore{StoreName: "board", Now: fixedClock}

	engine := newTestEngine(tracker, board)
	report := engine.SyncProject(context.Background(), tracker.Projects[0])

	require.Empty(t, report.Errors)
	require.Len(t, board.Items, 1)
	assert.Equal(t, "closed", board.Items[0].Status)
}

// A failure on one item is recorded and does not stop the others.
func TestEngine_ItemFailureIsIsolated(t *testing.T) {
	tracker := &canonical.FakeStore{
		StoreName: "tracker",
		Now:       fixedClock,
		Projects: []canonical.Project{
			{ID: "p1", Title: "Launch Plan", UpdatedAt: t0},
		},
		Items: []canonical.Item{
			{ID: "i1", Title: "First", Status: "In Progress", ProjectID: "p1", UpdatedAt: t0},
			{ID: "i2", Title: "Second", Status: "In Progress", ProjectID: "p1", UpdatedAt: t0},
		},
	}
	board := &canonical.FakeStore{StoreName: "board", Now: fixedClock}

	engine := newTestEngine(tracker, board)

	// First pass links the project so the failure case is isolated to items.
	report := engine.SyncProject(context.Background(), tracker.Projects[0])
	require.Empty(t, report.Errors)
	require.Len(t, board.Items, 2)

	// Now make every create fail and add a fresh unlinked item.
	board.Fail = map[string]error{"CreateItem": assert.AnError}
	tracker.Items = append(tracker.Items, canonical.Item{
		ID: "i3", Title: "Third", Status: "In Progress", ProjectID: "p1", UpdatedAt: t0.Add(2 * time.Hour),
	})

	report = engine.SyncProject(context.Background(), tracker.Projects[0])
	require.Len(t, report.Errors, 1)
	assert.Equal(t, KindItem, report.Errors[0].Kind)
	assert.Equal(t, "i3", report.Errors[0].EntityID)
	// The two healthy items still reconciled.
	assert.Equal(t, 2, report.ItemsSyncedL2R)
}

// Unpaired board items are never imported into the tracker.
func TestEngine_BoardOnlyItemsAreIgnored(t *testing.T) {
	tracker := &canonical.FakeStore{
		StoreName: "tracker",
		Now:       fixedClock,
		Projects: []canonical.Project{
			{ID: "p1", Title: "Launch Plan", CounterpartID: "bp1", LastSyncAt: t0, UpdatedAt: t0.Add(-time.Hour)},
		},
	}
	board := &canonical.FakeStore{
		StoreName: "board",
		Now:       fixedClock,
		Projects: []canonical.Project{
			{ID: "bp1", Title: "Launch Plan", UpdatedAt: t0.Add(-time.Hour)},
		},
		Items: []canonical.Item{
			{ID: "bi9", Title: "Board-only task", Status: "open", ProjectID: "bp1", UpdatedAt: t0},
		},
	}

	engine := newTestEngine(tracker, board)
	report := engine.SyncProject(context.Background(), tracker.Projects[0])

	require.Empty(t, report.Errors)
	assert.Empty(t, tracker.Items)
	assert.Zero(t, report.ItemsCreated)
}

// A propagated edit must not echo back. Pushing a tracker edit to the board
// stamps a fresh UpdatedAt on the board record; run two must read that stamp
// as covered by the checkpoint, not as a board-side change or a conflict.
func TestEngine_PropagationDoesNotEchoBack(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	tracker := &canonical.FakeStore{
		StoreName: "tracker",
		Projects: []canonical.Project{
			{ID: "p1", Title: "Launch Plan", CounterpartID: "bp1", LastSyncAt: base, UpdatedAt: base.Add(-time.Minute)},
		},
		Items: []canonical.Item{
			{ID: "i1", Title: "Write copy", Status: "In Progress", ProjectID: "p1",
				CounterpartID: "bi1", LastSyncAt: base, UpdatedAt: base.Add(time.Minute)},
		},
	}
	board := &canonical.FakeStore{
		StoreName: "board",
		Projects: []canonical.Project{
			{ID: "bp1", Title: "Launch Plan", UpdatedAt: base.Add(-time.Minute)},
		},
		Items: []canonical.Item{
			{ID: "bi1", Title: "Write copy", Status: "open", ProjectID: "bp1", UpdatedAt: base.Add(-time.Minute)},
		},
	}

	// Real clocks on both stores and on the engine: the board fake stamps
	// UpdatedAt when the propagation lands, just like a live backend.
	engine := New(tracker, board, slog.Default())

	first := engine.SyncProject(context.Background(), tracker.Projects[0])
	require.Empty(t, first.Errors)
	require.Equal(t, 1, first.ItemsSyncedL2R)
	require.True(t, board.Items[0].UpdatedAt.After(base))

	second := engine.SyncProject(context.Background(), tracker.Projects[0])
	require.Empty(t, second.Errors)
	assert.Zero(t, second.ItemsSyncedR2L)
	assert.Zero(t, second.ItemsConflicted)
	assert.Equal(t, "In Progress", tracker.Items[0].Status)
}
