package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebroseland/tracksync/internal/recon"
	"github.com/calebroseland/tracksync/internal/runner"
)

func testSummary(startedAt time.Time) *runner.Summary {
	s := &runner.Summary{
		State:        runner.StateCompleted,
		DryRun:       true,
		StartedAt:    startedAt,
		FinishedAt:   startedAt.Add(2 * time.Minute),
		ProjectsSeen: 3,
	}
	s.ProjectsCreated = 1
	s.ProjectsLinked = 1
	s.ProjectsSynced = 2
	s.ItemsCreated = 4
	s.ItemsSyncedL2R = 5
	s.ItemsSyncedR2L = 1
	s.Conflicts = []recon.ConflictRecord{{Kind: recon.KindItem, TrackerID: "t-1"}}
	return s
}

func TestRecordAndListRuns(t *testing.T) {
	store, err := OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	id1, err := store.RecordRun(ctx, testSummary(t0))
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	id2, err := store.RecordRun(ctx, testSummary(t0.Add(time.Hour)))
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first.
	assert.Equal(t, id2, runs[0].ID)
	assert.Equal(t, id1, runs[1].ID)

	got := runs[1]
	assert.Equal(t, "completed", got.State)
	assert.True(t, got.DryRun)
	assert.False(t, got.Canceled)
	assert.Equal(t, t0, got.StartedAt)
	assert.Equal(t, t0.Add(2*time.Minute), got.FinishedAt)
	assert.Equal(t, 3, got.ProjectsSeen)
	assert.Equal(t, 1, got.ProjectsCreated)
	assert.Equal(t, 2, got.ProjectsSynced)
	assert.Equal(t, 4, got.ItemsCreated)
	assert.Equal(t, 5, got.ItemsSyncedToBoard)
	assert.Equal(t, 1, got.ItemsSyncedToTracker)
	assert.Equal(t, 1, got.Conflicts)
	assert.Equal(t, 0, got.Errors)

	conflicts, err := store.ListConflicts(ctx, id1)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "item", conflicts[0].Kind)
	assert.Equal(t, "t-1", conflicts[0].TrackerID)

	conflicts, err = store.ListConflicts(ctx, "no-such-run")
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestListRunsHonorsLimit(t *testing.T) {
	store, err := OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := store.RecordRun(ctx, testSummary(t0.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestListRunsEmpty(t *testing.T) {
	store, err := OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
