package canonical

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Compile-time interface check.
var _ Store = (*DryRunStore)(nil)

// DryRunStore wraps a Store and suppresses every write. Reads pass through
// unchanged; Create* and Upsert* perform no network call and return synthetic
// would-apply results so the run report still counts intended mutations.
type DryRunStore struct {
	inner  Store
	logger *slog.Logger
	// seq disambiguates synthetic ids within a single run. Atomic because the
	// store is shared by concurrent project goroutines.
	seq atomic.Int64
}

// NewDryRunStore wraps inner so all writes are simulated.
func NewDryRunStore(inner Store, logger *slog.Logger) *DryRunStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRunStore{inner: inner, logger: logger}
}

func (d *DryRunStore) Name() string { return d.inner.Name() }

func (d *DryRunStore) ListProjects(ctx context.Context) ([]Project, error) {
	return d.inner.ListProjects(ctx)
}

func (d *DryRunStore) ListItems(ctx context.Context, projectID string) ([]Item, error) {
	return d.inner.ListItems(ctx, projectID)
}

func (d *DryRunStore) FindProjectByID(ctx context.Context, id string) (*Project, error) {
	return d.inner.FindProjectByID(ctx, id)
}

func (d *DryRunStore) FindItemByID(ctx context.Context, id string) (*Item, error) {
	return d.inner.FindItemByID(ctx, id)
}

func (d *DryRunStore) CreateProject(_ context.Context, title, description string) (*Project, error) {
	id := d.syntheticID("project")
	d.logger.Info("dry-run: would create project", "store", d.inner.Name(), "title", title)
	return &Project{
		ID:          id,
		Title:       title,
		Description: description,
		UpdatedAt:   time.Now(),
	}, nil
}

func (d *DryRunStore) CreateItem(_ context.Context, projectID, title, description string) (*Item, error) {
	id := d.syntheticID("item")
	d.logger.Info("dry-run: would create item", "store", d.inner.Name(), "project", projectID, "title", title)
	return &Item{
		ID:          id,
		Title:       title,
		Description: description,
		ProjectID:   projectID,
		UpdatedAt:   time.Now(),
	}, nil
}

func (d *DryRunStore) UpsertProject(_ context.Context, id string, _ ProjectPatch) (*Receipt, error) {
	d.logger.Info("dry-run: would update project", "store", d.inner.Name(), "id", id)
	return &Receipt{EntityID: id, Operation: "update", DryRun: true, AppliedAt: time.Now()}, nil
}

func (d *DryRunStore) UpsertItem(_ context.Context, id string, _ ItemPatch) (*Receipt, error) {
	d.logger.Info("dry-run: would update item", "store", d.inner.Name(), "id", id)
	return &Receipt{EntityID: id, Operation: "update", DryRun: true, AppliedAt: time.Now()}, nil
}

func (d *DryRunStore) CheckAuth(ctx context.Context) error {
	return d.inner.CheckAuth(ctx)
}

func (d *DryRunStore) syntheticID(kind string) string {
	return fmt.Sprintf("dry-run-%s-%d", kind, d.seq.Add(1))
}
