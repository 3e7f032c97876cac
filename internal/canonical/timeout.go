package canonical

import (
	"context"
	"time"
)

// Compile-time interface check.
var _ Store = (*TimeoutStore)(nil)

// TimeoutStore wraps a Store so every call runs under its own deadline.
// A timed-out call surfaces as a per-entity error upstream, never a
// process-fatal one.
type TimeoutStore struct {
	inner   Store
	timeout time.Duration
}

// WithTimeout wraps inner so each call is bounded by timeout. A non-positive
// timeout returns inner unchanged.
func WithTimeout(inner Store, timeout time.Duration) Store {
	if timeout <= 0 {
		return inner
	}
	return &TimeoutStore{inner: inner, timeout: timeout}
}

func (t *TimeoutStore) Name() string { return t.inner.Name() }

func (t *TimeoutStore) ListProjects(ctx context.Context) ([]Project, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.ListProjects(ctx)
}

func (t *TimeoutStore) ListItems(ctx context.Context, projectID string) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.ListItems(ctx, projectID)
}

func (t *TimeoutStore) FindProjectByID(ctx context.Context, id string) (*Project, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.FindProjectByID(ctx, id)
}

func (t *TimeoutStore) FindItemByID(ctx context.Context, id string) (*Item, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.FindItemByID(ctx, id)
}

func (t *TimeoutStore) CreateProject(ctx context.Context, title, description string) (*Project, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.CreateProject(ctx, title, description)
}

func (t *TimeoutStore) CreateItem(ctx context.Context, projectID, title, description string) (*Item, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.CreateItem(ctx, projectID, title, description)
}

func (t *TimeoutStore) UpsertProject(ctx context.Context, id string, patch ProjectPatch) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.UpsertProject(ctx, id, patch)
}

func (t *TimeoutStore) UpsertItem(ctx context.Context, id string, patch ItemPatch) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.UpsertItem(ctx, id, patch)
}

func (t *TimeoutStore) CheckAuth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.CheckAuth(ctx)
}
