package canonical

import (
	"context"
	"errors"
)

// Store errors.
var (
	// ErrNotFound is returned by Find* when no record exists for the id.
	// It is a signal, not a failure: the engine treats it as "link is stale,
	// re-link or re-create".
	ErrNotFound = errors.New("not found")
)

// Store is the contract both record stores implement. The tracker and board
// backends differ only in native shape; the engine is written against this
// interface alone.
//
// All calls honor the context deadline. List and Find calls surface upstream
// failures as wrapped errors; a record missing its required title is dropped
// with a warning, never emitted.
type Store interface {
	// Name identifies the backend for logs and reports (e.g. "notion", "github").
	Name() string

	ListProjects(ctx context.Context) ([]Project, error)
	// ListItems returns the items belonging to the given project, using the
	// store's native project filter.
	ListItems(ctx context.Context, projectID string) ([]Item, error)

	// FindProjectByID returns ErrNotFound when the id does not resolve.
	FindProjectByID(ctx context.Context, id string) (*Project, error)
	FindItemByID(ctx context.Context, id string) (*Item, error)

	CreateProject(ctx context.Context, title, description string) (*Project, error)
	CreateItem(ctx context.Context, projectID, title, description string) (*Item, error)

	// Upsert* apply only the fields present in the patch and stamp the
	// store-native last-synchronized field (where one exists) per patch.SyncedAt.
	UpsertProject(ctx context.Context, id string, patch ProjectPatch) (*Receipt, error)
	UpsertItem(ctx context.Context, id string, patch ItemPatch) (*Receipt, error)

	// CheckAuth verifies credentials against the store without mutating it.
	CheckAuth(ctx context.Context) error
}

// IsNotFound reports whether err is the ErrNotFound signal.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
