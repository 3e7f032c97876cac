// Package canonical defines the store-agnostic entity shapes shared by the
// reconciliation engine and the tracker/board store backends. Native record
// shapes never leak past a backend boundary; everything upstream of a backend
// speaks these types.
package canonical

import "time"

// Project is the store-agnostic representation of a project on either store.
type Project struct {
	// ID is the store-native identifier (Notion page ID, milestone number, ...).
	ID          string
	Title       string
	Description string

	// CounterpartID/CounterpartURL link to the matching record on the other
	// store. Empty when the project has never been linked. A set CounterpartID
	// must resolve on the other store; the engine repairs stale links by
	// re-matching or re-creating.
	CounterpartID  string
	CounterpartURL string

	// LastSyncAt is the checkpoint: the time of the last successful,
	// non-conflicting propagation touching this project. Zero if never synced.
	LastSyncAt time.Time
	// UpdatedAt is the store-reported last modification time.
	UpdatedAt time.Time
}

// Item is the store-agnostic representation of a work item on either store.
type Item struct {
	ID    string
	Title string
	// Status holds the store-native vocabulary: the tracker's fine-grained
	// status name on the tracker side, "open"/"closed" on the board side.
	Status      string
	ProjectID   string
	Description string

	CounterpartID     string
	CounterpartURL    string
	CounterpartNumber int

	LastSyncAt time.Time
	UpdatedAt  time.Time
}

// Linked reports whether the project has a stored counterpart reference.
func (p Project) Linked() bool { return p.CounterpartID != "" }

// Linked reports whether the item has a stored counterpart reference.
func (i Item) Linked() bool { return i.CounterpartID != "" }

// ProjectPatch is a partial update to a project. Only non-nil fields are
// applied by the store.
type ProjectPatch struct {
	Title          *string
	Description    *string
	CounterpartID  *string
	CounterpartURL *string

	// SyncedAt stamps the store-native "last synchronized at" field, where the
	// backend has one. Backends without such a field ignore it.
	SyncedAt *time.Time
}

// ItemPatch is a partial update to an item. Only non-nil fields are applied.
type ItemPatch struct {
	Title             *string
	Description       *string
	Status            *string
	CounterpartID     *string
	CounterpartURL    *string
	CounterpartNumber *int

	SyncedAt *time.Time
}

// IsZero reports whether the patch carries no fields at all.
func (p ProjectPatch) IsZero() bool {
	return p.Title == nil && p.Description == nil && p.CounterpartID == nil &&
		p.CounterpartURL == nil && p.SyncedAt == nil
}

// IsZero reports whether the patch carries no fields at all.
func (p ItemPatch) IsZero() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.CounterpartID == nil && p.CounterpartURL == nil &&
		p.CounterpartNumber == nil && p.SyncedAt == nil
}

// Receipt describes the outcome of a write against a store.
type Receipt struct {
	// EntityID is the store-native id of the written record.
	EntityID string
	// Operation is "create", "update", or "noop" for an empty patch.
	Operation string
	// DryRun marks a synthetic would-apply result: no network write happened.
	DryRun bool
	// AppliedAt is when the write (real or simulated) was performed.
	AppliedAt time.Time
}

// Ptr returns a pointer to v. Convenience for building patches.
func Ptr[T any](v T) *T { return &v }
