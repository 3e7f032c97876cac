package canonical

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// FakeStore is an in-memory Store for tests. It records every write so tests
// can assert on mutation counts (the dry-run invariant in particular).
type FakeStore struct {
	mu sync.Mutex

	// StoreName is returned by Name. Defaults to "fake".
	StoreName string

	Projects []Project
	Items    []Item

	// Writes records every mutating call in order, e.g. "CreateProject:Launch Plan"
	// or "UpsertItem:item-1".
	Writes []string

	// Now is the clock used for UpdatedAt stamps on writes. Defaults to time.Now.
	Now func() time.Time

	// Fail, when set, makes the named method return the given error.
	// Keys: "ListProjects", "ListItems", "CreateProject", "CreateItem",
	// "UpsertProject", "UpsertItem", "FindProjectByID", "FindItemByID".
	Fail map[string]error

	nextID int
}

var _ Store = (*FakeStore)(nil)

func (f *FakeStore) Name() string {
	if f.StoreName == "" {
		return "fake"
	}
	return f.StoreName
}

func (f *FakeStore) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *FakeStore) failFor(method string) error {
	if f.Fail == nil {
		return nil
	}
	return f.Fail[method]
}

func (f *FakeStore) ListProjects(_ context.Context) ([]Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor("ListProjects"); err != nil {
		return nil, err
	}
	out := make([]Project, len(f.Projects))
	copy(out, f.Projects)
	return out, nil
}

func (f *FakeStore) ListItems(_ context.Context, projectID string) ([]Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor("ListItems"); err != nil {
		return nil, err
	}
	var out []Item
	for _, it := range f.Items {
		if it.ProjectID == projectID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *FakeStore) FindProjectByID(_ context.Context, id string) (*Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor("FindProjectByID"); err != nil {
		return nil, err
	}
	for i := range f.Projects {
		if f.Projects[i].ID == id {
			p := f.Projects[i]
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (f *FakeStore) FindItemByID(_ context.Context, id string) (*Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor("FindItemByID"); err != nil {
		return nil, err
	}
	for i := range f.Items {
		if f.Items[i].ID == id {
			it := f.Items[i]
			return &it, nil
		}
	}
	return nil, ErrNotFound
}

func (f *FakeStore) CreateProject(_ context.Context, title, description string) (*Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor("CreateProject"); err != nil {
		return nil, err
	}
	f.Writes = append(f.Writes, "CreateProject:"+title)
	f.nextID++
	p := Project{
		ID:          fmt.Sprintf("%s-project-%d", f.Name(), f.nextID),
		Title:       title,
		Description: description,
		UpdatedAt:   f.now(),
	}
	f.Projects = append(f.Projects, p)
	return &p, nil
}

func (f *FakeStore) CreateItem(_ context.Context, projectID, title, description string) (*Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor("CreateItem"); err != nil {
		return nil, err
	}
	f.Writes = append(f.Writes, "CreateItem:"+title)
	f.nextID++
	it := Item{
		ID:          fmt.Sprintf("%s-item-%d", f.Name(), f.nextID),
		Title:       title,
		Description: description,
		ProjectID:   projectID,
		Status:      "open",
		UpdatedAt:   f.now(),
	}
	f.Items = append(f.Items, it)
	return &it, nil
}

func (f *FakeStore) UpsertProject(_ context.Context, id string, patch ProjectPatch) (*Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor("UpsertProject"); err != nil {
		return nil, err
	}
	f.Writes = append(f.Writes, "UpsertProject:"+id)
	for i := range f.Projects {
		if f.Projects[i].ID != id {
			continue
		}
		p := &f.Projects[i]
		if patch.Title != nil {
			p.Title = *patch.Title
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.CounterpartID != nil {
			p.CounterpartID = *patch.CounterpartID
		}
		if patch.CounterpartURL != nil {
			p.CounterpartURL = *patch.CounterpartURL
		}
		if patch.SyncedAt != nil {
			p.LastSyncAt = *patch.SyncedAt
		}
		// Content edits move UpdatedAt, like the real backends. Link and
		// checkpoint bookkeeping does not.
		if patch.Title != nil || patch.Description != nil {
			p.UpdatedAt = f.now()
		}
		return &Receipt{EntityID: id, Operation: "update", AppliedAt: f.now()}, nil
	}
	return nil, ErrNotFound
}

func (f *FakeStore) UpsertItem(_ context.Context, id string, patch ItemPatch) (*Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor("UpsertItem"); err != nil {
		return nil, err
	}
	f.Writes = append(f.Writes, "UpsertItem:"+id)
	for i := range f.Items {
		if f.Items[i].ID != id {
			continue
		}
		it := &f.Items[i]
		if patch.Title != nil {
			it.Title = *patch.Title
		}
		if patch.Description != nil {
			it.Description = *patch.Description
		}
		if patch.Status != nil {
			it.Status = *patch.Status
		}
		if patch.CounterpartID != nil {
			it.CounterpartID = *patch.CounterpartID
		}
		if patch.CounterpartURL != nil {
			it.CounterpartURL = *patch.CounterpartURL
		}
		if patch.CounterpartNumber != nil {
			it.CounterpartNumber = *patch.CounterpartNumber
		}
		if patch.SyncedAt != nil {
			it.LastSyncAt = *patch.SyncedAt
		}
		if patch.Title != nil || patch.Description != nil || patch.Status != nil {
			it.UpdatedAt = f.now()
		}
		return &Receipt{EntityID: id, Operation: "update", AppliedAt: f.now()}, nil
	}
	return nil, ErrNotFound
}

func (f *FakeStore) CheckAuth(_ context.Context) error { return nil }

// WriteCount returns how many recorded writes have the given prefix
// (e.g. "CreateItem"). An empty prefix counts all writes.
func (f *FakeStore) WriteCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if prefix == "" {
		return len(f.Writes)
	}
	n := 0
	for _, w := range f.Writes {
		if strings.HasPrefix(w, prefix) {
			n++
		}
	}
	return n
}
