// Package notion implements the tracker store on top of two Notion databases
// using the jomei/notionapi library: one database holds projects, the other
// holds items related to them.
//
// Expected schema. Projects database: "Name" (title), "Description"
// (rich text), "Board ID" (rich text), "Board URL" (url), "Last Synced"
// (date). Items database: the same plus "Status" (status or select),
// "Board Number" (number), and "Project" (relation to the projects
// database).
package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jomei/notionapi"

	"github.com/calebroseland/tracksync/internal/canonical"
	"github.com/calebroseland/tracksync/internal/tracker"
)

// Compile-time interface check.
var _ canonical.Store = (*Store)(nil)

func init() {
	tracker.Register(tracker.BackendNotion, newStore)
}

// Store adapts a pair of Notion databases to the canonical tracker contract.
type Store struct {
	client     *notionapi.Client
	projectsDB notionapi.DatabaseID
	itemsDB    notionapi.DatabaseID

	// The "Status" column can be a status or a select property depending on
	// how the database was set up; writes must use the matching type. The
	// schema is fetched once, on the first status write.
	statusOnce sync.Once
	statusKind propertyKind
	statusErr  error
}

func newStore(cfg tracker.Config) (canonical.Store, error) {
	client := notionapi.NewClient(notionapi.Token(cfg.Token))
	return &Store{
		client:     client,
		projectsDB: notionapi.DatabaseID(cfg.ProjectsCollection),
		itemsDB:    notionapi.DatabaseID(cfg.ItemsCollection),
	}, nil
}

func (s *Store) Name() string { return "notion" }

// CheckAuth validates the token by retrieving the bot user.
func (s *Store) CheckAuth(ctx context.Context) error {
	_, err := s.client.User.Me(ctx)
	if err != nil {
		return fmt.Errorf("check auth: %w", err)
	}
	return nil
}

// ListProjects queries every page of the projects database.
func (s *Store) ListProjects(ctx context.Context) ([]canonical.Project, error) {
	pages, err := s.queryAll(ctx, s.projectsDB, nil)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	return projectsFromPages(pages), nil
}

// ListItems queries the items database filtered by the project relation.
func (s *Store) ListItems(ctx context.Context, projectID string) ([]canonical.Item, error) {
	filter := &notionapi.PropertyFilter{
		Property: propProject,
		Relation: &notionapi.RelationFilterCondition{Contains: projectID},
	}
	pages, err := s.queryAll(ctx, s.itemsDB, filter)
	if err != nil {
		return nil, fmt.Errorf("list items for project %s: %w", projectID, err)
	}

	return itemsFromPages(pages, projectID), nil
}

func (s *Store) FindProjectByID(ctx context.Context, id string) (*canonical.Project, error) {
	page, err := s.getPage(ctx, id)
	if err != nil {
		return nil, err
	}
	proj := mapProjectPage(page)
	return &proj, nil
}

func (s *Store) FindItemByID(ctx context.Context, id string) (*canonical.Item, error) {
	page, err := s.getPage(ctx, id)
	if err != nil {
		return nil, err
	}
	item := mapItemPage(page, relationID(page.Properties, propProject))
	return &item, nil
}

// CreateProject creates a page in the projects database.
func (s *Store) CreateProject(ctx context.Context, title, description string) (*canonical.Project, error) {
	page, err := s.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: s.projectsDB,
		},
		Properties: notionapi.Properties{
			propTitle:       titleProperty(title),
			propDescription: richTextProperty(description),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create project %q: %w", title, err)
	}

	proj := mapProjectPage(page)
	return &proj, nil
}

// CreateItem creates a page in the items database related to the project.
func (s *Store) CreateItem(ctx context.Context, projectID, title, description string) (*canonical.Item, error) {
	page, err := s.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: s.itemsDB,
		},
		Properties: notionapi.Properties{
			propTitle:       titleProperty(title),
			propDescription: richTextProperty(description),
			propProject: &notionapi.RelationProperty{
				Relation: []notionapi.Relation{{ID: notionapi.PageID(projectID)}},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create item %q: %w", title, err)
	}

	item := mapItemPage(page, projectID)
	return &item, nil
}

// UpsertProject updates the page properties named in the patch.
func (s *Store) UpsertProject(ctx context.Context, id string, patch canonical.ProjectPatch) (*canonical.Receipt, error) {
	if patch.IsZero() {
		return &canonical.Receipt{EntityID: id, Operation: "noop", AppliedAt: time.Now()}, nil
	}

	props := notionapi.Properties{}
	if patch.Title != nil {
		props[propTitle] = titleProperty(*patch.Title)
	}
	if patch.Description != nil {
		props[propDescription] = richTextProperty(*patch.Description)
	}
	if patch.CounterpartID != nil {
		props[propBoardID] = richTextProperty(*patch.CounterpartID)
	}
	if patch.CounterpartURL != nil {
		props[propBoardURL] = &notionapi.URLProperty{URL: *patch.CounterpartURL}
	}
	if patch.SyncedAt != nil {
		props[propLastSynced] = dateProperty(*patch.SyncedAt)
	}

	if err := s.updatePage(ctx, id, props); err != nil {
		return nil, fmt.Errorf("update project %s: %w", id, err)
	}
	return &canonical.Receipt{EntityID: id, Operation: "update", AppliedAt: time.Now()}, nil
}

// UpsertItem updates the page properties named in the patch.
func (s *Store) UpsertItem(ctx context.Context, id string, patch canonical.ItemPatch) (*canonical.Receipt, error) {
	if patch.IsZero() {
		return &canonical.Receipt{EntityID: id, Operation: "noop", AppliedAt: time.Now()}, nil
	}

	props := notionapi.Properties{}
	if patch.Title != nil {
		props[propTitle] = titleProperty(*patch.Title)
	}
	if patch.Description != nil {
		props[propDescription] = richTextProperty(*patch.Description)
	}
	if patch.Status != nil {
		statusProp, err := s.statusProperty(ctx, *patch.Status)
		if err != nil {
			return nil, fmt.Errorf("update item %s: %w", id, err)
		}
		props[propStatus] = statusProp
	}
	if patch.CounterpartID != nil {
		props[propBoardID] = richTextProperty(*patch.CounterpartID)
	}
	if patch.CounterpartURL != nil {
		props[propBoardURL] = &notionapi.URLProperty{URL: *patch.CounterpartURL}
	}
	if patch.CounterpartNumber != nil {
		props[propBoardNumber] = &notionapi.NumberProperty{Number: float64(*patch.CounterpartNumber)}
	}
	if patch.SyncedAt != nil {
		props[propLastSynced] = dateProperty(*patch.SyncedAt)
	}

	if err := s.updatePage(ctx, id, props); err != nil {
		return nil, fmt.Errorf("update item %s: %w", id, err)
	}
	return &canonical.Receipt{EntityID: id, Operation: "update", AppliedAt: time.Now()}, nil
}

// queryAll pages through a database query until the cursor is exhausted.
func (s *Store) queryAll(ctx context.Context, db notionapi.DatabaseID, filter notionapi.Filter) ([]notionapi.Page, error) {
	var all []notionapi.Page
	req := &notionapi.DatabaseQueryRequest{
		Filter:   filter,
		PageSize: 100,
	}

	for {
		resp, err := s.client.Database.Query(ctx, db, req)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Results...)
		if !resp.HasMore {
			break
		}
		req.StartCursor = resp.NextCursor
	}
	return all, nil
}

func (s *Store) getPage(ctx context.Context, id string) (*notionapi.Page, error) {
	page, err := s.client.Page.Get(ctx, notionapi.PageID(id))
	if err != nil {
		if isNotFound(err) {
			return nil, canonical.ErrNotFound
		}
		return nil, fmt.Errorf("get page %s: %w", id, err)
	}
	if page.Archived {
		return nil, canonical.ErrNotFound
	}
	return page, nil
}

func (s *Store) updatePage(ctx context.Context, id string, props notionapi.Properties) error {
	_, err := s.client.Page.Update(ctx, notionapi.PageID(id), &notionapi.PageUpdateRequest{
		Properties: props,
	})
	return err
}

// statusProperty builds the write for the "Status" column using whichever
// property type the items database declares.
func (s *Store) statusProperty(ctx context.Context, value string) (notionapi.Property, error) {
	s.statusOnce.Do(func() {
		s.statusKind, s.statusErr = s.resolveStatusKind(ctx)
	})
	if s.statusErr != nil {
		return nil, s.statusErr
	}

	option := notionapi.Option{Name: value}
	if s.statusKind == kindStatus {
		return &notionapi.StatusProperty{Status: option}, nil
	}
	return &notionapi.SelectProperty{Select: option}, nil
}

func (s *Store) resolveStatusKind(ctx context.Context) (propertyKind, error) {
	db, err := s.client.Database.Get(ctx, s.itemsDB)
	if err != nil {
		return kindSelect, fmt.Errorf("inspect items database: %w", err)
	}
	if _, ok := db.Properties[propStatus].(*notionapi.StatusPropertyConfig); ok {
		return kindStatus, nil
	}
	return kindSelect, nil
}

type propertyKind int

const (
	kindSelect propertyKind = iota
	kindStatus
)

func isNotFound(err error) bool {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusNotFound
	}
	return false
}
