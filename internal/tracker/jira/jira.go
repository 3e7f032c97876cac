// Package jira implements the tracker store on top of Jira Cloud using the
// go-atlassian library. Epics in one Jira project are tracker projects; the
// issues under each epic are its items.
//
// Counterpart references and the sync checkpoint are kept in a "tracksync"
// issue property. Properties are invisible in the Jira UI and setting one
// does not touch the issue's updated timestamp, so advancing the checkpoint
// never looks like a content change on the next pass.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	v3 "github.com/ctreminiom/go-atlassian/v2/jira/v3"
	"github.com/ctreminiom/go-atlassian/v2/pkg/infra/models"

	"github.com/calebroseland/tracksync/internal/canonical"
	"github.com/calebroseland/tracksync/internal/status"
	"github.com/calebroseland/tracksync/internal/tracker"
)

// Compile-time interface check.
var _ canonical.Store = (*Store)(nil)

func init() {
	tracker.Register(tracker.BackendJira, newStore)
}

// linkPropertyKey is the issue property holding sync bookkeeping.
const linkPropertyKey = "tracksync"

// searchFields are the Jira fields requested in search results. Keeping this
// explicit avoids fetching unnecessary data.
var searchFields = []string{
	"summary",
	"description",
	"issuetype",
	"status",
	"parent",
	"updated",
}

// Store adapts one Jira Cloud project to the canonical tracker contract.
type Store struct {
	client     *v3.Client
	projectKey string
}

func newStore(cfg tracker.Config) (canonical.Store, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	client, err := v3.New(&http.Client{Timeout: 30 * time.Second}, baseURL)
	if err != nil {
		return nil, fmt.Errorf("create jira client: %w", err)
	}
	client.Auth.SetBasicAuth(cfg.Email, cfg.Token)
	client.Auth.SetUserAgent("tracksync/1.0")

	return &Store{client: client, projectKey: cfg.ProjectsCollection}, nil
}

func (s *Store) Name() string { return "jira" }

// CheckAuth verifies the client can authenticate with Jira.
func (s *Store) CheckAuth(ctx context.Context) error {
	_, resp, err := s.client.MySelf.Details(ctx, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("jira auth check failed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("jira auth check failed: %w", err)
	}
	return nil
}

// ListProjects lists the epics of the configured Jira project.
func (s *Store) ListProjects(ctx context.Context) ([]canonical.Project, error) {
	jql := fmt.Sprintf("project = %s AND issuetype = Epic ORDER BY created ASC", s.projectKey)
	issues, err := s.searchAll(ctx, jql)
	if err != nil {
		return nil, fmt.Errorf("list epics: %w", err)
	}

	projects := make([]canonical.Project, 0, len(issues))
	for _, issue := range issues {
		if !hasSummary(issue) {
			slog.Warn("dropping epic without summary", "issue", issue.Key)
			continue
		}
		link, err := s.readLink(ctx, issue.Key)
		if err != nil {
			return nil, err
		}
		projects = append(projects, s.mapProject(issue, link))
	}
	return projects, nil
}

// ListItems lists the issues under an epic.
func (s *Store) ListItems(ctx context.Context, projectID string) ([]canonical.Item, error) {
	jql := fmt.Sprintf("project = %s AND parent = %s ORDER BY created ASC", s.projectKey, projectID)
	issues, err := s.searchAll(ctx, jql)
	if err != nil {
		return nil, fmt.Errorf("list items for epic %s: %w", projectID, err)
	}

	items := make([]canonical.Item, 0, len(issues))
	for _, issue := range issues {
		if !hasSummary(issue) {
			slog.Warn("dropping issue without summary", "issue", issue.Key)
			continue
		}
		link, err := s.readLink(ctx, issue.Key)
		if err != nil {
			return nil, err
		}
		items = append(items, s.mapItem(issue, projectID, link))
	}
	return items, nil
}

func (s *Store) FindProjectByID(ctx context.Context, id string) (*canonical.Project, error) {
	issue, err := s.getIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	link, err := s.readLink(ctx, issue.Key)
	if err != nil {
		return nil, err
	}
	proj := s.mapProject(issue, link)
	return &proj, nil
}

func (s *Store) FindItemByID(ctx context.Context, id string) (*canonical.Item, error) {
	issue, err := s.getIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	link, err := s.readLink(ctx, issue.Key)
	if err != nil {
		return nil, err
	}
	item := s.mapItem(issue, parentKey(issue), link)
	return &item, nil
}

// CreateProject creates an epic.
func (s *Store) CreateProject(ctx context.Context, title, description string) (*canonical.Project, error) {
	issue, err := s.createIssue(ctx, "Epic", title, description, nil)
	if err != nil {
		return nil, err
	}
	proj := s.mapProject(issue, linkProperty{})
	return &proj, nil
}

// CreateItem creates an issue under an epic.
func (s *Store) CreateItem(ctx context.Context, projectID, title, description string) (*canonical.Item, error) {
	issue, err := s.createIssue(ctx, "Task", title, description, &models.ParentScheme{Key: projectID})
	if err != nil {
		return nil, err
	}
	item := s.mapItem(issue, projectID, linkProperty{})
	return &item, nil
}

func (s *Store) createIssue(ctx context.Context, issueType, title, description string, parent *models.ParentScheme) (*models.IssueScheme, error) {
	payload := &models.IssueScheme{
		Fields: &models.IssueFieldsScheme{
			Summary:   title,
			Project:   &models.ProjectScheme{Key: s.projectKey},
			IssueType: &models.IssueTypeScheme{Name: issueType},
			Parent:    parent,
		},
	}
	if description != "" {
		payload.Fields.Description = textToADF(description)
	}

	created, resp, err := s.client.Issue.Create(ctx, payload, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("create %s %q (status %d): %w", strings.ToLower(issueType), title, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("create %s %q: %w", strings.ToLower(issueType), title, err)
	}

	return s.getIssue(ctx, created.Key)
}

// UpsertProject updates an epic. Link and checkpoint fields go to the issue
// property; title and description go to the issue itself.
func (s *Store) UpsertProject(ctx context.Context, id string, patch canonical.ProjectPatch) (*canonical.Receipt, error) {
	if patch.IsZero() {
		return &canonical.Receipt{EntityID: id, Operation: "noop", AppliedAt: time.Now()}, nil
	}

	if patch.Title != nil || patch.Description != nil {
		if err := s.updateFields(ctx, id, patch.Title, patch.Description); err != nil {
			return nil, err
		}
	}

	if patch.CounterpartID != nil || patch.CounterpartURL != nil || patch.SyncedAt != nil {
		err := s.mergeLink(ctx, id, func(link *linkProperty) {
			if patch.CounterpartID != nil {
				link.BoardID = *patch.CounterpartID
			}
			if patch.CounterpartURL != nil {
				link.BoardURL = *patch.CounterpartURL
			}
			if patch.SyncedAt != nil {
				link.LastSynced = patch.SyncedAt.UTC().Format(time.RFC3339)
			}
		})
		if err != nil {
			return nil, err
		}
	}

	return &canonical.Receipt{EntityID: id, Operation: "update", AppliedAt: time.Now()}, nil
}

// UpsertItem updates an issue. A status change runs the workflow transition
// whose target matches the requested status.
func (s *Store) UpsertItem(ctx context.Context, id string, patch canonical.ItemPatch) (*canonical.Receipt, error) {
	if patch.IsZero() {
		return &canonical.Receipt{EntityID: id, Operation: "noop", AppliedAt: time.Now()}, nil
	}

	if patch.Title != nil || patch.Description != nil {
		if err := s.updateFields(ctx, id, patch.Title, patch.Description); err != nil {
			return nil, err
		}
	}

	if patch.Status != nil {
		if err := s.transitionTo(ctx, id, *patch.Status); err != nil {
			return nil, err
		}
	}

	if patch.CounterpartID != nil || patch.CounterpartURL != nil || patch.CounterpartNumber != nil || patch.SyncedAt != nil {
		err := s.mergeLink(ctx, id, func(link *linkProperty) {
			if patch.CounterpartID != nil {
				link.BoardID = *patch.CounterpartID
			}
			if patch.CounterpartURL != nil {
				link.BoardURL = *patch.CounterpartURL
			}
			if patch.CounterpartNumber != nil {
				link.BoardNumber = *patch.CounterpartNumber
			}
			if patch.SyncedAt != nil {
				link.LastSynced = patch.SyncedAt.UTC().Format(time.RFC3339)
			}
		})
		if err != nil {
			return nil, err
		}
	}

	return &canonical.Receipt{EntityID: id, Operation: "update", AppliedAt: time.Now()}, nil
}

func (s *Store) updateFields(ctx context.Context, id string, title, description *string) error {
	fields := &models.IssueFieldsScheme{}
	if title != nil {
		fields.Summary = *title
	}
	if description != nil {
		fields.Description = textToADF(*description)
	}

	resp, err := s.client.Issue.Update(ctx, id, false, &models.IssueScheme{Fields: fields}, nil, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("update issue %s (status %d): %w", id, resp.StatusCode, err)
		}
		return fmt.Errorf("update issue %s: %w", id, err)
	}
	return nil
}

// transitionTo moves the issue to the workflow status matching the canonical
// status. Matching is by status category first ("Completed" means any status
// in the done category), then by exact name.
func (s *Store) transitionTo(ctx context.Context, id, target string) error {
	transitions, resp, err := s.client.Issue.Transitions(ctx, id)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("list transitions for %s (status %d): %w", id, resp.StatusCode, err)
		}
		return fmt.Errorf("list transitions for %s: %w", id, err)
	}

	wantCategory := "indeterminate"
	if status.ToBoardState(target) == status.BoardClosed {
		wantCategory = "done"
	}

	chosen := ""
	for _, t := range transitions.Transitions {
		if t.To == nil {
			continue
		}
		if strings.EqualFold(t.To.Name, target) {
			chosen = t.ID
			break
		}
		if chosen == "" && t.To.StatusCategory != nil && t.To.StatusCategory.Key == wantCategory {
			chosen = t.ID
		}
	}
	if chosen == "" {
		return fmt.Errorf("issue %s has no transition to status %q", id, target)
	}

	if _, err := s.client.Issue.Move(ctx, id, chosen, nil); err != nil {
		return fmt.Errorf("transition issue %s to %q: %w", id, target, err)
	}
	return nil
}

// searchAll fetches all issues matching the JQL query, handling pagination.
func (s *Store) searchAll(ctx context.Context, jql string) ([]*models.IssueScheme, error) {
	var all []*models.IssueScheme
	nextPageToken := ""

	for {
		result, resp, err := s.client.Issue.Search.SearchJQL(
			ctx,
			jql,
			searchFields,
			nil, // no expand
			50,  // maxResults per page
			nextPageToken,
		)
		if err != nil {
			if resp != nil {
				return nil, fmt.Errorf("jira search (status %d): %w", resp.StatusCode, err)
			}
			return nil, fmt.Errorf("jira search: %w", err)
		}

		all = append(all, result.Issues...)

		if result.NextPageToken == "" || len(result.Issues) == 0 {
			break
		}
		nextPageToken = result.NextPageToken
	}
	return all, nil
}

func (s *Store) getIssue(ctx context.Context, id string) (*models.IssueScheme, error) {
	issue, resp, err := s.client.Issue.Get(ctx, id, searchFields, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, canonical.ErrNotFound
		}
		return nil, fmt.Errorf("get issue %s: %w", id, err)
	}
	return issue, nil
}

// linkProperty is the JSON shape of the "tracksync" issue property.
type linkProperty struct {
	BoardID     string `json:"board_id,omitempty"`
	BoardURL    string `json:"board_url,omitempty"`
	BoardNumber int    `json:"board_number,omitempty"`
	LastSynced  string `json:"last_synced,omitempty"`
}

func (s *Store) readLink(ctx context.Context, id string) (linkProperty, error) {
	prop, resp, err := s.client.Issue.Property.Get(ctx, id, linkPropertyKey)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return linkProperty{}, nil
		}
		return linkProperty{}, fmt.Errorf("read sync property of %s: %w", id, err)
	}

	raw, err := json.Marshal(prop.Value)
	if err != nil {
		return linkProperty{}, fmt.Errorf("decode sync property of %s: %w", id, err)
	}
	var link linkProperty
	if err := json.Unmarshal(raw, &link); err != nil {
		return linkProperty{}, fmt.Errorf("decode sync property of %s: %w", id, err)
	}
	return link, nil
}

func (s *Store) mergeLink(ctx context.Context, id string, apply func(*linkProperty)) error {
	link, err := s.readLink(ctx, id)
	if err != nil {
		return err
	}
	apply(&link)

	if _, err := s.client.Issue.Property.Set(ctx, id, linkPropertyKey, link); err != nil {
		return fmt.Errorf("write sync property of %s: %w", id, err)
	}
	return nil
}

func (s *Store) mapProject(issue *models.IssueScheme, link linkProperty) canonical.Project {
	proj := canonical.Project{
		ID:             issue.Key,
		CounterpartID:  link.BoardID,
		CounterpartURL: link.BoardURL,
		LastSyncAt:     parseSyncTime(link.LastSynced),
	}
	if f := issue.Fields; f != nil {
		proj.Title = f.Summary
		proj.Description = adfToText(f.Description)
		if f.Updated != nil {
			proj.UpdatedAt = time.Time(*f.Updated)
		}
	}
	return proj
}

func (s *Store) mapItem(issue *models.IssueScheme, projectID string, link linkProperty) canonical.Item {
	item := canonical.Item{
		ID:                issue.Key,
		ProjectID:         projectID,
		CounterpartID:     link.BoardID,
		CounterpartURL:    link.BoardURL,
		CounterpartNumber: link.BoardNumber,
		LastSyncAt:        parseSyncTime(link.LastSynced),
	}
	if f := issue.Fields; f != nil {
		item.Title = f.Summary
		item.Description = adfToText(f.Description)
		item.Status = statusName(f.Status)
		if f.Updated != nil {
			item.UpdatedAt = time.Time(*f.Updated)
		}
	}
	return item
}

// hasSummary reports whether a search result carries a non-empty summary.
// Issues without one cannot be matched or propagated; checking before
// readLink also saves a property fetch per dropped issue.
func hasSummary(issue *models.IssueScheme) bool {
	return issue.Fields != nil && issue.Fields.Summary != ""
}

func statusName(s *models.StatusScheme) string {
	if s == nil {
		return ""
	}
	return s.Name
}

func parentKey(issue *models.IssueScheme) string {
	if issue.Fields == nil || issue.Fields.Parent == nil {
		return ""
	}
	return issue.Fields.Parent.Key
}

func parseSyncTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
