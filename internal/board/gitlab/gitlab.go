// Package gitlab implements the board store on top of GitLab milestones and
// issues using the go-gitlab library.
package gitlab

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	gogitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/calebroseland/tracksync/internal/board"
	"github.com/calebroseland/tracksync/internal/canonical"
)

// Compile-time interface check.
var _ canonical.Store = (*Store)(nil)

func init() {
	board.Register(board.BackendGitLab, newStore)
}

// Store adapts one GitLab project to the canonical board contract. Milestones
// are board projects and are addressed by their global milestone id; issues
// are items and are addressed by their project-scoped IID.
type Store struct {
	client *gogitlab.Client
	// projectID is the full "group/repo" path used as the project identifier.
	projectID string
}

func newStore(cfg board.Config) (canonical.Store, error) {
	path, err := cfg.FullPath()
	if err != nil {
		return nil, err
	}

	var client *gogitlab.Client
	if cfg.BaseURL != "" {
		baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
		client, err = gogitlab.NewClient(cfg.Token, gogitlab.WithBaseURL(baseURL+"/api/v4"))
	} else {
		client, err = gogitlab.NewClient(cfg.Token)
	}
	if err != nil {
		return nil, fmt.Errorf("create GitLab client: %w", err)
	}

	return &Store{client: client, projectID: path}, nil
}

func (s *Store) Name() string { return "gitlab" }

// CheckAuth validates the token by fetching the authenticated user.
func (s *Store) CheckAuth(ctx context.Context) error {
	_, _, err := s.client.Users.CurrentUser(gogitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check auth: %w", err)
	}
	return nil
}

// ListProjects lists all milestones in the project, active and closed.
func (s *Store) ListProjects(ctx context.Context) ([]canonical.Project, error) {
	var all []*gogitlab.Milestone
	opts := &gogitlab.ListMilestonesOptions{
		ListOptions: gogitlab.ListOptions{PerPage: 100},
	}

	for {
		milestones, resp, err := s.client.Milestones.ListMilestones(s.projectID, opts, gogitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list milestones: %w", err)
		}
		all = append(all, milestones...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return projectsFromMilestones(all), nil
}

// FindProjectByID fetches a milestone by its global id.
func (s *Store) FindProjectByID(ctx context.Context, id string) (*canonical.Project, error) {
	milestoneID, err := parseID(id, "milestone")
	if err != nil {
		return nil, err
	}

	m, resp, err := s.client.Milestones.GetMilestone(s.projectID, milestoneID, gogitlab.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return nil, canonical.ErrNotFound
		}
		return nil, fmt.Errorf("get milestone %s: %w", id, err)
	}

	proj := mapMilestone(m)
	return &proj, nil
}

// CreateProject creates a milestone.
func (s *Store) CreateProject(ctx context.Context, title, description string) (*canonical.Project, error) {
	created, _, err := s.client.Milestones.CreateMilestone(s.projectID, &gogitlab.CreateMilestoneOptions{
		Title:       gogitlab.Ptr(title),
		Description: gogitlab.Ptr(description),
	}, gogitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("create milestone %q: %w", title, err)
	}

	proj := mapMilestone(created)
	return &proj, nil
}

// UpsertProject updates a milestone's title and description.
func (s *Store) UpsertProject(ctx context.Context, id string, patch canonical.ProjectPatch) (*canonical.Receipt, error) {
	if patch.IsZero() {
		return &canonical.Receipt{EntityID: id, Operation: "noop", AppliedAt: time.Now()}, nil
	}
	milestoneID, err := parseID(id, "milestone")
	if err != nil {
		return nil, err
	}

	update := &gogitlab.UpdateMilestoneOptions{}
	if patch.Title != nil {
		update.Title = gogitlab.Ptr(*patch.Title)
	}
	if patch.Description != nil {
		update.Description = gogitlab.Ptr(*patch.Description)
	}

	_, _, err = s.client.Milestones.UpdateMilestone(s.projectID, milestoneID, update, gogitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("update milestone %s: %w", id, err)
	}
	return &canonical.Receipt{EntityID: id, Operation: "update", AppliedAt: time.Now()}, nil
}

// ListItems lists all issues assigned to a milestone.
func (s *Store) ListItems(ctx context.Context, projectID string) ([]canonical.Item, error) {
	milestoneID, err := parseID(projectID, "milestone")
	if err != nil {
		return nil, err
	}

	var all []*gogitlab.Issue
	opts := &gogitlab.GetMilestoneIssuesOptions{ListOptions: gogitlab.ListOptions{PerPage: 100}}

	for {
		issues, resp, err := s.client.Milestones.GetMilestoneIssues(s.projectID, milestoneID, opts, gogitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list issues for milestone %s: %w", projectID, err)
		}
		all = append(all, issues...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return itemsFromIssues(all, projectID), nil
}

// FindItemByID fetches an issue by IID.
func (s *Store) FindItemByID(ctx context.Context, id string) (*canonical.Item, error) {
	iid, err := parseID(id, "issue")
	if err != nil {
		return nil, err
	}

	issue, resp, err := s.client.Issues.GetIssue(s.projectID, iid, gogitlab.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return nil, canonical.ErrNotFound
		}
		return nil, fmt.Errorf("get issue %s: %w", id, err)
	}

	item := mapIssue(issue, issueMilestoneID(issue))
	return &item, nil
}

// CreateItem creates an issue assigned to the given milestone.
func (s *Store) CreateItem(ctx context.Context, projectID, title, description string) (*canonical.Item, error) {
	milestoneID, err := parseID(projectID, "milestone")
	if err != nil {
		return nil, err
	}

	created, _, err := s.client.Issues.CreateIssue(s.projectID, &gogitlab.CreateIssueOptions{
		Title:       gogitlab.Ptr(title),
		Description: gogitlab.Ptr(description),
		MilestoneID: gogitlab.Ptr(milestoneID),
	}, gogitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("create issue %q: %w", title, err)
	}

	item := mapIssue(created, projectID)
	return &item, nil
}

// UpsertItem updates an issue. A Status of "open" or "closed" becomes the
// matching state event.
func (s *Store) UpsertItem(ctx context.Context, id string, patch canonical.ItemPatch) (*canonical.Receipt, error) {
	if patch.IsZero() {
		return &canonical.Receipt{EntityID: id, Operation: "noop", AppliedAt: time.Now()}, nil
	}
	iid, err := parseID(id, "issue")
	if err != nil {
		return nil, err
	}

	update := &gogitlab.UpdateIssueOptions{}
	if patch.Title != nil {
		update.Title = gogitlab.Ptr(*patch.Title)
	}
	if patch.Description != nil {
		update.Description = gogitlab.Ptr(*patch.Description)
	}
	if patch.Status != nil {
		switch *patch.Status {
		case "closed":
			update.StateEvent = gogitlab.Ptr("close")
		case "open":
			update.StateEvent = gogitlab.Ptr("reopen")
		default:
			return nil, fmt.Errorf("issue state %q: must be open or closed", *patch.Status)
		}
	}

	_, _, err = s.client.Issues.UpdateIssue(s.projectID, iid, update, gogitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("update issue %s: %w", id, err)
	}
	return &canonical.Receipt{EntityID: id, Operation: "update", AppliedAt: time.Now()}, nil
}

// projectsFromMilestones maps listing results to canonical projects.
// Milestones without a title cannot be matched or propagated and are dropped.
func projectsFromMilestones(milestones []*gogitlab.Milestone) []canonical.Project {
	projects := make([]canonical.Project, 0, len(milestones))
	for _, m := range milestones {
		if m.Title == "" {
			slog.Warn("dropping untitled milestone", "milestone", m.ID)
			continue
		}
		projects = append(projects, mapMilestone(m))
	}
	return projects
}

// itemsFromIssues maps listing results to canonical items, dropping
// untitled issues.
func itemsFromIssues(issues []*gogitlab.Issue, projectID string) []canonical.Item {
	items := make([]canonical.Item, 0, len(issues))
	for _, issue := range issues {
		if issue.Title == "" {
			slog.Warn("dropping untitled issue", "issue", issue.IID)
			continue
		}
		items = append(items, mapIssue(issue, projectID))
	}
	return items
}

// mapMilestone converts a milestone to a canonical project. CounterpartURL
// carries the milestone's own web URL so the tracker side can persist it.
func mapMilestone(m *gogitlab.Milestone) canonical.Project {
	proj := canonical.Project{
		ID:             strconv.FormatInt(int64(m.ID), 10),
		Title:          m.Title,
		Description:    m.Description,
		CounterpartURL: m.WebURL,
	}
	if m.UpdatedAt != nil {
		proj.UpdatedAt = *m.UpdatedAt
	}
	return proj
}

// mapIssue converts an issue to a canonical item. Status is GitLab's native
// state string ("opened" or "closed").
func mapIssue(issue *gogitlab.Issue, projectID string) canonical.Item {
	item := canonical.Item{
		ID:                strconv.FormatInt(int64(issue.IID), 10),
		Title:             issue.Title,
		Description:       issue.Description,
		Status:            issue.State,
		ProjectID:         projectID,
		CounterpartNumber: int(issue.IID),
		CounterpartURL:    issue.WebURL,
	}
	if issue.UpdatedAt != nil {
		item.UpdatedAt = *issue.UpdatedAt
	}
	return item
}

func issueMilestoneID(issue *gogitlab.Issue) string {
	if issue.Milestone == nil {
		return ""
	}
	return strconv.FormatInt(int64(issue.Milestone.ID), 10)
}

func parseID(id, kind string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s id %q: %w", kind, id, err)
	}
	return n, nil
}
