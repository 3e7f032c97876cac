// Package github implements the board store on top of GitHub milestones and
// issues using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v82/github"

	"github.com/calebroseland/tracksync/internal/board"
	"github.com/calebroseland/tracksync/internal/canonical"
)

// Compile-time interface check.
var _ canonical.Store = (*Store)(nil)

func init() {
	board.Register(board.BackendGitHub, newStore)
}

// Store adapts one GitHub repository to the canonical board contract.
// Milestones are board projects; issues assigned to a milestone are that
// project's items.
type Store struct {
	client *gogithub.Client
	owner  string
	repo   string
}

func newStore(cfg board.Config) (canonical.Store, error) {
	owner, repo, err := cfg.SplitRepo()
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Transport: &oauth2Transport{token: cfg.Token},
	}
	client := gogithub.NewClient(httpClient)

	// GitHub Enterprise: override base URL.
	if cfg.BaseURL != "" {
		baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
		var parseErr error
		client.BaseURL, parseErr = client.BaseURL.Parse(baseURL + "/api/v3/")
		if parseErr != nil {
			return nil, fmt.Errorf("parse base URL %q: %w", cfg.BaseURL, parseErr)
		}
		client.UploadURL, parseErr = client.UploadURL.Parse(baseURL + "/api/uploads/")
		if parseErr != nil {
			return nil, fmt.Errorf("parse upload URL %q: %w", cfg.BaseURL, parseErr)
		}
	}

	return &Store{client: client, owner: owner, repo: repo}, nil
}

// oauth2Transport adds an Authorization header to every request.
type oauth2Transport struct {
	token string
	base  http.RoundTripper
}

func (t *oauth2Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	req2.Header.Set("Authorization", "Bearer "+t.token)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req2)
}

func (s *Store) Name() string { return "github" }

// CheckAuth validates the token by fetching the authenticated user.
func (s *Store) CheckAuth(ctx context.Context) error {
	_, _, err := s.client.Users.Get(ctx, "")
	if err != nil {
		return fmt.Errorf("check auth: %w", err)
	}
	return nil
}

// ListProjects lists all milestones in the repository, open and closed.
func (s *Store) ListProjects(ctx context.Context) ([]canonical.Project, error) {
	var all []*gogithub.Milestone
	opts := &gogithub.MilestoneListOptions{
		State:       "all",
		ListOptions: gogithub.ListOptions{PerPage: 100},
	}

	for {
		milestones, resp, err := s.client.Issues.ListMilestones(ctx, s.owner, s.repo, opts)
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

// FindProjectByID fetches a milestone by number.
func (s *Store) FindProjectByID(ctx context.Context, id string) (*canonical.Project, error) {
	number, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("milestone id %q: %w", id, err)
	}

	m, resp, err := s.client.Issues.GetMilestone(ctx, s.owner, s.repo, number)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, canonical.ErrNotFound
		}
		return nil, fmt.Errorf("get milestone %d: %w", number, err)
	}

	proj := mapMilestone(m)
	return &proj, nil
}

// CreateProject creates a milestone.
func (s *Store) CreateProject(ctx context.Context, title, description string) (*canonical.Project, error) {
	created, _, err := s.client.Issues.CreateMilestone(ctx, s.owner, s.repo, &gogithub.Milestone{
		Title:       gogithub.Ptr(title),
		Description: gogithub.Ptr(description),
	})
	if err != nil {
		return nil, fmt.Errorf("create milestone %q: %w", title, err)
	}

	proj := mapMilestone(created)
	return &proj, nil
}

// UpsertProject edits a milestone's title and description.
func (s *Store) UpsertProject(ctx context.Context, id string, patch canonical.ProjectPatch) (*canonical.Receipt, error) {
	if patch.IsZero() {
		return &canonical.Receipt{EntityID: id, Operation: "noop", AppliedAt: time.Now()}, nil
	}
	number, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("milestone id %q: %w", id, err)
	}

	update := &gogithub.Milestone{}
	if patch.Title != nil {
		update.Title = gogithub.Ptr(*patch.Title)
	}
	if patch.Description != nil {
		update.Description = gogithub.Ptr(*patch.Description)
	}

	_, _, err = s.client.Issues.EditMilestone(ctx, s.owner, s.repo, number, update)
	if err != nil {
		return nil, fmt.Errorf("edit milestone %d: %w", number, err)
	}
	return &canonical.Receipt{EntityID: id, Operation: "update", AppliedAt: time.Now()}, nil
}

// ListItems lists all issues assigned to a milestone, open and closed.
// Pull requests share the issues API and are filtered out.
func (s *Store) ListItems(ctx context.Context, projectID string) ([]canonical.Item, error) {
	var all []*gogithub.Issue
	opts := &gogithub.IssueListByRepoOptions{
		Milestone:   projectID,
		State:       "all",
		ListOptions: gogithub.ListOptions{PerPage: 100},
	}

	for {
		issues, resp, err := s.client.Issues.ListByRepo(ctx, s.owner, s.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("list issues for milestone %s: %w", projectID, err)
		}
		all = append(all, issues...)
		if resp.NextPage == 0 {
			break
		}
		opts.ListOptions.Page = resp.NextPage
	}

	return itemsFromIssues(all, projectID), nil
}

// FindItemByID fetches an issue by number.
func (s *Store) FindItemByID(ctx context.Context, id string) (*canonical.Item, error) {
	number, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("issue id %q: %w", id, err)
	}

	issue, resp, err := s.client.Issues.Get(ctx, s.owner, s.repo, number)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, canonical.ErrNotFound
		}
		return nil, fmt.Errorf("get issue %d: %w", number, err)
	}

	item := mapIssue(issue, issueMilestoneID(issue))
	return &item, nil
}

// CreateItem creates an issue assigned to the given milestone.
func (s *Store) CreateItem(ctx context.Context, projectID, title, description string) (*canonical.Item, error) {
	number, err := strconv.Atoi(projectID)
	if err != nil {
		return nil, fmt.Errorf("milestone id %q: %w", projectID, err)
	}

	created, _, err := s.client.Issues.Create(ctx, s.owner, s.repo, &gogithub.IssueRequest{
		Title:     gogithub.Ptr(title),
		Body:      gogithub.Ptr(description),
		Milestone: gogithub.Ptr(number),
	})
	if err != nil {
		return nil, fmt.Errorf("create issue %q: %w", title, err)
	}

	item := mapIssue(created, projectID)
	return &item, nil
}

// UpsertItem edits an issue. A Status of "open" or "closed" transitions the
// issue state.
func (s *Store) UpsertItem(ctx context.Context, id string, patch canonical.ItemPatch) (*canonical.Receipt, error) {
	if patch.IsZero() {
		return &canonical.Receipt{EntityID: id, Operation: "noop", AppliedAt: time.Now()}, nil
	}
	number, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("issue id %q: %w", id, err)
	}

	update := &gogithub.IssueRequest{}
	if patch.Title != nil {
		update.Title = gogithub.Ptr(*patch.Title)
	}
	if patch.Description != nil {
		update.Body = gogithub.Ptr(*patch.Description)
	}
	if patch.Status != nil {
		if *patch.Status != "open" && *patch.Status != "closed" {
			return nil, fmt.Errorf("issue state %q: must be open or closed", *patch.Status)
		}
		update.State = gogithub.Ptr(*patch.Status)
	}

	_, _, err = s.client.Issues.Edit(ctx, s.owner, s.repo, number, update)
	if err != nil {
		return nil, fmt.Errorf("edit issue %d: %w", number, err)
	}
	return &canonical.Receipt{EntityID: id, Operation: "update", AppliedAt: time.Now()}, nil
}

// projectsFromMilestones maps listing results to canonical projects.
// Milestones without a title cannot be matched or propagated and are dropped.
func projectsFromMilestones(milestones []*gogithub.Milestone) []canonical.Project {
	projects := make([]canonical.Project, 0, len(milestones))
	for _, m := range milestones {
		if m.GetTitle() == "" {
			slog.Warn("dropping untitled milestone", "milestone", m.GetNumber())
			continue
		}
		projects = append(projects, mapMilestone(m))
	}
	return projects
}

// itemsFromIssues maps listing results to canonical items. Pull requests
// share the issues API and are skipped, as are untitled issues.
func itemsFromIssues(issues []*gogithub.Issue, projectID string) []canonical.Item {
	items := make([]canonical.Item, 0, len(issues))
	for _, issue := range issues {
		if issue.IsPullRequest() {
			continue
		}
		if issue.GetTitle() == "" {
			slog.Warn("dropping untitled issue", "issue", issue.GetNumber())
			continue
		}
		items = append(items, mapIssue(issue, projectID))
	}
	return items
}

// mapMilestone converts a milestone to a canonical project. CounterpartURL
// carries the milestone's own web URL so the tracker side can persist it.
func mapMilestone(m *gogithub.Milestone) canonical.Project {
	return canonical.Project{
		ID:             strconv.Itoa(m.GetNumber()),
		Title:          m.GetTitle(),
		Description:    m.GetDescription(),
		CounterpartURL: m.GetHTMLURL(),
		UpdatedAt:      m.GetUpdatedAt().Time,
	}
}

// mapIssue converts an issue to a canonical item. Status is the issue's
// native state string.
func mapIssue(issue *gogithub.Issue, projectID string) canonical.Item {
	return canonical.Item{
		ID:                strconv.Itoa(issue.GetNumber()),
		Title:             issue.GetTitle(),
		Description:       issue.GetBody(),
		Status:            issue.GetState(),
		ProjectID:         projectID,
		CounterpartNumber: issue.GetNumber(),
		CounterpartURL:    issue.GetHTMLURL(),
		UpdatedAt:         issue.GetUpdatedAt().Time,
	}
}

func issueMilestoneID(issue *gogithub.Issue) string {
	if issue.Milestone == nil {
		return ""
	}
	return strconv.Itoa(issue.Milestone.GetNumber())
}
