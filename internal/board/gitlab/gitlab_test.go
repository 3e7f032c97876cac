package gitlab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gogitlab "gitlab.com/gitlab-org/api/client-go"
)

func TestMapMilestone(t *testing.T) {
	updated := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)

	proj := mapMilestone(&gogitlab.Milestone{
		ID:          42,
		Title:       "Launch checklist",
		Description: "all the launch work",
		WebURL:      "https://gitlab.com/acme/widgets/-/milestones/3",
		UpdatedAt:   &updated,
	})

	assert.Equal(t, "42", proj.ID)
	assert.Equal(t, "Launch checklist", proj.Title)
	assert.Equal(t, "all the launch work", proj.Description)
	assert.Equal(t, "https://gitlab.com/acme/widgets/-/milestones/3", proj.CounterpartURL)
	assert.Equal(t, updated, proj.UpdatedAt)
}

func TestMapIssue(t *testing.T) {
	item := mapIssue(&gogitlab.Issue{
		IID:         14,
		Title:       "Write docs",
		Description: "the docs",
		State:       "opened",
		WebURL:      "https://gitlab.com/acme/widgets/-/issues/14",
	}, "42")

	assert.Equal(t, "14", item.ID)
	assert.Equal(t, "Write docs", item.Title)
	assert.Equal(t, "opened", item.Status)
	assert.Equal(t, "42", item.ProjectID)
	assert.Equal(t, 14, item.CounterpartNumber)
}

func TestParseID(t *testing.T) {
	n, err := parseID("42", "milestone")
	assert.NoError(t, err)
	assert.EqualValues(t, 42, n)

	_, err = parseID("not-a-number", "milestone")
	assert.Error(t, err)
}

func TestProjectsFromMilestonesDropsUntitled(t *testing.T) {
	projects := projectsFromMilestones([]*gogitlab.Milestone{
		{ID: 42, Title: "Launch checklist"},
		{ID: 43},
	})

	assert.Len(t, projects, 1)
	assert.Equal(t, "42", projects[0].ID)
}

func TestItemsFromIssuesDropsUntitled(t *testing.T) {
	items := itemsFromIssues([]*gogitlab.Issue{
		{IID: 14, Title: "Write docs", State: "opened"},
		{IID: 15, State: "opened"},
	}, "42")

	assert.Len(t, items, 1)
	assert.Equal(t, "14", items[0].ID)
}
