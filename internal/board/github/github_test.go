package github

import (
	"testing"
	"time"

	gogithub "github.com/google/go-github/v82/github"
	"github.com/stretchr/testify/assert"
)

func TestMapMilestone(t *testing.T) {
	updated := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)

	proj := mapMilestone(&gogithub.Milestone{
		Number:      gogithub.Ptr(3),
		Title:       gogithub.Ptr("Launch checklist"),
		Description: gogithub.Ptr("all the launch work"),
		HTMLURL:     gogithub.Ptr("https://github.com/acme/widgets/milestone/3"),
		UpdatedAt:   &gogithub.Timestamp{Time: updated},
	})

	assert.Equal(t, "3", proj.ID)
	assert.Equal(t, "Launch checklist", proj.Title)
	assert.Equal(t, "all the launch work", proj.Description)
	assert.Equal(t, "https://github.com/acme/widgets/milestone/3", proj.CounterpartURL)
	assert.Equal(t, updated, proj.UpdatedAt)
}

func TestMapIssue(t *testing.T) {
	item := mapIssue(&gogithub.Issue{
		Number:  gogithub.Ptr(14),
		Title:   gogithub.Ptr("Write docs"),
		Body:    gogithub.Ptr("the docs"),
		State:   gogithub.Ptr("closed"),
		HTMLURL: gogithub.Ptr("https://github.com/acme/widgets/issues/14"),
	}, "3")

	assert.Equal(t, "14", item.ID)
	assert.Equal(t, "Write docs", item.Title)
	assert.Equal(t, "the docs", item.Description)
	assert.Equal(t, "closed", item.Status)
	assert.Equal(t, "3", item.ProjectID)
	assert.Equal(t, 14, item.CounterpartNumber)
}

func TestIssueMilestoneID(t *testing.T) {
	assert.Empty(t, issueMilestoneID(&gogithub.Issue{}))
	assert.Equal(t, "3", issueMilestoneID(&gogithub.Issue{
		Milestone: &gogithub.Milestone{Number: gogithub.Ptr(3)},
	}))
}

func TestProjectsFromMilestonesDropsUntitled(t *testing.T) {
	projects := projectsFromMilestones([]*gogithub.Milestone{
		{Number: gogithub.Ptr(3), Title: gogithub.Ptr("Launch checklist")},
		{Number: gogithub.Ptr(4)},
		{Number: gogithub.Ptr(5), Title: gogithub.Ptr("")},
	})

	assert.Len(t, projects, 1)
	assert.Equal(t, "3", projects[0].ID)
}

func TestItemsFromIssuesDropsUntitledAndPullRequests(t *testing.T) {
	items := itemsFromIssues([]*gogithub.Issue{
		{Number: gogithub.Ptr(14), Title: gogithub.Ptr("Write docs")},
		{Number: gogithub.Ptr(15)},
		{Number: gogithub.Ptr(16), Title: gogithub.Ptr("A PR"),
			PullRequestLinks: &gogithub.PullRequestLinks{URL: gogithub.Ptr("https://api.github.com/repos/acme/widgets/pulls/16")}},
	}, "3")

	assert.Len(t, items, 1)
	assert.Equal(t, "14", items[0].ID)
}
