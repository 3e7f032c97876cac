package jira

import (
	"testing"
	"time"

	"github.com/ctreminiom/go-atlassian/v2/pkg/infra/models"
	"github.com/stretchr/testify/assert"
)

func TestMapProject(t *testing.T) {
	updated := models.DateTimeScheme(time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC))

	issue := &models.IssueScheme{
		Key: "PROJ-7",
		Fields: &models.IssueFieldsScheme{
			Summary:     "Launch checklist",
			Description: textToADF("all the launch work"),
			IssueType:   &models.IssueTypeScheme{Name: "Epic"},
			Updated:     &updated,
		},
	}
	link := linkProperty{
		BoardID:    "3",
		BoardURL:   "https://example.com/milestone/3",
		LastSynced: "2026-02-09T08:00:00Z",
	}

	s := &Store{projectKey: "PROJ"}
	proj := s.mapProject(issue, link)

	assert.Equal(t, "PROJ-7", proj.ID)
	assert.Equal(t, "Launch checklist", proj.Title)
	assert.Equal(t, "all the launch work", proj.Description)
	assert.Equal(t, "3", proj.CounterpartID)
	assert.Equal(t, "https://example.com/milestone/3", proj.CounterpartURL)
	assert.Equal(t, time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC), proj.LastSyncAt)
	assert.Equal(t, time.Time(updated), proj.UpdatedAt)
	assert.True(t, proj.Linked())
}

func TestMapProjectNilFields(t *testing.T) {
	s := &Store{projectKey: "PROJ"}
	proj := s.mapProject(&models.IssueScheme{Key: "PROJ-9"}, linkProperty{})

	assert.Equal(t, "PROJ-9", proj.ID)
	assert.Empty(t, proj.Title)
	assert.True(t, proj.LastSyncAt.IsZero())
	assert.False(t, proj.Linked())
}

func TestMapItem(t *testing.T) {
	updated := models.DateTimeScheme(time.Date(2026, 2, 11, 14, 0, 0, 0, time.UTC))

	issue := &models.IssueScheme{
		Key: "PROJ-21",
		Fields: &models.IssueFieldsScheme{
			Summary:   "Write docs",
			IssueType: &models.IssueTypeScheme{Name: "Task"},
			Status:    &models.StatusScheme{Name: "In Progress"},
			Parent:    &models.ParentScheme{Key: "PROJ-7"},
			Updated:   &updated,
		},
	}
	link := linkProperty{BoardID: "14", BoardNumber: 14}

	s := &Store{projectKey: "PROJ"}
	item := s.mapItem(issue, parentKey(issue), link)

	assert.Equal(t, "PROJ-21", item.ID)
	assert.Equal(t, "Write docs", item.Title)
	assert.Equal(t, "In Progress", item.Status)
	assert.Equal(t, "PROJ-7", item.ProjectID)
	assert.Equal(t, "14", item.CounterpartID)
	assert.Equal(t, 14, item.CounterpartNumber)
	assert.True(t, item.Linked())
}

func TestParseSyncTime(t *testing.T) {
	assert.True(t, parseSyncTime("").IsZero())
	assert.True(t, parseSyncTime("not a time").IsZero())
	assert.Equal(t,
		time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		parseSyncTime("2026-01-02T03:04:05Z"))
}

// Listing drops issues without a summary before their sync property is read.
func TestHasSummary(t *testing.T) {
	assert.True(t, hasSummary(&models.IssueScheme{
		Key:    "PROJ-7",
		Fields: &models.IssueFieldsScheme{Summary: "Launch checklist"},
	}))
	assert.False(t, hasSummary(&models.IssueScheme{
		Key:    "PROJ-8",
		Fields: &models.IssueFieldsScheme{},
	}))
	assert.False(t, hasSummary(&models.IssueScheme{Key: "PROJ-9"}))
}
