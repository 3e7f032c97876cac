package notion

import (
	"log/slog"
	"time"

	"github.com/jomei/notionapi"

	"github.com/calebroseland/tracksync/internal/canonical"
)

// Property names the two databases are expected to carry.
const (
	propTitle       = "Name"
	propDescription = "Description"
	propStatus      = "Status"
	propProject     = "Project"
	propBoardID     = "Board ID"
	propBoardURL    = "Board URL"
	propBoardNumber = "Board Number"
	propLastSynced  = "Last Synced"
)

// stampSlack absorbs the last_edited_time bump caused by our own checkpoint
// and link writes. Notion reports last_edited_time at minute granularity and
// the stamp update itself counts as an edit, so an edit time within this
// window of the checkpoint is the stamp, not a user change.
const stampSlack = 2 * time.Minute

// effectiveUpdatedAt clamps a page's last edit time to the checkpoint when
// the only edit since the checkpoint is our own stamp write.
func effectiveUpdatedAt(lastEdited, lastSynced time.Time) time.Time {
	if !lastSynced.IsZero() && !lastEdited.After(lastSynced.Add(stampSlack)) {
		return lastSynced
	}
	return lastEdited
}

// projectsFromPages maps query results to canonical projects. Pages with an
// empty title cannot be matched or propagated and are dropped.
func projectsFromPages(pages []notionapi.Page) []canonical.Project {
	projects := make([]canonical.Project, 0, len(pages))
	for i := range pages {
		if titleOf(pages[i].Properties) == "" {
			slog.Warn("dropping untitled project page", "page", pages[i].ID)
			continue
		}
		projects = append(projects, mapProjectPage(&pages[i]))
	}
	return projects
}

// itemsFromPages maps query results to canonical items, dropping untitled pages.
func itemsFromPages(pages []notionapi.Page, projectID string) []canonical.Item {
	items := make([]canonical.Item, 0, len(pages))
	for i := range pages {
		if titleOf(pages[i].Properties) == "" {
			slog.Warn("dropping untitled item page", "page", pages[i].ID)
			continue
		}
		items = append(items, mapItemPage(&pages[i], projectID))
	}
	return items
}

// mapProjectPage converts a projects-database page to a canonical project.
func mapProjectPage(page *notionapi.Page) canonical.Project {
	lastSynced := dateOf(page.Properties, propLastSynced)
	return canonical.Project{
		ID:             string(page.ID),
		Title:          titleOf(page.Properties),
		Description:    richTextOf(page.Properties, propDescription),
		CounterpartID:  richTextOf(page.Properties, propBoardID),
		CounterpartURL: urlOf(page.Properties, propBoardURL),
		LastSyncAt:     lastSynced,
		UpdatedAt:      effectiveUpdatedAt(page.LastEditedTime, lastSynced),
	}
}

// mapItemPage converts an items-database page to a canonical item.
func mapItemPage(page *notionapi.Page, projectID string) canonical.Item {
	lastSynced := dateOf(page.Properties, propLastSynced)
	return canonical.Item{
		ID:                string(page.ID),
		Title:             titleOf(page.Properties),
		Description:       richTextOf(page.Properties, propDescription),
		Status:            statusOf(page.Properties),
		ProjectID:         projectID,
		CounterpartID:     richTextOf(page.Properties, propBoardID),
		CounterpartURL:    urlOf(page.Properties, propBoardURL),
		CounterpartNumber: numberOf(page.Properties, propBoardNumber),
		LastSyncAt:        lastSynced,
		UpdatedAt:         effectiveUpdatedAt(page.LastEditedTime, lastSynced),
	}
}

func titleProperty(value string) *notionapi.TitleProperty {
	return &notionapi.TitleProperty{
		Title: []notionapi.RichText{{Text: &notionapi.Text{Content: value}}},
	}
}

func richTextProperty(value string) *notionapi.RichTextProperty {
	return &notionapi.RichTextProperty{
		RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: value}}},
	}
}

func dateProperty(t time.Time) *notionapi.DateProperty {
	d := notionapi.Date(t)
	return &notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
}

func titleOf(props notionapi.Properties) string {
	p, ok := props[propTitle].(*notionapi.TitleProperty)
	if !ok {
		return ""
	}
	return plainText(p.Title)
}

func richTextOf(props notionapi.Properties, name string) string {
	p, ok := props[name].(*notionapi.RichTextProperty)
	if !ok {
		return ""
	}
	return plainText(p.RichText)
}

// statusOf reads the "Status" column regardless of whether the database
// declares it as a status or a select property.
func statusOf(props notionapi.Properties) string {
	switch p := props[propStatus].(type) {
	case *notionapi.StatusProperty:
		return p.Status.Name
	case *notionapi.SelectProperty:
		return p.Select.Name
	}
	return ""
}

func urlOf(props notionapi.Properties, name string) string {
	p, ok := props[name].(*notionapi.URLProperty)
	if !ok {
		return ""
	}
	return p.URL
}

func numberOf(props notionapi.Properties, name string) int {
	p, ok := props[name].(*notionapi.NumberProperty)
	if !ok {
		return 0
	}
	return int(p.Number)
}

func dateOf(props notionapi.Properties, name string) time.Time {
	p, ok := props[name].(*notionapi.DateProperty)
	if !ok || p.Date == nil || p.Date.Start == nil {
		return time.Time{}
	}
	return time.Time(*p.Date.Start)
}

func relationID(props notionapi.Properties, name string) string {
	p, ok := props[name].(*notionapi.RelationProperty)
	if !ok || len(p.Relation) == 0 {
		return ""
	}
	return string(p.Relation[0].ID)
}

func plainText(parts []notionapi.RichText) string {
	var out string
	for _, part := range parts {
		out += part.PlainText
	}
	return out
}
