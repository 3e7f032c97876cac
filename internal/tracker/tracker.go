// Package tracker provides a unified interface over tracker-side backends
// (Notion, Jira). The tracker is the system of record: it owns the
// fine-grained status vocabulary, the counterpart references, and the
// per-entity sync checkpoint.
package tracker

import (
	"fmt"

	"github.com/calebroseland/tracksync/internal/canonical"
)

// BackendType identifies which tracker backend is in use.
type BackendType string

const (
	BackendNotion BackendType = "notion"
	BackendJira   BackendType = "jira"
)

// Config holds tracker backend configuration.
type Config struct {
	// Backend type: "notion" or "jira".
	Backend string

	// Token authenticates against the tracker.
	Token string

	// ProjectsCollection addresses the projects container: a Notion database
	// id, or a Jira project key.
	ProjectsCollection string

	// ItemsCollection addresses the items container: a Notion database id.
	// Unused by Jira, where items live under their epic.
	ItemsCollection string

	// BaseURL is the instance URL. Required for Jira, unused by Notion.
	BaseURL string

	// Email is the basic-auth user for Jira.
	Email string
}

// NewStoreFunc is a constructor function for creating a tracker store.
// The actual Notion/Jira constructors are registered at init time by the
// backend packages to avoid import cycles.
type NewStoreFunc func(cfg Config) (canonical.Store, error)

var constructors = map[BackendType]NewStoreFunc{}

// Register registers a backend constructor. Called from init() in backend
// packages (notion/, jira/).
func Register(backend BackendType, constructor NewStoreFunc) {
	constructors[backend] = constructor
}

// New creates the tracker store selected by cfg.Backend.
func New(cfg Config) (canonical.Store, error) {
	constructor, ok := constructors[BackendType(cfg.Backend)]
	if !ok {
		return nil, fmt.Errorf("no tracker backend registered for %q (registered: %v)", cfg.Backend, registered())
	}
	return constructor(cfg)
}

func registered() []BackendType {
	var backends []BackendType
	for b := range constructors {
		backends = append(backends, b)
	}
	return backends
}
