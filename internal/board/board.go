// Package board provides a unified interface over board-side backends
// (GitHub, GitLab). A board project is a milestone in the destination
// repository; a board item is an issue assigned to that milestone. Issue
// state is the board's two-valued open/closed vocabulary.
package board

import (
	"fmt"
	"strings"

	"github.com/calebroseland/tracksync/internal/canonical"
)

// BackendType identifies which board backend is in use.
type BackendType string

const (
	BackendGitHub BackendType = "github"
	BackendGitLab BackendType = "gitlab"
)

// Config holds board backend configuration.
type Config struct {
	// Backend type: "github" or "gitlab".
	Backend string

	// Token authenticates against the board.
	Token string

	// Org is the organization / group owning the repository.
	Org string

	// Repo is the destination repository. Either "name" (combined with Org)
	// or a full "owner/name" path.
	Repo string

	// BaseURL for self-hosted instances. Empty for github.com / gitlab.com.
	BaseURL string
}

// NewStoreFunc is a constructor function for creating a board store.
// The actual GitHub/GitLab constructors are registered at init time by the
// backend packages to avoid import cycles.
type NewStoreFunc func(cfg Config) (canonical.Store, error)

var constructors = map[BackendType]NewStoreFunc{}

// Register registers a backend constructor. Called from init() in backend
// packages (github/, gitlab/).
func Register(backend BackendType, constructor NewStoreFunc) {
	constructors[backend] = constructor
}

// New creates the board store selected by cfg.Backend.
func New(cfg Config) (canonical.Store, error) {
	constructor, ok := constructors[BackendType(cfg.Backend)]
	if !ok {
		return nil, fmt.Errorf("no board backend registered for %q (registered: %v)", cfg.Backend, registered())
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

// SplitRepo resolves cfg.Repo into owner and name, preferring an explicit
// "owner/name" path over the configured org.
func (c Config) SplitRepo() (owner, name string, err error) {
	if i := strings.LastIndex(c.Repo, "/"); i >= 0 {
		return c.Repo[:i], c.Repo[i+1:], nil
	}
	if c.Org == "" {
		return "", "", fmt.Errorf("repository %q needs an owner: set board.org or use owner/name", c.Repo)
	}
	return c.Org, c.Repo, nil
}

// FullPath returns the repository as a single "owner/name" path, the form
// GitLab uses to address projects. Nested group paths pass through as-is.
func (c Config) FullPath() (string, error) {
	if strings.Contains(c.Repo, "/") {
		return c.Repo, nil
	}
	if c.Org == "" {
		return "", fmt.Errorf("repository %q needs a group: set board.org or use group/name", c.Repo)
	}
	return c.Org + "/" + c.Repo, nil
}
