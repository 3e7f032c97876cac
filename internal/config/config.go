// Package config provides configuration management for tracksync.
//
// Configuration is resolved from three layers, later layers winning:
// built-in defaults, the YAML config file (.tracksync.yaml), and TRACKSYNC_*
// environment variables. Validation happens once at startup, before any
// store is touched.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/calebroseland/tracksync/internal/syncerr"
)

// ConfigFileName is the default config file name.
const ConfigFileName = ".tracksync.yaml"

// TrackerConfig selects and configures the tracker-side backend.
type TrackerConfig struct {
	// Backend is "notion" (default) or "jira".
	Backend string `yaml:"backend"`
	// Token authenticates against the tracker store.
	Token string `yaml:"token"`
	// ProjectsCollection locates the projects: a Notion database ID, or a
	// Jira project key.
	ProjectsCollection string `yaml:"projects_collection"`
	// ItemsCollection locates the work items: a Notion database ID. Unused
	// for the jira backend, where items live under their epics.
	ItemsCollection string `yaml:"items_collection"`
	// BaseURL is required for the jira backend (e.g. https://acme.atlassian.net).
	BaseURL string `yaml:"base_url,omitempty"`
	// Email is the basic-auth user for the jira backend.
	Email string `yaml:"email,omitempty"`
}

// BoardConfig selects and configures the board-side backend.
type BoardConfig struct {
	// Backend is "github" (default) or "gitlab".
	Backend string `yaml:"backend"`
	Token   string `yaml:"token"`
	// Org is the GitHub organization or GitLab group owning the repo.
	Org string `yaml:"org"`
	// Repo is the default destination repository; the sync command's
	// positional argument overrides it.
	Repo string `yaml:"repo"`
	// BaseURL for self-hosted instances. Empty for github.com / gitlab.com.
	BaseURL string `yaml:"base_url,omitempty"`
}

// Config is the tracksync configuration.
type Config struct {
	Tracker TrackerConfig `yaml:"tracker"`
	Board   BoardConfig   `yaml:"board"`

	// DryRun gates every write path. Defaults to true: mutations are opt-in.
	DryRun bool `yaml:"dry_run"`

	// RequestTimeout bounds each store call.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Concurrency bounds how many independent projects reconcile at once.
	Concurrency int `yaml:"concurrency"`

	// HistoryPath is the SQLite run-history database location.
	// Defaults to ~/.tracksync/history.db.
	HistoryPath string `yaml:"history_path,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Tracker:        TrackerConfig{Backend: "notion"},
		Board:          BoardConfig{Backend: "github"},
		DryRun:         true,
		RequestTimeout: 30 * time.Second,
		Concurrency:    1,
	}
}

// EnvVarMapping documents the environment variables and the config fields
// they override.
var EnvVarMapping = map[string]string{
	"TRACKSYNC_TRACKER_BACKEND":     "tracker.backend",
	"TRACKSYNC_TRACKER_TOKEN":       "tracker.token",
	"TRACKSYNC_TRACKER_PROJECTS_DB": "tracker.projects_collection",
	"TRACKSYNC_TRACKER_ITEMS_DB":    "tracker.items_collection",
	"TRACKSYNC_TRACKER_BASE_URL":    "tracker.base_url",
	"TRACKSYNC_TRACKER_EMAIL":       "tracker.email",
	"TRACKSYNC_BOARD_BACKEND":       "board.backend",
	"TRACKSYNC_BOARD_TOKEN":         "board.token",
	"TRACKSYNC_BOARD_ORG":           "board.org",
	"TRACKSYNC_BOARD_REPO":          "board.repo",
	"TRACKSYNC_BOARD_BASE_URL":      "board.base_url",
	"TRACKSYNC_DRY_RUN":             "dry_run",
	"TRACKSYNC_REQUEST_TIMEOUT":     "request_timeout",
	"TRACKSYNC_CONCURRENCY":         "concurrency",
}

// Load resolves configuration from the default file location (searching the
// working directory, then the home directory) plus environment variables.
func Load() (*Config, error) {
	path := ConfigFileName
	if _, err := os.Stat(path); err != nil {
		if home, homeErr := os.UserHomeDir(); homeErr == nil {
			path = filepath.Join(home, ConfigFileName)
		}
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from a specific file path, then applies
// environment overrides. A missing file is not an error; env-only
// configuration is a supported mode.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, syncerr.ErrConfigInvalid(path, fmt.Sprintf("parse YAML: %v", err))
		}
	case os.IsNotExist(err):
		// Fall through to env vars.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays TRACKSYNC_* environment variables onto cfg.
func applyEnv(cfg *Config) error {
	setString := func(env string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}

	setString("TRACKSYNC_TRACKER_BACKEND", &cfg.Tracker.Backend)
	setString("TRACKSYNC_TRACKER_TOKEN", &cfg.Tracker.Token)
	setString("TRACKSYNC_TRACKER_PROJECTS_DB", &cfg.Tracker.ProjectsCollection)
	setString("TRACKSYNC_TRACKER_ITEMS_DB", &cfg.Tracker.ItemsCollection)
	setString("TRACKSYNC_TRACKER_BASE_URL", &cfg.Tracker.BaseURL)
	setString("TRACKSYNC_TRACKER_EMAIL", &cfg.Tracker.Email)
	setString("TRACKSYNC_BOARD_BACKEND", &cfg.Board.Backend)
	setString("TRACKSYNC_BOARD_TOKEN", &cfg.Board.Token)
	setString("TRACKSYNC_BOARD_ORG", &cfg.Board.Org)
	setString("TRACKSYNC_BOARD_REPO", &cfg.Board.Repo)
	setString("TRACKSYNC_BOARD_BASE_URL", &cfg.Board.BaseURL)

	if v := os.Getenv("TRACKSYNC_DRY_RUN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return syncerr.ErrConfigInvalid("dry_run",
				fmt.Sprintf("TRACKSYNC_DRY_RUN must be true or false, got %q", v))
		}
		cfg.DryRun = b
	}
	if v := os.Getenv("TRACKSYNC_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return syncerr.ErrConfigInvalid("request_timeout",
				fmt.Sprintf("TRACKSYNC_REQUEST_TIMEOUT must be a duration like 30s, got %q", v))
		}
		cfg.RequestTimeout = d
	}
	if v := os.Getenv("TRACKSYNC_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return syncerr.ErrConfigInvalid("concurrency",
				fmt.Sprintf("TRACKSYNC_CONCURRENCY must be an integer, got %q", v))
		}
		cfg.Concurrency = n
	}
	return nil
}

// Validate checks required fields. Errors here are fatal at startup.
func (c *Config) Validate() error {
	switch c.Tracker.Backend {
	case "notion":
		if c.Tracker.ProjectsCollection == "" {
			return syncerr.ErrConfigMissing("tracker.projects_collection", "TRACKSYNC_TRACKER_PROJECTS_DB")
		}
		if c.Tracker.ItemsCollection == "" {
			return syncerr.ErrConfigMissing("tracker.items_collection", "TRACKSYNC_TRACKER_ITEMS_DB")
		}
	case "jira":
		if c.Tracker.BaseURL == "" {
			return syncerr.ErrConfigMissing("tracker.base_url", "TRACKSYNC_TRACKER_BASE_URL")
		}
		if c.Tracker.Email == "" {
			return syncerr.ErrConfigMissing("tracker.email", "TRACKSYNC_TRACKER_EMAIL")
		}
		if c.Tracker.ProjectsCollection == "" {
			return syncerr.ErrConfigMissing("tracker.projects_collection", "TRACKSYNC_TRACKER_PROJECTS_DB")
		}
	default:
		return syncerr.ErrConfigInvalid("tracker.backend",
			fmt.Sprintf("unknown backend %q (supported: notion, jira)", c.Tracker.Backend))
	}
	if c.Tracker.Token == "" {
		return syncerr.ErrConfigMissing("tracker.token", "TRACKSYNC_TRACKER_TOKEN")
	}

	switch c.Board.Backend {
	case "github", "gitlab":
	default:
		return syncerr.ErrConfigInvalid("board.backend",
			fmt.Sprintf("unknown backend %q (supported: github, gitlab)", c.Board.Backend))
	}
	if c.Board.Token == "" {
		return syncerr.ErrConfigMissing("board.token", "TRACKSYNC_BOARD_TOKEN")
	}
	// A full "owner/name" repo path carries its own owner.
	if c.Board.Org == "" && !strings.Contains(c.Board.Repo, "/") {
		return syncerr.ErrConfigMissing("board.org", "TRACKSYNC_BOARD_ORG")
	}

	if c.Concurrency < 1 {
		return syncerr.ErrConfigInvalid("concurrency", "must be at least 1")
	}
	if c.RequestTimeout <= 0 {
		return syncerr.ErrConfigInvalid("request_timeout", "must be positive")
	}
	return nil
}

// ResolveRepo returns the destination repository: the positional CLI argument
// when given, otherwise the configured default.
func (c *Config) ResolveRepo(arg string) (string, error) {
	repo := strings.TrimSpace(arg)
	if repo == "" {
		repo = c.Board.Repo
	}
	if repo == "" {
		return "", syncerr.ErrConfigMissing("board.repo", "TRACKSYNC_BOARD_REPO")
	}
	return repo, nil
}

// HistoryDBPath returns the run-history database path, defaulting under the
// user's home directory.
func (c *Config) HistoryDBPath() string {
	if c.HistoryPath != "" {
		return c.HistoryPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".tracksync", "history.db")
	}
	return filepath.Join(home, ".tracksync", "history.db")
}
