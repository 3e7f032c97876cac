// Package cli implements the tracksync command-line interface.
// This file contains shared helper functions used across multiple commands.
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/calebroseland/tracksync/internal/board"
	"github.com/calebroseland/tracksync/internal/canonical"
	"github.com/calebroseland/tracksync/internal/config"
	"github.com/calebroseland/tracksync/internal/runner"
	"github.com/calebroseland/tracksync/internal/tracker"
)

func loadConfig() (*config.Config, error) {
	if path := configPath(); path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// buildStores constructs the tracker and board stores from validated config.
func buildStores(cfg *config.Config) (canonical.Store, canonical.Store, error) {
	trackerStore, err := tracker.New(tracker.Config{
		Backend:            cfg.Tracker.Backend,
		Token:              cfg.Tracker.Token,
		ProjectsCollection: cfg.Tracker.ProjectsCollection,
		ItemsCollection:    cfg.Tracker.ItemsCollection,
		BaseURL:            cfg.Tracker.BaseURL,
		Email:              cfg.Tracker.Email,
	})
	if err != nil {
		return nil, nil, err
	}

	boardStore, err := board.New(board.Config{
		Backend: cfg.Board.Backend,
		Token:   cfg.Board.Token,
		Org:     cfg.Board.Org,
		Repo:    cfg.Board.Repo,
		BaseURL: cfg.Board.BaseURL,
	})
	if err != nil {
		return nil, nil, err
	}

	return trackerStore, boardStore, nil
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// printSummary renders the run summary. Styles apply only when stdout is a
// terminal.
func printSummary(w io.Writer, s *runner.Summary) {
	color := isatty.IsTerminal(os.Stdout.Fd())
	style := func(st lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return st.Render(text)
	}

	state := string(s.State)
	switch s.State {
	case runner.StateCompleted:
		state = style(successStyle, state)
	case runner.StateFailed:
		state = style(errStyle, state)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s", style(headerStyle, "Run"), state)
	if s.Canceled {
		fmt.Fprintf(w, " %s", style(warnStyle, "(canceled, partial)"))
	}
	if s.DryRun {
		fmt.Fprintf(w, " %s", style(warnStyle, "(dry-run, nothing was written)"))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, style(dimStyle, fmt.Sprintf("  started %s, took %s",
		s.StartedAt.Format("2006-01-02 15:04:05"), s.FinishedAt.Sub(s.StartedAt).Round(10*time.Millisecond))))

	fmt.Fprintf(w, "  projects: %d seen, %d created, %d linked, %d synced\n",
		s.ProjectsSeen, s.ProjectsCreated, s.ProjectsLinked, s.ProjectsSynced)
	fmt.Fprintf(w, "  items:    %d created, %d synced to board, %d synced to tracker\n",
		s.ItemsCreated, s.ItemsSyncedL2R, s.ItemsSyncedR2L)

	if len(s.Conflicts) > 0 {
		fmt.Fprintf(w, "\n%s\n", style(warnStyle, fmt.Sprintf("  %d conflict(s), no writes for these pairs:", len(s.Conflicts))))
		for _, c := range s.Conflicts {
			fmt.Fprintf(w, "    %s %q (%s / %s): %s\n", c.Kind, c.Title, c.TrackerID, c.BoardID, c.Reason)
		}
	}

	if len(s.Errors) > 0 {
		fmt.Fprintf(w, "\n%s\n", style(errStyle, fmt.Sprintf("  %d error(s):", len(s.Errors))))
		for _, e := range s.Errors {
			fmt.Fprintf(w, "    %s\n", e.Error())
		}
	}
}
