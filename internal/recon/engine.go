package recon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/calebroseland/tracksync/internal/canonical"
	"github.com/calebroseland/tracksync/internal/status"
	"github.com/calebroseland/tracksync/internal/syncerr"
)

// Engine reconciles one tracker project (and its items) against the board.
// The tracker is the left side and the system of record for item creation;
// the board is the right side.
//
// Failures reconciling a single entity are recorded in the report and never
// abort the pass. Items within a project are processed strictly sequentially:
// the idempotent create-or-match step depends on observing each create before
// the next lookup.
type Engine struct {
	tracker canonical.Store
	board   canonical.Store
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an Engine over the two stores.
func New(tracker, board canonical.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		tracker: tracker,
		board:   board,
		logger:  logger,
		now:     time.Now,
	}
}

// SyncProject runs the full pass for one tracker project: resolve or repair
// the counterpart link, decide and apply the project-level propagation, then
// pair and reconcile the project's items. The returned report covers this
// project only; the caller merges reports across projects.
func (e *Engine) SyncProject(ctx context.Context, proj canonical.Project) *Report {
	report := &Report{}

	boardProj, firstLink := e.ensureBoardProject(ctx, &proj, report)
	if boardProj == nil {
		// Could not resolve, match, or create a counterpart. The failure is
		// already recorded; nothing further can be done for this project.
		return report
	}

	if firstLink {
		// Linking is orthogonal to content sync: persisting the counterpart
		// reference is the only write on a pure first-link pass.
		report.ProjectsLinked++
	} else {
		e.syncProjectContent(ctx, proj, boardProj, report)
	}

	e.syncItems(ctx, proj, boardProj, report)
	return report
}

// ensureBoardProject resolves the project's board counterpart, self-healing a
// stale link by falling back to match-by-title and finally creating the board
// project. Returns nil when no counterpart could be obtained. The second
// return value is true when the link was established during this call.
func (e *Engine) ensureBoardProject(ctx context.Context, proj *canonical.Project, report *Report) (*canonical.Project, bool) {
	if proj.Linked() {
		found, err := e.board.FindProjectByID(ctx, proj.CounterpartID)
		switch {
		case err == nil:
			return found, false
		case canonical.IsNotFound(err):
			e.logger.Warn("linked counterpart missing, re-linking",
				"project", proj.ID, "counterpart", proj.CounterpartID)
		default:
			report.addError(KindProject, proj.ID, "resolve counterpart", err)
			return nil, false
		}
	}

	// Unlinked (or stale link): match an existing board project by exact
	// title equality before creating, so a lost tracker link never duplicates
	// a board project that still exists.
	boardProj, created, err := e.matchOrCreateBoardProject(ctx, proj.Title, proj.Description)
	if err != nil {
		report.addError(KindProject, proj.ID, "create counterpart", err)
		return nil, false
	}
	if created {
		report.ProjectsCreated++
	}

	// Persist the discovered counterpart back onto the tracker project.
	syncedAt := e.now()
	_, err = e.tracker.UpsertProject(ctx, proj.ID, canonical.ProjectPatch{
		CounterpartID:  canonical.Ptr(boardProj.ID),
		CounterpartURL: canonical.Ptr(boardProj.CounterpartURL),
		SyncedAt:       &syncedAt,
	})
	if err != nil {
		report.addError(KindProject, proj.ID, "persist counterpart link", err)
		return nil, false
	}
	proj.CounterpartID = boardProj.ID
	e.logger.Info("linked project",
		"project", proj.ID, "board_project", boardProj.ID, "created", created)
	return boardProj, true
}

func (e *Engine) matchOrCreateBoardProject(ctx context.Context, title, description string) (*canonical.Project, bool, error) {
	existing, err := e.board.ListProjects(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("list board projects: %w", err)
	}
	for i := range existing {
		if existing[i].Title == title {
			return &existing[i], false, nil
		}
	}

	created, err := e.board.CreateProject(ctx, title, description)
	if err != nil {
		return nil, false, syncerr.ErrCreateFailed(e.board.Name(), "project", title, err)
	}
	return created, true, nil
}

// syncProjectContent applies the direction decision to an already-linked pair.
func (e *Engine) syncProjectContent(ctx context.Context, proj canonical.Project, boardProj *canonical.Project, report *Report) {
	decision := Decide(proj.UpdatedAt, boardProj.UpdatedAt, proj.LastSyncAt)
	e.logger.Debug("project direction",
		"project", proj.ID, "direction", decision.Direction.String(), "reason", decision.Reason)

	if decision.Direction == Conflict {
		report.addConflict(ConflictRecord{
			Kind:      KindProject,
			TrackerID: proj.ID,
			BoardID:   boardProj.ID,
			Title:     proj.Title,
			Reason:    decision.Reason,
		})
		return
	}

	switch decision.Direction {
	case LeftToRight:
		_, err := e.board.UpsertProject(ctx, boardProj.ID, canonical.ProjectPatch{
			Title:       canonical.Ptr(proj.Title),
			Description: canonical.Ptr(proj.Description),
		})
		if err != nil {
			report.addError(KindProject, proj.ID, "propagate to board", err)
			return
		}
	case RightToLeft:
		_, err := e.tracker.UpsertProject(ctx, proj.ID, canonical.ProjectPatch{
			Title:       canonical.Ptr(boardProj.Title),
			Description: canonical.Ptr(boardProj.Description),
		})
		if err != nil {
			report.addError(KindProject, proj.ID, "propagate to tracker", err)
			return
		}
	}

	// The checkpoint is taken after the propagation so the destination's
	// post-write timestamp never reads as a fresh change on the next run.
	syncedAt := e.now()
	if _, err := e.tracker.UpsertProject(ctx, proj.ID, canonical.ProjectPatch{SyncedAt: &syncedAt}); err != nil {
		report.addError(KindProject, proj.ID, "advance checkpoint", err)
		return
	}
	report.ProjectsSynced++
}

// syncItems pairs the project's items by stored counterpart id and reconciles
// each pair. Unpaired tracker items are created on the board via the same
// create-or-match logic as projects. Unpaired board items are left alone:
// the tracker is the system of record for item creation.
func (e *Engine) syncItems(ctx context.Context, proj canonical.Project, boardProj *canonical.Project, report *Report) {
	var trackerItems, boardItems []canonical.Item

	// The two listings are independent reads; fetch them concurrently.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		trackerItems, err = e.tracker.ListItems(gctx, proj.ID)
		if err != nil {
			return fmt.Errorf("list tracker items: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		boardItems, err = e.board.ListItems(gctx, boardProj.ID)
		if err != nil {
			return fmt.Errorf("list board items: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		report.addError(KindProject, proj.ID, "list items", err)
		return
	}

	boardByID := make(map[string]*canonical.Item, len(boardItems))
	boardByTitle := make(map[string]*canonical.Item, len(boardItems))
	for i := range boardItems {
		boardByID[boardItems[i].ID] = &boardItems[i]
		boardByTitle[boardItems[i].Title] = &boardItems[i]
	}

	for _, item := range trackerItems {
		if err := ctx.Err(); err != nil {
			report.addError(KindItem, item.ID, "sync", err)
			return
		}
		e.syncItem(ctx, item, boardProj, boardByID, boardByTitle, report)
	}
}

func (e *Engine) syncItem(ctx context.Context, item canonical.Item, boardProj *canonical.Project, boardByID, boardByTitle map[string]*canonical.Item, report *Report) {
	if item.Linked() {
		if boardItem, ok := boardByID[item.CounterpartID]; ok {
			e.syncItemContent(ctx, item, boardItem, report)
			return
		}
		// The stored counterpart did not appear in the board listing: the
		// link is stale. Fall through and re-link, same as projects.
		e.logger.Warn("linked counterpart missing, re-linking",
			"item", item.ID, "counterpart", item.CounterpartID)
	}

	// Match by exact title before creating.
	if boardItem, ok := boardByTitle[item.Title]; ok {
		if err := e.linkItem(ctx, item, boardItem); err != nil {
			report.addError(KindItem, item.ID, "persist counterpart link", err)
		}
		return
	}

	created, err := e.board.CreateItem(ctx, boardProj.ID, item.Title, item.Description)
	if err != nil {
		report.addError(KindItem, item.ID, "create counterpart",
			syncerr.ErrCreateFailed(e.board.Name(), "item", item.Title, err))
		return
	}
	boardByID[created.ID] = created
	boardByTitle[created.Title] = created

	// New board items start open; close immediately if the tracker status
	// already maps to the closed state.
	if status.ToBoardState(item.Status) == status.BoardClosed {
		if _, err := e.board.UpsertItem(ctx, created.ID, canonical.ItemPatch{
			Status: canonical.Ptr(status.BoardClosed.String()),
		}); err != nil {
			report.addError(KindItem, item.ID, "close created counterpart", err)
		}
	}

	if err := e.linkItem(ctx, item, created); err != nil {
		report.addError(KindItem, item.ID, "persist counterpart link", err)
		return
	}
	report.ItemsCreated++
	e.logger.Info("created board item", "item", item.ID, "board_item", created.ID, "title", item.Title)
}

// linkItem persists the counterpart reference back onto the tracker item.
func (e *Engine) linkItem(ctx context.Context, item canonical.Item, boardItem *canonical.Item) error {
	syncedAt := e.now()
	patch := canonical.ItemPatch{
		CounterpartID:  canonical.Ptr(boardItem.ID),
		CounterpartURL: canonical.Ptr(boardItem.CounterpartURL),
		SyncedAt:       &syncedAt,
	}
	if boardItem.CounterpartNumber != 0 {
		patch.CounterpartNumber = canonical.Ptr(boardItem.CounterpartNumber)
	}
	_, err := e.tracker.UpsertItem(ctx, item.ID, patch)
	return err
}

// syncItemContent applies the direction decision to an already-paired item.
func (e *Engine) syncItemContent(ctx context.Context, item canonical.Item, boardItem *canonical.Item, report *Report) {
	decision := Decide(item.UpdatedAt, boardItem.UpdatedAt, item.LastSyncAt)
	e.logger.Debug("item direction",
		"item", item.ID, "direction", decision.Direction.String(), "reason", decision.Reason)

	if decision.Direction == Conflict {
		report.addConflict(ConflictRecord{
			Kind:      KindItem,
			TrackerID: item.ID,
			BoardID:   boardItem.ID,
			Title:     item.Title,
			Reason:    decision.Reason,
		})
		return
	}

	switch decision.Direction {
	case LeftToRight:
		_, err := e.board.UpsertItem(ctx, boardItem.ID, canonical.ItemPatch{
			Title:       canonical.Ptr(item.Title),
			Description: canonical.Ptr(item.Description),
			Status:      canonical.Ptr(status.ToBoardState(item.Status).String()),
		})
		if err != nil {
			report.addError(KindItem, item.ID, "propagate to board", err)
			return
		}
	case RightToLeft:
		_, err := e.tracker.UpsertItem(ctx, item.ID, canonical.ItemPatch{
			Title:       canonical.Ptr(boardItem.Title),
			Description: canonical.Ptr(boardItem.Description),
			Status:      canonical.Ptr(status.ToTrackerStatus(status.ParseBoardState(boardItem.Status))),
		})
		if err != nil {
			report.addError(KindItem, item.ID, "propagate to tracker", err)
			return
		}
	}

	// Checkpoint after the propagation, so the destination's post-write
	// timestamp never reads as a fresh change on the next run.
	syncedAt := e.now()
	if _, err := e.tracker.UpsertItem(ctx, item.ID, canonical.ItemPatch{SyncedAt: &syncedAt}); err != nil {
		report.addError(KindItem, item.ID, "advance checkpoint", err)
		return
	}
	switch decision.Direction {
	case LeftToRight:
		report.ItemsSyncedL2R++
	case RightToLeft:
		report.ItemsSyncedR2L++
	}
}
