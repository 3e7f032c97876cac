// Package status translates between the tracker's fine-grained status
// vocabulary and the board's binary open/closed state, in both directions.
//
// The mapping is total and lossy: several tracker statuses ("Blocked",
// "On Hold", ...) collapse to the same board state, so the reverse mapping
// cannot recover the original fine-grained status. That information loss is
// accepted and documented here, not a bug.
package status

import "strings"

// BoardState is the board side's two-valued item state.
type BoardState int

const (
	BoardOpen BoardState = iota
	BoardClosed
)

// Tracker statuses that map 1:1 with a board state.
const (
	TrackerCompleted  = "Completed"
	TrackerInProgress = "In Progress"
)

// String returns the board-native state string.
func (s BoardState) String() string {
	if s == BoardClosed {
		return "closed"
	}
	return "open"
}

// ParseBoardState parses a board-native state string. Anything that is not a
// recognized closed state is open; board state is two-valued by construction.
func ParseBoardState(s string) BoardState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "closed", "close", "done", "merged":
		return BoardClosed
	default:
		return BoardOpen
	}
}

// ToBoardState maps a tracker status name to the board's binary state.
// Unrecognized statuses default to open: an unmapped status must never
// silently drop a work item from the board side.
func ToBoardState(trackerStatus string) BoardState {
	switch strings.ToLower(strings.TrimSpace(trackerStatus)) {
	case "completed", "complete", "done":
		return BoardClosed
	case "canceled", "cancelled", "won't do", "wont do":
		return BoardClosed
	default:
		// "Not Started", "In Progress", "Blocked", "On Hold", and anything
		// unrecognized stay visible on the board.
		return BoardOpen
	}
}

// ToTrackerStatus maps a board state back to a tracker status name. This is
// the lossy reverse: every open board item becomes "In Progress" regardless
// of the fine-grained status it may once have had.
func ToTrackerStatus(s BoardState) string {
	if s == BoardClosed {
		return TrackerCompleted
	}
	return TrackerInProgress
}
