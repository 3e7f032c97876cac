// Package recon implements the reconciliation engine: direction decisions,
// counterpart linking, and idempotent create-or-match between the tracker
// and the board.
package recon

import (
	"fmt"
	"time"
)

// Direction says which way a pair of records should be propagated.
type Direction int

const (
	// LeftToRight propagates the tracker-side record onto the board.
	LeftToRight Direction = iota
	// RightToLeft propagates the board-side record onto the tracker.
	RightToLeft
	// Conflict means both sides changed since the last sync. Neither side is
	// written; the pair is surfaced in the run report for human triage.
	Conflict
)

// String returns a short human-readable direction name.
func (d Direction) String() string {
	switch d {
	case LeftToRight:
		return "left-to-right"
	case RightToLeft:
		return "right-to-left"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Decision is the outcome of comparing a pair's timestamps. Computed fresh
// each run, never persisted.
type Decision struct {
	Direction Direction
	Reason    string
}

// Decide determines the sync direction for a pair from three timestamps:
// each side's store-reported modification time and the pair's checkpoint
// (zero if never synced).
//
// When neither side changed, the decision defaults to LeftToRight so the
// checkpoint still advances; the resulting write is a cheap no-op. This is a
// deliberate tie-break, not an accident.
//
// Decide is pure and total. Apart from the tie-break it is symmetric:
// swapping left and right swaps LeftToRight and RightToLeft and leaves
// Conflict fixed.
func Decide(leftUpdatedAt, rightUpdatedAt, lastSyncAt time.Time) Decision {
	leftChanged := leftUpdatedAt.After(lastSyncAt)
	rightChanged := rightUpdatedAt.After(lastSyncAt)

	switch {
	case leftChanged && rightChanged:
		return Decision{
			Direction: Conflict,
			Reason: fmt.Sprintf("both sides changed since last sync at %s (left %s, right %s)",
				lastSyncAt.Format(time.RFC3339),
				leftUpdatedAt.Format(time.RFC3339),
				rightUpdatedAt.Format(time.RFC3339)),
		}
	case leftChanged:
		return Decision{Direction: LeftToRight, Reason: "left side changed since last sync"}
	case rightChanged:
		return Decision{Direction: RightToLeft, Reason: "right side changed since last sync"}
	default:
		return Decision{Direction: LeftToRight, Reason: "no changes since last sync, default direction"}
	}
}
