// Package client is the in-memory reconciliation layer a canvas client runs
// on top of the store feeds. Every incoming snapshot replaces local state
// wholesale; the lock-status projection is recomputed, never merged, so it
// stays a pure function of (previous state, snapshot, self).
package client

import (
	"canvas-sync-server/internal/domain"
)

// LockStatus is the client-local projection of a shape's lock relative to
// this user. It is never persisted and is rebuilt from each snapshot.
type LockStatus string

const (
	// LockPending: we asked for the lock, the store has not shown it yet.
	LockPending LockStatus = "pending"
	// LockConfirmed: the snapshot shows locked_by == self.
	LockConfirmed LockStatus = "confirmed"
	// LockExpired: we held or believed we held the lock and the snapshot
	// shows it moved away from self (or the shape vanished).
	LockExpired LockStatus = "expired"
	// LockFailed: our pending acquisition lost to another holder.
	LockFailed LockStatus = "failed"
)

// State is everything the client derives from the authoritative snapshots
// plus its own local intent (selection).
type State struct {
	Shapes     []*domain.Shape
	Groups     []*domain.Group
	LockStatus map[string]LockStatus
	Selected   []string

	byID map[string]*domain.Shape
}

func NewState() *State {
	return &State{
		LockStatus: make(map[string]LockStatus),
		byID:       make(map[string]*domain.Shape),
	}
}

// Shape returns the shape with the given id from the latest snapshot.
func (st *State) Shape(id string) (*domain.Shape, bool) {
	s, ok := st.byID[id]
	return s, ok
}

// IsSelected reports whether the shape id is in the local selection.
func (st *State) IsSelected(id string) bool {
	for _, sel := range st.Selected {
		if sel == id {
			return true
		}
	}
	return false
}

// Reconcile merges an authoritative shape snapshot with the previous local
// state. Rules, per shape:
//
//   - locked_by == self        -> confirmed
//   - locked_by == other, was pending    -> failed (we lost the race)
//   - locked_by == other, was confirmed  -> expired (lock taken from us)
//   - locked_by == nil, was pending      -> still pending (write in flight)
//   - locked_by == nil, was confirmed    -> expired (released remotely)
//   - shape gone, had any status         -> dropped entirely
//
// Selection keeps its order but loses deleted shapes and shapes whose status
// became expired or failed.
func Reconcile(prev *State, shapes []*domain.Shape, selfID string) *State {
	next := &State{
		Shapes:     shapes,
		Groups:     prev.Groups,
		LockStatus: make(map[string]LockStatus, len(prev.LockStatus)),
		byID:       make(map[string]*domain.Shape, len(shapes)),
	}

	for _, s := range shapes {
		next.byID[s.ID] = s
	}

	for _, s := range shapes {
		was := prev.LockStatus[s.ID]

		switch {
		case s.LockedBy != nil && *s.LockedBy == selfID:
			next.LockStatus[s.ID] = LockConfirmed

		case s.LockedBy != nil:
			// Someone else holds it. Only meaningful if we had local intent.
			switch was {
			case LockPending:
				next.LockStatus[s.ID] = LockFailed
			case LockConfirmed:
				next.LockStatus[s.ID] = LockExpired
			case LockExpired, LockFailed:
				next.LockStatus[s.ID] = was
			}

		default:
			switch was {
			case LockPending:
				next.LockStatus[s.ID] = LockPending
			case LockConfirmed:
				next.LockStatus[s.ID] = LockExpired
			case LockExpired, LockFailed:
				next.LockStatus[s.ID] = was
			}
		}
	}

	for _, id := range prev.Selected {
		if _, exists := next.byID[id]; !exists {
			continue
		}
		if st := next.LockStatus[id]; st == LockExpired || st == LockFailed {
			continue
		}
		next.Selected = append(next.Selected, id)
	}

	return next
}

// ReconcileGroups replaces the group list; groups carry no per-client
// projection so this is a plain swap.
func ReconcileGroups(prev *State, groups []*domain.Group) *State {
	next := *prev
	next.Groups = groups
	return &next
}
