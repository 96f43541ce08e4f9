package domain

import "time"

// CursorPosition is ephemeral per-user pointer state. It lives only in the
// realtime channel and is never written to the document store.
type CursorPosition struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Color    string    `json:"color"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	MovedAt  time.Time `json:"moved_at"`
}

// PresenceEntry marks one user as connected to the canvas.
type PresenceEntry struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Color    string    `json:"color"`
	JoinedAt time.Time `json:"joined_at"`
}
