// Package game holds the in-memory table of live games the HTTP demo
// server drives (spec.md §6 supplemented "demo surface").
package game

import (
	"time"

	"janggi/internal/board"
)

// State is one game's mutable record: the live board plus bookkeeping the
// manager needs to answer HTTP requests.
type State struct {
	ID        string
	Board     *board.Board
	CreatedAt time.Time
	UpdatedAt time.Time
}
