package board

import (
	"fmt"
	"strconv"
)

// squareText renders a square as the two-digit "RC" form from spec.md §6
// (R∈{1..9,0 for row 10}, C∈{1..9}), 1-indexed.
func squareText(sq int) string {
	r := rowOf(sq) + 1
	c := colOf(sq) + 1
	rd := r % 10 // row 10 displays as "0"
	return fmt.Sprintf("%d%d", rd, c)
}

func parseSquareText(s string) (int, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("board: malformed square %q", s)
	}
	rd, err := strconv.Atoi(s[:1])
	if err != nil {
		return 0, fmt.Errorf("board: malformed square %q: %w", s, err)
	}
	c, err := strconv.Atoi(s[1:2])
	if err != nil {
		return 0, fmt.Errorf("board: malformed square %q: %w", s, err)
	}
	r := rd
	if rd == 0 {
		r = 10
	}
	row, col := r-1, c-1
	if !onBoard(row, col) {
		return 0, fmt.Errorf("board: square %q out of range", s)
	}
	return indexOf(row, col), nil
}

// MoveText renders a move as "FF-TT" (spec.md §6).
func MoveText(m Move) string {
	return squareText(m.From) + "-" + squareText(m.To)
}

// ParseMoveText parses "FF-TT" against the board's current legal moves,
// returning the matching Move (so Piece/Captured are filled in correctly).
func (b *Board) ParseMoveText(s string) (Move, error) {
	if len(s) != 5 || s[2] != '-' {
		return Move{}, fmt.Errorf("board: malformed move text %q", s)
	}
	from, err := parseSquareText(s[:2])
	if err != nil {
		return Move{}, err
	}
	to, err := parseSquareText(s[3:])
	if err != nil {
		return Move{}, err
	}
	for _, m := range b.GenerateLegalMoves() {
		if m.From == from && m.To == to {
			return m, nil
		}
	}
	return Move{}, fmt.Errorf("board: %q is not a legal move", s)
}
