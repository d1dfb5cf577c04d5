// Package board implements the 9x10 Janggi board: piece encoding, legal
// move generation, make/unmake with Zobrist-style hashing, and terminal
// state detection.
package board

// Side identifies which player a piece or move belongs to.
type Side int8

const (
	NoSide Side = -1
	Cho    Side = 0
	Han    Side = 1
)

func (s Side) Opposite() Side {
	switch s {
	case Cho:
		return Han
	case Han:
		return Cho
	default:
		return NoSide
	}
}

func (s Side) String() string {
	switch s {
	case Cho:
		return "cho"
	case Han:
		return "han"
	default:
		return "none"
	}
}

// PieceType enumerates the seven Janggi piece types. The General is zero so
// its material value (0) falls out of the value table naturally.
type PieceType int8

const (
	General PieceType = iota
	Guard
	Chariot
	Elephant
	Horse
	Cannon
	Soldier
	pieceTypeCount
)

// Value returns the material point value used for scoring and capture
// deltas (spec.md §3 "Piece values").
func (pt PieceType) Value() float64 {
	switch pt {
	case Guard:
		return 3
	case Chariot:
		return 13
	case Cannon:
		return 7
	case Elephant:
		return 3
	case Horse:
		return 5
	case Soldier:
		return 2
	default: // General
		return 0
	}
}

func (pt PieceType) String() string {
	switch pt {
	case General:
		return "general"
	case Guard:
		return "guard"
	case Chariot:
		return "chariot"
	case Elephant:
		return "elephant"
	case Horse:
		return "horse"
	case Cannon:
		return "cannon"
	case Soldier:
		return "soldier"
	default:
		return "none"
	}
}

// Piece packs a Side and PieceType into a single byte-sized value. The zero
// value represents an empty square.
type Piece int8

const empty Piece = 0

// pieceBias keeps PieceType's zero value (General) distinguishable from an
// empty square: occupied pieces are stored as (type+1), signed by side.
func makePiece(s Side, pt PieceType) Piece {
	if s == NoSide {
		return empty
	}
	v := Piece(pt) + 1
	if s == Han {
		return -v
	}
	return v
}

func (p Piece) Empty() bool { return p == empty }

func (p Piece) Type() PieceType {
	if p == empty {
		return pieceTypeCount
	}
	if p < 0 {
		return PieceType(-p - 1)
	}
	return PieceType(p - 1)
}

func (p Piece) Side() Side {
	switch {
	case p == empty:
		return NoSide
	case p > 0:
		return Cho
	default:
		return Han
	}
}

// Code16 is the piece identity used by the input/output feature planes
// (spec.md §4.6): side-relative type code 0..6, with the side-to-move's
// own pieces always using the "low" 0..6 range.
func (p Piece) Code16() int { return int(p.Type()) }

// Move is the 4-tuple (piece-at-origin, from, to, captured-or-empty). A
// move with From == To is a pass encoding the General's own square.
// Equality (spec.md §3) is (From, To, Piece) — Captured is excluded.
type Move struct {
	Piece    Piece
	From     int
	To       int
	Captured Piece
}

func (m Move) Equal(o Move) bool {
	return m.From == o.From && m.To == o.To && m.Piece == o.Piece
}

func (m Move) IsPass() bool { return m.From == m.To }

// StartingLayout selects one of the four back-rank orderings a side may
// start with (spec.md §3 "Starting state"): the inner Elephant/Horse pair
// swaps position.
type StartingLayout int

const (
	LayoutSangMaSangMa StartingLayout = iota // "sm": Elephant, Horse outward from center
	LayoutMaSangSangMa                       // "ms": Horse, Elephant outward from center
)

func ParseStartingLayout(s string) (StartingLayout, bool) {
	switch s {
	case "sm":
		return LayoutSangMaSangMa, true
	case "ms":
		return LayoutMaSangSangMa, true
	default:
		return 0, false
	}
}
