package board

import "strings"

const (
	Cols       = 9
	Rows       = 10
	NumSquares = Cols * Rows

	// Ply thresholds from original_source/src/libgmgm/Board.cpp::winner().
	quietEndPlyThreshold = 200
	hardCapPly           = 240
	bikjangScoreCeiling  = 72.0
)

func indexOf(row, col int) int { return row*Cols + col }
func rowOf(sq int) int         { return sq / Cols }
func colOf(sq int) int         { return sq % Cols }
func onBoard(row, col int) bool {
	return row >= 0 && row < Rows && col >= 0 && col < Cols
}

// palaceCols is the column range (inclusive) both palaces occupy.
const palaceColLo, palaceColHi = 3, 5

func inPalace(row, col int) bool {
	if col < palaceColLo || col > palaceColHi {
		return false
	}
	return (row >= 0 && row <= 2) || (row >= Rows-3 && row <= Rows-1)
}

// palaceDiagonals maps each palace square to the set of squares it may
// reach diagonally (corners<->center only), ported from the per-square
// dispatch table in Board.cpp::append_sa_goong.
var palaceDiagonals = buildPalaceDiagonals()

func buildPalaceDiagonals() map[int][]int {
	m := map[int][]int{}
	add := func(a, b int) {
		m[a] = append(m[a], b)
		m[b] = append(m[b], a)
	}
	for _, top := range []int{0, Rows - 3} {
		center := indexOf(top+1, 4)
		for _, c := range []int{3, 5} {
			corner := indexOf(top, c)
			opposite := indexOf(top+2, 8-c)
			add(corner, center)
			add(center, opposite)
		}
	}
	return m
}

// HistoryRecord captures the state needed to unmake a move and to drive
// the repetition/check rules in winner() (spec.md §3, §4.1).
type HistoryRecord struct {
	Move         Move
	PreBoardHash uint64
	PrePlayHash  uint64
	WasJang      bool
}

// Board is the full mutable game state. It is not safe for concurrent
// mutation; concurrent readers must operate on independent copies (the
// search engine copies a Board per descending goroutine).
type Board struct {
	Squares [NumSquares]Piece

	SideToMove Side
	History    []HistoryRecord

	BoardHash uint64
	PlayHash  uint64

	ScoreCho float64
	ScoreHan float64

	AllowBikjang           bool
	BoardBasedRepetition   bool
	JangMoveIsIllegal      bool
	ScoreBasedBiasRate     float64

	legalCache         []Move
	legalCacheValid    bool
	legalOppCache      []Move
	legalOppCacheValid bool
}

// NewBoard builds the initial position for the given per-side starting
// layouts (spec.md §3, §6 start codes {"smsm","smms","mssm","msms"} select
// Cho's layout then Han's).
func NewBoard(choLayout, hanLayout StartingLayout) *Board {
	b := &Board{}
	placeBackRank(b, Cho, Rows-1, choLayout)
	b.Squares[indexOf(Rows-2, 4)] = makePiece(Cho, General)
	placeCannonsAndSoldiers(b, Cho, Rows-3, Rows-4)

	placeBackRank(b, Han, 0, hanLayout)
	b.Squares[indexOf(1, 4)] = makePiece(Han, General)
	placeCannonsAndSoldiers(b, Han, 2, 3)

	b.SideToMove = Cho
	b.ScoreCho = initialMaterial(Cho)
	b.ScoreHan = initialMaterial(Han) + 1.5
	b.BoardHash = b.calculateBoardHash()
	b.PlayHash = b.BoardHash
	return b
}

func initialMaterial(_ Side) float64 {
	return Guard.Value()*2 + Chariot.Value()*2 + Elephant.Value()*2 +
		Horse.Value()*2 + Cannon.Value()*2 + Soldier.Value()*5
}

func placeBackRank(b *Board, side Side, row int, layout StartingLayout) {
	left, right := Elephant, Horse
	if layout == LayoutMaSangSangMa {
		left, right = Horse, Elephant
	}
	b.Squares[indexOf(row, 0)] = makePiece(side, Chariot)
	b.Squares[indexOf(row, 1)] = makePiece(side, left)
	b.Squares[indexOf(row, 2)] = makePiece(side, right)
	b.Squares[indexOf(row, 3)] = makePiece(side, Guard)
	b.Squares[indexOf(row, 5)] = makePiece(side, Guard)
	b.Squares[indexOf(row, 6)] = makePiece(side, right)
	b.Squares[indexOf(row, 7)] = makePiece(side, left)
	b.Squares[indexOf(row, 8)] = makePiece(side, Chariot)
}

func placeCannonsAndSoldiers(b *Board, side Side, cannonRow, soldierRow int) {
	b.Squares[indexOf(cannonRow, 1)] = makePiece(side, Cannon)
	b.Squares[indexOf(cannonRow, 7)] = makePiece(side, Cannon)
	for _, c := range []int{0, 2, 4, 6, 8} {
		b.Squares[indexOf(soldierRow, c)] = makePiece(side, Soldier)
	}
}

// Clone returns a deep, independent copy suitable for handing to a search
// goroutine.
func (b *Board) Clone() *Board {
	nb := *b
	nb.History = append([]HistoryRecord(nil), b.History...)
	nb.legalCache = nil
	nb.legalCacheValid = false
	nb.legalOppCache = nil
	nb.legalOppCacheValid = false
	return &nb
}

func (b *Board) Movenum() int { return len(b.History) }

func (b *Board) ToMove() Side { return b.SideToMove }

// EncodeText renders the board as one letter-per-piece ASCII grid
// (uppercase Cho, lowercase Han), row-major, '.' for empty squares.
func (b *Board) EncodeText() string {
	var sb strings.Builder
	letters := map[PieceType]rune{
		General: 'g', Guard: 'a', Chariot: 'r', Elephant: 'e',
		Horse: 'h', Cannon: 'c', Soldier: 'p',
	}
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			p := b.Squares[indexOf(r, c)]
			if p.Empty() {
				sb.WriteByte('.')
				continue
			}
			ch := letters[p.Type()]
			if p.Side() == Cho {
				ch = toUpper(ch)
			}
			sb.WriteRune(ch)
		}
		if r != Rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 'a' + 'A'
	}
	return r
}
