package board

// palaceLine is an ordered corner-center-corner triple describing one of
// the two diagonals inside a palace.
type palaceLine [3]int

var palaceLines = buildPalaceLines()

func buildPalaceLines() []palaceLine {
	var lines []palaceLine
	for _, top := range []int{0, Rows - 3} {
		center := indexOf(top+1, 4)
		lines = append(lines,
			palaceLine{indexOf(top, 3), center, indexOf(top+2, 5)},
			palaceLine{indexOf(top, 5), center, indexOf(top+2, 3)},
		)
	}
	return lines
}

// lineDiagonalSteps returns, for a given square that sits on a palace
// line, the squares reachable by a single diagonal step.
func lineDiagonalSteps(sq int) []int {
	var out []int
	for _, ln := range palaceLines {
		if ln[1] == sq {
			out = append(out, ln[0], ln[2])
		} else if ln[0] == sq || ln[2] == sq {
			out = append(out, ln[1])
		}
	}
	return out
}

// linesThrough returns the palace lines a square participates in, used by
// the sliding Chariot/Cannon generators.
func linesThrough(sq int) []palaceLine {
	var out []palaceLine
	for _, ln := range palaceLines {
		if ln[0] == sq || ln[1] == sq || ln[2] == sq {
			out = append(out, ln)
		}
	}
	return out
}

var orthogonalDirs = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// GeneratePseudoMoves enumerates every move available to side without
// checking self-exposure to check (spec.md §4.1). Moves are emitted in
// stable row-major generation order, piece-rule order within a square, and
// a single pass move is appended last.
func (b *Board) GeneratePseudoMoves(side Side) []Move {
	var moves []Move
	var generalSq = -1
	for sq := 0; sq < NumSquares; sq++ {
		p := b.Squares[sq]
		if p.Empty() || p.Side() != side {
			continue
		}
		switch p.Type() {
		case General:
			generalSq = sq
			b.genPalaceSteps(side, sq, p, &moves)
		case Guard:
			b.genPalaceSteps(side, sq, p, &moves)
		case Chariot:
			b.genChariot(side, sq, p, &moves)
		case Cannon:
			b.genCannon(side, sq, p, &moves)
		case Elephant:
			b.genElephant(side, sq, p, &moves)
		case Horse:
			b.genHorse(side, sq, p, &moves)
		case Soldier:
			b.genSoldier(side, sq, p, &moves)
		}
	}
	if b.AllowBikjang {
		b.genBikjang(side, &moves)
	}
	if generalSq >= 0 {
		gp := b.Squares[generalSq]
		moves = append(moves, Move{Piece: gp, From: generalSq, To: generalSq, Captured: empty})
	}
	return moves
}

func (b *Board) tryStep(side Side, from, to int, p Piece, moves *[]Move) {
	if !onBoard(rowOf(to), colOf(to)) {
		return
	}
	target := b.Squares[to]
	if !target.Empty() && target.Side() == side {
		return
	}
	*moves = append(*moves, Move{Piece: p, From: from, To: to, Captured: target})
}

func (b *Board) genPalaceSteps(side Side, sq int, p Piece, moves *[]Move) {
	row, col := rowOf(sq), colOf(sq)
	for _, d := range orthogonalDirs {
		r, c := row+d[0], col+d[1]
		if onBoard(r, c) && inPalace(r, c) {
			b.tryStep(side, sq, indexOf(r, c), p, moves)
		}
	}
	for _, to := range lineDiagonalSteps(sq) {
		b.tryStep(side, sq, to, p, moves)
	}
}

func (b *Board) genChariot(side Side, sq int, p Piece, moves *[]Move) {
	row, col := rowOf(sq), colOf(sq)
	for _, d := range orthogonalDirs {
		for r, c := row+d[0], col+d[1]; onBoard(r, c); r, c = r+d[0], c+d[1] {
			to := indexOf(r, c)
			target := b.Squares[to]
			if target.Empty() {
				*moves = append(*moves, Move{Piece: p, From: sq, To: to, Captured: empty})
				continue
			}
			if target.Side() != side {
				*moves = append(*moves, Move{Piece: p, From: sq, To: to, Captured: target})
			}
			break
		}
	}
	for _, ln := range linesThrough(sq) {
		b.slideLine(side, sq, p, ln, moves)
	}
}

// slideLine slides a Chariot along a palace diagonal line starting at sq,
// stopping at the first occupied square (captured if enemy).
func (b *Board) slideLine(side Side, sq int, p Piece, ln palaceLine, moves *[]Move) {
	idx := -1
	for i, s := range ln {
		if s == sq {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	for _, step := range []int{1, -1} {
		for i := idx + step; i >= 0 && i < len(ln); i += step {
			to := ln[i]
			target := b.Squares[to]
			if target.Empty() {
				*moves = append(*moves, Move{Piece: p, From: sq, To: to, Captured: empty})
				continue
			}
			if target.Side() != side {
				*moves = append(*moves, Move{Piece: p, From: sq, To: to, Captured: target})
			}
			break
		}
	}
}

func isCannon(p Piece) bool { return !p.Empty() && p.Type() == Cannon }

func (b *Board) genCannon(side Side, sq int, p Piece, moves *[]Move) {
	row, col := rowOf(sq), colOf(sq)
	for _, d := range orthogonalDirs {
		var screen Piece
		for r, c := row+d[0], col+d[1]; onBoard(r, c); r, c = r+d[0], c+d[1] {
			to := indexOf(r, c)
			target := b.Squares[to]
			if screen.Empty() {
				if target.Empty() {
					continue
				}
				if isCannon(target) {
					break // cannot jump a cannon screen
				}
				screen = target
				continue
			}
			if target.Empty() {
				*moves = append(*moves, Move{Piece: p, From: sq, To: to, Captured: empty})
				continue
			}
			if !isCannon(target) && target.Side() != side {
				*moves = append(*moves, Move{Piece: p, From: sq, To: to, Captured: target})
			}
			break
		}
	}
	for _, ln := range linesThrough(sq) {
		b.jumpLine(side, sq, p, ln, moves)
	}
}

// jumpLine is the Cannon's palace-diagonal jump: from a corner, over the
// center screen, landing on the opposite corner only.
func (b *Board) jumpLine(side Side, sq int, p Piece, ln palaceLine, moves *[]Move) {
	var from, screenSq, to int
	switch sq {
	case ln[0]:
		from, screenSq, to = ln[0], ln[1], ln[2]
	case ln[2]:
		from, screenSq, to = ln[2], ln[1], ln[0]
	default:
		return
	}
	screen := b.Squares[screenSq]
	if screen.Empty() || isCannon(screen) {
		return
	}
	target := b.Squares[to]
	if !target.Empty() && (isCannon(target) || target.Side() == side) {
		return
	}
	_ = from
	*moves = append(*moves, Move{Piece: p, From: sq, To: to, Captured: target})
}

// genElephant generates moves for the (3,2)-leaper Elephant: one orthogonal
// step then a further diagonal two-step, both intermediate squares must be
// empty.
func (b *Board) genElephant(side Side, sq int, p Piece, moves *[]Move) {
	row, col := rowOf(sq), colOf(sq)
	dirs := [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	for _, d := range dirs {
		midR, midC := row+d[0], col+d[1]
		if !onBoard(midR, midC) || !b.Squares[indexOf(midR, midC)].Empty() {
			continue
		}
		for _, diag := range [2][2]int{{-1, -1}, {-1, 1}} {
			// diagonal continuation must align with the orthogonal leg
			if d[0] != 0 && diag[0] != d[0] {
				continue
			}
			if d[1] != 0 && diag[1] != d[1] {
				continue
			}
			farR, farC := midR+diag[0], midC+diag[1]
			if !onBoard(farR, farC) || !b.Squares[indexOf(farR, farC)].Empty() {
				continue
			}
			destR, destC := farR+diag[0], farC+diag[1]
			if !onBoard(destR, destC) {
				continue
			}
			b.tryStep(side, sq, indexOf(destR, destC), p, moves)
		}
	}
}

func (b *Board) genHorse(side Side, sq int, p Piece, moves *[]Move) {
	row, col := rowOf(sq), colOf(sq)
	dirs := [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	for _, d := range dirs {
		midR, midC := row+d[0], col+d[1]
		if !onBoard(midR, midC) || !b.Squares[indexOf(midR, midC)].Empty() {
			continue
		}
		perp := [2][2]int{{-1, -1}, {1, 1}}
		if d[0] != 0 {
			perp = [2][2]int{{0, -1}, {0, 1}}
		} else {
			perp = [2][2]int{{-1, 0}, {1, 0}}
		}
		for _, pd := range perp {
			destR, destC := midR+d[0]+pd[0], midC+d[1]+pd[1]
			if !onBoard(destR, destC) {
				continue
			}
			b.tryStep(side, sq, indexOf(destR, destC), p, moves)
		}
	}
}

func (b *Board) genSoldier(side Side, sq int, p Piece, moves *[]Move) {
	row, col := rowOf(sq), colOf(sq)
	forward := 1
	if side == Cho {
		forward = -1
	}
	for _, d := range [3][2]int{{forward, 0}, {0, -1}, {0, 1}} {
		r, c := row+d[0], col+d[1]
		if onBoard(r, c) {
			b.tryStep(side, sq, indexOf(r, c), p, moves)
		}
	}
	if inPalace(row, col) {
		for _, to := range lineDiagonalSteps(sq) {
			if (rowOf(to)-row)*forward >= 0 {
				b.tryStep(side, sq, to, p, moves)
			}
		}
	}
}

// genBikjang emits the General-face-off capture move if the file to the
// enemy General is unobstructed and this side is not materially ahead
// (original_source/src/libgmgm/Board.cpp::append_bikjang).
func (b *Board) genBikjang(side Side, moves *[]Move) {
	myScore := b.ScoreCho
	if side == Han {
		myScore = b.ScoreHan
	}
	if myScore >= bikjangScoreCeiling {
		return
	}
	var fromSq = -1
	for sq := 0; sq < NumSquares; sq++ {
		p := b.Squares[sq]
		if !p.Empty() && p.Side() == side && p.Type() == General {
			fromSq = sq
			break
		}
	}
	if fromSq < 0 {
		return
	}
	col := colOf(fromSq)
	dir := 1
	if side == Han {
		dir = -1
	}
	for r := rowOf(fromSq) + dir; onBoard(r, col); r += dir {
		to := indexOf(r, col)
		target := b.Squares[to]
		if target.Empty() {
			continue
		}
		if target.Side() != side && target.Type() == General {
			*moves = append(*moves, Move{Piece: b.Squares[fromSq], From: fromSq, To: to, Captured: target})
		}
		break
	}
}

// IsAttacked reports whether sq is attacked by any pseudo-legal move of
// bySide — used for check detection and legality filtering.
func (b *Board) IsAttacked(sq int, bySide Side) bool {
	for _, m := range b.GeneratePseudoMoves(bySide) {
		if m.To == sq && !m.IsPass() {
			return true
		}
	}
	return false
}

// IsInCheck reports whether side's General can be captured immediately by
// the opponent (the "jang" condition).
func (b *Board) IsInCheck(side Side) bool {
	genSq := b.generalSquare(side)
	if genSq < 0 {
		return false
	}
	return b.IsAttacked(genSq, side.Opposite())
}

func (b *Board) generalSquare(side Side) int {
	for sq := 0; sq < NumSquares; sq++ {
		p := b.Squares[sq]
		if !p.Empty() && p.Side() == side && p.Type() == General {
			return sq
		}
	}
	return -1
}

// KingExists reports whether side still has a General on the board.
func (b *Board) KingExists(side Side) bool { return b.generalSquare(side) >= 0 }

// CanWinImmediately reports whether any pseudo-legal move for side
// captures the opponent's General outright.
func (b *Board) CanWinImmediately(side Side) bool {
	for _, m := range b.GeneratePseudoMoves(side) {
		if m.IsPass() {
			continue
		}
		if !m.Captured.Empty() && m.Captured.Type() == General {
			return true
		}
	}
	return false
}

// GenerateLegalMoves returns the filtered legal move set. When
// JangMoveIsIllegal is true, a move is dropped if it leaves the mover's own
// General capturable by the opponent's reply (spec.md §4.1 "Checked
// legality filter"). isAI mirrors the teacher's `GenerateLegalMoves(isAI
// bool)` signature: AI callers get the filtered set unconditionally; human
// callers (isAI=false) still honor JangMoveIsIllegal but skip no
// additional heuristics, since this repo (unlike the 13x13 teacher
// variant) has no AI-only pruning rules.
func (b *Board) GenerateLegalMoves() []Move {
	if b.legalCacheValid {
		return b.legalCache
	}
	pseudo := b.GeneratePseudoMoves(b.SideToMove)
	if !b.JangMoveIsIllegal {
		b.legalCache = pseudo
		b.legalCacheValid = true
		return pseudo
	}
	side := b.SideToMove
	legal := make([]Move, 0, len(pseudo))
	for _, m := range pseudo {
		if m.IsPass() {
			legal = append(legal, m)
			continue
		}
		b.makePieceOnly(m)
		safe := !b.CanWinImmediately(side.Opposite())
		b.unmakePieceOnly(m)
		if safe {
			legal = append(legal, m)
		}
	}
	b.legalCache = legal
	b.legalCacheValid = true
	return legal
}

// GetLegalMovesStrict toggles JangMoveIsIllegal on for the duration of the
// call, per spec.md §6's utility of the same name.
func (b *Board) GetLegalMovesStrict() []Move {
	prev := b.JangMoveIsIllegal
	b.JangMoveIsIllegal = true
	b.invalidateLegalCaches()
	moves := b.GenerateLegalMoves()
	b.JangMoveIsIllegal = prev
	b.invalidateLegalCaches()
	return moves
}

func (b *Board) invalidateLegalCaches() {
	b.legalCacheValid = false
	b.legalOppCacheValid = false
}
