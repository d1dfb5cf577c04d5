package board

// Winner computes the terminal outcome under the exact seven-step ordering
// of original_source/src/libgmgm/Board.cpp::winner() (spec.md §4.1).
func (b *Board) Winner() Side {
	if b.JangMoveIsIllegal && len(b.GenerateLegalMoves()) == 0 {
		return b.SideToMove.Opposite()
	}

	if winner := b.checkRepetition(); winner != NoSide {
		return winner
	}

	lastQuiet := b.lastMoveWasQuiet()
	if (b.ScoreCho < 10 || b.ScoreHan < 10 || b.Movenum() >= quietEndPlyThreshold) && lastQuiet {
		return b.compareScore()
	}

	if b.Movenum() >= hardCapPly {
		return b.compareScore()
	}

	if b.twoConsecutivePasses() {
		return b.compareScore()
	}

	return b.winnerByKingPresence()
}

func (b *Board) compareScore() Side {
	if b.ScoreCho > b.ScoreHan {
		return Cho
	}
	return Han // ties favor Han's compensation
}

func (b *Board) winnerByKingPresence() Side {
	choAlive := b.KingExists(Cho)
	hanAlive := b.KingExists(Han)
	switch {
	case choAlive && !hanAlive:
		return Cho
	case hanAlive && !choAlive:
		return Han
	default:
		return NoSide
	}
}

func (b *Board) lastMoveWasQuiet() bool {
	n := len(b.History)
	if n == 0 {
		return true
	}
	last := b.History[n-1]
	return last.Move.Captured.Empty() && !b.IsInCheck(b.SideToMove) && !last.WasJang
}

func (b *Board) twoConsecutivePasses() bool {
	n := len(b.History)
	if n < 2 {
		return false
	}
	return b.History[n-1].Move.IsPass() && b.History[n-2].Move.IsPass()
}

// checkRepetition implements both repetition-rule variants (spec.md
// §4.1 point 2; BoardBasedRepetition toggles between them).
func (b *Board) checkRepetition() Side {
	n := len(b.History)
	if n < 8 {
		return NoSide
	}
	if b.BoardBasedRepetition {
		return b.checkBoardBasedRepetition()
	}
	return b.checkMoveBasedRepetition()
}

func (b *Board) checkBoardBasedRepetition() Side {
	n := len(b.History)
	target := b.BoardHash
	count := 0
	for i := n - 4; i >= 0; i -= 4 {
		if b.History[i].PreBoardHash == target {
			count++
		}
	}
	if count >= 3 && n >= 2 && !b.History[n-2].WasJang {
		return b.SideToMove
	}
	return NoSide
}

func (b *Board) checkMoveBasedRepetition() Side {
	n := len(b.History)
	matches := 0
	idx := n - 4
	checked := 0
	for idx >= 0 && checked < 2 {
		rec := b.History[idx]
		if rec.Move.IsPass() {
			idx--
			continue
		}
		checked++
		if !rec.Move.Captured.Empty() {
			idx -= 4
			continue
		}
		if rec.Move.Piece.Type() == General || rec.Move.Piece.Type() == Guard {
			idx -= 4
			continue
		}
		if idx+4 <= n-1 {
			recent := b.History[idx+4].Move
			if recent.Piece == rec.Move.Piece && recent.To == rec.Move.To {
				matches++
			}
		}
		idx -= 4
	}
	if matches >= 2 && n >= 2 && !b.History[n-2].WasJang {
		return b.SideToMove
	}
	return NoSide
}
