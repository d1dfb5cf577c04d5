package board

import "time"

// CanWin runs the iteratively-deepened forced-win search described in
// spec.md §4.1. It is diagnostic-only (see SPEC_FULL.md §9 Open Question 3)
// and is never consulted by the MCTS search engine.
func (b *Board) CanWin(deadline time.Time) (Move, bool) {
	var best Move
	found := false
	for depth := 1; ; depth++ {
		if time.Now().After(deadline) {
			break
		}
		if m, ok := b.canWinDepth(depth, deadline); ok {
			best, found = m, true
			break
		}
		if depth > 40 {
			break
		}
	}
	return best, found
}

func (b *Board) canWinDepth(depth int, deadline time.Time) (Move, bool) {
	side := b.SideToMove
	for _, m := range b.GeneratePseudoMoves(side) {
		if m.IsPass() {
			continue
		}
		if !m.Captured.Empty() && m.Captured.Type() == General {
			return m, true
		}
		if depth <= 1 {
			continue
		}
		b.makePieceOnly(m)
		step := 1
		if !b.IsInCheck(side.Opposite()) {
			step = 2
		}
		lost := b.mustLose(depth-step, deadline)
		b.unmakePieceOnly(m)
		if lost {
			return m, true
		}
	}
	return Move{}, false
}

// mustLose reports whether every legal reply by the side to move leads
// back into a canWinDepth win for the opponent.
func (b *Board) mustLose(depth int, deadline time.Time) bool {
	if depth <= 0 {
		return false
	}
	if time.Now().After(deadline) {
		return false
	}
	replies := b.GeneratePseudoMoves(b.SideToMove)
	if len(replies) == 0 {
		return true
	}
	for _, m := range replies {
		b.makePieceOnly(m)
		_, win := b.canWinDepth(depth, deadline)
		b.unmakePieceOnly(m)
		if !win {
			return false
		}
	}
	return true
}
