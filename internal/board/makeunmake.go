package board

// Make applies a legal move, updating both hashes, history, caches, and
// material scores (spec.md §4.1 "Make / Unmake").
func (b *Board) Make(m Move) {
	b.invalidateLegalCaches()

	preBoardHash := b.BoardHash
	prePlayHash := b.PlayHash
	wasJang := b.IsInCheck(b.SideToMove)

	b.applyHashXOR(m)
	b.applyPlayHashSalt(m, len(b.History))
	b.PlayHash = rotateLeft1(b.PlayHash)

	b.Squares[m.To] = b.Squares[m.From]
	if !m.IsPass() {
		b.Squares[m.From] = empty
	}

	b.History = append(b.History, HistoryRecord{
		Move:         m,
		PreBoardHash: preBoardHash,
		PrePlayHash:  prePlayHash,
		WasJang:      wasJang,
	})

	if !m.Captured.Empty() {
		b.addCapturedScore(m.Captured)
	}

	b.SideToMove = b.SideToMove.Opposite()
}

// Unmake exactly reverses the most recent Make (spec.md §4.1 contract).
func (b *Board) Unmake() {
	b.invalidateLegalCaches()

	n := len(b.History) - 1
	rec := b.History[n]
	m := rec.Move

	b.SideToMove = b.SideToMove.Opposite()

	if !m.Captured.Empty() {
		b.subtractCapturedScore(m.Captured)
	}

	b.Squares[m.From] = b.Squares[m.To]
	if !m.IsPass() {
		b.Squares[m.To] = m.Captured
	}

	b.History = b.History[:n]

	b.PlayHash = rotateRight1(b.PlayHash)
	b.applyPlayHashSalt(m, n)
	b.BoardHash = rec.PreBoardHash
	b.PlayHash = rec.PrePlayHash
}

func pieceHashCode(p Piece) int {
	// side*16 + type matches the gmgm PieceType encoding's low bits used
	// as the salt's "piece" component; any injective mapping is fine
	// since the salt table only needs to decorrelate, not decode.
	code := int(p.Type())
	if p.Side() == Han {
		code += 16
	}
	return code
}

func (b *Board) applyHashXOR(m Move) {
	mover := b.Squares[m.From]
	if !m.Captured.Empty() {
		b.BoardHash ^= pieceHashKey(m.Captured, m.To)
	}
	if !m.IsPass() {
		b.BoardHash ^= pieceHashKey(mover, m.From)
		b.BoardHash ^= pieceHashKey(mover, m.To)
	}
}

func (b *Board) applyPlayHashSalt(m Move, ply int) {
	mover := b.Squares[m.From]
	if !m.Captured.Empty() {
		b.PlayHash ^= playHashSaltAt(m.To, pieceHashCode(m.Captured), ply)
	}
	if !m.IsPass() {
		b.PlayHash ^= playHashSaltAt(m.From, pieceHashCode(mover), ply)
		b.PlayHash ^= playHashSaltAt(m.To, pieceHashCode(mover), ply)
	} else {
		b.PlayHash ^= playHashSaltAt(m.From, pieceHashCode(mover), ply)
	}
}

func (b *Board) addCapturedScore(p Piece) {
	if p.Side() == Cho {
		b.ScoreCho -= p.Type().Value()
	} else {
		b.ScoreHan -= p.Type().Value()
	}
}

func (b *Board) subtractCapturedScore(p Piece) {
	if p.Side() == Cho {
		b.ScoreCho += p.Type().Value()
	} else {
		b.ScoreHan += p.Type().Value()
	}
}

// makePieceOnly / unmakePieceOnly are the lightweight variants used by the
// check filter and tactical search (spec.md §4.1 "piece-only move"): only
// squares, side-to-move, and boardhash are touched.
func (b *Board) makePieceOnly(m Move) {
	mover := b.Squares[m.From]
	if !m.Captured.Empty() {
		b.BoardHash ^= pieceHashKey(m.Captured, m.To)
	}
	if !m.IsPass() {
		b.BoardHash ^= pieceHashKey(mover, m.From)
		b.BoardHash ^= pieceHashKey(mover, m.To)
		b.Squares[m.To] = mover
		b.Squares[m.From] = empty
	}
	b.SideToMove = b.SideToMove.Opposite()
}

func (b *Board) unmakePieceOnly(m Move) {
	b.SideToMove = b.SideToMove.Opposite()
	if !m.IsPass() {
		mover := b.Squares[m.To]
		b.Squares[m.From] = mover
		b.Squares[m.To] = m.Captured
		b.BoardHash ^= pieceHashKey(mover, m.From)
		b.BoardHash ^= pieceHashKey(mover, m.To)
	}
	if !m.Captured.Empty() {
		b.BoardHash ^= pieceHashKey(m.Captured, m.To)
	}
}
