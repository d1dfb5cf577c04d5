package board

import "sync"

// pieceTypeSlots covers PieceType 0..6 (General..Soldier).
const pieceTypeSlots = int(pieceTypeCount)

// playHashSaltSize mirrors original_source's BOARD_HASH_SIZE: a fixed,
// oversized table of salts indexed by ((square,piece,ply) mod size) so
// that the ply-dependent component of playHash never repeats exactly for
// reasonable game lengths.
const playHashSaltSize = 1 << 16

var (
	zobristOnce sync.Once

	zobristPieces [2][pieceTypeSlots][NumSquares]uint64
	playHashSalt  [playHashSaltSize]uint64
)

func initZobrist() {
	zobristOnce.Do(func() {
		seed := uint64(0x9E3779B97F4A7C15)
		next := func() uint64 {
			seed += 0x9E3779B97F4A7C15
			z := seed
			z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
			z = (z ^ (z >> 27)) * 0x94D049BB133111EB
			return z ^ (z >> 31)
		}
		for side := 0; side < 2; side++ {
			for pt := 0; pt < pieceTypeSlots; pt++ {
				for sq := 0; sq < NumSquares; sq++ {
					zobristPieces[side][pt][sq] = next()
				}
			}
		}
		for i := range playHashSalt {
			playHashSalt[i] = next()
		}
	})
}

func pieceHashKey(p Piece, sq int) uint64 {
	if p.Empty() {
		return 0
	}
	sideIdx := 0
	if p.Side() == Han {
		sideIdx = 1
	}
	return zobristPieces[sideIdx][p.Type()][sq]
}

// calculateBoardHash computes boardhash from scratch: the XOR of Zobrist
// constants over every occupied (square, piece) pair, position-only
// (spec.md §3 invariant, §8 property 3). The incremental path
// (applyHashXOR) never toggles a side term either, so this must match it.
func (b *Board) calculateBoardHash() uint64 {
	initZobrist()
	var h uint64
	for sq := 0; sq < NumSquares; sq++ {
		h ^= pieceHashKey(b.Squares[sq], sq)
	}
	return h
}

// playHashSaltAt ports Board.cpp::move()'s salt index formula
// `(y*W*32 + x*32 + piece + 37*(1+ply)) % BOARD_HASH_SIZE`.
func playHashSaltAt(sq int, pieceCode int, ply int) uint64 {
	row, col := rowOf(sq), colOf(sq)
	idx := (row*Cols*32 + col*32 + pieceCode + 37*(1+ply)) % playHashSaltSize
	return playHashSalt[idx]
}

func rotateLeft1(x uint64) uint64  { return (x << 1) | (x >> 63) }
func rotateRight1(x uint64) uint64 { return (x >> 1) | (x << 63) }
