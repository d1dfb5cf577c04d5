// Package encoding converts Board positions into the fixed tensor layout
// the evaluator consumes, and search statistics into training-target
// tensors (spec.md §4.6).
package encoding

import (
	"math"

	"janggi/internal/board"
)

const (
	Rows, Cols   = 10, 9
	planeSquares = Rows * Cols

	InputPlanes  = 66
	PolicyPlanes = 16
)

// EncodeInput builds the 66-plane, 9x10 input tensor (spec.md §4.6):
// planes 0-15 own pieces, 16-31 opponent pieces (side-relative, so the
// side to move always occupies the "low" plane range), 32-47 own
// legal-move destinations by piece type, 48-63 opponent legal-move
// destinations, 64/65 side-to-move flags.
func EncodeInput(b *board.Board) []float32 {
	planes := make([]float32, InputPlanes*planeSquares)
	toMove := b.ToMove()

	for sq := 0; sq < planeSquares; sq++ {
		p := b.Squares[sq]
		if p.Empty() {
			continue
		}
		base := 0
		if p.Side() != toMove {
			base = 16
		}
		planes[(base+p.Code16())*planeSquares+sq] = 1
	}

	setLegalDestinationPlanes(planes, 32, b.GeneratePseudoMoves(toMove))
	setLegalDestinationPlanes(planes, 48, b.GeneratePseudoMoves(toMove.Opposite()))

	sideFlagPlane := 64
	if toMove == board.Han {
		sideFlagPlane = 65
	}
	for sq := 0; sq < planeSquares; sq++ {
		planes[sideFlagPlane*planeSquares+sq] = 1
	}
	return planes
}

func setLegalDestinationPlanes(planes []float32, baseplane int, moves []board.Move) {
	for _, m := range moves {
		if m.IsPass() {
			continue
		}
		pt := int(m.Piece.Type())
		if pt < 0 || pt >= PolicyPlanes {
			continue
		}
		planes[(baseplane+pt)*planeSquares+m.To] = 1
	}
}

// SearchVisit is the minimal shape encoding needs from a search result: a
// root candidate's move and its visit count.
type SearchVisit struct {
	Move   board.Move
	Visits int
}

// OutputFeatures is the training-target pair produced for one position
// (spec.md §4.6 "Output policy target").
type OutputFeatures struct {
	Policy []float32 // 16 planes * 90 squares
	Value  float32
}

// EncodeOutput builds the policy target from visit counts and the value
// target from the eventual game outcome.
func EncodeOutput(b *board.Board, visits []SearchVisit, finalWinner board.Side, finalMovenum int) OutputFeatures {
	policy := make([]float32, PolicyPlanes*planeSquares)
	total := 0
	for _, v := range visits {
		total += v.Visits
	}
	if total > 0 {
		for _, v := range visits {
			pt := int(v.Move.Piece.Type())
			if pt < 0 || pt >= PolicyPlanes {
				continue
			}
			policy[pt*planeSquares+v.Move.To] += float32(v.Visits) / float32(total)
		}
	}

	value := float32(math.Exp(-float64(finalMovenum) / 400.0))
	if finalWinner != b.ToMove() {
		value = -value
	}
	return OutputFeatures{Policy: policy, Value: value}
}

// EncodeOutputSingleMove synthesizes a one-hot training target for a
// single known move, mirroring the single-Move overload of
// extract_output_features in original_source's PositionEval.
func EncodeOutputSingleMove(b *board.Board, m board.Move, finalWinner board.Side, finalMovenum int) OutputFeatures {
	return EncodeOutput(b, []SearchVisit{{Move: m, Visits: 100}}, finalWinner, finalMovenum)
}
