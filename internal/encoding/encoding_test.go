package encoding

import (
	"testing"

	"janggi/internal/board"
)

func TestEncodeInputSideRelativePlanes(t *testing.T) {
	b := board.NewBoard(board.LayoutSangMaSangMa, board.LayoutSangMaSangMa)
	planes := EncodeInput(b)
	if len(planes) != InputPlanes*Rows*Cols {
		t.Fatalf("got %d values, want %d", len(planes), InputPlanes*Rows*Cols)
	}

	var ownCount, oppCount int
	for p := 0; p < 16; p++ {
		for sq := 0; sq < Rows*Cols; sq++ {
			if planes[p*Rows*Cols+sq] != 0 {
				ownCount++
			}
		}
	}
	for p := 16; p < 32; p++ {
		for sq := 0; sq < Rows*Cols; sq++ {
			if planes[p*Rows*Cols+sq] != 0 {
				oppCount++
			}
		}
	}
	if ownCount != 16 || oppCount != 16 {
		t.Fatalf("got own=%d opp=%d piece planes set, want 16/16 (symmetric starting position)", ownCount, oppCount)
	}
}

func TestEncodeInputSideFlagPlane(t *testing.T) {
	b := board.NewBoard(board.LayoutSangMaSangMa, board.LayoutSangMaSangMa)
	planes := EncodeInput(b)
	sq := Rows*Cols - 1
	if planes[64*Rows*Cols+sq] != 1 {
		t.Fatalf("expected plane 64 set for Cho to move")
	}
	if planes[65*Rows*Cols+sq] != 0 {
		t.Fatalf("expected plane 65 unset for Cho to move")
	}
}

func TestEncodeOutputPolicyNormalizesByVisits(t *testing.T) {
	b := board.NewBoard(board.LayoutSangMaSangMa, board.LayoutSangMaSangMa)
	moves := b.GenerateLegalMoves()
	visits := []SearchVisit{
		{Move: moves[0], Visits: 3},
		{Move: moves[1], Visits: 1},
	}
	out := EncodeOutput(b, visits, board.Cho, 10)

	pt0 := int(moves[0].Piece.Type())
	pt1 := int(moves[1].Piece.Type())
	if got, want := out.Policy[pt0*Rows*Cols+moves[0].To], float32(0.75); got != want {
		t.Fatalf("got %f want %f", got, want)
	}
	if got, want := out.Policy[pt1*Rows*Cols+moves[1].To], float32(0.25); got != want {
		t.Fatalf("got %f want %f", got, want)
	}
}

func TestEncodeOutputValueSignFollowsWinner(t *testing.T) {
	b := board.NewBoard(board.LayoutSangMaSangMa, board.LayoutSangMaSangMa) // Cho to move
	out := EncodeOutput(b, nil, board.Cho, 0)
	if out.Value <= 0 {
		t.Fatalf("got %f, want positive value when side to move eventually wins", out.Value)
	}
	out2 := EncodeOutput(b, nil, board.Han, 0)
	if out2.Value >= 0 {
		t.Fatalf("got %f, want negative value when side to move eventually loses", out2.Value)
	}
}
