package board

import (
	"fmt"
	"io"
)

const (
	ansiCho   = "\x1b[31m" // red
	ansiHan   = "\x1b[32m" // green
	ansiReset = "\x1b[0m"
)

var pieceGlyph = map[PieceType]string{
	General: "G", Guard: "A", Chariot: "R", Elephant: "E",
	Horse: "H", Cannon: "C", Soldier: "P",
}

// Print writes an ANSI-colored board to w, highlighting the destination of
// the most recent move with parentheses (spec.md §6).
func (b *Board) Print(w io.Writer) {
	var lastTo = -1
	if n := len(b.History); n > 0 {
		lastTo = b.History[n-1].Move.To
	}
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			sq := indexOf(r, c)
			p := b.Squares[sq]
			cell := "."
			if !p.Empty() {
				color := ansiCho
				if p.Side() == Han {
					color = ansiHan
				}
				cell = color + pieceGlyph[p.Type()] + ansiReset
			}
			if sq == lastTo {
				fmt.Fprintf(w, "(%s)", cell)
			} else {
				fmt.Fprintf(w, " %s ", cell)
			}
		}
		fmt.Fprintln(w)
	}
}
