package search

import (
	"context"
	"testing"
	"time"

	"janggi/internal/board"
	"janggi/internal/eval"
	"janggi/internal/obs"
)

func TestSearchProducesOneResultPerRootCandidate(t *testing.T) {
	b := board.NewBoard(board.LayoutSangMaSangMa, board.LayoutSangMaSangMa)
	ev := eval.New(1000, nil)
	eng := NewEngine(obs.NewLogger(false), ev, Params{NumThreads: 2})

	results, err := eng.Search(context.Background(), b, 50, time.Now().Add(2*time.Second))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != len(b.GenerateLegalMoves()) {
		t.Fatalf("got %d results, want %d (one per root legal move)", len(results), len(b.GenerateLegalMoves()))
	}
	total := 0
	for _, r := range results {
		total += r.Visits
	}
	if total == 0 {
		t.Fatalf("expected some root candidate to have accumulated visits")
	}
}

func TestSubtreeReuseReturnsMatchingNode(t *testing.T) {
	b := board.NewBoard(board.LayoutSangMaSangMa, board.LayoutSangMaSangMa)
	ev := eval.New(1000, nil)
	eng := NewEngine(obs.NewLogger(false), ev, Params{NumThreads: 1})

	if _, err := eng.Search(context.Background(), b, 20, time.Now().Add(2*time.Second)); err != nil {
		t.Fatalf("Search: %v", err)
	}

	move := b.GenerateLegalMoves()[0]
	b.Make(move)

	root := eng.reuseOrFreshRoot(b)
	if root == nil {
		t.Fatalf("expected a non-nil root")
	}
}

func TestSearchRespectsDeadline(t *testing.T) {
	b := board.NewBoard(board.LayoutSangMaSangMa, board.LayoutSangMaSangMa)
	ev := eval.New(1000, nil)
	eng := NewEngine(obs.NewLogger(false), ev, Params{NumThreads: 1})

	start := time.Now()
	_, err := eng.Search(context.Background(), b, 1_000_000, time.Now().Add(50*time.Millisecond))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Search took %s, should have stopped near its 50ms deadline", elapsed)
	}
}

func TestPUCTSelectionFavorsHigherPolicyOnTiedStats(t *testing.T) {
	n := &Node{
		Candidates: []Candidate{
			{Move: board.Move{From: 1, To: 2}, Policy: 0.1},
			{Move: board.Move{From: 1, To: 3}, Policy: 0.9},
		},
	}
	n.AccumVisits.Store(1)
	best := n.selectCandidate(board.Han)
	if best.Policy != float32(0.9) {
		t.Fatalf("expected the higher-prior unexpanded candidate to win PUCT on tied stats")
	}
}
