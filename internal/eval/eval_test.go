package eval

import (
	"testing"

	"janggi/internal/board"
)

func TestEvaluateFallsBackToHeuristicWithoutScheduler(t *testing.T) {
	e := New(100, nil)
	b := board.NewBoard(board.LayoutSangMaSangMa, board.LayoutSangMaSangMa)
	r, err := e.Evaluate(b)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(r.Policy) != len(b.GenerateLegalMoves()) {
		t.Fatalf("got %d policy entries, want %d legal moves", len(r.Policy), len(b.GenerateLegalMoves()))
	}
	if r.Value < -1 || r.Value > 1 {
		t.Fatalf("value %f out of [-1,1]", r.Value)
	}
}

func TestEvaluateCachesSecondLookup(t *testing.T) {
	e := New(100, nil)
	b := board.NewBoard(board.LayoutSangMaSangMa, board.LayoutSangMaSangMa)
	first, err := e.Evaluate(b)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	second, err := e.Evaluate(b)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if first != second {
		t.Fatalf("second Evaluate should return the exact cached *Result pointer")
	}
}

func TestBucketRotatesPrimaryIntoSecondaryAtCacheSize(t *testing.T) {
	e := New(2, nil)
	buck := e.buckets[0]
	e.insert(buck, 1, &Result{Value: 0.1})
	e.insert(buck, 2, &Result{Value: 0.2})
	if len(buck.primary) != 0 || len(buck.secondary) == 0 {
		t.Fatalf("expected rotation once primary reached CacheSize: primary=%d secondary=%d",
			len(buck.primary), len(buck.secondary))
	}
	if r, ok := e.lookup(buck, 1); !ok || r.Value != 0.1 {
		t.Fatalf("expected hash 1 promoted back from secondary on lookup")
	}
	if len(buck.primary) != 1 {
		t.Fatalf("lookup should promote the hit into the fresh primary generation")
	}
}

func TestValidatesRejectsStaleMoveList(t *testing.T) {
	e := New(100, nil)
	b := board.NewBoard(board.LayoutSangMaSangMa, board.LayoutSangMaSangMa)
	stale := &Result{Policy: []PolicyEntry{{Move: b.GenerateLegalMoves()[0], Policy: 1}}}
	if e.validates(stale, b) {
		t.Fatalf("a single-entry result should not validate against the full legal move list")
	}
}
