package search

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"janggi/internal/board"
	"janggi/internal/eval"
)

// Result is one root candidate's outcome (spec.md §4.5).
type Result struct {
	Move    board.Move
	Visits  int
	Winrate float64
	Policy  float32
}

// Params collects the tunable options named in spec.md §6, passed by value
// into each search call per §5/§9's "avoid process-wide mutables" guidance.
type Params struct {
	NumThreads         int
	PrintPeriodMs       int
	ScoreBasedBiasRate float64
}

// Engine drives parallel tree descents, owns a dedicated async worker
// pool, and caches the last search's root for subtree reuse (spec.md
// §4.5).
type Engine struct {
	log   *slog.Logger
	Eval  *eval.Evaluator
	Params Params

	mu          sync.Mutex
	cachedRoot  *Node
	cachedBoard *board.Board

	asyncGroup errgroup.Group
}

func NewEngine(log *slog.Logger, evaluator *eval.Evaluator, params Params) *Engine {
	return &Engine{log: log, Eval: evaluator, Params: params}
}

// Search blocks until either visits descents have completed or deadline
// elapses, returning one Result per root candidate (spec.md §4.5).
func (s *Engine) Search(ctx context.Context, b *board.Board, visits int, deadline time.Time) ([]Result, error) {
	root := s.reuseOrFreshRoot(b)

	var runcount atomic.Int64
	runcount.Store(int64(root.AccumVisits.Load()))

	var descendErr atomic.Pointer[error]
	descend := func() {
		local := b.Clone()
		for runcount.Load() < int64(visits) && time.Now().Before(deadline) {
			if ctx.Err() != nil {
				return
			}
			if _, err := root.Expand(s.Eval, local, s.Params.ScoreBasedBiasRate); err != nil {
				descendErr.Store(&err)
				return
			}
			runcount.Add(1)
		}
	}

	numThreads := s.Params.NumThreads
	if numThreads < 1 {
		numThreads = 1
	}

	descend() // main thread runs the first descent synchronously

	var wg sync.WaitGroup
	stop := make(chan struct{})
	if s.Params.PrintPeriodMs > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.reportLoop(root, s.Params.PrintPeriodMs, stop)
		}()
	}

	// Ramp up worker goroutines gradually (at most one new thread per
	// ms) so they don't all spin on an unexpanded root simultaneously
	// (spec.md §4.5 "Descent loop").
	for i := 1; i < numThreads; i++ {
		if runcount.Load() >= int64(visits) || time.Now().After(deadline) {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			descend()
		}()
		select {
		case <-time.After(time.Millisecond):
		case <-ctx.Done():
		}
	}
	wg.Wait()
	close(stop)

	if errp := descendErr.Load(); errp != nil {
		return nil, *errp
	}

	results := s.analyze(root)

	s.mu.Lock()
	s.cachedRoot = root
	s.cachedBoard = b.Clone()
	s.mu.Unlock()

	return results, nil
}

// SearchAsync enqueues Search onto the engine's dedicated async pool and
// returns a channel yielding its result (spec.md §4.5 "search_async").
func (s *Engine) SearchAsync(ctx context.Context, b *board.Board, visits int, deadline time.Time) <-chan asyncResult {
	out := make(chan asyncResult, 1)
	s.asyncGroup.Go(func() error {
		res, err := s.Search(ctx, b, visits, deadline)
		out <- asyncResult{results: res, err: err}
		return nil
	})
	return out
}

type asyncResult struct {
	results []Result
	err     error
}

func (s *Engine) analyze(root *Node) []Result {
	results := make([]Result, 0, len(root.Candidates))
	for _, c := range root.Candidates {
		visits := 0
		winrate := 0.5
		if child := c.Child(); child != nil {
			visits = int(child.AccumVisits.Load())
			if visits > 0 {
				winrate = child.AccumValue() / float64(visits)
			}
		}
		results = append(results, Result{Move: c.Move, Visits: visits, Winrate: winrate, Policy: c.Policy})
	}
	return results
}

// reuseOrFreshRoot implements subtree reuse (spec.md §4.5): unmake moves
// off the cached board until its ply matches b's, compare, and if equal,
// walk the unmade sequence forward through the cached tree promoting
// matching children, then redo the unmade moves on b.
func (s *Engine) reuseOrFreshRoot(b *board.Board) *Node {
	s.mu.Lock()
	cachedRoot, cachedBoard := s.cachedRoot, s.cachedBoard
	s.mu.Unlock()

	if cachedRoot == nil || cachedBoard == nil {
		return &Node{}
	}
	if cachedBoard.Movenum() > b.Movenum() {
		return &Node{}
	}

	trial := cachedBoard.Clone()
	var undone []board.Move
	for trial.Movenum() < b.Movenum() {
		// walk forward along b's own history to discover the moves to
		// replay onto trial.
		idx := trial.Movenum()
		if idx >= len(b.History) {
			return &Node{}
		}
		undone = append(undone, b.History[idx].Move)
		trial.Make(b.History[idx].Move)
	}

	if trial.BoardHash != b.BoardHash {
		return &Node{}
	}

	node := cachedRoot
	for _, m := range undone {
		var next *Node
		for i := range node.Candidates {
			if node.Candidates[i].Move.Equal(m) {
				next = node.Candidates[i].Child()
				break
			}
		}
		if next == nil {
			return &Node{}
		}
		node = next
	}
	return node
}

func (s *Engine) reportLoop(root *Node, periodMs int, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Duration(periodMs) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.log.Debug("search: progress", "visits", root.AccumVisits.Load(), "pv", s.principalVariation(root))
		}
	}
}

// principalVariation walks the highest-visit-count child recursively
// (spec.md §4.5 "Reporting").
func (s *Engine) principalVariation(root *Node) string {
	var sb []byte
	n := root
	for i := 0; i < 40; i++ {
		idx := n.BestChildIndex()
		if idx < 0 {
			break
		}
		c := &n.Candidates[idx]
		sb = append(sb, []byte(board.MoveText(c.Move))...)
		sb = append(sb, ' ')
		child := c.Child()
		if child == nil {
			break
		}
		n = child
	}
	return string(sb)
}
