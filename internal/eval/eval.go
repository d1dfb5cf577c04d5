// Package eval implements the position Evaluator: a two-generation hash
// cache in front of a pluggable raw-inference path (spec.md §4.2).
package eval

import (
	"math"
	"sync"

	"golang.org/x/sync/singleflight"

	"janggi/internal/accel/scheduler"
	"janggi/internal/board"
	"janggi/internal/encoding"
)

const numBuckets = 16

// PolicyEntry is one (move, prior probability) pair.
type PolicyEntry struct {
	Move   board.Move
	Policy float32
}

// Result is the evaluator's public output (spec.md §4.2).
type Result struct {
	Policy []PolicyEntry
	Value  float32 // in [-1, +1], positive favors the side to move
}

type bucket struct {
	mu        sync.Mutex
	primary   map[uint64]*Result
	secondary map[uint64]*Result
}

// Evaluator caches position evaluations in 16 playhash-striped buckets,
// each holding a primary and secondary generation (spec.md §3 "Evaluation
// cache", §4.2 "Caching"). CacheSize bounds a bucket's primary generation
// before rotation.
type Evaluator struct {
	CacheSize int

	buckets [numBuckets]*bucket

	sched *scheduler.Scheduler
	group singleflight.Group
}

func New(cacheSize int, sched *scheduler.Scheduler) *Evaluator {
	e := &Evaluator{CacheSize: cacheSize, sched: sched}
	for i := range e.buckets {
		e.buckets[i] = &bucket{
			primary:   make(map[uint64]*Result, cacheSize*2),
			secondary: make(map[uint64]*Result),
		}
	}
	return e
}

// Evaluate returns the cached or freshly computed evaluation for b.
func (e *Evaluator) Evaluate(b *board.Board) (*Result, error) {
	hash := b.PlayHash
	buck := e.buckets[hash%numBuckets]

	if r, ok := e.lookup(buck, hash); ok {
		if e.validates(r, b) {
			return r, nil
		}
		// Hash collision: current legal moves disagree with the cached
		// entry's move list (spec.md §4.2 "Hash collisions"). Recompute.
	}

	v, err, _ := e.group.Do(bucketKey(hash), func() (interface{}, error) {
		return e.evaluateRaw(b)
	})
	if err != nil {
		return nil, err
	}
	r := v.(*Result)
	e.insert(buck, hash, r)
	return r, nil
}

func bucketKey(h uint64) string {
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(h >> (8 * i))
	}
	return string(buf[:])
}

func (e *Evaluator) lookup(b *bucket, hash uint64) (*Result, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.primary[hash]; ok {
		return r, true
	}
	if r, ok := b.secondary[hash]; ok {
		b.primary[hash] = r
		delete(b.secondary, hash)
		return r, true
	}
	return nil, false
}

func (e *Evaluator) insert(b *bucket, hash uint64, r *Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.primary[hash] = r
	if len(b.primary) >= e.CacheSize {
		b.secondary = b.primary
		b.primary = make(map[uint64]*Result, e.CacheSize*2)
	}
}

// validates checks a cache hit's move list against the board's current
// legal moves, guarding against the rare playhash collision.
func (e *Evaluator) validates(r *Result, b *board.Board) bool {
	legal := b.GenerateLegalMoves()
	if len(legal) != len(r.Policy) {
		return false
	}
	for i, m := range legal {
		if !m.Equal(r.Policy[i].Move) {
			return false
		}
	}
	return true
}

// evaluateRaw dispatches to the inference scheduler when one is attached;
// otherwise it falls back to the heuristic evaluator (spec.md §4.2
// "Fallback", §7 "weight-load errors ... evaluate falls back").
func (e *Evaluator) evaluateRaw(b *board.Board) (*Result, error) {
	if e.sched == nil {
		return e.heuristicEvaluate(b), nil
	}

	input := encoding.EncodeInput(b)
	rawPolicy := make([]float32, encoding.PolicyPlanes*encoding.Rows*encoding.Cols)
	rawValue := make([]float32, 256)
	if err := e.sched.Forward(input, rawPolicy, rawValue); err != nil {
		return nil, err
	}

	legal := b.GenerateLegalMoves()
	masked := make([]float32, len(legal))
	for i, m := range legal {
		if m.IsPass() {
			masked[i] = -1000
			continue
		}
		pt := int(m.Piece.Type())
		idx := pt*encoding.Rows*encoding.Cols + m.To
		if idx < len(rawPolicy) {
			masked[i] = rawPolicy[idx]
		} else {
			masked[i] = -1000
		}
	}
	probs := softmax(masked, 1.0)

	entries := make([]PolicyEntry, len(legal))
	for i, m := range legal {
		entries[i] = PolicyEntry{Move: m, Policy: probs[i]}
	}

	value := float32(math.Tanh(float64(rawValue[0])))
	return &Result{Policy: entries, Value: value}, nil
}

func softmax(logits []float32, temperature float64) []float32 {
	out := make([]float32, len(logits))
	if len(logits) == 0 {
		return out
	}
	max := logits[0]
	for _, v := range logits {
		if v > max {
			max = v
		}
	}
	var sum float64
	for i, v := range logits {
		e := math.Exp((float64(v) - float64(max)) / temperature)
		out[i] = float32(e)
		sum += e
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// heuristicEvaluate is the NN-absent fallback: uniform policy, material
// delta + mobility + attack-delta value, passed through tanh
// (ported from original_source's PositionEval::evaluate_raw).
func (e *Evaluator) heuristicEvaluate(b *board.Board) *Result {
	if w := b.Winner(); w != board.NoSide {
		v := float32(-1)
		if w == b.ToMove() {
			v = 1
		}
		return &Result{Value: v}
	}

	legal := b.GenerateLegalMoves()
	entries := make([]PolicyEntry, len(legal))
	uniform := float32(1)
	if len(legal) > 0 {
		uniform = 1 / float32(len(legal))
	}
	for i, m := range legal {
		entries[i] = PolicyEntry{Move: m, Policy: uniform}
	}

	oppMoves := b.GeneratePseudoMoves(b.ToMove().Opposite())

	scoreMine, scoreTheirs := b.ScoreCho, b.ScoreHan
	if b.ToMove() == board.Han {
		scoreMine, scoreTheirs = b.ScoreHan, b.ScoreCho
	}
	materialTerm := (scoreMine - scoreTheirs) / 14.4
	mobilityTerm := 0.002 * float64(len(legal)-len(oppMoves))
	attackTerm := (attackPotential(legal) - attackPotential(oppMoves)) / 70.0

	value := math.Tanh(materialTerm + mobilityTerm + attackTerm)
	return &Result{Policy: entries, Value: float32(value)}
}

func attackPotential(moves []board.Move) float64 {
	var sum float64
	for _, m := range moves {
		if m.Captured.Empty() {
			continue
		}
		if m.Captured.Type() == board.General {
			sum += 28.0
			continue
		}
		sum += m.Captured.Type().Value()
	}
	return sum
}
