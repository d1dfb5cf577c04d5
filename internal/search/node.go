// Package search implements the MCTS search tree node and engine
// (spec.md §4.4, §4.5): atomic per-node statistics, a lock-free expansion
// state machine, PUCT selection, virtual loss, and subtree reuse.
package search

import (
	"math"
	"runtime"
	"sync/atomic"

	"janggi/internal/board"
	"janggi/internal/eval"
)

// VirtualLoss is the constant penalty applied to a node's vloss counter
// while a thread is descending through it (spec.md §4.4).
const VirtualLoss = 3

// expansion states, exactly as encoded in original_source's SearchNode.h:
// 0 unexpanded, 1 expanding, 3 expanded-idle, 2 expanded-write-locked,
// 4+ expanded-read-locked (count = state-3).
const (
	stateUnexpanded = 0
	stateExpanding  = 1
	stateExpandedWL = 2
	stateExpandedRO = 3
)

// Candidate is one move a Node can expand into: its prior policy and a
// lazily-materialized child.
type Candidate struct {
	Move   board.Move
	Policy float32
	child  atomic.Pointer[Node]
}

func (c *Candidate) Child() *Node { return c.child.Load() }

// createChild atomically materializes c's child if absent; losers of the
// race discard their draft (spec.md §4.4 point 5, SearchCandidate::createChild).
func (c *Candidate) createChild() *Node {
	n := &Node{}
	if c.child.CompareAndSwap(nil, n) {
		return n
	}
	return c.child.Load()
}

// Node is one MCTS tree node. AccumValue represents Han-winning
// probability mass in [0, AccumVisits] (spec.md §3).
type Node struct {
	accumValue  atomic.Uint64 // float64 bits, CAS-looped
	AccumVisits atomic.Int32
	VLoss       atomic.Int32

	Candidates []Candidate

	state atomic.Int32
}

func (n *Node) AccumValue() float64 {
	return math.Float64frombits(n.accumValue.Load())
}

func (n *Node) addValue(v float64) {
	n.AccumVisits.Add(1)
	for {
		prev := n.accumValue.Load()
		next := math.Float64bits(math.Float64frombits(prev) + v)
		if n.accumValue.CompareAndSwap(prev, next) {
			return
		}
	}
}

func (n *Node) acquireExpand() bool {
	i := 0
	for {
		v := n.state.Load()
		if v == stateUnexpanded {
			if n.state.CompareAndSwap(stateUnexpanded, stateExpanding) {
				return true
			}
		} else if v >= stateExpandedWL {
			return false
		}
		i++
		if i%1024 == 0 {
			runtime.Gosched()
		}
	}
}

func (n *Node) expandDone()   { n.state.Store(stateExpandedRO) }
func (n *Node) expandCancel() { n.state.Store(stateUnexpanded) }
func (n *Node) isExpanded() bool { return n.state.Load() >= stateExpandedWL }

func (n *Node) rlock() {
	i := 0
	for {
		x := n.state.Load()
		if x >= stateExpandedRO {
			if n.state.CompareAndSwap(x, x+1) {
				return
			}
		}
		i++
		if i%1024 == 0 {
			runtime.Gosched()
		}
	}
}

func (n *Node) runlock() { n.state.Add(-1) }

// Expand implements the five-step expansion protocol of spec.md §4.4. It
// returns the backed-up value (Han-winning mass in [0,1]) for this
// descent.
func (n *Node) Expand(e *eval.Evaluator, b *board.Board, biasRate float64) (float64, error) {
	if w := b.Winner(); w != board.NoSide {
		v := 0.0
		if w == board.Han {
			v = 1.0
		}
		n.addValue(v)
		return v, nil
	}

	var preEvaluated *eval.Result
	if !n.isExpanded() {
		r, err := e.Evaluate(b)
		if err != nil {
			return 0, err
		}
		preEvaluated = r
	}

	if n.acquireExpand() {
		result := preEvaluated
		if result == nil {
			r, err := e.Evaluate(b)
			if err != nil {
				n.expandCancel()
				return 0, err
			}
			result = r
		}
		n.VLoss.Add(VirtualLoss)
		n.createChildren(result, b, biasRate)
		n.expandDone()
		v := n.AccumValue() / float64(maxInt(int(n.AccumVisits.Load()), 1))
		n.VLoss.Add(-VirtualLoss)
		return v, nil
	}

	for !n.isExpanded() {
		runtime.Gosched()
	}

	n.VLoss.Add(VirtualLoss)
	n.rlock()
	best := n.selectCandidate(b.ToMove())
	n.runlock()

	child := best.Child()
	if child == nil {
		child = best.createChild()
	}

	b.Make(best.Move)
	v, err := child.Expand(e, b, biasRate)
	b.Unmake()
	n.VLoss.Add(-VirtualLoss)
	if err != nil {
		return 0, err
	}
	n.addValue(v)
	return v, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// createChildren builds this node's candidates from an evaluation result,
// optionally blending the leaf value toward a material-based sigmoid
// (spec.md §4.4 "Value bookkeeping", ported from SearchNode::create_children).
func (n *Node) createChildren(result *eval.Result, b *board.Board, biasRate float64) {
	n.AccumVisits.Add(1)

	value := float64(result.Value)
	if b.ToMove() == board.Cho {
		value = -value
	}
	value = (value + 1) / 2 // rescale [-1,1] -> [0,1], "Han wins" mass

	if biasRate > 0 {
		delta := b.ScoreHan - b.ScoreCho
		bias := math.Tanh(delta / 14.4)
		bias = (bias + 1) / 2
		value = value*(1-biasRate) + bias*biasRate
	}
	n.accumValue.Store(math.Float64bits(value))

	total := float32(0)
	const smoothingRate = 0.03
	count := len(result.Policy)
	for _, p := range result.Policy {
		total += p.Policy + float32(smoothingRate)/float32(maxInt(count, 1))
	}
	if total == 0 {
		total = 1
	}
	cands := make([]Candidate, count)
	for i, p := range result.Policy {
		cands[i].Move = p.Move
		cands[i].Policy = (p.Policy + float32(smoothingRate)/float32(maxInt(count, 1))) / total
	}
	n.Candidates = cands
}

// selectCandidate picks the candidate maximizing the PUCT score of
// spec.md §4.4. Ties go to the first candidate in generation order.
func (n *Node) selectCandidate(toMove board.Side) *Candidate {
	var best *Candidate
	bestScore := math.Inf(-1)
	parentVisits := float64(n.AccumVisits.Load())
	parentVLoss := float64(n.VLoss.Load())

	for i := range n.Candidates {
		c := &n.Candidates[i]
		child := c.Child()

		var numer, visits, vloss float64
		if child != nil {
			numer = child.AccumValue()
			visits = float64(child.AccumVisits.Load())
			vloss = float64(child.VLoss.Load())
		} else {
			numer = n.AccumValue()
			visits = parentVisits
			vloss = parentVLoss
		}
		if toMove == board.Cho {
			numer = visits - numer
		}
		winrate := numer / maxFloat(visits+vloss, 1)

		childVisitsVLoss := 0.0
		if child != nil {
			childVisitsVLoss = float64(child.AccumVisits.Load() + child.VLoss.Load())
		}
		puct := float64(c.Policy) * math.Sqrt(parentVisits+parentVLoss) / (1 + childVisitsVLoss)
		score := winrate + 3.0*puct

		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	return best
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// BestChildIndex returns the index of the most-visited candidate, used by
// move selection and PV printing.
func (n *Node) BestChildIndex() int {
	best := -1
	bestVisits := -1
	for i := range n.Candidates {
		visits := 0
		if c := n.Candidates[i].Child(); c != nil {
			visits = int(c.AccumVisits.Load())
		}
		if visits > bestVisits {
			bestVisits = visits
			best = i
		}
	}
	return best
}
